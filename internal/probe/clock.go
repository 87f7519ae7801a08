package probe

import "time"

// Clock yields nanosecond timestamps. Implementations must be monotonic and
// shared by every goroutine feeding the same table.
type Clock interface {
	Now() uint64
}

// MonotonicClock counts nanoseconds since its creation on the runtime's
// monotonic clock.
type MonotonicClock struct {
	base time.Time
}

// NewMonotonicClock starts a clock at zero.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{base: time.Now()}
}

// Now returns the nanoseconds elapsed since the clock was created.
func (c *MonotonicClock) Now() uint64 {
	return uint64(time.Since(c.base))
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() uint64

// Now calls f.
func (f ClockFunc) Now() uint64 {
	return f()
}
