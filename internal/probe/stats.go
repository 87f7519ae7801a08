package probe

import "sync/atomic"

// Outcome is the terminal state of one Process call.
type Outcome int

const (
	OutcomeTruncated   Outcome = iota // a header did not fit in the frame
	OutcomeUnsupported                // not Ethernet/IP/UDP
	OutcomeFragment                   // non-initial IPv4 fragment
	OutcomeNotDNS                     // UDP on other ports
	OutcomeRecorded                   // query stored
	OutcomeCorrelated                 // response matched and counted
	OutcomeUnmatched                  // response with no pending query
	OutcomeDiscarded                  // response matched, latency implausible

	numOutcomes
)

var outcomeNames = [numOutcomes]string{
	OutcomeTruncated:   "truncated",
	OutcomeUnsupported: "unsupported",
	OutcomeFragment:    "fragment",
	OutcomeNotDNS:      "not_dns",
	OutcomeRecorded:    "recorded",
	OutcomeCorrelated:  "correlated",
	OutcomeUnmatched:   "unmatched",
	OutcomeDiscarded:   "discarded",
}

func (o Outcome) String() string {
	if o < 0 || o >= numOutcomes {
		return "unknown"
	}
	return outcomeNames[o]
}

// Outcomes lists every outcome in order.
func Outcomes() []Outcome {
	out := make([]Outcome, numOutcomes)
	for i := range out {
		out[i] = Outcome(i)
	}
	return out
}

// Stats counts Process outcomes.
type Stats struct {
	counts [numOutcomes]atomic.Uint64
}

func (s *Stats) inc(o Outcome) {
	s.counts[o].Add(1)
}

// Get returns the count for o.
func (s *Stats) Get(o Outcome) uint64 {
	if o < 0 || o >= numOutcomes {
		return 0
	}
	return s.counts[o].Load()
}

// Total returns the number of processed frames.
func (s *Stats) Total() uint64 {
	var total uint64
	for i := range s.counts {
		total += s.counts[i].Load()
	}
	return total
}

// Map returns the counters keyed by outcome name.
func (s *Stats) Map() map[string]uint64 {
	m := make(map[string]uint64, numOutcomes)
	for i := range s.counts {
		m[Outcome(i).String()] = s.counts[i].Load()
	}
	return m
}
