package daemon

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// prometheusRegister registers c with the default registry, replacing a
// collector left by an earlier daemon in the same process.
func prometheusRegister(c prometheus.Collector) error {
	err := prometheus.Register(c)
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		prometheus.Unregister(are.ExistingCollector)
		err = prometheus.Register(c)
	}
	if err != nil {
		return fmt.Errorf("register metrics collector: %w", err)
	}
	return nil
}
