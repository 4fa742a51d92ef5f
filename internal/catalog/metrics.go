package catalog

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts catalog lookups by outcome (hit, remote, static).
type Metrics struct {
	lookups *prometheus.CounterVec
}

// NewMetrics registers catalog counters on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "studio",
		Subsystem: "catalog",
		Name:      "lookups_total",
		Help:      "Catalog lookups by outcome.",
	}, []string{"outcome"})
	if err := reg.Register(lookups); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, fmt.Errorf("register catalog metric: %w", err)
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, fmt.Errorf("register catalog metric: %w", err)
		}
		lookups = existing
	}
	return &Metrics{lookups: lookups}, nil
}

func (m *Metrics) record(outcome string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(outcome).Inc()
}
