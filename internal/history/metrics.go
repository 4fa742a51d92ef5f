package history

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records history listing latency and skipped batches.
type Metrics struct {
	duration prometheus.Histogram
	rows     prometheus.Gauge
	skipped  *prometheus.CounterVec
}

// NewMetrics registers history metrics on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	duration, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "studio",
		Subsystem: "history",
		Name:      "list_duration_seconds",
		Help:      "Wall time of a full history listing.",
		Buckets:   prometheus.DefBuckets,
	}))
	if err != nil {
		return nil, err
	}
	rows, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "studio",
		Subsystem: "history",
		Name:      "rows",
		Help:      "Rows returned by the last history listing.",
	}))
	if err != nil {
		return nil, err
	}
	skipped, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "studio",
		Subsystem: "history",
		Name:      "skipped_total",
		Help:      "Batches left out of a history listing.",
	}, []string{"reason"}))
	if err != nil {
		return nil, err
	}
	return &Metrics{duration: duration, rows: rows, skipped: skipped}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, fmt.Errorf("register history metric: %w", err)
	}
	return c, nil
}

func (m *Metrics) observe(elapsed time.Duration, rows int) {
	if m == nil {
		return
	}
	m.duration.Observe(elapsed.Seconds())
	m.rows.Set(float64(rows))
}

func (m *Metrics) skip(reason string) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(reason).Inc()
}
