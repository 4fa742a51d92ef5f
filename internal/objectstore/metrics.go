package objectstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Observer captures telemetry for store operations.
type Observer interface {
	RecordOperation(op string, duration time.Duration, err error)
	RecordBytes(direction string, n int)
}

// PrometheusObserver exports store metrics to Prometheus.
type PrometheusObserver struct {
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec
	bytes    *prometheus.CounterVec
}

// NewPrometheusObserver registers object store metrics on reg.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "studio_objectstore"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	duration, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Latency for object store operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"}))
	if err != nil {
		return nil, err
	}
	failures, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operation_errors_total",
		Help:      "Count of object store failures.",
	}, []string{"operation"}))
	if err != nil {
		return nil, err
	}
	bytes, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transferred_bytes_total",
		Help:      "Payload bytes read from or written to the object store.",
	}, []string{"direction"}))
	if err != nil {
		return nil, err
	}
	return &PrometheusObserver{duration: duration, errors: failures, bytes: bytes}, nil
}

// register adds c to reg, reusing an equivalent collector registered earlier.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, fmt.Errorf("register object store metric: %w", err)
	}
	return c, nil
}

func (o *PrometheusObserver) RecordOperation(op string, duration time.Duration, err error) {
	if o == nil {
		return
	}
	o.duration.WithLabelValues(op).Observe(duration.Seconds())
	if err != nil {
		o.errors.WithLabelValues(op).Inc()
	}
}

func (o *PrometheusObserver) RecordBytes(direction string, n int) {
	if o == nil || n <= 0 {
		return
	}
	o.bytes.WithLabelValues(direction).Add(float64(n))
}

type nopObserver struct{}

func (nopObserver) RecordOperation(string, time.Duration, error) {}

func (nopObserver) RecordBytes(string, int) {}

// Instrumented reports latency and failures of every delegated call.
type Instrumented struct {
	delegate Store
	observer Observer
	now      func() time.Time
}

// NewInstrumented wraps delegate; a nil observer records nothing.
func NewInstrumented(delegate Store, observer Observer) *Instrumented {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Instrumented{delegate: delegate, observer: observer, now: time.Now}
}

func (s *Instrumented) observe(op string, start time.Time, err error) {
	s.observer.RecordOperation(op, s.now().Sub(start), err)
}

func (s *Instrumented) Read(ctx context.Context, key string) ([]byte, error) {
	start := s.now()
	data, err := s.delegate.Read(ctx, key)
	s.observe("read", start, err)
	s.observer.RecordBytes("read", len(data))
	return data, err
}

func (s *Instrumented) Write(ctx context.Context, key string, data []byte, opts WriteOptions) error {
	start := s.now()
	err := s.delegate.Write(ctx, key, data, opts)
	s.observe("write", start, err)
	if err == nil {
		s.observer.RecordBytes("write", len(data))
	}
	return err
}

func (s *Instrumented) Exists(ctx context.Context, key string) (bool, error) {
	start := s.now()
	ok, err := s.delegate.Exists(ctx, key)
	s.observe("exists", start, err)
	return ok, err
}

func (s *Instrumented) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	start := s.now()
	info, err := s.delegate.Stat(ctx, key)
	s.observe("stat", start, err)
	return info, err
}

func (s *Instrumented) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	start := s.now()
	infos, err := s.delegate.List(ctx, prefix)
	s.observe("list", start, err)
	return infos, err
}

func (s *Instrumented) ListPrefixes(ctx context.Context, prefix string) ([]string, error) {
	start := s.now()
	prefixes, err := s.delegate.ListPrefixes(ctx, prefix)
	s.observe("list_prefixes", start, err)
	return prefixes, err
}

func (s *Instrumented) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	start := s.now()
	url, err := s.delegate.SignedURL(ctx, key, expiry)
	s.observe("sign", start, err)
	return url, err
}

func (s *Instrumented) MakePublic(ctx context.Context, key string) error {
	start := s.now()
	err := s.delegate.MakePublic(ctx, key)
	s.observe("make_public", start, err)
	return err
}

var _ Store = (*Instrumented)(nil)
