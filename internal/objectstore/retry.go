package objectstore

import (
	"context"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"contentstudio/internal/services"
)

// Retrying wraps a store and retries idempotent operations on transient
// failures. Writes, signing and ACL changes pass through untouched.
type Retrying struct {
	delegate     Store
	buildBackoff func() backoff.BackOff
}

// NewRetrying creates a retrying store. A nil factory yields an exponential
// backoff starting at 100ms and giving up after maxElapsed (3s when zero).
func NewRetrying(delegate Store, maxElapsed time.Duration, factory func() backoff.BackOff) *Retrying {
	if maxElapsed <= 0 {
		maxElapsed = 3 * time.Second
	}
	if factory == nil {
		factory = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 100 * time.Millisecond
			b.MaxElapsedTime = maxElapsed
			return b
		}
	}
	return &Retrying{delegate: delegate, buildBackoff: factory}
}

func (r *Retrying) Read(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	err := r.retry(ctx, func() error {
		data, err := r.delegate.Read(ctx, key)
		if err != nil {
			return err
		}
		out = data
		return nil
	})
	return out, err
}

func (r *Retrying) Write(ctx context.Context, key string, data []byte, opts WriteOptions) error {
	return r.delegate.Write(ctx, key, data, opts)
}

func (r *Retrying) Exists(ctx context.Context, key string) (bool, error) {
	var out bool
	err := r.retry(ctx, func() error {
		ok, err := r.delegate.Exists(ctx, key)
		if err != nil {
			return err
		}
		out = ok
		return nil
	})
	return out, err
}

func (r *Retrying) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	var out ObjectInfo
	err := r.retry(ctx, func() error {
		info, err := r.delegate.Stat(ctx, key)
		if err != nil {
			return err
		}
		out = info
		return nil
	})
	return out, err
}

func (r *Retrying) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	err := r.retry(ctx, func() error {
		infos, err := r.delegate.List(ctx, prefix)
		if err != nil {
			return err
		}
		out = infos
		return nil
	})
	return out, err
}

func (r *Retrying) ListPrefixes(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	err := r.retry(ctx, func() error {
		prefixes, err := r.delegate.ListPrefixes(ctx, prefix)
		if err != nil {
			return err
		}
		out = prefixes
		return nil
	})
	return out, err
}

func (r *Retrying) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return r.delegate.SignedURL(ctx, key, expiry)
}

func (r *Retrying) MakePublic(ctx context.Context, key string) error {
	return r.delegate.MakePublic(ctx, key)
}

func (r *Retrying) retry(ctx context.Context, fn func() error) error {
	b := backoff.WithContext(r.buildBackoff(), ctx)
	return backoff.Retry(func() error {
		err := fn()
		if err != nil && !services.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

var _ Store = (*Retrying)(nil)
