// Package gcs implements objectstore.Store on Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"contentstudio/internal/objectkey"
	"contentstudio/internal/objectstore"
	"contentstudio/internal/services"
)

const component = "gcs"

// Options configures the GCS backend.
type Options struct {
	Bucket          string
	CredentialsFile string
	// RequestTimeout bounds every individual call; zero disables the bound.
	RequestTimeout time.Duration
}

// Store is a bucket-scoped GCS client.
type Store struct {
	client  *storage.Client
	bucket  *storage.BucketHandle
	timeout time.Duration
	now     func() time.Time
}

// New dials GCS with application default credentials, or with the service
// account file in opts when one is set.
func New(ctx context.Context, opts Options) (*Store, error) {
	bucket := strings.TrimSpace(opts.Bucket)
	if bucket == "" {
		return nil, services.Wrap(services.ErrConfiguration, component, "new client", "storage.bucket is required", nil)
	}
	var clientOpts []option.ClientOption
	if path := strings.TrimSpace(opts.CredentialsFile); path != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(path))
	}
	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "new client", "create storage client", err)
	}
	return &Store{client: client, bucket: client.Bucket(bucket), timeout: opts.RequestTimeout, now: time.Now}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) Read(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	r, err := s.bucket.Object(key).NewReader(ctx)
	if err != nil {
		return nil, classify("read", key, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, classify("read", key, err)
	}
	return data, nil
}

func (s *Store) Write(ctx context.Context, key string, data []byte, opts objectstore.WriteOptions) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	w := s.bucket.Object(key).NewWriter(ctx)
	// Single-request upload; batch artifacts are small.
	w.ChunkSize = 0
	w.ContentType = opts.ContentType
	if w.ContentType == "" {
		w.ContentType = objectkey.ContentTypeByExt(key)
	}
	w.CacheControl = opts.CacheControl
	if w.CacheControl == "" {
		w.CacheControl = objectstore.DefaultCacheControl
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return classify("write", key, err)
	}
	if err := w.Close(); err != nil {
		return classify("write", key, err)
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Stat(ctx, key)
	if errors.Is(err, services.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Stat(ctx context.Context, key string) (objectstore.ObjectInfo, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	attrs, err := s.bucket.Object(key).Attrs(ctx)
	if err != nil {
		return objectstore.ObjectInfo{}, classify("stat", key, err)
	}
	return toInfo(attrs), nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]objectstore.ObjectInfo, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	var out []objectstore.ObjectInfo
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, classify("list", prefix, err)
		}
		out = append(out, toInfo(attrs))
	}
	return out, nil
}

func (s *Store) ListPrefixes(ctx context.Context, prefix string) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	query := &storage.Query{Prefix: prefix, Delimiter: "/"}
	if err := query.SetAttrSelection([]string{"Name"}); err != nil {
		return nil, classify("list prefixes", prefix, err)
	}
	it := s.bucket.Objects(ctx, query)
	var out []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, classify("list prefixes", prefix, err)
		}
		if attrs.Prefix != "" {
			out = append(out, attrs.Prefix)
		}
	}
	return out, nil
}

func (s *Store) SignedURL(_ context.Context, key string, expiry time.Duration) (string, error) {
	url, err := s.bucket.SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: s.now().Add(expiry),
	})
	if err != nil {
		return "", services.Wrap(services.ErrSigningFailed, component, "sign", key, err)
	}
	return url, nil
}

func (s *Store) MakePublic(ctx context.Context, key string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.bucket.Object(key).ACL().Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
		return classify("make public", key, err)
	}
	return nil
}

func toInfo(attrs *storage.ObjectAttrs) objectstore.ObjectInfo {
	return objectstore.ObjectInfo{
		Key:         attrs.Name,
		Size:        attrs.Size,
		ContentType: attrs.ContentType,
		Updated:     attrs.Updated,
	}
}

func classify(operation, key string, err error) error {
	switch {
	case errors.Is(err, storage.ErrObjectNotExist), errors.Is(err, storage.ErrBucketNotExist):
		return services.Wrap(services.ErrNotFound, component, operation, key, err)
	case errors.Is(err, context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, component, operation, key, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return services.Wrap(services.ErrUpstreamUnavailable, component, operation, key, err)
	}
}

var _ objectstore.Store = (*Store)(nil)
