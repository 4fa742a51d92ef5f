// Package memstore is an in-process object store used by tests and dry runs.
package memstore

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"contentstudio/internal/objectkey"
	"contentstudio/internal/objectstore"
	"contentstudio/internal/services"
)

// SignedBase prefixes every URL returned by SignedURL.
const SignedBase = "https://signed.memstore.test/"

type object struct {
	data        []byte
	contentType string
	updated     time.Time
}

// Store keeps objects in memory. Failures can be injected per operation and
// key to exercise error paths.
type Store struct {
	mu       sync.Mutex
	objects  map[string]object
	public   map[string]bool
	failures map[string]error
	calls    map[string]int
	now      func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		objects:  make(map[string]object),
		public:   make(map[string]bool),
		failures: make(map[string]error),
		calls:    make(map[string]int),
		now:      time.Now,
	}
}

// Put stores data at key with the current time as its update stamp.
func (s *Store) Put(key string, data []byte) {
	s.PutAt(key, data, s.now())
}

// PutAt stores data at key with an explicit update stamp.
func (s *Store) PutAt(key string, data []byte, updated time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = object{
		data:        append([]byte(nil), data...),
		contentType: objectkey.ContentTypeByExt(key),
		updated:     updated,
	}
}

// FailOn makes op fail with err for key. An empty key matches every key.
func (s *Store) FailOn(op, key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op+"|"+key] = err
}

// Calls returns how many times op was invoked.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Bytes returns the stored payload for assertions.
func (s *Store) Bytes(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	return append([]byte(nil), obj.data...), ok
}

// ContentType returns the recorded content type of key.
func (s *Store) ContentType(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects[key].contentType
}

// IsPublic reports whether MakePublic succeeded for key.
func (s *Store) IsPublic(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.public[key]
}

func (s *Store) enter(op, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	if err, ok := s.failures[op+"|"+key]; ok {
		return err
	}
	if err, ok := s.failures[op+"|"]; ok {
		return err
	}
	return nil
}

func (s *Store) Read(ctx context.Context, key string) ([]byte, error) {
	if err := s.enter("read", key); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "memstore", "read", key, nil)
	}
	return append([]byte(nil), obj.data...), nil
}

func (s *Store) Write(ctx context.Context, key string, data []byte, opts objectstore.WriteOptions) error {
	if err := s.enter("write", key); err != nil {
		return err
	}
	ct := opts.ContentType
	if ct == "" {
		ct = objectkey.ContentTypeByExt(key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = object{data: append([]byte(nil), data...), contentType: ct, updated: s.now()}
	return nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := s.enter("exists", key); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *Store) Stat(ctx context.Context, key string) (objectstore.ObjectInfo, error) {
	if err := s.enter("stat", key); err != nil {
		return objectstore.ObjectInfo{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	if !ok {
		return objectstore.ObjectInfo{}, services.Wrap(services.ErrNotFound, "memstore", "stat", key, nil)
	}
	return info(key, obj), nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]objectstore.ObjectInfo, error) {
	if err := s.enter("list", prefix); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []objectstore.ObjectInfo
	for key, obj := range s.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, info(key, obj))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) ListPrefixes(ctx context.Context, prefix string) ([]string, error) {
	if err := s.enter("list_prefixes", prefix); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{})
	for key := range s.objects {
		rest, ok := strings.CutPrefix(key, prefix)
		if !ok {
			continue
		}
		if i := strings.Index(rest, "/"); i > 0 {
			seen[prefix+rest[:i+1]] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if err := s.enter("sign", key); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s?expires=%d", SignedBase, escapePath(key), int(expiry.Seconds())), nil
}

func (s *Store) MakePublic(ctx context.Context, key string) error {
	if err := s.enter("make_public", key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return services.Wrap(services.ErrNotFound, "memstore", "make public", key, nil)
	}
	s.public[key] = true
	return nil
}

func info(key string, obj object) objectstore.ObjectInfo {
	return objectstore.ObjectInfo{
		Key:         key,
		Size:        int64(len(obj.data)),
		ContentType: obj.contentType,
		Updated:     obj.updated,
	}
}

func escapePath(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

var _ objectstore.Store = (*Store)(nil)
