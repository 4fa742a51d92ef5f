// Package sqlitestore keeps a local development bucket in a single SQLite
// file. Signed URLs point back at the daemon's /objects route and carry an
// HMAC over the key and expiry, so the private-bucket flow can be exercised
// without cloud credentials.
package sqlitestore

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"contentstudio/internal/objectkey"
	"contentstudio/internal/objectstore"
	"contentstudio/internal/services"
)

const component = "sqlitestore"

// ObjectsPath is the daemon route that serves objects from this store.
const ObjectsPath = "/objects/"

// Options configures a local store.
type Options struct {
	Path string
	// BaseURL is the externally reachable daemon address used in signed URLs.
	BaseURL string
	// SigningKey authenticates signed URLs. Signing fails when it is empty.
	SigningKey string
}

// Store manages objects persisted in SQLite.
type Store struct {
	db      *sql.DB
	path    string
	baseURL string
	key     []byte
	now     func() time.Time
}

// Open initializes or connects to the object database.
func Open(opts Options) (*Store, error) {
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		return nil, services.Wrap(services.ErrConfiguration, component, "open", "storage.sqlite_path is required", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure object database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:      db,
		path:    path,
		baseURL: strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		key:     []byte(opts.SigningKey),
		now:     time.Now,
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Read(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM objects WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, component, "read", key, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

func (s *Store) Write(ctx context.Context, key string, data []byte, opts objectstore.WriteOptions) error {
	contentType := opts.ContentType
	if contentType == "" {
		contentType = objectkey.ContentTypeByExt(key)
	}
	cacheControl := opts.CacheControl
	if cacheControl == "" {
		cacheControl = objectstore.DefaultCacheControl
	}
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO objects (key, data, content_type, cache_control, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET
             data = excluded.data,
             content_type = excluded.content_type,
             cache_control = excluded.cache_control,
             updated_at = excluded.updated_at`,
		key, data, contentType, cacheControl, s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write object %s: %w", key, err)
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM objects WHERE key = ?`, key).Scan(&count); err != nil {
		return false, fmt.Errorf("check object %s: %w", key, err)
	}
	return count > 0, nil
}

func (s *Store) Stat(ctx context.Context, key string) (objectstore.ObjectInfo, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+infoColumns+` FROM objects WHERE key = ?`, key)
	info, err := scanInfo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return objectstore.ObjectInfo{}, services.Wrap(services.ErrNotFound, component, "stat", key, nil)
	}
	if err != nil {
		return objectstore.ObjectInfo{}, fmt.Errorf("stat object %s: %w", key, err)
	}
	return info, nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]objectstore.ObjectInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+infoColumns+` FROM objects WHERE substr(key, 1, length(?)) = ? ORDER BY key`,
		prefix, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("list objects %s: %w", prefix, err)
	}
	defer rows.Close()

	var infos []objectstore.ObjectInfo
	for rows.Next() {
		info, err := scanInfo(rows)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

func (s *Store) ListPrefixes(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM objects WHERE substr(key, 1, length(?)) = ? ORDER BY key`,
		prefix, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("list prefixes %s: %w", prefix, err)
	}
	defer rows.Close()

	var prefixes []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		rest := strings.TrimPrefix(key, prefix)
		i := strings.Index(rest, "/")
		if i <= 0 {
			continue
		}
		child := prefix + rest[:i+1]
		if n := len(prefixes); n == 0 || prefixes[n-1] != child {
			prefixes = append(prefixes, child)
		}
	}
	return prefixes, rows.Err()
}

// SignedURL returns a daemon URL for key valid until now+expiry.
func (s *Store) SignedURL(_ context.Context, key string, expiry time.Duration) (string, error) {
	if len(s.key) == 0 {
		return "", services.Wrap(services.ErrSigningFailed, component, "sign", "storage.local_signing_key is not set", nil)
	}
	expires := s.now().Add(expiry).Unix()
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("sig", s.signature(key, expires))
	return s.baseURL + ObjectsPath + escapeKey(key) + "?" + q.Encode(), nil
}

// Authorize checks that key may be served for a request carrying the given
// expires and sig query values. Public objects need no signature.
func (s *Store) Authorize(ctx context.Context, key, expires, sig string) error {
	if expires == "" && sig == "" {
		var public int
		err := s.db.QueryRowContext(ctx, `SELECT public FROM objects WHERE key = ?`, key).Scan(&public)
		if errors.Is(err, sql.ErrNoRows) {
			return services.Wrap(services.ErrNotFound, component, "authorize", key, nil)
		}
		if err != nil {
			return fmt.Errorf("check object visibility %s: %w", key, err)
		}
		if public == 0 {
			return services.Wrap(services.ErrValidation, component, "authorize", "object is private", nil)
		}
		return nil
	}
	if len(s.key) == 0 {
		return services.Wrap(services.ErrValidation, component, "authorize", "signing disabled", nil)
	}
	unix, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return services.Wrap(services.ErrValidation, component, "authorize", "invalid expires", err)
	}
	if s.now().Unix() > unix {
		return services.Wrap(services.ErrValidation, component, "authorize", "signature expired", nil)
	}
	want := s.signature(key, unix)
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return services.Wrap(services.ErrValidation, component, "authorize", "signature mismatch", nil)
	}
	return nil
}

func (s *Store) MakePublic(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE objects SET public = 1 WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("make object public %s: %w", key, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, component, "make public", key, nil)
	}
	return nil
}

func (s *Store) signature(key string, expires int64) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(key))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

const infoColumns = "key, length(data), content_type, updated_at"

func scanInfo(scanner interface{ Scan(dest ...any) error }) (objectstore.ObjectInfo, error) {
	var (
		info       objectstore.ObjectInfo
		updatedRaw string
	)
	if err := scanner.Scan(&info.Key, &info.Size, &info.ContentType, &updatedRaw); err != nil {
		return objectstore.ObjectInfo{}, err
	}
	if updated, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		info.Updated = updated
	}
	return info, nil
}

func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

var _ objectstore.Store = (*Store)(nil)
