package testsupport

import (
	"path/filepath"
	"testing"

	"contentstudio/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It selects the sqlite backend so no cloud credentials are needed, and
// applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Storage.Backend = config.BackendSQLite
	cfgVal.Storage.SQLitePath = filepath.Join(base, "bucket.db")
	cfgVal.Storage.Bucket = "studio-test"
	cfgVal.Storage.Prefix = "dev"
	cfgVal.Storage.LocalBaseURL = "http://studio.test"
	cfgVal.Storage.LocalSigningKey = "test-signing-key"
	cfgVal.Meta.Campaigns = []string{"Verano"}
	cfgVal.Meta.Clusters = []string{"Familias", "Jovenes"}
	cfgVal.Reconcile.DelaysMS = []int{1, 2, 3}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithPublicRead marks the test bucket as publicly readable.
func WithPublicRead() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Storage.PublicRead = true
	}
}

// WithAPIToken requires a bearer token on the daemon API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithPrefix overrides the environment prefix.
func WithPrefix(prefix string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Storage.Prefix = prefix
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
