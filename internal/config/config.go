package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	LogDir   string `toml:"log_dir" env:"STUDIO_LOG_DIR"`
	APIBind  string `toml:"api_bind" env:"STUDIO_API_BIND"`
	APIToken string `toml:"api_token" env:"STUDIO_API_TOKEN"`
}

// Storage describes the bucket that holds generation batches and how object
// URLs are handed to clients.
type Storage struct {
	// Backend selects the object store implementation: "gcs" or "sqlite".
	Backend         string `toml:"backend" env:"STUDIO_STORAGE_BACKEND"`
	ProjectID       string `toml:"project_id" env:"GCP_PROJECT_ID"`
	Bucket          string `toml:"bucket" env:"GCP_BUCKET_NAME"`
	Prefix          string `toml:"prefix" env:"GCP_PREFIX"`
	PublicRead      bool   `toml:"public_read" env:"GCP_PUBLIC_READ"`
	URLStyle        string `toml:"url_style" env:"GCP_URL_STYLE"`
	CredentialsFile string `toml:"credentials_file" env:"GCP_CREDENTIALS_FILE"`

	// SQLitePath is the single-file bucket used by the sqlite backend.
	SQLitePath string `toml:"sqlite_path"`
	// LocalBaseURL is the externally reachable daemon URL used when the
	// sqlite backend signs object links.
	LocalBaseURL    string `toml:"local_base_url"`
	LocalSigningKey string `toml:"local_signing_key" env:"STUDIO_LOCAL_SIGNING_KEY"`

	SignedURLMinutes       int `toml:"signed_url_minutes"`
	HeroURLMinutes         int `toml:"hero_url_minutes"`
	RedirectURLMinutes     int `toml:"redirect_url_minutes"`
	SignedURLCacheSize     int `toml:"signed_url_cache_size"`
	RequestTimeoutSeconds  int `toml:"request_timeout_seconds"`
	RetryMaxElapsedSeconds int `toml:"retry_max_elapsed_seconds"`
}

// Meta configures the campaign/cluster catalog: the remote IA engine source
// and the static fallback used when it is disabled or unavailable.
type Meta struct {
	Enabled          bool                `toml:"enabled" env:"IA_ENGINE_ENABLED"`
	BaseURL          string              `toml:"base_url" env:"IA_ENGINE_BASE_URL"`
	TimeoutSeconds   int                 `toml:"timeout_seconds"`
	CacheTTLSeconds  int                 `toml:"cache_ttl_seconds"`
	Campaigns        []string            `toml:"campaigns"`
	Clusters         []string            `toml:"clusters"`
	CampaignClusters map[string][]string `toml:"campaign_clusters"`
}

// History contains configuration for the batch history listing.
type History struct {
	MaxConcurrency int `toml:"max_concurrency"`
}

// Reconcile configures the client-side history catch-up poller.
type Reconcile struct {
	DelaysMS []int `toml:"delays_ms"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" env:"STUDIO_LOG_FORMAT"`
	Level  string `toml:"level" env:"STUDIO_LOG_LEVEL"`
}

// Config encapsulates all configuration values for the content studio.
//
// Configuration sections by subsystem:
//   - Paths: log directory, API bind address and token
//   - Storage: bucket, environment prefix, access mode and URL expiries
//   - Meta: remote catalog source and static fallback catalog
//   - History: fan-out limits for the batch history listing
//   - Reconcile: catch-up poll schedule used by the CLI after a write
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Storage   Storage   `toml:"storage"`
	Meta      Meta      `toml:"meta"`
	History   History   `toml:"history"`
	Reconcile Reconcile `toml:"reconcile"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/contentstudio/config.toml")
}

// Load locates, parses, and validates a configuration file, then overlays
// environment variables. The returned config has all path fields expanded and
// normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, "", false, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %q is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("studio.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	if strings.TrimSpace(c.Paths.LogDir) != "" {
		if err := os.MkdirAll(c.Paths.LogDir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", c.Paths.LogDir, err)
		}
	}
	if c.Storage.Backend == BackendSQLite && strings.TrimSpace(c.Storage.SQLitePath) != "" {
		if err := os.MkdirAll(filepath.Dir(c.Storage.SQLitePath), 0o755); err != nil {
			return fmt.Errorf("create sqlite bucket directory: %w", err)
		}
	}
	return nil
}

// RequestTimeout returns the per-call object store timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Storage.RequestTimeoutSeconds) * time.Second
}

// MetaTimeout returns the remote catalog fetch timeout.
func (c *Config) MetaTimeout() time.Duration {
	return time.Duration(c.Meta.TimeoutSeconds) * time.Second
}

// MetaCacheTTL returns how long a populated catalog stays warm.
func (c *Config) MetaCacheTTL() time.Duration {
	return time.Duration(c.Meta.CacheTTLSeconds) * time.Second
}

// ReconcileDelays returns the catch-up poll schedule as durations.
func (c *Config) ReconcileDelays() []time.Duration {
	out := make([]time.Duration, 0, len(c.Reconcile.DelaysMS))
	for _, ms := range c.Reconcile.DelaysMS {
		out = append(out, time.Duration(ms)*time.Millisecond)
	}
	return out
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
