package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeMeta()
	c.normalizeHistory()
	c.normalizeReconcile()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if port, ok := os.LookupEnv("PORT"); ok && strings.TrimSpace(port) != "" {
		if c.Paths.APIBind == "" || c.Paths.APIBind == defaultAPIBind {
			c.Paths.APIBind = "0.0.0.0:" + strings.TrimSpace(port)
		}
	}
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeStorage() error {
	s := &c.Storage
	s.Backend = strings.ToLower(strings.TrimSpace(s.Backend))
	if s.Backend == "" {
		s.Backend = defaultBackend
	}
	s.ProjectID = strings.TrimSpace(s.ProjectID)
	s.Bucket = strings.TrimSpace(s.Bucket)
	s.Prefix = strings.Trim(strings.TrimSpace(s.Prefix), "/")

	// Anything other than "console" is treated as direct.
	if strings.EqualFold(strings.TrimSpace(s.URLStyle), URLStyleConsole) {
		s.URLStyle = URLStyleConsole
	} else {
		s.URLStyle = URLStyleDirect
	}

	var err error
	if s.CredentialsFile = strings.TrimSpace(s.CredentialsFile); s.CredentialsFile != "" {
		if s.CredentialsFile, err = expandPath(s.CredentialsFile); err != nil {
			return fmt.Errorf("storage.credentials_file: %w", err)
		}
	}
	if strings.TrimSpace(s.SQLitePath) == "" {
		s.SQLitePath = defaultSQLitePath
	}
	if s.SQLitePath, err = expandPath(s.SQLitePath); err != nil {
		return fmt.Errorf("storage.sqlite_path: %w", err)
	}
	s.LocalBaseURL = strings.TrimRight(strings.TrimSpace(s.LocalBaseURL), "/")
	if s.LocalBaseURL == "" {
		s.LocalBaseURL = "http://" + c.Paths.APIBind
	}
	s.LocalSigningKey = strings.TrimSpace(s.LocalSigningKey)

	if s.SignedURLMinutes <= 0 {
		s.SignedURLMinutes = defaultSignedURLMinutes
	}
	if s.HeroURLMinutes <= 0 {
		s.HeroURLMinutes = defaultHeroURLMinutes
	}
	if s.RedirectURLMinutes <= 0 {
		s.RedirectURLMinutes = defaultRedirectURLMinutes
	}
	if s.SignedURLCacheSize < 0 {
		s.SignedURLCacheSize = 0
	}
	if s.RequestTimeoutSeconds <= 0 {
		s.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
	if s.RetryMaxElapsedSeconds < 0 {
		s.RetryMaxElapsedSeconds = 0
	}
	return nil
}

func (c *Config) normalizeMeta() {
	m := &c.Meta
	m.BaseURL = strings.TrimRight(strings.TrimSpace(m.BaseURL), "/")
	if m.TimeoutSeconds <= 0 {
		m.TimeoutSeconds = defaultMetaTimeoutSeconds
	}
	if m.CacheTTLSeconds <= 0 {
		m.CacheTTLSeconds = defaultMetaCacheTTLSeconds
	}
	m.Campaigns = uniqueTrimmed(m.Campaigns)
	m.Clusters = uniqueTrimmed(m.Clusters)
	if len(m.CampaignClusters) > 0 {
		normalized := make(map[string][]string, len(m.CampaignClusters))
		for campaign, clusters := range m.CampaignClusters {
			key := strings.TrimSpace(campaign)
			if key == "" {
				continue
			}
			normalized[key] = uniqueTrimmed(clusters)
		}
		m.CampaignClusters = normalized
	}
}

func (c *Config) normalizeHistory() {
	if c.History.MaxConcurrency <= 0 {
		c.History.MaxConcurrency = defaultHistoryMaxConcurrency
	}
}

func (c *Config) normalizeReconcile() {
	delays := c.Reconcile.DelaysMS[:0:0]
	for _, ms := range c.Reconcile.DelaysMS {
		if ms > 0 {
			delays = append(delays, ms)
		}
	}
	if len(delays) == 0 {
		delays = append(delays, defaultReconcileDelaysMS...)
	}
	c.Reconcile.DelaysMS = delays
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func uniqueTrimmed(values []string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
