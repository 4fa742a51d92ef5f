package config

import (
	"errors"
	"fmt"
	"sort"
)

// Validate ensures the configuration is usable.
//
// A missing bucket is not rejected here: the CLI can inspect configuration
// without storage access, and the object store constructors report the
// missing destination at their own boundary.
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateMeta(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case BackendGCS, BackendSQLite:
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", BackendGCS, BackendSQLite, c.Storage.Backend)
	}
	if c.Storage.HeroURLMinutes > c.Storage.SignedURLMinutes {
		return errors.New("storage.hero_url_minutes must not exceed storage.signed_url_minutes")
	}
	if c.Storage.RedirectURLMinutes > c.Storage.SignedURLMinutes {
		return errors.New("storage.redirect_url_minutes must not exceed storage.signed_url_minutes")
	}
	return nil
}

func (c *Config) validateMeta() error {
	if c.Meta.Enabled && c.Meta.BaseURL == "" {
		return errors.New("meta.base_url must be set when meta.enabled is true (or set IA_ENGINE_BASE_URL)")
	}
	campaigns := make([]string, 0, len(c.Meta.CampaignClusters))
	for campaign := range c.Meta.CampaignClusters {
		campaigns = append(campaigns, campaign)
	}
	sort.Strings(campaigns)
	for _, campaign := range campaigns {
		if len(c.Meta.CampaignClusters[campaign]) == 0 {
			return fmt.Errorf("meta.campaign_clusters.%s must list at least one cluster", campaign)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
