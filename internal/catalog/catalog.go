// Package catalog serves the campaign and cluster taxonomy used to populate
// generation forms.
//
// Cache keeps one entry that is valid for a fixed TTL from the moment it was
// populated. A cold or forced lookup asks the remote Source first and falls
// back to the static catalog from configuration, so Get never fails. Fallback
// population restarts the TTL as well, which keeps an unavailable meta service
// from being hammered on every form load.
package catalog

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"contentstudio/internal/logging"
)

// Source tags describing where a catalog came from.
const (
	SourceRemote = "remote"
	SourceStatic = "static"
)

const (
	defaultTTL     = 5 * time.Minute
	defaultTimeout = 15 * time.Second
)

// Catalog is the campaign/cluster taxonomy. Values returned by Cache are
// shared and must be treated as read-only.
type Catalog struct {
	Campaigns        []string            `json:"campaigns"`
	Clusters         []string            `json:"clusters"`
	CampaignClusters map[string][]string `json:"campaignClusters"`
	Benefits         map[string][]string `json:"benefits,omitempty"`
	CTAs             map[string][]string `json:"ctas,omitempty"`
	Subjects         map[string][]string `json:"subjects,omitempty"`
	ClusterTone      map[string]string   `json:"clusterTone,omitempty"`
	Source           string              `json:"source,omitempty"`
}

// Source fetches the catalog from a remote service.
type Source interface {
	FetchCatalog(ctx context.Context) (Catalog, error)
}

// Static is the bundled fallback taxonomy.
type Static struct {
	Campaigns        []string
	Clusters         []string
	CampaignClusters map[string][]string
}

// Options configures a Cache.
type Options struct {
	TTL     time.Duration
	Timeout time.Duration
	Static  Static
	Logger  *slog.Logger
	Metrics *Metrics
	Now     func() time.Time
}

type entry struct {
	data      Catalog
	fetchedAt time.Time
}

// Cache is a TTL cache in front of a Source. A nil source disables remote
// fetching and every population uses the static catalog.
type Cache struct {
	source  Source
	ttl     time.Duration
	timeout time.Duration
	static  Static
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time

	current atomic.Pointer[entry]
	group   singleflight.Group
}

// New constructs an empty (cold) cache.
func New(source Source, opts Options) *Cache {
	c := &Cache{
		source:  source,
		ttl:     opts.TTL,
		timeout: opts.Timeout,
		static:  opts.Static,
		logger:  logging.NewComponentLogger(opts.Logger, "catalog"),
		metrics: opts.Metrics,
		now:     opts.Now,
	}
	if c.ttl <= 0 {
		c.ttl = defaultTTL
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Get returns the catalog. A warm entry is returned without I/O unless
// forceRefresh is set.
func (c *Cache) Get(ctx context.Context, forceRefresh bool) Catalog {
	if !forceRefresh {
		if data, ok := c.warm(); ok {
			c.metrics.record("hit")
			return data
		}
	}
	v, _, _ := c.group.Do("catalog", func() (any, error) {
		if !forceRefresh {
			if data, ok := c.warm(); ok {
				return data, nil
			}
		}
		return c.populate(ctx), nil
	})
	return v.(Catalog)
}

// FetchedAt reports when the current entry was populated.
func (c *Cache) FetchedAt() (time.Time, bool) {
	e := c.current.Load()
	if e == nil {
		return time.Time{}, false
	}
	return e.fetchedAt, true
}

func (c *Cache) warm() (Catalog, bool) {
	e := c.current.Load()
	if e == nil || c.now().Sub(e.fetchedAt) >= c.ttl {
		return Catalog{}, false
	}
	return e.data, true
}

func (c *Cache) populate(ctx context.Context) Catalog {
	if c.source != nil {
		data, err := c.fetch(ctx)
		if err == nil {
			data.Source = SourceRemote
			c.store(data)
			c.metrics.record(SourceRemote)
			c.logger.Info("catalog fetched",
				logging.Int("campaigns", len(data.Campaigns)),
				logging.Int("clusters", len(data.Clusters)),
			)
			return data
		}
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "meta service unavailable; using static catalog", "catalog_fallback",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check meta.base_url and that the meta service answers GET /ia/meta"),
			logging.String(logging.FieldImpact, "forms show the bundled campaign list until the next refresh"),
		)
	} else {
		c.logger.Debug("remote meta disabled; using static catalog")
	}
	data := BuildStatic(c.static)
	c.store(data)
	c.metrics.record(SourceStatic)
	return data
}

func (c *Cache) fetch(ctx context.Context) (Catalog, error) {
	// Followers of a collapsed lookup must not lose the fetch when the
	// leader's request goes away.
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()
	return c.source.FetchCatalog(fetchCtx)
}

func (c *Cache) store(data Catalog) {
	c.current.Store(&entry{data: data, fetchedAt: c.now()})
}

// BuildStatic derives the fallback catalog. A configured campaign→cluster
// mapping is used as given; otherwise every campaign maps to every cluster.
func BuildStatic(static Static) Catalog {
	campaigns := append([]string{}, static.Campaigns...)
	clusters := append([]string{}, static.Clusters...)
	mapping := make(map[string][]string)
	if len(static.CampaignClusters) > 0 {
		for campaign, list := range static.CampaignClusters {
			mapping[campaign] = append([]string{}, list...)
		}
	} else {
		for _, campaign := range campaigns {
			mapping[campaign] = append([]string{}, clusters...)
		}
	}
	return Catalog{
		Campaigns:        campaigns,
		Clusters:         clusters,
		CampaignClusters: mapping,
		Source:           SourceStatic,
	}
}
