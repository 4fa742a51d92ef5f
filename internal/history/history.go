package history

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"contentstudio/internal/batch"
	"contentstudio/internal/logging"
	"contentstudio/internal/objectkey"
	"contentstudio/internal/objectstore"
	"contentstudio/internal/services"
)

const component = "history"

// DefaultMaxConcurrency bounds the per-batch reads of one listing.
const DefaultMaxConcurrency = 16

// Row summarizes one batch.
type Row struct {
	BatchID   string    `json:"batchId"`
	Count     int       `json:"count"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// Skip explains why a batch produced no row.
type Skip struct {
	Reason string
}

// Result is the outcome for one batch. Exactly one of Row and Skip is set.
type Result struct {
	Row  *Row
	Skip *Skip
}

// Options configures an Aggregator.
type Options struct {
	MaxConcurrency int
	Logger         *slog.Logger
	Metrics        *Metrics
}

// Aggregator lists batches from an object store.
type Aggregator struct {
	store   objectstore.Store
	keys    objectkey.Resolver
	limit   int
	logger  *slog.Logger
	metrics *Metrics
}

// New constructs an Aggregator.
func New(store objectstore.Store, keys objectkey.Resolver, opts Options) *Aggregator {
	limit := opts.MaxConcurrency
	if limit <= 0 {
		limit = DefaultMaxConcurrency
	}
	return &Aggregator{
		store:   store,
		keys:    keys,
		limit:   limit,
		logger:  logging.NewComponentLogger(opts.Logger, component),
		metrics: opts.Metrics,
	}
}

// List returns one row per batch, sorted by creation time descending. Rows
// without a timestamp sort last; ties are broken by batch id descending.
// Batches with no content and no timestamp are left out.
func (a *Aggregator) List(ctx context.Context) ([]Row, error) {
	start := time.Now()
	prefixes, err := a.store.ListPrefixes(ctx, a.keys.BatchRoot())
	if err != nil {
		return nil, services.Wrap(services.ErrUpstreamUnavailable, component, "list batches", a.keys.BatchRoot(), err)
	}

	ids := make([]string, 0, len(prefixes))
	seen := make(map[string]struct{}, len(prefixes))
	for _, prefix := range prefixes {
		id := objectkey.BatchIDFromPrefix(prefix)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	results := make([]Result, len(ids))
	var g errgroup.Group
	g.SetLimit(a.limit)
	for i, id := range ids {
		g.Go(func() error {
			results[i] = a.summarize(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	rows := make([]Row, 0, len(results))
	skipped := 0
	for _, res := range results {
		if res.Skip != nil {
			skipped++
			a.metrics.skip(res.Skip.Reason)
			continue
		}
		rows = append(rows, *res.Row)
	}
	Sort(rows)

	a.metrics.observe(time.Since(start), len(rows))
	a.logger.Debug("history listed",
		logging.Int("batches", len(ids)),
		logging.Int("rows", len(rows)),
		logging.Int("skipped", skipped),
		logging.Duration("elapsed", time.Since(start)),
	)
	return rows, nil
}

// summarize never returns an error: read failures degrade to a zero count
// and the storage timestamp.
func (a *Aggregator) summarize(ctx context.Context, id string) Result {
	logger := logging.WithContext(services.WithBatchID(ctx, id), a.logger)
	key := a.keys.BatchDocument(id)
	row := Row{BatchID: id}

	exists, err := a.store.Exists(ctx, key)
	if err != nil {
		logger.Debug("batch document check failed", logging.String(logging.FieldObjectKey, key), logging.Error(err))
	}
	if exists {
		if summary, err := a.readSummary(ctx, key); err != nil {
			logger.Warn("batch document unreadable; counting as empty",
				logging.String(logging.FieldObjectKey, key),
				logging.Error(err),
				logging.String(logging.FieldEventType, "history_item_degraded"),
				logging.String(logging.FieldErrorHint, "inspect or regenerate "+key),
			)
		} else {
			row.Count = summary.Count
			row.CreatedAt = summary.CreatedAt
		}
	}

	if row.CreatedAt.IsZero() {
		info, err := a.store.Stat(ctx, key)
		if err == nil {
			row.CreatedAt = info.Updated.UTC()
		} else if !errors.Is(err, services.ErrNotFound) {
			logger.Debug("batch document stat failed", logging.String(logging.FieldObjectKey, key), logging.Error(err))
		}
	}

	if row.Count == 0 && row.CreatedAt.IsZero() {
		return Result{Skip: &Skip{Reason: "empty"}}
	}
	return Result{Row: &row}
}

func (a *Aggregator) readSummary(ctx context.Context, key string) (batch.Summary, error) {
	data, err := a.store.Read(ctx, key)
	if err != nil {
		return batch.Summary{}, err
	}
	summary, err := batch.Summarize(data)
	if err != nil {
		return batch.Summary{}, services.Wrap(services.ErrMalformedDocument, component, "summarize", key, err)
	}
	return summary, nil
}

// Sort orders rows newest first. Rows without a timestamp sort last and ties
// are broken by batch id descending so the order is stable across requests.
func Sort(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		ti, tj := sortKey(rows[i]), sortKey(rows[j])
		if ti != tj {
			return ti > tj
		}
		return rows[i].BatchID > rows[j].BatchID
	})
}

func sortKey(r Row) int64 {
	if r.CreatedAt.IsZero() {
		return 0
	}
	return r.CreatedAt.UnixMilli()
}

// Contains reports whether rows include batchID.
func Contains(rows []Row, batchID string) bool {
	for _, r := range rows {
		if r.BatchID == batchID {
			return true
		}
	}
	return false
}
