package reconcile

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"contentstudio/internal/history"
	"contentstudio/internal/logging"
)

// DefaultDelays is the re-list schedule, measured from the start of Await.
var DefaultDelays = []time.Duration{
	700 * time.Millisecond,
	1500 * time.Millisecond,
	3500 * time.Millisecond,
}

// Lister returns the current history listing.
type Lister interface {
	History(ctx context.Context) ([]history.Row, error)
}

// ListerFunc adapts a function to Lister.
type ListerFunc func(ctx context.Context) ([]history.Row, error)

// History calls f.
func (f ListerFunc) History(ctx context.Context) ([]history.Row, error) {
	return f(ctx)
}

// Options configures a Poller.
type Options struct {
	// Delays overrides DefaultDelays. Entries are offsets from the start and
	// should be increasing.
	Delays []time.Duration
	// OnRows receives every successful listing, including the final one.
	OnRows func(attempt int, rows []history.Row)
	Logger *slog.Logger
}

// Result summarizes an Await call.
type Result struct {
	Found    bool
	Attempts int
	Rows     []history.Row
}

// Poller re-lists history until a batch appears or the schedule runs out.
type Poller struct {
	lister Lister
	delays []time.Duration
	onRows func(int, []history.Row)
	logger *slog.Logger
	now    func() time.Time
}

// New constructs a poller over lister.
func New(lister Lister, opts Options) *Poller {
	delays := opts.Delays
	if len(delays) == 0 {
		delays = DefaultDelays
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Poller{
		lister: lister,
		delays: append([]time.Duration(nil), delays...),
		onRows: opts.OnRows,
		logger: logging.NewComponentLogger(logger, "reconcile"),
		now:    time.Now,
	}
}

// Await lists history at each scheduled offset and stops at the first
// listing that contains batchID. A failed listing is logged and skipped.
// The returned Rows are those of the last successful listing.
func (p *Poller) Await(ctx context.Context, batchID string) (Result, error) {
	batchID = strings.TrimSpace(batchID)
	start := p.now()
	var result Result
	for i, offset := range p.delays {
		if err := sleepUntil(ctx, start.Add(offset), p.now); err != nil {
			return result, err
		}
		result.Attempts = i + 1
		rows, err := p.lister.History(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			p.logger.Debug("history listing failed",
				logging.Int("attempt", result.Attempts),
				logging.Error(err),
			)
			continue
		}
		result.Rows = rows
		if p.onRows != nil {
			p.onRows(result.Attempts, rows)
		}
		if history.Contains(rows, batchID) {
			result.Found = true
			return result, nil
		}
	}
	return result, nil
}

func sleepUntil(ctx context.Context, deadline time.Time, now func() time.Time) error {
	wait := deadline.Sub(now())
	if wait <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
