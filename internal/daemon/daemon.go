package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus"

	"contentstudio/internal/batch"
	"contentstudio/internal/catalog"
	"contentstudio/internal/config"
	"contentstudio/internal/history"
	"contentstudio/internal/logging"
	"contentstudio/internal/objectstore"
)

// ObjectServer serves objects of a local bucket through the daemon. The
// sqlite backend implements it; cloud backends serve objects themselves.
type ObjectServer interface {
	Authorize(ctx context.Context, key, expires, sig string) error
	Read(ctx context.Context, key string) ([]byte, error)
	Stat(ctx context.Context, key string) (objectstore.ObjectInfo, error)
}

// Dependencies are the services the daemon exposes over HTTP.
type Dependencies struct {
	Store   objectstore.Store
	Batches *batch.Service
	History *history.Aggregator
	Catalog *catalog.Cache
	// Objects is optional.
	Objects ObjectServer
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
}

// Daemon owns the API server lifecycle and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	deps   Dependencies
	server *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running          bool
	LockFilePath     string
	Backend          string
	Bucket           string
	Prefix           string
	CatalogFetchedAt time.Time
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, deps Dependencies, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || deps.Store == nil || deps.Batches == nil || deps.History == nil || deps.Catalog == nil {
		return nil, errors.New("daemon requires config, object store, batch service, history aggregator, and catalog")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	lockPath := filepath.Join(cfg.Paths.LogDir, "studiod.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		deps:     deps,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.server = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock and starts serving HTTP.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another studio daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.server.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api server: %w", err)
	}
	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("studio daemon started",
		logging.String("lock", d.lockPath),
		logging.String("backend", d.cfg.Storage.Backend),
		logging.String("bucket", d.cfg.Storage.Bucket),
		logging.String("prefix", d.cfg.Storage.Prefix),
	)
	return nil
}

// Stop stops serving and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("studio daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Handler returns the HTTP handler served by the daemon.
func (d *Daemon) Handler() http.Handler {
	return d.server.handler
}

// Addr returns the bound listener address once started.
func (d *Daemon) Addr() string {
	return d.server.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		LockFilePath: d.lockPath,
		Backend:      d.cfg.Storage.Backend,
		Bucket:       d.cfg.Storage.Bucket,
		Prefix:       d.cfg.Storage.Prefix,
	}
	if fetched, ok := d.deps.Catalog.FetchedAt(); ok {
		status.CatalogFetchedAt = fetched
	}
	return status
}
