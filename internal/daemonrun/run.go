// Package daemonrun assembles the studio runtime from configuration and runs
// the daemon until its context ends.
package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"contentstudio/internal/batch"
	"contentstudio/internal/catalog"
	"contentstudio/internal/config"
	"contentstudio/internal/daemon"
	"contentstudio/internal/history"
	"contentstudio/internal/logging"
	"contentstudio/internal/objectkey"
	"contentstudio/internal/objectstore"
	"contentstudio/internal/objectstore/gcs"
	"contentstudio/internal/objectstore/sqlitestore"
	"contentstudio/internal/services/iaengine"
	"contentstudio/internal/urls"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides logging.level when set.
	LogLevel string
}

// Runtime is the wired set of services shared by the daemon and the CLI.
type Runtime struct {
	Store    objectstore.Store
	Keys     objectkey.Resolver
	URLs     *urls.Materializer
	Batches  *batch.Service
	History  *history.Aggregator
	Catalog  *catalog.Cache
	Objects  daemon.ObjectServer
	Registry *prometheus.Registry

	closers []func() error
}

// Build opens the configured object store and wires every service on top
// of it. Callers must Close the runtime.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	rt := &Runtime{
		Keys:     objectkey.NewResolver(cfg.Storage.Prefix),
		Registry: prometheus.NewRegistry(),
	}
	rt.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	base, directBase, err := rt.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	observer, err := objectstore.NewPrometheusObserver("", rt.Registry)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("register object store metrics: %w", err)
	}
	maxElapsed := time.Duration(cfg.Storage.RetryMaxElapsedSeconds) * time.Second
	rt.Store = objectstore.NewInstrumented(objectstore.NewRetrying(base, maxElapsed, nil), observer)

	rt.URLs = urls.New(rt.Keys, rt.Store, urls.Options{
		Bucket:     cfg.Storage.Bucket,
		ProjectID:  cfg.Storage.ProjectID,
		DirectBase: directBase,
		Mode: urls.Mode{
			PublicRead: cfg.Storage.PublicRead,
			Style:      urls.Style(cfg.Storage.URLStyle),
		},
		SignedMinutes:   cfg.Storage.SignedURLMinutes,
		HeroMinutes:     cfg.Storage.HeroURLMinutes,
		RedirectMinutes: cfg.Storage.RedirectURLMinutes,
		CacheSize:       cfg.Storage.SignedURLCacheSize,
	})

	rt.Batches = batch.NewService(rt.Store, rt.Keys, rt.URLs, batch.Options{
		Logger:        logger,
		PublicUploads: cfg.Storage.PublicRead,
	})

	historyMetrics, err := history.NewMetrics(rt.Registry)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("register history metrics: %w", err)
	}
	rt.History = history.New(rt.Store, rt.Keys, history.Options{
		MaxConcurrency: cfg.History.MaxConcurrency,
		Logger:         logger,
		Metrics:        historyMetrics,
	})

	catalogMetrics, err := catalog.NewMetrics(rt.Registry)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("register catalog metrics: %w", err)
	}
	var source catalog.Source
	if cfg.Meta.Enabled && strings.TrimSpace(cfg.Meta.BaseURL) != "" {
		source = iaengine.New(cfg.Meta.BaseURL, nil)
	}
	rt.Catalog = catalog.New(source, catalog.Options{
		TTL:     cfg.MetaCacheTTL(),
		Timeout: cfg.MetaTimeout(),
		Static: catalog.Static{
			Campaigns:        cfg.Meta.Campaigns,
			Clusters:         cfg.Meta.Clusters,
			CampaignClusters: cfg.Meta.CampaignClusters,
		},
		Logger:  logger,
		Metrics: catalogMetrics,
	})
	return rt, nil
}

// openStore returns the backend store and, for the local backend, the public
// URL root of the daemon's object route.
func (rt *Runtime) openStore(ctx context.Context, cfg *config.Config) (objectstore.Store, string, error) {
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		local, err := sqlitestore.Open(sqlitestore.Options{
			Path:       cfg.Storage.SQLitePath,
			BaseURL:    cfg.Storage.LocalBaseURL,
			SigningKey: cfg.Storage.LocalSigningKey,
		})
		if err != nil {
			return nil, "", err
		}
		rt.closers = append(rt.closers, local.Close)
		rt.Objects = local
		return local, cfg.Storage.LocalBaseURL + strings.TrimRight(sqlitestore.ObjectsPath, "/"), nil
	case config.BackendGCS, "":
		remote, err := gcs.New(ctx, gcs.Options{
			Bucket:          cfg.Storage.Bucket,
			CredentialsFile: cfg.Storage.CredentialsFile,
			RequestTimeout:  cfg.RequestTimeout(),
		})
		if err != nil {
			return nil, "", err
		}
		rt.closers = append(rt.closers, remote.Close)
		return remote, "", nil
	default:
		return nil, "", fmt.Errorf("storage.backend: unsupported value %q", cfg.Storage.Backend)
	}
}

// Dependencies returns the daemon's view of the runtime.
func (rt *Runtime) Dependencies() daemon.Dependencies {
	return daemon.Dependencies{
		Store:    rt.Store,
		Batches:  rt.Batches,
		History:  rt.History,
		Catalog:  rt.Catalog,
		Objects:  rt.Objects,
		Gatherer: rt.Registry,
	}
}

// Close releases the backend store.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// Run starts the studio daemon and blocks until SIGINT, SIGTERM, or the
// parent context ends.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		cfg.Logging.Level = level
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	pidPath := filepath.Join(cfg.Paths.LogDir, "studiod.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	rt, err := Build(signalCtx, cfg, logger)
	if err != nil {
		logging.ErrorWithContext(logger, "build runtime failed", "runtime_build_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the storage section of the configuration"),
		)
		return err
	}
	defer rt.Close()

	d, err := daemon.New(cfg, rt.Dependencies(), logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	logger.Info("studio daemon listening",
		logging.String("addr", d.Addr()),
		logging.Bool("remote_meta", cfg.Meta.Enabled),
		logging.Bool("public_read", cfg.Storage.PublicRead),
	)

	<-signalCtx.Done()
	logger.Info("studio daemon shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
