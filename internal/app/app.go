// Package app initializes and holds long-lived application services,
// acting as a dependency injection container for the commands.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/wxvisuals/warnmap/internal/alert"
	"github.com/wxvisuals/warnmap/internal/api"
	"github.com/wxvisuals/warnmap/internal/config"
	"github.com/wxvisuals/warnmap/internal/dedup"
	"github.com/wxvisuals/warnmap/internal/delivery"
	"github.com/wxvisuals/warnmap/internal/feed"
	"github.com/wxvisuals/warnmap/internal/geo"
	"github.com/wxvisuals/warnmap/internal/logging"
	"github.com/wxvisuals/warnmap/internal/mapcompose"
	"github.com/wxvisuals/warnmap/internal/nws"
	"github.com/wxvisuals/warnmap/internal/render"
	"github.com/wxvisuals/warnmap/internal/runner"
)

const upstreamTimeout = 30 * time.Second

// App holds the wired service graph for one process: the logger, the
// poll pipeline stages, the runner that schedules them and the optional
// metrics listener.
type App struct {
	Config  config.Config
	Logger  *zap.Logger
	Runner  *runner.Runner
	Metrics *api.Server

	store    alert.Store
	pipeline *render.Pipeline
}

// New builds the full service graph from configuration. Command-line
// flags override file and environment values. Directory creation
// failures and invalid configuration are startup-fatal.
func New(cfgPath string, flags *pflag.FlagSet) (*App, error) {
	cfg, err := config.Load(cfgPath, flags)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("preparing directories: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	clock := clockwork.NewRealClock()

	var store alert.Store
	switch cfg.Store.Driver {
	case "sqlite":
		sqliteStore, err := dedup.NewSQLiteStore(cfg.StorePath(), clock, logger)
		if err != nil {
			return nil, fmt.Errorf("opening dedup store: %w", err)
		}
		store = sqliteStore
	default:
		store = dedup.NewFileStore(cfg.StorePath(), clock, logger)
	}

	client := nws.NewClient(cfg.Feed.UserAgent, upstreamTimeout, logger)
	normalizer := feed.NewNormalizer(client, logger)
	poller := feed.NewPoller(client, store, normalizer, cfg.Feed.URL, clock, logger)

	counties := geo.NewProvider(cfg.CountyCachePath(), cfg.Geo.ArchiveURL, cfg.Feed.UserAgent, logger)

	composer, err := mapcompose.NewComposer(mapcompose.Config{
		OutputDir:      cfg.Output.Dir,
		TileURL:        cfg.Map.TileURL,
		Timezone:       cfg.Map.Timezone,
		PaddingDegrees: cfg.Map.PaddingDegrees,
		Width:          cfg.Render.Width,
		Height:         cfg.Render.Height,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing composer: %w", err)
	}

	pipeline := render.NewPipeline(render.Config{
		Width:   cfg.Render.Width,
		Height:  cfg.Render.Height,
		Settle:  cfg.Render.Settle,
		Timeout: cfg.Render.Timeout,
	}, clock, logger)

	var sink alert.Sink
	if cfg.Webhook.URL != "" {
		sink = delivery.NewWebhook(cfg.Webhook.URL, upstreamTimeout, logger)
	} else {
		sink = delivery.NewLogSink(logger)
	}

	cleanupHour, cleanupMinute := cfg.CleanupAt()
	run := runner.New(runner.Config{
		PollInterval:  cfg.Poll.Interval,
		CleanupHour:   cleanupHour,
		CleanupMinute: cleanupMinute,
		CleanupMaxAge: cfg.Cleanup.MaxAge,
		OutputDir:     cfg.Output.Dir,
		GeoBuffer:     cfg.Geo.BufferDegrees,
	}, poller, store, counties, composer, pipeline, sink, clock, logger)

	app := &App{
		Config:   cfg,
		Logger:   logger,
		Runner:   run,
		store:    store,
		pipeline: pipeline,
	}
	if cfg.Metrics.Addr != "" {
		app.Metrics = api.NewServer(cfg.Metrics.Addr, logger)
	}
	return app, nil
}

// Close releases process-wide resources in reverse dependency order.
func (a *App) Close() {
	a.pipeline.Close()
	if a.Metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.Metrics.Stop(ctx); err != nil {
			a.Logger.Warn("stopping metrics listener", zap.Error(err))
		}
		cancel()
	}
	if closer, ok := a.store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			a.Logger.Warn("closing dedup store", zap.Error(err))
		}
	}
	_ = a.Logger.Sync()
}
