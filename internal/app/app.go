// Package app initializes and holds the long-lived application services,
// acting as the dependency injection container for the worker.
package app

import (
	"context"
	"fmt"

	gstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/intelforge/collector-worker/internal/api"
	archivepkg "github.com/intelforge/collector-worker/internal/archive"
	archivegcs "github.com/intelforge/collector-worker/internal/archive/gcs"
	archivelocal "github.com/intelforge/collector-worker/internal/archive/local"
	"github.com/intelforge/collector-worker/internal/clock/system"
	"github.com/intelforge/collector-worker/internal/collector"
	"github.com/intelforge/collector-worker/internal/config"
	"github.com/intelforge/collector-worker/internal/core"
	"github.com/intelforge/collector-worker/internal/dispatcher"
	"github.com/intelforge/collector-worker/internal/fetcher/headless"
	"github.com/intelforge/collector-worker/internal/fetcher/rss"
	"github.com/intelforge/collector-worker/internal/fetcher/rt"
	"github.com/intelforge/collector-worker/internal/fetcher/web"
	"github.com/intelforge/collector-worker/internal/id/uuid"
	"github.com/intelforge/collector-worker/internal/logging"
	"github.com/intelforge/collector-worker/internal/metrics"
	"github.com/intelforge/collector-worker/internal/publisher"
	publisherpubsub "github.com/intelforge/collector-worker/internal/publisher/pubsub"
	"github.com/intelforge/collector-worker/internal/queue/memory"
	"github.com/intelforge/collector-worker/internal/ratelimit"
	"github.com/intelforge/collector-worker/internal/results"
	"github.com/intelforge/collector-worker/internal/tasks"
	"github.com/intelforge/collector-worker/internal/worker"
)

// App holds the assembled services for one worker process.
type App struct {
	Config     config.Config
	Logger     *zap.Logger
	Queue      *memory.Queue
	Results    collector.ResultStore
	Enqueuer   *tasks.Enqueuer
	Worker     *worker.Worker
	APIServer  *api.Server
	Dispatcher *dispatcher.Dispatcher
	Collector  *tasks.CollectionTask
	IDs        collector.IDGenerator

	publisher collector.Publisher
	renderer  *headless.Renderer
}

// New assembles the worker from configuration. It fails fast when any
// configured backend cannot be initialized.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	logger.Info("Initializing worker services")

	metrics.Init()

	clock := system.New()
	idGen := uuid.NewGenerator()

	coreClient := core.NewClient(core.Config{
		BaseURL: cfg.Core.BaseURL,
		APIKey:  cfg.Core.APIKey,
		Timeout: cfg.CoreTimeout(),
	}, logger)

	store, err := buildResults(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	archive, err := buildArchive(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	pub, err := buildPublisher(ctx, cfg, clock, logger)
	if err != nil {
		return nil, err
	}

	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: cfg.Fetch.PerHostRPS,
		Burst:             cfg.Fetch.PerHostBurst,
	})

	var renderer *headless.Renderer
	var webRenderer web.Renderer
	if cfg.Render.Enabled {
		renderer, err = headless.NewChromedp(headless.Config{
			MaxParallel:       cfg.Render.MaxParallel,
			UserAgent:         cfg.Fetch.UserAgent,
			NavigationTimeout: cfg.RenderNavTimeout(),
		})
		if err != nil {
			return nil, fmt.Errorf("initialize renderer: %w", err)
		}
		webRenderer = renderer
	} else {
		webRenderer = headless.NewNoop()
	}

	registry := collector.NewRegistry(map[string]collector.Fetcher{
		"rss_collector": rss.New(rss.Config{
			UserAgent: cfg.Fetch.UserAgent,
			Timeout:   cfg.FetchTimeout(),
		}, limiter, archive, clock, logger),
		"simple_web_collector": web.New(web.Config{
			UserAgent:     cfg.Fetch.UserAgent,
			Timeout:       cfg.FetchTimeout(),
			RenderEnabled: cfg.Render.Enabled,
			MinHTMLBytes:  cfg.Render.MinHTMLBytes,
		}, limiter, archive, webRenderer, clock, logger),
		"rt_collector": rt.New(rt.Config{
			UserAgent: cfg.Fetch.UserAgent,
			Timeout:   cfg.FetchTimeout(),
		}, limiter, archive, clock, logger),
	})

	disp := dispatcher.New(coreClient, registry, logger)

	q := memory.NewQueue(cfg.Worker.QueueDepth)
	enqueuer := tasks.NewEnqueuer(q, store, idGen, clock,
		cfg.Worker.CollectPriority, cfg.Worker.PreviewPriority)

	collectTask := tasks.NewCollectionTask(disp, coreClient, pub, cfg.CollectTimeLimit(), logger)
	handlers := []tasks.Handler{
		collectTask,
		tasks.NewPreviewTask(disp, cfg.PreviewTimeLimit(), logger),
	}
	retry := tasks.NewFixedRetryPolicy(cfg.Worker.MaxRetries, cfg.RetryDelay())
	pool := worker.New(worker.Config{Concurrency: cfg.Worker.Concurrency},
		q, handlers, store, retry, clock, logger)

	server := api.NewServer(api.Config{APIKey: cfg.Core.APIKey}, enqueuer, store, logger)

	logger.Info("Worker services initialized")

	return &App{
		Config:     cfg,
		Logger:     logger,
		Queue:      q,
		Results:    store,
		Enqueuer:   enqueuer,
		Worker:     pool,
		APIServer:  server,
		Dispatcher: disp,
		Collector:  collectTask,
		IDs:        idGen,
		publisher:  pub,
		renderer:   renderer,
	}, nil
}

func buildResults(ctx context.Context, cfg config.Config, logger *zap.Logger) (collector.ResultStore, error) {
	switch cfg.Results.Provider {
	case "postgres":
		logger.Info("Using PostgreSQL result store")
		pool, err := results.Connect(ctx, cfg.Results.DSN)
		if err != nil {
			return nil, fmt.Errorf("initialize result store: %w", err)
		}
		return results.NewPostgresStore(pool), nil
	case "memory":
		logger.Info("Using in-memory result store")
		return results.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown results.provider: %s", cfg.Results.Provider)
	}
}

func buildArchive(ctx context.Context, cfg config.Config, logger *zap.Logger) (collector.Archive, error) {
	switch cfg.Archive.Provider {
	case "gcs":
		logger.Info("Using GCS payload archive", zap.String("bucket", cfg.Archive.GCSBucket))
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		return archivegcs.New(client, archivegcs.Config{
			Bucket: cfg.Archive.GCSBucket,
			Prefix: cfg.Archive.Prefix,
		})
	case "local":
		logger.Info("Using filesystem payload archive", zap.String("dir", cfg.Archive.LocalDir))
		return archivelocal.New(archivelocal.Config{
			BaseDir: cfg.Archive.LocalDir,
			Prefix:  cfg.Archive.Prefix,
		})
	case "noop":
		logger.Info("Payload archiving disabled")
		return archivepkg.NewNoop(), nil
	default:
		return nil, fmt.Errorf("unknown archive.provider: %s", cfg.Archive.Provider)
	}
}

func buildPublisher(ctx context.Context, cfg config.Config, clock collector.Clock, logger *zap.Logger) (collector.Publisher, error) {
	switch cfg.Publisher.Provider {
	case "pubsub":
		logger.Info("Publishing completion events to Pub/Sub",
			zap.String("topic", cfg.Publisher.TopicName))
		pub, err := publisherpubsub.New(ctx, publisherpubsub.Config{
			ProjectID: cfg.Publisher.ProjectID,
			Topic:     cfg.Publisher.TopicName,
		}, clock)
		if err != nil {
			return nil, fmt.Errorf("initialize publisher: %w", err)
		}
		return pub, nil
	case "noop":
		logger.Info("Completion event publishing disabled")
		return publisher.NewNoop(), nil
	default:
		return nil, fmt.Errorf("unknown publisher.provider: %s", cfg.Publisher.Provider)
	}
}

// Close shuts down the held services and flushes the logger.
func (a *App) Close() {
	a.Logger.Info("Shutting down worker services")
	a.Queue.Close()
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.Logger.Warn("error closing publisher", zap.Error(err))
		}
	}
	if a.renderer != nil {
		a.renderer.Close()
	}
	_ = a.Logger.Sync()
}
