// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/boardkit/boardpulse/internal/aggregator"
	"github.com/boardkit/boardpulse/internal/board"
	"github.com/boardkit/boardpulse/internal/board/memory"
	"github.com/boardkit/boardpulse/internal/board/mongodb"
	"github.com/boardkit/boardpulse/internal/board/postgres"
	"github.com/boardkit/boardpulse/internal/clock/system"
	"github.com/boardkit/boardpulse/internal/config"
	"github.com/boardkit/boardpulse/internal/docstore"
	"github.com/boardkit/boardpulse/internal/docstore/gcsdoc"
	"github.com/boardkit/boardpulse/internal/docstore/httpdoc"
	"github.com/boardkit/boardpulse/internal/indicator"
	"github.com/boardkit/boardpulse/internal/logging"
	"github.com/boardkit/boardpulse/internal/progress"
	"github.com/boardkit/boardpulse/internal/progress/sinks"
	"github.com/boardkit/boardpulse/internal/publisher/pubsub"
	"github.com/boardkit/boardpulse/internal/view"
)

// App holds all the shared, long-lived services for the application. It is
// initialized once at startup and passed to the components that need it.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	repo      board.TaskRepository
	docs      docstore.Store
	hub       *progress.Hub
	agg       *aggregator.Aggregator
	registry  *indicator.Registry
	tracker   *view.Tracker
	publisher *pubsub.Publisher
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the shared zap logger instance.
func (a *App) Logger() *zap.Logger { return a.logger }

// Repository exposes the configured task repository.
func (a *App) Repository() board.TaskRepository { return a.repo }

// Aggregator returns the progress aggregator that drives toggle flows.
func (a *App) Aggregator() *aggregator.Aggregator { return a.agg }

// Indicators returns the registry of progress indicator handles.
func (a *App) Indicators() *indicator.Registry { return a.registry }

// Views returns the detail-view tracker.
func (a *App) Views() *view.Tracker { return a.tracker }

// NewApp creates and initializes a new App based on the configuration. It is
// the central point for service initialization and fails fast when any
// critical service cannot be reached.
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	logging.L = logger
	logger.Info("initializing application services")

	repo, err := newRepository(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	docs, err := newDocStore(ctx, cfg, logger)
	if err != nil {
		_ = repo.Close(ctx)
		return nil, err
	}

	registry := indicator.NewRegistry()
	tracker := view.NewTracker()

	promSink, err := sinks.NewPrometheusSink(prometheus.DefaultRegisterer)
	if err != nil {
		_ = docs.Close(ctx)
		_ = repo.Close(ctx)
		return nil, fmt.Errorf("register progress collectors: %w", err)
	}

	hubSinks := []progress.Sink{
		sinks.NewLogSink(logger),
		sinks.NewIndicatorSink(registry, logger),
		sinks.NewRemoteSink(docs, logger),
		promSink,
	}

	var pub *pubsub.Publisher
	if cfg.Publisher.Enabled {
		logger.Info("connecting to pub/sub",
			zap.String("project", cfg.Publisher.ProjectID),
			zap.String("topic", cfg.Publisher.TopicName),
		)
		pub, err = pubsub.New(ctx, cfg.Publisher.ProjectID, cfg.Publisher.TopicName)
		if err != nil {
			_ = docs.Close(ctx)
			_ = repo.Close(ctx)
			return nil, fmt.Errorf("initialize publisher: %w", err)
		}
		hubSinks = append(hubSinks, sinks.NewPublisherSink(pub, cfg.Publisher.TopicName))
	}

	hub := progress.NewHub(progress.Config{
		BufferSize:     cfg.Hub.BufferSize,
		MaxBatchEvents: cfg.Hub.MaxBatchEvents,
		MaxBatchWait:   cfg.HubBatchWait(),
		SinkTimeout:    cfg.HubSinkTimeout(),
		Logger:         logger,
	}, hubSinks...)

	agg := aggregator.New(repo, hub, tracker, system.New(), logger)

	logger.Info("application services initialized")
	return &App{
		cfg:       cfg,
		logger:    logger,
		repo:      repo,
		docs:      docs,
		hub:       hub,
		agg:       agg,
		registry:  registry,
		tracker:   tracker,
		publisher: pub,
	}, nil
}

// newRepository and newDocStore are vars so tests can stub the backing
// stores without reaching for a live database.
var newRepository = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (board.TaskRepository, error) {
	switch cfg.Board.Repository {
	case "memory":
		logger.Info("using in-memory task repository")
		return memory.NewRepository(), nil
	case "postgres":
		logger.Info("connecting to postgres", zap.String("table", cfg.Board.Postgres.Table))
		repo, err := postgres.NewRepository(ctx, postgres.Config{
			DSN:      cfg.Board.Postgres.DSN,
			Table:    cfg.Board.Postgres.Table,
			MaxConns: cfg.Board.Postgres.MaxConns,
			MinConns: cfg.Board.Postgres.MinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize postgres repository: %w", err)
		}
		return repo, nil
	case "mongo":
		logger.Info("connecting to mongo", zap.String("database", cfg.Board.Mongo.Database))
		repo, err := mongodb.NewRepository(ctx, mongodb.Config{
			URI:        cfg.Board.Mongo.URI,
			Database:   cfg.Board.Mongo.Database,
			Collection: cfg.Board.Mongo.Collection,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize mongo repository: %w", err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown board repository: %s", cfg.Board.Repository)
	}
}

var newDocStore = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (docstore.Store, error) {
	switch cfg.Remote.Provider {
	case "noop":
		logger.Info("using no-op document store, remote sync disabled")
		return docstore.NoOpStore{}, nil
	case "http":
		logger.Info("using HTTP document store", zap.String("base_url", cfg.Remote.BaseURL))
		client, err := httpdoc.NewClient(httpdoc.Config{
			BaseURL:            cfg.Remote.BaseURL,
			Timeout:            cfg.RemoteTimeout(),
			BreakerMaxFailures: cfg.Remote.Breaker.MaxFailures,
			BreakerTimeout:     cfg.BreakerTimeout(),
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("initialize document store: %w", err)
		}
		return client, nil
	case "gcs":
		logger.Info("using GCS document store", zap.String("bucket", cfg.Remote.GCS.Bucket))
		store, err := gcsdoc.New(ctx, gcsdoc.Config{
			Bucket: cfg.Remote.GCS.Bucket,
			Prefix: cfg.Remote.GCS.Prefix,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("initialize document store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown remote provider: %s", cfg.Remote.Provider)
	}
}

// Close gracefully shuts down all services. The hub closes first so pending
// batches flush through the sinks before the document store and repository
// go away.
func (a *App) Close(ctx context.Context) {
	a.logger.Info("shutting down application services")
	if err := a.hub.Close(ctx); err != nil {
		a.logger.Warn("error closing progress hub", zap.Error(err))
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("error closing publisher", zap.Error(err))
		}
	}
	if err := a.docs.Close(ctx); err != nil {
		a.logger.Warn("error closing document store", zap.Error(err))
	}
	if err := a.repo.Close(ctx); err != nil {
		a.logger.Warn("error closing task repository", zap.Error(err))
	}
	// Flushing the logger is best effort; stderr syncs fail on some platforms.
	_ = a.logger.Sync()
}
