package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/cozy-creator/brandgen/internal/commands"
	"github.com/cozy-creator/brandgen/internal/config"
	"github.com/cozy-creator/brandgen/internal/db"
	"github.com/cozy-creator/brandgen/internal/db/drivers"
	"github.com/cozy-creator/brandgen/internal/db/repository"
	"github.com/cozy-creator/brandgen/internal/generation"
	"github.com/cozy-creator/brandgen/internal/mq"
	"github.com/cozy-creator/brandgen/internal/observability"
	"github.com/cozy-creator/brandgen/internal/ratelimit"
	"github.com/cozy-creator/brandgen/internal/services/filestorage"
	"github.com/cozy-creator/brandgen/internal/services/fileuploader"
	"github.com/cozy-creator/brandgen/internal/store"
	"github.com/cozy-creator/brandgen/internal/training"
	"github.com/cozy-creator/brandgen/pkg/ethical_filter"
	"github.com/cozy-creator/brandgen/pkg/logger"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

var ErrNoQueue = errors.New("message queue is not configured")

// App owns every long-lived collaborator of a brandgen process. Stores are
// always present; the rest is opted into with OptionFuncs.
type App struct {
	config     *config.Config
	ctx        context.Context
	cancelFunc context.CancelFunc

	driver       drivers.Driver
	db           *bun.DB
	mq           mq.MQ
	filestorage  filestorage.FileStorage
	fileuploader *fileuploader.Uploader
	trainer      training.Trainer
	limiter      ratelimit.Limiter
	shutdown     observability.ShutdownFunc

	jobs     *store.JobStore
	loras    *store.LoraStore
	registry *commands.Registry

	SafetyFilter *ethical_filter.SafetyFilter
	Logger       *zap.Logger

	HistoryRepository  repository.IHistoryRepository
	FavoriteRepository repository.IFavoriteRepository
}

// Option funcs used to initialize the App struct
type OptionFunc func(app *App) error

func WithLogger(logger *zap.Logger) OptionFunc {
	return func(app *App) error {
		app.Logger = logger
		return nil
	}
}

// WithDB uses an already opened driver, e.g. an in-memory sqlite in tests.
func WithDB(driver drivers.Driver) OptionFunc {
	return func(app *App) error {
		app.useDB(driver)
		return nil
	}
}

func WithDBInitialization() OptionFunc {
	return func(app *App) error {
		driver, err := db.NewConnection(app.ctx, app.config)
		if err != nil {
			return err
		}
		app.useDB(driver)

		if err := repository.CreateSchema(app.ctx, app.db); err != nil {
			return fmt.Errorf("failed to create history schema: %w", err)
		}
		return nil
	}
}

func (app *App) useDB(driver drivers.Driver) {
	app.driver = driver
	app.db = driver.GetDB()

	schema := repository.NewSchema(app.db)
	app.HistoryRepository = repository.NewHistoryRepository(app.db, schema)
	app.FavoriteRepository = repository.NewFavoriteRepository(app.db, schema)
}

func WithMQ() OptionFunc {
	return func(app *App) error {
		queue, err := mq.NewMQ(app.config, app.Logger)
		if err != nil {
			return err
		}
		app.mq = queue
		return nil
	}
}

func WithFileUploader() OptionFunc {
	return func(app *App) error {
		storage, err := filestorage.NewFileStorage(app.config)
		if err != nil {
			return err
		}
		app.filestorage = storage
		app.fileuploader = fileuploader.NewFileUploader(storage, 10)
		return nil
	}
}

func WithSafetyFilter() OptionFunc {
	return func(app *App) error {
		if app.config.OpenAI == nil {
			return fmt.Errorf("openAI API-key is not set. Cannot enable safety filter")
		}
		if !app.config.OpenAI.SafetyFilter {
			return nil
		}

		filter, err := ethical_filter.NewSafetyFilter(app.config.OpenAI.APIKey)
		if err != nil {
			return err
		}

		app.SafetyFilter = filter
		return nil
	}
}

// WithTrainer selects the trainer named by training.mode. Without it
// training completes synchronously inside lora.train.
func WithTrainer() OptionFunc {
	return func(app *App) error {
		app.trainer = training.NewTrainer(app.config, app.loras, app.Logger)
		return nil
	}
}

func WithRateLimiter() OptionFunc {
	return func(app *App) error {
		if !app.config.RateLimit.Enabled {
			return nil
		}

		limiter, err := ratelimit.NewLimiter(app.ctx, app.config, app.Logger)
		if err != nil {
			return err
		}
		app.limiter = limiter
		return nil
	}
}

func WithTracing() OptionFunc {
	return func(app *App) error {
		shutdown, err := observability.InitTracing(app.ctx, app.config, app.Logger)
		if err != nil {
			return err
		}
		app.shutdown = shutdown
		return nil
	}
}

func NewApp(config *config.Config, options ...OptionFunc) (*App, error) {
	logger, err := logger.InitLogger(config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		ctx:        ctx,
		config:     config,
		Logger:     logger,
		cancelFunc: cancel,
		jobs:       store.NewJobStore(),
		loras:      store.NewLoraStore(),
	}

	// Apply all options
	for _, opt := range options {
		if err := opt(app); err != nil {
			// Continue even if some options fail
			app.Logger.Error("failed to apply option", zap.Error(err))
		}
	}

	app.registry = app.newRegistry()
	return app, nil
}

func (app *App) newRegistry() *commands.Registry {
	deps := commands.Deps{
		Jobs:          app.jobs,
		Loras:         app.loras,
		Trainer:       app.trainer,
		Logger:        app.Logger,
		StorageDomain: app.config.Training.StorageDomain,
		TempDir:       app.config.TempDir,
	}
	if app.HistoryRepository != nil {
		deps.History = app.HistoryRepository
		deps.Favorites = app.FavoriteRepository
	}
	if app.mq != nil {
		deps.Publisher = generation.NewPublisher(app.mq, app.config.Generator.Topic)
	}

	registry, _ := commands.New(deps)
	return registry
}

// NewProcessor builds the generation processor over the app's job store
// and queue. It needs WithMQ.
func (app *App) NewProcessor() (*generation.Processor, error) {
	if app.mq == nil {
		return nil, ErrNoQueue
	}

	generator, err := generation.NewGenerator(app.config)
	if err != nil {
		return nil, err
	}

	opts := generation.ProcessorOptions{
		Topic:     app.config.Generator.Topic,
		Workers:   app.config.Generator.Workers,
		Logger:    app.Logger,
		Generator: generator,
	}
	if app.fileuploader != nil {
		opts.Uploader = app.fileuploader
	}
	if app.HistoryRepository != nil {
		opts.History = app.HistoryRepository
	}
	if app.SafetyFilter != nil {
		opts.Screener = app.SafetyFilter
	}

	return generation.NewProcessor(app.jobs, app.mq, opts), nil
}

func (app *App) Close() {
	app.cancelFunc()

	if app.trainer != nil {
		app.trainer.Stop()
	}
	if app.fileuploader != nil {
		app.fileuploader.Stop()
	}
	if app.mq != nil {
		app.mq.Close()
	}
	if app.shutdown != nil {
		if err := app.shutdown(context.Background()); err != nil {
			app.Logger.Warn("failed to flush traces", zap.Error(err))
		}
	}
	if app.driver != nil {
		app.driver.Close()
	}
	app.Logger.Sync()
}

func (app *App) Config() *config.Config {
	return app.config
}

func (app *App) Context() context.Context {
	return app.ctx
}

func (app *App) MQ() mq.MQ {
	return app.mq
}

func (app *App) DB() *bun.DB {
	return app.db
}

func (app *App) Commands() *commands.Registry {
	return app.registry
}

func (app *App) Jobs() *store.JobStore {
	return app.jobs
}

func (app *App) Loras() *store.LoraStore {
	return app.loras
}

// Limiter is nil when rate limiting is disabled.
func (app *App) Limiter() ratelimit.Limiter {
	return app.limiter
}

// FileStorage is nil unless WithFileUploader was applied.
func (app *App) FileStorage() filestorage.FileStorage {
	return app.filestorage
}

func (app *App) Uploader() *fileuploader.Uploader {
	return app.fileuploader
}
