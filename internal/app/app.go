// Package app assembles the files manager: configuration, logging, the
// document store, the session cache, the blob store, the background queues
// and the HTTP router. It also runs the server until a shutdown signal.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/filesmanager/internal/auth"
	"github.com/patric-chuzhbe/filesmanager/internal/blobstore"
	"github.com/patric-chuzhbe/filesmanager/internal/blobstore/localfs"
	"github.com/patric-chuzhbe/filesmanager/internal/blobstore/s3store"
	"github.com/patric-chuzhbe/filesmanager/internal/cache"
	"github.com/patric-chuzhbe/filesmanager/internal/cache/memorycache"
	"github.com/patric-chuzhbe/filesmanager/internal/cache/rediscache"
	"github.com/patric-chuzhbe/filesmanager/internal/config"
	"github.com/patric-chuzhbe/filesmanager/internal/db/jsondb"
	"github.com/patric-chuzhbe/filesmanager/internal/db/memorystorage"
	"github.com/patric-chuzhbe/filesmanager/internal/db/sqldb"
	"github.com/patric-chuzhbe/filesmanager/internal/db/storage"
	"github.com/patric-chuzhbe/filesmanager/internal/ipchecker"
	"github.com/patric-chuzhbe/filesmanager/internal/jobqueue"
	"github.com/patric-chuzhbe/filesmanager/internal/logger"
	"github.com/patric-chuzhbe/filesmanager/internal/models"
	"github.com/patric-chuzhbe/filesmanager/internal/router"
	"github.com/patric-chuzhbe/filesmanager/internal/service"
	"github.com/patric-chuzhbe/filesmanager/internal/thumbnailer"
)

const (
	shutdownTimeout      = 10 * time.Second
	prepareRetryInterval = 5 * time.Second
)

// preparer is a store that needs a one-off setup against a remote service.
type preparer interface {
	Prepare(ctx context.Context) error
}

// App owns every long-lived component of the service.
type App struct {
	cfg         *config.Config
	db          storage.Storage
	sessions    cache.SessionCache
	blobs       blobstore.BlobStore
	thumbnails  *jobqueue.Queue[models.ThumbnailJob]
	welcome     *jobqueue.Queue[models.WelcomeJob]
	stopQueues  context.CancelFunc
	httpHandler http.Handler

	// pending holds the stores whose Prepare has not succeeded yet.
	pending []preparer
}

type initOptions struct {
	configOptions []config.InitOption
}

type InitOption func(*initOptions)

// WithConfigOptions forwards options to config.New.
func WithConfigOptions(configOptions ...config.InitOption) InitOption {
	return func(options *initOptions) {
		options.configOptions = append(options.configOptions, configOptions...)
	}
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting the document store, session cache and blob store
// - setting up the thumbnail and welcome queues
// - setting up the router and middleware
func New(optionsProto ...InitOption) (*App, error) {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	var err error
	app := &App{}

	app.cfg, err = config.New(options.configOptions...)
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	app.sessions = getSessionCache(app.cfg)

	app.blobs, err = getBlobStore(ctx, app.cfg)
	if err != nil {
		app.closeStores()
		return nil, err
	}

	app.pending = prepareStores(ctx, preparers(app.db, app.blobs))

	guard, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		app.closeStores()
		return nil, err
	}

	app.thumbnails = jobqueue.New(
		"thumbnails",
		thumbnailer.New(app.db, app.blobs).Handle,
		app.cfg.ThumbnailWorkers,
		app.cfg.QueueCapacity,
	)
	app.welcome = jobqueue.New(
		"welcome",
		thumbnailer.NewWelcomer(app.db).Handle,
		1,
		app.cfg.QueueCapacity,
	)

	app.httpHandler = router.New(
		service.NewFileService(app.db, app.blobs, app.thumbnails),
		service.NewUserService(app.db, app.welcome),
		service.NewStatsService(app.db, app.sessions),
		auth.New(app.db, app.sessions, app.cfg.SessionTTL),
		guard,
		router.WithMaxRequestBodyBytes(app.cfg.MaxRequestBodyBytes),
	)

	return app, nil
}

// Handler exposes the HTTP handler, mostly for tests.
func (a *App) Handler() http.Handler {
	return a.httpHandler
}

func preparers(stores ...interface{}) []preparer {
	var result []preparer
	for _, store := range stores {
		if p, ok := store.(preparer); ok {
			result = append(result, p)
		}
	}

	return result
}

// prepareStores tries each store once and returns the ones that failed.
// A failed store stays unhealthy until a retry succeeds.
func prepareStores(ctx context.Context, stores []preparer) []preparer {
	var failed []preparer
	for _, p := range stores {
		if err := p.Prepare(ctx); err != nil {
			logger.Log.Warnw("store is not ready, will retry", "store", fmt.Sprintf("%T", p), "error", err)
			failed = append(failed, p)
		}
	}

	return failed
}

// keepPreparing retries the pending stores every interval until all of
// them succeed or ctx is done.
func keepPreparing(ctx context.Context, pending []preparer, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for len(pending) > 0 {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pending = prepareStores(ctx, pending)
	}

	logger.Log.Infoln("all stores are ready")
}

func (a *App) startQueues() {
	queuesCtx, stopQueues := context.WithCancel(context.Background())
	a.stopQueues = stopQueues

	a.thumbnails.Run(queuesCtx)
	a.thumbnails.ListenErrors(func(err error) {
		logger.Log.Debugln("Error passed from the `a.thumbnails.ListenErrors()`:", zap.Error(err))
	})

	a.welcome.Run(queuesCtx)
	a.welcome.ListenErrors(func(err error) {
		logger.Log.Debugln("Error passed from the `a.welcome.ListenErrors()`:", zap.Error(err))
	})
}

// stopQueuesAndWait lets the workers finish the buffered jobs.
func (a *App) stopQueuesAndWait() {
	a.thumbnails.Stop()
	a.welcome.Stop()
	if a.stopQueues != nil {
		a.stopQueues()
	}
}

func (a *App) closeStores() {
	if a.sessions != nil {
		if err := a.sessions.Close(); err != nil {
			logger.Log.Errorw("session cache was not closed cleanly", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logger.Log.Errorw("document store was not closed cleanly", "error", err)
		}
	}
}

// Run starts the workers and the HTTP server and blocks until SIGINT or
// SIGTERM. On shutdown the server stops first, then the queues drain, then
// the stores close.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(a.pending) > 0 {
		go keepPreparing(ctx, a.pending, prepareRetryInterval)
	}
	a.startQueues()

	logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:    a.cfg.RunAddr,
		Handler: a.httpHandler,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Draining jobs and exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		shutdownErr := server.Shutdown(shutdownCtx)
		a.stopQueuesAndWait()
		a.closeStores()

		if shutdownErr != nil {
			return fmt.Errorf("server shutdown error: %w", shutdownErr)
		}
		return nil

	case err := <-serverErrCh:
		a.stopQueuesAndWait()
		a.closeStores()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypeSQL
	}

	if cfg.DBFileName != "" {
		return models.StorageTypeFile
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage.Storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypeSQL:
		return sqldb.Open(
			cfg.DBDriver,
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
		)

	case models.StorageTypeFile:
		return jsondb.New(cfg.DBFileName)
	}

	return memorystorage.New()
}

func getSessionCache(cfg *config.Config) cache.SessionCache {
	if cfg.RedisAddr != "" {
		return rediscache.New(
			cfg.RedisAddr,
			rediscache.WithPassword(cfg.RedisPassword),
			rediscache.WithDB(cfg.RedisDB),
		)
	}

	return memorycache.New()
}

func getBlobStore(ctx context.Context, cfg *config.Config) (blobstore.BlobStore, error) {
	if cfg.S3Bucket != "" {
		return s3store.Open(ctx, s3store.Config{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Endpoint:  cfg.S3Endpoint,
		})
	}

	return localfs.New(filepath.Clean(cfg.FolderPath)), nil
}
