// Package server wires the Captain's Log backend together: storage,
// the transcription pipeline, the HTTP API and the optional gRPC health
// endpoint and queue worker. It also handles graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/captainslog/internal/blobstore"
	"github.com/dmitrijs2005/captainslog/internal/common"
	"github.com/dmitrijs2005/captainslog/internal/journal"
	"github.com/dmitrijs2005/captainslog/internal/logging"
	"github.com/dmitrijs2005/captainslog/internal/pipeline"
	"github.com/dmitrijs2005/captainslog/internal/server/api"
	"github.com/dmitrijs2005/captainslog/internal/server/config"
	"github.com/dmitrijs2005/captainslog/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/captainslog/internal/server/services"
	"github.com/dmitrijs2005/captainslog/internal/transcribe"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	gs "github.com/dmitrijs2005/captainslog/internal/server/grpc"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config   *config.Config
	logger   logging.Logger
	repos    repomanager.RepositoryManager
	pipeline *pipeline.Pipeline
	router   *gin.Engine
	queue    *asynq.Client
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogFormat, c.LogLevel)

	repos, err := repomanager.Open(c.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := repos.RunMigrations(ctx); err != nil {
		repos.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	blobs, err := blobstore.Open(ctx, blobstore.Config{
		Backend:   c.StorageBackend,
		Path:      c.StoragePath,
		Bucket:    c.S3Bucket,
		Region:    c.S3Region,
		Endpoint:  c.S3Endpoint,
		AccessKey: c.S3AccessKey,
		SecretKey: c.S3SecretKey,
	})
	if err != nil {
		repos.Close()
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	app := &App{config: c, logger: logger, repos: repos}

	transcriber := transcribe.NewOpenAIClient(transcribe.StaticKey(c.OpenAIAPIKey),
		transcribe.WithBaseURL(c.OpenAIBaseURL),
		transcribe.WithModel(c.OpenAIModel),
		transcribe.WithLogger(logger),
	)

	var dispatcher pipeline.Dispatcher
	if c.RedisAddr != "" {
		app.queue = asynq.NewClient(app.redisOpt())
		dispatcher = pipeline.NewAsynqDispatcher(app.queue, c.QueueName)
	}

	// The server answers from the database; the log only tracks entries
	// whose transcription is still running.
	inflight := journal.NewLog()
	app.pipeline = pipeline.New(pipeline.Config{
		Repos:       repos,
		Transcriber: transcriber,
		Log:         inflight,
		Dispatcher:  dispatcher,
		Logger:      logger.With("module", "pipeline"),
		OnChange:    func(e journal.Entry) { inflight.Remove(e.ID) },
		LoadAudio:   services.LoadAudio(blobs),
	})

	secret := c.SecretKey
	if secret == "" {
		if secret, err = common.MakeRandHexString(32); err != nil {
			repos.Close()
			return nil, err
		}
		logger.Warn(ctx, "JWT secret not configured, sessions will not survive a restart")
	}

	users := services.NewUserService(repos.Users(), services.AuthConfig{
		SecretKey:          []byte(secret),
		SessionDuration:    c.SessionDuration,
		ResetTokenDuration: c.ResetTokenDuration,
	}, nil, logger)
	recordings := services.NewRecordingService(repos, blobs, app.pipeline, logger)

	if c.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	app.router = api.NewHandler(users, recordings, logger.With("module", "http"), api.Config{
		StaticDir:      c.StaticDir,
		MaxUploadBytes: c.MaxUploadBytes,
	}).Router()

	return app, nil
}

func (app *App) redisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: app.config.RedisAddr, Password: app.config.RedisPassword}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.HTTPAddr,
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	app.logger.Info(ctx, "Captain's Log server running", "address", app.config.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewHealthServer(app.config.GRPCAddr, app.logger, app.repos.Ping)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// startWorker consumes transcription tasks enqueued by this or any other
// instance sharing the queue.
func (app *App) startWorker(ctx context.Context, cancelFunc context.CancelFunc) {
	queue := app.config.QueueName
	if queue == "" {
		queue = "default"
	}
	srv := asynq.NewServer(app.redisOpt(), asynq.Config{
		Concurrency: int(app.config.WorkerConcurrency),
		Queues:      map[string]int{queue: 1},
	})

	go func() {
		<-ctx.Done()
		srv.Shutdown()
	}()

	app.logger.Info(ctx, "Starting transcription worker", "queue", queue)
	if err := srv.Run(app.pipeline.Handler()); err != nil {
		app.logger.Error(ctx, "worker stopped", "error", err)
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "database", app.repos.Backend())

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.config.GRPCAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCServer(ctx, cancelFunc)
		}()
	}

	if app.queue != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startWorker(ctx, cancelFunc)
		}()
	}

	wg.Wait()
	app.shutdown(ctx)
}

// shutdown waits for in-process transcriptions before closing storage.
func (app *App) shutdown(ctx context.Context) {
	app.pipeline.Wait()
	if app.queue != nil {
		if err := app.queue.Close(); err != nil {
			app.logger.Warn(ctx, "queue client close failed", "error", err)
		}
	}
	if err := app.repos.Close(); err != nil {
		app.logger.Warn(ctx, "db close failed", "error", err)
	}
	app.logger.Info(ctx, "Stopped")
}
