package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sungwon/message-relay/internal/api"
	"github.com/sungwon/message-relay/internal/blobstore"
	"github.com/sungwon/message-relay/internal/config"
	"github.com/sungwon/message-relay/internal/dispatcher"
	"github.com/sungwon/message-relay/internal/logger"
	"github.com/sungwon/message-relay/internal/queue"
	"github.com/sungwon/message-relay/internal/storage"
)

func main() {
	cfg, err := config.Load("config")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewFromConfig(logger.LoggingConfig{
		Level:     cfg.Logging.Level,
		Output:    cfg.Logging.Output,
		FilePath:  cfg.Logging.FilePath,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	})
	log.Info().Msg("starting api server")

	ctx := context.Background()
	db, err := storage.NewDB(ctx, cfg.Database.URL, cfg.Database.PoolMin, cfg.Database.PoolMax, cfg.Database.ConnectTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := storage.Migrate(ctx, db.Pool); err != nil {
		log.Fatal().Err(err).Msg("failed to apply schema")
	}
	log.Info().Msg("database connection established")

	records := storage.New(db.Pool)

	blobs, err := blobstore.New(cfg.Blob, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize blob store")
	}

	// Only the publishing side of the queue is used here; the
	// subscriber belongs to the delivery worker.
	publisher, _, _, err := queue.NewQueue(cfg.Queue, nil, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize queue")
	}

	svc := dispatcher.NewService(blobs, cfg.Blob.Bucket, records, publisher, log)

	router := api.NewRouter(api.Deps{
		Dispatcher: svc,
		Records:    records,
		DB:         db,
		Auth:       cfg.Auth,
		Log:        log,
	})

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("api server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Let handed-off publishes reconcile their records before exit.
	if err := svc.Drain(30 * time.Second); err != nil {
		log.Warn().Err(err).Msg("dispatcher drain incomplete")
	}

	log.Info().Msg("server stopped")
}
