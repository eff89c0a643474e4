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

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sungwon/message-relay/internal/blobstore"
	"github.com/sungwon/message-relay/internal/config"
	"github.com/sungwon/message-relay/internal/logger"
	"github.com/sungwon/message-relay/internal/mailer"
	"github.com/sungwon/message-relay/internal/queue"
	"github.com/sungwon/message-relay/internal/receiver"
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
	log.Info().Msg("starting delivery worker")

	ctx := context.Background()
	db, err := storage.NewDB(ctx, cfg.Database.URL, cfg.Database.PoolMin, cfg.Database.PoolMax, cfg.Database.ConnectTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	records := storage.New(db.Pool)

	blobs, err := blobstore.New(cfg.Blob, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize blob store")
	}

	mail, err := mailer.New(cfg.Mailer, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize mailer")
	}

	handler := receiver.NewHandler(blobs, mail, records, log)

	_, subscriber, _, err := queue.NewQueue(cfg.Queue, handler, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize queue")
	}

	if err := subscriber.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start subscriber")
	}
	log.Info().
		Int("workers", cfg.Queue.WorkerCount).
		Str("topic", cfg.Queue.Topic).
		Str("group", cfg.Queue.GroupName).
		Str("mailer", mail.Name()).
		Msg("delivery worker started")

	metricsSrv := &http.Server{
		Addr:    cfg.Metrics.Addr,
		Handler: promhttp.Handler(),
	}
	go func() {
		log.Info().Str("addr", metricsSrv.Addr).Msg("metrics endpoint listening")
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutting down delivery worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := subscriber.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("subscriber forced to stop")
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("metrics server forced to shutdown")
	}

	log.Info().Msg("delivery worker stopped")
}
