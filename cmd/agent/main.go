package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/framecut/framecut-agent/internal/api"
	"github.com/framecut/framecut-agent/internal/config"
	"github.com/framecut/framecut-agent/internal/db"
	"github.com/framecut/framecut-agent/internal/ffmpeg"
	"github.com/framecut/framecut-agent/internal/library"
	"github.com/framecut/framecut-agent/internal/logging"
	"github.com/framecut/framecut-agent/internal/multicam"
	"github.com/framecut/framecut-agent/internal/pipeline"
	"github.com/framecut/framecut-agent/internal/scheduler"
	"github.com/framecut/framecut-agent/internal/store"
	"github.com/framecut/framecut-agent/internal/stream"
)

var Version = "0.1.0"

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	// A local .env is a convenience, not a requirement.
	_ = godotenv.Load()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.MediaDir(), 0755); err != nil {
		return fmt.Errorf("failed to create media dir: %w", err)
	}
	if err := os.MkdirAll(cfg.ExportsDir(), 0755); err != nil {
		return fmt.Errorf("failed to create exports dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting framecut agent",
		"version", Version,
		"media_dir", cfg.MediaDir(),
		"exports_dir", cfg.ExportsDir(),
	)

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := library.NewRepository(database.Conn())
	mediaSvc := library.NewService(repo, cfg.MediaDir(), logging.WithComponent(logger, "library"))

	jobStore, err := store.NewFSStore(cfg.ExportsDir())
	if err != nil {
		return fmt.Errorf("failed to initialize job store: %w", err)
	}

	executor, err := ffmpeg.NewExecutor(ffmpeg.Config{
		BinaryPath: cfg.FFmpegPath(),
		Timeout:    cfg.FFmpegTimeout(),
		Logger:     logging.WithComponent(logger, "ffmpeg"),
	})
	if err != nil {
		return fmt.Errorf("ffmpeg unavailable: %w", err)
	}

	mcManager := multicam.NewManager()

	processor := pipeline.NewProcessor(jobStore, executor, logger)
	runner := scheduler.NewRunner(jobStore, processor, cfg.PollInterval(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go runner.Start(ctx)

	apiServer := api.NewServer(api.ServerConfig{
		Port:       cfg.Port(),
		ExportsDir: cfg.ExportsDir(),
		Store:      jobStore,
		Media:      mediaSvc,
		Multicam:   mcManager,
		Streamer:  stream.NewStreamer(logging.WithComponent(logger, "stream")),
		Runner:     runner,
		Logger:     logging.WithComponent(logger, "api"),
		StartTime:  startTime,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig)

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
