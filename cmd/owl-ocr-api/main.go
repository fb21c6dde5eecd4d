// Package main provides the Owl OCR API server entrypoint.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/sakamer71/owl-ocr/internal/config"
	"github.com/sakamer71/owl-ocr/internal/jobstore"
	"github.com/sakamer71/owl-ocr/internal/observability"
)

func main() {
	// Load .env if present, then configuration
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if len(os.Args) > 2 && os.Args[1] == "--config" {
		cfgPath = os.Args[2]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: "owl-ocr-api",
	})

	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("store", cfg.Store.Driver).
		Str("upload_dir", cfg.Jobs.UploadDir).
		Str("output_dir", cfg.Jobs.OutputDir).
		Msg("Starting Owl OCR API")

	store, err := newStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Could not connect to job store")
	}
	defer store.Close()

	// Initialize router with all handlers
	router := NewRouter(cfg, store, logger)

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	// Wait for interrupt or error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error().Err(err).Msg("Server error")
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("Forced shutdown failed")
		}
	}

	logger.Info().Msg("Server stopped")
}

func newStore(cfg *config.Config) (jobstore.Store, error) {
	if cfg.Store.Driver == "redis" {
		return jobstore.NewRedisStore(jobstore.RedisConfig{
			Addr:      cfg.Store.Redis.Addr,
			Password:  cfg.Store.Redis.Password,
			DB:        cfg.Store.Redis.DB,
			PoolSize:  cfg.Store.Redis.PoolSize,
			Retention: cfg.Store.Retention,
		})
	}
	return jobstore.NewMemoryStore(cfg.Store.Retention), nil
}
