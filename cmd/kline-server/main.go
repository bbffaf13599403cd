package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"klinechart/internal/api"
	"klinechart/internal/config"
	"klinechart/internal/kline"
	"klinechart/internal/source"
	"klinechart/internal/store"
	"klinechart/internal/util"
)

func main() {
	// Load config.
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// Setup logging.
	logger := util.NewLogger(util.LogOptions{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	util.SetDefault(logger)

	// Create stores and the series source.
	securities, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening security store: %v", err)
	}
	defer securities.Close()

	var src source.DataSource
	switch cfg.Source.Kind {
	case config.SourceHTTP:
		src = source.NewHTTPSource(cfg.Source.BaseURL, source.HTTPOptions{
			Timeout:         cfg.Source.Timeout,
			MaxAttempts:     cfg.Source.MaxAttempts,
			RetryDelay:      cfg.Source.RetryDelay,
			RateLimitPerMin: cfg.Source.RateLimitPerMin,
		}, logger)
	default:
		src = store.NewParquetStore(cfg.Storage.DataDir)
	}
	logger.Info("series source configured", "kind", cfg.Source.Kind, "data_dir", cfg.Storage.DataDir, "base_url", cfg.Source.BaseURL)

	srv := api.NewServer(src, securities, kline.Options{
		TrailingWindow: cfg.Chart.TrailingWindow,
		PageSize:       cfg.Chart.PageSize,
	}, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := srv.ListenAndServe(ctx, cfg.Server.Addr()); err != nil {
		logger.Error("HTTP server error", "error", err)
	}
}
