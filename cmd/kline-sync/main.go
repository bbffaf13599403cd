package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"klinechart/internal/config"
	"klinechart/internal/gather/cn"
	"klinechart/internal/source"
	"klinechart/internal/store"
	"klinechart/internal/util"
)

func main() {
	workers := flag.Int("workers", 4, "codes synchronized concurrently")
	flag.Parse()

	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Source.BaseURL == "" {
		log.Fatalf("source.base_url (or UPSTREAM_BASE_URL) is required to sync")
	}

	logger := util.NewLogger(util.LogOptions{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})
	util.SetDefault(logger)

	securities, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening security store: %v", err)
	}
	defer securities.Close()

	upstream := source.NewHTTPSource(cfg.Source.BaseURL, source.HTTPOptions{
		Timeout:         cfg.Source.Timeout,
		MaxAttempts:     cfg.Source.MaxAttempts,
		RetryDelay:      cfg.Source.RetryDelay,
		RateLimitPerMin: cfg.Source.RateLimitPerMin,
	}, logger)

	gatherer := cn.NewSeriesSync(upstream, store.NewParquetStore(cfg.Storage.DataDir), securities, *workers, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting gatherer", "name", gatherer.Name())
	if err := gatherer.Run(ctx); err != nil {
		log.Fatalf("gatherer error: %v", err)
	}
}
