// Package main contains the entrypoint for the TradeWatch pipeline.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tradewatch/internal/app"
	"tradewatch/internal/config"
	"tradewatch/internal/extract"
	"tradewatch/internal/gateway"
	"tradewatch/internal/logger"
	"tradewatch/internal/logstore"
	"tradewatch/internal/monitor"
	"tradewatch/internal/warehouse"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes all application components (config, logger, log store,
// warehouse, extractor, gateway, monitor), handles graceful shutdown, and
// returns an exit code (0 for success, 1 for failure).
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	logDB, err := logstore.Open(cfg.LogStore.Path)
	if err != nil {
		log.Error("Failed to open log store", "path", cfg.LogStore.Path, "error", err)
		return 1
	}
	defer logstore.CloseDB(logDB)
	store := logstore.NewStore(logDB, log)

	whDB, err := warehouse.Open(cfg.Warehouse)
	if err != nil {
		log.Error("Failed to connect to warehouse", "error", err)
		return 1
	}
	defer warehouse.CloseDB(whDB)
	wh := warehouse.NewStore(whDB, log)

	extractor, err := extract.NewExtractor(ctx, cfg.Gemini, log)
	if err != nil {
		log.Error("Failed to initialize Gemini extractor", "error", err)
		return 1
	}

	gw := gateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.Timeout, log)

	mon := monitor.New(log, store, wh, extractor, gw, cfg.Monitor)

	application, err := app.New(log, mon, store, cfg.Maintenance)
	if err != nil {
		log.Error("Failed to create application", "error", err)
		return 1
	}

	log.Info("Starting TradeWatch...", "log_store", cfg.LogStore.Path, "source", cfg.Monitor.Source)
	runErr := application.Run(ctx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Application stopped due to error", "error", runErr)
		return 1
	}

	log.Info("Application stopped gracefully.")
	return 0
}
