package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"collegeattend/internal/alerts"
	"collegeattend/internal/app"
	"collegeattend/internal/config"
	"collegeattend/internal/logging"
)

// Worker consumes attendance events and keeps low-attendance alerts current.
func main() {
	cfg := config.Load()
	logging.New(cfg.Production(), cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("worker failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.App) error {
	if cfg.QueueBackend == "memory" || cfg.StoreBackend == "memory" {
		return errors.New("worker needs shared backends; with memory backends the api evaluates alerts itself")
	}
	b, err := app.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	ev := alerts.NewEvaluator(b.Ledger, b.Alerts, b.Settings, b.Directory)
	return alerts.Consume(ctx, b.Queue, ev)
}
