package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"collegeattend/internal/alerts"
	"collegeattend/internal/api"
	"collegeattend/internal/app"
	"collegeattend/internal/attendance"
	"collegeattend/internal/auth"
	"collegeattend/internal/cache"
	"collegeattend/internal/cloudinary"
	"collegeattend/internal/config"
	"collegeattend/internal/httpmiddleware"
	"collegeattend/internal/logging"
	"collegeattend/internal/seed"
)

func main() {
	cfg := config.Load()
	logging.New(cfg.Production(), cfg.LogLevel)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg); err != nil {
		slog.Error("api server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.App) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := app.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	if cfg.SeedDemo {
		if err := seed.Load(ctx, b.Directory, b.Ledger, b.Users); err != nil {
			return err
		}
	}

	svc := attendance.NewService(b.Ledger, b.Queue, cfg.Location())
	signer := auth.NewSigner(cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)

	var reports *cache.Reports
	if b.Redis != nil && cfg.ReportCacheTTL > 0 {
		reports = cache.New(b.Redis.Client, cfg.ReportCacheTTL)
	}

	var limiter httpmiddleware.Limiter
	if cfg.RateLimitPerMin > 0 {
		if cfg.RateLimitBackend == "redis" && b.Redis != nil {
			limiter = httpmiddleware.NewRedisWindow(b.Redis.Client, cfg.RateLimitPerMin)
		} else {
			limiter = httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
		}
	}

	uploader := cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
	if uploader.Enabled() {
		slog.Info("cloudinary configured", "cloud", cfg.CloudinaryCloudName)
	} else {
		slog.Info("cloudinary not configured, report upload disabled")
	}

	// With in-process state no separate worker can see the ledger.
	if cfg.QueueBackend == "memory" || cfg.StoreBackend == "memory" {
		ev := alerts.NewEvaluator(b.Ledger, b.Alerts, b.Settings, b.Directory)
		go func() {
			if err := alerts.Consume(ctx, b.Queue, ev); err != nil {
				slog.Error("in-process alerts worker failed", "error", err)
			}
		}()
	}

	router := api.NewRouter(api.Deps{
		Auth:       auth.NewService(b.Users, signer),
		Directory:  b.Directory,
		Attendance: svc,
		Settings:   b.Settings,
		Alerts:     b.Alerts,
		Cache:      reports,
		Events:     b.Queue,
		Uploader:   uploader,
		Limiter:    limiter,
		Health:     b.Health(),
	}, cfg.CORSOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "port", cfg.HTTPPort, "store", cfg.StoreBackend, "queue", cfg.QueueBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("server forced shutdown", "error", err)
	}
	slog.Info("server exited")
	return nil
}
