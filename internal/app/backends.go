// Package app assembles the storage and messaging backends selected by
// configuration. Both binaries share it.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"collegeattend/internal/alerts"
	"collegeattend/internal/attendance"
	"collegeattend/internal/auth"
	"collegeattend/internal/config"
	"collegeattend/internal/directory"
	"collegeattend/internal/queue"
	"collegeattend/internal/settings"
	"collegeattend/internal/store"
)

// Backends are the stores and queue of one process.
type Backends struct {
	DB    *store.DB
	Redis *store.Redis
	Queue queue.Queue

	Ledger    attendance.Ledger
	Directory directory.Store
	Users     auth.UserStore
	Settings  settings.Store
	Alerts    alerts.Store
}

// Open connects the backends named by cfg. STORE_BACKEND=memory keeps all
// state in-process; QUEUE_BACKEND=memory uses a channel queue.
func Open(ctx context.Context, cfg config.App) (*Backends, error) {
	b := &Backends{}
	defaults := cfg.Thresholds()

	needRedis := cfg.QueueBackend != "memory" || cfg.RateLimitBackend == "redis" || cfg.ReportCacheTTL > 0
	if needRedis {
		b.Redis = store.NewRedis(cfg.RedisAddr)
		if !b.Redis.Healthy(ctx) {
			slog.Warn("redis not reachable", "addr", cfg.RedisAddr)
		}
	}

	switch cfg.StoreBackend {
	case "memory":
		b.Ledger = attendance.NewMemoryLedger()
		b.Directory = directory.NewMemoryStore()
		b.Users = auth.NewMemoryUsers()
		b.Settings = settings.NewMemory(defaults)
		b.Alerts = alerts.NewMemory()
	case "postgres", "":
		db, err := store.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.DB = db
		if cfg.RunMigrations {
			if err := db.Migrate(); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		b.Ledger = attendance.NewRepository(db.Client)
		b.Directory = directory.NewRepository(db.Client)
		b.Users = auth.NewRepository(db.Client)
		b.Settings = settings.NewRepository(db.Client, defaults)
		b.Alerts = alerts.NewRepository(db.Client)
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	if cfg.QueueBackend == "memory" {
		b.Queue = queue.NewInMemory(256)
	} else {
		b.Queue = queue.NewRedisQueue(b.Redis.Client, "")
	}
	return b, nil
}

// Health returns the probes for /healthz.
func (b *Backends) Health() map[string]func(context.Context) bool {
	checks := make(map[string]func(context.Context) bool)
	if b.DB != nil {
		checks["db"] = b.DB.Healthy
	}
	if b.Redis != nil {
		checks["redis"] = b.Redis.Healthy
	}
	return checks
}

// Close releases connections.
func (b *Backends) Close() {
	if err := b.DB.Close(); err != nil {
		slog.Warn("close postgres", "error", err)
	}
	if err := b.Redis.Close(); err != nil {
		slog.Warn("close redis", "error", err)
	}
}
