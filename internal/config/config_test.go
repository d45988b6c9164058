package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"collegeattend/internal/aggregate"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "8081", cfg.HTTPPort)
	assert.Equal(t, "postgres", cfg.StoreBackend)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.True(t, cfg.RunMigrations)
	assert.Empty(t, cfg.CORSOrigins)
	assert.False(t, cfg.Production())
	assert.Equal(t, aggregate.DefaultThresholds, cfg.Thresholds())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("ACCESS_TTL", "5m")
	t.Setenv("RUN_MIGRATIONS", "false")
	t.Setenv("RATE_LIMIT_PER_MIN", "30")
	t.Setenv("MIN_ATTENDANCE", "60")
	t.Setenv("WARNING_THRESHOLD", "70")

	cfg := Load()
	assert.True(t, cfg.Production())
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 5*time.Minute, cfg.AccessTTL)
	assert.False(t, cfg.RunMigrations)
	assert.Equal(t, 30, cfg.RateLimitPerMin)
	assert.Equal(t, aggregate.Thresholds{MinAttendance: 60, WarningThreshold: 70}, cfg.Thresholds())
}

func TestLoadKeepsFallbackOnBadValues(t *testing.T) {
	t.Setenv("ACCESS_TTL", "soon")
	t.Setenv("RUN_MIGRATIONS", "maybe")
	t.Setenv("RATE_LIMIT_PER_MIN", "lots")

	cfg := Load()
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.True(t, cfg.RunMigrations)
	assert.Equal(t, 120, cfg.RateLimitPerMin)
}

func TestThresholdsFallBackWhenInverted(t *testing.T) {
	cfg := App{MinAttendance: 90, WarningThreshold: 80}
	assert.Equal(t, aggregate.DefaultThresholds, cfg.Thresholds())
}

func TestLocation(t *testing.T) {
	assert.Equal(t, "UTC", App{Timezone: "UTC"}.Location().String())
	assert.Equal(t, time.Local, App{Timezone: "Not/AZone"}.Location())
}
