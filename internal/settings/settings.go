// Package settings stores the institution's attendance thresholds.
package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"

	"collegeattend/internal/aggregate"
)

const thresholdsKey = "attendance.thresholds"

// Store reads and writes thresholds. Implementations return the configured
// defaults until thresholds are saved.
type Store interface {
	Thresholds(ctx context.Context) (aggregate.Thresholds, error)
	SaveThresholds(ctx context.Context, t aggregate.Thresholds) error
}

// Memory is an in-process Store.
type Memory struct {
	mu sync.RWMutex
	t  aggregate.Thresholds
}

func NewMemory(defaults aggregate.Thresholds) *Memory {
	return &Memory{t: defaults}
}

func (m *Memory) Thresholds(context.Context) (aggregate.Thresholds, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t, nil
}

func (m *Memory) SaveThresholds(_ context.Context, t aggregate.Thresholds) error {
	if err := t.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.t = t
	m.mu.Unlock()
	return nil
}

// Repository keeps settings as JSON documents in Postgres.
type Repository struct {
	db       *sql.DB
	defaults aggregate.Thresholds
}

func NewRepository(db *sql.DB, defaults aggregate.Thresholds) *Repository {
	return &Repository{db: db, defaults: defaults}
}

func (r *Repository) Thresholds(ctx context.Context) (aggregate.Thresholds, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = $1`, thresholdsKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return r.defaults, nil
	}
	if err != nil {
		return aggregate.Thresholds{}, err
	}
	var t aggregate.Thresholds
	if err := json.Unmarshal(raw, &t); err != nil {
		return aggregate.Thresholds{}, err
	}
	return t, nil
}

func (r *Repository) SaveThresholds(ctx context.Context, t aggregate.Thresholds) error {
	if err := t.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, thresholdsKey, raw)
	return err
}
