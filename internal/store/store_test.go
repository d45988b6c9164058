package store

import (
	"context"
	"io"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	src, err := iofs.New(migrations, "migrations")
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	up, _, err := src.ReadUp(first)
	require.NoError(t, err)
	body, err := io.ReadAll(up)
	require.NoError(t, err)
	assert.Contains(t, string(body), "attendance_sessions")
	assert.Contains(t, string(body), "refresh_tokens")

	down, _, err := src.ReadDown(first)
	require.NoError(t, err)
	_ = down.Close()
}

func TestRedisHealthy(t *testing.T) {
	mr := miniredis.RunT(t)
	r := NewRedis(mr.Addr())
	defer r.Close()

	assert.True(t, r.Healthy(context.Background()))
	mr.Close()
	assert.False(t, r.Healthy(context.Background()))

	var none *Redis
	assert.False(t, none.Healthy(context.Background()))
	assert.NoError(t, none.Close())
}

func TestNilDB(t *testing.T) {
	var d *DB
	assert.False(t, d.Healthy(context.Background()))
	assert.NoError(t, d.Close())
}
