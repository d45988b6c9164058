package settings

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collegeattend/internal/aggregate"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(aggregate.DefaultThresholds)

	got, err := m.Thresholds(ctx)
	require.NoError(t, err)
	assert.Equal(t, aggregate.DefaultThresholds, got)

	require.NoError(t, m.SaveThresholds(ctx, aggregate.Thresholds{MinAttendance: 60, WarningThreshold: 70}))
	got, err = m.Thresholds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 60, got.MinAttendance)

	err = m.SaveThresholds(ctx, aggregate.Thresholds{MinAttendance: 70, WarningThreshold: 70})
	assert.ErrorIs(t, err, aggregate.ErrInvalidThresholds)
	got, err = m.Thresholds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 70, got.WarningThreshold, "rejected save leaves the old value")
}

func TestRepositoryDefaultsUntilSaved(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT value FROM settings").
		WithArgs(thresholdsKey).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO settings").
		WithArgs(thresholdsKey, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT value FROM settings").
		WithArgs(thresholdsKey).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`{"minAttendance":65,"warningThreshold":85}`)))

	r := NewRepository(db, aggregate.DefaultThresholds)
	ctx := context.Background()

	got, err := r.Thresholds(ctx)
	require.NoError(t, err)
	assert.Equal(t, aggregate.DefaultThresholds, got)

	require.NoError(t, r.SaveThresholds(ctx, aggregate.Thresholds{MinAttendance: 65, WarningThreshold: 85}))

	got, err = r.Thresholds(ctx)
	require.NoError(t, err)
	assert.Equal(t, aggregate.Thresholds{MinAttendance: 65, WarningThreshold: 85}, got)

	assert.ErrorIs(t, r.SaveThresholds(ctx, aggregate.Thresholds{MinAttendance: 90, WarningThreshold: 10}), aggregate.ErrInvalidThresholds)
	require.NoError(t, mock.ExpectationsWereMet())
}
