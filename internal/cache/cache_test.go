package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	Name       string `json:"name"`
	Percentage int    `json:"percentage"`
}

func newReports(t *testing.T) (*Reports, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, time.Minute), mr
}

func TestGetSetRoundTrip(t *testing.T) {
	r, _ := newReports(t)
	ctx := context.Background()

	var got []row
	key, hit := r.Get(ctx, "student", "facultyId=F1", &got)
	assert.False(t, hit)
	require.NotEmpty(t, key)

	r.Set(ctx, key, []row{{Name: "Asha", Percentage: 67}})
	_, hit = r.Get(ctx, "student", "facultyId=F1", &got)
	require.True(t, hit)
	assert.Equal(t, []row{{Name: "Asha", Percentage: 67}}, got)

	_, hit = r.Get(ctx, "student", "facultyId=F2", &got)
	assert.False(t, hit)
	_, hit = r.Get(ctx, "date", "facultyId=F1", &got)
	assert.False(t, hit)
}

func TestBumpInvalidates(t *testing.T) {
	r, mr := newReports(t)
	ctx := context.Background()

	var got row
	key, _ := r.Get(ctx, "summary", "", &got)
	r.Set(ctx, key, row{Percentage: 50})
	r.Bump(ctx)

	key, hit := r.Get(ctx, "summary", "", &got)
	assert.False(t, hit)
	v, err := mr.Get(versionKey)
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	r.Set(ctx, key, row{Percentage: 75})
	_, hit = r.Get(ctx, "summary", "", &got)
	require.True(t, hit)
	assert.Equal(t, 75, got.Percentage)
}

func TestBumpDuringBuildDiscardsStaleReport(t *testing.T) {
	r, _ := newReports(t)
	ctx := context.Background()

	var got row
	key, hit := r.Get(ctx, "summary", "", &got)
	require.False(t, hit)

	// A write lands while the report is being built from older data.
	r.Bump(ctx)
	r.Set(ctx, key, row{Name: "built before write"})

	_, hit = r.Get(ctx, "summary", "", &got)
	assert.False(t, hit)
}

func TestEntriesExpire(t *testing.T) {
	r, mr := newReports(t)
	ctx := context.Background()

	var got row
	key, _ := r.Get(ctx, "summary", "", &got)
	r.Set(ctx, key, row{Percentage: 50})
	mr.FastForward(2 * time.Minute)

	_, hit := r.Get(ctx, "summary", "", &got)
	assert.False(t, hit)
}

func TestNilReportsIsNoop(t *testing.T) {
	var r *Reports
	ctx := context.Background()
	r.Set(ctx, "report:v0:summary:00", row{})
	r.Bump(ctx)
	var got row
	key, hit := r.Get(ctx, "summary", "", &got)
	assert.False(t, hit)
	assert.Empty(t, key)
}

func TestUnavailableRedisMisses(t *testing.T) {
	r, mr := newReports(t)
	mr.Close()
	var got row
	key, hit := r.Get(context.Background(), "summary", "", &got)
	assert.False(t, hit)
	assert.Empty(t, key)
}
