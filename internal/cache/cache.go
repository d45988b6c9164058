// Package cache keeps built reports in Redis. Entries are namespaced by a
// ledger version that every attendance write bumps, so a write makes all
// older entries unreachable and they age out by TTL.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"collegeattend/internal/metrics"
)

const versionKey = "report:version"

// Reports is a report cache. A nil *Reports or one without a client is a
// no-op cache that always misses.
type Reports struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Reports {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Reports{client: client, ttl: ttl}
}

func (r *Reports) enabled() bool { return r != nil && r.client != nil }

// Get loads the cached report for (name, params) into dst. The returned
// key names the entry under the ledger version seen by this lookup; pass it
// to Set after a miss so a report built before a concurrent Bump is stored
// under the old version. The key is empty when the cache is unavailable.
func (r *Reports) Get(ctx context.Context, name, params string, dst any) (string, bool) {
	if !r.enabled() {
		return "", false
	}
	key, err := r.key(ctx, name, params)
	if err != nil {
		metrics.ReportCache.WithLabelValues("error").Inc()
		slog.Warn("report cache version lookup failed", "error", err)
		return "", false
	}
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			metrics.ReportCache.WithLabelValues("error").Inc()
			slog.Warn("report cache get failed", "key", key, "error", err)
			return "", false
		}
		metrics.ReportCache.WithLabelValues("miss").Inc()
		return key, false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		metrics.ReportCache.WithLabelValues("error").Inc()
		slog.Warn("report cache entry unreadable", "key", key, "error", err)
		return key, false
	}
	metrics.ReportCache.WithLabelValues("hit").Inc()
	return key, true
}

// Set stores v under a key returned by Get. An empty key is ignored.
// Failures are logged and dropped.
func (r *Reports) Set(ctx context.Context, key string, v any) {
	if !r.enabled() || key == "" {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		slog.Warn("report cache encode failed", "key", key, "error", err)
		return
	}
	if err := r.client.Set(ctx, key, raw, r.ttl).Err(); err != nil {
		slog.Warn("report cache set failed", "key", key, "error", err)
	}
}

// Bump invalidates every cached report.
func (r *Reports) Bump(ctx context.Context) {
	if !r.enabled() {
		return
	}
	if err := r.client.Incr(ctx, versionKey).Err(); err != nil {
		slog.Warn("report cache bump failed", "error", err)
	}
}

func (r *Reports) key(ctx context.Context, name, params string) (string, error) {
	version, err := r.client.Get(ctx, versionKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	sum := sha1.Sum([]byte(params))
	return fmt.Sprintf("report:v%d:%s:%s", version, name, hex.EncodeToString(sum[:8])), nil
}
