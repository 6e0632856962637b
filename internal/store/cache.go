// internal/store/cache.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"loanwise-engine/internal/common/logger"
	"loanwise-engine/internal/models"
)

const snapshotKeyPrefix = "loanwise:snapshot:"

// SnapshotCache is a read-through Redis cache for application snapshots.
// It only serves getApplication; every stage transition invalidates the
// entry, so correctness never depends on the cache.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewSnapshotCache(client *redis.Client, ttl time.Duration, log logger.Logger) *SnapshotCache {
	return &SnapshotCache{
		client: client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "snapshot-cache"}),
	}
}

// Get returns the cached snapshot, or nil on miss. Cache errors are
// logged and treated as misses.
func (c *SnapshotCache) Get(ctx context.Context, applicationID string) *models.ApplicationSnapshot {
	raw, err := c.client.Get(ctx, snapshotKeyPrefix+applicationID).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("snapshot cache read failed", map[string]interface{}{
				"error":         err,
				"applicationId": applicationID,
			})
		}
		return nil
	}

	var snap models.ApplicationSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		c.logger.Warn("snapshot cache entry corrupt, dropping", map[string]interface{}{
			"error":         err,
			"applicationId": applicationID,
		})
		c.Invalidate(ctx, applicationID)
		return nil
	}
	return &snap
}

// Put stores the snapshot for the configured TTL. Failures are logged,
// never surfaced.
func (c *SnapshotCache) Put(ctx context.Context, snap *models.ApplicationSnapshot) {
	raw, err := json.Marshal(snap)
	if err != nil {
		c.logger.Warn("snapshot marshal failed", map[string]interface{}{"error": err})
		return
	}
	if err := c.client.Set(ctx, snapshotKeyPrefix+snap.Application.ApplicationID, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("snapshot cache write failed", map[string]interface{}{
			"error":         err,
			"applicationId": snap.Application.ApplicationID,
		})
	}
}

// Invalidate drops the cached snapshot after a transition.
func (c *SnapshotCache) Invalidate(ctx context.Context, applicationID string) {
	if err := c.client.Del(ctx, snapshotKeyPrefix+applicationID).Err(); err != nil {
		c.logger.Warn("snapshot cache invalidation failed", map[string]interface{}{
			"error":         err,
			"applicationId": applicationID,
		})
	}
}
