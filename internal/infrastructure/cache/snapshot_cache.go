// Package cache provides the redis-backed snapshot cache. Snapshots are
// stored as JSON under a per-request key with a short TTL; invalidation
// deletes the key after every committed transition.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fleetdesk/fleetdesk/internal/application/coordinator"
)

const keyPrefix = "fleetdesk:snapshot:"

// SnapshotCache implements coordinator.SnapshotCache on redis.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{client: client, ttl: ttl}
}

func key(requestID uuid.UUID) string {
	return keyPrefix + requestID.String()
}

func (c *SnapshotCache) Get(ctx context.Context, requestID uuid.UUID) (*coordinator.Snapshot, error) {
	raw, err := c.client.Get(ctx, key(requestID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var snap coordinator.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		// A corrupt entry is treated as a miss; the next Set repairs it.
		return nil, nil
	}
	return &snap, nil
}

func (c *SnapshotCache) Set(ctx context.Context, requestID uuid.UUID, snap *coordinator.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key(requestID), raw, c.ttl).Err()
}

func (c *SnapshotCache) Invalidate(ctx context.Context, requestID uuid.UUID) error {
	return c.client.Del(ctx, key(requestID)).Err()
}
