package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const snapshotCacheKey = "catalog:snapshot"

// Cache stores the serialized catalog snapshot in Redis so a terminal
// restart does not need the backend to be reachable.
type Cache struct {
	R   *redis.Client
	TTL time.Duration
}

// Get loads the cached snapshot, returning (nil, nil) on a miss.
func (c *Cache) Get(ctx context.Context) (*Snapshot, error) {
	if c == nil || c.R == nil {
		return nil, nil
	}
	raw, err := c.R.Get(ctx, snapshotCacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	snap.Index()
	return &snap, nil
}

// Set stores the snapshot with the configured TTL.
func (c *Cache) Set(ctx context.Context, snap *Snapshot) error {
	if c == nil || c.R == nil {
		return nil
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, snapshotCacheKey, raw, c.TTL).Err()
}
