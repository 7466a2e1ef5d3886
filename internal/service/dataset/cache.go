package dataset

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/workforce-monitor/internal/timenorm"
)

const defaultCacheTTL = 24 * time.Hour

// Cache keeps the aggregated view of each dataset in Redis so restarts and
// sibling instances can serve it without reprocessing.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCache wraps a Redis client. A zero ttl falls back to 24 hours.
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

func cacheKey(id string) string { return "dataset:" + id + ":aggregated" }

// SetAggregated stores the aggregated view of one dataset.
func (c *Cache) SetAggregated(ctx context.Context, id string, records []timenorm.AggregatedRecord) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, cacheKey(id), payload, c.ttl).Err()
}

// GetAggregated fetches a cached aggregated view. Misses and decode failures
// both report a miss so the caller falls through to memory.
func (c *Cache) GetAggregated(ctx context.Context, id string) ([]timenorm.AggregatedRecord, bool) {
	payload, err := c.rdb.Get(ctx, cacheKey(id)).Bytes()
	if err != nil {
		return nil, false
	}
	var records []timenorm.AggregatedRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, false
	}
	return records, true
}
