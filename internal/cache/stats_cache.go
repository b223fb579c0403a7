// internal/cache/stats_cache.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stocklens/analytics-go/internal/config"
	"github.com/stocklens/analytics-go/internal/domain"
)

const statsKey = "analytics:usage_stats"

// StatsCache caches the catalog-wide usage statistics, which aggregate over
// every product row and are expensive to recompute per request.
type StatsCache interface {
	GetStats(ctx context.Context) (*domain.UsageStats, bool, error)
	SetStats(ctx context.Context, stats *domain.UsageStats) error
	InvalidateStats(ctx context.Context) error
}

type redisStatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopStatsCache struct{}

func NewStatsCache(cfg config.CacheConfig) (StatsCache, error) {
	if !cfg.Enabled {
		return &noopStatsCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisStatsCache{client: client, ttl: ttl}, nil
}

func NewNoopStatsCache() StatsCache {
	return &noopStatsCache{}
}

func (c *redisStatsCache) GetStats(ctx context.Context) (*domain.UsageStats, bool, error) {
	payload, err := c.client.Get(ctx, statsKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var stats domain.UsageStats
	if err := json.Unmarshal(payload, &stats); err != nil {
		return nil, false, fmt.Errorf("decode usage stats cache: %w", err)
	}

	return &stats, true, nil
}

func (c *redisStatsCache) SetStats(ctx context.Context, stats *domain.UsageStats) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode usage stats cache: %w", err)
	}

	if err := c.client.Set(ctx, statsKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisStatsCache) InvalidateStats(ctx context.Context) error {
	return c.client.Del(ctx, statsKey).Err()
}

func (n *noopStatsCache) GetStats(ctx context.Context) (*domain.UsageStats, bool, error) {
	return nil, false, nil
}

func (n *noopStatsCache) SetStats(ctx context.Context, stats *domain.UsageStats) error {
	return nil
}

func (n *noopStatsCache) InvalidateStats(ctx context.Context) error {
	return nil
}
