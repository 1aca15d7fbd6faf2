package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/offsession/internal/config"
	"github.com/smallbiznis/offsession/internal/paymenthistory/domain"
	"go.uber.org/zap"
)

const keyHistoryList = "offsession:payment_history:list"

type redisListCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// Provide returns a redis-backed cache, or nil when redis or the cache is
// disabled.
func Provide(cfg config.Config, client *redis.Client, log *zap.Logger) domain.ListCache {
	if client == nil || !cfg.Redis.CacheEnabled || cfg.Redis.HistoryTTL <= 0 {
		return nil
	}
	return NewRedisListCache(client, cfg.Redis.HistoryTTL, log)
}

func NewRedisListCache(client *redis.Client, ttl time.Duration, log *zap.Logger) domain.ListCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &redisListCache{client: client, ttl: ttl, log: log.Named("paymenthistory.cache")}
}

func (c *redisListCache) Get(ctx context.Context) ([]domain.PaymentRecord, bool) {
	raw, err := c.client.Get(ctx, keyHistoryList).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("history cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var records []domain.PaymentRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		c.log.Warn("history cache entry is corrupt", zap.Error(err))
		return nil, false
	}
	return records, true
}

func (c *redisListCache) Set(ctx context.Context, records []domain.PaymentRecord) {
	raw, err := json.Marshal(records)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, keyHistoryList, raw, c.ttl).Err(); err != nil {
		c.log.Warn("history cache write failed", zap.Error(err))
	}
}

func (c *redisListCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, keyHistoryList).Err(); err != nil {
		c.log.Warn("history cache invalidation failed", zap.Error(err))
	}
}
