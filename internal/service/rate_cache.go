package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/customs-pricing/internal/logger"
	"github.com/ignatzorin/customs-pricing/internal/pricing"
)

// RateCache хранит курсы валют между запросами.
type RateCache interface {
	GetRate(ctx context.Context, key string) (*pricing.FXQuote, bool)
	SetRate(ctx context.Context, key string, quote pricing.FXQuote, ttl time.Duration)
}

// MemoryRateCache - кэш курсов внутри процесса.
type MemoryRateCache struct {
	cache *CacheService
}

func NewMemoryRateCache(cache *CacheService) *MemoryRateCache {
	return &MemoryRateCache{cache: cache}
}

func (m *MemoryRateCache) GetRate(_ context.Context, key string) (*pricing.FXQuote, bool) {
	v, ok := m.cache.Get(key)
	if !ok {
		return nil, false
	}
	quote, ok := v.(pricing.FXQuote)
	if !ok {
		return nil, false
	}
	return &quote, true
}

func (m *MemoryRateCache) SetRate(_ context.Context, key string, quote pricing.FXQuote, ttl time.Duration) {
	m.cache.Set(key, quote, ttl)
}

// RedisRateCache - общий для всех экземпляров кэш курсов.
// Ошибки redis не ломают расчёт: курс просто читается из базы.
type RedisRateCache struct {
	rc *redis.Client
}

func NewRedisRateCache(rc *redis.Client) *RedisRateCache {
	return &RedisRateCache{rc: rc}
}

func (r *RedisRateCache) GetRate(ctx context.Context, key string) (*pricing.FXQuote, bool) {
	bs, err := r.rc.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Log.WithError(err).Warn("redis: не удалось прочитать курс")
		}
		return nil, false
	}
	var quote pricing.FXQuote
	if err := json.Unmarshal(bs, &quote); err != nil {
		return nil, false
	}
	return &quote, true
}

func (r *RedisRateCache) SetRate(ctx context.Context, key string, quote pricing.FXQuote, ttl time.Duration) {
	bs, err := json.Marshal(quote)
	if err != nil {
		return
	}
	if err := r.rc.Set(ctx, key, bs, ttl).Err(); err != nil {
		logger.Log.WithError(err).Warn("redis: не удалось сохранить курс")
	}
}
