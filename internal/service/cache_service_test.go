package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *CacheService {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewCacheService(ctx, time.Hour)
}

func TestCacheService_Expiry(t *testing.T) {
	cs := newTestCache(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cs.now = func() time.Time { return now }

	cs.Set("k", 42, time.Minute)
	v, ok := cs.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	now = now.Add(2 * time.Minute)
	_, ok = cs.Get("k")
	assert.False(t, ok)

	cs.purgeExpired()
	cs.mu.RLock()
	assert.Empty(t, cs.cache)
	cs.mu.RUnlock()
}

func TestCacheService_InvalidateRubric(t *testing.T) {
	cs := newTestCache(t)
	cs.Set(ActiveRubricCacheKey(), "cfg", time.Minute)
	cs.Set(FXRateCacheKey("try", "eur"), 35.0, time.Minute)

	cs.InvalidateRubric()

	_, ok := cs.Get(ActiveRubricCacheKey())
	assert.False(t, ok)
	v, ok := cs.Get("fx:TRY:EUR")
	assert.True(t, ok)
	assert.Equal(t, 35.0, v)
}
