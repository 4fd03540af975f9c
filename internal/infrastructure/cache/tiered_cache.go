package cache

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/platewise/v2/internal/ports/outbound"
)

// TieredCache layers the in-process LRU cache in front of Redis. Reads go
// L1 then L2 and repopulate L1 on an L2 hit; writes and deletes go to
// both. An L2 failure degrades to L1-only behavior rather than failing
// the operation: the cache is an optimization, not a dependency.
type TieredCache struct {
	l1       *LocalCache
	l2       outbound.CacheRepository
	localTTL time.Duration
	logger   *zap.Logger
}

// NewTieredCache creates the two-tier composite. localTTL bounds how long
// an L1 copy may lag L2 deletes issued by other instances.
func NewTieredCache(l1 *LocalCache, l2 outbound.CacheRepository, localTTL time.Duration, logger *zap.Logger) *TieredCache {
	if localTTL <= 0 {
		localTTL = time.Minute
	}
	return &TieredCache{
		l1:       l1,
		l2:       l2,
		localTTL: localTTL,
		logger:   logger.Named("tiered-cache"),
	}
}

func (t *TieredCache) Get(ctx context.Context, key string) ([]byte, error) {
	if data, err := t.l1.Get(ctx, key); err == nil {
		return data, nil
	}

	data, err := t.l2.Get(ctx, key)
	if err != nil {
		if errors.Is(err, outbound.ErrCacheMiss) {
			return nil, outbound.ErrCacheMiss
		}
		t.logger.Warn("L2 cache read failed", zap.String("key", key), zap.Error(err))
		return nil, outbound.ErrCacheMiss
	}

	// Populate L1 for the next access. Capped at localTTL because the
	// remaining L2 TTL is unknown here.
	_ = t.l1.Set(ctx, key, data, t.localTTL)
	return data, nil
}

func (t *TieredCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	localTTL := t.localTTL
	if ttl < localTTL {
		localTTL = ttl
	}
	_ = t.l1.Set(ctx, key, value, localTTL)

	if err := t.l2.Set(ctx, key, value, ttl); err != nil {
		t.logger.Warn("L2 cache write failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

func (t *TieredCache) Delete(ctx context.Context, key string) error {
	_ = t.l1.Delete(ctx, key)
	if err := t.l2.Delete(ctx, key); err != nil {
		t.logger.Warn("L2 cache delete failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

func (t *TieredCache) Exists(ctx context.Context, key string) (bool, error) {
	if ok, _ := t.l1.Exists(ctx, key); ok {
		return true, nil
	}
	return t.l2.Exists(ctx, key)
}

func (t *TieredCache) DeletePattern(ctx context.Context, pattern string) error {
	_ = t.l1.DeletePattern(ctx, pattern)
	if err := t.l2.DeletePattern(ctx, pattern); err != nil {
		t.logger.Warn("L2 pattern delete failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}
