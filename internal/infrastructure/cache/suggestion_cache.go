package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/platewise/v2/internal/ports/outbound"
)

var (
	cacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "platewise",
		Subsystem: "suggestion_cache",
		Name:      "requests_total",
		Help:      "Suggestion cache lookups by outcome",
	}, []string{"outcome"}) // hit, miss, shared, bypass_error

	cacheComputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "platewise",
		Subsystem: "suggestion_cache",
		Name:      "compute_duration_seconds",
		Help:      "Time spent computing suggestion entries on cache miss",
		Buckets:   prometheus.DefBuckets,
	})

	cacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "platewise",
		Subsystem: "suggestion_cache",
		Name:      "invalidations_total",
		Help:      "User-level cache invalidations",
	})
)

// inflightCall tracks one in-progress compute so concurrent requests for
// the same key share a single pipeline run.
type inflightCall struct {
	done  chan struct{}
	entry *outbound.SuggestionCacheEntry
	err   error
}

// SuggestionCache memoizes scored suggestion results on a byte-oriented
// store. Staleness never needs a content check: the pantry fingerprint
// and config version are baked into the key, so any pantry edit or config
// publish routes to a fresh key and the old entry just ages out.
type SuggestionCache struct {
	store  outbound.CacheRepository
	keys   *KeyBuilder
	ttl    time.Duration
	logger *zap.Logger

	mu       sync.Mutex
	inflight map[string]*inflightCall
}

// NewSuggestionCache creates the suggestion cache on the given store.
func NewSuggestionCache(store outbound.CacheRepository, keys *KeyBuilder, ttl time.Duration, logger *zap.Logger) *SuggestionCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SuggestionCache{
		store:    store,
		keys:     keys,
		ttl:      ttl,
		logger:   logger.Named("suggestion-cache"),
		inflight: make(map[string]*inflightCall),
	}
}

// GetOrCompute returns the cached entry for the key or computes it,
// running compute at most once per key across concurrent callers. Store
// failures degrade to computing: a broken cache slows requests down, it
// never fails them.
func (c *SuggestionCache) GetOrCompute(
	ctx context.Context,
	key outbound.SuggestionCacheKey,
	compute func(context.Context) (*outbound.SuggestionCacheEntry, error),
) (*outbound.SuggestionCacheEntry, bool, error) {
	storageKey := c.keys.SuggestionKey(key)

	if entry := c.lookup(ctx, storageKey); entry != nil {
		cacheRequests.WithLabelValues("hit").Inc()
		return entry, true, nil
	}

	// Collapse concurrent computes for the same key.
	c.mu.Lock()
	if call, ok := c.inflight[storageKey]; ok {
		c.mu.Unlock()
		select {
		case <-call.done:
			if call.err != nil {
				return nil, false, call.err
			}
			cacheRequests.WithLabelValues("shared").Inc()
			return call.entry, true, nil
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
	call := &inflightCall{done: make(chan struct{})}
	c.inflight[storageKey] = call
	c.mu.Unlock()

	start := time.Now()
	entry, err := compute(ctx)
	cacheComputeDuration.Observe(time.Since(start).Seconds())

	call.entry, call.err = entry, err
	close(call.done)

	c.mu.Lock()
	delete(c.inflight, storageKey)
	c.mu.Unlock()

	if err != nil {
		cacheRequests.WithLabelValues("bypass_error").Inc()
		return nil, false, err
	}

	cacheRequests.WithLabelValues("miss").Inc()
	c.persist(ctx, storageKey, entry)
	return entry, false, nil
}

// InvalidateUser drops every cached entry for the user.
func (c *SuggestionCache) InvalidateUser(ctx context.Context, userID uuid.UUID) error {
	cacheInvalidations.Inc()
	return c.store.DeletePattern(ctx, c.keys.UserPattern(userID))
}

func (c *SuggestionCache) lookup(ctx context.Context, storageKey string) *outbound.SuggestionCacheEntry {
	data, err := c.store.Get(ctx, storageKey)
	if err != nil {
		if !errors.Is(err, outbound.ErrCacheMiss) {
			c.logger.Warn("Cache read failed, computing instead",
				zap.String("key", storageKey),
				zap.Error(err),
			)
		}
		return nil
	}

	var entry outbound.SuggestionCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Warn("Dropping undecodable cache entry",
			zap.String("key", storageKey),
			zap.Error(err),
		)
		_ = c.store.Delete(ctx, storageKey)
		return nil
	}
	return &entry
}

func (c *SuggestionCache) persist(ctx context.Context, storageKey string, entry *outbound.SuggestionCacheEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.Warn("Failed to encode cache entry", zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, storageKey, data, c.ttl); err != nil {
		c.logger.Warn("Cache write failed",
			zap.String("key", storageKey),
			zap.Error(err),
		)
	}
}
