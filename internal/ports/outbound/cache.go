package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/platewise/v2/internal/domain/suggestion"
)

// ErrCacheMiss reports that a key is absent or expired. Implementations
// return it from Get so callers can tell a miss from a transport failure.
var ErrCacheMiss = errors.New("cache: key not found")

// CacheRepository is a byte-oriented cache store. Implementations include
// the in-process LRU cache, the Redis client, and the tiered composite.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	DeletePattern(ctx context.Context, pattern string) error
}

// SuggestionCacheEntry is one memoized scoring result: the ranked
// candidates plus the stats needed to rebuild response metadata. The
// pantry fingerprint it was computed against rides along so staleness is
// detectable by content, not just by TTL.
type SuggestionCacheEntry struct {
	Candidates        []suggestion.Candidate   `json:"candidates"`
	Stats             suggestion.PipelineStats `json:"stats"`
	PantryFingerprint string                   `json:"pantry_fingerprint"`
	ConfigVersion     uint64                   `json:"config_version"`
	GeneratedAt       time.Time                `json:"generated_at"`
}

// SuggestionCacheKey identifies one memoized result. The pantry
// fingerprint is part of the key: a changed pantry can never serve a stale
// entry because it hashes to a different key, and the implementation
// eagerly drops entries recorded under the user's previous fingerprint.
type SuggestionCacheKey struct {
	UserID            uuid.UUID
	PantryFingerprint string
	FilterHash        string
	Mode              suggestion.Mode
	ConfigVersion     uint64
}

// SuggestionCache memoizes scored suggestion results.
type SuggestionCache interface {
	// GetOrCompute returns the cached entry for the key, or runs compute
	// exactly once per key across concurrent callers and caches its
	// result. hit reports whether the entry came from cache.
	GetOrCompute(ctx context.Context, key SuggestionCacheKey, compute func(context.Context) (*SuggestionCacheEntry, error)) (entry *SuggestionCacheEntry, hit bool, err error)

	// InvalidateUser drops every cached entry for the user, regardless
	// of fingerprint or filters. Used when feedback lands.
	InvalidateUser(ctx context.Context, userID uuid.UUID) error
}
