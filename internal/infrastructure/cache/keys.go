package cache

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/platewise/v2/internal/ports/outbound"
)

// keySchemaVersion bumps when the key layout changes, so old entries
// strand instead of deserializing into the wrong shape.
const keySchemaVersion = "v1"

// KeyBuilder assembles cache keys. All suggestion keys share a per-user
// segment so one pattern delete drops a user's entire cached surface.
type KeyBuilder struct {
	prefix string
}

// NewKeyBuilder creates a key builder with the configured prefix.
func NewKeyBuilder(prefix string) *KeyBuilder {
	if prefix == "" {
		prefix = "platewise:suggestions"
	}
	return &KeyBuilder{prefix: prefix}
}

// SuggestionKey builds the storage key for one memoized pipeline result.
// Pantry fingerprint and config version are part of the key, so a pantry
// edit or a config publish strands stale entries instead of serving them.
func (kb *KeyBuilder) SuggestionKey(key outbound.SuggestionCacheKey) string {
	return fmt.Sprintf("%s:%s:user:%s:pantry:%s:filters:%s:mode:%s:cfg:%d",
		kb.prefix,
		keySchemaVersion,
		key.UserID.String(),
		key.PantryFingerprint,
		key.FilterHash,
		key.Mode,
		key.ConfigVersion,
	)
}

// UserPattern matches every suggestion key belonging to one user.
func (kb *KeyBuilder) UserPattern(userID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:user:%s:*", kb.prefix, keySchemaVersion, userID.String())
}
