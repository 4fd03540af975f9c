package cache

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/platewise/v2/internal/domain/suggestion"
	"github.com/platewise/v2/internal/ports/outbound"
)

func sampleCacheKey(userID uuid.UUID) outbound.SuggestionCacheKey {
	return outbound.SuggestionCacheKey{
		UserID:            userID,
		PantryFingerprint: "abc123",
		FilterHash:        "f00d",
		Mode:              suggestion.ModeStrict,
		ConfigVersion:     4,
	}
}

func TestKeyBuilder_SuggestionKeyFormat(t *testing.T) {
	userID := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	kb := NewKeyBuilder("test:sugg")

	got := kb.SuggestionKey(sampleCacheKey(userID))

	want := "test:sugg:v1:user:11111111-2222-3333-4444-555555555555:pantry:abc123:filters:f00d:mode:strict:cfg:4"
	assert.Equal(t, want, got)
}

func TestKeyBuilder_EmptyPrefixUsesDefault(t *testing.T) {
	kb := NewKeyBuilder("")

	got := kb.SuggestionKey(sampleCacheKey(uuid.New()))

	assert.True(t, strings.HasPrefix(got, "platewise:suggestions:v1:"), "got %s", got)
}

func TestKeyBuilder_UserPatternCoversEveryUserKey(t *testing.T) {
	userID := uuid.New()
	kb := NewKeyBuilder("")

	pattern := kb.UserPattern(userID)
	prefix := strings.TrimSuffix(pattern, "*")

	// The invalidation contract: any key built for this user must match
	// the user pattern, whatever the fingerprint, filters, or version.
	for _, key := range []outbound.SuggestionCacheKey{
		sampleCacheKey(userID),
		{UserID: userID, PantryFingerprint: "other", Mode: suggestion.ModeLenient, ConfigVersion: 9},
	} {
		storageKey := kb.SuggestionKey(key)
		assert.True(t, matchesPattern(storageKey, pattern), "key %s escapes pattern %s", storageKey, pattern)
		assert.True(t, strings.HasPrefix(storageKey, prefix))
	}

	other := kb.SuggestionKey(sampleCacheKey(uuid.New()))
	assert.False(t, matchesPattern(other, pattern), "another user's key must not match")
}

func TestKeyBuilder_KeyChangesWithInputs(t *testing.T) {
	userID := uuid.New()
	kb := NewKeyBuilder("")
	base := sampleCacheKey(userID)

	fingerprint := base
	fingerprint.PantryFingerprint = "changed"
	assert.NotEqual(t, kb.SuggestionKey(base), kb.SuggestionKey(fingerprint),
		"a pantry edit must route to a fresh key")

	version := base
	version.ConfigVersion = 5
	assert.NotEqual(t, kb.SuggestionKey(base), kb.SuggestionKey(version),
		"a config publish must route to a fresh key")

	mode := base
	mode.Mode = suggestion.ModeLenient
	assert.NotEqual(t, kb.SuggestionKey(base), kb.SuggestionKey(mode))
}
