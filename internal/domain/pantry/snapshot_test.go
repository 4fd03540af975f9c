package pantry

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewSnapshot_DedupesAndTrims(t *testing.T) {
	snap := NewSnapshot(uuid.New(), []string{"rice", " rice ", "", "beans", "rice"})

	assert.Equal(t, 2, snap.Size())
	assert.True(t, snap.Contains("rice"))
	assert.True(t, snap.Contains("beans"))
	assert.False(t, snap.Contains(""))
}

func TestSnapshot_ContainsIsCaseSensitive(t *testing.T) {
	snap := NewSnapshot(uuid.New(), []string{"rice"})

	assert.True(t, snap.Contains("rice"))
	assert.False(t, snap.Contains("Rice"))
}

func TestSnapshot_IngredientIDsSortedCopy(t *testing.T) {
	snap := NewSnapshot(uuid.New(), []string{"zucchini", "apple", "rice"})

	ids := snap.IngredientIDs()
	assert.Equal(t, []string{"apple", "rice", "zucchini"}, ids)

	ids[0] = "mutated"
	assert.True(t, snap.Contains("apple"), "returned slice must be a copy")
}

func TestSnapshot_UserID(t *testing.T) {
	userID := uuid.New()
	snap := NewSnapshot(userID, nil)

	assert.Equal(t, userID, snap.UserID())
	assert.True(t, snap.IsEmpty())
}

func TestSnapshot_FingerprintOrderIndependent(t *testing.T) {
	a := NewSnapshot(uuid.New(), []string{"rice", "beans", "kale"})
	b := NewSnapshot(uuid.New(), []string{"kale", "rice", "beans"})

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEmpty(t, a.Fingerprint())
}

func TestSnapshot_FingerprintChangesWithContent(t *testing.T) {
	a := NewSnapshot(uuid.New(), []string{"rice", "beans"})
	b := NewSnapshot(uuid.New(), []string{"rice", "beans", "kale"})

	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestSnapshot_ZeroValueActsEmpty(t *testing.T) {
	var zero Snapshot

	assert.True(t, zero.IsEmpty())
	assert.Zero(t, zero.Size())
	assert.False(t, zero.Contains("rice"))
	assert.Empty(t, zero.IngredientIDs())
	assert.Equal(t, NewSnapshot(uuid.Nil, nil).Fingerprint(), zero.Fingerprint(),
		"zero value and constructed empty snapshot must hash identically")
}
