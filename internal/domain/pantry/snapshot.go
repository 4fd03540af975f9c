// Package pantry defines the pantry snapshot value object consumed by the
// suggestion engine. A snapshot is the set of ingredient identifiers a user
// owns at request time; the engine never mutates it.
package pantry

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Snapshot is an immutable set of ingredient IDs owned by a single user.
// Construct with NewSnapshot; the zero value is an empty pantry.
type Snapshot struct {
	userID      uuid.UUID
	ingredients map[string]struct{}
	fingerprint string
}

// NewSnapshot builds a snapshot from raw ingredient IDs. Duplicates and
// blank entries are dropped; IDs are compared case-sensitively because the
// provider is the single source of canonical identifiers.
func NewSnapshot(userID uuid.UUID, ingredientIDs []string) Snapshot {
	set := make(map[string]struct{}, len(ingredientIDs))
	for _, id := range ingredientIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		set[id] = struct{}{}
	}

	return Snapshot{
		userID:      userID,
		ingredients: set,
		fingerprint: computeFingerprint(set),
	}
}

// UserID returns the owning user.
func (s Snapshot) UserID() uuid.UUID {
	return s.userID
}

// Contains reports whether the pantry holds the ingredient.
func (s Snapshot) Contains(ingredientID string) bool {
	_, ok := s.ingredients[ingredientID]
	return ok
}

// Size returns the number of distinct ingredients.
func (s Snapshot) Size() int {
	return len(s.ingredients)
}

// IsEmpty reports whether the pantry holds no ingredients.
func (s Snapshot) IsEmpty() bool {
	return len(s.ingredients) == 0
}

// IngredientIDs returns the ingredient IDs in sorted order. The slice is a
// copy; callers may keep it.
func (s Snapshot) IngredientIDs() []string {
	ids := make([]string, 0, len(s.ingredients))
	for id := range s.ingredients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Fingerprint returns a deterministic content hash of the pantry. Two
// snapshots with the same ingredient set produce the same fingerprint
// regardless of input order, which makes it usable as a cache-invalidation
// key: a changed pantry always changes the fingerprint.
func (s Snapshot) Fingerprint() string {
	if s.fingerprint == "" {
		return computeFingerprint(nil)
	}
	return s.fingerprint
}

func computeFingerprint(set map[string]struct{}) string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	h := sha256.New()
	for _, id := range ids {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
