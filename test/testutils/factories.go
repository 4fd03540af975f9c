// Package testutils provides test data factories, fluent builders, and
// provider mocks for consistent test data generation across the engine's
// test suites.
package testutils

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"github.com/platewise/v2/internal/domain/meal"
	"github.com/platewise/v2/internal/domain/pantry"
	"github.com/platewise/v2/internal/domain/suggestion"
)

// MealFactory creates meal definitions from a seeded faker so test data is
// reproducible across runs.
type MealFactory struct {
	faker *gofakeit.Faker
	seq   int
}

// NewMealFactory creates a meal factory with a seeded faker.
func NewMealFactory(seed int64) *MealFactory {
	return &MealFactory{
		faker: gofakeit.New(seed),
	}
}

// IngredientID returns a readable, unique ingredient identifier.
func (f *MealFactory) IngredientID() string {
	f.seq++
	return fmt.Sprintf("%s-%03d", f.faker.Vegetable(), f.seq)
}

// IngredientIDs returns n distinct ingredient identifiers.
func (f *MealFactory) IngredientIDs(n int) []string {
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, f.IngredientID())
	}
	return ids
}

// Definition creates a public dinner definition whose requirements cover the
// given ingredient IDs at the mandatory tier.
func (f *MealFactory) Definition(mandatory ...string) meal.Definition {
	return NewMealBuilder().WithMandatory(mandatory...).Build()
}

// Cookable creates a definition fully coverable by the given pantry: every
// requirement references an ingredient the snapshot contains.
func (f *MealFactory) Cookable(snap pantry.Snapshot) meal.Definition {
	ids := snap.IngredientIDs()
	if len(ids) == 0 {
		return NewMealBuilder().Build()
	}
	b := NewMealBuilder().WithMandatory(ids[0])
	if len(ids) > 1 {
		b = b.WithOptional(ids[1])
	}
	return b.Build()
}

// MealBuilder provides a fluent interface for building test meal definitions.
// The zero builder produces a valid public dinner with no requirements.
type MealBuilder struct {
	def meal.Definition
}

// NewMealBuilder creates a builder with sensible defaults.
func NewMealBuilder() *MealBuilder {
	return &MealBuilder{
		def: meal.Definition{
			ID:        uuid.New(),
			KitchenID: uuid.New(),
			MealType:  meal.TypeDinner,
			IsPublic:  true,
			CreatedAt: time.Now().UTC(),
		},
	}
}

// WithID sets the meal ID.
func (b *MealBuilder) WithID(id uuid.UUID) *MealBuilder {
	b.def.ID = id
	return b
}

// WithKitchen sets the owning kitchen.
func (b *MealBuilder) WithKitchen(kitchenID uuid.UUID) *MealBuilder {
	b.def.KitchenID = kitchenID
	return b
}

// WithMealType sets the meal slot.
func (b *MealBuilder) WithMealType(t meal.MealType) *MealBuilder {
	b.def.MealType = t
	return b
}

// WithCreatedAt sets the catalog creation time.
func (b *MealBuilder) WithCreatedAt(at time.Time) *MealBuilder {
	b.def.CreatedAt = at
	return b
}

// Private marks the meal as kitchen-private.
func (b *MealBuilder) Private() *MealBuilder {
	b.def.IsPublic = false
	return b
}

// WithRequirement appends a raw requirement.
func (b *MealBuilder) WithRequirement(req meal.IngredientRequirement) *MealBuilder {
	b.def.Requirements = append(b.def.Requirements, req)
	return b
}

// WithMandatory appends mandatory requirements for the given ingredients.
func (b *MealBuilder) WithMandatory(ingredientIDs ...string) *MealBuilder {
	return b.withTier(meal.StatusMandatory, ingredientIDs)
}

// WithRecommended appends recommended requirements for the given ingredients.
func (b *MealBuilder) WithRecommended(ingredientIDs ...string) *MealBuilder {
	return b.withTier(meal.StatusRecommended, ingredientIDs)
}

// WithOptional appends optional requirements for the given ingredients.
func (b *MealBuilder) WithOptional(ingredientIDs ...string) *MealBuilder {
	return b.withTier(meal.StatusOptional, ingredientIDs)
}

func (b *MealBuilder) withTier(status meal.RequirementStatus, ingredientIDs []string) *MealBuilder {
	for _, id := range ingredientIDs {
		b.def.Requirements = append(b.def.Requirements, meal.IngredientRequirement{
			IngredientID: id,
			Quantity:     1,
			Unit:         "unit",
			Status:       status,
		})
	}
	return b
}

// Build returns the assembled definition.
func (b *MealBuilder) Build() meal.Definition {
	return b.def
}

// PantryOf builds a snapshot for the user holding the given ingredients.
func PantryOf(userID uuid.UUID, ingredientIDs ...string) pantry.Snapshot {
	return pantry.NewSnapshot(userID, ingredientIDs)
}

// SuggestedEntry returns a history row for a meal that was suggested but
// never selected.
func SuggestedEntry(mealID uuid.UUID, at time.Time) suggestion.HistoryEntry {
	return suggestion.HistoryEntry{
		MealID:      mealID,
		SuggestedAt: at,
	}
}

// SelectedEntry returns a history row for a meal the user cooked, with the
// selection recorded at the suggestion time.
func SelectedEntry(mealID uuid.UUID, at time.Time) suggestion.HistoryEntry {
	selectedAt := at
	return suggestion.HistoryEntry{
		MealID:      mealID,
		SuggestedAt: at,
		WasSelected: true,
		SelectedAt:  &selectedAt,
	}
}

// CandidateWithScore returns a minimal scored candidate for ranker and
// selector tests. The match type is derived from nothing; set it explicitly
// when a test depends on it.
func CandidateWithScore(mealID uuid.UUID, score float64) suggestion.Candidate {
	return suggestion.Candidate{
		MealID:        mealID,
		KitchenID:     uuid.New(),
		MealType:      meal.TypeDinner,
		MealCreatedAt: time.Now().UTC(),
		Score:         score,
		MatchType:     suggestion.MatchGood,
		Reason:        suggestion.ReasonGoodMatch,
	}
}
