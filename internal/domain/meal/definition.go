// Package meal defines the read-only meal catalog types the suggestion
// engine scores against. Definitions are owned by the catalog subsystem;
// the engine only reads them.
package meal

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RequirementStatus is the importance tier of an ingredient requirement.
type RequirementStatus string

const (
	StatusMandatory   RequirementStatus = "mandatory"
	StatusRecommended RequirementStatus = "recommended"
	StatusOptional    RequirementStatus = "optional"
)

// Validate reports whether the status is a known tier.
func (s RequirementStatus) Validate() error {
	switch s {
	case StatusMandatory, StatusRecommended, StatusOptional:
		return nil
	default:
		return fmt.Errorf("unknown requirement status %q", string(s))
	}
}

// MealType is the slot a meal is intended for.
type MealType string

const (
	TypeBreakfast MealType = "breakfast"
	TypeLunch     MealType = "lunch"
	TypeDinner    MealType = "dinner"
)

// Validate reports whether the meal type is a known slot.
func (t MealType) Validate() error {
	switch t {
	case TypeBreakfast, TypeLunch, TypeDinner:
		return nil
	default:
		return fmt.Errorf("unknown meal type %q", string(t))
	}
}

// IngredientRequirement binds one ingredient to one meal definition with an
// importance tier. Quantity and unit travel through for display; the engine
// matches on IngredientID and Status only.
type IngredientRequirement struct {
	IngredientID string            `json:"ingredient_id"`
	Quantity     float64           `json:"quantity"`
	Unit         string            `json:"unit"`
	Status       RequirementStatus `json:"status"`
}

// Validate validates the requirement.
func (r IngredientRequirement) Validate() error {
	if r.IngredientID == "" {
		return errors.New("ingredient id is required")
	}
	if r.Quantity < 0 {
		return errors.New("quantity cannot be negative")
	}
	return r.Status.Validate()
}

// Definition is one candidate meal as served by the catalog provider.
type Definition struct {
	ID           uuid.UUID               `json:"id"`
	KitchenID    uuid.UUID               `json:"kitchen_id"`
	MealType     MealType                `json:"meal_type"`
	Requirements []IngredientRequirement `json:"requirements"`
	IsPublic     bool                    `json:"is_public"`
	CreatedAt    time.Time               `json:"created_at"`
}

// Validate validates the definition and every requirement on it.
func (d Definition) Validate() error {
	if d.ID == uuid.Nil {
		return errors.New("meal id is required")
	}
	if err := d.MealType.Validate(); err != nil {
		return err
	}
	for i, req := range d.Requirements {
		if err := req.Validate(); err != nil {
			return fmt.Errorf("requirement %d: %w", i, err)
		}
	}
	return nil
}

// RequirementCounts is the per-tier breakdown of a definition's
// requirements, used by the availability scorer.
type RequirementCounts struct {
	Mandatory   int
	Recommended int
	Optional    int
}

// Total returns the requirement count across all tiers.
func (c RequirementCounts) Total() int {
	return c.Mandatory + c.Recommended + c.Optional
}

// CountRequirements tallies the definition's requirements by tier. Unknown
// tiers are counted as mandatory so malformed catalog rows fail safe
// (they can only make a meal harder to match, never easier).
func (d Definition) CountRequirements() RequirementCounts {
	var counts RequirementCounts
	for _, req := range d.Requirements {
		switch req.Status {
		case StatusRecommended:
			counts.Recommended++
		case StatusOptional:
			counts.Optional++
		default:
			counts.Mandatory++
		}
	}
	return counts
}
