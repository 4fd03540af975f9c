// Package gorm provides mapping between domain entities and GORM models
package gorm

import (
	"time"

	"github.com/platewise/v2/internal/domain/meal"
	"github.com/platewise/v2/internal/domain/suggestion"
)

// ModelToMeal converts a GORM model to a domain meal definition.
func ModelToMeal(m *MealModel) meal.Definition {
	reqs := make([]meal.IngredientRequirement, 0, len(m.Requirements))
	for _, rec := range m.Requirements {
		reqs = append(reqs, meal.IngredientRequirement{
			IngredientID: rec.IngredientID,
			Quantity:     rec.Quantity,
			Unit:         rec.Unit,
			Status:       meal.RequirementStatus(rec.Status),
		})
	}

	return meal.Definition{
		ID:           m.ID,
		KitchenID:    m.KitchenID,
		MealType:     meal.MealType(m.MealType),
		Requirements: reqs,
		IsPublic:     m.IsPublic,
		CreatedAt:    m.CreatedAt,
	}
}

// MealToModel converts a domain meal definition to its GORM model.
func MealToModel(d meal.Definition) *MealModel {
	recs := make(RequirementsField, 0, len(d.Requirements))
	for _, req := range d.Requirements {
		recs = append(recs, RequirementRecord{
			IngredientID: req.IngredientID,
			Quantity:     req.Quantity,
			Unit:         req.Unit,
			Status:       string(req.Status),
		})
	}

	return &MealModel{
		ID:           d.ID,
		KitchenID:    d.KitchenID,
		MealType:     string(d.MealType),
		Requirements: recs,
		IsPublic:     d.IsPublic,
		CreatedAt:    d.CreatedAt,
	}
}

// ModelToHistoryEntry converts a GORM history row to the domain entry.
func ModelToHistoryEntry(h *SuggestionHistoryModel) suggestion.HistoryEntry {
	var selectedAt *time.Time
	if h.SelectedAt != nil {
		t := *h.SelectedAt
		selectedAt = &t
	}
	return suggestion.HistoryEntry{
		MealID:      h.MealID,
		SuggestedAt: h.SuggestedAt,
		WasSelected: h.WasSelected,
		SelectedAt:  selectedAt,
	}
}
