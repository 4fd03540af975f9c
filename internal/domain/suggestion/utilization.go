package suggestion

import (
	"sort"

	"github.com/google/uuid"

	"github.com/platewise/v2/internal/domain/meal"
	"github.com/platewise/v2/internal/domain/pantry"
)

// maxMealsPerGap caps how many meals a single gap suggestion lists; the
// point is "buying X unlocks these", not an exhaustive index.
const maxMealsPerGap = 5

// UtilizationReport summarizes how much of the pantry the eligible meal
// pool actually exercises.
type UtilizationReport struct {
	TotalIngredients      int             `json:"total_ingredients"`
	UsedIngredients       int             `json:"used_ingredients"`
	UnusedIngredients     []string        `json:"unused_ingredients"`
	UtilizationPercentage float64         `json:"utilization_percentage"`
	GapSuggestions        []GapSuggestion `json:"gap_suggestions,omitempty"`
}

// GapSuggestion names the meals a single missing ingredient is holding
// back: acquire the ingredient and these near-misses become cookable.
type GapSuggestion struct {
	IngredientID string      `json:"ingredient_id"`
	MealIDs      []uuid.UUID `json:"meal_ids"`
}

// AnalyzeUtilization reports pantry coverage over the candidate pool.
//
// An ingredient counts as used when any candidate meal's requirements
// reference it. Gap suggestions come from re-scanning the missing lists of
// near-miss (partial/poor) candidates for singletons: a meal missing
// exactly one ingredient becomes eligible the moment that ingredient is
// added.
func AnalyzeUtilization(defs []meal.Definition, candidates []Candidate, snap pantry.Snapshot) UtilizationReport {
	report := UtilizationReport{TotalIngredients: snap.Size()}

	used := make(map[string]struct{})
	for _, def := range defs {
		for _, req := range def.Requirements {
			if snap.Contains(req.IngredientID) {
				used[req.IngredientID] = struct{}{}
			}
		}
	}
	report.UsedIngredients = len(used)

	for _, id := range snap.IngredientIDs() {
		if _, ok := used[id]; !ok {
			report.UnusedIngredients = append(report.UnusedIngredients, id)
		}
	}

	if report.TotalIngredients > 0 {
		report.UtilizationPercentage = 100 * float64(report.UsedIngredients) / float64(report.TotalIngredients)
	}

	report.GapSuggestions = gapSuggestions(candidates)
	return report
}

// gapSuggestions groups single-ingredient-gap near misses by the missing
// ingredient. Ingredients unlocking more meals sort first; meal lists are
// ordered by score descending so the best unlock leads.
func gapSuggestions(candidates []Candidate) []GapSuggestion {
	type gapMeal struct {
		mealID uuid.UUID
		score  float64
	}

	gaps := make(map[string][]gapMeal)
	for _, c := range candidates {
		if c.MatchType != MatchPartial && c.MatchType != MatchPoor {
			continue
		}
		if len(c.Missing) != 1 {
			continue
		}
		ingredientID := c.Missing[0].IngredientID
		gaps[ingredientID] = append(gaps[ingredientID], gapMeal{mealID: c.MealID, score: c.Score})
	}

	suggestions := make([]GapSuggestion, 0, len(gaps))
	for ingredientID, meals := range gaps {
		sort.Slice(meals, func(i, j int) bool {
			if meals[i].score != meals[j].score {
				return meals[i].score > meals[j].score
			}
			return meals[i].mealID.String() < meals[j].mealID.String()
		})
		if len(meals) > maxMealsPerGap {
			meals = meals[:maxMealsPerGap]
		}

		ids := make([]uuid.UUID, len(meals))
		for i, m := range meals {
			ids[i] = m.mealID
		}
		suggestions = append(suggestions, GapSuggestion{IngredientID: ingredientID, MealIDs: ids})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if len(suggestions[i].MealIDs) != len(suggestions[j].MealIDs) {
			return len(suggestions[i].MealIDs) > len(suggestions[j].MealIDs)
		}
		return suggestions[i].IngredientID < suggestions[j].IngredientID
	})

	return suggestions
}
