package suggestion_test

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platewise/v2/internal/domain/meal"
	"github.com/platewise/v2/internal/domain/pantry"
	"github.com/platewise/v2/internal/domain/suggestion"
	"github.com/platewise/v2/test/testutils"
)

func nearMiss(score float64, missingIngredients ...string) suggestion.Candidate {
	c := testutils.CandidateWithScore(uuid.New(), score)
	c.MatchType = suggestion.MatchPartial
	c.Reason = suggestion.ReasonPartialMatch
	for _, id := range missingIngredients {
		c.Missing = append(c.Missing, meal.IngredientRequirement{
			IngredientID: id,
			Quantity:     1,
			Status:       meal.StatusMandatory,
		})
	}
	return c
}

func TestAnalyzeUtilization_CountsUsedAndUnused(t *testing.T) {
	snap := pantry.NewSnapshot(uuid.New(), []string{"rice", "chicken", "kale"})
	defs := []meal.Definition{
		testutils.NewMealBuilder().WithMandatory("rice", "chicken").Build(),
		testutils.NewMealBuilder().WithMandatory("rice", "saffron").Build(),
	}

	report := suggestion.AnalyzeUtilization(defs, nil, snap)

	assert.Equal(t, 3, report.TotalIngredients)
	assert.Equal(t, 2, report.UsedIngredients)
	assert.Equal(t, []string{"kale"}, report.UnusedIngredients)
	assert.InDelta(t, 66.666, report.UtilizationPercentage, 0.01)
}

func TestAnalyzeUtilization_EmptyPantry(t *testing.T) {
	snap := pantry.NewSnapshot(uuid.New(), nil)

	report := suggestion.AnalyzeUtilization(nil, nil, snap)

	assert.Zero(t, report.TotalIngredients)
	assert.Zero(t, report.UsedIngredients)
	assert.Empty(t, report.UnusedIngredients)
	assert.Zero(t, report.UtilizationPercentage)
}

func TestAnalyzeUtilization_GapFromSingleMissingNearMiss(t *testing.T) {
	strong := nearMiss(70, "saffron")
	weak := nearMiss(55, "saffron")
	twoGaps := nearMiss(60, "saffron", "tofu")
	goodMatch := testutils.CandidateWithScore(uuid.New(), 80)
	goodMatch.Missing = []meal.IngredientRequirement{{IngredientID: "saffron", Status: meal.StatusOptional}}

	report := suggestion.AnalyzeUtilization(nil, []suggestion.Candidate{weak, strong, twoGaps, goodMatch}, pantry.NewSnapshot(uuid.New(), nil))

	require.Len(t, report.GapSuggestions, 1)
	gap := report.GapSuggestions[0]
	assert.Equal(t, "saffron", gap.IngredientID)
	// Ordered by score descending; the two-gap meal and the good match do
	// not qualify.
	assert.Equal(t, []uuid.UUID{strong.MealID, weak.MealID}, gap.MealIDs)
}

func TestAnalyzeUtilization_GapsOrderedByUnlockCount(t *testing.T) {
	candidates := []suggestion.Candidate{
		nearMiss(70, "tofu"),
		nearMiss(65, "saffron"),
		nearMiss(60, "saffron"),
	}

	report := suggestion.AnalyzeUtilization(nil, candidates, pantry.NewSnapshot(uuid.New(), nil))

	require.Len(t, report.GapSuggestions, 2)
	assert.Equal(t, "saffron", report.GapSuggestions[0].IngredientID)
	assert.Len(t, report.GapSuggestions[0].MealIDs, 2)
	assert.Equal(t, "tofu", report.GapSuggestions[1].IngredientID)
}

func TestAnalyzeUtilization_EqualUnlockCountOrdersLexically(t *testing.T) {
	candidates := []suggestion.Candidate{
		nearMiss(70, "tofu"),
		nearMiss(70, "saffron"),
	}

	report := suggestion.AnalyzeUtilization(nil, candidates, pantry.NewSnapshot(uuid.New(), nil))

	require.Len(t, report.GapSuggestions, 2)
	assert.Equal(t, "saffron", report.GapSuggestions[0].IngredientID)
	assert.Equal(t, "tofu", report.GapSuggestions[1].IngredientID)
}

func TestAnalyzeUtilization_CapsMealsPerGap(t *testing.T) {
	candidates := make([]suggestion.Candidate, 0, 7)
	for i := 0; i < 7; i++ {
		candidates = append(candidates, nearMiss(float64(50+i), "saffron"))
	}

	report := suggestion.AnalyzeUtilization(nil, candidates, pantry.NewSnapshot(uuid.New(), nil))

	require.Len(t, report.GapSuggestions, 1)
	assert.Len(t, report.GapSuggestions[0].MealIDs, 5, "gap lists are capped")
	// The cap keeps the highest-scoring unlocks.
	assert.Equal(t, candidates[6].MealID, report.GapSuggestions[0].MealIDs[0])
}

func TestAnalyzeUtilization_PoorNearMissesQualifyForGaps(t *testing.T) {
	poor := nearMiss(20, "saffron")
	poor.MatchType = suggestion.MatchPoor
	poor.Reason = suggestion.ReasonPoorMatch

	report := suggestion.AnalyzeUtilization(nil, []suggestion.Candidate{poor}, pantry.NewSnapshot(uuid.New(), nil))

	require.Len(t, report.GapSuggestions, 1)
	assert.Equal(t, []uuid.UUID{poor.MealID}, report.GapSuggestions[0].MealIDs)
}

func ExampleAnalyzeUtilization() {
	userID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	snap := pantry.NewSnapshot(userID, []string{"rice", "eggs"})
	defs := []meal.Definition{
		testutils.NewMealBuilder().WithMandatory("rice").Build(),
	}

	report := suggestion.AnalyzeUtilization(defs, nil, snap)
	fmt.Printf("%d/%d used, unused: %v\n", report.UsedIngredients, report.TotalIngredients, report.UnusedIngredients)
	// Output: 1/2 used, unused: [eggs]
}
