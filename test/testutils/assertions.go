// Suggestion-specific assertion helpers shared by the domain, application,
// and integration suites.
package testutils

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/platewise/v2/pkg/errors"

	"github.com/platewise/v2/internal/domain/meal"
	"github.com/platewise/v2/internal/domain/suggestion"
)

// AssertDescendingScores fails unless candidate scores never increase from
// one position to the next.
func AssertDescendingScores(t *testing.T, candidates []suggestion.Candidate) {
	t.Helper()
	for i := 1; i < len(candidates); i++ {
		assert.GreaterOrEqual(t, candidates[i-1].Score, candidates[i].Score,
			"candidate %d (score %.2f) ranked below candidate %d (score %.2f)",
			i-1, candidates[i-1].Score, i, candidates[i].Score)
	}
}

// AssertUniqueMeals fails when the same meal appears twice.
func AssertUniqueMeals(t *testing.T, candidates []suggestion.Candidate) {
	t.Helper()
	seen := make(map[uuid.UUID]struct{}, len(candidates))
	for _, c := range candidates {
		if _, dup := seen[c.MealID]; dup {
			t.Errorf("meal %s appears more than once in the result", c.MealID)
		}
		seen[c.MealID] = struct{}{}
	}
}

// AssertViable fails when any candidate carries a non-viable match type.
func AssertViable(t *testing.T, candidates []suggestion.Candidate) {
	t.Helper()
	for _, c := range candidates {
		assert.True(t, suggestion.Viable(c.MatchType),
			"meal %s has non-viable match type %s", c.MealID, c.MatchType)
	}
}

// MealIDs projects the candidates to their meal IDs, preserving order.
func MealIDs(candidates []suggestion.Candidate) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.MealID)
	}
	return ids
}

// MealDefinitionIDs projects catalog definitions to their IDs, preserving
// order.
func MealDefinitionIDs(defs []meal.Definition) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(defs))
	for _, def := range defs {
		ids = append(ids, def.ID)
	}
	return ids
}

// RequireErrorCode fails unless err is an application error carrying the
// expected code.
func RequireErrorCode(t *testing.T, err error, code apperrors.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr), "expected *errors.AppError, got %T: %v", err, err)
	require.Equal(t, code, appErr.Code, "unexpected error code, message: %s", appErr.Message)
}
