package suggestion_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platewise/v2/internal/domain/meal"
	"github.com/platewise/v2/internal/domain/suggestion"
	"github.com/platewise/v2/test/testutils"
)

var rankNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func emptyRankContext() suggestion.RankContext {
	return suggestion.RankContext{Now: rankNow}
}

func TestRanker_OrdersByScoreDescending(t *testing.T) {
	low := testutils.CandidateWithScore(uuid.New(), 50)
	high := testutils.CandidateWithScore(uuid.New(), 90)
	mid := testutils.CandidateWithScore(uuid.New(), 70)

	ranker := suggestion.NewRanker(suggestion.DefaultAlgorithmConfig())
	ranked := ranker.Rank([]suggestion.Candidate{low, high, mid}, emptyRankContext())

	require.Len(t, ranked, 3)
	assert.Equal(t, []uuid.UUID{high.MealID, mid.MealID, low.MealID}, testutils.MealIDs(ranked))
	testutils.AssertDescendingScores(t, ranked)
}

func TestRanker_FavoriteOutranksEqualScore(t *testing.T) {
	plain := testutils.CandidateWithScore(uuid.New(), 80)
	favorite := testutils.CandidateWithScore(uuid.New(), 80)

	rctx := emptyRankContext()
	rctx.Favorites = map[uuid.UUID]struct{}{favorite.MealID: {}}

	ranker := suggestion.NewRanker(suggestion.DefaultAlgorithmConfig())
	ranked := ranker.Rank([]suggestion.Candidate{plain, favorite}, rctx)

	require.Len(t, ranked, 2)
	assert.Equal(t, favorite.MealID, ranked[0].MealID)
	assert.True(t, ranked[0].FavoriteBoost)
	assert.False(t, ranked[1].FavoriteBoost)
}

func TestRanker_FavoriteBoostOutweighsSmallScoreGap(t *testing.T) {
	// Keys with defaults: favorite 0.4*0.80+0.2 = 0.52, plain 0.4*0.90 = 0.36.
	favorite := testutils.CandidateWithScore(uuid.New(), 80)
	plain := testutils.CandidateWithScore(uuid.New(), 90)

	rctx := emptyRankContext()
	rctx.Favorites = map[uuid.UUID]struct{}{favorite.MealID: {}}

	ranked := suggestion.NewRanker(suggestion.DefaultAlgorithmConfig()).
		Rank([]suggestion.Candidate{plain, favorite}, rctx)

	assert.Equal(t, favorite.MealID, ranked[0].MealID)
}

func TestRanker_PreferredKitchenBoost(t *testing.T) {
	preferred := testutils.CandidateWithScore(uuid.New(), 80)
	other := testutils.CandidateWithScore(uuid.New(), 80)

	rctx := emptyRankContext()
	rctx.PreferredKitchens = map[uuid.UUID]struct{}{preferred.KitchenID: {}}

	ranked := suggestion.NewRanker(suggestion.DefaultAlgorithmConfig()).
		Rank([]suggestion.Candidate{other, preferred}, rctx)

	assert.Equal(t, preferred.MealID, ranked[0].MealID)
}

func TestRanker_MealTypeBonusRequiresRequestedType(t *testing.T) {
	dinner := testutils.CandidateWithScore(uuid.New(), 80)
	dinner.MealType = meal.TypeDinner
	lunch := testutils.CandidateWithScore(uuid.New(), 80)
	lunch.MealType = meal.TypeLunch
	// Newer creation time so lunch wins the tie when no bonus applies.
	lunch.MealCreatedAt = dinner.MealCreatedAt.Add(time.Hour)

	ranker := suggestion.NewRanker(suggestion.DefaultAlgorithmConfig())

	rctx := emptyRankContext()
	rctx.RequestedMealType = meal.TypeDinner
	ranked := ranker.Rank([]suggestion.Candidate{lunch, dinner}, rctx)
	assert.Equal(t, dinner.MealID, ranked[0].MealID, "requested type should earn the bonus")

	ranked = ranker.Rank([]suggestion.Candidate{lunch, dinner}, emptyRankContext())
	assert.Equal(t, lunch.MealID, ranked[0].MealID, "no requested type, tie falls to newer meal")
}

func TestRanker_RecencyPenaltyDecaysLinearly(t *testing.T) {
	fresh := testutils.CandidateWithScore(uuid.New(), 80)
	halfway := testutils.CandidateWithScore(uuid.New(), 80)
	justNow := testutils.CandidateWithScore(uuid.New(), 80)

	rctx := emptyRankContext()
	rctx.LastSuggested = map[uuid.UUID]time.Time{
		justNow.MealID: rankNow,
		// Half the 7-day window ago: penalty 0.5.
		halfway.MealID: rankNow.Add(-7 * 12 * time.Hour),
	}

	ranked := suggestion.NewRanker(suggestion.DefaultAlgorithmConfig()).
		Rank([]suggestion.Candidate{justNow, halfway, fresh}, rctx)

	assert.Equal(t, []uuid.UUID{fresh.MealID, halfway.MealID, justNow.MealID}, testutils.MealIDs(ranked))
}

func TestRanker_SuggestionOutsideWindowCostsNothing(t *testing.T) {
	stale := testutils.CandidateWithScore(uuid.New(), 80)
	fresh := testutils.CandidateWithScore(uuid.New(), 80)
	// Same creation time so only the penalty could separate them; fresh has
	// a newer meal so it wins the tie if keys are equal.
	stale.MealCreatedAt = rankNow.Add(-48 * time.Hour)
	fresh.MealCreatedAt = rankNow.Add(-24 * time.Hour)

	rctx := emptyRankContext()
	rctx.LastSuggested = map[uuid.UUID]time.Time{
		stale.MealID: rankNow.Add(-8 * 24 * time.Hour),
	}

	ranked := suggestion.NewRanker(suggestion.DefaultAlgorithmConfig()).
		Rank([]suggestion.Candidate{stale, fresh}, rctx)

	// Both keys equal: the 8-day-old suggestion is outside the 7-day window.
	assert.Equal(t, fresh.MealID, ranked[0].MealID)
	assert.Equal(t, stale.MealID, ranked[1].MealID)
}

func TestRanker_TieBreak_HigherScoreFirst(t *testing.T) {
	cfg := suggestion.DefaultAlgorithmConfig()
	// Zero out the availability weight so both candidates key to 0 and the
	// tie-break chain decides.
	cfg.Weights.AvailabilityScore = 0

	strong := testutils.CandidateWithScore(uuid.New(), 90)
	weak := testutils.CandidateWithScore(uuid.New(), 60)

	ranked := suggestion.NewRanker(cfg).Rank([]suggestion.Candidate{weak, strong}, emptyRankContext())

	assert.Equal(t, strong.MealID, ranked[0].MealID)
}

func TestRanker_TieBreak_LexicalMealID(t *testing.T) {
	createdAt := rankNow.Add(-time.Hour)
	first := testutils.CandidateWithScore(uuid.MustParse("00000000-0000-0000-0000-000000000001"), 80)
	second := testutils.CandidateWithScore(uuid.MustParse("00000000-0000-0000-0000-000000000002"), 80)
	first.MealCreatedAt = createdAt
	second.MealCreatedAt = createdAt

	ranked := suggestion.NewRanker(suggestion.DefaultAlgorithmConfig()).
		Rank([]suggestion.Candidate{second, first}, emptyRankContext())

	assert.Equal(t, first.MealID, ranked[0].MealID)
}

func TestRanker_TruncatesToMaxSuggestions(t *testing.T) {
	cfg := suggestion.DefaultAlgorithmConfig()
	cfg.Limits.MaxSuggestions = 2

	candidates := []suggestion.Candidate{
		testutils.CandidateWithScore(uuid.New(), 40),
		testutils.CandidateWithScore(uuid.New(), 90),
		testutils.CandidateWithScore(uuid.New(), 70),
		testutils.CandidateWithScore(uuid.New(), 55),
	}

	ranked := suggestion.NewRanker(cfg).Rank(candidates, emptyRankContext())

	require.Len(t, ranked, 2)
	assert.Equal(t, 90.0, ranked[0].Score)
	assert.Equal(t, 70.0, ranked[1].Score)
}

func TestRanker_InputSliceNotMutated(t *testing.T) {
	favorite := testutils.CandidateWithScore(uuid.New(), 80)
	candidates := []suggestion.Candidate{favorite}

	rctx := emptyRankContext()
	rctx.Favorites = map[uuid.UUID]struct{}{favorite.MealID: {}}

	ranked := suggestion.NewRanker(suggestion.DefaultAlgorithmConfig()).Rank(candidates, rctx)

	assert.True(t, ranked[0].FavoriteBoost)
	assert.False(t, candidates[0].FavoriteBoost, "annotation must not leak into the caller's slice")
}

func BenchmarkRanker_Rank(b *testing.B) {
	candidates := make([]suggestion.Candidate, 100)
	favorites := make(map[uuid.UUID]struct{})
	lastSuggested := make(map[uuid.UUID]time.Time)
	for i := range candidates {
		candidates[i] = testutils.CandidateWithScore(uuid.New(), float64(i))
		if i%5 == 0 {
			favorites[candidates[i].MealID] = struct{}{}
		}
		if i%3 == 0 {
			lastSuggested[candidates[i].MealID] = rankNow.Add(-time.Duration(i) * time.Hour)
		}
	}
	rctx := suggestion.RankContext{
		Favorites:     favorites,
		LastSuggested: lastSuggested,
		Now:           rankNow,
	}
	ranker := suggestion.NewRanker(suggestion.DefaultAlgorithmConfig())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ranker.Rank(candidates, rctx)
	}
}
