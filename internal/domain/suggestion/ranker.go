package suggestion

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/platewise/v2/internal/domain/meal"
)

// RankContext carries the per-request signals the ranker combines with
// availability scores. All sets are read-only during ranking.
type RankContext struct {
	// Favorites holds the user's favorite meal IDs.
	Favorites map[uuid.UUID]struct{}

	// PreferredKitchens holds kitchens the user marked as preferred.
	PreferredKitchens map[uuid.UUID]struct{}

	// RequestedMealType is the slot the user asked for; empty means no
	// meal-type preference and no candidate earns the match bonus.
	RequestedMealType meal.MealType

	// LastSuggested maps meal ID to its most recent suggestion time
	// within the recency window, for penalty decay.
	LastSuggested map[uuid.UUID]time.Time

	Now time.Time
}

// Ranker orders candidates by the configured weighted combination of
// signals. Stateless and safe for concurrent use; all tuning comes from the
// immutable config snapshot it was built with.
type Ranker struct {
	cfg AlgorithmConfig
}

// NewRanker creates a ranker bound to one config snapshot.
func NewRanker(cfg AlgorithmConfig) *Ranker {
	return &Ranker{cfg: cfg}
}

// Rank sorts candidates by rank key descending and truncates to the
// configured maximum. Candidates are annotated with their favorite flag as
// a side effect so responses can display it.
//
// Ties resolve by higher availability score, then most recently created
// meal, then lexical meal ID. The order is total, so ranking is
// reproducible.
func (r *Ranker) Rank(candidates []Candidate, rctx RankContext) []Candidate {
	type keyed struct {
		cand Candidate
		key  float64
	}

	entries := make([]keyed, len(candidates))
	for i, c := range candidates {
		_, fav := rctx.Favorites[c.MealID]
		c.FavoriteBoost = fav
		entries[i] = keyed{cand: c, key: r.rankKey(c, rctx)}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].key != entries[j].key {
			return entries[i].key > entries[j].key
		}
		ci, cj := entries[i].cand, entries[j].cand
		if ci.Score != cj.Score {
			return ci.Score > cj.Score
		}
		if !ci.MealCreatedAt.Equal(cj.MealCreatedAt) {
			return ci.MealCreatedAt.After(cj.MealCreatedAt)
		}
		return ci.MealID.String() < cj.MealID.String()
	})

	limit := len(entries)
	if max := r.cfg.Limits.MaxSuggestions; max > 0 && limit > max {
		limit = max
	}

	ranked := make([]Candidate, limit)
	for i := 0; i < limit; i++ {
		ranked[i] = entries[i].cand
	}
	return ranked
}

// rankKey combines the four boost signals minus the recency penalty.
func (r *Ranker) rankKey(c Candidate, rctx RankContext) float64 {
	w := r.cfg.Weights

	key := w.AvailabilityScore * c.Score / 100

	if c.FavoriteBoost {
		key += w.FavoriteBoost
	}
	if _, ok := rctx.PreferredKitchens[c.KitchenID]; ok {
		key += w.KitchenPreference
	}
	if rctx.RequestedMealType != "" && c.MealType == rctx.RequestedMealType {
		key += w.MealTypeMatch
	}

	key -= w.RecencyPenalty * r.recencyPenalty(c.MealID, rctx)

	return key
}

// recencyPenalty decays linearly from 1 (suggested just now) to 0 at the
// edge of the recency window. Meals with no recent suggestion cost nothing.
func (r *Ranker) recencyPenalty(mealID uuid.UUID, rctx RankContext) float64 {
	suggestedAt, ok := rctx.LastSuggested[mealID]
	if !ok {
		return 0
	}

	window := time.Duration(r.cfg.Limits.RecentExclusionDays) * 24 * time.Hour
	if window <= 0 {
		return 0
	}

	age := rctx.Now.Sub(suggestedAt)
	if age < 0 {
		age = 0
	}
	if age >= window {
		return 0
	}
	return 1 - float64(age)/float64(window)
}
