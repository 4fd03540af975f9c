package suggestion

import (
	"errors"
	"fmt"
)

// Weights are the ranking signal weights. They conceptually sum to 1.0 but
// only non-negativity is enforced; product tuning owns the balance.
type Weights struct {
	AvailabilityScore float64 `json:"availability_score"`
	FavoriteBoost     float64 `json:"favorite_boost"`
	KitchenPreference float64 `json:"kitchen_preference"`
	MealTypeMatch     float64 `json:"meal_type_match"`
	RecencyPenalty    float64 `json:"recency_penalty"`
}

// Thresholds are the score cut points for match classification, on the
// 0-100 score scale. Lower bounds are inclusive.
type Thresholds struct {
	PerfectMatch  float64 `json:"perfect_match"`
	GoodMatch     float64 `json:"good_match"`
	MinimumViable float64 `json:"minimum_viable"`
}

// Limits bound response sizes and the recency window.
type Limits struct {
	MaxSuggestions            int `json:"max_suggestions"`
	MaxMissingIngredients     int `json:"max_missing_ingredients"`
	RecentExclusionDays       int `json:"recent_exclusion_days"`
	MaxConsecutiveSuggestions int `json:"max_consecutive_suggestions"`
}

// ScoringWeights are the availability scorer's internal tier weights,
// separate from the ranker's Weights.
type ScoringWeights struct {
	Mandatory   float64 `json:"mandatory"`
	Recommended float64 `json:"recommended"`
	Optional    float64 `json:"optional"`
}

// AlgorithmConfig is one immutable snapshot of the engine's tuning. A
// request reads exactly one snapshot for its whole lifetime; hot reload
// publishes a new snapshot with a higher Version rather than mutating an
// existing one.
type AlgorithmConfig struct {
	Version    uint64         `json:"version"`
	Weights    Weights        `json:"weights"`
	Thresholds Thresholds     `json:"thresholds"`
	Limits     Limits         `json:"limits"`
	Scoring    ScoringWeights `json:"scoring"`
}

// DefaultAlgorithmConfig returns the production starting point. The ranking
// weights and thresholds are tuned values inherited from the previous
// deployment; treat them as configuration, not constants.
func DefaultAlgorithmConfig() AlgorithmConfig {
	return AlgorithmConfig{
		Version: 1,
		Weights: Weights{
			AvailabilityScore: 0.4,
			FavoriteBoost:     0.2,
			KitchenPreference: 0.15,
			MealTypeMatch:     0.15,
			RecencyPenalty:    0.1,
		},
		Thresholds: Thresholds{
			PerfectMatch:  95,
			GoodMatch:     75,
			MinimumViable: 50,
		},
		Limits: Limits{
			MaxSuggestions:            10,
			MaxMissingIngredients:     5,
			RecentExclusionDays:       7,
			MaxConsecutiveSuggestions: 3,
		},
		Scoring: ScoringWeights{
			Mandatory:   0.7,
			Recommended: 0.2,
			Optional:    0.1,
		},
	}
}

// Validate checks the snapshot before any scoring work may use it.
func (c AlgorithmConfig) Validate() error {
	for name, w := range map[string]float64{
		"availability_score": c.Weights.AvailabilityScore,
		"favorite_boost":     c.Weights.FavoriteBoost,
		"kitchen_preference": c.Weights.KitchenPreference,
		"meal_type_match":    c.Weights.MealTypeMatch,
		"recency_penalty":    c.Weights.RecencyPenalty,
	} {
		if w < 0 {
			return fmt.Errorf("weight %s is negative: %v", name, w)
		}
	}

	t := c.Thresholds
	if t.PerfectMatch < 0 || t.PerfectMatch > 100 ||
		t.GoodMatch < 0 || t.GoodMatch > 100 ||
		t.MinimumViable < 0 || t.MinimumViable > 100 {
		return errors.New("thresholds must be within [0,100]")
	}
	if !(t.PerfectMatch > t.GoodMatch && t.GoodMatch > t.MinimumViable) {
		return fmt.Errorf("threshold ordering violated: perfect (%v) > good (%v) > minimum_viable (%v) required",
			t.PerfectMatch, t.GoodMatch, t.MinimumViable)
	}

	l := c.Limits
	if l.MaxSuggestions <= 0 {
		return errors.New("max_suggestions must be positive")
	}
	if l.MaxMissingIngredients < 0 {
		return errors.New("max_missing_ingredients cannot be negative")
	}
	if l.RecentExclusionDays <= 0 {
		return errors.New("recent_exclusion_days must be positive")
	}
	if l.MaxConsecutiveSuggestions <= 0 {
		return errors.New("max_consecutive_suggestions must be positive")
	}

	s := c.Scoring
	if s.Mandatory < 0 || s.Recommended < 0 || s.Optional < 0 {
		return errors.New("scoring weights cannot be negative")
	}
	if s.Mandatory+s.Recommended+s.Optional <= 0 {
		return errors.New("scoring weights must sum to a positive value")
	}

	return nil
}
