// Package suggestion contains the matching and ranking core of the engine:
// availability scoring, match classification, recency exclusion, ranking,
// random selection, and pantry utilization analysis. Everything in this
// package is pure computation over in-memory snapshots; providers, caching,
// and transport live elsewhere.
package suggestion

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/platewise/v2/internal/domain/meal"
)

// MatchType is the discrete tier a scored candidate falls into.
type MatchType string

const (
	MatchPerfect MatchType = "perfect"
	MatchGood    MatchType = "good"
	MatchPartial MatchType = "partial"
	MatchPoor    MatchType = "poor"
)

// Validate reports whether the match type is a known tier.
func (m MatchType) Validate() error {
	switch m {
	case MatchPerfect, MatchGood, MatchPartial, MatchPoor:
		return nil
	default:
		return fmt.Errorf("unknown match type %q", string(m))
	}
}

// Reason is the displayable explanation paired with a match type.
type Reason string

const (
	ReasonPerfectMatch Reason = "perfect_match"
	ReasonGoodMatch    Reason = "good_match"
	ReasonPartialMatch Reason = "partial_match"
	ReasonPoorMatch    Reason = "poor_match"
)

// Mode controls how missing mandatory ingredients are treated.
type Mode string

const (
	// ModeStrict disqualifies a meal outright when any mandatory
	// ingredient is absent.
	ModeStrict Mode = "strict"
	// ModeLenient penalizes missing mandatory ingredients heavily but
	// keeps the meal in the pool.
	ModeLenient Mode = "lenient"
)

// Validate reports whether the mode is known.
func (m Mode) Validate() error {
	switch m {
	case ModeStrict, ModeLenient:
		return nil
	default:
		return fmt.Errorf("unknown scoring mode %q", string(m))
	}
}

// SelectionMode controls random meal drawing.
type SelectionMode string

const (
	SelectionPureRandom     SelectionMode = "pure_random"
	SelectionWeightedRandom SelectionMode = "weighted_random"
)

// Validate reports whether the selection mode is known.
func (s SelectionMode) Validate() error {
	switch s {
	case SelectionPureRandom, SelectionWeightedRandom:
		return nil
	default:
		return fmt.Errorf("unknown selection mode %q", string(s))
	}
}

// Candidate is one scored meal. Candidates are derived per request and
// never persisted; the meal fields are copied in so ranking and display
// need no second catalog lookup.
type Candidate struct {
	MealID        uuid.UUID                    `json:"meal_id"`
	KitchenID     uuid.UUID                    `json:"kitchen_id"`
	MealType      meal.MealType                `json:"meal_type"`
	MealCreatedAt time.Time                    `json:"meal_created_at"`
	Score         float64                      `json:"availability_score"`
	Missing       []meal.IngredientRequirement `json:"missing_ingredients,omitempty"`

	// MissingMandatory is the count of absent mandatory requirements,
	// kept separate because classification depends on it.
	MissingMandatory int `json:"missing_mandatory"`

	MatchType MatchType `json:"match_type"`
	Reason    Reason    `json:"suggestion_reason"`

	FavoriteBoost bool `json:"favorite_boost"`

	// RecencyExcluded marks candidates that the exclusion policy removed
	// and the pool-size fallback relaxed back in.
	RecencyExcluded bool `json:"recency_excluded"`

	// Vacuous marks a zero-requirement meal (scores 100 by definition).
	// The application layer logs these as catalog data errors.
	Vacuous bool `json:"-"`
}

// HistoryEntry is one row of a user's suggestion history, read from the
// history provider over a recent window.
type HistoryEntry struct {
	MealID      uuid.UUID  `json:"meal_id"`
	SuggestedAt time.Time  `json:"suggested_at"`
	WasSelected bool       `json:"was_selected"`
	SelectedAt  *time.Time `json:"selected_at,omitempty"`
}

// PipelineStats counts what each pipeline stage removed, so every response
// can explain why the candidate set has the size it has. A caller must be
// able to tell "nothing matched" apart from "everything was filtered out
// by policy".
type PipelineStats struct {
	TotalCandidates      int  `json:"total_candidates"`
	EligibleCandidates   int  `json:"eligible_candidates"`
	ExcludedByStrictness int  `json:"excluded_by_strictness"`
	ExcludedByRecency    int  `json:"excluded_by_recency"`
	ExcludedByThreshold  int  `json:"excluded_by_threshold"`
	RelaxedExclusions    int  `json:"relaxed_exclusions"`
	EmptyCatalog         bool `json:"empty_catalog,omitempty"`
}
