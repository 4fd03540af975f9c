// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the interfaces that the application exposes to the outside world
package inbound

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/platewise/v2/internal/domain/meal"
	"github.com/platewise/v2/internal/domain/suggestion"
)

// SuggestionService is the engine's primary port. HTTP handlers and other
// driving adapters talk to the engine exclusively through it.
type SuggestionService interface {
	// GenerateSuggestions scores, filters, excludes, and ranks the
	// user's candidate meals into an ordered suggestion list.
	GenerateSuggestions(ctx context.Context, req SuggestionRequest) (*SuggestionResponse, error)

	// GetRandomMeals draws meals from the eligible pool using plain or
	// score-weighted sampling without replacement.
	GetRandomMeals(ctx context.Context, req RandomMealRequest) (*RandomMealResponse, error)

	// GetPantryBasedSuggestions reports pantry utilization alongside
	// lenient suggestions and near-miss meals.
	GetPantryBasedSuggestions(ctx context.Context, req PantryBasedSuggestionRequest) (*PantryBasedSuggestionResponse, error)

	// RecordSuggestionFeedback forwards a suggestion outcome to the
	// history provider and invalidates the user's cached suggestions.
	RecordSuggestionFeedback(ctx context.Context, feedback SuggestionFeedback) error
}

// SuggestionFilters narrow the candidate catalog before scoring. The
// catalog provider applies them; contradictory values are rejected as
// invalid filters before any fetch happens.
type SuggestionFilters struct {
	KitchenID         *uuid.UUID    `json:"kitchen_id,omitempty"`
	MealType          meal.MealType `json:"meal_type,omitempty" validate:"omitempty,oneof=breakfast lunch dinner"`
	PreferredKitchens []uuid.UUID   `json:"preferred_kitchens,omitempty"`
	IncludePrivate    bool          `json:"include_private,omitempty"`
}

// SuggestionRequest asks for a ranked suggestion list.
type SuggestionRequest struct {
	UserID      uuid.UUID         `json:"user_id" validate:"required"`
	Filters     SuggestionFilters `json:"filters"`
	Mode        suggestion.Mode   `json:"mode,omitempty" validate:"omitempty,oneof=strict lenient"`
	MaxResults  int               `json:"max_results,omitempty" validate:"omitempty,min=1,max=100"`
	BypassCache bool              `json:"bypass_cache,omitempty"`
}

// SuggestionMetadata explains the shape of a response. Every response,
// including empty ones, carries it.
type SuggestionMetadata struct {
	suggestion.PipelineStats

	CacheHit      bool      `json:"cache_hit"`
	ConfigVersion uint64    `json:"config_version"`
	GeneratedAt   time.Time `json:"generated_at"`
	ElapsedMs     int64     `json:"elapsed_ms"`
}

// SuggestionResponse is the ranked suggestion list plus its explanation.
type SuggestionResponse struct {
	Suggestions []suggestion.Candidate `json:"suggestions"`
	Metadata    SuggestionMetadata     `json:"metadata"`
}

// RandomMealRequest asks for K randomly drawn meals.
type RandomMealRequest struct {
	UserID    uuid.UUID                `json:"user_id" validate:"required"`
	Count     int                      `json:"count,omitempty" validate:"omitempty,min=1,max=50"`
	Selection suggestion.SelectionMode `json:"selection,omitempty" validate:"omitempty,oneof=pure_random weighted_random"`
	Mode      suggestion.Mode          `json:"mode,omitempty" validate:"omitempty,oneof=strict lenient"`
	Filters   SuggestionFilters        `json:"filters"`

	// Seed pins the random draw for reproducibility; nil draws a fresh
	// seed per request.
	Seed *int64 `json:"seed,omitempty"`
}

// RandomMealResponse carries the drawn meals.
type RandomMealResponse struct {
	Meals    []suggestion.Candidate `json:"meals"`
	Metadata SuggestionMetadata     `json:"metadata"`
}

// PantryBasedSuggestionRequest asks what the pantry can make and what it
// is close to making. Scoring is always lenient here: near misses are the
// point of this view.
type PantryBasedSuggestionRequest struct {
	UserID  uuid.UUID         `json:"user_id" validate:"required"`
	Filters SuggestionFilters `json:"filters"`
}

// PantryBasedSuggestionResponse pairs suggestions with the utilization
// analysis and the near-miss pool that informed the gap suggestions.
type PantryBasedSuggestionResponse struct {
	Suggestions []suggestion.Candidate       `json:"suggestions"`
	NearMisses  []suggestion.Candidate       `json:"near_misses,omitempty"`
	Utilization suggestion.UtilizationReport `json:"utilization"`
	Metadata    SuggestionMetadata           `json:"metadata"`
}

// SuggestionFeedback records whether the user acted on a suggestion.
type SuggestionFeedback struct {
	UserID      uuid.UUID `json:"user_id" validate:"required"`
	MealID      uuid.UUID `json:"meal_id" validate:"required"`
	WasSelected bool      `json:"was_selected"`

	// OccurredAt defaults to the server clock when zero.
	OccurredAt time.Time `json:"occurred_at,omitempty"`
}
