// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces the engine needs other subsystems to implement
package outbound

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/platewise/v2/internal/domain/meal"
	"github.com/platewise/v2/internal/domain/pantry"
	"github.com/platewise/v2/internal/domain/suggestion"
)

// CatalogFilters narrow the candidate meals the catalog provider returns.
// Visibility filtering (is_public, ownership) is the provider's job; the
// engine only forwards the caller's intent.
type CatalogFilters struct {
	KitchenID      *uuid.UUID
	MealType       meal.MealType
	IncludePrivate bool
}

// PantryProvider serves the user's pantry snapshot.
type PantryProvider interface {
	GetPantry(ctx context.Context, userID uuid.UUID) (pantry.Snapshot, error)
}

// CatalogProvider serves candidate meal definitions, pre-filtered by
// kitchen, meal type, and visibility. The user ID scopes which private
// meals are visible.
type CatalogProvider interface {
	GetCandidateMeals(ctx context.Context, userID uuid.UUID, filters CatalogFilters) ([]meal.Definition, error)
}

// FavoritesProvider serves the user's favorite meal IDs.
type FavoritesProvider interface {
	GetFavoriteMealIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]struct{}, error)
}

// HistoryProvider serves the recent suggestion history window and accepts
// feedback writes. The engine never reads outside the window it asks for.
type HistoryProvider interface {
	GetRecentHistory(ctx context.Context, userID uuid.UUID, window time.Duration) ([]suggestion.HistoryEntry, error)
	RecordFeedback(ctx context.Context, userID uuid.UUID, entry suggestion.HistoryEntry) error
}

// AlgorithmConfigProvider serves the current algorithm tuning snapshot.
// Snapshots are immutable; the provider may publish a new one at any time
// between requests, never during one. No context: reads are in-memory.
type AlgorithmConfigProvider interface {
	GetAlgorithmConfig() suggestion.AlgorithmConfig
}
