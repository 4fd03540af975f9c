// Package memory provides in-memory implementations of the engine's data
// provider ports. They back development mode (paired with the sqlite seed)
// and unit tests; production wiring uses the gorm and postgres adapters.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/platewise/v2/internal/domain/meal"
	"github.com/platewise/v2/internal/domain/pantry"
	"github.com/platewise/v2/internal/domain/suggestion"
	"github.com/platewise/v2/internal/ports/outbound"
)

// Store is a mutex-guarded in-memory dataset implementing all four data
// provider ports. Seed it with the Add/Set helpers, then hand it out as
// each port. A single store is safe for concurrent readers and writers.
type Store struct {
	mu          sync.RWMutex
	meals       []meal.Definition
	pantries    map[uuid.UUID][]string
	favorites   map[uuid.UUID]map[uuid.UUID]struct{}
	history     map[uuid.UUID][]suggestion.HistoryEntry
	memberships map[uuid.UUID]map[uuid.UUID]struct{} // userID -> kitchen IDs
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		pantries:    make(map[uuid.UUID][]string),
		favorites:   make(map[uuid.UUID]map[uuid.UUID]struct{}),
		history:     make(map[uuid.UUID][]suggestion.HistoryEntry),
		memberships: make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

var (
	_ outbound.PantryProvider    = (*Store)(nil)
	_ outbound.CatalogProvider   = (*Store)(nil)
	_ outbound.FavoritesProvider = (*Store)(nil)
	_ outbound.HistoryProvider   = (*Store)(nil)
)

// AddMeal adds a meal definition to the catalog.
func (s *Store) AddMeal(def meal.Definition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meals = append(s.meals, def)
}

// SetPantry replaces the user's pantry contents.
func (s *Store) SetPantry(userID uuid.UUID, ingredientIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pantries[userID] = append([]string(nil), ingredientIDs...)
}

// AddFavorite marks a meal as the user's favorite.
func (s *Store) AddFavorite(userID, mealID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.favorites[userID]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		s.favorites[userID] = set
	}
	set[mealID] = struct{}{}
}

// AddMembership grants the user visibility into the kitchen's private meals.
func (s *Store) AddMembership(userID, kitchenID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.memberships[userID]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		s.memberships[userID] = set
	}
	set[kitchenID] = struct{}{}
}

// AddHistory appends a history entry for the user without going through
// RecordFeedback, useful for seeding past suggestions in tests.
func (s *Store) AddHistory(userID uuid.UUID, entry suggestion.HistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[userID] = append(s.history[userID], entry)
}

// GetPantry returns the user's pantry snapshot. A user with no seeded
// pantry gets an empty snapshot, not an error.
func (s *Store) GetPantry(_ context.Context, userID uuid.UUID) (pantry.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pantry.NewSnapshot(userID, s.pantries[userID]), nil
}

// GetCandidateMeals returns catalog meals matching the filters. Private
// meals are visible only when the filter asks for them and the user is a
// member of the owning kitchen.
func (s *Store) GetCandidateMeals(_ context.Context, userID uuid.UUID, filters outbound.CatalogFilters) ([]meal.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kitchens := s.memberships[userID]
	out := make([]meal.Definition, 0, len(s.meals))
	for _, def := range s.meals {
		if !def.IsPublic {
			if !filters.IncludePrivate {
				continue
			}
			if _, member := kitchens[def.KitchenID]; !member {
				continue
			}
		}
		if filters.KitchenID != nil && def.KitchenID != *filters.KitchenID {
			continue
		}
		if filters.MealType != "" && def.MealType != filters.MealType {
			continue
		}
		out = append(out, def)
	}
	return out, nil
}

// GetFavoriteMealIDs returns a copy of the user's favorite set.
func (s *Store) GetFavoriteMealIDs(_ context.Context, userID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[uuid.UUID]struct{}, len(s.favorites[userID]))
	for id := range s.favorites[userID] {
		out[id] = struct{}{}
	}
	return out, nil
}

// GetRecentHistory returns the user's history entries inside the window,
// oldest first, matching the ordering the postgres adapter produces.
func (s *Store) GetRecentHistory(_ context.Context, userID uuid.UUID, window time.Duration) ([]suggestion.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().Add(-window)
	out := make([]suggestion.HistoryEntry, 0, len(s.history[userID]))
	for _, entry := range s.history[userID] {
		if entry.SuggestedAt.Before(cutoff) {
			continue
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SuggestedAt.Before(out[j].SuggestedAt)
	})
	return out, nil
}

// RecordFeedback appends a feedback entry to the user's history.
func (s *Store) RecordFeedback(_ context.Context, userID uuid.UUID, entry suggestion.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[userID] = append(s.history[userID], entry)
	return nil
}
