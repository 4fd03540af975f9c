// Mock implementations of the engine's outbound ports, built on testify's
// mock package. Tests register expectations with On(...) and verify them
// with AssertExpectations.
package testutils

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/platewise/v2/internal/domain/meal"
	"github.com/platewise/v2/internal/domain/pantry"
	"github.com/platewise/v2/internal/domain/suggestion"
	"github.com/platewise/v2/internal/ports/outbound"
)

// MockPantryProvider mocks outbound.PantryProvider.
type MockPantryProvider struct {
	mock.Mock
}

// GetPantry returns the registered pantry snapshot.
func (m *MockPantryProvider) GetPantry(ctx context.Context, userID uuid.UUID) (pantry.Snapshot, error) {
	args := m.Called(ctx, userID)
	snap, _ := args.Get(0).(pantry.Snapshot)
	return snap, args.Error(1)
}

// MockCatalogProvider mocks outbound.CatalogProvider.
type MockCatalogProvider struct {
	mock.Mock
}

// GetCandidateMeals returns the registered candidate definitions.
func (m *MockCatalogProvider) GetCandidateMeals(ctx context.Context, userID uuid.UUID, filters outbound.CatalogFilters) ([]meal.Definition, error) {
	args := m.Called(ctx, userID, filters)
	defs, _ := args.Get(0).([]meal.Definition)
	return defs, args.Error(1)
}

// MockFavoritesProvider mocks outbound.FavoritesProvider.
type MockFavoritesProvider struct {
	mock.Mock
}

// GetFavoriteMealIDs returns the registered favorites set.
func (m *MockFavoritesProvider) GetFavoriteMealIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	args := m.Called(ctx, userID)
	favorites, _ := args.Get(0).(map[uuid.UUID]struct{})
	return favorites, args.Error(1)
}

// MockHistoryProvider mocks outbound.HistoryProvider.
type MockHistoryProvider struct {
	mock.Mock
}

// GetRecentHistory returns the registered history window.
func (m *MockHistoryProvider) GetRecentHistory(ctx context.Context, userID uuid.UUID, window time.Duration) ([]suggestion.HistoryEntry, error) {
	args := m.Called(ctx, userID, window)
	entries, _ := args.Get(0).([]suggestion.HistoryEntry)
	return entries, args.Error(1)
}

// RecordFeedback records a feedback write.
func (m *MockHistoryProvider) RecordFeedback(ctx context.Context, userID uuid.UUID, entry suggestion.HistoryEntry) error {
	args := m.Called(ctx, userID, entry)
	return args.Error(0)
}

// StaticConfigProvider serves a fixed algorithm config snapshot. Not a mock:
// nearly every test needs config and expectation bookkeeping for it is noise.
type StaticConfigProvider struct {
	Config suggestion.AlgorithmConfig
}

// NewStaticConfigProvider returns a provider serving the default config.
func NewStaticConfigProvider() *StaticConfigProvider {
	return &StaticConfigProvider{Config: suggestion.DefaultAlgorithmConfig()}
}

// GetAlgorithmConfig returns the fixed snapshot.
func (p *StaticConfigProvider) GetAlgorithmConfig() suggestion.AlgorithmConfig {
	return p.Config
}

// MockSuggestionCache mocks outbound.SuggestionCache. GetOrCompute is
// registered with (ctx, key) only; returning a nil entry with a nil error
// makes the mock run compute, mimicking a cache miss.
type MockSuggestionCache struct {
	mock.Mock
}

// GetOrCompute returns the registered entry, or runs compute when the
// expectation returned (nil, false, nil).
func (m *MockSuggestionCache) GetOrCompute(ctx context.Context, key outbound.SuggestionCacheKey, compute func(context.Context) (*outbound.SuggestionCacheEntry, error)) (*outbound.SuggestionCacheEntry, bool, error) {
	args := m.Called(ctx, key)
	if args.Error(2) != nil {
		return nil, false, args.Error(2)
	}
	if entry, ok := args.Get(0).(*outbound.SuggestionCacheEntry); ok && entry != nil {
		return entry, args.Bool(1), nil
	}
	entry, err := compute(ctx)
	return entry, false, err
}

// InvalidateUser records the invalidation.
func (m *MockSuggestionCache) InvalidateUser(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockCacheRepository mocks outbound.CacheRepository for code that composes
// over byte stores (the tiered cache, the suggestion memoizer).
type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	value, _ := args.Get(0).([]byte)
	return value, args.Error(1)
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheRepository) DeletePattern(ctx context.Context, pattern string) error {
	args := m.Called(ctx, pattern)
	return args.Error(0)
}
