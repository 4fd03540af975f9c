package suggestion

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/platewise/v2/internal/domain/meal"
	"github.com/platewise/v2/internal/domain/pantry"
	"github.com/platewise/v2/internal/domain/suggestion"
	"github.com/platewise/v2/internal/ports/inbound"
	"github.com/platewise/v2/internal/ports/outbound"
	"github.com/platewise/v2/pkg/errors"
)

// engineInputs collects everything the pipeline needs beyond the pantry.
type engineInputs struct {
	meals     []meal.Definition
	favorites map[uuid.UUID]struct{}
	history   []suggestion.HistoryEntry
}

func (s *Service) fetchPantry(ctx context.Context, userID uuid.UUID) (pantry.Snapshot, error) {
	var snap pantry.Snapshot
	err := s.withRetry(ctx, "pantry", func(ctx context.Context) error {
		var ferr error
		snap, ferr = s.pantryProvider.GetPantry(ctx, userID)
		return ferr
	})
	return snap, err
}

// fetchInputs fans out to the catalog, favorites, and history providers
// concurrently. The first typed failure cancels the rest.
func (s *Service) fetchInputs(
	ctx context.Context,
	userID uuid.UUID,
	filters inbound.SuggestionFilters,
	cfg suggestion.AlgorithmConfig,
) (*engineInputs, error) {
	in := &engineInputs{}
	window := time.Duration(cfg.Limits.RecentExclusionDays) * 24 * time.Hour

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.withRetry(gctx, "catalog", func(ctx context.Context) error {
			var ferr error
			in.meals, ferr = s.catalogProvider.GetCandidateMeals(ctx, userID, catalogFilters(filters))
			return ferr
		})
	})
	g.Go(func() error {
		return s.withRetry(gctx, "favorites", func(ctx context.Context) error {
			var ferr error
			in.favorites, ferr = s.favoritesProvider.GetFavoriteMealIDs(ctx, userID)
			return ferr
		})
	})
	g.Go(func() error {
		return s.withRetry(gctx, "history", func(ctx context.Context) error {
			var ferr error
			in.history, ferr = s.historyProvider.GetRecentHistory(ctx, userID, window)
			return ferr
		})
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return in, nil
}

// withRetry runs a provider call with a single bounded retry. Context
// expiry is reported as a timeout, not as provider unavailability, so
// callers can tell a slow dependency apart from a dead one.
func (s *Service) withRetry(ctx context.Context, provider string, fn func(context.Context) error) error {
	err := fn(ctx)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return s.contextError(ctxErr, provider)
	}

	s.logger.Warn("Provider call failed, retrying once",
		zap.String("provider", provider),
		zap.Error(err),
	)

	select {
	case <-time.After(s.retryBackoff):
	case <-ctx.Done():
		return s.contextError(ctx.Err(), provider)
	}

	if err = fn(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return s.contextError(ctxErr, provider)
		}
		return errors.NewProviderUnavailableError(provider, err)
	}
	return nil
}

// contextError maps a context failure to the engine's error taxonomy.
// Caller-initiated cancellation passes through untyped.
func (s *Service) contextError(err error, operation string) error {
	if err == context.DeadlineExceeded {
		return errors.NewTimeoutError(operation, s.requestTimeout)
	}
	return err
}

func catalogFilters(filters inbound.SuggestionFilters) outbound.CatalogFilters {
	return outbound.CatalogFilters{
		KitchenID:      filters.KitchenID,
		MealType:       filters.MealType,
		IncludePrivate: filters.IncludePrivate,
	}
}
