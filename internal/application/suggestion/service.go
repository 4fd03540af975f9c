// Package suggestion provides the application layer for the suggestion
// engine. It implements the use cases defined in the inbound port: fetch
// inputs from providers, run the scoring pipeline, and assemble responses
// with the metadata that explains them.
package suggestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/platewise/v2/internal/domain/meal"
	"github.com/platewise/v2/internal/domain/pantry"
	"github.com/platewise/v2/internal/domain/suggestion"
	"github.com/platewise/v2/internal/ports/inbound"
	"github.com/platewise/v2/internal/ports/outbound"
	"github.com/platewise/v2/pkg/errors"
)

const (
	defaultRequestTimeout = 5 * time.Second
	defaultRetryBackoff   = 100 * time.Millisecond
	defaultRandomCount    = 1
)

// Config tunes the service's request handling, not the algorithm; the
// algorithm tuning comes from the config provider per request.
type Config struct {
	RequestTimeout time.Duration
	RetryBackoff   time.Duration
}

// Service implements the suggestion use cases.
type Service struct {
	pantryProvider    outbound.PantryProvider
	catalogProvider   outbound.CatalogProvider
	favoritesProvider outbound.FavoritesProvider
	historyProvider   outbound.HistoryProvider
	configProvider    outbound.AlgorithmConfigProvider
	cache             outbound.SuggestionCache
	validate          *validator.Validate
	logger            *zap.Logger

	requestTimeout time.Duration
	retryBackoff   time.Duration

	// Injected clocks and seeds keep the pipeline reproducible in tests.
	now    func() time.Time
	seedFn func() int64
}

// NewService creates the suggestion service.
func NewService(
	pantryProvider outbound.PantryProvider,
	catalogProvider outbound.CatalogProvider,
	favoritesProvider outbound.FavoritesProvider,
	historyProvider outbound.HistoryProvider,
	configProvider outbound.AlgorithmConfigProvider,
	cache outbound.SuggestionCache,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}

	return &Service{
		pantryProvider:    pantryProvider,
		catalogProvider:   catalogProvider,
		favoritesProvider: favoritesProvider,
		historyProvider:   historyProvider,
		configProvider:    configProvider,
		cache:             cache,
		validate:          validator.New(),
		logger:            logger.Named("suggestion-service"),
		requestTimeout:    cfg.RequestTimeout,
		retryBackoff:      cfg.RetryBackoff,
		now:               time.Now,
		seedFn:            func() int64 { return time.Now().UnixNano() },
	}
}

// GenerateSuggestions scores, filters, excludes, and ranks the user's
// candidate meals into an ordered suggestion list.
func (s *Service) GenerateSuggestions(ctx context.Context, req inbound.SuggestionRequest) (*inbound.SuggestionResponse, error) {
	start := s.now()

	if req.Mode == "" {
		req.Mode = suggestion.ModeStrict
	}
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	cfg := s.configProvider.GetAlgorithmConfig()
	if err := cfg.Validate(); err != nil {
		return nil, errors.NewConfigInvalidError(err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	snap, err := s.fetchPantry(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	compute := func(ctx context.Context) (*outbound.SuggestionCacheEntry, error) {
		return s.computeSuggestions(ctx, req, cfg, snap)
	}

	var entry *outbound.SuggestionCacheEntry
	var hit bool
	if s.cache != nil && !req.BypassCache {
		key := outbound.SuggestionCacheKey{
			UserID:            req.UserID,
			PantryFingerprint: snap.Fingerprint(),
			FilterHash:        filterHash(req.Filters),
			Mode:              req.Mode,
			ConfigVersion:     cfg.Version,
		}
		entry, hit, err = s.cache.GetOrCompute(ctx, key, compute)
	} else {
		entry, err = compute(ctx)
	}
	if err != nil {
		return nil, err
	}

	suggestions := entry.Candidates
	if req.MaxResults > 0 && len(suggestions) > req.MaxResults {
		suggestions = suggestions[:req.MaxResults]
	}

	resp := &inbound.SuggestionResponse{
		Suggestions: suggestions,
		Metadata:    s.buildMetadata(entry, hit, start),
	}

	s.logger.Info("Suggestions generated",
		zap.String("user_id", req.UserID.String()),
		zap.String("mode", string(req.Mode)),
		zap.Int("suggestions", len(resp.Suggestions)),
		zap.Bool("cache_hit", hit),
		zap.Int64("elapsed_ms", resp.Metadata.ElapsedMs),
	)
	return resp, nil
}

// GetRandomMeals draws meals from the eligible pool. Random draws are
// never cached: the draw itself is the product.
func (s *Service) GetRandomMeals(ctx context.Context, req inbound.RandomMealRequest) (*inbound.RandomMealResponse, error) {
	start := s.now()

	if req.Mode == "" {
		req.Mode = suggestion.ModeStrict
	}
	if req.Selection == "" {
		req.Selection = suggestion.SelectionWeightedRandom
	}
	if req.Count <= 0 {
		req.Count = defaultRandomCount
	}
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	cfg := s.configProvider.GetAlgorithmConfig()
	if err := cfg.Validate(); err != nil {
		return nil, errors.NewConfigInvalidError(err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	snap, err := s.fetchPantry(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	sreq := inbound.SuggestionRequest{UserID: req.UserID, Filters: req.Filters, Mode: req.Mode}
	entry, err := s.computeSuggestions(ctx, sreq, cfg, snap)
	if err != nil {
		return nil, err
	}

	seed := s.seedFn()
	if req.Seed != nil {
		seed = *req.Seed
	}

	selector := suggestion.NewSelector()
	meals := selector.Select(entry.Candidates, req.Count, req.Selection, seed)

	resp := &inbound.RandomMealResponse{
		Meals:    meals,
		Metadata: s.buildMetadata(entry, false, start),
	}

	s.logger.Info("Random meals drawn",
		zap.String("user_id", req.UserID.String()),
		zap.String("selection", string(req.Selection)),
		zap.Int("requested", req.Count),
		zap.Int("drawn", len(meals)),
	)
	return resp, nil
}

// GetPantryBasedSuggestions always scores leniently: near misses are the
// point of this view, and strict disqualification would hide them.
func (s *Service) GetPantryBasedSuggestions(ctx context.Context, req inbound.PantryBasedSuggestionRequest) (*inbound.PantryBasedSuggestionResponse, error) {
	start := s.now()

	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	cfg := s.configProvider.GetAlgorithmConfig()
	if err := cfg.Validate(); err != nil {
		return nil, errors.NewConfigInvalidError(err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	snap, err := s.fetchPantry(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	in, err := s.fetchInputs(ctx, req.UserID, req.Filters, cfg)
	if err != nil {
		return nil, err
	}

	now := s.now()
	scored, stats := s.scorePool(in.meals, snap, suggestion.ModeLenient, cfg)

	var viable, nearMisses []suggestion.Candidate
	for _, cand := range scored {
		if suggestion.Viable(cand.MatchType) {
			viable = append(viable, cand)
		}
		if cand.MatchType == suggestion.MatchPartial || cand.MatchType == suggestion.MatchPoor {
			nearMisses = append(nearMisses, cand)
		}
	}

	exclusion := suggestion.NewRecencyPolicy(cfg.Limits).Apply(viable, in.history, now)
	stats.ExcludedByRecency = exclusion.Excluded
	stats.RelaxedExclusions = exclusion.Relaxed
	stats.EligibleCandidates = len(exclusion.Kept)

	ranked := suggestion.NewRanker(cfg).Rank(exclusion.Kept, suggestion.RankContext{
		Favorites:         in.favorites,
		PreferredKitchens: kitchenSet(req.Filters.PreferredKitchens),
		RequestedMealType: req.Filters.MealType,
		LastSuggested:     suggestion.LastSuggestedIndex(in.history, now, cfg.Limits.RecentExclusionDays),
		Now:               now,
	})

	sort.Slice(nearMisses, func(i, j int) bool {
		if nearMisses[i].Score != nearMisses[j].Score {
			return nearMisses[i].Score > nearMisses[j].Score
		}
		return nearMisses[i].MealID.String() < nearMisses[j].MealID.String()
	})
	if len(nearMisses) > cfg.Limits.MaxSuggestions {
		nearMisses = nearMisses[:cfg.Limits.MaxSuggestions]
	}

	entry := &outbound.SuggestionCacheEntry{
		Candidates:        ranked,
		Stats:             stats,
		PantryFingerprint: snap.Fingerprint(),
		ConfigVersion:     cfg.Version,
		GeneratedAt:       now,
	}

	resp := &inbound.PantryBasedSuggestionResponse{
		Suggestions: ranked,
		NearMisses:  nearMisses,
		Utilization: suggestion.AnalyzeUtilization(in.meals, scored, snap),
		Metadata:    s.buildMetadata(entry, false, start),
	}

	s.logger.Info("Pantry-based suggestions generated",
		zap.String("user_id", req.UserID.String()),
		zap.Int("suggestions", len(ranked)),
		zap.Int("near_misses", len(nearMisses)),
		zap.Float64("utilization_pct", resp.Utilization.UtilizationPercentage),
	)
	return resp, nil
}

// RecordSuggestionFeedback forwards the outcome to the history provider
// and invalidates the user's cached suggestions so recency policy sees it
// on the next request.
func (s *Service) RecordSuggestionFeedback(ctx context.Context, feedback inbound.SuggestionFeedback) error {
	if err := s.validateRequest(feedback); err != nil {
		return err
	}

	occurredAt := feedback.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.now()
	}

	entry := suggestion.HistoryEntry{
		MealID:      feedback.MealID,
		SuggestedAt: occurredAt,
		WasSelected: feedback.WasSelected,
	}
	if feedback.WasSelected {
		entry.SelectedAt = &occurredAt
	}

	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	err := s.withRetry(ctx, "history", func(ctx context.Context) error {
		return s.historyProvider.RecordFeedback(ctx, feedback.UserID, entry)
	})
	if err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateUser(ctx, feedback.UserID); err != nil {
			// Stale entries age out via TTL; feedback itself landed.
			s.logger.Warn("Failed to invalidate suggestion cache after feedback",
				zap.String("user_id", feedback.UserID.String()),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("Suggestion feedback recorded",
		zap.String("user_id", feedback.UserID.String()),
		zap.String("meal_id", feedback.MealID.String()),
		zap.Bool("was_selected", feedback.WasSelected),
	)
	return nil
}

// computeSuggestions runs the full scoring pipeline for one request. It is
// the unit of work the cache memoizes.
func (s *Service) computeSuggestions(
	ctx context.Context,
	req inbound.SuggestionRequest,
	cfg suggestion.AlgorithmConfig,
	snap pantry.Snapshot,
) (*outbound.SuggestionCacheEntry, error) {
	in, err := s.fetchInputs(ctx, req.UserID, req.Filters, cfg)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, s.contextError(err, "scoring")
	}

	now := s.now()
	scored, stats := s.scorePool(in.meals, snap, req.Mode, cfg)

	viable := scored[:0:0]
	for _, cand := range scored {
		if suggestion.Viable(cand.MatchType) {
			viable = append(viable, cand)
		} else {
			stats.ExcludedByThreshold++
		}
	}

	exclusion := suggestion.NewRecencyPolicy(cfg.Limits).Apply(viable, in.history, now)
	stats.ExcludedByRecency = exclusion.Excluded
	stats.RelaxedExclusions = exclusion.Relaxed
	stats.EligibleCandidates = len(exclusion.Kept)

	ranked := suggestion.NewRanker(cfg).Rank(exclusion.Kept, suggestion.RankContext{
		Favorites:         in.favorites,
		PreferredKitchens: kitchenSet(req.Filters.PreferredKitchens),
		RequestedMealType: req.Filters.MealType,
		LastSuggested:     suggestion.LastSuggestedIndex(in.history, now, cfg.Limits.RecentExclusionDays),
		Now:               now,
	})

	return &outbound.SuggestionCacheEntry{
		Candidates:        ranked,
		Stats:             stats,
		PantryFingerprint: snap.Fingerprint(),
		ConfigVersion:     cfg.Version,
		GeneratedAt:       now,
	}, nil
}

// scorePool scores every meal and classifies the survivors. Strictness and
// the missing-ingredient cap are applied here; classification tiers are
// filtered by the caller because the two views treat poor matches
// differently.
func (s *Service) scorePool(
	meals []meal.Definition,
	snap pantry.Snapshot,
	mode suggestion.Mode,
	cfg suggestion.AlgorithmConfig,
) ([]suggestion.Candidate, suggestion.PipelineStats) {
	stats := suggestion.PipelineStats{TotalCandidates: len(meals)}
	if len(meals) == 0 {
		stats.EmptyCatalog = true
		return nil, stats
	}

	scorer := suggestion.NewScorer(cfg.Scoring)
	candidates := make([]suggestion.Candidate, 0, len(meals))
	for _, def := range meals {
		result := scorer.Score(def, snap, mode)

		if result.Vacuous {
			s.logger.Warn("Meal has zero ingredient requirements, scoring as vacuously satisfiable",
				zap.String("meal_id", def.ID.String()),
			)
		}

		if result.Disqualified {
			stats.ExcludedByStrictness++
			continue
		}
		if cfg.Limits.MaxMissingIngredients > 0 && len(result.Missing) > cfg.Limits.MaxMissingIngredients {
			stats.ExcludedByThreshold++
			continue
		}

		matchType, reason := suggestion.Classify(result.Score, result.MissingMandatory, cfg.Thresholds)
		candidates = append(candidates, suggestion.Candidate{
			MealID:           def.ID,
			KitchenID:        def.KitchenID,
			MealType:         def.MealType,
			MealCreatedAt:    def.CreatedAt,
			Score:            result.Score,
			Missing:          result.Missing,
			MissingMandatory: result.MissingMandatory,
			MatchType:        matchType,
			Reason:           reason,
			Vacuous:          result.Vacuous,
		})
	}

	return candidates, stats
}

// buildMetadata assembles response metadata from a pipeline result.
func (s *Service) buildMetadata(entry *outbound.SuggestionCacheEntry, hit bool, start time.Time) inbound.SuggestionMetadata {
	return inbound.SuggestionMetadata{
		PipelineStats: entry.Stats,
		CacheHit:      hit,
		ConfigVersion: entry.ConfigVersion,
		GeneratedAt:   entry.GeneratedAt,
		ElapsedMs:     s.now().Sub(start).Milliseconds(),
	}
}

// validateRequest rejects malformed requests before any provider fetch.
func (s *Service) validateRequest(req interface{}) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.NewInvalidFilterError(err.Error())
	}

	details := make([]errors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, errors.ValidationError{
			Field:   fe.Field(),
			Value:   fe.Value(),
			Tag:     fe.Tag(),
			Message: fmt.Sprintf("field %s failed %s validation", fe.Field(), fe.Tag()),
		})
	}
	return errors.NewValidationErrors(details)
}

// filterHash canonicalizes filters into a deterministic cache key part.
// Field order, slice order, and formatting are pinned so equal filters
// always hash equally.
func filterHash(filters inbound.SuggestionFilters) string {
	var b strings.Builder

	b.WriteString("kitchen=")
	if filters.KitchenID != nil {
		b.WriteString(filters.KitchenID.String())
	}
	b.WriteString(";meal_type=")
	b.WriteString(string(filters.MealType))
	b.WriteString(";private=")
	if filters.IncludePrivate {
		b.WriteString("1")
	} else {
		b.WriteString("0")
	}

	preferred := make([]string, 0, len(filters.PreferredKitchens))
	for _, id := range filters.PreferredKitchens {
		preferred = append(preferred, id.String())
	}
	sort.Strings(preferred)
	b.WriteString(";preferred=")
	b.WriteString(strings.Join(preferred, ","))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:8])
}

func kitchenSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
