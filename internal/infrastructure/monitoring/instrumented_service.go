package monitoring

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platewise/v2/internal/ports/inbound"
)

// InstrumentedService decorates the suggestion service with metrics and
// tracing. It sits between the HTTP handlers and the application layer,
// so every operation gets a span and counters regardless of which
// adapter drove it. The tracer resolves through the global provider: a
// no-op until TelemetryProvider installs the real one.
type InstrumentedService struct {
	inner   inbound.SuggestionService
	metrics *EngineMetrics
	tracer  trace.Tracer
}

var _ inbound.SuggestionService = (*InstrumentedService)(nil)

// NewInstrumentedService wraps the given service.
func NewInstrumentedService(inner inbound.SuggestionService, metrics *EngineMetrics) *InstrumentedService {
	return &InstrumentedService{
		inner:   inner,
		metrics: metrics,
		tracer:  otel.Tracer("platewise.engine"),
	}
}

func (s *InstrumentedService) GenerateSuggestions(ctx context.Context, req inbound.SuggestionRequest) (*inbound.SuggestionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "engine.generate_suggestions",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("user.id", req.UserID.String()),
			attribute.String("engine.mode", string(req.Mode)),
			attribute.Bool("engine.bypass_cache", req.BypassCache),
		),
	)
	defer span.End()

	start := time.Now()
	resp, err := s.inner.GenerateSuggestions(ctx, req)
	s.finish(span, "generate", time.Since(start), err)
	if resp != nil {
		s.recordResponse(span, "generate", len(resp.Suggestions), resp.Metadata)
	}
	return resp, err
}

func (s *InstrumentedService) GetRandomMeals(ctx context.Context, req inbound.RandomMealRequest) (*inbound.RandomMealResponse, error) {
	ctx, span := s.tracer.Start(ctx, "engine.random_meals",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("user.id", req.UserID.String()),
			attribute.String("engine.selection", string(req.Selection)),
			attribute.Int("engine.count", req.Count),
		),
	)
	defer span.End()

	start := time.Now()
	resp, err := s.inner.GetRandomMeals(ctx, req)
	s.finish(span, "random", time.Since(start), err)
	if resp != nil {
		s.recordResponse(span, "random", len(resp.Meals), resp.Metadata)
	}
	return resp, err
}

func (s *InstrumentedService) GetPantryBasedSuggestions(ctx context.Context, req inbound.PantryBasedSuggestionRequest) (*inbound.PantryBasedSuggestionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "engine.pantry_suggestions",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("user.id", req.UserID.String()),
		),
	)
	defer span.End()

	start := time.Now()
	resp, err := s.inner.GetPantryBasedSuggestions(ctx, req)
	s.finish(span, "pantry", time.Since(start), err)
	if resp != nil {
		s.recordResponse(span, "pantry", len(resp.Suggestions), resp.Metadata)
		span.SetAttributes(attribute.Int("engine.near_misses", len(resp.NearMisses)))
	}
	return resp, err
}

func (s *InstrumentedService) RecordSuggestionFeedback(ctx context.Context, feedback inbound.SuggestionFeedback) error {
	ctx, span := s.tracer.Start(ctx, "engine.record_feedback",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("user.id", feedback.UserID.String()),
			attribute.String("meal.id", feedback.MealID.String()),
			attribute.Bool("feedback.selected", feedback.WasSelected),
		),
	)
	defer span.End()

	start := time.Now()
	err := s.inner.RecordSuggestionFeedback(ctx, feedback)
	s.finish(span, "feedback", time.Since(start), err)
	return err
}

func (s *InstrumentedService) finish(span trace.Span, operation string, elapsed time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.metrics.requestsTotal.WithLabelValues(operation, outcome).Inc()
	s.metrics.requestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (s *InstrumentedService) recordResponse(span trace.Span, operation string, results int, md inbound.SuggestionMetadata) {
	s.metrics.resultCount.WithLabelValues(operation).Observe(float64(results))
	s.metrics.candidatesScored.Observe(float64(md.TotalCandidates))
	s.metrics.exclusionsTotal.WithLabelValues("strictness").Add(float64(md.ExcludedByStrictness))
	s.metrics.exclusionsTotal.WithLabelValues("recency").Add(float64(md.ExcludedByRecency))
	s.metrics.exclusionsTotal.WithLabelValues("threshold").Add(float64(md.ExcludedByThreshold))
	s.metrics.relaxedTotal.Add(float64(md.RelaxedExclusions))
	if md.EmptyCatalog {
		s.metrics.emptyCatalog.Inc()
	}

	span.SetAttributes(
		attribute.Bool("cache.hit", md.CacheHit),
		attribute.Int("engine.candidates", md.TotalCandidates),
		attribute.Int("engine.eligible", md.EligibleCandidates),
		attribute.Int("engine.results", results),
		attribute.Int64("engine.config_version", int64(md.ConfigVersion)),
	)
}
