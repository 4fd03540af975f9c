// Package monitoring carries the engine's observability surface:
// prometheus metrics for the suggestion pipeline, OpenTelemetry tracing,
// and the operational HTTP server that exposes probes and metrics.
package monitoring

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otelprometheus "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
	"go.uber.org/zap"

	"github.com/platewise/v2/internal/infrastructure/config"
)

// TelemetryProvider installs the global OpenTelemetry tracer and meter
// providers. The API server's otelhttp wrapper and the instrumented
// service decorator both resolve their tracers through the globals, so
// initializing this provider is what turns their spans on. The metric
// side uses a prometheus reader, which means otel-instrumented libraries
// surface on the same /metrics endpoint as the engine's own collectors.
type TelemetryProvider struct {
	config         *config.Config
	logger         *zap.Logger
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

// NewTelemetryProvider builds and installs the providers according to the
// monitoring config. Tracing and metrics can be toggled independently.
func NewTelemetryProvider(cfg *config.Config, logger *zap.Logger) (*TelemetryProvider, error) {
	p := &TelemetryProvider{
		config: cfg,
		logger: logger.Named("telemetry"),
	}

	res, err := p.createResource()
	if err != nil {
		return nil, fmt.Errorf("failed to create telemetry resource: %w", err)
	}

	if cfg.Monitoring.EnableTracing {
		if err := p.initTracing(res); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if cfg.Monitoring.EnableMetrics {
		if err := p.initMetrics(res); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	p.logger.Info("Telemetry initialized",
		zap.Bool("tracing", cfg.Monitoring.EnableTracing),
		zap.Bool("metrics", cfg.Monitoring.EnableMetrics),
		zap.String("trace_exporter", cfg.Monitoring.TraceExporter),
		zap.Float64("sampling_rate", cfg.Monitoring.SamplingRate),
	)

	return p, nil
}

func (p *TelemetryProvider) createResource() (*resource.Resource, error) {
	return resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(p.config.App.Name),
			semconv.ServiceVersion(p.config.App.Version),
			semconv.DeploymentEnvironment(p.config.App.Environment),
			attribute.String("service.component", "suggestion-engine"),
		),
		resource.WithProcess(),
		resource.WithOS(),
		resource.WithContainer(),
		resource.WithHost(),
	)
}

func (p *TelemetryProvider) initTracing(res *resource.Resource) error {
	exporter, err := p.createTraceExporter()
	if err != nil {
		return err
	}
	if exporter == nil {
		p.logger.Warn("No trace exporter configured, spans will not leave the process")
		return nil
	}

	// ParentBased keeps child spans of sampled upstream requests even when
	// the local ratio would drop them, so distributed traces stay whole.
	p.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(p.config.Monitoring.SamplingRate))),
		sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter)),
	)

	otel.SetTracerProvider(p.tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return nil
}

func (p *TelemetryProvider) createTraceExporter() (sdktrace.SpanExporter, error) {
	switch p.config.Monitoring.TraceExporter {
	case "jaeger":
		exporter, err := jaeger.New(
			jaeger.WithCollectorEndpoint(
				jaeger.WithEndpoint(p.config.Monitoring.JaegerEndpoint),
			),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
		}
		p.logger.Info("Jaeger exporter configured", zap.String("endpoint", p.config.Monitoring.JaegerEndpoint))
		return exporter, nil

	case "otlp":
		client := otlptracehttp.NewClient(
			otlptracehttp.WithEndpoint(p.config.Monitoring.OTLPEndpoint),
			otlptracehttp.WithInsecure(),
		)
		exporter, err := otlptrace.New(context.Background(), client)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		p.logger.Info("OTLP trace exporter configured", zap.String("endpoint", p.config.Monitoring.OTLPEndpoint))
		return exporter, nil

	case "none", "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown trace exporter %q", p.config.Monitoring.TraceExporter)
	}
}

func (p *TelemetryProvider) initMetrics(res *resource.Resource) error {
	// The reader registers against the default prometheus registry, the
	// same one promauto feeds, so the ops server scrapes a single surface.
	exporter, err := otelprometheus.New()
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(p.meterProvider)

	return nil
}

// Shutdown flushes buffered spans and stops both providers.
func (p *TelemetryProvider) Shutdown(ctx context.Context) error {
	var errs []error

	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
	}

	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("telemetry shutdown errors: %v", errs)
	}

	p.logger.Info("Telemetry shutdown completed")
	return nil
}
