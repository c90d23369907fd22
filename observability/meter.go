package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/skillsenselab/voicediag/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g. "localhost:4318").
	Endpoint string
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// InitMeter initializes the global OpenTelemetry meter provider.
// The returned provider should be shut down on application exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// PipelineMetrics holds the diagnostic pipeline instruments. A nil
// receiver records nothing, so collaborators take it optionally.
type PipelineMetrics struct {
	sessionsTotal      metric.Int64Counter
	qualityScores      metric.Float64Histogram
	enrichmentTotal    metric.Int64Counter
	enrichmentRetries  metric.Int64Counter
	enrichmentDuration metric.Float64Histogram
}

// NewPipelineMetrics creates the pipeline instruments on the given
// meter.
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	sessionsTotal, err := meter.Int64Counter("session.total",
		metric.WithDescription("Sessions reaching a terminal state"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating session.total counter: %w", err)
	}

	qualityScores, err := meter.Float64Histogram("session.quality_score",
		metric.WithDescription("Quality score distribution of completed sessions"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating session.quality_score histogram: %w", err)
	}

	enrichmentTotal, err := meter.Int64Counter("enrichment.total",
		metric.WithDescription("Enrichment jobs by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating enrichment.total counter: %w", err)
	}

	enrichmentRetries, err := meter.Int64Counter("enrichment.retries",
		metric.WithDescription("Retried generation calls"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating enrichment.retries counter: %w", err)
	}

	enrichmentDuration, err := meter.Float64Histogram("enrichment.duration",
		metric.WithDescription("Duration of enrichment jobs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating enrichment.duration histogram: %w", err)
	}

	return &PipelineMetrics{
		sessionsTotal:      sessionsTotal,
		qualityScores:      qualityScores,
		enrichmentTotal:    enrichmentTotal,
		enrichmentRetries:  enrichmentRetries,
		enrichmentDuration: enrichmentDuration,
	}, nil
}

// RecordSessionCompleted counts a completed session and records its
// quality score.
func (m *PipelineMetrics) RecordSessionCompleted(ctx context.Context, qualityScore float64, degenerate bool) {
	if m == nil {
		return
	}
	m.sessionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("state", "completed"),
		attribute.Bool("degenerate", degenerate),
	))
	m.qualityScores.Record(ctx, qualityScore)
}

// RecordSessionFailed counts a failed session by error code.
func (m *PipelineMetrics) RecordSessionFailed(ctx context.Context, code string) {
	if m == nil {
		return
	}
	m.sessionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("state", "failed"),
		attribute.String("code", code),
	))
}

// RecordEnrichmentRetry counts one retried generation call.
func (m *PipelineMetrics) RecordEnrichmentRetry(ctx context.Context) {
	if m == nil {
		return
	}
	m.enrichmentRetries.Add(ctx, 1)
}

// RecordEnrichment counts one finished enrichment job and its runtime.
func (m *PipelineMetrics) RecordEnrichment(ctx context.Context, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failed"
	}
	m.enrichmentTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
	m.enrichmentDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}
