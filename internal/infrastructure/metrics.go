package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
)

const (
	ServiceName    = "hrpulse"
	ServiceVersion = "1.0.0"
	MeterName      = "hrpulse"
)

// Metrics holds the OpenTelemetry meter provider, the Prometheus scrape
// handler and the instruments shared by the pipeline and the HTTP layer.
type Metrics struct {
	provider *sdkmetric.MeterProvider

	// Handler serves the Prometheus exposition endpoint.
	Handler http.Handler

	PipelineRuns  metric.Int64Counter
	RowsProcessed metric.Int64Counter
	RowsDropped   metric.Int64Counter
	KPIFailures   metric.Int64Counter
	HTTPRequests  metric.Int64Counter
}

// InitializeMetrics sets up an OTel meter provider backed by the Prometheus
// exporter and creates the application instruments.
func InitializeMetrics(logger *slog.Logger) (*Metrics, error) {
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	meter := provider.Meter(MeterName)

	m := &Metrics{
		provider: provider,
		Handler:  promhttp.Handler(),
	}

	if m.PipelineRuns, err = meter.Int64Counter("pipeline_runs_total",
		metric.WithDescription("Completed pipeline runs, by outcome")); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	if m.RowsProcessed, err = meter.Int64Counter("pipeline_rows_processed_total",
		metric.WithDescription("Rows written per stage table")); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	if m.RowsDropped, err = meter.Int64Counter("pipeline_rows_dropped_total",
		metric.WithDescription("Rows dropped during transform, by reason")); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	if m.KPIFailures, err = meter.Int64Counter("pipeline_kpi_failures_total",
		metric.WithDescription("KPI aggregations that failed in isolation")); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	if m.HTTPRequests, err = meter.Int64Counter("http_requests_total",
		metric.WithDescription("HTTP requests served, by route and status")); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}

	logger.Info("Metrics initialized",
		slog.String("service", ServiceName),
		slog.String("exporter", "prometheus"))

	return m, nil
}

// CountRun records a finished pipeline run. Safe on a nil receiver so the
// pipeline can run without metrics wired.
func (m *Metrics) CountRun(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.PipelineRuns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// CountRows records rows written to a stage table.
func (m *Metrics) CountRows(ctx context.Context, table string, n int64) {
	if m == nil {
		return
	}
	m.RowsProcessed.Add(ctx, n, metric.WithAttributes(attribute.String("table", table)))
}

// CountDropped records rows dropped during transform for a given reason.
func (m *Metrics) CountDropped(ctx context.Context, reason string, n int64) {
	if m == nil || n == 0 {
		return
	}
	m.RowsDropped.Add(ctx, n, metric.WithAttributes(attribute.String("reason", reason)))
}

// CountKPIFailure records an isolated KPI aggregation failure.
func (m *Metrics) CountKPIFailure(ctx context.Context, table string) {
	if m == nil {
		return
	}
	m.KPIFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("table", table)))
}

// CountRequest records an HTTP request.
func (m *Metrics) CountRequest(ctx context.Context, route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route", route),
		attribute.Int("status", status)))
}

// Shutdown flushes and stops the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}
