package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// meterName scopes this module's instruments on the global provider.
const meterName = "callscribe"

// InitMeterProvider installs a meter provider with the given readers as the
// global provider and returns it for shutdown on exit. Tests pass a manual
// reader; production processes pass a periodic reader bound to their
// exporter of choice.
func InitMeterProvider(readers ...sdkmetric.Reader) *sdkmetric.MeterProvider {
	opts := make([]sdkmetric.Option, 0, len(readers))
	for _, r := range readers {
		opts = append(opts, sdkmetric.WithReader(r))
	}
	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	return mp
}

// Metrics holds the pipeline's metric instruments.
type Metrics struct {
	jobsTotal      metric.Int64Counter
	stageDuration  metric.Float64Histogram
	collabRequests metric.Int64Counter
	collabErrors   metric.Int64Counter
	collabLatency  metric.Float64Histogram
	sessionsActive metric.Int64UpDownCounter
	windowsTotal   metric.Int64Counter
}

// NewMetrics creates the instrument set on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	jobsTotal, err := meter.Int64Counter("pipeline.jobs.total",
		metric.WithDescription("Completed jobs by terminal status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.jobs.total counter: %w", err)
	}

	stageDuration, err := meter.Float64Histogram("pipeline.stage.duration",
		metric.WithDescription("Duration of pipeline stages in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.stage.duration histogram: %w", err)
	}

	collabRequests, err := meter.Int64Counter("collaborator.requests.total",
		metric.WithDescription("Requests to collaborator services"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating collaborator.requests.total counter: %w", err)
	}

	collabErrors, err := meter.Int64Counter("collaborator.errors.total",
		metric.WithDescription("Failed requests to collaborator services"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating collaborator.errors.total counter: %w", err)
	}

	collabLatency, err := meter.Float64Histogram("collaborator.latency",
		metric.WithDescription("Latency of collaborator requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating collaborator.latency histogram: %w", err)
	}

	sessionsActive, err := meter.Int64UpDownCounter("streaming.sessions.active",
		metric.WithDescription("Currently open streaming sessions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating streaming.sessions.active gauge: %w", err)
	}

	windowsTotal, err := meter.Int64Counter("streaming.windows.total",
		metric.WithDescription("Analysis windows processed across all sessions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating streaming.windows.total counter: %w", err)
	}

	return &Metrics{
		jobsTotal:      jobsTotal,
		stageDuration:  stageDuration,
		collabRequests: collabRequests,
		collabErrors:   collabErrors,
		collabLatency:  collabLatency,
		sessionsActive: sessionsActive,
		windowsTotal:   windowsTotal,
	}, nil
}

// RecordJob records a job reaching a terminal status.
func (m *Metrics) RecordJob(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.jobsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordStage records the duration of one pipeline stage.
func (m *Metrics) RecordStage(ctx context.Context, stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordCollaborator records a request to a collaborator service.
func (m *Metrics) RecordCollaborator(ctx context.Context, service string, d time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("service", service))
	m.collabRequests.Add(ctx, 1, attrs)
	m.collabLatency.Record(ctx, d.Seconds(), attrs)
	if err != nil {
		m.collabErrors.Add(ctx, 1, attrs)
	}
}

// SessionOpened increments the active session gauge.
func (m *Metrics) SessionOpened(ctx context.Context) {
	if m == nil {
		return
	}
	m.sessionsActive.Add(ctx, 1)
}

// SessionClosed decrements the active session gauge.
func (m *Metrics) SessionClosed(ctx context.Context) {
	if m == nil {
		return
	}
	m.sessionsActive.Add(ctx, -1)
}

// RecordWindow records one processed analysis window.
func (m *Metrics) RecordWindow(ctx context.Context) {
	if m == nil {
		return
	}
	m.windowsTotal.Add(ctx, 1)
}
