// Package observability wires OpenTelemetry tracing and metrics around the
// Agent Loop and the Event Bus: spans per turn and per emitted event, plus
// an events-total counter and a turn-duration histogram exported through
// the OTel Prometheus reader. It is additive instrumentation: every
// exported helper is a no-op when no Provider has been configured, so
// packages that import this one never need to special-case an
// unconfigured process.
package observability

import (
	"context"
	"fmt"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/prime-radiant-inc/sprout"

// Provider owns the process-wide tracer, meter, and their exporter
// lifecycles.
type Provider struct {
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer

	mp             *sdkmetric.MeterProvider
	eventsTotal    metric.Int64Counter
	turnDuration   metric.Float64Histogram
}

// Config selects the trace exporter. Endpoint is only consulted when
// Exporter is "otlp". Registerer, if set, is where the OTel Prometheus
// metrics reader publishes the sprout.bus.events_total and
// sprout.agent.turn_duration_seconds instruments — pass the same
// *prometheus.Registry given to pkg/metrics.New so both surface on one
// /metrics endpoint.
type Config struct {
	// Exporter is "otlp", "stdout", or "" (disabled).
	Exporter    string
	Endpoint    string
	ServiceName string
	Registerer  promclient.Registerer
}

// NewProvider builds a Provider per cfg. An empty Exporter returns a nil
// Provider, not an error: callers treat a nil *Provider as "tracing and
// metrics off." Enabling an Exporter turns both on together.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.Exporter == "" {
		return nil, nil
	}

	var exporter sdktrace.SpanExporter
	var err error
	switch cfg.Exporter {
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "otlp":
		opts := []otlptracegrpc.Option{}
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(cfg.Endpoint), otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("observability: unknown exporter %q", cfg.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("observability: build exporter: %w", err)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "sprout"
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("observability: build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	var promOpts []otelprom.Option
	if cfg.Registerer != nil {
		promOpts = append(promOpts, otelprom.WithRegisterer(cfg.Registerer))
	}
	promReader, err := otelprom.New(promOpts...)
	if err != nil {
		return nil, fmt.Errorf("observability: build prometheus metric reader: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(promReader),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	meter := mp.Meter(instrumentationName)
	eventsTotal, err := meter.Int64Counter("sprout.bus.events_total",
		metric.WithDescription("Events emitted on the bus, by kind."))
	if err != nil {
		return nil, fmt.Errorf("observability: build events counter: %w", err)
	}
	turnDuration, err := meter.Float64Histogram("sprout.agent.turn_duration_seconds",
		metric.WithDescription("Agent Loop turn duration in seconds."))
	if err != nil {
		return nil, fmt.Errorf("observability: build turn duration histogram: %w", err)
	}

	return &Provider{
		tp:           tp,
		tracer:       tp.Tracer(instrumentationName),
		mp:           mp,
		eventsTotal:  eventsTotal,
		turnDuration: turnDuration,
	}, nil
}

// Shutdown flushes and tears down the trace and metric exporters. Safe to
// call on a nil Provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var err error
	if p.tp != nil {
		err = p.tp.Shutdown(ctx)
	}
	if p.mp != nil {
		if mpErr := p.mp.Shutdown(ctx); mpErr != nil && err == nil {
			err = mpErr
		}
	}
	return err
}

// StartEventSpan opens a span for one emitted SessionEvent, tagged with the
// attributes the Event Bus addition in SPEC_FULL.md §4.1 calls for: kind,
// agent_id, depth, and increments the sprout.bus.events_total counter for
// the same kind. Safe to call on a nil Provider — it returns ctx unchanged
// and a no-op end function.
func (p *Provider) StartEventSpan(ctx context.Context, kind, agentID string, depth int) (context.Context, func()) {
	if p == nil {
		return ctx, func() {}
	}
	attrs := []attribute.KeyValue{
		attribute.String("kind", kind),
		attribute.String("agent_id", agentID),
		attribute.Int("depth", depth),
	}
	if p.eventsTotal != nil {
		p.eventsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if p.tracer == nil {
		return ctx, func() {}
	}
	spanCtx, span := p.tracer.Start(ctx, "bus.emit", trace.WithAttributes(attrs...))
	return spanCtx, func() { span.End() }
}

// StartTurnSpan opens a span covering one Agent Loop turn (PLAN → DISPATCH →
// VERIFY), per SPEC_FULL.md §4.7's [ADD] instrumentation note, and records
// its wall-clock duration to sprout.agent.turn_duration_seconds when the
// returned func runs.
func (p *Provider) StartTurnSpan(ctx context.Context, agentName string, turn int) (context.Context, func()) {
	if p == nil {
		return ctx, func() {}
	}
	attrs := []attribute.KeyValue{
		attribute.String("agent_name", agentName),
		attribute.Int("turn", turn),
	}
	started := time.Now()
	end := func() {
		if p.turnDuration != nil {
			p.turnDuration.Record(ctx, time.Since(started).Seconds(), metric.WithAttributes(attrs...))
		}
	}
	if p.tracer == nil {
		return ctx, end
	}
	spanCtx, span := p.tracer.Start(ctx, "agent.turn", trace.WithAttributes(attrs...))
	return spanCtx, func() { span.End(); end() }
}
