package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/itsneelabh/agentctl/core"
)

// OTelProvider implements core.Telemetry with OpenTelemetry. Adapted from
// the teacher's telemetry/otel.go, trimmed to an in-process
// TracerProvider (no OTLP exporter wiring) since this module's Non-goals
// (spec.md §1) exclude any specific wire format — traces are available to
// any globally registered exporter the host process configures via
// otel.SetTracerProvider, the same hook the teacher's provider installs
// into.
type OTelProvider struct {
	tracer trace.Tracer
	meter  metric.Meter

	mu      sync.RWMutex
	metrics map[string]metric.Float64Counter
}

// NewOTelProvider creates a provider for serviceName using whatever global
// TracerProvider/MeterProvider is currently registered with the otel
// package (set by the host process, or the SDK no-op defaults in tests).
func NewOTelProvider(serviceName string) *OTelProvider {
	return &OTelProvider{
		tracer:  otel.Tracer(serviceName),
		meter:   otel.Meter(serviceName),
		metrics: make(map[string]metric.Float64Counter),
	}
}

// NewInProcessOTelProvider creates a provider backed by a fresh
// sdktrace.TracerProvider with no exporter attached (spans are created and
// ended but not shipped anywhere) — useful for running the controller
// standalone without a collector, per cmd/agentctl.
func NewInProcessOTelProvider(serviceName string) *OTelProvider {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	return NewOTelProvider(serviceName)
}

func (p *OTelProvider) StartSpan(ctx context.Context, name string) (context.Context, core.Span) {
	spanCtx, span := p.tracer.Start(ctx, name)
	return spanCtx, &otelSpan{span: span}
}

func (p *OTelProvider) RecordMetric(name string, value float64, labels map[string]string) {
	p.mu.Lock()
	counter, ok := p.metrics[name]
	if !ok {
		var err error
		counter, err = p.meter.Float64Counter(name)
		if err != nil {
			p.mu.Unlock()
			return
		}
		p.metrics[name] = counter
	}
	p.mu.Unlock()

	attrs := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		attrs = append(attrs, attribute.String(k, v))
	}
	counter.Add(context.Background(), value, metric.WithAttributes(attrs...))
}

type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) End() { s.span.End() }

func (s *otelSpan) SetAttribute(key string, value interface{}) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}

func (s *otelSpan) RecordError(err error) {
	if err != nil {
		s.span.RecordError(err)
	}
}
