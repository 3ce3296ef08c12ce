package core

import "context"

// Logger is the minimal structured logging interface shared across every
// package in this module. It mirrors the teacher framework's logging
// contract: plain and context-aware variants, so callers on the hot path
// (FSM transitions, decision rounds) can attach trace correlation without a
// second interface.
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Debug(msg string, fields map[string]interface{})

	InfoWithContext(ctx context.Context, msg string, fields map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, fields map[string]interface{})
	DebugWithContext(ctx context.Context, msg string, fields map[string]interface{})
}

// ComponentAwareLogger extends Logger with a component tag, so a shared base
// logger can be specialized per package (e.g. "controller", "pipeline")
// without plumbing a new logger through every constructor.
type ComponentAwareLogger interface {
	Logger
	WithComponent(component string) Logger
}

// Telemetry is the optional tracing/metrics façade. Every consumer must
// nil-check before use; NoOpTelemetry is the safe default.
type Telemetry interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
	RecordMetric(name string, value float64, labels map[string]string)
}

// Span represents a single telemetry span.
type Span interface {
	End()
	SetAttribute(key string, value interface{})
	RecordError(err error)
}

// NoOpLogger discards everything. It is the safe default wherever a
// component accepts an optional Logger per constructor, matching the
// teacher's "defaults to NoOp" convention.
type NoOpLogger struct{}

func (n *NoOpLogger) Info(string, map[string]interface{})                                  {}
func (n *NoOpLogger) Error(string, map[string]interface{})                                 {}
func (n *NoOpLogger) Warn(string, map[string]interface{})                                  {}
func (n *NoOpLogger) Debug(string, map[string]interface{})                                 {}
func (n *NoOpLogger) InfoWithContext(context.Context, string, map[string]interface{})       {}
func (n *NoOpLogger) ErrorWithContext(context.Context, string, map[string]interface{})      {}
func (n *NoOpLogger) WarnWithContext(context.Context, string, map[string]interface{})       {}
func (n *NoOpLogger) DebugWithContext(context.Context, string, map[string]interface{})      {}
func (n *NoOpLogger) WithComponent(string) Logger                                           { return n }

// NoOpTelemetry discards every span and metric.
type NoOpTelemetry struct{}

func (n *NoOpTelemetry) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, &noopSpan{}
}
func (n *NoOpTelemetry) RecordMetric(string, float64, map[string]string) {}

type noopSpan struct{}

func (s *noopSpan) End()                               {}
func (s *noopSpan) SetAttribute(string, interface{})   {}
func (s *noopSpan) RecordError(error)                  {}
