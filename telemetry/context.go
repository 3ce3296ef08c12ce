package telemetry

import "context"

type contextKey int

const taskIDKey contextKey = iota

// WithTaskID returns a context tagged with taskID, so every log line and
// span emitted downstream during a decision round can be correlated back to
// the task (spec.md §5: "tag each record with the current task id").
func WithTaskID(ctx context.Context, taskID string) context.Context {
	return context.WithValue(ctx, taskIDKey, taskID)
}

// TaskIDFromContext retrieves the task id set by WithTaskID, if any.
func TaskIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(taskIDKey).(string)
	return v, ok
}
