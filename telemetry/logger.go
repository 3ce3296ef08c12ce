// Package telemetry provides the structured logger and OpenTelemetry wiring
// used throughout this module. Adapted from the teacher's
// telemetry/logger.go: environment-detected text/JSON format, level
// filtering, and the context-aware Logger methods core.Logger declares.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/itsneelabh/agentctl/core"
)

// Logger is the module's concrete core.Logger/ComponentAwareLogger
// implementation.
type Logger struct {
	level       string
	component   string
	serviceName string
	format      string
	output      io.Writer
	mu          sync.RWMutex
}

var levelRank = map[string]int{"DEBUG": 0, "INFO": 1, "WARN": 2, "ERROR": 3}

// NewLogger creates a logger for serviceName. Configuration priority
// mirrors the teacher: explicit env vars, then Kubernetes auto-detection,
// then defaults.
func NewLogger(serviceName string) *Logger {
	level := os.Getenv("AGENTCTL_LOG_LEVEL")
	if level == "" {
		level = "INFO"
	}
	format := "text"
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		format = "json"
	}
	if envFormat := os.Getenv("AGENTCTL_LOG_FORMAT"); envFormat != "" {
		format = envFormat
	}
	return &Logger{
		level:       strings.ToUpper(level),
		serviceName: serviceName,
		format:      format,
		output:      os.Stdout,
	}
}

// WithComponent returns a logger tagged with component, sharing this
// logger's level/format/output.
func (l *Logger) WithComponent(component string) core.Logger {
	return &Logger{
		level:       l.level,
		component:   component,
		serviceName: l.serviceName,
		format:      l.format,
		output:      l.output,
	}
}

func (l *Logger) Info(msg string, fields map[string]interface{})  { l.log("INFO", msg, fields) }
func (l *Logger) Warn(msg string, fields map[string]interface{})  { l.log("WARN", msg, fields) }
func (l *Logger) Error(msg string, fields map[string]interface{}) { l.log("ERROR", msg, fields) }
func (l *Logger) Debug(msg string, fields map[string]interface{}) { l.log("DEBUG", msg, fields) }

func (l *Logger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log("INFO", msg, withTraceFields(ctx, fields))
}
func (l *Logger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log("ERROR", msg, withTraceFields(ctx, fields))
}
func (l *Logger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log("WARN", msg, withTraceFields(ctx, fields))
}
func (l *Logger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log("DEBUG", msg, withTraceFields(ctx, fields))
}

func withTraceFields(ctx context.Context, fields map[string]interface{}) map[string]interface{} {
	if taskID, ok := TaskIDFromContext(ctx); ok {
		out := make(map[string]interface{}, len(fields)+1)
		for k, v := range fields {
			out[k] = v
		}
		out["task_id"] = taskID
		return out
	}
	return fields
}

func (l *Logger) log(level, msg string, fields map[string]interface{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.shouldLog(level) {
		return
	}

	timestamp := time.Now().Format(time.RFC3339)
	if l.format == "json" {
		l.logJSON(timestamp, level, msg, fields)
		return
	}
	l.logText(timestamp, level, msg, fields)
}

func (l *Logger) logJSON(timestamp, level, msg string, fields map[string]interface{}) {
	entry := map[string]interface{}{
		"timestamp": timestamp,
		"level":     level,
		"service":   l.serviceName,
		"component": l.component,
		"message":   msg,
	}
	for k, v := range fields {
		if _, reserved := entry[k]; !reserved {
			entry[k] = v
		}
	}
	if data, err := json.Marshal(entry); err == nil {
		fmt.Fprintln(l.output, string(data))
	}
}

func (l *Logger) logText(timestamp, level, msg string, fields map[string]interface{}) {
	var b strings.Builder
	if len(fields) > 0 {
		b.WriteString(" ")
		for k, v := range fields {
			fmt.Fprintf(&b, "%s=%v ", k, v)
		}
	}
	fmt.Fprintf(l.output, "%s [%s] [%s:%s] %s%s\n", timestamp, level, l.serviceName, l.component, msg, b.String())
}

func (l *Logger) shouldLog(level string) bool {
	current, ok1 := levelRank[l.level]
	msgLevel, ok2 := levelRank[level]
	if !ok1 || !ok2 {
		return true
	}
	return msgLevel >= current
}
