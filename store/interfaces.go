package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LogEntry is one persisted log line, per spec.md §6's "Persisted state":
// (taskId, timestamp without trailing zone marker, logger name, level,
// message).
type LogEntry struct {
	TaskID    uuid.UUID
	Timestamp string // RFC3339 without trailing zone marker, per spec.md §6
	Logger    string
	Level     string
	Message   string
}

// LogStore is the append-only, shared log store spec.md §5 and §8 describe
// (History Export reads it back "sorted by timestamp").
type LogStore interface {
	Append(ctx context.Context, entry LogEntry) error
	ForTask(ctx context.Context, taskID uuid.UUID) ([]LogEntry, error)
}

// ScreenshotType distinguishes the Screenshot Coordinator's two capture
// kinds, per spec.md §2 and §6.
type ScreenshotType string

const (
	ScreenshotInitial  ScreenshotType = "initial"
	ScreenshotTargeted ScreenshotType = "targeted"
)

// ScreenshotEntry is one persisted screenshot, per spec.md §6: (taskId,
// numPriorActions, numPriorScreenshotsForPrompts, screenshotType, timestamp,
// base64 png).
type ScreenshotEntry struct {
	TaskID                        uuid.UUID
	NumPriorActions               int
	NumPriorScreenshotsForPrompts int
	Type                          ScreenshotType
	Timestamp                     time.Time
	PNGBase64                     string
}

// ScreenshotStore is the append-only, shared screenshot store the Screenshot
// Coordinator writes to and History Export reads back.
type ScreenshotStore interface {
	Append(ctx context.Context, entry ScreenshotEntry) error
	ForTask(ctx context.Context, taskID uuid.UUID) ([]ScreenshotEntry, error)
}
