package export

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/agentctl/core"
	"github.com/itsneelabh/agentctl/store"
)

func TestExporter_BuildZipContainsExpectedEntries(t *testing.T) {
	logs := store.NewInMemoryLogStore()
	screenshots := store.NewInMemoryScreenshotStore()
	taskID := uuid.New()
	ctx := context.Background()

	require.NoError(t, logs.Append(ctx, store.LogEntry{TaskID: taskID, Timestamp: "2024-01-01T00:00:00", Logger: "controller", Level: "info", Message: "started"}))
	require.NoError(t, screenshots.Append(ctx, store.ScreenshotEntry{
		TaskID: taskID, NumPriorActions: 0, Type: store.ScreenshotInitial, Timestamp: time.Now(), PNGBase64: "Zm9v",
	}))

	exporter := NewExporter(logs, screenshots)
	bundle := Bundle{
		TaskID:            taskID,
		Specification:     "click the login button",
		StartingURL:       "https://example.com",
		Counters:          core.Counters{Ops: 1},
		TerminationReason: "completed",
		ActionHistory:     []core.ActionRecord{{TaskID: taskID, Description: "CLICK", Success: true}},
	}

	data, fileName, err := exporter.BuildZip(ctx, bundle)
	require.NoError(t, err)
	require.NotEmpty(t, fileName)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	require.True(t, names["logs.txt"])
	require.True(t, names["result.json"])
	require.True(t, names["all_predictions.json"])

	foundScreenshot := false
	for name := range names {
		if len(name) > len("screenshots/") && name[:len("screenshots/")] == "screenshots/" {
			foundScreenshot = true
		}
	}
	require.True(t, foundScreenshot)
}
