// Package export implements History Export (spec.md §4.8): at task
// termination, assemble a zip with the aggregated log, result.json,
// all_predictions.json, and every screenshot recorded during the task.
//
// archive/zip is the one standard-library dependency in this module with
// no corpus-grounded alternative: no third-party zip library appears
// anywhere in the example pack, so this is the documented exception (see
// DESIGN.md).
package export

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/itsneelabh/agentctl/core"
	"github.com/itsneelabh/agentctl/store"
)

// BuildVersion and BuildTimestamp are stamped into the log header, set at
// link time in a real build (spec.md §4.8: "build version and timestamp as
// a header"). Defaulted here since this module has no build pipeline of its
// own.
var (
	BuildVersion   = "dev"
	BuildTimestamp = "unknown"
)

// Result is the shape of result.json.
type Result struct {
	Specification     string             `json:"specification"`
	StartingURL       string             `json:"startingUrl"`
	Counters          core.Counters      `json:"counters"`
	TerminationReason string             `json:"terminationReason"`
	ActionHistory     []core.ActionRecord `json:"actionHistory"`
}

// Bundle holds everything History Export needs, handed off by value from
// the controller per spec.md §3's ownership note.
type Bundle struct {
	TaskID            uuid.UUID
	Specification     string
	StartingURL       string
	Counters          core.Counters
	TerminationReason string
	ActionHistory     []core.ActionRecord
	PredictionHistory []core.PredictionRecord
}

// Exporter assembles the History Export zip.
type Exporter struct {
	logs        store.LogStore
	screenshots store.ScreenshotStore
}

func NewExporter(logs store.LogStore, screenshots store.ScreenshotStore) *Exporter {
	return &Exporter{logs: logs, screenshots: screenshots}
}

// BuildZip assembles the zip described in spec.md §4.8 and returns its raw
// bytes along with a suggested file name.
func (e *Exporter) BuildZip(ctx context.Context, bundle Bundle) ([]byte, string, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	if err := e.writeLogFile(ctx, zw, bundle.TaskID); err != nil {
		return nil, "", fmt.Errorf("writing log file: %w", err)
	}
	if err := writeJSONEntry(zw, "result.json", Result{
		Specification:     bundle.Specification,
		StartingURL:       bundle.StartingURL,
		Counters:          bundle.Counters,
		TerminationReason: bundle.TerminationReason,
		ActionHistory:     bundle.ActionHistory,
	}); err != nil {
		return nil, "", fmt.Errorf("writing result.json: %w", err)
	}
	if err := writeJSONEntry(zw, "all_predictions.json", bundle.PredictionHistory); err != nil {
		return nil, "", fmt.Errorf("writing all_predictions.json: %w", err)
	}
	if err := e.writeScreenshots(ctx, zw, bundle.TaskID); err != nil {
		return nil, "", fmt.Errorf("writing screenshots: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, "", err
	}

	fileName := fmt.Sprintf("agentctl-export-%s-%s.zip", bundle.TaskID.String(), time.Now().UTC().Format("20060102T150405Z"))
	return buf.Bytes(), fileName, nil
}

func (e *Exporter) writeLogFile(ctx context.Context, zw *zip.Writer, taskID uuid.UUID) error {
	entries, err := e.logs.ForTask(ctx, taskID)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Timestamp < entries[j].Timestamp })

	w, err := zw.Create("logs.txt")
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "build=%s timestamp=%s\n", BuildVersion, BuildTimestamp)
	for _, entry := range entries {
		fmt.Fprintf(w, "%s [%s] %s: %s\n", entry.Timestamp, entry.Level, entry.Logger, entry.Message)
	}
	return nil
}

func (e *Exporter) writeScreenshots(ctx context.Context, zw *zip.Writer, taskID uuid.UUID) error {
	entries, err := e.screenshots.ForTask(ctx, taskID)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		name := fmt.Sprintf("screenshots/%04d-%04d-%s-%s.png.b64",
			entry.NumPriorActions, entry.NumPriorScreenshotsForPrompts, entry.Type, entry.Timestamp.UTC().Format("20060102T150405.000Z"))
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		if _, err := w.Write([]byte(entry.PNGBase64)); err != nil {
			return err
		}
	}
	return nil
}

func writeJSONEntry(zw *zip.Writer, name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
