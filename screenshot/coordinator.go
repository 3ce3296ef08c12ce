// Package screenshot implements the Screenshot Coordinator (spec.md §2,
// §4.3): it decides when an "initial" or "targeted" capture is needed,
// associates each with the current action index, and hands the raw bytes
// to a store.ScreenshotStore for persistence. The actual pixel capture
// (browser screenshot API) and its storage engine are out-of-scope external
// collaborators per spec.md §1; Capturer is the contract for the former,
// store.ScreenshotStore already supplies the latter.
package screenshot

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/google/uuid"

	"github.com/itsneelabh/agentctl/store"
)

// Capturer is the out-of-scope collaborator that actually snaps a PNG of
// the current page. Implementations live in the host environment (a real
// browser extension's captureVisibleTab call); this module only defines
// the contract.
type Capturer interface {
	Capture(ctx context.Context) ([]byte, error)
}

// Coordinator orchestrates capture + persistence for one task. Per spec.md
// §4.3 step 2: "Take an 'initial' screenshot (captured once per page-state
// round; shared across reprompt iterations of that round via a counter of
// prior prompting screenshots for the current action)."
type Coordinator struct {
	capturer Capturer
	store    store.ScreenshotStore

	// numPriorScreenshotsForPrompts counts how many prompting-round
	// screenshots have already been taken for the current action, so a
	// reprompt iteration within the same round can reuse the initial
	// capture instead of re-snapping the page.
	numPriorScreenshotsForPrompts int
	initialForRound               *captured
}

type captured struct {
	pngBase64 string
}

// NewCoordinator creates a Coordinator. capturer is the out-of-scope pixel
// source; store persists what gets captured.
func NewCoordinator(capturer Capturer, s store.ScreenshotStore) *Coordinator {
	return &Coordinator{capturer: capturer, store: s}
}

// ResetRound must be called at the start of each new page-state round
// (spec.md §4.1: entering WAITING_FOR_PAGE_STATE / ACTIVE), clearing the
// shared "initial" capture so the next round takes a fresh one.
func (c *Coordinator) ResetRound() {
	c.initialForRound = nil
	c.numPriorScreenshotsForPrompts = 0
}

// CaptureInitial returns the round's shared "initial" screenshot, capturing
// it on the first call of the round and reusing it on subsequent reprompt
// iterations.
func (c *Coordinator) CaptureInitial(ctx context.Context, taskID uuid.UUID, numPriorActions int) (string, error) {
	if c.initialForRound != nil {
		return c.initialForRound.pngBase64, nil
	}

	png, err := c.capturer.Capture(ctx)
	if err != nil {
		return "", err
	}
	b64 := base64.StdEncoding.EncodeToString(png)
	c.initialForRound = &captured{pngBase64: b64}

	if err := c.store.Append(ctx, store.ScreenshotEntry{
		TaskID:                        taskID,
		NumPriorActions:               numPriorActions,
		NumPriorScreenshotsForPrompts: c.numPriorScreenshotsForPrompts,
		Type:                          store.ScreenshotInitial,
		Timestamp:                     time.Now(),
		PNGBase64:                     b64,
	}); err != nil {
		return "", err
	}
	c.numPriorScreenshotsForPrompts++
	return b64, nil
}

// CaptureTargeted takes a fresh "targeted" screenshot after the helper has
// highlighted the committed element (spec.md §4.3 "After commit"), always
// re-capturing since the highlight overlay has just been rendered.
func (c *Coordinator) CaptureTargeted(ctx context.Context, taskID uuid.UUID, numPriorActions int) (string, error) {
	png, err := c.capturer.Capture(ctx)
	if err != nil {
		return "", err
	}
	b64 := base64.StdEncoding.EncodeToString(png)

	if err := c.store.Append(ctx, store.ScreenshotEntry{
		TaskID:                        taskID,
		NumPriorActions:               numPriorActions,
		NumPriorScreenshotsForPrompts: c.numPriorScreenshotsForPrompts,
		Type:                          store.ScreenshotTargeted,
		Timestamp:                     time.Now(),
		PNGBase64:                     b64,
	}); err != nil {
		return "", err
	}
	return b64, nil
}
