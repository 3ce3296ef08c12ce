package main

import (
	"context"
	"fmt"

	"github.com/itsneelabh/agentctl/controller"
	"github.com/itsneelabh/agentctl/core"
)

// consolePorts is a single stand-in for every out-of-scope browser-runtime
// collaborator the controller depends on (spec.md §1): HelperPort,
// PanelPort, HelperInjector, and TabInspector. It prints every outbound
// message to stdout and reports a fixed single-tab, single-element page, so
// an operator can drive the FSM manually from the console loop in main.go.
type consolePorts struct {
	logger core.Logger
	tabID  int
}

func newConsolePorts(logger core.Logger) *consolePorts {
	return &consolePorts{logger: logger, tabID: 1}
}

// --- controller.HelperPort ---------------------------------------------------

func (c *consolePorts) RequestPageState(ctx context.Context, isMonitorRetry bool) error {
	fmt.Printf("-> REQ_PAGE_STATE (monitorRetry=%v); type 'page' to respond\n", isMonitorRetry)
	return nil
}

func (c *consolePorts) RequestAction(ctx context.Context, action core.ActionKind, elementIndex *int, value string) error {
	fmt.Printf("-> REQ_ACTION action=%s elementIndex=%v value=%q; type 'action-done' or 'action-failed'\n", action, elementIndex, value)
	return nil
}

func (c *consolePorts) RequestHighlight(ctx context.Context, elementIndex int, promptingIndex int) error {
	fmt.Printf("-> HIGHLIGHT_CANDIDATE_ELEM index=%d (prompting round %d)\n", elementIndex, promptingIndex)
	return nil
}

func (c *consolePorts) Close() error {
	fmt.Println("-> helper port closed")
	return nil
}

// --- controller.HelperInjector -----------------------------------------------

func (c *consolePorts) Inject(ctx context.Context, tabID int) (controller.HelperPort, error) {
	fmt.Printf("-> injecting helper into tab %d\n", tabID)
	c.tabID = tabID
	return c, nil
}

// --- controller.TabInspector --------------------------------------------------

func (c *consolePorts) ActiveTab(ctx context.Context) (int, string, error) {
	return c.tabID, "console tab", nil
}

// --- controller.PanelPort / monitor.EscalationNotifier ------------------------

func (c *consolePorts) NotifyReady(ctx context.Context) error {
	fmt.Println("<- panel ready")
	return nil
}

func (c *consolePorts) NotifyTaskStarted(ctx context.Context, taskID string, success bool, taskSpec string) error {
	fmt.Printf("<- task %s started (success=%v): %s\n", taskID, success, taskSpec)
	return nil
}

func (c *consolePorts) NotifyActionCandidate(ctx context.Context, description string) error {
	fmt.Printf("<- candidate action: %s\n", description)
	return nil
}

func (c *consolePorts) NotifyEscalation(ctx context.Context, severity core.Severity, explanation string) error {
	fmt.Printf("<- AUTO_MONITOR_ESCALATION severity=%s explanation=%q; type 'approve' or 'reject <feedback>'\n", severity, explanation)
	return nil
}

func (c *consolePorts) NotifyHistoryEntry(ctx context.Context, actionDesc string, success bool, explanation string) error {
	fmt.Printf("<- history: %s (success=%v) %s\n", actionDesc, success, explanation)
	return nil
}

func (c *consolePorts) Notify(ctx context.Context, msg string, details string) error {
	fmt.Printf("<- notify: %s %s\n", msg, details)
	return nil
}

func (c *consolePorts) NotifyTaskEnded(ctx context.Context, taskID string, details string) error {
	fmt.Printf("<- task %s ended: %s\n", taskID, details)
	return nil
}

func (c *consolePorts) NotifyHistoryExport(ctx context.Context, zipBytes []byte, fileName string) error {
	fmt.Printf("<- history export ready: %s (%d bytes)\n", fileName, len(zipBytes))
	return nil
}

func (c *consolePorts) NotifyError(ctx context.Context, msg string) error {
	fmt.Printf("<- error: %s\n", msg)
	return nil
}

// samplePageState is the fixed single-candidate page the console loop's
// 'page' command replies with, standing in for a real REQ_PAGE_STATE
// round-trip against a browser tab.
func (c *consolePorts) samplePageState() core.PageState {
	return core.PageState{
		Elements: []core.InteractiveElement{
			{Description: "Sample button", TagName: "button", CenterX: 100, CenterY: 200, Identifier: "sample-1"},
		},
		Viewport: core.ViewportInfo{Width: 1280, Height: 720, PageScrollHeight: 720},
		URL:      "https://example.com",
	}
}
