package controller

import (
	"context"

	"github.com/itsneelabh/agentctl/core"
)

// HelperPort is the Go-native stand-in for the browser runtime's page helper
// port (spec.md §6): the controller sends REQ_PAGE_STATE / REQ_ACTION /
// HIGHLIGHT_CANDIDATE_ELEM and receives READY / PAGE_STATE / ACTION_DONE /
// TERMINAL. The real transport (extension messaging) is out of scope per
// spec.md §1; this interface is what controller depends on instead.
type HelperPort interface {
	RequestPageState(ctx context.Context, isMonitorRetry bool) error
	RequestAction(ctx context.Context, action core.ActionKind, elementIndex *int, value string) error
	RequestHighlight(ctx context.Context, elementIndex int, promptingIndex int) error
	Close() error
}

// PanelPort is the Go-native stand-in for the UI panel's port (spec.md §6).
type PanelPort interface {
	NotifyReady(ctx context.Context) error
	NotifyTaskStarted(ctx context.Context, taskID string, success bool, taskSpec string) error
	NotifyActionCandidate(ctx context.Context, description string) error
	NotifyEscalation(ctx context.Context, severity core.Severity, explanation string) error
	NotifyHistoryEntry(ctx context.Context, actionDesc string, success bool, explanation string) error
	Notify(ctx context.Context, msg string, details string) error
	NotifyTaskEnded(ctx context.Context, taskID string, details string) error
	NotifyHistoryExport(ctx context.Context, zipBytes []byte, fileName string) error
	NotifyError(ctx context.Context, msg string) error
	Close() error
}

// HelperInjector is the out-of-scope collaborator that injects a fresh
// helper into a browser tab (spec.md §4.2: "inject the page helper";
// §4.6: "re-inject the helper"). It returns the new HelperPort and the tab
// id the helper was injected into.
type HelperInjector interface {
	Inject(ctx context.Context, tabID int) (HelperPort, error)
}

// TabInspector is the out-of-scope collaborator used to detect navigation
// (spec.md §4.6): query the active tab's id and title.
type TabInspector interface {
	ActiveTab(ctx context.Context) (tabID int, title string, err error)
}
