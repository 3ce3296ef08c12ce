package monitor

import (
	"context"

	"github.com/itsneelabh/agentctl/core"
)

// EscalationNotifier is the out-of-scope panel collaborator notified when
// the judge escalates (spec.md §6: `AUTO_MONITOR_ESCALATION{severity,
// explanation}`).
type EscalationNotifier interface {
	NotifyEscalation(ctx context.Context, severity core.Severity, explanation string) error
}

// Handshake runs the Human Monitor Handshake (spec.md §4.5) against a task
// that is in WAITING_FOR_MONITOR_RESPONSE. It only mutates task fields; the
// FSM transition itself is the controller's responsibility.
type Handshake struct {
	notifier EscalationNotifier
}

func NewHandshake(notifier EscalationNotifier) *Handshake {
	return &Handshake{notifier: notifier}
}

// Escalate notifies the panel and marks the task's temporary monitor-mode
// elevation, per spec.md §4.4.
func (h *Handshake) Escalate(ctx context.Context, task *core.Task, verdict *Verdict) error {
	task.MonitorModeTemporarilyForced = true
	if h.notifier == nil {
		return nil
	}
	return h.notifier.NotifyEscalation(ctx, verdict.Severity, verdict.Explanation)
}

// Approve clears the temporary elevation and leaves PendingAction in place
// for the controller to dispatch, per spec.md §4.5: "Approve dispatches the
// pending action."
func (h *Handshake) Approve(task *core.Task) {
	task.MonitorModeTemporarilyForced = false
}

// Reject clears PendingAction and records the rejection + feedback so the
// next decision round's prompt carries the warning, per spec.md §4.5 and the
// single-shot-rejection Open Question in §9 (a fresh rejection always
// overwrites any still-pending feedback rather than accumulating it).
func (h *Handshake) Reject(task *core.Task, feedback string) {
	task.MonitorModeTemporarilyForced = false
	task.WasPrevActionRejectedByMonitor = true
	task.RejectionFeedback = feedback
	task.Pending = nil
}

// ClearRejectionNotice is called once the rejection notice has been
// consumed by one decision round, enforcing the single-shot semantics: a
// rejection notice is injected into the prompts of exactly one subsequent
// page-state round (every reprompt iteration of that round carries it) and
// never into a later round.
func ClearRejectionNotice(task *core.Task) {
	task.WasPrevActionRejectedByMonitor = false
	task.RejectionFeedback = ""
}
