package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/itsneelabh/agentctl/aiclient"
	"github.com/itsneelabh/agentctl/configstore"
	"github.com/itsneelabh/agentctl/core"
	"github.com/itsneelabh/agentctl/export"
	"github.com/itsneelabh/agentctl/limits"
	"github.com/itsneelabh/agentctl/monitor"
	"github.com/itsneelabh/agentctl/pipeline"
	"github.com/itsneelabh/agentctl/screenshot"
)

// navigationGracePeriod is spec.md §4.6's "waits 500 ms if the action might
// navigate" before querying the active tab.
const navigationGracePeriod = 500 * time.Millisecond

// Controller is the Agent Controller: the FSM Core, Task Lifecycle, and
// External Wiring components of spec.md §2, combined behind one mutex per
// spec.md §4.1's "single controller-wide mutex serializes every inbound
// event".
type Controller struct {
	mu sync.Mutex

	state State
	task  *core.Task

	configStore *configstore.Store
	pipeline    *pipeline.Pipeline
	judge       *monitor.Judge
	handshake   *monitor.Handshake
	guard       *limits.Guard
	exporter    *export.Exporter
	screenshots *screenshot.Coordinator

	injector HelperInjector
	tabs     TabInspector
	helper   HelperPort
	panel    PanelPort

	logger    core.Logger
	telemetry core.Telemetry

	priorActionDescriptions []string
}

// Deps bundles every collaborator Controller needs. All fields are
// required except Logger/Telemetry, which default to no-ops.
type Deps struct {
	ConfigStore *configstore.Store
	Pipeline    *pipeline.Pipeline
	Judge       *monitor.Judge
	Handshake   *monitor.Handshake
	Guard       *limits.Guard
	Exporter    *export.Exporter
	Screenshots *screenshot.Coordinator
	Injector    HelperInjector
	Tabs        TabInspector
	Logger      core.Logger
	Telemetry   core.Telemetry
}

// New creates a Controller in its initial IDLE state.
func New(deps Deps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	telemetry := deps.Telemetry
	if telemetry == nil {
		telemetry = &core.NoOpTelemetry{}
	}
	return &Controller{
		state:       StateIdle,
		configStore: deps.ConfigStore,
		pipeline:    deps.Pipeline,
		judge:       deps.Judge,
		handshake:   deps.Handshake,
		guard:       deps.Guard,
		exporter:    deps.Exporter,
		screenshots: deps.Screenshots,
		injector:    deps.Injector,
		tabs:        deps.Tabs,
		logger:      logger,
		telemetry:   telemetry,
	}
}

// State returns the controller's current FSM state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// transition validates and applies a state change. Caller must hold c.mu.
// An invalid (from, event) pair is itself a bug per spec.md §4.1 and
// terminates the task with a diagnostic rather than silently proceeding.
func (c *Controller) transition(ctx context.Context, event Event) error {
	_, span := c.telemetry.StartSpan(ctx, "controller.transition")
	span.SetAttribute("from", c.state.String())
	span.SetAttribute("event", event.String())
	defer span.End()

	to, ok := Next(c.state, event)
	if !ok {
		err := ErrInvalidTransitionDetail(c.state, event)
		span.RecordError(err)
		c.logger.ErrorWithContext(ctx, "invalid FSM transition", map[string]interface{}{"from": c.state.String(), "event": event.String()})
		c.terminateLocked(ctx, err.Error(), true)
		return err
	}
	span.SetAttribute("to", to.String())
	c.logger.InfoWithContext(ctx, "FSM transition", map[string]interface{}{"from": c.state.String(), "event": event.String(), "to": to.String()})
	c.state = to
	return nil
}

// SetPanel attaches the panel port, per spec.md §3's "at most one panel
// port is held at a time".
func (c *Controller) SetPanel(panel PanelPort) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.panel = panel
}

// KeepAlive handles a KEEP_ALIVE panel message; per spec.md §5 it is
// otherwise ignored.
func (c *Controller) KeepAlive() {}

// HandleKillTask handles a KILL_TASK panel message (spec.md §4.1's "user
// abort"): sets the abort signal without waiting for the current step.
func (c *Controller) HandleKillTask() {
	c.mu.Lock()
	task := c.task
	c.mu.Unlock()
	if task != nil {
		task.Abort()
	}
}

// StartTask implements spec.md §4.2's start-task. It validates EULA
// acceptance, that no task is already running, and that spec is non-empty,
// then injects the page helper into tabID.
func (c *Controller) StartTask(ctx context.Context, spec string, tabID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg := c.configStore.Current()
	if !cfg.EULAAccepted {
		return core.NewFrameworkError("Controller.StartTask", "task", core.ErrEULANotAccepted)
	}
	if c.task != nil {
		return core.NewFrameworkError("Controller.StartTask", "task", core.ErrTaskAlreadyRunning)
	}
	if spec == "" {
		return core.NewFrameworkError("Controller.StartTask", "task", core.ErrEmptySpecification)
	}

	task := core.NewTask(spec, "", cfg.Limits())
	task.TabID = tabID
	c.task = task
	c.priorActionDescriptions = nil

	if err := c.transition(ctx, EventStartTaskAccepted); err != nil {
		return err
	}

	helper, err := c.injector.Inject(ctx, tabID)
	if err != nil {
		c.terminateLocked(ctx, fmt.Sprintf("helper injection failed: %v", err), true)
		return err
	}
	c.helper = helper

	if c.panel != nil {
		_ = c.panel.NotifyTaskStarted(ctx, task.ID.String(), true, spec)
	}
	return nil
}

// HandleHelperReady handles the helper's READY message.
func (c *Controller) HandleHelperReady(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.transition(ctx, EventHelperReady); err != nil {
		return err
	}
	return c.helper.RequestPageState(ctx, false)
}

// HandlePageState handles a PAGE_STATE message from the helper, running the
// Decision Pipeline's reprompting loop and acting on its outcome.
func (c *Controller) HandlePageState(ctx context.Context, state core.PageState) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.transition(ctx, EventPageStateReceived); err != nil {
		return err
	}
	task := c.task

	task.Lock()
	wasRejected := task.WasPrevActionRejectedByMonitor
	result, err := c.pipeline.RunPageStateRound(ctx, task, state, c.priorActionDescriptions)
	if wasRejected {
		monitor.ClearRejectionNotice(task)
	}
	task.Unlock()

	if err != nil {
		c.terminateLocked(ctx, err.Error(), true)
		return err
	}

	switch result.Kind {
	case pipeline.RoundTerminated:
		c.terminateLocked(ctx, "task completed", false)
		return nil

	case pipeline.RoundWaitAndRefetch:
		return c.transitionAndRequestPageState(ctx)

	case pipeline.RoundLimitBreached:
		c.terminateLocked(ctx, result.Breach.Reason, false)
		return nil

	case pipeline.RoundCommitted:
		return c.onCommitted(ctx, result)
	}
	return nil
}

func (c *Controller) transitionAndRequestPageState(ctx context.Context) error {
	if err := c.transition(ctx, EventDecisionNeedPageState); err != nil {
		return err
	}
	return c.helper.RequestPageState(ctx, true)
}

// onCommitted routes a committed decision to either the Auto-Monitor Judge
// or direct dispatch, per spec.md §4.4: "Invoked before any CLICK or
// PRESS_ENTER when monitor mode is not already on." A persistent monitorMode
// preference skips the judge and always requires human review; otherwise
// the judge decides whether to escalate.
func (c *Controller) onCommitted(ctx context.Context, result pipeline.RoundResult) error {
	task := c.task
	pending := result.Pending
	cfg := c.configStore.Current()
	reviewable := pending.Action == core.ActionClick || pending.Action == core.ActionPressEnter

	if reviewable && cfg.MonitorMode {
		if err := c.transition(ctx, EventDecisionHumanReviewRequired); err != nil {
			return err
		}
		return c.handshake.Escalate(ctx, task, &monitor.Verdict{Severity: cfg.AutoMonitorThreshold, Explanation: "monitor mode is always-on"})
	}

	if reviewable {
		verdict, err := c.judge.Evaluate(ctx, aiclient.Request{
			Specification:   task.Specification,
			PlanningOutput:  result.PlanningOutput,
			GroundingOutput: result.GroundingOutput,
			Screenshot:      result.Screenshot,
		})
		if err != nil {
			c.terminateLocked(ctx, err.Error(), true)
			return err
		}
		if monitor.ShouldEscalate(verdict, cfg.AutoMonitorThreshold) {
			if err := c.transition(ctx, EventDecisionHumanReviewRequired); err != nil {
				return err
			}
			return c.handshake.Escalate(ctx, task, verdict)
		}
	}

	if err := c.transition(ctx, EventDecisionAct); err != nil {
		return err
	}
	return c.dispatchPending(ctx)
}

// HandleMonitorApproved handles a MONITOR_APPROVED panel message.
func (c *Controller) HandleMonitorApproved(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handshake.Approve(c.task)
	if err := c.transition(ctx, EventMonitorApprove); err != nil {
		return err
	}
	return c.dispatchPending(ctx)
}

// HandleMonitorRejected handles a MONITOR_REJECTED panel message.
func (c *Controller) HandleMonitorRejected(ctx context.Context, feedback string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handshake.Reject(c.task, feedback)
	if err := c.transition(ctx, EventMonitorReject); err != nil {
		return err
	}
	return c.helper.RequestPageState(ctx, true)
}

func (c *Controller) dispatchPending(ctx context.Context) error {
	task := c.task
	task.Lock()
	pending := task.Pending
	task.Unlock()
	if pending == nil {
		return core.NewFrameworkError("Controller.dispatchPending", "fsm", core.ErrInvalidMessage)
	}
	if err := c.helper.RequestAction(ctx, pending.Action, pending.ElementIndex, pending.Value); err != nil {
		if core.IsTransientPortClosure(err) {
			return c.transition(ctx, EventPortDisconnected)
		}
		c.terminateLocked(ctx, err.Error(), true)
		return err
	}
	return nil
}

// HandleActionDone handles the helper's ACTION_DONE message, per spec.md
// §4.6: navigation detection via a 500ms grace period plus tab-id
// comparison.
func (c *Controller) HandleActionDone(ctx context.Context, success bool, sleep func(time.Duration)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	task := c.task
	task.Lock()
	pending := task.Pending
	mightNav := task.MightNextActionCausePageNav
	url := task.InitialURL
	task.Unlock()

	if sleep == nil {
		sleep = time.Sleep
	}
	if mightNav {
		sleep(navigationGracePeriod)
	}

	newTabID, title, err := c.tabs.ActiveTab(ctx)
	if err != nil {
		c.terminateLocked(ctx, fmt.Sprintf("active tab query failed: %v", err), true)
		return err
	}

	navigated := newTabID != task.TabID
	description := describeAction(pending)
	if navigated {
		description = fmt.Sprintf("%s (navigated to %q)", description, title)
	}

	task.Lock()
	task.AppendAction(core.ActionRecord{
		TaskID: task.ID, Timestamp: time.Now(), URL: url,
		Description: description, Success: success,
	})
	task.Pending = nil
	task.Unlock()
	c.priorActionDescriptions = append(c.priorActionDescriptions, description)

	if c.panel != nil {
		_ = c.panel.NotifyHistoryEntry(ctx, description, success, "")
	}

	if breach := c.guard.Check(task.Counters, task.ConfigSnapshot); breach != nil {
		c.terminateLocked(ctx, breach.Reason, false)
		return nil
	}

	if !navigated {
		return c.transitionAndRequestPageState2(ctx)
	}

	task.TabID = newTabID
	if err := c.reinjectHelper(ctx, newTabID); err != nil {
		return err
	}
	return c.transitionNavDetected(ctx)
}

func (c *Controller) transitionAndRequestPageState2(ctx context.Context) error {
	if err := c.transition(ctx, EventActionDoneNoNav); err != nil {
		return err
	}
	return c.helper.RequestPageState(ctx, false)
}

func (c *Controller) transitionNavDetected(ctx context.Context) error {
	if err := c.transition(ctx, EventActionDoneNav); err != nil {
		return err
	}
	return c.helper.RequestPageState(ctx, false)
}

// HandleHelperDisconnected handles the helper port closing unexpectedly
// while WAITING_FOR_ACTION (spec.md §4.6: "Treated as navigation").
func (c *Controller) HandleHelperDisconnected(ctx context.Context, sleep func(time.Duration)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	task := c.task
	if sleep == nil {
		sleep = time.Sleep
	}
	sleep(navigationGracePeriod)

	newTabID, _, err := c.tabs.ActiveTab(ctx)
	if err != nil {
		c.terminateLocked(ctx, fmt.Sprintf("active tab query failed: %v", err), true)
		return err
	}

	task.Lock()
	anticipated := task.MightNextActionCausePageNav
	pending := task.Pending
	task.AppendAction(core.ActionRecord{
		TaskID: task.ID, Timestamp: time.Now(), URL: task.InitialURL,
		Description: describeAction(pending), Success: anticipated,
	})
	task.Pending = nil
	task.TabID = newTabID
	task.Unlock()

	if err := c.reinjectHelper(ctx, newTabID); err != nil {
		return err
	}
	return c.transition(ctx, EventHelperDisconnectedDuringAction)
}

func (c *Controller) reinjectHelper(ctx context.Context, tabID int) error {
	if c.helper != nil {
		_ = c.helper.Close()
	}
	helper, err := c.injector.Inject(ctx, tabID)
	if err != nil {
		c.terminateLocked(ctx, fmt.Sprintf("re-injection failed: %v", err), true)
		return err
	}
	c.helper = helper
	return nil
}

// HandlePortDisconnected handles a "port disconnected" send failure from any
// non-IDLE state, per spec.md §4.1.
func (c *Controller) HandlePortDisconnected(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transition(ctx, EventPortDisconnected)
}

// HandlePendingReconnectDisconnectEvent handles the expected disconnect
// event that ends PENDING_RECONNECT, re-injecting the helper.
func (c *Controller) HandlePendingReconnectDisconnectEvent(ctx context.Context, tabID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.reinjectHelper(ctx, tabID); err != nil {
		return err
	}
	return c.transition(ctx, EventPendingReconnectDisconnectEvent)
}

func describeAction(pending *core.PendingAction) string {
	if pending == nil {
		return "unknown action"
	}
	if pending.Element != nil {
		return fmt.Sprintf("%s on %q", pending.Action, pending.Element.Description)
	}
	return string(pending.Action)
}

// Terminate implements spec.md §4.2's terminate(reason, isError): idempotent
// and safe from any state.
func (c *Controller) Terminate(ctx context.Context, reason string, isError bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.terminateLocked(ctx, reason, isError)
}

// terminateLocked is Terminate's body; caller must already hold c.mu.
func (c *Controller) terminateLocked(ctx context.Context, reason string, isError bool) {
	task := c.task
	if task == nil {
		c.state = StateIdle
		return
	}

	task.Lock()
	bundle := export.Bundle{
		TaskID:            task.ID,
		Specification:     task.Specification,
		StartingURL:       task.InitialURL,
		Counters:          task.Counters,
		TerminationReason: reason,
		ActionHistory:     task.ActionHistory,
		PredictionHistory: task.PredictionHist,
	}
	task.Unlock()

	c.logger.InfoWithContext(ctx, "task terminated", map[string]interface{}{"reason": reason, "isError": isError, "taskId": task.ID.String()})

	if c.exporter != nil {
		if zipBytes, fileName, err := c.exporter.BuildZip(ctx, bundle); err != nil {
			c.logger.ErrorWithContext(ctx, "history export failed", map[string]interface{}{"error": err.Error()})
		} else if c.panel != nil {
			_ = c.panel.NotifyHistoryExport(ctx, zipBytes, fileName)
		}
	}

	if c.panel != nil {
		_ = c.panel.NotifyTaskEnded(ctx, task.ID.String(), reason)
	}

	if c.helper != nil {
		_ = c.helper.Close()
		c.helper = nil
	}

	task.ClearTermination()
	task.MonitorModeTemporarilyForced = false
	c.task = nil
	c.priorActionDescriptions = nil
	c.state = StateIdle
}
