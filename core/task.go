package core

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// InteractiveElement is the helper's wire contract for one candidate element
// on the page, per spec.md §6.
type InteractiveElement struct {
	Description string
	TagHead     string
	TagName     string
	CenterX     int
	CenterY     int
	// Identifier is whatever opaque handle the page helper uses to target
	// the element on a subsequent REQ_ACTION; this module never interprets it.
	Identifier string
}

// IsVisible reports whether the element's center is away from the origin.
// Per spec.md §4.3, elements sitting at exactly (0,0) are dropped from the
// candidate list (treated as not-really-visible).
func (e InteractiveElement) IsVisible() bool {
	return e.CenterX != 0 || e.CenterY != 0
}

// ViewportInfo is the helper's wire contract for page/viewport geometry.
type ViewportInfo struct {
	Width            int
	Height           int
	ScrollX          int
	ScrollY          int
	PageScrollHeight int
}

// AtTop reports whether the viewport is scrolled to the very top.
func (v ViewportInfo) AtTop() bool {
	return v.ScrollY == 0
}

// AtBottom reports whether the viewport is within one pixel of the page's
// scroll height, per spec.md §4.3's "within 1 px of page height".
func (v ViewportInfo) AtBottom() bool {
	bottom := v.ScrollY + v.Height
	diff := v.PageScrollHeight - bottom
	if diff < 0 {
		diff = -diff
	}
	return diff <= 1
}

// PageState is the page-state message the helper sends after a
// REQ_PAGE_STATE round-trip.
type PageState struct {
	Elements []InteractiveElement
	Viewport ViewportInfo
	URL      string
}

// ActionRecord is an append-only entry in the task's action history. Per
// spec.md §3.
type ActionRecord struct {
	TaskID      uuid.UUID
	Timestamp   time.Time
	URL         string
	Description string
	Success     bool
	NoopReason  *NoopReason
	Rationale   string
}

// IsNoop reports whether this record represents a noop (decided-upon but not
// performed) rather than an attempted, counted action.
func (r ActionRecord) IsNoop() bool {
	return r.NoopReason != nil
}

// PredictionRecord is an append-only entry in the task's prediction history.
// Per spec.md §3.
type PredictionRecord struct {
	TaskID           uuid.UUID
	Timestamp        time.Time
	PlanningOutput   string
	GroundingOutput  string
	ChosenElement    *InteractiveElement
	Action           ActionKind
	Value            string
	Rationale        string
}

// PendingAction is populated once the Decision Pipeline commits to a choice
// and cleared when the action completes, is rejected by the monitor, or the
// task ends. Per spec.md §3.
type PendingAction struct {
	ElementIndex *int
	Element      *InteractiveElement
	Action       ActionKind
	Value        string
	Rationale    string
}

// Counters tracks the per-task operation bookkeeping described in spec.md
// §4.7.
type Counters struct {
	Ops                 int
	Noops               int
	Failures            int
	FailureOrNoopStreak int
}

// RecordSuccess updates counters after a successfully completed action.
func (c *Counters) RecordSuccess() {
	c.Ops++
	c.FailureOrNoopStreak = 0
}

// RecordFailure updates counters after a failed (but attempted) action.
func (c *Counters) RecordFailure() {
	c.Ops++
	c.Failures++
	c.FailureOrNoopStreak++
}

// RecordNoop updates counters after a decided-upon action that was not
// performed. Noops do not increment Ops.
func (c *Counters) RecordNoop() {
	c.Noops++
	c.FailureOrNoopStreak++
}

// Limits holds the positive integer thresholds the Counter & Limit Guard
// enforces, plus the auto-monitor severity threshold. Per spec.md §4.2 and
// §4.7.
type Limits struct {
	MaxOps                 int
	MaxNoops               int
	MaxFailures             int
	MaxFailureOrNoopStreak int
	AutoMonitorThreshold    Severity
}

// Task owns a single user-initiated attempt to accomplish a specification.
// Per spec.md §3: "The controller exclusively owns Task state and
// PendingAction."
type Task struct {
	ID              uuid.UUID
	Specification   string
	InitialURL      string
	TabID           int
	ConfigSnapshot  Limits
	StartedAt       time.Time

	mu sync.Mutex // guards everything below except terminationSignal

	Counters       Counters
	ActionHistory  []ActionRecord
	PredictionHist []PredictionRecord
	Pending        *PendingAction

	// WasPrevActionRejectedByMonitor and RejectionFeedback implement the
	// single-shot rejection-notice prepend described in spec.md §4.5 and the
	// Open Question in §9 (successive rejections are not accumulated).
	WasPrevActionRejectedByMonitor bool
	RejectionFeedback              string

	// MightNextActionCausePageNav is set on commit per spec.md §4.3.
	MightNextActionCausePageNav bool

	// MonitorModeTemporarilyForced is the auto-monitor's temporary elevation,
	// distinct from the user's persistent monitorMode preference (spec.md §4.4).
	MonitorModeTemporarilyForced bool

	// terminationSignal is the sole field readable without the mutex, per
	// spec.md §3's invariant list and §5's ordering guarantees.
	terminationSignal boolFlag
}

// boolFlag is a tiny atomic-ish flag: writes always take a lock internally so
// concurrent Abort() calls are safe, while reads never block on Task.mu.
type boolFlag struct {
	mu  sync.Mutex
	set bool
}

func (f *boolFlag) Set() {
	f.mu.Lock()
	f.set = true
	f.mu.Unlock()
}

func (f *boolFlag) Clear() {
	f.mu.Lock()
	f.set = false
	f.mu.Unlock()
}

func (f *boolFlag) IsSet() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.set
}

// NewTask creates a fresh task with a new UUID, per spec.md §4.2's
// "assign fresh task id".
func NewTask(spec, initialURL string, snapshot Limits) *Task {
	return &Task{
		ID:             uuid.New(),
		Specification:  spec,
		InitialURL:     initialURL,
		ConfigSnapshot: snapshot,
		StartedAt:      time.Now(),
	}
}

// Abort sets the termination signal. Per spec.md §4.1, this is the one field
// writable without holding the task mutex; callers must still re-acquire the
// mutex before calling Terminate.
func (t *Task) Abort() {
	t.terminationSignal.Set()
}

// Aborted reports whether Abort has been called for this task.
func (t *Task) Aborted() bool {
	return t.terminationSignal.IsSet()
}

// ClearTermination resets the abort signal; only Terminate should call this,
// and only at task-end, per spec.md §4.1.
func (t *Task) ClearTermination() {
	t.terminationSignal.Clear()
}

// Lock/Unlock expose the task mutex to callers (controller, pipeline,
// monitor) that must serialize a whole logical step across it, per spec.md
// §5: "Every state transition happens under the mutex."
func (t *Task) Lock()   { t.mu.Lock() }
func (t *Task) Unlock() { t.mu.Unlock() }

// AppendAction appends a completed action record and updates counters
// accordingly. Caller must hold t.mu.
func (t *Task) AppendAction(rec ActionRecord) {
	t.ActionHistory = append(t.ActionHistory, rec)
	switch {
	case rec.IsNoop():
		t.Counters.RecordNoop()
	case rec.Success:
		t.Counters.RecordSuccess()
	default:
		t.Counters.RecordFailure()
	}
}

// AppendPrediction appends a prediction record. Caller must hold t.mu.
func (t *Task) AppendPrediction(rec PredictionRecord) {
	t.PredictionHist = append(t.PredictionHist, rec)
}
