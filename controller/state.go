// Package controller implements the Agent Controller's FSM Core, Task
// Lifecycle, and External Wiring (spec.md §4.1, §4.2, §4.6): the state
// machine that owns a task's lifecycle, mediates the page helper/UI
// panel/model API conduits, and enforces the strict transition discipline
// spec.md §4.1 requires.
package controller

import "fmt"

// State enumerates the FSM's seven states, per spec.md §4.1. The zero value
// is StateIdle, the initial and terminal state.
type State int

const (
	StateIdle State = iota
	StateWaitingForContentScriptInit
	StateActive
	StateWaitingForPageState
	StateWaitingForMonitorResponse
	StateWaitingForAction
	StatePendingReconnect
)

var stateNames = [...]string{
	"IDLE",
	"WAITING_FOR_CONTENT_SCRIPT_INIT",
	"ACTIVE",
	"WAITING_FOR_PAGE_STATE",
	"WAITING_FOR_MONITOR_RESPONSE",
	"WAITING_FOR_ACTION",
	"PENDING_RECONNECT",
}

func (s State) String() string {
	if int(s) < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

// Event enumerates every trigger the transition table in spec.md §4.1 names.
type Event int

const (
	EventStartTaskAccepted Event = iota
	EventHelperReady
	EventPageStateReceived
	EventDecisionNeedPageState
	EventDecisionHumanReviewRequired
	EventDecisionAct
	EventMonitorApprove
	EventMonitorReject
	EventActionDoneNoNav
	EventActionDoneNav
	EventHelperDisconnectedDuringAction
	EventPortDisconnected
	EventPendingReconnectDisconnectEvent
	EventAbortOrLimitOrError
)

var eventNames = [...]string{
	"start-task accepted",
	"helper-ready",
	"page-state received",
	"decision: need fresh page state",
	"decision: human review required",
	"decision: act",
	"approve",
	"reject",
	"action-done, no nav",
	"action-done, nav detected",
	"helper disconnected during action",
	"port disconnected",
	"helper disconnect event",
	"abort / limit / terminal error",
}

func (e Event) String() string {
	if int(e) < 0 || int(e) >= len(eventNames) {
		return "UNKNOWN"
	}
	return eventNames[e]
}

// transitions is the exhaustive table from spec.md §4.1. "any" and
// "any non-IDLE" rows are expanded per-state below. Every (from, event) not
// present here is a bug per spec.md §3: "all others are bugs and must abort
// the task with a diagnostic".
var transitions = map[State]map[Event]State{
	StateIdle: {
		EventStartTaskAccepted: StateWaitingForContentScriptInit,
	},
	StateWaitingForContentScriptInit: {
		EventHelperReady:                StateWaitingForPageState,
		EventPortDisconnected:           StatePendingReconnect,
		EventAbortOrLimitOrError:        StateIdle,
	},
	StateWaitingForPageState: {
		EventPageStateReceived:          StateActive,
		EventPortDisconnected:           StatePendingReconnect,
		EventAbortOrLimitOrError:        StateIdle,
	},
	StateActive: {
		EventDecisionNeedPageState:        StateWaitingForPageState,
		EventDecisionHumanReviewRequired:  StateWaitingForMonitorResponse,
		EventDecisionAct:                  StateWaitingForAction,
		EventPortDisconnected:             StatePendingReconnect,
		EventAbortOrLimitOrError:          StateIdle,
	},
	StateWaitingForMonitorResponse: {
		EventMonitorApprove:      StateWaitingForAction,
		EventMonitorReject:       StateWaitingForPageState,
		EventPortDisconnected:    StatePendingReconnect,
		EventAbortOrLimitOrError: StateIdle,
	},
	StateWaitingForAction: {
		EventActionDoneNoNav:                 StateWaitingForPageState,
		EventActionDoneNav:                   StateWaitingForContentScriptInit,
		EventHelperDisconnectedDuringAction:  StateWaitingForContentScriptInit,
		EventPortDisconnected:                StatePendingReconnect,
		EventAbortOrLimitOrError:             StateIdle,
	},
	StatePendingReconnect: {
		EventPendingReconnectDisconnectEvent: StateWaitingForContentScriptInit,
		EventAbortOrLimitOrError:             StateIdle,
	},
}

// Next looks up the table entry for (from, event). ok is false for any
// (from, event) pair not in the table, which callers must treat as a bug:
// abort the task with a diagnostic, per spec.md §4.1.
func Next(from State, event Event) (State, bool) {
	byEvent, ok := transitions[from]
	if !ok {
		return StateIdle, false
	}
	to, ok := byEvent[event]
	return to, ok
}

// ErrInvalidTransitionDetail formats a diagnostic for an (from, event) pair
// absent from the table.
func ErrInvalidTransitionDetail(from State, event Event) error {
	return fmt.Errorf("invalid transition: no (%s, %s) entry in the table", from, event)
}
