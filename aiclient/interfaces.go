// Package aiclient defines the out-of-scope model API client contract
// (spec.md §1: "the model API client with retry" is an external
// collaborator) and ships concrete multi-provider implementations so the
// rest of this module can be exercised without a live model behind it.
//
// The controller never depends on a specific provider's wire format
// (spec.md Non-goals); it depends only on this package's Client interface,
// which speaks in the three modes the Decision Pipeline and Auto-Monitor
// Judge need: planning, grounding, and judgment.
package aiclient

import (
	"context"

	"github.com/itsneelabh/agentctl/core"
)

// Request bundles everything a single model call needs. Not every field is
// relevant to every mode; see Client's method docs.
type Request struct {
	// Specification is the free-text task the user gave at start-task.
	Specification string
	// PriorActionDescriptions is the ordered list of prior action
	// descriptions, used as history context for planning.
	PriorActionDescriptions []string
	// Choices is the formatted option list (letter -> element description)
	// built by pipeline's candidate filtering/encoding.
	Choices []ChoiceOption
	// ViewportHint is the optional scroll-percentage hint text appended per
	// spec.md §4.3 step 1.
	ViewportHint string
	// RejectionNotice, when non-empty, is prepended per spec.md §4.3 step 3.
	RejectionNotice string
	// Screenshot is the PNG bytes captured for this round, if any.
	Screenshot []byte

	// PlanningOutput/GroundingOutput are populated for Ground and Judge
	// calls respectively, carrying forward the prior call's raw output.
	PlanningOutput  string
	GroundingOutput string

	// Attempt is the 1-based retry attempt number within the current mode's
	// reprompt loop, letting a provider append a terser reminder on repeat
	// attempts (spec.md §4.4: "subsequent attempts append a terser
	// reminder").
	Attempt int
}

// ChoiceOption is one candidate element, pre-encoded with its option letter.
type ChoiceOption struct {
	Letter  string
	Element core.InteractiveElement
}

// PlanResponse is the first model call's free-text reasoning output.
type PlanResponse struct {
	Text string
}

// GroundResponse is the second model call's structured choice.
type GroundResponse struct {
	// NoneOfTheAbove is true when the model declined to choose an element.
	NoneOfTheAbove bool
	// ElementLetter is set iff !NoneOfTheAbove; it is the raw option letter
	// the model chose, unvalidated (validation is the Decision Pipeline's
	// job per spec.md §4.3).
	ElementLetter string
	Action        core.ActionKind
	Value         string
	Explanation   string
}

// JudgeResponse is the auto-monitor's structured severity verdict.
type JudgeResponse struct {
	Severity    core.Severity
	Explanation string
}

// Client is the model API contract the Decision Pipeline and Auto-Monitor
// Judge consume. Implementations must not block indefinitely; ctx
// cancellation must be honored (spec.md §5: "every long operation... re-
// checks [termination] after each suspension").
type Client interface {
	// Plan performs the first, free-text planning call.
	Plan(ctx context.Context, req Request) (*PlanResponse, error)
	// Ground performs the second, structured-choice call.
	Ground(ctx context.Context, req Request) (*GroundResponse, error)
	// Judge performs the third, judgment-mode call used by the auto-monitor.
	Judge(ctx context.Context, req Request) (*JudgeResponse, error)
}
