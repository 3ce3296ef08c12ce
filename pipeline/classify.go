package pipeline

import (
	"strings"

	"github.com/itsneelabh/agentctl/aiclient"
	"github.com/itsneelabh/agentctl/core"
)

// OutcomeKind enumerates the classification branches of spec.md §4.3 step 5.
type OutcomeKind int

const (
	OutcomeTerminate OutcomeKind = iota
	OutcomeWaitAndRefetch
	OutcomeNoop
	OutcomeCommit
)

// Outcome is the result of classifying one grounding response.
type Outcome struct {
	Kind       OutcomeKind
	NoopReason core.NoopReason
	Pending    *core.PendingAction
}

// loadingKeywords are matched case-insensitively against a NONE response's
// explanation; spec.md §4.3 requires at least two distinct matches to treat
// it as "page still loading" rather than a plain noop.
var loadingKeywords = []string{"still", "loading", "wait", "finished"}

func countLoadingKeywords(explanation string) int {
	lower := strings.ToLower(explanation)
	count := 0
	for _, kw := range loadingKeywords {
		if strings.Contains(lower, kw) {
			count++
		}
	}
	return count
}

// Classify implements spec.md §4.3 step 5's decision tree. candidates is the
// filtered, letter-indexed list from the current page state; viewport is
// used for the scroll-edge nonsensical-scroll check.
func Classify(resp *aiclient.GroundResponse, candidates []Candidate, viewport core.ViewportInfo) Outcome {
	if resp.Action == core.ActionTerminate {
		return Outcome{Kind: OutcomeTerminate}
	}

	if resp.Action == core.ActionNone {
		if countLoadingKeywords(resp.Explanation) >= 2 {
			return Outcome{Kind: OutcomeWaitAndRefetch}
		}
		return Outcome{Kind: OutcomeNoop, NoopReason: core.NoopAISelectedNone}
	}

	var chosen *Candidate
	if !resp.NoneOfTheAbove && resp.ElementLetter != "" {
		c, ok := ResolveLetter(candidates, resp.ElementLetter)
		if !ok {
			if resp.Action.RequiresElement() {
				return Outcome{Kind: OutcomeNoop, NoopReason: core.NoopInvalidElement}
			}
			// Element-independent action with a stray, unresolvable letter:
			// ignore the letter and fall through to commit without a target.
		} else {
			chosen = &c
		}
	}

	if resp.Action.RequiresElement() && chosen == nil {
		// "None of the above" chosen for an element-requiring action.
		return Outcome{Kind: OutcomeNoop, NoopReason: core.NoopActionIncompatibleWithNone}
	}

	if resp.Action == core.ActionScrollUp && viewport.AtTop() {
		return Outcome{Kind: OutcomeNoop, NoopReason: core.NoopNonsensicalScroll}
	}
	if resp.Action == core.ActionScrollDown && viewport.AtBottom() {
		return Outcome{Kind: OutcomeNoop, NoopReason: core.NoopNonsensicalScroll}
	}

	pending := &core.PendingAction{
		Action:    resp.Action,
		Value:     resp.Value,
		Rationale: resp.Explanation,
	}
	if !resp.Action.RequiresElement() {
		// Element-independent action: clear any stray element choice per
		// spec.md §4.3 step 5's "clear the element; commit".
		chosen = nil
	}
	if chosen != nil {
		idx := chosen.OriginalIndex
		pending.ElementIndex = &idx
		pending.Element = &chosen.Element
	}

	return Outcome{Kind: OutcomeCommit, Pending: pending}
}
