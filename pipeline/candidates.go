package pipeline

import (
	"github.com/itsneelabh/agentctl/aiclient"
	"github.com/itsneelabh/agentctl/core"
)

// Candidate pairs an interactive element with its original index into the
// page-state element list, which is what REQ_ACTION{elementIndex} must
// reference.
type Candidate struct {
	OriginalIndex int
	Element       core.InteractiveElement
}

// FilterCandidates drops elements sitting at exactly (0,0) per spec.md §4.3
// ("Candidate filtering"), preserving relative order — the testable
// invariant in spec.md §8 ("candidate list is a subsequence... that drops
// exactly those with center (0,0)").
func FilterCandidates(elements []core.InteractiveElement) []Candidate {
	out := make([]Candidate, 0, len(elements))
	for i, e := range elements {
		if !e.IsVisible() {
			continue
		}
		out = append(out, Candidate{OriginalIndex: i, Element: e})
	}
	return out
}

// BuildChoices encodes the candidate list as lettered options for the model,
// per spec.md §4.3's "re-indexed for presentation to the model as letters".
func BuildChoices(candidates []Candidate) ([]aiclient.ChoiceOption, error) {
	choices := make([]aiclient.ChoiceOption, 0, len(candidates))
	for i, c := range candidates {
		letter, err := optionName(i)
		if err != nil {
			return nil, err
		}
		choices = append(choices, aiclient.ChoiceOption{Letter: letter, Element: c.Element})
	}
	return choices, nil
}

// ResolveLetter maps a model-chosen letter back to the candidate it refers
// to. ok is false for an out-of-range or malformed letter (spec.md §4.3:
// "Invalid element letter for an element-requiring action").
func ResolveLetter(candidates []Candidate, letter string) (Candidate, bool) {
	idx, err := parseOptionName(letter)
	if err != nil || idx < 0 || idx >= len(candidates) {
		return Candidate{}, false
	}
	return candidates[idx], true
}
