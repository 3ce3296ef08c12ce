// Package pipeline implements the Decision Pipeline (spec.md §4.3):
// candidate filtering, option-letter encoding, the reprompting loop, model
// response classification, and commit of a PendingAction.
package pipeline

import (
	"fmt"
	"strings"
)

const alphabetSize = 26

// maxOptionIndex is the highest index name/parse round-trip; per spec.md §8
// "name(702) raises" (0-based index 702 is the first value past ZZ, the
// largest two-letter name).
const maxOptionIndex = 701

// optionName encodes i (0-based) as a base-26 letter name: A, B, ..., Z, AA,
// AB, ..., ZZ. This is the classic spreadsheet-column encoding, offset so
// single letters cover 0-25 and two-letter names cover 26-701.
func optionName(i int) (string, error) {
	if i < 0 || i > maxOptionIndex {
		return "", fmt.Errorf("option index %d out of range [0,%d]", i, maxOptionIndex)
	}
	if i < alphabetSize {
		return string(rune('A' + i)), nil
	}
	rem := i - alphabetSize
	first := rem / alphabetSize
	second := rem % alphabetSize
	return string(rune('A'+first)) + string(rune('A'+second)), nil
}

// parseOptionName decodes a letter name back to its 0-based index. It is the
// exact inverse of optionName over [0, maxOptionIndex].
func parseOptionName(name string) (int, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	switch len(name) {
	case 1:
		c := name[0]
		if c < 'A' || c > 'Z' {
			return 0, fmt.Errorf("invalid option name %q", name)
		}
		return int(c - 'A'), nil
	case 2:
		first, second := name[0], name[1]
		if first < 'A' || first > 'Z' || second < 'A' || second > 'Z' {
			return 0, fmt.Errorf("invalid option name %q", name)
		}
		return alphabetSize + int(first-'A')*alphabetSize + int(second-'A'), nil
	default:
		return 0, fmt.Errorf("invalid option name %q", name)
	}
}
