package aiclient

import (
	"fmt"
	"strings"
)

// buildPromptText assembles a minimal text prompt from a Request. Per
// spec.md §1, prompt text templating proper is an external collaborator;
// this is the thinnest possible stand-in so the bundled providers below
// have something concrete to send, not a reference implementation of that
// subsystem.
func buildPromptText(mode string, req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "mode: %s\ntask: %s\n", mode, req.Specification)

	if req.RejectionNotice != "" {
		fmt.Fprintf(&b, "rejection notice: %s\n", req.RejectionNotice)
	}
	if len(req.PriorActionDescriptions) > 0 {
		b.WriteString("prior actions:\n")
		for _, d := range req.PriorActionDescriptions {
			fmt.Fprintf(&b, "- %s\n", d)
		}
	}
	if req.ViewportHint != "" {
		fmt.Fprintf(&b, "viewport hint: %s\n", req.ViewportHint)
	}
	if len(req.Choices) > 0 {
		b.WriteString("choices:\n")
		for _, c := range req.Choices {
			fmt.Fprintf(&b, "%s) %s <%s>\n", c.Letter, c.Element.Description, c.Element.TagName)
		}
	}
	if req.PlanningOutput != "" {
		fmt.Fprintf(&b, "planning output: %s\n", req.PlanningOutput)
	}
	if req.GroundingOutput != "" {
		fmt.Fprintf(&b, "grounding output: %s\n", req.GroundingOutput)
	}
	if req.Attempt > 1 {
		fmt.Fprintf(&b, "reminder: respond using the required structured fields only (attempt %d)\n", req.Attempt)
	}
	return b.String()
}
