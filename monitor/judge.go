// Package monitor implements the Auto-Monitor Judge and Human Monitor
// Handshake (spec.md §4.4, §4.5): a judgment-mode model call that may
// escalate a pending action to human review, and the approve/reject
// handling once escalated.
package monitor

import (
	"context"
	"fmt"
	"sync"

	"github.com/itsneelabh/agentctl/aiclient"
	"github.com/itsneelabh/agentctl/core"
)

// maxJudgeAttempts is spec.md §4.4's "up to three attempts to obtain a
// well-formed response".
const maxJudgeAttempts = 3

// Judge runs the Auto-Monitor Judge's judgment-mode call and escalation
// rule.
type Judge struct {
	clientMu  sync.RWMutex
	client    aiclient.Client
	logger    core.Logger
	telemetry core.Telemetry
}

func NewJudge(client aiclient.Client, logger core.Logger, telemetry core.Telemetry) *Judge {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if telemetry == nil {
		telemetry = &core.NoOpTelemetry{}
	}
	return &Judge{client: client, logger: logger, telemetry: telemetry}
}

// SetClient swaps the AI client in use, per spec.md §4.2: "An AI-provider
// change triggers reconstruction of the engine with the stored API key."
func (j *Judge) SetClient(client aiclient.Client) {
	j.clientMu.Lock()
	defer j.clientMu.Unlock()
	j.client = client
}

func (j *Judge) currentClient() aiclient.Client {
	j.clientMu.RLock()
	defer j.clientMu.RUnlock()
	return j.client
}

// Verdict is the outcome of one judgment call: either a well-formed
// severity verdict, or ErrJudgeUnparseable after exhausting attempts.
type Verdict struct {
	Severity    core.Severity
	Explanation string
}

// Evaluate calls the model in judgment mode up to maxJudgeAttempts times,
// appending a terser reminder to the request on each retry, per spec.md
// §4.4. req should already carry PlanningOutput, GroundingOutput, and the
// highlighted screenshot when available.
func (j *Judge) Evaluate(ctx context.Context, req aiclient.Request) (*Verdict, error) {
	ctx, span := j.telemetry.StartSpan(ctx, "monitor.Judge.Evaluate")
	defer span.End()

	var lastErr error
	for attempt := 1; attempt <= maxJudgeAttempts; attempt++ {
		req.Attempt = attempt
		callCtx, callSpan := j.telemetry.StartSpan(ctx, "monitor.Judge.call")
		resp, err := j.currentClient().Judge(callCtx, req)
		if err != nil {
			lastErr = err
			callSpan.RecordError(err)
			callSpan.End()
			j.logger.WarnWithContext(ctx, "judge call failed, retrying", map[string]interface{}{"attempt": attempt, "error": err.Error()})
			continue
		}
		callSpan.SetAttribute("attempt", attempt)
		callSpan.End()
		span.SetAttribute("severity", resp.Severity.String())
		return &Verdict{Severity: resp.Severity, Explanation: resp.Explanation}, nil
	}
	if lastErr == nil {
		lastErr = core.ErrMalformedResponse
	}
	err := core.NewFrameworkError("Judge.Evaluate", "judge", fmt.Errorf("%w: %v", core.ErrJudgeUnparseable, lastErr))
	span.RecordError(err)
	return nil, err
}

// ShouldEscalate compares verdict.Severity to threshold, per spec.md §4.4's
// escalation rule: "if ≥ threshold, temporarily enable monitor mode".
func ShouldEscalate(verdict *Verdict, threshold core.Severity) bool {
	return verdict.Severity >= threshold
}
