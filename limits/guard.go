// Package limits implements the Counter & Limit Guard described in
// spec.md §4.7: after every completed action record it checks the three
// configured thresholds, in a fixed order, and reports the first one
// breached so the controller can terminate with a specific reason.
package limits

import (
	"fmt"

	"github.com/itsneelabh/agentctl/core"
)

// Guard wraps a telemetry sink. It holds neither limits nor task state
// itself — spec.md makes the Task the sole owner of Counters — so
// Guard.Check is a pure function over (counters, limits).
type Guard struct {
	telemetry core.Telemetry
}

// New creates a Guard. telemetry may be nil; a core.NoOpTelemetry is used if
// so, matching the framework's nil-safe-by-default convention.
func New(telemetry core.Telemetry) *Guard {
	if telemetry == nil {
		telemetry = &core.NoOpTelemetry{}
	}
	return &Guard{telemetry: telemetry}
}

// Breach describes which limit was exceeded and why, suitable for use as a
// terminate() reason per spec.md §4.2/§4.7.
type Breach struct {
	Err     error
	Reason  string
}

// Check evaluates the three ops/failures/streak limits in the order spec.md
// §4.7 prescribes: failureOrNoopStreak, then failures, then ops. It returns
// the first exceeded limit, or nil if none are breached.
func (g *Guard) Check(counters core.Counters, limits core.Limits) *Breach {
	switch {
	case limits.MaxFailureOrNoopStreak > 0 && counters.FailureOrNoopStreak > limits.MaxFailureOrNoopStreak:
		g.telemetry.RecordMetric("limits.breach", 1, map[string]string{"kind": "streak"})
		return &Breach{
			Err:    core.ErrMaxFailureOrNoopStreak,
			Reason: fmt.Sprintf("failure-or-noop streak %d exceeded max %d", counters.FailureOrNoopStreak, limits.MaxFailureOrNoopStreak),
		}
	case limits.MaxFailures > 0 && counters.Failures > limits.MaxFailures:
		g.telemetry.RecordMetric("limits.breach", 1, map[string]string{"kind": "failures"})
		return &Breach{
			Err:    core.ErrMaxFailuresExceeded,
			Reason: fmt.Sprintf("failures %d exceeded max %d", counters.Failures, limits.MaxFailures),
		}
	case limits.MaxOps > 0 && counters.Ops > limits.MaxOps:
		g.telemetry.RecordMetric("limits.breach", 1, map[string]string{"kind": "ops"})
		return &Breach{
			Err:    core.ErrMaxOpsExceeded,
			Reason: fmt.Sprintf("ops %d exceeded max %d", counters.Ops, limits.MaxOps),
		}
	default:
		return nil
	}
}

// CheckNoopsOnly is used at the end of a reprompt loop (spec.md §4.3 step 5 /
// §4.7 "Limits are checked both at the end of a reprompt loop (noops only)")
// where only the noop-driven streak/noop-count should gate further
// reprompting, independent of the ops/failures checks that apply to
// completed actions.
func (g *Guard) CheckNoopsOnly(counters core.Counters, limits core.Limits) *Breach {
	if limits.MaxFailureOrNoopStreak > 0 && counters.FailureOrNoopStreak > limits.MaxFailureOrNoopStreak {
		g.telemetry.RecordMetric("limits.breach", 1, map[string]string{"kind": "streak_reprompt"})
		return &Breach{
			Err:    core.ErrMaxFailureOrNoopStreak,
			Reason: fmt.Sprintf("failure-or-noop streak %d exceeded max %d during reprompt", counters.FailureOrNoopStreak, limits.MaxFailureOrNoopStreak),
		}
	}
	if limits.MaxNoops > 0 && counters.Noops > limits.MaxNoops {
		g.telemetry.RecordMetric("limits.breach", 1, map[string]string{"kind": "noops"})
		return &Breach{
			Err:    core.ErrMaxNoopsExceeded,
			Reason: fmt.Sprintf("noops %d exceeded max %d during reprompt", counters.Noops, limits.MaxNoops),
		}
	}
	return nil
}
