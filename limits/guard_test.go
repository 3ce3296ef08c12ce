package limits

import (
	"testing"

	"github.com/itsneelabh/agentctl/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_CheckOrder(t *testing.T) {
	g := New(nil)
	limits := core.Limits{MaxOps: 5, MaxFailures: 2, MaxFailureOrNoopStreak: 2}

	// Streak breach takes priority even if ops/failures are also breached.
	counters := core.Counters{Ops: 10, Failures: 10, FailureOrNoopStreak: 3}
	breach := g.Check(counters, limits)
	require.NotNil(t, breach)
	assert.ErrorIs(t, breach.Err, core.ErrMaxFailureOrNoopStreak)

	// Failures breach takes priority over ops when streak is fine.
	counters = core.Counters{Ops: 10, Failures: 3, FailureOrNoopStreak: 0}
	breach = g.Check(counters, limits)
	require.NotNil(t, breach)
	assert.ErrorIs(t, breach.Err, core.ErrMaxFailuresExceeded)

	// Ops breach when nothing else is breached.
	counters = core.Counters{Ops: 6, Failures: 0, FailureOrNoopStreak: 0}
	breach = g.Check(counters, limits)
	require.NotNil(t, breach)
	assert.ErrorIs(t, breach.Err, core.ErrMaxOpsExceeded)

	// Nothing breached.
	counters = core.Counters{Ops: 1, Failures: 0, FailureOrNoopStreak: 0}
	assert.Nil(t, g.Check(counters, limits))
}

func TestGuard_CheckNoopsOnly(t *testing.T) {
	g := New(nil)
	limits := core.Limits{MaxNoops: 2, MaxFailureOrNoopStreak: 3}

	breach := g.CheckNoopsOnly(core.Counters{Noops: 3, FailureOrNoopStreak: 1}, limits)
	require.NotNil(t, breach)
	assert.ErrorIs(t, breach.Err, core.ErrMaxNoopsExceeded)

	breach = g.CheckNoopsOnly(core.Counters{Noops: 1, FailureOrNoopStreak: 4}, limits)
	require.NotNil(t, breach)
	assert.ErrorIs(t, breach.Err, core.ErrMaxFailureOrNoopStreak)

	assert.Nil(t, g.CheckNoopsOnly(core.Counters{Noops: 1, FailureOrNoopStreak: 1}, limits))
}

func TestCounters_Invariant(t *testing.T) {
	// ops = successCount + failureCount; noops excluded.
	var c core.Counters
	c.RecordSuccess()
	c.RecordFailure()
	c.RecordNoop()
	c.RecordSuccess()
	assert.Equal(t, 3, c.Ops)
	assert.Equal(t, 1, c.Noops)
	assert.Equal(t, 1, c.Failures)
	// Streak resets on success, so the trailing run is empty after the final success.
	assert.Equal(t, 0, c.FailureOrNoopStreak)
}

func TestCounters_StreakIsTrailingRun(t *testing.T) {
	var c core.Counters
	c.RecordSuccess()
	c.RecordFailure()
	c.RecordNoop()
	c.RecordNoop()
	assert.Equal(t, 3, c.FailureOrNoopStreak)
}
