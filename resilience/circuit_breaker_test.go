package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(&CircuitBreakerConfig{
		Name:             "test",
		FailureThreshold: 2,
		SleepWindow:      20 * time.Millisecond,
		HalfOpenRequests: 1,
	})

	assert.Equal(t, StateClosed, cb.State())
	_ = cb.Execute(func() error { return errors.New("fail") })
	assert.Equal(t, StateClosed, cb.State())
	_ = cb.Execute(func() error { return errors.New("fail") })
	assert.Equal(t, StateOpen, cb.State())

	err := cb.Execute(func() error { return nil })
	require.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	cb := NewCircuitBreaker(&CircuitBreakerConfig{
		Name:             "test",
		FailureThreshold: 1,
		SleepWindow:      5 * time.Millisecond,
		HalfOpenRequests: 1,
	})

	_ = cb.Execute(func() error { return errors.New("fail") })
	assert.Equal(t, StateOpen, cb.State())

	time.Sleep(10 * time.Millisecond)

	err := cb.Execute(func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(&CircuitBreakerConfig{
		Name:             "test",
		FailureThreshold: 1,
		SleepWindow:      5 * time.Millisecond,
		HalfOpenRequests: 1,
	})

	_ = cb.Execute(func() error { return errors.New("fail") })
	time.Sleep(10 * time.Millisecond)
	_ = cb.Execute(func() error { return errors.New("still failing") })
	assert.Equal(t, StateOpen, cb.State())
}
