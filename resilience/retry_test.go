package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetry_SucceedsEventually(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), &RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	}, func() error {
		attempts++
		if attempts < 2 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), &RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	}, func() error {
		attempts++
		return errors.New("always fails")
	})
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	attempts := 0
	err := Retry(ctx, DefaultRetryConfig(), func() error {
		attempts++
		return errors.New("fails")
	})
	require.Error(t, err)
	assert.Equal(t, 0, attempts)
}
