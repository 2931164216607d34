package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffConfigValidate(t *testing.T) {
	valid := DefaultBackoffConfig()
	require.NoError(t, valid.Validate())

	bad := valid
	bad.Initial = 0
	assert.Error(t, bad.Validate())

	bad = valid
	bad.Factor = 0.5
	assert.Error(t, bad.Validate())

	bad = valid
	bad.Max = valid.Initial / 2
	assert.Error(t, bad.Validate())

	bad = valid
	bad.MaxAttempts = 0
	assert.Error(t, bad.Validate())
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	cfg := BackoffConfig{Initial: time.Millisecond, Factor: 2, Max: 5 * time.Millisecond, MaxAttempts: 5}

	calls := 0
	err := cfg.Retry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustsBudget(t *testing.T) {
	cfg := BackoffConfig{Initial: time.Millisecond, Factor: 2, Max: 2 * time.Millisecond, MaxAttempts: 3}

	permanent := errors.New("backend down")
	calls := 0
	err := cfg.Retry(context.Background(), func() error {
		calls++
		return permanent
	})
	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 3, calls)
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	cfg := BackoffConfig{Initial: time.Hour, Factor: 2, Max: time.Hour, MaxAttempts: 5}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := cfg.Retry(ctx, func() error { return errors.New("always") })
	require.ErrorIs(t, err, context.Canceled)
}
