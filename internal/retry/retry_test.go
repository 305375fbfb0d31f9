package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trendpulse/trendservice/internal/retry"
)

func fastConfig() retry.Config {
	return retry.Config{MaxAttempts: 3, BaseDelay: time.Millisecond, BlockedPenalty: time.Millisecond}
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	value, attempts, err := retry.Do(context.Background(), fastConfig(), func(ctx context.Context, attempt int) (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", value)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesThenSucceeds(t *testing.T) {
	calls := 0
	value, attempts, err := retry.Do(context.Background(), fastConfig(), func(ctx context.Context, attempt int) (int, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("timeout")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, value)
	assert.Equal(t, 2, attempts)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, attempts, err := retry.Do(context.Background(), fastConfig(), func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, errors.New("connection refused")
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, calls)

	var retryErr *retry.Error
	require.ErrorAs(t, err, &retryErr)
	assert.Equal(t, 3, retryErr.Attempts)
}

func TestDo_NeverExceedsMaxAttempts(t *testing.T) {
	calls := 0
	_, _, err := retry.Do(context.Background(), fastConfig(), func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, errors.New("boom")
	})

	require.Error(t, err)
	assert.LessOrEqual(t, calls, 3)
	assert.GreaterOrEqual(t, calls, 1)
}

func TestDo_ContextCanceledStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, _, err := retry.Do(ctx, retry.Config{MaxAttempts: 5, BaseDelay: 50 * time.Millisecond}, func(ctx context.Context, attempt int) (int, error) {
		calls++
		if calls == 1 {
			cancel()
		}
		return 0, errors.New("timeout")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, calls, 2)
}

func TestIsBlocked(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"unexpected token", errors.New("Unexpected token < in JSON at position 0"), true},
		{"invalid json", errors.New("\"<!DOCTYPE\" is not valid JSON"), true},
		{"html body", errors.New("received html response"), true},
		{"doctype", errors.New("got <!DOCTYPE html>"), true},
		{"plain timeout", errors.New("context deadline exceeded"), false},
		{"connection refused", errors.New("dial tcp: connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retry.IsBlocked(tt.err))
		})
	}
}

func TestDo_BlockedFailureStillRetriesAndEventuallyFails(t *testing.T) {
	calls := 0
	_, attempts, err := retry.Do(context.Background(), fastConfig(), func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, errors.New("response body starts with <!DOCTYPE html>")
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, calls)
}
