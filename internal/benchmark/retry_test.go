package benchmark

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoff(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, Backoff(DefaultBaseDelay, 0))
	assert.Equal(t, 200*time.Millisecond, Backoff(DefaultBaseDelay, 1))
	assert.Equal(t, 400*time.Millisecond, Backoff(DefaultBaseDelay, 2))
	assert.Equal(t, 102400*time.Millisecond, Backoff(DefaultBaseDelay, 10))
}

func TestRetryingSucceedsFirstAttempt(t *testing.T) {
	exec := &scriptedExecutor{outcomes: []settled{ok(10, 2)}}
	sleeper := &recordingSleeper{}

	metrics, err := (&Retrying{Next: exec, MaxRetries: 3, Sleep: sleeper.sleep}).Execute(context.Background(), "p", 5)

	require.NoError(t, err)
	assert.Equal(t, 10.0, metrics.TTFTMs)
	assert.Equal(t, 1, exec.calls)
	assert.Empty(t, sleeper.delays)
}

func TestRetryingRecoversAfterFailures(t *testing.T) {
	exec := &scriptedExecutor{outcomes: []settled{fail("a"), fail("b"), ok(1, 1)}}
	sleeper := &recordingSleeper{}

	_, err := (&Retrying{Next: exec, MaxRetries: 3, Sleep: sleeper.sleep}).Execute(context.Background(), "p", 5)

	require.NoError(t, err)
	assert.Equal(t, 3, exec.calls)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, sleeper.delays)
}

func TestRetryingExhaustsAndReturnsLastError(t *testing.T) {
	exec := &scriptedExecutor{outcomes: []settled{fail("first"), fail("second"), fail("third"), fail("last")}}
	sleeper := &recordingSleeper{}
	var observed []int

	_, err := (&Retrying{
		Next:       exec,
		MaxRetries: 3,
		Sleep:      sleeper.sleep,
		OnRetry:    func(attempt int, delay time.Duration, err error) { observed = append(observed, attempt) },
	}).Execute(context.Background(), "p", 5)

	var retryErr *RetryError
	require.ErrorAs(t, err, &retryErr)
	assert.Equal(t, 4, retryErr.Attempts)
	assert.EqualError(t, retryErr.Err, "last")
	assert.Equal(t, 4, exec.calls)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}, sleeper.delays)
	assert.Equal(t, []int{0, 1, 2}, observed)
}

func TestRetryingZeroRetries(t *testing.T) {
	exec := &scriptedExecutor{outcomes: []settled{fail("boom")}}
	sleeper := &recordingSleeper{}

	_, err := (&Retrying{Next: exec, Sleep: sleeper.sleep}).Execute(context.Background(), "p", 5)

	require.Error(t, err)
	assert.Equal(t, 1, exec.calls)
	assert.Empty(t, sleeper.delays)
}

func TestRetryingStopsWhenContextDone(t *testing.T) {
	exec := &scriptedExecutor{outcomes: []settled{fail("boom")}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&Retrying{Next: exec, MaxRetries: 5}).Execute(ctx, "p", 5)

	var retryErr *RetryError
	require.ErrorAs(t, err, &retryErr)
	assert.Equal(t, 1, retryErr.Attempts)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, exec.calls)
}
