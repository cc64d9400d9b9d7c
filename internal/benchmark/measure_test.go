package benchmark

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmperfbench/internal/types"
)

var testCase = types.TestCase{InputTokens: 128, OutputTokens: 64}

func TestMeasurementAllSucceed(t *testing.T) {
	exec := &scriptedExecutor{outcomes: []settled{ok(120, 30)}}
	reporter := &recordingReporter{}

	outcome, err := (&Measurement{Executor: exec, Concurrency: 4, Reporter: reporter}).Run(context.Background(), testCase, 0, "prompt")

	require.NoError(t, err)
	assert.Len(t, outcome.Successes, 4)
	assert.Empty(t, outcome.Failures)
	assert.Equal(t, 4, reporter.settled)
	assert.Empty(t, reporter.warnings)
	assert.Equal(t, []string{"prompt", "prompt", "prompt", "prompt"}, exec.prompts)
	assert.Equal(t, []uint32{64, 64, 64, 64}, exec.lengths)
	assert.Equal(t, []string{"dispatching", "awaiting_all", "partial_or_full_success"}, reporter.states())
}

func TestMeasurementPartialFailure(t *testing.T) {
	exec := &scriptedExecutor{outcomes: []settled{ok(100, 20), fail("down"), ok(110, 22), ok(120, 24)}}
	reporter := &recordingReporter{}

	outcome, err := (&Measurement{Executor: exec, Concurrency: 4, Reporter: reporter}).Run(context.Background(), testCase, 0, "prompt")

	require.NoError(t, err)
	assert.Equal(t, 4, outcome.Total())
	assert.Len(t, outcome.Successes, 3)
	assert.Len(t, outcome.Failures, 1)
	assert.Equal(t, []int{1}, reporter.warnings)
}

func TestMeasurementAllFail(t *testing.T) {
	exec := &scriptedExecutor{outcomes: []settled{fail("down")}}
	reporter := &recordingReporter{}

	outcome, err := (&Measurement{Executor: exec, Concurrency: 4, Reporter: reporter}).Run(context.Background(), testCase, 0, "prompt")

	require.ErrorIs(t, err, ErrAllRequestsFailed)
	assert.Equal(t, 4, outcome.Total())
	assert.Empty(t, outcome.Successes)
	assert.Equal(t, []string{"dispatching", "awaiting_all", "all_failed"}, reporter.states())
}

func TestMeasurementWaitsForSlowRequests(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 3)
	exec := ExecutorFunc(func(ctx context.Context, prompt string, maxTokens uint32) (types.RequestMetrics, error) {
		started <- struct{}{}
		<-release
		return types.RequestMetrics{}, errors.New("late failure")
	})

	done := make(chan RunOutcome)
	go func() {
		outcome, _ := (&Measurement{Executor: exec, Concurrency: 3}).Run(context.Background(), testCase, 0, "p")
		done <- outcome
	}()

	for i := 0; i < 3; i++ {
		<-started
	}
	select {
	case <-done:
		t.Fatal("run settled before its requests")
	default:
	}
	close(release)

	assert.Equal(t, 3, (<-done).Total())
}
