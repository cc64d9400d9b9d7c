package benchmark

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmperfbench/internal/types"
)

type sliceSink struct {
	written []types.BenchmarkResult
	err     error
}

func (s *sliceSink) Write(result types.BenchmarkResult) error {
	if s.err != nil {
		return s.err
	}
	s.written = append(s.written, result)
	return nil
}

func promptsFor(cases []types.TestCase, runs int) types.PromptSet {
	set := types.PromptSet{}
	for _, tc := range cases {
		for run := 0; run < runs; run++ {
			set[tc.Key()] = append(set[tc.Key()], tc.String())
		}
	}
	return set
}

func TestRunnerRunsMatrixInOrder(t *testing.T) {
	cases := []types.TestCase{{InputTokens: 10, OutputTokens: 5}, {InputTokens: 20, OutputTokens: 7}}
	exec := &scriptedExecutor{outcomes: []settled{ok(50, 10)}}
	reporter := &recordingReporter{}
	sink := &sliceSink{}
	stamp := time.Date(2025, 5, 5, 5, 5, 5, 0, time.UTC)

	runner := NewRunner(RunnerConfig{Model: "m", Runs: 2, Concurrency: 2, MaxRetries: 3, Cases: cases}, exec,
		WithReporter(reporter),
		WithSink(sink),
		WithClock(func() time.Time { return stamp }),
	)
	results, err := runner.Run(context.Background(), promptsFor(cases, 2))

	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, cases[0], results[0].Case())
	assert.Equal(t, cases[0], results[1].Case())
	assert.Equal(t, cases[1], results[2].Case())
	assert.Equal(t, cases[1], results[3].Case())
	for _, r := range results {
		assert.Equal(t, stamp, r.Timestamp)
		assert.Equal(t, uint32(2), r.Runs)
		assert.Equal(t, uint32(2), r.NumConcurrentRequests)
		assert.InDelta(t, 200.0, r.ThroughputTPS, 1e-9)
	}
	assert.Equal(t, results, sink.written)
	assert.Equal(t, results, reporter.results)
	assert.Equal(t, 8, exec.calls)
	assert.Equal(t, []uint32{5, 5, 5, 5, 7, 7, 7, 7}, exec.lengths)
	assert.Contains(t, reporter.events, "case 2/2 20:7")
	assert.Contains(t, reporter.events, "run 2/2 x2")
}

func TestRunnerRetriesThroughInjectedSleep(t *testing.T) {
	cases := []types.TestCase{{InputTokens: 1, OutputTokens: 1}}
	exec := &scriptedExecutor{outcomes: []settled{fail("flaky"), ok(1, 1)}}
	sleeper := &recordingSleeper{}
	var retries int

	runner := NewRunner(RunnerConfig{Model: "m", Runs: 1, Concurrency: 1, MaxRetries: 3, Cases: cases}, exec,
		WithSleep(sleeper.sleep),
		WithRetryObserver(func(int, time.Duration, error) { retries++ }),
	)
	results, err := runner.Run(context.Background(), promptsFor(cases, 1))

	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, []time.Duration{100 * time.Millisecond}, sleeper.delays)
	assert.Equal(t, 1, retries)
}

func TestRunnerMissingPromptIsFatal(t *testing.T) {
	cases := []types.TestCase{{InputTokens: 1, OutputTokens: 1}, {InputTokens: 2, OutputTokens: 2}}
	exec := &scriptedExecutor{outcomes: []settled{ok(1, 1)}}
	reporter := &recordingReporter{}

	runner := NewRunner(RunnerConfig{Model: "m", Runs: 1, Concurrency: 1, Cases: cases}, exec, WithReporter(reporter))
	results, err := runner.Run(context.Background(), promptsFor(cases[:1], 1))

	require.ErrorIs(t, err, types.ErrMissingPrompt)
	assert.Nil(t, results)
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, cases[1], runErr.Case)
	assert.Len(t, reporter.failures, 1)
}

func TestRunnerAllFailedAbortsBenchmark(t *testing.T) {
	cases := []types.TestCase{{InputTokens: 1, OutputTokens: 1}, {InputTokens: 2, OutputTokens: 2}}
	exec := &scriptedExecutor{outcomes: []settled{fail("down")}}
	sleeper := &recordingSleeper{}

	runner := NewRunner(RunnerConfig{Model: "m", Runs: 3, Concurrency: 4, MaxRetries: 2, Cases: cases}, exec, WithSleep(sleeper.sleep))
	results, err := runner.Run(context.Background(), promptsFor(cases, 3))

	require.ErrorIs(t, err, ErrAllRequestsFailed)
	assert.Nil(t, results)
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, cases[0], runErr.Case)
	assert.Equal(t, 0, runErr.Run)
	assert.Contains(t, err.Error(), "run 1/3")
	assert.Equal(t, 12, exec.calls)
	assert.Len(t, sleeper.delays, 8)
}

func TestRunnerSinkErrorIsFatal(t *testing.T) {
	cases := []types.TestCase{{InputTokens: 1, OutputTokens: 1}}
	exec := &scriptedExecutor{outcomes: []settled{ok(1, 1)}}
	diskFull := errors.New("disk full")

	runner := NewRunner(RunnerConfig{Model: "m", Runs: 1, Concurrency: 1, Cases: cases}, exec, WithSink(&sliceSink{err: diskFull}))
	_, err := runner.Run(context.Background(), promptsFor(cases, 1))

	assert.ErrorIs(t, err, diskFull)
}
