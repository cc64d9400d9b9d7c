package benchmark

import (
	"context"
	"errors"
	"fmt"

	"llmperfbench/internal/types"
)

// ErrAllRequestsFailed is returned when no request of a run succeeded.
var ErrAllRequestsFailed = errors.New("all requests failed")

// RunOutcome collects the settled requests of one run.
type RunOutcome struct {
	Successes []types.RequestMetrics
	Failures  []error
}

// Total returns the number of settled requests.
func (o RunOutcome) Total() int {
	return len(o.Successes) + len(o.Failures)
}

// Measurement dispatches Concurrency identical requests at once and waits
// for every one of them to settle.
type Measurement struct {
	Executor    Executor
	Concurrency int
	Reporter    Reporter
}

type settled struct {
	metrics types.RequestMetrics
	err     error
}

// Run executes one (test case, run) pair with the given prompt.
func (m *Measurement) Run(ctx context.Context, tc types.TestCase, run int, prompt string) (RunOutcome, error) {
	reporter := m.Reporter
	if reporter == nil {
		reporter = NopReporter{}
	}
	n := max(m.Concurrency, 1)

	reporter.RunStateChanged(tc, run, StateDispatching)
	results := make(chan settled, n)
	for i := 0; i < n; i++ {
		go func() {
			metrics, err := m.Executor.Execute(ctx, prompt, tc.OutputTokens)
			results <- settled{metrics: metrics, err: err}
		}()
	}
	reporter.RunStateChanged(tc, run, StateAwaitingAll)

	outcome := RunOutcome{
		Successes: make([]types.RequestMetrics, 0, n),
	}
	for i := 0; i < n; i++ {
		s := <-results
		reporter.RequestSettled(tc, run, s.err)
		if s.err != nil {
			outcome.Failures = append(outcome.Failures, s.err)
			continue
		}
		outcome.Successes = append(outcome.Successes, s.metrics)
	}

	if len(outcome.Successes) == 0 {
		reporter.RunStateChanged(tc, run, StateAllFailed)
		return outcome, fmt.Errorf("%w (%d of %d): %w", ErrAllRequestsFailed, len(outcome.Failures), n, outcome.Failures[len(outcome.Failures)-1])
	}

	if len(outcome.Failures) > 0 {
		reporter.RunWarning(tc, run, len(outcome.Failures), n, outcome.Failures)
	}
	reporter.RunStateChanged(tc, run, StatePartialOrFullSuccess)
	return outcome, nil
}
