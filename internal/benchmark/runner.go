package benchmark

import (
	"context"
	"fmt"
	"time"

	"llmperfbench/internal/types"
)

// RunError reports the (test case, run) that aborted a benchmark.
type RunError struct {
	Case types.TestCase
	Run  int
	Runs int
	Err  error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("case (%s) run %d/%d: %v", e.Case, e.Run+1, e.Runs, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// ResultSink receives each result as soon as its run has been aggregated.
type ResultSink interface {
	Write(result types.BenchmarkResult) error
}

// RunnerConfig is the benchmark matrix and its execution parameters.
type RunnerConfig struct {
	Model       string
	Runs        int
	Concurrency int
	MaxRetries  int
	Cases       []types.TestCase
}

// Option customizes a Runner.
type Option func(*Runner)

// WithReporter sets the progress reporter.
func WithReporter(reporter Reporter) Option {
	return func(r *Runner) {
		if reporter != nil {
			r.reporter = reporter
		}
	}
}

// WithSink streams every result to sink as it is produced.
func WithSink(sink ResultSink) Option {
	return func(r *Runner) {
		r.sink = sink
	}
}

// WithClock overrides the time source used to stamp results.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// WithSleep overrides the backoff wait between retry attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Runner) {
		r.sleep = sleep
	}
}

// WithRetryObserver is called before every backoff wait.
func WithRetryObserver(fn func(attempt int, delay time.Duration, err error)) Option {
	return func(r *Runner) {
		r.onRetry = fn
	}
}

// Runner walks the benchmark matrix: cases in order, runs in order, one
// (case, run) fully settled before the next starts.
type Runner struct {
	config   RunnerConfig
	executor Executor
	reporter Reporter
	sink     ResultSink
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	onRetry  func(attempt int, delay time.Duration, err error)
}

// NewRunner creates a Runner. Each request sent through executor is retried
// up to cfg.MaxRetries times.
func NewRunner(cfg RunnerConfig, executor Executor, opts ...Option) *Runner {
	r := &Runner{
		config:   cfg,
		executor: executor,
		reporter: NopReporter{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the whole matrix. The first fatal condition (missing prompt,
// every request of a run failing, sink failure) aborts the benchmark and no
// results are returned.
func (r *Runner) Run(ctx context.Context, prompts types.PromptSet) ([]types.BenchmarkResult, error) {
	measurement := &Measurement{
		Executor: &Retrying{
			Next:       r.executor,
			MaxRetries: r.config.MaxRetries,
			Sleep:      r.sleep,
			OnRetry:    r.onRetry,
		},
		Concurrency: r.config.Concurrency,
		Reporter:    r.reporter,
	}

	results := make([]types.BenchmarkResult, 0, len(r.config.Cases)*r.config.Runs)
	for i, tc := range r.config.Cases {
		r.reporter.CaseStarted(tc, i, len(r.config.Cases))

		for run := 0; run < r.config.Runs; run++ {
			result, err := r.runOne(ctx, measurement, prompts, tc, run)
			if err != nil {
				runErr := &RunError{Case: tc, Run: run, Runs: r.config.Runs, Err: err}
				r.reporter.RunFailed(tc, run, runErr)
				return nil, runErr
			}
			results = append(results, result)
		}
	}
	return results, nil
}

func (r *Runner) runOne(ctx context.Context, measurement *Measurement, prompts types.PromptSet, tc types.TestCase, run int) (types.BenchmarkResult, error) {
	prompt, err := prompts.Prompt(tc, run)
	if err != nil {
		return types.BenchmarkResult{}, err
	}

	r.reporter.RunStarted(tc, run, r.config.Runs, max(r.config.Concurrency, 1))
	outcome, err := measurement.Run(ctx, tc, run, prompt)
	if err != nil {
		return types.BenchmarkResult{}, err
	}

	result := Aggregate(r.config.Model, tc, r.config.Runs, outcome.Successes, r.now())
	r.reporter.RunStateChanged(tc, run, StateAggregated)

	if r.sink != nil {
		if err := r.sink.Write(result); err != nil {
			return types.BenchmarkResult{}, fmt.Errorf("write result: %w", err)
		}
	}
	r.reporter.RunCompleted(result)
	return result, nil
}
