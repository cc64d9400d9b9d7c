package benchmark

import "llmperfbench/internal/types"

// RunState is the lifecycle of one (test case, run) pair.
type RunState string

const (
	StateDispatching          RunState = "dispatching"
	StateAwaitingAll          RunState = "awaiting_all"
	StateAllFailed            RunState = "all_failed"
	StatePartialOrFullSuccess RunState = "partial_or_full_success"
	StateAggregated           RunState = "aggregated"
)

// Terminal reports whether no further transition follows the state.
func (s RunState) Terminal() bool {
	return s == StateAllFailed || s == StateAggregated
}

// Reporter receives progress notifications from the runner. All methods are
// called from the goroutine driving the benchmark, never concurrently. Case
// indexes and run numbers are zero-based.
type Reporter interface {
	CaseStarted(tc types.TestCase, index, total int)
	RunStarted(tc types.TestCase, run, runs, requests int)
	RunStateChanged(tc types.TestCase, run int, state RunState)
	RequestSettled(tc types.TestCase, run int, err error)
	RunWarning(tc types.TestCase, run int, failed, total int, errs []error)
	RunCompleted(result types.BenchmarkResult)
	RunFailed(tc types.TestCase, run int, err error)
}

// NopReporter discards every notification.
type NopReporter struct{}

func (NopReporter) CaseStarted(types.TestCase, int, int)              {}
func (NopReporter) RunStarted(types.TestCase, int, int, int)          {}
func (NopReporter) RunStateChanged(types.TestCase, int, RunState)     {}
func (NopReporter) RequestSettled(types.TestCase, int, error)         {}
func (NopReporter) RunWarning(types.TestCase, int, int, int, []error) {}
func (NopReporter) RunCompleted(types.BenchmarkResult)                {}
func (NopReporter) RunFailed(types.TestCase, int, error)              {}

// MultiReporter fans every notification out to each reporter in order.
type MultiReporter []Reporter

func (m MultiReporter) CaseStarted(tc types.TestCase, index, total int) {
	for _, r := range m {
		r.CaseStarted(tc, index, total)
	}
}

func (m MultiReporter) RunStarted(tc types.TestCase, run, runs, requests int) {
	for _, r := range m {
		r.RunStarted(tc, run, runs, requests)
	}
}

func (m MultiReporter) RunStateChanged(tc types.TestCase, run int, state RunState) {
	for _, r := range m {
		r.RunStateChanged(tc, run, state)
	}
}

func (m MultiReporter) RequestSettled(tc types.TestCase, run int, err error) {
	for _, r := range m {
		r.RequestSettled(tc, run, err)
	}
}

func (m MultiReporter) RunWarning(tc types.TestCase, run int, failed, total int, errs []error) {
	for _, r := range m {
		r.RunWarning(tc, run, failed, total, errs)
	}
}

func (m MultiReporter) RunCompleted(result types.BenchmarkResult) {
	for _, r := range m {
		r.RunCompleted(result)
	}
}

func (m MultiReporter) RunFailed(tc types.TestCase, run int, err error) {
	for _, r := range m {
		r.RunFailed(tc, run, err)
	}
}
