package benchmark

import (
	"context"
	"fmt"
	"sync"
	"time"

	"llmperfbench/internal/types"
)

// recordingReporter keeps every notification as a short string.
type recordingReporter struct {
	mu       sync.Mutex
	events   []string
	warnings []int
	settled  int
	results  []types.BenchmarkResult
	failures []error
}

func (r *recordingReporter) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recordingReporter) CaseStarted(tc types.TestCase, index, total int) {
	r.add("case %d/%d %d:%d", index+1, total, tc.InputTokens, tc.OutputTokens)
}

func (r *recordingReporter) RunStarted(tc types.TestCase, run, runs, requests int) {
	r.add("run %d/%d x%d", run+1, runs, requests)
}

func (r *recordingReporter) RunStateChanged(tc types.TestCase, run int, state RunState) {
	r.add("state %s", state)
}

func (r *recordingReporter) RequestSettled(tc types.TestCase, run int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settled++
}

func (r *recordingReporter) RunWarning(tc types.TestCase, run int, failed, total int, errs []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, failed)
}

func (r *recordingReporter) RunCompleted(result types.BenchmarkResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

func (r *recordingReporter) RunFailed(tc types.TestCase, run int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, err)
}

func (r *recordingReporter) states() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if len(e) > 6 && e[:6] == "state " {
			out = append(out, e[6:])
		}
	}
	return out
}

// scriptedExecutor hands out pre-baked outcomes in call order.
type scriptedExecutor struct {
	mu       sync.Mutex
	outcomes []settled
	calls    int
	prompts  []string
	lengths  []uint32
}

func (s *scriptedExecutor) Execute(ctx context.Context, prompt string, maxTokens uint32) (types.RequestMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	s.lengths = append(s.lengths, maxTokens)
	outcome := s.outcomes[s.calls%len(s.outcomes)]
	s.calls++
	return outcome.metrics, outcome.err
}

func ok(ttft, tpot float64) settled {
	return settled{metrics: types.RequestMetrics{TTFTMs: ttft, TPOTMs: tpot}}
}

func fail(msg string) settled {
	return settled{err: fmt.Errorf("%s", msg)}
}

// recordingSleeper records requested waits without sleeping.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}
