package server

import (
	"fmt"
	"time"

	"llmperfbench/internal/benchmark"
	"llmperfbench/internal/types"
)

const defaultThrottle = time.Second

// jobReporter turns runner notifications into job state changes and events.
type jobReporter struct {
	manager       *JobManager
	jobID         string
	throttle      time.Duration
	lastBroadcast time.Time
	settled       int
	requests      int
}

func newJobReporter(manager *JobManager, jobID string) *jobReporter {
	return &jobReporter{
		manager:  manager,
		jobID:    jobID,
		throttle: defaultThrottle,
	}
}

var _ benchmark.Reporter = (*jobReporter)(nil)

func (r *jobReporter) CaseStarted(tc types.TestCase, index, total int) {
	r.manager.update(r.jobID, EventJob, func(j *Job) {
		j.Message = fmt.Sprintf("Running case %d/%d: %s", index+1, total, tc)
	})
}

func (r *jobReporter) RunStarted(tc types.TestCase, run, runs, requests int) {
	r.settled = 0
	r.requests = requests
	r.manager.update(r.jobID, EventJob, func(j *Job) {
		j.Message = fmt.Sprintf("Case (%s) run %d/%d: %d concurrent requests", tc, run+1, runs, requests)
	})
	r.lastBroadcast = time.Now()
}

func (r *jobReporter) RunStateChanged(types.TestCase, int, benchmark.RunState) {}

// RequestSettled publishes at most one update per throttle interval; the
// final request of a run always gets through.
func (r *jobReporter) RequestSettled(tc types.TestCase, run int, err error) {
	r.settled++
	now := time.Now()
	if r.settled < r.requests && now.Sub(r.lastBroadcast) < r.throttle {
		return
	}
	r.lastBroadcast = now
	settled, requests := r.settled, r.requests
	r.manager.update(r.jobID, EventJob, func(j *Job) {
		j.Message = fmt.Sprintf("Case (%s) run %d: %d/%d requests settled", tc, run+1, settled, requests)
	})
}

func (r *jobReporter) RunWarning(tc types.TestCase, run int, failed, total int, errs []error) {
	warning := WarningData{
		InputTokens:  tc.InputTokens,
		OutputTokens: tc.OutputTokens,
		Run:          run + 1,
		Failed:       failed,
		Total:        total,
		Message:      fmt.Sprintf("case (%s) run %d: %d of %d requests failed", tc, run+1, failed, total),
	}
	r.manager.publish(r.jobID, EventWarning, func(j *Job) {
		j.Warnings = append(j.Warnings, warning.Message)
	}, warning)
}

func (r *jobReporter) RunCompleted(result types.BenchmarkResult) {
	r.manager.publish(r.jobID, EventResult, func(j *Job) {
		j.Results = append(j.Results, result)
		j.CompletedRuns++
		if j.TotalRuns > 0 {
			j.Progress = float64(j.CompletedRuns) / float64(j.TotalRuns) * 100
		}
		j.Message = fmt.Sprintf("Completed run %d/%d", j.CompletedRuns, j.TotalRuns)
	}, result)
}

// RunFailed is followed by the job's failed event, so nothing is sent here.
func (r *jobReporter) RunFailed(types.TestCase, int, error) {}
