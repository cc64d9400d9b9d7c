// Package report renders benchmark progress and results for humans.
package report

import (
	"llmperfbench/internal/benchmark"
	"llmperfbench/internal/logging"
	"llmperfbench/internal/types"
)

// LogReporter narrates benchmark progress through the logger.
type LogReporter struct {
	logger *logging.Logger
}

func NewLogReporter(logger *logging.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

func (r *LogReporter) CaseStarted(tc types.TestCase, index, total int) {
	r.logger.Info("Running benchmark for case %d/%d: %s", index+1, total, tc)
}

func (r *LogReporter) RunStarted(tc types.TestCase, run, runs, requests int) {
	r.logger.Info("  Run %d/%d (%d concurrent requests)", run+1, runs, requests)
}

func (r *LogReporter) RunStateChanged(tc types.TestCase, run int, state benchmark.RunState) {
	r.logger.Debug("  Run %d of case (%s): %s", run+1, tc, state)
}

func (r *LogReporter) RequestSettled(tc types.TestCase, run int, err error) {
	if err != nil {
		r.logger.Debug("  Request failed: %v", err)
	}
}

func (r *LogReporter) RunWarning(tc types.TestCase, run int, failed, total int, errs []error) {
	fields := map[string]interface{}{"failed": failed, "total": total}
	if len(errs) > 0 {
		fields["last_error"] = errs[len(errs)-1].Error()
	}
	r.logger.WarnWithFields("  Warning: %d of %d requests failed", fields, failed, total)
}

func (r *LogReporter) RunCompleted(result types.BenchmarkResult) {
	r.logger.InfoWithFields("  Run completed", map[string]interface{}{
		"ttft_ms":        result.TTFTMs,
		"tpot_ms":        result.TPOTMs,
		"throughput_tps": result.ThroughputTPS,
		"succeeded":      result.NumConcurrentRequests,
	})
}

func (r *LogReporter) RunFailed(tc types.TestCase, run int, err error) {
	r.logger.Error("Benchmark aborted: %v", err)
}
