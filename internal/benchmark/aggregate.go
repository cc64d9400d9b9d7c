package benchmark

import (
	"time"

	"llmperfbench/internal/types"
)

// Aggregate folds the successful requests of one run into a result record.
// The recorded concurrency is the number of successes, which may be lower
// than the configured width. successes must not be empty.
func Aggregate(model string, tc types.TestCase, runs int, successes []types.RequestMetrics, now time.Time) types.BenchmarkResult {
	ttft := make([]float64, len(successes))
	tpot := make([]float64, len(successes))
	for i, m := range successes {
		ttft[i] = m.TTFTMs
		tpot[i] = m.TPOTMs
	}
	meanTPOT := mean(tpot)

	return types.BenchmarkResult{
		Timestamp:             now,
		Model:                 model,
		InputTokens:           tc.InputTokens,
		OutputTokens:          tc.OutputTokens,
		Runs:                  uint32(runs),
		NumConcurrentRequests: uint32(len(successes)),
		TTFTMs:                mean(ttft),
		TPOTMs:                meanTPOT,
		ThroughputTPS:         Throughput(meanTPOT, len(successes)),
	}
}

// Throughput converts a mean inter-token latency into tokens per second per
// stream, scaled by the number of successful streams. A zero latency yields 0.
func Throughput(meanTPOTMs float64, successes int) float64 {
	if meanTPOTMs <= 0 {
		return 0
	}
	return 1000 / meanTPOTMs * float64(successes)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
