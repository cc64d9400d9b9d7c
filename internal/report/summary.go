package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"llmperfbench/internal/types"
)

// PrintSummary writes a table of every result, colored when w is a terminal.
func PrintSummary(w io.Writer, results []types.BenchmarkResult) {
	header := color.New(color.FgCyan, color.Bold)
	value := color.New(color.FgGreen).SprintFunc()
	warn := color.New(color.FgYellow).SprintFunc()

	header.Fprintln(w, "\n=== Benchmark Summary ===")
	if len(results) == 0 {
		fmt.Fprintln(w, "No results.")
		return
	}
	fmt.Fprintf(w, "Model: %s\n\n", results[0].Model)

	fmt.Fprintln(w, "| Input Tokens | Output Tokens | Concurrency |  TTFT (ms) |  TPOT (ms) | Throughput (TPS) |")
	fmt.Fprintln(w, "|--------------|---------------|-------------|------------|------------|------------------|")
	for _, r := range results {
		concurrency := fmt.Sprintf("%11d", r.NumConcurrentRequests)
		fmt.Fprintf(w, "| %12d | %13d | %s | %10.2f | %10.2f | %s |\n",
			r.InputTokens,
			r.OutputTokens,
			concurrency,
			r.TTFTMs,
			r.TPOTMs,
			value(fmt.Sprintf("%16.2f", r.ThroughputTPS)),
		)
	}
	fmt.Fprintln(w, strings.Repeat("=", 95))

	if n := degradedRuns(results); n > 0 {
		fmt.Fprintln(w, warn(fmt.Sprintf("%d run(s) completed with fewer successful requests than the first run of their case", n)))
	}
}

// degradedRuns counts runs whose success count fell below the best run of
// the same case.
func degradedRuns(results []types.BenchmarkResult) int {
	best := map[types.CaseKey]uint32{}
	for _, r := range results {
		key := r.Case().Key()
		best[key] = max(best[key], r.NumConcurrentRequests)
	}
	n := 0
	for _, r := range results {
		if r.NumConcurrentRequests < best[r.Case().Key()] {
			n++
		}
	}
	return n
}
