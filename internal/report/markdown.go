package report

import (
	"fmt"
	"io"
	"os"
	"time"

	"llmperfbench/internal/types"
)

// WriteMarkdown renders results as a markdown report.
func WriteMarkdown(w io.Writer, results []types.BenchmarkResult, generated time.Time) error {
	model := ""
	if len(results) > 0 {
		model = results[0].Model
	}

	if _, err := fmt.Fprintf(w, "# Benchmark Results\n\n- **Model**: %s\n- **Generated**: %s\n- **Records**: %d\n\n",
		model, generated.UTC().Format(time.RFC3339), len(results)); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "| Input Tokens | Output Tokens | Runs | Concurrency | TTFT (ms) | TPOT (ms) | Throughput (TPS) |"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "|---|---|---|---|---|---|---|"); err != nil {
		return err
	}
	for _, r := range results {
		if _, err := fmt.Fprintf(w, "| %d | %d | %d | %d | %.2f | %.2f | %.2f |\n",
			r.InputTokens, r.OutputTokens, r.Runs, r.NumConcurrentRequests, r.TTFTMs, r.TPOTMs, r.ThroughputTPS); err != nil {
			return err
		}
	}
	return nil
}

// SaveMarkdown writes the markdown report to path.
func SaveMarkdown(path string, results []types.BenchmarkResult, generated time.Time) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create markdown report: %w", err)
	}
	if err := WriteMarkdown(f, results, generated); err != nil {
		f.Close()
		return fmt.Errorf("write markdown report: %w", err)
	}
	return f.Close()
}
