package cmd

import (
	"time"

	"llmperfbench/internal/types"
)

// BenchmarkReport is the document printed by run --format.
type BenchmarkReport struct {
	Model                 string                  `json:"model" yaml:"model"`
	BaseURL               string                  `json:"base_url" yaml:"base-url"`
	Runs                  int                     `json:"runs" yaml:"runs"`
	NumConcurrentRequests int                     `json:"num_concurrent_requests" yaml:"num-concurrent-requests"`
	Generated             time.Time               `json:"generated" yaml:"generated"`
	Results               []types.BenchmarkResult `json:"results" yaml:"results"`
}

func newReport(baseURL string, runs, concurrency int, results []types.BenchmarkResult, generated time.Time) *BenchmarkReport {
	report := &BenchmarkReport{
		BaseURL:               baseURL,
		Runs:                  runs,
		NumConcurrentRequests: concurrency,
		Generated:             generated.UTC(),
		Results:               results,
	}
	if len(results) > 0 {
		report.Model = results[0].Model
	}
	return report
}
