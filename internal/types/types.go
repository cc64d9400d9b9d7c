package types

import (
	"errors"
	"fmt"
	"time"
)

// ErrMissingPrompt is returned when no prompt exists for a test case or run index.
var ErrMissingPrompt = errors.New("no prompts found for case")

// TestCase is one (input length, output length) point of the benchmark matrix.
type TestCase struct {
	InputTokens  uint32 `json:"input_tokens" yaml:"input_tokens" mapstructure:"input_tokens"`
	OutputTokens uint32 `json:"output_tokens" yaml:"output_tokens" mapstructure:"output_tokens"`
}

// Key returns the composite map key identifying the case.
func (tc TestCase) Key() CaseKey {
	return CaseKey{InputTokens: tc.InputTokens, OutputTokens: tc.OutputTokens}
}

func (tc TestCase) String() string {
	return fmt.Sprintf("input_tokens=%d, output_tokens=%d", tc.InputTokens, tc.OutputTokens)
}

// CaseKey identifies a test case inside a PromptSet.
type CaseKey struct {
	InputTokens  uint32
	OutputTokens uint32
}

// PromptSet holds one prompt per run index for every test case.
type PromptSet map[CaseKey][]string

// Prompt returns the prompt for the given case and zero-based run index.
func (ps PromptSet) Prompt(tc TestCase, run int) (string, error) {
	prompts, ok := ps[tc.Key()]
	if !ok {
		return "", fmt.Errorf("%w (%s)", ErrMissingPrompt, tc)
	}
	if run < 0 || run >= len(prompts) {
		return "", fmt.Errorf("%w (%s, run %d of %d prompts)", ErrMissingPrompt, tc, run+1, len(prompts))
	}
	return prompts[run], nil
}

// Usage is the token tally reported by the service at the end of a stream.
type Usage struct {
	PromptTokens     uint32 `json:"prompt_tokens"`
	CompletionTokens uint32 `json:"completion_tokens"`
	TotalTokens      uint32 `json:"total_tokens"`
}

// RequestMetrics is the outcome of one fully drained streaming request.
type RequestMetrics struct {
	TTFTMs       float64 `json:"ttft_ms"`
	TPOTMs       float64 `json:"tpot_ms"`
	TotalTokens  uint32  `json:"total_tokens"`
	InputTokens  uint32  `json:"input_tokens"`
	OutputTokens uint32  `json:"output_tokens"`

	// MalformedEvents counts data lines whose payload was not valid JSON.
	MalformedEvents int `json:"malformed_events,omitempty"`
}

// BenchmarkResult is the aggregate record for one (test case, run).
type BenchmarkResult struct {
	Timestamp             time.Time `json:"@timestamp" yaml:"timestamp"`
	Model                 string    `json:"model" yaml:"model"`
	InputTokens           uint32    `json:"input_tokens" yaml:"input-tokens"`
	OutputTokens          uint32    `json:"output_tokens" yaml:"output-tokens"`
	Runs                  uint32    `json:"runs" yaml:"runs"`
	NumConcurrentRequests uint32    `json:"num_concurrent_requests" yaml:"num-concurrent-requests"`
	TTFTMs                float64   `json:"TTFT (ms)" yaml:"ttft-ms"`
	TPOTMs                float64   `json:"TPOT (ms)" yaml:"tpot-ms"`
	ThroughputTPS         float64   `json:"Throughput (TPS)" yaml:"throughput-tps"`
}

// Case returns the test case the result was measured for.
func (r BenchmarkResult) Case() TestCase {
	return TestCase{InputTokens: r.InputTokens, OutputTokens: r.OutputTokens}
}
