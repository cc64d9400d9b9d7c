// Package prompt builds the synthetic prompts fed to the benchmark, one per
// (test case, run).
package prompt

import (
	"fmt"
	"math/rand/v2"

	"llmperfbench/internal/logging"
	"llmperfbench/internal/types"
)

// Source kinds accepted by NewSource.
const (
	SourceTikToken = "tiktoken"
	SourceWords    = "words"

	DefaultEncoding = "cl100k_base"
)

// Source produces a prompt of roughly the requested token length.
type Source interface {
	Prompt(tokens int) (string, error)
}

// Counter is implemented by sources that can re-tokenize their own output.
type Counter interface {
	Count(text string) int
}

// NewSource builds the named source. An empty kind selects tiktoken and a
// zero seed draws a random one.
func NewSource(kind, encoding string, seed int64) (Source, error) {
	switch kind {
	case "", SourceTikToken:
		if encoding == "" {
			encoding = DefaultEncoding
		}
		return NewTokenSource(encoding, seed)
	case SourceWords:
		return NewWordSource(seed), nil
	default:
		return nil, fmt.Errorf("unknown prompt source %q", kind)
	}
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
}

// Generate draws runs prompts for every case. Each run gets a fresh prompt so
// no two runs of a case hit a warm prefix cache.
func Generate(src Source, cases []types.TestCase, runs int, logger *logging.Logger) (types.PromptSet, error) {
	counter, _ := src.(Counter)
	set := make(types.PromptSet, len(cases))
	for _, tc := range cases {
		if logger != nil {
			logger.Info("Generating %d prompts for case: %s", runs, tc)
		}
		prompts := make([]string, 0, runs)
		for run := 0; run < runs; run++ {
			p, err := src.Prompt(int(tc.InputTokens))
			if err != nil {
				return nil, fmt.Errorf("generate prompt for case (%s) run %d: %w", tc, run+1, err)
			}
			if counter != nil && logger != nil && logger.DebugEnabled() {
				logger.Debug("  Prompt %d/%d: %d tokens requested, %d after re-tokenization",
					run+1, runs, tc.InputTokens, counter.Count(p))
			}
			prompts = append(prompts, p)
		}
		set[tc.Key()] = prompts
	}
	return set, nil
}
