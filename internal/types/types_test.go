package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptSetPrompt(t *testing.T) {
	tc := TestCase{InputTokens: 16, OutputTokens: 8}
	set := PromptSet{tc.Key(): {"first", "second"}}

	p, err := set.Prompt(tc, 1)
	require.NoError(t, err)
	assert.Equal(t, "second", p)

	_, err = set.Prompt(tc, 2)
	assert.True(t, errors.Is(err, ErrMissingPrompt))
	assert.Contains(t, err.Error(), "run 3 of 2 prompts")

	_, err = set.Prompt(TestCase{InputTokens: 16, OutputTokens: 9}, 0)
	assert.True(t, errors.Is(err, ErrMissingPrompt))
	assert.Contains(t, err.Error(), "input_tokens=16, output_tokens=9")
}

func TestBenchmarkResultCase(t *testing.T) {
	r := BenchmarkResult{InputTokens: 32, OutputTokens: 4}
	assert.Equal(t, TestCase{InputTokens: 32, OutputTokens: 4}, r.Case())
}
