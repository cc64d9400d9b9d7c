package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmperfbench/internal/types"
)

const sampleYAML = `
base_url: http://localhost:8000/v1
api_key: file-key
model: test-model
output_prefix_name: bench
output_dir: out
save_format: jsonl
stream_writing: true
runs: 3
num_concurrent_requests: 4
cases:
  - input_tokens: 128
    output_tokens: 64
  - input_tokens: 1024
    output_tokens: 128
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML), nil)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/v1", cfg.BaseURL)
	assert.Equal(t, "file-key", cfg.APIKey)
	assert.Equal(t, "test-model", cfg.Model)
	assert.Equal(t, "bench", cfg.OutputPrefixName)
	assert.Equal(t, "jsonl", cfg.SaveFormat)
	assert.True(t, cfg.StreamWriting)
	assert.Equal(t, 3, cfg.Runs)
	assert.Equal(t, 4, cfg.NumConcurrentRequests)
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, 300*time.Second, cfg.RequestTimeout())
	assert.Equal(t, "tiktoken", cfg.Prompt.Source)
	assert.Equal(t, []types.TestCase{
		{InputTokens: 128, OutputTokens: 64},
		{InputTokens: 1024, OutputTokens: 128},
	}, cfg.TestCases())
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("BENCH_API_KEY", "env-key")
	t.Setenv("BENCH_RUNS", "7")

	cfg, err := Load(writeConfig(t, sampleYAML), nil)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, 7, cfg.Runs)
}

func TestChangedFlagsOverrideFile(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("model", "", "")
	flags.Int("concurrency", 0, "")
	flags.Int("runs", 0, "")
	require.NoError(t, flags.Parse([]string{"--model", "flag-model", "--concurrency", "16"}))

	cfg, err := Load(writeConfig(t, sampleYAML), flags)
	require.NoError(t, err)

	assert.Equal(t, "flag-model", cfg.Model)
	assert.Equal(t, 16, cfg.NumConcurrentRequests)
	// Unchanged flags do not shadow the file.
	assert.Equal(t, 3, cfg.Runs)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "zero runs", yaml: "base_url: http://h\nruns: 0\ncases: [{input_tokens: 1, output_tokens: 1}]\n"},
		{name: "zero concurrency", yaml: "base_url: http://h\nnum_concurrent_requests: 0\ncases: [{input_tokens: 1, output_tokens: 1}]\n"},
		{name: "no cases", yaml: "base_url: http://h\ncases: []\n"},
		{name: "missing cases", yaml: "base_url: http://h\n"},
		{name: "negative tokens", yaml: "base_url: http://h\ncases: [{input_tokens: -5, output_tokens: 1}]\n"},
		{name: "missing base url", yaml: "cases: [{input_tokens: 1, output_tokens: 1}]\n"},
		{name: "relative base url", yaml: "base_url: localhost:8000\ncases: [{input_tokens: 1, output_tokens: 1}]\n"},
		{name: "unknown prompt source", yaml: "base_url: http://h\nprompt: {source: markov}\ncases: [{input_tokens: 1, output_tokens: 1}]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml), nil)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestMergeOverlay(t *testing.T) {
	base, err := Load(writeConfig(t, sampleYAML), nil)
	require.NoError(t, err)

	merged, err := base.Merge([]byte(`{"runs": 1, "prompt": {"source": "words"}, "cases": [{"input_tokens": 8, "output_tokens": 8}]}`))
	require.NoError(t, err)
	require.NoError(t, merged.Validate())

	assert.Equal(t, 1, merged.Runs)
	assert.Equal(t, "words", merged.Prompt.Source)
	assert.Equal(t, "cl100k_base", merged.Prompt.Encoding)
	assert.Equal(t, []Case{{InputTokens: 8, OutputTokens: 8}}, merged.Cases)
	assert.Equal(t, "test-model", merged.Model)

	// The base is untouched.
	assert.Equal(t, 3, base.Runs)
	assert.Len(t, base.Cases, 2)

	_, err = base.Merge([]byte(`{"runs": "many"}`))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestMergeDropsKeyForOtherEndpoint(t *testing.T) {
	base := &Config{BaseURL: "https://trusted.example/v1", APIKey: "server-secret"}

	moved, err := base.Merge([]byte(`{"base_url": "http://other.example/v1"}`))
	require.NoError(t, err)
	assert.Equal(t, "http://other.example/v1", moved.BaseURL)
	assert.Empty(t, moved.APIKey)

	own, err := base.Merge([]byte(`{"base_url": "http://other.example/v1", "api_key": "caller-key"}`))
	require.NoError(t, err)
	assert.Equal(t, "caller-key", own.APIKey)

	same, err := base.Merge([]byte(`{"base_url": "https://trusted.example/v1/", "runs": 2}`))
	require.NoError(t, err)
	assert.Equal(t, "server-secret", same.APIKey)

	untouched, err := base.Merge([]byte(`{"runs": 2}`))
	require.NoError(t, err)
	assert.Equal(t, "server-secret", untouched.APIKey)
}

func TestRedacted(t *testing.T) {
	cfg := &Config{APIKey: "secret"}
	assert.Equal(t, "***", cfg.Redacted().APIKey)
	assert.Equal(t, "secret", cfg.APIKey)
}
