// Package config loads and validates the benchmark configuration.
package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/xeipuuv/gojsonschema"

	"llmperfbench/internal/types"
)

//go:embed schema.json
var schemaJSON string

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// EnvPrefix namespaces environment overrides, e.g. BENCH_API_KEY.
const EnvPrefix = "BENCH"

const (
	DefaultRuns                  = 1
	DefaultConcurrency           = 1
	DefaultMaxRetries            = 3
	DefaultRequestTimeoutSeconds = 300
	DefaultOutputDir             = "results"
	DefaultOutputPrefix          = "benchmark"
	DefaultSaveFormat            = "csv"
)

// Case is one entry of the cases list. Lengths are ints here so the schema
// can reject negative values before they are narrowed.
type Case struct {
	InputTokens  int `json:"input_tokens" yaml:"input_tokens" mapstructure:"input_tokens"`
	OutputTokens int `json:"output_tokens" yaml:"output_tokens" mapstructure:"output_tokens"`
}

// PromptConfig selects how synthetic prompts are generated.
type PromptConfig struct {
	Source   string `json:"source" yaml:"source" mapstructure:"source"`
	Encoding string `json:"encoding" yaml:"encoding" mapstructure:"encoding"`
	Seed     int64  `json:"seed" yaml:"seed" mapstructure:"seed"`
}

// Config is the full benchmark configuration.
type Config struct {
	BaseURL               string       `json:"base_url" yaml:"base_url" mapstructure:"base_url"`
	APIKey                string       `json:"api_key" yaml:"api_key" mapstructure:"api_key"`
	Model                 string       `json:"model" yaml:"model" mapstructure:"model"`
	OutputPrefixName      string       `json:"output_prefix_name" yaml:"output_prefix_name" mapstructure:"output_prefix_name"`
	OutputDir             string       `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`
	SaveFormat            string       `json:"save_format" yaml:"save_format" mapstructure:"save_format"`
	StreamWriting         bool         `json:"stream_writing" yaml:"stream_writing" mapstructure:"stream_writing"`
	Runs                  int          `json:"runs" yaml:"runs" mapstructure:"runs"`
	NumConcurrentRequests int          `json:"num_concurrent_requests" yaml:"num_concurrent_requests" mapstructure:"num_concurrent_requests"`
	MaxRetries            int          `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
	RequestTimeoutSeconds int          `json:"request_timeout_seconds" yaml:"request_timeout_seconds" mapstructure:"request_timeout_seconds"`
	Prompt                PromptConfig `json:"prompt" yaml:"prompt" mapstructure:"prompt"`
	Cases                 []Case       `json:"cases" yaml:"cases" mapstructure:"cases"`
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"base-url":    "base_url",
	"api-key":     "api_key",
	"model":       "model",
	"runs":        "runs",
	"concurrency": "num_concurrent_requests",
	"output-dir":  "output_dir",
	"save-format": "save_format",
	"max-retries": "max_retries",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", "")
	v.SetDefault("api_key", "")
	v.SetDefault("model", "")
	v.SetDefault("output_prefix_name", DefaultOutputPrefix)
	v.SetDefault("output_dir", DefaultOutputDir)
	v.SetDefault("save_format", DefaultSaveFormat)
	v.SetDefault("stream_writing", false)
	v.SetDefault("runs", DefaultRuns)
	v.SetDefault("num_concurrent_requests", DefaultConcurrency)
	v.SetDefault("max_retries", DefaultMaxRetries)
	v.SetDefault("request_timeout_seconds", DefaultRequestTimeoutSeconds)
	v.SetDefault("prompt.source", "tiktoken")
	v.SetDefault("prompt.encoding", "cl100k_base")
	v.SetDefault("prompt.seed", 0)
}

// Read merges defaults, the optional config file, BENCH_* environment
// variables and changed flags, in increasing precedence. The result is not
// validated.
func Read(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// Load reads and validates the configuration. When no base URL is configured
// and the process runs on Cloud Foundry, the first bound AI service fills in
// the target.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg, err := Read(path, flags)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyBindings(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration against the embedded schema and then
// applies checks the schema cannot express.
func (c *Config) Validate() error {
	if err := validateDocument(gojsonschema.NewGoLoader(c)); err != nil {
		return err
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: base_url %q must be an absolute http(s) URL", ErrInvalid, c.BaseURL)
	}
	return nil
}

func validateDocument(document gojsonschema.JSONLoader) error {
	result, err := gojsonschema.Validate(gojsonschema.NewStringLoader(schemaJSON), document)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// TestCases returns the configured cases in order.
func (c *Config) TestCases() []types.TestCase {
	cases := make([]types.TestCase, 0, len(c.Cases))
	for _, cs := range c.Cases {
		cases = append(cases, types.TestCase{
			InputTokens:  uint32(cs.InputTokens),
			OutputTokens: uint32(cs.OutputTokens),
		})
	}
	return cases
}

// RequestTimeout is the deadline of a single request including its stream.
func (c *Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return DefaultRequestTimeoutSeconds * time.Second
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Cases = append([]Case(nil), c.Cases...)
	return &out
}

// Merge returns a copy of c with the JSON document overlaid. Fields absent
// from the overlay keep their value; a present cases list replaces the
// configured one. The configured api_key only follows the configured
// base_url: an overlay that points elsewhere gets its own key or none.
func (c *Config) Merge(overlay []byte) (*Config, error) {
	out := c.Clone()
	if len(strings.TrimSpace(string(overlay))) == 0 {
		return out, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(overlay, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := json.Unmarshal(overlay, out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, ok := fields["api_key"]; !ok && !sameEndpoint(out.BaseURL, c.BaseURL) {
		out.APIKey = ""
	}
	return out, nil
}

func sameEndpoint(a, b string) bool {
	return strings.TrimRight(a, "/") == strings.TrimRight(b, "/")
}

// Redacted returns a copy safe to print or serve.
func (c *Config) Redacted() *Config {
	out := c.Clone()
	if out.APIKey != "" {
		out.APIKey = "***"
	}
	return out
}
