// Package app wires configuration, prompt generation and the benchmark
// runner into a single call shared by the CLI and the HTTP service.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"llmperfbench/internal/api"
	"llmperfbench/internal/benchmark"
	"llmperfbench/internal/config"
	"llmperfbench/internal/logging"
	"llmperfbench/internal/prompt"
	"llmperfbench/internal/types"
)

// Options carries the collaborators of a benchmark run. Zero values are
// replaced with silent defaults.
type Options struct {
	Logger   *logging.Logger
	Reporter benchmark.Reporter
	Sink     benchmark.ResultSink

	// HTTPClient overrides the shared client built from the request timeout.
	HTTPClient *http.Client
	// Sleep overrides the retry backoff wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (o *Options) defaults() {
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
	if o.Reporter == nil {
		o.Reporter = benchmark.NopReporter{}
	}
}

func clientConfig(cfg *config.Config, model string, opts Options) api.ClientConfig {
	return api.ClientConfig{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		Model:      model,
		Timeout:    cfg.RequestTimeout(),
		HTTPClient: opts.HTTPClient,
	}
}

// ResolveModel returns the configured model, or the first model the service
// lists when none is configured.
func ResolveModel(ctx context.Context, cfg *config.Config, opts Options) (string, error) {
	opts.defaults()
	if cfg.Model != "" {
		return cfg.Model, nil
	}
	model, err := api.NewProber(clientConfig(cfg, "", opts)).FirstAvailableModel(ctx)
	if err != nil {
		return "", fmt.Errorf("discover model: %w", err)
	}
	opts.Logger.Info("No model configured, using first available model: %s", model)
	return model, nil
}

// GeneratePrompts builds the prompt set for every configured case and run.
func GeneratePrompts(cfg *config.Config, logger *logging.Logger) (types.PromptSet, error) {
	src, err := prompt.NewSource(cfg.Prompt.Source, cfg.Prompt.Encoding, cfg.Prompt.Seed)
	if err != nil {
		return nil, err
	}
	return prompt.Generate(src, cfg.TestCases(), cfg.Runs, logger)
}

// Run executes the benchmark described by cfg: prompt generation followed by
// the case and run matrix. Results are returned in execution order.
func Run(ctx context.Context, cfg *config.Config, opts Options) ([]types.BenchmarkResult, error) {
	opts.defaults()
	logger := opts.Logger

	model, err := ResolveModel(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}

	logger.Info("=== Phase 1: Generating prompts ===")
	prompts, err := GeneratePrompts(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("generate prompts: %w", err)
	}

	logger.Info("=== Phase 2: Running benchmark ===")
	logger.InfoWithFields("Benchmark target", map[string]interface{}{
		"base_url":    cfg.BaseURL,
		"model":       model,
		"runs":        cfg.Runs,
		"concurrency": cfg.NumConcurrentRequests,
		"cases":       len(cfg.Cases),
	})

	runnerOpts := []benchmark.Option{
		benchmark.WithReporter(opts.Reporter),
		benchmark.WithRetryObserver(func(attempt int, delay time.Duration, err error) {
			logger.Debug("Attempt %d failed, retrying in %s: %v", attempt+1, delay, err)
		}),
	}
	if opts.Sink != nil {
		runnerOpts = append(runnerOpts, benchmark.WithSink(opts.Sink))
	}
	if opts.Sleep != nil {
		runnerOpts = append(runnerOpts, benchmark.WithSleep(opts.Sleep))
	}

	runner := benchmark.NewRunner(benchmark.RunnerConfig{
		Model:       model,
		Runs:        cfg.Runs,
		Concurrency: cfg.NumConcurrentRequests,
		MaxRetries:  cfg.MaxRetries,
		Cases:       cfg.TestCases(),
	}, api.NewClient(clientConfig(cfg, model, opts)), runnerOpts...)

	return runner.Run(ctx, prompts)
}
