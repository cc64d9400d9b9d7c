package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"llmperfbench/internal/app"
	"llmperfbench/internal/benchmark"
	"llmperfbench/internal/config"
	"llmperfbench/internal/output"
	"llmperfbench/internal/report"
	"llmperfbench/internal/types"
)

type runOptions struct {
	*rootOptions

	format     string
	markdown   string
	noProgress bool
	now        func() time.Time
}

func newRunCommand(root *rootOptions) *cobra.Command {
	opts := &runOptions{rootOptions: root, now: time.Now}

	cmd := &cobra.Command{
		Use:   "run [config_file]",
		Short: "Run the benchmark described by a configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  opts.run,
	}

	flags := cmd.Flags()
	flags.StringP("base-url", "u", "", "Base URL of the OpenAI-compatible API")
	flags.StringP("api-key", "k", "", "API key for authentication")
	flags.StringP("model", "m", "", "Model to benchmark (default: first model the service lists)")
	flags.Int("runs", config.DefaultRuns, "Runs per test case")
	flags.IntP("concurrency", "n", config.DefaultConcurrency, "Concurrent requests per run")
	flags.Int("max-retries", config.DefaultMaxRetries, "Retries per request after the first attempt")
	flags.String("output-dir", config.DefaultOutputDir, "Directory for result files")
	flags.String("save-format", config.DefaultSaveFormat, "Result file format (csv, jsonl or sqlite)")
	flags.StringVarP(&opts.format, "format", "f", "", "Print the results document to stdout (json or yaml)")
	flags.StringVar(&opts.markdown, "markdown", "", "Also write a Markdown report to this file")
	flags.BoolVar(&opts.noProgress, "no-progress", false, "Disable progress bars")

	return cmd
}

func (o *runOptions) run(cmd *cobra.Command, args []string) error {
	if o.format != "" && o.format != "json" && o.format != "yaml" {
		return fmt.Errorf("invalid format %q (want json or yaml)", o.format)
	}

	cfg, err := config.Load(o.resolveConfigPath(args), cmd.Flags())
	if err != nil {
		return err
	}
	logger := o.logger

	format, known := output.ParseFormat(cfg.SaveFormat)
	if !known {
		logger.Warn("Unknown save_format %q, falling back to %s", cfg.SaveFormat, format)
	}

	reporters := benchmark.MultiReporter{report.NewLogReporter(logger)}
	if !o.noProgress {
		reporters = append(reporters, report.NewProgressReporter(cmd.ErrOrStderr()))
	}

	started := o.now()
	var (
		sink     output.Writer
		sinkPath string
	)
	if cfg.StreamWriting {
		sink, sinkPath, err = output.Create(cfg.OutputDir, cfg.OutputPrefixName, format, started)
		if err != nil {
			return err
		}
		defer func() {
			if sink != nil {
				sink.Close()
			}
		}()
		logger.Info("Streaming results to %s", sinkPath)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	results, err := app.Run(ctx, cfg, app.Options{
		Logger:     logger,
		Reporter:   reporters,
		Sink:       sink,
		HTTPClient: o.httpClient(cfg),
	})
	if err != nil {
		var runErr *benchmark.RunError
		if errors.As(err, &runErr) {
			logger.Error("Benchmark failed at case (%s), run %d/%d", runErr.Case, runErr.Run+1, runErr.Runs)
		}
		return err
	}

	logger.Info("=== Phase 3: Writing results ===")
	if cfg.StreamWriting {
		err := sink.Close()
		sink = nil
		if err != nil {
			return fmt.Errorf("close %s: %w", sinkPath, err)
		}
	} else {
		sinkPath, err = writeResults(cfg, format, started, results)
		if err != nil {
			return err
		}
	}
	logger.Info("Wrote %d results to %s", len(results), sinkPath)

	if o.markdown != "" {
		if err := report.SaveMarkdown(o.markdown, results, o.now()); err != nil {
			return err
		}
		logger.Info("Markdown report saved to %s", o.markdown)
	}

	if o.format != "" {
		doc, err := newReport(cfg.BaseURL, cfg.Runs, cfg.NumConcurrentRequests, results, started).Format(o.format)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), doc)
		return nil
	}
	report.PrintSummary(cmd.OutOrStdout(), results)
	return nil
}

func writeResults(cfg *config.Config, format output.Format, started time.Time, results []types.BenchmarkResult) (string, error) {
	w, path, err := output.Create(cfg.OutputDir, cfg.OutputPrefixName, format, started)
	if err != nil {
		return "", err
	}
	if err := output.WriteAll(w, results); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
