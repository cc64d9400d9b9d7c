// Package cmd implements the llmperfbench command line.
package cmd

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"llmperfbench/internal/config"
	"llmperfbench/internal/logging"
)

type rootOptions struct {
	configPath  string
	logLevel    string
	logFormat   string
	insecureTLS bool

	logger *logging.Logger
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "llmperfbench",
		Short: "Benchmark latency and throughput of OpenAI-compatible completion services",
		Long: `llmperfbench measures time to first token, time per output token and
throughput of an OpenAI-compatible /completions endpoint under concurrent load,
across a matrix of input and output token lengths.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(logging.Options{
				Level:  opts.logLevel,
				Format: opts.logFormat,
				Output: cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			opts.logger = logger
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to the YAML configuration file")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format (text or json)")
	flags.BoolVar(&opts.insecureTLS, "insecure-skip-tls-verify", false, "Skip TLS certificate verification. Use with caution, this is insecure.")

	root.AddCommand(newRunCommand(opts), newProbeCommand(opts), newServeCommand(opts), newShowCommand(opts))
	return root
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// httpClient returns nil unless TLS verification is disabled, in which case
// it returns a client on a cloned default transport.
func (o *rootOptions) httpClient(cfg *config.Config) *http.Client {
	if !o.insecureTLS {
		return nil
	}
	o.logger.Warn("/!\\ Skipping TLS certificate verification. This is insecure and should not be used in production. /!\\")
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	return &http.Client{Transport: tr, Timeout: cfg.RequestTimeout()}
}

// resolveConfigPath prefers a positional argument over --config.
func (o *rootOptions) resolveConfigPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return o.configPath
}
