package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/k0kubun/pp"
	"github.com/spf13/cobra"

	"llmperfbench/internal/api"
	"llmperfbench/internal/app"
	"llmperfbench/internal/config"
)

const defaultProbePrompt = "Write a long story, no less than 10,000 words, starting from a long, long time ago."

type probeOptions struct {
	*rootOptions

	prompt     string
	maxTokens  int
	listModels bool
	raw        bool
}

func newProbeCommand(root *rootOptions) *cobra.Command {
	opts := &probeOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "probe [config_file]",
		Short: "Send one completion to check connectivity, or list models",
		Args:  cobra.MaximumNArgs(1),
		RunE:  opts.run,
	}

	flags := cmd.Flags()
	flags.StringP("base-url", "u", "", "Base URL of the OpenAI-compatible API")
	flags.StringP("api-key", "k", "", "API key for authentication")
	flags.StringP("model", "m", "", "Model to probe (default: first model the service lists)")
	flags.StringVarP(&opts.prompt, "prompt", "p", defaultProbePrompt, "Prompt to send")
	flags.IntVarP(&opts.maxTokens, "max-tokens", "t", 16, "Maximum number of tokens to generate")
	flags.BoolVar(&opts.listModels, "list-models", false, "List the models served and exit")
	flags.BoolVar(&opts.raw, "raw", false, "Pretty-print the full response")

	return cmd
}

func (o *probeOptions) run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Read(o.resolveConfigPath(args), cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.ApplyBindings(); err != nil {
		return err
	}
	if cfg.BaseURL == "" {
		return errors.New("--base-url is required")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout())
	defer cancel()

	httpClient := o.httpClient(cfg)
	prober := api.NewProber(api.ClientConfig{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		Timeout:    cfg.RequestTimeout(),
		HTTPClient: httpClient,
	})
	out := cmd.OutOrStdout()

	if o.listModels {
		models, err := prober.ListModels(ctx)
		if err != nil {
			return err
		}
		for _, m := range models {
			fmt.Fprintln(out, m)
		}
		return nil
	}

	model, err := app.ResolveModel(ctx, cfg, app.Options{Logger: o.logger, HTTPClient: httpClient})
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := prober.Complete(ctx, model, o.prompt, o.maxTokens)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if o.raw {
		_, err := pp.Fprintln(out, resp)
		return err
	}

	fmt.Fprintf(out, "Model:    %s\n", model)
	fmt.Fprintf(out, "Latency:  %s\n", elapsed.Round(time.Millisecond))
	if resp.Usage != nil {
		fmt.Fprintf(out, "Usage:    prompt=%d completion=%d total=%d\n",
			resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Usage.TotalTokens)
	} else {
		fmt.Fprintln(out, "Usage:    not reported")
	}
	if len(resp.Choices) > 0 {
		fmt.Fprintf(out, "Response: %s\n", resp.Choices[0].Text)
	}
	return nil
}
