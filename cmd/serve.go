package cmd

import (
	"context"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"llmperfbench/internal/app"
	"llmperfbench/internal/benchmark"
	"llmperfbench/internal/config"
	"llmperfbench/internal/logging"
	"llmperfbench/internal/report"
	"llmperfbench/internal/types"
	"llmperfbench/server"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve [config_file]",
		Short: "Serve the benchmark job API",
		Long: `Serve the benchmark job API. The configuration file, BENCH_* environment
variables and bound Cloud Foundry services form the base configuration that
every submitted job overlays.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := config.Read(root.resolveConfigPath(args), nil)
			if err != nil {
				return err
			}
			if err := base.ApplyBindings(); err != nil {
				return err
			}
			if !cmd.Flags().Changed("port") {
				if env := os.Getenv("PORT"); env != "" {
					port = env
				}
			}
			if os.Getenv("GIN_MODE") == "" {
				gin.SetMode(gin.ReleaseMode)
			}

			logger := root.logger
			logger.InfoWithFields("Base configuration", map[string]interface{}{
				"base_url": base.BaseURL,
				"model":    base.Model,
			})

			srv := server.New(server.Options{
				Port:     port,
				Base:     base,
				Launcher: launcher(logger, root),
				Logger:   logger,
			})
			return srv.Run()
		},
	}
	cmd.Flags().StringVar(&port, "port", server.DefaultPort, "Port to listen on (default from PORT when unset)")
	return cmd
}

// launcher runs jobs through the same pipeline as the run command, logging
// progress alongside the job's own reporter.
func launcher(logger *logging.Logger, root *rootOptions) server.Launcher {
	return func(ctx context.Context, cfg *config.Config, reporter benchmark.Reporter) ([]types.BenchmarkResult, error) {
		return app.Run(ctx, cfg, app.Options{
			Logger:     logger,
			Reporter:   benchmark.MultiReporter{report.NewLogReporter(logger), reporter},
			HTTPClient: root.httpClient(cfg),
		})
	}
}
