package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"llmperfbench/internal/output"
	"llmperfbench/internal/report"
)

type showOptions struct {
	*rootOptions

	format   string
	markdown string
}

func newShowCommand(root *rootOptions) *cobra.Command {
	opts := &showOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "show <results.db>",
		Short: "Print the results stored in a SQLite result file",
		Args:  cobra.ExactArgs(1),
		RunE:  opts.run,
	}
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "Print a results document instead of the table (json or yaml)")
	cmd.Flags().StringVar(&opts.markdown, "markdown", "", "Also write a Markdown report to this file")
	return cmd
}

func (o *showOptions) run(cmd *cobra.Command, args []string) error {
	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	db, err := output.OpenSQLite(path)
	if err != nil {
		return err
	}
	defer db.Close()

	results, err := db.Results(cmd.Context())
	if err != nil {
		return err
	}
	o.logger.Debug("Read %d results from %s", len(results), path)

	if o.markdown != "" {
		if err := report.SaveMarkdown(o.markdown, results, info.ModTime()); err != nil {
			return err
		}
	}
	if o.format != "" {
		generated := info.ModTime()
		if len(results) > 0 {
			generated = results[0].Timestamp
		}
		doc, err := newReport("", 0, 0, results, generated).Format(o.format)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), doc)
		return nil
	}
	report.PrintSummary(cmd.OutOrStdout(), results)
	return nil
}
