package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"visearch/engine"
)

func newReportCommand(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "report <results.csv>",
		Short: "Render an HTML chart report of a results file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := engine.LoadResults(args[0])
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", args[0], err)
			}
			sum, err := engine.Summarize(results, engine.ReactionTimePool(results))
			if err != nil && !errors.Is(err, engine.ErrEmptyResultSet) {
				return err
			}

			if output == "" {
				output = strings.TrimSuffix(args[0], ".csv") + ".html"
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()

			if err := (engine.Report{Results: results, Summary: sum}).Render(f); err != nil {
				return fmt.Errorf("render report: %w", err)
			}
			a.log.Info("Report written", zap.String("path", output))
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "HTML file (default <results>.html)")
	return cmd
}
