package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"visearch/engine"
)

var summarizeFormat string

func newSummarizeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summarize <results.csv>",
		Short: "Recompute the summary of a results file",
		Args:  cobra.ExactArgs(1),
		RunE:  summarizeCommandE,
	}
	cmd.Flags().StringVarP(&summarizeFormat, "format", "f", "table", "Output format: table or yaml")
	return cmd
}

func summarizeCommandE(cmd *cobra.Command, args []string) error {
	if summarizeFormat != "table" && summarizeFormat != "yaml" {
		return fmt.Errorf("unsupported format %q: must be table or yaml", summarizeFormat)
	}

	results, err := engine.LoadResults(args[0])
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", args[0], err)
	}
	sum, err := engine.Summarize(results, engine.ReactionTimePool(results))
	empty := errors.Is(err, engine.ErrEmptyResultSet)
	if err != nil && !empty {
		return err
	}

	out := cmd.OutOrStdout()
	if summarizeFormat == "yaml" {
		data, err := yaml.Marshal(sum)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	fmt.Fprintf(out, "Trials:     %d\n", sum.Trials)
	fmt.Fprintf(out, "Correct:    %d\n", sum.Correct)
	fmt.Fprintf(out, "Incorrect:  %d\n", sum.Incorrect)
	fmt.Fprintf(out, "Timeouts:   %d\n", sum.Timeouts)
	fmt.Fprintf(out, "Accuracy:   %.1f%%\n", sum.Accuracy*100)
	if empty {
		fmt.Fprintln(out, "Mean RT:    no data")
		return nil
	}
	fmt.Fprintf(out, "Samples:    %d\n", sum.Samples)
	fmt.Fprintf(out, "Mean RT:    %.4fs\n", sum.MeanReactionTime)
	fmt.Fprintf(out, "SD RT:      %.4fs\n", sum.SDReactionTime)
	return nil
}
