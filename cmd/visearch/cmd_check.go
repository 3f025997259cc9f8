package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"visearch/engine"
)

func newCheckCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the media layout without opening a window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			errs := engine.CheckAssets(a.cfg.Layout(), a.cfg.Session.Trials, a.cfg.Response.Threshold)
			out := cmd.OutOrStdout()
			for _, err := range errs {
				fmt.Fprintln(out, err)
			}
			if len(errs) > 0 {
				return fmt.Errorf("%d of %d trials or backgrounds have asset problems", len(errs), a.cfg.Session.Trials)
			}
			fmt.Fprintf(out, "All %d trials OK\n", a.cfg.Session.Trials)
			return nil
		},
	}
}
