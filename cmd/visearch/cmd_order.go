package main

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"visearch/engine"
)

func newOrderCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Print the trial order a seed produces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			seed, trials := a.cfg.Session.Seed, a.cfg.Session.Trials
			if cmd.Flags().Changed("seed") {
				seed, _ = cmd.Flags().GetInt64("seed")
			}
			if cmd.Flags().Changed("trials") {
				trials, _ = cmd.Flags().GetInt("trials")
			}
			if trials <= 0 {
				return fmt.Errorf("trials must be positive, got %d", trials)
			}
			if seed == 0 {
				var err error
				if seed, err = engine.NewSeed(); err != nil {
					return err
				}
			}

			order := engine.NewTrialOrder(trials, rand.New(rand.NewSource(seed)))
			fields := make([]string, len(order))
			for i, idx := range order {
				fields[i] = strconv.Itoa(idx)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seed: %d\n%s\n", seed, strings.Join(fields, " "))
			return nil
		},
	}
	cmd.Flags().Int64("seed", 0, "Seed (0 draws a random one)")
	cmd.Flags().Int("trials", 0, "Number of trials (default from config)")
	return cmd
}
