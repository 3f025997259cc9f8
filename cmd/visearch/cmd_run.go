package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/Zyko0/go-sdl3/bin/binimg"
	"github.com/Zyko0/go-sdl3/bin/binsdl"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"visearch/engine"
)

func newRunCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a session",
		Long: `Run a full session: optional start splash, every trial in a shuffled
order, optional end splash. Results, the event log and a summary are written
to the output directory, also when the participant quits with Escape.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSession(cmd, a)
		},
	}

	f := cmd.Flags()
	f.StringP("participant", "p", "", "Participant identifier used in output names")
	f.Int("trials", 0, "Number of trials")
	f.Int64("seed", 0, "Trial order seed (0 draws a random one)")
	f.String("strategy", "", "Hit strategy: exact-pixel or bounding-region")
	f.String("media", "", "Media root directory")
	f.String("output", "", "Output directory")
	f.String("dlp", "", "DLP-IO8-G serial device")
	f.Bool("fullscreen", false, "Enable fullscreen")
	f.Int("width", 0, "Window width")
	f.Int("height", 0, "Window height")
	f.Bool("single-attempt", false, "Resolve a trial as incorrect on the first miss")

	for key, name := range map[string]string{
		"session.participant": "participant",
		"session.trials":      "trials",
		"session.seed":        "seed",
		"response.strategy":   "strategy",
		"media.root":          "media",
		"output.dir":          "output",
		"bridge.dlp_device":   "dlp",
		"display.fullscreen":  "fullscreen",
		"display.width":       "width",
		"display.height":      "height",
	} {
		_ = a.v.BindPFlag(key, f.Lookup(name))
	}

	return cmd
}

func runSession(cmd *cobra.Command, a *app) error {
	if single, _ := cmd.Flags().GetBool("single-attempt"); single {
		a.cfg.Response.MultiAttempt = false
	}

	defer binsdl.Load().Unload()
	defer binimg.Load().Unload()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sess, err := engine.Run(ctx, a.cfg, a.log)
	if sess == nil {
		return err
	}

	sum, serr := sess.Summary()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Session %s: %d trials, %d correct, %d incorrect, %d timeouts, %d failed\n",
		sum.SessionID, sum.Trials, sum.Correct, sum.Incorrect, sum.Timeouts, sum.Failed)
	if errors.Is(serr, engine.ErrEmptyResultSet) {
		fmt.Fprintln(out, "Mean reaction time: no data")
	} else {
		fmt.Fprintf(out, "Mean reaction time: %.3fs\n", sum.MeanReactionTime)
	}

	if err != nil {
		a.log.Error("Session ended with error", zap.Error(err))
	}
	return err
}
