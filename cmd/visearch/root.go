package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"visearch/engine"
	"visearch/logging"
)

var version = "dev"

// app carries what PersistentPreRunE resolves for the subcommands.
type app struct {
	v   *viper.Viper
	cfg *engine.Config
	log *zap.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{v: engine.NewViper("")}

	cmd := &cobra.Command{
		Use:   "visearch",
		Short: "visearch - visual search reaction-time experiment",
		Long: `visearch runs a visual search experiment: each trial shows a target cue,
then a search scene, and measures how fast the participant clicks the target.

Settings come from visearch.yaml, VISEARCH_* environment variables and flags,
in increasing priority.`,
		Version:      version,
		SilenceUsage: true,
	}

	configFile := cmd.PersistentFlags().String("config", "", "Config file (default ./visearch.yaml or ./config/visearch.yaml)")
	cmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
	_ = a.v.BindPFlag("logging.level", cmd.PersistentFlags().Lookup("log-level"))

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if *configFile != "" {
			a.v.SetConfigFile(*configFile)
		}
		cfg, err := engine.LoadConfig(a.v)
		if err != nil {
			return err
		}
		log, err := logging.Init(cfg.Logging, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		a.cfg, a.log = cfg, log
		return nil
	}
	cmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if a.log != nil {
			_ = a.log.Sync()
		}
	}

	cmd.AddCommand(newRunCommand(a))
	cmd.AddCommand(newCheckCommand(a))
	cmd.AddCommand(newOrderCommand(a))
	cmd.AddCommand(newSummarizeCommand(a))
	cmd.AddCommand(newReportCommand(a))

	return cmd
}

func execute() error {
	return newRootCommand().Execute()
}
