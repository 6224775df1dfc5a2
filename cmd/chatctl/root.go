package main

import (
	"github.com/spf13/cobra"

	appconfig "github.com/wolfman30/supportchat/internal/config"
	"github.com/wolfman30/supportchat/pkg/logging"
)

type globals struct {
	verbose bool
	cfg     *appconfig.Config
}

func (g *globals) logger() *logging.Logger {
	level := g.cfg.LogLevel
	if g.verbose {
		level = "debug"
	}
	return logging.NewWithOptions(logging.Options{Level: level, Format: "text"})
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "chatctl",
		Short:         "Operate the support chat backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			g.cfg = appconfig.Load()
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newTrainCmd(g),
		newClassifyCmd(g),
		newFAQCmd(g),
		newIngestCmd(g),
	)
	return root
}
