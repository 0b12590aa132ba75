package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/toolcall/config"
	"github.com/jonwraymond/toolcall/logging"
)

// globals holds the persistent flags and what PersistentPreRunE derives
// from them.
type globals struct {
	configPath string
	logLevel   string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "toolcall",
		Short: "Tool-calling execution engine",
		Long: `toolcall routes model-issued tool calls to builtin executors and
remote MCP servers, tracks their lifecycle and normalizes their results.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if g.logLevel != "" {
				if _, err := logging.ParseLevel(g.logLevel); err != nil {
					return err
				}
				cfg.LogLevel = g.logLevel
			}
			g.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Path to the YAML config file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(g),
		newServersCmd(g),
		newToolsCmd(g),
		newCallCmd(g),
		newNameCmd(),
	)
	return root
}
