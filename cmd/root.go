package cmd

import (
	"fmt"
	"os"

	"github.com/sandwichlabs/mcpc/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgPath          string
	logLevelOverride string
	cfg              *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "mcpc",
	Short: "Connect MCP servers and follow task lists from the terminal.",
	Long: `mcpc registers MCP tool servers with a chat session, by spawn command, SSE URL or
streamable HTTP URL, and shows the session's latest task list.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		cfg = loaded
		return configureLogger(cfg, logLevelOverride, isTUI(cmd))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file (default ~/.mcpc/config.json)")
	rootCmd.PersistentFlags().StringVar(&logLevelOverride, "log-level", "", "Override log level (debug|info|warn|error)")
}

// isTUI reports whether cmd takes over the terminal.
func isTUI(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "servers":
		return true
	case "tasks":
		return !printOnce
	}
	return false
}

// appConfig returns the loaded config, or defaults when no pre-run loaded one.
func appConfig() *config.Config {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return cfg
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
