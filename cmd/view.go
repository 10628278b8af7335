package cmd

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandwichlabs/mcpc/internal/connect"
	"github.com/sandwichlabs/mcpc/internal/registry"
	"github.com/sandwichlabs/mcpc/internal/tui"
	"github.com/spf13/cobra"
)

var viewCmd = &cobra.Command{
	Use:     "servers",
	Aliases: []string{"view"},
	Short:   "Browse MCP servers and add new ones in an interactive TUI.",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig()
		connector, release := newConnectorFn(cfg)
		defer release()

		servers := registry.New()
		submitter := connect.NewSubmitter(connector, servers, cfg.SessionID())
		model := tui.NewServersModel(servers, submitter, cfg.ConnectCapabilities())

		_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
