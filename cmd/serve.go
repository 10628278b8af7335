package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sandwichlabs/mcpc/internal/registry"
	"github.com/sandwichlabs/mcpc/internal/server"
	"github.com/spf13/cobra"
)

var (
	serveName string
	serveAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose server registration and task lists as MCP tools.",
	Long: `serve runs an MCP server with connect_server, list_servers and task_list tools.
It speaks stdio unless --http is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig()
		connector, release := newConnectorFn(cfg)
		defer release()

		servers := registry.New()
		bridge := server.NewBridge(
			connector,
			cfg.SessionID(),
			servers,
			newFetcherFn(cfg),
			cfg.ConnectCapabilities(),
		)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.Run(ctx, serveName, bridge, serveAddr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveName, "name", "mcpc", "Server name reported to MCP clients")
	serveCmd.Flags().StringVar(&serveAddr, "http", "", "Listen address for streamable HTTP, e.g. :8080")
	rootCmd.AddCommand(serveCmd)
}
