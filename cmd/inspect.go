package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/sandwichlabs/mcpc/internal/connect"
	"github.com/spf13/cobra"
)

var inspectFlags endpointFlags

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Connect to an MCP server directly and print its tools.",
	Long: `inspect connects straight to an MCP server, runs the initialize handshake, lists
its tools and disconnects. Nothing is registered with the chat session.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := inspectFlags.resolveKind()
		if err != nil {
			return err
		}
		conn, err := connect.NewConnection(kind, inspectFlags.endpoint(kind))
		if err != nil {
			return err
		}
		if conn.Endpoint() == "" {
			return fmt.Errorf("an endpoint is required for %s", kind)
		}

		info, err := newProberFn().Probe(cmd.Context(), conn)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("error marshalling server info to JSON: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	inspectFlags.register(inspectCmd)
	rootCmd.AddCommand(inspectCmd)
}
