package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/sandwichlabs/mcpc/internal/connect"
	"github.com/sandwichlabs/mcpc/internal/registry"
	"github.com/spf13/cobra"
)

var connectFlags endpointFlags

var connectCmd = &cobra.Command{
	Use:   "connect NAME",
	Short: "Register one MCP server without the TUI.",
	Long: `connect registers a single MCP server with the chat session and prints the
server the session reports back.`,
	Example: `  mcpc connect docs --command "npx -y docs-mcp"
  mcpc connect search --type sse --url http://localhost:5000/sse`,
	Args: cobra.ExactArgs(1),
	RunE: runConnect,
}

func init() {
	connectFlags.register(connectCmd)
	rootCmd.AddCommand(connectCmd)
}

func runConnect(cmd *cobra.Command, args []string) error {
	cfg := appConfig()
	caps := cfg.ConnectCapabilities()

	kind, err := connectFlags.resolveKind()
	if err != nil {
		return err
	}
	if !caps.Allows(kind) {
		return fmt.Errorf("connection type %s is disabled", kind)
	}

	form := connect.NewForm(caps)
	form.Name = args[0]
	form.Kind = kind
	form.SetEndpoint(connectFlags.endpoint(kind))
	if !form.Valid() {
		if kind == registry.KindStdio {
			return fmt.Errorf("a name and --command are required for stdio")
		}
		return fmt.Errorf("a name and --url are required for %s", kind)
	}

	connector, release := newConnectorFn(cfg)
	defer release()

	servers := registry.New()
	submitter := connect.NewSubmitter(connector, servers, cfg.SessionID())

	fmt.Fprintln(cmd.ErrOrStderr(), connect.NoticeLoading)
	res, err := submitter.Submit(cmd.Context(), form)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), res.Notice())

	list := servers.List()
	if len(list) == 0 {
		return nil
	}
	out, err := json.MarshalIndent(list[0], "", "  ")
	if err != nil {
		return fmt.Errorf("error marshalling server to JSON: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
