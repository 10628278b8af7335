package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sandwichlabs/mcpc/internal/client"
	"github.com/sandwichlabs/mcpc/internal/config"
	"github.com/sandwichlabs/mcpc/internal/connect"
	"github.com/sandwichlabs/mcpc/internal/inspector"
	"github.com/sandwichlabs/mcpc/internal/registry"
	"github.com/sandwichlabs/mcpc/internal/tasklist"
	"github.com/spf13/cobra"
)

type prober interface {
	Probe(ctx context.Context, conn connect.Connection) (*inspector.ServerInfo, error)
}

// Function variables for collaborator constructors to allow mocking in tests
var (
	newConnectorFn = newConnector
	newFetcherFn   = newFetcher
	newProberFn    = func() prober { return inspector.New() }
)

// newConnector picks who performs connect calls. The returned func releases
// anything the connector holds open.
func newConnector(cfg *config.Config) (connect.Connector, func()) {
	if cfg.Connector.Mode == config.ModeDirect {
		insp := inspector.New()
		return insp, func() {
			if err := insp.Close(); err != nil {
				slog.Warn("Failed to close MCP clients", "error", err)
			}
		}
	}
	c := client.New(cfg.API.BaseURL, cfg.API.Token).WithTimeout(cfg.APITimeout())
	slog.Debug("Using chat backend connector", "base_url", c.BaseURL())
	return c, func() {}
}

func newFetcher(cfg *config.Config) tasklist.Fetcher {
	return tasklist.NewHTTPFetcher(cfg.API.Token, tasklist.DefaultTimeout)
}

// endpointFlags are shared by commands that take one server endpoint.
type endpointFlags struct {
	kind    string
	command string
	url     string
}

func (f *endpointFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.kind, "type", "", "Connection type (stdio|sse|streamable_http); inferred from --command or --url when empty")
	cmd.Flags().StringVar(&f.command, "command", "", "Command line that starts a stdio server")
	cmd.Flags().StringVar(&f.url, "url", "", "Server URL for sse and streamable_http")
}

func (f *endpointFlags) reset() {
	*f = endpointFlags{}
}

func (f endpointFlags) resolveKind() (registry.Kind, error) {
	switch {
	case f.kind != "":
		return registry.ParseKind(f.kind)
	case f.command != "":
		return registry.KindStdio, nil
	case f.url != "":
		return registry.KindStreamableHTTP, nil
	}
	return "", fmt.Errorf("one of --command or --url is required")
}

func (f endpointFlags) endpoint(kind registry.Kind) string {
	if kind == registry.KindStdio {
		return f.command
	}
	return f.url
}
