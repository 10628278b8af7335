package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sandwichlabs/mcpc/internal/connect"
	"github.com/sandwichlabs/mcpc/internal/registry"
	"github.com/sandwichlabs/mcpc/internal/tasklist"
)

const Version = "1.0.0"

// Bridge exposes the server list and task lists as MCP tools.
// Each connect_server call gets its own submitter, so calls from different
// MCP clients run side by side and only share the server list.
type Bridge struct {
	connector connect.Connector
	sessionID string
	servers   *registry.Registry
	fetcher   tasklist.Fetcher
	caps      connect.Capabilities
}

func NewBridge(connector connect.Connector, sessionID string, servers *registry.Registry, fetcher tasklist.Fetcher, caps connect.Capabilities) *Bridge {
	return &Bridge{
		connector: connector,
		sessionID: sessionID,
		servers:   servers,
		fetcher:   fetcher,
		caps:      caps,
	}
}

// Tools returns the tool definitions paired with their handlers.
func (b *Bridge) Tools() []server.ServerTool {
	kinds := make([]string, 0, 3)
	for _, k := range connect.Kinds(b.caps) {
		kinds = append(kinds, string(k))
	}
	if len(kinds) == 0 {
		kinds = append(kinds, string(connect.DefaultKind(b.caps)))
	}

	return []server.ServerTool{
		{
			Tool: mcp.NewTool("connect_server",
				mcp.WithDescription("Register an MCP server by spawn command or URL."),
				mcp.WithString("name", mcp.Required(), mcp.Description("Unique server name")),
				mcp.WithString("type", mcp.Required(), mcp.Enum(kinds...), mcp.Description("Connection type")),
				mcp.WithString("command", mcp.Description("Command line for stdio servers")),
				mcp.WithString("url", mcp.Description("Endpoint URL for sse and streamable_http servers")),
			),
			Handler: b.connectServer,
		},
		{
			Tool: mcp.NewTool("list_servers",
				mcp.WithDescription("List registered MCP servers in the order they were added."),
			),
			Handler: b.listServers,
		},
		{
			Tool: mcp.NewTool("task_list",
				mcp.WithDescription("Fetch a task list document."),
				mcp.WithString("url", mcp.Required(), mcp.Description("Task list location")),
				mcp.WithBoolean("compact", mcp.Description("Return only the highlighted task")),
			),
			Handler: b.taskList,
		},
	}
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func (b *Bridge) connectServer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	kind, err := registry.ParseKind(stringArg(args, "type"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !b.caps.Allows(kind) {
		return mcp.NewToolResultError(fmt.Sprintf("connection type %s is disabled", kind)), nil
	}

	form := connect.NewForm(b.caps)
	form.Name = stringArg(args, "name")
	form.Kind = kind
	form.Command = stringArg(args, "command")
	form.URL = stringArg(args, "url")
	if !form.Valid() {
		if kind == registry.KindStdio {
			return mcp.NewToolResultError("name and command are required"), nil
		}
		return mcp.NewToolResultError("name and url are required"), nil
	}

	res, err := connect.NewSubmitter(b.connector, b.servers, b.sessionID).Submit(ctx, form)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if res == nil || res.Server == nil || res.Warning != "" {
		return mcp.NewToolResultText(res.Notice()), nil
	}
	return jsonResult(res.Server)
}

func (b *Bridge) listServers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	servers := b.servers.List()
	if servers == nil {
		servers = []registry.Descriptor{}
	}
	return jsonResult(servers)
}

func (b *Bridge) taskList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	ref := tasklist.Reference(strings.TrimSpace(stringArg(args, "url")))
	if ref.Absent() {
		return mcp.NewToolResultError("url is required"), nil
	}

	doc, err := b.fetcher.Fetch(ctx, ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if compact, _ := args["compact"].(bool); compact {
		highlighted := &tasklist.Document{Status: doc.Status, Tasks: []tasklist.Task{}}
		if i, ok := tasklist.Highlight(doc.Tasks); ok {
			highlighted.Tasks = append(highlighted.Tasks, doc.Tasks[i])
		}
		doc = highlighted
	}
	return jsonResult(doc)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func newHooks() *server.Hooks {
	hooks := &server.Hooks{}
	hooks.AddBeforeAny(func(ctx context.Context, id any, method mcp.MCPMethod, message any) {
		slog.Debug("MCP request", "method", method, "id", id)
	})
	hooks.AddOnError(func(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
		slog.Warn("MCP request failed", "method", method, "id", id, "error", err)
	})
	hooks.AddAfterInitialize(func(ctx context.Context, id any, message *mcp.InitializeRequest, result *mcp.InitializeResult) {
		slog.Info("MCP client initialized", "client", message.Params.ClientInfo.Name, "version", message.Params.ClientInfo.Version)
	})
	hooks.AddBeforeCallTool(func(ctx context.Context, id any, message *mcp.CallToolRequest) {
		slog.Info("Calling tool", "tool", message.Params.Name, "id", id)
	})
	hooks.AddAfterCallTool(func(ctx context.Context, id any, message *mcp.CallToolRequest, result *mcp.CallToolResult) {
		slog.Debug("Tool finished", "tool", message.Params.Name, "id", id, "is_error", result.IsError)
	})
	return hooks
}

// New builds the MCP server with every bridge tool registered.
func New(name string, b *Bridge) *server.MCPServer {
	s := server.NewMCPServer(name, Version,
		server.WithToolCapabilities(true),
		server.WithLogging(),
		server.WithHooks(newHooks()),
	)
	s.AddTools(b.Tools()...)
	return s
}

// Run serves over stdio, or over streamable HTTP when addr is set, until ctx is done.
func Run(ctx context.Context, name string, b *Bridge, addr string) error {
	s := New(name, b)
	if addr == "" {
		slog.Info("Serving MCP over stdio", "name", name)
		return server.ServeStdio(s)
	}

	httpServer := server.NewStreamableHTTPServer(s)
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Serving MCP over streamable HTTP", "name", name, "addr", addr)
		errCh <- httpServer.Start(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("Shutting down MCP server", "name", name)
		return httpServer.Shutdown(context.Background())
	}
}
