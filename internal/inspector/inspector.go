package inspector

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mattn/go-shellwords"
	"github.com/sandwichlabs/mcpc/internal/connect"
	"github.com/sandwichlabs/mcpc/internal/registry"
)

// Function variables for client constructors to allow swapping in tests.
var (
	newStdioClient          = client.NewStdioMCPClient
	newSSEClient            = client.NewSSEMCPClient
	newStreamableHTTPClient = client.NewStreamableHttpClient
)

// Inspector connects to MCP servers itself instead of asking a chat backend to.
// Each connected server's client stays open until Close.
type Inspector struct {
	env []string

	mu      sync.Mutex
	clients map[string]*client.Client
}

type Option func(*Inspector)

// WithEnv adds KEY=VALUE pairs to the environment of spawned stdio servers.
func WithEnv(env ...string) Option {
	return func(i *Inspector) {
		i.env = append(i.env, env...)
	}
}

func New(opts ...Option) *Inspector {
	i := &Inspector{clients: make(map[string]*client.Client)}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

var _ connect.Connector = (*Inspector)(nil)

// ConnectStdio spawns command, split like a shell would, and speaks MCP over its stdio.
func (i *Inspector) ConnectStdio(ctx context.Context, sessionID, name, command string) (*connect.Result, error) {
	slog.Info("Connecting MCP server", "name", name, "session", sessionID, "transport", registry.KindStdio)
	if err := i.claimable(name); err != nil {
		return nil, err
	}
	c, err := i.open(ctx, connect.Stdio{Command: command})
	if err != nil {
		return nil, err
	}
	return i.register(ctx, c, registry.Descriptor{Name: name, Kind: registry.KindStdio, Command: command})
}

func (i *Inspector) ConnectSSE(ctx context.Context, sessionID, name, url string) (*connect.Result, error) {
	slog.Info("Connecting MCP server", "name", name, "session", sessionID, "url", url, "transport", registry.KindSSE)
	if err := i.claimable(name); err != nil {
		return nil, err
	}
	c, err := i.open(ctx, connect.SSE{URL: url})
	if err != nil {
		return nil, err
	}
	return i.register(ctx, c, registry.Descriptor{Name: name, Kind: registry.KindSSE, URL: url})
}

func (i *Inspector) ConnectStreamableHTTP(ctx context.Context, sessionID, name, url string) (*connect.Result, error) {
	slog.Info("Connecting MCP server", "name", name, "session", sessionID, "url", url, "transport", registry.KindStreamableHTTP)
	if err := i.claimable(name); err != nil {
		return nil, err
	}
	c, err := i.open(ctx, connect.StreamableHTTP{URL: url})
	if err != nil {
		return nil, err
	}
	return i.register(ctx, c, registry.Descriptor{Name: name, Kind: registry.KindStreamableHTTP, URL: url})
}

// Probe connects, inspects and disconnects without keeping the client.
func (i *Inspector) Probe(ctx context.Context, conn connect.Connection) (*ServerInfo, error) {
	c, err := i.open(ctx, conn)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return Inspect(ctx, c)
}

// claimable fails when a live client is already held under name.
func (i *Inspector) claimable(name string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.clients[name]; ok {
		return fmt.Errorf("%w: %s", registry.ErrDuplicateName, name)
	}
	return nil
}

// open returns a started client for conn.
func (i *Inspector) open(ctx context.Context, conn connect.Connection) (*client.Client, error) {
	switch conn := conn.(type) {
	case connect.Stdio:
		args, err := shellwords.Parse(conn.Command)
		if err != nil {
			return nil, fmt.Errorf("invalid command: %w", err)
		}
		if len(args) == 0 {
			return nil, fmt.Errorf("invalid command: empty")
		}
		slog.Debug("Spawning MCP server", "cmd", args[0], "args", len(args)-1)
		// The stdio transport is started by its constructor.
		c, err := newStdioClient(args[0], i.env, args[1:]...)
		if err != nil {
			return nil, fmt.Errorf("failed to start %s: %w", args[0], err)
		}
		return c, nil
	case connect.SSE:
		c, err := newSSEClient(conn.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create sse client: %w", err)
		}
		return start(ctx, c, conn.URL)
	case connect.StreamableHTTP:
		c, err := newStreamableHTTPClient(conn.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create streamable http client: %w", err)
		}
		return start(ctx, c, conn.URL)
	default:
		return nil, fmt.Errorf("unsupported connection %T", conn)
	}
}

func start(ctx context.Context, c *client.Client, url string) (*client.Client, error) {
	if err := c.Start(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	return c, nil
}

func (i *Inspector) register(ctx context.Context, c *client.Client, d registry.Descriptor) (*connect.Result, error) {
	info, err := Inspect(ctx, c)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	d.Status = registry.StatusConnected
	for _, tool := range info.Tools {
		d.Tools = append(d.Tools, registry.Tool{Name: tool.Name})
	}

	i.mu.Lock()
	if _, ok := i.clients[d.Name]; ok {
		i.mu.Unlock()
		_ = c.Close()
		return nil, fmt.Errorf("%w: %s", registry.ErrDuplicateName, d.Name)
	}
	i.clients[d.Name] = c
	i.mu.Unlock()

	slog.Info("MCP server inspected", "name", d.Name, "server", info.Name, "version", info.Version, "tools", len(d.Tools))
	return &connect.Result{Success: true, Server: &d}, nil
}

// Inspect runs the initialize handshake on a started client and lists its tools.
func Inspect(ctx context.Context, c *client.Client) (*ServerInfo, error) {
	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: ClientName, Version: ClientVersion}

	initRes, err := c.Initialize(ctx, initReq)
	if err != nil {
		return nil, fmt.Errorf("initialize failed: %w", err)
	}

	info := &ServerInfo{
		Name:            initRes.ServerInfo.Name,
		Version:         initRes.ServerInfo.Version,
		ProtocolVersion: initRes.ProtocolVersion,
	}
	if initRes.Capabilities.Tools == nil {
		return info, nil
	}

	toolsRes, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list tools failed: %w", err)
	}
	info.Tools = toolsRes.Tools
	return info, nil
}

// Close shuts down every client opened by this inspector.
func (i *Inspector) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	var firstErr error
	for name, c := range i.clients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %s: %w", name, err)
		}
		delete(i.clients, name)
	}
	return firstErr
}

// Connected returns the names of servers with an open client.
func (i *Inspector) Connected() []string {
	i.mu.Lock()
	defer i.mu.Unlock()

	names := make([]string, 0, len(i.clients))
	for name := range i.clients {
		names = append(names, name)
	}
	return names
}
