package inspector

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sandwichlabs/mcpc/internal/connect"
	"github.com/sandwichlabs/mcpc/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEchoServer() *server.MCPServer {
	s := server.NewMCPServer("echo-server", "0.1.0", server.WithToolCapabilities(true))
	s.AddTool(mcp.NewTool("echo", mcp.WithDescription("Echo the input"), mcp.WithString("text", mcp.Required())),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText(fmt.Sprint(request.GetArguments()["text"])), nil
		})
	s.AddTool(mcp.NewTool("time", mcp.WithDescription("Current time")),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText(time.Now().String()), nil
		})
	return s
}

// TestHelperProcess isn't a real test. It serves the echo server over stdio
// when spawned by the stdio tests below.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	if err := server.ServeStdio(newEchoServer()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(0)
}

func helperCommand() string {
	return fmt.Sprintf("%q -test.run=TestHelperProcess --", os.Args[0])
}

func TestConnectStdio(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	insp := New(WithEnv("GO_WANT_HELPER_PROCESS=1"))
	defer insp.Close()

	res, err := insp.ConnectStdio(ctx, "sess", "echo", helperCommand())
	require.NoError(t, err)

	assert.True(t, res.Success)
	require.NotNil(t, res.Server)
	assert.Equal(t, "echo", res.Server.Name)
	assert.Equal(t, registry.KindStdio, res.Server.Kind)
	assert.Equal(t, helperCommand(), res.Server.Command)
	assert.Equal(t, registry.StatusConnected, res.Server.Status)
	assert.ElementsMatch(t, []registry.Tool{{Name: "echo"}, {Name: "time"}}, res.Server.Tools)
	assert.Equal(t, []string{"echo"}, insp.Connected())
}

func TestConnectStdioErrors(t *testing.T) {
	insp := New()

	_, err := insp.ConnectStdio(context.Background(), "sess", "x", "   ")
	assert.Error(t, err)

	_, err = insp.ConnectStdio(context.Background(), "sess", "x", `npx "unterminated`)
	assert.Error(t, err)
}

func TestConnectStreamableHTTP(t *testing.T) {
	ts := httptest.NewServer(server.NewStreamableHTTPServer(newEchoServer()))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	insp := New()
	defer insp.Close()

	res, err := insp.ConnectStreamableHTTP(ctx, "sess", "remote", ts.URL)
	require.NoError(t, err)

	assert.Equal(t, registry.Descriptor{
		Name:   "remote",
		Kind:   registry.KindStreamableHTTP,
		URL:    ts.URL,
		Status: registry.StatusConnected,
		Tools:  res.Server.Tools,
	}, *res.Server)
	assert.Len(t, res.Server.Tools, 2)
}

func TestConnectKeepsFirstClientForName(t *testing.T) {
	ts1 := httptest.NewServer(server.NewStreamableHTTPServer(newEchoServer()))
	defer ts1.Close()
	ts2 := httptest.NewServer(server.NewStreamableHTTPServer(newEchoServer()))
	defer ts2.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	insp := New()
	defer insp.Close()

	_, err := insp.ConnectStreamableHTTP(ctx, "sess", "a", ts1.URL)
	require.NoError(t, err)

	_, err = insp.ConnectStreamableHTTP(ctx, "sess", "a", ts2.URL)
	assert.ErrorIs(t, err, registry.ErrDuplicateName)
	assert.Equal(t, []string{"a"}, insp.Connected())

	insp.mu.Lock()
	first := insp.clients["a"]
	insp.mu.Unlock()
	_, err = first.ListTools(ctx, mcp.ListToolsRequest{})
	assert.NoError(t, err, "first client still open")
}

func TestSubmitThroughInspectorRejectsListedName(t *testing.T) {
	ts1 := httptest.NewServer(server.NewStreamableHTTPServer(newEchoServer()))
	defer ts1.Close()
	ts2 := httptest.NewServer(server.NewStreamableHTTPServer(newEchoServer()))
	defer ts2.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	insp := New()
	defer insp.Close()
	reg := registry.New()
	s := connect.NewSubmitter(insp, reg, "sess")

	f := connect.NewForm(connect.Capabilities{StreamableHTTP: true})
	f.Name, f.URL = "a", ts1.URL
	_, err := s.Submit(ctx, f)
	require.NoError(t, err)

	f.Name, f.URL = "a", ts2.URL
	_, err = s.Submit(ctx, f)
	assert.ErrorIs(t, err, registry.ErrDuplicateName)

	require.Len(t, reg.List(), 1)
	assert.Equal(t, ts1.URL, reg.List()[0].URL)
	assert.Equal(t, registry.StatusConnected, reg.List()[0].Status)
}

func TestInspect(t *testing.T) {
	ts := httptest.NewServer(server.NewStreamableHTTPServer(newEchoServer()))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := client.NewStreamableHttpClient(ts.URL)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Start(ctx))

	info, err := Inspect(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, "echo-server", info.Name)
	assert.Equal(t, "0.1.0", info.Version)
	assert.Len(t, info.Tools, 2)
}

func TestConnectSSEUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := New().ConnectSSE(ctx, "sess", "down", "http://127.0.0.1:1/sse")
	assert.Error(t, err)
}

func TestProbe(t *testing.T) {
	ts := httptest.NewServer(server.NewStreamableHTTPServer(newEchoServer()))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	insp := New()
	info, err := insp.Probe(ctx, connect.StreamableHTTP{URL: ts.URL})
	require.NoError(t, err)
	assert.Equal(t, "echo-server", info.Name)
	assert.Len(t, info.Tools, 2)
	assert.Empty(t, insp.Connected(), "probe does not keep the client")
}
