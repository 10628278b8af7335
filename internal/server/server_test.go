package server

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sandwichlabs/mcpc/internal/connect"
	"github.com/sandwichlabs/mcpc/internal/registry"
	"github.com/sandwichlabs/mcpc/internal/tasklist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConnector struct {
	res  *connect.Result
	err  error
	seen []string
}

func (f *fakeConnector) ConnectStdio(_ context.Context, _, name, command string) (*connect.Result, error) {
	f.seen = append(f.seen, "stdio:"+name+":"+command)
	return f.res, f.err
}

func (f *fakeConnector) ConnectSSE(_ context.Context, _, name, url string) (*connect.Result, error) {
	f.seen = append(f.seen, "sse:"+name+":"+url)
	return f.res, f.err
}

func (f *fakeConnector) ConnectStreamableHTTP(_ context.Context, _, name, url string) (*connect.Result, error) {
	f.seen = append(f.seen, "streamable_http:"+name+":"+url)
	return f.res, f.err
}

type fakeFetcher map[tasklist.Reference]*tasklist.Document

func (f fakeFetcher) Fetch(_ context.Context, ref tasklist.Reference) (*tasklist.Document, error) {
	if doc, ok := f[ref]; ok {
		return doc, nil
	}
	return nil, &tasklist.FetchError{Ref: ref, Err: errors.New("status 404")}
}

var allKinds = connect.Capabilities{Stdio: true, SSE: true, StreamableHTTP: true}

func newTestBridge(c *fakeConnector, caps connect.Capabilities) (*Bridge, *registry.Registry) {
	reg := registry.New()
	docs := fakeFetcher{"http://h/tasks": {Status: "running", Tasks: []tasklist.Task{
		{Title: "Plan", Status: tasklist.StatusDone},
		{Title: "Build", Status: tasklist.StatusRunning},
	}}}
	return NewBridge(c, "sess", reg, docs, caps), reg
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestConnectServer(t *testing.T) {
	c := &fakeConnector{res: &connect.Result{Success: true, Server: &registry.Descriptor{Name: "docs", Kind: registry.KindSSE, URL: "http://h/sse"}}}
	b, reg := newTestBridge(c, allKinds)

	res, err := b.connectServer(context.Background(), callRequest("connect_server", map[string]any{
		"name": "docs", "type": "sse", "url": "http://h/sse",
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var d registry.Descriptor
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &d))
	assert.Equal(t, registry.StatusConnected, d.Status)
	assert.Equal(t, []string{"sse:docs:http://h/sse"}, c.seen)
	assert.Equal(t, 1, reg.Len())
}

func TestConnectServerErrors(t *testing.T) {
	tests := []struct {
		name    string
		caps    connect.Capabilities
		args    map[string]any
		connErr error
		want    string
	}{
		{"unknown type", allKinds, map[string]any{"name": "x", "type": "carrier", "url": "u"}, nil, "unknown"},
		{"disabled type", connect.Capabilities{SSE: true}, map[string]any{"name": "x", "type": "stdio", "command": "c"}, nil, "disabled"},
		{"missing command", allKinds, map[string]any{"name": "x", "type": "stdio", "url": "u"}, nil, "name and command are required"},
		{"missing url", allKinds, map[string]any{"name": "x", "type": "streamable_http"}, nil, "name and url are required"},
		{"connector error verbatim", allKinds, map[string]any{"name": "x", "type": "stdio", "command": "c"}, errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeConnector{err: tt.connErr}
			b, reg := newTestBridge(c, tt.caps)

			res, err := b.connectServer(context.Background(), callRequest("connect_server", tt.args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.Contains(t, resultText(t, res), tt.want)
			assert.Equal(t, 0, reg.Len())
		})
	}
}

// gatedConnector holds every call until release is closed.
type gatedConnector struct {
	arrived chan string
	release chan struct{}
}

func (g *gatedConnector) wait(name, kind, endpoint string) (*connect.Result, error) {
	g.arrived <- name
	<-g.release
	return &connect.Result{Success: true, Server: &registry.Descriptor{Name: name, Kind: registry.Kind(kind), URL: endpoint}}, nil
}

func (g *gatedConnector) ConnectStdio(_ context.Context, _, name, command string) (*connect.Result, error) {
	return nil, errors.New("stdio not expected")
}

func (g *gatedConnector) ConnectSSE(_ context.Context, _, name, url string) (*connect.Result, error) {
	return g.wait(name, "sse", url)
}

func (g *gatedConnector) ConnectStreamableHTTP(_ context.Context, _, name, url string) (*connect.Result, error) {
	return g.wait(name, "streamable_http", url)
}

func TestConnectServerConcurrentCalls(t *testing.T) {
	g := &gatedConnector{arrived: make(chan string, 2), release: make(chan struct{})}
	reg := registry.New()
	b := NewBridge(g, "sess", reg, fakeFetcher{}, allKinds)

	results := make(chan *mcp.CallToolResult, 2)
	for _, name := range []string{"one", "two"} {
		go func(name string) {
			res, _ := b.connectServer(context.Background(), callRequest("connect_server", map[string]any{
				"name": name, "type": "sse", "url": "http://h/" + name,
			}))
			results <- res
		}(name)
	}

	// Both calls reach the connector before either finishes.
	<-g.arrived
	<-g.arrived
	close(g.release)

	for range 2 {
		res := <-results
		require.NotNil(t, res)
		assert.False(t, res.IsError, resultText(t, res))
	}
	assert.ElementsMatch(t, []string{"one", "two"}, []string{reg.List()[0].Name, reg.List()[1].Name})
}

func TestConnectServerListedName(t *testing.T) {
	c := &fakeConnector{res: &connect.Result{Success: true, Server: &registry.Descriptor{Name: "docs"}}}
	b, reg := newTestBridge(c, allKinds)
	require.NoError(t, reg.Append(registry.Descriptor{Name: "docs", Kind: registry.KindSSE, URL: "http://h/sse"}))

	res, err := b.connectServer(context.Background(), callRequest("connect_server", map[string]any{
		"name": "docs", "type": "sse", "url": "http://other/sse",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), registry.ErrDuplicateName.Error())
	assert.Empty(t, c.seen)
}

func TestConnectServerWithoutDescriptor(t *testing.T) {
	b, reg := newTestBridge(&fakeConnector{res: &connect.Result{Success: true}}, allKinds)

	res, err := b.connectServer(context.Background(), callRequest("connect_server", map[string]any{
		"name": "x", "type": "stdio", "command": "run",
	}))
	require.NoError(t, err)
	assert.Equal(t, connect.NoticeSuccess, resultText(t, res))
	assert.Equal(t, 0, reg.Len())
}

func TestTaskList(t *testing.T) {
	b, _ := newTestBridge(&fakeConnector{}, allKinds)

	res, err := b.taskList(context.Background(), callRequest("task_list", map[string]any{"url": "http://h/tasks"}))
	require.NoError(t, err)
	var doc tasklist.Document
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &doc))
	assert.Len(t, doc.Tasks, 2)

	res, err = b.taskList(context.Background(), callRequest("task_list", map[string]any{"url": "http://h/tasks", "compact": true}))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &doc))
	assert.Equal(t, []tasklist.Task{{Title: "Build", Status: tasklist.StatusRunning}}, doc.Tasks)

	res, err = b.taskList(context.Background(), callRequest("task_list", map[string]any{"url": "http://h/missing"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "404")

	res, err = b.taskList(context.Background(), callRequest("task_list", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestServerInProcess(t *testing.T) {
	c := &fakeConnector{res: &connect.Result{Success: true, Server: &registry.Descriptor{Name: "echo", Kind: registry.KindStdio, Command: "run"}}}
	b, _ := newTestBridge(c, allKinds)

	ctx := context.Background()
	cl, err := client.NewInProcessClient(New("mcpc-test", b))
	require.NoError(t, err)
	defer cl.Close()
	require.NoError(t, cl.Start(ctx))

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "test", Version: "0.0.1"}
	initRes, err := cl.Initialize(ctx, initReq)
	require.NoError(t, err)
	assert.Equal(t, "mcpc-test", initRes.ServerInfo.Name)

	tools, err := cl.ListTools(ctx, mcp.ListToolsRequest{})
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"connect_server", "list_servers", "task_list"}, names)

	_, err = cl.CallTool(ctx, callRequest("connect_server", map[string]any{"name": "echo", "type": "stdio", "command": "run"}))
	require.NoError(t, err)

	res, err := cl.CallTool(ctx, callRequest("list_servers", nil))
	require.NoError(t, err)
	var servers []registry.Descriptor
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &servers))
	require.Len(t, servers, 1)
	assert.Equal(t, "echo", servers[0].Name)
	assert.Equal(t, registry.StatusConnected, servers[0].Status)
}
