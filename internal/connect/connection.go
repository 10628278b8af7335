package connect

import (
	"context"
	"fmt"

	"github.com/sandwichlabs/mcpc/internal/registry"
)

// Connection is the endpoint half of a connect request. Exactly one of
// Stdio, SSE or StreamableHTTP.
type Connection interface {
	Kind() registry.Kind
	Endpoint() string
}

type Stdio struct {
	Command string
}

type SSE struct {
	URL string
}

type StreamableHTTP struct {
	URL string
}

func (Stdio) Kind() registry.Kind          { return registry.KindStdio }
func (c Stdio) Endpoint() string           { return c.Command }
func (SSE) Kind() registry.Kind            { return registry.KindSSE }
func (c SSE) Endpoint() string             { return c.URL }
func (StreamableHTTP) Kind() registry.Kind { return registry.KindStreamableHTTP }
func (c StreamableHTTP) Endpoint() string  { return c.URL }

// NewConnection builds the variant for kind around endpoint.
func NewConnection(kind registry.Kind, endpoint string) (Connection, error) {
	switch kind {
	case registry.KindStdio:
		return Stdio{Command: endpoint}, nil
	case registry.KindSSE:
		return SSE{URL: endpoint}, nil
	case registry.KindStreamableHTTP:
		return StreamableHTTP{URL: endpoint}, nil
	default:
		return nil, fmt.Errorf("unknown connection kind %q", kind)
	}
}

// Result is what a connect call reports back.
type Result struct {
	Success bool                 `json:"success"`
	Server  *registry.Descriptor `json:"mcp,omitempty"`

	// Warning is set when the call succeeded but the outcome needs a caveat.
	Warning string `json:"-"`
}

// Notice is the message to show after a successful call.
func (r *Result) Notice() string {
	if r != nil && r.Warning != "" {
		return r.Warning
	}
	return NoticeSuccess
}

// Connector registers a tool server with whatever is hosting the session.
type Connector interface {
	ConnectStdio(ctx context.Context, sessionID, name, command string) (*Result, error)
	ConnectSSE(ctx context.Context, sessionID, name, url string) (*Result, error)
	ConnectStreamableHTTP(ctx context.Context, sessionID, name, url string) (*Result, error)
}

// Dispatch makes exactly one connect call, picked by the connection variant.
func Dispatch(ctx context.Context, c Connector, sessionID, name string, conn Connection) (*Result, error) {
	switch v := conn.(type) {
	case Stdio:
		return c.ConnectStdio(ctx, sessionID, name, v.Command)
	case SSE:
		return c.ConnectSSE(ctx, sessionID, name, v.URL)
	case StreamableHTTP:
		return c.ConnectStreamableHTTP(ctx, sessionID, name, v.URL)
	default:
		return nil, fmt.Errorf("unsupported connection %T", conn)
	}
}
