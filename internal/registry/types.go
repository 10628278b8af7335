package registry

import (
	"fmt"
	"strings"
)

// Kind is the transport a tool server is reached over.
type Kind string

const (
	KindStdio          Kind = "stdio"
	KindSSE            Kind = "sse"
	KindStreamableHTTP Kind = "streamable_http"
)

// ParseKind accepts the wire names plus a few spellings users type on the command line.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stdio":
		return KindStdio, nil
	case "sse":
		return KindSSE, nil
	case "streamable_http", "streamable-http", "http":
		return KindStreamableHTTP, nil
	default:
		return "", fmt.Errorf("unknown connection kind %q (allowed: stdio, sse, streamable_http)", s)
	}
}

type Status string

const (
	StatusConnecting Status = "connecting"
	StatusConnected  Status = "connected"
	StatusFailed     Status = "failed"
)

type Tool struct {
	Name string `json:"name"`
}

// Descriptor is one known tool server.
type Descriptor struct {
	Name    string `json:"name"`
	Kind    Kind   `json:"clientType"`
	Command string `json:"command,omitempty"`
	URL     string `json:"url,omitempty"`
	Status  Status `json:"status"`
	Tools   []Tool `json:"tools,omitempty"`
}

// Endpoint returns the command for stdio servers and the URL otherwise.
func (d Descriptor) Endpoint() string {
	if d.Kind == KindStdio {
		return d.Command
	}
	return d.URL
}

// Validate enforces that exactly one of Command or URL is set and that it matches Kind.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("server name is required")
	}
	switch d.Kind {
	case KindStdio:
		if d.Command == "" || d.URL != "" {
			return fmt.Errorf("stdio server %s must have a command and no url", d.Name)
		}
	case KindSSE, KindStreamableHTTP:
		if d.URL == "" || d.Command != "" {
			return fmt.Errorf("%s server %s must have a url and no command", d.Kind, d.Name)
		}
	default:
		return fmt.Errorf("server %s has unknown connection kind %q", d.Name, d.Kind)
	}
	return nil
}
