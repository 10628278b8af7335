package connect

import (
	"strings"

	"github.com/sandwichlabs/mcpc/internal/registry"
)

// Capabilities says which connection kinds the host accepts.
type Capabilities struct {
	Stdio          bool
	SSE            bool
	StreamableHTTP bool
}

// Allows reports whether k is enabled.
func (c Capabilities) Allows(k registry.Kind) bool {
	switch k {
	case registry.KindStdio:
		return c.Stdio
	case registry.KindSSE:
		return c.SSE
	case registry.KindStreamableHTTP:
		return c.StreamableHTTP
	}
	return false
}

// DefaultKind picks stdio, then sse, then streamable_http, skipping disabled
// kinds. With nothing enabled it still answers streamable_http.
func DefaultKind(caps Capabilities) registry.Kind {
	switch {
	case caps.Stdio:
		return registry.KindStdio
	case caps.SSE:
		return registry.KindSSE
	default:
		return registry.KindStreamableHTTP
	}
}

// Kinds lists the selectable kinds in menu order.
func Kinds(caps Capabilities) []registry.Kind {
	var kinds []registry.Kind
	if caps.SSE {
		kinds = append(kinds, registry.KindSSE)
	}
	if caps.StreamableHTTP {
		kinds = append(kinds, registry.KindStreamableHTTP)
	}
	if caps.Stdio {
		kinds = append(kinds, registry.KindStdio)
	}
	return kinds
}

// Form holds the user's input for one connect request.
type Form struct {
	Name    string
	Kind    registry.Kind
	Command string
	URL     string

	caps Capabilities
}

func NewForm(caps Capabilities) *Form {
	return &Form{Kind: DefaultKind(caps), caps: caps}
}

func (f *Form) Capabilities() Capabilities {
	return f.caps
}

// Valid reports whether the form can be submitted.
func (f *Form) Valid() bool {
	if strings.TrimSpace(f.Name) == "" {
		return false
	}
	switch f.Kind {
	case registry.KindStdio:
		return strings.TrimSpace(f.Command) != ""
	case registry.KindSSE, registry.KindStreamableHTTP:
		return strings.TrimSpace(f.URL) != ""
	}
	return false
}

// Endpoint is the field shown for the current kind.
func (f *Form) Endpoint() string {
	if f.Kind == registry.KindStdio {
		return f.Command
	}
	return f.URL
}

func (f *Form) SetEndpoint(v string) {
	if f.Kind == registry.KindStdio {
		f.Command = v
		return
	}
	f.URL = v
}

// Connection returns the tagged request for the current kind.
func (f *Form) Connection() (Connection, error) {
	return NewConnection(f.Kind, f.Endpoint())
}

// Reset puts every field back to its initial value.
func (f *Form) Reset() {
	f.Name = ""
	f.Kind = DefaultKind(f.caps)
	f.Command = ""
	f.URL = ""
}
