package connect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/sandwichlabs/mcpc/internal/registry"
)

// ErrInFlight is returned when Submit is called while a previous call is still running.
var ErrInFlight = errors.New("a connect request is already in progress")

const (
	NoticeLoading = "Adding MCP..."
	NoticeSuccess = "MCP added!"
)

// ServerList is what the submitter needs from the shared server list.
type ServerList interface {
	Has(name string) bool
	Append(d registry.Descriptor) error
}

// Submitter sends a form to a Connector and records the outcome.
type Submitter struct {
	connector Connector
	servers   ServerList
	sessionID string

	// OnSuccess fires after every successful call, after the form is reset.
	OnSuccess func()

	inFlight atomic.Bool
}

func NewSubmitter(connector Connector, servers ServerList, sessionID string) *Submitter {
	return &Submitter{
		connector: connector,
		servers:   servers,
		sessionID: sessionID,
	}
}

func (s *Submitter) SessionID() string {
	return s.sessionID
}

// InFlight reports whether a call is outstanding.
func (s *Submitter) InFlight() bool {
	return s.inFlight.Load()
}

// Submit makes one connect call for the form. A connector error is returned
// unchanged so its message can be shown as is; the form keeps its values.
func (s *Submitter) Submit(ctx context.Context, form *Form) (*Result, error) {
	if !form.Valid() {
		return nil, errors.New("form is incomplete")
	}
	if !form.Capabilities().Allows(form.Kind) {
		return nil, fmt.Errorf("connection type %s is disabled", form.Kind)
	}
	conn, err := form.Connection()
	if err != nil {
		return nil, err
	}
	if s.servers.Has(form.Name) {
		return nil, fmt.Errorf("%w: %s", registry.ErrDuplicateName, form.Name)
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrInFlight
	}
	defer s.inFlight.Store(false)

	slog.Info("Connecting MCP server", "name", form.Name, "kind", conn.Kind())
	res, err := Dispatch(ctx, s.connector, s.sessionID, form.Name, conn)
	if err != nil {
		slog.Error("MCP connect failed", "name", form.Name, "kind", conn.Kind(), "error", err)
		return nil, err
	}

	if res != nil && res.Success && res.Server != nil {
		d := connectedDescriptor(*res.Server, conn)
		if err := s.servers.Append(d); err != nil {
			slog.Warn("Connected server not added to list", "name", d.Name, "error", err)
			res.Warning = fmt.Sprintf("MCP added, but %s is already in the server list", d.Name)
		}
	}

	form.Reset()
	if s.OnSuccess != nil {
		s.OnSuccess()
	}
	return res, nil
}

// connectedDescriptor copies the reported server, marks it connected and fills
// the endpoint from the request when the response left it out.
func connectedDescriptor(d registry.Descriptor, conn Connection) registry.Descriptor {
	d.Status = registry.StatusConnected
	if d.Kind == "" {
		d.Kind = conn.Kind()
	}
	if d.Kind == registry.KindStdio {
		if d.Command == "" && conn.Kind() == registry.KindStdio {
			d.Command = conn.Endpoint()
		}
		d.URL = ""
	} else {
		if d.URL == "" && conn.Kind() != registry.KindStdio {
			d.URL = conn.Endpoint()
		}
		d.Command = ""
	}
	return d
}
