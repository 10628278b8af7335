package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrDuplicateName is returned when a server with the same name is already listed.
var ErrDuplicateName = errors.New("server name already registered")

// Registry is the process-wide list of known servers. It only grows: entries are
// never removed or mutated once appended.
type Registry struct {
	mu          sync.Mutex
	servers     []Descriptor
	subscribers []chan []Descriptor
}

func New(initial ...Descriptor) *Registry {
	return &Registry{servers: append([]Descriptor(nil), initial...)}
}

// Append adds d after all prior entries. The previous snapshot is never written
// to, so readers holding it keep a consistent view.
func (r *Registry) Append(d Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	for _, existing := range r.servers {
		if existing.Name == d.Name {
			r.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrDuplicateName, d.Name)
		}
	}

	next := make([]Descriptor, len(r.servers), len(r.servers)+1)
	copy(next, r.servers)
	next = append(next, d)
	r.servers = next
	subs := append([]chan []Descriptor(nil), r.subscribers...)
	r.mu.Unlock()

	slog.Debug("Server appended to registry", "name", d.Name, "kind", d.Kind, "count", len(next))
	for _, ch := range subs {
		// Keep only the newest snapshot for slow subscribers.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- next:
		default:
		}
	}
	return nil
}

// List returns the current snapshot. Callers must not modify it.
func (r *Registry) List() []Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.servers
}

// Has reports whether a server called name is listed.
func (r *Registry) Has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.servers {
		if d.Name == name {
			return true
		}
	}
	return false
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.servers)
}

// Subscribe returns a channel that receives the full list after every append.
func (r *Registry) Subscribe() <-chan []Descriptor {
	ch := make(chan []Descriptor, 1)
	r.mu.Lock()
	r.subscribers = append(r.subscribers, ch)
	r.mu.Unlock()
	return ch
}
