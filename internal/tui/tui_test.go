package tui

import (
	"context"
	"errors"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandwichlabs/mcpc/internal/connect"
	"github.com/sandwichlabs/mcpc/internal/registry"
	"github.com/sandwichlabs/mcpc/internal/tasklist"
)

type stubFetcher struct {
	mu    sync.Mutex
	docs  map[tasklist.Reference]*tasklist.Document
	errs  map[tasklist.Reference]error
	calls []tasklist.Reference
}

func (f *stubFetcher) Fetch(_ context.Context, ref tasklist.Reference) (*tasklist.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ref)
	if err := f.errs[ref]; err != nil {
		return nil, err
	}
	if doc, ok := f.docs[ref]; ok {
		return doc, nil
	}
	return nil, errors.New("not found")
}

type stubConnector struct {
	mu     sync.Mutex
	result *connect.Result
	err    error
	calls  int
}

func (c *stubConnector) call() (*connect.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.result, c.err
}

func (c *stubConnector) ConnectStdio(context.Context, string, string, string) (*connect.Result, error) {
	return c.call()
}

func (c *stubConnector) ConnectSSE(context.Context, string, string, string) (*connect.Result, error) {
	return c.call()
}

func (c *stubConnector) ConnectStreamableHTTP(context.Context, string, string, string) (*connect.Result, error) {
	return c.call()
}

func keyRunes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyRight = tea.KeyMsg{Type: tea.KeyRight}
	keyLeft  = tea.KeyMsg{Type: tea.KeyLeft}
)

// messages runs cmd and returns what it produced, flattening batches.
func messages(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, messages(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func allRegistered(r *registry.Registry) []string {
	var names []string
	for _, d := range r.List() {
		names = append(names, d.Name)
	}
	return names
}
