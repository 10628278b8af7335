package tui

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sandwichlabs/mcpc/internal/tasklist"
)

// CollapsedIndicator is all the panel shows while collapsed.
const CollapsedIndicator = "▲ tasks"

type PanelKeyMap struct {
	Toggle     key.Binding
	Revalidate key.Binding
	Quit       key.Binding
}

func DefaultPanelKeyMap() PanelKeyMap {
	return PanelKeyMap{
		Toggle:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "collapse/expand")),
		Revalidate: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

type fetchedMsg struct {
	gen uint64
	doc *tasklist.Document
	err error
}

type referencesMsg []tasklist.Reference

// TaskPanel renders the most recent task list. It shows nothing until a
// document for the current reference has been fetched.
type TaskPanel struct {
	tracker      *tasklist.Tracker
	fetcher      tasklist.Fetcher
	source       tasklist.Source
	keys         PanelKeyMap
	compactWidth int

	collapsed bool
	compact   bool
}

// NewTaskPanel creates an expanded panel. Terminals narrower than compactWidth
// get the compact layout.
func NewTaskPanel(source tasklist.Source, fetcher tasklist.Fetcher, compactWidth int) TaskPanel {
	return TaskPanel{
		tracker:      tasklist.NewTracker(),
		fetcher:      fetcher,
		source:       source,
		keys:         DefaultPanelKeyMap(),
		compactWidth: compactWidth,
	}
}

func (p TaskPanel) Init() tea.Cmd {
	return tea.Batch(p.observe(p.source.Current()), p.waitForReferences())
}

func (p TaskPanel) observe(refs []tasklist.Reference) tea.Cmd {
	req, ok := p.tracker.Observe(refs)
	if !ok {
		return nil
	}
	return p.fetch(req)
}

func (p TaskPanel) fetch(req tasklist.Request) tea.Cmd {
	fetcher := p.fetcher
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), tasklist.DefaultTimeout)
		defer cancel()
		doc, err := fetcher.Fetch(ctx, req.Ref)
		return fetchedMsg{gen: req.Gen, doc: doc, err: err}
	}
}

func (p TaskPanel) waitForReferences() tea.Cmd {
	updates := p.source.Updates()
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		refs, ok := <-updates
		if !ok {
			return nil
		}
		return referencesMsg(refs)
	}
}

func (p TaskPanel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case fetchedMsg:
		if !p.tracker.Resolve(msg.gen, msg.doc, msg.err) {
			slog.Debug("Discarded stale task list result", "gen", msg.gen)
			return p, nil
		}
		if msg.err != nil {
			slog.Warn("Task list fetch failed", "ref", p.tracker.Reference(), "error", msg.err)
		}
		return p, nil
	case referencesMsg:
		return p, tea.Batch(p.observe(msg), p.waitForReferences())
	case tea.WindowSizeMsg:
		p.compact = msg.Width < p.compactWidth
		return p, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, p.keys.Quit):
			return p, tea.Quit
		case key.Matches(msg, p.keys.Toggle):
			if _, ok := p.tracker.Visible(); ok {
				p.collapsed = !p.collapsed
			}
			return p, nil
		case key.Matches(msg, p.keys.Revalidate):
			req, ok := p.tracker.Revalidate()
			if !ok {
				return p, nil
			}
			return p, p.fetch(req)
		}
	}
	return p, nil
}

func (p TaskPanel) Collapsed() bool { return p.collapsed }
func (p TaskPanel) Compact() bool   { return p.compact }

// SetCompact overrides the layout picked from the window width.
func (p *TaskPanel) SetCompact(compact bool) { p.compact = compact }

func (p TaskPanel) Phase() tasklist.Phase { return p.tracker.Phase() }

// Err is the last fetch error for the current reference.
func (p TaskPanel) Err() error { return p.tracker.Err() }

// Load fetches the current reference synchronously, for rendering outside a
// running program.
func (p TaskPanel) Load(ctx context.Context) TaskPanel {
	req, ok := p.tracker.Observe(p.source.Current())
	if !ok {
		return p
	}
	doc, err := p.fetcher.Fetch(ctx, req.Ref)
	p.tracker.Resolve(req.Gen, doc, err)
	return p
}

func (p TaskPanel) View() string {
	doc, ok := p.tracker.Visible()
	if !ok {
		return ""
	}
	if p.collapsed {
		return collapsedStyle.Render(CollapsedIndicator)
	}

	rows := []string{p.header(doc.Status)}
	if p.compact {
		if i, ok := tasklist.Highlight(doc.Tasks); ok {
			rows = append(rows, taskCard(i+1, doc.Tasks[i]))
		}
	} else {
		for i, t := range doc.Tasks {
			rows = append(rows, taskCard(i+1, t))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (p TaskPanel) header(status string) string {
	if status == "" {
		status = "?"
	}
	h := titleStyle.Render("Tasks") + " " + badgeStyle.Render(status)
	if p.tracker.Pending() {
		h += " " + mutedStyle.Render("refreshing")
	}
	return h + " " + mutedStyle.Render("(c to collapse)")
}

func taskCard(index int, t tasklist.Task) string {
	body := fmt.Sprintf("%d. %s", index, t.Title)
	if t.Status != "" {
		body += "  " + taskStatusStyle(t.Status).Render(string(t.Status))
	}
	return cardStyle.Render(body)
}
