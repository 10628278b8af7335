package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandwichlabs/mcpc/internal/connect"
	"github.com/sandwichlabs/mcpc/internal/registry"
)

type serversMsg []registry.Descriptor

type formClosedMsg struct {
	notice string
}

// ServersModel lists the registered servers and hosts the connect form.
type ServersModel struct {
	list     list.Model
	servers  *registry.Registry
	updates  <-chan []registry.Descriptor
	form     ConnectForm
	showForm bool
	selected *registry.Descriptor
	quitting bool
}

func (m ServersModel) Init() tea.Cmd {
	return m.waitForServers()
}

func (m ServersModel) waitForServers() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		servers, ok := <-updates
		if !ok {
			return nil
		}
		return serversMsg(servers)
	}
}

func (m ServersModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case serversMsg:
		cmd := m.list.SetItems(listItems(msg))
		return m, tea.Batch(cmd, m.waitForServers())
	case formClosedMsg:
		m.showForm = false
		cmds := []tea.Cmd{m.list.SetItems(listItems(m.servers.List()))}
		if msg.notice != "" {
			cmds = append(cmds, m.list.NewStatusMessage(msg.notice))
		}
		return m, tea.Batch(cmds...)
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		if m.showForm {
			break
		}
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "q":
			m.quitting = true
			return m, tea.Quit
		case "a":
			m.showForm = true
			m.selected = nil
			return m, m.form.Focus()
		case "enter":
			if item, ok := m.list.SelectedItem().(listItem); ok {
				d := item.Descriptor
				m.selected = &d
			}
			return m, nil
		case "esc":
			if m.selected != nil {
				m.selected = nil
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	switch {
	case m.showForm:
		m.form, cmd = m.form.Update(msg)
	case m.selected == nil:
		m.list, cmd = m.list.Update(msg)
	}
	return m, cmd
}

func (m ServersModel) View() string {
	if m.quitting {
		return ""
	}
	if m.showForm {
		return m.form.View()
	}
	if m.selected != nil {
		return selectedServerView(m.selected)
	}
	return m.list.View()
}

// FormOpen reports whether the connect form is showing.
func (m ServersModel) FormOpen() bool { return m.showForm }

func selectedServerView(d *registry.Descriptor) string {
	var s string
	s += fmt.Sprintf("Server: %s\n\n", d.Name)
	s += fmt.Sprintf("Type: %s\n", d.Kind)
	if d.Kind == registry.KindStdio {
		s += fmt.Sprintf("Command: %s\n", d.Command)
	} else {
		s += fmt.Sprintf("URL: %s\n", d.URL)
	}
	s += fmt.Sprintf("Status: %s\n\n", d.Status)
	if len(d.Tools) > 0 {
		s += "Tools:\n"
		for _, t := range d.Tools {
			s += fmt.Sprintf("  - %s\n", t.Name)
		}
	}
	s += "\n(Press 'esc' to go back, 'q' to quit)"
	return s
}

// listItem is a wrapper around registry.Descriptor to satisfy the list.Item interface.
type listItem struct {
	registry.Descriptor
}

func (li listItem) Title() string { return li.Name }
func (li listItem) Description() string {
	parts := []string{string(li.Kind), li.Endpoint(), string(li.Status)}
	if n := len(li.Tools); n == 1 {
		parts = append(parts, "1 tool")
	} else {
		parts = append(parts, fmt.Sprintf("%d tools", n))
	}
	return strings.Join(parts, " · ")
}
func (li listItem) FilterValue() string { return li.Name }

func listItems(servers []registry.Descriptor) []list.Item {
	items := make([]list.Item, len(servers))
	for i, d := range servers {
		items[i] = listItem{d}
	}
	return items
}

// NewServersModel builds the servers view. Pressing 'a' opens a connect form
// that submits through submitter; the form closes on success or cancel.
func NewServersModel(servers *registry.Registry, submitter *connect.Submitter, caps connect.Capabilities) ServersModel {
	l := list.New(listItems(servers.List()), list.NewDefaultDelegate(), 0, 0)
	l.Title = "MCP Servers"
	l.SetStatusBarItemName("server", "servers")

	form := NewConnectForm(submitter, caps)
	form.OnSuccess = func(res *connect.Result) tea.Cmd {
		return func() tea.Msg { return formClosedMsg{notice: res.Notice()} }
	}
	form.OnCancel = func() tea.Cmd {
		return func() tea.Msg { return formClosedMsg{} }
	}

	return ServersModel{
		list:    l,
		servers: servers,
		updates: servers.Subscribe(),
		form:    form,
	}
}
