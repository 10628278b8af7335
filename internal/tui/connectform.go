package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sandwichlabs/mcpc/internal/connect"
	"github.com/sandwichlabs/mcpc/internal/registry"
)

type FormKeyMap struct {
	Next     key.Binding
	Prev     key.Binding
	KindNext key.Binding
	KindPrev key.Binding
	Submit   key.Binding
	Cancel   key.Binding
}

func DefaultFormKeyMap() FormKeyMap {
	return FormKeyMap{
		Next:     key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		Prev:     key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "previous field")),
		KindNext: key.NewBinding(key.WithKeys("right", " "), key.WithHelp("→", "next type")),
		KindPrev: key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "previous type")),
		Submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
		Cancel:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

const (
	focusName = iota
	focusKind
	focusEndpoint
	focusCount
)

type submittedMsg struct {
	res *connect.Result
	err error
}

// ConnectForm collects a name, a kind and an endpoint and submits them once.
type ConnectForm struct {
	form      *connect.Form
	submitter *connect.Submitter
	kinds     []registry.Kind
	keys      FormKeyMap

	name     textinput.Model
	endpoint textinput.Model
	spinner  spinner.Model
	focus    int

	busy      bool
	notice    string
	noticeErr bool

	// OnSuccess runs after a successful submission, once the fields are reset.
	OnSuccess func(*connect.Result) tea.Cmd
	// OnCancel runs when the user dismisses the form. Fields are kept.
	OnCancel func() tea.Cmd
}

func NewConnectForm(submitter *connect.Submitter, caps connect.Capabilities) ConnectForm {
	name := textinput.New()
	name.Placeholder = "Example: aki_mcp"
	name.Prompt = "› "
	name.CharLimit = 128
	name.Focus()

	endpoint := textinput.New()
	endpoint.Prompt = "› "

	m := ConnectForm{
		form:      connect.NewForm(caps),
		submitter: submitter,
		kinds:     connect.Kinds(caps),
		keys:      DefaultFormKeyMap(),
		name:      name,
		endpoint:  endpoint,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
	m.endpoint.Placeholder = endpointPlaceholder(m.form.Kind)
	return m
}

func endpointPlaceholder(k registry.Kind) string {
	switch k {
	case registry.KindStdio:
		return `Example: npx -y @modelcontextprotocol/server-everything`
	case registry.KindSSE:
		return "Example: http://localhost:5000/sse"
	default:
		return "Example: http://localhost:5000/mcp"
	}
}

func endpointLabel(k registry.Kind) string {
	if k == registry.KindStdio {
		return "Command *"
	}
	return "Server URL *"
}

func (m ConnectForm) Init() tea.Cmd {
	return textinput.Blink
}

// Form exposes the values being edited.
func (m ConnectForm) Form() *connect.Form { return m.form }
func (m ConnectForm) Busy() bool          { return m.busy }
func (m ConnectForm) Notice() string      { return m.notice }

// NoticeIsError reports whether the current notice is a failure message.
func (m ConnectForm) NoticeIsError() bool { return m.noticeErr }

// CanSubmit reports whether the confirm action is enabled.
func (m ConnectForm) CanSubmit() bool {
	return !m.busy && m.form.Valid() && m.form.Capabilities().Allows(m.form.Kind)
}

// Focus gives keyboard focus back to the current field.
func (m *ConnectForm) Focus() tea.Cmd {
	return m.setFocus(m.focus)
}

func (m *ConnectForm) setFocus(i int) tea.Cmd {
	m.focus = (i + focusCount) % focusCount
	m.name.Blur()
	m.endpoint.Blur()
	switch m.focus {
	case focusName:
		return m.name.Focus()
	case focusEndpoint:
		return m.endpoint.Focus()
	}
	return nil
}

func (m *ConnectForm) cycleKind(delta int) {
	if len(m.kinds) == 0 {
		return
	}
	cur := 0
	for i, k := range m.kinds {
		if k == m.form.Kind {
			cur = i
			break
		}
	}
	m.form.SetEndpoint(m.endpoint.Value())
	m.form.Kind = m.kinds[(cur+delta+len(m.kinds))%len(m.kinds)]
	m.syncEndpoint()
}

// syncEndpoint shows the stored value and hints for the current kind.
func (m *ConnectForm) syncEndpoint() {
	m.endpoint.SetValue(m.form.Endpoint())
	m.endpoint.Placeholder = endpointPlaceholder(m.form.Kind)
}

func (m ConnectForm) Update(msg tea.Msg) (ConnectForm, tea.Cmd) {
	switch msg := msg.(type) {
	case submittedMsg:
		return m.finish(msg)
	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.Cancel):
			if m.OnCancel != nil {
				return m, m.OnCancel()
			}
			return m, nil
		case key.Matches(msg, m.keys.Submit):
			return m.submit()
		case key.Matches(msg, m.keys.Next):
			return m, m.setFocus(m.focus + 1)
		case key.Matches(msg, m.keys.Prev):
			return m, m.setFocus(m.focus - 1)
		}
		if m.focus == focusKind {
			switch {
			case key.Matches(msg, m.keys.KindNext):
				m.cycleKind(1)
			case key.Matches(msg, m.keys.KindPrev):
				m.cycleKind(-1)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusName:
		m.name, cmd = m.name.Update(msg)
		m.form.Name = m.name.Value()
	case focusEndpoint:
		m.endpoint, cmd = m.endpoint.Update(msg)
		m.form.SetEndpoint(m.endpoint.Value())
	}
	return m, cmd
}

func (m ConnectForm) submit() (ConnectForm, tea.Cmd) {
	if !m.CanSubmit() {
		return m, nil
	}
	m.busy = true
	m.notice = connect.NoticeLoading
	m.noticeErr = false

	// The connect call runs off the event loop on its own copy of the values.
	values := *m.form
	submitter := m.submitter
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		res, err := submitter.Submit(context.Background(), &values)
		return submittedMsg{res: res, err: err}
	})
}

func (m ConnectForm) finish(msg submittedMsg) (ConnectForm, tea.Cmd) {
	m.busy = false
	if msg.err != nil {
		m.notice = msg.err.Error()
		m.noticeErr = true
		return m, m.Focus()
	}

	m.form.Reset()
	m.name.Reset()
	m.syncEndpoint()
	m.notice = msg.res.Notice()
	m.noticeErr = false
	cmds := []tea.Cmd{m.setFocus(focusName)}
	if m.OnSuccess != nil {
		cmds = append(cmds, m.OnSuccess(msg.res))
	}
	return m, tea.Batch(cmds...)
}

func (m ConnectForm) label(text string, field int) string {
	if m.focus == field && !m.busy {
		return focusedStyle.Render(text)
	}
	return labelStyle.Render(text)
}

func (m ConnectForm) kindSelector() string {
	if len(m.kinds) == 0 {
		return mutedStyle.Render("no connection types enabled")
	}
	parts := make([]string, len(m.kinds))
	for i, k := range m.kinds {
		if k == m.form.Kind {
			parts[i] = focusedStyle.Render("[" + string(k) + "]")
			continue
		}
		parts[i] = mutedStyle.Render(" " + string(k) + " ")
	}
	return strings.Join(parts, " ")
}

func (m ConnectForm) View() string {
	cancel := buttonStyle.Render("Cancel")
	confirm := disabledStyle.Render("Confirm")
	if m.busy {
		cancel = disabledStyle.Render("Cancel")
	}
	if m.CanSubmit() {
		confirm = primaryStyle.Render("Confirm")
	}

	rows := []string{
		titleStyle.Render("Add an MCP server"),
		"",
		m.label("Name *", focusName),
		m.name.View(),
		m.label("Type *", focusKind),
		m.kindSelector(),
		m.label(endpointLabel(m.form.Kind), focusEndpoint),
		m.endpoint.View(),
		"",
		lipgloss.JoinHorizontal(lipgloss.Top, cancel, " ", confirm),
	}

	switch {
	case m.busy:
		rows = append(rows, m.spinner.View()+" "+m.notice)
	case m.notice != "" && m.noticeErr:
		rows = append(rows, errorStyle.Render(m.notice))
	case m.notice != "":
		rows = append(rows, successStyle.Render(m.notice))
	}
	rows = append(rows, mutedStyle.Render("tab: next field • ←/→: type • enter: confirm • esc: cancel"))
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
