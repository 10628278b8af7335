package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/sandwichlabs/mcpc/internal/tasklist"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	badgeStyle     = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("250"))
	cardStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	collapsedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	focusedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	buttonStyle    = lipgloss.NewStyle().Padding(0, 2).Border(lipgloss.NormalBorder())
	disabledStyle  = buttonStyle.Foreground(lipgloss.Color("240")).BorderForeground(lipgloss.Color("238"))
	primaryStyle   = buttonStyle.Foreground(lipgloss.Color("212")).BorderForeground(lipgloss.Color("212"))
)

var taskStatusColors = map[tasklist.TaskStatus]lipgloss.Color{
	tasklist.StatusReady:   lipgloss.Color("12"),
	tasklist.StatusRunning: lipgloss.Color("11"),
	tasklist.StatusDone:    lipgloss.Color("10"),
	tasklist.StatusFailed:  lipgloss.Color("9"),
}

func taskStatusStyle(s tasklist.TaskStatus) lipgloss.Style {
	if c, ok := taskStatusColors[s]; ok {
		return lipgloss.NewStyle().Foreground(c)
	}
	return mutedStyle
}
