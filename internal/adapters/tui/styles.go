package tui

import (
	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/crossbuild/internal/core/domain"
	"go.trai.ch/crossbuild/internal/ui/style"
)

var (
	selectedStyle = lipgloss.NewStyle().
			Foreground(style.Iris).
			Bold(true)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Background(style.Iris).
			Foreground(style.White)

	failureTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Padding(0, 1).
				Background(style.Red).
				Foreground(style.White)

	listStyle = lipgloss.NewStyle().
			PaddingRight(2)

	logStyle = lipgloss.NewStyle().
			PaddingLeft(1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(style.Slate)

	hintStyle = lipgloss.NewStyle().
			Foreground(style.Slate).
			Faint(true)
)

// taskStyle returns the style of a task row in the given status.
func taskStyle(s domain.TaskStatus) lipgloss.Style {
	st := lipgloss.NewStyle().Foreground(style.StatusColor(s))
	if s == domain.StatusRunning {
		st = st.Bold(true)
	}
	return st
}
