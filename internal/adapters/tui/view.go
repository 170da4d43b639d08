package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/crossbuild/internal/ui/style"
)

// View renders the UI.
func (m *Model) View() string {
	if m.ListHeight == 0 {
		return "Initializing..."
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.taskList(), m.logPane())
	return lipgloss.JoinVertical(lipgloss.Left, body, m.footer())
}

func (m *Model) taskList() string {
	var s strings.Builder

	c := m.Counts()
	title := titleStyle
	if c.Failed > 0 {
		title = failureTitleStyle
	}
	s.WriteString(title.Render(fmt.Sprintf("TASKS %d/%d", c.Done+c.Failed, c.Total)) + "\n\n")

	start := m.ListOffset
	end := min(m.ListOffset+m.ListHeight, len(m.Tasks))
	start = min(start, end)

	for i := start; i < end; i++ {
		s.WriteString(m.renderTaskRow(i, m.Tasks[i]) + "\n")
	}

	return listStyle.Render(s.String())
}

func (m *Model) renderTaskRow(index int, task *TaskNode) string {
	st := taskStyle(task.Status)

	cursor := "  "
	if index == m.SelectedIdx {
		cursor = selectedStyle.Render("> ")
		if !task.Status.IsTerminal() {
			st = selectedStyle
		}
	}

	content := fmt.Sprintf("%s %s", style.StatusIcon(task.Status), task.Name)
	if d := task.Duration(); d > 0 {
		content += fmt.Sprintf(" (%s)", d.Round(time.Millisecond))
	}
	return cursor + st.Render(content)
}

func (m *Model) logPane() string {
	node := m.selectedTask()
	if node == nil {
		return logStyle.Render(titleStyle.Render("LOGS (Waiting...)"))
	}

	mode := " (Manual)"
	if m.FollowMode {
		mode = " (Following)"
	}
	header := titleStyle.Render("LOGS: " + node.Name + mode)

	body := node.Term.View()
	if node.Err != nil {
		body = lipgloss.JoinVertical(lipgloss.Left, body, taskStyle(node.Status).Render(style.Cross+" "+node.Err.Error()))
	}

	return logStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, "", body))
}

func (m *Model) footer() string {
	return hintStyle.Render("↑/k ↓/j select · pgup/pgdn scroll · esc follow · q quit")
}
