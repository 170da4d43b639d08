package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/crossbuild/internal/core/domain"
)

const (
	// headerLines is the number of lines taken by a pane title and the blank line below it.
	headerLines = 2
	// logChrome is the width taken by the log pane's border and padding.
	logChrome = 2
)

// TaskNode represents a single task in the UI list.
type TaskNode struct {
	Name      string
	Status    domain.TaskStatus
	Deps      []string
	Term      *Vterm
	StartTime time.Time
	EndTime   time.Time
	Err       error
}

// Duration returns how long the task ran, or zero while it has not finished.
func (n *TaskNode) Duration() time.Duration {
	if n.StartTime.IsZero() || n.EndTime.IsZero() {
		return 0
	}
	return n.EndTime.Sub(n.StartTime)
}

// Model represents the main TUI state.
type Model struct {
	Tasks       []*TaskNode
	TaskMap     map[string]*TaskNode
	SpanMap     map[string]*TaskNode
	SelectedIdx int
	ListOffset  int
	ListHeight  int
	LogHeight   int
	LogWidth    int
	Width       int
	FollowMode  bool
	Interrupted bool
}

// NewModel creates a new TUI model with default settings.
func NewModel() Model {
	return Model{
		Tasks:      make([]*TaskNode, 0),
		TaskMap:    make(map[string]*TaskNode),
		SpanMap:    make(map[string]*TaskNode),
		FollowMode: true,
	}
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Counts returns the number of tasks per status bucket.
func (m *Model) Counts() domain.Counts {
	c := domain.Counts{Total: len(m.Tasks)}
	for _, t := range m.Tasks {
		switch t.Status {
		case domain.StatusDone:
			c.Done++
		case domain.StatusFailed:
			c.Failed++
		default:
			c.Pending++
		}
	}
	return c
}

func (m *Model) ensureVisible() {
	if m.ListHeight <= 0 {
		return
	}
	if m.SelectedIdx < m.ListOffset {
		m.ListOffset = m.SelectedIdx
	} else if m.SelectedIdx >= m.ListOffset+m.ListHeight {
		m.ListOffset = m.SelectedIdx - m.ListHeight + 1
	}
}

// resizeTerms fits every task terminal to the space left of the task list.
func (m *Model) resizeTerms() {
	if m.Width == 0 {
		return
	}
	m.LogWidth = max(m.Width-lipgloss.Width(m.taskList())-logChrome, 1)
	for _, t := range m.Tasks {
		t.Term.Resize(m.LogWidth, m.LogHeight)
	}
}

func (m *Model) selectedTask() *TaskNode {
	if m.SelectedIdx >= 0 && m.SelectedIdx < len(m.Tasks) {
		return m.Tasks[m.SelectedIdx]
	}
	return nil
}

func (m *Model) selectByName(name string) {
	for i, t := range m.Tasks {
		if t.Name == name {
			m.SelectedIdx = i
			m.ensureVisible()
			return
		}
	}
}

// Update handles incoming messages and updates the model state.
//
//nolint:cyclop // message dispatch
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.ListHeight = max(msg.Height-headerLines-1, 1)
		m.LogHeight = max(msg.Height-headerLines-1, 1)
		m.ensureVisible()
		m.resizeTerms()

	case MsgInitTasks:
		m.Tasks = make([]*TaskNode, len(msg.Tasks))
		m.TaskMap = make(map[string]*TaskNode, len(msg.Tasks))
		m.SpanMap = make(map[string]*TaskNode)
		m.SelectedIdx = 0
		m.ListOffset = 0
		for i, name := range msg.Tasks {
			m.Tasks[i] = &TaskNode{
				Name:   name,
				Status: domain.StatusPending,
				Deps:   msg.Dependencies[name],
				Term:   NewVterm(),
			}
			m.TaskMap[name] = m.Tasks[i]
		}
		m.resizeTerms()

	case MsgTaskStart:
		if node, ok := m.TaskMap[msg.Name]; ok {
			node.Status = domain.StatusRunning
			node.StartTime = msg.StartTime
			m.SpanMap[msg.SpanID] = node
			if m.FollowMode {
				m.selectByName(msg.Name)
			}
		}

	case MsgTaskLog:
		if node, ok := m.SpanMap[msg.SpanID]; ok {
			_, _ = node.Term.Write(msg.Data)
		}

	case MsgTaskComplete:
		if node, ok := m.SpanMap[msg.SpanID]; ok {
			node.EndTime = msg.EndTime
			node.Err = msg.Err
			if msg.Err != nil {
				node.Status = domain.StatusFailed
			} else {
				node.Status = domain.StatusDone
			}
		}
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "ctrl+c":
		m.Interrupted = true
		return tea.Quit
	case "k", "up":
		if m.SelectedIdx > 0 {
			m.SelectedIdx--
			m.FollowMode = false
			m.ensureVisible()
		}
	case "j", "down":
		if m.SelectedIdx < len(m.Tasks)-1 {
			m.SelectedIdx++
			m.FollowMode = false
			m.ensureVisible()
		}
	case "pgup", "pgdown", "home", "end":
		m.scrollLog(msg.String())
	case "esc":
		m.FollowMode = true
		for i, t := range m.Tasks {
			if t.Status == domain.StatusRunning {
				m.SelectedIdx = i
				break
			}
		}
		m.ensureVisible()
		if node := m.selectedTask(); node != nil {
			node.Term.ScrollToEnd()
		}
	}
	return nil
}

func (m *Model) scrollLog(key string) {
	node := m.selectedTask()
	if node == nil {
		return
	}
	switch key {
	case "pgup":
		node.Term.Scroll(-m.LogHeight)
	case "pgdown":
		node.Term.Scroll(m.LogHeight)
	case "home":
		node.Term.Scroll(-node.Term.Offset())
	case "end":
		node.Term.ScrollToEnd()
	}
}
