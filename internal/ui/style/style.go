// Package style provides shared UI styling primitives including brand colors
// and icons for consistent visual presentation across the CLI.
package style

import (
	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/crossbuild/internal/core/domain"
)

// Brand Colors.
var (
	Iris   = lipgloss.Color("#8B5CF6")
	Slate  = lipgloss.Color("#667085")
	White  = lipgloss.Color("#FFFFFF")
	Green  = lipgloss.Color("#22A06B")
	Red    = lipgloss.Color("#D93025")
	Yellow = lipgloss.Color("#F59E0B")
)

// Icons.
const (
	Check   = "✓"
	Cross   = "✗"
	Warning = "!"
	Dot     = "●"
	Circle  = "○"
)

// StatusIcon returns the icon shown next to a task in the given status.
func StatusIcon(s domain.TaskStatus) string {
	switch s {
	case domain.StatusDone:
		return Check
	case domain.StatusFailed:
		return Cross
	case domain.StatusRunning:
		return Dot
	default:
		return Circle
	}
}

// StatusColor returns the color used for a task in the given status.
func StatusColor(s domain.TaskStatus) lipgloss.Color {
	switch s {
	case domain.StatusDone:
		return Green
	case domain.StatusFailed:
		return Red
	case domain.StatusRunning:
		return Iris
	default:
		return Slate
	}
}
