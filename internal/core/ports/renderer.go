package ports

import (
	"context"
	"time"

	"go.trai.ch/crossbuild/internal/core/domain"
)

// Span attribute keys shared by the scheduler and the renderers.
const (
	AttrTaskKind     = "task.kind"
	AttrTaskExitCode = "task.exit_code"
)

// TaskStarted describes a task whose command has been launched.
type TaskStarted struct {
	SpanID string
	Name   string
	Kind   domain.TaskKind
	At     time.Time
}

// TaskFinished describes a task whose command has returned.
// ExitCode follows domain.ExitCode: 0 on success, -1 when no exit status exists.
type TaskFinished struct {
	SpanID   string
	At       time.Time
	ExitCode int
	Err      error
}

// Renderer is the abstraction for output rendering.
// It decouples telemetry collection from presentation logic,
// allowing the same event stream to drive either a rich TUI or linear CI logs.
//
//go:generate mockgen -source=renderer.go -destination=mocks/mock_renderer.go -package=mocks
type Renderer interface {
	// Start initializes the renderer and begins its lifecycle.
	Start(ctx context.Context) error

	// Stop flushes buffered output and stops accepting events.
	Stop() error

	// Wait blocks until the renderer has fully terminated.
	Wait() error

	// OnPlanEmit is called once with every planned task in graph order
	// and, per task, the tasks producing its inputs.
	OnPlanEmit(tasks []string, deps map[string][]string)

	// OnTaskStart is called when a task begins execution.
	OnTaskStart(ev TaskStarted)

	// OnTaskLog is called with raw task output, which may hold partial lines or ANSI sequences.
	OnTaskLog(spanID string, data []byte)

	// OnTaskComplete is called when a task finishes execution.
	OnTaskComplete(ev TaskFinished)
}
