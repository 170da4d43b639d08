// Package tui provides an interactive terminal renderer for build progress.
package tui

import (
	"context"
	"errors"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/crossbuild/internal/core/ports"
	"go.trai.ch/crossbuild/internal/ui/output"
	"go.trai.ch/zerr"
)

var _ ports.Renderer = (*Renderer)(nil)

// ErrInterrupted is returned by Wait when the user quit the interface before the build finished.
var ErrInterrupted = zerr.New("interrupted by user")

// Renderer wraps the Bubble Tea model as a ports.Renderer.
type Renderer struct {
	program *tea.Program
	model   *Model
	errCh   chan error
}

// NewRenderer creates a new TUI renderer drawing to w.
func NewRenderer(model *Model, w io.Writer, opts ...tea.ProgramOption) *Renderer {
	if w == nil {
		w = os.Stderr
	}
	lipgloss.SetColorProfile(output.New(w).Profile)

	opts = append([]tea.ProgramOption{tea.WithOutput(w)}, opts...)
	return &Renderer{
		program: tea.NewProgram(model, opts...),
		model:   model,
		errCh:   make(chan error, 1),
	}
}

// Start launches the TUI in a background goroutine.
func (r *Renderer) Start(_ context.Context) error {
	go func() {
		final, err := r.program.Run()
		if err == nil {
			if m, ok := final.(*Model); ok && m.Interrupted {
				err = ErrInterrupted
			}
		}
		r.errCh <- err
	}()
	return nil
}

// Stop signals the TUI to quit.
func (r *Renderer) Stop() error {
	r.program.Quit()
	return nil
}

// Wait blocks until the TUI has terminated.
func (r *Renderer) Wait() error {
	err := <-r.errCh
	if err != nil && !errors.Is(err, ErrInterrupted) {
		return zerr.Wrap(err, "tui renderer failed")
	}
	return err
}

// OnPlanEmit forwards plan initialization to the TUI.
func (r *Renderer) OnPlanEmit(tasks []string, deps map[string][]string) {
	r.program.Send(MsgInitTasks{Tasks: tasks, Dependencies: deps})
}

// OnTaskStart forwards task start events to the TUI.
func (r *Renderer) OnTaskStart(ev ports.TaskStarted) {
	r.program.Send(MsgTaskStart{SpanID: ev.SpanID, Name: ev.Name, StartTime: ev.At})
}

// OnTaskLog forwards task output to the TUI.
func (r *Renderer) OnTaskLog(spanID string, data []byte) {
	r.program.Send(MsgTaskLog{SpanID: spanID, Data: data})
}

// OnTaskComplete forwards task completion events to the TUI.
func (r *Renderer) OnTaskComplete(ev ports.TaskFinished) {
	r.program.Send(MsgTaskComplete{SpanID: ev.SpanID, EndTime: ev.At, Err: ev.Err})
}

// Program returns the underlying tea.Program.
func (r *Renderer) Program() *tea.Program {
	return r.program
}
