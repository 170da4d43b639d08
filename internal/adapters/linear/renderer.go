// Package linear renders build progress as plain prefixed lines for CI logs and pipes.
package linear

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/muesli/termenv"
	"go.trai.ch/crossbuild/internal/core/domain"
	"go.trai.ch/crossbuild/internal/core/ports"
	"go.trai.ch/crossbuild/internal/ui/output"
	"go.trai.ch/crossbuild/internal/ui/style"
)

var _ ports.Renderer = (*Renderer)(nil)

// Renderer writes task output to stdout, one prefixed line at a time,
// and task lifecycle lines to stderr.
type Renderer struct {
	stdout io.Writer
	stderr io.Writer
	output *termenv.Output

	mu        sync.Mutex
	open      []*stream
	succeeded int
	failed    int
}

// stream holds the unterminated tail of one running task's output.
type stream struct {
	spanID  string
	name    string
	kind    domain.TaskKind
	started time.Time
	pending []byte
}

// NewRenderer creates a new Renderer. Nil writers default to the process streams.
func NewRenderer(stdout, stderr io.Writer) *Renderer {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &Renderer{
		stdout: stdout,
		stderr: stderr,
		output: output.NewWithProfile(stderr, output.ColorProfileANSI),
	}
}

// Start is a no-op.
func (r *Renderer) Start(_ context.Context) error {
	return nil
}

// Stop prints what is left of unfinished tasks in start order, then the summary.
func (r *Renderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.open {
		r.emit(s, s.pending)
		s.pending = nil
	}
	if r.succeeded+r.failed > 0 {
		_, _ = fmt.Fprintf(r.stderr, "%d task(s) succeeded, %d failed\n", r.succeeded, r.failed)
	}
	return nil
}

// Wait is a no-op.
func (r *Renderer) Wait() error {
	return nil
}

// OnPlanEmit announces the number of planned tasks.
func (r *Renderer) OnPlanEmit(tasks []string, _ map[string][]string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.stderr, "Planned %d task(s)\n", len(tasks))
}

// OnTaskStart opens a stream for the task and announces it with its kind.
func (r *Renderer) OnTaskStart(ev ports.TaskStarted) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := &stream{spanID: ev.SpanID, name: ev.Name, kind: ev.Kind, started: ev.At}
	r.open = append(r.open, s)
	_, _ = fmt.Fprintf(r.stderr, "%s %s started\n", r.prefix(s.name), s.kind)
}

// OnTaskLog prints every complete line of data and keeps the rest for later.
func (r *Renderer) OnTaskLog(spanID string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.find(spanID)
	if s == nil {
		return
	}

	rest := append(s.pending, data...)
	for {
		line, tail, found := bytes.Cut(rest, []byte("\n"))
		if !found {
			break
		}
		r.emit(s, line)
		rest = tail
	}
	s.pending = slices.Clone(rest)
}

// OnTaskComplete flushes the task's partial line and reports how it ended.
// Failures carry the command's exit code when it produced one.
func (r *Renderer) OnTaskComplete(ev ports.TaskFinished) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.find(ev.SpanID)
	if s == nil {
		return
	}
	r.emit(s, s.pending)
	r.open = slices.DeleteFunc(r.open, func(o *stream) bool { return o == s })

	took := ev.At.Sub(s.started).Round(time.Millisecond)
	if ev.Err == nil {
		r.succeeded++
		mark := r.output.String(style.Check).Foreground(termenv.RGBColor(string(style.Green)))
		_, _ = fmt.Fprintf(r.stderr, "[%s] %s %s done in %v\n", s.name, mark, s.kind, took)
		return
	}

	r.failed++
	mark := r.output.String(style.Cross).Foreground(termenv.RGBColor(string(style.Red)))
	if ev.ExitCode > 0 {
		_, _ = fmt.Fprintf(r.stderr, "[%s] %s %s exited with code %d after %v: %v\n",
			s.name, mark, s.kind, ev.ExitCode, took, ev.Err)
		return
	}
	_, _ = fmt.Fprintf(r.stderr, "[%s] %s %s failed after %v: %v\n", s.name, mark, s.kind, took, ev.Err)
}

func (r *Renderer) find(spanID string) *stream {
	for _, s := range r.open {
		if s.spanID == spanID {
			return s
		}
	}
	return nil
}

func (r *Renderer) prefix(name string) string {
	return r.output.String("[" + name + "]").Faint().String()
}

// emit writes one line of task output. Blank lines are dropped.
func (r *Renderer) emit(s *stream, line []byte) {
	line = bytes.TrimSuffix(line, []byte("\r"))
	if len(line) == 0 {
		return
	}
	_, _ = fmt.Fprintf(r.stdout, "[%s] %s\n", s.name, line)
}
