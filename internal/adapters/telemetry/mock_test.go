package telemetry_test

import (
	"context"
	"sync"

	"go.trai.ch/crossbuild/internal/core/ports"
)

// recordingRenderer is a simple test double for ports.Renderer.
type recordingRenderer struct {
	mu        sync.Mutex
	plans     [][]string
	started   []string
	completed []error
	logs      map[string][]byte
}

func (r *recordingRenderer) Start(_ context.Context) error { return nil }
func (r *recordingRenderer) Stop() error                   { return nil }
func (r *recordingRenderer) Wait() error                   { return nil }

func (r *recordingRenderer) OnPlanEmit(tasks []string, _ map[string][]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans = append(r.plans, tasks)
}

func (r *recordingRenderer) OnTaskStart(ev ports.TaskStarted) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, ev.Name)
}

func (r *recordingRenderer) OnTaskLog(spanID string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.logs == nil {
		r.logs = make(map[string][]byte)
	}
	r.logs[spanID] = append(r.logs[spanID], data...)
}

func (r *recordingRenderer) OnTaskComplete(ev ports.TaskFinished) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, ev.Err)
}

func (r *recordingRenderer) allLogs() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []byte
	for _, data := range r.logs {
		out = append(out, data...)
	}
	return string(out)
}
