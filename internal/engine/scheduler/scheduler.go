// Package scheduler drives a task graph to completion on a bounded worker pool.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.trai.ch/crossbuild/internal/core/domain"
	"go.trai.ch/crossbuild/internal/core/ports"
	"go.trai.ch/zerr"
)

// bootstrapLimit is the number of tasks allowed in flight until the first compile finishes.
const bootstrapLimit = 1

// Scheduler manages the execution of tasks in a build graph.
//
// A run starts in the bootstrap phase, dispatching one task at a time so the first toolchain
// invocation populates shared caches alone. Once a compile task reaches a terminal state the
// limit widens to the configured parallelism.
type Scheduler struct {
	executor ports.Executor
	tracer   ports.Tracer
	logger   ports.Logger

	mu         sync.RWMutex
	taskStatus map[string]domain.TaskStatus
}

// NewScheduler creates a new Scheduler with the given dependencies.
func NewScheduler(executor ports.Executor, tracer ports.Tracer, logger ports.Logger) *Scheduler {
	return &Scheduler{
		executor:   executor,
		tracer:     tracer,
		logger:     logger,
		taskStatus: make(map[string]domain.TaskStatus),
	}
}

// Status returns the last known status of the named task.
func (s *Scheduler) Status(name string) (domain.TaskStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.taskStatus[name]
	return status, ok
}

func (s *Scheduler) initTaskStatuses(tasks []domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.taskStatus = make(map[string]domain.TaskStatus, len(tasks))
	for _, t := range tasks {
		s.taskStatus[t.Name()] = domain.StatusPending
	}
}

func (s *Scheduler) updateStatus(name string, status domain.TaskStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taskStatus[name] = status
}

// Run executes every task of the graph and returns the per-task report.
//
// The report is never nil. The error is nil when every task succeeded; it wraps
// domain.ErrBuildFailed when tasks failed and domain.ErrDeadlock when pending tasks
// could never become runnable.
func (s *Scheduler) Run(ctx context.Context, graph *domain.Graph, parallelism int) (*domain.Report, error) {
	tasks := graph.Tasks()
	s.initTaskStatuses(tasks)

	state := newRunState(ctx, s, tasks, parallelism)
	if parallelism < 1 {
		return state.report, zerr.With(zerr.Wrap(domain.ErrInvalidParallelism, "failed to start build"), "jobs", parallelism)
	}

	names, deps := planOf(graph)
	s.tracer.EmitPlan(ctx, names, deps)

	return state.report, state.runExecutionLoop()
}

// planOf lists task names in graph order along with the tasks producing each task's dependencies.
func planOf(graph *domain.Graph) ([]string, map[string][]string) {
	names := make([]string, 0, graph.Len())
	deps := make(map[string][]string, graph.Len())
	for t := range graph.Walk() {
		names = append(names, t.Name())
		var producers []string
		for _, dep := range t.Dependencies() {
			if p, ok := graph.Producer(dep); ok {
				producers = append(producers, p.Name())
			}
		}
		deps[t.Name()] = producers
	}
	return names, deps
}

type result struct {
	index      int
	err        error
	startedAt  time.Time
	finishedAt time.Time
}

// runState is owned by the goroutine executing Run. Workers only send on resultsCh.
type runState struct {
	ctx         context.Context
	s           *Scheduler
	report      *domain.Report
	tasks       []domain.Task
	pending     []int
	active      int
	limit       int
	parallelism int
	bootstrap   bool
	failedOut   map[string]bool
	resultsCh   chan result
}

func newRunState(ctx context.Context, s *Scheduler, tasks []domain.Task, parallelism int) *runState {
	report := &domain.Report{Results: make([]domain.Result, len(tasks))}
	pending := make([]int, len(tasks))
	for i, t := range tasks {
		report.Results[i] = domain.Result{
			Task:    t.Name(),
			Kind:    t.Kind(),
			Status:  domain.StatusPending,
			Outputs: t.Outputs(),
		}
		pending[i] = i
	}

	return &runState{
		ctx:         ctx,
		s:           s,
		report:      report,
		tasks:       tasks,
		pending:     pending,
		limit:       min(bootstrapLimit, parallelism),
		parallelism: parallelism,
		bootstrap:   true,
		failedOut:   make(map[string]bool),
		// Buffered for every task so a finishing worker never blocks.
		resultsCh: make(chan result, len(tasks)),
	}
}

func (state *runState) runExecutionLoop() error {
	for len(state.pending) > 0 || state.active > 0 {
		if state.ctx.Err() == nil {
			state.schedule()
		}

		if state.active == 0 {
			if len(state.pending) == 0 {
				break
			}
			if err := state.ctx.Err(); err != nil {
				state.abandonPending(err)
				break
			}
			return state.deadlock()
		}

		state.handleResult(<-state.resultsCh)
	}

	return state.verdict()
}

// schedule dispatches the first runnable pending task, in insertion order, until the limit is reached.
func (state *runState) schedule() {
	for state.active < state.limit {
		pos := state.nextRunnable()
		if pos < 0 {
			return
		}

		idx := state.pending[pos]
		state.pending = append(state.pending[:pos], state.pending[pos+1:]...)
		state.active++

		t := state.tasks[idx]
		state.report.Results[idx].Status = domain.StatusRunning
		state.s.updateStatus(t.Name(), domain.StatusRunning)
		go state.executeTask(idx, t)
	}
}

func (state *runState) nextRunnable() int {
	for pos, idx := range state.pending {
		if state.tasks[idx].CanRun() {
			return pos
		}
	}
	return -1
}

func (state *runState) executeTask(idx int, t domain.Task) {
	// The span is ended before the result is sent so observers see the task finish first.
	res := func() (res result) {
		ctx, span := state.s.tracer.Start(state.ctx, t.Name(),
			ports.WithAttribute(ports.AttrTaskKind, string(t.Kind())),
		)
		defer span.End()

		res = result{index: idx, startedAt: time.Now()}
		defer func() {
			if r := recover(); r != nil {
				res.err = zerr.With(zerr.New(fmt.Sprintf("panic: %v", r)), "task", t.Name())
			}
			res.finishedAt = time.Now()
			if res.err != nil {
				span.RecordError(res.err)
			}
			span.SetAttribute(ports.AttrTaskExitCode, domain.ExitCode(res.err))
		}()

		res.err = state.s.executor.Execute(ctx, t.Command(), span, span)
		return res
	}()
	state.resultsCh <- res
}

func (state *runState) handleResult(res result) {
	state.active--

	t := state.tasks[res.index]
	r := &state.report.Results[res.index]
	r.StartedAt = res.startedAt
	r.FinishedAt = res.finishedAt
	r.ExitCode = domain.ExitCode(res.err)
	r.Err = res.err

	if res.err != nil {
		r.Status = domain.StatusFailed
		state.s.updateStatus(t.Name(), domain.StatusFailed)
		for _, out := range t.Outputs() {
			state.failedOut[filepath.Clean(out)] = true
		}
		state.failDependents()
	} else {
		r.Status = domain.StatusDone
		state.s.updateStatus(t.Name(), domain.StatusDone)
	}

	if state.bootstrap && t.Kind() == domain.KindCompile {
		state.bootstrap = false
		state.limit = state.parallelism
		if state.s.logger != nil && state.parallelism > bootstrapLimit {
			state.s.logger.Info(fmt.Sprintf("bootstrap complete, running up to %d tasks in parallel", state.parallelism))
		}
	}
}

// failDependents fails every pending task waiting on a missing output of a failed task.
// Failures propagate transitively through the outputs of the tasks failed here.
func (state *runState) failDependents() {
	for changed := true; changed; {
		changed = false
		remaining := state.pending[:0]
		for _, idx := range state.pending {
			t := state.tasks[idx]
			dep, blocked := state.blockedBy(t)
			if !blocked {
				remaining = append(remaining, idx)
				continue
			}

			err := zerr.With(zerr.Wrap(domain.ErrDependencyFailed, "task skipped"), "dependency", dep)
			state.markFailed(idx, err)
			for _, out := range t.Outputs() {
				state.failedOut[filepath.Clean(out)] = true
			}
			changed = true
		}
		state.pending = remaining
	}
}

func (state *runState) blockedBy(t domain.Task) (string, bool) {
	for _, dep := range t.Dependencies() {
		if !state.failedOut[filepath.Clean(dep)] {
			continue
		}
		if _, err := os.Stat(dep); err != nil {
			return dep, true
		}
	}
	return "", false
}

// abandonPending fails every task that was never dispatched because the run was cancelled.
func (state *runState) abandonPending(cause error) {
	for _, idx := range state.pending {
		state.markFailed(idx, zerr.Wrap(cause, "task not started"))
	}
	state.pending = nil
}

func (state *runState) markFailed(idx int, err error) {
	r := &state.report.Results[idx]
	r.Status = domain.StatusFailed
	r.Err = err
	r.ExitCode = domain.ExitCode(err)
	state.s.updateStatus(r.Task, domain.StatusFailed)
}

func (state *runState) deadlock() error {
	names := make([]string, 0, len(state.pending))
	for _, idx := range state.pending {
		names = append(names, state.tasks[idx].Name())
	}

	err := zerr.With(zerr.Wrap(domain.ErrDeadlock, "build stopped"), "pending", strings.Join(names, ", "))
	if failed := state.failures(); failed != nil {
		return errors.Join(err, failed)
	}
	return err
}

// verdict aggregates task failures into a single build error.
func (state *runState) verdict() error {
	failed := state.failures()
	if failed == nil {
		return nil
	}
	if err := state.ctx.Err(); err != nil {
		return errors.Join(failed, err)
	}
	return failed
}

func (state *runState) failures() error {
	var errs []error
	for _, r := range state.report.Results {
		if r.Status != domain.StatusFailed {
			continue
		}
		cause := zerr.With(zerr.With(zerr.Wrap(r.Err, r.Task), "task", r.Task), "exit_code", r.ExitCode)
		errs = append(errs, errors.Join(domain.ErrTaskExecutionFailed, cause))
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(append([]error{domain.ErrBuildFailed}, errs...)...)
}
