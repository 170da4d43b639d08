package scheduler_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/crossbuild/internal/core/domain"
	"go.trai.ch/crossbuild/internal/core/ports"
	"go.trai.ch/crossbuild/internal/core/ports/mocks"
	"go.trai.ch/crossbuild/internal/engine/scheduler"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

// taskDuration is how long every fake command runs on the synctest clock.
const taskDuration = time.Second

type schedulerTestMocks struct {
	executor *mocks.MockExecutor
	tracer   *mocks.MockTracer
	logger   *mocks.MockLogger
}

// setupSchedulerTest creates a scheduler whose executor is backed by fake.
func setupSchedulerTest(t *testing.T, fake *fakeExecutor) (*scheduler.Scheduler, schedulerTestMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := schedulerTestMocks{
		executor: mocks.NewMockExecutor(ctrl),
		tracer:   mocks.NewMockTracer(ctrl),
		logger:   mocks.NewMockLogger(ctrl),
	}

	mockSpan := mocks.NewMockSpan(ctrl)
	mockSpan.EXPECT().End().AnyTimes()
	mockSpan.EXPECT().RecordError(gomock.Any()).AnyTimes()
	mockSpan.EXPECT().SetAttribute(gomock.Any(), gomock.Any()).AnyTimes()
	mockSpan.EXPECT().Write(gomock.Any()).DoAndReturn(func(p []byte) (int, error) { return len(p), nil }).AnyTimes()

	m.tracer.EXPECT().Start(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string, _ ...ports.SpanOption) (context.Context, ports.Span) {
			return ctx, mockSpan
		},
	).AnyTimes()
	m.tracer.EXPECT().EmitPlan(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	m.logger.EXPECT().Info(gomock.Any()).AnyTimes()

	if fake != nil {
		m.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(fake.Execute).AnyTimes()
	}

	return scheduler.NewScheduler(m.executor, m.tracer, m.logger), m
}

// fakeExecutor simulates external commands: each command sleeps for taskDuration and then
// creates the outputs registered for it, or fails with the registered exit code.
type fakeExecutor struct {
	mu         sync.Mutex
	outputs    map[string][]string
	exitCodes  map[string]int
	running    int
	maxRunning int
	started    []string
	block      bool
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		outputs:   make(map[string][]string),
		exitCodes: make(map[string]int),
	}
}

// register makes the fake aware of the outputs of t.
func (f *fakeExecutor) register(t domain.Task) {
	f.outputs[t.Command().String()] = t.Outputs()
}

func (f *fakeExecutor) failWith(t domain.Task, code int) {
	f.exitCodes[t.Command().String()] = code
}

func (f *fakeExecutor) Execute(ctx context.Context, cmd domain.Command, _, _ io.Writer) error {
	key := cmd.String()

	f.mu.Lock()
	f.running++
	f.maxRunning = max(f.maxRunning, f.running)
	f.started = append(f.started, key)
	block := f.block
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.running--
		f.mu.Unlock()
	}()

	if block {
		<-ctx.Done()
		return zerr.Wrap(ctx.Err(), domain.ErrCommandFailed.Error())
	}

	time.Sleep(taskDuration)

	if code, ok := f.exitCodes[key]; ok {
		err := zerr.Wrap(&domain.CommandError{ExitCode: code}, domain.ErrCommandFailed.Error())
		return zerr.With(err, "exit_code", code)
	}
	for _, out := range f.outputs[key] {
		if err := os.MkdirAll(filepath.Dir(out), 0o750); err != nil {
			return err
		}
		if err := os.WriteFile(out, []byte(key), 0o600); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeExecutor) snapshot() (maxRunning int, started []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxRunning, slices.Clone(f.started)
}

// fakeTask is a minimal domain.Task used to build graphs the planner never produces.
type fakeTask struct {
	name    string
	kind    domain.TaskKind
	deps    []string
	outputs []string
}

func (t *fakeTask) Name() string            { return t.name }
func (t *fakeTask) Kind() domain.TaskKind   { return t.kind }
func (t *fakeTask) Dependencies() []string  { return slices.Clone(t.deps) }
func (t *fakeTask) Outputs() []string       { return slices.Clone(t.outputs) }
func (t *fakeTask) CanRun() bool            { return domain.AllExist(t.deps) }
func (t *fakeTask) Command() domain.Command { return domain.Command{Path: "fake", Args: []string{t.name}} }

// workspace creates a project source directory and returns the compile options rooted there.
func workspace(t *testing.T, projects ...string) domain.CompileOptions {
	t.Helper()
	root := t.TempDir()
	for _, p := range projects {
		require.NoError(t, os.MkdirAll(filepath.Join(root, p), 0o750))
	}
	return domain.CompileOptions{Toolchain: "go", Root: root, DistDir: "dist"}
}

func compileTask(t *testing.T, opts domain.CompileOptions, project, platform, arch string) *domain.CompileTask {
	t.Helper()
	a, err := domain.DefaultCatalog().Resolve(arch)
	require.NoError(t, err)
	task, err := domain.NewCompileTask(project, platform, a, opts)
	require.NoError(t, err)
	return task
}

func buildGraph(t *testing.T, fake *fakeExecutor, tasks ...domain.Task) *domain.Graph {
	t.Helper()
	g := domain.NewGraph()
	for _, task := range tasks {
		require.NoError(t, g.AddTask(task))
		if fake != nil {
			fake.register(task)
		}
	}
	return g
}

func TestScheduler_ScenarioA_CompileThenCompress(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		opts := workspace(t, "client")
		compile := compileTask(t, opts, "client", domain.PlatformLinux, "amd64")
		compress, err := domain.NewCompressTask(compile, domain.CompressOptions{})
		require.NoError(t, err)

		fake := newFakeExecutor()
		// The compress task is inserted first; it still has to wait for the compile output.
		g := buildGraph(t, fake, compress, compile)
		s, _ := setupSchedulerTest(t, fake)

		report, err := s.Run(t.Context(), g, 4)
		require.NoError(t, err)

		_, started := fake.snapshot()
		assert.Equal(t, []string{compile.Command().String(), compress.Command().String()}, started)

		assert.True(t, report.OK())
		assert.Equal(t, domain.Counts{Total: 2, Done: 2}, report.Counts())
		assert.Equal(t, []string{compress.Outputs()[0], compile.Output()}, report.Outputs())

		compileRes, ok := report.Result(compile.Name())
		require.True(t, ok)
		compressRes, ok := report.Result(compress.Name())
		require.True(t, ok)
		assert.False(t, compressRes.StartedAt.Before(compileRes.FinishedAt))
	})
}

func TestScheduler_ScenarioB_BootstrapThenParallel(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		opts := workspace(t, "client")
		amd64 := compileTask(t, opts, "client", domain.PlatformLinux, "amd64")
		arm64 := compileTask(t, opts, "client", domain.PlatformLinux, "arm64")
		i386 := compileTask(t, opts, "client", domain.PlatformLinux, "386")

		fake := newFakeExecutor()
		g := buildGraph(t, fake, amd64, arm64, i386)
		s, _ := setupSchedulerTest(t, fake)

		start := time.Now()
		report, err := s.Run(t.Context(), g, 2)
		require.NoError(t, err)

		maxRunning, _ := fake.snapshot()
		assert.Equal(t, 2, maxRunning)

		results := report.Results
		require.Len(t, results, 3)
		assert.Zero(t, results[0].StartedAt.Sub(start), "bootstrap compile runs first")
		assert.Equal(t, taskDuration, results[1].StartedAt.Sub(start), "siblings wait for the bootstrap compile")
		assert.Equal(t, taskDuration, results[2].StartedAt.Sub(start), "siblings run concurrently after bootstrap")
		assert.Equal(t, 2*taskDuration, time.Since(start))
		assert.Equal(t, domain.Counts{Total: 3, Done: 3}, report.Counts())
	})
}

func TestScheduler_ScenarioC_FailureDoesNotStarveSiblings(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		opts := workspace(t, "client")
		failing := compileTask(t, opts, "client", domain.PlatformLinux, "amd64")
		sibling := compileTask(t, opts, "client", domain.PlatformLinux, "arm64")

		fake := newFakeExecutor()
		g := buildGraph(t, fake, failing, sibling)
		fake.failWith(failing, 1)
		s, _ := setupSchedulerTest(t, fake)

		report, err := s.Run(t.Context(), g, 2)
		require.Error(t, err)
		require.ErrorIs(t, err, domain.ErrBuildFailed)
		assert.NotErrorIs(t, err, domain.ErrDeadlock)
		require.ErrorIs(t, err, domain.ErrTaskExecutionFailed)
		assert.Contains(t, err.Error(), failing.Name())

		var cmdErr *domain.CommandError
		require.ErrorAs(t, err, &cmdErr)
		assert.Equal(t, 1, cmdErr.ExitCode)

		failed, ok := report.Result(failing.Name())
		require.True(t, ok)
		assert.Equal(t, domain.StatusFailed, failed.Status)
		assert.Equal(t, 1, failed.ExitCode)

		done, ok := report.Result(sibling.Name())
		require.True(t, ok)
		assert.Equal(t, domain.StatusDone, done.Status)
		assert.Equal(t, 0, done.ExitCode)

		assert.False(t, report.OK())
		assert.Equal(t, []string{sibling.Output()}, report.Outputs())
	})
}

func TestScheduler_NeverExceedsLimit(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		opts := workspace(t, "client", "server")
		fake := newFakeExecutor()

		var tasks []domain.Task
		for _, project := range []string{"client", "server"} {
			for _, arch := range []string{"amd64", "386", "arm64", "arm32v7"} {
				tasks = append(tasks, compileTask(t, opts, project, domain.PlatformLinux, arch))
			}
		}
		g := buildGraph(t, fake, tasks...)
		s, _ := setupSchedulerTest(t, fake)

		report, err := s.Run(t.Context(), g, 3)
		require.NoError(t, err)

		maxRunning, started := fake.snapshot()
		assert.Equal(t, 3, maxRunning)
		assert.Len(t, started, len(tasks), "each task is dispatched exactly once")
		assert.Equal(t, domain.Counts{Total: 8, Done: 8}, report.Counts())
	})
}

func TestScheduler_NonCompileBootstrapDoesNotWiden(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		opts := workspace(t, "client")
		setup := &fakeTask{name: "setup", kind: domain.KindImage}
		amd64 := compileTask(t, opts, "client", domain.PlatformLinux, "amd64")
		arm64 := compileTask(t, opts, "client", domain.PlatformLinux, "arm64")
		i386 := compileTask(t, opts, "client", domain.PlatformLinux, "386")

		fake := newFakeExecutor()
		g := buildGraph(t, fake, setup, amd64, arm64, i386)
		s, _ := setupSchedulerTest(t, fake)

		start := time.Now()
		report, err := s.Run(t.Context(), g, 4)
		require.NoError(t, err)

		results := report.Results
		assert.Zero(t, results[0].StartedAt.Sub(start))
		assert.Equal(t, taskDuration, results[1].StartedAt.Sub(start), "the window stays at one after a non-compile task")
		assert.Equal(t, 2*taskDuration, results[2].StartedAt.Sub(start))
		assert.Equal(t, 2*taskDuration, results[3].StartedAt.Sub(start))
	})
}

func TestScheduler_CycleDeadlocks(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		dir := t.TempDir()
		a := &fakeTask{
			name: "a", kind: domain.KindCompile,
			deps: []string{filepath.Join(dir, "b.out")}, outputs: []string{filepath.Join(dir, "a.out")},
		}
		b := &fakeTask{
			name: "b", kind: domain.KindCompile,
			deps: []string{filepath.Join(dir, "a.out")}, outputs: []string{filepath.Join(dir, "b.out")},
		}

		g := buildGraph(t, nil, a, b)
		s, _ := setupSchedulerTest(t, nil)

		report, err := s.Run(t.Context(), g, 2)
		require.ErrorIs(t, err, domain.ErrDeadlock)
		assert.NotErrorIs(t, err, domain.ErrBuildFailed)

		var zErr *zerr.Error
		require.ErrorAs(t, err, &zErr)
		assert.Equal(t, "a, b", zErr.Metadata()["pending"])

		require.NotNil(t, report)
		assert.Equal(t, domain.Counts{Total: 2, Pending: 2}, report.Counts())
		assert.Len(t, report.Pending(), 2)
	})
}

func TestScheduler_FailedDependencyPropagates(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		opts := workspace(t, "client")
		compile := compileTask(t, opts, "client", domain.PlatformLinux, "amd64")
		compress, err := domain.NewCompressTask(compile, domain.CompressOptions{})
		require.NoError(t, err)
		image, err := domain.NewImageBuildTask([]*domain.CompileTask{compile}, domain.ImageOptions{
			Enabled: true, Repository: "ghcr.io/example", Version: "1.0.0",
		})
		require.NoError(t, err)
		sibling := compileTask(t, opts, "client", domain.PlatformLinux, "arm64")

		fake := newFakeExecutor()
		g := buildGraph(t, fake, compile, compress, sibling, image)
		fake.failWith(compile, 2)
		s, _ := setupSchedulerTest(t, fake)

		report, err := s.Run(t.Context(), g, 4)
		require.ErrorIs(t, err, domain.ErrBuildFailed)
		require.ErrorIs(t, err, domain.ErrDependencyFailed)
		assert.NotErrorIs(t, err, domain.ErrDeadlock)

		_, started := fake.snapshot()
		assert.Len(t, started, 2, "dependents of the failed compile are never dispatched")

		for _, name := range []string{compress.Name(), image.Name()} {
			res, ok := report.Result(name)
			require.True(t, ok)
			assert.Equal(t, domain.StatusFailed, res.Status, name)
			require.ErrorIs(t, res.Err, domain.ErrDependencyFailed)
			assert.Equal(t, -1, res.ExitCode)
		}

		res, ok := report.Result(sibling.Name())
		require.True(t, ok)
		assert.Equal(t, domain.StatusDone, res.Status)
		assert.Equal(t, domain.Counts{Total: 4, Done: 1, Failed: 3}, report.Counts())
	})
}

func TestScheduler_CountsAreConserved(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		opts := workspace(t, "client", "server")
		var tasks []domain.Task
		fake := newFakeExecutor()
		for _, project := range []string{"client", "server"} {
			for _, arch := range []string{"amd64", "arm64", "mips64"} {
				c := compileTask(t, opts, project, domain.PlatformLinux, arch)
				tasks = append(tasks, c)
				if cp, err := domain.NewCompressTask(c, domain.CompressOptions{}); err == nil {
					tasks = append(tasks, cp)
				}
			}
		}
		g := buildGraph(t, fake, tasks...)
		fake.failWith(tasks[0], 3)
		s, _ := setupSchedulerTest(t, fake)

		report, err := s.Run(t.Context(), g, 2)
		require.ErrorIs(t, err, domain.ErrBuildFailed)

		c := report.Counts()
		assert.Equal(t, g.Len(), c.Total)
		assert.Equal(t, c.Total, c.Done+c.Failed+c.Pending)
		assert.Zero(t, c.Pending)
		assert.Equal(t, 2, c.Failed, "the failing compile and its compress")

		for _, task := range tasks {
			status, ok := s.Status(task.Name())
			require.True(t, ok)
			assert.True(t, status.IsTerminal(), task.Name())
		}
	})
}

func TestScheduler_Cancellation(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		opts := workspace(t, "client")
		first := compileTask(t, opts, "client", domain.PlatformLinux, "amd64")
		second := compileTask(t, opts, "client", domain.PlatformLinux, "arm64")

		fake := newFakeExecutor()
		fake.block = true
		g := buildGraph(t, fake, first, second)
		s, _ := setupSchedulerTest(t, fake)

		ctx, cancel := context.WithCancel(t.Context())
		var (
			report *domain.Report
			err    error
		)
		done := make(chan struct{})
		go func() {
			defer close(done)
			report, err = s.Run(ctx, g, 2)
		}()

		synctest.Wait()
		status, ok := s.Status(first.Name())
		require.True(t, ok)
		assert.Equal(t, domain.StatusRunning, status)

		cancel()
		<-done

		require.ErrorIs(t, err, context.Canceled)
		require.ErrorIs(t, err, domain.ErrBuildFailed)
		assert.Equal(t, domain.Counts{Total: 2, Failed: 2}, report.Counts())

		_, started := fake.snapshot()
		assert.Len(t, started, 1, "no task is dispatched after cancellation")

		res, ok := report.Result(second.Name())
		require.True(t, ok)
		require.ErrorIs(t, res.Err, context.Canceled)
	})
}

func TestScheduler_InvalidParallelism(t *testing.T) {
	opts := workspace(t, "client")
	g := buildGraph(t, nil, compileTask(t, opts, "client", domain.PlatformLinux, "amd64"))
	s, _ := setupSchedulerTest(t, nil)

	report, err := s.Run(t.Context(), g, 0)
	require.ErrorIs(t, err, domain.ErrInvalidParallelism)
	require.NotNil(t, report)
	assert.Equal(t, domain.Counts{Total: 1, Pending: 1}, report.Counts())
}

func TestScheduler_EmptyGraph(t *testing.T) {
	s, _ := setupSchedulerTest(t, nil)

	report, err := s.Run(t.Context(), domain.NewGraph(), 1)
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Empty(t, report.Results)
}

func TestScheduler_EmitsPlan(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		opts := workspace(t, "client")
		compile := compileTask(t, opts, "client", domain.PlatformLinux, "amd64")
		compress, err := domain.NewCompressTask(compile, domain.CompressOptions{})
		require.NoError(t, err)

		ctrl := gomock.NewController(t)
		executor := mocks.NewMockExecutor(ctrl)
		tracer := mocks.NewMockTracer(ctrl)
		span := mocks.NewMockSpan(ctrl)

		fake := newFakeExecutor()
		g := buildGraph(t, fake, compile, compress)

		tracer.EXPECT().EmitPlan(gomock.Any(),
			[]string{compile.Name(), compress.Name()},
			map[string][]string{compile.Name(): nil, compress.Name(): {compile.Name()}},
		).Times(1)
		tracer.EXPECT().Start(gomock.Any(), compile.Name(), gomock.Any()).Return(t.Context(), span)
		tracer.EXPECT().Start(gomock.Any(), compress.Name(), gomock.Any()).Return(t.Context(), span)
		span.EXPECT().SetAttribute(ports.AttrTaskExitCode, 0).Times(2)
		span.EXPECT().End().Times(2)
		executor.EXPECT().Execute(gomock.Any(), gomock.Any(), span, span).DoAndReturn(fake.Execute).Times(2)

		report, err := scheduler.NewScheduler(executor, tracer, nil).Run(t.Context(), g, 1)
		require.NoError(t, err)
		assert.True(t, report.OK())
	})
}

func TestScheduler_ExecutorPanicBecomesFailure(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		opts := workspace(t, "client")
		compile := compileTask(t, opts, "client", domain.PlatformLinux, "amd64")
		g := buildGraph(t, nil, compile)

		s, m := setupSchedulerTest(t, nil)
		m.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(context.Context, domain.Command, io.Writer, io.Writer) error {
				panic("boom")
			})

		report, err := s.Run(t.Context(), g, 1)
		require.ErrorIs(t, err, domain.ErrBuildFailed)
		res, ok := report.Result(compile.Name())
		require.True(t, ok)
		assert.Equal(t, domain.StatusFailed, res.Status)
		assert.Contains(t, res.Err.Error(), "panic: boom")
		assert.False(t, errors.Is(err, domain.ErrDeadlock))
	})
}
