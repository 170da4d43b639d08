// Package app implements the application layer for crossbuild.
package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.trai.ch/crossbuild/internal/adapters/detector"
	"go.trai.ch/crossbuild/internal/adapters/linear"
	"go.trai.ch/crossbuild/internal/adapters/telemetry"
	"go.trai.ch/crossbuild/internal/adapters/tui"
	"go.trai.ch/crossbuild/internal/core/domain"
	"go.trai.ch/crossbuild/internal/core/ports"
	"go.trai.ch/crossbuild/internal/engine/planner"
	"go.trai.ch/crossbuild/internal/engine/scheduler"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// tracerName is the instrumentation scope of build spans.
const tracerName = "crossbuild"

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	executor     ports.Executor
	logger       ports.Logger
	store        ports.BuildInfoStore
	hasher       ports.Hasher
	planner      *planner.Planner
	stdout       io.Writer
	stderr       io.Writer
	workDir      string
	teaOptions   []tea.ProgramOption
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	executor ports.Executor,
	log ports.Logger,
	store ports.BuildInfoStore,
	hasher ports.Hasher,
	plan *planner.Planner,
) *App {
	return &App{
		configLoader: loader,
		executor:     executor,
		logger:       log,
		store:        store,
		hasher:       hasher,
		planner:      plan,
		stdout:       os.Stdout,
		stderr:       os.Stderr,
	}
}

// WithTeaOptions adds bubbletea program options to the App.
// This is primarily used for testing to disable input/output.
func (a *App) WithTeaOptions(opts ...tea.ProgramOption) *App {
	a.teaOptions = append(a.teaOptions, opts...)
	return a
}

// WithOutput redirects reports and renderer output.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	return a
}

// WithWorkDir sets the directory the configuration is searched from.
// It defaults to the process working directory.
func (a *App) WithWorkDir(dir string) *App {
	a.workDir = dir
	return a
}

// SetWorkDir sets the directory the configuration is searched from.
// A path to the configuration file itself is accepted as well.
func (a *App) SetWorkDir(dir string) {
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	a.workDir = dir
}

// SetJSONLogs switches the logger to JSON output when it supports it.
func (a *App) SetJSONLogs(enable bool) {
	if l, ok := a.logger.(interface{ SetJSON(bool) }); ok {
		l.SetJSON(enable)
	}
}

// BuildOptions configuration for the Build method.
type BuildOptions struct {
	Matrix domain.Matrix
	// Jobs is the parallelism after bootstrap. Values below one use the number of CPUs.
	Jobs       int
	OutputMode string
	// Version overrides the configured and source control versions.
	Version string
}

// Build plans the matrix, prepares the workspace and runs every task.
//
// The final report is printed before returning. A build with failed tasks returns an error
// wrapping domain.ErrBuildFailed.
//
//nolint:cyclop // orchestration function
func (a *App) Build(ctx context.Context, opts BuildOptions) error {
	// 1. Resolve the output mode first so a bad flag fails before any work happens.
	override, err := detector.ParseMode(opts.OutputMode)
	if err != nil {
		return err
	}
	mode := detector.ResolveMode(detector.DetectEnvironment(), override)

	// 2. Load the configuration
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	cfg.Version = a.resolveVersion(ctx, cfg, opts.Version)

	// 3. Plan the graph
	plan, err := a.planner.Plan(cfg, opts.Matrix)
	if err != nil {
		return err
	}
	for _, skip := range plan.Skipped {
		a.logger.Warn(fmt.Sprintf("skipping %s: architecture does not support the platform", skip))
	}

	jobs := opts.Jobs
	if jobs < 1 {
		jobs = runtime.NumCPU()
	}

	// 4. Prepare the workspace
	if err := a.prepareWorkspace(ctx, cfg, plan.Graph); err != nil {
		return err
	}

	// 5. Initialize Renderer
	var (
		renderer    ports.Renderer
		schedLogger = a.logger
	)
	if mode == detector.ModeTUI {
		model := tui.NewModel()
		optsTea := append([]tea.ProgramOption{tea.WithContext(ctx)}, a.teaOptions...)
		renderer = tui.NewRenderer(&model, a.stderr, optsTea...)
		// Log lines would corrupt the interactive display.
		schedLogger = nil
	} else {
		renderer = linear.NewRenderer(a.stdout, a.stderr)
	}

	// 6. Initialize Telemetry
	// Spans are forwarded to the renderer by the bridge; task output streams through the tracer.
	provider := telemetry.NewTracerProvider(renderer)
	tracer := telemetry.NewOTelTracer(tracerName,
		telemetry.WithTracerProvider(provider),
		telemetry.WithRenderer(renderer),
	)
	defer func() {
		shutdownCtx := context.WithoutCancel(ctx)
		_ = tracer.Shutdown(shutdownCtx)
		_ = provider.Shutdown(shutdownCtx)
	}()

	// 7. Run Renderer and Scheduler concurrently
	sched := scheduler.NewScheduler(a.executor, tracer, schedLogger)
	report := &domain.Report{}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := renderer.Start(gctx); err != nil {
			return err
		}
		return renderer.Wait()
	})

	g.Go(func() error {
		defer func() {
			if r := recover(); r != nil {
				_, _ = fmt.Fprintf(a.stderr, "Scheduler panic: %v\n", r)
			}
			_ = renderer.Stop()
		}()

		var err error
		report, err = sched.Run(gctx, plan.Graph, jobs)
		return err
	})

	runErr := g.Wait()

	// 8. Record and report the outcome
	a.recordBuildInfo(report, cfg.Version)
	a.printReport(report, cfg.Version)

	return runErr
}

// loadConfig loads the configuration found from the working directory.
func (a *App) loadConfig() (domain.BuildConfig, error) {
	cwd, err := a.resolveWorkDir()
	if err != nil {
		return domain.BuildConfig{}, err
	}
	cfg, err := a.configLoader.Load(cwd)
	if err != nil {
		return domain.BuildConfig{}, zerr.Wrap(err, "failed to load configuration")
	}
	// The store is created before flags are parsed; follow the root the configuration was found in.
	if s, ok := a.store.(interface{ SetDir(dir string) }); ok {
		s.SetDir(filepath.Join(cfg.Root, domain.DefaultStorePath()))
	}
	return cfg, nil
}

func (a *App) resolveWorkDir() (string, error) {
	dir := a.workDir
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", zerr.Wrap(err, "failed to resolve working directory")
	}
	return abs, nil
}

// resolveVersion picks the version stamped into binaries and image tags.
// The flag wins over the configuration, which wins over `git describe --tags`.
func (a *App) resolveVersion(ctx context.Context, cfg domain.BuildConfig, override string) string {
	if override != "" {
		return override
	}
	if cfg.Version != "" {
		return cfg.Version
	}

	var out bytes.Buffer
	cmd := domain.Command{Path: "git", Args: []string{"describe", "--tags"}, Dir: cfg.Root}
	if err := a.executor.Execute(ctx, cmd, &out, io.Discard); err != nil {
		a.logger.Warn("could not describe the source version, using dev")
		return "dev"
	}
	version := strings.TrimSpace(out.String())
	if version == "" || strings.ContainsAny(version, " \t\r\n") {
		return "dev"
	}
	return version
}

// prepareWorkspace empties the dist directory and runs the configured preparation commands.
// Existing artifacts are removed since a stale binary would make its dependents runnable early.
func (a *App) prepareWorkspace(ctx context.Context, cfg domain.BuildConfig, graph *domain.Graph) error {
	dist, err := cfg.DistPath()
	if err != nil {
		return errors.Join(domain.ErrWorkspacePrepareFailed, err)
	}
	if err := os.RemoveAll(dist); err != nil {
		return errors.Join(domain.ErrWorkspacePrepareFailed, zerr.With(err, "path", dist))
	}
	if err := os.MkdirAll(dist, domain.DirPerm); err != nil {
		return errors.Join(domain.ErrWorkspacePrepareFailed, zerr.With(err, "path", dist))
	}

	for _, argv := range cfg.Prepare {
		a.logger.Info("running " + strings.Join(argv, " "))
		cmd := domain.Command{Path: argv[0], Args: argv[1:], Dir: cfg.Root}
		if err := a.executor.Execute(ctx, cmd, a.stdout, a.stderr); err != nil {
			return errors.Join(domain.ErrWorkspacePrepareFailed, zerr.With(err, "command", cmd.String()))
		}
	}

	if cfg.Image.Builder == "" || !hasKind(graph, domain.KindImage) {
		return nil
	}

	tool := cfg.Image.Tool
	if tool == "" {
		tool = "docker"
	}
	create := domain.Command{Path: tool, Args: []string{"buildx", "create", "--name", cfg.Image.Builder}, Dir: cfg.Root}
	if err := a.executor.Execute(ctx, create, a.stdout, a.stderr); err != nil {
		// The builder usually exists from an earlier run.
		a.logger.Info(fmt.Sprintf("buildx builder %s not created, reusing it", cfg.Image.Builder))
	}
	use := domain.Command{Path: tool, Args: []string{"buildx", "use", cfg.Image.Builder}, Dir: cfg.Root}
	if err := a.executor.Execute(ctx, use, a.stdout, a.stderr); err != nil {
		return errors.Join(domain.ErrWorkspacePrepareFailed, zerr.With(err, "command", use.String()))
	}
	return nil
}

func hasKind(graph *domain.Graph, kind domain.TaskKind) bool {
	for t := range graph.Walk() {
		if t.Kind() == kind {
			return true
		}
	}
	return false
}

// recordBuildInfo persists the outcome of every task that reached a terminal state.
func (a *App) recordBuildInfo(report *domain.Report, version string) {
	for _, res := range report.Results {
		if !res.Status.IsTerminal() {
			continue
		}

		var digest string
		if res.Status == domain.StatusDone && len(res.Outputs) > 0 {
			h, err := a.hasher.HashFiles(res.Outputs)
			if err != nil {
				a.logger.Warn(fmt.Sprintf("failed to hash outputs of %s: %v", res.Task, err))
			}
			digest = h
		}

		if err := a.store.Put(domain.NewBuildInfo(res, version, digest)); err != nil {
			a.logger.Warn(fmt.Sprintf("failed to record build info for %s: %v", res.Task, err))
		}
	}
}

// CleanOptions configuration for the Clean method.
type CleanOptions struct {
	Dist  bool
	State bool
}

// Clean removes build artifacts and recorded state based on the provided options.
func (a *App) Clean(_ context.Context, options CleanOptions) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	var errs error

	remove := func(path string, name string) {
		a.logger.Info(fmt.Sprintf("removing %s...", name))
		if err := os.RemoveAll(path); err != nil {
			errs = errors.Join(errs, zerr.Wrap(err, fmt.Sprintf("failed to remove %s", name)))
			return
		}
		a.logger.Info(fmt.Sprintf("removed %s", name))
	}

	if options.Dist {
		dist, err := cfg.DistPath()
		if err != nil {
			return err
		}
		remove(dist, "build artifacts")
	}

	if options.State {
		remove(filepath.Join(cfg.Root, domain.DefaultStatePath()), "build state")
	}

	return errs
}
