// Package shell provides an executor that runs external commands.
package shell

import (
	"context"
	"errors"
	"io"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/creack/pty"
	"go.trai.ch/crossbuild/internal/core/domain"
	"go.trai.ch/crossbuild/internal/core/ports"
	"go.trai.ch/zerr"
)

// Executor implements ports.Executor using os/exec.
// Commands run inside a PTY when the platform supports it so tools keep their colored
// output; otherwise stdout and stderr are connected as plain pipes.
type Executor struct {
	logger ports.Logger
	usePTY atomic.Bool
}

// Option configures an Executor.
type Option func(*Executor)

// WithPTY enables or disables running commands inside a pseudo terminal.
func WithPTY(enabled bool) Option {
	return func(e *Executor) {
		e.usePTY.Store(enabled)
	}
}

// NewExecutor creates a new Executor.
func NewExecutor(logger ports.Logger, opts ...Option) *Executor {
	e := &Executor{logger: logger}
	e.usePTY.Store(true)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the command and waits for it to complete.
func (e *Executor) Execute(ctx context.Context, cmd domain.Command, stdout, stderr io.Writer) error {
	if cmd.Path == "" {
		return zerr.Wrap(domain.ErrCommandStartFailed, "empty command")
	}

	env := resolveEnvironment(os.Environ(), cmd.Env)

	executable := cmd.Path
	if !strings.ContainsRune(cmd.Path, filepath.Separator) {
		if lp, err := lookPath(cmd.Path, env); err == nil {
			executable = lp
		}
	}

	c := exec.CommandContext(ctx, executable, cmd.Args...) //nolint:gosec // commands come from the build plan
	c.Args[0] = cmd.Path
	c.Dir = cmd.Dir
	c.Env = env

	wait, err := e.start(c, stdout, stderr)
	if err != nil {
		err = zerr.Wrap(err, domain.ErrCommandStartFailed.Error())
		return zerr.With(err, "command", cmd.Path)
	}

	// Mark execution start after process has started successfully
	if span, ok := stdout.(interface{ MarkExecStart() }); ok {
		span.MarkExecStart()
	}

	if err := wait(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return zerr.With(zerr.Wrap(err, "command did not complete"), "command", cmd.Path)
		}
		code := exitErr.ExitCode()
		cmdErr := &domain.CommandError{ExitCode: code, Err: exitErr}
		return zerr.With(zerr.Wrap(cmdErr, domain.ErrCommandFailed.Error()), "exit_code", code)
	}
	return nil
}

// start launches c and returns a function that waits for the process and its output.
func (e *Executor) start(c *exec.Cmd, stdout, stderr io.Writer) (func() error, error) {
	if e.usePTY.Load() {
		wait, err := startPTY(c, stdout)
		if !errors.Is(err, pty.ErrUnsupported) {
			return wait, err
		}
		if e.usePTY.CompareAndSwap(true, false) {
			e.logger.Warn("pseudo terminals are not supported on this platform, using pipes")
		}
	}

	c.Stdout = stdout
	c.Stderr = stderr
	if err := c.Start(); err != nil {
		return nil, err
	}
	return c.Wait, nil
}

func startPTY(c *exec.Cmd, stdout io.Writer) (func() error, error) {
	ptmx, err := pty.Start(c)
	if err != nil {
		return nil, err
	}

	ioDone := make(chan struct{})
	go func() {
		defer close(ioDone)
		defer func() { _ = ptmx.Close() }()
		// The PTY merges stdout and stderr into one stream.
		_, _ = io.Copy(stdout, ptmx)
	}()

	return func() error {
		err := c.Wait()
		<-ioDone
		return err
	}, nil
}

// resolveEnvironment merges the process environment with the command overrides.
// Overrides win. The result is sorted for reproducible invocations.
func resolveEnvironment(sysEnv []string, overrides map[string]string) []string {
	envMap := make(map[string]string, len(sysEnv)+len(overrides))
	for _, entry := range sysEnv {
		if k, v, ok := strings.Cut(entry, "="); ok {
			envMap[k] = v
		}
	}
	maps.Copy(envMap, overrides)

	result := make([]string, 0, len(envMap))
	for _, k := range slices.Sorted(maps.Keys(envMap)) {
		result = append(result, k+"="+envMap[k])
	}
	return result
}

// lookPath searches for an executable in the directories named by the PATH entry of env.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			path = strings.TrimPrefix(e, "PATH=")
			break
		}
	}

	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		path := filepath.Join(dir, file)
		if err := findExecutable(path); err == nil {
			return path, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
