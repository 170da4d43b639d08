package shell_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/crossbuild/internal/adapters/shell"
	"go.trai.ch/crossbuild/internal/core/domain"
	"go.trai.ch/crossbuild/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func newExecutor(t *testing.T, opts ...shell.Option) *shell.Executor {
	t.Helper()
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()
	return shell.NewExecutor(logger, opts...)
}

func TestExecutor_Execute_MultiLineOutput(t *testing.T) {
	for _, usePTY := range []bool{true, false} {
		t.Run(map[bool]string{true: "pty", false: "pipes"}[usePTY], func(t *testing.T) {
			executor := newExecutor(t, shell.WithPTY(usePTY))

			cmd := domain.Command{Path: "sh", Args: []string{"-c", "echo line1; echo line2"}, Dir: t.TempDir()}

			var stdout bytes.Buffer
			err := executor.Execute(context.Background(), cmd, &stdout, io.Discard)
			require.NoError(t, err)

			output := stdout.String()
			require.Contains(t, output, "line1")
			require.Contains(t, output, "line2")
		})
	}
}

func TestExecutor_Execute_SeparateStderrWithPipes(t *testing.T) {
	executor := newExecutor(t, shell.WithPTY(false))

	cmd := domain.Command{Path: "sh", Args: []string{"-c", "echo out; echo err >&2"}}

	var stdout, stderr bytes.Buffer
	require.NoError(t, executor.Execute(context.Background(), cmd, &stdout, &stderr))

	assert.Equal(t, "out\n", stdout.String())
	assert.Equal(t, "err\n", stderr.String())
}

func TestExecutor_Execute_EnvironmentOverridesWin(t *testing.T) {
	t.Setenv("CROSSBUILD_TEST_VAR", "from-process")
	t.Setenv("CROSSBUILD_INHERITED", "inherited")
	executor := newExecutor(t, shell.WithPTY(false))

	cmd := domain.Command{
		Path: "sh",
		Args: []string{"-c", "echo $CROSSBUILD_TEST_VAR $CROSSBUILD_INHERITED $GOOS"},
		Env: map[string]string{
			"CROSSBUILD_TEST_VAR": "from-task",
			"GOOS":                "plan9",
		},
	}

	var stdout bytes.Buffer
	require.NoError(t, executor.Execute(context.Background(), cmd, &stdout, io.Discard))
	assert.Equal(t, "from-task inherited plan9\n", stdout.String())
}

func TestExecutor_Execute_WorkingDir(t *testing.T) {
	executor := newExecutor(t, shell.WithPTY(false))
	dir := t.TempDir()

	cmd := domain.Command{Path: "sh", Args: []string{"-c", "pwd"}, Dir: dir}

	var stdout bytes.Buffer
	require.NoError(t, executor.Execute(context.Background(), cmd, &stdout, io.Discard))

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(strings.TrimSpace(stdout.String()))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestExecutor_Execute_CommandFailure(t *testing.T) {
	executor := newExecutor(t)

	cmd := domain.Command{Path: "sh", Args: []string{"-c", "exit 42"}}

	err := executor.Execute(context.Background(), cmd, io.Discard, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command failed")
	assert.Equal(t, 42, domain.ExitCode(err))
}

func TestExecutor_Execute_InvalidCommand(t *testing.T) {
	executor := newExecutor(t)

	cmd := domain.Command{Path: "nonexistent-command-xyz123"}

	err := executor.Execute(context.Background(), cmd, io.Discard, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start command")
	assert.Equal(t, -1, domain.ExitCode(err))
}

func TestExecutor_Execute_EmptyCommand(t *testing.T) {
	executor := newExecutor(t)

	err := executor.Execute(context.Background(), domain.Command{}, io.Discard, io.Discard)
	require.ErrorIs(t, err, domain.ErrCommandStartFailed)
}

func TestExecutor_Execute_ResolvesFromOverriddenPath(t *testing.T) {
	executor := newExecutor(t, shell.WithPTY(false))

	binDir := t.TempDir()
	script := filepath.Join(binDir, "fake-toolchain")
	//nolint:gosec // Test requires executable file
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho fake \"$@\"\n"), 0o700))

	cmd := domain.Command{
		Path: "fake-toolchain",
		Args: []string{"build"},
		Env:  map[string]string{"PATH": binDir + string(os.PathListSeparator) + os.Getenv("PATH")},
	}

	var stdout bytes.Buffer
	require.NoError(t, executor.Execute(context.Background(), cmd, &stdout, io.Discard))
	assert.Equal(t, "fake build\n", stdout.String())
}

func TestExecutor_Execute_ContextCancel(t *testing.T) {
	executor := newExecutor(t, shell.WithPTY(false))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := executor.Execute(ctx, domain.Command{Path: "sleep", Args: []string{"10"}}, io.Discard, io.Discard)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExecutor_Execute_StreamsANSI(t *testing.T) {
	executor := newExecutor(t)

	ansiRed := "\033[31m"
	ansiReset := "\033[0m"
	msg := "Hello Red World"
	cmd := domain.Command{Path: "sh", Args: []string{"-c", "printf '" + ansiRed + msg + ansiReset + "'"}}

	var stdout bytes.Buffer
	require.NoError(t, executor.Execute(context.Background(), cmd, &stdout, io.Discard))

	output := stdout.String()
	assert.Contains(t, output, ansiRed)
	assert.Contains(t, output, msg)
}

type markingWriter struct {
	bytes.Buffer
	marked bool
}

func (m *markingWriter) MarkExecStart() {
	m.marked = true
}

func TestExecutor_Execute_MarksExecStart(t *testing.T) {
	executor := newExecutor(t, shell.WithPTY(false))

	w := &markingWriter{}
	require.NoError(t, executor.Execute(context.Background(), domain.Command{Path: "true"}, w, io.Discard))
	assert.True(t, w.marked)
}
