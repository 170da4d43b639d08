package domain

import (
	"errors"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Command describes an external process invocation.
type Command struct {
	// Path is the executable, resolved through PATH when it has no separator.
	Path string
	// Args are the arguments passed after the executable.
	Args []string
	// Env holds overrides merged on top of the process environment. Overrides win.
	Env map[string]string
	// Dir is the working directory. Empty means the current directory.
	Dir string
}

// Argv returns the executable followed by its arguments.
func (c Command) Argv() []string {
	return append([]string{c.Path}, c.Args...)
}

// String renders the command line with arguments quoted when they contain spaces.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	for _, arg := range c.Argv() {
		if arg == "" || strings.ContainsAny(arg, " \t'\"") {
			arg = strconv.Quote(arg)
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

// EnvList returns the environment overrides as sorted KEY=VALUE pairs.
func (c Command) EnvList() []string {
	keys := slices.Sorted(maps.Keys(c.Env))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+c.Env[k])
	}
	return out
}

// CommandError reports a command that ran and exited with a non-zero status.
type CommandError struct {
	ExitCode int
	Err      error
}

func (e *CommandError) Error() string {
	msg := "exit status " + strconv.Itoa(e.ExitCode)
	if e.Err != nil && e.Err.Error() != msg {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExitCode extracts the process exit code from an execution error.
// It returns 0 for nil and -1 when the command never produced an exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode
	}
	return -1
}
