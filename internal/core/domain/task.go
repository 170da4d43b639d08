package domain

import (
	"maps"
	"os"
	"slices"
)

// TaskKind identifies which variant a Task is.
type TaskKind string

const (
	// KindCompile cross-compiles one project for one platform and architecture.
	KindCompile TaskKind = "compile"
	// KindCompress post-compresses a compiled binary.
	KindCompress TaskKind = "compress"
	// KindUniversal merges per-architecture darwin binaries into one universal binary.
	KindUniversal TaskKind = "universal"
	// KindImage assembles and optionally pushes a multi-platform container image.
	KindImage TaskKind = "image"
)

// Task is a unit of work in the build graph.
//
// A task is runnable when every dependency path exists on disk. The check is made fresh on
// every call since other tasks produce the files concurrently.
type Task interface {
	// Name uniquely identifies the task within a graph.
	Name() string
	// Kind returns the variant of the task.
	Kind() TaskKind
	// Dependencies returns the artifact paths that must exist before the task can run.
	Dependencies() []string
	// Outputs returns the artifact paths the task produces on success.
	Outputs() []string
	// Command returns the external command that performs the task.
	Command() Command
	// CanRun reports whether every dependency currently exists.
	CanRun() bool
}

// artifacts holds the state shared by every task variant.
type artifacts struct {
	name    string
	kind    TaskKind
	deps    []string
	outputs []string
	command Command
}

func (a *artifacts) Name() string { return a.name }

func (a *artifacts) Kind() TaskKind { return a.kind }

func (a *artifacts) Dependencies() []string { return slices.Clone(a.deps) }

func (a *artifacts) Outputs() []string { return slices.Clone(a.outputs) }

func (a *artifacts) Command() Command {
	cmd := a.command
	cmd.Args = slices.Clone(cmd.Args)
	cmd.Env = maps.Clone(cmd.Env)
	return cmd
}

func (a *artifacts) CanRun() bool {
	return AllExist(a.deps)
}

// AllExist reports whether every path exists. An empty list is trivially satisfied.
func AllExist(paths []string) bool {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}
