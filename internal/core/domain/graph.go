// Package domain contains the core domain models of the build orchestrator.
package domain

import (
	"iter"
	"os"
	"path/filepath"

	"go.trai.ch/zerr"
)

// Graph is the insertion-ordered worklist of tasks in a build.
// Dependencies between tasks are expressed through artifact paths: a task depends on
// another when one of its dependencies is among the other's outputs.
type Graph struct {
	tasks     []Task
	index     map[string]int
	producers map[string]string
}

// NewGraph creates a new empty Graph.
func NewGraph() *Graph {
	return &Graph{
		index:     make(map[string]int),
		producers: make(map[string]string),
	}
}

// AddTask appends a task to the graph.
// It returns an error if a task with the same name already exists.
func (g *Graph) AddTask(t Task) error {
	if _, exists := g.index[t.Name()]; exists {
		return zerr.With(zerr.Wrap(ErrTaskAlreadyExists, "failed to add task"), "task_name", t.Name())
	}
	g.index[t.Name()] = len(g.tasks)
	g.tasks = append(g.tasks, t)
	for _, out := range t.Outputs() {
		key := filepath.Clean(out)
		if _, taken := g.producers[key]; !taken {
			g.producers[key] = t.Name()
		}
	}
	return nil
}

// Len returns the number of tasks in the graph.
func (g *Graph) Len() int {
	return len(g.tasks)
}

// Task returns the named task.
func (g *Graph) Task(name string) (Task, bool) {
	i, ok := g.index[name]
	if !ok {
		return nil, false
	}
	return g.tasks[i], true
}

// Producer returns the task that declares path among its outputs.
func (g *Graph) Producer(path string) (Task, bool) {
	name, ok := g.producers[filepath.Clean(path)]
	if !ok {
		return nil, false
	}
	return g.Task(name)
}

// Tasks returns the tasks in insertion order.
func (g *Graph) Tasks() []Task {
	return append([]Task(nil), g.tasks...)
}

// Walk returns an iterator that yields tasks in insertion order.
func (g *Graph) Walk() iter.Seq[Task] {
	return func(yield func(Task) bool) {
		for _, t := range g.tasks {
			if !yield(t) {
				return
			}
		}
	}
}

// Validate checks that the graph can be scheduled.
// Every output must be declared by a single task, and every dependency must either be
// produced by a task or already exist on disk. Cycles are not detected here: a cyclic
// graph is reported as a deadlock when it is run.
func (g *Graph) Validate() error {
	owners := make(map[string]string, len(g.producers))
	for _, t := range g.tasks {
		for _, out := range t.Outputs() {
			key := filepath.Clean(out)
			if owner, taken := owners[key]; taken {
				err := zerr.With(zerr.Wrap(ErrDuplicateOutput, "invalid task graph"), "output", out)
				return zerr.With(zerr.With(err, "task_name", t.Name()), "producer", owner)
			}
			owners[key] = t.Name()
		}
	}

	for _, t := range g.tasks {
		for _, dep := range t.Dependencies() {
			if _, produced := owners[filepath.Clean(dep)]; produced {
				continue
			}
			if _, err := os.Stat(dep); err == nil {
				continue
			}
			err := zerr.With(zerr.Wrap(ErrUnschedulableDependency, "invalid task graph"), "dependency", dep)
			return zerr.With(err, "task_name", t.Name())
		}
	}
	return nil
}
