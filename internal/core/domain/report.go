package domain

import (
	"slices"
	"time"
)

// Result is the terminal outcome of one task in a build run.
type Result struct {
	Task       string
	Kind       TaskKind
	Status     TaskStatus
	ExitCode   int
	Err        error
	Outputs    []string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns how long the task ran. It is zero for tasks that never started.
func (r Result) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Counts summarizes a report.
type Counts struct {
	Total   int
	Done    int
	Failed  int
	Pending int
}

// Report holds per-task results in graph order.
type Report struct {
	Results []Result
}

// Result returns the result recorded for the named task.
func (r *Report) Result(name string) (Result, bool) {
	i := slices.IndexFunc(r.Results, func(res Result) bool { return res.Task == name })
	if i < 0 {
		return Result{}, false
	}
	return r.Results[i], true
}

// Succeeded returns the results of tasks that completed successfully.
func (r *Report) Succeeded() []Result {
	return r.filter(StatusDone)
}

// Failed returns the results of tasks that failed or were never run due to cancellation.
func (r *Report) Failed() []Result {
	return r.filter(StatusFailed)
}

// Pending returns the results of tasks that were never dispatched.
func (r *Report) Pending() []Result {
	return r.filter(StatusPending)
}

// Outputs returns the output paths of every successful task in graph order.
func (r *Report) Outputs() []string {
	var out []string
	for _, res := range r.Succeeded() {
		out = append(out, res.Outputs...)
	}
	return out
}

// Counts tallies results by status. Running results are counted as pending.
func (r *Report) Counts() Counts {
	c := Counts{Total: len(r.Results)}
	for _, res := range r.Results {
		switch res.Status {
		case StatusDone:
			c.Done++
		case StatusFailed:
			c.Failed++
		default:
			c.Pending++
		}
	}
	return c
}

// OK reports whether every task completed successfully.
func (r *Report) OK() bool {
	c := r.Counts()
	return c.Done == c.Total
}

func (r *Report) filter(status TaskStatus) []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Status == status {
			out = append(out, res)
		}
	}
	return out
}
