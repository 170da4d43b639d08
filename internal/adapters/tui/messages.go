package tui

import "time"

// MsgInitTasks initializes the task list with the planned tasks.
type MsgInitTasks struct {
	Tasks        []string
	Dependencies map[string][]string
}

// MsgTaskStart indicates a task span has started.
type MsgTaskStart struct {
	SpanID    string
	Name      string
	StartTime time.Time
}

// MsgTaskLog carries a chunk of output for a specific task span.
type MsgTaskLog struct {
	SpanID string
	Data   []byte
}

// MsgTaskComplete indicates a task span has finished.
type MsgTaskComplete struct {
	SpanID  string
	EndTime time.Time
	Err     error
}
