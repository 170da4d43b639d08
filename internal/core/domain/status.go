package domain

import "strings"

// TaskStatus represents the lifecycle state of a task in a build run.
type TaskStatus string

const (
	// StatusPending indicates the task is waiting for its dependencies or a free slot.
	StatusPending TaskStatus = "pending"
	// StatusRunning indicates the task has been dispatched and is executing.
	StatusRunning TaskStatus = "running"
	// StatusDone indicates the task's command exited successfully.
	StatusDone TaskStatus = "done"
	// StatusFailed indicates the task's command failed, could not start, or never ran.
	StatusFailed TaskStatus = "failed"
)

// IsTerminal checks if a status is a terminal state (Done or Failed).
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case StatusDone, StatusFailed:
		return true
	default:
		return false
	}
}

// NormalizeTaskStatus converts a string to a TaskStatus, defaulting to pending if unknown.
// This is useful when reading persisted build info.
func NormalizeTaskStatus(s string) TaskStatus {
	switch strings.ToLower(s) {
	case string(StatusRunning):
		return StatusRunning
	case string(StatusDone):
		return StatusDone
	case string(StatusFailed):
		return StatusFailed
	default:
		return StatusPending
	}
}
