package domain

import "time"

// BuildInfo is the persisted record of a task's last outcome.
type BuildInfo struct {
	TaskName   string    `json:"task_name,omitzero"`
	Kind       TaskKind  `json:"kind,omitzero"`
	Status     string    `json:"status,omitzero"`
	ExitCode   int       `json:"exit_code,omitzero"`
	Error      string    `json:"error,omitzero"`
	Outputs    []string  `json:"outputs,omitzero"`
	OutputHash string    `json:"output_hash,omitzero"`
	Version    string    `json:"version,omitzero"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	Timestamp  time.Time `json:"timestamp,omitzero"`
}

// NewBuildInfo creates the record of a terminal result.
func NewBuildInfo(res Result, version, outputHash string) BuildInfo {
	info := BuildInfo{
		TaskName:   res.Task,
		Kind:       res.Kind,
		Status:     string(res.Status),
		ExitCode:   res.ExitCode,
		Outputs:    res.Outputs,
		OutputHash: outputHash,
		Version:    version,
		StartedAt:  res.StartedAt,
		Timestamp:  res.FinishedAt,
	}
	if res.Err != nil {
		info.Error = res.Err.Error()
	}
	return info
}

// TaskStatus returns the normalized status of the record.
func (b BuildInfo) TaskStatus() TaskStatus {
	return NormalizeTaskStatus(b.Status)
}
