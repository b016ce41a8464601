package domain

import "time"

// RunLog is a historical record of one seed run.
type RunLog struct {
	ID         string    `json:"id"`
	PlanPath   string    `json:"planPath"`
	Driver     string    `json:"driver"`
	Trigger    string    `json:"trigger"` // "manual" | "schedule" | "file_watch" | "mcp"
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Status     string    `json:"status"` // "success" | "error"
	Batches    int       `json:"batches"`
	Inserted   int       `json:"inserted"`
	Records    int       `json:"records"`
	Error      string    `json:"error,omitempty"`
}

// RunLogStore persists seed run history.
type RunLogStore interface {
	CreateRunLog(l *RunLog) error
	ListRunLogs(planPath string, limit int) ([]RunLog, error)
}
