package domain

import "time"

// JobRecord is the client-side record of a submitted job. It is created
// either optimistically right after a successful launch or reconstructed
// from a backend detail fetch during a registry refresh. Only DisplayID
// is ever backfilled after creation; everything else is immutable.
type JobRecord struct {
	JobID     string
	DisplayID int
	Tasks     SelectedTasks
	Config    map[string]interface{}
	CreatedAt string
}

// Progress describes how far a job has advanced through its tasks
type Progress struct {
	TotalTasks     int    `json:"total_tasks"`
	CompletedTasks int    `json:"completed_tasks"`
	CurrentStep    string `json:"current_step"`
}

// TaskState is the backend-reported state of a single task
type TaskState struct {
	Status      TaskStatus             `json:"status"`
	StartedAt   string                 `json:"started_at,omitempty"`
	CompletedAt string                 `json:"completed_at,omitempty"`
	Result      map[string]interface{} `json:"result,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

// JobStatusSnapshot is the most recently fetched full status record for a
// job. Each successful poll replaces the previous snapshot wholesale; it
// is never partially merged.
type JobStatusSnapshot struct {
	Status      JobStatus
	Progress    *Progress
	Tasks       map[string]TaskState
	Results     map[string]map[string]interface{}
	CurrentTask string
	Error       string
	CreatedAt   string
	StartedAt   string
	CompletedAt string
}

// LogEntryType classifies a log entry for display
type LogEntryType string

const (
	LogInfo    LogEntryType = "info"
	LogSuccess LogEntryType = "success"
	LogWarning LogEntryType = "warning"
	LogError   LogEntryType = "error"
)

// LogEntry is one append-only line in a poller's activity log
type LogEntry struct {
	Timestamp time.Time    `json:"timestamp"`
	Message   string       `json:"message"`
	Type      LogEntryType `json:"type"`
}
