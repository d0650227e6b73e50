package domain

import "time"

// Record status constants
const (
	RecordStatusRunning   = "running"
	RecordStatusCompleted = "completed"
	RecordStatusCancelled = "cancelled"
	RecordStatusFailed    = "failed"
)

// DownloadRecord is the history entry for one command invocation
type DownloadRecord struct {
	ID         string
	ChatID     int64
	SourceKind string
	Source     string
	Path       string
	Status     string

	ElapsedSeconds int64
	LastError      string

	CreatedAt  time.Time
	FinishedAt *time.Time
}

// Finish records the outcome of the invocation
func (r *DownloadRecord) Finish(result DownloadResult, err error, now time.Time) {
	r.FinishedAt = &now
	switch {
	case err == nil:
		r.Status = RecordStatusCompleted
		r.Path = result.Path
		r.ElapsedSeconds = result.ElapsedSeconds
	case IsCancelled(err):
		r.Status = RecordStatusCancelled
	default:
		r.Status = RecordStatusFailed
		r.LastError = err.Error()
	}
}

// IsTerminal returns true once the invocation has ended
func (r *DownloadRecord) IsTerminal() bool {
	return r.Status != RecordStatusRunning
}

// HistoryStats summarizes the download history
type HistoryStats struct {
	Total     int `json:"total"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
	Failed    int `json:"failed"`
}
