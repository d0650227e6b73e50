package port

import (
	"context"
	"time"

	"github.com/vertextoedge/mirror-bot/internal/domain"
)

// HistoryFilter narrows a history listing
type HistoryFilter struct {
	Status string
	ChatID int64
	Limit  int
}

// HistoryRepository stores one record per command invocation
type HistoryRepository interface {
	// Create inserts a running record
	Create(ctx context.Context, record *domain.DownloadRecord) error

	// Finish stores the outcome of a record
	Finish(ctx context.Context, record *domain.DownloadRecord) error

	// Get returns a record by ID, domain.ErrNotFound if missing
	Get(ctx context.Context, id string) (*domain.DownloadRecord, error)

	// ListRecent returns records newest first
	ListRecent(ctx context.Context, filter HistoryFilter) ([]*domain.DownloadRecord, error)

	// Stats returns counts per status
	Stats(ctx context.Context) (*domain.HistoryStats, error)

	// PruneFinished removes terminal records finished before the cutoff
	PruneFinished(ctx context.Context, olderThan time.Duration) (int, error)

	// MarkInterrupted fails records left running by a previous process
	MarkInterrupted(ctx context.Context) (int, error)

	Ping() error
}

// DownloadRoot manages the local download directory
type DownloadRoot interface {
	// Dir returns the root directory
	Dir() string

	// Join returns root joined with name
	Join(name string) string

	// Normalize returns root joined with the basename of path
	Normalize(path string) string

	// CleanOldTempFiles removes partial files older than the duration
	CleanOldTempFiles(olderThan time.Duration) (int, error)
}
