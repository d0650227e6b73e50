package port

import (
	"context"
	"time"

	"github.com/vertextoedge/mirror-bot/internal/domain"
)

// TransferEngine drives a single URL transfer.
// The engine owns its transfer state; callers only read it through these methods.
type TransferEngine interface {
	// Start begins the transfer. With nonBlocking the call returns immediately
	// and the transfer continues in the background.
	Start(ctx context.Context, nonBlocking bool) error

	// Stop requests the transfer to end. It does not wait for it to finish.
	Stop()

	// IsFinished returns true once the transfer has ended, successfully or not
	IsFinished() bool

	// FileSize returns the total size, ok is false until it is known
	FileSize() (size uint64, ok bool)

	// DownloadedSize returns the bytes transferred so far
	DownloadedSize() uint64

	// ProgressFraction returns the completed fraction, normally in [0,1]
	ProgressFraction() float64

	// HumanSpeed returns the current speed, e.g. "1.2 MiB/s"
	HumanSpeed() string

	// HumanETA returns the estimated remaining time, e.g. "1m 5s"
	HumanETA() string

	// Err returns the failure that ended the transfer, nil on success
	Err() error
}

// EngineFactory creates an engine that will download rawURL into destPath
type EngineFactory interface {
	NewEngine(rawURL, destPath string) (TransferEngine, error)
}

// ProgressFunc receives byte counts from a transfer primitive
type ProgressFunc func(current, total int64)

// AttachmentTransferer downloads a chat message attachment.
// destHint is either a directory (the primitive picks the name) or a file path.
// It returns the location of the saved file.
type AttachmentTransferer interface {
	Transfer(ctx context.Context, src *domain.Attachment, destHint string, onProgress ProgressFunc) (string, error)
}

// EmitOptions tunes a rate-aware status update
type EmitOptions struct {
	DisableWebPreview bool
}

// StatusSurface is the status message of one command invocation
type StatusSurface interface {
	// Emit replaces the status text. Failures are logged, not returned.
	Emit(ctx context.Context, text string)

	// EmitThrottled replaces the status text if the surface's rate limit allows it
	EmitThrottled(ctx context.Context, text string, opts EmitOptions)
}

// CancellationSignal is polled by running downloads
type CancellationSignal interface {
	Cancelled() bool
}

// Clock abstracts time for the sampling loop
type Clock interface {
	Now() time.Time

	// Sleep blocks for d or until ctx is done
	Sleep(ctx context.Context, d time.Duration) error
}
