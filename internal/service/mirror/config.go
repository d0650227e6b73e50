package mirror

import (
	"time"

	"github.com/vertextoedge/mirror-bot/internal/progress"
)

// Config contains download coordinator configuration
type Config struct {
	// DefaultFileName is used when a URL has no usable path segment
	DefaultFileName string

	// FinishedStr and UnfinishedStr are the progress bar glyphs
	FinishedStr   string
	UnfinishedStr string

	// EditSleepTimeout is the number of sampling ticks between status edits
	EditSleepTimeout int

	// SampleInterval is the pause between two URL progress samples
	SampleInterval time.Duration

	// AttachmentEditInterval is the minimum time between attachment status edits
	AttachmentEditInterval time.Duration
}

// DefaultConfig returns default coordinator configuration
func DefaultConfig() *Config {
	return &Config{
		DefaultFileName:        "download.bin",
		FinishedStr:            progress.DefaultFinished,
		UnfinishedStr:          progress.DefaultUnfinished,
		EditSleepTimeout:       1,
		SampleInterval:         10 * time.Second,
		AttachmentEditInterval: 5 * time.Second,
	}
}
