package port

import "time"

// Metrics records download outcomes
type Metrics interface {
	DownloadStarted(source string)
	DownloadFinished(source, status string, elapsed time.Duration)
}
