package domain

// DownloadResult represents the result of a finished download
type DownloadResult struct {
	// Path is the local path where the file was saved
	Path string

	// ElapsedSeconds is the whole number of seconds the transfer took
	ElapsedSeconds int64
}
