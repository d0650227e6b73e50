// Package progress renders the status text shown while a download runs.
//
// Render is pure and shared by every source adapter. Meter tracks transfer
// speed from successive byte counts and is safe for concurrent use.
//
// # Output Format
//
//	trying to download
//	[██████░░░░░░░░░░░░░░]
//	Progress : 31.25%
//	URL : https://example.com/file.bin
//	FILENAME : file.bin
//	Completed : 320 MiB
//	Total : 1.0 GiB
//	Speed : 12 MiB/s
//	ETA : 58s
package progress
