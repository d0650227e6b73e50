package progress

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatBytes formats bytes using binary units, e.g. "1.5 KiB"
func FormatBytes(b uint64) string {
	return humanize.IBytes(b)
}

// FormatSpeed formats a bytes-per-second rate
func FormatSpeed(bytesPerSecond float64) string {
	if bytesPerSecond <= 0 {
		return "0 B/s"
	}
	return humanize.IBytes(uint64(bytesPerSecond)) + "/s"
}

// FormatDuration formats a duration as a human-readable string
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// FormatETA formats the time left for remaining bytes at the given speed.
// Returns "calculating..." while the speed is unknown.
func FormatETA(remaining uint64, bytesPerSecond float64) string {
	if remaining == 0 {
		return FormatDuration(0)
	}
	if bytesPerSecond <= 0 {
		return "calculating..."
	}
	seconds := float64(remaining) / bytesPerSecond
	return FormatDuration(time.Duration(seconds * float64(time.Second)))
}
