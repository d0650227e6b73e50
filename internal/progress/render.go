package progress

import (
	"math"
	"strconv"
	"strings"
)

const (
	// BarWidth is the number of glyphs in the progress bar
	BarWidth = 20

	// DefaultFinished and DefaultUnfinished are the bar glyphs used when none are configured
	DefaultFinished   = "█"
	DefaultUnfinished = "░"

	defaultHeader = "trying to download"
)

// Sample is one reading of a running transfer
type Sample struct {
	// Header is the first line of the report, "trying to download" if empty
	Header string

	// Percentage is normally in [0,100] but engines may over-report briefly
	Percentage float64

	// SourceLabel names the field holding Source, "URL" if empty
	SourceLabel string
	Source      string
	FileName    string
	Downloaded  uint64
	Total       uint64
	Speed       string
	ETA         string
}

// Report is the rendered snapshot of a Sample
type Report struct {
	Percentage      float64
	DownloadedHuman string
	TotalHuman      string
	SpeedHuman      string
	EtaHuman        string
	Text            string
}

// Renderer formats samples with a fixed pair of bar glyphs
type Renderer struct {
	finished   string
	unfinished string
}

// NewRenderer creates a Renderer, empty glyphs fall back to the defaults
func NewRenderer(finished, unfinished string) *Renderer {
	if finished == "" {
		finished = DefaultFinished
	}
	if unfinished == "" {
		unfinished = DefaultUnfinished
	}
	return &Renderer{finished: finished, unfinished: unfinished}
}

// FinishedUnits returns how many of the BarWidth units are filled for p
func FinishedUnits(p float64) int {
	if math.IsNaN(p) || p <= 0 {
		return 0
	}
	units := int(math.Floor(p / 5))
	if units > BarWidth {
		return BarWidth
	}
	return units
}

// Bar returns the bar for p without brackets
func (r *Renderer) Bar(p float64) string {
	done := FinishedUnits(p)
	return strings.Repeat(r.finished, done) + strings.Repeat(r.unfinished, BarWidth-done)
}

// Render builds the report text for s. It has no side effects.
func (r *Renderer) Render(s Sample) Report {
	header := s.Header
	if header == "" {
		header = defaultHeader
	}
	label := s.SourceLabel
	if label == "" {
		label = "URL"
	}

	pct := s.Percentage
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		pct = 0
	}
	rounded := math.Round(pct*100) / 100

	rep := Report{
		Percentage:      rounded,
		DownloadedHuman: FormatBytes(s.Downloaded),
		TotalHuman:      FormatBytes(s.Total),
		SpeedHuman:      s.Speed,
		EtaHuman:        s.ETA,
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n[")
	b.WriteString(r.Bar(pct))
	b.WriteString("]\n")
	b.WriteString("Progress : " + strconv.FormatFloat(rounded, 'f', -1, 64) + "%\n")
	b.WriteString(label + " : " + s.Source + "\n")
	b.WriteString("FILENAME : " + s.FileName + "\n")
	b.WriteString("Completed : " + rep.DownloadedHuman + "\n")
	b.WriteString("Total : " + rep.TotalHuman + "\n")
	b.WriteString("Speed : " + rep.SpeedHuman + "\n")
	b.WriteString("ETA : " + rep.EtaHuman)
	rep.Text = b.String()

	return rep
}

// Percent returns current/total as a percentage, 0 when total is unknown
func Percent(current, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(current) / float64(total) * 100
}
