package progress

import (
	"sync"
	"time"
)

// minSampleWindow is the shortest interval used to compute a new speed
const minSampleWindow = 500 * time.Millisecond

// Meter estimates transfer speed from successive byte counts
type Meter struct {
	mu        sync.Mutex
	now       func() time.Time
	start     time.Time
	lastAt    time.Time
	lastBytes uint64
	speed     float64
}

// NewMeter creates a Meter starting now. A nil now uses time.Now.
func NewMeter(now func() time.Time) *Meter {
	if now == nil {
		now = time.Now
	}
	t := now()
	return &Meter{
		now:    now,
		start:  t,
		lastAt: t,
	}
}

// Observe records the current byte count and returns the speed in bytes/s
func (m *Meter) Observe(current uint64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.now()
	window := t.Sub(m.lastAt)
	if window < minSampleWindow {
		if m.speed == 0 {
			// First samples: fall back to the average since start
			if elapsed := t.Sub(m.start).Seconds(); elapsed > 0 {
				m.speed = float64(current) / elapsed
			}
		}
		return m.speed
	}

	var delta uint64
	if current > m.lastBytes {
		delta = current - m.lastBytes
	}
	m.speed = float64(delta) / window.Seconds()
	m.lastAt = t
	m.lastBytes = current
	return m.speed
}

// Speed returns the last computed speed in bytes/s
func (m *Meter) Speed() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speed
}

// Elapsed returns the time since the meter was created
func (m *Meter) Elapsed() time.Duration {
	return m.now().Sub(m.start)
}
