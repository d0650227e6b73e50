package mirror

import (
	"github.com/vertextoedge/mirror-bot/internal/domain"
	"github.com/vertextoedge/mirror-bot/internal/port"
)

// Bridge turns a polled cancellation flag into an engine stop and ErrCancelled
type Bridge struct {
	signal  port.CancellationSignal
	stopped bool
}

// NewBridge creates a Bridge. A nil signal never fires.
func NewBridge(signal port.CancellationSignal) *Bridge {
	return &Bridge{signal: signal}
}

// Cancelled reports whether the signal is set
func (b *Bridge) Cancelled() bool {
	return b.signal != nil && b.signal.Cancelled()
}

// Check stops engine and returns domain.ErrCancelled if the signal is set.
// The stop is requested before returning and at most once per Bridge.
func (b *Bridge) Check(engine port.TransferEngine) error {
	if !b.Cancelled() {
		return nil
	}
	b.release(engine)
	return domain.ErrCancelled
}

// release requests an engine stop once
func (b *Bridge) release(engine port.TransferEngine) {
	if b.stopped || engine == nil {
		return
	}
	b.stopped = true
	engine.Stop()
}
