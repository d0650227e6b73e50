package mirror

import (
	"strconv"
	"sync"
	"sync/atomic"
)

// Signal is a settable cancellation flag for one invocation
type Signal struct {
	flag atomic.Bool
}

// Cancel sets the flag
func (s *Signal) Cancel() {
	s.flag.Store(true)
}

// Cancelled implements port.CancellationSignal
func (s *Signal) Cancelled() bool {
	return s.flag.Load()
}

// Registry maps running invocations to their cancellation signals
type Registry struct {
	mu      sync.Mutex
	signals map[string]*Signal
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{signals: make(map[string]*Signal)}
}

// StatusKey identifies an invocation by its status message
func StatusKey(chatID int64, messageID int) string {
	return strconv.FormatInt(chatID, 10) + ":" + strconv.Itoa(messageID)
}

// Register creates the signal for key. The returned func removes it again.
func (r *Registry) Register(key string) (*Signal, func()) {
	s := &Signal{}

	r.mu.Lock()
	r.signals[key] = s
	r.mu.Unlock()

	return s, func() {
		r.mu.Lock()
		if r.signals[key] == s {
			delete(r.signals, key)
		}
		r.mu.Unlock()
	}
}

// Cancel sets the signal for key. It returns false if no invocation is registered.
func (r *Registry) Cancel(key string) bool {
	r.mu.Lock()
	s, ok := r.signals[key]
	r.mu.Unlock()

	if !ok {
		return false
	}
	s.Cancel()
	return true
}

// Len returns the number of running invocations
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.signals)
}
