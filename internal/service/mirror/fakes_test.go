package mirror

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/vertextoedge/mirror-bot/internal/domain"
	"github.com/vertextoedge/mirror-bot/internal/port"
)

// fakeEngine implements port.TransferEngine for testing
type fakeEngine struct {
	finishAfter   int // IsFinished returns true on call finishAfter+1
	finishedCalls int
	stopCalls     int
	startErr      error
	err           error
	size          uint64
	sizeKnown     bool
	downloaded    uint64
	fraction      float64
}

func (e *fakeEngine) Start(ctx context.Context, nonBlocking bool) error { return e.startErr }
func (e *fakeEngine) Stop()                                             { e.stopCalls++ }
func (e *fakeEngine) IsFinished() bool {
	e.finishedCalls++
	return e.finishedCalls > e.finishAfter
}
func (e *fakeEngine) FileSize() (uint64, bool) { return e.size, e.sizeKnown }
func (e *fakeEngine) DownloadedSize() uint64   { return e.downloaded }
func (e *fakeEngine) ProgressFraction() float64 {
	return e.fraction
}
func (e *fakeEngine) HumanSpeed() string { return "1.0 MiB/s" }
func (e *fakeEngine) HumanETA() string   { return "5s" }
func (e *fakeEngine) Err() error         { return e.err }

// fakeFactory implements port.EngineFactory for testing
type fakeFactory struct {
	engine   *fakeEngine
	err      error
	gotURL   string
	gotDest  string
	newCalls int
}

func (f *fakeFactory) NewEngine(rawURL, destPath string) (port.TransferEngine, error) {
	f.newCalls++
	f.gotURL = rawURL
	f.gotDest = destPath
	if f.err != nil {
		return nil, f.err
	}
	return f.engine, nil
}

// fakeTransferer implements port.AttachmentTransferer for testing
type fakeTransferer struct {
	gotHint string
	path    string
	err     error
	during  func(onProgress port.ProgressFunc)
}

func (f *fakeTransferer) Transfer(ctx context.Context, src *domain.Attachment, destHint string, onProgress port.ProgressFunc) (string, error) {
	f.gotHint = destHint
	if f.during != nil {
		f.during(onProgress)
	}
	return f.path, f.err
}

// fakeStatus implements port.StatusSurface for testing
type fakeStatus struct {
	mu        sync.Mutex
	emits     []string
	throttled []string
	opts      []port.EmitOptions
}

func (s *fakeStatus) Emit(ctx context.Context, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emits = append(s.emits, text)
}

func (s *fakeStatus) EmitThrottled(ctx context.Context, text string, opts port.EmitOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.throttled = append(s.throttled, text)
	s.opts = append(s.opts, opts)
}

// fakeClock implements port.Clock; Sleep advances time and runs onSleep
type fakeClock struct {
	now     time.Time
	sleeps  int
	onSleep func(n int)
	err     error
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if c.err != nil {
		return c.err
	}
	c.sleeps++
	c.now = c.now.Add(d)
	if c.onSleep != nil {
		c.onSleep(c.sleeps)
	}
	return ctx.Err()
}

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// fakeRoot implements port.DownloadRoot for testing
type fakeRoot struct {
	dir string
}

func (r *fakeRoot) Dir() string                { return r.dir }
func (r *fakeRoot) Join(name string) string    { return filepath.Join(r.dir, name) }
func (r *fakeRoot) Normalize(p string) string  { return filepath.Join(r.dir, filepath.Base(p)) }
func (r *fakeRoot) CleanOldTempFiles(olderThan time.Duration) (int, error) {
	return 0, nil
}

// fakeHistory implements port.HistoryRepository for testing
type fakeHistory struct {
	mu        sync.Mutex
	created   []*domain.DownloadRecord
	finished  []*domain.DownloadRecord
	createErr error
}

func (h *fakeHistory) Create(ctx context.Context, record *domain.DownloadRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	copied := *record
	h.created = append(h.created, &copied)
	return h.createErr
}
func (h *fakeHistory) Finish(ctx context.Context, record *domain.DownloadRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	copied := *record
	h.finished = append(h.finished, &copied)
	return nil
}
func (h *fakeHistory) Get(ctx context.Context, id string) (*domain.DownloadRecord, error) {
	return nil, domain.ErrNotFound
}
func (h *fakeHistory) ListRecent(ctx context.Context, filter port.HistoryFilter) ([]*domain.DownloadRecord, error) {
	return nil, nil
}
func (h *fakeHistory) Stats(ctx context.Context) (*domain.HistoryStats, error) {
	return &domain.HistoryStats{}, nil
}
func (h *fakeHistory) PruneFinished(ctx context.Context, olderThan time.Duration) (int, error) {
	return 0, nil
}
func (h *fakeHistory) MarkInterrupted(ctx context.Context) (int, error) { return 0, nil }
func (h *fakeHistory) Ping() error                                   { return nil }

// fakeMetrics implements port.Metrics for testing
type fakeMetrics struct {
	started  []string
	finished []string
}

func (m *fakeMetrics) DownloadStarted(source string) { m.started = append(m.started, source) }
func (m *fakeMetrics) DownloadFinished(source, status string, elapsed time.Duration) {
	m.finished = append(m.finished, source+":"+status)
}

// setSignal is a CancellationSignal toggled by tests
type setSignal struct {
	set bool
}

func (s *setSignal) Cancelled() bool { return s.set }

var errBoom = errors.New("boom")
