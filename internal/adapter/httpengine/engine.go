package httpengine

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vertextoedge/mirror-bot/internal/port"
	"github.com/vertextoedge/mirror-bot/internal/progress"
	"go.bug.st/downloader/v2"
	"go.uber.org/zap"
)

// Config contains HTTP transfer engine configuration
type Config struct {
	// Timeout bounds a whole transfer, 0 means no limit
	Timeout time.Duration

	// UserAgent is sent with every request when set
	UserAgent string

	// DoNotResume disables resuming a partial local file
	DoNotResume bool
}

// Factory creates HTTP engines backed by go.bug.st/downloader
type Factory struct {
	config *Config
	now    func() time.Time
	logger *zap.Logger
}

// Ensure Factory implements port.EngineFactory
var _ port.EngineFactory = (*Factory)(nil)

// NewFactory creates a new Factory
func NewFactory(cfg *Config, logger *zap.Logger) *Factory {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Factory{
		config: cfg,
		now:    time.Now,
		logger: logger,
	}
}

// NewEngine validates rawURL and returns an engine that is not started yet
func (f *Factory) NewEngine(rawURL, destPath string) (port.TransferEngine, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("url has no host: %s", rawURL)
	}

	cfg := downloader.Config{
		HttpClient:          http.Client{Timeout: f.config.Timeout},
		DoNotResumeDownload: f.config.DoNotResume,
		AcceptFunc:          acceptStatus,
	}
	if f.config.UserAgent != "" {
		cfg.ExtraHeaders = map[string]string{"User-Agent": f.config.UserAgent}
	}

	return &Engine{
		url:    rawURL,
		dest:   destPath,
		config: cfg,
		meter:  progress.NewMeter(f.now),
		logger: f.logger,
	}, nil
}

// acceptStatus aborts before the GET when the HEAD response is not 2xx
func acceptStatus(head *http.Response) error {
	if head.StatusCode < 200 || head.StatusCode > 299 {
		return fmt.Errorf("server returned %s", head.Status)
	}
	return nil
}

// Engine is a single HTTP transfer. Its state is only changed by its own goroutine.
type Engine struct {
	url    string
	dest   string
	config downloader.Config
	meter  *progress.Meter
	logger *zap.Logger

	mu       sync.Mutex
	d        *downloader.Downloader
	cancel   context.CancelFunc
	done     chan struct{}
	started  bool
	finished bool
	stopped  bool
	err      error
}

// Ensure Engine implements port.TransferEngine
var _ port.TransferEngine = (*Engine)(nil)

// Start begins the transfer in a background goroutine
func (e *Engine) Start(ctx context.Context, nonBlocking bool) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return fmt.Errorf("engine already started")
	}
	e.started = true
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	e.mu.Unlock()

	go e.run(runCtx)

	if nonBlocking {
		return nil
	}
	<-e.done
	return e.Err()
}

// run performs the request and copy loop
func (e *Engine) run(ctx context.Context) {
	defer close(e.done)

	if err := os.MkdirAll(filepath.Dir(e.dest), 0755); err != nil {
		e.finish(fmt.Errorf("failed to create destination dir: %w", err))
		return
	}

	d, err := downloader.DownloadWithConfigAndContext(ctx, e.dest, e.url, e.config)
	if err != nil {
		e.finish(err)
		return
	}

	if err := acceptStatus(d.Resp); err != nil {
		_ = d.Close()
		e.finish(err)
		return
	}

	e.mu.Lock()
	e.d = d
	e.mu.Unlock()

	e.logger.Debug("http transfer started",
		zap.String("url", e.url),
		zap.Int64("size", d.Size()),
		zap.Int64("resume_from", d.Completed()))

	e.finish(d.Run())
}

func (e *Engine) finish(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.finished = true
	if err != nil && e.stopped {
		err = fmt.Errorf("transfer stopped: %w", err)
	}
	e.err = err
	if e.cancel != nil {
		e.cancel()
	}
}

// Stop cancels the request context without waiting for the goroutine
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
	if e.cancel != nil {
		e.cancel()
	}
}

// Wait blocks until the transfer goroutine has exited
func (e *Engine) Wait() {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done != nil {
		<-done
	}
}

// IsFinished returns true once the transfer ended
func (e *Engine) IsFinished() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.finished
}

// FileSize returns the remote size once the server reported it
func (e *Engine) FileSize() (uint64, bool) {
	e.mu.Lock()
	d := e.d
	e.mu.Unlock()

	if d == nil || d.Size() < 0 {
		return 0, false
	}
	return uint64(d.Size()), true
}

// DownloadedSize returns the bytes on disk so far, including resumed bytes
func (e *Engine) DownloadedSize() uint64 {
	e.mu.Lock()
	d := e.d
	e.mu.Unlock()

	if d == nil || d.Completed() < 0 {
		return 0
	}
	return uint64(d.Completed())
}

// ProgressFraction returns downloaded/total, 0 while the size is unknown
func (e *Engine) ProgressFraction() float64 {
	total, ok := e.FileSize()
	if !ok || total == 0 {
		e.mu.Lock()
		complete := e.finished && e.err == nil
		e.mu.Unlock()
		if complete {
			return 1
		}
		return 0
	}
	return float64(e.DownloadedSize()) / float64(total)
}

// HumanSpeed returns the current transfer rate
func (e *Engine) HumanSpeed() string {
	return progress.FormatSpeed(e.meter.Observe(e.DownloadedSize()))
}

// HumanETA returns the estimated time left
func (e *Engine) HumanETA() string {
	total, ok := e.FileSize()
	if !ok {
		return "unknown"
	}
	downloaded := e.DownloadedSize()
	var remaining uint64
	if total > downloaded {
		remaining = total - downloaded
	}
	return progress.FormatETA(remaining, e.meter.Speed())
}

// Err returns the failure that ended the transfer
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}
