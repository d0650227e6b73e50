package mirror

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vertextoedge/mirror-bot/internal/domain"
	"github.com/vertextoedge/mirror-bot/internal/port"
	"go.uber.org/zap"
)

func newTestCoordinator(cfg *Config, factory *fakeFactory, transferer *fakeTransferer) (*Coordinator, *fakeClock) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	clock := newFakeClock()
	c := NewCoordinator(cfg, factory, transferer, &fakeRoot{dir: "/mnt/UB"}, zap.NewNop()).WithClock(clock)
	return c, clock
}

func mustURLRequest(t *testing.T, raw string) domain.DownloadRequest {
	t.Helper()
	req, err := domain.NewURLRequest(raw)
	if err != nil {
		t.Fatalf("NewURLRequest(%q) error = %v", raw, err)
	}
	return req
}

func TestCoordinator_New(t *testing.T) {
	c := NewCoordinator(&Config{}, nil, nil, &fakeRoot{}, zap.NewNop())

	if c.config.EditSleepTimeout != 1 {
		t.Errorf("EditSleepTimeout = %d, want 1", c.config.EditSleepTimeout)
	}
	if c.config.SampleInterval != 10*time.Second {
		t.Errorf("SampleInterval = %v, want 10s", c.config.SampleInterval)
	}
	if c.config.DefaultFileName != "download.bin" {
		t.Errorf("DefaultFileName = %q", c.config.DefaultFileName)
	}
}

func TestCoordinator_URLCancelBeforeFirstTick(t *testing.T) {
	engine := &fakeEngine{finishAfter: 100}
	c, _ := newTestCoordinator(nil, &fakeFactory{engine: engine}, nil)
	status := &fakeStatus{}

	_, err := c.Run(context.Background(), mustURLRequest(t, "http://x/a.bin"), &setSignal{set: true}, status)

	if !errors.Is(err, domain.ErrCancelled) {
		t.Fatalf("Run() error = %v, want ErrCancelled", err)
	}
	if engine.stopCalls != 1 {
		t.Errorf("Stop() called %d times, want 1", engine.stopCalls)
	}
	if len(status.throttled) != 0 {
		t.Errorf("progress updates = %d, want 0", len(status.throttled))
	}
	if len(status.emits) != 1 || status.emits[0] != StatusDownloadingURL {
		t.Errorf("emits = %v, want [%q]", status.emits, StatusDownloadingURL)
	}
}

func TestCoordinator_URLCancelMidTransfer(t *testing.T) {
	engine := &fakeEngine{finishAfter: 100}
	signal := &setSignal{}
	c, clock := newTestCoordinator(nil, &fakeFactory{engine: engine}, nil)
	clock.onSleep = func(n int) {
		if n == 3 {
			signal.set = true
		}
	}
	status := &fakeStatus{}

	_, err := c.Run(context.Background(), mustURLRequest(t, "http://x/a.bin"), signal, status)

	if !errors.Is(err, domain.ErrCancelled) {
		t.Fatalf("Run() error = %v, want ErrCancelled", err)
	}
	if engine.stopCalls != 1 {
		t.Errorf("Stop() called %d times, want 1", engine.stopCalls)
	}
	if len(status.throttled) != 3 {
		t.Errorf("progress updates = %d, want 3", len(status.throttled))
	}
}

func TestCoordinator_URLThrottling(t *testing.T) {
	tests := []struct {
		name       string
		timeout    int
		iterations int
		wantEmits  int
	}{
		{"every tick", 1, 5, 5},
		{"every third tick", 3, 9, 3},
		{"partial window", 3, 8, 2},
		{"threshold above iterations", 10, 4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.EditSleepTimeout = tt.timeout
			engine := &fakeEngine{finishAfter: tt.iterations}
			c, clock := newTestCoordinator(cfg, &fakeFactory{engine: engine}, nil)
			status := &fakeStatus{}

			if _, err := c.Run(context.Background(), mustURLRequest(t, "http://x/a.bin"), &setSignal{}, status); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if len(status.throttled) != tt.wantEmits {
				t.Errorf("progress updates = %d, want %d", len(status.throttled), tt.wantEmits)
			}
			if clock.sleeps != tt.iterations {
				t.Errorf("sleeps = %d, want %d", clock.sleeps, tt.iterations)
			}
			for i, opts := range status.opts {
				if !opts.DisableWebPreview {
					t.Errorf("update %d: web preview not disabled", i)
				}
			}
		})
	}
}

func TestCoordinator_URLSuccess(t *testing.T) {
	engine := &fakeEngine{
		finishAfter: 4,
		size:        4096,
		sizeKnown:   true,
		downloaded:  1024,
		fraction:    0.25,
	}
	factory := &fakeFactory{engine: engine}
	cfg := DefaultConfig()
	cfg.FinishedStr = "#"
	cfg.UnfinishedStr = "."
	c, _ := newTestCoordinator(cfg, factory, nil)
	status := &fakeStatus{}

	result, err := c.Run(context.Background(), mustURLRequest(t, "http://x/a%20b.bin"), &setSignal{}, status)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Path != "/mnt/UB/a b.bin" {
		t.Errorf("Path = %q, want %q", result.Path, "/mnt/UB/a b.bin")
	}
	if factory.gotDest != "/mnt/UB/a b.bin" || factory.gotURL != "http://x/a%20b.bin" {
		t.Errorf("engine created with (%q, %q)", factory.gotURL, factory.gotDest)
	}
	if result.ElapsedSeconds != 40 {
		t.Errorf("ElapsedSeconds = %d, want 40", result.ElapsedSeconds)
	}
	// One IsFinished call per iteration plus the final true
	if engine.finishedCalls != 5 {
		t.Errorf("IsFinished() called %d times, want 5", engine.finishedCalls)
	}
	if engine.stopCalls != 0 {
		t.Errorf("Stop() called %d times on success", engine.stopCalls)
	}

	text := status.throttled[0]
	for _, want := range []string{
		"[#####...............]",
		"Progress : 25%",
		"URL : http://x/a%20b.bin",
		"FILENAME : a b.bin",
		"Completed : 1.0 KiB",
		"Total : 4.0 KiB",
		"Speed : 1.0 MiB/s",
		"ETA : 5s",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("progress text missing %q:\n%s", want, text)
		}
	}
}

func TestCoordinator_URLCustomFileName(t *testing.T) {
	factory := &fakeFactory{engine: &fakeEngine{}}
	c, _ := newTestCoordinator(nil, factory, nil)

	result, err := c.Run(context.Background(), mustURLRequest(t, "http://x/a.bin|custom name.bin"), &setSignal{}, &fakeStatus{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Path != "/mnt/UB/custom name.bin" {
		t.Errorf("Path = %q", result.Path)
	}
	if factory.gotURL != "http://x/a.bin" {
		t.Errorf("url = %q, want %q", factory.gotURL, "http://x/a.bin")
	}
	if result.ElapsedSeconds != 0 {
		t.Errorf("ElapsedSeconds = %d, want 0", result.ElapsedSeconds)
	}
}

func TestCoordinator_URLEngineFailures(t *testing.T) {
	tests := []struct {
		name    string
		factory *fakeFactory
	}{
		{"factory error", &fakeFactory{err: errBoom}},
		{"start error", &fakeFactory{engine: &fakeEngine{startErr: errBoom}}},
		{"transfer error", &fakeFactory{engine: &fakeEngine{finishAfter: 2, err: errBoom}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestCoordinator(nil, tt.factory, nil)

			_, err := c.Run(context.Background(), mustURLRequest(t, "http://x/a.bin"), &setSignal{}, &fakeStatus{})
			if !errors.Is(err, domain.ErrTransfer) {
				t.Fatalf("Run() error = %v, want ErrTransfer", err)
			}
			if !errors.Is(err, errBoom) {
				t.Errorf("Run() error = %v, want it to wrap the engine error", err)
			}
		})
	}
}

func TestCoordinator_URLContextDone(t *testing.T) {
	engine := &fakeEngine{finishAfter: 100}
	c, clock := newTestCoordinator(nil, &fakeFactory{engine: engine}, nil)
	clock.err = context.Canceled

	_, err := c.Run(context.Background(), mustURLRequest(t, "http://x/a.bin"), &setSignal{}, &fakeStatus{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if engine.stopCalls != 1 {
		t.Errorf("Stop() called %d times, want 1", engine.stopCalls)
	}
}

func TestCoordinator_InvalidRequest(t *testing.T) {
	factory := &fakeFactory{engine: &fakeEngine{}}
	c, _ := newTestCoordinator(nil, factory, nil)
	status := &fakeStatus{}

	_, err := c.Run(context.Background(), domain.DownloadRequest{}, &setSignal{}, status)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("Run() error = %v, want ErrInvalidInput", err)
	}
	if len(status.emits) != 0 || factory.newCalls != 0 {
		t.Error("no transfer or status update should happen for invalid input")
	}
}

func TestCoordinator_AttachmentDestination(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		saved    string
		wantHint string
		wantPath string
	}{
		{
			name:     "no name uses root",
			input:    "",
			saved:    "/mnt/UB/photo_123.jpg",
			wantHint: "/mnt/UB",
			wantPath: "/mnt/UB/photo_123.jpg",
		},
		{
			name:     "blank name uses root",
			input:    "   ",
			saved:    "/mnt/UB/file.bin",
			wantHint: "/mnt/UB",
			wantPath: "/mnt/UB/file.bin",
		},
		{
			name:     "trimmed name",
			input:    "  report.pdf  ",
			saved:    "/mnt/UB/report.pdf",
			wantHint: "/mnt/UB/report.pdf",
			wantPath: "/mnt/UB/report.pdf",
		},
		{
			name:     "returned path normalized to root",
			input:    "",
			saved:    "/tmp/elsewhere/video.mp4",
			wantHint: "/mnt/UB",
			wantPath: "/mnt/UB/video.mp4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transferer := &fakeTransferer{path: tt.saved}
			c, _ := newTestCoordinator(nil, nil, transferer)
			status := &fakeStatus{}

			req, err := domain.NewAttachmentRequest(&domain.Attachment{FileID: "f1"}, tt.input)
			if err != nil {
				t.Fatalf("NewAttachmentRequest() error = %v", err)
			}

			result, err := c.Run(context.Background(), req, &setSignal{}, status)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if transferer.gotHint != tt.wantHint {
				t.Errorf("destination hint = %q, want %q", transferer.gotHint, tt.wantHint)
			}
			if result.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", result.Path, tt.wantPath)
			}
			if len(status.emits) != 1 || status.emits[0] != StatusDownloadingAttachment {
				t.Errorf("emits = %v", status.emits)
			}
		})
	}
}

func TestCoordinator_AttachmentFailures(t *testing.T) {
	tests := []struct {
		name       string
		transferer *fakeTransferer
		cancelled  bool
		want       error
	}{
		{"empty path", &fakeTransferer{path: ""}, false, domain.ErrCorruptedResult},
		{"directory path", &fakeTransferer{path: "/"}, false, domain.ErrCorruptedResult},
		{"nul byte", &fakeTransferer{path: "/mnt/UB/a\x00b"}, false, domain.ErrCorruptedResult},
		{"transfer error", &fakeTransferer{err: errBoom}, false, domain.ErrTransfer},
		{"cancelled with valid path", &fakeTransferer{path: "/mnt/UB/a.bin"}, true, domain.ErrCancelled},
		{"cancelled beats corrupt path", &fakeTransferer{path: ""}, true, domain.ErrCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestCoordinator(nil, nil, tt.transferer)
			req, _ := domain.NewAttachmentRequest(&domain.Attachment{FileID: "f1"}, "")

			_, err := c.Run(context.Background(), req, &setSignal{set: tt.cancelled}, &fakeStatus{})
			if !errors.Is(err, tt.want) {
				t.Fatalf("Run() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCoordinator_AttachmentProgressThrottledByTime(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AttachmentEditInterval = 5 * time.Second
	transferer := &fakeTransferer{path: "/mnt/UB/a.bin"}
	c, clock := newTestCoordinator(cfg, nil, transferer)

	transferer.during = func(onProgress port.ProgressFunc) {
		for i := int64(1); i <= 10; i++ {
			clock.Advance(time.Second)
			onProgress(i*100, 1000)
		}
	}
	status := &fakeStatus{}

	req, _ := domain.NewAttachmentRequest(&domain.Attachment{FileID: "f1", FileName: "a.bin"}, "")
	if _, err := c.Run(context.Background(), req, &setSignal{}, status); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Allowed at t=1s, 6s
	if len(status.throttled) != 2 {
		t.Fatalf("progress updates = %d, want 2", len(status.throttled))
	}
	if !strings.Contains(status.throttled[0], "Progress : 10%") {
		t.Errorf("first update:\n%s", status.throttled[0])
	}
	if !strings.Contains(status.throttled[1], "FILE : a.bin") {
		t.Errorf("second update:\n%s", status.throttled[1])
	}
}

func TestCoordinator_AttachmentProgressStopsAfterCancel(t *testing.T) {
	signal := &setSignal{}
	transferer := &fakeTransferer{path: "/mnt/UB/a.bin"}
	c, clock := newTestCoordinator(nil, nil, transferer)

	transferer.during = func(onProgress port.ProgressFunc) {
		signal.set = true
		clock.Advance(time.Minute)
		onProgress(10, 100)
	}
	status := &fakeStatus{}

	req, _ := domain.NewAttachmentRequest(&domain.Attachment{FileID: "f1"}, "")
	_, err := c.Run(context.Background(), req, signal, status)
	if !errors.Is(err, domain.ErrCancelled) {
		t.Fatalf("Run() error = %v, want ErrCancelled", err)
	}
	if len(status.throttled) != 0 {
		t.Errorf("progress updates after cancel = %d, want 0", len(status.throttled))
	}
}

func TestBridge_StopsOnce(t *testing.T) {
	engine := &fakeEngine{}
	signal := &setSignal{}
	b := NewBridge(signal)

	if err := b.Check(engine); err != nil {
		t.Fatalf("Check() with unset signal = %v", err)
	}

	signal.set = true
	for i := 0; i < 3; i++ {
		if err := b.Check(engine); !errors.Is(err, domain.ErrCancelled) {
			t.Fatalf("Check() = %v, want ErrCancelled", err)
		}
	}
	if engine.stopCalls != 1 {
		t.Errorf("Stop() called %d times, want 1", engine.stopCalls)
	}

	if NewBridge(nil).Cancelled() {
		t.Error("nil signal should never be cancelled")
	}
}
