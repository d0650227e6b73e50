package mirror

import (
	"context"
	"fmt"

	"github.com/vertextoedge/mirror-bot/internal/domain"
	"github.com/vertextoedge/mirror-bot/internal/port"
	"github.com/vertextoedge/mirror-bot/internal/progress"
	"go.uber.org/zap"
)

// Status texts emitted before a transfer starts
const (
	StatusDownloadingURL        = "Downloading From URL..."
	StatusDownloadingAttachment = "Downloading From Attachment..."
)

// Coordinator runs one download end to end for either source kind
type Coordinator struct {
	config      *Config
	engines     port.EngineFactory
	attachments port.AttachmentTransferer
	root        port.DownloadRoot
	renderer    *progress.Renderer
	clock       port.Clock
	logger      *zap.Logger
}

// NewCoordinator creates a new Coordinator
func NewCoordinator(
	cfg *Config,
	engines port.EngineFactory,
	attachments port.AttachmentTransferer,
	root port.DownloadRoot,
	logger *zap.Logger,
) *Coordinator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.EditSleepTimeout < 1 {
		cfg.EditSleepTimeout = 1
	}
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = DefaultConfig().SampleInterval
	}
	if cfg.DefaultFileName == "" {
		cfg.DefaultFileName = DefaultConfig().DefaultFileName
	}

	return &Coordinator{
		config:      cfg,
		engines:     engines,
		attachments: attachments,
		root:        root,
		renderer:    progress.NewRenderer(cfg.FinishedStr, cfg.UnfinishedStr),
		clock:       realClock{},
		logger:      logger,
	}
}

// WithClock replaces the clock used for sampling and elapsed time
func (c *Coordinator) WithClock(clock port.Clock) *Coordinator {
	c.clock = clock
	return c
}

// Run downloads req and returns where the file was saved.
// It fails with domain.ErrCancelled, a *domain.TransferError, or
// domain.ErrCorruptedResult; adapter errors are returned unchanged.
func (c *Coordinator) Run(
	ctx context.Context,
	req domain.DownloadRequest,
	signal port.CancellationSignal,
	status port.StatusSurface,
) (domain.DownloadResult, error) {
	if err := req.Validate(); err != nil {
		return domain.DownloadResult{}, err
	}

	switch req.Kind {
	case domain.SourceURL:
		status.Emit(ctx, StatusDownloadingURL)
		return c.downloadURL(ctx, req, signal, status)
	case domain.SourceAttachment:
		status.Emit(ctx, StatusDownloadingAttachment)
		return c.downloadAttachment(ctx, req, signal, status)
	default:
		return domain.DownloadResult{}, fmt.Errorf("%w: source kind %v", domain.ErrInvalidInput, req.Kind)
	}
}
