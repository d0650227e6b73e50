package mirror

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/vertextoedge/mirror-bot/internal/domain"
	"github.com/vertextoedge/mirror-bot/internal/port"
	"github.com/vertextoedge/mirror-bot/internal/progress"
	"github.com/vertextoedge/mirror-bot/internal/util/ratelimiter"
	"go.uber.org/zap"
)

// attachmentLabel names the source field in attachment reports
const attachmentLabel = "FILE"

// downloadAttachment delegates to the attachment primitive.
// The primitive cannot be interrupted from here, so cancellation is checked once it returns.
func (c *Coordinator) downloadAttachment(
	ctx context.Context,
	req domain.DownloadRequest,
	signal port.CancellationSignal,
	status port.StatusSurface,
) (domain.DownloadResult, error) {
	start := c.clock.Now()
	bridge := NewBridge(signal)

	destHint := c.root.Dir()
	if req.FileName != "" {
		destHint = c.root.Join(req.FileName)
	}

	c.logger.Info("starting attachment download",
		zap.String("file_id", req.Attachment.FileID),
		zap.String("dest_hint", destHint))

	onProgress := c.attachmentProgress(ctx, req, bridge, status)

	saved, err := c.attachments.Transfer(ctx, req.Attachment, destHint, onProgress)
	if bridge.Cancelled() {
		c.logger.Info("attachment download cancelled", zap.String("file_id", req.Attachment.FileID))
		return domain.DownloadResult{}, domain.ErrCancelled
	}
	if err != nil {
		c.logger.Warn("attachment download failed",
			zap.String("file_id", req.Attachment.FileID),
			zap.Error(err))
		return domain.DownloadResult{}, domain.NewTransferError(err, req.Source())
	}
	if !usablePath(saved) {
		c.logger.Warn("attachment transfer returned unusable path",
			zap.String("file_id", req.Attachment.FileID),
			zap.String("path", saved))
		return domain.DownloadResult{}, domain.ErrCorruptedResult
	}

	result := domain.DownloadResult{
		Path:           c.root.Normalize(saved),
		ElapsedSeconds: elapsedSeconds(start, c.clock.Now()),
	}
	c.logger.Info("attachment download finished",
		zap.String("path", result.Path),
		zap.Int64("elapsed_seconds", result.ElapsedSeconds))

	return result, nil
}

// attachmentProgress returns the callback handed to the transfer primitive.
// Edits are limited by time since the primitive picks its own cadence.
func (c *Coordinator) attachmentProgress(
	ctx context.Context,
	req domain.DownloadRequest,
	bridge *Bridge,
	status port.StatusSurface,
) port.ProgressFunc {
	limiter := ratelimiter.NewWithClock(c.config.AttachmentEditInterval, c.clock.Now)
	meter := progress.NewMeter(c.clock.Now)

	fileName := req.FileName
	if fileName == "" {
		fileName = req.Attachment.FileName
	}

	return func(current, total int64) {
		if bridge.Cancelled() {
			return
		}
		cur, tot := nonNegative(current), nonNegative(total)
		speed := meter.Observe(cur)

		if allowed, _ := limiter.Allow(req.Attachment.FileID); !allowed {
			return
		}

		var remaining uint64
		if tot > cur {
			remaining = tot - cur
		}
		report := c.renderer.Render(progress.Sample{
			Percentage:  progress.Percent(cur, tot),
			SourceLabel: attachmentLabel,
			Source:      req.Source(),
			FileName:    fileName,
			Downloaded:  cur,
			Total:       tot,
			Speed:       progress.FormatSpeed(speed),
			ETA:         progress.FormatETA(remaining, speed),
		})
		status.EmitThrottled(ctx, report.Text, port.EmitOptions{DisableWebPreview: true})
	}
}

// usablePath reports whether p can name a saved file
func usablePath(p string) bool {
	if strings.TrimSpace(p) == "" || strings.ContainsRune(p, 0) {
		return false
	}
	switch filepath.Base(p) {
	case ".", "..", string(filepath.Separator):
		return false
	}
	return true
}

func nonNegative(v int64) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}
