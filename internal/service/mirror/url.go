package mirror

import (
	"context"

	"github.com/vertextoedge/mirror-bot/internal/domain"
	"github.com/vertextoedge/mirror-bot/internal/port"
	"github.com/vertextoedge/mirror-bot/internal/progress"
	"go.uber.org/zap"
)

// downloadURL drives a TransferEngine and samples it until it finishes
func (c *Coordinator) downloadURL(
	ctx context.Context,
	req domain.DownloadRequest,
	signal port.CancellationSignal,
	status port.StatusSurface,
) (domain.DownloadResult, error) {
	start := c.clock.Now()
	fileName := req.ResolveFileName(c.config.DefaultFileName)
	dest := c.root.Join(fileName)

	c.logger.Info("starting url download",
		zap.String("url", req.URL),
		zap.String("dest", dest))

	engine, err := c.engines.NewEngine(req.URL, dest)
	if err != nil {
		return domain.DownloadResult{}, domain.NewTransferError(err, req.URL)
	}
	if err := engine.Start(ctx, true); err != nil {
		return domain.DownloadResult{}, domain.NewTransferError(err, req.URL)
	}

	bridge := NewBridge(signal)
	count := 0

	for !engine.IsFinished() {
		if err := bridge.Check(engine); err != nil {
			c.logger.Info("url download cancelled",
				zap.String("url", req.URL),
				zap.Uint64("downloaded", engine.DownloadedSize()))
			return domain.DownloadResult{}, err
		}

		total, _ := engine.FileSize()
		report := c.renderer.Render(progress.Sample{
			Percentage: engine.ProgressFraction() * 100,
			Source:     req.URL,
			FileName:   fileName,
			Downloaded: engine.DownloadedSize(),
			Total:      total,
			Speed:      engine.HumanSpeed(),
			ETA:        engine.HumanETA(),
		})

		count++
		if count >= c.config.EditSleepTimeout {
			count = 0
			status.EmitThrottled(ctx, report.Text, port.EmitOptions{DisableWebPreview: true})
		}

		if err := c.clock.Sleep(ctx, c.config.SampleInterval); err != nil {
			bridge.release(engine)
			return domain.DownloadResult{}, err
		}
	}

	if err := engine.Err(); err != nil {
		c.logger.Warn("url download failed",
			zap.String("url", req.URL),
			zap.Error(err))
		return domain.DownloadResult{}, domain.NewTransferError(err, req.URL)
	}

	result := domain.DownloadResult{
		Path:           dest,
		ElapsedSeconds: elapsedSeconds(start, c.clock.Now()),
	}
	c.logger.Info("url download finished",
		zap.String("path", result.Path),
		zap.Int64("elapsed_seconds", result.ElapsedSeconds))

	return result, nil
}
