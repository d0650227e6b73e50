package mirror

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vertextoedge/mirror-bot/internal/domain"
	"github.com/vertextoedge/mirror-bot/internal/port"
	"go.uber.org/zap"
)

// Invocation is one /mirror command
type Invocation struct {
	ChatID int64

	// StatusKey identifies the status message, see StatusKey
	StatusKey string

	Request domain.DownloadRequest
}

// Service runs invocations through the Coordinator and records their outcome
type Service struct {
	coordinator *Coordinator
	history     port.HistoryRepository
	metrics     port.Metrics
	registry    *Registry
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates a new Service. history and metrics may be nil.
func NewService(coordinator *Coordinator, history port.HistoryRepository, metrics port.Metrics, logger *zap.Logger) *Service {
	return &Service{
		coordinator: coordinator,
		history:     history,
		metrics:     metrics,
		registry:    NewRegistry(),
		logger:      logger,
		now:         time.Now,
	}
}

// Registry returns the cancellation registry of running invocations
func (s *Service) Registry() *Registry {
	return s.registry
}

// Cancel sets the cancellation signal of the invocation behind key
func (s *Service) Cancel(key string) bool {
	return s.registry.Cancel(key)
}

// Mirror runs inv and returns the coordinator's result unchanged
func (s *Service) Mirror(ctx context.Context, inv Invocation, status port.StatusSurface) (domain.DownloadResult, error) {
	source := inv.Request.Kind.String()
	record := &domain.DownloadRecord{
		ID:         uuid.NewString(),
		ChatID:     inv.ChatID,
		SourceKind: source,
		Source:     inv.Request.Source(),
		Status:     domain.RecordStatusRunning,
		CreatedAt:  s.now(),
	}
	logger := s.logger.With(zap.String("download_id", record.ID), zap.String("source", source))

	if s.history != nil {
		if err := s.history.Create(ctx, record); err != nil {
			logger.Warn("failed to record download start", zap.Error(err))
		}
	}
	if s.metrics != nil {
		s.metrics.DownloadStarted(source)
	}

	signal, release := s.registry.Register(inv.StatusKey)
	defer release()

	started := s.now()
	result, err := s.coordinator.Run(ctx, inv.Request, signal, status)

	record.Finish(result, err, s.now())
	if s.history != nil {
		// The invocation context may already be done; the outcome is still stored
		if ferr := s.history.Finish(context.WithoutCancel(ctx), record); ferr != nil {
			logger.Warn("failed to record download outcome", zap.Error(ferr))
		}
	}
	if s.metrics != nil {
		s.metrics.DownloadFinished(source, record.Status, s.now().Sub(started))
	}

	if err != nil {
		logger.Info("download ended", zap.String("status", record.Status), zap.Error(err))
	} else {
		logger.Info("download ended",
			zap.String("status", record.Status),
			zap.String("path", result.Path),
			zap.Int64("elapsed_seconds", result.ElapsedSeconds))
	}

	return result, err
}
