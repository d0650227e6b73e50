package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vertextoedge/mirror-bot/internal/port"
	"go.uber.org/zap"
)

// Config contains maintenance service configuration
type Config struct {
	// CleanupInterval is how often to run cleanup tasks
	CleanupInterval time.Duration

	// TempFileMaxAge is the maximum age of partial downloads before removal
	TempFileMaxAge time.Duration

	// HistoryMaxAge is how long finished history records are kept
	HistoryMaxAge time.Duration
}

// DefaultConfig returns default maintenance configuration
func DefaultConfig() *Config {
	return &Config{
		CleanupInterval: time.Hour,
		TempFileMaxAge:  24 * time.Hour,
		HistoryMaxAge:   30 * 24 * time.Hour,
	}
}

// Service handles periodic maintenance tasks
type Service struct {
	config  *Config
	history port.HistoryRepository
	root    port.DownloadRoot
	logger  *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a new maintenance Service
func New(cfg *Config, history port.HistoryRepository, root port.DownloadRoot, logger *zap.Logger) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	defaults := DefaultConfig()
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = defaults.CleanupInterval
	}
	if cfg.TempFileMaxAge == 0 {
		cfg.TempFileMaxAge = defaults.TempFileMaxAge
	}
	if cfg.HistoryMaxAge == 0 {
		cfg.HistoryMaxAge = defaults.HistoryMaxAge
	}

	return &Service{
		config:  cfg,
		history: history,
		root:    root,
		logger:  logger,
	}
}

// Start cleans up periodically until ctx is done
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("maintenance service already running")
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.logger.Info("maintenance service started",
		zap.Duration("cleanup_interval", s.config.CleanupInterval),
		zap.Duration("temp_file_max_age", s.config.TempFileMaxAge),
		zap.Duration("history_max_age", s.config.HistoryMaxAge))

	s.wg.Add(1)
	go s.maintenanceLoop(ctx)

	<-ctx.Done()
	s.wg.Wait()
	s.logger.Info("maintenance service stopped")
	return nil
}

// Stop stops the maintenance service
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.running = false
}

// RunOnce performs a single cleanup pass
func (s *Service) RunOnce(ctx context.Context) {
	s.cleanupTempFiles()
	s.pruneHistory(ctx)
}

func (s *Service) maintenanceLoop(ctx context.Context) {
	defer s.wg.Done()

	cleanupTicker := time.NewTicker(s.config.CleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cleanupTicker.C:
			s.RunOnce(ctx)
		}
	}
}

// RecoverInterrupted fails records a crashed process left running.
// Call it before commands are served so live downloads are not touched.
func (s *Service) RecoverInterrupted(ctx context.Context) {
	count, err := s.history.MarkInterrupted(ctx)
	if err != nil {
		s.logger.Error("failed to mark interrupted downloads", zap.Error(err))
	} else if count > 0 {
		s.logger.Warn("marked interrupted downloads as failed", zap.Int("count", count))
	}
}

// pruneHistory removes old finished records
func (s *Service) pruneHistory(ctx context.Context) {
	count, err := s.history.PruneFinished(ctx, s.config.HistoryMaxAge)
	if err != nil {
		s.logger.Error("failed to prune download history", zap.Error(err))
	} else if count > 0 {
		s.logger.Info("pruned download history", zap.Int("count", count))
	}
}

// cleanupTempFiles removes old partial downloads from the download root
func (s *Service) cleanupTempFiles() {
	count, err := s.root.CleanOldTempFiles(s.config.TempFileMaxAge)
	if err != nil {
		s.logger.Error("failed to cleanup old temp files", zap.Error(err))
	} else if count > 0 {
		s.logger.Info("cleaned up old temp files from download root", zap.Int("count", count))
	}
}
