package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vertextoedge/mirror-bot/internal/adapter/filesystem"
	"github.com/vertextoedge/mirror-bot/internal/port"
	"go.uber.org/zap"
)

// Config contains HTTP server configuration
type Config struct {
	BindAddr      string
	AdminUsername string
	AdminPassword string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		BindAddr:     "0.0.0.0:8080",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// DiskReporter reports usage of the download root
type DiskReporter interface {
	GetDiskUsage() (*filesystem.DiskUsage, error)
}

// Server represents the operations HTTP server
type Server struct {
	config         *Config
	history        port.HistoryRepository
	disk           DiskReporter
	logger         *zap.Logger
	server         *http.Server
	historyHandler *HistoryHandler
}

// New creates a new HTTP server. gatherer backs /metrics; disk may be nil.
func New(cfg *Config, history port.HistoryRepository, disk DiskReporter, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		config:  cfg,
		history: history,
		disk:    disk,
		logger:  logger,
	}

	s.historyHandler = NewHistoryHandler(history, logger)

	protect := adminAuth(cfg.AdminUsername, cfg.AdminPassword, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)

	// Download history
	mux.HandleFunc("/downloads", protect(s.historyHandler.HandleList))
	mux.HandleFunc("/downloads/", protect(s.historyHandler.HandleGet))
	mux.HandleFunc("/stats", protect(s.historyHandler.HandleStats))

	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s.server = &http.Server{
		Addr:         cfg.BindAddr,
		Handler:      LoggingMiddleware(logger)(mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.history.Ping(); err != nil {
		s.logger.Error("health check failed", zap.Error(err))
		http.Error(w, "Database connection failed", http.StatusServiceUnavailable)
		return
	}

	response := map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	}
	if s.disk != nil {
		if usage, err := s.disk.GetDiskUsage(); err == nil {
			response["disk"] = usage
		} else {
			s.logger.Warn("failed to read disk usage", zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, response)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError sends {"error": message}
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
