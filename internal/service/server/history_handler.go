package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vertextoedge/mirror-bot/internal/domain"
	"github.com/vertextoedge/mirror-bot/internal/port"
	"go.uber.org/zap"
)

// HistoryHandler serves the download history
type HistoryHandler struct {
	history port.HistoryRepository
	logger  *zap.Logger
}

// NewHistoryHandler creates a new HistoryHandler
func NewHistoryHandler(history port.HistoryRepository, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{
		history: history,
		logger:  logger,
	}
}

// recordResponse is the JSON form of a history record
type recordResponse struct {
	ID             string     `json:"id"`
	ChatID         int64      `json:"chat_id"`
	SourceKind     string     `json:"source_kind"`
	Source         string     `json:"source"`
	Path           string     `json:"path,omitempty"`
	Status         string     `json:"status"`
	ElapsedSeconds int64      `json:"elapsed_seconds"`
	Error          string     `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

func toResponse(r *domain.DownloadRecord) recordResponse {
	return recordResponse{
		ID:             r.ID,
		ChatID:         r.ChatID,
		SourceKind:     r.SourceKind,
		Source:         r.Source,
		Path:           r.Path,
		Status:         r.Status,
		ElapsedSeconds: r.ElapsedSeconds,
		Error:          r.LastError,
		CreatedAt:      r.CreatedAt,
		FinishedAt:     r.FinishedAt,
	}
}

var validStatuses = map[string]bool{
	domain.RecordStatusRunning:   true,
	domain.RecordStatusCompleted: true,
	domain.RecordStatusCancelled: true,
	domain.RecordStatusFailed:    true,
}

// HandleList handles GET /downloads?status=&limit=&chat_id=
func (h *HistoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	filter := port.HistoryFilter{Status: q.Get("status")}

	if filter.Status != "" && !validStatuses[filter.Status] {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}
	if v := q.Get("chat_id"); v != "" {
		chatID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid chat_id")
			return
		}
		filter.ChatID = chatID
	}

	records, err := h.history.ListRecent(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list downloads", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list downloads")
		return
	}

	items := make([]recordResponse, 0, len(records))
	for _, record := range records {
		items = append(items, toResponse(record))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"downloads": items,
		"count":     len(items),
	})
}

// HandleGet handles GET /downloads/{id}
func (h *HistoryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/downloads/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "invalid download id")
		return
	}

	record, err := h.history.Get(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "download not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get download", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get download")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(record))
}

// HandleStats handles GET /stats
func (h *HistoryHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	stats, err := h.history.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to get download stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get download stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
