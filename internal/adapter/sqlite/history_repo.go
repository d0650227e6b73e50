package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/vertextoedge/mirror-bot/internal/domain"
	"github.com/vertextoedge/mirror-bot/internal/port"
)

const (
	downloadsTable = "downloads"

	// DefaultListLimit applies when a filter has no limit
	DefaultListLimit = 50

	// MaxListLimit caps a single listing
	MaxListLimit = 500
)

var downloadColumns = []string{
	"id", "chat_id", "source_kind", "source", "path", "status",
	"elapsed_seconds", "last_error", "created_at", "finished_at",
}

// Ensure Store implements port.HistoryRepository
var _ port.HistoryRepository = (*Store)(nil)

// Create inserts a running record
func (s *Store) Create(ctx context.Context, record *domain.DownloadRecord) error {
	if record.ID == "" {
		return fmt.Errorf("%w: record id is required", domain.ErrInvalidInput)
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now()
	}
	if record.Status == "" {
		record.Status = domain.RecordStatusRunning
	}

	_, err := s.qb.Insert(downloadsTable).
		Columns(downloadColumns...).
		Values(
			record.ID, record.ChatID, record.SourceKind, record.Source, record.Path, record.Status,
			record.ElapsedSeconds, record.LastError, toMillis(record.CreatedAt), nullMillis(record.FinishedAt),
		).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("insert download record: %w", err)
	}
	return nil
}

// Finish stores the outcome of a record
func (s *Store) Finish(ctx context.Context, record *domain.DownloadRecord) error {
	result, err := s.qb.Update(downloadsTable).
		SetMap(map[string]interface{}{
			"path":            record.Path,
			"status":          record.Status,
			"elapsed_seconds": record.ElapsedSeconds,
			"last_error":      record.LastError,
			"finished_at":     nullMillis(record.FinishedAt),
		}).
		Where(squirrel.Eq{"id": record.ID}).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("update download record: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Get returns a record by ID
func (s *Store) Get(ctx context.Context, id string) (*domain.DownloadRecord, error) {
	row := s.qb.Select(downloadColumns...).
		From(downloadsTable).
		Where(squirrel.Eq{"id": id}).
		QueryRowContext(ctx)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get download record: %w", err)
	}
	return record, nil
}

// ListRecent returns records newest first
func (s *Store) ListRecent(ctx context.Context, filter port.HistoryFilter) ([]*domain.DownloadRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := s.qb.Select(downloadColumns...).
		From(downloadsTable).
		OrderBy("created_at DESC", "id").
		Limit(uint64(limit))

	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.ChatID != 0 {
		query = query.Where(squirrel.Eq{"chat_id": filter.ChatID})
	}

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list download records: %w", err)
	}
	defer rows.Close()

	var records []*domain.DownloadRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan download record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Stats returns counts per status
func (s *Store) Stats(ctx context.Context) (*domain.HistoryStats, error) {
	rows, err := s.qb.Select("status", "COUNT(*)").
		From(downloadsTable).
		GroupBy("status").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("count download records: %w", err)
	}
	defer rows.Close()

	stats := &domain.HistoryStats{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.Total += count
		switch status {
		case domain.RecordStatusRunning:
			stats.Running = count
		case domain.RecordStatusCompleted:
			stats.Completed = count
		case domain.RecordStatusCancelled:
			stats.Cancelled = count
		case domain.RecordStatusFailed:
			stats.Failed = count
		}
	}
	return stats, rows.Err()
}

// PruneFinished removes terminal records finished before now-olderThan
func (s *Store) PruneFinished(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := toMillis(s.now().Add(-olderThan))

	result, err := s.qb.Delete(downloadsTable).
		Where(squirrel.NotEq{"status": domain.RecordStatusRunning}).
		Where(squirrel.Lt{"finished_at": cutoff}).
		ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("prune download records: %w", err)
	}

	rows, _ := result.RowsAffected()
	return int(rows), nil
}

// MarkInterrupted fails records left running by a previous process
func (s *Store) MarkInterrupted(ctx context.Context) (int, error) {
	result, err := s.qb.Update(downloadsTable).
		Set("status", domain.RecordStatusFailed).
		Set("last_error", "interrupted by restart").
		Set("finished_at", toMillis(s.now())).
		Where(squirrel.Eq{"status": domain.RecordStatusRunning}).
		ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted records: %w", err)
	}

	rows, _ := result.RowsAffected()
	return int(rows), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*domain.DownloadRecord, error) {
	record := &domain.DownloadRecord{}
	var createdAt int64
	var finishedAt sql.NullInt64

	err := row.Scan(
		&record.ID, &record.ChatID, &record.SourceKind, &record.Source, &record.Path, &record.Status,
		&record.ElapsedSeconds, &record.LastError, &createdAt, &finishedAt,
	)
	if err != nil {
		return nil, err
	}

	record.CreatedAt = fromMillis(createdAt)
	if finishedAt.Valid {
		t := fromMillis(finishedAt.Int64)
		record.FinishedAt = &t
	}
	return record, nil
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
