package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

// migrations are applied in order. The index of the last applied step is kept
// in PRAGMA user_version, so steps must never be edited once released.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS downloads (
		id TEXT PRIMARY KEY,
		chat_id INTEGER NOT NULL,
		source_kind TEXT NOT NULL,
		source TEXT NOT NULL,
		path TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'running',
		elapsed_seconds INTEGER NOT NULL DEFAULT 0,
		last_error TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		finished_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_downloads_status ON downloads(status);
	CREATE INDEX IF NOT EXISTS idx_downloads_chat_id ON downloads(chat_id);
	CREATE INDEX IF NOT EXISTS idx_downloads_created_at ON downloads(created_at);`,

	`CREATE INDEX IF NOT EXISTS idx_downloads_finished_at ON downloads(finished_at)
		WHERE finished_at IS NOT NULL;`,
}

// Store is the SQLite download history
type Store struct {
	db  *sql.DB
	qb  squirrel.StatementBuilderType
	now func() time.Time
}

// Open opens the database at dbPath, creating its directory and schema as needed
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database dir: %w", err)
		}
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between concurrent invocations
	db.SetMaxOpenConns(1)

	store := &Store{
		db:  db,
		qb:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question).RunWith(db),
		now: time.Now,
	}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping checks database connectivity
func (s *Store) Ping() error {
	return s.db.Ping()
}

// SchemaVersion returns the number of applied migrations
func (s *Store) SchemaVersion() (int, error) {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// migrate applies pending migrations, each in its own transaction
func (s *Store) migrate() error {
	current, err := s.SchemaVersion()
	if err != nil {
		return err
	}
	if current > len(migrations) {
		return fmt.Errorf("database schema version %d is newer than supported %d", current, len(migrations))
	}

	for i := current; i < len(migrations); i++ {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		// PRAGMA does not take bind parameters
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("record schema version %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", i+1, err)
		}
	}

	return nil
}
