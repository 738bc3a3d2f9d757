// internal/history/store.go
package history

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/adrg/xdg"
	_ "github.com/mattn/go-sqlite3"
)

// retentionDays bounds how long entries are kept
const retentionDays = 90

// Store persists validation history in SQLite
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewStore opens the history database at the XDG data path
func NewStore(logger *slog.Logger) (*Store, error) {
	dbPath, err := xdg.DataFile("dbscope/history.db")
	if err != nil {
		return nil, err
	}
	return NewStoreAt(dbPath, logger)
}

// NewStoreAt opens (creating if needed) a history database at path
func NewStoreAt(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			query TEXT NOT NULL,
			status TEXT NOT NULL,
			row_count INTEGER NOT NULL,
			error_message TEXT,
			executed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			duration_ms INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_history_source ON history(source);
		CREATE INDEX IF NOT EXISTS idx_history_executed_at ON history(executed_at);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create history table: %w", err)
	}

	store := &Store{db: db, logger: logger}
	if err := store.cleanup(); err != nil {
		logger.Warn("history cleanup failed", slog.Any("error", err))
	}
	return store, nil
}

// Close waits for background cleanup and closes the database
func (s *Store) Close() error {
	s.wg.Wait()
	return s.db.Close()
}

// Add inserts an entry and sets its ID
func (s *Store) Add(entry *Entry) error {
	res, err := s.db.Exec(`
		INSERT INTO history (source, query, status, row_count, error_message, executed_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.Source,
		entry.Query,
		entry.Status,
		entry.RowCount,
		entry.ErrorMessage,
		entry.ExecutedAt,
		entry.DurationMs,
	)
	if err != nil {
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = id

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.cleanup(); err != nil {
			s.logger.Debug("history cleanup failed", slog.Any("error", err))
		}
	}()
	return nil
}

// List returns entries for a source, newest first
func (s *Store) List(source string, limit, offset int) ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT id, source, query, status, row_count, error_message, executed_at, duration_ms
		FROM history
		WHERE source = ?
		ORDER BY executed_at DESC, id DESC
		LIMIT ? OFFSET ?`, source, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Search finds entries for a source whose query contains substr
func (s *Store) Search(source, substr string, limit int) ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT id, source, query, status, row_count, error_message, executed_at, duration_ms
		FROM history
		WHERE source = ? AND query LIKE ?
		ORDER BY executed_at DESC, id DESC
		LIMIT ?`, source, "%"+substr+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Count returns the number of entries for a source
func (s *Store) Count(source string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM history WHERE source = ?`, source).Scan(&count)
	return count, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(r scanner) (Entry, error) {
	var e Entry
	var errMsg sql.NullString
	err := r.Scan(&e.ID, &e.Source, &e.Query, &e.Status, &e.RowCount, &errMsg, &e.ExecutedAt, &e.DurationMs)
	e.ErrorMessage = errMsg.String
	return e, err
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// cleanup removes entries past the retention window
func (s *Store) cleanup() error {
	_, err := s.db.Exec(fmt.Sprintf(
		"DELETE FROM history WHERE executed_at < datetime('now', '-%d days')", retentionDays))
	return err
}
