// Package history keeps an append-only log of finished tasks in SQLite.
// It is a record of outcomes, not a queue: nothing is ever read back
// into the running task list.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"fetcharr/internal/models"
	"fetcharr/internal/utils/logging"

	"github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

const tableHistory = "history"

// Entry is one logged terminal outcome.
type Entry struct {
	TaskID       string     `json:"task_id"`
	URL          string     `json:"url"`
	Format       string     `json:"format"`
	Quality      string     `json:"quality"`
	Status       string     `json:"status"`
	Title        string     `json:"title"`
	Filename     string     `json:"filename"`
	ErrorMessage string     `json:"error_message"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at"`
}

// Store wraps the SQLite history database.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the history database at path.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if err := initTable(db); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.E("Failed to close history database: %v", closeErr)
		}
		return nil, err
	}

	logging.D(1, "Opened history database at %s", path)
	return &Store{db: db}, nil
}

func initTable(db *sql.DB) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id TEXT NOT NULL,
		url TEXT NOT NULL,
		format TEXT NOT NULL,
		quality TEXT NOT NULL,
		status TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		filename TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		completed_at TIMESTAMP
	)`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create history table: %w", err)
	}
	return nil
}

// Record appends a terminal task outcome. Failures are logged, not
// returned: history must never block the queue.
func (s *Store) Record(task models.Task) {
	query := squirrel.
		Insert(tableHistory).
		Columns("task_id", "url", "format", "quality", "status",
			"title", "filename", "error_message", "created_at", "completed_at").
		Values(task.ID, task.URL, string(task.Format), task.Quality, task.Status.String(),
			task.Title, task.Filename, task.ErrorMessage, task.CreatedAt, task.CompletedAt).
		RunWith(s.db)

	if _, err := query.Exec(); err != nil {
		logging.E("Failed to record history for task %s: %v", task.ID, err)
	}
}

// List returns the most recent entries, newest first.
func (s *Store) List(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := squirrel.
		Select("task_id", "url", "format", "quality", "status",
			"title", "filename", "error_message", "created_at", "completed_at").
		From(tableHistory).
		OrderBy("id DESC").
		Limit(uint64(limit)).
		RunWith(s.db)

	rows, err := query.Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.E("Failed to close history rows: %v", err)
		}
	}()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.TaskID, &e.URL, &e.Format, &e.Quality, &e.Status,
			&e.Title, &e.Filename, &e.ErrorMessage, &e.CreatedAt, &e.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history row iteration: %w", err)
	}
	return entries, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
