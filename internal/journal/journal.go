// Package journal provides the SQLite audit trail of task creation and
// subtask status transitions. Writes are best-effort; the journal is an
// audit surface, not a durability layer.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/webpilot/webpilot/pkg/models"
)

// DB wraps an SQLite database holding the run journal.
type DB struct {
	conn *sql.DB
	mu   sync.Mutex
}

// DefaultPath returns the journal location under XDG data.
func DefaultPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "webpilot", "journal.db")
}

// Open opens the journal at the given path, creating parent directories
// and the schema as needed. WAL mode is enabled for concurrent reads.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		goal TEXT NOT NULL,
		summary TEXT,
		session_id TEXT,
		subtask_count INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS transitions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id TEXT NOT NULL,
		subtask_id TEXT NOT NULL,
		status TEXT NOT NULL,
		detail TEXT,
		recorded_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transitions_task ON transitions(task_id);
	`
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("create journal schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// RecordTask stores one row for a newly admitted task.
func (db *DB) RecordTask(task *models.Task) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO tasks (id, goal, summary, session_id, subtask_count, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		task.ID, task.Goal, task.Summary, task.SessionID, len(task.Subtasks), task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record task %s: %w", task.ID, err)
	}
	return nil
}

// RecordTransition appends one subtask status transition.
func (db *DB) RecordTransition(taskID, subtaskID string, status models.Status, detail string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(
		"INSERT INTO transitions (task_id, subtask_id, status, detail, recorded_at) VALUES (?, ?, ?, ?, ?)",
		taskID, subtaskID, string(status), detail, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("record transition %s/%s: %w", taskID, subtaskID, err)
	}
	return nil
}

// Transition is one journal row.
type Transition struct {
	SubtaskID  string
	Status     models.Status
	Detail     string
	RecordedAt time.Time
}

// Transitions returns a task's transitions in recorded order.
func (db *DB) Transitions(taskID string) ([]Transition, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.Query(
		"SELECT subtask_id, status, detail, recorded_at FROM transitions WHERE task_id = ? ORDER BY id",
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("query transitions for %s: %w", taskID, err)
	}
	defer rows.Close()

	var transitions []Transition
	for rows.Next() {
		var t Transition
		var status string
		if err := rows.Scan(&t.SubtaskID, &status, &t.Detail, &t.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		t.Status = models.Status(status)
		transitions = append(transitions, t)
	}
	return transitions, rows.Err()
}
