// Package store persists notes, reminders, and alarms in SQLite.
//
// The store is append-only plus one monotonic flag flip: scheduled
// tasks are never deleted, and MarkTriggered is the only mutation.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Kind selects one scheduled-task namespace. Record ids are unique per kind.
type Kind string

const (
	KindReminder Kind = "reminders"
	KindAlarm    Kind = "alarms"
)

// Task is one persistent reminder or alarm record.
type Task struct {
	ID        string
	Text      string
	DueAt     time.Time
	Triggered bool
	CreatedAt time.Time
}

// Note is one persistent free-text note.
type Note struct {
	ID        string
	Content   string
	CreatedAt time.Time
}

// Store wraps the memory database. All operations are short,
// self-contained transactions with no long-lived cursors.
type Store struct {
	db *sql.DB
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS notes (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS reminders (
	id TEXT PRIMARY KEY,
	task_text TEXT NOT NULL,
	due_at TIMESTAMP NOT NULL,
	triggered INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS alarms (
	id TEXT PRIMARY KEY,
	task_text TEXT NOT NULL,
	due_at TIMESTAMP NOT NULL,
	triggered INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
);
`

// Open opens (or creates) the SQLite database at path and applies the
// schema. WAL journal mode and a busy timeout keep the two short-lived
// accessors (tool inserts and the poller) from contending.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure store dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode on %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout on %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// DefaultPath resolves the database location when config leaves it empty:
// $XDG_DATA_HOME/hark/memory.db, falling back to ~/.local/share.
func DefaultPath() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdg != "" {
		return filepath.Join(xdg, "hark", "memory.db"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "hark", "memory.db"), nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// AddNote inserts one note and returns its id.
func (s *Store) AddNote(ctx context.Context, content string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO notes (id, content, created_at) VALUES (?, ?, ?)",
		id, content, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert note: %w", err)
	}
	return id, nil
}

// Notes returns up to limit notes, most recently created first.
func (s *Store) Notes(ctx context.Context, limit int) ([]Note, error) {
	if limit <= 0 {
		limit = 1
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, content, created_at FROM notes ORDER BY created_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.Content, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// AddReminder inserts one reminder due at dueAt and returns its id.
func (s *Store) AddReminder(ctx context.Context, text string, dueAt time.Time) (string, error) {
	return s.addTask(ctx, KindReminder, text, dueAt)
}

// AddAlarm inserts one alarm due at dueAt and returns its id.
func (s *Store) AddAlarm(ctx context.Context, label string, dueAt time.Time) (string, error) {
	if strings.TrimSpace(label) == "" {
		label = "Alarm"
	}
	return s.addTask(ctx, KindAlarm, label, dueAt)
}

func (s *Store) addTask(ctx context.Context, kind Kind, text string, dueAt time.Time) (string, error) {
	table, err := tableFor(kind)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (id, task_text, due_at, triggered, created_at) VALUES (?, ?, ?, 0, ?)", table),
		id, text, dueAt.UTC(), time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert %s: %w", kind, err)
	}
	return id, nil
}

// DueTasks returns every task of the given kind whose due time has
// passed and whose triggered flag is still unset.
func (s *Store) DueTasks(ctx context.Context, kind Kind, now time.Time) ([]Task, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT id, task_text, due_at, triggered, created_at FROM %s WHERE due_at <= ? AND triggered = 0", table),
		now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query due %s: %w", kind, err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.Text, &t.DueAt, &t.Triggered, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// MarkTriggered flips the triggered flag for one task. The flip is the
// only mutation tasks ever see, which makes poller announcements
// idempotent across cycles.
func (s *Store) MarkTriggered(ctx context.Context, id string, kind Kind) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET triggered = 1 WHERE id = ?", table),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark %s %s triggered: %w", kind, id, err)
	}
	return nil
}

// tableFor maps a task kind to its table, rejecting anything else so a
// caller-supplied kind can never reach the SQL text.
func tableFor(kind Kind) (string, error) {
	switch kind {
	case KindReminder:
		return "reminders", nil
	case KindAlarm:
		return "alarms", nil
	default:
		return "", fmt.Errorf("unknown task kind %q", kind)
	}
}
