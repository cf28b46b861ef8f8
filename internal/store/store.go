package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
    id           VARCHAR(64)  PRIMARY KEY,
    title        VARCHAR(500) NOT NULL,
    description  TEXT         NULL,
    context      TEXT         NULL,
    status       VARCHAR(20)  NOT NULL DEFAULT 'todo',
    priority     INTEGER      NOT NULL DEFAULT 3,
    confidence   REAL         NOT NULL DEFAULT 0,
    source_type  VARCHAR(50)  NOT NULL,
    source_id    VARCHAR(500) NULL,
    due_date     DATETIME     NULL,
    inferred_at  DATETIME     NOT NULL,
    completed_at DATETIME     NULL,
    created_at   DATETIME     NOT NULL,
    updated_at   DATETIME     NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks(created_at);
CREATE INDEX IF NOT EXISTS idx_tasks_source_type ON tasks(source_type);

CREATE TABLE IF NOT EXISTS messages (
    id            VARCHAR(64)  PRIMARY KEY,
    external_id   VARCHAR(500) NOT NULL UNIQUE,
    platform      VARCHAR(50)  NOT NULL,
    content       TEXT         NOT NULL,
    is_actionable INTEGER      NULL,
    processed     INTEGER      NOT NULL DEFAULT 0,
    created_at    DATETIME     NOT NULL
);
`

// Store is a SQLite-backed task and message store.
// It is safe for concurrent use; writes are serialized on a single
// connection so batch transactions never interleave.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and initializes
// the schema. Use ":memory:" style DSNs for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; a single connection avoids
	// SQLITE_BUSY churn under concurrent pipeline runs.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

const taskColumns = `id, title, description, context, status, priority, confidence,
	source_type, source_id, due_date, inferred_at, completed_at, created_at, updated_at`

// CreateTask inserts a new task, assigning id and timestamps when
// absent. The task is normalized via its setters before insert.
func (s *Store) CreateTask(ctx context.Context, task *Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = now
	}
	if task.InferredAt.IsZero() {
		task.InferredAt = now
	}
	if task.Status == "" {
		task.Status = StatusTodo
	}
	if !task.Status.Valid() {
		return fmt.Errorf("invalid status: %s", task.Status)
	}

	return s.insertTask(ctx, s.db, task)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) insertTask(ctx context.Context, ex execer, task *Task) error {
	query := `INSERT INTO tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := ex.ExecContext(ctx, query,
		task.ID, task.Title, nullString(task.Description), nullString(task.Context),
		string(task.Status), task.Priority, task.Confidence,
		task.SourceType, nullString(task.SourceID), nullTime(task.DueDate),
		task.InferredAt.UTC(), nullTime(task.CompletedAt),
		task.CreatedAt.UTC(), task.UpdatedAt.UTC())
	if err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("insert task %s: %w", task.ID, ErrDuplicate)
		}
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// GetTask returns a task by id, or ErrNotFound.
func (s *Store) GetTask(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// ListTasks returns tasks ordered newest-first, optionally filtered by
// status. A limit of 0 means the default of 100.
func (s *Store) ListTasks(ctx context.Context, status Status, limit int) ([]Task, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// UpdateTask rewrites the mutable fields of a task. Transitioning to
// done stamps completed_at if it is not already set.
func (s *Store) UpdateTask(ctx context.Context, task *Task) error {
	if !task.Status.Valid() {
		return fmt.Errorf("invalid status: %s", task.Status)
	}
	if task.Status == StatusDone && task.CompletedAt == nil {
		now := time.Now().UTC()
		task.CompletedAt = &now
	}
	task.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET
		title = ?, description = ?, context = ?, status = ?, priority = ?,
		due_date = ?, completed_at = ?, updated_at = ?
		WHERE id = ?`,
		task.Title, nullString(task.Description), nullString(task.Context),
		string(task.Status), task.Priority,
		nullTime(task.DueDate), nullTime(task.CompletedAt), task.UpdatedAt.UTC(),
		task.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTask removes a task by id, or returns ErrNotFound.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateMessage stores raw ingested content for provenance.
// Returns ErrDuplicate when the external id is already known.
func (s *Store) CreateMessage(ctx context.Context, msg *Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO messages
		(id, external_id, platform, content, is_actionable, processed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ExternalID, msg.Platform, msg.Content,
		nullBool(msg.IsActionable), msg.Processed, msg.CreatedAt.UTC())
	if err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("insert message %s: %w", msg.ExternalID, ErrDuplicate)
		}
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// GetMessage returns a stored message by id, or ErrNotFound.
func (s *Store) GetMessage(ctx context.Context, id string) (*Message, error) {
	var msg Message
	var actionable sql.NullBool
	err := s.db.QueryRowContext(ctx, `SELECT id, external_id, platform, content,
		is_actionable, processed, created_at FROM messages WHERE id = ?`, id).
		Scan(&msg.ID, &msg.ExternalID, &msg.Platform, &msg.Content,
			&actionable, &msg.Processed, &msg.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	if actionable.Valid {
		b := actionable.Bool
		msg.IsActionable = &b
	}
	return &msg, nil
}

// MarkMessageProcessed records the pipeline outcome for a message.
func (s *Store) MarkMessageProcessed(ctx context.Context, id string, actionable bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET processed = 1, is_actionable = ? WHERE id = ?`,
		actionable, id)
	if err != nil {
		return fmt.Errorf("mark message processed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(sc scanner) (*Task, error) {
	var task Task
	var status string
	var description, taskContext, sourceID sql.NullString
	var dueDate, completedAt sql.NullTime

	err := sc.Scan(&task.ID, &task.Title, &description, &taskContext, &status,
		&task.Priority, &task.Confidence, &task.SourceType, &sourceID,
		&dueDate, &task.InferredAt, &completedAt, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, err
	}

	task.Status = Status(status)
	task.Description = description.String
	task.Context = taskContext.String
	task.SourceID = sourceID.String
	if dueDate.Valid {
		t := dueDate.Time
		task.DueDate = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		task.CompletedAt = &t
	}
	return &task, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullBool(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}

// isConstraintError detects SQLite constraint violations (unique,
// check, not-null) from the driver's error text.
func isConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "constraint")
}
