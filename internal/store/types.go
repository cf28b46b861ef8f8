// Package store persists inferred tasks and ingested messages in
// SQLite. Task batches from a pipeline run are committed through an
// explicit transaction with all-or-nothing semantics.
package store

import (
	"errors"
	"time"
)

// Sentinel errors returned by store operations.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate indicates a uniqueness constraint violation, such
	// as a duplicate message external id.
	ErrDuplicate = errors.New("duplicate record")
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Valid reports whether the status is one of the allowed values.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// MaxTitleLength is the maximum stored title length. Longer titles are
// truncated before persistence.
const MaxTitleLength = 500

// Task is a durable task record.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Context     string     `json:"context,omitempty"`
	Status      Status     `json:"status"`
	Priority    int        `json:"priority"`
	Confidence  float64    `json:"confidence"`
	SourceType  string     `json:"source_type"`
	SourceID    string     `json:"source_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	InferredAt  time.Time  `json:"inferred_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Message is a raw ingested content record, kept for provenance and
// debugging. Pipeline runs reference the message id as their origin.
type Message struct {
	ID           string    `json:"id"`
	ExternalID   string    `json:"external_id"`
	Platform     string    `json:"platform"`
	Content      string    `json:"content"`
	IsActionable *bool     `json:"is_actionable,omitempty"`
	Processed    bool      `json:"processed"`
	CreatedAt    time.Time `json:"created_at"`
}
