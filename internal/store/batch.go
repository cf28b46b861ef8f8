package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Batch stages task records inside a single transaction. Staging
// failures affect only the record being staged; Commit is
// all-or-nothing for every record staged in the batch.
type Batch struct {
	tx     *sql.Tx
	store  *Store
	staged []Task
	done   bool
}

// BeginBatch opens a transaction for staging a batch of tasks.
func (s *Store) BeginBatch(ctx context.Context) (*Batch, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin batch: %w", err)
	}
	return &Batch{tx: tx, store: s}, nil
}

// Stage inserts a task within the batch transaction. The task gets an
// id and timestamps if absent. On error the record is not staged but
// the batch remains usable for subsequent records.
func (b *Batch) Stage(ctx context.Context, task Task) error {
	if b.done {
		return fmt.Errorf("batch already finished")
	}

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

	if err := b.store.insertTask(ctx, b.tx, &task); err != nil {
		return err
	}

	b.staged = append(b.staged, task)
	return nil
}

// Staged returns the number of records staged so far.
func (b *Batch) Staged() int {
	return len(b.staged)
}

// Commit commits the transaction and returns the staged records.
// On failure nothing is persisted and the caller should treat the
// whole batch as lost.
func (b *Batch) Commit(ctx context.Context) ([]Task, error) {
	if b.done {
		return nil, fmt.Errorf("batch already finished")
	}
	b.done = true

	if err := b.tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}
	return b.staged, nil
}

// Rollback discards every staged record. Safe to call after a failed
// Commit.
func (b *Batch) Rollback() error {
	if b.done {
		return nil
	}
	b.done = true
	return b.tx.Rollback()
}
