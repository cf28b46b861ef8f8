package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func countTasks(t *testing.T, s *Store) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM tasks`).Scan(&n))
	return n
}

func TestCreateAndGetTask(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	due := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	task := &Task{
		Title:       "Send Q4 report",
		Description: "to finance",
		Context:     "from standup",
		Priority:    2,
		Confidence:  85,
		SourceType:  "slack",
		SourceID:    "m42",
		DueDate:     &due,
	}

	require.NoError(t, s.CreateTask(ctx, task))
	assert.NotEmpty(t, task.ID, "id is assigned on create")
	assert.Equal(t, StatusTodo, task.Status, "status defaults to todo")
	assert.False(t, task.CreatedAt.IsZero())

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Send Q4 report", got.Title)
	assert.Equal(t, "to finance", got.Description)
	assert.Equal(t, "from standup", got.Context)
	assert.Equal(t, 2, got.Priority)
	assert.Equal(t, float64(85), got.Confidence)
	assert.Equal(t, "slack", got.SourceType)
	assert.Equal(t, "m42", got.SourceID)
	require.NotNil(t, got.DueDate)
	assert.True(t, got.DueDate.Equal(due))
	assert.Nil(t, got.CompletedAt)
}

func TestGetTask_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetTask(context.Background(), "nope")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateTask_InvalidStatus(t *testing.T) {
	s := newTestStore(t)

	err := s.CreateTask(context.Background(), &Task{
		Title:      "t",
		SourceType: "manual",
		Status:     Status("archived"),
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid status")
}

func TestListTasks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)
	for i, title := range []string{"first", "second", "third"} {
		task := &Task{
			Title:      title,
			SourceType: "manual",
			CreatedAt:  base.Add(time.Duration(i) * time.Hour),
			UpdatedAt:  base.Add(time.Duration(i) * time.Hour),
		}
		if title == "second" {
			task.Status = StatusDone
		}
		require.NoError(t, s.CreateTask(ctx, task))
	}

	t.Run("newest first", func(t *testing.T) {
		tasks, err := s.ListTasks(ctx, "", 0)
		require.NoError(t, err)
		require.Len(t, tasks, 3)
		assert.Equal(t, "third", tasks[0].Title)
		assert.Equal(t, "first", tasks[2].Title)
	})

	t.Run("status filter", func(t *testing.T) {
		tasks, err := s.ListTasks(ctx, StatusDone, 0)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, "second", tasks[0].Title)
	})

	t.Run("limit", func(t *testing.T) {
		tasks, err := s.ListTasks(ctx, "", 2)
		require.NoError(t, err)
		assert.Len(t, tasks, 2)
	})
}

func TestUpdateTask(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	task := &Task{Title: "original", SourceType: "manual"}
	require.NoError(t, s.CreateTask(ctx, task))

	task.Title = "updated"
	task.Priority = 5
	require.NoError(t, s.UpdateTask(ctx, task))

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "updated", got.Title)
	assert.Equal(t, 5, got.Priority)
}

func TestUpdateTask_DoneStampsCompletedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	task := &Task{Title: "t", SourceType: "manual"}
	require.NoError(t, s.CreateTask(ctx, task))

	task.Status = StatusDone
	require.NoError(t, s.UpdateTask(ctx, task))

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, got.Status)
	require.NotNil(t, got.CompletedAt)
}

func TestUpdateTask_NotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateTask(context.Background(), &Task{
		ID:         "nope",
		Title:      "t",
		Status:     StatusTodo,
		SourceType: "manual",
	})

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteTask(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	task := &Task{Title: "t", SourceType: "manual"}
	require.NoError(t, s.CreateTask(ctx, task))

	require.NoError(t, s.DeleteTask(ctx, task.ID))

	_, err := s.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.DeleteTask(ctx, task.ID), ErrNotFound)
}

func TestCreateMessage_DuplicateExternalID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	msg := &Message{ExternalID: "slack_123", Platform: "slack", Content: "hello"}
	require.NoError(t, s.CreateMessage(ctx, msg))
	assert.NotEmpty(t, msg.ID)

	dup := &Message{ExternalID: "slack_123", Platform: "slack", Content: "hello again"}
	err := s.CreateMessage(ctx, dup)

	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMarkMessageProcessed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	msg := &Message{ExternalID: "slack_1", Platform: "slack", Content: "hello"}
	require.NoError(t, s.CreateMessage(ctx, msg))

	require.NoError(t, s.MarkMessageProcessed(ctx, msg.ID, true))

	var processed bool
	var actionable bool
	require.NoError(t, s.db.QueryRow(
		`SELECT processed, is_actionable FROM messages WHERE id = ?`, msg.ID).
		Scan(&processed, &actionable))
	assert.True(t, processed)
	assert.True(t, actionable)

	assert.ErrorIs(t, s.MarkMessageProcessed(ctx, "nope", false), ErrNotFound)
}

func TestBatch_Commit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	batch, err := s.BeginBatch(ctx)
	require.NoError(t, err)

	require.NoError(t, batch.Stage(ctx, Task{Title: "one", SourceType: "slack"}))
	require.NoError(t, batch.Stage(ctx, Task{Title: "two", SourceType: "slack"}))
	assert.Equal(t, 2, batch.Staged())

	// Nothing is visible before the commit.
	tasks, err := batch.Commit(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.NotEmpty(t, tasks[0].ID)
	assert.Equal(t, StatusTodo, tasks[0].Status)

	assert.Equal(t, 2, countTasks(t, s))
}

func TestBatch_RollbackLeavesNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	batch, err := s.BeginBatch(ctx)
	require.NoError(t, err)

	require.NoError(t, batch.Stage(ctx, Task{Title: "one", SourceType: "slack"}))
	require.NoError(t, batch.Stage(ctx, Task{Title: "two", SourceType: "slack"}))

	require.NoError(t, batch.Rollback())

	assert.Equal(t, 0, countTasks(t, s))
}

func TestBatch_StageFailureKeepsBatchUsable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	batch, err := s.BeginBatch(ctx)
	require.NoError(t, err)

	err = batch.Stage(ctx, Task{Title: "bad", SourceType: "slack", Status: Status("archived")})
	require.Error(t, err)
	assert.Equal(t, 0, batch.Staged())

	require.NoError(t, batch.Stage(ctx, Task{Title: "good", SourceType: "slack"}))

	tasks, err := batch.Commit(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "good", tasks[0].Title)
	assert.Equal(t, 1, countTasks(t, s))
}

func TestBatch_FinishedBatchRejectsUse(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	batch, err := s.BeginBatch(ctx)
	require.NoError(t, err)

	_, err = batch.Commit(ctx)
	require.NoError(t, err)

	assert.Error(t, batch.Stage(ctx, Task{Title: "late", SourceType: "slack"}))
	_, err = batch.Commit(ctx)
	assert.Error(t, err)
	assert.NoError(t, batch.Rollback(), "rollback after commit is a no-op")
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusTodo.Valid())
	assert.True(t, StatusInProgress.Valid())
	assert.True(t, StatusDone.Valid())
	assert.False(t, Status("archived").Valid())
	assert.False(t, Status("").Valid())
}

func TestErrNotFoundIsDistinct(t *testing.T) {
	assert.False(t, errors.Is(ErrNotFound, ErrDuplicate))
}
