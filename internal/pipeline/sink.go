package pipeline

import (
	"context"

	"github.com/fyrsmithlabs/taskd/internal/store"
)

// storeSink adapts *store.Store to the TaskSink interface.
type storeSink struct {
	store *store.Store
}

// NewStoreSink wraps a SQLite store as a pipeline persistence sink.
func NewStoreSink(s *store.Store) TaskSink {
	return storeSink{store: s}
}

func (s storeSink) BeginBatch(ctx context.Context) (TaskBatch, error) {
	batch, err := s.store.BeginBatch(ctx)
	if err != nil {
		return nil, err
	}
	return batch, nil
}
