// Package pipeline runs the four-stage task inference flow:
// Analyze -> Extract -> Validate -> Generate. Each stage is a total
// function over the run state: internal failures produce defaults and
// an entry in the state's error log, never a mid-pipeline panic or
// early error return. The only run-level failure is a persistence
// commit failure.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskd/internal/dates"
	"github.com/fyrsmithlabs/taskd/internal/extract"
	"github.com/fyrsmithlabs/taskd/internal/store"
)

// Classifier answers the actionability question for stage 1.
type Classifier interface {
	Classify(ctx context.Context, text string) (bool, error)
}

// TaskBatch stages task records within one transaction.
type TaskBatch interface {
	Stage(ctx context.Context, task store.Task) error
	Commit(ctx context.Context) ([]store.Task, error)
	Rollback() error
}

// TaskSink opens persistence batches for stage 4.
type TaskSink interface {
	BeginBatch(ctx context.Context) (TaskBatch, error)
}

// State carries one pipeline run's data between stages. Inputs are
// immutable after creation; each stage returns a new State with its
// own output field set. Errors is an append-only diagnostic log and
// never aborts the run by itself.
type State struct {
	// Inputs
	Content  string
	Source   string
	OriginID string

	// Stage outputs
	IsActionable bool
	Extracted    []extract.Candidate
	Validated    []extract.Candidate
	Persisted    []store.Task

	// Diagnostics accumulated across all stages.
	Errors []string
}

// withError returns a copy of the state with a diagnostic appended.
func (s State) withError(format string, args ...any) State {
	s.Errors = append(s.Errors, fmt.Sprintf(format, args...))
	return s
}

// Options configures a pipeline.
type Options struct {
	// ConfidenceThreshold is the minimum candidate confidence kept by
	// validation. Default 70.
	ConfidenceThreshold float64

	// ClassificationEnabled controls stage 1. When disabled, every
	// input is treated as actionable.
	ClassificationEnabled bool
}

// Pipeline orchestrates one run of the task inference stages.
// Safe for concurrent use: all per-run data lives in State.
type Pipeline struct {
	classifier Classifier
	extractor  extract.Extractor
	sink       TaskSink
	opts       Options
	logger     *zap.Logger
	now        func() time.Time
}

// New creates a pipeline. All collaborators are injected; nil logger
// falls back to a no-op logger.
func New(classifier Classifier, extractor extract.Extractor, sink TaskSink, opts Options, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ConfidenceThreshold == 0 {
		opts.ConfidenceThreshold = 70
	}
	return &Pipeline{
		classifier: classifier,
		extractor:  extractor,
		sink:       sink,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
}

// Run executes the four stages in strict sequence and returns the
// terminal state. The returned error is non-nil only for a fatal
// persistence failure; everything else is reported through
// State.Errors with zero downstream output.
func (p *Pipeline) Run(ctx context.Context, content, source, originID string) (State, error) {
	state := State{
		Content:  content,
		Source:   source,
		OriginID: originID,
	}

	state = p.analyze(ctx, state)
	state = p.extract(ctx, state)
	state = p.validate(state)
	state, err := p.generate(ctx, state)

	if len(state.Errors) > 0 {
		p.logger.Warn("pipeline completed with errors",
			zap.String("origin_id", originID),
			zap.Strings("errors", state.Errors))
	}
	p.logger.Info("pipeline complete",
		zap.String("origin_id", originID),
		zap.Bool("actionable", state.IsActionable),
		zap.Int("extracted", len(state.Extracted)),
		zap.Int("validated", len(state.Validated)),
		zap.Int("persisted", len(state.Persisted)))

	return state, err
}

// analyze decides whether the content is worth an extraction call.
// Classification failures default to actionable: a false negative
// silently drops real work, a false positive only costs one extra
// extraction call.
func (p *Pipeline) analyze(ctx context.Context, s State) State {
	if !p.opts.ClassificationEnabled {
		s.IsActionable = true
		return s
	}

	actionable, err := p.classifier.Classify(ctx, s.Content)
	if err != nil {
		p.logger.Warn("classification failed, assuming actionable", zap.Error(err))
		s.IsActionable = true
		return s
	}

	s.IsActionable = actionable
	p.logger.Debug("content classified", zap.Bool("actionable", actionable))
	return s
}

// extract converts content into candidate tasks. Skipped entirely for
// non-actionable content. A failed or unparseable extraction yields an
// empty candidate list, never partial guesses.
func (p *Pipeline) extract(ctx context.Context, s State) State {
	if !s.IsActionable {
		s.Extracted = []extract.Candidate{}
		return s
	}

	candidates, err := p.extractor.Extract(ctx, s.Content, p.now())
	if err != nil {
		p.logger.Error("task extraction failed", zap.Error(err))
		s.Extracted = []extract.Candidate{}
		return s.withError("task extraction failed: %v", err)
	}

	s.Extracted = candidates
	return s
}

// validate filters and deduplicates candidates. Pure: no external
// calls, order preserved.
func (p *Pipeline) validate(s State) State {
	s.Validated = ValidateCandidates(s.Extracted, p.opts.ConfidenceThreshold)
	return s
}

// generate persists validated candidates. Staging failures are
// isolated per candidate; the commit is all-or-nothing for the batch.
func (p *Pipeline) generate(ctx context.Context, s State) (State, error) {
	s.Persisted = []store.Task{}
	if len(s.Validated) == 0 {
		return s, nil
	}

	batch, err := p.sink.BeginBatch(ctx)
	if err != nil {
		p.logger.Error("failed to open task batch", zap.Error(err))
		return s.withError("failed to open task batch: %v", err), err
	}

	now := p.now()
	for _, candidate := range s.Validated {
		task := p.buildTask(candidate, s, now)
		if err := batch.Stage(ctx, task); err != nil {
			p.logger.Error("failed to stage task",
				zap.String("title", task.Title), zap.Error(err))
			s = s.withError("failed to stage task %q: %v", task.Title, err)
		}
	}

	persisted, err := batch.Commit(ctx)
	if err != nil {
		_ = batch.Rollback()
		p.logger.Error("task batch commit failed, rolled back", zap.Error(err))
		return s.withError("task batch commit failed: %v", err), fmt.Errorf("commit failed: %w", err)
	}

	s.Persisted = persisted
	return s, nil
}

// buildTask constructs a durable record from a validated candidate,
// clamping model-supplied values to their contract ranges.
func (p *Pipeline) buildTask(c extract.Candidate, s State, now time.Time) store.Task {
	task := store.Task{
		Title:       truncate(c.Title, store.MaxTitleLength),
		Description: c.Description,
		Context:     c.Context,
		Status:      store.StatusTodo,
		Priority:    clampPriority(c.Priority),
		Confidence:  clampConfidence(c.Confidence),
		SourceType:  s.Source,
		SourceID:    s.OriginID,
		InferredAt:  now.UTC(),
	}

	if due, ok := dates.Resolve(c.DueDate, now); ok {
		task.DueDate = &due
	}
	return task
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// clampConfidence keeps confidence within [0, 100]. An out-of-range
// value is a contract violation by the extraction model and must never
// be stored as-is.
func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// clampPriority keeps priority within [1, 5], defaulting to 3 when
// absent.
func clampPriority(v int) int {
	if v == 0 {
		return 3
	}
	if v < 1 {
		return 1
	}
	if v > 5 {
		return 5
	}
	return v
}
