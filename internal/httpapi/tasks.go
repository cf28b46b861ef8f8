package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskd/internal/store"
)

// InferRequest is the request body for POST /api/v1/infer-tasks.
type InferRequest struct {
	Content string `json:"content"`
	Source  string `json:"source"`
}

// InferResponse is the response body for POST /api/v1/infer-tasks.
// Errors carries the run's diagnostic log so callers can distinguish
// "zero tasks found" from "extraction broke".
type InferResponse struct {
	Message       string       `json:"message"`
	TasksInferred int          `json:"tasks_inferred"`
	Tasks         []store.Task `json:"tasks"`
	Errors        []string     `json:"errors,omitempty"`
}

// handleInferTasks ingests raw text and runs the inference pipeline.
func (s *Server) handleInferTasks(c echo.Context) error {
	var req InferRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if n := utf8.RuneCountInString(req.Content); n < minContentLength || n > maxContentLength {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("content length must be between %d and %d characters", minContentLength, maxContentLength))
	}
	if req.Source == "" {
		req.Source = "manual_text"
	}
	if len(req.Source) > maxSourceLength {
		return echo.NewHTTPError(http.StatusBadRequest, "source too long")
	}

	ctx := c.Request().Context()

	// Store the raw content first for provenance and debugging.
	msg := &store.Message{
		ExternalID: fmt.Sprintf("%s_%d", req.Source, time.Now().UnixNano()),
		Platform:   req.Source,
		Content:    req.Content,
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		s.logger.Error("failed to store message", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to store content")
	}

	state, err := s.runner.Run(ctx, req.Content, req.Source, msg.ID)

	if markErr := s.store.MarkMessageProcessed(ctx, msg.ID, state.IsActionable); markErr != nil {
		s.logger.Warn("failed to mark message processed", zap.Error(markErr))
	}

	if err != nil {
		s.logger.Error("task inference failed", zap.String("message_id", msg.ID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "task inference failed")
	}

	return c.JSON(http.StatusOK, InferResponse{
		Message:       "Tasks inferred successfully",
		TasksInferred: len(state.Persisted),
		Tasks:         state.Persisted,
		Errors:        state.Errors,
	})
}

// CreateTaskRequest is the request body for POST /api/v1/tasks.
type CreateTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Context     string     `json:"context,omitempty"`
	Status      string     `json:"status,omitempty"`
	Priority    int        `json:"priority,omitempty"`
	Confidence  *float64   `json:"confidence,omitempty"`
	SourceType  string     `json:"source_type,omitempty"`
	SourceID    string     `json:"source_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// handleCreateTask creates a task manually.
func (s *Server) handleCreateTask(c echo.Context) error {
	var req CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}
	if utf8.RuneCountInString(req.Title) > store.MaxTitleLength {
		return echo.NewHTTPError(http.StatusBadRequest, "title too long")
	}
	if req.Priority != 0 && (req.Priority < 1 || req.Priority > 5) {
		return echo.NewHTTPError(http.StatusBadRequest, "priority must be between 1 and 5")
	}

	status := store.StatusTodo
	if req.Status != "" {
		status = store.Status(req.Status)
		if !status.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
		}
	}

	// Manually created tasks are fully trusted.
	confidence := 100.0
	if req.Confidence != nil {
		if *req.Confidence < 0 || *req.Confidence > 100 {
			return echo.NewHTTPError(http.StatusBadRequest, "confidence must be between 0 and 100")
		}
		confidence = *req.Confidence
	}

	sourceType := req.SourceType
	if sourceType == "" {
		sourceType = "manual"
	}
	priority := req.Priority
	if priority == 0 {
		priority = 3
	}

	task := &store.Task{
		Title:       req.Title,
		Description: req.Description,
		Context:     req.Context,
		Status:      status,
		Priority:    priority,
		Confidence:  confidence,
		SourceType:  sourceType,
		SourceID:    req.SourceID,
		DueDate:     req.DueDate,
	}

	if err := s.store.CreateTask(c.Request().Context(), task); err != nil {
		s.logger.Error("failed to create task", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create task")
	}

	s.logger.Info("created task", zap.String("id", task.ID), zap.String("title", task.Title))
	return c.JSON(http.StatusCreated, task)
}

// handleListTasks lists tasks with optional status filter and limit.
func (s *Server) handleListTasks(c echo.Context) error {
	var status store.Status
	if v := c.QueryParam("status"); v != "" {
		status = store.Status(v)
		if !status.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status filter")
		}
	}

	limit := 100
	if v := c.QueryParam("limit"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &limit); err != nil || limit < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
	}

	tasks, err := s.store.ListTasks(c.Request().Context(), status, limit)
	if err != nil {
		s.logger.Error("failed to list tasks", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list tasks")
	}
	if tasks == nil {
		tasks = []store.Task{}
	}

	return c.JSON(http.StatusOK, tasks)
}

// handleGetTask returns a single task by id.
func (s *Server) handleGetTask(c echo.Context) error {
	task, err := s.store.GetTask(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "task not found")
		}
		s.logger.Error("failed to get task", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get task")
	}
	return c.JSON(http.StatusOK, task)
}

// UpdateTaskRequest is the request body for PUT /api/v1/tasks/:id.
// Only non-nil fields are applied.
type UpdateTaskRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Context     *string    `json:"context,omitempty"`
	Status      *string    `json:"status,omitempty"`
	Priority    *int       `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// handleUpdateTask applies a partial update to a task.
func (s *Server) handleUpdateTask(c echo.Context) error {
	var req UpdateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	task, err := s.store.GetTask(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "task not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get task")
	}

	if req.Title != nil {
		if *req.Title == "" || utf8.RuneCountInString(*req.Title) > store.MaxTitleLength {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid title")
		}
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Context != nil {
		task.Context = *req.Context
	}
	if req.Status != nil {
		status := store.Status(*req.Status)
		if !status.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		task.Status = status
	}
	if req.Priority != nil {
		if *req.Priority < 1 || *req.Priority > 5 {
			return echo.NewHTTPError(http.StatusBadRequest, "priority must be between 1 and 5")
		}
		task.Priority = *req.Priority
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}

	if err := s.store.UpdateTask(ctx, task); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "task not found")
		}
		s.logger.Error("failed to update task", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update task")
	}

	s.logger.Info("updated task", zap.String("id", task.ID))
	return c.JSON(http.StatusOK, task)
}

// handleDeleteTask removes a task.
func (s *Server) handleDeleteTask(c echo.Context) error {
	err := s.store.DeleteTask(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "task not found")
		}
		s.logger.Error("failed to delete task", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete task")
	}

	s.logger.Info("deleted task", zap.String("id", c.Param("id")))
	return c.NoContent(http.StatusNoContent)
}
