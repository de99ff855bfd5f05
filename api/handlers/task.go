package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Arashek/ADE-stable-1.0-sub011/task"
)

// CreateTaskRequest is the POST /v1/tasks payload.
type CreateTaskRequest struct {
	ID                   string              `json:"id,omitempty"`
	Title                string              `json:"title"`
	Description          string              `json:"description,omitempty"`
	Type                 string              `json:"type"`
	Strategy             string              `json:"strategy,omitempty"`
	Priority             task.Priority       `json:"priority,omitempty"`
	Dependencies         []string            `json:"dependencies,omitempty"`
	RequiredCapabilities []string            `json:"required_capabilities,omitempty"`
	AgentOrder           []string            `json:"agent_order,omitempty"`
	Input                map[string]any      `json:"input,omitempty"`
	Decisions            []task.DecisionSpec `json:"decisions,omitempty"`
}

// TaskHandler serves the task lifecycle endpoints.
type TaskHandler struct {
	manager *task.Manager
	logger  *zap.Logger
}

// NewTaskHandler creates a task handler.
func NewTaskHandler(manager *task.Manager, logger *zap.Logger) *TaskHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskHandler{
		manager: manager,
		logger:  logger.With(zap.String("handler", "task")),
	}
}

// Create handles POST /v1/tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	created, err := h.manager.Create(r.Context(), &task.Task{
		ID:                   req.ID,
		Title:                req.Title,
		Description:          req.Description,
		Type:                 req.Type,
		Strategy:             req.Strategy,
		Priority:             req.Priority,
		Dependencies:         req.Dependencies,
		RequiredCapabilities: req.RequiredCapabilities,
		AgentOrder:           req.AgentOrder,
		Input:                req.Input,
		Decisions:            req.Decisions,
	})
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteStatus(w, http.StatusAccepted, created)
}

// Get handles GET /v1/tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.manager.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, t)
}

// Status handles GET /v1/tasks/{id}/status.
func (h *TaskHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	status, err := h.manager.Status(r.Context(), id)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, map[string]any{
		"task_id": id,
		"status":  status,
	})
}

// Result handles GET /v1/tasks/{id}/result. The result only exists once the
// task completes; until then this returns RESULT_NOT_READY.
func (h *TaskHandler) Result(w http.ResponseWriter, r *http.Request) {
	result, err := h.manager.TaskResult(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, result)
}

// Cancel handles POST /v1/tasks/{id}/cancel.
func (h *TaskHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.manager.Cancel(r.Context(), id); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteStatus(w, http.StatusAccepted, map[string]any{
		"task_id":   id,
		"cancelled": true,
	})
}

// Analytics handles GET /v1/analytics.
func (h *TaskHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.manager.GetAnalytics(r.Context())
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, a)
}
