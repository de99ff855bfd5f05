package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Arashek/ADE-stable-1.0-sub011/persistence"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	store   persistence.Store
	started time.Time
	logger  *zap.Logger
}

// NewHealthHandler creates a health handler. store may be nil.
func NewHealthHandler(store persistence.Store, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{
		store:   store,
		started: time.Now(),
		logger:  logger.With(zap.String("handler", "health")),
	}
}

// Live handles GET /healthz.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, map[string]any{
		"status": "ok",
		"uptime": time.Since(h.started).String(),
	})
}

// Ready handles GET /readyz. Readiness fails when the task store is
// unreachable.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			h.logger.Warn("readiness check failed", zap.Error(err))
			WriteJSON(w, http.StatusServiceUnavailable, Response{
				Success: false,
				Error: &ErrorInfo{
					Code:    "STORE_UNAVAILABLE",
					Message: "task store is unreachable",
				},
				Timestamp: time.Now(),
			})
			return
		}
	}
	WriteSuccess(w, map[string]any{"status": "ready"})
}
