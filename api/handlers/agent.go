package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Arashek/ADE-stable-1.0-sub011/agent"
)

// AgentHandler serves the agent registry endpoints.
type AgentHandler struct {
	registry *agent.Registry
	logger   *zap.Logger
}

// NewAgentHandler creates an agent handler.
func NewAgentHandler(registry *agent.Registry, logger *zap.Logger) *AgentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentHandler{
		registry: registry,
		logger:   logger.With(zap.String("handler", "agent")),
	}
}

// List handles GET /v1/agents. The optional capability query parameter
// narrows the listing.
func (h *AgentHandler) List(w http.ResponseWriter, r *http.Request) {
	var agents []*agent.Agent
	if capability := r.URL.Query().Get("capability"); capability != "" {
		agents = h.registry.ListByCapability(capability)
	} else {
		agents = h.registry.List()
	}
	WriteSuccess(w, map[string]any{
		"agents": agents,
		"count":  len(agents),
	})
}

// Get handles GET /v1/agents/{id}.
func (h *AgentHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.registry.Lookup(r.PathValue("id"))
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, a)
}
