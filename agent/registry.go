package agent

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Arashek/ADE-stable-1.0-sub011/types"
)

// RegistryConfig configures the agent registry.
type RegistryConfig struct {
	// InvocationsPerSecond rate-limits outbound calls per agent.
	// Zero disables limiting.
	InvocationsPerSecond float64 `yaml:"invocations_per_second" json:"invocations_per_second"`

	// InvocationBurst is the limiter burst size (default 1).
	InvocationBurst int `yaml:"invocation_burst" json:"invocation_burst"`
}

// DefaultRegistryConfig returns the default registry configuration.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		InvocationsPerSecond: 10,
		InvocationBurst:      5,
	}
}

// Registry maps agent ids to their profiles. Registration normally happens
// only at startup; the read-write lock covers the rare dynamic case.
type Registry struct {
	agents   map[string]*Agent
	limiters map[string]*rate.Limiter
	config   RegistryConfig
	logger   *zap.Logger
	mu       sync.RWMutex
}

// NewRegistry creates an empty agent registry.
func NewRegistry(config RegistryConfig, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		agents:   make(map[string]*Agent),
		limiters: make(map[string]*rate.Limiter),
		config:   config,
		logger:   logger.With(zap.String("component", "agent_registry")),
	}
}

// Register adds an agent to the registry. Priority rank must be >= 1;
// rank 1 is the highest. A zero Weight is derived from the rank so that
// higher-ranked agents carry more voting weight.
func (r *Registry) Register(a *Agent) error {
	if a == nil || a.ID == "" {
		return types.NewValidationError("agent id is required")
	}
	if a.Priority < 1 {
		return types.NewValidationError("agent priority rank must be >= 1").WithAgent(a.ID)
	}
	if a.Evaluator == nil {
		return types.NewValidationError("agent evaluator is required").WithAgent(a.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[a.ID]; exists {
		return types.NewValidationError("agent already registered").WithAgent(a.ID)
	}

	if a.Weight <= 0 {
		a.Weight = 1.0 / float64(a.Priority)
	}
	if a.Status == "" {
		a.Status = StatusIdle
	}
	a.RegisteredAt = time.Now()

	r.agents[a.ID] = a
	if r.config.InvocationsPerSecond > 0 {
		burst := r.config.InvocationBurst
		if burst < 1 {
			burst = 1
		}
		r.limiters[a.ID] = rate.NewLimiter(rate.Limit(r.config.InvocationsPerSecond), burst)
	}

	r.logger.Info("agent registered",
		zap.String("agent_id", a.ID),
		zap.String("type", a.Type),
		zap.Int("priority", a.Priority),
		zap.Float64("weight", a.Weight),
	)
	return nil
}

// snapshot copies an agent profile for handing out. Status is the only
// field mutated after registration, so a shallow copy taken under the
// read lock is safe for callers to read or marshal concurrently.
func snapshot(a *Agent) *Agent {
	c := *a
	return &c
}

// Lookup returns a copy of the agent with the given id.
func (r *Registry) Lookup(id string) (*Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[id]
	if !ok {
		return nil, types.NewError(types.ErrAgentNotFound, "agent not registered").
			WithAgent(id).WithHTTPStatus(404)
	}
	return snapshot(a), nil
}

// ListByCapability returns copies of the agents declaring the capability,
// ordered by priority rank (highest first), then by id for determinism.
func (r *Registry) ListByCapability(capability string) []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Agent, 0)
	for _, a := range r.agents {
		if a.HasCapability(capability) {
			result = append(result, snapshot(a))
		}
	}
	SortByPriority(result)
	return result
}

// List returns copies of all registered agents ordered by priority rank
// then id.
func (r *Registry) List() []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Agent, 0, len(r.agents))
	for _, a := range r.agents {
		result = append(result, snapshot(a))
	}
	SortByPriority(result)
	return result
}

// SetStatus updates an agent's runtime status.
func (r *Registry) SetStatus(id string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.agents[id]
	if !ok {
		return types.NewError(types.ErrAgentNotFound, "agent not registered").WithAgent(id)
	}
	a.Status = status
	return nil
}

// Acquire blocks until the agent's invocation rate limiter admits one call
// or the context is done. A no-op when limiting is disabled.
func (r *Registry) Acquire(ctx context.Context, id string) error {
	r.mu.RLock()
	limiter, ok := r.limiters[id]
	r.mu.RUnlock()

	if !ok {
		return nil
	}
	return limiter.Wait(ctx)
}

// SortByPriority orders agents by priority rank (highest first), breaking
// ties by ascending id.
func SortByPriority(agents []*Agent) {
	sort.Slice(agents, func(i, j int) bool {
		if agents[i].Priority != agents[j].Priority {
			return agents[i].Priority < agents[j].Priority
		}
		return agents[i].ID < agents[j].ID
	})
}
