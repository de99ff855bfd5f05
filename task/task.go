package task

import (
	"time"

	"github.com/Arashek/ADE-stable-1.0-sub011/types"
)

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal returns true once the task can no longer change state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Priority is the scheduling priority band of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Rank orders priority bands; higher is scheduled first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether the priority is a known band.
func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// Strategy names accepted on a task.
const (
	StrategySequential = "sequential"
	StrategyParallel   = "parallel"
	StrategyIterative  = "iterative"
	StrategyConsensus  = "consensus"
)

// KnownStrategy reports whether the name is a recognized strategy.
func KnownStrategy(name string) bool {
	switch name {
	case StrategySequential, StrategyParallel, StrategyIterative, StrategyConsensus:
		return true
	}
	return false
}

// DecisionSpec names one bounded-option decision point for consensus tasks.
type DecisionSpec struct {
	Key         string   `json:"key"`
	Description string   `json:"description,omitempty"`
	Options     []string `json:"options"`
}

// Task is one unit of work handed to the coordinator.
type Task struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Type        string   `json:"type"`
	Strategy    string   `json:"strategy,omitempty"`
	Priority    Priority `json:"priority"`

	Dependencies         []string       `json:"dependencies,omitempty"`
	RequiredCapabilities []string       `json:"required_capabilities,omitempty"`
	AgentOrder           []string       `json:"agent_order,omitempty"`
	Input                map[string]any `json:"input,omitempty"`
	Decisions            []DecisionSpec `json:"decisions,omitempty"`

	Status        Status     `json:"status"`
	FailureReason string     `json:"failure_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`

	Result *Result `json:"result,omitempty"`
}

// Validate checks the request-shaped fields of a task before scheduling.
func (t *Task) Validate() error {
	if t.Title == "" {
		return types.NewValidationError("task title is required")
	}
	if t.Type == "" {
		return types.NewValidationError("task type is required")
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if !t.Priority.Valid() {
		return types.NewValidationError("unknown task priority: " + string(t.Priority))
	}
	if t.Strategy != "" && !KnownStrategy(t.Strategy) {
		return types.NewValidationError("unknown strategy: " + t.Strategy)
	}
	if t.Strategy == StrategyConsensus {
		if len(t.Decisions) == 0 {
			return types.NewValidationError("consensus tasks require at least one decision point")
		}
		for _, d := range t.Decisions {
			if d.Key == "" {
				return types.NewValidationError("decision key is required")
			}
			if len(d.Options) < 2 {
				return types.NewValidationError("decision " + d.Key + " needs at least two options")
			}
		}
	}
	seen := make(map[string]bool, len(t.Dependencies))
	for _, dep := range t.Dependencies {
		if dep == "" {
			return types.NewValidationError("empty dependency id")
		}
		if dep == t.ID {
			return types.NewError(types.ErrDependencyCycle, "task depends on itself").WithTask(t.ID)
		}
		if seen[dep] {
			return types.NewValidationError("duplicate dependency: " + dep)
		}
		seen[dep] = true
	}
	return nil
}

// Clone returns a shallow-safe copy for handing outside the manager's lock.
func (t *Task) Clone() *Task {
	cp := *t
	cp.Dependencies = append([]string(nil), t.Dependencies...)
	cp.RequiredCapabilities = append([]string(nil), t.RequiredCapabilities...)
	cp.AgentOrder = append([]string(nil), t.AgentOrder...)
	return &cp
}
