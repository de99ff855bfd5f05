package agent

import (
	"context"
	"time"
)

// Status represents the runtime state of an agent.
type Status string

const (
	StatusIdle   Status = "idle"
	StatusActive Status = "active"
	StatusBusy   Status = "busy"
	StatusError  Status = "error"
)

// Agent describes one registered agent: identity, capability set, priority
// rank and the handle used to invoke it. Priority is a total order used for
// conflict tie-breaking; rank 1 is the highest. Weight is the voting weight
// used by weighted resolution; when zero it is derived from the rank at
// registration time.
type Agent struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Capabilities []string  `json:"capabilities"`
	Priority     int       `json:"priority"`
	Weight       float64   `json:"weight"`
	Status       Status    `json:"status"`
	RegisteredAt time.Time `json:"registered_at"`

	// Evaluator is the invocation handle. Not serialized.
	Evaluator Evaluator `json:"-"`
}

// HasCapability reports whether the agent declares the given capability.
func (a *Agent) HasCapability(capability string) bool {
	for _, c := range a.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// Evaluator is the capability interface every agent black box exposes.
// Implementations must respect the caller-supplied context deadline.
type Evaluator interface {
	Evaluate(ctx context.Context, tc *TaskContext) (*Evaluation, error)
}

// EvaluatorFunc adapts a function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, tc *TaskContext) (*Evaluation, error)

// Evaluate implements Evaluator.
func (f EvaluatorFunc) Evaluate(ctx context.Context, tc *TaskContext) (*Evaluation, error) {
	return f(ctx, tc)
}

// TaskContext is the input handed to an agent for one evaluation round.
type TaskContext struct {
	TaskID      string         `json:"task_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Type        string         `json:"type"`
	Round       int            `json:"round"`
	Input       map[string]any `json:"input,omitempty"`

	// PriorOutputs carries earlier stage summaries (sequential) in
	// invocation order.
	PriorOutputs []StageOutput `json:"prior_outputs,omitempty"`

	// ResolvedValues carries the previous round's resolved attribute
	// values (iterative).
	ResolvedValues map[string]any `json:"resolved_values,omitempty"`

	// Decision is set when the agent is asked to vote on a bounded
	// option set rather than evaluate the whole task.
	Decision *DecisionContext `json:"decision,omitempty"`
}

// StageOutput is one earlier agent's contribution visible to later stages.
type StageOutput struct {
	AgentID string `json:"agent_id"`
	Summary string `json:"summary"`
}

// DecisionContext describes a consensus decision point. PriorShares is the
// anonymized weighted vote distribution of the previous round, present only
// in the revision round.
type DecisionContext struct {
	Key         string             `json:"key"`
	Description string             `json:"description"`
	Options     []string           `json:"options"`
	PriorShares map[string]float64 `json:"prior_shares,omitempty"`
}

// Opinion is one agent's contribution for one decision attribute.
type Opinion struct {
	AgentID    string  `json:"agent_id"`
	Attribute  string  `json:"attribute"`
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`

	// Blocking marks an opinion that must halt sequential execution
	// (e.g. a security veto).
	Blocking bool `json:"blocking,omitempty"`
}

// Vote is an agent's choice on a consensus decision point.
type Vote struct {
	AgentID    string  `json:"agent_id"`
	Option     string  `json:"option"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// Evaluation is the full output of one agent invocation.
type Evaluation struct {
	AgentID  string         `json:"agent_id"`
	Summary  string         `json:"summary,omitempty"`
	Opinions []Opinion      `json:"opinions,omitempty"`
	Vote     *Vote          `json:"vote,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// BlockingOpinion returns the first blocking opinion, if any.
func (e *Evaluation) BlockingOpinion() *Opinion {
	for i := range e.Opinions {
		if e.Opinions[i].Blocking {
			return &e.Opinions[i]
		}
	}
	return nil
}
