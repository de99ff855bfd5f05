package coordination

import (
	"context"

	"github.com/Arashek/ADE-stable-1.0-sub011/agent"
	"github.com/Arashek/ADE-stable-1.0-sub011/task"
)

// Strategy encapsulates how a set of agents is invoked for one task and how
// their outputs are merged into a single result. One concrete type per
// collaboration pattern; the coordinator picks one per task.
type Strategy interface {
	Name() string
	Execute(ctx context.Context, t *task.Task, agents []*agent.Agent) (*task.Result, error)
}

// newStrategy is the factory keyed on the strategy name. Unknown names fall
// back to parallel.
func (c *Coordinator) newStrategy(name string) Strategy {
	switch name {
	case task.StrategySequential:
		return &sequentialStrategy{c: c}
	case task.StrategyIterative:
		return &iterativeStrategy{c: c}
	case task.StrategyConsensus:
		return &consensusStrategy{c: c}
	case task.StrategyParallel:
		return &parallelStrategy{c: c}
	default:
		return &parallelStrategy{c: c}
	}
}

// baseContext builds the task context common to all strategies.
func baseContext(t *task.Task, round int) *agent.TaskContext {
	return &agent.TaskContext{
		TaskID:      t.ID,
		Title:       t.Title,
		Description: t.Description,
		Type:        t.Type,
		Round:       round,
		Input:       t.Input,
	}
}

// meanOrDefault averages the values, or returns def for an empty slice.
func meanOrDefault(vals []float64, def float64) float64 {
	if len(vals) == 0 {
		return def
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
