package coordination

import (
	"context"
	"time"

	"github.com/Arashek/ADE-stable-1.0-sub011/agent"
	"github.com/Arashek/ADE-stable-1.0-sub011/task"
	"github.com/Arashek/ADE-stable-1.0-sub011/types"
)

// consensusStrategy resolves each of the task's named decision points with
// the consensus builder. Forced resolutions still complete the task; only a
// round with zero ballots fails it.
type consensusStrategy struct {
	c *Coordinator
}

func (s *consensusStrategy) Name() string { return task.StrategyConsensus }

func (s *consensusStrategy) Execute(ctx context.Context, t *task.Task, agents []*agent.Agent) (*task.Result, error) {
	start := time.Now()

	result := &task.Result{
		TaskID:    t.ID,
		Strategy:  s.Name(),
		Values:    make(map[string]any),
		Converged: true,
	}

	var confidences []float64
	base := baseContext(t, 1)

	for _, spec := range t.Decisions {
		if err := ctx.Err(); err != nil {
			return nil, types.NewError(types.ErrTaskCancelled, "task cancelled between decisions").
				WithTask(t.ID).WithCause(err)
		}

		decision, err := s.c.builder.Decide(ctx, spec, agents, base)
		if err != nil {
			return nil, err
		}
		result.Decisions = append(result.Decisions, *decision)
		result.Values[decision.Key] = decision.SelectedOption
		confidences = append(confidences, decision.Confidence)
		if decision.Rounds > result.Rounds {
			result.Rounds = decision.Rounds
		}
		if s.c.metrics != nil {
			s.c.metrics.RecordConsensus(decision.Rounds, decision.Forced)
		}
	}

	result.Confidence = meanOrDefault(confidences, 1.0)
	result.Duration = time.Since(start)
	result.CompletedAt = time.Now()
	return result, nil
}
