package coordination

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/Arashek/ADE-stable-1.0-sub011/agent"
	"github.com/Arashek/ADE-stable-1.0-sub011/task"
	"github.com/Arashek/ADE-stable-1.0-sub011/types"
)

// iterativeStrategy repeats parallel rounds, feeding each round's resolved
// values back into the next, until two consecutive rounds agree or the
// round budget runs out. An exhausted run still completes, but its
// confidence is capped below the stable threshold and Converged is false.
type iterativeStrategy struct {
	c *Coordinator
}

func (s *iterativeStrategy) Name() string { return task.StrategyIterative }

func (s *iterativeStrategy) Execute(ctx context.Context, t *task.Task, agents []*agent.Agent) (*task.Result, error) {
	start := time.Now()
	cfg := s.c.config

	result := &task.Result{
		TaskID:   t.ID,
		Strategy: s.Name(),
	}

	var prev map[string]any
	var outcome *roundOutcome

	for round := 1; round <= cfg.MaxRounds; round++ {
		// Cancellation is checked between rounds, never mid-round.
		if err := ctx.Err(); err != nil {
			return nil, types.NewError(types.ErrTaskCancelled, "task cancelled between rounds").
				WithTask(t.ID).WithCause(err)
		}

		var err error
		outcome, err = s.c.runParallelRound(ctx, t, agents, round, prev)
		if err != nil {
			return nil, err
		}
		result.Rounds = round
		result.Conflicts = append(result.Conflicts, outcome.conflicts...)

		if prev != nil && valuesEqual(prev, outcome.values) {
			result.Converged = true
			s.c.logger.Info("iterative execution converged",
				zap.String("task_id", t.ID),
				zap.Int("rounds", round),
			)
			break
		}
		prev = outcome.values
	}

	result.Values = outcome.values
	result.Contributions = outcome.contributions
	result.Confidence = meanOrDefault(outcome.confidences, 1.0)

	if !result.Converged {
		// Exhausted without convergence: callers can tell this apart from
		// a converged run by the capped confidence and the flag.
		result.Confidence = math.Min(result.Confidence, cfg.StableConfidence-0.05)
		if result.Confidence < 0 {
			result.Confidence = 0
		}
		s.c.logger.Warn("iterative execution exhausted round budget",
			zap.String("task_id", t.ID),
			zap.Int("rounds", result.Rounds),
		)
	}

	result.Duration = time.Since(start)
	result.CompletedAt = time.Now()
	return result, nil
}

func valuesEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || canonical(v) != canonical(w) {
			return false
		}
	}
	return true
}
