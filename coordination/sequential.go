package coordination

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Arashek/ADE-stable-1.0-sub011/agent"
	"github.com/Arashek/ADE-stable-1.0-sub011/task"
	"github.com/Arashek/ADE-stable-1.0-sub011/types"
)

// sequentialStrategy invokes agents one after another in the caller's
// order; each stage sees the previous stages' outputs. Fail-fast: the first
// agent error aborts the task, and a blocking opinion halts execution with
// the blocking reason.
type sequentialStrategy struct {
	c *Coordinator
}

func (s *sequentialStrategy) Name() string { return task.StrategySequential }

func (s *sequentialStrategy) Execute(ctx context.Context, t *task.Task, agents []*agent.Agent) (*task.Result, error) {
	start := time.Now()
	result := &task.Result{
		TaskID:    t.ID,
		Strategy:  s.Name(),
		Values:    make(map[string]any),
		Converged: true,
	}

	var prior []agent.StageOutput
	var finalConfidences []float64

	for i, a := range agents {
		// Cancellation is checked before dispatching each stage.
		if err := ctx.Err(); err != nil {
			return nil, types.NewError(types.ErrTaskCancelled, "task cancelled between stages").
				WithTask(t.ID).WithCause(err)
		}

		tc := baseContext(t, i+1)
		tc.PriorOutputs = prior

		stageCtx, cancel := context.WithTimeout(ctx, s.c.config.RoundTimeout)
		eval, err := s.c.invoker.invokeOne(stageCtx, a, tc)
		cancel()
		if err != nil {
			return nil, types.NewError(types.ErrAgentInvocation, "sequential stage failed").
				WithTask(t.ID).WithAgent(a.ID).WithCause(err)
		}

		if blocking := eval.BlockingOpinion(); blocking != nil {
			s.c.logger.Warn("sequential execution halted by blocking opinion",
				zap.String("task_id", t.ID),
				zap.String("agent_id", a.ID),
				zap.String("attribute", blocking.Attribute),
			)
			return nil, types.NewError(types.ErrBlockingOpinion,
				"blocked by "+a.ID+": "+blocking.Reasoning).
				WithTask(t.ID).WithAgent(a.ID)
		}

		// Each stage supersedes the last; the final agent is authoritative.
		finalConfidences = finalConfidences[:0]
		for _, op := range eval.Opinions {
			result.Values[op.Attribute] = op.Value
			finalConfidences = append(finalConfidences, op.Confidence)
		}
		prior = append(prior, agent.StageOutput{AgentID: a.ID, Summary: eval.Summary})
		result.Rounds = i + 1
	}

	result.Contributions = prior
	result.Confidence = meanOrDefault(finalConfidences, 1.0)
	result.Duration = time.Since(start)
	result.CompletedAt = time.Now()
	return result, nil
}
