package coordination

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Arashek/ADE-stable-1.0-sub011/agent"
	"github.com/Arashek/ADE-stable-1.0-sub011/task"
	"github.com/Arashek/ADE-stable-1.0-sub011/types"
)

// parallelStrategy invokes all agents concurrently against the same input.
// Timed-out or errored agents are omitted from resolution; the task fails
// only when nobody responds.
type parallelStrategy struct {
	c *Coordinator
}

func (s *parallelStrategy) Name() string { return task.StrategyParallel }

// roundOutcome is the merged product of one parallel round.
type roundOutcome struct {
	values        map[string]any
	conflicts     []task.ConflictResolution
	contributions []agent.StageOutput
	confidences   []float64
}

func (s *parallelStrategy) Execute(ctx context.Context, t *task.Task, agents []*agent.Agent) (*task.Result, error) {
	start := time.Now()

	outcome, err := s.c.runParallelRound(ctx, t, agents, 1, nil)
	if err != nil {
		return nil, err
	}

	return &task.Result{
		TaskID:        t.ID,
		Strategy:      s.Name(),
		Values:        outcome.values,
		Contributions: outcome.contributions,
		Conflicts:     outcome.conflicts,
		Confidence:    meanOrDefault(outcome.confidences, 1.0),
		Converged:     true,
		Rounds:        1,
		Duration:      time.Since(start),
		CompletedAt:   time.Now(),
	}, nil
}

// runParallelRound fans the task out to all agents, groups the returned
// opinions by attribute and routes every attribute with more than one
// distinct value through the conflict resolver.
func (c *Coordinator) runParallelRound(ctx context.Context, t *task.Task, agents []*agent.Agent, round int, resolved map[string]any) (*roundOutcome, error) {
	tc := baseContext(t, round)
	tc.ResolvedValues = resolved

	evals, errs := c.invoker.runRound(ctx, agents, tc)
	if len(evals) == 0 {
		return nil, types.NewError(types.ErrNoAgentsResponded, "no agents responded in round").
			WithTask(t.ID).WithCause(errors.Join(errs...))
	}
	if len(errs) > 0 {
		c.logger.Debug("round proceeded with partial quorum",
			zap.String("task_id", t.ID),
			zap.Int("responded", len(evals)),
			zap.Int("failed", len(errs)),
		)
	}

	byAttr := make(map[string]map[string]agent.Opinion)
	attrConfidence := make(map[string][]float64)
	out := &roundOutcome{values: make(map[string]any)}

	for _, eval := range evals {
		out.contributions = append(out.contributions, agent.StageOutput{
			AgentID: eval.AgentID,
			Summary: eval.Summary,
		})
		for _, op := range eval.Opinions {
			if op.AgentID == "" {
				op.AgentID = eval.AgentID
			}
			if byAttr[op.Attribute] == nil {
				byAttr[op.Attribute] = make(map[string]agent.Opinion)
			}
			byAttr[op.Attribute][op.AgentID] = op
			attrConfidence[op.Attribute] = append(attrConfidence[op.Attribute], op.Confidence)
		}
	}

	attrs := make([]string, 0, len(byAttr))
	for attr := range byAttr {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)

	for _, attr := range attrs {
		opinions := byAttr[attr]
		if distinctValueCount(opinions) <= 1 {
			for _, op := range opinions {
				out.values[attr] = op.Value
				break
			}
			out.confidences = append(out.confidences, meanOrDefault(attrConfidence[attr], 1.0))
			continue
		}

		res := c.resolver.Resolve(attr, opinions)
		out.conflicts = append(out.conflicts, *res)
		out.values[attr] = res.SelectedValue
		out.confidences = append(out.confidences, res.Confidence)
		if c.metrics != nil {
			c.metrics.RecordConflict(string(res.Method))
		}
	}
	return out, nil
}

func distinctValueCount(opinions map[string]agent.Opinion) int {
	seen := make(map[string]bool)
	for _, op := range opinions {
		seen[canonical(op.Value)] = true
	}
	return len(seen)
}
