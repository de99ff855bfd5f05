package coordination

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Arashek/ADE-stable-1.0-sub011/agent"
	"github.com/Arashek/ADE-stable-1.0-sub011/internal/metrics"
	"github.com/Arashek/ADE-stable-1.0-sub011/types"
)

// invoker fans a task context out to a set of agents and collects whatever
// comes back before the round deadline. Timeouts and agent errors are
// absorbed here; callers only see the evaluations that arrived plus the
// per-agent errors for logging and quorum checks.
type invoker struct {
	registry *agent.Registry
	timeout  time.Duration
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// invokeOne calls a single agent with rate limiting, status bookkeeping and
// the round deadline applied.
func (in *invoker) invokeOne(ctx context.Context, a *agent.Agent, tc *agent.TaskContext) (*agent.Evaluation, error) {
	if err := in.registry.Acquire(ctx, a.ID); err != nil {
		return nil, types.NewError(types.ErrAgentTimeout, "rate limit wait aborted").
			WithAgent(a.ID).WithCause(err)
	}

	_ = in.registry.SetStatus(a.ID, agent.StatusBusy)
	defer func() { _ = in.registry.SetStatus(a.ID, agent.StatusIdle) }()

	start := time.Now()
	eval, err := a.Evaluator.Evaluate(ctx, tc)
	duration := time.Since(start)

	outcome := "ok"
	switch {
	case err != nil && ctx.Err() != nil:
		outcome = "timeout"
		err = types.NewError(types.ErrAgentTimeout, "agent round deadline exceeded").
			WithAgent(a.ID).WithCause(ctx.Err()).WithRetryable(true)
	case err != nil:
		outcome = "error"
		if types.GetErrorCode(err) == "" {
			err = types.NewError(types.ErrAgentInvocation, "agent evaluation failed").
				WithAgent(a.ID).WithCause(err)
		}
	case eval == nil:
		outcome = "error"
		err = types.NewError(types.ErrAgentInvocation, "agent returned empty evaluation").WithAgent(a.ID)
	}
	if in.metrics != nil {
		in.metrics.RecordAgentInvocation(a.ID, a.Type, outcome, duration)
	}
	if err != nil {
		in.logger.Warn("agent invocation failed",
			zap.String("agent_id", a.ID),
			zap.String("outcome", outcome),
			zap.Error(err),
		)
		return nil, err
	}
	if eval.AgentID == "" {
		eval.AgentID = a.ID
	}
	return eval, nil
}

// runRound invokes all agents concurrently against the same context and
// waits for everyone to return or the round timeout to elapse. The returned
// slice preserves the input agent order with failed slots removed.
func (in *invoker) runRound(ctx context.Context, agents []*agent.Agent, tc *agent.TaskContext) ([]*agent.Evaluation, []error) {
	roundCtx, cancel := context.WithTimeout(ctx, in.timeout)
	defer cancel()

	evals := make([]*agent.Evaluation, len(agents))
	errs := make([]error, len(agents))

	var g errgroup.Group
	for i, a := range agents {
		g.Go(func() error {
			evals[i], errs[i] = in.invokeOne(roundCtx, a, tc)
			return nil
		})
	}
	_ = g.Wait()

	ok := make([]*agent.Evaluation, 0, len(agents))
	failed := make([]error, 0)
	for i := range agents {
		if errs[i] != nil {
			failed = append(failed, errs[i])
			continue
		}
		ok = append(ok, evals[i])
	}
	return ok, failed
}
