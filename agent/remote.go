package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Arashek/ADE-stable-1.0-sub011/types"
)

// RemoteEvaluator invokes an agent black box over HTTP. The task context is
// POSTed as JSON and the response body is decoded as an Evaluation. The
// caller's context deadline is propagated to the request.
type RemoteEvaluator struct {
	agentID  string
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

// NewRemoteEvaluator creates an evaluator calling the given endpoint.
func NewRemoteEvaluator(agentID, endpoint string, timeout time.Duration, logger *zap.Logger) *RemoteEvaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteEvaluator{
		agentID:  agentID,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With(zap.String("component", "remote_evaluator"), zap.String("agent_id", agentID)),
	}
}

// Evaluate implements Evaluator.
func (e *RemoteEvaluator) Evaluate(ctx context.Context, tc *TaskContext) (*Evaluation, error) {
	body, err := json.Marshal(tc)
	if err != nil {
		return nil, types.NewError(types.ErrAgentInvocation, "encode task context").
			WithAgent(e.agentID).WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, types.NewError(types.ErrAgentInvocation, "build request").
			WithAgent(e.agentID).WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, types.NewError(types.ErrAgentTimeout, "agent evaluation deadline exceeded").
				WithAgent(e.agentID).WithCause(ctx.Err()).WithRetryable(true)
		}
		return nil, types.NewError(types.ErrAgentInvocation, "agent endpoint unreachable").
			WithAgent(e.agentID).WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewError(types.ErrAgentInvocation,
			fmt.Sprintf("agent returned status %d", resp.StatusCode)).
			WithAgent(e.agentID).WithRetryable(resp.StatusCode >= 500)
	}

	var eval Evaluation
	if err := json.NewDecoder(resp.Body).Decode(&eval); err != nil {
		return nil, types.NewError(types.ErrAgentInvocation, "decode evaluation").
			WithAgent(e.agentID).WithCause(err)
	}
	if eval.AgentID == "" {
		eval.AgentID = e.agentID
	}

	e.logger.Debug("remote evaluation completed",
		zap.String("task_id", tc.TaskID),
		zap.Duration("duration", time.Since(start)),
		zap.Int("opinions", len(eval.Opinions)),
	)
	return &eval, nil
}
