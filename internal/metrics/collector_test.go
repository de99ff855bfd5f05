package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCollectorRecordsAgentInvocations(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := NewCollectorWithRegistry("test", reg, zap.NewNop())

	c.RecordAgentInvocation("agent-a", "security", "ok", 120*time.Millisecond)
	c.RecordAgentInvocation("agent-a", "security", "ok", 80*time.Millisecond)
	c.RecordAgentInvocation("agent-b", "style", "timeout", time.Second)

	assert.InDelta(t, 2.0, testutil.ToFloat64(
		c.agentInvocationsTotal.WithLabelValues("agent-a", "security", "ok")), 0.001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(
		c.agentInvocationsTotal.WithLabelValues("agent-b", "style", "timeout")), 0.001)
}

func TestCollectorRecordsConflictsAndConsensus(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := NewCollectorWithRegistry("test", reg, zap.NewNop())

	c.RecordConflict("weighted_vote")
	c.RecordConflict("weighted_vote")
	c.RecordConflict("priority_override")
	c.RecordConsensus(1, false)
	c.RecordConsensus(2, true)

	assert.InDelta(t, 2.0, testutil.ToFloat64(
		c.conflictsTotal.WithLabelValues("weighted_vote")), 0.001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(
		c.conflictsTotal.WithLabelValues("priority_override")), 0.001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(
		c.consensusRoundsTotal.WithLabelValues("1", "false")), 0.001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(
		c.consensusRoundsTotal.WithLabelValues("2", "true")), 0.001)
}

func TestCollectorTracksInFlightTasks(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := NewCollectorWithRegistry("test", reg, zap.NewNop())

	c.TaskStarted()
	c.TaskStarted()
	assert.InDelta(t, 2.0, testutil.ToFloat64(c.tasksInFlight), 0.001)

	c.TaskFinished()
	assert.InDelta(t, 1.0, testutil.ToFloat64(c.tasksInFlight), 0.001)
}

func TestCollectorRegistersAllMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := NewCollectorWithRegistry("test", reg, zap.NewNop())

	c.RecordHTTPRequest("POST", "/v1/tasks", 202, 5*time.Millisecond)
	c.RecordTaskCreated("high", "parallel")
	c.RecordTaskTransition("scheduled", "running")
	c.RecordTaskExecution("parallel", "completed", 300*time.Millisecond)
	c.RecordStoreOperation("memory", "save", time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"test_http_requests_total",
		"test_tasks_created_total",
		"test_task_transitions_total",
		"test_task_executions_total",
		"test_store_operation_duration_seconds",
	} {
		assert.True(t, names[want], "missing metric %s", want)
	}
}

func TestStatusCodeBuckets(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2xx", statusCode(202))
	assert.Equal(t, "4xx", statusCode(404))
	assert.Equal(t, "5xx", statusCode(503))
	assert.Equal(t, "unknown", statusCode(0))
}
