package agent

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Arashek/ADE-stable-1.0-sub011/types"
)

func noopEvaluator() Evaluator {
	return EvaluatorFunc(func(ctx context.Context, tc *TaskContext) (*Evaluation, error) {
		return &Evaluation{}, nil
	})
}

func newTestAgent(id string, priority int, caps ...string) *Agent {
	return &Agent{
		ID:           id,
		Type:         id,
		Capabilities: caps,
		Priority:     priority,
		Evaluator:    noopEvaluator(),
	}
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	t.Parallel()
	r := NewRegistry(DefaultRegistryConfig(), zap.NewNop())

	require.NoError(t, r.Register(newTestAgent("security", 1, "review")))

	a, err := r.Lookup("security")
	require.NoError(t, err)
	assert.Equal(t, "security", a.ID)
	assert.Equal(t, StatusIdle, a.Status)
	assert.InDelta(t, 1.0, a.Weight, 1e-9, "weight derived from rank 1")
}

func TestRegistry_LookupUnknown(t *testing.T) {
	t.Parallel()
	r := NewRegistry(DefaultRegistryConfig(), zap.NewNop())

	_, err := r.Lookup("ghost")
	require.Error(t, err)
	assert.Equal(t, types.ErrAgentNotFound, types.GetErrorCode(err))
}

func TestRegistry_RegisterValidation(t *testing.T) {
	t.Parallel()
	r := NewRegistry(DefaultRegistryConfig(), zap.NewNop())

	tests := []struct {
		name  string
		agent *Agent
	}{
		{"missing id", &Agent{Priority: 1, Evaluator: noopEvaluator()}},
		{"zero priority", &Agent{ID: "a", Priority: 0, Evaluator: noopEvaluator()}},
		{"missing evaluator", &Agent{ID: "a", Priority: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Register(tt.agent)
			require.Error(t, err)
			assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
		})
	}
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	t.Parallel()
	r := NewRegistry(DefaultRegistryConfig(), zap.NewNop())
	require.NoError(t, r.Register(newTestAgent("design", 5)))

	err := r.Register(newTestAgent("design", 5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistry_ListByCapability_PriorityOrder(t *testing.T) {
	t.Parallel()
	r := NewRegistry(DefaultRegistryConfig(), zap.NewNop())
	require.NoError(t, r.Register(newTestAgent("performance", 4, "review")))
	require.NoError(t, r.Register(newTestAgent("security", 1, "review")))
	require.NoError(t, r.Register(newTestAgent("architecture", 2, "review")))
	require.NoError(t, r.Register(newTestAgent("design", 5, "layout")))

	got := r.ListByCapability("review")
	require.Len(t, got, 3)
	assert.Equal(t, "security", got[0].ID)
	assert.Equal(t, "architecture", got[1].ID)
	assert.Equal(t, "performance", got[2].ID)

	assert.Empty(t, r.ListByCapability("nonexistent"))
}

func TestRegistry_List_TieBreakByID(t *testing.T) {
	t.Parallel()
	r := NewRegistry(DefaultRegistryConfig(), zap.NewNop())
	require.NoError(t, r.Register(newTestAgent("b-agent", 2)))
	require.NoError(t, r.Register(newTestAgent("a-agent", 2)))

	got := r.List()
	require.Len(t, got, 2)
	assert.Equal(t, "a-agent", got[0].ID)
	assert.Equal(t, "b-agent", got[1].ID)
}

func TestRegistry_SetStatus(t *testing.T) {
	t.Parallel()
	r := NewRegistry(DefaultRegistryConfig(), zap.NewNop())
	require.NoError(t, r.Register(newTestAgent("validation", 3)))

	require.NoError(t, r.SetStatus("validation", StatusBusy))
	a, err := r.Lookup("validation")
	require.NoError(t, err)
	assert.Equal(t, StatusBusy, a.Status)

	assert.Error(t, r.SetStatus("ghost", StatusBusy))
}

func TestRegistry_Acquire(t *testing.T) {
	t.Parallel()
	cfg := RegistryConfig{InvocationsPerSecond: 1000, InvocationBurst: 1}
	r := NewRegistry(cfg, zap.NewNop())
	require.NoError(t, r.Register(newTestAgent("security", 1)))

	// Limited agent admits a call; unknown agents are a no-op.
	require.NoError(t, r.Acquire(context.Background(), "security"))
	require.NoError(t, r.Acquire(context.Background(), "ghost"))
}

func TestRegistry_Acquire_Disabled(t *testing.T) {
	t.Parallel()
	r := NewRegistry(RegistryConfig{}, zap.NewNop())
	require.NoError(t, r.Register(newTestAgent("security", 1)))
	require.NoError(t, r.Acquire(context.Background(), "security"))
}

func TestRegistry_SnapshotsAreDetached(t *testing.T) {
	t.Parallel()
	r := NewRegistry(DefaultRegistryConfig(), zap.NewNop())
	require.NoError(t, r.Register(newTestAgent("security", 1, "review")))

	before, err := r.Lookup("security")
	require.NoError(t, err)
	require.NoError(t, r.SetStatus("security", StatusBusy))

	// A handed-out profile is a copy; only a fresh read sees the update.
	assert.Equal(t, StatusIdle, before.Status)
	after, err := r.Lookup("security")
	require.NoError(t, err)
	assert.Equal(t, StatusBusy, after.Status)

	// Mutating a listed copy never reaches the registry.
	r.List()[0].Status = StatusError
	after, err = r.Lookup("security")
	require.NoError(t, err)
	assert.Equal(t, StatusBusy, after.Status)
}

func TestRegistry_ConcurrentStatusAndList(t *testing.T) {
	t.Parallel()
	r := NewRegistry(DefaultRegistryConfig(), zap.NewNop())
	require.NoError(t, r.Register(newTestAgent("security", 1, "review")))
	require.NoError(t, r.Register(newTestAgent("performance", 2, "review")))

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			status := StatusBusy
			if i%2 == 0 {
				status = StatusIdle
			}
			assert.NoError(t, r.SetStatus("security", status))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_, err := json.Marshal(r.List())
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			a, err := r.Lookup("security")
			assert.NoError(t, err)
			_ = a.Status
			_ = r.ListByCapability("review")
		}
	}()
	wg.Wait()
}

func TestAgent_HasCapability(t *testing.T) {
	t.Parallel()
	a := newTestAgent("security", 1, "review", "audit")
	assert.True(t, a.HasCapability("audit"))
	assert.False(t, a.HasCapability("deploy"))
}

func TestEvaluation_BlockingOpinion(t *testing.T) {
	t.Parallel()
	e := &Evaluation{Opinions: []Opinion{
		{Attribute: "storage", Value: "postgres"},
		{Attribute: "auth", Value: "none", Blocking: true, Reasoning: "unauthenticated admin surface"},
	}}
	b := e.BlockingOpinion()
	require.NotNil(t, b)
	assert.Equal(t, "auth", b.Attribute)

	assert.Nil(t, (&Evaluation{}).BlockingOpinion())
}
