package coordination

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/Arashek/ADE-stable-1.0-sub011/agent"
	"github.com/Arashek/ADE-stable-1.0-sub011/task"
)

func noopEvaluator() agent.Evaluator {
	return agent.EvaluatorFunc(func(ctx context.Context, tc *agent.TaskContext) (*agent.Evaluation, error) {
		return &agent.Evaluation{}, nil
	})
}

// resolverRegistry registers agents with explicit ranks and voting weights.
// Rate limiting stays off in tests.
func resolverRegistry(t *testing.T, agents ...*agent.Agent) *agent.Registry {
	t.Helper()
	registry := agent.NewRegistry(agent.RegistryConfig{}, zap.NewNop())
	for _, a := range agents {
		if a.Evaluator == nil {
			a.Evaluator = noopEvaluator()
		}
		require.NoError(t, registry.Register(a))
	}
	return registry
}

func op(id, attr string, value any, confidence float64) agent.Opinion {
	return agent.Opinion{AgentID: id, Attribute: attr, Value: value, Confidence: confidence}
}

func TestResolveUnanimous(t *testing.T) {
	t.Parallel()

	registry := resolverRegistry(t,
		&agent.Agent{ID: "security", Type: "security", Priority: 1},
		&agent.Agent{ID: "style", Type: "style", Priority: 2},
	)
	r := NewResolver(registry, nil, zap.NewNop())

	res := r.Resolve("verdict", map[string]agent.Opinion{
		"security": op("security", "verdict", "approve", 0.9),
		"style":    op("style", "verdict", "approve", 0.7),
	})

	assert.Equal(t, "approve", res.SelectedValue)
	assert.Equal(t, task.ResolutionUnanimous, res.Method)
	assert.InDelta(t, 1.0, res.Confidence, 0.001)
	assert.False(t, res.Ambiguous)
}

func TestResolvePriorityOverride(t *testing.T) {
	t.Parallel()

	registry := resolverRegistry(t,
		&agent.Agent{ID: "security", Type: "security", Priority: 1},
		&agent.Agent{ID: "perf", Type: "performance", Priority: 2},
	)
	r := NewResolver(registry, []string{"severity"}, zap.NewNop())

	res := r.Resolve("severity", map[string]agent.Opinion{
		"security": op("security", "severity", "critical", 0.95),
		"perf":     op("perf", "severity", "low", 0.8),
	})

	assert.Equal(t, "critical", res.SelectedValue)
	assert.Equal(t, "security", res.SelectedAgent)
	assert.Equal(t, task.ResolutionPriority, res.Method)
	// Priority override reports the winning agent's own confidence.
	assert.InDelta(t, 0.95, res.Confidence, 0.001)
}

func TestResolveWeightedVote(t *testing.T) {
	t.Parallel()

	registry := resolverRegistry(t,
		&agent.Agent{ID: "arch", Type: "architecture", Priority: 1, Weight: 3},
		&agent.Agent{ID: "backend", Type: "backend", Priority: 2, Weight: 2},
		&agent.Agent{ID: "frontend", Type: "frontend", Priority: 3, Weight: 2},
	)
	r := NewResolver(registry, nil, zap.NewNop())

	res := r.Resolve("format", map[string]agent.Opinion{
		"arch":     op("arch", "format", "protobuf", 0.9),
		"backend":  op("backend", "format", "json", 0.8),
		"frontend": op("frontend", "format", "json", 0.8),
	})

	// json carries weight 4 of a total 7.
	assert.Equal(t, "json", res.SelectedValue)
	assert.Equal(t, task.ResolutionVote, res.Method)
	assert.InDelta(t, 4.0/7.0, res.Confidence, 0.001)
}

func TestResolveWeightTieBrokenByPriority(t *testing.T) {
	t.Parallel()

	registry := resolverRegistry(t,
		&agent.Agent{ID: "b-agent", Type: "x", Priority: 2, Weight: 2},
		&agent.Agent{ID: "a-agent", Type: "x", Priority: 3, Weight: 2},
	)
	r := NewResolver(registry, nil, zap.NewNop())

	res := r.Resolve("approach", map[string]agent.Opinion{
		"b-agent": op("b-agent", "approach", "rewrite", 0.6),
		"a-agent": op("a-agent", "approach", "patch", 0.6),
	})

	// Equal weight: the higher-ranked agent's value wins.
	assert.Equal(t, "rewrite", res.SelectedValue)
	assert.Equal(t, "b-agent", res.SelectedAgent)
}

func TestResolvePriorityOverrideSkipsAbstainingTopRank(t *testing.T) {
	t.Parallel()

	registry := resolverRegistry(t,
		&agent.Agent{ID: "security", Type: "security", Priority: 1},
		&agent.Agent{ID: "arch", Type: "architecture", Priority: 2},
		&agent.Agent{ID: "style", Type: "style", Priority: 3},
	)
	r := NewResolver(registry, []string{"severity"}, zap.NewNop())

	// An empty value is an abstention: the override passes to the highest
	// rank that actually took a position.
	res := r.Resolve("severity", map[string]agent.Opinion{
		"security": op("security", "severity", nil, 0.9),
		"arch":     op("arch", "severity", "high", 0.8),
		"style":    op("style", "severity", "low", 0.5),
	})

	assert.Equal(t, "arch", res.SelectedAgent)
	assert.Equal(t, "high", res.SelectedValue)
	assert.Equal(t, task.ResolutionPriority, res.Method)
	assert.InDelta(t, 0.8, res.Confidence, 0.001)
}

func TestResolveAllEmptyIsAmbiguous(t *testing.T) {
	t.Parallel()

	registry := resolverRegistry(t,
		&agent.Agent{ID: "one", Type: "x", Priority: 1},
		&agent.Agent{ID: "two", Type: "x", Priority: 2},
	)
	r := NewResolver(registry, nil, zap.NewNop())

	res := r.Resolve("verdict", map[string]agent.Opinion{
		"one": op("one", "verdict", nil, 0.5),
		"two": op("two", "verdict", "", 0.5),
	})

	assert.True(t, res.Ambiguous)
	assert.Equal(t, task.ResolutionAmbiguous, res.Method)
	assert.Zero(t, res.Confidence)
}

func TestResolveIgnoresEmptyContributors(t *testing.T) {
	t.Parallel()

	registry := resolverRegistry(t,
		&agent.Agent{ID: "silent", Type: "x", Priority: 1},
		&agent.Agent{ID: "vocal", Type: "x", Priority: 2},
	)
	r := NewResolver(registry, nil, zap.NewNop())

	res := r.Resolve("verdict", map[string]agent.Opinion{
		"silent": op("silent", "verdict", nil, 0.9),
		"vocal":  op("vocal", "verdict", "approve", 0.7),
	})

	// One usable value counts as unanimous among actual contributors.
	assert.Equal(t, "approve", res.SelectedValue)
	assert.Equal(t, task.ResolutionUnanimous, res.Method)
	assert.InDelta(t, 1.0, res.Confidence, 0.001)
}

func TestResolveUnknownContributorSortsLast(t *testing.T) {
	t.Parallel()

	registry := resolverRegistry(t,
		&agent.Agent{ID: "known", Type: "x", Priority: 5},
	)
	r := NewResolver(registry, []string{"call"}, zap.NewNop())

	res := r.Resolve("call", map[string]agent.Opinion{
		"known":    op("known", "call", "yes", 0.6),
		"stranger": op("stranger", "call", "no", 0.9),
	})

	assert.Equal(t, "known", res.SelectedAgent)
	assert.Equal(t, "yes", res.SelectedValue)
}

func TestResolveIsDeterministic(t *testing.T) {
	t.Parallel()

	registry := resolverRegistry(t,
		&agent.Agent{ID: "a1", Type: "x", Priority: 1, Weight: 3},
		&agent.Agent{ID: "a2", Type: "x", Priority: 2, Weight: 2},
		&agent.Agent{ID: "a3", Type: "x", Priority: 3, Weight: 2},
		&agent.Agent{ID: "a4", Type: "x", Priority: 4, Weight: 1},
	)
	r := NewResolver(registry, nil, zap.NewNop())
	ids := []string{"a1", "a2", "a3", "a4"}
	values := []string{"", "alpha", "beta", "gamma"}

	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, len(ids)).Draw(rt, "contributors")
		opinions := make(map[string]agent.Opinion, n)
		for _, id := range ids[:n] {
			v := rapid.SampledFrom(values).Draw(rt, "value-"+id)
			conf := rapid.Float64Range(0, 1).Draw(rt, "conf-"+id)
			var val any
			if v != "" {
				val = v
			}
			opinions[id] = op(id, "attr", val, conf)
		}

		first := r.Resolve("attr", opinions)
		second := r.Resolve("attr", opinions)

		if fmt.Sprintf("%v", first.SelectedValue) != fmt.Sprintf("%v", second.SelectedValue) {
			rt.Fatalf("selection not deterministic: %v vs %v", first.SelectedValue, second.SelectedValue)
		}
		if first.SelectedAgent != second.SelectedAgent || first.Method != second.Method {
			rt.Fatalf("resolution not deterministic: %+v vs %+v", first, second)
		}
		if first.Confidence < 0 || first.Confidence > 1 {
			rt.Fatalf("confidence out of range: %f", first.Confidence)
		}
	})
}
