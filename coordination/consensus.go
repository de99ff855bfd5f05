package coordination

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Arashek/ADE-stable-1.0-sub011/agent"
	"github.com/Arashek/ADE-stable-1.0-sub011/task"
	"github.com/Arashek/ADE-stable-1.0-sub011/types"
)

// Builder runs weighted voting over a bounded option set. One deliberation
// round, then at most one anonymized revision round, then forced resolution:
// a decision always comes out Resolved.
type Builder struct {
	invoker   *invoker
	threshold float64
	logger    *zap.Logger
}

// newBuilder creates a consensus builder. threshold is the normalized
// weighted share the top option must reach to resolve without a second
// round.
func newBuilder(in *invoker, threshold float64, logger *zap.Logger) *Builder {
	return &Builder{
		invoker:   in,
		threshold: threshold,
		logger:    logger.With(zap.String("component", "consensus_builder")),
	}
}

// tally is the weighted and unweighted vote distribution of one round.
type tally struct {
	weighted map[string]float64
	counts   map[string]int
	total    float64
	votes    []agent.Vote
}

// top returns the option with the greatest weighted share, breaking ties by
// option order (the decision's declared option list is authoritative).
func (t *tally) top(options []string) string {
	best := ""
	var bestWeight float64
	for _, opt := range options {
		if w, ok := t.weighted[opt]; ok && (best == "" || w > bestWeight) {
			best = opt
			bestWeight = w
		}
	}
	return best
}

func (t *tally) share(option string) float64 {
	if t.total == 0 {
		return 0
	}
	return t.weighted[option] / t.total
}

func (t *tally) countShare(option string) float64 {
	if len(t.votes) == 0 {
		return 0
	}
	return float64(t.counts[option]) / float64(len(t.votes))
}

func (t *tally) shares() map[string]float64 {
	out := make(map[string]float64, len(t.weighted))
	for opt := range t.weighted {
		out[opt] = t.share(opt)
	}
	return out
}

// Decide drives one decision point to resolution.
func (b *Builder) Decide(ctx context.Context, spec task.DecisionSpec, agents []*agent.Agent, base *agent.TaskContext) (*task.ConsensusDecision, error) {
	decision := &task.ConsensusDecision{
		ID:          uuid.New().String(),
		Key:         spec.Key,
		Description: spec.Description,
		Options:     append([]string(nil), spec.Options...),
		Status:      task.ConsensusPending,
	}

	first, err := b.vote(ctx, spec, agents, base, nil)
	if err != nil {
		return decision, err
	}
	decision.Votes = append(decision.Votes, first.votes...)
	decision.Rounds = 1

	top := first.top(decision.Options)
	if share := first.share(top); share >= b.threshold {
		decision.SelectedOption = top
		decision.Confidence = share
		decision.Status = task.ConsensusResolved
		b.logger.Info("consensus reached",
			zap.String("key", spec.Key),
			zap.String("option", top),
			zap.Float64("confidence", share),
		)
		return decision, nil
	}

	// Revision round: agents see the share distribution, not attribution.
	decision.Status = task.ConsensusInProgress
	second, err := b.vote(ctx, spec, agents, base, first.shares())
	if err != nil {
		// Nobody revised; force from the first round's tally.
		second = first
	} else {
		decision.Votes = append(decision.Votes, second.votes...)
	}
	decision.Rounds = 2

	top = second.top(decision.Options)
	if share := second.share(top); share >= b.threshold {
		decision.SelectedOption = top
		decision.Confidence = share
		decision.Status = task.ConsensusResolved
		return decision, nil
	}

	// Forced resolution: highest-weighted option wins regardless of
	// threshold; confidence reported as the unweighted top share.
	decision.SelectedOption = top
	decision.Confidence = second.countShare(top)
	decision.Status = task.ConsensusResolved
	decision.Forced = true
	b.logger.Info("consensus forced",
		zap.String("key", spec.Key),
		zap.String("option", top),
		zap.Float64("confidence", decision.Confidence),
	)
	return decision, nil
}

// vote runs one voting round and tallies valid ballots.
func (b *Builder) vote(ctx context.Context, spec task.DecisionSpec, agents []*agent.Agent, base *agent.TaskContext, priorShares map[string]float64) (*tally, error) {
	tc := *base
	tc.Decision = &agent.DecisionContext{
		Key:         spec.Key,
		Description: spec.Description,
		Options:     append([]string(nil), spec.Options...),
		PriorShares: priorShares,
	}

	evals, _ := b.invoker.runRound(ctx, agents, &tc)

	valid := make(map[string]bool, len(spec.Options))
	for _, opt := range spec.Options {
		valid[opt] = true
	}

	t := &tally{
		weighted: make(map[string]float64),
		counts:   make(map[string]int),
	}
	for _, eval := range evals {
		if eval.Vote == nil || !valid[eval.Vote.Option] {
			continue
		}
		v := *eval.Vote
		if v.AgentID == "" {
			v.AgentID = eval.AgentID
		}
		w := b.agentWeight(agents, v.AgentID)
		t.weighted[v.Option] += w
		t.counts[v.Option]++
		t.total += w
		t.votes = append(t.votes, v)
	}
	sort.Slice(t.votes, func(i, j int) bool { return t.votes[i].AgentID < t.votes[j].AgentID })

	if len(t.votes) == 0 {
		return nil, types.NewError(types.ErrNoAgentsResponded, "no votes cast for decision "+spec.Key)
	}
	return t, nil
}

func (b *Builder) agentWeight(agents []*agent.Agent, id string) float64 {
	for _, a := range agents {
		if a.ID == id {
			return a.Weight
		}
	}
	return 1.0
}
