package coordination

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/Arashek/ADE-stable-1.0-sub011/agent"
	"github.com/Arashek/ADE-stable-1.0-sub011/task"
)

// Resolver settles disagreement among agents' opinions on one attribute.
// Resolution never fails: an attribute with only empty values comes back at
// confidence 0 flagged ambiguous.
type Resolver struct {
	registry      *agent.Registry
	priorityAttrs map[string]bool
	logger        *zap.Logger
}

// NewResolver creates a resolver. Attributes listed in priorityAttributes
// are governed by priority override instead of weighted voting.
func NewResolver(registry *agent.Registry, priorityAttributes []string, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	attrs := make(map[string]bool, len(priorityAttributes))
	for _, a := range priorityAttributes {
		attrs[a] = true
	}
	return &Resolver{
		registry:      registry,
		priorityAttrs: attrs,
		logger:        logger.With(zap.String("component", "conflict_resolver")),
	}
}

// Resolve picks one value for the attribute from the contributing opinions.
// Deterministic: the same input always yields the same selection.
func (r *Resolver) Resolve(attribute string, opinions map[string]agent.Opinion) *task.ConflictResolution {
	res := &task.ConflictResolution{
		Attribute:     attribute,
		ValuesByAgent: make(map[string]any, len(opinions)),
	}

	ids := make([]string, 0, len(opinions))
	for id, op := range opinions {
		ids = append(ids, id)
		res.ValuesByAgent[id] = op.Value
	}
	sort.Strings(ids)

	// Partition contributors into those with a usable value.
	nonEmpty := make([]string, 0, len(ids))
	distinct := make(map[string]bool)
	for _, id := range ids {
		c := canonical(opinions[id].Value)
		if c == "" {
			continue
		}
		nonEmpty = append(nonEmpty, id)
		distinct[c] = true
	}

	if len(nonEmpty) == 0 {
		winner := r.topPriority(ids)
		res.SelectedAgent = winner
		res.SelectedValue = opinions[winner].Value
		res.Confidence = 0
		res.Method = task.ResolutionAmbiguous
		res.Ambiguous = true
		return res
	}

	if len(distinct) == 1 {
		winner := r.topPriority(nonEmpty)
		res.SelectedAgent = winner
		res.SelectedValue = opinions[winner].Value
		res.Confidence = 1.0
		res.Method = task.ResolutionUnanimous
		return res
	}

	if r.priorityAttrs[attribute] {
		winner := r.topPriority(nonEmpty)
		op := opinions[winner]
		res.SelectedAgent = winner
		res.SelectedValue = op.Value
		res.Confidence = op.Confidence
		res.Method = task.ResolutionPriority
		r.logger.Debug("conflict resolved by priority override",
			zap.String("attribute", attribute),
			zap.String("agent_id", winner),
		)
		return res
	}

	// Weighted voting: tally contributor weights per canonical value.
	weights := make(map[string]float64)
	var total float64
	for _, id := range nonEmpty {
		w := r.agentWeight(id)
		weights[canonical(opinions[id].Value)] += w
		total += w
	}

	var winWeight float64
	for _, w := range weights {
		if w > winWeight {
			winWeight = w
		}
	}
	// Tied values are broken by the highest-priority holder, then agent id.
	holders := make([]string, 0)
	for _, id := range nonEmpty {
		if weights[canonical(opinions[id].Value)] == winWeight {
			holders = append(holders, id)
		}
	}
	winner := r.topPriority(holders)

	res.SelectedAgent = winner
	res.SelectedValue = opinions[winner].Value
	res.Confidence = winWeight / total
	res.Method = task.ResolutionVote
	r.logger.Debug("conflict resolved by weighted vote",
		zap.String("attribute", attribute),
		zap.String("agent_id", winner),
		zap.Float64("confidence", res.Confidence),
	)
	return res
}

// topPriority returns the contributor with the highest priority rank
// (lowest number), breaking ties by ascending agent id. ids must be sorted.
func (r *Resolver) topPriority(ids []string) string {
	best := ids[0]
	bestRank := r.agentRank(best)
	for _, id := range ids[1:] {
		if rank := r.agentRank(id); rank < bestRank {
			best = id
			bestRank = rank
		}
	}
	return best
}

func (r *Resolver) agentRank(id string) int {
	a, err := r.registry.Lookup(id)
	if err != nil {
		return int(^uint(0) >> 1) // unknown contributors sort last
	}
	return a.Priority
}

func (r *Resolver) agentWeight(id string) float64 {
	a, err := r.registry.Lookup(id)
	if err != nil {
		return 1.0
	}
	return a.Weight
}

// canonical renders an opinion value for equality comparison. Nil and empty
// strings count as "no value".
func canonical(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
