package coordination

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Arashek/ADE-stable-1.0-sub011/agent"
	"github.com/Arashek/ADE-stable-1.0-sub011/internal/metrics"
	"github.com/Arashek/ADE-stable-1.0-sub011/task"
	"github.com/Arashek/ADE-stable-1.0-sub011/types"
)

// Config tunes the coordinator and its strategies.
type Config struct {
	// RoundTimeout bounds one concurrent invocation round.
	RoundTimeout time.Duration `yaml:"round_timeout" json:"round_timeout"`

	// MaxRounds bounds iterative re-deliberation.
	MaxRounds int `yaml:"max_rounds" json:"max_rounds"`

	// ConsensusThreshold is the weighted share needed to resolve a
	// decision without a revision round.
	ConsensusThreshold float64 `yaml:"consensus_threshold" json:"consensus_threshold"`

	// StableConfidence separates converged iterative results from
	// exhausted ones.
	StableConfidence float64 `yaml:"stable_confidence" json:"stable_confidence"`

	// PriorityAttributes are governed by priority override instead of
	// weighted voting.
	PriorityAttributes []string `yaml:"priority_attributes" json:"priority_attributes"`

	// DefaultStrategy is used when a task names none and its type has no
	// mapping.
	DefaultStrategy string `yaml:"default_strategy" json:"default_strategy"`

	// StrategyByType maps task types to strategy names.
	StrategyByType map[string]string `yaml:"strategy_by_type" json:"strategy_by_type"`
}

// DefaultConfig returns the default coordinator configuration.
func DefaultConfig() Config {
	return Config{
		RoundTimeout:       30 * time.Second,
		MaxRounds:          5,
		ConsensusThreshold: 0.75,
		StableConfidence:   0.7,
		DefaultStrategy:    task.StrategyParallel,
	}
}

// Coordinator selects agents and a strategy for each incoming task, drives
// the strategy to completion and assembles the unified result. It owns all
// opinion and resolution artifacts while a task executes; a single task's
// failure never affects other in-flight tasks.
type Coordinator struct {
	registry *agent.Registry
	resolver *Resolver
	builder  *Builder
	invoker  *invoker
	config   Config
	metrics  *metrics.Collector
	tracer   trace.Tracer
	logger   *zap.Logger
}

// New creates a coordinator over the given registry. collector may be nil.
func New(registry *agent.Registry, config Config, collector *metrics.Collector, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "coordinator"))

	if config.RoundTimeout <= 0 {
		config.RoundTimeout = 30 * time.Second
	}
	if config.MaxRounds <= 0 {
		config.MaxRounds = 5
	}
	if config.ConsensusThreshold <= 0 {
		config.ConsensusThreshold = 0.75
	}
	if config.StableConfidence <= 0 {
		config.StableConfidence = 0.7
	}
	if config.DefaultStrategy == "" {
		config.DefaultStrategy = task.StrategyParallel
	}

	in := &invoker{
		registry: registry,
		timeout:  config.RoundTimeout,
		metrics:  collector,
		logger:   logger,
	}
	return &Coordinator{
		registry: registry,
		resolver: NewResolver(registry, config.PriorityAttributes, logger),
		builder:  newBuilder(in, config.ConsensusThreshold, logger),
		invoker:  in,
		config:   config,
		metrics:  collector,
		tracer:   otel.Tracer("coordination"),
		logger:   logger,
	}
}

// ExecuteTask implements the task manager's executor contract.
func (c *Coordinator) ExecuteTask(ctx context.Context, t *task.Task) (*task.Result, error) {
	strategy := c.strategyFor(t)

	ctx, span := c.tracer.Start(ctx, "coordination.execute",
		trace.WithAttributes(
			attribute.String("task.id", t.ID),
			attribute.String("task.type", t.Type),
			attribute.String("task.strategy", strategy.Name()),
		),
	)
	defer span.End()

	agents, err := c.selectAgents(t)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	c.logger.Info("task execution started",
		zap.String("task_id", t.ID),
		zap.String("strategy", strategy.Name()),
		zap.Int("agents", len(agents)),
	)

	start := time.Now()
	result, err := strategy.Execute(ctx, t, agents)
	duration := time.Since(start)

	status := "completed"
	if err != nil {
		status = "failed"
		span.SetStatus(codes.Error, err.Error())
	}
	if c.metrics != nil {
		c.metrics.RecordTaskExecution(strategy.Name(), status, duration)
	}
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("task.rounds", result.Rounds),
		attribute.Int("task.conflicts", result.ConflictCount()),
		attribute.Float64("task.confidence", result.Confidence),
	)
	c.logger.Info("task execution completed",
		zap.String("task_id", t.ID),
		zap.Int("rounds", result.Rounds),
		zap.Int("conflicts", result.ConflictCount()),
		zap.Float64("confidence", result.Confidence),
		zap.Duration("duration", duration),
	)
	return result, nil
}

// selectAgents resolves the participating agents for a task. An explicit
// agent order wins; otherwise agents are matched by required capabilities
// (falling back to the task type) in priority order.
func (c *Coordinator) selectAgents(t *task.Task) ([]*agent.Agent, error) {
	if len(t.AgentOrder) > 0 {
		agents := make([]*agent.Agent, 0, len(t.AgentOrder))
		for _, id := range t.AgentOrder {
			a, err := c.registry.Lookup(id)
			if err != nil {
				return nil, types.NewValidationError("unknown agent in agent_order: " + id).WithTask(t.ID)
			}
			agents = append(agents, a)
		}
		return agents, nil
	}

	caps := t.RequiredCapabilities
	if len(caps) == 0 {
		caps = []string{t.Type}
	}

	seen := make(map[string]bool)
	agents := make([]*agent.Agent, 0)
	for _, capability := range caps {
		for _, a := range c.registry.ListByCapability(capability) {
			if !seen[a.ID] {
				seen[a.ID] = true
				agents = append(agents, a)
			}
		}
	}
	if len(agents) == 0 {
		return nil, types.NewError(types.ErrAgentNotFound,
			"no registered agent covers the task's capabilities").WithTask(t.ID)
	}
	agent.SortByPriority(agents)
	return agents, nil
}

func (c *Coordinator) strategyFor(t *task.Task) Strategy {
	name := t.Strategy
	if name == "" {
		name = c.config.StrategyByType[t.Type]
	}
	if name == "" {
		name = c.config.DefaultStrategy
	}
	return c.newStrategy(name)
}
