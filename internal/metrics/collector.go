package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector aggregates the coordination core's Prometheus metrics.
type Collector struct {
	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Task metrics
	tasksCreatedTotal  *prometheus.CounterVec
	taskTransitions    *prometheus.CounterVec
	taskExecutionsTotal *prometheus.CounterVec
	taskExecutionDuration *prometheus.HistogramVec
	tasksInFlight      prometheus.Gauge

	// Coordination metrics
	agentInvocationsTotal   *prometheus.CounterVec
	agentInvocationDuration *prometheus.HistogramVec
	conflictsTotal          *prometheus.CounterVec
	consensusRoundsTotal    *prometheus.CounterVec

	// Store metrics
	storeOperationDuration *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector creates the collector and registers its metrics with the
// default registerer under the given namespace.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	return NewCollectorWithRegistry(namespace, prometheus.DefaultRegisterer, logger)
}

// NewCollectorWithRegistry registers the metrics with an explicit registerer.
func NewCollectorWithRegistry(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}
	factory := promauto.With(reg)

	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.tasksCreatedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_created_total",
			Help:      "Total number of tasks created",
		},
		[]string{"priority", "strategy"},
	)

	c.taskTransitions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_transitions_total",
			Help:      "Total number of task status transitions",
		},
		[]string{"from_status", "to_status"},
	)

	c.taskExecutionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_executions_total",
			Help:      "Total number of task executions",
		},
		[]string{"strategy", "status"},
	)

	c.taskExecutionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_execution_duration_seconds",
			Help:      "Task execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"strategy"},
	)

	c.tasksInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_in_flight",
			Help:      "Number of tasks currently executing",
		},
	)

	c.agentInvocationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_invocations_total",
			Help:      "Total number of agent invocations",
		},
		[]string{"agent_id", "agent_type", "outcome"},
	)

	c.agentInvocationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agent_invocation_duration_seconds",
			Help:      "Agent invocation duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"agent_id", "agent_type"},
	)

	c.conflictsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflicts_resolved_total",
			Help:      "Total number of attribute conflicts resolved",
		},
		[]string{"method"},
	)

	c.consensusRoundsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consensus_decisions_total",
			Help:      "Total number of consensus decisions",
		},
		[]string{"rounds", "forced"},
	)

	c.storeOperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Task store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// RecordHTTPRequest records one served HTTP request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordTaskCreated records a newly accepted task.
func (c *Collector) RecordTaskCreated(priority, strategy string) {
	c.tasksCreatedTotal.WithLabelValues(priority, strategy).Inc()
}

// RecordTaskTransition records a task status transition.
func (c *Collector) RecordTaskTransition(from, to string) {
	c.taskTransitions.WithLabelValues(from, to).Inc()
}

// RecordTaskExecution records a finished strategy execution.
func (c *Collector) RecordTaskExecution(strategy, status string, duration time.Duration) {
	c.taskExecutionsTotal.WithLabelValues(strategy, status).Inc()
	c.taskExecutionDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}

// TaskStarted and TaskFinished track the in-flight gauge.
func (c *Collector) TaskStarted()  { c.tasksInFlight.Inc() }
func (c *Collector) TaskFinished() { c.tasksInFlight.Dec() }

// RecordAgentInvocation records one agent call and its outcome.
func (c *Collector) RecordAgentInvocation(agentID, agentType, outcome string, duration time.Duration) {
	c.agentInvocationsTotal.WithLabelValues(agentID, agentType, outcome).Inc()
	c.agentInvocationDuration.WithLabelValues(agentID, agentType).Observe(duration.Seconds())
}

// RecordConflict records one resolved attribute conflict.
func (c *Collector) RecordConflict(method string) {
	c.conflictsTotal.WithLabelValues(method).Inc()
}

// RecordConsensus records one resolved consensus decision.
func (c *Collector) RecordConsensus(rounds int, forced bool) {
	f := "false"
	if forced {
		f = "true"
	}
	r := "1"
	if rounds > 1 {
		r = "2"
	}
	c.consensusRoundsTotal.WithLabelValues(r, f).Inc()
}

// RecordStoreOperation records a task store call.
func (c *Collector) RecordStoreOperation(backend, operation string, duration time.Duration) {
	c.storeOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

// statusCode buckets HTTP status codes for the label.
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
