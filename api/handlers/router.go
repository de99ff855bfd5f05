package handlers

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Arashek/ADE-stable-1.0-sub011/agent"
	"github.com/Arashek/ADE-stable-1.0-sub011/internal/metrics"
	"github.com/Arashek/ADE-stable-1.0-sub011/persistence"
	"github.com/Arashek/ADE-stable-1.0-sub011/task"
)

// RouterDeps bundles the dependencies the HTTP surface needs.
type RouterDeps struct {
	Manager  *task.Manager
	Registry *agent.Registry
	Store    persistence.Store
	Metrics  *metrics.Collector
	Logger   *zap.Logger
}

// NewRouter wires all endpoints onto one mux with request metrics.
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	tasks := NewTaskHandler(deps.Manager, logger)
	agents := NewAgentHandler(deps.Registry, logger)
	health := NewHealthHandler(deps.Store, logger)
	events := NewEventsHandler(deps.Manager, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/tasks", tasks.Create)
	mux.HandleFunc("GET /v1/tasks/events", events.Stream)
	mux.HandleFunc("GET /v1/tasks/{id}", tasks.Get)
	mux.HandleFunc("GET /v1/tasks/{id}/status", tasks.Status)
	mux.HandleFunc("GET /v1/tasks/{id}/result", tasks.Result)
	mux.HandleFunc("POST /v1/tasks/{id}/cancel", tasks.Cancel)
	mux.HandleFunc("GET /v1/analytics", tasks.Analytics)
	mux.HandleFunc("GET /v1/agents", agents.List)
	mux.HandleFunc("GET /v1/agents/{id}", agents.Get)
	mux.HandleFunc("GET /healthz", health.Live)
	mux.HandleFunc("GET /readyz", health.Ready)
	mux.Handle("GET /metrics", promhttp.Handler())

	return withRequestMetrics(mux, deps.Metrics, logger)
}

// withRequestMetrics records request counts, latency and access logs.
func withRequestMetrics(next http.Handler, collector *metrics.Collector, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		if collector != nil {
			collector.RecordHTTPRequest(r.Method, r.URL.Path, rec.status, duration)
		}
		logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", duration),
		)
	})
}
