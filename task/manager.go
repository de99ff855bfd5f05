package task

import (
	"container/heap"
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Arashek/ADE-stable-1.0-sub011/internal/metrics"
	"github.com/Arashek/ADE-stable-1.0-sub011/internal/pool"
	"github.com/Arashek/ADE-stable-1.0-sub011/types"
)

// Executor runs one task to completion. The coordinator implements this.
type Executor interface {
	ExecuteTask(ctx context.Context, t *Task) (*Result, error)
}

// Store is the slice of the persistence layer the manager writes through.
type Store interface {
	Save(ctx context.Context, t *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	CountByStatus(ctx context.Context) (map[Status]int64, error)
}

// ManagerConfig tunes the task manager.
type ManagerConfig struct {
	// MaxWorkers caps concurrently executing tasks. Zero means
	// runtime.NumCPU()*2.
	MaxWorkers int `yaml:"max_workers" json:"max_workers"`

	// QueueSize bounds the worker pool's pending buffer.
	QueueSize int `yaml:"queue_size" json:"queue_size"`

	// EventBuffer sizes per-subscriber event channels.
	EventBuffer int `yaml:"event_buffer" json:"event_buffer"`
}

// DefaultManagerConfig returns the default manager configuration.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		QueueSize:   256,
		EventBuffer: 64,
	}
}

// Manager owns the task lifecycle: intake, dependency gating, priority
// scheduling, execution on a bounded worker pool, cancellation and result
// retrieval. All status transitions happen under the manager's lock; the
// executor only ever sees cloned tasks.
type Manager struct {
	store    Store
	executor Executor
	workers  *pool.WorkerPool
	metrics  *metrics.Collector
	bus      *eventBus
	logger   *zap.Logger

	mu         sync.Mutex
	tasks      map[string]*Task
	waiting    map[string]map[string]bool // task id -> unsatisfied dependency ids
	blocks     map[string][]string        // dependency id -> dependent task ids
	cancels    map[string]context.CancelFunc
	ready      readyQueue
	seq        uint64
	running    int
	maxWorkers int

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wake       chan struct{}
	wg         sync.WaitGroup
	closed     bool
}

// NewManager creates a task manager and starts its dispatch loop.
func NewManager(store Store, executor Executor, config ManagerConfig, collector *metrics.Collector, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseCtx, baseCancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU() * 2
	}
	m := &Manager{
		store:    store,
		executor: executor,
		workers: pool.New(pool.Config{
			MaxWorkers: maxWorkers,
			QueueSize:  config.QueueSize,
		}),
		maxWorkers: maxWorkers,
		metrics:    collector,
		bus:        newEventBus(config.EventBuffer),
		logger:     logger.With(zap.String("component", "task_manager")),
		tasks:      make(map[string]*Task),
		waiting:    make(map[string]map[string]bool),
		blocks:     make(map[string][]string),
		cancels:    make(map[string]context.CancelFunc),
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
		wake:       make(chan struct{}, 1),
	}

	m.wg.Add(1)
	go m.dispatch()
	return m
}

// Create validates and accepts a task. Tasks with no unsatisfied
// dependencies are scheduled immediately; tasks waiting on incomplete
// dependencies are blocked until those complete. A dependency that has
// already failed fails the new task right away.
func (m *Manager) Create(ctx context.Context, t *Task) (*Task, error) {
	if t == nil {
		return nil, types.NewValidationError("task is required")
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, types.NewError(types.ErrInternalError, "manager is shut down").WithHTTPStatus(503)
	}
	if _, exists := m.tasks[t.ID]; exists {
		return nil, types.NewValidationError("task id already exists").WithTask(t.ID)
	}
	if err := m.checkDependencies(t); err != nil {
		return nil, err
	}

	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	t.Status = StatusPending
	m.tasks[t.ID] = t

	unsatisfied, failedDep := m.unsatisfiedDeps(t)
	switch {
	case failedDep != "":
		m.finishLocked(t, StatusFailed, types.NewError(types.ErrDependencyFailure,
			"dependency "+failedDep+" did not complete").Error())
	case len(unsatisfied) == 0:
		m.scheduleLocked(t)
	default:
		m.waiting[t.ID] = unsatisfied
		for dep := range unsatisfied {
			m.blocks[dep] = append(m.blocks[dep], t.ID)
		}
		m.transitionLocked(t, StatusBlocked, "")
	}

	if m.metrics != nil {
		m.metrics.RecordTaskCreated(string(t.Priority), t.Strategy)
	}
	m.persistLocked(t)
	m.logger.Info("task created",
		zap.String("task_id", t.ID),
		zap.String("type", t.Type),
		zap.String("priority", string(t.Priority)),
		zap.String("status", string(t.Status)),
		zap.Int("dependencies", len(t.Dependencies)),
	)
	return t.Clone(), nil
}

// checkDependencies verifies every dependency exists and that adding the
// task keeps the dependency graph acyclic.
func (m *Manager) checkDependencies(t *Task) error {
	for _, dep := range t.Dependencies {
		if _, ok := m.tasks[dep]; !ok {
			return types.NewValidationError("unknown dependency: " + dep).WithTask(t.ID)
		}
	}

	visited := make(map[string]bool)
	var walk func(id string) bool
	walk = func(id string) bool {
		if id == t.ID {
			return true
		}
		if visited[id] {
			return false
		}
		visited[id] = true
		dep, ok := m.tasks[id]
		if !ok {
			return false
		}
		for _, next := range dep.Dependencies {
			if walk(next) {
				return true
			}
		}
		return false
	}
	for _, dep := range t.Dependencies {
		if walk(dep) {
			return types.NewError(types.ErrDependencyCycle,
				"dependency cycle through "+dep).WithTask(t.ID).WithHTTPStatus(400)
		}
	}
	return nil
}

// unsatisfiedDeps partitions a task's dependencies. It returns the set of
// dependencies not yet completed, and the id of a failed or cancelled
// dependency if one exists.
func (m *Manager) unsatisfiedDeps(t *Task) (map[string]bool, string) {
	unsatisfied := make(map[string]bool)
	for _, dep := range t.Dependencies {
		d := m.tasks[dep]
		switch d.Status {
		case StatusCompleted:
		case StatusFailed, StatusCancelled:
			return nil, dep
		default:
			unsatisfied[dep] = true
		}
	}
	return unsatisfied, ""
}

// Get returns a copy of the task.
func (m *Manager) Get(ctx context.Context, id string) (*Task, error) {
	m.mu.Lock()
	t, ok := m.tasks[id]
	if ok {
		t = t.Clone()
	}
	m.mu.Unlock()

	if ok {
		return t, nil
	}
	if m.store != nil {
		if t, err := m.store.Get(ctx, id); err == nil {
			return t, nil
		}
	}
	return nil, types.NewNotFoundError("task not found").WithTask(id)
}

// Status returns the task's current lifecycle status.
func (m *Manager) Status(ctx context.Context, id string) (Status, error) {
	t, err := m.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return t.Status, nil
}

// TaskResult returns the unified result of a completed task. Until the task
// completes the result is not available; failed and cancelled tasks report
// their failure instead.
func (m *Manager) TaskResult(ctx context.Context, id string) (*Result, error) {
	t, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch t.Status {
	case StatusCompleted:
		return t.Result, nil
	case StatusFailed:
		return nil, types.NewError(types.ErrDependencyFailure, t.FailureReason).
			WithTask(id).WithHTTPStatus(409)
	case StatusCancelled:
		return nil, types.NewError(types.ErrTaskCancelled, "task was cancelled").
			WithTask(id).WithHTTPStatus(409)
	default:
		return nil, types.NewError(types.ErrResultNotReady,
			"task has not completed").WithTask(id).WithHTTPStatus(404)
	}
}

// Cancel stops a task. Queued and blocked tasks are cancelled immediately;
// a running task has its context cancelled and finishes cooperatively.
// Terminal tasks cannot be cancelled.
func (m *Manager) Cancel(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return types.NewNotFoundError("task not found").WithTask(id)
	}
	if t.Status.IsTerminal() {
		return types.NewError(types.ErrNotCancellable,
			"task already "+string(t.Status)).WithTask(id).WithHTTPStatus(409)
	}

	switch t.Status {
	case StatusInProgress:
		if cancel, ok := m.cancels[id]; ok {
			cancel()
		}
		// The run loop records the terminal state once the executor
		// observes the cancelled context.
		return nil
	default:
		m.ready.remove(id)
		m.clearWaitingLocked(id)
		m.finishLocked(t, StatusCancelled, "cancelled before execution")
		m.failDependentsLocked(id)
		return nil
	}
}

// Subscribe returns a channel of task transition events and a cancel
// function releasing the subscription.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	return m.bus.subscribe()
}

// Analytics summarizes the manager's task population.
type Analytics struct {
	Total         int64              `json:"total"`
	ByStatus      map[Status]int64   `json:"by_status"`
	ByStrategy    map[string]int64   `json:"by_strategy"`
	ByPriority    map[Priority]int64 `json:"by_priority"`
	AvgDuration   time.Duration      `json:"avg_duration"`
	AvgConfidence float64            `json:"avg_confidence"`
	Conflicts     int64              `json:"conflicts"`
	InFlight      int                `json:"in_flight"`
}

// GetAnalytics aggregates counts and averages over all known tasks.
func (m *Manager) GetAnalytics(ctx context.Context) (*Analytics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a := &Analytics{
		ByStatus:   make(map[Status]int64),
		ByStrategy: make(map[string]int64),
		ByPriority: make(map[Priority]int64),
	}
	var totalDuration time.Duration
	var totalConfidence float64
	var completed int64

	for _, t := range m.tasks {
		a.Total++
		a.ByStatus[t.Status]++
		a.ByPriority[t.Priority]++
		if t.Strategy != "" {
			a.ByStrategy[t.Strategy]++
		}
		if t.Status == StatusInProgress {
			a.InFlight++
		}
		if t.Result != nil {
			totalDuration += t.Result.Duration
			totalConfidence += t.Result.Confidence
			a.Conflicts += int64(t.Result.ConflictCount())
			completed++
		}
	}
	if completed > 0 {
		a.AvgDuration = totalDuration / time.Duration(completed)
		a.AvgConfidence = totalConfidence / float64(completed)
	}
	return a, nil
}

// Close stops the dispatcher, cancels running tasks and drains the pool.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	for _, cancel := range m.cancels {
		cancel()
	}
	m.mu.Unlock()

	m.baseCancel()
	m.wg.Wait()
	m.workers.Close()
	m.bus.close()
	m.logger.Info("task manager stopped")
}

// scheduleLocked moves a task to the ready queue. Caller holds m.mu.
func (m *Manager) scheduleLocked(t *Task) {
	m.transitionLocked(t, StatusScheduled, "")
	m.seq++
	heap.Push(&m.ready, &queueItem{task: t, seq: m.seq})
	m.signal()
}

// dispatch pops ready tasks in priority order and hands them to the pool.
// A task is only submitted when a worker slot is free, so the pool never
// buffers work and priority order holds under saturation.
func (m *Manager) dispatch() {
	defer m.wg.Done()

	for {
		select {
		case <-m.baseCtx.Done():
			return
		case <-m.wake:
		}

		for {
			m.mu.Lock()
			if m.ready.Len() == 0 || m.running >= m.maxWorkers {
				m.mu.Unlock()
				break
			}
			item := heap.Pop(&m.ready).(*queueItem)
			t := item.task

			err := m.workers.Submit(m.baseCtx, func(ctx context.Context) error {
				m.run(t.ID)
				return nil
			})
			if err != nil {
				// Requeue and wait for a completion to signal capacity.
				heap.Push(&m.ready, item)
				m.mu.Unlock()
				if errors.Is(err, pool.ErrPoolClosed) {
					return
				}
				break
			}
			m.running++
			m.mu.Unlock()
		}
	}
}

// run executes one task on a pool worker.
func (m *Manager) run(id string) {
	defer func() {
		m.mu.Lock()
		m.running--
		m.mu.Unlock()
		m.signal()
	}()

	m.mu.Lock()
	t, ok := m.tasks[id]
	if !ok || t.Status != StatusScheduled {
		m.mu.Unlock()
		return
	}
	now := time.Now()
	t.StartedAt = &now
	m.transitionLocked(t, StatusInProgress, "")
	m.persistLocked(t)

	ctx, cancel := context.WithCancel(m.baseCtx)
	m.cancels[id] = cancel
	snapshot := t.Clone()
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.TaskStarted()
	}
	result, err := m.executor.ExecuteTask(ctx, snapshot)
	if m.metrics != nil {
		m.metrics.TaskFinished()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cancelled := ctx.Err() != nil || types.GetErrorCode(err) == types.ErrTaskCancelled
	delete(m.cancels, id)
	cancel()

	switch {
	case err == nil:
		t.Result = result
		m.finishLocked(t, StatusCompleted, "")
		m.releaseDependentsLocked(id)
	case cancelled:
		m.finishLocked(t, StatusCancelled, "cancelled during execution")
		m.failDependentsLocked(id)
	default:
		m.finishLocked(t, StatusFailed, err.Error())
		m.failDependentsLocked(id)
	}
}

// releaseDependentsLocked unblocks tasks whose last dependency completed.
func (m *Manager) releaseDependentsLocked(id string) {
	for _, depID := range m.blocks[id] {
		waiting, ok := m.waiting[depID]
		if !ok {
			continue
		}
		delete(waiting, id)
		if len(waiting) == 0 {
			delete(m.waiting, depID)
			dependent := m.tasks[depID]
			if dependent.Status == StatusBlocked {
				m.scheduleLocked(dependent)
				m.persistLocked(dependent)
			}
		}
	}
	delete(m.blocks, id)
}

// failDependentsLocked propagates a failed or cancelled dependency to every
// transitively blocked task.
func (m *Manager) failDependentsLocked(id string) {
	for _, depID := range m.blocks[id] {
		dependent, ok := m.tasks[depID]
		if !ok || dependent.Status.IsTerminal() {
			continue
		}
		m.clearWaitingLocked(depID)
		m.finishLocked(dependent, StatusFailed,
			types.NewError(types.ErrDependencyFailure, "dependency "+id+" did not complete").Error())
		m.failDependentsLocked(depID)
	}
	delete(m.blocks, id)
}

// clearWaitingLocked removes a task from the dependency wait bookkeeping.
func (m *Manager) clearWaitingLocked(id string) {
	for dep := range m.waiting[id] {
		deps := m.blocks[dep]
		for i, d := range deps {
			if d == id {
				m.blocks[dep] = append(deps[:i], deps[i+1:]...)
				break
			}
		}
	}
	delete(m.waiting, id)
}

// finishLocked records a terminal state and persists it.
func (m *Manager) finishLocked(t *Task, status Status, reason string) {
	now := time.Now()
	t.CompletedAt = &now
	t.FailureReason = reason
	m.transitionLocked(t, status, reason)
	m.persistLocked(t)

	if status == StatusFailed {
		m.logger.Warn("task failed",
			zap.String("task_id", t.ID),
			zap.String("reason", reason),
		)
	}
}

// transitionLocked applies a status change, emitting the event and metric.
func (m *Manager) transitionLocked(t *Task, to Status, reason string) {
	from := t.Status
	t.Status = to
	t.UpdatedAt = time.Now()

	if m.metrics != nil {
		m.metrics.RecordTaskTransition(string(from), string(to))
	}
	m.bus.publish(Event{
		TaskID:    t.ID,
		From:      from,
		To:        to,
		Reason:    reason,
		Timestamp: t.UpdatedAt,
	})
}

// persistLocked writes the task through to the store. Store outages are
// logged, not fatal; in-memory state stays authoritative.
func (m *Manager) persistLocked(t *Task) {
	if m.store == nil {
		return
	}
	if err := m.store.Save(context.Background(), t.Clone()); err != nil {
		m.logger.Error("task persist failed",
			zap.String("task_id", t.ID),
			zap.Error(err),
		)
	}
}

func (m *Manager) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}
