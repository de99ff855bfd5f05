package task

import (
	"container/heap"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Arashek/ADE-stable-1.0-sub011/types"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Task {
		return &Task{
			ID:    "t1",
			Title: "review auth changes",
			Type:  "code_review",
		}
	}

	tests := []struct {
		name     string
		mutate   func(*Task)
		wantCode types.ErrorCode
	}{
		{"valid", func(*Task) {}, ""},
		{"missing title", func(tk *Task) { tk.Title = "" }, types.ErrInvalidRequest},
		{"missing type", func(tk *Task) { tk.Type = "" }, types.ErrInvalidRequest},
		{"bad priority", func(tk *Task) { tk.Priority = "urgent" }, types.ErrInvalidRequest},
		{"bad strategy", func(tk *Task) { tk.Strategy = "swarm" }, types.ErrInvalidRequest},
		{"consensus without decisions", func(tk *Task) { tk.Strategy = StrategyConsensus }, types.ErrInvalidRequest},
		{"consensus single option", func(tk *Task) {
			tk.Strategy = StrategyConsensus
			tk.Decisions = []DecisionSpec{{Key: "db", Options: []string{"postgres"}}}
		}, types.ErrInvalidRequest},
		{"self dependency", func(tk *Task) { tk.Dependencies = []string{"t1"} }, types.ErrDependencyCycle},
		{"duplicate dependency", func(tk *Task) { tk.Dependencies = []string{"a", "a"} }, types.ErrInvalidRequest},
		{"empty dependency", func(tk *Task) { tk.Dependencies = []string{""} }, types.ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tk := valid()
			tt.mutate(tk)
			err := tk.Validate()
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, types.GetErrorCode(err))
		})
	}
}

func TestValidateDefaultsPriority(t *testing.T) {
	t.Parallel()

	tk := &Task{Title: "x", Type: "review"}
	require.NoError(t, tk.Validate())
	assert.Equal(t, PriorityMedium, tk.Priority)
}

func TestStatusIsTerminal(t *testing.T) {
	t.Parallel()

	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusInProgress.IsTerminal())
	assert.False(t, StatusBlocked.IsTerminal())
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()

	orig := &Task{ID: "t", Title: "x", Type: "review", Dependencies: []string{"a"}}
	cp := orig.Clone()
	cp.Dependencies[0] = "b"
	cp.Status = StatusFailed

	assert.Equal(t, "a", orig.Dependencies[0])
	assert.NotEqual(t, orig.Status, cp.Status)
}

func TestReadyQueueOrder(t *testing.T) {
	t.Parallel()

	q := readyQueue{}
	push := func(id string, p Priority, seq uint64) {
		heap.Push(&q, &queueItem{task: &Task{ID: id, Priority: p}, seq: seq})
	}
	push("low", PriorityLow, 1)
	push("high-late", PriorityHigh, 4)
	push("med", PriorityMedium, 2)
	push("high-early", PriorityHigh, 3)

	var order []string
	for q.Len() > 0 {
		order = append(order, heap.Pop(&q).(*queueItem).task.ID)
	}
	assert.Equal(t, []string{"high-early", "high-late", "med", "low"}, order)
}

func TestReadyQueueRemove(t *testing.T) {
	t.Parallel()

	q := readyQueue{}
	heap.Push(&q, &queueItem{task: &Task{ID: "a", Priority: PriorityLow}, seq: 1})
	heap.Push(&q, &queueItem{task: &Task{ID: "b", Priority: PriorityHigh}, seq: 2})

	assert.True(t, q.remove("a"))
	assert.False(t, q.remove("a"))
	require.Equal(t, 1, q.Len())
	assert.Equal(t, "b", heap.Pop(&q).(*queueItem).task.ID)
}
