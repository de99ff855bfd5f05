package task

import "container/heap"

// queueItem is one scheduled task awaiting a worker.
type queueItem struct {
	task *Task
	seq  uint64
}

// readyQueue orders runnable tasks by priority band, FIFO within a band.
type readyQueue []*queueItem

func (q readyQueue) Len() int { return len(q) }

func (q readyQueue) Less(i, j int) bool {
	ri, rj := q[i].task.Priority.Rank(), q[j].task.Priority.Rank()
	if ri != rj {
		return ri > rj
	}
	return q[i].seq < q[j].seq
}

func (q readyQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *readyQueue) Push(x any) { *q = append(*q, x.(*queueItem)) }

func (q *readyQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// remove drops the queued item for a task id, if present.
func (q *readyQueue) remove(id string) bool {
	for i, item := range *q {
		if item.task.ID == id {
			heap.Remove(q, i)
			return true
		}
	}
	return false
}
