package engine

import (
	"container/heap"
	"sync"
)

// queuedTask pairs a task with its submission index. The index doubles as
// the FIFO tiebreaker and the slot the worker writes its result into.
type queuedTask struct {
	task  Task
	index int
}

// taskHeap orders queued tasks by priority descending, then by submission
// index ascending.
type taskHeap []queuedTask

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].task.Priority != h[j].task.Priority {
		return h[i].task.Priority > h[j].task.Priority
	}
	return h[i].index < h[j].index
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) {
	*h = append(*h, x.(queuedTask))
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// taskQueue is the shared pending-task queue. Workers pop atomically; the
// queue is filled once at batch start and never grows afterwards.
type taskQueue struct {
	mu   sync.Mutex
	heap taskHeap
}

func newTaskQueue(tasks []Task) *taskQueue {
	h := make(taskHeap, len(tasks))
	for i, t := range tasks {
		h[i] = queuedTask{task: t, index: i}
	}
	heap.Init(&h)
	return &taskQueue{heap: h}
}

// pop removes and returns the highest-priority pending task. The second
// return value is false when the queue is empty.
func (q *taskQueue) pop() (queuedTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap) == 0 {
		return queuedTask{}, false
	}
	return heap.Pop(&q.heap).(queuedTask), true
}

func (q *taskQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}
