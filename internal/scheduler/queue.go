package scheduler

import (
	"log/slog"
	"sync"

	"github.com/erzhanbek/hooksched/internal/metrics"
)

// ExecQueue bounds the number of concurrently in-flight job executions.
// Tasks beyond the ceiling queue in FIFO order; the pending list is
// unbounded, a burst of due jobs queues without loss at memory cost.
type ExecQueue struct {
	mu      sync.Mutex
	logger  *slog.Logger
	limit   int
	running int
	pending []func()
}

func NewExecQueue(limit int, logger *slog.Logger) *ExecQueue {
	if limit <= 0 {
		limit = 1
	}
	return &ExecQueue{
		limit:  limit,
		logger: logger.With("component", "exec_queue"),
	}
}

// Submit runs the task immediately when a slot is free, otherwise appends
// it to the pending list. Pending tasks start in submission order.
func (q *ExecQueue) Submit(task func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running < q.limit {
		q.running++
		metrics.JobsInFlight.Inc()
		go q.drain(task)
		return
	}
	q.pending = append(q.pending, task)
	metrics.QueueDepth.Set(float64(len(q.pending)))
}

// drain runs the task, then keeps pulling pending tasks until none remain,
// only then releasing the slot. Completion is observed even when a task
// panics.
func (q *ExecQueue) drain(task func()) {
	for task != nil {
		q.runOne(task)

		q.mu.Lock()
		if len(q.pending) > 0 {
			task = q.pending[0]
			q.pending = q.pending[1:]
			metrics.QueueDepth.Set(float64(len(q.pending)))
		} else {
			task = nil
			q.running--
			metrics.JobsInFlight.Dec()
		}
		q.mu.Unlock()
	}
}

func (q *ExecQueue) runOne(task func()) {
	defer func() {
		if rec := recover(); rec != nil {
			q.logger.Error("job task panicked", "panic", rec)
		}
	}()
	task()
}

// Depth returns the number of tasks waiting for a slot.
func (q *ExecQueue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// InFlight returns the number of tasks currently running.
func (q *ExecQueue) InFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}
