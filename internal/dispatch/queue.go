package dispatch

import (
	"context"
	"errors"
	"sync"

	"github.com/hammamikhairi/deskmate/internal/logger"
)

// ErrQueueClosed is returned by Submit after the consumer has stopped.
var ErrQueueClosed = errors.New("dispatch: queue closed")

// Job is one unit of work run by the queue consumer.
type Job func(ctx context.Context)

// Queue serialises work from many producers onto a single consumer
// goroutine so the Dispatcher never runs two commands at once. Jobs run
// in FIFO order.
type Queue struct {
	jobs chan Job
	log  *logger.Logger

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewQueue creates a queue with room for size pending jobs.
func NewQueue(size int, log *logger.Logger) *Queue {
	if size <= 0 {
		size = 16
	}
	return &Queue{
		jobs: make(chan Job, size),
		log:  log,
		done: make(chan struct{}),
	}
}

// Submit enqueues job, blocking while the queue is full.
func (q *Queue) Submit(ctx context.Context, job Job) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return ErrQueueClosed
	}

	select {
	case q.jobs <- job:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of jobs waiting.
func (q *Queue) Len() int { return len(q.jobs) }

// Run consumes jobs until ctx is cancelled. Only one Run may be active.
// Blocks; call it in a goroutine.
func (q *Queue) Run(ctx context.Context) {
	defer q.close()

	for {
		select {
		case <-ctx.Done():
			q.log.Debug("queue: stopped (%d pending dropped)", len(q.jobs))
			return
		case job := <-q.jobs:
			q.run(ctx, job)
		}
	}
}

func (q *Queue) run(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("queue: job panicked: %v", r)
		}
	}()
	job(ctx)
}

func (q *Queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.done)
	}
}
