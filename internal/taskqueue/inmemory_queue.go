package taskqueue

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrClosed is returned by Enqueue after Close.
	ErrClosed = errors.New("taskqueue: queue closed")

	// ErrQueueFull is returned by Enqueue when every slot is taken.
	ErrQueueFull = errors.New("taskqueue: queue full")
)

// InMemoryQueue is a simple Queue implementation backed by a buffered channel.
// It is safe for concurrent use.
type InMemoryQueue struct {
	ch chan Task

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewInMemoryQueue creates a new queue with the given capacity.
// For tests and small deployments, a modest capacity (e.g. 1024) is fine.
func NewInMemoryQueue(capacity int) *InMemoryQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &InMemoryQueue{
		ch:   make(chan Task, capacity),
		done: make(chan struct{}),
	}
}

// Ensure InMemoryQueue implements Queue.
var _ Queue = (*InMemoryQueue)(nil)

// Enqueue never waits for a free slot: a full queue returns ErrQueueFull.
func (q *InMemoryQueue) Enqueue(ctx context.Context, t Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}

	select {
	case q.ch <- t:
		return nil
	default:
		return ErrQueueFull
	}
}

// Dequeue returns queued tasks even after Close, so pending pipelines still
// drain; once the queue is empty and closed it returns ErrClosed.
func (q *InMemoryQueue) Dequeue(ctx context.Context) (*Task, error) {
	select {
	case t := <-q.ch:
		return &t, nil
	default:
	}

	select {
	case t := <-q.ch:
		return &t, nil
	case <-q.done:
		select {
		case t := <-q.ch:
			return &t, nil
		default:
			return nil, ErrClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *InMemoryQueue) Len() int {
	return len(q.ch)
}

// Close stops accepting new tasks. It is idempotent.
func (q *InMemoryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}
