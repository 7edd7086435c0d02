// Package pipeline decouples transcript ingestion from analysis with
// in-process FIFO queues and the workers that drain them.
package pipeline

import (
	"context"
	"sync"
)

// Queue is an unbounded in-process FIFO. Push never blocks and never drops;
// backpressure is observed through depth, not refusal.
type Queue[T any] struct {
	mu      sync.Mutex
	items   []T
	wake    chan struct{}
	onDepth func(int)
}

// NewQueue creates a queue. onDepth, when non-nil, is called with the queue
// depth after every push and pop.
func NewQueue[T any](onDepth func(int)) *Queue[T] {
	return &Queue[T]{
		wake:    make(chan struct{}, 1),
		onDepth: onDepth,
	}
}

// Push enqueues one item.
func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	depth := len(q.items)
	q.mu.Unlock()

	if q.onDepth != nil {
		q.onDepth(depth)
	}
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Pop dequeues the oldest item, blocking until one is available or the
// context is canceled.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items = q.items[1:]
			depth := len(q.items)
			q.mu.Unlock()

			if q.onDepth != nil {
				q.onDepth(depth)
			}
			return item, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-q.wake:
		}
	}
}

// Len reports the current depth.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
