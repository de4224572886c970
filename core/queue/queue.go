// Package queue provides the dispatch queue between reactors and workers.
package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Queue is an unbounded multi-producer multi-consumer FIFO.
//
// Enqueue never blocks the caller beyond a short critical section, so
// reactors can hand off work without waiting on workers. Items produced by
// one goroutine are dequeued in the order they were enqueued.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
	head  int

	// notify holds at most one wake-up token. A consumer that takes the
	// token and leaves items behind passes it on.
	notify chan struct{}

	enqueued atomic.Uint64
	dequeued atomic.Uint64
}

// New creates a queue with room for capacity items before it grows.
func New[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		capacity = 64
	}
	return &Queue[T]{
		items:  make([]T, 0, capacity),
		notify: make(chan struct{}, 1),
	}
}

// Enqueue appends v to the queue.
func (q *Queue[T]) Enqueue(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()

	q.enqueued.Add(1)
	q.signal()
}

// TryDequeue removes and returns the oldest item, or false if the queue is empty.
func (q *Queue[T]) TryDequeue() (T, bool) {
	var zero T

	q.mu.Lock()
	if q.head == len(q.items) {
		q.mu.Unlock()
		return zero, false
	}

	v := q.items[q.head]
	q.items[q.head] = zero
	q.head++

	more := q.head < len(q.items)
	switch {
	case !more:
		q.items = q.items[:0]
		q.head = 0
	case q.head >= 1024 && q.head*2 >= len(q.items):
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	q.mu.Unlock()

	q.dequeued.Add(1)
	if more {
		q.signal()
	}
	return v, true
}

// DequeueWait is like TryDequeue but waits up to timeout for an item to
// arrive. It returns false on timeout or when ctx is done.
func (q *Queue[T]) DequeueWait(ctx context.Context, timeout time.Duration) (T, bool) {
	if v, ok := q.TryDequeue(); ok {
		return v, true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-q.notify:
			if v, ok := q.TryDequeue(); ok {
				return v, true
			}
		case <-timer.C:
			return q.TryDequeue()
		case <-ctx.Done():
			var zero T
			return zero, false
		}
	}
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// Stats returns the total number of items enqueued and dequeued.
func (q *Queue[T]) Stats() (enqueued, dequeued uint64) {
	return q.enqueued.Load(), q.dequeued.Load()
}

func (q *Queue[T]) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
