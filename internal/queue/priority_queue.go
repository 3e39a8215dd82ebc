// Package queue implements the bounded priority queues that connect the
// dispatch pipeline's stages: input, main, and retry.
package queue

import (
	"container/heap"
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/openprocurement/bridge-basic/internal/domain"
)

// Unbounded marks a queue capacity of -1: Put never blocks on size.
const Unbounded = -1

// PriorityQueue is a bounded, priority-ordered FIFO queue. Lower priority
// values are delivered first; equal priorities preserve insertion order via
// a monotonic ULID stamped on each element. Capacity -1 means unbounded.
//
// Put blocks (respecting ctx) when the queue is at capacity; Get blocks when
// empty. Safe for many concurrent producers and consumers.
type PriorityQueue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	items    elementHeap
	capacity int
	entropy  *ulid.MonotonicEntropy
	closed   bool
}

// New creates a PriorityQueue with the given capacity (-1 for unbounded).
func New(capacity int) *PriorityQueue {
	q := &PriorityQueue{capacity: capacity}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	q.entropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0) //nolint:gosec // ULID entropy only needs uniqueness, not cryptographic strength.
	heap.Init(&q.items)
	return q
}

// Put inserts item at the given priority, blocking while the queue is full.
// Returns ctx.Err() if ctx is done before room becomes available.
func (q *PriorityQueue) Put(ctx context.Context, priority int, item domain.ResourceItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.capacity != Unbounded && len(q.items) >= q.capacity && !q.closed {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !q.waitWithContext(ctx, q.notFull) {
			return ctx.Err()
		}
	}
	if q.closed {
		return ErrClosed
	}

	id, err := ulid.New(ulid.Timestamp(time.Now()), q.entropy)
	if err != nil {
		return err
	}
	heap.Push(&q.items, &domain.QueueElement{Priority: priority, ULID: id.String(), Item: item})
	q.notEmpty.Signal()
	return nil
}

// Get removes and returns the lowest-priority (earliest-inserted on ties)
// element, blocking while the queue is empty. Returns ctx.Err() if ctx is
// done first.
func (q *PriorityQueue) Get(ctx context.Context) (domain.QueueElement, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		if ctx.Err() != nil {
			return domain.QueueElement{}, ctx.Err()
		}
		if !q.waitWithContext(ctx, q.notEmpty) {
			return domain.QueueElement{}, ctx.Err()
		}
	}
	if len(q.items) == 0 {
		return domain.QueueElement{}, ErrClosed
	}

	el := heap.Pop(&q.items).(*domain.QueueElement)
	q.notFull.Signal()
	return *el, nil
}

// QSize returns the current number of queued elements.
func (q *PriorityQueue) QSize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Capacity returns the configured capacity, or Unbounded.
func (q *PriorityQueue) Capacity() int {
	return q.capacity
}

// Close wakes every blocked Put/Get so callers can unwind during shutdown.
func (q *PriorityQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// waitWithContext waits on cond, but also wakes up if ctx is canceled. It
// returns false if ctx was the reason for waking.
func (q *PriorityQueue) waitWithContext(ctx context.Context, cond *sync.Cond) bool {
	done := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		close(done)
		cond.Broadcast()
	})
	defer stop()

	cond.Wait()

	select {
	case <-done:
		return false
	default:
		return ctx.Err() == nil
	}
}
