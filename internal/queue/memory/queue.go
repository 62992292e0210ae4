// Package memory provides a bounded in-memory task queue with priority
// ordering and deferred delivery.
package memory

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/intelforge/collector-worker/internal/metrics"
	"github.com/intelforge/collector-worker/internal/queue"
)

// ErrQueueFull is returned when the queue is at capacity.
var ErrQueueFull = errors.New("queue full")

// ErrQueueClosed is returned by Dequeue after Close.
var ErrQueueClosed = errors.New("queue closed")

// Queue is a bounded priority queue with context-aware operations. Messages
// carrying a future NotBefore stay parked until due, which is how fixed-delay
// retries are implemented without blocking a worker.
type Queue struct {
	mu       sync.Mutex
	ready    readyHeap
	delayed  delayedHeap
	capacity int
	seq      uint64
	closed   bool
	wake     chan struct{}
}

// NewQueue constructs a queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 128
	}
	return &Queue{
		capacity: capacity,
		wake:     make(chan struct{}, 1),
	}
}

// Enqueue submits a task or returns if the queue is full or the context ends.
func (q *Queue) Enqueue(ctx context.Context, msg queue.TaskMessage) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("enqueue canceled: %w", err)
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	if q.ready.Len()+q.delayed.Len() >= q.capacity {
		q.mu.Unlock()
		return ErrQueueFull
	}
	q.seq++
	entry := &item{msg: msg, seq: q.seq}
	if msg.NotBefore.After(time.Now()) {
		heap.Push(&q.delayed, entry)
	} else {
		heap.Push(&q.ready, entry)
	}
	depth := q.ready.Len() + q.delayed.Len()
	q.mu.Unlock()

	metrics.SetQueueDepth(depth)
	q.signal()
	return nil
}

// Dequeue pops the next deliverable task, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (queue.TaskMessage, error) {
	for {
		q.mu.Lock()
		if q.closed && q.ready.Len() == 0 && q.delayed.Len() == 0 {
			q.mu.Unlock()
			return queue.TaskMessage{}, ErrQueueClosed
		}
		q.promoteDue(time.Now())
		if q.ready.Len() > 0 {
			entry := heap.Pop(&q.ready).(*item)
			depth := q.ready.Len() + q.delayed.Len()
			q.mu.Unlock()
			metrics.SetQueueDepth(depth)
			return entry.msg, nil
		}
		wait := q.nextDue()
		q.mu.Unlock()

		var (
			timer  *time.Timer
			timerC <-chan time.Time
		)
		if wait > 0 {
			timer = time.NewTimer(wait)
			timerC = timer.C
		}
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return queue.TaskMessage{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
		case <-q.wake:
		case <-timerC:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// Depth returns the number of waiting tasks, delayed included.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ready.Len() + q.delayed.Len()
}

// Close marks the queue closed. Parked messages remain dequeueable until
// drained.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// promoteDue moves delayed messages whose NotBefore has passed into the
// ready heap. Caller holds the lock.
func (q *Queue) promoteDue(now time.Time) {
	for q.delayed.Len() > 0 {
		next := q.delayed[0]
		if next.msg.NotBefore.After(now) {
			return
		}
		heap.Pop(&q.delayed)
		heap.Push(&q.ready, next)
	}
}

// nextDue returns how long until the earliest delayed message becomes
// deliverable, or zero when there is none. Caller holds the lock.
func (q *Queue) nextDue() time.Duration {
	if q.delayed.Len() == 0 {
		return 0
	}
	return time.Until(q.delayed[0].msg.NotBefore)
}

type item struct {
	msg queue.TaskMessage
	seq uint64
}

// readyHeap orders deliverable messages by priority (higher first), breaking
// ties by submission order.
type readyHeap []*item

func (h readyHeap) Len() int { return len(h) }

func (h readyHeap) Less(i, j int) bool {
	if h[i].msg.Priority != h[j].msg.Priority {
		return h[i].msg.Priority > h[j].msg.Priority
	}
	return h[i].seq < h[j].seq
}

func (h readyHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *readyHeap) Push(x any) { *h = append(*h, x.(*item)) }

func (h *readyHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return entry
}

// delayedHeap orders parked messages by their NotBefore deadline.
type delayedHeap []*item

func (h delayedHeap) Len() int { return len(h) }

func (h delayedHeap) Less(i, j int) bool {
	return h[i].msg.NotBefore.Before(h[j].msg.NotBefore)
}

func (h delayedHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *delayedHeap) Push(x any) { *h = append(*h, x.(*item)) }

func (h *delayedHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return entry
}
