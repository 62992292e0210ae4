// Package queue defines the task queue surface consumed by the worker pool.
// This abstraction keeps the worker independent of a specific broker.
package queue

import (
	"context"
	"time"

	"github.com/intelforge/collector-worker/internal/collector"
)

// TaskMessage wraps one task ready to run.
type TaskMessage struct {
	TaskID     string
	Name       collector.TaskName
	SourceID   string
	Manual     bool
	Priority   int // higher values dequeue first
	Attempt    int // 0 for the first delivery
	EnqueuedAt time.Time
	NotBefore  time.Time // zero means deliverable immediately
}

// Queue provides enqueue/dequeue semantics for collection tasks.
type Queue interface {
	// Enqueue submits a task. Messages with a future NotBefore are held back
	// until due (used for fixed-delay retries).
	Enqueue(ctx context.Context, msg TaskMessage) error

	// Dequeue blocks until a deliverable task is available or the context
	// finishes. Among deliverable tasks the highest priority wins; ties go to
	// the earliest submission.
	Dequeue(ctx context.Context) (TaskMessage, error)

	// Depth returns the number of tasks currently waiting, delayed included.
	Depth() int
}
