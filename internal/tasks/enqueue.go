package tasks

import (
	"context"
	"fmt"

	"github.com/intelforge/collector-worker/internal/collector"
	"github.com/intelforge/collector-worker/internal/queue"
)

// Enqueuer submits tasks to the queue. Preview submissions also create a
// pending task record so callers can poll for the retained result; collection
// results are discarded by policy and get no record.
type Enqueuer struct {
	queue           queue.Queue
	results         collector.ResultStore
	idGen           collector.IDGenerator
	clock           collector.Clock
	collectPriority int
	previewPriority int
}

// NewEnqueuer constructs an Enqueuer.
func NewEnqueuer(
	q queue.Queue,
	results collector.ResultStore,
	idGen collector.IDGenerator,
	clock collector.Clock,
	collectPriority, previewPriority int,
) *Enqueuer {
	return &Enqueuer{
		queue:           q,
		results:         results,
		idGen:           idGen,
		clock:           clock,
		collectPriority: collectPriority,
		previewPriority: previewPriority,
	}
}

// EnqueueCollect submits a collection task and returns its task id.
func (e *Enqueuer) EnqueueCollect(ctx context.Context, sourceID string, manual bool) (string, error) {
	taskID, err := e.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate task id: %w", err)
	}
	msg := queue.TaskMessage{
		TaskID:     taskID,
		Name:       collector.TaskCollect,
		SourceID:   sourceID,
		Manual:     manual,
		Priority:   e.collectPriority,
		EnqueuedAt: e.clock.Now(),
	}
	if err := e.queue.Enqueue(ctx, msg); err != nil {
		return "", fmt.Errorf("enqueue collection task: %w", err)
	}
	return taskID, nil
}

// EnqueuePreview submits a preview task and returns its task id.
func (e *Enqueuer) EnqueuePreview(ctx context.Context, sourceID string) (string, error) {
	taskID, err := e.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate task id: %w", err)
	}
	now := e.clock.Now()
	rec := collector.TaskRecord{
		TaskID:     taskID,
		Name:       collector.TaskPreview,
		SourceID:   sourceID,
		Status:     collector.TaskStatusPending,
		EnqueuedAt: now,
	}
	if err := e.results.Create(ctx, rec); err != nil {
		return "", fmt.Errorf("create task record: %w", err)
	}
	msg := queue.TaskMessage{
		TaskID:     taskID,
		Name:       collector.TaskPreview,
		SourceID:   sourceID,
		Priority:   e.previewPriority,
		EnqueuedAt: now,
	}
	if err := e.queue.Enqueue(ctx, msg); err != nil {
		return "", fmt.Errorf("enqueue preview task: %w", err)
	}
	return taskID, nil
}
