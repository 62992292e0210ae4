// Package tasks implements the two task entry points consumed from the
// queue: the full collection task and the side-effect-free preview task.
package tasks

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/intelforge/collector-worker/internal/collector"
	"github.com/intelforge/collector-worker/internal/dispatcher"
	"github.com/intelforge/collector-worker/internal/queue"
)

// Outcome is the terminal value of one task execution.
type Outcome struct {
	Status  collector.TaskStatus
	Message string
	Items   []collector.Item
}

// Handler executes one task type. A returned error marks a transport-class
// failure of this attempt and is handed to the worker's retry policy;
// terminal conditions are expressed in the Outcome.
type Handler interface {
	Name() collector.TaskName
	TimeLimit() time.Duration
	Handle(ctx context.Context, msg queue.TaskMessage) (Outcome, error)
}

// CollectionTask runs a full collection: dispatch, then trigger downstream
// processing on success.
type CollectionTask struct {
	dispatcher *dispatcher.Dispatcher
	coreClient collector.CoreClient
	publisher  collector.Publisher
	timeLimit  time.Duration
	logger     *zap.Logger
}

// NewCollectionTask constructs the collection entry point. The publisher may
// be nil when completion events are not wired.
func NewCollectionTask(
	d *dispatcher.Dispatcher,
	coreClient collector.CoreClient,
	publisher collector.Publisher,
	timeLimit time.Duration,
	logger *zap.Logger,
) *CollectionTask {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeLimit <= 0 {
		timeLimit = 60 * time.Second
	}
	return &CollectionTask{
		dispatcher: d,
		coreClient: coreClient,
		publisher:  publisher,
		timeLimit:  timeLimit,
		logger:     logger,
	}
}

// Name implements Handler.
func (t *CollectionTask) Name() collector.TaskName { return collector.TaskCollect }

// TimeLimit implements Handler.
func (t *CollectionTask) TimeLimit() time.Duration { return t.timeLimit }

// Handle dispatches the source and, on success, triggers downstream
// processing exactly once. Downstream and publisher failures are logged but
// do not fail a collection that already succeeded.
func (t *CollectionTask) Handle(ctx context.Context, msg queue.TaskMessage) (Outcome, error) {
	t.logger.Info("Starting collector task",
		zap.String("task_id", msg.TaskID),
		zap.String("source_id", msg.SourceID),
		zap.Bool("manual", msg.Manual),
		zap.Int("attempt", msg.Attempt),
	)

	result, err := t.dispatcher.Dispatch(ctx, msg.SourceID, msg.Manual)
	if err != nil {
		return Outcome{}, err
	}

	switch result.Status {
	case dispatcher.StatusSkipped:
		return Outcome{Status: collector.TaskStatusSkipped, Message: result.Message}, nil

	case dispatcher.StatusFailed:
		return Outcome{Status: collector.TaskStatusFailed, Message: result.Message}, nil

	default:
		if err := t.coreClient.TriggerDownstream(ctx, msg.SourceID); err != nil {
			t.logger.Warn("downstream trigger failed",
				zap.String("source_id", msg.SourceID),
				zap.Error(err),
			)
		}
		if t.publisher != nil {
			if err := t.publisher.Publish(ctx, msg.SourceID, len(result.Items)); err != nil {
				t.logger.Warn("completion event not published",
					zap.String("source_id", msg.SourceID),
					zap.Error(err),
				)
			}
		}
		return Outcome{
			Status:  collector.TaskStatusSucceeded,
			Message: fmt.Sprintf("Succesfully collected source %s", msg.SourceID),
			Items:   result.Items,
		}, nil
	}
}

// PreviewTask runs a trial fetch for source validation. It never triggers
// downstream processing and never reports source status.
type PreviewTask struct {
	dispatcher *dispatcher.Dispatcher
	timeLimit  time.Duration
	logger     *zap.Logger
}

// NewPreviewTask constructs the preview entry point.
func NewPreviewTask(d *dispatcher.Dispatcher, timeLimit time.Duration, logger *zap.Logger) *PreviewTask {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeLimit <= 0 {
		timeLimit = 50 * time.Second
	}
	return &PreviewTask{dispatcher: d, timeLimit: timeLimit, logger: logger}
}

// Name implements Handler.
func (t *PreviewTask) Name() collector.TaskName { return collector.TaskPreview }

// TimeLimit implements Handler.
func (t *PreviewTask) TimeLimit() time.Duration { return t.timeLimit }

// Handle runs the preview and carries the collected items back for
// interactive feedback.
func (t *PreviewTask) Handle(ctx context.Context, msg queue.TaskMessage) (Outcome, error) {
	t.logger.Info("Starting collector preview",
		zap.String("task_id", msg.TaskID),
		zap.String("source_id", msg.SourceID),
	)

	result, err := t.dispatcher.Preview(ctx, msg.SourceID)
	if err != nil {
		return Outcome{}, err
	}

	switch result.Status {
	case dispatcher.StatusSkipped:
		return Outcome{Status: collector.TaskStatusSkipped, Message: result.Message}, nil

	case dispatcher.StatusFailed:
		return Outcome{Status: collector.TaskStatusFailed, Message: result.Message}, nil

	default:
		return Outcome{
			Status:  collector.TaskStatusSucceeded,
			Message: fmt.Sprintf("Previewed source %s: %d items", msg.SourceID, len(result.Items)),
			Items:   result.Items,
		}, nil
	}
}
