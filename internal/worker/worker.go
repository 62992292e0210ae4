// Package worker runs the task consumption loop: a fixed pool of goroutines
// pulls messages off the queue, routes them to their handler under the task's
// time budget, and applies the retry policy to transport failures.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/intelforge/collector-worker/internal/collector"
	"github.com/intelforge/collector-worker/internal/metrics"
	"github.com/intelforge/collector-worker/internal/queue"
	"github.com/intelforge/collector-worker/internal/results"
	"github.com/intelforge/collector-worker/internal/tasks"
)

// Config sizes the pool.
type Config struct {
	Concurrency int
}

// Worker consumes tasks until its context is cancelled or the queue closes.
type Worker struct {
	cfg      Config
	queue    queue.Queue
	handlers map[collector.TaskName]tasks.Handler
	results  collector.ResultStore
	retry    *tasks.FixedRetryPolicy
	clock    collector.Clock
	logger   *zap.Logger
}

// New builds a worker over the given handlers. Only collection tasks are ever
// re-enqueued; every other task type fails terminally on error.
func New(
	cfg Config,
	q queue.Queue,
	handlers []tasks.Handler,
	results collector.ResultStore,
	retry *tasks.FixedRetryPolicy,
	clock collector.Clock,
	logger *zap.Logger,
) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	byName := make(map[collector.TaskName]tasks.Handler, len(handlers))
	for _, h := range handlers {
		byName[h.Name()] = h
	}
	return &Worker{
		cfg:      cfg,
		queue:    q,
		handlers: byName,
		results:  results,
		retry:    retry,
		clock:    clock,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled or the queue closes, then waits for
// in-flight tasks to finish.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("Starting worker pool", zap.Int("concurrency", w.cfg.Concurrency))

	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			w.consume(ctx, slot)
		}(i)
	}
	wg.Wait()

	w.logger.Info("Worker pool stopped")
	return nil
}

func (w *Worker) consume(ctx context.Context, slot int) {
	for {
		msg, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() == nil {
				w.logger.Warn("queue drained, stopping consumer",
					zap.Int("slot", slot),
					zap.Error(err),
				)
			}
			return
		}
		w.process(ctx, msg)
	}
}

func (w *Worker) process(ctx context.Context, msg queue.TaskMessage) {
	handler, ok := w.handlers[msg.Name]
	if !ok {
		w.logger.Error("no handler registered for task",
			zap.String("task", string(msg.Name)),
			zap.String("task_id", msg.TaskID),
		)
		metrics.ObserveTask(string(msg.Name), string(collector.TaskStatusFailed))
		return
	}

	w.markStarted(ctx, msg)

	taskCtx, cancel := context.WithTimeout(ctx, handler.TimeLimit())
	started := w.clock.Now()
	outcome, err := handler.Handle(taskCtx, msg)
	cancel()

	if err != nil {
		w.handleError(ctx, msg, err)
		return
	}

	w.logger.Info("Task finished",
		zap.String("task", string(msg.Name)),
		zap.String("task_id", msg.TaskID),
		zap.String("status", string(outcome.Status)),
		zap.Duration("elapsed", w.clock.Now().Sub(started)),
	)
	metrics.ObserveTask(string(msg.Name), string(outcome.Status))
	w.complete(ctx, msg, outcome)
}

func (w *Worker) handleError(ctx context.Context, msg queue.TaskMessage, err error) {
	if msg.Name == collector.TaskCollect && w.retry != nil && w.retry.ShouldRetry(err, msg.Attempt) {
		delay := w.retry.Backoff(msg.Attempt)
		w.logger.Warn("Retrying collector task",
			zap.String("task_id", msg.TaskID),
			zap.String("source_id", msg.SourceID),
			zap.Int("attempt", msg.Attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		metrics.ObserveRetry()

		retryMsg := msg
		retryMsg.Attempt++
		retryMsg.NotBefore = w.clock.Now().Add(delay)
		if enqErr := w.queue.Enqueue(ctx, retryMsg); enqErr != nil {
			w.logger.Error("could not re-enqueue task",
				zap.String("task_id", msg.TaskID),
				zap.Error(enqErr),
			)
			w.fail(ctx, msg, fmt.Sprintf("%v (re-enqueue failed: %v)", err, enqErr))
		}
		return
	}

	message := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		message = fmt.Sprintf("task time limit exceeded after %s", w.handlers[msg.Name].TimeLimit())
	}
	w.logger.Error("Task failed",
		zap.String("task", string(msg.Name)),
		zap.String("task_id", msg.TaskID),
		zap.String("source_id", msg.SourceID),
		zap.Int("attempt", msg.Attempt),
		zap.Error(err),
	)
	w.fail(ctx, msg, message)
}

func (w *Worker) fail(ctx context.Context, msg queue.TaskMessage, message string) {
	metrics.ObserveTask(string(msg.Name), string(collector.TaskStatusFailed))
	w.complete(ctx, msg, tasks.Outcome{Status: collector.TaskStatusFailed, Message: message})
}

// markStarted flips the task record to started. Collection tasks carry no
// record, so a missing record is not an error.
func (w *Worker) markStarted(ctx context.Context, msg queue.TaskMessage) {
	if w.results == nil {
		return
	}
	if err := w.results.MarkStarted(ctx, msg.TaskID, w.clock.Now()); err != nil {
		if errors.Is(err, results.ErrTaskNotFound) {
			return
		}
		w.logger.Warn("could not mark task started",
			zap.String("task_id", msg.TaskID),
			zap.Error(err),
		)
	}
}

func (w *Worker) complete(ctx context.Context, msg queue.TaskMessage, outcome tasks.Outcome) {
	if w.results == nil {
		return
	}
	finished := w.clock.Now()
	rec := collector.TaskRecord{
		TaskID:     msg.TaskID,
		Name:       msg.Name,
		SourceID:   msg.SourceID,
		Status:     outcome.Status,
		Result:     outcome.Message,
		Items:      outcome.Items,
		Attempts:   msg.Attempt + 1,
		EnqueuedAt: msg.EnqueuedAt,
		FinishedAt: &finished,
	}
	if err := w.results.Complete(ctx, rec); err != nil {
		if errors.Is(err, results.ErrTaskNotFound) {
			return
		}
		w.logger.Warn("could not persist task result",
			zap.String("task_id", msg.TaskID),
			zap.Error(err),
		)
	}
}
