// Package dispatcher resolves a source id to a fetcher, invokes it and
// interprets the outcome.
package dispatcher

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/intelforge/collector-worker/internal/collector"
	"github.com/intelforge/collector-worker/internal/core"
)

// Status tags the variant of a dispatch result.
type Status string

// Dispatch result variants. Callers branch on these, never on message text.
const (
	StatusSucceeded Status = "succeeded"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Result is the terminal value of one dispatch attempt. Transport failures
// reaching the control plane are returned as errors instead, so the task
// layer can hand them to the queue's retry mechanism; everything in a Result
// is final for this task.
type Result struct {
	Status  Status
	Message string
	Items   []collector.Item
}

// Dispatcher holds the registry and control-plane client shared by all task
// executions. It keeps no mutable state across concurrent dispatches: the
// registry is read-only after startup and each dispatch works on a
// request-scoped source snapshot. Two tasks for the same source may run
// concurrently; the dispatcher does not deduplicate.
type Dispatcher struct {
	coreClient collector.CoreClient
	registry   *collector.Registry
	logger     *zap.Logger
}

// New constructs a Dispatcher.
func New(coreClient collector.CoreClient, registry *collector.Registry, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		coreClient: coreClient,
		registry:   registry,
		logger:     logger,
	}
}

// Dispatch resolves the source, runs its fetcher and interprets the outcome.
// A non-nil error means the control plane was unreachable and the attempt
// should be retried by the queue; every other condition, including terminal
// configuration problems, is expressed in the Result.
func (d *Dispatcher) Dispatch(ctx context.Context, sourceID string, manual bool) (Result, error) {
	source, fetcher, terminal, err := d.resolve(ctx, sourceID)
	if err != nil {
		return Result{}, err
	}
	if terminal != nil {
		return *terminal, nil
	}

	outcome := fetcher.Collect(ctx, source, manual)
	return d.interpret(ctx, sourceID, outcome, true), nil
}

// Preview resolves the source and runs the fetcher's non-mutating trial
// fetch. It never reports status to the control plane regardless of outcome.
func (d *Dispatcher) Preview(ctx context.Context, sourceID string) (Result, error) {
	source, fetcher, terminal, err := d.resolve(ctx, sourceID)
	if err != nil {
		return Result{}, err
	}
	if terminal != nil {
		return *terminal, nil
	}

	outcome := fetcher.Preview(ctx, source)
	return d.interpret(ctx, sourceID, outcome, false), nil
}

// resolve fetches the source snapshot and selects its fetcher. Exactly one of
// the return values is meaningful: a transport error, a terminal result, or a
// (source, fetcher) pair.
func (d *Dispatcher) resolve(ctx context.Context, sourceID string) (collector.Source, collector.Fetcher, *Result, error) {
	source, err := d.coreClient.GetSource(ctx, sourceID)
	if err != nil {
		if errors.Is(err, core.ErrSourceNotFound) {
			msg := fmt.Sprintf("Source with id %s not found", sourceID)
			d.logger.Error(msg, zap.String("source_id", sourceID))
			return collector.Source{}, nil, &Result{Status: StatusFailed, Message: msg}, nil
		}
		// Critical severity is attached where the client logs the failure.
		return collector.Source{}, nil, nil, fmt.Errorf("resolve source %s: %w", sourceID, err)
	}

	if source.Type == "" {
		msg := fmt.Sprintf("Source %s has no collector type", sourceID)
		d.logger.Error(msg, zap.String("source_id", sourceID))
		return collector.Source{}, nil, &Result{Status: StatusFailed, Message: msg}, nil
	}

	fetcher, ok := d.registry.Lookup(source.Type)
	if !ok {
		msg := fmt.Sprintf("Collector %s not implemented", source.Type)
		d.logger.Error(msg,
			zap.String("source_id", sourceID),
			zap.String("source_type", source.Type),
		)
		return collector.Source{}, nil, &Result{Status: StatusFailed, Message: msg}, nil
	}

	return source, fetcher, nil, nil
}

// interpret maps a fetch outcome onto a dispatch result. Error outcomes from
// a collection run are reported to the control plane so source health is
// externally visible; skips never are, distinguishing "nothing new" from
// "broken source". Previews report nothing.
func (d *Dispatcher) interpret(ctx context.Context, sourceID string, outcome collector.Outcome, reportStatus bool) Result {
	switch {
	case outcome.IsSkip():
		d.logger.Info("Skipping source",
			zap.String("source_id", sourceID),
			zap.String("reason", outcome.Reason),
		)
		return Result{Status: StatusSkipped, Message: "Skipping source"}

	case outcome.IsError():
		d.logger.Warn("collection failed",
			zap.String("source_id", sourceID),
			zap.String("error", outcome.Message),
			zap.Bool("retryable", outcome.Retryable),
		)
		if reportStatus {
			d.coreClient.UpdateStatus(ctx, sourceID, collector.SourceStatus{Error: outcome.Message})
		}
		return Result{Status: StatusFailed, Message: outcome.Message}

	default:
		d.logger.Info("source collected",
			zap.String("source_id", sourceID),
			zap.Int("items", len(outcome.Items)),
		)
		return Result{Status: StatusSucceeded, Items: outcome.Items}
	}
}
