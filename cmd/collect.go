package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/intelforge/collector-worker/internal/collector"
	"github.com/intelforge/collector-worker/internal/queue"
)

func newCollectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collect <source-id>",
		Short: "Collect one source immediately",
		Long: `Resolves the source from the control plane and runs its collector in the
foreground, bypassing the queue. Runs as a manual collection, so freshness
watermarks are ignored; on success downstream processing is triggered just
like a queued collection.`,
		Args: cobra.ExactArgs(1),
		RunE: runCollect,
	}
}

func runCollect(cmd *cobra.Command, args []string) error {
	instance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	sourceID := args[0]

	taskID, err := instance.IDs.NewID()
	if err != nil {
		return fmt.Errorf("generate task id: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), instance.Config.CollectTimeLimit())
	defer cancel()

	outcome, err := instance.Collector.Handle(ctx, queue.TaskMessage{
		TaskID:   taskID,
		Name:     collector.TaskCollect,
		SourceID: sourceID,
		Manual:   true,
	})
	if err != nil {
		return fmt.Errorf("collect source %s: %w", sourceID, err)
	}

	instance.Logger.Info("Collection finished",
		zap.String("source_id", sourceID),
		zap.String("status", string(outcome.Status)),
		zap.Int("items", len(outcome.Items)),
	)
	if outcome.Status == collector.TaskStatusFailed {
		return fmt.Errorf("collection failed: %s", outcome.Message)
	}
	cmd.Printf("%s: %s (%d items)\n", sourceID, outcome.Status, len(outcome.Items))
	return nil
}
