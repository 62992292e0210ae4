package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/intelforge/collector-worker/internal/dispatcher"
)

func newPreviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview <source-id>",
		Short: "Trial-fetch one source and print the items",
		Long: `Runs the source's collector without side effects: no status reports, no
downstream processing. Prints the normalized items as JSON for inspection.`,
		Args: cobra.ExactArgs(1),
		RunE: runPreview,
	}
}

func runPreview(cmd *cobra.Command, args []string) error {
	instance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	sourceID := args[0]

	ctx, cancel := context.WithTimeout(cmd.Context(), instance.Config.PreviewTimeLimit())
	defer cancel()

	result, err := instance.Dispatcher.Preview(ctx, sourceID)
	if err != nil {
		return fmt.Errorf("preview source %s: %w", sourceID, err)
	}
	if result.Status == dispatcher.StatusFailed {
		return fmt.Errorf("preview failed: %s", result.Message)
	}

	out, err := json.MarshalIndent(result.Items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	cmd.Printf("%s\n", out)
	return nil
}
