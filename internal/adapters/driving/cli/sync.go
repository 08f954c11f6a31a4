package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbsync/internal/core/domain"
	"github.com/custodia-labs/kbsync/internal/core/ports/driving"
)

var syncCmd = &cobra.Command{
	Use:   "sync [source-id]",
	Short: "Synchronise entries into the document index",
	Long: `Runs one synchronisation pass. If a source ID is provided,
only that source is synchronised. Otherwise, all sources are
synchronised.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if syncOrchestrator == nil {
		if credentialErr != nil {
			return credentialErr
		}
		return errors.New("sync service not configured")
	}

	ctx := context.Background()

	var (
		summary *domain.RunSummary
		err     error
	)
	if len(args) > 0 {
		cmd.Printf("Synchronising source: %s...\n", args[0])
		summary, err = syncWithProgress(ctx, cmd, syncOrchestrator, args[0])
	} else {
		cmd.Println("Synchronising all sources...")
		summary, err = syncOrchestrator.SyncAll(ctx)
	}

	if summary != nil {
		printSummary(cmd, summary)
	}
	if err != nil {
		if errors.Is(err, domain.ErrSyncInProgress) {
			return errors.New("a sync run is already in progress")
		}
		return fmt.Errorf("sync failed: %w", err)
	}
	return nil
}

// syncWithProgress runs a single-source sync while displaying progress.
func syncWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	syncOrch driving.SyncOrchestrator,
	sourceID string,
) (*domain.RunSummary, error) {
	type result struct {
		summary *domain.RunSummary
		err     error
	}
	resultCh := make(chan result, 1)
	go func() {
		summary, err := syncOrch.Sync(ctx, sourceID)
		resultCh <- result{summary, err}
	}()

	// Poll status every 500ms
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastCount := 0
	for {
		select {
		case res := <-resultCh:
			return res.summary, res.err
		case <-ticker.C:
			// Check progress (ignore status error - best effort)
			status, statusErr := syncOrch.Status(ctx)
			if statusErr == nil && status != nil && status.Processed > lastCount {
				cmd.Printf("\rProcessing... %d entries", status.Processed)
				lastCount = status.Processed
			}
		}
	}
}

func printSummary(cmd *cobra.Command, summary *domain.RunSummary) {
	cmd.Printf("Processed %d entries: %d uploaded, %d skipped, %d failed.\n",
		summary.Processed, summary.Uploaded, summary.Skipped, summary.Failed)
}
