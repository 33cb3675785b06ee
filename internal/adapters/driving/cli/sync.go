package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/notesync/internal/core/ports/driving"
)

var syncFlags struct {
	backfill bool
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror the account",
	Long: `Runs a full pass: confirms the client version, saves the notebook list,
catches up on the change feed and refetches notes that changed.
Notes skipped by an earlier run are retried.

With --backfill, chunks missing below or between stored chunks are fetched
as well.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncFlags.backfill, "backfill", false, "fill gaps between stored chunks")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	services, err := openServices(true)
	if err != nil {
		return err
	}

	opts := driving.RunOptions{Backfill: syncFlags.backfill || cfg.Sync.Backfill}

	cmd.Println("Synchronising...")
	report, err := services.Engine().Run(cmd.Context(), opts)
	if report != nil {
		printReport(cmd, report)
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	return nil
}

func printReport(cmd *cobra.Command, r *driving.SyncReport) {
	cmd.Printf("Run %s\n", r.RunID)
	cmd.Printf("  Notebooks: %d\n", r.Notebooks)
	if r.Chunks != nil {
		cmd.Printf("  Chunks:    %s\n", describeChunks(r.Chunks))
	}
	if r.Backfill != nil {
		cmd.Printf("  Backfill:  %s\n", describeChunks(r.Backfill))
	}
	cmd.Printf("  Notes:     %d refreshed\n", len(r.NotesRefreshed))
	if !r.FinishedAt.IsZero() {
		cmd.Printf("  Duration:  %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	}
}

func describeChunks(c *driving.ChunkReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d saved, cursor %d -> %d", len(c.Chunks), c.StartUSN, c.EndUSN)
	if c.RemoteUSN > 0 {
		fmt.Fprintf(&b, " of %d", c.RemoteUSN)
	}
	if c.Incomplete {
		b.WriteString(" (incomplete)")
	}
	return b.String()
}
