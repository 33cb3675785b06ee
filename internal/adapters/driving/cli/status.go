package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/notesync/internal/core/domain"
)

var statusFlags struct {
	history int
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Describe the local mirror",
	Long: `Prints the cursor, the stored chunk range, gaps between stored chunks
and whether the notebook list is saved. With --history, recent daemon runs
are listed too.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusFlags.history, "history", 0, "show the last N daemon runs")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	services, err := openServices(false)
	if err != nil {
		return err
	}

	status, err := services.Engine().Status(cmd.Context())
	if err != nil {
		return err
	}

	cmd.Println("Mirror Status")
	cmd.Println("=============")
	cmd.Printf("  Backend:   %s\n", cfg.Store.Backend)
	cmd.Printf("  Cursor:    %d\n", status.Cursor)
	if status.ChunkCount == 0 {
		cmd.Println("  Chunks:    none")
	} else {
		cmd.Printf("  Chunks:    %d (%d..%d)\n", status.ChunkCount, status.LowestChunk, status.HighestChunk)
	}
	if len(status.Gaps) == 0 {
		cmd.Println("  Gaps:      none")
	} else {
		cmd.Printf("  Gaps:      %d\n", len(status.Gaps))
		for _, g := range status.Gaps {
			cmd.Printf("    %d..%d\n", g.From+1, g.To)
		}
	}
	cmd.Printf("  Notebooks: %s\n", yesNo(status.HasNotebooks))

	if statusFlags.history <= 0 {
		return nil
	}

	results, err := services.TaskHistory(cmd.Context(), domain.TaskIDMirrorSync, statusFlags.history)
	if err != nil {
		return err
	}
	cmd.Println()
	cmd.Println("Recent Runs")
	cmd.Println("===========")
	if len(results) == 0 {
		cmd.Println("  none")
	}
	for _, r := range results {
		outcome := "ok in " + r.Duration().Round(time.Millisecond).String()
		if !r.Success {
			outcome = "failed: " + r.Error
		}
		cmd.Printf("  %s  %3d items  %s\n", r.StartedAt.Local().Format(time.DateTime), r.ItemsProcessed, outcome)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "saved"
	}
	return "missing"
}
