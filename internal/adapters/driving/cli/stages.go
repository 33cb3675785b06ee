package cli

import (
	"github.com/spf13/cobra"
)

var notesFlags struct {
	since int32
}

var notebooksCmd = &cobra.Command{
	Use:   "notebooks",
	Short: "Fetch and save the notebook list",
	Args:  cobra.NoArgs,
	RunE:  runNotebooks,
}

var chunksCmd = &cobra.Command{
	Use:   "chunks",
	Short: "Catch up on the change feed",
	Long: `Fetches chunks from the highest stored chunk up to the server's
current update count. Notes are not refetched; run "notesync notes" next.`,
	Args: cobra.NoArgs,
	RunE: runChunks,
}

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Refetch notes that stored chunks report as changed",
	Long: `Reads stored chunks above --since and fetches every note whose listed
update sequence number is newer than the local copy.`,
	Args: cobra.NoArgs,
	RunE: runNotes,
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Fetch chunks missing below or between stored chunks",
	Args:  cobra.NoArgs,
	RunE:  runBackfill,
}

func init() {
	notesCmd.Flags().Int32Var(&notesFlags.since, "since", 0, "only scan chunks above this update sequence number")
	rootCmd.AddCommand(notebooksCmd)
	rootCmd.AddCommand(chunksCmd)
	rootCmd.AddCommand(notesCmd)
	rootCmd.AddCommand(backfillCmd)
}

func runNotebooks(cmd *cobra.Command, _ []string) error {
	services, err := openServices(true)
	if err != nil {
		return err
	}
	engine := services.Engine()
	if err := engine.ConfirmVersion(cmd.Context()); err != nil {
		return err
	}

	list, err := engine.SyncNotebooks(cmd.Context())
	if err != nil {
		return err
	}
	if list == nil {
		cmd.Println("Notebook list unavailable, nothing saved.")
		return nil
	}

	cmd.Printf("Saved %d notebooks\n", len(list))
	for _, nb := range list {
		marker := ""
		if nb.DefaultNotebook {
			marker = " (default)"
		}
		cmd.Printf("  %s  %s%s\n", nb.GUID, nb.Name, marker)
	}
	return nil
}

func runChunks(cmd *cobra.Command, _ []string) error {
	services, err := openServices(true)
	if err != nil {
		return err
	}
	engine := services.Engine()
	if err := engine.ConfirmVersion(cmd.Context()); err != nil {
		return err
	}

	report, err := engine.SyncChunks(cmd.Context())
	if report != nil {
		cmd.Printf("Chunks: %s\n", describeChunks(report))
	}
	return err
}

func runNotes(cmd *cobra.Command, _ []string) error {
	services, err := openServices(true)
	if err != nil {
		return err
	}
	engine := services.Engine()
	if err := engine.ConfirmVersion(cmd.Context()); err != nil {
		return err
	}

	count := 0
	for note, err := range engine.SyncModifiedNotes(cmd.Context(), notesFlags.since) {
		if err != nil {
			return err
		}
		count++
		cmd.Printf("  %s  %s\n", note.GUID, note.Title)
	}
	cmd.Printf("Refreshed %d notes\n", count)
	return nil
}

func runBackfill(cmd *cobra.Command, _ []string) error {
	services, err := openServices(true)
	if err != nil {
		return err
	}
	engine := services.Engine()
	if err := engine.ConfirmVersion(cmd.Context()); err != nil {
		return err
	}

	report, err := engine.BackfillChunks(cmd.Context())
	if report != nil {
		cmd.Printf("Backfill: %s\n", describeChunks(report))
	}
	return err
}
