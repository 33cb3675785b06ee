package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/logger"
)

var daemonFlags struct {
	once bool
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Sync on a schedule until interrupted",
	Long: `Runs the mirror sync every daemon.interval. Task state and run history
are kept in the data directory's database, so a restarted daemon picks up
the schedule where it left off. Stop it with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().BoolVar(&daemonFlags.once, "once", false, "run the scheduled task once and exit")
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	services, err := openServices(true)
	if err != nil {
		return err
	}
	scheduler, err := services.Scheduler()
	if err != nil {
		return err
	}

	if daemonFlags.once {
		result, err := scheduler.RunNow(cmd.Context(), domain.TaskIDMirrorSync)
		if result != nil {
			cmd.Printf("Run %s: %d items processed\n", result.RunID, result.ItemsProcessed)
		}
		if err != nil {
			return fmt.Errorf("scheduled sync failed: %w", err)
		}
		return nil
	}

	cmd.Printf("Daemon started, syncing every %s\n", cfg.Daemon.Interval)
	err = scheduler.Start(cmd.Context())
	if stopErr := scheduler.Stop(); stopErr != nil {
		logger.Warn("stopping scheduler: %v", stopErr)
	}
	if errors.Is(err, context.Canceled) {
		cmd.Println("Daemon stopped.")
		return nil
	}
	return err
}
