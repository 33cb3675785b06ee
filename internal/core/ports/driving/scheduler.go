package driving

import (
	"context"

	"github.com/custodia-labs/notesync/internal/core/domain"
)

// Scheduler runs the mirror sync periodically in daemon mode.
type Scheduler interface {
	// Start begins running scheduled tasks.
	// Blocks until context is cancelled or an error occurs.
	Start(ctx context.Context) error

	// Stop gracefully stops all running tasks.
	Stop() error

	// RunNow executes a task immediately, outside its schedule.
	RunNow(ctx context.Context, taskID string) (*domain.TaskResult, error)
}
