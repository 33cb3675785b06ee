package driven

import (
	"context"

	"github.com/custodia-labs/notesync/internal/core/domain"
)

// RemoteSyncClient is the server side of the change feed.
//
// Implementations report a server cooldown as *domain.RateLimitError,
// connectivity failures wrapped with domain.ErrTransient, and failures
// that must not be retried wrapped with domain.ErrUnretryable.
type RemoteSyncClient interface {
	// CheckVersion reports whether the server accepts the client protocol version.
	CheckVersion(ctx context.Context, clientName string, major, minor int16) (bool, error)

	// GetNoteStoreURL returns the note store endpoint for the account.
	GetNoteStoreURL(ctx context.Context, authToken string) (string, error)

	// ListNotebooks returns every notebook in the account.
	ListNotebooks(ctx context.Context, authToken string) ([]domain.Notebook, error)

	// GetSyncState returns the server's current feed position.
	GetSyncState(ctx context.Context, authToken string) (*domain.SyncState, error)

	// GetFilteredSyncChunk returns entries with USN greater than afterUSN,
	// at most maxEntries of them, restricted by filter.
	GetFilteredSyncChunk(
		ctx context.Context,
		authToken string,
		afterUSN, maxEntries int32,
		filter domain.SyncChunkFilter,
	) (*domain.SyncChunk, error)

	// GetNote fetches a single note with the parts selected by opts.
	GetNote(ctx context.Context, authToken, guid string, opts domain.NoteOptions) (*domain.Note, error)
}
