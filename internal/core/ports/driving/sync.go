package driving

import (
	"context"
	"iter"
	"time"

	"github.com/custodia-labs/notesync/internal/core/domain"
)

// SyncEngine mirrors the remote account into the local store.
type SyncEngine interface {
	// ConfirmVersion checks the client protocol version with the server.
	// Returns domain.ErrVersionOutdated if the server refuses it.
	ConfirmVersion(ctx context.Context) error

	// Cursor returns the highest stored chunk USN, or the configured start
	// USN when no chunk is stored.
	Cursor(ctx context.Context) (int32, error)

	// SyncNotebooks fetches and stores the notebook list.
	// Returns nil and no error if the remote gave no answer within the retry budget.
	SyncNotebooks(ctx context.Context) (domain.NotebookList, error)

	// SyncChunks catches up on the change feed from the cursor.
	SyncChunks(ctx context.Context) (*ChunkReport, error)

	// BackfillChunks fetches chunks missing below or between stored chunks.
	BackfillChunks(ctx context.Context) (*ChunkReport, error)

	// SyncModifiedNotes lazily refetches notes that stored chunks above
	// sinceUSN report as newer than the local copy.
	SyncModifiedNotes(ctx context.Context, sinceUSN int32) iter.Seq2[*domain.Note, error]

	// Run performs a full pass: version, notebooks, chunks, optional
	// backfill and stale notes.
	Run(ctx context.Context, opts RunOptions) (*SyncReport, error)

	// Gaps returns USN ranges not covered by stored chunks.
	Gaps(ctx context.Context) ([]domain.USNRange, error)

	// Status describes the local mirror.
	Status(ctx context.Context) (*MirrorStatus, error)
}

// RunOptions selects optional stages of a full pass.
type RunOptions struct {
	// Backfill fills chunk gaps after catching up.
	Backfill bool
}

// ChunkReport summarises one chunk pass.
type ChunkReport struct {
	// StartUSN is the cursor before the pass.
	StartUSN int32

	// EndUSN is the cursor after the pass.
	EndUSN int32

	// RemoteUSN is the last update count reported by the server.
	RemoteUSN int32

	// Chunks lists the names of chunks stored during the pass.
	Chunks []string

	// Incomplete is set when the pass ended before reaching RemoteUSN.
	Incomplete bool
}

// SyncReport summarises a full pass.
type SyncReport struct {
	RunID          string
	StartedAt      time.Time
	FinishedAt     time.Time
	Notebooks      int
	Chunks         *ChunkReport
	Backfill       *ChunkReport
	NotesRefreshed []string
}

// ItemsProcessed counts chunks and notes stored during the pass.
func (r *SyncReport) ItemsProcessed() int {
	if r == nil {
		return 0
	}
	n := len(r.NotesRefreshed)
	if r.Chunks != nil {
		n += len(r.Chunks.Chunks)
	}
	if r.Backfill != nil {
		n += len(r.Backfill.Chunks)
	}
	return n
}

// MirrorStatus describes the local mirror.
type MirrorStatus struct {
	// Cursor is the current watermark.
	Cursor int32

	// ChunkCount is the number of stored chunks.
	ChunkCount int

	// LowestChunk and HighestChunk bound the stored chunk names.
	LowestChunk  int32
	HighestChunk int32

	// Gaps lists ranges not covered by stored chunks.
	Gaps []domain.USNRange

	// HasNotebooks is set when the notebook list is stored.
	HasNotebooks bool

	// LastRun is the most recent report, if any run happened in this process.
	LastRun *SyncReport
}
