package services

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/ports/driven"
	"github.com/custodia-labs/notesync/internal/core/ports/driving"
	"github.com/custodia-labs/notesync/internal/logger"
)

// Ensure SyncEngine implements the interface.
var _ driving.SyncEngine = (*SyncEngine)(nil)

// SyncEngine mirrors a remote account into a ResourceStore by replaying
// the server change feed.
//
// The engine is sequential: one remote call is in flight at a time, and
// it suspends only while pacing or sleeping through a server cooldown.
type SyncEngine struct {
	remote    driven.RemoteSyncClient
	store     driven.ResourceStore
	authToken string
	settings  domain.SyncSettings
	pacer     *Pacer
	retry     *RetryExecutor

	mu            sync.RWMutex
	versionOK     bool
	lastReport    *driving.SyncReport
	now           func() time.Time
	newRunID      func() string
	runInProgress bool
}

// NewSyncEngine creates a sync engine.
func NewSyncEngine(
	remote driven.RemoteSyncClient,
	store driven.ResourceStore,
	authToken string,
	settings domain.SyncSettings,
) *SyncEngine {
	pacer := NewPacer(settings.Interval)
	return &SyncEngine{
		remote:    remote,
		store:     store,
		authToken: authToken,
		settings:  settings,
		pacer:     pacer,
		retry:     NewRetryExecutor(settings, pacer),
		now:       time.Now,
		newRunID:  uuid.NewString,
	}
}

// ConfirmVersion checks the client protocol version once per engine.
func (e *SyncEngine) ConfirmVersion(ctx context.Context) error {
	e.mu.RLock()
	confirmed := e.versionOK
	e.mu.RUnlock()
	if confirmed {
		return nil
	}

	logger.Info("Confirming client version %d.%d", domain.EDAMVersionMajor, domain.EDAMVersionMinor)
	accepted, ok := Attempt(ctx, e.retry, "check_version", func(ctx context.Context) (bool, error) {
		return e.remote.CheckVersion(ctx, domain.ClientName, domain.EDAMVersionMajor, domain.EDAMVersionMinor)
	})
	if err := ctx.Err(); err != nil {
		return err
	}
	if !ok || !accepted {
		return fmt.Errorf("%w (%d.%d)", domain.ErrVersionOutdated, domain.EDAMVersionMajor, domain.EDAMVersionMinor)
	}

	e.mu.Lock()
	e.versionOK = true
	e.mu.Unlock()
	return nil
}

// Cursor returns the highest stored chunk USN, or the start USN when no
// chunk is stored.
func (e *SyncEngine) Cursor(ctx context.Context) (int32, error) {
	names, err := e.store.ListNumericNames(ctx)
	if err != nil {
		return 0, fmt.Errorf("list chunks: %w", err)
	}
	if len(names) == 0 {
		return e.settings.StartUSN, nil
	}
	return names[len(names)-1], nil
}

// SyncNotebooks fetches and stores the notebook list.
func (e *SyncEngine) SyncNotebooks(ctx context.Context) (domain.NotebookList, error) {
	list, ok := Attempt(ctx, e.retry, "list_notebooks", func(ctx context.Context) (domain.NotebookList, error) {
		notebooks, err := e.remote.ListNotebooks(ctx, e.authToken)
		return domain.NotebookList(notebooks), err
	})
	if !ok {
		logger.Warn("Notebook list unavailable, skipping")
		return nil, ctx.Err()
	}
	if list == nil {
		list = domain.NotebookList{}
	}

	if _, err := e.store.Write(ctx, domain.NotebooksResourceName, list); err != nil {
		return nil, fmt.Errorf("save notebooks: %w", err)
	}
	logger.Info("Saved resource: %s (%d notebooks)", domain.NotebooksResourceName, len(list))
	return list, nil
}

// SyncChunks replays the change feed from the cursor up to the server's
// latest USN. The latest USN is re-read before every fetch so that changes
// made during the pass are picked up in the same pass.
func (e *SyncEngine) SyncChunks(ctx context.Context) (*driving.ChunkReport, error) {
	cursor, err := e.Cursor(ctx)
	if err != nil {
		return nil, err
	}

	report := &driving.ChunkReport{StartUSN: cursor, EndUSN: cursor, Chunks: []string{}}
	if err := e.replay(ctx, cursor, 0, report); err != nil {
		return report, err
	}
	return report, nil
}

// BackfillChunks fetches the chunks missing below and between stored chunks.
func (e *SyncEngine) BackfillChunks(ctx context.Context) (*driving.ChunkReport, error) {
	gaps, err := e.Gaps(ctx)
	if err != nil {
		return nil, err
	}

	report := &driving.ChunkReport{Chunks: []string{}}
	if len(gaps) == 0 {
		cursor, err := e.Cursor(ctx)
		if err != nil {
			return nil, err
		}
		report.StartUSN, report.EndUSN = cursor, cursor
		return report, nil
	}

	report.StartUSN = gaps[0].From
	report.EndUSN = gaps[0].From
	for _, gap := range gaps {
		logger.Info("Backfilling chunks %d..%d", gap.From+1, gap.To)
		if err := e.replay(ctx, gap.From, gap.To, report); err != nil {
			return report, err
		}
		if report.Incomplete {
			break
		}
	}
	return report, nil
}

// replay fetches chunks forward from cursor until the cursor reaches limit.
// A limit of zero means the server's current update count.
func (e *SyncEngine) replay(ctx context.Context, cursor, limit int32, report *driving.ChunkReport) error {
	for {
		finish := limit
		if limit <= 0 {
			state, ok := Attempt(ctx, e.retry, "get_sync_state", func(ctx context.Context) (*domain.SyncState, error) {
				return e.remote.GetSyncState(ctx, e.authToken)
			})
			if !ok || state == nil {
				report.Incomplete = true
				return ctx.Err()
			}
			finish = state.UpdateCount
			logger.Debug("The latest chunk # is %d", finish)
		}
		report.RemoteUSN = max(report.RemoteUSN, finish)

		if cursor >= finish {
			return nil
		}

		if err := e.pacer.Wait(ctx); err != nil {
			report.Incomplete = true
			return err
		}

		after := cursor
		logger.Info("Fetching chunk after %d", after)
		chunk, ok := Attempt(ctx, e.retry, "get_filtered_sync_chunk", func(ctx context.Context) (*domain.SyncChunk, error) {
			return e.remote.GetFilteredSyncChunk(ctx, e.authToken, after, e.settings.MaxEntries, e.settings.Filter)
		})
		if !ok || chunk == nil {
			report.Incomplete = true
			return ctx.Err()
		}
		if chunk.ChunkHighUSN <= cursor {
			logger.Warn("Chunk after %d did not advance the cursor (high usn %d), stopping", cursor, chunk.ChunkHighUSN)
			report.Incomplete = true
			return nil
		}

		chunk.AfterUSN = after
		name := domain.ChunkResourceName(chunk.ChunkHighUSN)
		if _, err := e.store.Write(ctx, name, chunk); err != nil {
			return fmt.Errorf("save chunk %s: %w", name, err)
		}
		logger.Info("Saved resource: %s (%d notes)", name, len(chunk.Notes))

		report.Chunks = append(report.Chunks, name)
		cursor = chunk.ChunkHighUSN
		report.EndUSN = cursor
	}
}

// Gaps returns the USN ranges not covered by stored chunks.
// A stored chunk covers (AfterUSN, ChunkHighUSN]; the range below the
// lowest chunk starts at zero.
func (e *SyncEngine) Gaps(ctx context.Context) ([]domain.USNRange, error) {
	names, err := e.store.ListNumericNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}

	var gaps []domain.USNRange
	var covered int32
	for _, usn := range names {
		chunk, err := ReadChunk(ctx, e.store, usn)
		if err != nil {
			return nil, err
		}
		if chunk.AfterUSN > covered {
			gaps = append(gaps, domain.USNRange{From: covered, To: chunk.AfterUSN})
		}
		covered = max(covered, usn)
	}
	return gaps, nil
}

// SyncModifiedNotes yields notes refetched because a stored chunk above
// sinceUSN lists a newer version than the local copy.
//
// The sequence is lazy: nothing is fetched until it is ranged over, and
// stopping early leaves the store consistent. A guid is fetched at most
// once per call.
func (e *SyncEngine) SyncModifiedNotes(ctx context.Context, sinceUSN int32) iter.Seq2[*domain.Note, error] {
	return func(yield func(*domain.Note, error) bool) {
		names, err := e.store.ListNumericNames(ctx)
		if err != nil {
			yield(nil, fmt.Errorf("list chunks: %w", err))
			return
		}

		// attempted holds every guid fetched in this call, including
		// skipped failures.
		attempted := make(map[string]struct{})
		for _, usn := range names {
			if usn <= sinceUSN {
				continue
			}
			chunk, err := ReadChunk(ctx, e.store, usn)
			if err != nil {
				yield(nil, err)
				return
			}

			for i := range chunk.Notes {
				summary := &chunk.Notes[i]
				if _, done := attempted[summary.GUID]; done {
					continue
				}
				if err := domain.ValidateName(summary.GUID); err != nil || domain.KindForName(summary.GUID) != domain.KindNote {
					logger.Warn("Chunk %d lists a note with unusable guid %q, skipping", usn, summary.GUID)
					continue
				}

				local, err := ReadNote(ctx, e.store, summary.GUID)
				if err != nil {
					yield(nil, err)
					return
				}
				if !summary.IsStaleAgainst(local) {
					continue
				}

				attempted[summary.GUID] = struct{}{}
				note, err := e.refreshNote(ctx, summary.GUID)
				if err != nil {
					yield(nil, err)
					return
				}
				if note == nil {
					continue
				}
				if !yield(note, nil) {
					return
				}
			}
		}
	}
}

// refreshNote fetches and stores one note. It returns nil and no error
// when the fetch failed and the failure policy is to skip.
func (e *SyncEngine) refreshNote(ctx context.Context, guid string) (*domain.Note, error) {
	if err := e.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	logger.Info("Fetching note: %s", guid)
	note, ok := Attempt(ctx, e.retry, "get_note", func(ctx context.Context) (*domain.Note, error) {
		return e.remote.GetNote(ctx, e.authToken, guid, domain.FullNote())
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !ok || note == nil {
		if e.settings.NoteFailurePolicy == domain.NoteFailureAbort {
			return nil, fmt.Errorf("note %s: %w", guid, domain.ErrNoteFetchFailed)
		}
		logger.Warn("Skipping note %s: fetch failed", guid)
		return nil, nil
	}

	if _, err := e.store.Write(ctx, guid, note); err != nil {
		return nil, fmt.Errorf("save note %s: %w", guid, err)
	}
	logger.Info("Saved resource: %s", guid)
	return note, nil
}

// Run performs a full pass and records its report.
func (e *SyncEngine) Run(ctx context.Context, opts driving.RunOptions) (*driving.SyncReport, error) {
	e.mu.Lock()
	if e.runInProgress {
		e.mu.Unlock()
		return nil, domain.ErrSyncInProgress
	}
	e.runInProgress = true
	e.mu.Unlock()

	report := &driving.SyncReport{
		RunID:          e.newRunID(),
		StartedAt:      e.now(),
		NotesRefreshed: []string{},
	}
	defer func() {
		report.FinishedAt = e.now()
		e.mu.Lock()
		e.lastReport = report
		e.runInProgress = false
		e.mu.Unlock()
	}()

	if err := e.ConfirmVersion(ctx); err != nil {
		return report, err
	}

	logger.Section("Notebooks")
	notebooks, err := e.SyncNotebooks(ctx)
	if err != nil {
		return report, err
	}
	report.Notebooks = len(notebooks)

	logger.Section("Chunks")
	report.Chunks, err = e.SyncChunks(ctx)
	if err != nil {
		return report, err
	}

	if opts.Backfill {
		logger.Section("Backfill")
		report.Backfill, err = e.BackfillChunks(ctx)
		if err != nil {
			return report, err
		}
	}

	// Every stored chunk is checked so notes skipped or left unfetched by
	// an earlier pass are picked up; up-to-date notes are not refetched.
	logger.Section("Notes")
	for note, err := range e.SyncModifiedNotes(ctx, 0) {
		if err != nil {
			return report, err
		}
		report.NotesRefreshed = append(report.NotesRefreshed, note.GUID)
	}

	logger.Info("Run %s: %d notebooks, %d chunks, %d notes",
		report.RunID, report.Notebooks, len(report.Chunks.Chunks), len(report.NotesRefreshed))
	return report, nil
}

// Status describes the local mirror.
func (e *SyncEngine) Status(ctx context.Context) (*driving.MirrorStatus, error) {
	names, err := e.store.ListNumericNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	gaps, err := e.Gaps(ctx)
	if err != nil {
		return nil, err
	}
	hasNotebooks, err := e.store.Exists(ctx, domain.NotebooksResourceName)
	if err != nil {
		return nil, fmt.Errorf("check notebooks: %w", err)
	}

	status := &driving.MirrorStatus{
		Cursor:       e.settings.StartUSN,
		ChunkCount:   len(names),
		Gaps:         gaps,
		HasNotebooks: hasNotebooks,
	}
	if len(names) > 0 {
		status.LowestChunk = names[0]
		status.HighestChunk = names[len(names)-1]
		status.Cursor = status.HighestChunk
	}

	e.mu.RLock()
	status.LastRun = e.lastReport
	e.mu.RUnlock()
	return status, nil
}
