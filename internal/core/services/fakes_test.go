package services

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/custodia-labs/notesync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/ports/driven"
)

// --- Fake remote feed ---

// fakeRemote implements driven.RemoteSyncClient over an in-memory feed.
// Entries are note summaries ordered by USN; a chunk after X holds the
// next maxEntries entries above X.
type fakeRemote struct {
	mu sync.Mutex

	versionOK bool
	notebooks []domain.Notebook
	entries   []domain.Note
	notes     map[string]*domain.Note

	// Queued failures per operation, consumed one per call.
	failures map[string][]error

	// stallAt makes the chunk after this USN report no progress.
	stallAt *int32

	calls map[string]int
	after []int32

	// onGetNote runs at the start of every GetNote call.
	onGetNote func(guid string)
}

var _ driven.RemoteSyncClient = (*fakeRemote)(nil)

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		versionOK: true,
		notes:     make(map[string]*domain.Note),
		failures:  make(map[string][]error),
		calls:     make(map[string]int),
	}
}

// addEntry appends a sparse summary to the feed.
func (f *fakeRemote) addEntry(guid string, usn int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, domain.Note{GUID: guid, UpdateSequenceNum: usn})
	slices.SortFunc(f.entries, func(a, b domain.Note) int {
		return int(a.UpdateSequenceNum - b.UpdateSequenceNum)
	})
}

// setNote sets the full note returned by GetNote.
func (f *fakeRemote) setNote(guid string, usn int32, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes[guid] = &domain.Note{
		GUID:              guid,
		Title:             "Note " + guid,
		Content:           content,
		ContentHash:       domain.Binary(content),
		UpdateSequenceNum: usn,
		Active:            true,
	}
}

func (f *fakeRemote) fail(op string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = append(f.failures[op], errs...)
}

func (f *fakeRemote) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeRemote) begin(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	if queued := f.failures[op]; len(queued) > 0 {
		f.failures[op] = queued[1:]
		return queued[0]
	}
	return nil
}

func (f *fakeRemote) updateCount() int32 {
	if len(f.entries) == 0 {
		return 0
	}
	return f.entries[len(f.entries)-1].UpdateSequenceNum
}

func (f *fakeRemote) CheckVersion(_ context.Context, _ string, _, _ int16) (bool, error) {
	if err := f.begin("check_version"); err != nil {
		return false, err
	}
	return f.versionOK, nil
}

func (f *fakeRemote) GetNoteStoreURL(_ context.Context, _ string) (string, error) {
	if err := f.begin("get_note_store_url"); err != nil {
		return "", err
	}
	return "https://example.invalid/shard/s1/notestore", nil
}

func (f *fakeRemote) ListNotebooks(_ context.Context, _ string) ([]domain.Notebook, error) {
	if err := f.begin("list_notebooks"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.notebooks), nil
}

func (f *fakeRemote) GetSyncState(_ context.Context, _ string) (*domain.SyncState, error) {
	if err := f.begin("get_sync_state"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return &domain.SyncState{UpdateCount: f.updateCount()}, nil
}

func (f *fakeRemote) GetFilteredSyncChunk(
	_ context.Context,
	_ string,
	afterUSN, maxEntries int32,
	_ domain.SyncChunkFilter,
) (*domain.SyncChunk, error) {
	if err := f.begin("get_filtered_sync_chunk"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.after = append(f.after, afterUSN)

	chunk := &domain.SyncChunk{UpdateCount: f.updateCount()}
	if f.stallAt != nil && *f.stallAt == afterUSN {
		chunk.ChunkHighUSN = afterUSN
		return chunk, nil
	}
	for _, e := range f.entries {
		if e.UpdateSequenceNum <= afterUSN {
			continue
		}
		if int32(len(chunk.Notes)) >= maxEntries {
			break
		}
		chunk.Notes = append(chunk.Notes, e)
		chunk.ChunkHighUSN = e.UpdateSequenceNum
	}
	return chunk, nil
}

func (f *fakeRemote) GetNote(_ context.Context, _, guid string, _ domain.NoteOptions) (*domain.Note, error) {
	if f.onGetNote != nil {
		f.onGetNote(guid)
	}
	if err := f.begin("get_note"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	note, ok := f.notes[guid]
	if !ok {
		return nil, errors.New("EDAMNotFoundException: Note.guid")
	}
	cp := *note
	return &cp, nil
}

// --- Store wrappers ---

// failingStore wraps a memory store and fails writes for selected kinds.
type failingStore struct {
	*memory.ResourceStore
	failKind domain.ResourceKind
	err      error
}

var _ driven.ResourceStore = (*failingStore)(nil)

func (s *failingStore) Write(ctx context.Context, name string, res domain.Resource) (domain.Resource, error) {
	if !domain.IsAbsent(res) && res.Kind() == s.failKind {
		return nil, s.err
	}
	return s.ResourceStore.Write(ctx, name, res)
}

// testSettings returns settings with pacing and sleeps disabled.
func testSettings() domain.SyncSettings {
	s := domain.DefaultSyncSettings()
	s.Interval = 0
	s.RateLimitMargin = 0
	s.RetryDelay = 0
	return s
}
