package fixture

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/ports/driven"
)

// Operation names used as fault keys.
const (
	OpCheckVersion    = "check_version"
	OpGetNoteStoreURL = "get_note_store_url"
	OpListNotebooks   = "list_notebooks"
	OpGetSyncState    = "get_sync_state"
	OpGetChunk        = "get_filtered_sync_chunk"
	OpGetNote         = "get_note"
)

const defaultNoteStoreURL = "fixture://notestore"

// Feed is the recorded account replayed by Remote.
type Feed struct {
	// VersionAccepted is the CheckVersion answer. Defaults to true.
	VersionAccepted *bool `yaml:"versionAccepted,omitempty"`

	NoteStoreURL string            `yaml:"noteStoreURL,omitempty"`
	Notebooks    []domain.Notebook `yaml:"notebooks"`

	// Notes are full notes. Chunks carry them as guid and USN summaries.
	Notes []domain.Note `yaml:"notes"`

	// UpdateCount overrides the account USN. Defaults to the highest USN.
	UpdateCount int32 `yaml:"updateCount,omitempty"`

	// Faults are consumed one per call, e.g. "rate_limit:2s", "transient",
	// "auth" or "error:message".
	Faults map[string][]string `yaml:"faults,omitempty"`
}

// Remote implements driven.RemoteSyncClient over a Feed.
type Remote struct {
	mu     sync.Mutex
	feed   Feed
	faults map[string][]Fault
	calls  map[string]int
}

// Verify interface compliance.
var _ driven.RemoteSyncClient = (*Remote)(nil)

// New creates a remote for feed. Fault specs are validated up front.
func New(feed Feed) (*Remote, error) {
	faults := make(map[string][]Fault, len(feed.Faults))
	for op, specs := range feed.Faults {
		if !knownOp(op) {
			return nil, fmt.Errorf("%w: unknown fault operation %q", domain.ErrInvalidInput, op)
		}
		for _, spec := range specs {
			fault, err := ParseFault(spec)
			if err != nil {
				return nil, err
			}
			faults[op] = append(faults[op], fault)
		}
	}

	feed.Notebooks = slices.Clone(feed.Notebooks)
	feed.Notes = slices.Clone(feed.Notes)
	slices.SortStableFunc(feed.Notes, func(a, b domain.Note) int {
		return cmp.Compare(a.UpdateSequenceNum, b.UpdateSequenceNum)
	})

	return &Remote{feed: feed, faults: faults, calls: make(map[string]int)}, nil
}

// Load reads a YAML feed from r. Unknown fields are rejected.
func Load(r io.Reader) (*Remote, error) {
	var feed Feed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&feed); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	return New(feed)
}

// LoadFile reads a YAML feed from path.
func LoadFile(path string) (*Remote, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feed: %w", err)
	}
	defer f.Close()

	remote, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return remote, nil
}

// Fault is an injected failure returned instead of a result.
type Fault struct {
	Err error
}

// ParseFault converts a fault spec into the failure the remote returns.
func ParseFault(spec string) (Fault, error) {
	kind, arg, _ := strings.Cut(strings.TrimSpace(spec), ":")
	switch kind {
	case "rate_limit":
		d := time.Second
		if arg != "" {
			parsed, err := time.ParseDuration(arg)
			if err != nil {
				return Fault{}, fmt.Errorf("%w: fault %q: %w", domain.ErrInvalidInput, spec, err)
			}
			d = parsed
		}
		return Fault{Err: &domain.RateLimitError{Duration: d}}, nil
	case "transient":
		return Fault{Err: domain.Transient(errors.New("connection reset by peer"))}, nil
	case "auth":
		return Fault{Err: domain.Unretryable(fmt.Errorf("%w: token expired", domain.ErrAuthInvalid))}, nil
	case "error":
		if arg == "" {
			arg = "remote error"
		}
		return Fault{Err: errors.New(arg)}, nil
	default:
		return Fault{}, fmt.Errorf("%w: unknown fault %q", domain.ErrInvalidInput, spec)
	}
}

// Calls returns how many times op was invoked.
func (r *Remote) Calls(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

// begin counts the call and pops the next queued fault. Callers hold mu.
func (r *Remote) begin(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.calls[op]++
	if queued := r.faults[op]; len(queued) > 0 {
		r.faults[op] = queued[1:]
		return fmt.Errorf("%s: %w", op, queued[0].Err)
	}
	return nil
}

func (r *Remote) updateCount() int32 {
	if r.feed.UpdateCount > 0 {
		return r.feed.UpdateCount
	}
	var highest int32
	for _, n := range r.feed.Notes {
		highest = max(highest, n.UpdateSequenceNum)
	}
	for _, nb := range r.feed.Notebooks {
		highest = max(highest, nb.UpdateSequenceNum)
	}
	return highest
}

// CheckVersion implements driven.RemoteSyncClient.
func (r *Remote) CheckVersion(ctx context.Context, _ string, _, _ int16) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin(ctx, OpCheckVersion); err != nil {
		return false, err
	}
	if r.feed.VersionAccepted == nil {
		return true, nil
	}
	return *r.feed.VersionAccepted, nil
}

// GetNoteStoreURL implements driven.RemoteSyncClient.
func (r *Remote) GetNoteStoreURL(ctx context.Context, _ string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin(ctx, OpGetNoteStoreURL); err != nil {
		return "", err
	}
	return cmp.Or(r.feed.NoteStoreURL, defaultNoteStoreURL), nil
}

// ListNotebooks implements driven.RemoteSyncClient.
func (r *Remote) ListNotebooks(ctx context.Context, _ string) ([]domain.Notebook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin(ctx, OpListNotebooks); err != nil {
		return nil, err
	}
	return append([]domain.Notebook{}, r.feed.Notebooks...), nil
}

// GetSyncState implements driven.RemoteSyncClient.
func (r *Remote) GetSyncState(ctx context.Context, _ string) (*domain.SyncState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin(ctx, OpGetSyncState); err != nil {
		return nil, err
	}
	return &domain.SyncState{
		CurrentTime: time.Now().UnixMilli(),
		UpdateCount: r.updateCount(),
	}, nil
}

// GetFilteredSyncChunk implements driven.RemoteSyncClient.
// Notes and notebooks share one USN sequence; the chunk holds the next
// maxEntries of them above afterUSN.
func (r *Remote) GetFilteredSyncChunk(
	ctx context.Context,
	_ string,
	afterUSN, maxEntries int32,
	filter domain.SyncChunkFilter,
) (*domain.SyncChunk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin(ctx, OpGetChunk); err != nil {
		return nil, err
	}

	type entry struct {
		usn      int32
		note     *domain.Note
		notebook *domain.Notebook
	}
	var entries []entry
	if filter.IncludeNotes {
		for i := range r.feed.Notes {
			if n := &r.feed.Notes[i]; n.UpdateSequenceNum > afterUSN {
				entries = append(entries, entry{usn: n.UpdateSequenceNum, note: n})
			}
		}
	}
	if filter.IncludeNotebooks {
		for i := range r.feed.Notebooks {
			if nb := &r.feed.Notebooks[i]; nb.UpdateSequenceNum > afterUSN {
				entries = append(entries, entry{usn: nb.UpdateSequenceNum, notebook: nb})
			}
		}
	}
	slices.SortStableFunc(entries, func(a, b entry) int { return cmp.Compare(a.usn, b.usn) })

	chunk := &domain.SyncChunk{
		CurrentTime:  time.Now().UnixMilli(),
		UpdateCount:  r.updateCount(),
		ChunkHighUSN: afterUSN,
	}
	for i, e := range entries {
		if int32(i) >= maxEntries {
			break
		}
		if e.note != nil {
			chunk.Notes = append(chunk.Notes, domain.Note{
				GUID:              e.note.GUID,
				Title:             e.note.Title,
				NotebookGUID:      e.note.NotebookGUID,
				UpdateSequenceNum: e.note.UpdateSequenceNum,
				Active:            e.note.Active,
			})
		} else {
			chunk.Notebooks = append(chunk.Notebooks, *e.notebook)
		}
		chunk.ChunkHighUSN = e.usn
	}
	return chunk, nil
}

// GetNote implements driven.RemoteSyncClient.
func (r *Remote) GetNote(ctx context.Context, _, guid string, opts domain.NoteOptions) (*domain.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin(ctx, OpGetNote); err != nil {
		return nil, err
	}

	i := slices.IndexFunc(r.feed.Notes, func(n domain.Note) bool { return n.GUID == guid })
	if i < 0 {
		return nil, fmt.Errorf("%s: note %s: %w", OpGetNote, guid, domain.Unretryable(domain.ErrNotFound))
	}

	note := r.feed.Notes[i].Sanitize().(*domain.Note)
	if !opts.WithContent {
		note.Content = ""
	}
	for j := range note.Resources {
		if !opts.WithResourcesData && note.Resources[j].Data != nil {
			note.Resources[j].Data.Body = nil
		}
		if !opts.WithResourcesRecognition {
			note.Resources[j].Recognition = nil
		}
		if !opts.WithResourcesAlternateData {
			note.Resources[j].AlternateData = nil
		}
	}
	return note, nil
}

func knownOp(op string) bool {
	switch op {
	case OpCheckVersion, OpGetNoteStoreURL, OpListNotebooks, OpGetSyncState, OpGetChunk, OpGetNote:
		return true
	}
	return false
}
