package domain

import "slices"

// SyncState is the server's view of the account's change feed.
type SyncState struct {
	CurrentTime    int64 `json:"currentTime" yaml:"currentTime"`
	FullSyncBefore int64 `json:"fullSyncBefore" yaml:"fullSyncBefore"`

	// UpdateCount is the highest USN assigned in the account.
	UpdateCount int32 `json:"updateCount" yaml:"updateCount"`

	Uploaded int64 `json:"uploaded,omitempty" yaml:"uploaded,omitempty"`
}

// SyncChunk is one page of the change feed.
//
// ChunkHighUSN is the highest USN contained in the chunk and becomes the
// cursor for the next request. AfterUSN records the exclusive lower bound
// the chunk was requested with so that gaps between stored chunks can be found.
type SyncChunk struct {
	CurrentTime  int64 `json:"currentTime" yaml:"currentTime"`
	ChunkHighUSN int32 `json:"chunkHighUSN" yaml:"chunkHighUSN"`
	UpdateCount  int32 `json:"updateCount" yaml:"updateCount"`
	AfterUSN     int32 `json:"afterUSN" yaml:"afterUSN"`

	Notes           []Note           `json:"notes" yaml:"notes"`
	Notebooks       []Notebook       `json:"notebooks" yaml:"notebooks"`
	Tags            []Tag            `json:"tags" yaml:"tags"`
	Searches        []SavedSearch    `json:"searches" yaml:"searches"`
	Resources       []Attachment     `json:"resources" yaml:"resources"`
	LinkedNotebooks []LinkedNotebook `json:"linkedNotebooks" yaml:"linkedNotebooks"`

	ExpungedNotes           []string `json:"expungedNotes" yaml:"expungedNotes"`
	ExpungedNotebooks       []string `json:"expungedNotebooks" yaml:"expungedNotebooks"`
	ExpungedTags            []string `json:"expungedTags" yaml:"expungedTags"`
	ExpungedSearches        []string `json:"expungedSearches" yaml:"expungedSearches"`
	ExpungedLinkedNotebooks []string `json:"expungedLinkedNotebooks" yaml:"expungedLinkedNotebooks"`
}

// Kind implements Resource.
func (*SyncChunk) Kind() ResourceKind { return KindChunk }

// Sanitize returns a copy with every nil collection replaced by an empty one.
func (c *SyncChunk) Sanitize() Resource {
	if c == nil {
		return (*SyncChunk)(nil)
	}
	out := *c
	out.Notes = make([]Note, len(c.Notes))
	for i := range c.Notes {
		out.Notes[i] = *c.Notes[i].Sanitize().(*Note)
	}
	out.Notebooks = cloneOrEmpty(c.Notebooks)
	out.Tags = cloneOrEmpty(c.Tags)
	out.Searches = cloneOrEmpty(c.Searches)
	out.Resources = make([]Attachment, len(c.Resources))
	for i, r := range c.Resources {
		out.Resources[i] = r.clone()
	}
	out.LinkedNotebooks = cloneOrEmpty(c.LinkedNotebooks)
	out.ExpungedNotes = cloneOrEmpty(c.ExpungedNotes)
	out.ExpungedNotebooks = cloneOrEmpty(c.ExpungedNotebooks)
	out.ExpungedTags = cloneOrEmpty(c.ExpungedTags)
	out.ExpungedSearches = cloneOrEmpty(c.ExpungedSearches)
	out.ExpungedLinkedNotebooks = cloneOrEmpty(c.ExpungedLinkedNotebooks)
	return &out
}

func (*SyncChunk) resource() {}

func cloneOrEmpty[S ~[]E, E any](s S) S {
	if s == nil {
		return S{}
	}
	return slices.Clone(s)
}

// SyncChunkFilter selects which entity types a chunk request returns.
type SyncChunkFilter struct {
	IncludeNotes                   bool `json:"includeNotes"`
	IncludeNoteResources           bool `json:"includeNoteResources"`
	IncludeNoteAttributes          bool `json:"includeNoteAttributes"`
	IncludeNotebooks               bool `json:"includeNotebooks"`
	IncludeTags                    bool `json:"includeTags"`
	IncludeSearches                bool `json:"includeSearches"`
	IncludeResources               bool `json:"includeResources"`
	IncludeLinkedNotebooks         bool `json:"includeLinkedNotebooks"`
	IncludeExpunged                bool `json:"includeExpunged"`
	IncludeNoteApplicationData     bool `json:"includeNoteApplicationDataFullMap"`
	IncludeResourceApplicationData bool `json:"includeResourceApplicationDataFullMap"`

	IncludeNoteResourceApplicationData bool `json:"includeNoteResourceApplicationDataFullMap"`
}

// DefaultChunkFilter includes every entity type except expunged entries.
func DefaultChunkFilter() SyncChunkFilter {
	return SyncChunkFilter{
		IncludeNotes:                   true,
		IncludeNoteResources:           true,
		IncludeNoteAttributes:          true,
		IncludeNotebooks:               true,
		IncludeTags:                    true,
		IncludeSearches:                true,
		IncludeResources:               true,
		IncludeLinkedNotebooks:         true,
		IncludeNoteApplicationData:     true,
		IncludeResourceApplicationData: true,

		IncludeNoteResourceApplicationData: true,
	}
}

// USNRange is a half-open interval (From, To] of update sequence numbers.
type USNRange struct {
	From int32 `json:"from"`
	To   int32 `json:"to"`
}

// Empty reports whether the range holds no USNs.
func (r USNRange) Empty() bool {
	return r.To <= r.From
}
