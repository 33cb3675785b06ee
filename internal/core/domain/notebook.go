package domain

import "slices"

// Notebook is a remote container of notes.
// The engine never mutates notebooks; it fetches the list wholesale.
type Notebook struct {
	// GUID uniquely identifies the notebook on the server.
	GUID string `json:"guid" yaml:"guid"`

	// Name is the display name.
	Name string `json:"name" yaml:"name"`

	// UpdateSequenceNum is the USN of the last change to the notebook.
	UpdateSequenceNum int32 `json:"updateSequenceNum" yaml:"updateSequenceNum"`

	// Stack groups notebooks in clients.
	Stack string `json:"stack,omitempty" yaml:"stack,omitempty"`

	// DefaultNotebook marks the account's default notebook.
	DefaultNotebook bool `json:"defaultNotebook" yaml:"defaultNotebook"`

	// ServiceCreated and ServiceUpdated are server timestamps in milliseconds.
	ServiceCreated int64 `json:"serviceCreated,omitempty" yaml:"serviceCreated,omitempty"`
	ServiceUpdated int64 `json:"serviceUpdated,omitempty" yaml:"serviceUpdated,omitempty"`
}

// NotebookList is the persisted form of all notebooks in the account.
type NotebookList []Notebook

// Kind implements Resource.
func (NotebookList) Kind() ResourceKind { return KindNotebooks }

// Sanitize returns a copy with a non-nil backing slice.
func (l NotebookList) Sanitize() Resource {
	if l == nil {
		return NotebookList{}
	}
	return slices.Clone(l)
}

func (NotebookList) resource() {}

// Find returns the notebook with the given guid.
func (l NotebookList) Find(guid string) (Notebook, bool) {
	for _, nb := range l {
		if nb.GUID == guid {
			return nb, true
		}
	}
	return Notebook{}, false
}

// Tag is a label applied to notes. Carried in chunks.
type Tag struct {
	GUID              string `json:"guid" yaml:"guid"`
	Name              string `json:"name" yaml:"name"`
	ParentGUID        string `json:"parentGuid,omitempty" yaml:"parentGuid,omitempty"`
	UpdateSequenceNum int32  `json:"updateSequenceNum" yaml:"updateSequenceNum"`
}

// SavedSearch is a stored query. Carried in chunks.
type SavedSearch struct {
	GUID              string `json:"guid" yaml:"guid"`
	Name              string `json:"name" yaml:"name"`
	Query             string `json:"query" yaml:"query"`
	UpdateSequenceNum int32  `json:"updateSequenceNum" yaml:"updateSequenceNum"`
}

// LinkedNotebook references a notebook shared from another account.
type LinkedNotebook struct {
	GUID              string `json:"guid" yaml:"guid"`
	ShareName         string `json:"shareName" yaml:"shareName"`
	Username          string `json:"username,omitempty" yaml:"username,omitempty"`
	ShardID           string `json:"shardId,omitempty" yaml:"shardId,omitempty"`
	SharedNotebookKey string `json:"sharedNotebookGlobalId,omitempty" yaml:"sharedNotebookGlobalId,omitempty"`
	URI               string `json:"uri,omitempty" yaml:"uri,omitempty"`
	UpdateSequenceNum int32  `json:"updateSequenceNum" yaml:"updateSequenceNum"`
}
