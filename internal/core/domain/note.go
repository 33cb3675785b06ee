package domain

import "maps"

// Note is a single note with its attachments.
// Chunks carry notes as sparse summaries: only GUID and UpdateSequenceNum
// are guaranteed, content is fetched separately when the note is stale.
type Note struct {
	GUID              string            `json:"guid" yaml:"guid"`
	Title             string            `json:"title,omitempty" yaml:"title,omitempty"`
	Content           string            `json:"content,omitempty" yaml:"content,omitempty"`
	ContentHash       Binary            `json:"contentHash,omitempty" yaml:"contentHash,omitempty"`
	ContentLength     int32             `json:"contentLength,omitempty" yaml:"contentLength,omitempty"`
	Created           int64             `json:"created,omitempty" yaml:"created,omitempty"`
	Updated           int64             `json:"updated,omitempty" yaml:"updated,omitempty"`
	Deleted           int64             `json:"deleted,omitempty" yaml:"deleted,omitempty"`
	Active            bool              `json:"active" yaml:"active"`
	UpdateSequenceNum int32             `json:"updateSequenceNum" yaml:"updateSequenceNum"`
	NotebookGUID      string            `json:"notebookGuid,omitempty" yaml:"notebookGuid,omitempty"`
	TagGUIDs          []string          `json:"tagGuids" yaml:"tagGuids"`
	Resources         []Attachment      `json:"resources" yaml:"resources"`
	Attributes        map[string]string `json:"attributes" yaml:"attributes"`
}

// Kind implements Resource.
func (*Note) Kind() ResourceKind { return KindNote }

// Sanitize returns a deep copy with nil collections replaced by empty ones.
func (n *Note) Sanitize() Resource {
	if n == nil {
		return (*Note)(nil)
	}
	out := *n
	out.ContentHash = n.ContentHash.Clone()
	out.TagGUIDs = append([]string{}, n.TagGUIDs...)
	out.Resources = make([]Attachment, len(n.Resources))
	for i, r := range n.Resources {
		out.Resources[i] = r.clone()
	}
	out.Attributes = map[string]string{}
	maps.Copy(out.Attributes, n.Attributes)
	return &out
}

func (*Note) resource() {}

// Attachment is a binary resource embedded in a note.
type Attachment struct {
	GUID              string `json:"guid" yaml:"guid"`
	NoteGUID          string `json:"noteGuid" yaml:"noteGuid"`
	Mime              string `json:"mime,omitempty" yaml:"mime,omitempty"`
	Data              *Data  `json:"data,omitempty" yaml:"data,omitempty"`
	Recognition       *Data  `json:"recognition,omitempty" yaml:"recognition,omitempty"`
	AlternateData     *Data  `json:"alternateData,omitempty" yaml:"alternateData,omitempty"`
	Width             int16  `json:"width,omitempty" yaml:"width,omitempty"`
	Height            int16  `json:"height,omitempty" yaml:"height,omitempty"`
	Active            bool   `json:"active" yaml:"active"`
	UpdateSequenceNum int32  `json:"updateSequenceNum" yaml:"updateSequenceNum"`
}

func (a Attachment) clone() Attachment {
	a.Data = a.Data.clone()
	a.Recognition = a.Recognition.clone()
	a.AlternateData = a.AlternateData.clone()
	return a
}

// Data is a binary body with its hash and size.
type Data struct {
	BodyHash Binary `json:"bodyHash,omitempty" yaml:"bodyHash,omitempty"`
	Size     int32  `json:"size" yaml:"size"`
	Body     Binary `json:"body,omitempty" yaml:"body,omitempty"`
}

func (d *Data) clone() *Data {
	if d == nil {
		return nil
	}
	return &Data{BodyHash: d.BodyHash.Clone(), Size: d.Size, Body: d.Body.Clone()}
}

// NoteOptions selects which parts of a note the remote returns.
type NoteOptions struct {
	WithContent                bool
	WithResourcesData          bool
	WithResourcesRecognition   bool
	WithResourcesAlternateData bool
}

// FullNote requests every part of a note.
func FullNote() NoteOptions {
	return NoteOptions{
		WithContent:                true,
		WithResourcesData:          true,
		WithResourcesRecognition:   true,
		WithResourcesAlternateData: true,
	}
}

// IsStaleAgainst reports whether summary describes a newer version than local.
// A missing local note is always stale.
func (n *Note) IsStaleAgainst(local *Note) bool {
	if local == nil {
		return true
	}
	return n.UpdateSequenceNum > local.UpdateSequenceNum
}
