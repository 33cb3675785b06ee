package domain

import (
	"fmt"
	"reflect"
	"strconv"
)

// ResourceKind identifies the type of a stored resource.
type ResourceKind string

const (
	// KindNotebooks is the full notebook list.
	KindNotebooks ResourceKind = "notebooks"

	// KindChunk is one sync chunk, named by its high USN.
	KindChunk ResourceKind = "chunk"

	// KindNote is one fully fetched note, named by its guid.
	KindNote ResourceKind = "note"
)

// NotebooksResourceName is the store name of the notebook list.
const NotebooksResourceName = "notebooks"

// Resource is a value the local store can persist.
// The set of implementations is closed: NotebookList, *SyncChunk and *Note.
type Resource interface {
	// Kind returns the resource type.
	Kind() ResourceKind

	// Sanitize returns a copy with nil collections normalised, safe to encode.
	Sanitize() Resource

	resource()
}

// IsValid returns true if the kind is one of the known kinds.
func (k ResourceKind) IsValid() bool {
	switch k {
	case KindNotebooks, KindChunk, KindNote:
		return true
	}
	return false
}

// String returns the kind as a string.
func (k ResourceKind) String() string {
	return string(k)
}

// New returns an empty value of the kind, ready to decode into.
// Decoded values pass through Normalize before use.
func (k ResourceKind) New() (Resource, error) {
	switch k {
	case KindNotebooks:
		return &NotebookList{}, nil
	case KindChunk:
		return &SyncChunk{}, nil
	case KindNote:
		return &Note{}, nil
	}
	return nil, fmt.Errorf("%w: resource kind %q", ErrUnsupportedType, k)
}

// Unwrap returns the list value.
func (l *NotebookList) Unwrap() NotebookList {
	if l == nil {
		return nil
	}
	return *l
}

// Normalize converts decode targets back to their canonical form.
func Normalize(res Resource) Resource {
	if l, ok := res.(*NotebookList); ok {
		return l.Unwrap()
	}
	return res
}

// KindForName infers the resource kind from a store name.
// "notebooks" is the notebook list, numeric names are chunks, anything else is a note guid.
func KindForName(name string) ResourceKind {
	switch {
	case name == NotebooksResourceName:
		return KindNotebooks
	case IsNumericName(name):
		return KindChunk
	default:
		return KindNote
	}
}

// ChunkResourceName returns the store name of a chunk with the given high USN.
func ChunkResourceName(highUSN int32) string {
	return strconv.FormatInt(int64(highUSN), 10)
}

// IsNumericName reports whether name consists only of ASCII digits.
func IsNumericName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ParseNumericName parses a chunk name. It fails for non-numeric names and
// values beyond the USN range.
func ParseNumericName(name string) (int32, error) {
	if !IsNumericName(name) {
		return 0, fmt.Errorf("%w: %q is not a chunk name", ErrInvalidInput, name)
	}
	v, err := strconv.ParseInt(name, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: chunk name %q: %w", ErrInvalidInput, name, err)
	}
	return int32(v), nil
}

// ValidateName rejects names that cannot be used as store keys.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty resource name", ErrInvalidInput)
	}
	for _, r := range name {
		if r == '/' || r == '\\' || r == 0 {
			return fmt.Errorf("%w: resource name %q contains a path separator", ErrInvalidInput, name)
		}
	}
	if name == "." || name == ".." || name[0] == '.' {
		return fmt.Errorf("%w: resource name %q is reserved", ErrInvalidInput, name)
	}
	return nil
}

// IsAbsent reports whether res is nil or a typed nil pointer.
func IsAbsent(res Resource) bool {
	if res == nil {
		return true
	}
	v := reflect.ValueOf(res)
	switch v.Kind() {
	case reflect.Pointer, reflect.Slice:
		return v.IsNil()
	}
	return false
}
