package driven

import (
	"context"

	"github.com/custodia-labs/notesync/internal/core/domain"
)

// ResourceStore persists named resources locally.
// It is the source of truth for what has already been mirrored.
//
// Names map to kinds: "notebooks" is the notebook list, purely numeric
// names are chunks keyed by their high USN, anything else is a note guid.
type ResourceStore interface {
	// Exists reports whether a resource with the name is stored.
	Exists(ctx context.Context, name string) (bool, error)

	// Read returns the stored resource decoded as the kind implied by name.
	// Returns domain.ErrNotFound if nothing is stored under name.
	Read(ctx context.Context, name string) (domain.Resource, error)

	// Write durably stores res under name and returns it unchanged.
	// A nil resource is a no-op that returns nil. Readers never observe a
	// partially written resource.
	Write(ctx context.Context, name string, res domain.Resource) (domain.Resource, error)

	// ListNumericNames returns the names of stored chunks, ascending and unique.
	ListNumericNames(ctx context.Context) ([]int32, error)
}
