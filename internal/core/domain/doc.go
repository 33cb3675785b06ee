// Package domain defines the core business entities for notesync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Notebook: A remote container of notes
//   - SyncChunk: One page of the server change feed
//   - Note: A note and its attachments
//   - Resource: The sealed set of values the local store persists
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
