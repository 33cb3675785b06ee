package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/ports/driven"
)

// ReadNote returns the stored note with the given guid.
// Returns nil and no error if the note is not stored.
func ReadNote(ctx context.Context, store driven.ResourceStore, guid string) (*domain.Note, error) {
	res, err := store.Read(ctx, guid)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read note %s: %w", guid, err)
	}
	note, ok := res.(*domain.Note)
	if !ok {
		return nil, fmt.Errorf("read note %s: %w: stored %s", guid, domain.ErrUnsupportedType, res.Kind())
	}
	return note, nil
}

// ReadChunk returns the stored chunk with the given high USN.
func ReadChunk(ctx context.Context, store driven.ResourceStore, usn int32) (*domain.SyncChunk, error) {
	name := domain.ChunkResourceName(usn)
	res, err := store.Read(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("read chunk %s: %w", name, err)
	}
	chunk, ok := res.(*domain.SyncChunk)
	if !ok {
		return nil, fmt.Errorf("read chunk %s: %w: stored %s", name, domain.ErrUnsupportedType, res.Kind())
	}
	return chunk, nil
}

// ReadNotebooks returns the stored notebook list.
// Returns nil and no error if no list is stored.
func ReadNotebooks(ctx context.Context, store driven.ResourceStore) (domain.NotebookList, error) {
	res, err := store.Read(ctx, domain.NotebooksResourceName)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read notebooks: %w", err)
	}
	list, ok := domain.Normalize(res).(domain.NotebookList)
	if !ok {
		return nil, fmt.Errorf("read notebooks: %w: stored %s", domain.ErrUnsupportedType, res.Kind())
	}
	return list, nil
}
