package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/ports/driven"
)

// Ensure ResourceStore implements the interface.
var _ driven.ResourceStore = (*ResourceStore)(nil)

// ResourceStore is an in-memory implementation of driven.ResourceStore.
// Values are copied on the way in and out so callers never share state
// with the store.
type ResourceStore struct {
	mu        sync.RWMutex
	resources map[string]domain.Resource
}

// NewResourceStore creates a new in-memory resource store.
func NewResourceStore() *ResourceStore {
	return &ResourceStore{
		resources: make(map[string]domain.Resource),
	}
}

// Exists reports whether a resource is stored under name.
func (s *ResourceStore) Exists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.resources[name]
	return ok, nil
}

// Read returns a copy of the resource stored under name.
func (s *ResourceStore) Read(_ context.Context, name string) (domain.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.resources[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return res.Sanitize(), nil
}

// Write stores a copy of res under name.
func (s *ResourceStore) Write(_ context.Context, name string, res domain.Resource) (domain.Resource, error) {
	if domain.IsAbsent(res) {
		return nil, nil
	}
	if err := domain.ValidateName(name); err != nil {
		return nil, err
	}
	res = domain.Normalize(res)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources[name] = res.Sanitize()
	return res, nil
}

// ListNumericNames returns stored chunk names in ascending order.
func (s *ResourceStore) ListNumericNames(_ context.Context) ([]int32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]int32, 0, len(s.resources))
	for name := range s.resources {
		if usn, err := domain.ParseNumericName(name); err == nil {
			names = append(names, usn)
		}
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

// Names returns every stored name, sorted.
func (s *ResourceStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.resources))
	for name := range s.resources {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of stored resources.
func (s *ResourceStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.resources)
}
