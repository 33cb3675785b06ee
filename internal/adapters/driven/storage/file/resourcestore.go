package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/ports/driven"
)

// Ensure ResourceStore implements the interface.
var _ driven.ResourceStore = (*ResourceStore)(nil)

const (
	stagingDir = ".staging"
	jsonExt    = ".json"
	yamlExt    = ".yml"
)

// ResourceStore persists resources as files on a billy filesystem.
type ResourceStore struct {
	fs   billy.Filesystem
	yaml bool
}

// Option configures a ResourceStore.
type Option func(*ResourceStore)

// WithYAML enables writing a YAML copy of every resource.
func WithYAML(enabled bool) Option {
	return func(s *ResourceStore) {
		s.yaml = enabled
	}
}

// NewResourceStore creates a store rooted at fs.
func NewResourceStore(fs billy.Filesystem, opts ...Option) (*ResourceStore, error) {
	s := &ResourceStore{fs: fs}
	for _, opt := range opts {
		opt(s)
	}

	if err := fs.MkdirAll(stagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	if err := s.purgeStaging(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewOSResourceStore creates a store in dir on the local disk.
func NewOSResourceStore(dir string, opts ...Option) (*ResourceStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create mirror dir: %w", err)
	}
	return NewResourceStore(osfs.New(dir), opts...)
}

// Exists reports whether a resource is stored under name in any format.
func (s *ResourceStore) Exists(_ context.Context, name string) (bool, error) {
	if err := domain.ValidateName(name); err != nil {
		return false, err
	}
	for _, ext := range []string{jsonExt, yamlExt} {
		_, err := s.fs.Stat(name + ext)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return false, fmt.Errorf("stat %s: %w", name+ext, err)
		}
	}
	return false, nil
}

// Read decodes the resource stored under name. JSON is preferred, the YAML
// copy is used when no JSON file exists.
func (s *ResourceStore) Read(_ context.Context, name string) (domain.Resource, error) {
	if err := domain.ValidateName(name); err != nil {
		return nil, err
	}

	res, err := domain.KindForName(name).New()
	if err != nil {
		return nil, err
	}

	data, err := util.ReadFile(s.fs, name+jsonExt)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, res); err != nil {
			return nil, fmt.Errorf("decode %s%s: %w", name, jsonExt, err)
		}
		return domain.Normalize(res), nil
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read %s%s: %w", name, jsonExt, err)
	}

	data, err = util.ReadFile(s.fs, name+yamlExt)
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s%s: %w", name, yamlExt, err)
	}
	if err := yaml.Unmarshal(data, res); err != nil {
		return nil, fmt.Errorf("decode %s%s: %w", name, yamlExt, err)
	}
	return domain.Normalize(res), nil
}

// Write encodes res and stores it under name. Each file is staged and then
// renamed into place.
func (s *ResourceStore) Write(_ context.Context, name string, res domain.Resource) (domain.Resource, error) {
	if domain.IsAbsent(res) {
		return nil, nil
	}
	if err := domain.ValidateName(name); err != nil {
		return nil, err
	}
	res = domain.Normalize(res)
	clean := res.Sanitize()

	data, err := json.MarshalIndent(clean, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode %s%s: %w", name, jsonExt, err)
	}
	if err := s.replace(name+jsonExt, data); err != nil {
		return nil, err
	}

	if s.yaml {
		data, err := yaml.Marshal(clean)
		if err != nil {
			return nil, fmt.Errorf("encode %s%s: %w", name, yamlExt, err)
		}
		if err := s.replace(name+yamlExt, data); err != nil {
			return nil, err
		}
	}

	return res, nil
}

// ListNumericNames returns the names of stored chunks, ascending.
func (s *ResourceStore) ListNumericNames(_ context.Context) ([]int32, error) {
	entries, err := s.fs.ReadDir(".")
	if err != nil {
		return nil, fmt.Errorf("list mirror: %w", err)
	}

	names := make([]int32, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		base, ok := trimExt(entry.Name())
		if !ok {
			continue
		}
		if usn, err := domain.ParseNumericName(base); err == nil {
			names = append(names, usn)
		}
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

// replace writes data to a staged file and renames it over target.
func (s *ResourceStore) replace(target string, data []byte) error {
	tmp, err := s.fs.TempFile(stagingDir, target+"-")
	if err != nil {
		return fmt.Errorf("stage %s: %w", target, err)
	}
	staged := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(staged)
		return fmt.Errorf("stage %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(staged)
		return fmt.Errorf("stage %s: %w", target, err)
	}

	if err := s.fs.Rename(staged, target); err != nil {
		_ = s.fs.Remove(staged)
		return fmt.Errorf("commit %s: %w", target, err)
	}
	return nil
}

// purgeStaging removes files left behind by interrupted writes.
func (s *ResourceStore) purgeStaging() error {
	entries, err := s.fs.ReadDir(stagingDir)
	if err != nil {
		return fmt.Errorf("list staging dir: %w", err)
	}
	for _, entry := range entries {
		if err := s.fs.Remove(s.fs.Join(stagingDir, entry.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("purge staging: %w", err)
		}
	}
	return nil
}

func trimExt(filename string) (string, bool) {
	for _, ext := range []string{jsonExt, yamlExt} {
		if base, ok := strings.CutSuffix(filename, ext); ok {
			return base, true
		}
	}
	return "", false
}
