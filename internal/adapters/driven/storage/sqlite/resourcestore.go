package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/ports/driven"
)

// resourceStore implements driven.ResourceStore.
type resourceStore struct {
	store *Store
}

var _ driven.ResourceStore = (*resourceStore)(nil)

// Exists reports whether a resource is stored under name.
func (s *resourceStore) Exists(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM resources WHERE name = ?", name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking resource %s: %w", name, err)
	}
	return n > 0, nil
}

// Read decodes the resource stored under name.
func (s *resourceStore) Read(ctx context.Context, name string) (domain.Resource, error) {
	var kind, payload string
	err := s.store.db.QueryRowContext(ctx,
		"SELECT kind, payload FROM resources WHERE name = ?", name).Scan(&kind, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading resource %s: %w", name, err)
	}

	res, err := domain.ResourceKind(kind).New()
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), res); err != nil {
		return nil, fmt.Errorf("unmarshalling resource %s: %w", name, err)
	}
	return domain.Normalize(res), nil
}

// Write upserts res under name in a single transaction.
func (s *resourceStore) Write(ctx context.Context, name string, res domain.Resource) (domain.Resource, error) {
	if domain.IsAbsent(res) {
		return nil, nil
	}
	if err := domain.ValidateName(name); err != nil {
		return nil, err
	}
	res = domain.Normalize(res)

	payload, err := json.Marshal(res.Sanitize())
	if err != nil {
		return nil, fmt.Errorf("marshalling resource %s: %w", name, err)
	}

	var numeric any
	if domain.IsNumericName(name) {
		usn, err := domain.ParseNumericName(name)
		if err != nil {
			return nil, err
		}
		numeric = usn
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO resources (name, kind, numeric_name, payload, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			kind = excluded.kind,
			numeric_name = excluded.numeric_name,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, name, string(res.Kind()), numeric, string(payload), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("saving resource %s: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing resource %s: %w", name, err)
	}
	return res, nil
}

// ListNumericNames returns the names of stored chunks, ascending.
func (s *resourceStore) ListNumericNames(ctx context.Context) ([]int32, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT DISTINCT numeric_name FROM resources
		WHERE numeric_name IS NOT NULL
		ORDER BY numeric_name
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chunk names: %w", err)
	}
	defer rows.Close()

	names := []int32{}
	for rows.Next() {
		var usn int32
		if err := rows.Scan(&usn); err != nil {
			return nil, fmt.Errorf("scanning chunk name: %w", err)
		}
		names = append(names, usn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunk names: %w", err)
	}

	return names, nil
}
