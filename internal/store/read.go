package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/schemasync/internal/schema"
)

// Change is one entry of the schema change log.
type Change struct {
	Seq       int64
	ClassName string
	Op        string
	// Payload is the canonical JSON of the applied payload, or of the
	// whole document for seeds.
	Payload   string
	AppliedAt string
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// AllSchemas returns every stored class ordered by name.
func (s *Store) AllSchemas(ctx context.Context) ([]schema.Schema, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document FROM classes ORDER BY class_name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query classes: %w", err)
	}
	defer rows.Close()

	out := []schema.Schema{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		doc, err := unmarshalDocument(data)
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate classes: %w", err)
	}
	return out, nil
}

// Schema returns the stored document for className, or nil when the class
// does not exist.
func (s *Store) Schema(ctx context.Context, className string) (*schema.Schema, error) {
	return readDocument(ctx, s.db, className)
}

// Revision returns how many times className has been written, or 0.
func (s *Store) Revision(ctx context.Context, className string) (int64, error) {
	var rev int64
	err := s.db.QueryRowContext(ctx, `SELECT revision FROM classes WHERE class_name = ?`, className).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query revision: %w", err)
	}
	return rev, nil
}

// Changes returns the change log for className in application order.
func (s *Store) Changes(ctx context.Context, className string) ([]Change, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, class_name, op, payload, applied_at
		FROM schema_changes
		WHERE class_name = ?
		ORDER BY seq ASC
	`, className)
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}
	defer rows.Close()

	out := []Change{}
	for rows.Next() {
		var c Change
		if err := rows.Scan(&c.Seq, &c.ClassName, &c.Op, &c.Payload, &c.AppliedAt); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changes: %w", err)
	}
	return out, nil
}

// RecordCount returns the number of records in className.
func (s *Store) RecordCount(ctx context.Context, className string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE class_name = ?`, className).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

func readDocument(ctx context.Context, q queryer, className string) (*schema.Schema, error) {
	var data string
	err := q.QueryRowContext(ctx, `SELECT document FROM classes WHERE class_name = ?`, className).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query class: %w", err)
	}
	return unmarshalDocument(data)
}
