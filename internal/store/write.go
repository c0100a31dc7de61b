package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/schemasync/internal/catalog"
	"github.com/roach88/schemasync/internal/schema"
)

// CreateSchema creates className from p. Fails if the class exists.
func (s *Store) CreateSchema(ctx context.Context, className string, p schema.Payload) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := readDocument(ctx, tx, className)
		if err != nil {
			return err
		}
		doc, err := catalog.Create(className, current != nil, p)
		if err != nil {
			return err
		}
		if err := insertDocument(ctx, tx, doc); err != nil {
			return err
		}
		return logChange(ctx, tx, className, "create", p)
	})
	if err != nil {
		return fmt.Errorf("create schema %s: %w", className, err)
	}
	return nil
}

// UpdateSchema applies the delta p to className. Fails if the class does
// not exist.
func (s *Store) UpdateSchema(ctx context.Context, className string, p schema.Payload) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := readDocument(ctx, tx, className)
		if err != nil {
			return err
		}
		doc, err := catalog.Update(className, current, p)
		if err != nil {
			return err
		}
		if err := updateDocument(ctx, tx, doc); err != nil {
			return err
		}
		return logChange(ctx, tx, className, "update", p)
	})
	if err != nil {
		return fmt.Errorf("update schema %s: %w", className, err)
	}
	return nil
}

// Seed stores documents as given, bypassing mutation rules. Existing
// documents are replaced. Used to set up live state for scenarios.
func (s *Store) Seed(ctx context.Context, docs ...schema.Schema) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for i := range docs {
			doc := &docs[i]
			current, err := readDocument(ctx, tx, doc.ClassName)
			if err != nil {
				return err
			}
			if current == nil {
				err = insertDocument(ctx, tx, doc)
			} else {
				err = updateDocument(ctx, tx, doc)
			}
			if err != nil {
				return fmt.Errorf("seed %s: %w", doc.ClassName, err)
			}
			if err := logChange(ctx, tx, doc.ClassName, "seed", doc); err != nil {
				return err
			}
		}
		return nil
	})
}

// CreateRecord inserts an empty record, materializing className with its
// default columns when it does not exist yet.
func (s *Store) CreateRecord(ctx context.Context, className string) (string, error) {
	id := uuid.NewString()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := readDocument(ctx, tx, className)
		if err != nil {
			return err
		}
		if current == nil {
			if err := insertDocument(ctx, tx, catalog.Materialize(className)); err != nil {
				return err
			}
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO records (object_id, class_name, created_at)
			VALUES (?, ?, ?)
		`, id, className, now())
		return err
	})
	if err != nil {
		return "", fmt.Errorf("create record in %s: %w", className, err)
	}
	return id, nil
}

// DeleteRecord removes a record.
func (s *Store) DeleteRecord(ctx context.Context, className, objectID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM records WHERE object_id = ? AND class_name = ?
	`, objectID, className)
	if err != nil {
		return fmt.Errorf("delete record %s/%s: %w", className, objectID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete record %s/%s: %w", className, objectID, err)
	}
	if n == 0 {
		return fmt.Errorf("delete record %s/%s: %w", className, objectID, ErrRecordNotFound)
	}
	return nil
}

// ErrRecordNotFound is returned when deleting a record that does not exist.
var ErrRecordNotFound = errors.New("record not found")

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertDocument(ctx context.Context, tx *sql.Tx, doc *schema.Schema) error {
	data, err := marshalDocument(doc)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO classes (class_name, document) VALUES (?, ?)
	`, doc.ClassName, data)
	if err != nil {
		return fmt.Errorf("insert class: %w", err)
	}
	return nil
}

func updateDocument(ctx context.Context, tx *sql.Tx, doc *schema.Schema) error {
	data, err := marshalDocument(doc)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE classes SET document = ?, revision = revision + 1 WHERE class_name = ?
	`, data, doc.ClassName)
	if err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

func logChange(ctx context.Context, tx *sql.Tx, className, op string, payload any) error {
	data, err := marshalPayload(payload)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO schema_changes (class_name, op, payload, applied_at)
		VALUES (?, ?, ?, ?)
	`, className, op, data, now())
	if err != nil {
		return fmt.Errorf("log change: %w", err)
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
