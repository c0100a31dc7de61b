// Package pgstore provides a Postgres-backed schema store.
//
// Documents live in a JSONB column, one row per class. Writes lock the
// class row (SELECT ... FOR UPDATE), apply the payload through package
// catalog, and write the result back in the same transaction. The table
// layout is managed by goose migrations embedded in the binary.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/roach88/schemasync/internal/catalog"
	"github.com/roach88/schemasync/internal/pgstore/migrations"
	"github.com/roach88/schemasync/internal/schema"
)

// DBTX is the subset of database/sql used by the store.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ErrRecordNotFound is returned when deleting a record that does not exist.
var ErrRecordNotFound = errors.New("record not found")

// Store is a schema store backed by Postgres. It implements migrate.Backend.
type Store struct {
	db *sql.DB
}

// New wraps an open database. Call RunMigrations before first use.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to dsn through pgx and applies migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return New(db), nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// AllSchemas returns every stored class ordered by name.
func (s *Store) AllSchemas(ctx context.Context) ([]schema.Schema, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT document FROM schemasync_classes ORDER BY class_name COLLATE "C"`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []schema.Schema{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		doc, err := unmarshalDocument(data)
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// CreateSchema creates className from p. Fails if the class exists.
func (s *Store) CreateSchema(ctx context.Context, className string, p schema.Payload) error {
	err := withTx(ctx, s.db, func(tx DBTX) error {
		current, err := lockDocument(ctx, tx, className)
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

// UpdateSchema applies the delta p to className.
func (s *Store) UpdateSchema(ctx context.Context, className string, p schema.Payload) error {
	err := withTx(ctx, s.db, func(tx DBTX) error {
		current, err := lockDocument(ctx, tx, className)
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

// CreateRecord inserts an empty record, materializing className with its
// default columns when it does not exist yet.
func (s *Store) CreateRecord(ctx context.Context, className string) (string, error) {
	id := uuid.NewString()
	err := withTx(ctx, s.db, func(tx DBTX) error {
		current, err := lockDocument(ctx, tx, className)
		if err != nil {
			return err
		}
		if current == nil {
			if err := insertDocument(ctx, tx, catalog.Materialize(className)); err != nil {
				return err
			}
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO schemasync_records (object_id, class_name) VALUES ($1, $2)`,
			id, className)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("create record in %s: %w", className, err)
	}
	return id, nil
}

// DeleteRecord removes a record.
func (s *Store) DeleteRecord(ctx context.Context, className, objectID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM schemasync_records WHERE object_id = $1 AND class_name = $2`,
		objectID, className)
	if err != nil {
		return fmt.Errorf("delete record %s/%s: db error: %w", className, objectID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete record %s/%s: db error: %w", className, objectID, err)
	}
	if n == 0 {
		return fmt.Errorf("delete record %s/%s: %w", className, objectID, ErrRecordNotFound)
	}
	return nil
}

// withTx begins a transaction, runs fn, and commits on success or rolls
// back on error or panic. Panics are rethrown.
func withTx(ctx context.Context, db *sql.DB, fn func(tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func lockDocument(ctx context.Context, tx DBTX, className string) (*schema.Schema, error) {
	var data []byte
	err := tx.QueryRowContext(ctx,
		`SELECT document FROM schemasync_classes WHERE class_name = $1 FOR UPDATE`,
		className).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return unmarshalDocument(data)
}

func insertDocument(ctx context.Context, tx DBTX, doc *schema.Schema) error {
	data, err := schema.MarshalCanonical(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO schemasync_classes (class_name, document) VALUES ($1, $2)`,
		doc.ClassName, string(data))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func updateDocument(ctx context.Context, tx DBTX, doc *schema.Schema) error {
	data, err := schema.MarshalCanonical(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE schemasync_classes SET document = $1, revision = revision + 1 WHERE class_name = $2`,
		string(data), doc.ClassName)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func logChange(ctx context.Context, tx DBTX, className, op string, payload any) error {
	data, err := schema.MarshalCanonical(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO schemasync_changes (class_name, op, payload) VALUES ($1, $2, $3)`,
		className, op, string(data))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func unmarshalDocument(data []byte) (*schema.Schema, error) {
	var doc schema.Schema
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return &doc, nil
}
