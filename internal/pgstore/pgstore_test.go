package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/schemasync/internal/catalog"
	"github.com/roach88/schemasync/internal/pgstore/migrations"
	"github.com/roach88/schemasync/internal/schema"
)

const (
	lockQuery     = `SELECT document FROM schemasync_classes WHERE class_name = \$1 FOR UPDATE`
	insertClass   = `INSERT INTO schemasync_classes \(class_name, document\) VALUES \(\$1, \$2\)`
	updateClass   = `UPDATE schemasync_classes SET document = \$1, revision = revision \+ 1 WHERE class_name = \$2`
	insertChange  = `INSERT INTO schemasync_changes \(class_name, op, payload\) VALUES \(\$1, \$2, \$3\)`
	insertRecord  = `INSERT INTO schemasync_records \(object_id, class_name\) VALUES \(\$1, \$2\)`
	deleteRecord  = `DELETE FROM schemasync_records WHERE object_id = \$1 AND class_name = \$2`
	selectClasses = `SELECT document FROM schemasync_classes ORDER BY class_name`
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return New(db), mock
}

func documentJSON(t *testing.T, doc *schema.Schema) string {
	t.Helper()
	data, err := schema.MarshalCanonical(doc)
	require.NoError(t, err)
	return string(data)
}

func titlePayload() schema.Payload {
	return schema.Payload{
		Fields: map[string]schema.FieldChange{
			"title": {Field: schema.ScalarField{Kind: schema.TypeString}},
		},
	}
}

func TestCreateSchema(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	want, err := catalog.Create("Game", false, titlePayload())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs("Game").
		WillReturnRows(sqlmock.NewRows([]string{"document"}))
	mock.ExpectExec(insertClass).WithArgs("Game", documentJSON(t, want)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertChange).WithArgs("Game", "create", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, s.CreateSchema(ctx, "Game", titlePayload()))
}

func TestCreateSchemaExistingRollsBack(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	existing := catalog.Materialize("Game")

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs("Game").
		WillReturnRows(sqlmock.NewRows([]string{"document"}).AddRow(documentJSON(t, existing)))
	mock.ExpectRollback()

	err := s.CreateSchema(ctx, "Game", titlePayload())
	require.Error(t, err)
	assert.True(t, catalog.IsRuleError(err, catalog.ErrCodeClassExists))
	assert.Contains(t, err.Error(), "create schema Game")
}

func TestUpdateSchema(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	live := catalog.Materialize("Game")
	want, err := catalog.Update("Game", live, titlePayload())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs("Game").
		WillReturnRows(sqlmock.NewRows([]string{"document"}).AddRow(documentJSON(t, live)))
	mock.ExpectExec(updateClass).WithArgs(documentJSON(t, want), "Game").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertChange).WithArgs("Game", "update", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	require.NoError(t, s.UpdateSchema(ctx, "Game", titlePayload()))
}

func TestUpdateSchemaMissingClass(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs("Ghost").
		WillReturnRows(sqlmock.NewRows([]string{"document"}))
	mock.ExpectRollback()

	err := s.UpdateSchema(context.Background(), "Ghost", titlePayload())
	require.Error(t, err)
	assert.True(t, catalog.IsRuleError(err, catalog.ErrCodeClassNotFound))
}

func TestUpdateSchemaDBErrorRollsBack(t *testing.T) {
	s, mock := newMockStore(t)
	dbErr := errors.New("connection reset")

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs("Game").WillReturnError(dbErr)
	mock.ExpectRollback()

	err := s.UpdateSchema(context.Background(), "Game", titlePayload())
	require.Error(t, err)
	assert.ErrorIs(t, err, dbErr)
}

func TestAllSchemas(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"document"}).
		AddRow(documentJSON(t, catalog.Materialize("Game"))).
		AddRow(documentJSON(t, catalog.Materialize("_User")))
	mock.ExpectQuery(selectClasses).WillReturnRows(rows)

	got, err := s.AllSchemas(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Game", "_User"}, schema.ClassNames(got))
	assert.Contains(t, got[1].Fields, "username")
}

func TestAllSchemasEmpty(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(selectClasses).WillReturnRows(sqlmock.NewRows([]string{"document"}))

	got, err := s.AllSchemas(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCreateRecordMaterializesClass(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs("_Session").
		WillReturnRows(sqlmock.NewRows([]string{"document"}))
	mock.ExpectExec(insertClass).WithArgs("_Session", documentJSON(t, catalog.Materialize("_Session"))).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertRecord).WithArgs(sqlmock.AnyArg(), "_Session").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := s.CreateRecord(context.Background(), "_Session")
	require.NoError(t, err)
	assert.Len(t, id, 36)
}

func TestDeleteRecord(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(deleteRecord).WithArgs("abc", "_Session").
			WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, s.DeleteRecord(context.Background(), "_Session", "abc"))
	})

	t.Run("not found", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(deleteRecord).WithArgs("abc", "_Session").
			WillReturnResult(sqlmock.NewResult(0, 0))
		err := s.DeleteRecord(context.Background(), "_Session", "abc")
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})
}

func TestRunMigrations(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	t.Run("success", func(t *testing.T) {
		var gotDir string
		gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
			gotDir = dir
			return nil
		}
		require.NoError(t, RunMigrations(context.Background(), db))
		assert.Equal(t, ".", gotDir)
	})

	t.Run("error", func(t *testing.T) {
		gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
			return errors.New("boom")
		}
		assert.EqualError(t, RunMigrations(context.Background(), db), "boom")
	})
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrations.Migrations.ReadDir(".")
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "00001_classes.sql")
	assert.Contains(t, names, "00002_schema_changes.sql")
}
