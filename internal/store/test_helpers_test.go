package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/schemasync/internal/schema"
)

// createTestStore opens a fresh store in a temp directory, optionally
// seeded with live schemas.
func createTestStore(t *testing.T, live ...schema.Schema) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "schemas.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	if len(live) > 0 {
		require.NoError(t, s.Seed(context.Background(), live...))
	}
	return s
}
