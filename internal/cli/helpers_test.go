package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/schemasync/internal/migrate"
)

const gameYAML = `schemas:
  - className: Game
    fields:
      name: {type: String, required: true}
      score: {type: Number, defaultValue: 0}
    indexes:
      score_1: {score: 1}
    classLevelPermissions:
      find: {"*": true}
      create: {"role:admin": true}
`

// executeCommand runs the root command with args and captures stdout and
// stderr separately.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := NewRootCommand()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// writeSchemas writes content as schemas.yaml in a fresh directory and
// returns the file path.
func writeSchemas(t *testing.T, content string) string {
	t.Helper()
	return writeFile(t, t.TempDir(), "schemas.yaml", content)
}

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "schemas.db")
}

// nopCloser adapts an in-memory backend to Backend.
type nopCloser struct {
	migrate.Backend
}

func (nopCloser) Close() error { return nil }

// stubStore replaces openStore for the duration of the test.
func stubStore(t *testing.T, b migrate.Backend) {
	t.Helper()
	orig := openStore
	openStore = func(context.Context, *Config) (Backend, error) {
		return nopCloser{b}, nil
	}
	t.Cleanup(func() { openStore = orig })
}
