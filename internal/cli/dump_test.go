package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func migratedDB(t *testing.T) string {
	t.Helper()
	db := tempDB(t)
	_, _, err := executeCommand(t, "migrate", writeSchemas(t, gameYAML), "--db", db)
	require.NoError(t, err)
	return db
}

func TestDumpEmptyStore(t *testing.T) {
	stdout, _, err := executeCommand(t, "dump", "--db", tempDB(t))
	require.NoError(t, err)
	assert.Equal(t, "[]\n", stdout)
}

func TestDumpCanonical(t *testing.T) {
	db := migratedDB(t)

	stdout, _, err := executeCommand(t, "dump", "--db", db)
	require.NoError(t, err)

	line := strings.TrimSuffix(stdout, "\n")
	assert.NotContains(t, line, "\n")
	assert.True(t, strings.HasPrefix(line, `[{"classLevelPermissions":`), line)

	var docs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &docs))
	require.Len(t, docs, 2)
	assert.Equal(t, "Game", docs[0]["className"])
	assert.Equal(t, "_Session", docs[1]["className"])

	perms := docs[0]["classLevelPermissions"].(map[string]any)
	assert.Equal(t, map[string]any{}, perms["addField"])

	again, _, err := executeCommand(t, "dump", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, stdout, again)
}

func TestDumpSelectedClass(t *testing.T) {
	db := migratedDB(t)

	stdout, _, err := executeCommand(t, "dump", "--db", db, "--class", "Game")
	require.NoError(t, err)

	var docs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "Game", docs[0]["className"])
}

func TestDumpUnknownClass(t *testing.T) {
	stdout, _, err := executeCommand(t, "dump", "--db", migratedDB(t), "--class", "Missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, `class "Missing" not found`)
}

func TestDumpJSON(t *testing.T) {
	stdout, _, err := executeCommand(t, "--format", "json", "dump", "--db", migratedDB(t))
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, resp.Data, 2)
}

func TestDumpRejectsArguments(t *testing.T) {
	_, _, err := executeCommand(t, "dump", "extra", "--db", tempDB(t))
	require.Error(t, err)
}
