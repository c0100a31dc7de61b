package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
live:
  - className: Game
    fields:
      score: {type: String}
schemas:
  - className: Game
    fields:
      score: {type: Number}
options:
  strict: true
  recreate_modified_fields: true
  max_retries: 1
failures:
  - {op: UpdateSchema, class: Game, error: boom}
assertions:
  - type: call_count
    op: UpdateSchema
    class: Game
    count: 2
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	require.Len(t, scenario.Live, 1)
	assert.Equal(t, "Game", scenario.Live[0]["className"])
	require.Len(t, scenario.Schemas, 1)
	assert.True(t, scenario.Options.Strict)
	assert.True(t, scenario.Options.RecreateModifiedFields)
	assert.False(t, scenario.Options.DeleteExtraFields)
	require.NotNil(t, scenario.Options.MaxRetries)
	assert.Equal(t, 1, *scenario.Options.MaxRetries)
	require.Len(t, scenario.Failures, 1)
	assert.Equal(t, Failure{Op: "UpdateSchema", Class: "Game", Error: "boom"}, scenario.Failures[0])
	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, 2, scenario.Assertions[0].Count)
}

func TestLoadScenario_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown field",
			content: "name: x\ndescription: y\nassertion: []\n",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "missing name",
			content: "description: y\nexpect_error: DUPLICATE_CLASS\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: x\nexpect_error: DUPLICATE_CLASS\n",
			wantErr: "description is required",
		},
		{
			name:    "nothing to check",
			content: "name: x\ndescription: y\n",
			wantErr: "assertions or expect_error is required",
		},
		{
			name:    "unknown failure op",
			content: "name: x\ndescription: y\nexpect_error: STORE_FAILURE\nfailures:\n  - {op: Drop, error: boom}\n",
			wantErr: `unknown op "Drop"`,
		},
		{
			name:    "failure without error",
			content: "name: x\ndescription: y\nexpect_error: STORE_FAILURE\nfailures:\n  - {op: AllSchemas}\n",
			wantErr: "error is required",
		},
		{
			name:    "unknown assertion type",
			content: "name: x\ndescription: y\nassertions:\n  - {type: trace_contains}\n",
			wantErr: `unknown assertion type "trace_contains"`,
		},
		{
			name:    "call_order too short",
			content: "name: x\ndescription: y\nassertions:\n  - {type: call_order, calls: [AllSchemas]}\n",
			wantErr: "at least 2 calls",
		},
		{
			name:    "final_field without type",
			content: "name: x\ndescription: y\nassertions:\n  - {type: final_field, class: Game, field: score}\n",
			wantErr: "field_type or absent",
		},
		{
			name:    "final_index without keys",
			content: "name: x\ndescription: y\nassertions:\n  - {type: final_index, class: Game, index: i}\n",
			wantErr: "keys or absent",
		},
		{
			name:    "final_permission without action",
			content: "name: x\ndescription: y\nassertions:\n  - {type: final_permission, class: Game}\n",
			wantErr: "requires class and action",
		},
		{
			name:    "warning without message",
			content: "name: x\ndescription: y\nassertions:\n  - {type: warning}\n",
			wantErr: "warning requires message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
