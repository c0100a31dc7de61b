package migrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/schemasync/internal/schema"
	"github.com/roach88/schemasync/internal/testutil"
)

func TestPlanMakesNoWrites(t *testing.T) {
	backend, _ := setupBackend(t,
		schema.Schema{ClassName: "Game", Fields: schema.Fields{"score": number()}},
		schema.Schema{ClassName: "Orphan"},
		schema.Schema{ClassName: "_User"},
	)
	declared := []schema.Schema{
		{ClassName: "Game", Fields: schema.Fields{"score": str()}},
		{ClassName: "Player", Fields: schema.Fields{"name": str()}},
	}

	plans, err := New(backend, declared, WithLogger(nil)).Plan(context.Background())
	require.NoError(t, err)

	calls := backend.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, testutil.OpAllSchemas, calls[0].Op)

	require.Len(t, plans, 4)
	assert.Equal(t, []string{"Game", "Orphan", "Player", "_User"}, []string{
		plans[0].ClassName, plans[1].ClassName, plans[2].ClassName, plans[3].ClassName,
	})

	game := plans[0]
	assert.Equal(t, PlanUpdate, game.Action)
	require.Len(t, game.Changes.FieldsToRecreate, 1)
	assert.Equal(t, "score", game.Changes.FieldsToRecreate[0].Name)

	assert.Equal(t, PlanLockPermissions, plans[1].Action)
	assert.False(t, plans[1].System)
	assert.Equal(t, schema.Rule{}, plans[1].Permissions.Rule(schema.ActionAddField))

	assert.Equal(t, PlanCreate, plans[2].Action)
	assert.Equal(t, []string{"name"}, plans[2].Changes.FieldsToAdd)

	assert.True(t, plans[3].System)
}

func TestPlanRejectsDuplicates(t *testing.T) {
	backend, _ := setupBackend(t)
	_, err := New(backend, []schema.Schema{{ClassName: "A"}, {ClassName: "A"}}).Plan(context.Background())
	assert.True(t, IsConfigError(err))
	assert.Empty(t, backend.Calls())
}

func TestChangeSetJSON(t *testing.T) {
	cs := ChangeSet{
		FieldsToAdd: []string{"title"},
		FieldsToRecreate: []FieldRecreate{{
			Name: "score",
			From: number(),
			To:   schema.PointerField{TargetClass: "_User"},
		}},
	}
	out, err := schema.MarshalCanonical(cs)
	require.NoError(t, err)
	assert.Equal(t,
		`{"fieldsToAdd":["title"],"fieldsToRecreate":[{"from":"Number","name":"score","to":"Pointer (_User)"}]}`,
		string(out))
}
