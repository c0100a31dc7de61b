package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaJSON(t *testing.T) {
	in := `{
		"className": "Game",
		"fields": {"score": {"type": "Number"}},
		"indexes": {"by_score": {"score": -1}},
		"classLevelPermissions": {"find": {"*": true}}
	}`

	var s Schema
	require.NoError(t, json.Unmarshal([]byte(in), &s))
	assert.Equal(t, "Game", s.ClassName)
	assert.Equal(t, []string{"score"}, s.FieldNames())
	assert.Equal(t, Index{"score": -1}, s.Indexes["by_score"])
	assert.Equal(t, Rule{"*": true}, s.Permissions.Rule(ActionFind))
}

func TestSchemaClone(t *testing.T) {
	s := &Schema{
		ClassName: "Game",
		Fields:    Fields{"a": ScalarField{Kind: TypeString}},
		Indexes:   map[string]Index{"ix": {"a": 1}},
	}
	c := s.Clone()
	delete(c.Fields, "a")
	c.Indexes["ix"]["a"] = -1

	assert.Len(t, s.Fields, 1)
	assert.Equal(t, 1, s.Indexes["ix"]["a"])
}

func TestIndexesEqual(t *testing.T) {
	assert.True(t, IndexesEqual(Index{"a": 1, "b": -1}, Index{"b": -1, "a": 1}))
	assert.False(t, IndexesEqual(Index{"a": 1}, Index{"a": -1}))
	assert.False(t, IndexesEqual(Index{"a": 1}, Index{"a": 1, "b": 1}))
}

func TestDuplicates(t *testing.T) {
	schemas := []Schema{{ClassName: "A"}, {ClassName: "B"}, {ClassName: "A"}, {ClassName: "A"}, {ClassName: "B"}}
	assert.Equal(t, []string{"A", "B"}, Duplicates(schemas))
	assert.Empty(t, Duplicates(schemas[:2]))
	assert.Equal(t, "B", Find(schemas, "B").ClassName)
	assert.Nil(t, Find(schemas, "C"))
}

func TestPayloadIsEmpty(t *testing.T) {
	assert.True(t, Payload{}.IsEmpty())
	assert.False(t, Payload{Permissions: &Permissions{}}.IsEmpty())
}
