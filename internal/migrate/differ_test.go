package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/schemasync/internal/schema"
)

func TestDiffNewClass(t *testing.T) {
	declared := &schema.Schema{
		ClassName: "Game",
		Fields: schema.Fields{
			"score":    number(),
			"objectId": str(),
		},
		Indexes: map[string]schema.Index{
			"by_score": {"score": 1},
			"_id_":     {"_id": 1},
		},
	}

	cs := Diff(declared, nil)
	assert.Equal(t, []string{"score"}, cs.FieldsToAdd)
	assert.Equal(t, []string{"by_score"}, cs.IndexesToAdd)
	assert.Empty(t, cs.FieldsToDelete)
	assert.Empty(t, cs.FieldsToRecreate)
	assert.False(t, cs.Empty())
}

func TestDiffExistingClass(t *testing.T) {
	declared := &schema.Schema{
		ClassName: "Game",
		Fields: schema.Fields{
			"score":   str(),
			"level":   schema.ScalarField{Kind: schema.TypeNumber, Required: boolPtr(true)},
			"owner":   schema.PointerField{TargetClass: "_User"},
			"players": schema.RelationField{TargetClass: "_User"},
			"title":   str(),
		},
		Indexes: map[string]schema.Index{
			"by_level": {"level": 1},
			"by_title": {"title": 1},
			"by_owner": {"owner": 1},
		},
	}
	live := &schema.Schema{
		ClassName: "Game",
		Fields: schema.Fields{
			"objectId": str(),
			"ACL":      schema.ScalarField{Kind: schema.TypeACL},
			"score":    number(),
			"level":    number(),
			"owner":    schema.PointerField{TargetClass: "_User"},
			"players":  schema.RelationField{TargetClass: "_Role"},
			"legacy":   str(),
		},
		Indexes: map[string]schema.Index{
			"_id_":     {"_id": 1},
			"by_level": {"level": -1},
			"by_owner": {"owner": 1},
			"stale":    {"legacy": 1},
		},
	}

	cs := Diff(declared, live)
	assert.Equal(t, []string{"title"}, cs.FieldsToAdd)
	assert.Equal(t, []string{"legacy"}, cs.FieldsToDelete)
	assert.Equal(t, []string{"level"}, cs.FieldsWithChangedParams)
	if assert.Len(t, cs.FieldsToRecreate, 2) {
		assert.Equal(t, "players", cs.FieldsToRecreate[0].Name)
		assert.Equal(t, schema.RelationField{TargetClass: "_Role"}, cs.FieldsToRecreate[0].From)
		assert.Equal(t, schema.RelationField{TargetClass: "_User"}, cs.FieldsToRecreate[0].To)
		assert.Equal(t, "score", cs.FieldsToRecreate[1].Name)
	}
	assert.Equal(t, []string{"by_title"}, cs.IndexesToAdd)
	assert.Equal(t, []string{"stale"}, cs.IndexesToDelete)
	assert.Equal(t, []string{"by_level"}, cs.IndexesToReplace)
}

func TestDiffChangedParams(t *testing.T) {
	tests := []struct {
		name string
		want schema.Field
		have schema.Field
	}{
		{"required added", schema.ScalarField{Kind: schema.TypeString, Required: boolPtr(true)}, str()},
		{"required flipped", schema.ScalarField{Kind: schema.TypeString, Required: boolPtr(false)}, schema.ScalarField{Kind: schema.TypeString, Required: boolPtr(true)}},
		{"default changed", schema.ScalarField{Kind: schema.TypeNumber, DefaultValue: schema.Int(1)}, schema.ScalarField{Kind: schema.TypeNumber, DefaultValue: schema.Int(2)}},
		{"pointer default", schema.PointerField{TargetClass: "_User", DefaultValue: schema.String("x")}, schema.PointerField{TargetClass: "_User"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := Diff(
				&schema.Schema{ClassName: "Game", Fields: schema.Fields{"f": tt.want}},
				&schema.Schema{ClassName: "Game", Fields: schema.Fields{"f": tt.have}},
			)
			assert.Equal(t, []string{"f"}, cs.FieldsWithChangedParams)
			assert.Empty(t, cs.FieldsToRecreate)
		})
	}
}

func TestDiffIdenticalIsEmpty(t *testing.T) {
	s := &schema.Schema{
		ClassName: "Game",
		Fields:    schema.Fields{"score": schema.ScalarField{Kind: schema.TypeNumber, DefaultValue: schema.Float(1)}},
		Indexes:   map[string]schema.Index{"by_score": {"score": 1}},
	}
	live := s.Clone()
	live.Fields["score"] = schema.ScalarField{Kind: schema.TypeNumber, DefaultValue: schema.Int(1)}

	assert.True(t, Diff(s, live).Empty())
}

func TestDiffSkipsProtectedOnSystemClass(t *testing.T) {
	declared := &schema.Schema{
		ClassName: "_User",
		Fields:    schema.Fields{"username": number(), "nickname": str()},
		Indexes:   map[string]schema.Index{"case_insensitive_email": {"email": -1}},
	}
	live := &schema.Schema{
		ClassName: "_User",
		Fields:    schema.Fields{"username": str(), "email": str()},
		Indexes: map[string]schema.Index{
			"case_insensitive_email":    {"email": 1},
			"case_insensitive_username": {"username": 1},
		},
	}

	cs := Diff(declared, live)
	assert.Equal(t, []string{"nickname"}, cs.FieldsToAdd)
	assert.Empty(t, cs.FieldsToRecreate)
	assert.Empty(t, cs.FieldsToDelete)
	assert.Empty(t, cs.IndexesToReplace)
	assert.Empty(t, cs.IndexesToDelete)
}
