package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/schemasync/internal/schema"
)

func TestValidateDuplicates(t *testing.T) {
	errs := Validate([]schema.Schema{
		{ClassName: "Game"},
		{ClassName: "Player"},
		{ClassName: "Game"},
	})
	require.Len(t, errs, 1)
	assert.Equal(t, ErrDuplicateClass, errs[0].Code)
	assert.Equal(t, "schemas[2].className", errs[0].Field)
	assert.Contains(t, errs[0].Message, "schemas[0]")
}

func TestValidateIndexKeys(t *testing.T) {
	tests := []struct {
		name  string
		s     schema.Schema
		valid bool
	}{
		{
			name:  "declared field",
			s:     schema.Schema{ClassName: "Game", Fields: schema.Fields{"score": schema.ScalarField{Kind: schema.TypeNumber}}, Indexes: map[string]schema.Index{"i": {"score": 1}}},
			valid: true,
		},
		{
			name:  "default column",
			s:     schema.Schema{ClassName: "Game", Indexes: map[string]schema.Index{"i": {"createdAt": -1}}},
			valid: true,
		},
		{
			name:  "system class column",
			s:     schema.Schema{ClassName: "_User", Indexes: map[string]schema.Index{"i": {"email": 1}}},
			valid: true,
		},
		{
			name:  "internal key",
			s:     schema.Schema{ClassName: "Game", Indexes: map[string]schema.Index{"i": {"_p_owner": 1}}},
			valid: true,
		},
		{
			name: "unknown key",
			s:    schema.Schema{ClassName: "Game", Indexes: map[string]schema.Index{"i": {"score": 1}}},
		},
		{
			name: "column of another class",
			s:    schema.Schema{ClassName: "Game", Indexes: map[string]schema.Index{"i": {"email": 1}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate([]schema.Schema{tt.s})
			if tt.valid {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Equal(t, ErrUnknownIndexField, errs[0].Code)
			assert.Equal(t, "schemas[0].indexes.i", errs[0].Field)
		})
	}
}

func TestValidateEmpty(t *testing.T) {
	assert.Empty(t, Validate(nil))
}
