package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", String("hello"), `"hello"`},
		{"int", Int(-100), "-100"},
		{"float", Float(2.5), "2.5"},
		{"null", Null{}, "null"},
		{"empty object", Object{}, "{}"},
		{"nested", Object{"z": Object{"b": Int(1), "a": Int(2)}, "a": Int(3)}, `{"a":3,"z":{"a":2,"b":1}}`},
		{"no html escaping", String("<a&b>"), `"<a&b>"`},
		{"line separator literal", String("a\u2028b"), "\"a\u2028b\""},
		{"control escaped", String("a\nb\x01"), `"a\nb\u0001"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(out))
		})
	}
}

func TestMarshalCanonicalNFC(t *testing.T) {
	decomposed := "e\u0301"
	composed := "\u00e9"

	a, err := MarshalCanonical(String(decomposed))
	require.NoError(t, err)
	b, err := MarshalCanonical(String(composed))
	require.NoError(t, err)
	assert.Equal(t, string(b), string(a))
}

func TestMarshalCanonicalUTF16KeyOrder(t *testing.T) {
	// U+1F600 encodes as surrogates 0xD83D..., which sort before U+FF5E.
	obj := Object{"\uff5e": Int(1), "\U0001F600": Int(2)}
	out, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"\uff5e\":1}", string(out))
}

func TestMarshalCanonicalPayload(t *testing.T) {
	p := Payload{
		Fields: map[string]FieldChange{
			"score": {Field: ScalarField{Kind: TypeString}},
			"old":   {Delete: true},
		},
		Indexes: map[string]IndexChange{
			"by_score": {Index: Index{"score": 1}},
			"stale":    {Delete: true},
		},
	}
	out, err := MarshalCanonical(p)
	require.NoError(t, err)
	assert.Equal(t,
		`{"fields":{"old":{"__op":"Delete"},"score":{"type":"String"}},"indexes":{"by_score":{"score":1},"stale":{"__op":"Delete"}}}`,
		string(out))
}
