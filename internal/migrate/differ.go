package migrate

import (
	"encoding/json"

	"github.com/roach88/schemasync/internal/policy"
	"github.com/roach88/schemasync/internal/schema"
)

// FieldRecreate is a field whose type or targetClass differs between the
// declared and live schemas.
type FieldRecreate struct {
	Name string
	// From is the live descriptor.
	From schema.Field
	// To is the declared descriptor.
	To schema.Field
}

// MarshalJSON renders both sides as type labels.
func (r FieldRecreate) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		"name": r.Name,
		"from": schema.DescribeType(r.From),
		"to":   schema.DescribeType(r.To),
	})
}

// ChangeSet is the per-class difference between a declared and a live
// schema. Every partition is sorted by name.
type ChangeSet struct {
	FieldsToAdd             []string        `json:"fieldsToAdd,omitempty"`
	FieldsToDelete          []string        `json:"fieldsToDelete,omitempty"`
	FieldsToRecreate        []FieldRecreate `json:"fieldsToRecreate,omitempty"`
	FieldsWithChangedParams []string        `json:"fieldsWithChangedParams,omitempty"`
	IndexesToAdd            []string        `json:"indexesToAdd,omitempty"`
	IndexesToDelete         []string        `json:"indexesToDelete,omitempty"`
	IndexesToReplace        []string        `json:"indexesToReplace,omitempty"`
}

// Empty reports whether applying the change set would change nothing.
func (c ChangeSet) Empty() bool {
	return len(c.FieldsToAdd) == 0 &&
		len(c.FieldsToDelete) == 0 &&
		len(c.FieldsToRecreate) == 0 &&
		len(c.FieldsWithChangedParams) == 0 &&
		len(c.IndexesToAdd) == 0 &&
		len(c.IndexesToDelete) == 0 &&
		len(c.IndexesToReplace) == 0
}

// Diff computes the change set turning live into declared. live nil means
// the class does not exist yet, in which case only additions are possible.
// Default columns and backend-owned indexes are dropped from both sides
// before anything is compared.
func Diff(declared, live *schema.Schema) ChangeSet {
	var cs ChangeSet
	className := declared.ClassName

	if live == nil {
		for _, name := range declared.FieldNames() {
			if !policy.IsProtectedField(className, name) {
				cs.FieldsToAdd = append(cs.FieldsToAdd, name)
			}
		}
		for _, name := range declared.IndexNames() {
			if !policy.IsProtectedIndex(className, name) {
				cs.IndexesToAdd = append(cs.IndexesToAdd, name)
			}
		}
		return cs
	}

	for _, name := range declared.FieldNames() {
		if policy.IsProtectedField(className, name) {
			continue
		}
		want := declared.Fields[name]
		have, ok := live.Fields[name]
		switch {
		case !ok:
			cs.FieldsToAdd = append(cs.FieldsToAdd, name)
		case !schema.ParamsEqual(schema.TypeParams(want), schema.TypeParams(have)):
			cs.FieldsToRecreate = append(cs.FieldsToRecreate, FieldRecreate{Name: name, From: have, To: want})
		case !schema.ParamsEqual(want.Params(), have.Params()):
			cs.FieldsWithChangedParams = append(cs.FieldsWithChangedParams, name)
		}
	}
	for _, name := range live.FieldNames() {
		if policy.IsProtectedField(className, name) {
			continue
		}
		if _, ok := declared.Fields[name]; !ok {
			cs.FieldsToDelete = append(cs.FieldsToDelete, name)
		}
	}

	for _, name := range declared.IndexNames() {
		if policy.IsProtectedIndex(className, name) {
			continue
		}
		have, ok := live.Indexes[name]
		switch {
		case !ok:
			cs.IndexesToAdd = append(cs.IndexesToAdd, name)
		case !schema.IndexesEqual(declared.Indexes[name], have):
			cs.IndexesToReplace = append(cs.IndexesToReplace, name)
		}
	}
	for _, name := range live.IndexNames() {
		if policy.IsProtectedIndex(className, name) {
			continue
		}
		if _, ok := declared.Indexes[name]; !ok {
			cs.IndexesToDelete = append(cs.IndexesToDelete, name)
		}
	}
	return cs
}
