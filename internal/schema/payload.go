package schema

import (
	"encoding/json"
)

// deleteOp is the wire marker for a deletion inside a Payload.
var deleteOp = map[string]string{"__op": "Delete"}

// FieldChange is either an upsert carrying a full descriptor or a deletion.
type FieldChange struct {
	Delete bool
	Field  Field
}

// MarshalJSON implements json.Marshaler.
func (c FieldChange) MarshalJSON() ([]byte, error) {
	if c.Delete {
		return json.Marshal(deleteOp)
	}
	return MarshalField(c.Field)
}

// IndexChange is either an index definition to add or a deletion.
type IndexChange struct {
	Delete bool
	Index  Index
}

// MarshalJSON implements json.Marshaler.
func (c IndexChange) MarshalJSON() ([]byte, error) {
	if c.Delete {
		return json.Marshal(deleteOp)
	}
	return json.Marshal(c.Index)
}

// Payload is the body of a create or update call. Fields and Indexes are
// deltas against the current live state, not replacement state.
type Payload struct {
	Fields      map[string]FieldChange `json:"fields,omitempty"`
	Indexes     map[string]IndexChange `json:"indexes,omitempty"`
	Permissions *Permissions           `json:"classLevelPermissions,omitempty"`
}

// IsEmpty reports whether the payload would change nothing.
func (p Payload) IsEmpty() bool {
	return len(p.Fields) == 0 && len(p.Indexes) == 0 && p.Permissions == nil
}
