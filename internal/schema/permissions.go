package schema

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Action names a class-level operation guarded by a permission rule.
type Action string

// Class-level actions.
const (
	ActionFind     Action = "find"
	ActionCount    Action = "count"
	ActionGet      Action = "get"
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionAddField Action = "addField"
)

// Actions lists every action in canonical order.
var Actions = []Action{
	ActionFind,
	ActionCount,
	ActionGet,
	ActionCreate,
	ActionUpdate,
	ActionDelete,
	ActionAddField,
}

// IsValid reports whether a is a known action.
func (a Action) IsValid() bool {
	return slices.Contains(Actions, a)
}

// Rule is an access rule: {"*": true}, {"requiresAuthentication": true},
// or a map of role/user ids. An empty, non-nil Rule grants nobody.
type Rule map[string]bool

// Clone returns a copy of r, preserving nil.
func (r Rule) Clone() Rule {
	if r == nil {
		return nil
	}
	out := make(Rule, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

const protectedFieldsKey = "protectedFields"

// Permissions is a class-level permission document.
type Permissions struct {
	// Rules maps an action to its rule. A missing key means "not stated",
	// which differs from an empty Rule.
	Rules map[Action]Rule

	// ProtectedFields maps a role or condition to field names hidden from
	// query results.
	ProtectedFields map[string][]string
}

// Rule returns the rule for a, or nil when unset.
func (p *Permissions) Rule(a Action) Rule {
	if p == nil {
		return nil
	}
	return p.Rules[a]
}

// Clone returns a deep copy of p.
func (p *Permissions) Clone() *Permissions {
	if p == nil {
		return nil
	}
	out := &Permissions{Rules: make(map[Action]Rule, len(p.Rules))}
	for a, r := range p.Rules {
		out.Rules[a] = r.Clone()
	}
	if p.ProtectedFields != nil {
		out.ProtectedFields = make(map[string][]string, len(p.ProtectedFields))
		for k, v := range p.ProtectedFields {
			out.ProtectedFields[k] = slices.Clone(v)
		}
	}
	return out
}

// MarshalJSON keeps empty rules as {} so a locked action survives encoding.
func (p Permissions) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Rules)+1)
	for a, r := range p.Rules {
		if r == nil {
			continue
		}
		out[string(a)] = map[string]bool(r)
	}
	if p.ProtectedFields != nil {
		out[protectedFieldsKey] = p.ProtectedFields
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler. Unknown actions are rejected.
func (p *Permissions) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := Permissions{Rules: make(map[Action]Rule)}
	for key, b := range raw {
		if key == protectedFieldsKey {
			if err := json.Unmarshal(b, &out.ProtectedFields); err != nil {
				return fmt.Errorf("protectedFields: %w", err)
			}
			continue
		}
		a := Action(key)
		if !a.IsValid() {
			return fmt.Errorf("unknown permission action %q", key)
		}
		var r Rule
		if err := json.Unmarshal(b, &r); err != nil {
			return fmt.Errorf("permission %q: %w", key, err)
		}
		if r == nil {
			r = Rule{}
		}
		out.Rules[a] = r
	}
	*p = out
	return nil
}
