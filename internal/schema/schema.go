package schema

import (
	"maps"
	"slices"
)

// Index maps field names to a numeric sort direction (1 or -1).
type Index map[string]int

// Params returns the index as a parameter map for structural comparison.
func (ix Index) Params() map[string]Value {
	p := make(map[string]Value, len(ix))
	for k, v := range ix {
		p[k] = Int(v)
	}
	return p
}

// Clone returns a copy of ix.
func (ix Index) Clone() Index {
	return maps.Clone(ix)
}

// IndexesEqual compares two index definitions structurally.
func IndexesEqual(a, b Index) bool {
	return ParamsEqual(a.Params(), b.Params())
}

// Schema describes one class. The same shape serves declared schemas
// (loaded from configuration) and live schemas (reported by the backend).
type Schema struct {
	ClassName   string           `json:"className"`
	Fields      Fields           `json:"fields,omitempty"`
	Indexes     map[string]Index `json:"indexes,omitempty"`
	Permissions *Permissions     `json:"classLevelPermissions,omitempty"`
}

// FieldNames returns field names in sorted order.
func (s *Schema) FieldNames() []string {
	return sortedKeys(s.Fields)
}

// IndexNames returns index names in sorted order.
func (s *Schema) IndexNames() []string {
	return sortedKeys(s.Indexes)
}

// Clone returns a deep copy of s. Field descriptors are immutable values
// and are shared.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	out := &Schema{
		ClassName:   s.ClassName,
		Permissions: s.Permissions.Clone(),
	}
	if s.Fields != nil {
		out.Fields = maps.Clone(s.Fields)
	}
	if s.Indexes != nil {
		out.Indexes = make(map[string]Index, len(s.Indexes))
		for name, ix := range s.Indexes {
			out.Indexes[name] = ix.Clone()
		}
	}
	return out
}

// ClassNames returns the class names of schemas in input order.
func ClassNames(schemas []Schema) []string {
	names := make([]string, len(schemas))
	for i := range schemas {
		names[i] = schemas[i].ClassName
	}
	return names
}

// Find returns the schema named className, or nil.
func Find(schemas []Schema, className string) *Schema {
	i := slices.IndexFunc(schemas, func(s Schema) bool { return s.ClassName == className })
	if i < 0 {
		return nil
	}
	return &schemas[i]
}

// Duplicates returns class names that appear more than once, in order of
// their second appearance.
func Duplicates(schemas []Schema) []string {
	seen := make(map[string]int, len(schemas))
	var dups []string
	for _, s := range schemas {
		seen[s.ClassName]++
		if seen[s.ClassName] == 2 {
			dups = append(dups, s.ClassName)
		}
	}
	return dups
}
