package catalog

import (
	"sort"
	"strings"

	"github.com/roach88/schemasync/internal/policy"
	"github.com/roach88/schemasync/internal/schema"
)

// DefaultPermissions returns the permissions a class gets when created
// without any: every action public, no protected fields.
func DefaultPermissions() *schema.Permissions {
	p := &schema.Permissions{
		Rules:           make(map[schema.Action]schema.Rule, len(schema.Actions)),
		ProtectedFields: map[string][]string{"*": {}},
	}
	for _, a := range schema.Actions {
		p.Rules[a] = schema.Rule{"*": true}
	}
	return p
}

// Materialize returns a fresh document for className holding only its
// default columns and backend-owned indexes.
func Materialize(className string) *schema.Schema {
	return &schema.Schema{
		ClassName:   className,
		Fields:      policy.DefaultFields(className),
		Indexes:     policy.DefaultIndexes(className),
		Permissions: DefaultPermissions(),
	}
}

// Create builds the document for a new class. existing reports whether the
// class is already stored.
func Create(className string, existing bool, p schema.Payload) (*schema.Schema, error) {
	if existing {
		return nil, ruleErr(ErrCodeClassExists, className, "", "class already exists")
	}
	doc := Materialize(className)
	for name, ch := range p.Fields {
		if ch.Delete {
			return nil, ruleErr(ErrCodeFieldNotFound, className, name, "cannot delete a field of a new class")
		}
	}
	for name, ch := range p.Indexes {
		if ch.Delete {
			return nil, ruleErr(ErrCodeIndexNotFound, className, name, "cannot delete an index of a new class")
		}
	}
	if err := apply(doc, p); err != nil {
		return nil, err
	}
	return doc, nil
}

// Update applies p to a copy of live. live nil means the class is not
// stored.
func Update(className string, live *schema.Schema, p schema.Payload) (*schema.Schema, error) {
	if live == nil {
		return nil, ruleErr(ErrCodeClassNotFound, className, "", "class does not exist")
	}
	doc := live.Clone()
	if err := apply(doc, p); err != nil {
		return nil, err
	}
	return doc, nil
}

// apply mutates doc. Field changes land before index changes so a payload
// may add a field and an index over it together.
func apply(doc *schema.Schema, p schema.Payload) error {
	className := doc.ClassName
	if doc.Fields == nil {
		doc.Fields = make(schema.Fields)
	}
	if doc.Indexes == nil {
		doc.Indexes = make(map[string]schema.Index)
	}

	for _, name := range sortedNames(p.Fields) {
		ch := p.Fields[name]
		if policy.IsProtectedField(className, name) {
			return ruleErr(ErrCodeProtected, className, name, "field is a default column")
		}
		current, exists := doc.Fields[name]
		if ch.Delete {
			if !exists {
				return ruleErr(ErrCodeFieldNotFound, className, name, "field does not exist")
			}
			delete(doc.Fields, name)
			continue
		}
		if ch.Field == nil {
			return ruleErr(ErrCodeInvalidField, className, name, "field change carries no descriptor")
		}
		if exists && !schema.ParamsEqual(schema.TypeParams(current), schema.TypeParams(ch.Field)) {
			return ruleErr(ErrCodeTypeChange, className, name,
				"cannot change type from %s to %s", schema.DescribeType(current), schema.DescribeType(ch.Field))
		}
		doc.Fields[name] = ch.Field
	}

	for _, name := range sortedNames(p.Indexes) {
		ch := p.Indexes[name]
		if policy.IsProtectedIndex(className, name) {
			return ruleErr(ErrCodeProtected, className, name, "index is owned by the backend")
		}
		_, exists := doc.Indexes[name]
		if ch.Delete {
			if !exists {
				return ruleErr(ErrCodeIndexNotFound, className, name, "index does not exist")
			}
			delete(doc.Indexes, name)
			continue
		}
		if exists {
			return ruleErr(ErrCodeIndexExists, className, name, "index already exists")
		}
		if len(ch.Index) == 0 {
			return ruleErr(ErrCodeInvalidIndex, className, name, "index has no keys")
		}
		for key := range ch.Index {
			if strings.HasPrefix(key, "_") {
				continue
			}
			if _, ok := doc.Fields[key]; !ok {
				return ruleErr(ErrCodeInvalidIndex, className, name, "index key %q is not a field", key)
			}
		}
		doc.Indexes[name] = ch.Index.Clone()
	}

	if p.Permissions != nil {
		doc.Permissions = p.Permissions.Clone()
	}
	return nil
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
