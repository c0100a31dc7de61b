package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/schemasync/internal/policy"
	"github.com/roach88/schemasync/internal/schema"
)

// Validate checks rules that need more than one declaration or the
// built-in column tables: className uniqueness and index keys naming a
// field of their class. Returns all errors found.
func Validate(schemas []schema.Schema) []ValidationError {
	var errs []ValidationError

	seen := make(map[string]int, len(schemas))
	for i, s := range schemas {
		if first, dup := seen[s.ClassName]; dup {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("schemas[%d].className", i),
				Message: fmt.Sprintf("duplicate className %q, first declared at schemas[%d]", s.ClassName, first),
				Code:    ErrDuplicateClass,
			})
			continue
		}
		seen[s.ClassName] = i
	}

	for i, s := range schemas {
		defaults := policy.DefaultFields(s.ClassName)
		names := s.IndexNames()
		for _, name := range names {
			keys := make([]string, 0, len(s.Indexes[name]))
			for k := range s.Indexes[name] {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, key := range keys {
				if indexKeyKnown(s, defaults, key) {
					continue
				}
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("schemas[%d].indexes.%s", i, name),
					Message: fmt.Sprintf("index key %q is not a field of %s", key, s.ClassName),
					Code:    ErrUnknownIndexField,
				})
			}
		}
	}

	return errs
}

func indexKeyKnown(s schema.Schema, defaults schema.Fields, key string) bool {
	if strings.HasPrefix(key, "_") {
		return true
	}
	if _, ok := s.Fields[key]; ok {
		return true
	}
	_, ok := defaults[key]
	return ok
}
