package compiler

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"

	"github.com/roach88/schemasync/internal/policy"
	"github.com/roach88/schemasync/internal/schema"
)

var (
	classNameRe = regexp.MustCompile(`^_?[A-Za-z][A-Za-z0-9_]*$`)
	fieldNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
)

var documentKeys = map[string]bool{
	"className":             true,
	"fields":                true,
	"indexes":               true,
	"classLevelPermissions": true,
}

var fieldKeys = map[string]bool{
	"type":         true,
	"targetClass":  true,
	"required":     true,
	"defaultValue": true,
}

// Compile types every document and then runs Validate over the result.
// Documents with errors are left out of the returned schemas. All errors
// are returned; nothing stops at the first.
func Compile(docs []Document) ([]schema.Schema, []ValidationError) {
	out, errs := CompileDocuments(docs)
	errs = append(errs, Validate(out)...)
	return out, errs
}

// CompileDocuments types each document on its own, without the checks
// that span declarations.
func CompileDocuments(docs []Document) ([]schema.Schema, []ValidationError) {
	var (
		out  []schema.Schema
		errs []ValidationError
	)
	for i, d := range docs {
		s, docErrs := compileDocument(i, d)
		if len(docErrs) > 0 {
			errs = append(errs, docErrs...)
			continue
		}
		out = append(out, s)
	}
	return out, errs
}

func compileDocument(i int, d Document) (schema.Schema, []ValidationError) {
	var errs []ValidationError
	fail := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{
			Source:  d.Source,
			Field:   fmt.Sprintf("schemas[%d]%s", i, field),
			Message: fmt.Sprintf(format, args...),
			Code:    code,
		})
	}

	raw, ok := d.Raw.(map[string]any)
	if !ok {
		fail("", ErrInvalidDocument, "declaration must be a mapping, got %T", d.Raw)
		return schema.Schema{}, errs
	}
	for _, key := range sortedKeys(raw) {
		if !documentKeys[key] {
			fail("."+key, ErrInvalidDocument, "unknown key %q", key)
		}
	}

	s := schema.Schema{ClassName: d.Label}
	if v, present := raw["className"]; present {
		name, ok := v.(string)
		switch {
		case !ok:
			fail(".className", ErrInvalidClassName, "className must be a string")
			return s, errs
		case d.Label != "" && name != d.Label:
			fail(".className", ErrInvalidClassName, "className %q does not match label %q", name, d.Label)
			return s, errs
		}
		s.ClassName = name
	}
	switch {
	case s.ClassName == "":
		fail(".className", ErrInvalidClassName, "className is required")
	case !classNameRe.MatchString(s.ClassName):
		fail(".className", ErrInvalidClassName, "invalid className %q", s.ClassName)
	case s.ClassName[0] == '_' && !policy.IsSystemClass(s.ClassName):
		fail(".className", ErrInvalidClassName, "%q is not a system class; only system classes may start with _", s.ClassName)
	}

	if v, present := raw["fields"]; present && v != nil {
		fields, ok := v.(map[string]any)
		if !ok {
			fail(".fields", ErrInvalidDocument, "fields must be a mapping")
		} else {
			s.Fields = make(schema.Fields, len(fields))
			for _, name := range sortedKeys(fields) {
				path := ".fields." + name
				if !fieldNameRe.MatchString(name) {
					fail(path, ErrInvalidFieldName, "invalid field name %q", name)
					continue
				}
				f, code, err := compileField(fields[name])
				if err != nil {
					fail(path, code, "%v", err)
					continue
				}
				s.Fields[name] = f
			}
		}
	}

	if v, present := raw["indexes"]; present && v != nil {
		indexes, ok := v.(map[string]any)
		if !ok {
			fail(".indexes", ErrInvalidDocument, "indexes must be a mapping")
		} else {
			s.Indexes = make(map[string]schema.Index, len(indexes))
			for _, name := range sortedKeys(indexes) {
				idx, err := compileIndex(indexes[name])
				if err != nil {
					fail(".indexes."+name, ErrInvalidIndex, "%v", err)
					continue
				}
				s.Indexes[name] = idx
			}
		}
	}

	if v, present := raw["classLevelPermissions"]; present && v != nil {
		perms, err := compilePermissions(v)
		if err != nil {
			fail(".classLevelPermissions", ErrInvalidPermissions, "%v", err)
		} else {
			s.Permissions = perms
		}
	}

	return s, errs
}

// compileField returns the error code alongside the error so callers can
// report it.
func compileField(v any) (schema.Field, string, error) {
	raw, ok := v.(map[string]any)
	if !ok {
		return nil, ErrInvalidFieldType, fmt.Errorf("field must be a mapping with a type")
	}
	for _, key := range sortedKeys(raw) {
		if !fieldKeys[key] {
			return nil, ErrInvalidFieldOption, fmt.Errorf("unknown field option %q", key)
		}
	}

	typ, ok := raw["type"].(string)
	if !ok || typ == "" {
		return nil, ErrInvalidFieldType, fmt.Errorf("type is required")
	}
	ft := schema.FieldType(typ)
	if !schema.DeclarableTypes[ft] {
		return nil, ErrInvalidFieldType, fmt.Errorf("invalid field type %q", typ)
	}

	var target string
	if t, present := raw["targetClass"]; present {
		s, ok := t.(string)
		if !ok {
			return nil, ErrInvalidTargetClass, fmt.Errorf("targetClass must be a string")
		}
		if !classNameRe.MatchString(s) {
			return nil, ErrInvalidTargetClass, fmt.Errorf("invalid targetClass %q", s)
		}
		target = s
	}
	if ft.IsReference() != (target != "") {
		if target == "" {
			return nil, ErrInvalidTargetClass, fmt.Errorf("%s field requires targetClass", ft)
		}
		return nil, ErrInvalidTargetClass, fmt.Errorf("targetClass is only valid on Pointer and Relation fields, not %s", ft)
	}

	var required *bool
	if r, present := raw["required"]; present {
		b, ok := r.(bool)
		if !ok {
			return nil, ErrInvalidFieldOption, fmt.Errorf("required must be a boolean")
		}
		required = &b
	}

	var def schema.Value
	if dv, present := raw["defaultValue"]; present {
		val, err := schema.ValueOf(dv)
		if err != nil {
			return nil, ErrInvalidFieldOption, fmt.Errorf("defaultValue: %w", err)
		}
		def = val
	}

	f, err := schema.NewField(ft, target, required, def)
	if err != nil {
		return nil, ErrInvalidFieldOption, err
	}
	return f, "", nil
}

func compileIndex(v any) (schema.Index, error) {
	raw, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("index must be a mapping of field to direction")
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("index has no keys")
	}
	idx := make(schema.Index, len(raw))
	for key, dir := range raw {
		val, err := schema.ValueOf(dir)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		n, ok := val.(schema.Int)
		if !ok || (n != 1 && n != -1) {
			return nil, fmt.Errorf("key %q: direction must be 1 or -1", key)
		}
		idx[key] = int(n)
	}
	return idx, nil
}

// compilePermissions round-trips through JSON so the rules enforced by
// schema.Permissions apply unchanged.
func compilePermissions(v any) (*schema.Permissions, error) {
	if _, ok := v.(map[string]any); !ok {
		return nil, fmt.Errorf("classLevelPermissions must be a mapping")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var p schema.Permissions
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
