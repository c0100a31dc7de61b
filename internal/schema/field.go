package schema

import (
	"encoding/json"
	"fmt"
)

// FieldType names a field kind as reported by the backend.
type FieldType string

// Declarable field kinds.
const (
	TypeString   FieldType = "String"
	TypeBoolean  FieldType = "Boolean"
	TypeFile     FieldType = "File"
	TypeNumber   FieldType = "Number"
	TypeRelation FieldType = "Relation"
	TypePointer  FieldType = "Pointer"
	TypeDate     FieldType = "Date"
	TypeGeoPoint FieldType = "GeoPoint"
	TypePolygon  FieldType = "Polygon"
	TypeArray    FieldType = "Array"
	TypeObject   FieldType = "Object"
)

// Kinds only reported on the live side, for built-in columns.
const (
	TypeBytes FieldType = "Bytes"
	TypeACL   FieldType = "ACL"
)

// DeclarableTypes lists the kinds a declared schema may use.
var DeclarableTypes = map[FieldType]bool{
	TypeString:   true,
	TypeBoolean:  true,
	TypeFile:     true,
	TypeNumber:   true,
	TypeRelation: true,
	TypePointer:  true,
	TypeDate:     true,
	TypeGeoPoint: true,
	TypePolygon:  true,
	TypeArray:    true,
	TypeObject:   true,
}

// knownTypes additionally accepts live-only kinds.
var knownTypes = map[FieldType]bool{
	TypeBytes: true,
	TypeACL:   true,
}

func isKnownType(t FieldType) bool {
	return DeclarableTypes[t] || knownTypes[t]
}

// IsReference reports whether the kind requires a target class.
func (t FieldType) IsReference() bool {
	return t == TypePointer || t == TypeRelation
}

// Field is a sealed interface over the three field families the backend
// creates through different primitives. Switch over the concrete types to
// dispatch exhaustively.
type Field interface {
	// Type returns the field kind.
	Type() FieldType
	// Target returns the target class, empty for non-reference kinds.
	Target() string
	// Params returns every declared key of the descriptor, used for
	// structural comparison.
	Params() map[string]Value
	isField()
}

// ScalarField is any non-reference kind.
type ScalarField struct {
	Kind         FieldType
	Required     *bool
	DefaultValue Value
}

// PointerField references a single object of TargetClass.
type PointerField struct {
	TargetClass  string
	Required     *bool
	DefaultValue Value
}

// RelationField references many objects of TargetClass. The backend's
// relation primitive carries only the target class.
type RelationField struct {
	TargetClass string
}

func (f ScalarField) Type() FieldType   { return f.Kind }
func (f PointerField) Type() FieldType  { return TypePointer }
func (f RelationField) Type() FieldType { return TypeRelation }

func (f ScalarField) Target() string   { return "" }
func (f PointerField) Target() string  { return f.TargetClass }
func (f RelationField) Target() string { return f.TargetClass }

func (ScalarField) isField()   {}
func (PointerField) isField()  {}
func (RelationField) isField() {}

func (f ScalarField) Params() map[string]Value {
	return optionParams(Object{"type": String(f.Kind)}, f.Required, f.DefaultValue)
}

func (f PointerField) Params() map[string]Value {
	return optionParams(Object{"type": String(TypePointer), "targetClass": String(f.TargetClass)}, f.Required, f.DefaultValue)
}

func (f RelationField) Params() map[string]Value {
	return Object{"type": String(TypeRelation), "targetClass": String(f.TargetClass)}
}

func optionParams(p Object, required *bool, def Value) Object {
	if required != nil {
		p["required"] = Bool(*required)
	}
	if def != nil {
		p["defaultValue"] = def
	}
	return p
}

// TypeParams returns only the keys that identify a field's storage shape:
// type and, for reference kinds, targetClass.
func TypeParams(f Field) map[string]Value {
	p := Object{"type": String(f.Type())}
	if f.Type().IsReference() {
		p["targetClass"] = String(f.Target())
	}
	return p
}

// DescribeType renders "Pointer (_User)" style labels for log lines.
func DescribeType(f Field) string {
	if f.Target() != "" {
		return fmt.Sprintf("%s (%s)", f.Type(), f.Target())
	}
	return string(f.Type())
}

// NewField builds the variant matching t. targetClass must be set exactly
// when t is a reference kind.
func NewField(t FieldType, targetClass string, required *bool, def Value) (Field, error) {
	if !isKnownType(t) {
		return nil, fmt.Errorf("unknown field type %q", t)
	}
	if t.IsReference() && targetClass == "" {
		return nil, fmt.Errorf("%s field requires targetClass", t)
	}
	if !t.IsReference() && targetClass != "" {
		return nil, fmt.Errorf("targetClass is only valid on Pointer and Relation fields, not %s", t)
	}

	switch t {
	case TypeRelation:
		if required != nil || def != nil {
			return nil, fmt.Errorf("Relation field takes no required or defaultValue")
		}
		return RelationField{TargetClass: targetClass}, nil
	case TypePointer:
		return PointerField{TargetClass: targetClass, Required: required, DefaultValue: def}, nil
	default:
		return ScalarField{Kind: t, Required: required, DefaultValue: def}, nil
	}
}

// fieldJSON is the wire form of a descriptor.
type fieldJSON struct {
	Type         FieldType       `json:"type"`
	TargetClass  string          `json:"targetClass,omitempty"`
	Required     *bool           `json:"required,omitempty"`
	DefaultValue json.RawMessage `json:"defaultValue,omitempty"`
}

// MarshalField encodes a descriptor in the backend's wire form.
func MarshalField(f Field) ([]byte, error) {
	w := fieldJSON{Type: f.Type(), TargetClass: f.Target()}
	var def Value
	switch v := f.(type) {
	case ScalarField:
		w.Required, def = v.Required, v.DefaultValue
	case PointerField:
		w.Required, def = v.Required, v.DefaultValue
	case RelationField:
	default:
		return nil, fmt.Errorf("unknown field variant %T", f)
	}
	if def != nil {
		raw, err := MarshalValue(def)
		if err != nil {
			return nil, fmt.Errorf("defaultValue: %w", err)
		}
		w.DefaultValue = raw
	}
	return json.Marshal(w)
}

// UnmarshalField decodes a descriptor from its wire form.
func UnmarshalField(data []byte) (Field, error) {
	var w fieldJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	var def Value
	if len(w.DefaultValue) > 0 {
		v, err := UnmarshalValue(w.DefaultValue)
		if err != nil {
			return nil, fmt.Errorf("defaultValue: %w", err)
		}
		def = v
	}
	return NewField(w.Type, w.TargetClass, w.Required, def)
}

// Fields maps field names to descriptors.
type Fields map[string]Field

// MarshalJSON implements json.Marshaler.
func (fs Fields) MarshalJSON() ([]byte, error) {
	raw := make(map[string]json.RawMessage, len(fs))
	for name, f := range fs {
		b, err := MarshalField(f)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		raw[name] = b
	}
	return json.Marshal(raw)
}

// UnmarshalJSON implements json.Unmarshaler.
func (fs *Fields) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Fields, len(raw))
	for name, b := range raw {
		f, err := UnmarshalField(b)
		if err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
		out[name] = f
	}
	*fs = out
	return nil
}
