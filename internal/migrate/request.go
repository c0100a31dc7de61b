package migrate

import (
	"context"
	"fmt"

	"github.com/roach88/schemasync/internal/schema"
)

// ChangeRequest accumulates structural changes for one class until they
// are flushed to the backend. Field and index deltas are cleared after
// every flush; the permission document is kept so later flushes carry it
// again.
//
// A ChangeRequest belongs to a single class task and is not safe for
// concurrent use.
type ChangeRequest struct {
	className   string
	fields      map[string]schema.FieldChange
	indexes     map[string]schema.IndexChange
	permissions *schema.Permissions
}

// NewChangeRequest returns an empty request for className.
func NewChangeRequest(className string) *ChangeRequest {
	c := &ChangeRequest{className: className}
	c.Reset()
	return c
}

// ClassName returns the class the request targets.
func (c *ChangeRequest) ClassName() string {
	return c.className
}

// AddField stages creation of name. The backend creates relations, pointers
// and every other kind through different primitives, so dispatch is by
// variant.
func (c *ChangeRequest) AddField(name string, f schema.Field) error {
	switch v := f.(type) {
	case schema.RelationField:
		c.addRelation(name, v.TargetClass)
	case schema.PointerField:
		c.addPointer(name, v.TargetClass, v.Required, v.DefaultValue)
	case schema.ScalarField:
		c.addScalar(name, v.Kind, v.Required, v.DefaultValue)
	default:
		return fmt.Errorf("field %q: unsupported field variant %T", name, f)
	}
	return nil
}

func (c *ChangeRequest) addRelation(name, targetClass string) {
	c.fields[name] = schema.FieldChange{Field: schema.RelationField{TargetClass: targetClass}}
}

func (c *ChangeRequest) addPointer(name, targetClass string, required *bool, def schema.Value) {
	c.fields[name] = schema.FieldChange{Field: schema.PointerField{
		TargetClass:  targetClass,
		Required:     required,
		DefaultValue: def,
	}}
}

func (c *ChangeRequest) addScalar(name string, kind schema.FieldType, required *bool, def schema.Value) {
	c.fields[name] = schema.FieldChange{Field: schema.ScalarField{
		Kind:         kind,
		Required:     required,
		DefaultValue: def,
	}}
}

// DeleteField stages deletion of name.
func (c *ChangeRequest) DeleteField(name string) {
	c.fields[name] = schema.FieldChange{Delete: true}
}

// AddIndex stages creation of an index.
func (c *ChangeRequest) AddIndex(name string, ix schema.Index) {
	c.indexes[name] = schema.IndexChange{Index: ix.Clone()}
}

// DeleteIndex stages deletion of an index.
func (c *ChangeRequest) DeleteIndex(name string) {
	c.indexes[name] = schema.IndexChange{Delete: true}
}

// SetPermissions sets the permission document sent with every later flush.
func (c *ChangeRequest) SetPermissions(p *schema.Permissions) {
	c.permissions = p
}

// Pending reports whether field or index changes are staged.
func (c *ChangeRequest) Pending() bool {
	return len(c.fields) > 0 || len(c.indexes) > 0
}

// Payload returns the staged changes. The returned maps are not touched by
// later calls on c.
func (c *ChangeRequest) Payload() schema.Payload {
	p := schema.Payload{Permissions: c.permissions}
	if len(c.fields) > 0 {
		p.Fields = c.fields
	}
	if len(c.indexes) > 0 {
		p.Indexes = c.indexes
	}
	return p
}

// Reset clears staged field and index changes and keeps permissions.
func (c *ChangeRequest) Reset() {
	c.fields = make(map[string]schema.FieldChange)
	c.indexes = make(map[string]schema.IndexChange)
}

// Update submits the staged changes as an update and resets the request,
// whether or not the call succeeded.
func (c *ChangeRequest) Update(ctx context.Context, b Backend) error {
	p := c.Payload()
	c.Reset()
	return b.UpdateSchema(ctx, c.className, p)
}

// Create submits the staged changes as a class creation and resets the
// request.
func (c *ChangeRequest) Create(ctx context.Context, b Backend) error {
	p := c.Payload()
	c.Reset()
	return b.CreateSchema(ctx, c.className, p)
}
