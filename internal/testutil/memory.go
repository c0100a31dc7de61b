package testutil

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/schemasync/internal/catalog"
	"github.com/roach88/schemasync/internal/schema"
)

// MemoryBackend is an in-memory schema store enforcing the same mutation
// rules as the SQLite and Postgres stores.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type MemoryBackend struct {
	mu      sync.Mutex
	classes map[string]*schema.Schema
	records map[string]map[string]struct{}
}

// NewMemoryBackend returns a backend holding live, stored as given without
// rule checks.
func NewMemoryBackend(live ...schema.Schema) *MemoryBackend {
	m := &MemoryBackend{
		classes: make(map[string]*schema.Schema),
		records: make(map[string]map[string]struct{}),
	}
	m.Seed(live...)
	return m
}

// Seed stores schemas as they are, replacing existing documents.
func (m *MemoryBackend) Seed(live ...schema.Schema) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range live {
		m.classes[live[i].ClassName] = live[i].Clone()
	}
}

// Schema returns a copy of the stored document, or nil.
func (m *MemoryBackend) Schema(className string) *schema.Schema {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.classes[className].Clone()
}

// RecordCount returns how many records className currently holds.
func (m *MemoryBackend) RecordCount(className string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records[className])
}

// AllSchemas returns copies of every stored class sorted by name.
func (m *MemoryBackend) AllSchemas(ctx context.Context) ([]schema.Schema, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]schema.Schema, 0, len(m.classes))
	for _, s := range m.classes {
		out = append(out, *s.Clone())
	}
	slices.SortFunc(out, func(a, b schema.Schema) int {
		return strings.Compare(a.ClassName, b.ClassName)
	})
	return out, nil
}

// CreateSchema implements migrate.Backend.
func (m *MemoryBackend) CreateSchema(ctx context.Context, className string, p schema.Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	_, exists := m.classes[className]
	doc, err := catalog.Create(className, exists, p)
	if err != nil {
		return err
	}
	m.classes[className] = doc
	return nil
}

// UpdateSchema implements migrate.Backend.
func (m *MemoryBackend) UpdateSchema(ctx context.Context, className string, p schema.Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := catalog.Update(className, m.classes[className], p)
	if err != nil {
		return err
	}
	m.classes[className] = doc
	return nil
}

// CreateRecord materializes className on first use, like the real stores.
func (m *MemoryBackend) CreateRecord(ctx context.Context, className string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.classes[className]; !ok {
		m.classes[className] = catalog.Materialize(className)
	}
	if m.records[className] == nil {
		m.records[className] = make(map[string]struct{})
	}
	id := uuid.NewString()
	m.records[className][id] = struct{}{}
	return id, nil
}

// DeleteRecord implements migrate.Backend.
func (m *MemoryBackend) DeleteRecord(ctx context.Context, className, objectID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[className][objectID]; !ok {
		return fmt.Errorf("record %s/%s not found", className, objectID)
	}
	delete(m.records[className], objectID)
	return nil
}
