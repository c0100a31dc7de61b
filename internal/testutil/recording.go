package testutil

import (
	"context"
	"sync"

	"github.com/roach88/schemasync/internal/schema"
)

// Backend mirrors migrate.Backend so this package stays importable from
// migrate's own tests.
type Backend interface {
	AllSchemas(ctx context.Context) ([]schema.Schema, error)
	CreateSchema(ctx context.Context, className string, p schema.Payload) error
	UpdateSchema(ctx context.Context, className string, p schema.Payload) error
	CreateRecord(ctx context.Context, className string) (string, error)
	DeleteRecord(ctx context.Context, className, objectID string) error
}

// Op names a backend operation.
type Op string

// Backend operations.
const (
	OpAllSchemas   Op = "AllSchemas"
	OpCreateSchema Op = "CreateSchema"
	OpUpdateSchema Op = "UpdateSchema"
	OpCreateRecord Op = "CreateRecord"
	OpDeleteRecord Op = "DeleteRecord"
)

// Call is one recorded backend call.
type Call struct {
	// Seq is the 1-based position of the call across the whole recording.
	Seq       int             `json:"seq"`
	Op        Op              `json:"op"`
	ClassName string          `json:"className,omitempty"`
	Payload   *schema.Payload `json:"payload,omitempty"`
	Err       string          `json:"error,omitempty"`
}

type fault struct {
	op        Op
	className string
	remaining int
	err       error
	block     bool
}

// RecordingBackend wraps a Backend, recording every call and optionally
// injecting failures.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type RecordingBackend struct {
	inner Backend

	mu     sync.Mutex
	seq    int
	calls  []Call
	faults []*fault
}

// NewRecordingBackend wraps inner.
func NewRecordingBackend(inner Backend) *RecordingBackend {
	return &RecordingBackend{inner: inner}
}

// FailOn makes the next times calls of op on className return err without
// reaching the wrapped backend. An empty className matches every class.
func (r *RecordingBackend) FailOn(op Op, className string, times int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.faults = append(r.faults, &fault{op: op, className: className, remaining: times, err: err})
}

// BlockOn makes calls of op hang until their context is done.
func (r *RecordingBackend) BlockOn(op Op) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.faults = append(r.faults, &fault{op: op, remaining: -1, block: true})
}

// Calls returns a copy of the recorded calls in order.
func (r *RecordingBackend) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// CallsFor returns the calls for className in order.
func (r *RecordingBackend) CallsFor(className string) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.ClassName == className {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many calls of op were recorded.
func (r *RecordingBackend) Count(op Op) int {
	n := 0
	for _, c := range r.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls. Faults stay armed.
func (r *RecordingBackend) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq = 0
	r.calls = nil
}

// begin records a call and returns the fault to apply, if any, plus the
// index of the recorded call.
func (r *RecordingBackend) begin(op Op, className string, p *schema.Payload) (*fault, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	r.calls = append(r.calls, Call{Seq: r.seq, Op: op, ClassName: className, Payload: p})
	idx := len(r.calls) - 1

	for _, f := range r.faults {
		if f.op != op || f.remaining == 0 {
			continue
		}
		if f.className != "" && f.className != className {
			continue
		}
		if f.remaining > 0 {
			f.remaining--
		}
		return f, idx
	}
	return nil, idx
}

func (r *RecordingBackend) finish(idx int, err error) error {
	if err != nil {
		r.mu.Lock()
		r.calls[idx].Err = err.Error()
		r.mu.Unlock()
	}
	return err
}

func (r *RecordingBackend) inject(ctx context.Context, f *fault) error {
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

// AllSchemas implements migrate.Backend.
func (r *RecordingBackend) AllSchemas(ctx context.Context) ([]schema.Schema, error) {
	f, idx := r.begin(OpAllSchemas, "", nil)
	if f != nil {
		return nil, r.finish(idx, r.inject(ctx, f))
	}
	out, err := r.inner.AllSchemas(ctx)
	return out, r.finish(idx, err)
}

// CreateSchema implements migrate.Backend.
func (r *RecordingBackend) CreateSchema(ctx context.Context, className string, p schema.Payload) error {
	f, idx := r.begin(OpCreateSchema, className, &p)
	if f != nil {
		return r.finish(idx, r.inject(ctx, f))
	}
	return r.finish(idx, r.inner.CreateSchema(ctx, className, p))
}

// UpdateSchema implements migrate.Backend.
func (r *RecordingBackend) UpdateSchema(ctx context.Context, className string, p schema.Payload) error {
	f, idx := r.begin(OpUpdateSchema, className, &p)
	if f != nil {
		return r.finish(idx, r.inject(ctx, f))
	}
	return r.finish(idx, r.inner.UpdateSchema(ctx, className, p))
}

// CreateRecord implements migrate.Backend.
func (r *RecordingBackend) CreateRecord(ctx context.Context, className string) (string, error) {
	f, idx := r.begin(OpCreateRecord, className, nil)
	if f != nil {
		return "", r.finish(idx, r.inject(ctx, f))
	}
	id, err := r.inner.CreateRecord(ctx, className)
	return id, r.finish(idx, err)
}

// DeleteRecord implements migrate.Backend.
func (r *RecordingBackend) DeleteRecord(ctx context.Context, className, objectID string) error {
	f, idx := r.begin(OpDeleteRecord, className, nil)
	if f != nil {
		return r.finish(idx, r.inject(ctx, f))
	}
	return r.finish(idx, r.inner.DeleteRecord(ctx, className, objectID))
}
