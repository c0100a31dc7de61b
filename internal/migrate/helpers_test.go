package migrate

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"

	"github.com/roach88/schemasync/internal/schema"
	"github.com/roach88/schemasync/internal/testutil"
)

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// testLogger returns a logger writing text lines into the returned buffer.
func testLogger(t *testing.T) (*slog.Logger, *syncBuffer) {
	t.Helper()
	buf := &syncBuffer{}
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

// setupBackend returns a recording backend over an in-memory store seeded
// with live.
func setupBackend(t *testing.T, live ...schema.Schema) (*testutil.RecordingBackend, *testutil.MemoryBackend) {
	t.Helper()
	mem := testutil.NewMemoryBackend(live...)
	return testutil.NewRecordingBackend(mem), mem
}

func boolPtr(b bool) *bool { return &b }

func number() schema.Field { return schema.ScalarField{Kind: schema.TypeNumber} }

func str() schema.Field { return schema.ScalarField{Kind: schema.TypeString} }

// schemaCalls drops bootstrap and enumeration calls.
func schemaCalls(calls []testutil.Call) []testutil.Call {
	var out []testutil.Call
	for _, c := range calls {
		if c.Op == testutil.OpCreateSchema || c.Op == testutil.OpUpdateSchema {
			out = append(out, c)
		}
	}
	return out
}
