package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/schemasync/internal/schema"
)

var errInjected = errors.New("injected")

func TestRecordingBackend_RecordsCalls(t *testing.T) {
	ctx := context.Background()
	r := NewRecordingBackend(NewMemoryBackend())

	id, err := r.CreateRecord(ctx, "_Session")
	require.NoError(t, err)
	require.NoError(t, r.DeleteRecord(ctx, "_Session", id))
	_, err = r.AllSchemas(ctx)
	require.NoError(t, err)
	require.NoError(t, r.CreateSchema(ctx, "Game", schema.Payload{
		Fields: map[string]schema.FieldChange{"score": scoreField()},
	}))

	calls := r.Calls()
	require.Len(t, calls, 4)
	for i, c := range calls {
		assert.Equal(t, i+1, c.Seq)
		assert.Empty(t, c.Err)
	}
	assert.Equal(t, OpCreateRecord, calls[0].Op)
	assert.Equal(t, OpDeleteRecord, calls[1].Op)
	assert.Equal(t, OpAllSchemas, calls[2].Op)
	assert.Empty(t, calls[2].ClassName)
	assert.Equal(t, OpCreateSchema, calls[3].Op)
	require.NotNil(t, calls[3].Payload)
	assert.Contains(t, calls[3].Payload.Fields, "score")

	assert.Len(t, r.CallsFor("_Session"), 2)
	assert.Equal(t, 1, r.Count(OpCreateSchema))
}

func TestRecordingBackend_FailOn(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryBackend()
	r := NewRecordingBackend(mem)
	r.FailOn(OpCreateSchema, "Game", 2, errInjected)

	for range 2 {
		err := r.CreateSchema(ctx, "Game", schema.Payload{})
		assert.ErrorIs(t, err, errInjected)
	}
	assert.Nil(t, mem.Schema("Game"), "failed calls never reach the wrapped backend")

	require.NoError(t, r.CreateSchema(ctx, "Game", schema.Payload{}))
	require.NoError(t, r.CreateSchema(ctx, "Player", schema.Payload{}))

	calls := r.CallsFor("Game")
	require.Len(t, calls, 3)
	assert.Equal(t, errInjected.Error(), calls[0].Err)
	assert.Equal(t, errInjected.Error(), calls[1].Err)
	assert.Empty(t, calls[2].Err)
}

func TestRecordingBackend_FailOnAnyClassForever(t *testing.T) {
	ctx := context.Background()
	r := NewRecordingBackend(NewMemoryBackend())
	r.FailOn(OpAllSchemas, "", -1, errInjected)

	for range 5 {
		_, err := r.AllSchemas(ctx)
		assert.ErrorIs(t, err, errInjected)
	}
}

func TestRecordingBackend_RecordsInnerErrors(t *testing.T) {
	r := NewRecordingBackend(NewMemoryBackend())

	err := r.UpdateSchema(context.Background(), "Missing", schema.Payload{})
	require.Error(t, err)
	assert.Equal(t, err.Error(), r.Calls()[0].Err)
}

func TestRecordingBackend_BlockOn(t *testing.T) {
	r := NewRecordingBackend(NewMemoryBackend())
	r.BlockOn(OpCreateRecord)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := r.CreateRecord(ctx, "_Session")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRecordingBackend_Reset(t *testing.T) {
	ctx := context.Background()
	r := NewRecordingBackend(NewMemoryBackend())
	r.FailOn(OpAllSchemas, "", 2, errInjected)

	_, _ = r.AllSchemas(ctx)
	r.Reset()
	assert.Empty(t, r.Calls())

	_, err := r.AllSchemas(ctx)
	assert.ErrorIs(t, err, errInjected, "faults stay armed")
	assert.Equal(t, 1, r.Calls()[0].Seq)
}

func TestRecordingBackend_ConcurrentCalls(t *testing.T) {
	ctx := context.Background()
	r := NewRecordingBackend(NewMemoryBackend())

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.AllSchemas(ctx)
		}()
	}
	wg.Wait()

	calls := r.Calls()
	require.Len(t, calls, 20)
	seen := make(map[int]bool)
	for _, c := range calls {
		seen[c.Seq] = true
	}
	assert.Len(t, seen, 20)
}
