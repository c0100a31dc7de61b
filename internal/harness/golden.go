package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/schemasync/internal/schema"
	"github.com/roach88/schemasync/internal/testutil"
)

// allClasses groups calls that name no class, such as AllSchemas.
const allClasses = "*"

// TraceSnapshot captures a run for golden comparison. Calls are grouped by
// class and keep their order within the class; Seq is dropped because the
// interleaving across classes is not deterministic.
type TraceSnapshot struct {
	Scenario string                    `json:"scenario"`
	Error    string                    `json:"error,omitempty"`
	Calls    map[string][]snapshotCall `json:"calls"`
	Warnings []string                  `json:"warnings"`
}

type snapshotCall struct {
	Op      testutil.Op     `json:"op"`
	Payload *schema.Payload `json:"payload,omitempty"`
	Err     string          `json:"error,omitempty"`
}

// NewTraceSnapshot builds the snapshot of result under name.
func NewTraceSnapshot(name string, result *Result) TraceSnapshot {
	snap := TraceSnapshot{
		Scenario: name,
		Calls:    make(map[string][]snapshotCall),
		Warnings: result.Warnings,
	}
	if result.RunError != nil {
		snap.Error = result.RunError.Error()
	}
	for _, c := range result.Calls {
		key := c.ClassName
		if key == "" {
			key = allClasses
		}
		snap.Calls[key] = append(snap.Calls[key], snapshotCall{Op: c.Op, Payload: c.Payload, Err: c.Err})
	}
	return snap
}

// MarshalGolden renders the snapshot as canonical JSON with a trailing
// newline.
func (s TraceSnapshot) MarshalGolden() ([]byte, error) {
	data, err := schema.MarshalCanonical(s)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can check Pass, or an error if the scenario
// could not be executed. A trace mismatch fails t through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := NewTraceSnapshot(name, result).MarshalGolden()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
