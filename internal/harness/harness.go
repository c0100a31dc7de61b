package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/roach88/schemasync/internal/compiler"
	"github.com/roach88/schemasync/internal/migrate"
	"github.com/roach88/schemasync/internal/schema"
	"github.com/roach88/schemasync/internal/store"
	"github.com/roach88/schemasync/internal/testutil"
)

// RunID tags every scenario run so log lines are reproducible.
const RunID = "harness"

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation. The
// returned error reports a scenario that could not be set up; a run that
// ends differently than expected is reported through Result.Pass.
//
// Execution flow:
//  1. Create a fresh in-memory store and seed the live schemas
//  2. Compile the declared schemas
//  3. Wrap the store in a recording backend and arm injected failures
//  4. Run one reconciliation
//  5. Evaluate expect_error and assertions against calls and final state
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	live, err := decodeLive(scenario.Live)
	if err != nil {
		return nil, err
	}
	if err := st.Seed(ctx, live...); err != nil {
		return nil, fmt.Errorf("failed to seed live schemas: %w", err)
	}

	declared, err := compileDeclared(scenario.Schemas)
	if err != nil {
		return nil, err
	}

	rec := testutil.NewRecordingBackend(st)
	for _, f := range scenario.Failures {
		times := f.Times
		if times == 0 {
			times = 1
		}
		rec.FailOn(testutil.Op(f.Op), f.Class, times, errors.New(f.Error))
	}

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{
		Level:       slog.LevelWarn,
		ReplaceAttr: dropTime,
	}))

	opts := []migrate.Option{
		migrate.WithStrict(scenario.Options.Strict),
		migrate.WithDeleteExtraFields(scenario.Options.DeleteExtraFields),
		migrate.WithRecreateModifiedFields(scenario.Options.RecreateModifiedFields),
		migrate.WithRetryDelay(time.Millisecond),
		migrate.WithLogger(logger),
		migrate.WithIDGenerator(migrate.NewFixedGenerator(RunID)),
	}
	if scenario.Options.MaxRetries != nil {
		opts = append(opts, migrate.WithMaxRetries(*scenario.Options.MaxRetries))
	}

	runErr := migrate.New(rec, declared, opts...).Run(ctx)

	final, err := st.AllSchemas(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read final state: %w", err)
	}

	result := NewResult()
	result.Calls = rec.Calls()
	result.Final = final
	result.Warnings = warningLines(logs.String())
	result.RunError = runErr

	checkRunError(scenario.ExpectError, runErr, result)
	for _, a := range scenario.Assertions {
		if err := evaluate(a, result); err != nil {
			result.AddError(err.Error())
		}
	}
	return result, nil
}

// decodeLive goes through JSON so live documents accept every field kind
// the backend reports, including ACL and Bytes.
func decodeLive(docs []map[string]any) ([]schema.Schema, error) {
	out := make([]schema.Schema, 0, len(docs))
	for i, d := range docs {
		data, err := json.Marshal(d)
		if err != nil {
			return nil, fmt.Errorf("live[%d]: %w", i, err)
		}
		var s schema.Schema
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("live[%d]: %w", i, err)
		}
		if s.ClassName == "" {
			return nil, fmt.Errorf("live[%d]: className is required", i)
		}
		out = append(out, s)
	}
	return out, nil
}

// compileDeclared leaves cross-declaration checks such as duplicate names
// to the reconciler, which is what scenarios exercise.
func compileDeclared(raw []any) ([]schema.Schema, error) {
	docs := make([]compiler.Document, len(raw))
	for i, r := range raw {
		docs[i] = compiler.Document{Source: fmt.Sprintf("schemas[%d]", i), Raw: r}
	}
	declared, errs := compiler.CompileDocuments(docs)
	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("invalid declared schemas:\n  %s", strings.Join(msgs, "\n  "))
	}
	return declared, nil
}

func checkRunError(expected string, runErr error, result *Result) {
	if expected == "" {
		if runErr != nil {
			result.AddError(fmt.Sprintf("run failed unexpectedly: %v", runErr))
		}
		return
	}
	var me *migrate.Error
	switch {
	case runErr == nil:
		result.AddError(fmt.Sprintf("expected run to fail with %s, it succeeded", expected))
	case !errors.As(runErr, &me):
		result.AddError(fmt.Sprintf("expected %s, got untyped error: %v", expected, runErr))
	case string(me.Code) != expected:
		result.AddError(fmt.Sprintf("expected %s, got %s: %v", expected, me.Code, runErr))
	}
}

func dropTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}

// warningLines keeps WARN lines only; ERROR lines carry wrapped store
// errors whose order across classes is not stable.
func warningLines(logs string) []string {
	out := []string{}
	for _, line := range strings.Split(logs, "\n") {
		if strings.HasPrefix(line, "level=WARN ") {
			out = append(out, line)
		}
	}
	sort.Strings(out)
	return out
}
