package harness

import (
	"fmt"
	"maps"
	"strings"

	"github.com/roach88/schemasync/internal/schema"
	"github.com/roach88/schemasync/internal/testutil"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string          // Assertion type for categorization
	Expected string          // Human-readable expected outcome
	Actual   string          // Human-readable actual outcome
	Calls    []testutil.Call // Full call trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Calls) > 0 {
		fmt.Fprintf(&buf, "\nCalls:\n")
		for _, c := range e.Calls {
			fmt.Fprintf(&buf, "  [%d] %s\n", c.Seq, callLabel(c))
		}
	}
	return buf.String()
}

func callLabel(c testutil.Call) string {
	if c.ClassName == "" {
		return string(c.Op)
	}
	return string(c.Op) + " " + c.ClassName
}

func evaluate(a Assertion, r *Result) error {
	switch a.Type {
	case AssertCallCount:
		return assertCallCount(r.Calls, a)
	case AssertCallOrder:
		return assertCallOrder(r.Calls, a)
	case AssertFinalField:
		return assertFinalField(r.Final, a)
	case AssertFinalIndex:
		return assertFinalIndex(r.Final, a)
	case AssertFinalPermission:
		return assertFinalPermission(r.Final, a)
	case AssertWarning:
		return assertWarning(r.Warnings, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertCallCount checks that Op (on Class, when set) was called exactly
// Count times.
func assertCallCount(calls []testutil.Call, a Assertion) error {
	count := 0
	for _, c := range calls {
		if string(c.Op) == a.Op && (a.Class == "" || c.ClassName == a.Class) {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	target := a.Op
	if a.Class != "" {
		target += " " + a.Class
	}
	return &AssertionError{
		Type:     AssertCallCount,
		Expected: fmt.Sprintf("%d calls of %s", a.Count, target),
		Actual:   fmt.Sprintf("%d calls", count),
		Calls:    calls,
	}
}

// assertCallOrder checks that the listed calls occur as a subsequence of
// the trace. Intervening calls are allowed; repeated entries must match
// distinct calls.
func assertCallOrder(calls []testutil.Call, a Assertion) error {
	next := 0
	for _, c := range calls {
		if next < len(a.Calls) && matchesCall(c, a.Calls[next]) {
			next++
		}
	}
	if next == len(a.Calls) {
		return nil
	}
	return &AssertionError{
		Type:     AssertCallOrder,
		Expected: fmt.Sprintf("calls in order: %v", a.Calls),
		Actual:   fmt.Sprintf("%q not found after %v", a.Calls[next], a.Calls[:next]),
		Calls:    calls,
	}
}

func matchesCall(c testutil.Call, entry string) bool {
	op, class, hasClass := strings.Cut(entry, " ")
	if string(c.Op) != op {
		return false
	}
	return !hasClass || c.ClassName == class
}

func assertFinalField(final []schema.Schema, a Assertion) error {
	s := schema.Find(final, a.Class)
	if s == nil {
		return &AssertionError{Type: AssertFinalField, Expected: "class " + a.Class, Actual: "class not stored"}
	}
	f, ok := s.Fields[a.Field]
	switch {
	case a.Absent && !ok:
		return nil
	case a.Absent:
		return &AssertionError{
			Type:     AssertFinalField,
			Expected: fmt.Sprintf("%s.%s absent", a.Class, a.Field),
			Actual:   schema.DescribeType(f),
		}
	case !ok:
		return &AssertionError{
			Type:     AssertFinalField,
			Expected: fmt.Sprintf("%s.%s of type %s", a.Class, a.Field, a.FieldType),
			Actual:   "field absent",
		}
	}
	if string(f.Type()) != a.FieldType || f.Target() != a.TargetClass {
		want := a.FieldType
		if a.TargetClass != "" {
			want = fmt.Sprintf("%s (%s)", a.FieldType, a.TargetClass)
		}
		return &AssertionError{
			Type:     AssertFinalField,
			Expected: fmt.Sprintf("%s.%s of type %s", a.Class, a.Field, want),
			Actual:   schema.DescribeType(f),
		}
	}
	return nil
}

func assertFinalIndex(final []schema.Schema, a Assertion) error {
	s := schema.Find(final, a.Class)
	if s == nil {
		return &AssertionError{Type: AssertFinalIndex, Expected: "class " + a.Class, Actual: "class not stored"}
	}
	idx, ok := s.Indexes[a.Index]
	switch {
	case a.Absent && !ok:
		return nil
	case a.Absent:
		return &AssertionError{
			Type:     AssertFinalIndex,
			Expected: fmt.Sprintf("%s index %s absent", a.Class, a.Index),
			Actual:   fmt.Sprintf("%v", map[string]int(idx)),
		}
	case !ok:
		return &AssertionError{
			Type:     AssertFinalIndex,
			Expected: fmt.Sprintf("%s index %s = %v", a.Class, a.Index, a.Keys),
			Actual:   "index absent",
		}
	}
	if !maps.Equal(map[string]int(idx), a.Keys) {
		return &AssertionError{
			Type:     AssertFinalIndex,
			Expected: fmt.Sprintf("%s index %s = %v", a.Class, a.Index, a.Keys),
			Actual:   fmt.Sprintf("%v", map[string]int(idx)),
		}
	}
	return nil
}

// assertFinalPermission compares the rule exactly. A missing rule in the
// assertion means the action must be unset.
func assertFinalPermission(final []schema.Schema, a Assertion) error {
	s := schema.Find(final, a.Class)
	if s == nil {
		return &AssertionError{Type: AssertFinalPermission, Expected: "class " + a.Class, Actual: "class not stored"}
	}
	got := s.Permissions.Rule(schema.Action(a.Action))
	if (got == nil) == (a.Rule == nil) && maps.Equal(got, a.Rule) {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalPermission,
		Expected: fmt.Sprintf("%s %s = %v", a.Class, a.Action, a.Rule),
		Actual:   fmt.Sprintf("%v", map[string]bool(got)),
	}
}

func assertWarning(warnings []string, a Assertion) error {
	for _, w := range warnings {
		if strings.Contains(w, a.Message) && (a.Class == "" || strings.Contains(w, "class="+a.Class)) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertWarning,
		Expected: fmt.Sprintf("warning containing %q", a.Message),
		Actual:   fmt.Sprintf("%d warnings: %v", len(warnings), warnings),
	}
}
