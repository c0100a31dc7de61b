package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/schemasync/internal/testutil"
)

// Scenario defines a reconciliation scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Live holds schema documents stored before the run, as the backend
	// reports them.
	Live []map[string]any `yaml:"live,omitempty"`

	// Schemas is the declared set, in the same form as a schemas file.
	Schemas []any `yaml:"schemas"`

	Options Options `yaml:"options,omitempty"`

	// Failures are injected into the backend before the run.
	Failures []Failure `yaml:"failures,omitempty"`

	// ExpectError is the migrate error code the run must end with. Empty
	// means the run must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Assertions validate the recorded calls and final state.
	// Supported types: call_count, call_order, final_field, final_index,
	// final_permission, warning.
	Assertions []Assertion `yaml:"assertions"`
}

// Options mirror the reconciler switches.
type Options struct {
	Strict                 bool `yaml:"strict"`
	DeleteExtraFields      bool `yaml:"delete_extra_fields"`
	RecreateModifiedFields bool `yaml:"recreate_modified_fields"`
	MaxRetries             *int `yaml:"max_retries,omitempty"`
}

// Failure makes Times calls of Op return Error. An empty Class matches
// every class; Times 0 means once and -1 means always.
type Failure struct {
	Op    string `yaml:"op"`
	Class string `yaml:"class,omitempty"`
	Times int    `yaml:"times,omitempty"`
	Error string `yaml:"error"`
}

// Assertion validates recorded calls or final state.
type Assertion struct {
	// Type selects the check:
	//   - "call_count": Op (and Class, if set) was called exactly Count times
	//   - "call_order": Calls appear in this relative order
	//   - "final_field": Field of Class has FieldType/TargetClass, or is Absent
	//   - "final_index": Index of Class has Keys, or is Absent
	//   - "final_permission": Action of Class has exactly Rule
	//   - "warning": a warning containing Message was logged
	Type string `yaml:"type"`

	Op    string `yaml:"op,omitempty"`
	Class string `yaml:"class,omitempty"`
	Count int    `yaml:"count,omitempty"`

	// Calls are "Op" or "Op Class" entries.
	Calls []string `yaml:"calls,omitempty"`

	Field       string         `yaml:"field,omitempty"`
	FieldType   string         `yaml:"field_type,omitempty"`
	TargetClass string         `yaml:"target_class,omitempty"`
	Index       string         `yaml:"index,omitempty"`
	Keys        map[string]int `yaml:"keys,omitempty"`
	Absent      bool           `yaml:"absent,omitempty"`

	Action string          `yaml:"action,omitempty"`
	Rule   map[string]bool `yaml:"rule,omitempty"`

	Message string `yaml:"message,omitempty"`
}

// Assertion type constants.
const (
	AssertCallCount       = "call_count"
	AssertCallOrder       = "call_order"
	AssertFinalField      = "final_field"
	AssertFinalIndex      = "final_index"
	AssertFinalPermission = "final_permission"
	AssertWarning         = "warning"
)

var knownOps = map[string]bool{
	string(testutil.OpAllSchemas):   true,
	string(testutil.OpCreateSchema): true,
	string(testutil.OpUpdateSchema): true,
	string(testutil.OpCreateRecord): true,
	string(testutil.OpDeleteRecord): true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Assertions) == 0 && s.ExpectError == "" {
		return fmt.Errorf("assertions or expect_error is required")
	}

	for i, f := range s.Failures {
		if !knownOps[f.Op] {
			return fmt.Errorf("failures[%d]: unknown op %q", i, f.Op)
		}
		if f.Error == "" {
			return fmt.Errorf("failures[%d]: error is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertCallCount:
		if !knownOps[a.Op] {
			return fmt.Errorf("call_count: unknown op %q", a.Op)
		}
	case AssertCallOrder:
		if len(a.Calls) < 2 {
			return fmt.Errorf("call_order requires at least 2 calls")
		}
	case AssertFinalField:
		if a.Class == "" || a.Field == "" {
			return fmt.Errorf("final_field requires class and field")
		}
		if !a.Absent && a.FieldType == "" {
			return fmt.Errorf("final_field requires field_type or absent")
		}
	case AssertFinalIndex:
		if a.Class == "" || a.Index == "" {
			return fmt.Errorf("final_index requires class and index")
		}
		if !a.Absent && len(a.Keys) == 0 {
			return fmt.Errorf("final_index requires keys or absent")
		}
	case AssertFinalPermission:
		if a.Class == "" || a.Action == "" {
			return fmt.Errorf("final_permission requires class and action")
		}
	case AssertWarning:
		if a.Message == "" {
			return fmt.Errorf("warning requires message")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
