package harness

import (
	"github.com/roach88/schemasync/internal/schema"
	"github.com/roach88/schemasync/internal/testutil"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: the run ended as expected and every
	// assertion held.
	Pass bool `json:"pass"`

	// Calls are the backend calls in the order they were made.
	Calls []testutil.Call `json:"calls"`

	// Final is the live state after the run.
	Final []schema.Schema `json:"final"`

	// Warnings are the WARN log lines of the run, sorted.
	Warnings []string `json:"warnings"`

	// RunError is the error Run returned, if any.
	RunError error `json:"-"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Calls:    []testutil.Call{},
		Warnings: []string{},
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
