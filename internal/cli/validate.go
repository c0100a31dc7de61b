package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/schemasync/internal/compiler"
	"github.com/roach88/schemasync/internal/schema"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool                       `json:"valid"`
	Classes []string                   `json:"classes,omitempty"`
	Errors  []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <schemas-path>",
		Short: "Validate declared schemas without touching a store",
		Long: `Load CUE, YAML or JSON schema declarations from a file or directory and
check them: class and field names, field types, pointer targets, index keys,
permission rules and duplicate classes.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(cmd, opts)

	declared, err := loadDeclared(formatter, path)
	if err != nil {
		return err
	}

	names := make([]string, len(declared))
	for i := range declared {
		names[i] = declared[i].ClassName
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Classes: names})
	}
	fmt.Fprintf(formatter.Writer, "✓ %d schema(s) valid\n", len(declared))
	return nil
}

// newFormatter builds a formatter over cmd's writers. Diagnostics go to
// stderr so JSON output stays parseable.
func newFormatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// loadDeclared loads and compiles the declarations under path. Load
// problems exit with ExitCommandError, invalid declarations with
// ExitFailure.
func loadDeclared(formatter *OutputFormatter, path string) ([]schema.Schema, error) {
	docs, err := compiler.Load(path)
	if err != nil {
		var loadErr *compiler.LoadError
		if errors.As(err, &loadErr) {
			return nil, outputCommandError(formatter, loadErr.Code, loadErr.Error(), err)
		}
		return nil, outputCommandError(formatter, ErrCodeGeneric, err.Error(), err)
	}
	formatter.VerboseLog("Loaded %d declaration(s) from %s", len(docs), path)

	declared, verrs := compiler.Compile(docs)
	if len(verrs) > 0 {
		return nil, outputValidationErrors(formatter, verrs)
	}
	return declared, nil
}

// outputCommandError reports a command-level error (exit code 2).
func outputCommandError(formatter *OutputFormatter, code, message string, err error) error {
	_ = formatter.Error(code, message, nil)
	return WrapExitError(ExitCommandError, message, err)
}

// outputValidationErrors outputs every validation error (exit code 1).
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	for _, e := range errs {
		fmt.Fprintf(formatter.Writer, "  %s\n", e.Error())
	}
	return failure
}
