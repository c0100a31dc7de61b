package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/schemasync/internal/migrate"
	"github.com/roach88/schemasync/internal/schema"
)

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <schemas-path>",
		Short: "Show what migrate would change, without writing",
		Long: `Compare declared schemas with the store and print, per class, the fields
and indexes that differ and the permissions a migration would write.

The change sets are raw differences: deletions and recreations are listed
even though migrate only applies them with --delete-extra-fields and
--recreate-modified-fields.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(rootOpts, args[0], cmd)
		},
	}

	addStoreFlags(cmd)

	return cmd
}

func runPlan(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(cmd, opts)

	cfg, err := loadConfig(cmd, opts.ConfigFile)
	if err != nil {
		return outputCommandError(formatter, ErrCodeConfig, err.Error(), err)
	}

	declared, err := loadDeclared(formatter, path)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	backend, err := openStore(ctx, cfg)
	if err != nil {
		return outputCommandError(formatter, ErrCodeBackend, fmt.Sprintf("open store: %v", err), err)
	}
	defer backend.Close()

	plans, err := migrate.New(backend, declared, migrate.WithLogger(opts.Logger)).Plan(ctx)
	if err != nil {
		code, message := migrateErrorCode(err)
		_ = formatter.Error(code, message, nil)
		return WrapExitError(ExitFailure, "plan failed", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(plans)
	}
	return printPlans(formatter.Writer, plans, formatter.Verbose)
}

// printPlans writes one block per class. Permissions are only shown in
// verbose mode.
func printPlans(w io.Writer, plans []migrate.ClassPlan, verbose bool) error {
	for _, p := range plans {
		header := fmt.Sprintf("%s: %s", p.ClassName, p.Action)
		if p.System {
			header += " (system)"
		}
		if p.Action == migrate.PlanUpdate && p.Changes.Empty() {
			header += ", no field or index changes"
		}
		fmt.Fprintln(w, header)

		c := p.Changes
		printList(w, "+ fields", c.FieldsToAdd)
		printList(w, "- fields", c.FieldsToDelete)
		if len(c.FieldsToRecreate) > 0 {
			items := make([]string, len(c.FieldsToRecreate))
			for i, r := range c.FieldsToRecreate {
				items[i] = fmt.Sprintf("%s %s -> %s", r.Name, schema.DescribeType(r.From), schema.DescribeType(r.To))
			}
			printList(w, "~ fields", items)
		}
		printList(w, "? params", c.FieldsWithChangedParams)
		printList(w, "+ indexes", c.IndexesToAdd)
		printList(w, "- indexes", c.IndexesToDelete)
		printList(w, "~ indexes", c.IndexesToReplace)

		if verbose && p.Permissions != nil {
			perms, err := schema.MarshalCanonical(p.Permissions)
			if err != nil {
				return fmt.Errorf("encode permissions of %s: %w", p.ClassName, err)
			}
			fmt.Fprintf(w, "  permissions: %s\n", perms)
		}
	}
	return nil
}

func printList(w io.Writer, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s: %s\n", label, strings.Join(items, ", "))
}
