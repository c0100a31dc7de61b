package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/schemasync/internal/migrate"
)

// MigrateResult is the outcome of one migrate command.
type MigrateResult struct {
	RunID      string   `json:"run_id"`
	Classes    []string `json:"classes"`
	Production bool     `json:"production"`
	// Error is set when the migration failed outside production.
	Error string `json:"error,omitempty"`
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate <schemas-path>",
		Short: "Reconcile declared schemas with a store",
		Long: `Run one reconciliation: create missing classes, add, delete or recreate
fields and indexes according to the switches, and merge class-level
permissions. Live classes that are not declared get their permissions
locked down.

Outside --production a failed migration is logged and the command still
succeeds; with --production it exits with status 1.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(rootOpts, args[0], cmd)
		},
	}

	addStoreFlags(cmd)
	addReconcilerFlags(cmd)

	return cmd
}

func runMigrate(opts *RootOptions, path string, cmd *cobra.Command) error {
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

	runID := migrate.UUIDv7Generator{}.Generate()
	reconciler := migrate.New(backend, declared,
		cfg.reconcilerOptions(opts.Logger, migrate.NewFixedGenerator(runID))...)

	result := MigrateResult{
		RunID:      runID,
		Classes:    make([]string, len(declared)),
		Production: cfg.Production,
	}
	for i := range declared {
		result.Classes[i] = declared[i].ClassName
	}

	if err := reconciler.Run(ctx); err != nil {
		if cfg.Production {
			code, message := migrateErrorCode(err)
			_ = formatter.Error(code, message, map[string]string{"run_id": runID})
			return WrapExitError(ExitFailure, "migration failed", err)
		}
		result.Error = err.Error()
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	if result.Error != "" {
		fmt.Fprintf(formatter.Writer, "! Migration failed (run_id=%s): %s\n", runID, result.Error)
		return nil
	}
	fmt.Fprintf(formatter.Writer, "✓ Migrated %d class(es) (run_id=%s)\n", len(declared), runID)
	return nil
}

// migrateErrorCode extracts the reconciler's error code.
func migrateErrorCode(err error) (string, string) {
	var merr *migrate.Error
	if errors.As(err, &merr) {
		return string(merr.Code), err.Error()
	}
	return ErrCodeGeneric, err.Error()
}
