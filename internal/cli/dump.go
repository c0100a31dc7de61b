package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/schemasync/internal/schema"
)

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	var classes []string

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print live schemas as canonical JSON",
		Long: `Print every schema stored in the backend, or only the classes named with
--class, as canonical JSON: sorted keys and no insignificant whitespace,
so two dumps of equal stores are byte-identical.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(rootOpts, classes, cmd)
		},
	}

	addStoreFlags(cmd)
	cmd.Flags().StringSliceVar(&classes, "class", nil, "only dump these classes")

	return cmd
}

func runDump(opts *RootOptions, classes []string, cmd *cobra.Command) error {
	formatter := newFormatter(cmd, opts)

	cfg, err := loadConfig(cmd, opts.ConfigFile)
	if err != nil {
		return outputCommandError(formatter, ErrCodeConfig, err.Error(), err)
	}

	ctx := cmd.Context()
	backend, err := openStore(ctx, cfg)
	if err != nil {
		return outputCommandError(formatter, ErrCodeBackend, fmt.Sprintf("open store: %v", err), err)
	}
	defer backend.Close()

	live, err := backend.AllSchemas(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeBackend, err.Error(), nil)
		return WrapExitError(ExitFailure, "enumerate live schemas", err)
	}

	if len(classes) > 0 {
		selected := make([]schema.Schema, 0, len(classes))
		for _, name := range classes {
			s := schema.Find(live, name)
			if s == nil {
				return outputCommandError(formatter, ErrCodeGeneric,
					fmt.Sprintf("class %q not found", name), nil)
			}
			selected = append(selected, *s)
		}
		live = selected
	}
	if live == nil {
		live = []schema.Schema{}
	}
	formatter.VerboseLog("Dumping %d schema(s)", len(live))

	out, err := schema.MarshalCanonical(live)
	if err != nil {
		return fmt.Errorf("encode schemas: %w", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(json.RawMessage(out))
	}
	fmt.Fprintf(formatter.Writer, "%s\n", out)
	return nil
}
