package cli

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/roach88/bir/internal/codec"
	"github.com/roach88/bir/internal/config"
	"github.com/roach88/bir/internal/ir"
)

// NewDisCommand creates the dis command.
func NewDisCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dis <module>",
		Short: "Disassemble a module",
		Long: `Print a text listing of a module, or its canonical JSON dump with
--format json.

The module is a .bir file, a .cue file or a CUE package directory, or a
cached module hash when --db is set.

Examples:
  bir dis hello.bir
  bir dis hello.bir --format json
  bir dis --db cache.db <hash>`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDis(rootOpts, args[0], cmd)
		},
	}

	cmd.Flags().String(config.KeyDB, "", "SQLite database holding cached modules")

	return cmd
}

func runDis(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	m, err := opts.loadModule(ctx, path)
	if err != nil {
		return formatter.Fail("load module", err)
	}

	if formatter.Format == "json" {
		data, err := ir.MarshalCanonical(ir.Dump(m.Program()))
		if err != nil {
			return formatter.Fail("dump module", err)
		}
		return formatter.Success(json.RawMessage(data))
	}

	if err := codec.Disassemble(m, formatter.Writer); err != nil {
		return WrapExitError(ExitCommandError, "write listing", err)
	}
	return nil
}
