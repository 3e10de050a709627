package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/bir/internal/codegen"
	"github.com/roach88/bir/internal/target"
)

// TargetInfo describes one registered target.
type TargetInfo struct {
	Name    string `json:"name"`
	Codegen string `json:"codegen"`
	Version string `json:"version"`
	FileExt string `json:"file_ext"`
}

// NewTargetsCommand creates the targets command.
func NewTargetsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "targets",
		Short:         "List registered targets",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTargets(rootOpts, cmd)
		},
	}
}

func runTargets(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	registry, err := codegen.Registry(codegen.Env{Stdout: cmd.OutOrStdout(), Logger: opts.logger()})
	if err != nil {
		return formatter.Fail("load targets", err)
	}

	targets := registry.Targets()
	infos := make([]TargetInfo, len(targets))
	for i, t := range targets {
		infos[i] = TargetInfo{
			Name:    t.Name(),
			Codegen: t.Codegen,
			Version: t.API.Version().String(),
			FileExt: target.FileExt(t),
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(infos)
	}
	if len(infos) == 0 {
		fmt.Fprintln(formatter.Writer, "No targets registered.")
		return nil
	}
	for _, info := range infos {
		fmt.Fprintf(formatter.Writer, "%-12s codegen=%s api=%s ext=%s\n", info.Name, info.Codegen, info.Version, info.FileExt)
	}
	return nil
}
