package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/bir/internal/config"
	"github.com/roach88/bir/internal/store"
)

// ModuleInfo is one cached module as printed by the cache command.
type ModuleInfo struct {
	Hash        string `json:"hash"`
	Version     uint8  `json:"version"`
	Source      string `json:"source"`
	ToolVersion string `json:"tool_version"`
}

// NewCacheCommand creates the cache command.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "List cached modules",
		Long: `List the modules cached by "bir build --db" and "bir run --db",
ordered by hash. A listed hash can be passed to run and dis in place of
a path.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListCache(rootOpts, cmd)
		},
	}

	cmd.Flags().String(config.KeyDB, "", "SQLite database holding cached modules (required)")

	return cmd
}

func runListCache(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	db := opts.Config.DB
	if db == "" {
		_ = formatter.Error(ErrCodeStore, "no database: set --db or BIR_DB", nil)
		return NewExitError(ExitCommandError, "no database configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var mods []store.ModuleRecord
	err := withStore(db, func(h *storeHandle) error {
		var err error
		mods, err = h.ListModules(ctx)
		return err
	})
	if err != nil {
		return formatter.Fail("list modules", err)
	}

	infos := make([]ModuleInfo, len(mods))
	for i, m := range mods {
		infos[i] = ModuleInfo{Hash: m.Hash, Version: m.Version, Source: m.Source, ToolVersion: m.ToolVersion}
	}

	if formatter.Format == "json" {
		return formatter.Success(infos)
	}
	if len(infos) == 0 {
		fmt.Fprintln(formatter.Writer, "No modules cached.")
		return nil
	}
	for _, m := range infos {
		fmt.Fprintf(formatter.Writer, "%s v%d %s (bir %s)\n", m.Hash, m.Version, m.Source, m.ToolVersion)
	}
	return nil
}
