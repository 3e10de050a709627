package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/bir/internal/config"
	"github.com/roach88/bir/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Hash string
}

// RunInfo is one journal entry as printed by the runs command.
type RunInfo struct {
	Seq        int64    `json:"seq"`
	ID         string   `json:"id"`
	ModuleHash string   `json:"module_hash"`
	Func       string   `json:"func"`
	Args       []uint64 `json:"args"`
	Result     uint64   `json:"result"`
	Fault      string   `json:"fault,omitempty"`
	Message    string   `json:"message,omitempty"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		Long: `List the calls recorded by "bir run --db", oldest first.

Examples:
  bir runs --db runs.db
  bir runs --db runs.db --hash <module-hash> --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListRuns(opts, cmd)
		},
	}

	cmd.Flags().String(config.KeyDB, "", "SQLite database holding the run journal (required)")
	cmd.Flags().StringVar(&opts.Hash, "hash", "", "only list runs of this module")

	return cmd
}

func runListRuns(opts *RunsOptions, cmd *cobra.Command) error {
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

	var runs []store.RunRecord
	err := withStore(db, func(h *storeHandle) error {
		var err error
		runs, err = h.ListRuns(ctx, opts.Hash)
		return err
	})
	if err != nil {
		return formatter.Fail("list runs", err)
	}

	infos := make([]RunInfo, len(runs))
	for i, r := range runs {
		infos[i] = RunInfo{
			Seq:        r.Seq,
			ID:         r.ID,
			ModuleHash: r.ModuleHash,
			Func:       r.Func,
			Args:       r.Args,
			Result:     r.Result,
			Fault:      r.FaultCode,
			Message:    r.Message,
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(infos)
	}
	if len(infos) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded.")
		return nil
	}
	for _, r := range infos {
		outcome := fmt.Sprintf("= %d", r.Result)
		if r.Fault != "" {
			outcome = "fault " + r.Fault
		}
		fmt.Fprintf(formatter.Writer, "%4d %s %s(%s) %s\n", r.Seq, shortHash(r.ModuleHash), r.Func, formatWords(r.Args), outcome)
	}
	return nil
}

// shortHash trims a module hash for display.
func shortHash(hash string) string {
	const n = 12
	if len(hash) <= n {
		return hash
	}
	return hash[:n]
}
