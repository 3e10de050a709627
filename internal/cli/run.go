package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/bir/internal/codec"
	"github.com/roach88/bir/internal/codegen/bytecode"
	"github.com/roach88/bir/internal/config"
	"github.com/roach88/bir/internal/harness"
	"github.com/roach88/bir/internal/store"
	"github.com/roach88/bir/internal/vm"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Func string

	// IDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDs store.IDGenerator
}

// RunResult is the outcome of one call.
type RunResult struct {
	Func    string   `json:"func"`
	Args    []uint64 `json:"args"`
	Result  uint64   `json:"result"`
	Fault   string   `json:"fault,omitempty"`
	Message string   `json:"message,omitempty"`
	Output  string   `json:"output"`
	Hash    string   `json:"hash,omitempty"`
	RunID   string   `json:"run_id,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <module> [-- args...]",
		Short: "Run a function on the interpreter",
		Long: `Load a module and call one of its functions on the reference interpreter.

The module is a .bir file, a .cue file or a CUE package directory. With
--db, a module hash cached by "bir build --db" also works, and every call
is recorded in the run journal.

Arguments after -- are words: decimal or 0x-prefixed, negative values
wrap to their two's complement.

Exit codes:
  0 - The call returned
  1 - The program faulted
  2 - Command error (unreadable module, bad arguments, database errors)

Examples:
  bir run hello.bir
  bir run sum.cue --func sum -- 2 40
  bir run sum.cue --db runs.db --func sum -- 1 2`,
		Args:          programArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, callArgs := splitAtDash(cmd, args)
			return runProgram(opts, path, callArgs, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Func, "func", "main", "function to call")
	cmd.Flags().String(config.KeyDB, "", "SQLite database for the run journal")
	cmd.Flags().Int(config.KeyMaxCallDepth, vm.DefaultMaxCallDepth, "interpreter call depth limit")
	cmd.Flags().Uint64(config.KeyMemorySize, vm.DefaultMemorySize, "interpreter memory size in bytes")

	return cmd
}

func runProgram(opts *RunOptions, path string, rawArgs []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger()

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	args, err := bytecode.ParseWords(rawArgs)
	if err != nil {
		_ = formatter.Error(ErrCodeBadArgs, err.Error(), nil)
		return WrapExitError(ExitCommandError, "parse arguments", err)
	}

	m, err := opts.loadModule(ctx, path)
	if err != nil {
		return formatter.Fail("load module", err)
	}
	formatter.VerboseLog("Loaded %s: %d function(s), %d global(s)", path, len(m.Funcs), len(m.Globals))

	// JSON output carries the program's output inside the response.
	var captured bytes.Buffer
	var stdout io.Writer = cmd.OutOrStdout()
	if formatter.Format == "json" {
		stdout = &captured
	}

	vmOpts := append(opts.Config.VMOptions(), vm.WithStdout(stdout), vm.WithLogger(logger))
	machine, err := vm.New(m, vmOpts...)
	if err != nil {
		return formatter.Fail("create interpreter", err)
	}

	value, callErr := machine.Call(ctx, opts.Func, args...)
	result := RunResult{Func: opts.Func, Args: args, Result: value, Output: captured.String()}
	if callErr != nil {
		result.Result = 0
		result.Fault = faultCode(callErr)
		result.Message = callErr.Error()
	}

	if db := opts.Config.DB; db != "" {
		ids := opts.IDs
		if ids == nil {
			ids = store.UUIDv7Generator{}
		}
		err := withStoreIDs(db, ids, func(h *storeHandle) error {
			hash, err := h.cacheProgram(ctx, m.Program(), path)
			if err != nil {
				return err
			}
			rec, err := h.recordCall(ctx, hash, opts.Func, args, value, callErr)
			if err != nil {
				return err
			}
			result.Hash, result.RunID = hash, rec.ID
			return nil
		})
		if err != nil {
			return formatter.Fail("record run", err)
		}
		logger.Debug("run recorded", "id", result.RunID, "hash", result.Hash)
	}

	if callErr != nil {
		_ = formatter.Error(ErrCodeFault, fmt.Sprintf("%s faulted: %s", opts.Func, result.Fault), result)
		return WrapExitError(ExitFailure, opts.Func+" faulted", callErr)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "%s %s(%s) = %d\n", formatter.Mark(true), opts.Func, formatWords(args), value)
	return nil
}

// loadModule loads path as a file or package. When path does not exist and
// a database is configured, it is looked up as a cached module hash.
func (o *RootOptions) loadModule(ctx context.Context, path string) (*codec.Module, error) {
	if _, err := os.Stat(path); err != nil && o.Config.DB != "" {
		var m *codec.Module
		err := withStore(o.Config.DB, func(h *storeHandle) error {
			var err error
			m, err = h.loadCached(ctx, path)
			return err
		})
		return m, err
	}
	return harness.LoadModule(path)
}

// faultCode returns the fault code of err, or ERROR for failures that are
// not runtime faults.
func faultCode(err error) string {
	if code := vm.FaultCodeOf(err); code != "" {
		return code
	}
	return "ERROR"
}

func formatWords(words []uint64) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = strconv.FormatUint(w, 10)
	}
	return strings.Join(parts, ", ")
}
