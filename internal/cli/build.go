package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/bir/internal/codegen"
	"github.com/roach88/bir/internal/compiler"
	"github.com/roach88/bir/internal/config"
	"github.com/roach88/bir/internal/ir"
	"github.com/roach88/bir/internal/target"
)

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	*RootOptions
	Output   string // output file path
	Scratch  string // directory for intermediate files
	Debug    bool
	NoStdlib bool
}

// BuildResult describes a finished build.
type BuildResult struct {
	Target string   `json:"target"`
	Output string   `json:"output"`
	Hash   string   `json:"hash"`
	Files  []string `json:"files"`
	Cached bool     `json:"cached"`
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "build <program> [-- target-args...]",
		Short: "Compile a CUE program for a target",
		Long: `Compile a CUE program (a .cue file or a package directory) and hand it
to a registered target backend.

Arguments after -- are passed to the target unchanged. With --db the
encoded module is also cached under its program hash.

Examples:
  bir build hello.cue
  bir build ./prog -o prog.bir --debug --scratch ./out
  bir build hello.cue --db cache.db -- --entry start`,
		Args:          programArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, targetArgs := splitAtDash(cmd, args)
			return runBuild(cmd.Context(), opts, path, targetArgs, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path (default: program path with the target extension)")
	cmd.Flags().StringVar(&opts.Scratch, "scratch", "", "directory for intermediate files")
	cmd.Flags().BoolVar(&opts.Debug, "debug", false, "emit debug information")
	cmd.Flags().BoolVar(&opts.NoStdlib, "nostdlib", false, "do not link the target support library")
	cmd.Flags().String(config.KeyTarget, config.DefaultTarget, "target name")
	cmd.Flags().String(config.KeyDB, "", "SQLite database to cache the module in")

	return cmd
}

func runBuild(ctx context.Context, opts *BuildOptions, path string, targetArgs []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)
	logger := opts.logger()

	src, err := compiler.Load(path)
	if err != nil {
		return formatter.Fail("compile", err)
	}
	formatter.VerboseLog("Compiled %d file(s) from %s", len(src.Files), path)

	registry, err := codegen.Registry(codegen.Env{Stdout: cmd.OutOrStdout(), Logger: logger})
	if err != nil {
		return formatter.Fail("load targets", err)
	}
	name := opts.Config.Target
	if name == "" {
		name = config.DefaultTarget
	}
	t, err := registry.Resolve(name)
	if err != nil {
		return formatter.Fail("resolve target", err)
	}

	output := opts.Output
	if output == "" {
		output = defaultOutputPath(path, target.FileExt(t))
	}

	scope := target.NewScope()
	defer func() {
		if err := scope.Close(); err != nil {
			logger.Error("release target state", "target", name, "error", err)
		}
	}()
	backend, err := target.Open(t, scope, targetArgs)
	if err != nil {
		return formatter.Fail("open target", err)
	}

	buildOpts := target.BuildOptions{NoStdlib: opts.NoStdlib, Debug: opts.Debug}
	if err := backend.Build(ctx, src.Program, output, opts.Scratch, buildOpts); err != nil {
		code, _ := classify(err)
		if code == ErrCodeGeneric {
			code = ErrCodeBuildFailed
		}
		_ = formatter.Error(code, fmt.Sprintf("build: %v", err), nil)
		return WrapExitError(ExitFailure, "build", err)
	}

	hash, err := ir.ProgramHash(src.Program)
	if err != nil {
		return formatter.Fail("hash program", err)
	}
	result := BuildResult{Target: name, Output: output, Hash: hash, Files: src.Files}

	if db := opts.Config.DB; db != "" {
		if err := withStore(db, func(st *storeHandle) error {
			_, err := st.cacheProgram(ctx, src.Program, path)
			return err
		}); err != nil {
			return formatter.Fail("cache module", err)
		}
		result.Cached = true
		formatter.VerboseLog("Cached module %s in %s", hash, db)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "%s Built %s (target %s)\n", formatter.Mark(true), output, name)
	fmt.Fprintf(formatter.Writer, "  hash: %s\n", hash)
	return nil
}

// defaultOutputPath replaces the extension of path, or appends ext for a
// directory.
func defaultOutputPath(path, ext string) string {
	clean := filepath.Clean(path)
	return strings.TrimSuffix(clean, filepath.Ext(clean)) + ext
}

// programArgs accepts exactly one positional argument before any "--".
func programArgs(cmd *cobra.Command, args []string) error {
	n := len(args)
	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		n = dash
	}
	if n != 1 {
		return fmt.Errorf("accepts 1 arg(s) before --, received %d", n)
	}
	return nil
}

// splitAtDash returns the single positional argument and everything after
// "--".
func splitAtDash(cmd *cobra.Command, args []string) (string, []string) {
	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		return args[0], args[dash:]
	}
	return args[0], args[1:]
}
