package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/bir/internal/config"
)

// RootOptions holds global flags for all commands. Config is filled in by
// the root command before any subcommand runs.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	NoColor    bool
	ConfigFile string

	Config config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the bir CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "bir",
		Short: "bir - binary IR toolchain",
		Long: `Compile CUE programs to the bir binary IR, inspect modules and run them
on the reference interpreter.

Settings come from, in increasing precedence, built-in defaults, the file
named by --config, BIR_* environment variables and command-line flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, config.KeyVerbose, "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, config.KeyFormat, "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVar(&opts.NoColor, config.KeyNoColor, false, "disable coloured output")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (yaml, json or toml)")

	cmd.AddCommand(NewBuildCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewDisCommand(opts))
	cmd.AddCommand(NewTargetsCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewRunsCommand(opts))
	cmd.AddCommand(NewCacheCommand(opts))

	return cmd
}

// resolve merges the config file, environment and the flags of the
// command being executed into opts.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	v := config.New()
	if err := config.ReadFile(v, o.ConfigFile); err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return WrapExitError(ExitCommandError, "bind flags", err)
	}
	cfg, err := config.Resolve(v)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	o.Config = cfg
	o.Verbose = cfg.Verbose
	o.Format = cfg.Format
	o.NoColor = cfg.NoColor
	o.Logger = newLogger(cmd.ErrOrStderr(), cfg.Verbose)
	return nil
}

// logger returns the configured logger, or one that discards everything
// when the command runs without the root command.
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

// formatter returns an OutputFormatter writing to cmd's streams.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
		NoColor:   o.NoColor,
	}
}

// newLogger logs warnings and errors to w, and everything down to debug
// when verbose is set.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
