// Package bytecode is the codegen module for the bir bytecode target.
// Build encodes the program into a module file; Run decodes that file and
// interprets its entry function.
package bytecode

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/roach88/bir/internal/codec"
	"github.com/roach88/bir/internal/ir"
	"github.com/roach88/bir/internal/target"
	"github.com/roach88/bir/internal/vm"
)

const (
	// Name is both the codegen module name and its only target name.
	Name = "bytecode"

	// FileExt is the module file extension.
	FileExt = ".bir"
)

// Option configures the module.
type Option func(*config)

type config struct {
	stdout io.Writer
	logger *slog.Logger
}

// WithStdout sets where interpreted programs write.
func WithStdout(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.stdout = w
		}
	}
}

// WithLogger sets the logger passed to backends.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// Codegen returns the module entry.
func Codegen(opts ...Option) target.Codegen {
	cfg := config{
		stdout: os.Stdout,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return target.Codegen{
		Name: Name,
		APIs: func() []target.API {
			return []target.API{target.APIV1{
				Name:    Name,
				FileExt: FileExt,
				New: func(scope *target.Scope, args []string) (target.Backend, error) {
					return newBackend(cfg, scope, args)
				},
			}}
		},
	}
}

// Backend builds and runs bytecode modules.
type Backend struct {
	cfg      config
	entry    string
	maxDepth int
	memSize  uint64
	noStdlib bool

	result uint64
}

// newBackend parses target arguments:
//
//	--entry name       function Run calls (default main)
//	--max-depth n      interpreter call depth limit
//	--memory bytes     interpreter memory size
//	--nostdlib         run without host builtins
func newBackend(cfg config, scope *target.Scope, args []string) (*Backend, error) {
	fs := pflag.NewFlagSet(Name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	b := &Backend{cfg: cfg}
	fs.StringVar(&b.entry, "entry", "main", "function to call")
	fs.IntVar(&b.maxDepth, "max-depth", vm.DefaultMaxCallDepth, "call depth limit")
	fs.Uint64Var(&b.memSize, "memory", vm.DefaultMemorySize, "memory size in bytes")
	fs.BoolVar(&b.noStdlib, "nostdlib", false, "run without host builtins")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	err := scope.Defer(func() error {
		b.cfg.logger.Debug("bytecode backend released", "entry", b.entry)
		return nil
	})
	return b, err
}

// Build encodes p to outputPath. With Debug, a canonical JSON dump and a
// disassembly are written to scratchDir. With NoStdlib, every extern must
// be defined by the program itself.
func (b *Backend) Build(ctx context.Context, p *ir.Program, outputPath, scratchDir string, opts target.BuildOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if opts.NoStdlib {
		if err := checkSelfContained(p); err != nil {
			return err
		}
	}

	buf, err := codec.Encode(p)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, buf, 0o644); err != nil {
		return fmt.Errorf("write module: %w", err)
	}
	b.cfg.logger.Info("module written", "path", outputPath, "bytes", len(buf))

	if opts.Debug {
		return b.writeDebug(buf, p, outputPath, scratchDir)
	}
	return nil
}

func checkSelfContained(p *ir.Program) error {
	defined := make(map[string]bool, len(p.Funcs)+len(p.Globals))
	for _, fn := range p.Funcs {
		defined[fn.Name] = true
	}
	for _, g := range p.Globals {
		defined[g.Name] = true
	}
	var missing []string
	for _, name := range p.Externs {
		if !defined[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("nostdlib: externs not defined by the program: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (b *Backend) writeDebug(buf []byte, p *ir.Program, outputPath, scratchDir string) error {
	if scratchDir == "" {
		scratchDir = filepath.Dir(outputPath)
	}
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	base := strings.TrimSuffix(filepath.Base(outputPath), filepath.Ext(outputPath))

	dump, err := ir.MarshalCanonical(ir.Dump(p))
	if err != nil {
		return fmt.Errorf("dump program: %w", err)
	}
	if err := os.WriteFile(filepath.Join(scratchDir, base+".json"), dump, 0o644); err != nil {
		return fmt.Errorf("write dump: %w", err)
	}

	m, err := codec.Decode(buf)
	if err != nil {
		return err
	}
	var dis bytes.Buffer
	if err := codec.Disassemble(m, &dis); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(scratchDir, base+".dis"), dis.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write disassembly: %w", err)
	}
	return nil
}

// Run interprets the entry function of the module at outputPath. Each
// run argument must be an integer; negative values are passed as their
// two's complement word.
func (b *Backend) Run(ctx context.Context, outputPath string, runArgs []string) error {
	args, err := ParseWords(runArgs)
	if err != nil {
		return err
	}
	m, err := codec.ReadFile(outputPath)
	if err != nil {
		return err
	}

	opts := []vm.Option{
		vm.WithStdout(b.cfg.stdout),
		vm.WithLogger(b.cfg.logger),
		vm.WithMaxCallDepth(b.maxDepth),
		vm.WithMemorySize(b.memSize),
	}
	if b.noStdlib {
		opts = append(opts, vm.WithoutBuiltins())
	}
	machine, err := vm.New(m, opts...)
	if err != nil {
		return err
	}
	b.result, err = machine.Call(ctx, b.entry, args...)
	if err != nil {
		return err
	}
	b.cfg.logger.Info("run finished", "entry", b.entry, "result", b.result)
	return nil
}

// Result is the value returned by the last successful Run.
func (b *Backend) Result() uint64 { return b.result }

// ParseWords converts decimal or 0x-prefixed integers to words.
func ParseWords(args []string) ([]uint64, error) {
	words := make([]uint64, len(args))
	for i, a := range args {
		if strings.HasPrefix(a, "-") {
			v, err := strconv.ParseInt(a, 0, 64)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %q is not an integer", i, a)
			}
			words[i] = uint64(v)
			continue
		}
		v, err := strconv.ParseUint(a, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %q is not an integer", i, a)
		}
		words[i] = v
	}
	return words, nil
}
