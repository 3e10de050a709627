package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/roach88/bir/internal/codec"
	"github.com/roach88/bir/internal/compiler"
	"github.com/roach88/bir/internal/vm"
)

// Harness runs scenarios. Trace sequence numbers restart at 1 for every
// run, so one Harness may run scenarios concurrently and repeated runs
// produce identical traces.
type Harness struct {
	logger *slog.Logger
	opts   []vm.Option
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger handed to the interpreter.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithVMOptions appends interpreter options applied to every run.
func WithVMOptions(opts ...vm.Option) Option {
	return func(h *Harness) { h.opts = append(h.opts, opts...) }
}

// New creates a harness.
func New(opts ...Option) *Harness {
	h := &Harness{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default harness.
func Run(s *Scenario) (*Result, error) {
	return New().Run(context.Background(), s)
}

// Run executes every call in s against a fresh interpreter and checks the
// expectations. The returned error covers only failures to set the run up
// (unloadable program, bad options); failed expectations are reported in
// the Result.
func (h *Harness) Run(ctx context.Context, s *Scenario) (*Result, error) {
	m, err := LoadModule(s.Program)
	if err != nil {
		return nil, fmt.Errorf("load program: %w", err)
	}

	var out bytes.Buffer
	opts := slices.Clone(h.opts)
	opts = append(opts, vm.WithStdout(&out), vm.WithLogger(h.logger))
	names := make([]string, 0, len(s.Externals))
	for name := range s.Externals {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		opts = append(opts, vm.WithExternal(name, s.Externals[name]))
	}

	machine, err := vm.New(m, opts...)
	if err != nil {
		return nil, fmt.Errorf("create interpreter: %w", err)
	}

	result := NewResult()
	seq := &sequence{}
	for i, c := range s.Calls {
		h.runCall(ctx, machine, seq, i, c, result)
	}

	result.Output = out.String()
	if s.Output != nil && *s.Output != result.Output {
		result.AddError(fmt.Sprintf("output: expected %q, got %q", *s.Output, result.Output))
	}
	return result, nil
}

func (h *Harness) runCall(ctx context.Context, machine *vm.VM, seq *sequence, i int, c Call, result *Result) {
	result.addCall(c.Func, c.Args, seq.next())

	value, err := machine.Call(ctx, c.Func, c.Args...)
	if err != nil {
		code := vm.FaultCodeOf(err)
		if code == "" {
			code = "ERROR"
		}
		result.addFault(c.Func, code, seq.next())

		switch {
		case c.Expect == nil || c.Expect.Fault == "":
			result.AddError(fmt.Sprintf("calls[%d] %s: unexpected fault: %v", i, c.Func, err))
		case c.Expect.Fault != code:
			result.AddError(fmt.Sprintf("calls[%d] %s: expected fault %s, got %s", i, c.Func, c.Expect.Fault, code))
		}
		return
	}

	result.addReturn(c.Func, value, seq.next())
	if c.Expect == nil {
		return
	}
	switch {
	case c.Expect.Fault != "":
		result.AddError(fmt.Sprintf("calls[%d] %s: expected fault %s, returned %d", i, c.Func, c.Expect.Fault, value))
	case c.Expect.Return != nil && *c.Expect.Return != value:
		result.AddError(fmt.Sprintf("calls[%d] %s: expected return %d, got %d", i, c.Func, *c.Expect.Return, value))
	}
}

// LoadModule produces a decoded module from a .bir file, a .cue file or a
// CUE package directory. CUE sources go through a full encode/decode round
// trip.
func LoadModule(path string) (*codec.Module, error) {
	if filepath.Ext(path) == ".bir" {
		return codec.ReadFile(path)
	}
	src, err := compiler.Load(path)
	if err != nil {
		return nil, err
	}
	data, err := codec.Encode(src.Program)
	if err != nil {
		return nil, err
	}
	return codec.Decode(data)
}
