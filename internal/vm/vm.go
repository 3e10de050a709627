package vm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"

	"github.com/roach88/bir/internal/codec"
	"github.com/roach88/bir/internal/ir"
)

const (
	// DefaultMaxCallDepth bounds the number of active frames.
	DefaultMaxCallDepth = 1024

	// DefaultMemorySize is the size of VM memory in bytes.
	DefaultMemorySize = 1 << 20

	// cancelCheckInterval is how many instructions run between context checks.
	cancelCheckInterval = 1024
)

// Handles tag function and builtin references so they can live in
// ordinary words. Memory addresses are always below handleFunc.
const (
	handleShift   = 48
	handleFunc    = uint64(1) << handleShift
	handleBuiltin = uint64(2) << handleShift
	handleMask    = handleFunc - 1
)

// Option configures a VM.
type Option func(*VM)

// WithMaxCallDepth sets the maximum number of active frames.
// Values <= 0 are ignored.
func WithMaxCallDepth(n int) Option {
	return func(vm *VM) {
		if n > 0 {
			vm.maxDepth = n
		}
	}
}

// WithMemorySize sets the memory size in bytes. It is rounded up to a
// whole word. Values of 0 are ignored.
func WithMemorySize(n uint64) Option {
	return func(vm *VM) {
		if n > 0 {
			vm.memSize = alignWord(n)
		}
	}
}

// WithStdout sets where putchar and printf write. Default io.Discard.
func WithStdout(w io.Writer) Option {
	return func(vm *VM) {
		vm.stdout = w
	}
}

// WithBuiltins adds or replaces host builtins by name.
func WithBuiltins(b map[string]Builtin) Option {
	return func(vm *VM) {
		for name, fn := range b {
			vm.builtinFuncs[name] = fn
		}
	}
}

// WithoutBuiltins removes every host builtin, including the defaults.
func WithoutBuiltins() Option {
	return func(vm *VM) {
		clear(vm.builtinFuncs)
	}
}

// WithExternal gives the external symbol name an initial value.
func WithExternal(name string, value uint64) Option {
	return func(vm *VM) {
		vm.initialExternals[name] = value
	}
}

// WithLogger sets the logger. Default discards.
func WithLogger(l *slog.Logger) Option {
	return func(vm *VM) {
		if l != nil {
			vm.logger = l
		}
	}
}

// VM executes functions of one decoded module.
//
// State that outlives a single Call:
//   - global storage, initialized once by New
//   - the externals table written by ExternalAssign for names that are not
//     globals, seeded by WithExternal
//
// Everything else, the frame stack and every autozone, is released when
// Call returns, whether the call returned or faulted. Externals assigned
// during one Call therefore remain visible to later calls on the same VM.
//
// Thread-safety: a VM runs one call at a time and is not safe for
// concurrent use. Create one VM per goroutine; they may share a Module.
type VM struct {
	module *codec.Module
	mem    *memory
	stdout io.Writer
	logger *slog.Logger

	maxDepth int
	memSize  uint64

	// globals maps a symbol to the address of its global word (the
	// header word for vectors).
	globals map[codec.Sym]uint64

	// funcs maps a symbol to the index of the function it names.
	funcs map[codec.Sym]int

	builtinFuncs     map[string]Builtin
	builtins         []Builtin
	builtinNames     []string
	builtinSyms      map[codec.Sym]int
	initialExternals map[string]uint64

	// externals is the run-wide namespace written by ExternalAssign for
	// names that are not globals.
	externals map[codec.Sym]uint64

	stackBase uint64
	sp        uint64
	frames    []frame
	steps     uint64
}

// New lays out data and globals for m in a fresh memory.
//
// Global initializers are evaluated here, so a global that names an
// undefined symbol fails New with an *UndefinedSymbolError rather than
// faulting later. New also fails when the data blob and globals do not
// fit in the configured memory size; whatever memory remains after them
// is the call stack.
func New(m *codec.Module, opts ...Option) (*VM, error) {
	vm := &VM{
		module:           m,
		stdout:           io.Discard,
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxDepth:         DefaultMaxCallDepth,
		memSize:          DefaultMemorySize,
		globals:          make(map[codec.Sym]uint64),
		funcs:            make(map[codec.Sym]int),
		builtinFuncs:     DefaultBuiltins(),
		builtinSyms:      make(map[codec.Sym]int),
		initialExternals: make(map[string]uint64),
		externals:        make(map[codec.Sym]uint64),
	}
	for _, opt := range opts {
		opt(vm)
	}

	for i, fn := range m.Funcs {
		vm.funcs[fn.Name] = i
	}
	for _, name := range slices.Sorted(maps.Keys(vm.builtinFuncs)) {
		// A builtin is only reachable through a name the module mentions,
		// and a module function of the same name wins.
		sym, ok := m.Lookup(name)
		if !ok {
			continue
		}
		if _, isFunc := vm.funcs[sym]; isFunc {
			continue
		}
		vm.builtinSyms[sym] = len(vm.builtins)
		vm.builtins = append(vm.builtins, vm.builtinFuncs[name])
		vm.builtinNames = append(vm.builtinNames, name)
	}
	for name, v := range vm.initialExternals {
		if sym, ok := m.Lookup(name); ok {
			vm.externals[sym] = v
		}
	}

	if err := vm.layout(); err != nil {
		return nil, err
	}
	return vm, nil
}

// layout places the data blob and globals in memory and writes global
// initializers.
func (vm *VM) layout() error {
	m := vm.module
	globalsBase := alignWord(DataBase + uint64(len(m.Data)))

	if globalsBase > vm.memSize {
		return fmt.Errorf("data and globals do not fit in %d bytes of memory (data is %d bytes)", vm.memSize, len(m.Data))
	}
	addr := globalsBase
	for _, g := range m.Globals {
		vm.globals[g.Name] = addr
		words := max(uint64(len(g.Values)), g.MinSize)
		// Sizes come straight from the module, so compare in words
		// before multiplying.
		free := (vm.memSize - addr) / ir.WordSize
		if words > free || (g.IsVec && words == free) {
			return fmt.Errorf("data and globals do not fit in %d bytes of memory (global %s)", vm.memSize, m.Sym(g.Name))
		}
		if g.IsVec {
			words++
		}
		addr += words * ir.WordSize
	}
	vm.stackBase = addr

	vm.mem = newMemory(vm.memSize)
	copy(vm.mem.bytes[DataBase:], m.Data)

	for _, g := range m.Globals {
		base := vm.globals[g.Name]
		elems := base
		if g.IsVec {
			elems = base + ir.WordSize
			if err := vm.mem.store(base, elems); err != nil {
				return err
			}
		}
		for i, v := range g.Values {
			word, err := vm.immediate(v)
			if err != nil {
				return fmt.Errorf("global %s: %w", m.Sym(g.Name), err)
			}
			if err := vm.mem.store(elems+uint64(i)*ir.WordSize, word); err != nil {
				return err
			}
		}
	}
	vm.sp = vm.stackBase
	return nil
}

func (vm *VM) immediate(v codec.Immediate) (uint64, error) {
	switch v.Kind {
	case ir.ImmLiteral:
		return v.Value, nil
	case ir.ImmDataOffset:
		return DataBase + v.Value, nil
	}
	return vm.address(v.Value)
}

// Call runs the named function to completion and returns its value.
// Missing arguments are zero; extra arguments are ignored.
//
// A VM runs one call at a time. Call is not reentrant: a Builtin that
// calls back into its VM gets ErrReentrantCall, and the VM is not safe for
// concurrent use.
func (vm *VM) Call(ctx context.Context, name string, args ...uint64) (uint64, error) {
	if len(vm.frames) > 0 {
		return 0, ErrReentrantCall
	}
	fn, idx, ok := vm.module.Func(name)
	if !ok {
		return 0, &UndefinedSymbolError{Name: name, Index: -1}
	}
	vm.logger.Debug("call", "func", name, "args", args, "params", fn.Params)

	vm.frames = vm.frames[:0]
	vm.sp = vm.stackBase
	defer func() { vm.frames = vm.frames[:0] }()

	if err := vm.push(idx, args); err != nil {
		return 0, err
	}
	result, err := vm.run(ctx)
	if err != nil {
		vm.logger.Debug("fault", "func", name, "error", err)
		return 0, err
	}
	vm.logger.Debug("return", "func", name, "value", result)
	return result, nil
}

// Module returns the module the VM executes.
func (vm *VM) Module() *codec.Module { return vm.module }

// Stdout returns the writer used by output builtins.
func (vm *VM) Stdout() io.Writer { return vm.stdout }

// Load reads the word at addr.
func (vm *VM) Load(addr uint64) (uint64, error) { return vm.mem.load(addr) }

// Store writes the word at addr.
func (vm *VM) Store(addr, v uint64) error { return vm.mem.store(addr, v) }

// CString reads a zero terminated string at addr.
func (vm *VM) CString(addr uint64) (string, error) { return vm.mem.cString(addr) }

// GlobalAddr returns the address of the named global.
func (vm *VM) GlobalAddr(name string) (uint64, bool) {
	sym, ok := vm.module.Lookup(name)
	if !ok {
		return 0, false
	}
	addr, ok := vm.globals[sym]
	return addr, ok
}

// External returns the value last assigned to a non-global external.
func (vm *VM) External(name string) (uint64, bool) {
	sym, ok := vm.module.Lookup(name)
	if !ok {
		return 0, false
	}
	v, ok := vm.externals[sym]
	return v, ok
}

// Depth returns the number of active frames. It is zero between calls.
func (vm *VM) Depth() int { return len(vm.frames) }
