package codec

import (
	"github.com/roach88/bir/internal/ir"
)

// Sym is an index into a module's string table.
//
// The table is interned: every string appears once, so two Syms from the
// same module are equal exactly when the names they stand for are equal.
// Decode rejects a table with repeated entries. Syms from different
// modules are unrelated.
type Sym = uint64

// Arg is a decoded operand.
//
// Value is interpreted by Kind:
//
//	AutoVar, Deref, RefAutoVar  slot index, checked against the function's autovars
//	Literal                     the word itself
//	DataOffset                  byte offset into Module.Data
//	RefExternal, External       Sym of the symbol name
//	Bogus                       always zero
//
// Use Module.IRArg to turn an Arg back into an ir.Arg.
type Arg struct {
	Kind  ir.ArgKind
	Value uint64
}

// Immediate is a decoded global initializer word. For ImmName, Value is a Sym.
type Immediate struct {
	Kind  ir.ImmediateKind
	Value uint64
}

// Op is a decoded instruction.
//
// Field usage per Kind matches ir.Op. Fields a kind does not use are zero.
// Name (ExternalAssign only) and Lines (Asm only) hold Syms instead of
// strings. Loc is carried through from the source unchanged and is used
// to position runtime faults.
type Op struct {
	Kind  ir.OpKind
	Loc   ir.Loc
	Slot  uint64
	Name  Sym
	Binop ir.Binop
	Label uint64
	Arg   Arg
	Lhs   Arg
	Rhs   Arg
	Args  []Arg
	Lines []Sym
}

// Global is a decoded global.
type Global struct {
	Name    Sym
	Values  []Immediate
	IsVec   bool
	MinSize uint64
}

// Func is a decoded function with its label table.
//
// The label table is built once at decode time. Every Jump and JumpIfNot
// in Body is guaranteed to name a declared label, so the interpreter can
// resolve a jump with Target in constant time without scanning Body.
type Func struct {
	Name     Sym
	File     Sym
	Params   uint64
	AutoVars uint64
	Body     []Op

	// Labels maps label id to the index of its Label op in Body, or -1
	// when the id is not declared.
	Labels []int
}

// Target returns the instruction index of label id.
func (f *Func) Target(id uint64) (int, bool) {
	if id >= uint64(len(f.Labels)) || f.Labels[id] < 0 {
		return 0, false
	}
	return f.Labels[id], true
}

// Module is a decoded module file.
//
// A Module is owned by the caller of Decode and never mutated by the codec
// afterwards. Names in every section are Syms into Strings, and every Sym
// was range checked when the module was decoded, so Sym never panics on a
// decoded module.
//
// Function names are unique within a module. Func looks a function up by
// name through an index built at decode time.
//
// Thread-safety: a Module is read-only after Decode and may be shared by
// any number of interpreters.
type Module struct {
	Version byte
	Strings []string
	Externs []Sym
	Data    []byte
	Globals []Global
	Funcs   []Func

	funcs map[string]int
}

// Sym returns the string for id. Ids are range checked at decode time.
func (m *Module) Sym(id Sym) string { return m.Strings[id] }

// Lookup returns the string table id of s. Because the table is interned
// there is at most one such id.
func (m *Module) Lookup(s string) (Sym, bool) {
	for i, str := range m.Strings {
		if str == s {
			return Sym(i), true
		}
	}
	return 0, false
}

// Func returns the function named name and its index.
func (m *Module) Func(name string) (*Func, int, bool) {
	i, ok := m.funcs[name]
	if !ok {
		return nil, -1, false
	}
	return &m.Funcs[i], i, true
}

// FuncName returns the name of function i.
func (m *Module) FuncName(i int) string { return m.Sym(m.Funcs[i].Name) }

// Program materializes the module as an ir.Program with names resolved.
// For a module produced by Encode(p), the result equals p.
func (m *Module) Program() *ir.Program {
	p := &ir.Program{}
	if len(m.Data) > 0 {
		p.Data = append([]byte(nil), m.Data...)
	}
	for _, sym := range m.Externs {
		p.Externs = append(p.Externs, m.Sym(sym))
	}
	for _, g := range m.Globals {
		out := ir.Global{Name: m.Sym(g.Name), IsVec: g.IsVec, MinSize: g.MinSize}
		for _, v := range g.Values {
			if v.Kind == ir.ImmName {
				out.Values = append(out.Values, ir.NameValue(m.Sym(v.Value)))
			} else {
				out.Values = append(out.Values, ir.ImmediateValue{Kind: v.Kind, Value: v.Value})
			}
		}
		p.Globals = append(p.Globals, out)
	}
	for i := range m.Funcs {
		fn := &m.Funcs[i]
		out := ir.Func{
			Name:     m.Sym(fn.Name),
			File:     m.Sym(fn.File),
			Params:   fn.Params,
			AutoVars: fn.AutoVars,
		}
		for _, op := range fn.Body {
			out.Body = append(out.Body, m.irOp(op))
		}
		p.Funcs = append(p.Funcs, out)
	}
	return p
}

// IRArg resolves a decoded operand back to an ir.Arg.
func (m *Module) IRArg(a Arg) ir.Arg {
	if a.Kind.Named() {
		return ir.Arg{Kind: a.Kind, Name: m.Sym(a.Value)}
	}
	return ir.Arg{Kind: a.Kind, Value: a.Value}
}

func (m *Module) irOp(op Op) ir.Op {
	out := ir.Op{
		Kind:  op.Kind,
		Loc:   op.Loc,
		Slot:  op.Slot,
		Binop: op.Binop,
		Label: op.Label,
		Arg:   m.IRArg(op.Arg),
		Lhs:   m.IRArg(op.Lhs),
		Rhs:   m.IRArg(op.Rhs),
	}
	if op.Kind == ir.OpExternalAssign {
		out.Name = m.Sym(op.Name)
	}
	for _, a := range op.Args {
		out.Args = append(out.Args, m.IRArg(a))
	}
	for _, l := range op.Lines {
		out.Lines = append(out.Lines, m.Sym(l))
	}
	return out
}
