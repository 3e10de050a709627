package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/roach88/bir/internal/ir"
)

// trailerSize is five u64 section offsets.
const trailerSize = 5 * 8

// headerSize is the magic plus the version byte.
const headerSize = 3

// Encode serializes p into the current module format. The program is
// validated first; an invalid program produces no output.
func Encode(p *ir.Program) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return encode(p), nil
}

// encode writes p without validating it.
func encode(p *ir.Program) []byte {
	e := &encoder{strs: newStringTable()}
	e.buf = append(e.buf, ir.Magic[0], ir.Magic[1], ir.FormatVersion)

	var offsets [5]uint64
	offsets[0] = e.checkpoint()
	e.externs(p.Externs)
	offsets[1] = e.checkpoint()
	e.data(p.Data)
	offsets[2] = e.checkpoint()
	e.globals(p.Globals)
	offsets[3] = e.checkpoint()
	e.funcs(p.Funcs)
	offsets[4] = e.checkpoint()
	e.stringTable()

	for _, off := range offsets {
		e.u64(off)
	}
	return e.buf
}

type encoder struct {
	buf  []byte
	strs *stringTable
}

func (e *encoder) checkpoint() uint64 { return uint64(len(e.buf)) }

func (e *encoder) u8(b byte) { e.buf = append(e.buf, b) }

func (e *encoder) u64(v uint64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, v) }

func (e *encoder) sym(s string) { e.u64(e.strs.intern(s)) }

func (e *encoder) flag(b bool) {
	if b {
		e.u8(1)
	} else {
		e.u8(0)
	}
}

func (e *encoder) externs(names []string) {
	e.u64(uint64(len(names)))
	for _, n := range names {
		e.sym(n)
	}
}

func (e *encoder) data(data []byte) {
	e.u64(uint64(len(data)))
	e.buf = append(e.buf, data...)
}

func (e *encoder) globals(globals []ir.Global) {
	e.u64(uint64(len(globals)))
	for _, g := range globals {
		e.sym(g.Name)
		e.u64(uint64(len(g.Values)))
		for _, v := range g.Values {
			e.u8(byte(v.Kind))
			if v.Kind == ir.ImmName {
				e.sym(v.Name)
			} else {
				e.u64(v.Value)
			}
		}
		e.flag(g.IsVec)
		e.u64(g.MinSize)
	}
}

func (e *encoder) funcs(funcs []ir.Func) {
	e.u64(uint64(len(funcs)))
	for _, fn := range funcs {
		e.sym(fn.Name)
		e.sym(fn.File)
		e.u64(fn.Params)
		e.u64(fn.AutoVars)
		e.u64(uint64(len(fn.Body)))
		for _, op := range fn.Body {
			e.op(op)
		}
	}
}

func (e *encoder) arg(a ir.Arg) {
	e.u8(byte(a.Kind))
	switch {
	case a.Kind == ir.ArgBogus:
	case a.Kind.Named():
		e.sym(a.Name)
	default:
		e.u64(a.Value)
	}
}

func (e *encoder) op(op ir.Op) {
	e.u64(op.Loc.Line)
	e.u64(op.Loc.Column)
	e.u8(byte(op.Kind))

	switch op.Kind {
	case ir.OpBogus:
	case ir.OpReturn:
		e.arg(op.Arg)
	case ir.OpStore, ir.OpAutoAssign, ir.OpNegate, ir.OpUnaryNot:
		e.u64(op.Slot)
		e.arg(op.Arg)
	case ir.OpExternalAssign:
		e.sym(op.Name)
		e.arg(op.Arg)
	case ir.OpBinop:
		e.u64(op.Slot)
		e.u8(byte(op.Binop))
		e.arg(op.Lhs)
		e.arg(op.Rhs)
	case ir.OpAsm:
		e.u64(uint64(len(op.Lines)))
		for _, line := range op.Lines {
			e.sym(line)
		}
	case ir.OpLabel, ir.OpJump:
		e.u64(op.Label)
	case ir.OpJumpIfNot:
		e.u64(op.Label)
		e.arg(op.Arg)
	case ir.OpFuncall:
		e.u64(op.Slot)
		e.arg(op.Arg)
		e.u64(uint64(len(op.Args)))
		for _, a := range op.Args {
			e.arg(a)
		}
	case ir.OpIndex:
		e.u64(op.Slot)
		e.arg(op.Lhs)
		e.arg(op.Rhs)
	}
}

func (e *encoder) stringTable() {
	e.u64(uint64(len(e.strs.strings)))
	for _, s := range e.strs.strings {
		e.u64(uint64(len(s)))
		e.buf = append(e.buf, s...)
	}
}
