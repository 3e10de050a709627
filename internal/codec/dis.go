package codec

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/roach88/bir/internal/ir"
)

// Disassemble writes a text listing of m to w.
func Disassemble(m *Module, w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "; bir module version %d\n", m.Version)
	for _, sym := range m.Externs {
		fmt.Fprintf(bw, "extern %s\n", m.Sym(sym))
	}
	if len(m.Data) > 0 {
		fmt.Fprintf(bw, "data %d %q\n", len(m.Data), m.Data)
	}
	for _, g := range m.Globals {
		values := make([]string, len(g.Values))
		for i, v := range g.Values {
			iv := ir.ImmediateValue{Kind: v.Kind, Value: v.Value}
			if v.Kind == ir.ImmName {
				iv = ir.NameValue(m.Sym(v.Value))
			}
			values[i] = iv.String()
		}
		var attrs string
		if g.IsVec {
			attrs += " vec"
		}
		if g.MinSize > 0 {
			attrs += fmt.Sprintf(" size=%d", g.MinSize)
		}
		fmt.Fprintf(bw, "global %s%s = [%s]\n", m.Sym(g.Name), attrs, strings.Join(values, " "))
	}

	for i := range m.Funcs {
		fn := &m.Funcs[i]
		fmt.Fprintf(bw, "\nfunc %s params=%d autos=%d file=%s\n", m.Sym(fn.Name), fn.Params, fn.AutoVars, m.Sym(fn.File))
		for idx, op := range fn.Body {
			line := fmt.Sprintf("  %04d %-7s %-12s %s", idx, op.Loc, op.Kind, m.formatOp(fn, op))
			fmt.Fprintln(bw, strings.TrimRight(line, " "))
		}
	}
	return bw.Flush()
}

func (m *Module) formatArg(a Arg) string { return m.IRArg(a).String() }

func (m *Module) formatOp(fn *Func, op Op) string {
	slot := "$" + strconv.FormatUint(op.Slot, 10)
	switch op.Kind {
	case ir.OpReturn:
		return m.formatArg(op.Arg)
	case ir.OpStore:
		return fmt.Sprintf("*%s = %s", slot, m.formatArg(op.Arg))
	case ir.OpExternalAssign:
		return fmt.Sprintf("%s = %s", m.Sym(op.Name), m.formatArg(op.Arg))
	case ir.OpAutoAssign:
		return fmt.Sprintf("%s = %s", slot, m.formatArg(op.Arg))
	case ir.OpNegate:
		return fmt.Sprintf("%s = -%s", slot, m.formatArg(op.Arg))
	case ir.OpUnaryNot:
		return fmt.Sprintf("%s = !%s", slot, m.formatArg(op.Arg))
	case ir.OpBinop:
		return fmt.Sprintf("%s = %s %s %s", slot, m.formatArg(op.Lhs), op.Binop, m.formatArg(op.Rhs))
	case ir.OpAsm:
		lines := make([]string, len(op.Lines))
		for i, l := range op.Lines {
			lines[i] = strconv.Quote(m.Sym(l))
		}
		return strings.Join(lines, "; ")
	case ir.OpLabel:
		return fmt.Sprintf("L%d", op.Label)
	case ir.OpJump:
		return m.formatTarget(fn, op.Label)
	case ir.OpJumpIfNot:
		return fmt.Sprintf("%s, %s", m.formatTarget(fn, op.Label), m.formatArg(op.Arg))
	case ir.OpFuncall:
		args := make([]string, len(op.Args))
		for i, a := range op.Args {
			args[i] = m.formatArg(a)
		}
		return fmt.Sprintf("%s = %s(%s)", slot, m.formatArg(op.Arg), strings.Join(args, ", "))
	case ir.OpIndex:
		return fmt.Sprintf("%s = %s[%s]", slot, m.formatArg(op.Lhs), m.formatArg(op.Rhs))
	}
	return ""
}

func (m *Module) formatTarget(fn *Func, label uint64) string {
	idx, _ := fn.Target(label)
	return fmt.Sprintf("L%d @%04d", label, idx)
}
