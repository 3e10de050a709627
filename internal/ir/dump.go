package ir

import "encoding/hex"

// Dump converts p into plain maps and slices suitable for MarshalCanonical.
// Only the fields meaningful for each op kind are emitted, and the data blob
// is hex encoded.
func Dump(p *Program) map[string]any {
	externs := make([]any, len(p.Externs))
	for i, e := range p.Externs {
		externs[i] = e
	}
	globals := make([]any, len(p.Globals))
	for i, g := range p.Globals {
		globals[i] = dumpGlobal(g)
	}
	funcs := make([]any, len(p.Funcs))
	for i := range p.Funcs {
		funcs[i] = dumpFunc(&p.Funcs[i])
	}
	return map[string]any{
		"version": int(FormatVersion),
		"externs": externs,
		"data":    hex.EncodeToString(p.Data),
		"globals": globals,
		"funcs":   funcs,
	}
}

func dumpGlobal(g Global) map[string]any {
	values := make([]any, len(g.Values))
	for i, v := range g.Values {
		if v.Kind == ImmName {
			values[i] = map[string]any{v.Kind.String(): v.Name}
		} else {
			values[i] = map[string]any{v.Kind.String(): v.Value}
		}
	}
	return map[string]any{
		"name":   g.Name,
		"values": values,
		"vec":    g.IsVec,
		"size":   g.MinSize,
	}
}

func dumpFunc(f *Func) map[string]any {
	body := make([]any, len(f.Body))
	for i, op := range f.Body {
		body[i] = DumpOp(op)
	}
	return map[string]any{
		"name":   f.Name,
		"file":   f.File,
		"params": f.Params,
		"autos":  f.AutoVars,
		"body":   body,
	}
}

// DumpArg renders a as a single-key map, or the string "bogus".
func DumpArg(a Arg) any {
	switch {
	case a.Kind == ArgBogus:
		return "bogus"
	case a.Kind.Named():
		return map[string]any{a.Kind.String(): a.Name}
	default:
		return map[string]any{a.Kind.String(): a.Value}
	}
}

// DumpOp renders op using the same field names the CUE source format uses.
func DumpOp(op Op) map[string]any {
	m := map[string]any{
		"op":   op.Kind.String(),
		"line": op.Loc.Line,
		"col":  op.Loc.Column,
	}
	if op.Kind.HasSlot() {
		m["slot"] = op.Slot
	}
	switch op.Kind {
	case OpReturn, OpStore, OpAutoAssign, OpNegate, OpUnaryNot:
		m["arg"] = DumpArg(op.Arg)
	case OpExternalAssign:
		m["name"] = op.Name
		m["arg"] = DumpArg(op.Arg)
	case OpBinop:
		m["binop"] = op.Binop.String()
		m["lhs"] = DumpArg(op.Lhs)
		m["rhs"] = DumpArg(op.Rhs)
	case OpAsm:
		lines := make([]any, len(op.Lines))
		for i, l := range op.Lines {
			lines[i] = l
		}
		m["lines"] = lines
	case OpLabel, OpJump:
		m["label"] = op.Label
	case OpJumpIfNot:
		m["label"] = op.Label
		m["arg"] = DumpArg(op.Arg)
	case OpFuncall:
		m["arg"] = DumpArg(op.Arg)
		args := make([]any, len(op.Args))
		for i, a := range op.Args {
			args[i] = DumpArg(a)
		}
		m["args"] = args
	case OpIndex:
		m["lhs"] = DumpArg(op.Lhs)
		m["rhs"] = DumpArg(op.Rhs)
	}
	return m
}
