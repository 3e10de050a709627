package compiler

import (
	"fmt"
	"slices"

	"cuelang.org/go/cue"

	"github.com/roach88/bir/internal/ir"
)

// Compile converts a CUE program description into an ir.Program.
//
// The value is the program struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`program: { funcs: [...] }`)
//	p, err := Compile(v.LookupPath(cue.ParsePath("program")))
//
// The result is validated before it is returned; structural violations
// come back as a *CompileError wrapping ir.ValidationErrors.
func Compile(v cue.Value) (*ir.Program, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err, "program")
	}
	if v.IncompleteKind() != cue.StructKind {
		return nil, &CompileError{Field: "program", Message: "must be a struct", Pos: v.Pos()}
	}
	if err := checkFields(v, "program", "externs", "data", "globals", "funcs"); err != nil {
		return nil, err
	}

	p := &ir.Program{}
	var err error

	if p.Externs, err = stringList(v.LookupPath(cue.ParsePath("externs")), "externs"); err != nil {
		return nil, err
	}
	if p.Data, err = parseData(v.LookupPath(cue.ParsePath("data"))); err != nil {
		return nil, err
	}
	if p.Globals, err = parseGlobals(v.LookupPath(cue.ParsePath("globals"))); err != nil {
		return nil, err
	}
	if p.Funcs, err = parseFuncs(v.LookupPath(cue.ParsePath("funcs"))); err != nil {
		return nil, err
	}

	if err := p.Validate(); err != nil {
		return nil, &CompileError{Field: "program", Message: err.Error(), Pos: v.Pos(), Err: err}
	}
	return p, nil
}

func parseData(v cue.Value) ([]byte, error) {
	if !v.Exists() {
		return nil, nil
	}
	switch v.IncompleteKind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err, "data")
		}
		return []byte(s), nil
	case cue.BytesKind:
		b, err := v.Bytes()
		if err != nil {
			return nil, formatCUEError(err, "data")
		}
		return b, nil
	}
	return nil, &CompileError{Field: "data", Message: "must be a string or bytes", Pos: v.Pos()}
}

func parseGlobals(v cue.Value) ([]ir.Global, error) {
	var globals []ir.Global
	err := eachElem(v, "globals", func(elem cue.Value, path string) error {
		if err := checkFields(elem, path, "name", "values", "vec", "size"); err != nil {
			return err
		}
		var g ir.Global
		var err error
		if g.Name, err = requiredString(elem, path, "name"); err != nil {
			return err
		}
		if err := eachElem(elem.LookupPath(cue.ParsePath("values")), path+".values", func(iv cue.Value, ipath string) error {
			imm, err := parseImmediate(iv, ipath)
			if err != nil {
				return err
			}
			g.Values = append(g.Values, imm)
			return nil
		}); err != nil {
			return err
		}
		if vec := elem.LookupPath(cue.ParsePath("vec")); vec.Exists() {
			if g.IsVec, err = vec.Bool(); err != nil {
				return formatCUEError(err, path+".vec")
			}
		}
		if g.MinSize, err = optionalUint(elem, path, "size"); err != nil {
			return err
		}
		globals = append(globals, g)
		return nil
	})
	return globals, err
}

func parseImmediate(v cue.Value, path string) (ir.ImmediateValue, error) {
	key, val, err := singleField(v, path, "lit", "name", "data")
	if err != nil {
		return ir.ImmediateValue{}, err
	}
	switch key {
	case "name":
		s, err := val.String()
		if err != nil {
			return ir.ImmediateValue{}, formatCUEError(err, path+".name")
		}
		return ir.NameValue(s), nil
	case "lit":
		w, err := word(val, path+".lit")
		if err != nil {
			return ir.ImmediateValue{}, err
		}
		return ir.LiteralValue(w), nil
	default:
		off, err := val.Uint64()
		if err != nil {
			return ir.ImmediateValue{}, formatCUEError(err, path+".data")
		}
		return ir.DataOffsetValue(off), nil
	}
}

func parseFuncs(v cue.Value) ([]ir.Func, error) {
	var funcs []ir.Func
	err := eachElem(v, "funcs", func(elem cue.Value, path string) error {
		if err := checkFields(elem, path, "name", "file", "params", "autos", "body"); err != nil {
			return err
		}
		var fn ir.Func
		var err error
		if fn.Name, err = requiredString(elem, path, "name"); err != nil {
			return err
		}
		if f := elem.LookupPath(cue.ParsePath("file")); f.Exists() {
			if fn.File, err = f.String(); err != nil {
				return formatCUEError(err, path+".file")
			}
		}
		if fn.Params, err = optionalUint(elem, path, "params"); err != nil {
			return err
		}
		if fn.AutoVars, err = optionalUint(elem, path, "autos"); err != nil {
			return err
		}
		if err := eachElem(elem.LookupPath(cue.ParsePath("body")), path+".body", func(ov cue.Value, opath string) error {
			op, err := parseOp(ov, opath)
			if err != nil {
				return err
			}
			fn.Body = append(fn.Body, op)
			return nil
		}); err != nil {
			return err
		}
		funcs = append(funcs, fn)
		return nil
	})
	return funcs, err
}

// opShape lists the operand fields an op kind accepts besides op, line
// and col. Optional fields may be omitted.
type opShape struct {
	required []string
	optional []string
}

var opShapes = map[ir.OpKind]opShape{
	ir.OpBogus:          {},
	ir.OpReturn:         {optional: []string{"arg"}},
	ir.OpStore:          {required: []string{"slot", "arg"}},
	ir.OpExternalAssign: {required: []string{"name", "arg"}},
	ir.OpAutoAssign:     {required: []string{"slot", "arg"}},
	ir.OpNegate:         {required: []string{"slot", "arg"}},
	ir.OpUnaryNot:       {required: []string{"slot", "arg"}},
	ir.OpBinop:          {required: []string{"slot", "binop", "lhs", "rhs"}},
	ir.OpAsm:            {required: []string{"lines"}},
	ir.OpLabel:          {required: []string{"label"}},
	ir.OpJump:           {required: []string{"label"}},
	ir.OpJumpIfNot:      {required: []string{"label", "arg"}},
	ir.OpFuncall:        {required: []string{"slot", "arg"}, optional: []string{"args"}},
	ir.OpIndex:          {required: []string{"slot", "lhs", "rhs"}},
}

func parseOp(v cue.Value, path string) (ir.Op, error) {
	name, err := requiredString(v, path, "op")
	if err != nil {
		return ir.Op{}, err
	}
	kind, ok := ir.ParseOpKind(name)
	if !ok {
		return ir.Op{}, &CompileError{
			Field:   path + ".op",
			Message: fmt.Sprintf("unknown op %q", name),
			Pos:     v.LookupPath(cue.ParsePath("op")).Pos(),
		}
	}
	shape := opShapes[kind]

	allowed := append([]string{"op", "line", "col"}, shape.required...)
	allowed = append(allowed, shape.optional...)
	if err := checkFields(v, path, allowed...); err != nil {
		return ir.Op{}, err
	}
	for _, f := range shape.required {
		if !v.LookupPath(cue.ParsePath(f)).Exists() {
			return ir.Op{}, &CompileError{
				Field:   path + "." + f,
				Message: fmt.Sprintf("%s is required for %s", f, name),
				Pos:     v.Pos(),
			}
		}
	}

	op := ir.Op{Kind: kind}
	if op.Loc.Line, err = optionalUint(v, path, "line"); err != nil {
		return ir.Op{}, err
	}
	if op.Loc.Column, err = optionalUint(v, path, "col"); err != nil {
		return ir.Op{}, err
	}
	if op.Slot, err = optionalUint(v, path, "slot"); err != nil {
		return ir.Op{}, err
	}
	if op.Label, err = optionalUint(v, path, "label"); err != nil {
		return ir.Op{}, err
	}
	if n := v.LookupPath(cue.ParsePath("name")); n.Exists() {
		if op.Name, err = n.String(); err != nil {
			return ir.Op{}, formatCUEError(err, path+".name")
		}
	}
	if b := v.LookupPath(cue.ParsePath("binop")); b.Exists() {
		s, err := b.String()
		if err != nil {
			return ir.Op{}, formatCUEError(err, path+".binop")
		}
		if op.Binop, ok = ir.ParseBinop(s); !ok {
			return ir.Op{}, &CompileError{
				Field:   path + ".binop",
				Message: fmt.Sprintf("unknown binop %q", s),
				Pos:     b.Pos(),
			}
		}
	}
	for _, f := range []struct {
		name string
		dst  *ir.Arg
	}{{"arg", &op.Arg}, {"lhs", &op.Lhs}, {"rhs", &op.Rhs}} {
		av := v.LookupPath(cue.ParsePath(f.name))
		if !av.Exists() {
			continue
		}
		if *f.dst, err = parseArg(av, path+"."+f.name); err != nil {
			return ir.Op{}, err
		}
	}
	if err := eachElem(v.LookupPath(cue.ParsePath("args")), path+".args", func(av cue.Value, apath string) error {
		a, err := parseArg(av, apath)
		if err != nil {
			return err
		}
		op.Args = append(op.Args, a)
		return nil
	}); err != nil {
		return ir.Op{}, err
	}
	if op.Lines, err = stringList(v.LookupPath(cue.ParsePath("lines")), path+".lines"); err != nil {
		return ir.Op{}, err
	}
	return op, nil
}

var argKeys = map[string]ir.ArgKind{
	"auto":      ir.ArgAutoVar,
	"deref":     ir.ArgDeref,
	"ref_extrn": ir.ArgRefExternal,
	"ref_auto":  ir.ArgRefAutoVar,
	"lit":       ir.ArgLiteral,
	"data":      ir.ArgDataOffset,
	"extrn":     ir.ArgExternal,
}

var argKeyNames = []string{"auto", "data", "deref", "extrn", "lit", "ref_auto", "ref_extrn"}

func parseArg(v cue.Value, path string) (ir.Arg, error) {
	if v.IncompleteKind() == cue.StringKind {
		s, err := v.String()
		if err != nil {
			return ir.Arg{}, formatCUEError(err, path)
		}
		if s != "bogus" {
			return ir.Arg{}, &CompileError{
				Field:   path,
				Message: fmt.Sprintf("unknown operand %q", s),
				Pos:     v.Pos(),
			}
		}
		return ir.Arg{}, nil
	}

	key, val, err := singleField(v, path, argKeyNames...)
	if err != nil {
		return ir.Arg{}, err
	}
	kind := argKeys[key]
	if kind.Named() {
		s, err := val.String()
		if err != nil {
			return ir.Arg{}, formatCUEError(err, path+"."+key)
		}
		return ir.Arg{Kind: kind, Name: s}, nil
	}
	w, err := word(val, path+"."+key)
	if err != nil {
		return ir.Arg{}, err
	}
	return ir.Arg{Kind: kind, Value: w}, nil
}

// word reads an integer as a machine word. Negative values wrap to their
// two's complement representation.
func word(v cue.Value, path string) (uint64, error) {
	if i, err := v.Int64(); err == nil {
		return uint64(i), nil
	}
	u, err := v.Uint64()
	if err != nil {
		return 0, formatCUEError(err, path)
	}
	return u, nil
}

// optionalUint reads an unsigned field, defaulting to zero when absent.
func optionalUint(v cue.Value, path, field string) (uint64, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return 0, nil
	}
	u, err := f.Uint64()
	if err != nil {
		return 0, formatCUEError(err, path+"."+field)
	}
	return u, nil
}

func requiredString(v cue.Value, path, field string) (string, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return "", &CompileError{
			Field:   path + "." + field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err, path+"."+field)
	}
	return s, nil
}

func stringList(v cue.Value, path string) ([]string, error) {
	var out []string
	err := eachElem(v, path, func(elem cue.Value, epath string) error {
		s, err := elem.String()
		if err != nil {
			return formatCUEError(err, epath)
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

// eachElem calls fn for every element of the list v. A missing v is an
// empty list.
func eachElem(v cue.Value, path string, fn func(elem cue.Value, path string) error) error {
	if !v.Exists() {
		return nil
	}
	iter, err := v.List()
	if err != nil {
		return formatCUEError(err, path)
	}
	for i := 0; iter.Next(); i++ {
		if err := fn(iter.Value(), fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

// checkFields rejects struct fields outside the allowed set.
func checkFields(v cue.Value, path string, allowed ...string) error {
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err, path)
	}
	for iter.Next() {
		label := iter.Label()
		if !slices.Contains(allowed, label) {
			return &CompileError{
				Field:   path + "." + label,
				Message: "unknown field",
				Pos:     iter.Value().Pos(),
			}
		}
	}
	return nil
}

// singleField returns the only field of v, which must be one of keys.
func singleField(v cue.Value, path string, keys ...string) (string, cue.Value, error) {
	iter, err := v.Fields()
	if err != nil {
		return "", cue.Value{}, formatCUEError(err, path)
	}
	var (
		key string
		val cue.Value
		n   int
	)
	for iter.Next() {
		key, val = iter.Label(), iter.Value()
		n++
	}
	if n != 1 {
		return "", cue.Value{}, &CompileError{
			Field:   path,
			Message: fmt.Sprintf("expected exactly one of %v, found %d fields", keys, n),
			Pos:     v.Pos(),
		}
	}
	if !slices.Contains(keys, key) {
		return "", cue.Value{}, &CompileError{
			Field:   path + "." + key,
			Message: fmt.Sprintf("expected one of %v", keys),
			Pos:     val.Pos(),
		}
	}
	return key, val, nil
}
