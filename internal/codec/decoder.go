package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/roach88/bir/internal/ir"
)

// Minimum encoded sizes, used to reject impossible counts before
// allocating for them.
const (
	minArgSize    = 1
	minOpSize     = 8 + 8 + 1
	minGlobalSize = 8 + 8 + 1 + 8
	minFuncSize   = 8 * 5
	minStringSize = 8
)

// Decode parses a module file. On any error the returned module is nil.
func Decode(buf []byte) (*Module, error) {
	if err := checkHeader(buf); err != nil {
		return nil, err
	}

	offsets, err := readTrailer(buf)
	if err != nil {
		return nil, err
	}
	trailerStart := len(buf) - trailerSize

	m := &Module{Version: buf[2]}
	d := &decoder{buf: buf, m: m}

	// The string table is read first so that every later section can
	// range check its symbol references.
	if err := d.section(SectionStrings, offsets[4], trailerStart, d.strings); err != nil {
		return nil, err
	}
	if err := d.section(SectionExterns, offsets[0], offsets[1], d.externs); err != nil {
		return nil, err
	}
	if err := d.section(SectionData, offsets[1], offsets[2], d.data); err != nil {
		return nil, err
	}
	if err := d.section(SectionGlobals, offsets[2], offsets[3], d.globals); err != nil {
		return nil, err
	}
	if err := d.section(SectionFuncs, offsets[3], offsets[4], d.funcs); err != nil {
		return nil, err
	}
	return m, nil
}

func checkHeader(buf []byte) error {
	if len(buf) < headerSize {
		return &FormatError{Expected: ir.FormatVersion, Reason: fmt.Sprintf("truncated header: %d bytes", len(buf))}
	}
	if !bytes.Equal(buf[:2], ir.Magic[:]) {
		return &FormatError{Expected: ir.FormatVersion, Reason: fmt.Sprintf("bad magic % x", buf[:2])}
	}
	if buf[2] != ir.FormatVersion {
		return newVersionError(buf[2])
	}
	return nil
}

// readTrailer recovers the five section offsets, reading backward from
// the end of the buffer, and checks that they describe an ordered layout.
func readTrailer(buf []byte) ([5]int, error) {
	var offsets [5]int
	if len(buf) < headerSize+trailerSize {
		return offsets, &CorruptDataError{
			Section: SectionTrailer,
			Offset:  len(buf),
			Reason:  fmt.Sprintf("buffer of %d bytes has no room for a trailer", len(buf)),
		}
	}
	trailerStart := len(buf) - trailerSize

	pos := len(buf)
	for i := len(offsets) - 1; i >= 0; i-- {
		pos -= 8
		v := binary.LittleEndian.Uint64(buf[pos:])
		if v > uint64(trailerStart) {
			return offsets, &CorruptDataError{
				Section: SectionTrailer,
				Offset:  pos,
				Reason:  fmt.Sprintf("%s offset %d is past the trailer at %d", trailerSections[i], v, trailerStart),
			}
		}
		offsets[i] = int(v)
	}

	if offsets[0] != headerSize {
		return offsets, &CorruptDataError{
			Section: SectionTrailer,
			Offset:  trailerStart,
			Reason:  fmt.Sprintf("externs offset %d, expected %d", offsets[0], headerSize),
		}
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return offsets, &CorruptDataError{
				Section: SectionTrailer,
				Offset:  trailerStart + 8*i,
				Reason:  fmt.Sprintf("%s offset %d precedes %s offset %d", trailerSections[i], offsets[i], trailerSections[i-1], offsets[i-1]),
			}
		}
	}
	return offsets, nil
}

var trailerSections = [5]Section{SectionExterns, SectionData, SectionGlobals, SectionFuncs, SectionStrings}

type decoder struct {
	buf []byte
	m   *Module
}

// section runs read over buf[start:end] and requires it to consume the
// range exactly.
func (d *decoder) section(s Section, start, end int, read func(*cursor) error) error {
	c := newCursor(d.buf, s, start, end)
	if err := read(c); err != nil {
		return err
	}
	return c.finish()
}

func (d *decoder) strings(c *cursor) error {
	n, err := c.count("string", minStringSize)
	if err != nil {
		return err
	}
	if n > 0 {
		d.m.Strings = make([]string, n)
	}
	// Entries are interned: a name has exactly one id.
	seen := make(map[string]int, n)
	for i := range n {
		at := c.pos
		size, err := c.u64()
		if err != nil {
			return err
		}
		b, err := c.bytes(size)
		if err != nil {
			return err
		}
		s := string(b)
		if first, dup := seen[s]; dup {
			return &CorruptDataError{
				Section: c.section,
				Offset:  at,
				Reason:  fmt.Sprintf("duplicate string %q: entries %d and %d", s, first, i),
			}
		}
		seen[s] = i
		d.m.Strings[i] = s
	}
	return nil
}

func (d *decoder) sym(c *cursor) (Sym, error) {
	at := c.pos
	id, err := c.u64()
	if err != nil {
		return 0, err
	}
	if id >= uint64(len(d.m.Strings)) {
		return 0, &CorruptDataError{
			Section: c.section,
			Offset:  at,
			Reason:  fmt.Sprintf("string id %d out of range (%d strings)", id, len(d.m.Strings)),
		}
	}
	return id, nil
}

func (d *decoder) externs(c *cursor) error {
	n, err := c.count("extern", 8)
	if err != nil {
		return err
	}
	for range n {
		sym, err := d.sym(c)
		if err != nil {
			return err
		}
		d.m.Externs = append(d.m.Externs, sym)
	}
	return nil
}

func (d *decoder) data(c *cursor) error {
	size, err := c.u64()
	if err != nil {
		return err
	}
	b, err := c.bytes(size)
	if err != nil {
		return err
	}
	if len(b) > 0 {
		d.m.Data = append([]byte(nil), b...)
	}
	return nil
}

func (d *decoder) globals(c *cursor) error {
	n, err := c.count("global", minGlobalSize)
	if err != nil {
		return err
	}
	for range n {
		var g Global
		if g.Name, err = d.sym(c); err != nil {
			return err
		}
		nvalues, err := c.count("value", 9)
		if err != nil {
			return err
		}
		for range nvalues {
			v, err := d.immediate(c)
			if err != nil {
				return err
			}
			g.Values = append(g.Values, v)
		}
		at := c.pos
		flag, err := c.u8()
		if err != nil {
			return err
		}
		if flag > 1 {
			return &CorruptDataError{Section: c.section, Offset: at, Reason: fmt.Sprintf("vector flag %d is not 0 or 1", flag)}
		}
		g.IsVec = flag == 1
		if g.MinSize, err = c.u64(); err != nil {
			return err
		}
		d.m.Globals = append(d.m.Globals, g)
	}
	return nil
}

func (d *decoder) immediate(c *cursor) (Immediate, error) {
	at := c.pos
	tag, err := c.u8()
	if err != nil {
		return Immediate{}, err
	}
	kind := ir.ImmediateKind(tag)
	switch kind {
	case ir.ImmName:
		sym, err := d.sym(c)
		return Immediate{Kind: kind, Value: sym}, err
	case ir.ImmLiteral, ir.ImmDataOffset:
		v, err := c.u64()
		return Immediate{Kind: kind, Value: v}, err
	}
	return Immediate{}, &CorruptDataError{Section: c.section, Offset: at, Reason: fmt.Sprintf("unknown immediate tag %#04x", tag)}
}

func (d *decoder) funcs(c *cursor) error {
	n, err := c.count("function", minFuncSize)
	if err != nil {
		return err
	}
	d.m.funcs = make(map[string]int, n)
	for i := range n {
		start := c.pos
		fn, err := d.function(c)
		if err != nil {
			return err
		}
		name := d.m.Sym(fn.Name)
		if _, dup := d.m.funcs[name]; dup {
			return &CorruptDataError{Section: c.section, Offset: start, Reason: fmt.Sprintf("duplicate function %q", name)}
		}
		d.m.funcs[name] = i
		d.m.Funcs = append(d.m.Funcs, fn)
	}
	return nil
}

func (d *decoder) function(c *cursor) (Func, error) {
	var fn Func
	var err error
	start := c.pos
	if fn.Name, err = d.sym(c); err != nil {
		return fn, err
	}
	if fn.File, err = d.sym(c); err != nil {
		return fn, err
	}
	if fn.Params, err = c.u64(); err != nil {
		return fn, err
	}
	if fn.AutoVars, err = c.u64(); err != nil {
		return fn, err
	}
	name := d.m.Sym(fn.Name)
	if fn.Params > fn.AutoVars {
		return fn, &CorruptDataError{
			Section: c.section,
			Offset:  start,
			Reason:  fmt.Sprintf("%s: %d parameters exceed %d autovars", name, fn.Params, fn.AutoVars),
		}
	}
	nops, err := c.count("op", minOpSize)
	if err != nil {
		return fn, err
	}

	fr := funcReader{d: d, c: c, fn: &fn, name: name}
	opStarts := make([]int, nops)
	for i := range nops {
		opStarts[i] = c.pos
		op, err := fr.op()
		if err != nil {
			return fn, err
		}
		fn.Body = append(fn.Body, op)
	}
	return fn, fr.resolveLabels(opStarts)
}

// funcReader decodes the body of one function and builds its label table.
type funcReader struct {
	d    *decoder
	c    *cursor
	fn   *Func
	name string
}

func (r *funcReader) errorf(at int, format string, args ...any) error {
	return &CorruptDataError{Section: r.c.section, Offset: at, Reason: r.name + ": " + fmt.Sprintf(format, args...)}
}

func (r *funcReader) slot() (uint64, error) {
	at := r.c.pos
	s, err := r.c.u64()
	if err != nil {
		return 0, err
	}
	if s >= r.fn.AutoVars {
		return 0, r.errorf(at, "slot %d out of range (%d autovars)", s, r.fn.AutoVars)
	}
	return s, nil
}

func (r *funcReader) arg() (Arg, error) {
	at := r.c.pos
	tag, err := r.c.u8()
	if err != nil {
		return Arg{}, err
	}
	kind := ir.ArgKind(tag)
	switch {
	case !kind.Valid():
		return Arg{}, r.errorf(at, "unknown argument tag %#04x", tag)
	case kind == ir.ArgBogus:
		return Arg{}, nil
	case kind.Named():
		sym, err := r.d.sym(r.c)
		return Arg{Kind: kind, Value: sym}, err
	case kind.Slotted():
		s, err := r.slot()
		return Arg{Kind: kind, Value: s}, err
	}
	v, err := r.c.u64()
	return Arg{Kind: kind, Value: v}, err
}

func (r *funcReader) op() (Op, error) {
	var op Op
	var err error
	if op.Loc.Line, err = r.c.u64(); err != nil {
		return op, err
	}
	if op.Loc.Column, err = r.c.u64(); err != nil {
		return op, err
	}
	at := r.c.pos
	tag, err := r.c.u8()
	if err != nil {
		return op, err
	}
	op.Kind = ir.OpKind(tag)

	switch op.Kind {
	case ir.OpBogus:
	case ir.OpReturn:
		op.Arg, err = r.arg()
	case ir.OpStore, ir.OpAutoAssign, ir.OpNegate, ir.OpUnaryNot:
		if op.Slot, err = r.slot(); err == nil {
			op.Arg, err = r.arg()
		}
	case ir.OpExternalAssign:
		if op.Name, err = r.d.sym(r.c); err == nil {
			op.Arg, err = r.arg()
		}
	case ir.OpBinop:
		err = r.binop(&op)
	case ir.OpAsm:
		var n int
		if n, err = r.c.count("asm line", 8); err != nil {
			return op, err
		}
		for range n {
			var sym Sym
			if sym, err = r.d.sym(r.c); err != nil {
				return op, err
			}
			op.Lines = append(op.Lines, sym)
		}
	case ir.OpLabel, ir.OpJump:
		op.Label, err = r.c.u64()
	case ir.OpJumpIfNot:
		if op.Label, err = r.c.u64(); err == nil {
			op.Arg, err = r.arg()
		}
	case ir.OpFuncall:
		err = r.funcall(&op)
	case ir.OpIndex:
		if op.Slot, err = r.slot(); err != nil {
			return op, err
		}
		if op.Lhs, err = r.arg(); err == nil {
			op.Rhs, err = r.arg()
		}
	default:
		return op, r.errorf(at, "unknown opcode %#04x", tag)
	}
	return op, err
}

func (r *funcReader) binop(op *Op) error {
	var err error
	if op.Slot, err = r.slot(); err != nil {
		return err
	}
	at := r.c.pos
	tag, err := r.c.u8()
	if err != nil {
		return err
	}
	op.Binop = ir.Binop(tag)
	if !op.Binop.Valid() {
		return r.errorf(at, "unknown binop tag %#04x", tag)
	}
	if op.Lhs, err = r.arg(); err != nil {
		return err
	}
	op.Rhs, err = r.arg()
	return err
}

func (r *funcReader) funcall(op *Op) error {
	var err error
	if op.Slot, err = r.slot(); err != nil {
		return err
	}
	if op.Arg, err = r.arg(); err != nil {
		return err
	}
	n, err := r.c.count("call argument", minArgSize)
	if err != nil {
		return err
	}
	for range n {
		a, err := r.arg()
		if err != nil {
			return err
		}
		op.Args = append(op.Args, a)
	}
	return nil
}

// resolveLabels fills fn.Labels and checks every jump against it.
func (r *funcReader) resolveLabels(opStarts []int) error {
	body := r.fn.Body
	var size uint64
	for i, op := range body {
		if op.Kind != ir.OpLabel {
			continue
		}
		if op.Label >= uint64(len(body)) {
			return r.errorf(opStarts[i], "label id %d exceeds body length %d", op.Label, len(body))
		}
		size = max(size, op.Label+1)
	}

	labels := make([]int, size)
	for i := range labels {
		labels[i] = -1
	}
	for i, op := range body {
		if op.Kind != ir.OpLabel {
			continue
		}
		if labels[op.Label] >= 0 {
			return r.errorf(opStarts[i], "label %d declared twice", op.Label)
		}
		labels[op.Label] = i
	}
	r.fn.Labels = labels

	for i, op := range body {
		if op.Kind != ir.OpJump && op.Kind != ir.OpJumpIfNot {
			continue
		}
		if _, ok := r.fn.Target(op.Label); !ok {
			return r.errorf(opStarts[i], "jump to undeclared label %d", op.Label)
		}
	}
	return nil
}
