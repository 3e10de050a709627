package ir

import "fmt"

// ArgKind identifies an operand variant. The numeric value is the wire tag.
type ArgKind uint8

const (
	ArgBogus       ArgKind = 0x00
	ArgAutoVar     ArgKind = 0x01
	ArgDeref       ArgKind = 0x02
	ArgRefExternal ArgKind = 0x03
	ArgRefAutoVar  ArgKind = 0x04
	ArgLiteral     ArgKind = 0x05
	ArgDataOffset  ArgKind = 0x06
	ArgExternal    ArgKind = 0x07
)

var argKindNames = [...]string{
	ArgBogus:       "bogus",
	ArgAutoVar:     "auto",
	ArgDeref:       "deref",
	ArgRefExternal: "ref_extrn",
	ArgRefAutoVar:  "ref_auto",
	ArgLiteral:     "lit",
	ArgDataOffset:  "data",
	ArgExternal:    "extrn",
}

// Valid reports whether k is a known operand tag.
func (k ArgKind) Valid() bool {
	return int(k) < len(argKindNames)
}

func (k ArgKind) String() string {
	if k.Valid() {
		return argKindNames[k]
	}
	return fmt.Sprintf("ArgKind(%#04x)", uint8(k))
}

// Named reports whether operands of this kind carry a symbol name
// instead of a numeric payload.
func (k ArgKind) Named() bool {
	return k == ArgRefExternal || k == ArgExternal
}

// Slotted reports whether the payload is an autovar slot index.
func (k ArgKind) Slotted() bool {
	return k == ArgAutoVar || k == ArgDeref || k == ArgRefAutoVar
}

// Arg is an operand. Value holds the slot index, literal or data offset;
// Name holds the symbol for RefExternal and External.
type Arg struct {
	Kind  ArgKind
	Value uint64
	Name  string
}

// AutoVar reads local slot i.
func AutoVar(i uint64) Arg { return Arg{Kind: ArgAutoVar, Value: i} }

// Deref reads the word addressed by local slot i.
func Deref(i uint64) Arg { return Arg{Kind: ArgDeref, Value: i} }

// RefExternal is the address of an external symbol.
func RefExternal(name string) Arg { return Arg{Kind: ArgRefExternal, Name: name} }

// RefAutoVar is the address of local slot i.
func RefAutoVar(i uint64) Arg { return Arg{Kind: ArgRefAutoVar, Value: i} }

// Literal is an immediate word.
func Literal(v uint64) Arg { return Arg{Kind: ArgLiteral, Value: v} }

// DataOffset is an address into the constant data blob.
func DataOffset(off uint64) Arg { return Arg{Kind: ArgDataOffset, Value: off} }

// External is the value of an external symbol.
func External(name string) Arg { return Arg{Kind: ArgExternal, Name: name} }

// IsBogus reports whether a carries no value.
func (a Arg) IsBogus() bool { return a.Kind == ArgBogus }

func (a Arg) String() string {
	switch {
	case a.Kind == ArgBogus:
		return "bogus"
	case a.Kind.Named():
		return fmt.Sprintf("%s(%s)", a.Kind, a.Name)
	default:
		return fmt.Sprintf("%s(%d)", a.Kind, a.Value)
	}
}
