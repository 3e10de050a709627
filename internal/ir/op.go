package ir

import "fmt"

// Binop is a binary operator. The numeric value is the wire tag.
type Binop uint8

const (
	BinopPlus         Binop = 0x00
	BinopMinus        Binop = 0x01
	BinopMult         Binop = 0x02
	BinopMod          Binop = 0x03
	BinopDiv          Binop = 0x04
	BinopLess         Binop = 0x05
	BinopGreater      Binop = 0x06
	BinopEqual        Binop = 0x07
	BinopNotEqual     Binop = 0x08
	BinopGreaterEqual Binop = 0x09
	BinopLessEqual    Binop = 0x0A
	BinopBitOr        Binop = 0x0B
	BinopBitAnd       Binop = 0x0C
	BinopBitShl       Binop = 0x0D
	BinopBitShr       Binop = 0x0E
)

var binopNames = [...]string{
	BinopPlus:         "plus",
	BinopMinus:        "minus",
	BinopMult:         "mult",
	BinopMod:          "mod",
	BinopDiv:          "div",
	BinopLess:         "lt",
	BinopGreater:      "gt",
	BinopEqual:        "eq",
	BinopNotEqual:     "ne",
	BinopGreaterEqual: "ge",
	BinopLessEqual:    "le",
	BinopBitOr:        "or",
	BinopBitAnd:       "and",
	BinopBitShl:       "shl",
	BinopBitShr:       "shr",
}

// Valid reports whether b is a known operator tag.
func (b Binop) Valid() bool { return int(b) < len(binopNames) }

func (b Binop) String() string {
	if b.Valid() {
		return binopNames[b]
	}
	return fmt.Sprintf("Binop(%#04x)", uint8(b))
}

// ParseBinop returns the operator with the given short name.
func ParseBinop(name string) (Binop, bool) {
	for i, n := range binopNames {
		if n == name {
			return Binop(i), true
		}
	}
	return 0, false
}

// OpKind identifies an instruction variant. The numeric value is the wire tag.
type OpKind uint8

const (
	OpBogus          OpKind = 0x00
	OpReturn         OpKind = 0x01
	OpStore          OpKind = 0x02
	OpExternalAssign OpKind = 0x03
	OpAutoAssign     OpKind = 0x04
	OpNegate         OpKind = 0x05
	OpUnaryNot       OpKind = 0x06
	OpBinop          OpKind = 0x07
	OpAsm            OpKind = 0x08
	OpLabel          OpKind = 0x09
	OpJump           OpKind = 0x0A
	OpJumpIfNot      OpKind = 0x0B
	OpFuncall        OpKind = 0x0C
	OpIndex          OpKind = 0x0D
)

var opKindNames = [...]string{
	OpBogus:          "bogus",
	OpReturn:         "return",
	OpStore:          "store",
	OpExternalAssign: "extrn_assign",
	OpAutoAssign:     "auto_assign",
	OpNegate:         "negate",
	OpUnaryNot:       "not",
	OpBinop:          "binop",
	OpAsm:            "asm",
	OpLabel:          "label",
	OpJump:           "jmp",
	OpJumpIfNot:      "jmp_if_not",
	OpFuncall:        "call",
	OpIndex:          "index",
}

// Valid reports whether k is a known instruction tag.
func (k OpKind) Valid() bool { return int(k) < len(opKindNames) }

func (k OpKind) String() string {
	if k.Valid() {
		return opKindNames[k]
	}
	return fmt.Sprintf("OpKind(%#04x)", uint8(k))
}

// ParseOpKind returns the instruction kind with the given short name.
func ParseOpKind(name string) (OpKind, bool) {
	for i, n := range opKindNames {
		if n == name {
			return OpKind(i), true
		}
	}
	return 0, false
}

// HasSlot reports whether ops of this kind write or address a local slot.
func (k OpKind) HasSlot() bool {
	switch k {
	case OpStore, OpAutoAssign, OpNegate, OpUnaryNot, OpBinop, OpFuncall, OpIndex:
		return true
	}
	return false
}

// Loc is a source position.
type Loc struct {
	Line   uint64 `json:"line"`
	Column uint64 `json:"column"`
}

func (l Loc) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// Op is one instruction. Which fields are meaningful depends on Kind:
//
//	Return          Arg (Bogus means no value)
//	Store           Slot, Arg        *slot = arg
//	ExternalAssign  Name, Arg
//	AutoAssign      Slot, Arg
//	Negate          Slot, Arg
//	UnaryNot        Slot, Arg
//	Binop           Slot, Binop, Lhs, Rhs
//	Asm             Lines
//	Label, Jump     Label
//	JumpIfNot       Label, Arg
//	Funcall         Slot, Arg (callee), Args
//	Index           Slot, Lhs (base), Rhs (offset)
type Op struct {
	Kind  OpKind
	Loc   Loc
	Slot  uint64
	Name  string
	Binop Binop
	Label uint64
	Arg   Arg
	Lhs   Arg
	Rhs   Arg
	Args  []Arg
	Lines []string
}

// At returns a copy of op positioned at line:column.
func (op Op) At(line, column uint64) Op {
	op.Loc = Loc{Line: line, Column: column}
	return op
}

// Return builds a Return op. Pass the zero Arg for a bare return.
func Return(arg Arg) Op { return Op{Kind: OpReturn, Arg: arg} }

// Store builds *slot = arg.
func Store(slot uint64, arg Arg) Op { return Op{Kind: OpStore, Slot: slot, Arg: arg} }

// ExternalAssign builds name = arg.
func ExternalAssign(name string, arg Arg) Op {
	return Op{Kind: OpExternalAssign, Name: name, Arg: arg}
}

// AutoAssign builds slot = arg.
func AutoAssign(slot uint64, arg Arg) Op { return Op{Kind: OpAutoAssign, Slot: slot, Arg: arg} }

// Negate builds slot = -arg.
func Negate(slot uint64, arg Arg) Op { return Op{Kind: OpNegate, Slot: slot, Arg: arg} }

// UnaryNot builds slot = !arg.
func UnaryNot(slot uint64, arg Arg) Op { return Op{Kind: OpUnaryNot, Slot: slot, Arg: arg} }

// BinaryOp builds slot = lhs <b> rhs.
func BinaryOp(slot uint64, b Binop, lhs, rhs Arg) Op {
	return Op{Kind: OpBinop, Slot: slot, Binop: b, Lhs: lhs, Rhs: rhs}
}

// Asm builds an inline assembly block.
func Asm(lines ...string) Op { return Op{Kind: OpAsm, Lines: lines} }

// Label declares label id at this position.
func Label(id uint64) Op { return Op{Kind: OpLabel, Label: id} }

// Jump transfers control to label id.
func Jump(id uint64) Op { return Op{Kind: OpJump, Label: id} }

// JumpIfNot transfers control to label id when arg is zero.
func JumpIfNot(id uint64, arg Arg) Op { return Op{Kind: OpJumpIfNot, Label: id, Arg: arg} }

// Funcall builds slot = callee(args...).
func Funcall(slot uint64, callee Arg, args ...Arg) Op {
	return Op{Kind: OpFuncall, Slot: slot, Arg: callee, Args: args}
}

// Index builds slot = base + offset*WordSize.
func Index(slot uint64, base, offset Arg) Op {
	return Op{Kind: OpIndex, Slot: slot, Lhs: base, Rhs: offset}
}

// Operands returns every Arg the op reads, in wire order.
func (op Op) Operands() []Arg {
	switch op.Kind {
	case OpReturn, OpStore, OpExternalAssign, OpAutoAssign, OpNegate, OpUnaryNot, OpJumpIfNot:
		return []Arg{op.Arg}
	case OpBinop, OpIndex:
		return []Arg{op.Lhs, op.Rhs}
	case OpFuncall:
		return append([]Arg{op.Arg}, op.Args...)
	}
	return nil
}
