package ir

import "fmt"

// ImmediateKind identifies a global initializer variant. The numeric value
// is the wire tag.
type ImmediateKind uint8

const (
	ImmName       ImmediateKind = 0x00
	ImmLiteral    ImmediateKind = 0x01
	ImmDataOffset ImmediateKind = 0x02
)

func (k ImmediateKind) String() string {
	switch k {
	case ImmName:
		return "name"
	case ImmLiteral:
		return "lit"
	case ImmDataOffset:
		return "data"
	}
	return fmt.Sprintf("ImmediateKind(%#04x)", uint8(k))
}

// ImmediateValue is one word of a global's initializer.
type ImmediateValue struct {
	Kind  ImmediateKind
	Value uint64
	Name  string
}

// NameValue is the address of the named symbol.
func NameValue(name string) ImmediateValue { return ImmediateValue{Kind: ImmName, Name: name} }

// LiteralValue is an immediate word.
func LiteralValue(v uint64) ImmediateValue { return ImmediateValue{Kind: ImmLiteral, Value: v} }

// DataOffsetValue is an address into the data blob.
func DataOffsetValue(off uint64) ImmediateValue {
	return ImmediateValue{Kind: ImmDataOffset, Value: off}
}

func (v ImmediateValue) String() string {
	if v.Kind == ImmName {
		return fmt.Sprintf("%s(%s)", v.Kind, v.Name)
	}
	return fmt.Sprintf("%s(%d)", v.Kind, v.Value)
}

// Global is a statically allocated variable or vector.
type Global struct {
	Name    string
	Values  []ImmediateValue
	IsVec   bool
	MinSize uint64
}

// Words returns the number of element words the global occupies,
// not counting the vector header word.
func (g Global) Words() uint64 {
	n := uint64(len(g.Values))
	if g.MinSize > n {
		n = g.MinSize
	}
	return n
}

// Func is a function body. Parameters occupy slots [0, Params).
type Func struct {
	Name     string
	File     string
	Params   uint64
	AutoVars uint64
	Body     []Op
}

// Program is everything one compilation unit hands to the back end.
type Program struct {
	Externs []string
	Data    []byte
	Globals []Global
	Funcs   []Func
}

// Func returns the first function with the given name.
func (p *Program) Func(name string) (*Func, bool) {
	for i := range p.Funcs {
		if p.Funcs[i].Name == name {
			return &p.Funcs[i], true
		}
	}
	return nil, false
}
