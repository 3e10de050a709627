package vm

import (
	"errors"
	"fmt"

	"github.com/roach88/bir/internal/ir"
)

// FaultCode categorizes runtime faults.
type FaultCode string

const (
	// FaultDivisionByZero is raised by div or mod with a zero divisor.
	FaultDivisionByZero FaultCode = "DIVISION_BY_ZERO"

	// FaultStackOverflow is raised when a call exceeds the depth limit or
	// its autozone does not fit in memory.
	FaultStackOverflow FaultCode = "STACK_OVERFLOW"

	// FaultUnsupportedOp is raised when executing asm or bogus ops.
	FaultUnsupportedOp FaultCode = "UNSUPPORTED_OP"

	// FaultUnsupportedOperand is raised when an operand cannot produce a
	// value where one is required.
	FaultUnsupportedOperand FaultCode = "UNSUPPORTED_OPERAND"

	// FaultBadAddress is raised by loads and stores outside memory.
	FaultBadAddress FaultCode = "BAD_ADDRESS"

	// FaultBadCallee is raised when calling a value that is not a
	// function or builtin handle.
	FaultBadCallee FaultCode = "BAD_CALLEE"

	// FaultBuiltin wraps an error returned by a host builtin.
	FaultBuiltin FaultCode = "BUILTIN_FAILED"

	// FaultCanceled is raised when the call's context is done.
	FaultCanceled FaultCode = "CANCELED"
)

// ErrReentrantCall is returned by Call while another Call on the same VM
// is running, for example when a builtin calls back into the VM.
var ErrReentrantCall = errors.New("vm: call while another call is running")

// RuntimeFault is a terminal error in an interpreted call. It carries the
// position of the instruction that faulted.
type RuntimeFault struct {
	Code    FaultCode
	Message string

	// Func and Index locate the faulting instruction. Index is -1 when
	// the fault happened before any instruction ran.
	Func  string
	Index int
	Loc   ir.Loc

	// Err is the underlying cause, if any.
	Err error
}

func (e *RuntimeFault) Error() string {
	if e.Func == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (in %s at instruction %d, line %s)", e.Code, e.Message, e.Func, e.Index, e.Loc)
}

func (e *RuntimeFault) Unwrap() error { return e.Err }

// UndefinedSymbolError is returned when calling a function that does not
// exist or reading a symbol that has no value.
type UndefinedSymbolError struct {
	Name  string
	Func  string
	Index int
	Loc   ir.Loc
}

func (e *UndefinedSymbolError) Error() string {
	if e.Func == "" {
		return fmt.Sprintf("undefined symbol %q", e.Name)
	}
	return fmt.Sprintf("undefined symbol %q (in %s at instruction %d, line %s)", e.Name, e.Func, e.Index, e.Loc)
}

// IsFault returns true if err is a RuntimeFault with the given code.
// Uses errors.As to handle wrapped errors.
func IsFault(err error, code FaultCode) bool {
	var rf *RuntimeFault
	if errors.As(err, &rf) {
		return rf.Code == code
	}
	return false
}

// IsUndefinedSymbol returns true if err is an UndefinedSymbolError.
func IsUndefinedSymbol(err error) bool {
	var ue *UndefinedSymbolError
	return errors.As(err, &ue)
}

// FaultCodeOf returns the fault code of err, "UNDEFINED_SYMBOL" for
// undefined symbols, or "" for anything else.
func FaultCodeOf(err error) string {
	var rf *RuntimeFault
	if errors.As(err, &rf) {
		return string(rf.Code)
	}
	if IsUndefinedSymbol(err) {
		return "UNDEFINED_SYMBOL"
	}
	return ""
}

// fault builds a RuntimeFault without position. The exec loop fills in
// the position of the current instruction.
func fault(code FaultCode, format string, args ...any) *RuntimeFault {
	return &RuntimeFault{Code: code, Message: fmt.Sprintf(format, args...), Index: -1}
}
