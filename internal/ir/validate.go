package ir

import (
	"fmt"
	"strings"
)

// ValidationError describes one structural problem in a Program.
type ValidationError struct {
	Func    string `json:"func,omitempty"`
	Index   int    `json:"index"` // instruction index, -1 when not instruction specific
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	switch {
	case e.Func != "" && e.Index >= 0:
		return fmt.Sprintf("%s[%d]: %s: %s", e.Func, e.Index, e.Field, e.Message)
	case e.Func != "":
		return fmt.Sprintf("%s: %s: %s", e.Func, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is every problem found by Validate.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("invalid program: %s", strings.Join(msgs, "; "))
}

// Validate checks the structural invariants the encoder and interpreter
// rely on. It collects all problems rather than stopping at the first.
// Returns nil when the program is well formed.
func (p *Program) Validate() error {
	var errs ValidationErrors

	seenFuncs := make(map[string]bool, len(p.Funcs))
	for _, fn := range p.Funcs {
		if fn.Name == "" {
			errs = append(errs, ValidationError{Index: -1, Field: "func.name", Message: "function name is empty"})
		}
		if seenFuncs[fn.Name] {
			errs = append(errs, ValidationError{Func: fn.Name, Index: -1, Field: "func.name", Message: "duplicate function name"})
		}
		seenFuncs[fn.Name] = true
		errs = append(errs, validateFunc(fn)...)
	}

	for _, g := range p.Globals {
		if g.Name == "" {
			errs = append(errs, ValidationError{Index: -1, Field: "global.name", Message: "global name is empty"})
		}
		for _, v := range g.Values {
			if v.Kind > ImmDataOffset {
				errs = append(errs, ValidationError{Index: -1, Field: "global." + g.Name, Message: fmt.Sprintf("unknown immediate kind %s", v.Kind)})
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func validateFunc(fn Func) []ValidationError {
	var errs []ValidationError
	fail := func(idx int, field, format string, args ...any) {
		errs = append(errs, ValidationError{Func: fn.Name, Index: idx, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if fn.Params > fn.AutoVars {
		fail(-1, "params", "%d parameters exceed %d autovars", fn.Params, fn.AutoVars)
	}

	labels := make(map[uint64]bool)
	for i, op := range fn.Body {
		if op.Kind == OpLabel {
			if op.Label >= uint64(len(fn.Body)) {
				fail(i, "label", "label id %d exceeds body length %d", op.Label, len(fn.Body))
			}
			if labels[op.Label] {
				fail(i, "label", "label %d declared twice", op.Label)
			}
			labels[op.Label] = true
		}
	}

	for i, op := range fn.Body {
		if !op.Kind.Valid() {
			fail(i, "kind", "unknown op kind %s", op.Kind)
			continue
		}
		if op.Kind.HasSlot() && op.Slot >= fn.AutoVars {
			fail(i, "slot", "slot %d out of range (%d autovars)", op.Slot, fn.AutoVars)
		}
		if op.Kind == OpBinop && !op.Binop.Valid() {
			fail(i, "binop", "unknown operator %s", op.Binop)
		}
		if (op.Kind == OpJump || op.Kind == OpJumpIfNot) && !labels[op.Label] {
			fail(i, "label", "jump to undeclared label %d", op.Label)
		}
		if op.Kind == OpExternalAssign && op.Name == "" {
			fail(i, "name", "external assignment without a name")
		}
		for _, arg := range op.Operands() {
			switch {
			case !arg.Kind.Valid():
				fail(i, "arg", "unknown operand kind %s", arg.Kind)
			case arg.Kind.Slotted() && arg.Value >= fn.AutoVars:
				fail(i, "arg", "%s out of range (%d autovars)", arg, fn.AutoVars)
			case arg.Kind.Named() && arg.Name == "":
				fail(i, "arg", "%s operand without a name", arg.Kind)
			}
		}
	}
	return errs
}
