package vm

import (
	"context"
	"errors"

	"github.com/roach88/bir/internal/codec"
	"github.com/roach88/bir/internal/ir"
)

// action tells the run loop what to do after an instruction.
type action int

const (
	actNext   action = iota // advance pc
	actStay                 // pc already set by a jump
	actCall                 // a callee frame was pushed
	actReturn               // the current frame returned
)

// run executes until the bottom frame returns or a fault occurs.
func (vm *VM) run(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, &RuntimeFault{Code: FaultCanceled, Message: "call canceled", Index: -1, Err: err}
	}
	for {
		f := &vm.frames[len(vm.frames)-1]

		var (
			act   action
			value uint64
			err   error
		)
		if f.pc >= len(f.fn.Body) {
			act = actReturn
		} else {
			vm.steps++
			if vm.steps%cancelCheckInterval == 0 {
				if cerr := ctx.Err(); cerr != nil {
					return 0, vm.locate(f, &RuntimeFault{Code: FaultCanceled, Message: "call canceled", Err: cerr})
				}
			}
			act, value, err = vm.step(f, &f.fn.Body[f.pc])
			if err != nil {
				return 0, vm.locate(f, err)
			}
		}

		switch act {
		case actNext:
			f.pc++
		case actReturn:
			done, err := vm.ret(value)
			if err != nil {
				return 0, err
			}
			if done {
				return value, nil
			}
		}
	}
}

// ret pops the current frame and delivers value to the caller's
// destination slot. done is true when the bottom frame returned.
func (vm *VM) ret(value uint64) (done bool, err error) {
	vm.pop()
	if len(vm.frames) == 0 {
		return true, nil
	}
	caller := &vm.frames[len(vm.frames)-1]
	op := &caller.fn.Body[caller.pc]
	if err := vm.mem.store(caller.slotAddr(op.Slot), value); err != nil {
		return false, vm.locate(caller, err)
	}
	caller.pc++
	return false, nil
}

// locate fills in the position of the instruction f is executing.
func (vm *VM) locate(f *frame, err error) error {
	name := vm.module.Sym(f.fn.Name)
	var loc ir.Loc
	if f.pc < len(f.fn.Body) {
		loc = f.fn.Body[f.pc].Loc
	}

	var rf *RuntimeFault
	if errors.As(err, &rf) && rf.Func == "" {
		rf.Func, rf.Index, rf.Loc = name, f.pc, loc
		return rf
	}
	var ue *UndefinedSymbolError
	if errors.As(err, &ue) && ue.Func == "" {
		ue.Func, ue.Index, ue.Loc = name, f.pc, loc
		return ue
	}
	return err
}

func (vm *VM) step(f *frame, op *codec.Op) (action, uint64, error) {
	switch op.Kind {
	case ir.OpLabel:
		return actNext, 0, nil

	case ir.OpReturn:
		if op.Arg.Kind == ir.ArgBogus {
			return actReturn, 0, nil
		}
		v, err := vm.value(f, op.Arg)
		return actReturn, v, err

	case ir.OpStore:
		v, err := vm.value(f, op.Arg)
		if err != nil {
			return 0, 0, err
		}
		ptr, err := vm.mem.load(f.slotAddr(op.Slot))
		if err != nil {
			return 0, 0, err
		}
		return actNext, 0, vm.mem.store(ptr, v)

	case ir.OpExternalAssign:
		v, err := vm.value(f, op.Arg)
		if err != nil {
			return 0, 0, err
		}
		return actNext, 0, vm.assignExternal(op.Name, v)

	case ir.OpAutoAssign, ir.OpNegate, ir.OpUnaryNot:
		v, err := vm.value(f, op.Arg)
		if err != nil {
			return 0, 0, err
		}
		switch op.Kind {
		case ir.OpNegate:
			v = -v
		case ir.OpUnaryNot:
			v = boolWord(v == 0)
		}
		return actNext, 0, vm.mem.store(f.slotAddr(op.Slot), v)

	case ir.OpBinop:
		l, err := vm.value(f, op.Lhs)
		if err != nil {
			return 0, 0, err
		}
		r, err := vm.value(f, op.Rhs)
		if err != nil {
			return 0, 0, err
		}
		v, err := evalBinop(op.Binop, l, r)
		if err != nil {
			return 0, 0, err
		}
		return actNext, 0, vm.mem.store(f.slotAddr(op.Slot), v)

	case ir.OpJump:
		return vm.jump(f, op.Label)

	case ir.OpJumpIfNot:
		v, err := vm.value(f, op.Arg)
		if err != nil {
			return 0, 0, err
		}
		if v != 0 {
			return actNext, 0, nil
		}
		return vm.jump(f, op.Label)

	case ir.OpFuncall:
		return vm.call(f, op)

	case ir.OpIndex:
		base, err := vm.value(f, op.Lhs)
		if err != nil {
			return 0, 0, err
		}
		off, err := vm.value(f, op.Rhs)
		if err != nil {
			return 0, 0, err
		}
		return actNext, 0, vm.mem.store(f.slotAddr(op.Slot), base+off*ir.WordSize)

	case ir.OpAsm:
		return 0, 0, fault(FaultUnsupportedOp, "inline asm cannot be interpreted")
	}
	return 0, 0, fault(FaultUnsupportedOp, "%s instruction cannot be executed", op.Kind)
}

// jump continues at the instruction after the label's declaration.
func (vm *VM) jump(f *frame, label uint64) (action, uint64, error) {
	target, ok := f.fn.Target(label)
	if !ok {
		return 0, 0, fault(FaultUnsupportedOp, "jump to undeclared label %d", label)
	}
	f.pc = target + 1
	return actStay, 0, nil
}

func (vm *VM) call(f *frame, op *codec.Op) (action, uint64, error) {
	callee, err := vm.value(f, op.Arg)
	if err != nil {
		return 0, 0, err
	}
	args := make([]uint64, len(op.Args))
	for i, a := range op.Args {
		if args[i], err = vm.value(f, a); err != nil {
			return 0, 0, err
		}
	}

	idx := int(callee & handleMask)
	switch callee &^ handleMask {
	case handleFunc:
		if idx < len(vm.module.Funcs) {
			// f must not be used after push: the frame slice may move.
			return actCall, 0, vm.push(idx, args)
		}
	case handleBuiltin:
		if idx < len(vm.builtins) {
			v, err := vm.builtins[idx](vm, args)
			if err != nil {
				var rf *RuntimeFault
				if !errors.As(err, &rf) {
					err = &RuntimeFault{Code: FaultBuiltin, Message: vm.builtinNames[idx] + ": " + err.Error(), Index: -1, Err: err}
				}
				return 0, 0, err
			}
			return actNext, 0, vm.mem.store(f.slotAddr(op.Slot), v)
		}
	}
	return 0, 0, fault(FaultBadCallee, "value %#x is not a function", callee)
}

// value resolves an operand to a word.
func (vm *VM) value(f *frame, a codec.Arg) (uint64, error) {
	switch a.Kind {
	case ir.ArgAutoVar:
		return vm.mem.load(f.slotAddr(a.Value))
	case ir.ArgDeref:
		ptr, err := vm.mem.load(f.slotAddr(a.Value))
		if err != nil {
			return 0, err
		}
		return vm.mem.load(ptr)
	case ir.ArgRefAutoVar:
		return f.slotAddr(a.Value), nil
	case ir.ArgLiteral:
		return a.Value, nil
	case ir.ArgDataOffset:
		return DataBase + a.Value, nil
	case ir.ArgExternal:
		return vm.externalValue(a.Value)
	case ir.ArgRefExternal:
		return vm.address(a.Value)
	}
	return 0, fault(FaultUnsupportedOperand, "%s operand has no value", a.Kind)
}

// externalValue is the value of a symbol: the word stored in a global, an
// assigned external, or the handle of a function or builtin.
func (vm *VM) externalValue(sym codec.Sym) (uint64, error) {
	if addr, ok := vm.globals[sym]; ok {
		return vm.mem.load(addr)
	}
	if v, ok := vm.externals[sym]; ok {
		return v, nil
	}
	return vm.address(sym)
}

// address is the address of a global, or the handle of a function or
// builtin. Assigned externals have no address.
func (vm *VM) address(sym codec.Sym) (uint64, error) {
	if addr, ok := vm.globals[sym]; ok {
		return addr, nil
	}
	if i, ok := vm.funcs[sym]; ok {
		return handleFunc | uint64(i), nil
	}
	if i, ok := vm.builtinSyms[sym]; ok {
		return handleBuiltin | uint64(i), nil
	}
	return 0, &UndefinedSymbolError{Name: vm.module.Sym(sym), Index: -1}
}

func (vm *VM) assignExternal(sym codec.Sym, v uint64) error {
	if addr, ok := vm.globals[sym]; ok {
		return vm.mem.store(addr, v)
	}
	vm.externals[sym] = v
	return nil
}

// evalBinop applies b. Additive, bitwise and shift operators are unsigned
// with wraparound; mult, div, mod and comparisons are signed.
func evalBinop(b ir.Binop, l, r uint64) (uint64, error) {
	sl, sr := int64(l), int64(r)
	switch b {
	case ir.BinopPlus:
		return l + r, nil
	case ir.BinopMinus:
		return l - r, nil
	case ir.BinopMult:
		return uint64(sl * sr), nil
	case ir.BinopDiv:
		if r == 0 {
			return 0, fault(FaultDivisionByZero, "division by zero")
		}
		return uint64(sl / sr), nil
	case ir.BinopMod:
		if r == 0 {
			return 0, fault(FaultDivisionByZero, "modulo by zero")
		}
		return uint64(sl % sr), nil
	case ir.BinopLess:
		return boolWord(sl < sr), nil
	case ir.BinopGreater:
		return boolWord(sl > sr), nil
	case ir.BinopEqual:
		return boolWord(l == r), nil
	case ir.BinopNotEqual:
		return boolWord(l != r), nil
	case ir.BinopGreaterEqual:
		return boolWord(sl >= sr), nil
	case ir.BinopLessEqual:
		return boolWord(sl <= sr), nil
	case ir.BinopBitOr:
		return l | r, nil
	case ir.BinopBitAnd:
		return l & r, nil
	case ir.BinopBitShl:
		return l << r, nil
	case ir.BinopBitShr:
		return l >> r, nil
	}
	return 0, fault(FaultUnsupportedOp, "unknown operator %s", b)
}

func boolWord(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
