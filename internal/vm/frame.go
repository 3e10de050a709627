package vm

import (
	"github.com/roach88/bir/internal/codec"
	"github.com/roach88/bir/internal/ir"
)

// frame is one active call. Its autozone occupies fn.AutoVars words of
// memory starting at base.
type frame struct {
	fn    *codec.Func
	index int
	pc    int
	base  uint64
}

func (f *frame) slotAddr(slot uint64) uint64 {
	return f.base + slot*ir.WordSize
}

// push allocates a frame for function idx and binds its parameters.
func (vm *VM) push(idx int, args []uint64) error {
	fn := &vm.module.Funcs[idx]
	if len(vm.frames) >= vm.maxDepth {
		return fault(FaultStackOverflow, "call depth %d exceeds limit %d calling %s", len(vm.frames)+1, vm.maxDepth, vm.module.Sym(fn.Name))
	}
	size := fn.AutoVars * ir.WordSize
	if fn.AutoVars > vm.mem.size()/ir.WordSize || vm.sp+size > vm.mem.size() {
		return fault(FaultStackOverflow, "autozone of %d words for %s does not fit in memory", fn.AutoVars, vm.module.Sym(fn.Name))
	}

	f := frame{fn: fn, index: idx, base: vm.sp}
	vm.mem.zero(f.base, fn.AutoVars)
	for i := uint64(0); i < fn.Params && i < uint64(len(args)); i++ {
		if err := vm.mem.store(f.slotAddr(i), args[i]); err != nil {
			return err
		}
	}
	vm.sp += size
	vm.frames = append(vm.frames, f)
	return nil
}

// pop discards the top frame and releases its autozone.
func (vm *VM) pop() {
	top := vm.frames[len(vm.frames)-1]
	vm.sp = top.base
	vm.frames = vm.frames[:len(vm.frames)-1]
}
