package vm

import (
	"github.com/toi-lang/toi/bytecode"
)

// code is the VM's loaded view of one function: the instruction stream and
// the frame layout, copied out of the immutable bytecode.Function once and
// reused for every call.
type code struct {
	fn           *bytecode.Function
	name         string
	instructions []byte
	arity        int
	localCount   int
	outSlot      int
	hasOutVar    bool
}

func wrapCode(fn *bytecode.Function) *code {
	return &code{
		fn:           fn,
		name:         fn.Name(),
		instructions: fn.Instructions(),
		arity:        fn.Arity(),
		localCount:   fn.LocalCount(),
		outSlot:      fn.OutSlot(),
		hasOutVar:    fn.HasOutVar(),
	}
}

// loadCode returns the loaded code for fn, wrapping it on first use.
func (vm *VirtualMachine) loadCode(fn *bytecode.Function) *code {
	if c, ok := vm.loadedCode[fn]; ok {
		return c
	}
	c := wrapCode(fn)
	vm.loadedCode[fn] = c
	return c
}
