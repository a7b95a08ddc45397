// Package vm provides a VirtualMachine that executes toi programs.
package vm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/toi-lang/toi/bytecode"
	"github.com/toi-lang/toi/errz"
	"github.com/toi-lang/toi/op"
)

const (
	// MaxStackDepth is the largest number of values one frame's evaluation
	// stack may hold.
	MaxStackDepth = 1024

	// DefaultMaxCallDepth is the default limit on nested frames, the
	// top-level frame included.
	DefaultMaxCallDepth = 1024

	// DefaultContextCheckInterval is the number of instructions between
	// deterministic checks of ctx.Done(). Set to 0 to disable.
	DefaultContextCheckInterval = 1000
)

// VirtualMachine executes one Program. A VirtualMachine runs one thing at a
// time; the Program it executes is shared read-only and may be given to any
// number of machines.
type VirtualMachine struct {
	program    *bytecode.Program
	output     io.Writer
	logger     zerolog.Logger
	loadedCode map[*bytecode.Function]*code

	maxCallDepth int

	// contextCheckInterval is the number of instructions between
	// deterministic checks of ctx.Done(). A value of 0 disables deterministic
	// checking, relying only on the background goroutine.
	contextCheckInterval int

	// observer receives callbacks for execution events. If nil, no callbacks
	// are made.
	observer Observer

	runMutex sync.Mutex
	running  bool
	stopped  chan struct{}

	// Per-run state.
	halt       *atomic.Bool
	obs        *observerState
	done       <-chan struct{}
	sinceCheck int
	steps      int64
}

// New creates a new Virtual Machine for the given program.
func New(program *bytecode.Program, options ...Option) *VirtualMachine {
	vm := &VirtualMachine{
		program:              program,
		output:               os.Stdout,
		logger:               zerolog.Nop(),
		loadedCode:           map[*bytecode.Function]*code{},
		maxCallDepth:         DefaultMaxCallDepth,
		contextCheckInterval: DefaultContextCheckInterval,
	}
	for _, opt := range options {
		opt(vm)
	}
	return vm
}

func (vm *VirtualMachine) start(ctx context.Context) error {
	vm.runMutex.Lock()
	defer vm.runMutex.Unlock()
	if vm.program == nil {
		return errors.New("no program to run")
	}
	if vm.running {
		return errors.New("vm is already running")
	}
	vm.running = true
	vm.obs = newObserverState(vm.observer)
	vm.sinceCheck = 0
	vm.steps = 0
	// Halt execution when the context is cancelled
	halt := &atomic.Bool{}
	vm.halt = halt
	vm.done = ctx.Done()
	vm.stopped = make(chan struct{})
	if vm.done != nil {
		go func(done, stopped <-chan struct{}) {
			select {
			case <-done:
				halt.Store(true)
			case <-stopped:
			}
		}(vm.done, vm.stopped)
	}
	return nil
}

func (vm *VirtualMachine) stop() {
	vm.runMutex.Lock()
	defer vm.runMutex.Unlock()
	close(vm.stopped)
	vm.running = false
}

// Run executes the program's top-level instructions and returns the final
// state of the top-level frame.
func (vm *VirtualMachine) Run(ctx context.Context) (result Result, err error) {
	// Set up some guarantees:
	// 1. It is an error to call Run on a VM that is already running
	// 2. The running flag will always be set to false when Run returns
	// 3. Any panics are translated to errors and the VM is stopped
	if err := vm.start(ctx); err != nil {
		return Result{}, err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		vm.stop()
	}()

	stats := vm.program.Stats()
	vm.logger.Debug().
		Int("functions", stats.FunctionCount).
		Int("constants", stats.ConstantCount).
		Int("instruction_bytes", stats.InstructionBytes).
		Msg("run started")

	var f frame
	f.activate(vm.loadCode(vm.program.Main()), 1)
	if err := vm.execute(ctx, &f); err != nil {
		vm.logger.Debug().Err(err).Int64("steps", vm.steps).Msg("run failed")
		return Result{}, err
	}

	result = Result{
		Stack:     copyInt64s(f.stack),
		Variables: copyInt64s(f.slots),
		Steps:     vm.steps,
	}
	if n := len(f.stack); n > 0 {
		result.Value = f.stack[n-1]
	}
	vm.logger.Debug().
		Int64("value", result.Value).
		Int64("steps", vm.steps).
		Msg("run finished")
	return result, nil
}

// Call invokes the named function with explicit arguments, using the same
// calling convention as CALL_FUNCTION, and returns its result.
func (vm *VirtualMachine) Call(ctx context.Context, name string, args ...int64) (result int64, err error) {
	if vm.program == nil {
		return 0, errors.New("no program to run")
	}
	fn, ok := vm.program.Function(name)
	if !ok {
		return 0, errz.New(errz.UndefinedFunction, "function %q is not defined", name)
	}
	if err := checkCallArgs(fn, len(args)); err != nil {
		return 0, err
	}
	if err := vm.start(ctx); err != nil {
		return 0, err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		vm.stop()
	}()
	return vm.invoke(ctx, fn, copyInt64s(args), 1)
}

// invoke runs fn in a new frame at the given depth with args assigned to its
// parameter slots, and returns the frame's result.
func (vm *VirtualMachine) invoke(ctx context.Context, fn *bytecode.Function, args []int64, depth int) (int64, error) {
	c := vm.loadCode(fn)
	if c.localCount < c.arity {
		e := errz.New(errz.MalformedProgram, "function %q has %d variable slot(s) for %d parameter(s)",
			c.name, c.localCount, c.arity)
		e.Function = c.name
		return 0, e
	}
	if c.hasOutVar && c.outSlot < 0 {
		e := errz.New(errz.MalformedProgram, "function %q declares an out var but has no variable slots", c.name)
		e.Function = c.name
		return 0, e
	}

	var f frame
	f.activate(c, depth)
	copy(f.slots, args)

	if vm.obs != nil && vm.obs.config.ObserveCalls {
		event := CallEvent{FunctionName: c.name, Args: args, FrameDepth: depth}
		if !vm.obs.observer.OnCall(event) {
			return 0, ErrHalted
		}
	}
	if err := vm.execute(ctx, &f); err != nil {
		return 0, err
	}
	result := f.result()
	if vm.obs != nil && vm.obs.config.ObserveReturns {
		event := ReturnEvent{FunctionName: c.name, Result: result, FrameDepth: depth - 1}
		if !vm.obs.observer.OnReturn(event) {
			return 0, ErrHalted
		}
	}
	return result, nil
}

// execute runs the frame's instruction stream until the instruction pointer
// reaches its end. There is no return opcode; falling off the end is the
// only way a body completes.
func (vm *VirtualMachine) execute(ctx context.Context, f *frame) error {
	c := f.code
	for f.ip < len(c.instructions) {
		if err := vm.checkContext(ctx); err != nil {
			return err
		}

		ip := f.ip
		instr, next, err := bytecode.Decode(c.instructions, ip)
		if err != nil {
			var e *errz.Error
			if errors.As(err, &e) {
				e.Function = c.name
			}
			return err
		}

		if vm.obs != nil && vm.obs.wantStep() {
			event := StepEvent{
				Function:   c.name,
				IP:         ip,
				Opcode:     instr.Opcode,
				OpcodeName: instr.Opcode.String(),
				Operand:    instr.Operand,
				StackDepth: len(f.stack),
				FrameDepth: f.depth,
			}
			if !vm.obs.observer.OnStep(event) {
				return ErrHalted
			}
		}

		// Advance past the opcode and its operand before executing it, so
		// jump offsets are relative to the following instruction.
		f.ip = next
		vm.steps++

		switch instr.Opcode {
		case op.Pop:
			if _, ok := f.pop(); !ok {
				return vm.underflow(f, ip, instr, 1)
			}
		case op.Binary:
			bop := op.BinaryOpType(instr.Operand)
			if bop.String() == "" {
				return vm.fail(f, ip, instr, errz.UnknownOpcode, "unknown binary operation %d", instr.Operand)
			}
			if !bop.Supported() {
				return vm.fail(f, ip, instr, errz.UnsupportedOperation, "binary operation %q is reserved", bop)
			}
			if len(f.stack) < 2 {
				return vm.underflow(f, ip, instr, 2)
			}
			right, _ := f.pop()
			left, _ := f.pop()
			value, ok := binaryOp(bop, left, right)
			if !ok {
				return vm.fail(f, ip, instr, errz.DivisionByZero, "%d / 0", left)
			}
			f.push(value)
		case op.JumpIfFalse:
			cond, ok := f.pop()
			if !ok {
				return vm.underflow(f, ip, instr, 1)
			}
			if cond == 0 {
				if err := vm.jump(f, ip, instr); err != nil {
					return err
				}
			}
		case op.JumpForward:
			if err := vm.jump(f, ip, instr); err != nil {
				return err
			}
		case op.InlineNumber:
			if !f.push(int64(instr.Operand)) {
				return vm.overflow(f, ip, instr)
			}
		case op.LoadConstant:
			index := instr.Operand
			if index >= vm.program.ConstantCount() {
				return vm.fail(f, ip, instr, errz.IndexOutOfRange,
					"constant index %d out of range (pool size %d)", index, vm.program.ConstantCount())
			}
			constant := vm.program.ConstantAt(index)
			n, ok := constant.Number()
			if !ok {
				return vm.fail(f, ip, instr, errz.UnsupportedConstantType,
					"constant %d is a %s and cannot be pushed", index, constant.Kind())
			}
			if !f.push(n) {
				return vm.overflow(f, ip, instr)
			}
		case op.ReadVariable:
			slot := instr.Operand
			if slot >= len(f.slots) {
				return vm.slotOutOfRange(f, ip, instr)
			}
			if !f.push(f.slots[slot]) {
				return vm.overflow(f, ip, instr)
			}
		case op.SetVariable:
			slot := instr.Operand
			if slot >= len(f.slots) {
				return vm.slotOutOfRange(f, ip, instr)
			}
			value, ok := f.pop()
			if !ok {
				return vm.underflow(f, ip, instr, 1)
			}
			f.slots[slot] = value
		case op.CallFunction:
			index := instr.Operand
			if index >= vm.program.ConstantCount() {
				return vm.fail(f, ip, instr, errz.IndexOutOfRange,
					"constant index %d out of range (pool size %d)", index, vm.program.ConstantCount())
			}
			constant := vm.program.ConstantAt(index)
			name, ok := constant.Str()
			if !ok {
				return vm.fail(f, ip, instr, errz.ExpectedStringConstant,
					"constant %d is %s, not a function name", index, constant)
			}
			fn, ok := vm.program.Function(name)
			if !ok {
				return vm.fail(f, ip, instr, errz.UndefinedFunction, "function %q is not defined", name)
			}
			if f.depth >= vm.maxCallDepth {
				return vm.fail(f, ip, instr, errz.StackOverflow,
					"call depth limit of %d exceeded calling %q", vm.maxCallDepth, name)
			}
			args, ok := f.popN(fn.Arity())
			if !ok {
				return vm.underflow(f, ip, instr, fn.Arity())
			}
			result, err := vm.invoke(ctx, fn, args, f.depth+1)
			if err != nil {
				var e *errz.Error
				if errors.As(err, &e) {
					e.PushFrame(c.name, ip)
				}
				return err
			}
			if !f.push(result) {
				return vm.overflow(f, ip, instr)
			}
		case op.Println:
			values, ok := f.popN(instr.Operand)
			if !ok {
				return vm.underflow(f, ip, instr, instr.Operand)
			}
			if err := vm.println(values); err != nil {
				return err
			}
			if !f.push(0) {
				return vm.overflow(f, ip, instr)
			}
		default:
			return vm.fail(f, ip, instr, errz.UnsupportedOperation, "opcode %s is reserved", instr.Opcode)
		}
	}
	return nil
}

func (vm *VirtualMachine) checkContext(ctx context.Context) error {
	if vm.halt.Load() {
		return ctx.Err()
	}
	// Deterministic check of ctx.Done() every N instructions.
	// This guarantees responsiveness regardless of goroutine scheduling.
	if vm.contextCheckInterval > 0 && vm.done != nil {
		vm.sinceCheck++
		if vm.sinceCheck >= vm.contextCheckInterval {
			vm.sinceCheck = 0
			select {
			case <-vm.done:
				vm.halt.Store(true)
				return ctx.Err()
			default:
			}
		}
	}
	return nil
}

// jump moves the instruction pointer forward by the instruction's offset.
// The target may equal the stream length, which ends the frame.
func (vm *VirtualMachine) jump(f *frame, ip int, instr bytecode.Instruction) error {
	target := f.ip + instr.Operand
	if target > len(f.code.instructions) {
		return vm.fail(f, ip, instr, errz.MalformedProgram,
			"jump target %d is outside the instruction stream of length %d", target, len(f.code.instructions))
	}
	f.ip = target
	return nil
}
