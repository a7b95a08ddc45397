package vm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/toi-lang/toi/bytecode"
	"github.com/toi-lang/toi/errz"
	"github.com/toi-lang/toi/op"
)

func checkCallArgs(fn *bytecode.Function, argc int) error {
	paramsCount := fn.Arity()
	if argc == paramsCount {
		return nil
	}
	msg := fmt.Sprintf("args error: function %q", fn.Name())
	switch paramsCount {
	case 0:
		msg = fmt.Sprintf("%s takes 0 arguments (%d given)", msg, argc)
	case 1:
		msg = fmt.Sprintf("%s takes 1 argument (%d given)", msg, argc)
	default:
		msg = fmt.Sprintf("%s takes %d arguments (%d given)", msg, paramsCount, argc)
	}
	return fmt.Errorf("%s", msg)
}

// binaryOp applies a supported binary operation. Arithmetic wraps on
// overflow. It reports false only for division by zero.
func binaryOp(bop op.BinaryOpType, left, right int64) (int64, bool) {
	switch bop {
	case op.Plus:
		return left + right, true
	case op.Subtract:
		return left - right, true
	case op.Multiply:
		return left * right, true
	case op.Divide:
		if right == 0 {
			return 0, false
		}
		return left / right, true
	case op.GreaterThan:
		return boolToInt(left > right), true
	case op.LessThan:
		return boolToInt(left < right), true
	}
	panic(fmt.Sprintf("unsupported binary operation %d", bop))
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// println writes the values in declaration order on one line.
func (vm *VirtualMachine) println(values []int64) error {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatInt(v, 10)
	}
	if _, err := fmt.Fprintln(vm.output, strings.Join(parts, ", ")); err != nil {
		return fmt.Errorf("println: %w", err)
	}
	return nil
}

func (vm *VirtualMachine) fail(f *frame, ip int, instr bytecode.Instruction, kind errz.Kind, format string, args ...any) *errz.Error {
	return errz.AtInstruction(kind, f.code.name, ip, instr.Opcode.String(), format, args...)
}

func (vm *VirtualMachine) underflow(f *frame, ip int, instr bytecode.Instruction, need int) *errz.Error {
	return vm.fail(f, ip, instr, errz.StackUnderflow,
		"need %d value(s), stack holds %d", need, len(f.stack))
}

func (vm *VirtualMachine) overflow(f *frame, ip int, instr bytecode.Instruction) *errz.Error {
	return vm.fail(f, ip, instr, errz.StackOverflow,
		"evaluation stack exceeds %d values", MaxStackDepth)
}

func (vm *VirtualMachine) slotOutOfRange(f *frame, ip int, instr bytecode.Instruction) *errz.Error {
	return vm.fail(f, ip, instr, errz.IndexOutOfRange,
		"variable slot %d out of range (%s has %d)", instr.Operand, f.code.name, len(f.slots))
}
