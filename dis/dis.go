// Package dis supports analysis of toi bytecode by disassembling it.
// This works with the opcodes defined in the `op` package and uses the
// InstructionIter type from the `bytecode` package.
package dis

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/toi-lang/toi/bytecode"
	"github.com/toi-lang/toi/errz"
	"github.com/toi-lang/toi/internal/table"
	"github.com/toi-lang/toi/op"
)

// Instruction represents a single bytecode instruction and its operands.
type Instruction struct {
	Offset     int
	Name       string
	Opcode     op.Code
	Operands   []int
	Annotation string

	// Constant is the pool entry referenced by LOAD_CONSTANT or
	// CALL_FUNCTION, nil for other opcodes.
	Constant *bytecode.Constant
}

// Disassemble returns a parsed representation of the instruction stream of
// fn, resolving constant, variable and jump operands against the program.
func Disassemble(program *bytecode.Program, fn *bytecode.Function) ([]Instruction, error) {
	var instructions []Instruction
	iter := bytecode.NewInstructionIter(fn)
	for {
		offset, instr, ok := iter.Next()
		if !ok {
			break
		}
		info := op.GetInfo(instr.Opcode)
		result := Instruction{
			Offset: offset,
			Name:   info.Name,
			Opcode: instr.Opcode,
		}
		if info.OperandWidth > 0 {
			result.Operands = []int{instr.Operand}
		}
		outOfRange := func(what string, size int) error {
			return errz.AtInstruction(errz.IndexOutOfRange, fn.Name(), offset, info.Name,
				"%s index %d out of range (%d available)", what, instr.Operand, size)
		}
		switch instr.Opcode {
		case op.LoadConstant, op.CallFunction:
			if instr.Operand >= program.ConstantCount() {
				return nil, outOfRange("constant", program.ConstantCount())
			}
			c := program.ConstantAt(instr.Operand)
			result.Constant = &c
			result.Annotation = fmt.Sprintf("%v", c.Value())
		case op.ReadVariable, op.SetVariable:
			if instr.Operand >= fn.LocalCount() {
				return nil, outOfRange("variable", fn.LocalCount())
			}
			result.Annotation = fn.VariableAt(instr.Operand)
		case op.Binary:
			result.Annotation = op.BinaryOpType(instr.Operand).String()
		case op.JumpIfFalse, op.JumpForward, op.JumpBack:
			next := offset + instr.Width()
			if instr.Opcode == op.JumpBack {
				result.Annotation = fmt.Sprintf("to %d", next-instr.Operand)
			} else {
				result.Annotation = fmt.Sprintf("to %d", next+instr.Operand)
			}
		}
		instructions = append(instructions, result)
	}
	if err := iter.Err(); err != nil {
		var e *errz.Error
		if errors.As(err, &e) {
			e.Function = fn.Name()
		}
		return nil, err
	}
	return instructions, nil
}

var (
	bold    = color.New(color.Bold).SprintFunc()
	yellow  = color.New(color.FgYellow).SprintFunc()
	green   = color.New(color.FgGreen).SprintFunc()
	magenta = color.New(color.FgMagenta).SprintFunc()
	cyan    = color.New(color.FgHiCyan).SprintFunc()
)

// Print a string representation of the given instructions to the given writer.
func Print(instructions []Instruction, writer io.Writer) error {
	var lines [][]string
	for _, instr := range instructions {
		var values []string
		values = append(values, fmt.Sprintf("%d", instr.Offset))
		values = append(values, bold(instr.Name))
		values = append(values, formatOperands(instr.Operands))
		switch {
		case instr.Constant != nil && instr.Opcode == op.CallFunction:
			name, ok := instr.Constant.Str()
			if ok {
				values = append(values, magenta("func:"+name))
			} else {
				values = append(values, bold(instr.Constant.String()))
			}
		case instr.Constant != nil:
			switch c := instr.Constant.Value().(type) {
			case int64:
				values = append(values, yellow(fmt.Sprintf("%d", c)))
			case string:
				c = runewidth.Truncate(c, 80, "...")
				values = append(values, green(fmt.Sprintf("%q", c)))
			}
		case instr.Annotation != "":
			values = append(values, cyan(instr.Annotation))
		default:
			values = append(values, "")
		}
		lines = append(lines, values)
	}

	return table.NewTable(writer).
		WithHeader([]string{"OFFSET", "OPCODE", "OPERANDS", "INFO"}).
		WithColumnAlignment([]table.Alignment{
			table.AlignRight,
			table.AlignLeft,
			table.AlignRight,
			table.AlignLeft,
		}).
		WithHeaderAlignment([]table.Alignment{
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
		}).
		WithRows(lines).
		Render()
}

func formatOperands(operands []int) string {
	var sb strings.Builder
	for i, operand := range operands {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprintf("%d", operand))
	}
	return sb.String()
}
