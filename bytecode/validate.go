package bytecode

import (
	"github.com/hashicorp/go-multierror"

	"github.com/toi-lang/toi/errz"
	"github.com/toi-lang/toi/op"
)

// Validate checks the program's structure and cross references and returns
// every problem found, combined with go-multierror. Each problem is an
// *errz.Error, so errors.Is(err, errz.UndefinedFunction) and similar checks
// work on the result. Reserved opcodes are not reported: they only fail when
// executed.
func (p *Program) Validate() error {
	var result *multierror.Error
	seen := map[string]bool{}
	for _, fn := range p.functions {
		if fn.Name() == "" {
			result = multierror.Append(result, errz.New(errz.MalformedProgram, "function with empty name"))
		} else if seen[fn.Name()] {
			result = multierror.Append(result, errz.New(errz.MalformedProgram,
				"duplicate function name %q", fn.Name()))
		}
		seen[fn.Name()] = true
		result = multierror.Append(result, p.validateFunction(fn)...)
	}
	result = multierror.Append(result, p.validateFunction(p.main)...)
	return result.ErrorOrNil()
}

func (p *Program) validateFunction(fn *Function) []error {
	var errs []error
	fail := func(e *errz.Error) {
		e.Function = fn.Name()
		errs = append(errs, e)
	}
	if fn.LocalCount() < fn.Arity() {
		fail(errz.New(errz.MalformedProgram, "%d variable slot(s) cannot hold %d parameter(s)",
			fn.LocalCount(), fn.Arity()))
	} else {
		for i := 0; i < fn.Arity(); i++ {
			if fn.VariableAt(i) != fn.ParamAt(i) {
				fail(errz.New(errz.MalformedProgram, "variable slot %d is %q, expected parameter %q",
					i, fn.VariableAt(i), fn.ParamAt(i)))
			}
		}
	}
	if fn.HasOutVar() && fn.LocalCount() == 0 {
		fail(errz.New(errz.MalformedProgram, "function declares an out var but has no variable slots"))
	}

	code := fn.code()
	iter := NewInstructionIter(fn)
	for {
		offset, instr, ok := iter.Next()
		if !ok {
			break
		}
		at := func(kind errz.Kind, format string, args ...any) {
			e := errz.New(kind, format, args...)
			e.IP = offset
			e.Opcode = instr.Opcode.String()
			fail(e)
		}
		switch instr.Opcode {
		case op.Binary:
			if op.BinaryOpType(instr.Operand).String() == "" {
				at(errz.UnknownOpcode, "unknown binary operation %d", instr.Operand)
			}
		case op.LoadConstant:
			if instr.Operand >= p.ConstantCount() {
				at(errz.IndexOutOfRange, "constant index %d out of range (pool size %d)",
					instr.Operand, p.ConstantCount())
			} else if p.constants[instr.Operand].Kind() != NumberKind {
				at(errz.UnsupportedConstantType, "constant %d (%s) is not a number",
					instr.Operand, p.constants[instr.Operand])
			}
		case op.ReadVariable, op.SetVariable:
			if instr.Operand >= fn.LocalCount() {
				at(errz.IndexOutOfRange, "variable slot %d out of range (%d slot(s))",
					instr.Operand, fn.LocalCount())
			}
		case op.CallFunction:
			if instr.Operand >= p.ConstantCount() {
				at(errz.IndexOutOfRange, "constant index %d out of range (pool size %d)",
					instr.Operand, p.ConstantCount())
				break
			}
			name, isString := p.constants[instr.Operand].Str()
			if !isString {
				at(errz.ExpectedStringConstant, "constant %d (%s) is not a function name",
					instr.Operand, p.constants[instr.Operand])
			} else if _, found := p.Function(name); !found {
				at(errz.UndefinedFunction, "function %q is not defined", name)
			}
		case op.JumpIfFalse, op.JumpForward:
			target := offset + instr.Width() + instr.Operand
			if target > len(code) {
				at(errz.MalformedProgram, "jump target %d is past the end of the stream (%d)",
					target, len(code))
			}
		}
	}
	if err := iter.Err(); err != nil {
		if e, ok := err.(*errz.Error); ok {
			fail(e)
		} else {
			errs = append(errs, err)
		}
	}
	return errs
}
