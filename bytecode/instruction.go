package bytecode

import (
	"fmt"

	"github.com/toi-lang/toi/errz"
	"github.com/toi-lang/toi/op"
)

// Instruction is one decoded instruction. Operand is meaningful only for
// opcodes whose OperandWidth is non-zero; two-byte operands are stored as
// their unsigned big-endian value.
type Instruction struct {
	Opcode  op.Code
	Operand int
}

// Make returns an Instruction for the given opcode and operand.
func Make(opcode op.Code, operand ...int) Instruction {
	instr := Instruction{Opcode: opcode}
	if len(operand) > 0 {
		instr.Operand = operand[0]
	}
	return instr
}

// MakeBinary returns a BINARY instruction for the given sub-operation.
func MakeBinary(bop op.BinaryOpType) Instruction {
	return Instruction{Opcode: op.Binary, Operand: int(bop)}
}

// Width returns the encoded length of the instruction in bytes.
func (i Instruction) Width() int {
	return 1 + op.GetInfo(i.Opcode).OperandWidth
}

// String returns the instruction in assembly form, e.g. "BINARY +".
func (i Instruction) String() string {
	info := op.GetInfo(i.Opcode)
	switch {
	case !info.Valid():
		return fmt.Sprintf("UNKNOWN(%d)", uint8(i.Opcode))
	case i.Opcode == op.Binary:
		if s := op.BinaryOpType(i.Operand).String(); s != "" {
			return info.Name + " " + s
		}
		return fmt.Sprintf("%s %d", info.Name, i.Operand)
	case info.OperandWidth == 0:
		return info.Name
	default:
		return fmt.Sprintf("%s %d", info.Name, i.Operand)
	}
}

// Encode returns the byte encoding of the instruction.
func (i Instruction) Encode() ([]byte, error) {
	info := op.GetInfo(i.Opcode)
	if !info.Valid() {
		return nil, errz.New(errz.UnknownOpcode, "cannot encode opcode %d", uint8(i.Opcode))
	}
	max := 1<<(8*info.OperandWidth) - 1
	if i.Operand < 0 || i.Operand > max {
		return nil, errz.New(errz.MalformedProgram,
			"operand %d of %s does not fit in %d byte(s)", i.Operand, info.Name, info.OperandWidth)
	}
	switch info.OperandWidth {
	case 0:
		return []byte{byte(i.Opcode)}, nil
	case 1:
		return []byte{byte(i.Opcode), byte(i.Operand)}, nil
	default:
		return []byte{byte(i.Opcode), byte(i.Operand >> 8), byte(i.Operand)}, nil
	}
}

// Decode decodes the instruction starting at offset and returns it along
// with the offset of the following instruction. It fails with UnknownOpcode
// if the byte is not an opcode and with MalformedProgram if the operand would
// read past the end of the stream.
func Decode(code []byte, offset int) (Instruction, int, error) {
	if offset < 0 || offset >= len(code) {
		return Instruction{}, offset, errz.New(errz.MalformedProgram,
			"offset %d is outside the instruction stream of length %d", offset, len(code))
	}
	opcode := op.Code(code[offset])
	info := op.GetInfo(opcode)
	if !info.Valid() {
		e := errz.New(errz.UnknownOpcode, "unknown opcode %d", code[offset])
		e.IP = offset
		return Instruction{}, offset, e
	}
	next := offset + 1 + info.OperandWidth
	if next > len(code) {
		e := errz.New(errz.MalformedProgram, "truncated operand: %s needs %d operand byte(s), %d available",
			info.Name, info.OperandWidth, len(code)-offset-1)
		e.IP = offset
		e.Opcode = info.Name
		return Instruction{}, offset, e
	}
	instr := Instruction{Opcode: opcode}
	for _, b := range code[offset+1 : next] {
		instr.Operand = instr.Operand<<8 | int(b)
	}
	return instr, next, nil
}

// Assemble encodes the given instructions into one stream.
func Assemble(instructions ...Instruction) ([]byte, error) {
	var code []byte
	for _, instr := range instructions {
		b, err := instr.Encode()
		if err != nil {
			return nil, err
		}
		code = append(code, b...)
	}
	return code, nil
}

// InstructionIter iterates over the instructions of a Function.
type InstructionIter struct {
	code []byte
	pos  int
	err  error
}

// NewInstructionIter creates a new instruction iterator for the given
// function.
func NewInstructionIter(fn *Function) *InstructionIter {
	return &InstructionIter{code: fn.code()}
}

// Next returns the offset of the next instruction and the instruction
// itself. It returns false at the end of the stream or on a decode error,
// which is then available from Err.
func (i *InstructionIter) Next() (int, Instruction, bool) {
	if i.err != nil || i.pos >= len(i.code) {
		return i.pos, Instruction{}, false
	}
	offset := i.pos
	instr, next, err := Decode(i.code, offset)
	if err != nil {
		i.err = err
		return offset, Instruction{}, false
	}
	i.pos = next
	return offset, instr, true
}

// Err returns the decode error that stopped the iteration, if any.
func (i *InstructionIter) Err() error {
	return i.err
}
