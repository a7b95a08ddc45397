// Package op defines the opcodes executed by the toi virtual machine.
//
// Every instruction is a one-byte opcode followed by zero, one or two operand
// bytes. The operand width of each opcode is fixed and recorded in its Info.
package op

// Code is a one-byte opcode that indicates an operation to execute.
type Code uint8

const (
	Pop          Code = 0
	Binary       Code = 1
	Not          Code = 2
	JumpIfFalse  Code = 3
	JumpForward  Code = 4
	JumpBack     Code = 5
	InlineNumber Code = 6
	LoadConstant Code = 7
	ReadVariable Code = 8
	SetVariable  Code = 9
	Instantiate  Code = 10
	CallBuiltin  Code = 11
	CallFunction Code = 12
	Println      Code = 13 // variadic; the operand is the argument count
	FieldAccess  Code = 14
	SetField     Code = 15
	Duplicate    Code = 16

	// Invalid is the first value that is not an opcode.
	Invalid Code = 17
)

// BinaryOpType is the sub-operation encoded in the operand of a Binary
// instruction.
type BinaryOpType uint8

const (
	Plus        BinaryOpType = 0
	Subtract    BinaryOpType = 1
	Multiply    BinaryOpType = 2
	Divide      BinaryOpType = 3
	Remainder   BinaryOpType = 4
	Equal       BinaryOpType = 5
	GreaterThan BinaryOpType = 6
	LessThan    BinaryOpType = 7
	BinaryOr    BinaryOpType = 8
	BinaryXor   BinaryOpType = 9
	BinaryAnd   BinaryOpType = 10
	Concat      BinaryOpType = 11
)

// String returns a string representation of the binary operation.
// For example "+" for addition.
func (bop BinaryOpType) String() string {
	switch bop {
	case Plus:
		return "+"
	case Subtract:
		return "-"
	case Multiply:
		return "*"
	case Divide:
		return "/"
	case Remainder:
		return "%"
	case Equal:
		return "=="
	case GreaterThan:
		return ">"
	case LessThan:
		return "<"
	case BinaryOr:
		return "|"
	case BinaryXor:
		return "^"
	case BinaryAnd:
		return "&"
	case Concat:
		return "++"
	default:
		return ""
	}
}

// Supported reports whether the virtual machine defines a behavior for the
// binary operation. Unsupported operations are reserved encodings.
func (bop BinaryOpType) Supported() bool {
	switch bop {
	case Plus, Subtract, Multiply, Divide, GreaterThan, LessThan:
		return true
	default:
		return false
	}
}

// Info contains information about an opcode.
type Info struct {
	Code Code
	Name string

	// OperandWidth is the number of operand bytes that follow the opcode.
	// Two-byte operands are big-endian unsigned integers.
	OperandWidth int

	// Reserved opcodes have an encoding but no defined behavior.
	Reserved bool
}

// Valid reports whether the Info describes a real opcode.
func (i Info) Valid() bool {
	return i.Name != ""
}

var (
	infos  = make([]Info, 256)
	byName = map[string]Code{}
)

func init() {
	type opInfo struct {
		op       Code
		name     string
		width    int
		reserved bool
	}
	ops := []opInfo{
		{Pop, "POP", 0, false},
		{Binary, "BINARY", 1, false},
		{Not, "NOT", 0, true},
		{JumpIfFalse, "JUMP_IF_FALSE", 2, false},
		{JumpForward, "JUMP_FORWARD", 2, false},
		{JumpBack, "JUMP_BACK", 2, true},
		{InlineNumber, "INLINE_NUMBER", 1, false},
		{LoadConstant, "LOAD_CONSTANT", 1, false},
		{ReadVariable, "READ_VARIABLE", 1, false},
		{SetVariable, "SET_VARIABLE", 1, false},
		{Instantiate, "INSTANTIATE", 1, true},
		{CallBuiltin, "CALL_BUILTIN", 1, true},
		{CallFunction, "CALL_FUNCTION", 1, false},
		{Println, "PRINTLN", 1, false},
		{FieldAccess, "FIELD_ACCESS", 1, true},
		{SetField, "SET_FIELD", 1, true},
		{Duplicate, "DUPLICATE", 0, true},
	}
	for _, o := range ops {
		if infos[o.op].Valid() {
			panic("op: duplicate opcode value for " + o.name)
		}
		if _, dup := byName[o.name]; dup {
			panic("op: duplicate opcode name " + o.name)
		}
		infos[o.op] = Info{
			Code:         o.op,
			Name:         o.name,
			OperandWidth: o.width,
			Reserved:     o.reserved,
		}
		byName[o.name] = o.op
	}
}

// GetInfo returns information about the given opcode. The returned Info is
// not Valid if the byte is not a known opcode.
func GetInfo(op Code) Info {
	return infos[op]
}

// Lookup returns the opcode with the given name, e.g. "LOAD_CONSTANT".
func Lookup(name string) (Code, bool) {
	code, ok := byName[name]
	return code, ok
}

// String returns the opcode's name, or a placeholder for unknown bytes.
func (c Code) String() string {
	if info := infos[c]; info.Valid() {
		return info.Name
	}
	return "UNKNOWN"
}
