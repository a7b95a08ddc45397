package errz

// Kind represents the category of an error. A Kind is itself an error so it
// can be used as the target of errors.Is:
//
//	if errors.Is(err, errz.StackUnderflow) { ... }
type Kind int

const (
	// MalformedProgram indicates a structural or text-format violation.
	MalformedProgram Kind = iota + 1
	// UnknownOpcode indicates a byte that is not an opcode.
	UnknownOpcode
	// UnsupportedOperation indicates a reserved opcode or sub-opcode.
	UnsupportedOperation
	// StackUnderflow indicates a pop from an empty evaluation stack.
	StackUnderflow
	// UndefinedFunction indicates a call to a name missing from the
	// function table.
	UndefinedFunction
	// ExpectedStringConstant indicates a non-string used as a function name.
	ExpectedStringConstant
	// UnsupportedConstantType indicates a string loaded as a stack value.
	UnsupportedConstantType
	// DivisionByZero indicates an integer division with a zero divisor.
	DivisionByZero
	// IndexOutOfRange indicates a slot or constant index beyond bounds.
	IndexOutOfRange
	// StackOverflow indicates exhausted call depth or evaluation stack.
	StackOverflow
)

// ErrorCode is a stable identifier for an error kind.
// Codes are organized by category:
//   - E1xxx: Load errors
//   - E2xxx: Decode errors
//   - E3xxx: Runtime errors
type ErrorCode string

var kindInfo = map[Kind]struct {
	name string
	code ErrorCode
}{
	MalformedProgram:        {"malformed program", "E1001"},
	UnknownOpcode:           {"unknown opcode", "E2001"},
	UnsupportedOperation:    {"unsupported operation", "E2002"},
	StackUnderflow:          {"stack underflow", "E3001"},
	UndefinedFunction:       {"undefined function", "E3002"},
	ExpectedStringConstant:  {"expected string constant", "E3003"},
	UnsupportedConstantType: {"unsupported constant type", "E3004"},
	DivisionByZero:          {"division by zero", "E3005"},
	IndexOutOfRange:         {"index out of range", "E3006"},
	StackOverflow:           {"stack overflow", "E3007"},
}

// String returns the string representation of the error kind.
func (k Kind) String() string {
	if info, ok := kindInfo[k]; ok {
		return info.name
	}
	return "error"
}

// Error implements the error interface so a Kind can be matched with
// errors.Is.
func (k Kind) Error() string {
	return k.String()
}

// Code returns the stable error code of the kind.
func (k Kind) Code() ErrorCode {
	if info, ok := kindInfo[k]; ok {
		return info.code
	}
	return "E0000"
}

// Category returns the error category based on the code prefix.
func (c ErrorCode) Category() string {
	if len(c) < 2 {
		return "unknown"
	}
	switch c[1] {
	case '1':
		return "load"
	case '2':
		return "decode"
	case '3':
		return "runtime"
	default:
		return "unknown"
	}
}
