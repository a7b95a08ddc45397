package bytecode

import (
	"fmt"
	"strconv"
)

// ConstantKind distinguishes the variants of a Constant.
type ConstantKind uint8

const (
	NumberKind ConstantKind = iota + 1
	StringKind
)

// String returns the name used for the kind in program text.
func (k ConstantKind) String() string {
	switch k {
	case NumberKind:
		return "int"
	case StringKind:
		return "string"
	default:
		return "unknown"
	}
}

// Constant is an immutable literal from the constant pool: either a 64-bit
// signed Number or a UTF-8 String. The zero value is not a valid constant.
type Constant struct {
	kind   ConstantKind
	number int64
	str    string
}

// NumberConstant returns a Number constant.
func NumberConstant(n int64) Constant {
	return Constant{kind: NumberKind, number: n}
}

// StringConstant returns a String constant.
func StringConstant(s string) Constant {
	return Constant{kind: StringKind, str: s}
}

// Kind returns the variant of the constant.
func (c Constant) Kind() ConstantKind {
	return c.kind
}

// Number returns the value of a Number constant.
func (c Constant) Number() (int64, bool) {
	return c.number, c.kind == NumberKind
}

// Str returns the value of a String constant.
func (c Constant) Str() (string, bool) {
	return c.str, c.kind == StringKind
}

// String returns the constant as it is written in program text, for example
// "int:42" or "string:fact".
func (c Constant) String() string {
	switch c.kind {
	case NumberKind:
		return "int:" + strconv.FormatInt(c.number, 10)
	case StringKind:
		return "string:" + c.str
	default:
		return fmt.Sprintf("invalid constant (kind %d)", c.kind)
	}
}

// Value returns the constant as an int64 or string.
func (c Constant) Value() any {
	if c.kind == StringKind {
		return c.str
	}
	return c.number
}
