package op

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo(JumpIfFalse)
	assert.Equal(t, "JUMP_IF_FALSE", info.Name)
	assert.Equal(t, 2, info.OperandWidth)
	assert.Equal(t, JumpIfFalse, info.Code)
	assert.False(t, info.Reserved)
}

func TestGetInfoAllOpcodes(t *testing.T) {
	tests := []struct {
		code     Code
		name     string
		width    int
		reserved bool
	}{
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
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := GetInfo(tt.code)
			require.True(t, info.Valid())
			assert.Equal(t, tt.name, info.Name)
			assert.Equal(t, tt.width, info.OperandWidth)
			assert.Equal(t, tt.reserved, info.Reserved)
			assert.Equal(t, tt.name, tt.code.String())

			code, ok := Lookup(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestReadAndSetVariableAreDistinct(t *testing.T) {
	assert.NotEqual(t, ReadVariable, SetVariable)
	assert.NotEqual(t, GetInfo(ReadVariable).Name, GetInfo(SetVariable).Name)
}

func TestUnknownOpcode(t *testing.T) {
	for _, c := range []Code{Invalid, 42, 255} {
		assert.False(t, GetInfo(c).Valid())
		assert.Equal(t, "UNKNOWN", c.String())
	}
	_, ok := Lookup("HALT")
	assert.False(t, ok)
}

func TestBinaryOpType(t *testing.T) {
	assert.Equal(t, "+", Plus.String())
	assert.Equal(t, "-", Subtract.String())
	assert.Equal(t, ">", GreaterThan.String())
	assert.Equal(t, "", BinaryOpType(200).String())

	for _, bop := range []BinaryOpType{Plus, Subtract, Multiply, Divide, GreaterThan, LessThan} {
		assert.True(t, bop.Supported(), bop.String())
	}
	for _, bop := range []BinaryOpType{Remainder, Equal, BinaryOr, BinaryXor, BinaryAnd, Concat, 99} {
		assert.False(t, bop.Supported(), bop.String())
	}
}
