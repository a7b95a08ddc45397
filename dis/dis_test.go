package dis

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toi-lang/toi/bytecode"
	"github.com/toi-lang/toi/errz"
	"github.com/toi-lang/toi/loader"
	"github.com/toi-lang/toi/op"
)

func disableColor(t *testing.T) {
	saved := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = saved })
}

func TestFunctionDisassembly(t *testing.T) {
	disableColor(t)
	program, err := loader.LoadFile("../loader/testdata/fact.toi")
	require.NoError(t, err)
	fn, ok := program.Function("fact")
	require.True(t, ok)

	instructions, err := Disassemble(program, fn)
	require.NoError(t, err)
	require.Len(t, instructions, 14)
	assert.Equal(t, Instruction{
		Offset:     6,
		Name:       "JUMP_IF_FALSE",
		Opcode:     op.JumpIfFalse,
		Operands:   []int{7},
		Annotation: "to 16",
	}, instructions[3])

	var buf bytes.Buffer
	require.NoError(t, Print(instructions, &buf))
	expected := strings.TrimSpace(`
+--------+---------------+----------+-----------+
| OFFSET |    OPCODE     | OPERANDS |   INFO    |
+--------+---------------+----------+-----------+
|      0 | READ_VARIABLE |        0 | n         |
|      2 | INLINE_NUMBER |        2 |           |
|      4 | BINARY        |        7 | <         |
|      6 | JUMP_IF_FALSE |        7 | to 16     |
|      9 | INLINE_NUMBER |        1 |           |
|     11 | SET_VARIABLE  |        1 | result    |
|     13 | JUMP_FORWARD  |       14 | to 30     |
|     16 | READ_VARIABLE |        0 | n         |
|     18 | READ_VARIABLE |        0 | n         |
|     20 | INLINE_NUMBER |        1 |           |
|     22 | BINARY        |        1 | -         |
|     24 | CALL_FUNCTION |        0 | func:fact |
|     26 | BINARY        |        2 | *         |
|     28 | SET_VARIABLE  |        1 | result    |
+--------+---------------+----------+-----------+
`)
	assert.Equal(t, expected+"\n", buf.String())
}

func TestMainDisassembly(t *testing.T) {
	disableColor(t)
	program, err := loader.LoadFile("../loader/testdata/identity.toi")
	require.NoError(t, err)

	instructions, err := Disassemble(program, program.Main())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Print(instructions, &buf))
	expected := `
+--------+---------------+----------+---------------+
| OFFSET |    OPCODE     | OPERANDS |     INFO      |
+--------+---------------+----------+---------------+
|      0 | LOAD_CONSTANT |        0 | 1000          |
|      2 | CALL_FUNCTION |        1 | func:identity |
+--------+---------------+----------+---------------+
`
	assert.Equal(t, strings.TrimPrefix(expected, "\n"), buf.String())
}

func TestDisassembleErrors(t *testing.T) {
	program := bytecode.NewProgram(bytecode.ProgramParams{
		Instructions: []byte{byte(op.ReadVariable), 3},
	})
	_, err := Disassemble(program, program.Main())
	assert.True(t, errors.Is(err, errz.IndexOutOfRange))

	program = bytecode.NewProgram(bytecode.ProgramParams{
		Instructions: []byte{byte(op.LoadConstant), 0},
	})
	_, err = Disassemble(program, program.Main())
	assert.True(t, errors.Is(err, errz.IndexOutOfRange))

	program = bytecode.NewProgram(bytecode.ProgramParams{
		Instructions: []byte{byte(op.Pop), 200},
	})
	_, err = Disassemble(program, program.Main())
	require.True(t, errors.Is(err, errz.UnknownOpcode))
	var e *errz.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, bytecode.MainFunctionName, e.Function)
	assert.Equal(t, 1, e.IP)
}

func TestReservedOpcodesDisassemble(t *testing.T) {
	disableColor(t)
	program := bytecode.NewProgram(bytecode.ProgramParams{
		Instructions: []byte{
			byte(op.JumpBack), 0, 3,
			byte(op.Duplicate),
			byte(op.Binary), byte(op.Concat),
		},
	})
	instructions, err := Disassemble(program, program.Main())
	require.NoError(t, err)
	require.Len(t, instructions, 3)
	assert.Equal(t, "to 0", instructions[0].Annotation)
	assert.Equal(t, "DUPLICATE", instructions[1].Name)
	assert.Empty(t, instructions[1].Operands)
	assert.Equal(t, "++", instructions[2].Annotation)
}

func TestLongStringConstantTruncated(t *testing.T) {
	disableColor(t)
	program := bytecode.NewProgram(bytecode.ProgramParams{
		Constants:    []bytecode.Constant{bytecode.StringConstant(strings.Repeat("é", 100))},
		Instructions: []byte{byte(op.LoadConstant), 0},
	})
	instructions, err := Disassemble(program, program.Main())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Print(instructions, &buf))
	out := buf.String()
	assert.True(t, utf8.ValidString(out))
	assert.Contains(t, out, `"`+strings.Repeat("é", 77)+`..."`)
	assert.NotContains(t, out, strings.Repeat("é", 78))
}
