package loader

import (
	"bufio"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toi-lang/toi/bytecode"
	"github.com/toi-lang/toi/errz"
)

func lines(l ...string) string {
	return strings.Join(l, "\n") + "\n"
}

func TestLoadFile(t *testing.T) {
	p, err := LoadFile("testdata/fact.toi")
	require.NoError(t, err)

	require.Equal(t, 1, p.ConstantCount())
	name, ok := p.ConstantAt(0).Str()
	require.True(t, ok)
	assert.Equal(t, "fact", name)

	fn, ok := p.Function("fact")
	require.True(t, ok)
	assert.True(t, fn.HasOutVar())
	assert.Equal(t, []string{"n"}, fn.Parameters())
	assert.Equal(t, []string{"n", "result"}, fn.Variables())
	assert.Equal(t, 30, fn.InstructionCount())
	assert.Equal(t, 1, fn.OutSlot())

	assert.Equal(t, []string{"answer"}, p.Main().Variables())
	assert.Equal(t, 11, p.Main().InstructionCount())
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile("testdata/does-not-exist.toi")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRoundTrip(t *testing.T) {
	for _, name := range []string{"testdata/fact.toi", "testdata/identity.toi"} {
		t.Run(name, func(t *testing.T) {
			data, err := os.ReadFile(name)
			require.NoError(t, err)
			p, err := Load(strings.NewReader(string(data)))
			require.NoError(t, err)
			text, err := Format(p)
			require.NoError(t, err)
			assert.Equal(t, string(data), text)
		})
	}
}

func TestLoadEmptyProgram(t *testing.T) {
	p, err := LoadString(lines(
		"constants", "0",
		"functions", "0",
		"variables", "0",
		"instructions", "0",
	))
	require.NoError(t, err)
	assert.Equal(t, 0, p.ConstantCount())
	assert.Equal(t, 0, p.FunctionCount())
	assert.Equal(t, 0, p.Main().InstructionCount())
}

func TestLoadConstants(t *testing.T) {
	p, err := LoadString(lines(
		"constants", "4",
		"int:-9223372036854775808",
		"string:a:b",
		"string:",
		"int:42",
		"functions", "0",
		"variables", "0",
		"instructions", "0",
	))
	require.NoError(t, err)
	assert.Equal(t, bytecode.NumberConstant(-9223372036854775808), p.ConstantAt(0))
	assert.Equal(t, bytecode.StringConstant("a:b"), p.ConstantAt(1))
	assert.Equal(t, bytecode.StringConstant(""), p.ConstantAt(2))
	assert.Equal(t, bytecode.NumberConstant(42), p.ConstantAt(3))
}

func TestLoadAcceptsBooleanFlagAndCRLF(t *testing.T) {
	text := strings.ReplaceAll(lines(
		"constants", "0",
		"functions", "1",
		"f", "true",
		"parameters", "0",
		"variables", "1", "out",
		"instructions", "2", "6", "1",
		"variables", "0",
		"instructions", "0",
	), "\n", "\r\n")
	p, err := LoadString(text)
	require.NoError(t, err)
	fn, ok := p.Function("f")
	require.True(t, ok)
	assert.True(t, fn.HasOutVar())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		kind errz.Kind
		line int
		msg  string
	}{
		{
			name: "empty",
			text: "",
			kind: errz.MalformedProgram,
			line: 1,
			msg:  `expected header "constants"`,
		},
		{
			name: "unknown section header",
			text: lines("consts", "0"),
			kind: errz.MalformedProgram,
			line: 1,
			msg:  `expected header "constants", found "consts"`,
		},
		{
			name: "bad count",
			text: lines("constants", "two"),
			kind: errz.MalformedProgram,
			line: 2,
			msg:  `invalid constants count "two"`,
		},
		{
			name: "negative count",
			text: lines("constants", "-1"),
			kind: errz.MalformedProgram,
			line: 2,
		},
		{
			name: "count mismatch",
			text: lines("constants", "2", "int:1", "functions", "0", "variables", "0", "instructions", "0"),
			kind: errz.MalformedProgram,
			line: 4,
			msg:  `constant "functions" has no type prefix`,
		},
		{
			name: "unsupported constant type",
			text: lines("constants", "1", "float:1.5"),
			kind: errz.MalformedProgram,
			line: 3,
			msg:  `unsupported constant type "float"`,
		},
		{
			name: "bad int constant",
			text: lines("constants", "1", "int:abc"),
			kind: errz.MalformedProgram,
			line: 3,
			msg:  `invalid int constant "abc"`,
		},
		{
			name: "constant without prefix",
			text: lines("constants", "1", "42"),
			kind: errz.MalformedProgram,
			line: 3,
		},
		{
			name: "bad out var flag",
			text: lines("constants", "0", "functions", "1", "f", "maybe"),
			kind: errz.MalformedProgram,
			line: 6,
			msg:  `invalid has-out-var flag "maybe"`,
		},
		{
			name: "byte out of range",
			text: lines("constants", "0", "functions", "0", "variables", "0", "instructions", "1", "256"),
			kind: errz.MalformedProgram,
			line: 9,
			msg:  `invalid instruction byte "256"`,
		},
		{
			name: "truncated section",
			text: lines("constants", "0", "functions", "0", "variables", "0", "instructions", "3", "6"),
			kind: errz.MalformedProgram,
			line: 8,
			msg:  "instructions count 3 exceeds the 1 line(s) left",
		},
		{
			name: "truncated function",
			text: lines("constants", "0", "functions", "1", "f"),
			kind: errz.MalformedProgram,
			line: 6,
			msg:  "unexpected end of program",
		},
		{
			name: "huge constants count",
			text: lines("constants", "4611686018427387904"),
			kind: errz.MalformedProgram,
			line: 2,
			msg:  "constants count 4611686018427387904 exceeds",
		},
		{
			name: "huge instructions count",
			text: lines("constants", "0", "functions", "0", "variables", "0", "instructions", "9223372036854775807"),
			kind: errz.MalformedProgram,
			line: 8,
			msg:  "instructions count 9223372036854775807 exceeds",
		},
		{
			name: "large names count",
			text: lines("constants", "0", "functions", "0", "variables", "2000000000", "x"),
			kind: errz.MalformedProgram,
			line: 6,
			msg:  "variables count 2000000000 exceeds",
		},
		{
			name: "capitalised out var flag",
			text: lines("constants", "0", "functions", "1", "f", "True"),
			kind: errz.MalformedProgram,
			line: 6,
			msg:  `invalid has-out-var flag "True"`,
		},
		{
			name: "abbreviated out var flag",
			text: lines("constants", "0", "functions", "1", "f", "t"),
			kind: errz.MalformedProgram,
			line: 6,
			msg:  `invalid has-out-var flag "t"`,
		},
		{
			name: "trailing lines",
			text: lines("constants", "0", "functions", "0", "variables", "0", "instructions", "0", "extra"),
			kind: errz.MalformedProgram,
			line: 9,
			msg:  `expected end of program, found "extra"`,
		},
		{
			name: "unresolvable function name",
			text: lines("constants", "1", "string:nope", "functions", "0", "variables", "0", "instructions", "2", "12", "0"),
			kind: errz.UndefinedFunction,
		},
		{
			name: "constant index out of range",
			text: lines("constants", "0", "functions", "0", "variables", "0", "instructions", "2", "7", "3"),
			kind: errz.IndexOutOfRange,
		},
		{
			name: "slot index out of range",
			text: lines("constants", "0", "functions", "0", "variables", "1", "x", "instructions", "2", "8", "1"),
			kind: errz.IndexOutOfRange,
		},
		{
			name: "truncated operand",
			text: lines("constants", "0", "functions", "0", "variables", "0", "instructions", "2", "4", "0"),
			kind: errz.MalformedProgram,
		},
		{
			name: "unknown opcode",
			text: lines("constants", "0", "functions", "0", "variables", "0", "instructions", "1", "99"),
			kind: errz.UnknownOpcode,
		},
		{
			name: "variables do not start with parameters",
			text: lines("constants", "0", "functions", "1", "f", "0",
				"parameters", "1", "a", "variables", "1", "b", "instructions", "0",
				"variables", "0", "instructions", "0"),
			kind: errz.MalformedProgram,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadString(tt.text)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "expected %s, got %v", tt.kind, err)
			if tt.line > 0 {
				var e *errz.Error
				require.True(t, errors.As(err, &e))
				assert.Equal(t, tt.line, e.Line)
			}
			if tt.msg != "" {
				assert.Contains(t, err.Error(), tt.msg)
			}
		})
	}
}

func TestLoadRejectsOverlongLine(t *testing.T) {
	text := lines("constants", "1", "string:"+strings.Repeat("x", 16*1024*1024), "functions", "0")
	_, err := LoadString(text)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errz.MalformedProgram))
	assert.True(t, errors.Is(err, bufio.ErrTooLong))
	var e *errz.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, 3, e.Line)
}

func TestLoadWithoutValidation(t *testing.T) {
	text := lines("constants", "1", "string:nope", "functions", "0", "variables", "0", "instructions", "2", "12", "0")
	p, err := LoadString(text, WithoutValidation())
	require.NoError(t, err)
	assert.Equal(t, 2, p.Main().InstructionCount())
	assert.True(t, errors.Is(p.Validate(), errz.UndefinedFunction))
}

func TestWriteRejectsLineBreaks(t *testing.T) {
	p := bytecode.NewProgram(bytecode.ProgramParams{
		Constants: []bytecode.Constant{bytecode.StringConstant("two\nlines")},
	})
	_, err := Format(p)
	assert.ErrorContains(t, err, "line break")
}

func TestFormatProgram(t *testing.T) {
	p := bytecode.NewProgram(bytecode.ProgramParams{
		Constants: []bytecode.Constant{bytecode.NumberConstant(7)},
		Functions: []*bytecode.Function{
			bytecode.NewFunction(bytecode.FunctionParams{Name: "noop"}),
		},
		Variables:    []string{"x"},
		Instructions: []byte{7, 0, 9, 0},
	})
	text, err := Format(p)
	require.NoError(t, err)
	assert.Equal(t, lines(
		"constants", "1", "int:7",
		"functions", "1",
		"noop", "0",
		"parameters", "0",
		"variables", "0",
		"instructions", "0",
		"variables", "1", "x",
		"instructions", "4", "7", "0", "9", "0",
	), text)
}
