// Package loader reads and writes the line-oriented text form of a toi
// program.
//
// A program file has four sections, in order, each introduced by a header
// line and an item-count line:
//
//	constants
//	2
//	int:10
//	string:identity
//	functions
//	1
//	identity        <- function name
//	1               <- has out var
//	parameters
//	1
//	n
//	variables
//	2
//	n
//	result
//	instructions
//	4
//	8
//	0
//	9
//	1
//	variables
//	0
//	instructions
//	4
//	7
//	0
//	12
//	1
//
// Any deviation from this layout is a MalformedProgram error.
package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/toi-lang/toi/bytecode"
	"github.com/toi-lang/toi/errz"
)

// Section and block headers.
const (
	headerConstants    = "constants"
	headerFunctions    = "functions"
	headerParameters   = "parameters"
	headerVariables    = "variables"
	headerInstructions = "instructions"
)

// Option configures Load.
type Option func(*config)

type config struct {
	skipValidation bool
}

// WithoutValidation skips the eager cross-reference checks normally run
// after parsing. The virtual machine still checks every reference when it is
// used.
func WithoutValidation() Option {
	return func(c *config) {
		c.skipValidation = true
	}
}

// Load parses a program from its text form and validates it.
func Load(r io.Reader, opts ...Option) (*bytecode.Program, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}
	p := &parser{lines: lines}
	program, err := p.parseProgram()
	if err != nil {
		return nil, err
	}
	if !cfg.skipValidation {
		if err := program.Validate(); err != nil {
			return nil, err
		}
	}
	return program, nil
}

// LoadString parses a program from a string.
func LoadString(text string, opts ...Option) (*bytecode.Program, error) {
	return Load(strings.NewReader(text), opts...)
}

// LoadFile parses the program in the named file.
func LoadFile(path string, opts ...Option) (*bytecode.Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f, opts...)
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimSuffix(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, errz.AtLine(errz.MalformedProgram, len(lines)+1, "line too long").WithCause(err)
		}
		return nil, err
	}
	return lines, nil
}

type parser struct {
	lines []string
	pos   int // index of the next unread line
}

func (p *parser) parseProgram() (*bytecode.Program, error) {
	constants, err := p.parseConstants()
	if err != nil {
		return nil, err
	}
	functions, err := p.parseFunctions()
	if err != nil {
		return nil, err
	}
	variables, err := p.parseNames(headerVariables)
	if err != nil {
		return nil, err
	}
	instructions, err := p.parseInstructions()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.lines) {
		return nil, errz.AtLine(errz.MalformedProgram, p.pos+1,
			"expected end of program, found %q", p.lines[p.pos])
	}
	return bytecode.NewProgram(bytecode.ProgramParams{
		Constants:    constants,
		Functions:    functions,
		Variables:    variables,
		Instructions: instructions,
	}), nil
}

// next returns the next line and its 1-based line number.
func (p *parser) next(expecting string) (string, int, error) {
	if p.pos >= len(p.lines) {
		return "", 0, errz.AtLine(errz.MalformedProgram, len(p.lines)+1,
			"unexpected end of program, expected %s", expecting)
	}
	line := p.lines[p.pos]
	p.pos++
	return line, p.pos, nil
}

func (p *parser) expectHeader(header string) error {
	line, n, err := p.next("header " + strconv.Quote(header))
	if err != nil {
		return err
	}
	if line != header {
		return errz.AtLine(errz.MalformedProgram, n, "expected header %q, found %q", header, line)
	}
	return nil
}

func (p *parser) parseCount(header string) (int, error) {
	if err := p.expectHeader(header); err != nil {
		return 0, err
	}
	line, n, err := p.next(header + " count")
	if err != nil {
		return 0, err
	}
	count, err := strconv.Atoi(line)
	if err != nil || count < 0 {
		return 0, errz.AtLine(errz.MalformedProgram, n, "invalid %s count %q", header, line).WithCause(err)
	}
	// Every entry takes at least one line.
	if remaining := len(p.lines) - p.pos; count > remaining {
		return 0, errz.AtLine(errz.MalformedProgram, n,
			"%s count %d exceeds the %d line(s) left in the program", header, count, remaining)
	}
	return count, nil
}

func (p *parser) parseConstants() ([]bytecode.Constant, error) {
	count, err := p.parseCount(headerConstants)
	if err != nil {
		return nil, err
	}
	constants := make([]bytecode.Constant, 0, count)
	for i := 0; i < count; i++ {
		line, n, err := p.next("constant")
		if err != nil {
			return nil, err
		}
		c, err := parseConstant(line)
		if err != nil {
			return nil, errz.AtLine(errz.MalformedProgram, n, "%v", err)
		}
		constants = append(constants, c)
	}
	return constants, nil
}

// parseConstant parses "int:<decimal>" or "string:<text>". The text of a
// string constant is everything after the first colon.
func parseConstant(line string) (bytecode.Constant, error) {
	kind, value, found := strings.Cut(line, ":")
	if !found {
		return bytecode.Constant{}, fmt.Errorf("constant %q has no type prefix", line)
	}
	switch kind {
	case bytecode.NumberKind.String():
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return bytecode.Constant{}, fmt.Errorf("invalid int constant %q", value)
		}
		return bytecode.NumberConstant(n), nil
	case bytecode.StringKind.String():
		return bytecode.StringConstant(value), nil
	default:
		return bytecode.Constant{}, fmt.Errorf("unsupported constant type %q", kind)
	}
}

func (p *parser) parseFunctions() ([]*bytecode.Function, error) {
	count, err := p.parseCount(headerFunctions)
	if err != nil {
		return nil, err
	}
	functions := make([]*bytecode.Function, 0, count)
	for i := 0; i < count; i++ {
		fn, err := p.parseFunction()
		if err != nil {
			return nil, err
		}
		functions = append(functions, fn)
	}
	return functions, nil
}

func (p *parser) parseFunction() (*bytecode.Function, error) {
	name, n, err := p.next("function name")
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, errz.AtLine(errz.MalformedProgram, n, "empty function name")
	}
	flag, n, err := p.next("has-out-var flag")
	if err != nil {
		return nil, err
	}
	var hasOutVar bool
	switch flag {
	case "1", "true":
		hasOutVar = true
	case "0", "false":
	default:
		return nil, errz.AtLine(errz.MalformedProgram, n, "invalid has-out-var flag %q for function %q", flag, name)
	}
	params, err := p.parseNames(headerParameters)
	if err != nil {
		return nil, err
	}
	variables, err := p.parseNames(headerVariables)
	if err != nil {
		return nil, err
	}
	instructions, err := p.parseInstructions()
	if err != nil {
		return nil, err
	}
	return bytecode.NewFunction(bytecode.FunctionParams{
		Name:         name,
		HasOutVar:    hasOutVar,
		Parameters:   params,
		Variables:    variables,
		Instructions: instructions,
	}), nil
}

func (p *parser) parseNames(header string) ([]string, error) {
	count, err := p.parseCount(header)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for i := 0; i < count; i++ {
		name, _, err := p.next(header + " name")
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

func (p *parser) parseInstructions() ([]byte, error) {
	count, err := p.parseCount(headerInstructions)
	if err != nil {
		return nil, err
	}
	code := make([]byte, 0, count)
	for i := 0; i < count; i++ {
		line, n, err := p.next("instruction byte")
		if err != nil {
			return nil, err
		}
		b, err := strconv.ParseUint(line, 10, 8)
		if err != nil {
			return nil, errz.AtLine(errz.MalformedProgram, n, "invalid instruction byte %q", line)
		}
		code = append(code, byte(b))
	}
	return code, nil
}
