package bytecode

// Program is a loaded toi program: the constant pool, the function table and
// the top-level body. It is immutable after creation and safe for concurrent
// use by multiple virtual machines.
type Program struct {
	constants []Constant
	functions []*Function
	byName    map[string]int
	main      *Function
}

// ProgramParams contains parameters for creating a new Program.
type ProgramParams struct {
	Constants    []Constant
	Functions    []*Function
	Variables    []string // top-level variable names
	Instructions []byte   // top-level instruction stream
}

// NewProgram creates a new immutable Program. Function lookup by name is
// resolved once here; when names repeat the first function wins, and
// Validate reports the duplicate.
func NewProgram(params ProgramParams) *Program {
	p := &Program{
		constants: copyConstants(params.Constants),
		functions: make([]*Function, len(params.Functions)),
		byName:    make(map[string]int, len(params.Functions)),
		main: NewFunction(FunctionParams{
			Name:         MainFunctionName,
			Variables:    params.Variables,
			Instructions: params.Instructions,
		}),
	}
	copy(p.functions, params.Functions)
	for i, fn := range p.functions {
		if _, exists := p.byName[fn.Name()]; !exists {
			p.byName[fn.Name()] = i
		}
	}
	return p
}

// ConstantCount returns the size of the constant pool.
func (p *Program) ConstantCount() int {
	return len(p.constants)
}

// ConstantAt returns the constant at the given index.
func (p *Program) ConstantAt(index int) Constant {
	return p.constants[index]
}

// FunctionCount returns the number of functions in the function table.
func (p *Program) FunctionCount() int {
	return len(p.functions)
}

// FunctionAt returns the function at the given index of the function table.
func (p *Program) FunctionAt(index int) *Function {
	return p.functions[index]
}

// Function looks up a function by exact name.
func (p *Program) Function(name string) (*Function, bool) {
	i, ok := p.byName[name]
	if !ok {
		return nil, false
	}
	return p.functions[i], true
}

// Main returns the synthetic function wrapping the top-level variables and
// instructions. It has no parameters and no out var.
func (p *Program) Main() *Function {
	return p.main
}

// Stats contains statistics about a program.
// This is useful for auditing programs before execution.
type Stats struct {
	// InstructionBytes is the total length of all instruction streams.
	InstructionBytes int

	// ConstantCount is the number of constants in the constant pool.
	ConstantCount int

	// FunctionCount is the number of functions in the function table.
	FunctionCount int

	// VariableCount is the total number of variable slots, top level
	// included.
	VariableCount int
}

// Stats returns statistics about the program.
func (p *Program) Stats() Stats {
	s := Stats{
		InstructionBytes: p.main.InstructionCount(),
		ConstantCount:    len(p.constants),
		FunctionCount:    len(p.functions),
		VariableCount:    p.main.LocalCount(),
	}
	for _, fn := range p.functions {
		s.InstructionBytes += fn.InstructionCount()
		s.VariableCount += fn.LocalCount()
	}
	return s
}
