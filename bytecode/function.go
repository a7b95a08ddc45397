package bytecode

// MainFunctionName is the name given to the synthetic top-level function.
const MainFunctionName = "<main>"

// Function represents an independently compiled function.
// It is immutable after creation.
type Function struct {
	name         string
	hasOutVar    bool
	parameters   []string
	variables    []string
	instructions []byte
}

// FunctionParams contains parameters for creating a new Function.
type FunctionParams struct {
	Name string

	// HasOutVar marks a function whose last variable slot holds its result.
	HasOutVar bool

	// Parameters are the parameter names, in declaration order.
	Parameters []string

	// Variables are the names of all variable slots. The first entries are
	// the parameters, in order; the rest are additional locals.
	Variables []string

	Instructions []byte
}

// NewFunction creates a new immutable Function from the given parameters.
// Input slices are copied to ensure immutability.
func NewFunction(params FunctionParams) *Function {
	return &Function{
		name:         params.Name,
		hasOutVar:    params.HasOutVar,
		parameters:   copyStrings(params.Parameters),
		variables:    copyStrings(params.Variables),
		instructions: copyBytes(params.Instructions),
	}
}

// Name returns the function name.
func (f *Function) Name() string {
	return f.name
}

// HasOutVar reports whether the function yields the value of its out slot.
func (f *Function) HasOutVar() bool {
	return f.hasOutVar
}

// Arity returns the number of parameters.
func (f *Function) Arity() int {
	return len(f.parameters)
}

// ParamAt returns the name of the parameter at the given index.
func (f *Function) ParamAt(index int) string {
	return f.parameters[index]
}

// LocalCount returns the number of variable slots, parameters included.
func (f *Function) LocalCount() int {
	return len(f.variables)
}

// VariableAt returns the name of the variable slot at the given index.
func (f *Function) VariableAt(index int) string {
	return f.variables[index]
}

// OutSlot returns the index of the slot whose value is the function's
// result, or -1 if the function has no out var. The out slot is always the
// last variable slot; a function declaring an out var with no slots at all
// also reports -1 and fails validation.
func (f *Function) OutSlot() int {
	if !f.hasOutVar || len(f.variables) == 0 {
		return -1
	}
	return len(f.variables) - 1
}

// InstructionCount returns the length of the instruction stream in bytes.
func (f *Function) InstructionCount() int {
	return len(f.instructions)
}

// InstructionAt returns the byte at the given offset of the stream.
func (f *Function) InstructionAt(offset int) byte {
	return f.instructions[offset]
}

// Instructions returns a copy of the instruction stream.
func (f *Function) Instructions() []byte {
	return copyBytes(f.instructions)
}

// Parameters returns a copy of the parameter names.
func (f *Function) Parameters() []string {
	return copyStrings(f.parameters)
}

// Variables returns a copy of the variable slot names.
func (f *Function) Variables() []string {
	return copyStrings(f.variables)
}

// code exposes the stream without copying to the package's own readers.
func (f *Function) code() []byte {
	return f.instructions
}
