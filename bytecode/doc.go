// Package bytecode provides the immutable in-memory representation of a toi
// program.
//
// A [Program] holds the constant pool, the function table, and the top-level
// variable names and instruction stream. It is built once, typically by the
// loader package, and shared read-only by every frame the virtual machine
// creates while executing it.
//
// # Key Types
//
//   - [Program]: constants, functions and the top-level body
//   - [Function]: a named, independently compiled function body
//   - [Constant]: a Number or String literal from the constant pool
//   - [Instruction]: one decoded opcode and its operand
//
// # Immutability Guarantees
//
// Constructors copy their input slices and no type exposes a mutation
// method. Index-based accessors are used for all collections:
//
//	program.ConstantAt(0)
//	program.FunctionAt(i)
//	fn.InstructionAt(ip)
//
// # Validation
//
// [NewProgram] does not validate cross references. Call [Program.Validate]
// to check a program eagerly; the virtual machine repeats the same checks
// lazily as each instruction executes.
package bytecode
