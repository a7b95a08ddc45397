package vm

import (
	"context"

	"github.com/toi-lang/toi/bytecode"
)

// Result is the state of the top-level frame after a run completes.
type Result struct {
	// Value is the top of the top-level stack, or 0 if the stack is empty.
	// It is observational only.
	Value int64 `json:"value"`

	// Stack is the top-level evaluation stack, bottom first.
	Stack []int64 `json:"stack"`

	// Variables holds the top-level variable slots in declaration order.
	Variables []int64 `json:"variables"`

	// Steps is the number of instructions executed across all frames.
	Steps int64 `json:"steps"`
}

// Run the given program in a new Virtual Machine and return the result.
func Run(ctx context.Context, program *bytecode.Program, options ...Option) (Result, error) {
	return New(program, options...).Run(ctx)
}
