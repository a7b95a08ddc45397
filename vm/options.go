package vm

import (
	"io"

	"github.com/rs/zerolog"
)

// Option is a configuration function for a Virtual Machine.
type Option func(*VirtualMachine)

// WithOutput sets the writer that receives PRINTLN output. The default is
// os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(vm *VirtualMachine) {
		vm.output = w
	}
}

// WithMaxCallDepth limits how deeply CALL_FUNCTION may nest. Exceeding the
// limit fails with a StackOverflow error. The default is
// DefaultMaxCallDepth; values <= 0 restore the default.
func WithMaxCallDepth(depth int) Option {
	return func(vm *VirtualMachine) {
		if depth <= 0 {
			depth = DefaultMaxCallDepth
		}
		vm.maxCallDepth = depth
	}
}

// WithContextCheckInterval sets how often the VM checks ctx.Done() during
// execution. The interval is specified in number of instructions. A value of 0
// disables deterministic checking, relying only on the background goroutine
// that monitors the context. The default is DefaultContextCheckInterval (1000).
func WithContextCheckInterval(interval int) Option {
	return func(vm *VirtualMachine) {
		vm.contextCheckInterval = interval
	}
}

// WithObserver sets an observer for VM execution events.
// The observer receives callbacks for instruction steps, function calls,
// and function returns. Returning false from any observer method halts
// execution with ErrHalted.
func WithObserver(observer Observer) Option {
	return func(vm *VirtualMachine) {
		vm.observer = observer
	}
}

// WithLogger sets the logger used for run lifecycle messages. The default
// discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(vm *VirtualMachine) {
		vm.logger = logger
	}
}
