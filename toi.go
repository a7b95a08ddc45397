// Package toi loads and runs programs for the toi stack-based bytecode
// virtual machine.
//
// A program is either the line-oriented text form read by the loader package
// or the binary image written by bytecode.MarshalImage:
//
//	result, err := toi.RunFile(ctx, "fact.toi")
//	if err != nil {
//		return err
//	}
//	fmt.Println(result.Value)
package toi

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/toi-lang/toi/bytecode"
	"github.com/toi-lang/toi/loader"
	"github.com/toi-lang/toi/vm"
)

// textPrefix is the first header of every program in text form.
const textPrefix = "constants"

// Load parses a program from its text form.
// The returned Program is immutable and safe for concurrent use.
func Load(source string, opts ...Option) (*bytecode.Program, error) {
	o := collectOptions(opts...)
	return loader.LoadString(source, o.loaderOpts()...)
}

// Decode loads a program from either of its encodings. Data beginning with
// the "constants" header is parsed as text; anything else is treated as a
// binary image.
func Decode(data []byte, opts ...Option) (*bytecode.Program, error) {
	o := collectOptions(opts...)
	if IsText(data) {
		return loader.Load(bytes.NewReader(data), o.loaderOpts()...)
	}
	program, err := bytecode.UnmarshalImage(data)
	if err != nil {
		return nil, err
	}
	if !o.skipValidation {
		if err := program.Validate(); err != nil {
			return nil, err
		}
	}
	return program, nil
}

// IsText reports whether data looks like a program in text form.
func IsText(data []byte) bool {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	return bytes.HasPrefix(data, []byte(textPrefix))
}

// LoadFile reads and decodes the program in the named file.
func LoadFile(path string, opts ...Option) (*bytecode.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	program, err := Decode(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return program, nil
}

// Run executes a loaded program. Each call creates fresh runtime state,
// allowing concurrent execution of the same Program.
func Run(ctx context.Context, program *bytecode.Program, opts ...Option) (vm.Result, error) {
	o := collectOptions(opts...)
	return vm.Run(ctx, program, o.vmOpts()...)
}

// Eval is a convenience function that loads and runs a program in text form.
func Eval(ctx context.Context, source string, opts ...Option) (vm.Result, error) {
	program, err := Load(source, opts...)
	if err != nil {
		return vm.Result{}, err
	}
	return Run(ctx, program, opts...)
}

// RunFile loads the named file and runs it.
func RunFile(ctx context.Context, path string, opts ...Option) (vm.Result, error) {
	program, err := LoadFile(path, opts...)
	if err != nil {
		return vm.Result{}, err
	}
	return Run(ctx, program, opts...)
}

// Call invokes one function of a loaded program with explicit arguments and
// returns its result.
func Call(ctx context.Context, program *bytecode.Program, name string, args []int64, opts ...Option) (int64, error) {
	o := collectOptions(opts...)
	return vm.New(program, o.vmOpts()...).Call(ctx, name, args...)
}
