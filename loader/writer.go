package loader

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/toi-lang/toi/bytecode"
)

// Write emits the canonical text form of the program. Load(Write(p)) yields a
// program equal to p.
func Write(w io.Writer, p *bytecode.Program) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "%s\n%d\n", headerConstants, p.ConstantCount())
	for i := 0; i < p.ConstantCount(); i++ {
		c := p.ConstantAt(i)
		if s, ok := c.Str(); ok && strings.ContainsAny(s, "\r\n") {
			return fmt.Errorf("string constant %d contains a line break", i)
		}
		fmt.Fprintf(bw, "%s\n", c)
	}

	fmt.Fprintf(bw, "%s\n%d\n", headerFunctions, p.FunctionCount())
	for i := 0; i < p.FunctionCount(); i++ {
		fn := p.FunctionAt(i)
		fmt.Fprintf(bw, "%s\n", fn.Name())
		if fn.HasOutVar() {
			bw.WriteString("1\n")
		} else {
			bw.WriteString("0\n")
		}
		writeNames(bw, headerParameters, fn.Parameters())
		writeNames(bw, headerVariables, fn.Variables())
		writeInstructions(bw, fn)
	}

	main := p.Main()
	writeNames(bw, headerVariables, main.Variables())
	writeInstructions(bw, main)

	return bw.Flush()
}

// Format returns the canonical text form of the program.
func Format(p *bytecode.Program) (string, error) {
	var sb strings.Builder
	if err := Write(&sb, p); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func writeNames(w *bufio.Writer, header string, names []string) {
	fmt.Fprintf(w, "%s\n%d\n", header, len(names))
	for _, name := range names {
		fmt.Fprintf(w, "%s\n", name)
	}
}

func writeInstructions(w *bufio.Writer, fn *bytecode.Function) {
	fmt.Fprintf(w, "%s\n%d\n", headerInstructions, fn.InstructionCount())
	for i := 0; i < fn.InstructionCount(); i++ {
		fmt.Fprintf(w, "%d\n", fn.InstructionAt(i))
	}
}
