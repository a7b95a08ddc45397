package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/toi-lang/toi/bytecode"
	"github.com/toi-lang/toi/dis"
	"github.com/toi-lang/toi/op"
)

func newDisCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dis [file]",
		Short: "Disassemble a program",
		Long: `Print the instructions of a program as a table. By default the
top-level code is shown; --func selects one function and --all shows
every function followed by the top-level code. --op keeps only the
instructions with the given opcode.`,
		Example: `  toi dis fact.toi
  toi dis --func fact fact.toi`,
		Args: cobra.MaximumNArgs(1),
		RunE: disHandler,
	}
	cmd.Flags().String("func", "", "Disassemble the named function")
	cmd.Flags().Bool("all", false, "Disassemble every function")
	cmd.Flags().String("op", "", "Only show instructions with this opcode, e.g. CALL_FUNCTION")
	return cmd
}

func disHandler(cmd *cobra.Command, args []string) error {
	program, _, err := loadInput(cmd, args)
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("func")
	all, _ := cmd.Flags().GetBool("all")
	if name != "" && all {
		return fmt.Errorf("--func and --all are mutually exclusive")
	}
	var filter *op.Code
	if opName, _ := cmd.Flags().GetString("op"); opName != "" {
		code, ok := op.Lookup(strings.ToUpper(opName))
		if !ok {
			return fmt.Errorf("unknown opcode %q", opName)
		}
		filter = &code
	}

	var functions []*bytecode.Function
	switch {
	case all:
		for i := 0; i < program.FunctionCount(); i++ {
			functions = append(functions, program.FunctionAt(i))
		}
		functions = append(functions, program.Main())
	case name != "":
		fn, ok := program.Function(name)
		if !ok {
			return fmt.Errorf("function %q not found", name)
		}
		functions = append(functions, fn)
	default:
		functions = append(functions, program.Main())
	}

	out := cmd.OutOrStdout()
	title := color.New(color.Bold).SprintFunc()
	for i, fn := range functions {
		instructions, err := dis.Disassemble(program, fn)
		if err != nil {
			return err
		}
		if filter != nil {
			instructions = onlyOpcode(instructions, *filter)
		}
		if len(functions) > 1 {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "%s (arity %d, %d variables)\n", title(fn.Name()), fn.Arity(), fn.LocalCount())
		}
		if err := dis.Print(instructions, out); err != nil {
			return err
		}
	}
	return nil
}

func onlyOpcode(instructions []dis.Instruction, code op.Code) []dis.Instruction {
	var kept []dis.Instruction
	for _, instr := range instructions {
		if instr.Opcode == code {
			kept = append(kept, instr)
		}
	}
	return kept
}
