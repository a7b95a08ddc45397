package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/toi-lang/toi"
	"github.com/toi-lang/toi/loader"
)

func newFmtCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fmt [file]",
		Short: "Print a program in canonical text form",
		Long: `Print a program in canonical text form. Binary images are
converted back to text. With --write the file is rewritten in place and
with --check the command fails when the file is not already canonical.`,
		Args: cobra.MaximumNArgs(1),
		RunE: fmtHandler,
	}
	cmd.Flags().BoolP("write", "w", false, "Write the result back to the source file")
	cmd.Flags().Bool("check", false, "Fail if the input is not in canonical form")
	return cmd
}

func fmtHandler(cmd *cobra.Command, args []string) error {
	data, name, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	write, _ := cmd.Flags().GetBool("write")
	check, _ := cmd.Flags().GetBool("check")
	if write && len(args) == 0 {
		return fmt.Errorf("--write requires a file argument")
	}
	if write && !toi.IsText(data) {
		return fmt.Errorf("%s is a binary image; refusing to overwrite it with text", name)
	}

	program, err := decodeInput(data, name)
	if err != nil {
		return err
	}
	text, err := loader.Format(program)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	switch {
	case check:
		if text != string(data) {
			return fmt.Errorf("%s is not in canonical form", name)
		}
		return nil
	case write:
		info, err := os.Stat(args[0])
		if err != nil {
			return err
		}
		return os.WriteFile(args[0], []byte(text), info.Mode().Perm())
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), text)
	return err
}
