package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/toi-lang/toi/bytecode"
)

const imageExt = ".toic"

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [file]",
		Short: "Write a program as a binary image",
		Long: `Validate a program and write it as a binary image that "toi" can
run directly. The image is written next to the source with a .toic
extension unless --out is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: buildHandler,
	}
	cmd.Flags().StringP("out", "o", "", "Path of the image to write")
	return cmd
}

func imagePath(source string) string {
	if source == "" {
		return "out" + imageExt
	}
	return strings.TrimSuffix(source, filepath.Ext(source)) + imageExt
}

func buildHandler(cmd *cobra.Command, args []string) error {
	program, _, err := loadInput(cmd, args)
	if err != nil {
		return err
	}
	image, err := bytecode.MarshalImage(program)
	if err != nil {
		return err
	}
	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		var source string
		if len(args) > 0 {
			source = args[0]
		}
		out = imagePath(source)
	}
	if err := os.WriteFile(out, image, 0o644); err != nil {
		return err
	}

	logger, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	stats := program.Stats()
	logger.Info().
		Str("path", out).
		Int("bytes", len(image)).
		Int("functions", stats.FunctionCount).
		Int("instruction_bytes", stats.InstructionBytes).
		Msg("image written")
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
