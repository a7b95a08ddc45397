package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gofrs/uuid"
	"github.com/hokaccha/go-prettyjson"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/toi-lang/toi"
	"github.com/toi-lang/toi/bytecode"
	"github.com/toi-lang/toi/errz"
)

func fatal(msg interface{}) {
	fmt.Fprintf(os.Stderr, "%s\n", red("%s", errorText(msg)))
	os.Exit(1)
}

func errorText(msg interface{}) string {
	switch msg := msg.(type) {
	case string:
		return msg
	case error:
		var e *errz.Error
		if errors.As(msg, &e) {
			return strings.TrimRight(e.FriendlyErrorMessage(), "\n")
		}
		return msg.Error()
	default:
		return fmt.Sprintf("%v", msg)
	}
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Reads global flags from Viper and adjusts the environment accordingly.
func processGlobalFlags() {
	if viper.GetBool("no-color") {
		color.NoColor = true
	}
}

// newLogger returns a console logger writing to w. Every run gets its own
// run_id so interleaved logs of concurrent invocations can be told apart.
func newLogger(w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q", viper.GetString("log-level"))
	}
	if viper.GetBool("trace") {
		level = zerolog.TraceLevel
	}
	runID, err := uuid.NewV4()
	if err != nil {
		return zerolog.Nop(), err
	}
	noColor := color.NoColor
	if f, ok := w.(*os.File); ok && !isTerminal(f) {
		noColor = true
	}
	console := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    noColor,
		TimeFormat: time.TimeOnly,
	}
	return zerolog.New(console).
		Level(level).
		With().
		Timestamp().
		Str("run_id", runID.String()).
		Logger(), nil
}

func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

// readInput determines which program is to be loaded. There are three
// possibilities:
// 1. --code <text>
// 2. --stdin (read the program from stdin)
// 3. path as args[0]
func readInput(cmd *cobra.Command, args []string) ([]byte, string, error) {
	codeSet := flagChanged(cmd, "code")
	stdinSet := viper.GetBool("stdin")
	count := 0
	for _, set := range []bool{codeSet, stdinSet, len(args) > 0} {
		if set {
			count++
		}
	}
	switch {
	case count > 1:
		return nil, "", errors.New("multiple input sources specified")
	case count == 0:
		return nil, "", errors.New("no input provided (pass a file, --code or --stdin)")
	case stdinSet:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, "", err
		}
		return data, "<stdin>", nil
	case codeSet:
		return []byte(viper.GetString("code")), "<code>", nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, "", err
	}
	return data, args[0], nil
}

// loadInput reads and decodes the program named by the command line.
func loadInput(cmd *cobra.Command, args []string) (*bytecode.Program, string, error) {
	data, name, err := readInput(cmd, args)
	if err != nil {
		return nil, "", err
	}
	program, err := decodeInput(data, name)
	if err != nil {
		return nil, "", err
	}
	return program, name, nil
}

func decodeInput(data []byte, name string) (*bytecode.Program, error) {
	var opts []toi.Option
	if viper.GetBool("no-validate") {
		opts = append(opts, toi.WithoutValidation())
	}
	program, err := toi.Decode(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return program, nil
}

var outputFormatsCompletion = []string{"json", "text"}

func getOutput(result any, format string) (string, error) {
	switch strings.ToLower(format) {
	case "":
		if result == nil {
			return "", nil
		}
		return fmt.Sprintf("%v", result), nil
	case "json":
		output, err := getOutputJSON(result)
		if err != nil {
			return "", err
		}
		return string(output), nil
	case "text":
		return fmt.Sprintf("%v", result), nil
	default:
		return "", fmt.Errorf("unknown output format: %s", format)
	}
}

func getOutputJSON(result any) ([]byte, error) {
	if viper.GetBool("no-color") || color.NoColor {
		return json.MarshalIndent(result, "", "  ")
	}
	return prettyjson.Marshal(result)
}
