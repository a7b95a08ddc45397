package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toi-lang/toi"
	"github.com/toi-lang/toi/errz"
)

const (
	factPath     = "../../loader/testdata/fact.toi"
	identityPath = "../../loader/testdata/identity.toi"
)

type cmdOutput struct {
	stdout string
	stderr string
}

func execute(t *testing.T, stdin string, args ...string) (cmdOutput, error) {
	t.Helper()
	saved := color.NoColor
	t.Cleanup(func() { color.NoColor = saved })
	t.Setenv("HOME", t.TempDir())
	viper.Reset()

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return cmdOutput{stdout: stdout.String(), stderr: stderr.String()}, err
}

func TestRunFile(t *testing.T) {
	out, err := execute(t, "", factPath)
	require.NoError(t, err)
	assert.Equal(t, "120\n", out.stdout)
}

func TestRunOutputText(t *testing.T) {
	out, err := execute(t, "", "-o", "text", identityPath)
	require.NoError(t, err)
	assert.Equal(t, "1000\n", out.stdout)
}

func TestRunOutputJSON(t *testing.T) {
	out, err := execute(t, "", "-o", "json", factPath)
	require.NoError(t, err)
	lines := strings.SplitN(out.stdout, "\n", 2)
	require.Len(t, lines, 2)
	assert.Equal(t, "120", lines[0])

	var result struct {
		Value     int64   `json:"value"`
		Variables []int64 `json:"variables"`
		Steps     int64   `json:"steps"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &result))
	assert.Equal(t, []int64{120}, result.Variables)
	assert.Greater(t, result.Steps, int64(0))
}

func TestRunUnknownOutputFormat(t *testing.T) {
	_, err := execute(t, "", "-o", "xml", identityPath)
	assert.EqualError(t, err, "unknown output format: xml")
}

func TestRunFunc(t *testing.T) {
	out, err := execute(t, "", "--func", "fact", "--arg", "10", factPath)
	require.NoError(t, err)
	assert.Equal(t, "3628800\n", out.stdout)

	out, err = execute(t, "", "-o", "json", "--func", "fact", "--arg", "4", factPath)
	require.NoError(t, err)
	var result callResult
	require.NoError(t, json.Unmarshal([]byte(out.stdout), &result))
	assert.Equal(t, callResult{Function: "fact", Args: []int64{4}, Result: 24}, result)

	_, err = execute(t, "", "--func", "fact", factPath)
	assert.EqualError(t, err, `args error: function "fact" takes 1 argument (0 given)`)

	_, err = execute(t, "", "--func", "missing", factPath)
	kind, ok := errz.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errz.UndefinedFunction, kind)
}

func TestRunMaxCallDepth(t *testing.T) {
	_, err := execute(t, "", "--max-call-depth", "3", factPath)
	kind, ok := errz.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errz.StackOverflow, kind)
}

func TestRunStdinAndCode(t *testing.T) {
	source, err := os.ReadFile(identityPath)
	require.NoError(t, err)

	out, err := execute(t, string(source), "--stdin", "-o", "text")
	require.NoError(t, err)
	assert.Equal(t, "1000\n", out.stdout)

	out, err = execute(t, "", "-c", string(source), "-o", "text")
	require.NoError(t, err)
	assert.Equal(t, "1000\n", out.stdout)
}

func TestInputSources(t *testing.T) {
	_, err := execute(t, "", "--stdin", factPath)
	assert.EqualError(t, err, "multiple input sources specified")

	_, err = execute(t, "")
	assert.ErrorContains(t, err, "no input provided")

	_, err = execute(t, "", "-c", "functions\n0\n")
	assert.ErrorContains(t, err, "<code>: ")
}

func TestRunTraceAndTiming(t *testing.T) {
	out, err := execute(t, "", "--trace", "--timing", identityPath)
	require.NoError(t, err)
	assert.Contains(t, out.stderr, "run_id=")
	assert.Contains(t, out.stderr, "CALL_FUNCTION")
	assert.Contains(t, out.stderr, "identity")
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := execute(t, "", "--log-level", "loud", identityPath)
	assert.EqualError(t, err, `invalid log level "loud"`)
}

func TestEnvironmentConfig(t *testing.T) {
	t.Setenv("TOI_OUTPUT", "text")
	out, err := execute(t, "", identityPath)
	require.NoError(t, err)
	assert.Equal(t, "1000\n", out.stdout)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toi.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max-call-depth: 2\n"), 0o644))
	_, err := execute(t, "", "--config", path, factPath)
	kind, ok := errz.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errz.StackOverflow, kind)

	_, err = execute(t, "", "--config", filepath.Join(t.TempDir(), "missing.yaml"), factPath)
	assert.ErrorContains(t, err, "config: ")
}

func TestDis(t *testing.T) {
	out, err := execute(t, "", "dis", identityPath)
	require.NoError(t, err)
	assert.Contains(t, out.stdout, "func:identity")
	assert.NotContains(t, out.stdout, "READ_VARIABLE")

	out, err = execute(t, "", "dis", "--func", "identity", identityPath)
	require.NoError(t, err)
	assert.Contains(t, out.stdout, "READ_VARIABLE")
	assert.Contains(t, out.stdout, "| x ")

	out, err = execute(t, "", "dis", "--all", identityPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.stdout, "identity (arity 1, 2 variables)\n"))
	assert.Contains(t, out.stdout, "\n<main> (arity 0, 0 variables)\n")

	_, err = execute(t, "", "dis", "--func", "nope", identityPath)
	assert.EqualError(t, err, `function "nope" not found`)

	_, err = execute(t, "", "dis", "--func", "identity", "--all", identityPath)
	assert.Error(t, err)
}

func TestDisOpcodeFilter(t *testing.T) {
	out, err := execute(t, "", "dis", "--all", "--op", "set_variable", factPath)
	require.NoError(t, err)
	assert.Contains(t, out.stdout, "SET_VARIABLE")
	assert.NotContains(t, out.stdout, "READ_VARIABLE")
	assert.NotContains(t, out.stdout, "CALL_FUNCTION")

	_, err = execute(t, "", "dis", "--op", "HALT", factPath)
	assert.EqualError(t, err, `unknown opcode "HALT"`)
}

func TestFmt(t *testing.T) {
	source, err := os.ReadFile(factPath)
	require.NoError(t, err)

	out, err := execute(t, "", "fmt", factPath)
	require.NoError(t, err)
	assert.Equal(t, string(source), out.stdout)

	_, err = execute(t, "", "fmt", "--check", factPath)
	assert.NoError(t, err)

	path := filepath.Join(t.TempDir(), "fact.toi")
	messy := strings.ReplaceAll(string(source), "\n", "\r\n")
	require.NoError(t, os.WriteFile(path, []byte(messy), 0o600))

	_, err = execute(t, "", "fmt", "--check", path)
	assert.EqualError(t, err, path+" is not in canonical form")

	_, err = execute(t, "", "fmt", "-w", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(source), string(data))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = execute(t, string(source), "fmt", "--stdin", "-w")
	assert.EqualError(t, err, "--write requires a file argument")
}

func TestBuildAndRunImage(t *testing.T) {
	dir := t.TempDir()
	image := filepath.Join(dir, "fact.toic")

	out, err := execute(t, "", "build", "-o", image, factPath)
	require.NoError(t, err)
	assert.Equal(t, image+"\n", out.stdout)

	data, err := os.ReadFile(image)
	require.NoError(t, err)
	assert.False(t, toi.IsText(data))

	out, err = execute(t, "", image)
	require.NoError(t, err)
	assert.Equal(t, "120\n", out.stdout)

	// Images convert back to text but are never overwritten with it.
	source, err := os.ReadFile(factPath)
	require.NoError(t, err)
	out, err = execute(t, "", "fmt", image)
	require.NoError(t, err)
	assert.Equal(t, string(source), out.stdout)

	_, err = execute(t, "", "fmt", "-w", image)
	assert.ErrorContains(t, err, "binary image")
}

func TestImagePath(t *testing.T) {
	assert.Equal(t, "prog.toic", imagePath("prog.toi"))
	assert.Equal(t, "dir/prog.toic", imagePath("dir/prog"))
	assert.Equal(t, "out.toic", imagePath(""))
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out.stdout)

	out, err = execute(t, "", "version", "-o", "json")
	require.NoError(t, err)
	var info versionInfo
	require.NoError(t, json.Unmarshal([]byte(out.stdout), &info))
	assert.Equal(t, versionInfo{Version: version, Commit: commit, Date: date}, info)
}

func TestErrorText(t *testing.T) {
	assert.Equal(t, "boom", errorText("boom"))
	assert.Equal(t, "42", errorText(42))

	err := errz.AtInstruction(errz.DivisionByZero, "f", 4, "BINARY", "division by zero")
	err.PushFrame("<main>", 2)
	text := errorText(err)
	assert.True(t, strings.HasPrefix(text, "[E3005] runtime error: "))
	assert.Contains(t, text, "division by zero")
	assert.Contains(t, text, "<main>")
	assert.False(t, strings.HasSuffix(text, "\n"))
}

func TestGetOutput(t *testing.T) {
	text, err := getOutput(nil, "")
	require.NoError(t, err)
	assert.Empty(t, text)

	text, err = getOutput(int64(7), "TEXT")
	require.NoError(t, err)
	assert.Equal(t, "7", text)
}

func TestBench(t *testing.T) {
	out, err := execute(t, "", "bench", "-n", "20", "-w", "2", "-o", "json", factPath)
	require.NoError(t, err)
	var result BenchResult
	require.NoError(t, json.Unmarshal([]byte(out.stdout), &result))
	assert.Equal(t, 20, result.Iterations)
	assert.Equal(t, 2, result.Warmup)
	assert.Greater(t, result.Steps, int64(0))
	assert.LessOrEqual(t, result.MinNs, result.MedianNs)
	assert.LessOrEqual(t, result.MedianNs, result.MaxNs)

	out, err = execute(t, "", "bench", "-n", "5", "-w", "0", identityPath)
	require.NoError(t, err)
	assert.Contains(t, out.stdout, "| Iterations |")
	assert.Contains(t, out.stdout, "| Steps/run  |")
	assert.NotContains(t, out.stdout, "1000\n")
}

func TestCountdownExample(t *testing.T) {
	out, err := execute(t, "", "../../examples/programs/countdown.toi")
	require.NoError(t, err)
	assert.Equal(t, "3\n2\n1\n", out.stdout)
}

func TestBenchProgramError(t *testing.T) {
	program := "constants\n0\nfunctions\n0\nvariables\n0\ninstructions\n2\n0\n0\n"
	_, err := execute(t, "", "bench", "-c", program)
	assert.ErrorContains(t, err, "program error: ")
	assert.True(t, errors.Is(err, errz.StackUnderflow))
}
