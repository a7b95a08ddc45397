package main

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/toi-lang/toi"
	"github.com/toi-lang/toi/bytecode"
	"github.com/toi-lang/toi/internal/table"
)

// BenchResult holds benchmark statistics
type BenchResult struct {
	Iterations    int     `json:"iterations"`
	Warmup        int     `json:"warmup"`
	Steps         int64   `json:"steps"`
	TotalNs       int64   `json:"total_ns"`
	TotalDuration string  `json:"total_duration"`
	OpsPerSec     float64 `json:"ops_per_sec"`
	MinNs         int64   `json:"min_ns"`
	MaxNs         int64   `json:"max_ns"`
	AvgNs         int64   `json:"avg_ns"`
	MedianNs      int64   `json:"median_ns"`
	P95Ns         int64   `json:"p95_ns"`
	P99Ns         int64   `json:"p99_ns"`
}

func newBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench [file]",
		Short: "Benchmark program execution",
		Long: `Run a program repeatedly and report timing statistics. PRINTLN
output is discarded.`,
		Args: cobra.MaximumNArgs(1),
		RunE: benchHandler,
	}
	cmd.Flags().IntP("iterations", "n", 1000, "Number of iterations")
	cmd.Flags().IntP("warmup", "w", 100, "Warmup iterations")
	cmd.Flags().StringP("output", "o", "", "Output format (json, text)")
	return cmd
}

func benchHandler(cmd *cobra.Command, args []string) error {
	program, _, err := loadInput(cmd, args)
	if err != nil {
		return err
	}
	iterations, _ := cmd.Flags().GetInt("iterations")
	if iterations <= 0 {
		iterations = 1000
	}
	warmup, _ := cmd.Flags().GetInt("warmup")
	if warmup < 0 {
		warmup = 100
	}
	format, _ := cmd.Flags().GetString("output")

	result, err := benchmark(cmd.Context(), program, iterations, warmup)
	if err != nil {
		return err
	}
	if format == "json" {
		out, err := getOutputJSON(result)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}
	return printBench(cmd.OutOrStdout(), result)
}

func benchmark(ctx context.Context, program *bytecode.Program, iterations, warmup int) (BenchResult, error) {
	opts := []toi.Option{toi.WithOutput(io.Discard)}

	// Verify the program runs before timing it
	first, err := toi.Run(ctx, program, opts...)
	if err != nil {
		return BenchResult{}, fmt.Errorf("program error: %w", err)
	}
	for i := 0; i < warmup; i++ {
		if _, err := toi.Run(ctx, program, opts...); err != nil {
			return BenchResult{}, err
		}
	}

	runtime.GC()

	var total time.Duration
	durations := make([]time.Duration, iterations)
	for i := 0; i < iterations; i++ {
		start := time.Now()
		if _, err := toi.Run(ctx, program, opts...); err != nil {
			return BenchResult{}, err
		}
		durations[i] = time.Since(start)
		total += durations[i]
	}
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	result := BenchResult{
		Iterations:    iterations,
		Warmup:        warmup,
		Steps:         first.Steps,
		TotalNs:       total.Nanoseconds(),
		TotalDuration: total.Round(time.Microsecond).String(),
		MinNs:         durations[0].Nanoseconds(),
		MaxNs:         durations[iterations-1].Nanoseconds(),
		AvgNs:         (total / time.Duration(iterations)).Nanoseconds(),
		MedianNs:      durations[iterations/2].Nanoseconds(),
		P95Ns:         durations[int(float64(iterations)*0.95)].Nanoseconds(),
		P99Ns:         durations[int(float64(iterations)*0.99)].Nanoseconds(),
	}
	if total > 0 {
		result.OpsPerSec = float64(iterations) / total.Seconds()
	}
	return result, nil
}

func printBench(w io.Writer, r BenchResult) error {
	label := color.New(color.FgMagenta).SprintFunc()
	value := color.New(color.FgGreen).SprintFunc()
	ns := func(n int64) string {
		return value(time.Duration(n).Round(time.Microsecond).String())
	}
	rows := [][]string{
		{label("Iterations"), value(fmt.Sprintf("%d", r.Iterations))},
		{label("Warmup"), value(fmt.Sprintf("%d", r.Warmup))},
		{label("Steps/run"), value(fmt.Sprintf("%d", r.Steps))},
		{label("Total time"), value(r.TotalDuration)},
		{label("Ops/sec"), value(fmt.Sprintf("%.2f", r.OpsPerSec))},
		{label("Min"), ns(r.MinNs)},
		{label("Max"), ns(r.MaxNs)},
		{label("Avg"), ns(r.AvgNs)},
		{label("Median"), ns(r.MedianNs)},
		{label("p95"), ns(r.P95Ns)},
		{label("p99"), ns(r.P99Ns)},
	}
	return table.NewTable(w).
		WithColumnAlignment([]table.Alignment{table.AlignLeft, table.AlignRight}).
		WithRows(rows).
		Render()
}
