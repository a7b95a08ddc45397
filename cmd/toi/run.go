package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/toi-lang/toi"
	"github.com/toi-lang/toi/vm"
)

// callResult is what --func prints with --output json.
type callResult struct {
	Function string  `json:"function"`
	Args     []int64 `json:"args"`
	Result   int64   `json:"result"`
}

func runHandler(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	program, _, err := loadInput(cmd, args)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	opts := []toi.Option{
		toi.WithOutput(cmd.OutOrStdout()),
		toi.WithLogger(logger),
		toi.WithMaxCallDepth(viper.GetInt("max-call-depth")),
	}
	if viper.GetBool("trace") {
		opts = append(opts, toi.WithObserver(vm.NewTraceObserver(logger)))
	}

	format := viper.GetString("output")
	start := time.Now()
	var output any
	if name, _ := cmd.Flags().GetString("func"); name != "" {
		callArgs, err := cmd.Flags().GetInt64Slice("arg")
		if err != nil {
			return err
		}
		value, err := toi.Call(ctx, program, name, callArgs, opts...)
		if err != nil {
			return err
		}
		output = value
		if format == "json" {
			output = callResult{Function: name, Args: callArgs, Result: value}
		}
	} else {
		result, err := toi.Run(ctx, program, opts...)
		if err != nil {
			return err
		}
		switch format {
		case "":
			// PRINTLN output is all a plain run shows
		case "text":
			output = result.Value
		default:
			output = result
		}
	}
	elapsed := time.Since(start)

	text, err := getOutput(output, format)
	if err != nil {
		return err
	}
	if text != "" {
		fmt.Fprintln(cmd.OutOrStdout(), text)
	}
	if viper.GetBool("timing") {
		fmt.Fprintf(cmd.ErrOrStderr(), "%v\n", elapsed)
	}
	return nil
}
