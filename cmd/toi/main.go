package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/toi-lang/toi/vm"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	cfgFile string
	red     = color.New(color.FgRed).SprintfFunc()
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toi [flags] [file]",
		Short: "Run programs on the toi bytecode virtual machine",
		Long: `Run programs on the toi bytecode virtual machine.

A program is read from a file, from the --code flag or from stdin with
--stdin. Both the text form and binary images written by "toi build"
are accepted.`,
		Example: `  toi fact.toi
  toi --func fact --arg 10 fact.toi
  toi -o json fact.toic`,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
		RunE:              runHandler,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.toi.yaml)")
	pf.StringP("code", "c", "", "Program text to load")
	pf.Bool("stdin", false, "Read the program from stdin")
	pf.Bool("no-color", false, "Disable colored output")
	pf.Bool("no-validate", false, "Skip validation when loading; faults surface at execution")
	pf.String("log-level", "warn", "Log level (trace, debug, info, warn, error)")
	viper.BindPFlag("code", pf.Lookup("code"))
	viper.BindPFlag("stdin", pf.Lookup("stdin"))
	viper.BindPFlag("no-color", pf.Lookup("no-color"))
	viper.BindPFlag("no-validate", pf.Lookup("no-validate"))
	viper.BindPFlag("log-level", pf.Lookup("log-level"))

	f := cmd.Flags()
	f.StringP("output", "o", "", "Output format (json, text)")
	f.Bool("timing", false, "Show how long the program took to run")
	f.Bool("trace", false, "Log every executed instruction")
	f.String("func", "", "Call the named function instead of the top-level code")
	f.Int64Slice("arg", nil, "Argument passed to --func (repeatable)")
	f.Int("max-call-depth", vm.DefaultMaxCallDepth, "Maximum nesting of function calls")
	viper.BindPFlag("output", f.Lookup("output"))
	viper.BindPFlag("timing", f.Lookup("timing"))
	viper.BindPFlag("trace", f.Lookup("trace"))
	viper.BindPFlag("max-call-depth", f.Lookup("max-call-depth"))

	cmd.RegisterFlagCompletionFunc("output", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return outputFormatsCompletion, cobra.ShellCompDirectiveNoFileComp
	})

	cmd.AddCommand(
		newDisCmd(),
		newFmtCmd(),
		newBuildCmd(),
		newBenchCmd(),
		newVersionCmd(),
	)
	return cmd
}

func setup(cmd *cobra.Command, args []string) error {
	if err := initConfig(); err != nil {
		return err
	}
	processGlobalFlags()
	return nil
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return err
		}
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".toi")
	}

	viper.SetEnvPrefix("toi")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fatal(err)
	}
	os.Exit(0)
}
