// Command lumen is the CLI entry point for the Lumen language: run a
// source file, disassemble one to its bytecode listing, start an
// interactive REPL, or print the build version.
//
// Grounded on the teacher's cmd/smog/main.go (run/repl/disassemble/
// version dispatch, one file read → compile → execute pipeline per
// command), rebuilt on cobra + pflag per SPEC_FULL.md §11 rather than
// the teacher's hand-rolled os.Args switch.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

func newRootCommand() *cobra.Command {
	var stressGC bool
	var logLevel string

	root := &cobra.Command{
		Use:           "lumen",
		Short:         "Lumen is a small dynamically-typed scripting language",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&stressGC, "stress-gc", false, "collect garbage before every allocation")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "logger level: debug, info, warn, error")

	root.AddCommand(
		newRunCommand(&stressGC, &logLevel),
		newReplCommand(&stressGC, &logLevel),
		newDisassembleCommand(),
		newVersionCommand(),
	)
	return root
}
