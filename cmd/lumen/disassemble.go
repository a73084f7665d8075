package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/lumen-lang/lumen/pkg/compiler"
	"github.com/lumen-lang/lumen/pkg/debug"
	"github.com/lumen-lang/lumen/pkg/heap"
)

func newDisassembleCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "disassemble <file>",
		Aliases: []string{"disasm"},
		Short:   "Compile a source file and print its bytecode listing",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return disassembleFile(args[0])
		},
	}
}

func disassembleFile(path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return withExitCode(errors.Wrapf(errIO, "reading %s: %v", path, err), exitIOError)
	}

	h := heap.New()
	fn, err := compiler.Compile(string(source), h)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return withExitCode(errCompile, exitCompileError)
	}

	debug.Disassemble(os.Stdout, fn.Chunk, path)
	return nil
}
