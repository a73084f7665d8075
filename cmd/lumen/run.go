package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lumen-lang/lumen/pkg/vm"
)

func newRunCommand(stressGC *bool, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run <file>",
		Short: "Compile and run a Lumen source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFile(args[0], *stressGC, *logLevel)
		},
	}
}

func runFile(path string, stressGC bool, logLevel string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return withExitCode(errors.Wrapf(errIO, "reading %s: %v", path, err), exitIOError)
	}

	logger, err := newLogger(logLevel)
	if err != nil {
		return withExitCode(errors.Wrap(errUsage, err.Error()), exitUsageError)
	}
	defer func() { _ = logger.Sync() }()

	machine := vm.New(vm.WithStressGC(stressGC), vm.WithLogger(logger))
	switch machine.Interpret(string(source)) {
	case vm.InterpretCompileError:
		return withExitCode(errCompile, exitCompileError)
	case vm.InterpretRuntimeError:
		return withExitCode(errRuntime, exitRuntimeError)
	default:
		return nil
	}
}

func newLogger(level string) (*zap.Logger, error) {
	zapLevel := zap.NewAtomicLevel()
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.Wrapf(err, "invalid --log-level %q", level)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zapLevel
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true
	return cfg.Build()
}
