package vm

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// StackFrame is one line of a runtime stack trace: the function name
// active at the time of the error and the source line its instruction
// pointer had reached. Grounded on the teacher's vm/errors.go
// StackFrame, trimmed to what Lumen's call frames actually carry
// (Lumen has no message selector or source column to report).
type StackFrame struct {
	Name       string
	SourceLine int
}

// RuntimeError is a failed VM operation together with the call stack
// active when it happened, mirroring the teacher's RuntimeError type.
type RuntimeError struct {
	Message    string
	StackTrace []StackFrame
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for _, frame := range e.StackTrace {
		b.WriteString("\n[line ")
		fmt.Fprintf(&b, "%d", frame.SourceLine)
		b.WriteString("] in ")
		if frame.Name == "" {
			b.WriteString("script")
		} else {
			b.WriteString(frame.Name + "()")
		}
	}
	return b.String()
}

// runtimeError builds a *RuntimeError from the current call-frame ring,
// walking it top (most recently called) to bottom the way clox's
// runtimeError does, so the trace reads like a conventional backtrace.
func (vm *VM) runtimeError(format string, args ...interface{}) error {
	trace := make([]StackFrame, 0, vm.frameCount)
	for i := vm.frameCount - 1; i >= 0; i-- {
		f := &vm.frames[i]
		fn := f.Closure.Function
		line := 0
		if f.IP-1 >= 0 && f.IP-1 < len(fn.Chunk.Lines) {
			line = fn.Chunk.Lines[f.IP-1]
		}
		name := ""
		if fn.Name != nil {
			name = fn.Name.Chars
		}
		trace = append(trace, StackFrame{Name: name, SourceLine: line})
	}

	return &RuntimeError{
		Message:    fmt.Sprintf(format, args...),
		StackTrace: trace,
	}
}

// printRuntimeError reports err to stderr (SPEC_FULL.md: the stack
// trace is printed to stderr, not stdout) and, when a logger is
// installed, also logs it at error level for operators running with
// --log-level=debug or above.
func (vm *VM) printRuntimeError(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	vm.logger.Error("runtime error", zap.Error(err))
}
