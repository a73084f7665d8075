package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExitCodeForKnownStatuses(t *testing.T) {
	require.Equal(t, exitCompileError, exitCodeFor(withExitCode(errCompile, exitCompileError)))
	require.Equal(t, exitRuntimeError, exitCodeFor(withExitCode(errRuntime, exitRuntimeError)))
	require.Equal(t, exitIOError, exitCodeFor(withExitCode(errIO, exitIOError)))
	require.Equal(t, exitUsageError, exitCodeFor(withExitCode(errUsage, exitUsageError)))
}

func TestExitCodeForUnknownErrorFallsBackToOne(t *testing.T) {
	require.Equal(t, exitUnknownFailure, exitCodeFor(errUsage))
}

func TestBraceDepthIgnoresBracesInsideStrings(t *testing.T) {
	require.Equal(t, 0, braceDepth(`print "{";`))
	require.Equal(t, 1, braceDepth(`fun f() {`))
	require.Equal(t, 0, braceDepth(`fun f() { print 1; }`))
}
