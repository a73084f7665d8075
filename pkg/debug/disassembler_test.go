package debug

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumen-lang/lumen/pkg/compiler"
	"github.com/lumen-lang/lumen/pkg/heap"
	"github.com/lumen-lang/lumen/pkg/object"
)

func TestDisassembleSimpleExpression(t *testing.T) {
	h := heap.New()
	fn, err := compiler.Compile(`print 1 + 2;`, h)
	require.NoError(t, err)

	var buf strings.Builder
	Disassemble(&buf, fn.Chunk, "script")

	out := buf.String()
	require.Contains(t, out, "== script ==")
	require.Contains(t, out, "OP_CONSTANT")
	require.Contains(t, out, "OP_ADD")
	require.Contains(t, out, "OP_PRINT")
	require.Contains(t, out, "OP_RETURN")
}

func TestDisassembleJumpShowsTarget(t *testing.T) {
	h := heap.New()
	fn, err := compiler.Compile(`if (true) { print 1; } else { print 2; }`, h)
	require.NoError(t, err)

	var buf strings.Builder
	Disassemble(&buf, fn.Chunk, "script")

	out := buf.String()
	require.Contains(t, out, "OP_JUMP_IF_FALSE")
	require.Contains(t, out, "->")
}

func TestDisassembleClosureShowsUpvalues(t *testing.T) {
	h := heap.New()
	fn, err := compiler.Compile(`
		fun makeCounter() {
			var count = 0;
			fun increment() {
				count = count + 1;
			}
			return increment;
		}
	`, h)
	require.NoError(t, err)

	// The upvalue pairs follow increment's CLOSURE inside makeCounter's
	// own chunk, not the script's.
	var makeCounter *object.ObjFunction
	for _, c := range fn.Chunk.Constants {
		if f, ok := c.AsObject().(*object.ObjFunction); ok {
			makeCounter = f
		}
	}
	require.NotNil(t, makeCounter)

	var buf strings.Builder
	Disassemble(&buf, makeCounter.Chunk, "makeCounter")

	out := buf.String()
	require.Contains(t, out, "OP_CLOSURE")
	require.Contains(t, out, "local")
}

func TestDisassembleInstructionReturnsNextOffset(t *testing.T) {
	h := heap.New()
	fn, err := compiler.Compile(`print nil;`, h)
	require.NoError(t, err)

	var buf strings.Builder
	next := DisassembleInstruction(&buf, fn.Chunk, 0)
	require.Equal(t, 1, next, "OP_NIL has no operands")
}
