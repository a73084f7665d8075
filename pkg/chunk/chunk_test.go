package chunk

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumen-lang/lumen/pkg/value"
)

func TestWriteTracksLines(t *testing.T) {
	c := New()
	c.WriteOp(OpNil, 1)
	c.WriteOp(OpReturn, 2)

	require.Equal(t, 2, c.Len())
	require.Equal(t, 1, c.LineAt(0))
	require.Equal(t, 2, c.LineAt(1))
	require.Equal(t, byte(OpNil), c.Code[0])
	require.Equal(t, byte(OpReturn), c.Code[1])
}

func TestAddConstantReturnsIndex(t *testing.T) {
	c := New()
	i1 := c.AddConstant(value.Number(1))
	i2 := c.AddConstant(value.Number(2))

	require.Equal(t, 0, i1)
	require.Equal(t, 1, i2)
	require.Equal(t, value.Number(1), c.Constants[i1])
	require.Equal(t, value.Number(2), c.Constants[i2])
}

func TestLineAtOutOfRange(t *testing.T) {
	c := New()
	require.Equal(t, -1, c.LineAt(0))
	require.Equal(t, -1, c.LineAt(-1))
}

func TestOpCodeString(t *testing.T) {
	require.Equal(t, "OP_CONSTANT", OpConstant.String())
	require.Equal(t, "OP_RETURN", OpReturn.String())
	require.Equal(t, "OP_UNKNOWN", OpCode(255).String())
}
