package value

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewStringHashesContents(t *testing.T) {
	s := NewString("hello")
	require.Equal(t, "hello", s.Chars)
	require.Equal(t, HashString("hello"), s.Hash)
	require.Equal(t, ObjKindString, s.ObjKind())
}

func TestHashStringIsDeterministic(t *testing.T) {
	require.Equal(t, HashString("abc"), HashString("abc"))
	require.NotEqual(t, HashString("abc"), HashString("abd"))
}

func TestHeaderMarkBit(t *testing.T) {
	s := NewString("x")
	require.False(t, s.Marked())
	s.SetMarked(true)
	require.True(t, s.Marked())
}

func TestHeaderNextLink(t *testing.T) {
	a := NewString("a")
	b := NewString("b")
	require.Nil(t, a.Next())
	a.SetNext(b)
	require.Equal(t, Object(b), a.Next())
}

func TestUpvalueStartsOpen(t *testing.T) {
	slot := Number(7)
	u := NewUpvalue(&slot, 0)
	require.True(t, u.IsOpen())
	require.Equal(t, Number(7), *u.Location)
}

func TestUpvalueClose(t *testing.T) {
	slot := Number(7)
	u := NewUpvalue(&slot, 0)

	u.Close()

	require.False(t, u.IsOpen())
	require.Equal(t, Number(7), u.Closed)
	require.Equal(t, &u.Closed, u.Location)

	slot = Number(99)
	require.Equal(t, Number(7), *u.Location, "closed upvalue must not alias the original stack slot")
}

func TestObjKindString(t *testing.T) {
	tests := []struct {
		k    ObjKind
		want string
	}{
		{ObjKindString, "string"},
		{ObjKindFunction, "function"},
		{ObjKindNative, "native"},
		{ObjKindClosure, "closure"},
		{ObjKindUpvalue, "upvalue"},
		{ObjKindClass, "class"},
		{ObjKindInstance, "instance"},
		{ObjKindBoundMethod, "bound method"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			require.Equal(t, tt.want, tt.k.String())
		})
	}
}
