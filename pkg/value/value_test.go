package value

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsFalsey(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"nil is falsey", Nil, true},
		{"false is falsey", Bool(false), true},
		{"true is truthy", Bool(true), false},
		{"zero is truthy", Number(0), false},
		{"string is truthy", FromObject(NewString("")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.v.IsFalsey())
		})
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"nil equals nil", Nil, Nil, true},
		{"numbers equal", Number(3), Number(3), true},
		{"numbers differ", Number(3), Number(4), false},
		{"bools equal", Bool(true), Bool(true), true},
		{"different kinds never equal", Number(0), Bool(false), false},
		{"distinct string objects with equal text are not equal", FromObject(NewString("a")), FromObject(NewString("a")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestEqualSameStringObjectIdentity(t *testing.T) {
	s := NewString("shared")
	a := FromObject(s)
	b := FromObject(s)
	require.True(t, Equal(a, b))
}

func TestPrint(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"nil", Nil, "nil"},
		{"true", Bool(true), "true"},
		{"false", Bool(false), "false"},
		{"integer-valued float", Number(3), "3"},
		{"fractional float", Number(3.5), "3.5"},
		{"string object", FromObject(NewString("hi")), "hi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Print(tt.v))
		})
	}
}

func TestAccessorsRequireMatchingKind(t *testing.T) {
	n := Number(42)
	require.True(t, n.IsNumber())
	require.False(t, n.IsBool())
	require.False(t, n.IsNil())
	require.False(t, n.IsObject())
	require.Equal(t, 42.0, n.AsNumber())
}
