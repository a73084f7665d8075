package object

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumen-lang/lumen/pkg/value"
)

func TestFunctionStringUnnamedIsScript(t *testing.T) {
	fn := NewFunction()
	require.Equal(t, "<script>", fn.String())
}

func TestFunctionStringNamed(t *testing.T) {
	fn := NewFunction()
	fn.Name = value.NewString("add")
	require.Equal(t, "<fn add>", fn.String())
}

func TestNativeCallInvokesWrappedFn(t *testing.T) {
	n := NewNative("clock", 0, func(args []value.Value) (value.Value, error) {
		return value.Number(1), nil
	})
	result, err := n.Call(nil)
	require.NoError(t, err)
	require.Equal(t, value.Number(1), result)
	require.Equal(t, "<native fn clock>", n.String())
}

func TestNewClosureSizesUpvalues(t *testing.T) {
	fn := NewFunction()
	fn.UpvalueCount = 3

	c := NewClosure(fn)
	require.Len(t, c.Upvalues, 3)
	require.Equal(t, fn.String(), c.String())
}

func TestClassMethodsStartEmpty(t *testing.T) {
	class := NewClass(value.NewString("Widget"))
	require.Equal(t, "<class 'Widget'>", class.String())
	require.Equal(t, 0, class.Methods.Count())
}

func TestInstanceStringAndFields(t *testing.T) {
	class := NewClass(value.NewString("Widget"))
	inst := NewInstance(class)

	require.Equal(t, "<'Widget' object>", inst.String())
	require.Equal(t, 0, inst.Fields.Count())

	key := value.NewString("size")
	inst.Fields.Set(key, value.Number(3))
	got, ok := inst.Fields.Get(key)
	require.True(t, ok)
	require.Equal(t, value.Number(3), got)
}

func TestBoundMethodDelegatesString(t *testing.T) {
	fn := NewFunction()
	fn.Name = value.NewString("greet")
	closure := NewClosure(fn)
	class := NewClass(value.NewString("Widget"))
	inst := NewInstance(class)

	bound := NewBoundMethod(value.FromObject(inst), closure)
	require.Equal(t, "<fn greet>", bound.String())
	require.Equal(t, value.FromObject(inst), bound.Receiver)
}
