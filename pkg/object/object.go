// Package object defines the heap Object variants layered on top of
// pkg/value's base Object interface and Header: functions, native
// functions, closures, classes, instances, and bound methods. These
// variants are split out from pkg/value because each references a
// pkg/chunk.Chunk or a pkg/table.Table, and pkg/value must stay at the
// bottom of the dependency chain with no internal imports (see
// SPEC_FULL.md §13 and DESIGN.md for the full acyclic-dependency
// reasoning: clox's object.h/value.h/chunk.h/table.h mutually forward
// declare each other, which Go cannot express, so the split instead
// follows the direction data flows).
package object

import (
	"fmt"

	"github.com/lumen-lang/lumen/pkg/chunk"
	"github.com/lumen-lang/lumen/pkg/table"
	"github.com/lumen-lang/lumen/pkg/value"
)

// ObjFunction is a compiled function: its arity, its upvalue count,
// the bytecode body, and an optional name (nil for the implicit
// top-level script function, matching clox's convention).
type ObjFunction struct {
	value.Header
	Arity        int
	UpvalueCount int
	Chunk        *chunk.Chunk
	Name         *value.ObjString
}

// NewFunction allocates an empty, unnamed ObjFunction ready for the
// compiler to populate.
func NewFunction() *ObjFunction {
	return &ObjFunction{
		Header: value.NewHeader(value.ObjKindFunction),
		Chunk:  chunk.New(),
	}
}

func (f *ObjFunction) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.Chars)
}

// NativeFn is a host function exposed to Lumen code: it receives its
// arguments and returns a result value or an error message (spec.md
// treats native failures as ordinary runtime errors).
type NativeFn func(args []value.Value) (value.Value, error)

// ObjNative wraps a host Go function so it can occupy a Value slot
// and be called the same way a Closure is.
type ObjNative struct {
	value.Header
	Name  string
	Arity int
	Call  NativeFn
}

// NewNative allocates a native function object.
func NewNative(name string, arity int, fn NativeFn) *ObjNative {
	return &ObjNative{Header: value.NewHeader(value.ObjKindNative), Name: name, Arity: arity, Call: fn}
}

func (n *ObjNative) String() string { return fmt.Sprintf("<native fn %s>", n.Name) }

// ObjClosure pairs a compiled ObjFunction with the live upvalues it
// captured at creation time (I5: exactly function.UpvalueCount
// non-nil entries).
type ObjClosure struct {
	value.Header
	Function *ObjFunction
	Upvalues []*value.ObjUpvalue
}

// NewClosure allocates a closure over fn with an upvalue slice sized
// to fn's declared upvalue count, ready for the VM to fill in during
// OP_CLOSURE.
func NewClosure(fn *ObjFunction) *ObjClosure {
	return &ObjClosure{
		Header:   value.NewHeader(value.ObjKindClosure),
		Function: fn,
		Upvalues: make([]*value.ObjUpvalue, fn.UpvalueCount),
	}
}

func (c *ObjClosure) String() string { return c.Function.String() }

// ObjClass is a class: its name and its method table (I4: every value
// in Methods is an *ObjClosure).
type ObjClass struct {
	value.Header
	Name    *value.ObjString
	Methods *table.Table
}

// NewClass allocates an empty class named name.
func NewClass(name *value.ObjString) *ObjClass {
	return &ObjClass{Header: value.NewHeader(value.ObjKindClass), Name: name, Methods: table.New()}
}

func (c *ObjClass) String() string { return fmt.Sprintf("<class '%s'>", c.Name.Chars) }

// ObjInstance is an instance of a class: the class it was constructed
// from, and its own field table (distinct from the class's method
// table — fields and methods never share a namespace lookup path,
// GET_PROPERTY checks fields first, then falls back to a bound
// method).
type ObjInstance struct {
	value.Header
	Class  *ObjClass
	Fields *table.Table
}

// NewInstance allocates a fresh instance of class with an empty field
// table.
func NewInstance(class *ObjClass) *ObjInstance {
	return &ObjInstance{Header: value.NewHeader(value.ObjKindInstance), Class: class, Fields: table.New()}
}

func (i *ObjInstance) String() string { return fmt.Sprintf("<'%s' object>", i.Class.Name.Chars) }

// ObjBoundMethod pairs a receiver with one of its class's closures, as
// produced by property access that resolves to a method (GET_PROPERTY,
// GET_SUPER). Calling it rewrites the call's slot 0 to the receiver
// and invokes the wrapped closure.
type ObjBoundMethod struct {
	value.Header
	Receiver value.Value
	Method   *ObjClosure
}

// NewBoundMethod allocates a bound method.
func NewBoundMethod(receiver value.Value, method *ObjClosure) *ObjBoundMethod {
	return &ObjBoundMethod{Header: value.NewHeader(value.ObjKindBoundMethod), Receiver: receiver, Method: method}
}

func (b *ObjBoundMethod) String() string { return b.Method.String() }
