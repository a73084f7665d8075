// Package value defines Lumen's tagged Value type and the heap Object
// variants it can reference.
//
// Value Representation:
//
// A Value is a small tagged struct with four kinds: Nil, Bool, Number
// (an IEEE-754 double), and Object (a reference to a heap-allocated
// Object). This mirrors clox's NaN/union-style Value exactly in
// spirit, but uses a plain Go struct instead of a C union — Go gives
// us sum-type discipline through the Kind field and a type switch
// instead of unsafe reinterpretation, which is the idiomatic
// substitute the corpus's own Value/tagged-struct ports use (see
// DESIGN.md, grounded on the `nooga/paserati` reference file).
//
// There are no implicit numeric coercions: arithmetic and comparison
// operators in pkg/vm check Kind before touching the payload, and
// conversion helpers here do not check the Kind at all — callers
// are expected to guard with the Is* predicates first, exactly as
// clox's AS_* macros trust the caller to have checked IS_* first.
package value

import (
	"fmt"
	"math"
	"strconv"
)

// Kind discriminates the four value categories.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindObject
)

// Value is Lumen's tagged union of nil, bool, number, and object.
type Value struct {
	kind   Kind
	number float64
	obj    Object
}

// Nil is the singular nil value.
var Nil = Value{kind: KindNil}

// Bool returns a boolean Value.
func Bool(b bool) Value {
	n := 0.0
	if b {
		n = 1.0
	}
	return Value{kind: KindBool, number: n}
}

// Number returns a numeric Value.
func Number(n float64) Value {
	return Value{kind: KindNumber, number: n}
}

// FromObject returns a Value wrapping a heap Object.
func FromObject(o Object) Value {
	return Value{kind: KindObject, obj: o}
}

// Kind reports the value's kind.
func (v Value) Kind() Kind { return v.kind }

// IsNil reports whether v is nil.
func (v Value) IsNil() bool { return v.kind == KindNil }

// IsBool reports whether v is a boolean.
func (v Value) IsBool() bool { return v.kind == KindBool }

// IsNumber reports whether v is a number.
func (v Value) IsNumber() bool { return v.kind == KindNumber }

// IsObject reports whether v is a heap object reference.
func (v Value) IsObject() bool { return v.kind == KindObject }

// AsBool returns v's boolean payload. The caller must have checked
// IsBool first; this does not itself validate the kind (see package
// doc — matches clox's AS_BOOL contract).
func (v Value) AsBool() bool { return v.number != 0 }

// AsNumber returns v's numeric payload.
func (v Value) AsNumber() float64 { return v.number }

// AsObject returns v's object payload.
func (v Value) AsObject() Object { return v.obj }

// IsFalsey implements Lumen's truthiness rule: nil and false are
// falsey, everything else (including 0 and "") is truthy.
func (v Value) IsFalsey() bool {
	return v.kind == KindNil || (v.kind == KindBool && !v.AsBool())
}

// Equal implements valuesEqual: same kind and equal payload. Objects
// compare by identity except strings, which are interned so identity
// equality coincides with textual equality (I2).
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindBool:
		return a.AsBool() == b.AsBool()
	case KindNumber:
		return a.number == b.number
	case KindObject:
		return a.obj == b.obj
	default:
		return false
	}
}

// Print renders v in Lumen's canonical textual form: numbers in their
// shortest conventional decimal form, booleans as true/false, nil as
// nil, and objects dispatched to their own String method.
func Print(v Value) string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case KindNumber:
		return formatNumber(v.number)
	case KindObject:
		return v.obj.String()
	default:
		return fmt.Sprintf("<invalid value kind %d>", v.kind)
	}
}

func formatNumber(n float64) string {
	if math.IsInf(n, 1) {
		return "inf"
	}
	if math.IsInf(n, -1) {
		return "-inf"
	}
	if math.IsNaN(n) {
		return "nan"
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}
