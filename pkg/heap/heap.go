// Package heap implements Lumen's allocator and tracing garbage
// collector: every Object the compiler or VM needs is allocated
// through a Heap, which threads it onto a single allocation list
// (I1), tracks byte usage, and runs a tri-color mark-and-sweep
// collection whenever that usage crosses a growing threshold.
//
// Design Rationale:
//
// The algorithm is clox's mark-sweep (memory.c) ported to Go: mark
// every root gray, drain a gray worklist by "blackening" each object
// (marking whatever it references, then treating it as done), prune
// the string intern table of anything left unmarked (G2 — interned
// strings are weak references, not roots), then sweep the allocation
// list freeing anything still unmarked. The gray worklist itself is a
// plain Go slice that is never counted against bytesAllocated,
// matching clox's ALLOCATE_UNMANAGED convention for the gray stack
// (R2 in SPEC_FULL.md §12) — collecting must never itself be able to
// trigger a further collection.
//
// Lumen has no byte-for-byte struct sizes the way C's sizeof() gives
// clox; accounting instead uses a fixed logical cost per object kind
// (see objectCost) plus the length of string contents. This is close
// enough to drive the same growth-threshold behavior without resorting
// to unsafe.Sizeof, which the rest of the corpus never reaches for
// either (see DESIGN.md).
package heap

import (
	"go.uber.org/zap"

	"github.com/lumen-lang/lumen/pkg/object"
	"github.com/lumen-lang/lumen/pkg/table"
	"github.com/lumen-lang/lumen/pkg/value"
)

// growFactor is clox's GC_HEAP_GROW_FACTOR: after each collection the
// next collection is triggered at bytesAllocated * growFactor.
const growFactor = 2

// initialNextGC is the byte threshold before the very first
// collection runs, recovered from clox's memory.c convention (not
// stated in spec.md; see SPEC_FULL.md §12).
const initialNextGC = 1024 * 1024

// RootMarker is supplied by the VM (the only component that knows
// about the value stack, call frames, open-upvalue list, globals
// table, and compiler chain) to paint every GC root gray at the start
// of a collection. mark roots an Object directly; markValue roots a
// Value, marking its Object payload only if it has one.
type RootMarker func(mark func(value.Object), markValue func(value.Value))

// Heap owns the allocation list, the string intern table, and the
// byte-accounting state that drives collection.
type Heap struct {
	bytesAllocated int64
	nextGC         int64
	objects        value.Object
	strings        *table.Table
	gray           []value.Object
	stressGC       bool
	rootMarker     RootMarker
	logger         *zap.Logger

	// transientRoot holds whatever object track() is in the middle of
	// allocating, for the duration of the Collect() that allocation
	// itself might trigger. A just-created object isn't reachable from
	// any real root yet (it hasn't been stored into a stack slot, chunk
	// constant, or field) — mirrors clox's push(OBJ_VAL(string)) before
	// tableSet in allocateString (memory.c/object.c), generalized to
	// every allocation kind rather than just interned strings.
	transientRoot value.Object

	initString *value.ObjString
}

// Option configures a Heap at construction.
type Option func(*Heap)

// WithStressGC forces a collection before every single allocation,
// the same stress-test mode clox's DEBUG_STRESS_GC build flag
// provides, here exposed as the --stress-gc CLI flag.
func WithStressGC(enabled bool) Option {
	return func(h *Heap) { h.stressGC = enabled }
}

// WithLogger installs a structured logger for GC cycle diagnostics.
// A nil logger is replaced with a no-op logger so callers never need
// to guard against a missing logger.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Heap) {
		if logger == nil {
			logger = zap.NewNop()
		}
		h.logger = logger
	}
}

// New returns an empty Heap ready to allocate.
func New(opts ...Option) *Heap {
	h := &Heap{
		strings: table.New(),
		nextGC:  initialNextGC,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.initString = h.InternString("init")
	return h
}

// SetRootMarker installs the VM's root-marking callback. Collections
// are a no-op until this is set, since there would be nothing to
// start marking from.
func (h *Heap) SetRootMarker(fn RootMarker) {
	h.rootMarker = fn
}

// InitString returns the preinterned "init" string, used by the VM to
// recognize initializer methods without hashing the literal on every
// instance construction.
func (h *Heap) InitString() *value.ObjString {
	return h.initString
}

// BytesAllocated reports current tracked heap usage.
func (h *Heap) BytesAllocated() int64 { return h.bytesAllocated }

// InternString returns the canonical *value.ObjString for chars,
// allocating and registering a new one only if an equal string isn't
// already interned (I2). Lumen's Go strings are immutable, so there is
// no distinction between clox's copyString (duplicate a buffer) and
// takeString (adopt an existing one) — both collapse to this one path.
func (h *Heap) InternString(chars string) *value.ObjString {
	hash := value.HashString(chars)
	if existing := h.strings.FindStringByContents(chars, hash); existing != nil {
		return existing
	}

	s := value.NewString(chars)
	h.track(s, stringCost(chars))
	// No extra rooting is needed around the Set call: Set can grow the
	// table's backing array, but that allocates no heap Objects, so no
	// collection can occur mid-call. pkg/chunk.AddConstant relies on
	// the same property.
	h.strings.Set(s, value.Bool(true))
	return s
}

// NewFunction allocates a fresh, unnamed function object.
func (h *Heap) NewFunction() *object.ObjFunction {
	fn := object.NewFunction()
	h.track(fn, objectCost)
	return fn
}

// NewNative allocates a native function object.
func (h *Heap) NewNative(name string, arity int, call object.NativeFn) *object.ObjNative {
	n := object.NewNative(name, arity, call)
	h.track(n, objectCost)
	return n
}

// NewClosure allocates a closure wrapping fn.
func (h *Heap) NewClosure(fn *object.ObjFunction) *object.ObjClosure {
	c := object.NewClosure(fn)
	h.track(c, objectCost)
	return c
}

// NewClass allocates an empty class named name.
func (h *Heap) NewClass(name *value.ObjString) *object.ObjClass {
	c := object.NewClass(name)
	h.track(c, objectCost)
	return c
}

// NewInstance allocates a fresh instance of class.
func (h *Heap) NewInstance(class *object.ObjClass) *object.ObjInstance {
	i := object.NewInstance(class)
	h.track(i, objectCost)
	return i
}

// NewBoundMethod allocates a bound method value.
func (h *Heap) NewBoundMethod(receiver value.Value, method *object.ObjClosure) *object.ObjBoundMethod {
	b := object.NewBoundMethod(receiver, method)
	h.track(b, objectCost)
	return b
}

// NewUpvalue allocates an open upvalue over slot, recording its
// originating stack index for the VM's open-upvalue list ordering.
func (h *Heap) NewUpvalue(slot *value.Value, slotIndex int) *value.ObjUpvalue {
	u := value.NewUpvalue(slot, slotIndex)
	h.track(u, objectCost)
	return u
}

// objectCost is the flat accounting weight given to any non-string
// object, regardless of variant.
const objectCost = 64

func stringCost(s string) int64 {
	return int64(len(s)) + 16
}

// track links obj onto the allocation list, accounts its cost, and
// maybe triggers a collection. obj is held as a transient root for the
// duration of that collection: it is brand new and not yet stored
// anywhere a real root would find it (not on the value stack, not in a
// chunk's constant pool, not assigned to a field), so without this a
// collection triggered by this very allocation could sweep the object
// before the caller ever gets to use it.
func (h *Heap) track(obj value.Object, cost int64) {
	obj.SetNext(h.objects)
	h.objects = obj
	h.bytesAllocated += cost

	h.transientRoot = obj
	if h.stressGC {
		h.Collect()
	} else if h.bytesAllocated > h.nextGC {
		h.Collect()
	}
	h.transientRoot = nil
}

// MarkObject paints obj (and transitively, via the gray worklist,
// everything it references) reachable. Safe to call with nil or an
// already-marked object.
func (h *Heap) MarkObject(obj value.Object) {
	if obj == nil || obj.Marked() {
		return
	}
	obj.SetMarked(true)
	h.gray = append(h.gray, obj)
}

// MarkValue roots v, marking its Object payload if it has one.
func (h *Heap) MarkValue(v value.Value) {
	if v.IsObject() {
		h.MarkObject(v.AsObject())
	}
}

// Collect runs one full mark-sweep cycle. A no-op if no root marker
// has been installed yet.
func (h *Heap) Collect() {
	if h.rootMarker == nil {
		return
	}

	before := h.bytesAllocated
	h.logger.Debug("gc: begin", zap.Int64("bytesBefore", before))

	h.MarkObject(h.transientRoot)
	h.rootMarker(h.MarkObject, h.MarkValue)
	h.traceReferences()
	h.strings.RemoveWhite()
	swept := h.sweep()

	h.nextGC = h.bytesAllocated * growFactor
	if h.nextGC < initialNextGC {
		h.nextGC = initialNextGC
	}

	h.logger.Debug("gc: end",
		zap.Int64("bytesBefore", before),
		zap.Int64("bytesAfter", h.bytesAllocated),
		zap.Int("objectsSwept", swept),
		zap.Int64("nextGC", h.nextGC),
	)
}

// traceReferences drains the gray worklist, blackening each object by
// marking whatever it in turn references.
func (h *Heap) traceReferences() {
	for len(h.gray) > 0 {
		obj := h.gray[len(h.gray)-1]
		h.gray = h.gray[:len(h.gray)-1]
		h.blacken(obj)
	}
}

// blacken marks every Object/Value an object directly references.
// Strings and native functions have no references, so their cases do
// nothing.
func (h *Heap) blacken(obj value.Object) {
	switch o := obj.(type) {
	case *value.ObjString:
		// no references
	case *value.ObjUpvalue:
		h.MarkValue(o.Closed)
	case *object.ObjFunction:
		if o.Name != nil {
			h.MarkObject(o.Name)
		}
		for _, c := range o.Chunk.Constants {
			h.MarkValue(c)
		}
	case *object.ObjClosure:
		h.MarkObject(o.Function)
		for _, up := range o.Upvalues {
			if up != nil {
				h.MarkObject(up)
			}
		}
	case *object.ObjClass:
		h.MarkObject(o.Name)
		o.Methods.Mark(h.MarkObject, h.MarkValue)
	case *object.ObjInstance:
		h.MarkObject(o.Class)
		o.Fields.Mark(h.MarkObject, h.MarkValue)
	case *object.ObjBoundMethod:
		h.MarkValue(o.Receiver)
		h.MarkObject(o.Method)
	case *object.ObjNative:
		// no references
	}
}

// sweep frees every unmarked object on the allocation list and clears
// the mark bit on everything that survives, returning the count of
// freed objects.
func (h *Heap) sweep() int {
	var previous value.Object
	current := h.objects
	freed := 0

	for current != nil {
		if current.Marked() {
			current.SetMarked(false)
			previous = current
			current = current.Next()
			continue
		}

		unreached := current
		current = current.Next()
		if previous != nil {
			previous.SetNext(current)
		} else {
			h.objects = current
		}
		h.free(unreached)
		freed++
	}

	return freed
}

// free deducts an object's accounted cost. Go's garbage collector
// reclaims the actual memory once the allocation-list link above is
// the object's last reference; this only updates Lumen's own
// byte-accounting so nextGC growth tracks real pressure.
func (h *Heap) free(obj value.Object) {
	switch o := obj.(type) {
	case *value.ObjString:
		h.bytesAllocated -= stringCost(o.Chars)
	default:
		h.bytesAllocated -= objectCost
	}
}
