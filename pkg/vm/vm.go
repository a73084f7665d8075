// Package vm implements Lumen's stack-based bytecode virtual machine:
// the dispatch loop, call frames, upvalue capture, class/instance
// dispatch, and runtime error reporting.
//
// Virtual Machine Architecture:
//
// The VM is a single-threaded tight loop over one active function's
// bytecode at a time. State lives in a few places:
//
//   1. A value stack (fixed at StackMax slots) holding every live
//      local, temporary, and argument.
//   2. A ring of call frames (fixed at FramesMax), each owning its
//      Closure, a saved instruction pointer, and a base index into the
//      value stack marking the frame's slot 0.
//   3. A globals table, an open-upvalue list, and a Heap shared across
//      the whole run.
//
// This mirrors the teacher's own VM (kristofer-smog/pkg/vm/vm.go): a
// stack of values, an instruction pointer, sequential fetch-decode-
// execute — but the instruction set, frame model, and object model are
// Lumen's (closures, classes, upvalues) rather than the teacher's
// message-send primitives.
//
// Dispatch Loop:
//
// run() decodes one opcode byte per iteration, switches on it, and
// updates the active frame's instruction pointer. Execution never
// suspends mid-instruction; calls and returns reseat which frame is
// "active" but the loop itself never recurses for a Lumen-level
// call — CALL/INVOKE/SUPER_INVOKE push a new CallFrame and let the
// same top-level loop keep iterating with it as the new top frame.
package vm

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/lumen-lang/lumen/pkg/chunk"
	"github.com/lumen-lang/lumen/pkg/compiler"
	"github.com/lumen-lang/lumen/pkg/heap"
	"github.com/lumen-lang/lumen/pkg/object"
	"github.com/lumen-lang/lumen/pkg/table"
	"github.com/lumen-lang/lumen/pkg/value"
)

// FramesMax is the fixed size of the call-frame ring (clox's
// FRAMES_MAX).
const FramesMax = 64

// StackSlotsPerFrame bounds how many value-stack slots one frame may
// use (clox's UINT8_COUNT, 256 local slots addressable by one byte).
const StackSlotsPerFrame = 256

// StackMax is the total value-stack capacity.
const StackMax = FramesMax * StackSlotsPerFrame

// InterpretResult is the outcome of a top-level Interpret call.
type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

// CallFrame is one activation record: the closure being executed, the
// index of its next instruction, and the base slot in the shared
// value stack where its locals (slot 0 = receiver/callee) begin.
type CallFrame struct {
	Closure *object.ObjClosure
	IP      int
	Base    int
}

func (f *CallFrame) chunk() *chunk.Chunk { return f.Closure.Function.Chunk }

// Option configures a VM at construction.
type Option func(*VM)

// WithLogger installs a structured logger for runtime-error and GC
// diagnostics; calls and returns are not logged. A nil logger becomes
// a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(vm *VM) {
		if logger == nil {
			logger = zap.NewNop()
		}
		vm.logger = logger
	}
}

// WithStressGC forces a collection on every heap allocation, wiring
// straight through to the underlying Heap (the --stress-gc CLI flag).
func WithStressGC(enabled bool) Option {
	return func(vm *VM) { vm.stressGC = enabled }
}

// VM owns everything one interpreter run needs: the value stack, the
// frame ring, globals, the open-upvalue list, and the heap.
type VM struct {
	stack    [StackMax]value.Value
	stackTop int

	frames     [FramesMax]CallFrame
	frameCount int

	globals      *table.Table
	openUpvalues *value.ObjUpvalue

	heap     *heap.Heap
	logger   *zap.Logger
	stressGC bool
}

// New constructs a VM with a fresh heap and globals table, registers
// the built-in native functions, and wires the heap's GC roots back
// into this VM's own state.
func New(opts ...Option) *VM {
	vm := &VM{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(vm)
	}

	vm.heap = heap.New(heap.WithStressGC(vm.stressGC), heap.WithLogger(vm.logger))
	vm.globals = table.New()
	vm.heap.SetRootMarker(vm.markRoots)

	vm.defineNatives()
	return vm
}

// Heap exposes the VM's allocator, for example to read BytesAllocated
// after a run.
func (vm *VM) Heap() *heap.Heap { return vm.heap }

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

func (vm *VM) push(v value.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() value.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.stackTop-1-distance]
}

// markRoots is the heap.RootMarker callback: it paints every value
// reachable from the VM's own state (the live portion of the value
// stack, every active frame's closure, the open-upvalue list, the
// globals table, and the preinterned "init" string) gray, plus every
// Function still being compiled (spec.md §4.5: a collection triggered
// while compiler.Compile is running — before Interpret has pushed
// anything, or a closure being built inside a still-executing native
// call — must still root the in-progress compiler chain, not just the
// VM's own stack/frames).
func (vm *VM) markRoots(mark func(value.Object), markValue func(value.Value)) {
	for i := 0; i < vm.stackTop; i++ {
		markValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		mark(vm.frames[i].Closure)
	}
	for up := vm.openUpvalues; up != nil; up = up.NextOpen {
		mark(up)
	}
	vm.globals.Mark(mark, markValue)
	mark(vm.heap.InitString())
	compiler.MarkRoots(mark)
}

// Interpret compiles and runs source to completion. Compile errors are
// reported without ever entering the dispatch loop; runtime errors
// unwind to here and reset the stack.
func (vm *VM) Interpret(source string) InterpretResult {
	fn, err := compiler.Compile(source, vm.heap)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return InterpretCompileError
	}

	closure := vm.heap.NewClosure(fn)
	vm.push(value.FromObject(closure))
	if err := vm.callClosure(closure, 0); err != nil {
		vm.printRuntimeError(err)
		vm.resetStack()
		return InterpretRuntimeError
	}

	if err := vm.run(); err != nil {
		vm.printRuntimeError(err)
		vm.resetStack()
		return InterpretRuntimeError
	}
	return InterpretOK
}

func (vm *VM) frame() *CallFrame { return &vm.frames[vm.frameCount-1] }

func (vm *VM) readByte(f *CallFrame) byte {
	b := f.chunk().Code[f.IP]
	f.IP++
	return b
}

func (vm *VM) readShort(f *CallFrame) uint16 {
	hi := vm.readByte(f)
	lo := vm.readByte(f)
	return uint16(hi)<<8 | uint16(lo)
}

func (vm *VM) readConstant(f *CallFrame) value.Value {
	return f.chunk().Constants[vm.readByte(f)]
}

func (vm *VM) readString(f *CallFrame) *value.ObjString {
	return vm.readConstant(f).AsObject().(*value.ObjString)
}

// run is the dispatch loop: decode one opcode, execute it, repeat
// until the outermost frame returns or a runtime error unwinds.
func (vm *VM) run() error {
	f := vm.frame()

	for {
		op := chunk.OpCode(vm.readByte(f))

		switch op {
		case chunk.OpConstant:
			vm.push(vm.readConstant(f))

		case chunk.OpNil:
			vm.push(value.Nil)
		case chunk.OpTrue:
			vm.push(value.Bool(true))
		case chunk.OpFalse:
			vm.push(value.Bool(false))
		case chunk.OpPop:
			vm.pop()

		case chunk.OpGetLocal:
			slot := vm.readByte(f)
			vm.push(vm.stack[f.Base+int(slot)])
		case chunk.OpSetLocal:
			slot := vm.readByte(f)
			vm.stack[f.Base+int(slot)] = vm.peek(0)

		case chunk.OpGetGlobal:
			name := vm.readString(f)
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError("undefined variable '%s'", name.Chars)
			}
			vm.push(v)
		case chunk.OpDefineGlobal:
			name := vm.readString(f)
			vm.globals.Set(name, vm.peek(0))
			vm.pop()
		case chunk.OpSetGlobal:
			name := vm.readString(f)
			if vm.globals.Set(name, vm.peek(0)) {
				vm.globals.Delete(name)
				return vm.runtimeError("undefined variable '%s'", name.Chars)
			}

		case chunk.OpGetUpvalue:
			slot := vm.readByte(f)
			vm.push(*f.Closure.Upvalues[slot].Location)
		case chunk.OpSetUpvalue:
			slot := vm.readByte(f)
			*f.Closure.Upvalues[slot].Location = vm.peek(0)

		case chunk.OpGetProperty:
			if err := vm.getProperty(f); err != nil {
				return err
			}
		case chunk.OpSetProperty:
			if err := vm.setProperty(f); err != nil {
				return err
			}
		case chunk.OpGetSuper:
			name := vm.readString(f)
			superclass := vm.pop().AsObject().(*object.ObjClass)
			if err := vm.bindMethod(superclass, name); err != nil {
				return err
			}

		case chunk.OpEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(value.Equal(a, b)))
		case chunk.OpGreater:
			if err := vm.binaryNumeric(func(a, b float64) value.Value { return value.Bool(a > b) }); err != nil {
				return err
			}
		case chunk.OpLess:
			if err := vm.binaryNumeric(func(a, b float64) value.Value { return value.Bool(a < b) }); err != nil {
				return err
			}

		case chunk.OpAdd:
			if err := vm.add(); err != nil {
				return err
			}
		case chunk.OpSubtract:
			if err := vm.binaryNumeric(func(a, b float64) value.Value { return value.Number(a - b) }); err != nil {
				return err
			}
		case chunk.OpMultiply:
			if err := vm.binaryNumeric(func(a, b float64) value.Value { return value.Number(a * b) }); err != nil {
				return err
			}
		case chunk.OpDivide:
			if err := vm.binaryNumeric(func(a, b float64) value.Value { return value.Number(a / b) }); err != nil {
				return err
			}

		case chunk.OpNot:
			vm.push(value.Bool(vm.pop().IsFalsey()))
		case chunk.OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("operand must be a number")
			}
			vm.push(value.Number(-vm.pop().AsNumber()))

		case chunk.OpPrint:
			fmt.Println(value.Print(vm.pop()))

		case chunk.OpJump:
			offset := vm.readShort(f)
			f.IP += int(offset)
		case chunk.OpJumpIfFalse:
			offset := vm.readShort(f)
			if vm.peek(0).IsFalsey() {
				f.IP += int(offset)
			}
		case chunk.OpLoop:
			offset := vm.readShort(f)
			f.IP -= int(offset)

		case chunk.OpCall:
			argCount := int(vm.readByte(f))
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return err
			}
			f = vm.frame()
		case chunk.OpInvoke:
			method := vm.readString(f)
			argCount := int(vm.readByte(f))
			if err := vm.invoke(method, argCount); err != nil {
				return err
			}
			f = vm.frame()
		case chunk.OpSuperInvoke:
			method := vm.readString(f)
			argCount := int(vm.readByte(f))
			superclass := vm.pop().AsObject().(*object.ObjClass)
			if err := vm.invokeFromClass(superclass, method, argCount); err != nil {
				return err
			}
			f = vm.frame()

		case chunk.OpClosure:
			fn := vm.readConstant(f).AsObject().(*object.ObjFunction)
			closure := vm.heap.NewClosure(fn)
			vm.push(value.FromObject(closure))
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := vm.readByte(f)
				index := vm.readByte(f)
				if isLocal != 0 {
					closure.Upvalues[i] = vm.captureUpvalue(f.Base + int(index))
				} else {
					closure.Upvalues[i] = f.Closure.Upvalues[index]
				}
			}
		case chunk.OpCloseUpvalue:
			vm.closeUpvalues(vm.stackTop - 1)
			vm.pop()

		case chunk.OpClass:
			name := vm.readString(f)
			vm.push(value.FromObject(vm.heap.NewClass(name)))
		case chunk.OpInherit:
			if err := vm.inherit(); err != nil {
				return err
			}
		case chunk.OpMethod:
			name := vm.readString(f)
			vm.defineMethod(name)

		case chunk.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(f.Base)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return nil
			}
			vm.stackTop = f.Base
			vm.push(result)
			f = vm.frame()

		default:
			return vm.runtimeError("unknown opcode %d", op)
		}
	}
}

func (vm *VM) binaryNumeric(apply func(a, b float64) value.Value) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError("operands must be numbers")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	vm.push(apply(a, b))
	return nil
}

// add implements ADD's dual numeric/string behavior: both operands
// must be the same kind, numbers sum, strings concatenate.
func (vm *VM) add() error {
	b, a := vm.peek(0), vm.peek(1)

	switch {
	case a.IsNumber() && b.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(value.Number(a.AsNumber() + b.AsNumber()))
		return nil
	case isString(a) && isString(b):
		// Both operands stay on the stack until after the new
		// string is interned, so a collection triggered by that
		// allocation cannot reclaim them first.
		bs := b.AsObject().(*value.ObjString)
		as := a.AsObject().(*value.ObjString)
		result := vm.heap.InternString(as.Chars + bs.Chars)
		vm.pop()
		vm.pop()
		vm.push(value.FromObject(result))
		return nil
	default:
		return vm.runtimeError("operands must be two numbers or two strings")
	}
}

func isString(v value.Value) bool {
	if !v.IsObject() {
		return false
	}
	_, ok := v.AsObject().(*value.ObjString)
	return ok
}

func (vm *VM) getProperty(f *CallFrame) error {
	if !isInstance(vm.peek(0)) {
		return vm.runtimeError("only instances have properties")
	}
	inst := vm.peek(0).AsObject().(*object.ObjInstance)
	name := vm.readString(f)

	if v, ok := inst.Fields.Get(name); ok {
		vm.pop()
		vm.push(v)
		return nil
	}
	return vm.bindMethod(inst.Class, name)
}

func (vm *VM) setProperty(f *CallFrame) error {
	if !isInstance(vm.peek(1)) {
		return vm.runtimeError("only instances have fields")
	}
	inst := vm.peek(1).AsObject().(*object.ObjInstance)
	name := vm.readString(f)

	inst.Fields.Set(name, vm.peek(0))
	v := vm.pop()
	vm.pop()
	vm.push(v)
	return nil
}

func isInstance(v value.Value) bool {
	if !v.IsObject() {
		return false
	}
	_, ok := v.AsObject().(*object.ObjInstance)
	return ok
}

func (vm *VM) bindMethod(class *object.ObjClass, name *value.ObjString) error {
	methodVal, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeError("undefined property '%s'", name.Chars)
	}

	method := methodVal.AsObject().(*object.ObjClosure)
	bound := vm.heap.NewBoundMethod(vm.peek(0), method)
	vm.pop()
	vm.push(value.FromObject(bound))
	return nil
}

func (vm *VM) inherit() error {
	superVal := vm.peek(1)
	superObj, ok := superVal.AsObject().(*object.ObjClass)
	if !superVal.IsObject() || !ok {
		return vm.runtimeError("superclass must be a class")
	}

	subclass := vm.peek(0).AsObject().(*object.ObjClass)
	subclass.Methods.AddAll(superObj.Methods)
	vm.pop() // pop the subclass; the superclass stays as the "super" local
	return nil
}

func (vm *VM) defineMethod(name *value.ObjString) {
	method := vm.peek(0)
	class := vm.peek(1).AsObject().(*object.ObjClass)
	class.Methods.Set(name, method)
	vm.pop()
}

// captureUpvalue finds an existing open upvalue for stackSlot or
// creates and links in a new one, keeping the open-upvalue list
// sorted by descending stack slot (I3).
func (vm *VM) captureUpvalue(stackSlot int) *value.ObjUpvalue {
	var prev *value.ObjUpvalue
	up := vm.openUpvalues

	for up != nil && up.Slot > stackSlot {
		prev = up
		up = up.NextOpen
	}
	if up != nil && up.Slot == stackSlot {
		return up
	}

	created := vm.heap.NewUpvalue(&vm.stack[stackSlot], stackSlot)
	created.NextOpen = up
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.NextOpen = created
	}
	return created
}

// closeUpvalues closes every open upvalue whose slot is >= from,
// lifting each off the stack into its own Closed field.
func (vm *VM) closeUpvalues(from int) {
	for vm.openUpvalues != nil && vm.openUpvalues.Slot >= from {
		up := vm.openUpvalues
		up.Close()
		vm.openUpvalues = up.NextOpen
	}
}
