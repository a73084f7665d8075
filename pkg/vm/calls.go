package vm

import (
	"github.com/lumen-lang/lumen/pkg/object"
	"github.com/lumen-lang/lumen/pkg/value"
)

// callValue implements "calling a value" (spec.md §4.7): dispatch on
// the callee's concrete kind rather than a single uniform call op,
// since classes, bound methods, and natives each need different setup
// before (or instead of) pushing a new CallFrame.
func (vm *VM) callValue(callee value.Value, argCount int) error {
	if !callee.IsObject() {
		return vm.runtimeError("can only call functions and classes")
	}

	switch obj := callee.AsObject().(type) {
	case *object.ObjClosure:
		return vm.callClosure(obj, argCount)
	case *object.ObjNative:
		return vm.callNative(obj, argCount)
	case *object.ObjClass:
		return vm.callClass(obj, argCount)
	case *object.ObjBoundMethod:
		vm.stack[vm.stackTop-argCount-1] = obj.Receiver
		return vm.callClosure(obj.Method, argCount)
	default:
		return vm.runtimeError("can only call functions and classes")
	}
}

// callClosure opens a new frame over closure, after checking arity
// and the frame-ring limit. The value-stack depth is not checked.
func (vm *VM) callClosure(closure *object.ObjClosure, argCount int) error {
	if argCount != closure.Function.Arity {
		return vm.runtimeError("expected %d arguments but got %d", closure.Function.Arity, argCount)
	}
	if vm.frameCount == FramesMax {
		return vm.runtimeError("stack overflow")
	}

	frame := &vm.frames[vm.frameCount]
	frame.Closure = closure
	frame.IP = 0
	frame.Base = vm.stackTop - argCount - 1
	vm.frameCount++
	return nil
}

// callNative invokes a host function directly: no frame is pushed,
// the native runs synchronously and its result replaces the callee and
// its arguments on the stack.
func (vm *VM) callNative(native *object.ObjNative, argCount int) error {
	if argCount != native.Arity {
		return vm.runtimeError("expected %d arguments but got %d", native.Arity, argCount)
	}

	args := vm.stack[vm.stackTop-argCount : vm.stackTop]
	result, err := native.Call(args)
	if err != nil {
		return vm.runtimeError("%s", err.Error())
	}

	vm.stackTop -= argCount + 1
	vm.push(result)
	return nil
}

// callClass implements instantiation: replace the callee slot with a
// fresh instance, then invoke "init" on it if the class defines one
// (arity-checked exactly like any other method call); a class with no
// initializer rejects any constructor arguments.
func (vm *VM) callClass(class *object.ObjClass, argCount int) error {
	instance := vm.heap.NewInstance(class)
	vm.stack[vm.stackTop-argCount-1] = value.FromObject(instance)

	if initVal, ok := class.Methods.Get(vm.heap.InitString()); ok {
		init := initVal.AsObject().(*object.ObjClosure)
		return vm.callClosure(init, argCount)
	}
	if argCount != 0 {
		return vm.runtimeError("expected 0 arguments but got %d", argCount)
	}
	return nil
}

// invoke is the GET_PROPERTY+CALL fast path: look up method on the
// receiver's class and call it without materializing a bound-method
// object in between.
func (vm *VM) invoke(name *value.ObjString, argCount int) error {
	receiver := vm.peek(argCount)
	if !isInstance(receiver) {
		return vm.runtimeError("only instances have methods")
	}
	inst := receiver.AsObject().(*object.ObjInstance)

	if field, ok := inst.Fields.Get(name); ok {
		vm.stack[vm.stackTop-argCount-1] = field
		return vm.callValue(field, argCount)
	}

	return vm.invokeFromClass(inst.Class, name, argCount)
}

func (vm *VM) invokeFromClass(class *object.ObjClass, name *value.ObjString, argCount int) error {
	methodVal, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeError("undefined property '%s'", name.Chars)
	}
	method := methodVal.AsObject().(*object.ObjClosure)
	return vm.callClosure(method, argCount)
}
