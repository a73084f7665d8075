package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumen-lang/lumen/pkg/chunk"
	"github.com/lumen-lang/lumen/pkg/heap"
	"github.com/lumen-lang/lumen/pkg/object"
	"github.com/lumen-lang/lumen/pkg/value"
)

func TestCompileSimpleExpression(t *testing.T) {
	h := heap.New()
	fn, err := Compile(`print 1 + 2;`, h)
	require.NoError(t, err)
	require.NotNil(t, fn)
	require.Contains(t, fn.Chunk.Code, byte(chunk.OpAdd))
	require.Contains(t, fn.Chunk.Code, byte(chunk.OpPrint))
}

func TestCompileVarDeclarationAndGlobalAccess(t *testing.T) {
	h := heap.New()
	fn, err := Compile(`var x = 5; print x;`, h)
	require.NoError(t, err)
	require.Contains(t, fn.Chunk.Code, byte(chunk.OpDefineGlobal))
	require.Contains(t, fn.Chunk.Code, byte(chunk.OpGetGlobal))
}

func TestCompileLocalScoping(t *testing.T) {
	h := heap.New()
	fn, err := Compile(`{ var x = 5; print x; }`, h)
	require.NoError(t, err)
	require.Contains(t, fn.Chunk.Code, byte(chunk.OpGetLocal))
	require.Contains(t, fn.Chunk.Code, byte(chunk.OpPop))
}

func TestCompileReadingOwnInitializerIsError(t *testing.T) {
	h := heap.New()
	_, err := Compile(`{ var a = a; }`, h)
	require.Error(t, err)
}

func TestCompileFunctionAndClosure(t *testing.T) {
	h := heap.New()
	src := `
	fun makeCounter() {
		var count = 0;
		fun inc() {
			count = count + 1;
			return count;
		}
		return inc;
	}
	`
	fn, err := Compile(src, h)
	require.NoError(t, err)
	require.Contains(t, fn.Chunk.Code, byte(chunk.OpClosure))
}

func TestCompileClassWithMethodAndInit(t *testing.T) {
	h := heap.New()
	src := `
	class Counter {
		init(start) {
			this.count = start;
		}
		increment() {
			this.count = this.count + 1;
			return this.count;
		}
	}
	`
	fn, err := Compile(src, h)
	require.NoError(t, err)
	require.Contains(t, fn.Chunk.Code, byte(chunk.OpClass))
	require.Contains(t, fn.Chunk.Code, byte(chunk.OpMethod))
}

func TestCompileClassInheritanceAndSuper(t *testing.T) {
	h := heap.New()
	src := `
	class Base {
		greet() { print "hi"; }
	}
	class Derived < Base {
		greet() {
			super.greet();
		}
	}
	`
	fn, err := Compile(src, h)
	require.NoError(t, err)
	require.Contains(t, fn.Chunk.Code, byte(chunk.OpInherit))

	// SUPER_INVOKE is emitted into Derived.greet's own chunk, the last
	// function constant of the script.
	var derivedGreet *object.ObjFunction
	for _, c := range fn.Chunk.Constants {
		if f, ok := c.AsObject().(*object.ObjFunction); ok {
			derivedGreet = f
		}
	}
	require.NotNil(t, derivedGreet)
	require.Contains(t, derivedGreet.Chunk.Code, byte(chunk.OpSuperInvoke))
}

func TestCompileThisOutsideClassIsError(t *testing.T) {
	h := heap.New()
	_, err := Compile(`print this;`, h)
	require.Error(t, err)
}

func TestCompileSuperOutsideClassIsError(t *testing.T) {
	h := heap.New()
	_, err := Compile(`fun f() { super.x(); }`, h)
	require.Error(t, err)
}

func TestCompileReturnValueFromInitializerIsError(t *testing.T) {
	h := heap.New()
	_, err := Compile(`class C { init() { return 1; } }`, h)
	require.Error(t, err)
}

func TestCompileWhileAndForLoops(t *testing.T) {
	h := heap.New()
	fn, err := Compile(`
		var i = 0;
		while (i < 10) { i = i + 1; }
		for (var j = 0; j < 10; j = j + 1) { print j; }
	`, h)
	require.NoError(t, err)
	require.Contains(t, fn.Chunk.Code, byte(chunk.OpLoop))
}

func TestCompileAndOrShortCircuit(t *testing.T) {
	h := heap.New()
	fn, err := Compile(`print true and false or true;`, h)
	require.NoError(t, err)
	require.Contains(t, fn.Chunk.Code, byte(chunk.OpJumpIfFalse))
	require.Contains(t, fn.Chunk.Code, byte(chunk.OpJump))
}

func TestCompileSyntaxErrorAccumulatesAndRecovers(t *testing.T) {
	h := heap.New()
	_, err := Compile(`var x = ; var y = 2;`, h)
	require.Error(t, err)
}

func TestCompileInvalidAssignmentTargetIsError(t *testing.T) {
	h := heap.New()
	_, err := Compile(`1 + 2 = 3;`, h)
	require.Error(t, err)
}

func TestCompileRedeclaredLocalIsError(t *testing.T) {
	h := heap.New()
	_, err := Compile(`{ var a = 1; var a = 2; }`, h)
	require.Error(t, err)
}

// MarkRoots must see every Function on the enclosing chain while a
// compile is in progress, and nothing once it finishes — it is the
// heap's only way to root an in-progress Function (spec.md §4.5),
// since nothing is on the VM's value stack or frame ring yet.
func TestMarkRootsSeesEnclosingChainDuringCompileOnly(t *testing.T) {
	require.Nil(t, activeChain, "no compile in progress before Compile runs")

	h := heap.New(heap.WithStressGC(true))
	var seenDuringCompile int
	h.SetRootMarker(func(mark func(value.Object), markValue func(value.Value)) {
		for c := activeChain; c != nil; c = c.Enclosing {
			seenDuringCompile++
			mark(c.Function)
		}
	})

	src := `
	fun outer() {
		fun inner() {
			return 1;
		}
		return inner;
	}
	`
	_, err := Compile(src, h)
	require.NoError(t, err)
	require.Greater(t, seenDuringCompile, 0, "MarkRoots should have found at least the script-level compiler while nested inside outer/inner")
	require.Nil(t, activeChain, "activeChain must be cleared once Compile returns")
}
