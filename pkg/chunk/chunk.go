// Package chunk defines Lumen's bytecode container: a flat byte
// stream paired with a parallel line-number array and a constant
// pool, exactly clox's Chunk but expressed with Go slices instead of
// hand-managed C arrays.
//
// Architecture:
//
// A Chunk is the unit of compiled code for one function. The compiler
// (pkg/compiler) appends opcodes and operand bytes one at a time via
// Write, recording the source line of each byte so the VM and the
// disassembler can report accurate line numbers on error. Literal
// values referenced by CONSTANT-family opcodes live in a side table,
// the constant pool, addressed by a one-byte index (I6: at most 256
// constants per function).
//
// Design Philosophy:
//
//   - Stack-based bytecode keeps instruction decoding trivial: one
//     opcode byte, zero or more fixed-width operand bytes.
//   - The line-number array is parallel to the code array rather than
//     run-length encoded (clox itself does the simple parallel-array
//     version in the version this VM tracks); Lumen keeps that
//     simplicity since compactness of debug info is out of scope.
//   - Go's slice `append` already gives the amortized-doubling growth
//     clox's GROW_ARRAY/GROW_CAPACITY macros hand-roll, so Chunk has no
//     explicit capacity field — see SPEC_FULL.md §12 and DESIGN.md for
//     why this is the one place the ported C macro isn't carried
//     line-for-line.
package chunk

import "github.com/lumen-lang/lumen/pkg/value"

// OpCode identifies a single bytecode instruction.
type OpCode byte

// The full Lumen instruction set, per spec.md §4.7's opcode table.
const (
	OpConstant OpCode = iota
	OpNil
	OpTrue
	OpFalse
	OpPop
	OpGetLocal
	OpSetLocal
	OpGetGlobal
	OpDefineGlobal
	OpSetGlobal
	OpGetUpvalue
	OpSetUpvalue
	OpGetProperty
	OpSetProperty
	OpGetSuper
	OpEqual
	OpGreater
	OpLess
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpNot
	OpNegate
	OpPrint
	OpJump
	OpJumpIfFalse
	OpLoop
	OpCall
	OpInvoke
	OpSuperInvoke
	OpClosure
	OpCloseUpvalue
	OpClass
	OpInherit
	OpMethod
	OpReturn
)

// names gives every opcode a disassembler-facing label.
var names = map[OpCode]string{
	OpConstant:     "OP_CONSTANT",
	OpNil:          "OP_NIL",
	OpTrue:         "OP_TRUE",
	OpFalse:        "OP_FALSE",
	OpPop:          "OP_POP",
	OpGetLocal:     "OP_GET_LOCAL",
	OpSetLocal:     "OP_SET_LOCAL",
	OpGetGlobal:    "OP_GET_GLOBAL",
	OpDefineGlobal: "OP_DEFINE_GLOBAL",
	OpSetGlobal:    "OP_SET_GLOBAL",
	OpGetUpvalue:   "OP_GET_UPVALUE",
	OpSetUpvalue:   "OP_SET_UPVALUE",
	OpGetProperty:  "OP_GET_PROPERTY",
	OpSetProperty:  "OP_SET_PROPERTY",
	OpGetSuper:     "OP_GET_SUPER",
	OpEqual:        "OP_EQUAL",
	OpGreater:      "OP_GREATER",
	OpLess:         "OP_LESS",
	OpAdd:          "OP_ADD",
	OpSubtract:     "OP_SUBTRACT",
	OpMultiply:     "OP_MULTIPLY",
	OpDivide:       "OP_DIVIDE",
	OpNot:          "OP_NOT",
	OpNegate:       "OP_NEGATE",
	OpPrint:        "OP_PRINT",
	OpJump:         "OP_JUMP",
	OpJumpIfFalse:  "OP_JUMP_IF_FALSE",
	OpLoop:         "OP_LOOP",
	OpCall:         "OP_CALL",
	OpInvoke:       "OP_INVOKE",
	OpSuperInvoke:  "OP_SUPER_INVOKE",
	OpClosure:      "OP_CLOSURE",
	OpCloseUpvalue: "OP_CLOSE_UPVALUE",
	OpClass:        "OP_CLASS",
	OpInherit:      "OP_INHERIT",
	OpMethod:       "OP_METHOD",
	OpReturn:       "OP_RETURN",
}

// String renders an opcode's mnemonic, or a placeholder for an
// unrecognized byte (never expected in well-formed bytecode, but the
// disassembler must not panic on corrupt input).
func (op OpCode) String() string {
	if name, ok := names[op]; ok {
		return name
	}
	return "OP_UNKNOWN"
}

// Chunk is one function's compiled code: a byte stream, a parallel
// array of source line numbers, and a constant pool.
type Chunk struct {
	Code      []byte
	Lines     []int
	Constants []value.Value
}

// New returns an empty Chunk.
func New() *Chunk {
	return &Chunk{}
}

// Write appends one raw byte, recorded against line. Both opcodes and
// operand bytes go through this single entry point.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteOp is a convenience wrapper for writing an opcode byte.
func (c *Chunk) WriteOp(op OpCode, line int) {
	c.Write(byte(op), line)
}

// AddConstant appends v to the constant pool and returns its index. v
// itself needs no extra protection here: by the time a caller builds v
// (e.g. via heap.InternString) and calls AddConstant, any collection
// the interning allocation could have triggered has already run and
// completed under pkg/heap's own transient-root discipline — and once
// appended, v is reachable through the enclosing Function, which
// pkg/compiler keeps rooted for the remainder of the compile (see
// pkg/heap's compiler-chain rooting).
//
// A compile error must be reported by the caller if the returned
// index would not fit in one byte (I6: 256 constants per function).
func (c *Chunk) AddConstant(v value.Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// Len returns the number of bytes written so far — the offset the
// next instruction will be written at.
func (c *Chunk) Len() int {
	return len(c.Code)
}

// LineAt returns the source line recorded for the instruction at
// offset, for runtime error reporting and disassembly.
func (c *Chunk) LineAt(offset int) int {
	if offset < 0 || offset >= len(c.Lines) {
		return -1
	}
	return c.Lines[offset]
}
