// Package debug implements Lumen's bytecode disassembler: a
// human-readable instruction dump used by the `lumen disassemble` CLI
// command and by test/diagnostic code that wants to see what the
// compiler actually emitted.
//
// Design Rationale:
//
// This follows clox's debug.c shape exactly: one function per
// instruction "encoding" (simple/byte-operand/jump-operand/constant-
// operand/closure), each printing one line and returning the offset of
// the next instruction. The per-instruction formatting style — a
// right-aligned offset, the opcode mnemonic, then operand-specific
// detail — is carried over from the teacher's own
// `pkg/vm/debugger.go` (`ShowCurrentInstruction`/`listInstructions`),
// adapted from the teacher's selector/arg-count operand encoding to
// Lumen's fixed-width byte operands.
package debug

import (
	"fmt"
	"io"

	"github.com/lumen-lang/lumen/pkg/chunk"
	"github.com/lumen-lang/lumen/pkg/object"
	"github.com/lumen-lang/lumen/pkg/value"
)

// Disassemble writes every instruction in c to w under a name header,
// the entry point for `lumen disassemble` and for tests that want a
// full-chunk dump.
func Disassemble(w io.Writer, c *chunk.Chunk, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < c.Len(); {
		offset = DisassembleInstruction(w, c, offset)
	}
}

// DisassembleInstruction prints the single instruction at offset and
// returns the offset of the next one.
func DisassembleInstruction(w io.Writer, c *chunk.Chunk, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)

	line := c.LineAt(offset)
	if offset > 0 && line == c.LineAt(offset-1) {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", line)
	}

	op := chunk.OpCode(c.Code[offset])
	switch op {
	case chunk.OpNil, chunk.OpTrue, chunk.OpFalse, chunk.OpPop,
		chunk.OpEqual, chunk.OpGreater, chunk.OpLess,
		chunk.OpAdd, chunk.OpSubtract, chunk.OpMultiply, chunk.OpDivide,
		chunk.OpNot, chunk.OpNegate, chunk.OpPrint,
		chunk.OpCloseUpvalue, chunk.OpInherit, chunk.OpReturn:
		return simpleInstruction(w, op, offset)

	case chunk.OpGetLocal, chunk.OpSetLocal, chunk.OpGetUpvalue, chunk.OpSetUpvalue,
		chunk.OpCall:
		return byteInstruction(w, op, c, offset)

	case chunk.OpConstant, chunk.OpGetGlobal, chunk.OpDefineGlobal, chunk.OpSetGlobal,
		chunk.OpGetProperty, chunk.OpSetProperty, chunk.OpGetSuper,
		chunk.OpClass, chunk.OpMethod:
		return constantInstruction(w, op, c, offset)

	case chunk.OpJump, chunk.OpJumpIfFalse:
		return jumpInstruction(w, op, 1, c, offset)
	case chunk.OpLoop:
		return jumpInstruction(w, op, -1, c, offset)

	case chunk.OpInvoke, chunk.OpSuperInvoke:
		return invokeInstruction(w, op, c, offset)

	case chunk.OpClosure:
		return closureInstruction(w, c, offset)

	default:
		fmt.Fprintf(w, "unknown opcode %d\n", op)
		return offset + 1
	}
}

func simpleInstruction(w io.Writer, op chunk.OpCode, offset int) int {
	fmt.Fprintf(w, "%s\n", op)
	return offset + 1
}

func byteInstruction(w io.Writer, op chunk.OpCode, c *chunk.Chunk, offset int) int {
	slot := c.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d\n", op, slot)
	return offset + 2
}

func jumpInstruction(w io.Writer, op chunk.OpCode, sign int, c *chunk.Chunk, offset int) int {
	jump := int(uint16(c.Code[offset+1])<<8 | uint16(c.Code[offset+2]))
	target := offset + 3 + sign*jump
	fmt.Fprintf(w, "%-16s %4d -> %d\n", op, offset, target)
	return offset + 3
}

func constantInstruction(w io.Writer, op chunk.OpCode, c *chunk.Chunk, offset int) int {
	index := c.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d '%s'\n", op, index, value.Print(c.Constants[index]))
	return offset + 2
}

func invokeInstruction(w io.Writer, op chunk.OpCode, c *chunk.Chunk, offset int) int {
	nameIndex := c.Code[offset+1]
	argCount := c.Code[offset+2]
	fmt.Fprintf(w, "%-16s (%d args) %4d '%s'\n", op, argCount, nameIndex, value.Print(c.Constants[nameIndex]))
	return offset + 3
}

func closureInstruction(w io.Writer, c *chunk.Chunk, offset int) int {
	offset++
	constIndex := c.Code[offset]
	offset++
	fmt.Fprintf(w, "%-16s %4d '%s'\n", chunk.OpClosure, constIndex, value.Print(c.Constants[constIndex]))

	fn := c.Constants[constIndex].AsObject().(*object.ObjFunction)
	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := c.Code[offset]
		offset++
		index := c.Code[offset]
		offset++
		kind := "upvalue"
		if isLocal != 0 {
			kind = "local"
		}
		fmt.Fprintf(w, "%04d      |                     %s %d\n", offset-2, kind, index)
	}
	return offset
}
