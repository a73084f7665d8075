// Package compiler implements Lumen's single-pass compiler: a Pratt
// (precedence-climbing) parser that emits bytecode directly into a
// Chunk as it recognizes each construct, never materializing an
// intermediate AST.
//
// Parser Architecture:
//
// The compiler maintains two tokens at all times:
//   - previous: the token just consumed
//   - current: the next token (one token lookahead)
//
// This mirrors the teacher's two-token parser window (see
// kristofer-smog/pkg/parser/parser.go's curTok/peekTok), but instead of
// building ast.Node values and handing them to a separate compiler
// pass, every parsing function emits bytecode as it goes — the same
// shape the teacher's own pkg/compiler uses (walking structure and
// calling c.emit), just fused with recognition instead of applied to
// an already-built tree afterward.
//
// Compiler Chain:
//
// Each function body (including the implicit top-level script) gets
// its own *Compiler, linked to its lexically enclosing Compiler via
// Enclosing. This chain is itself a GC root set (every still-being-
// compiled ObjFunction must survive a collection triggered mid-
// compilation) and is how upvalue resolution recurses outward when a
// name isn't found as a local.
//
// Error Handling:
//
// Errors accumulate rather than aborting at first sight: on any parse
// error the compiler enters panic mode (still advances tokens and
// still emits bytecode, but suppresses further messages) until a
// synchronization point — a semicolon or a keyword that unambiguously
// starts a new statement. A failed compile returns every accumulated
// message joined together and a nil function; no bytecode from a
// failed compile is ever executed.
package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lumen-lang/lumen/pkg/chunk"
	"github.com/lumen-lang/lumen/pkg/heap"
	"github.com/lumen-lang/lumen/pkg/lexer"
	"github.com/lumen-lang/lumen/pkg/object"
	"github.com/lumen-lang/lumen/pkg/value"
)

// FunctionType distinguishes the kind of body a Compiler is assembling,
// since that changes slot-0 semantics and what "return" may do.
type FunctionType int

const (
	TypeFunction FunctionType = iota
	TypeInitializer
	TypeMethod
	TypeScript
)

// Local is one entry in a Compiler's local-variable stack, tracked in
// declaration order so resolution can search newest-to-oldest.
type Local struct {
	Name       lexer.Token
	Depth      int // -1 means declared but not yet initialized
	IsCaptured bool
}

// UpvalueRef records how a Compiler's upvalue slot was resolved: from
// a local in the immediately enclosing function, or from an upvalue
// already captured there.
type UpvalueRef struct {
	Index   byte
	IsLocal bool
}

const maxLocals = 256
const maxUpvalues = 256

// Compiler holds the compile-time state for a single function body:
// its in-progress ObjFunction, the chain to its lexically enclosing
// Compiler, and its local/upvalue bookkeeping.
type Compiler struct {
	Enclosing    *Compiler
	Function     *object.ObjFunction
	FunctionType FunctionType

	Locals     []Local
	Upvalues   []UpvalueRef
	ScopeDepth int
}

// activeChain points at the innermost Compiler of whichever compile is
// currently in progress, mirroring clox's compiler.c file-scope
// `current` pointer. A GC triggered mid-compile has no other way to
// reach an in-progress ObjFunction: it isn't on the VM's value stack or
// frame ring yet, since CLOSURE hasn't run and Interpret hasn't even
// been entered (spec.md §4.5: "recursively through the compiler
// chain, every Function currently being compiled"). Set and cleared
// only through setCompiler so it always mirrors p.compiler.
var activeChain *Compiler

// MarkRoots paints every Function still being compiled, walking the
// enclosing chain outward. A no-op when no compile is in progress.
func MarkRoots(mark func(value.Object)) {
	for c := activeChain; c != nil; c = c.Enclosing {
		mark(c.Function)
	}
}

// setCompiler reassigns p.compiler and keeps activeChain mirroring it,
// so the heap's root marker always sees the true innermost compiler of
// whichever compile (if any) is currently running.
func (p *Parser) setCompiler(c *Compiler) {
	p.compiler = c
	activeChain = c
}

func newCompiler(enclosing *Compiler, fnType FunctionType, h *heap.Heap) *Compiler {
	c := &Compiler{
		Enclosing:    enclosing,
		Function:     h.NewFunction(),
		FunctionType: fnType,
	}

	// Slot 0 is reserved: the receiver ("this") for methods and
	// initializers, or the callee itself (unused) for plain functions.
	name := ""
	if fnType != TypeFunction && fnType != TypeScript {
		name = "this"
	}
	c.Locals = append(c.Locals, Local{
		Name:  lexer.Token{Lexeme: name},
		Depth: 0,
	})

	return c
}

// ClassCompiler tracks compile-time state for a class body so that
// method compilation can resolve `this`/`super` and the `INHERIT`
// opcode knows whether a superclass clause was present.
type ClassCompiler struct {
	Enclosing     *ClassCompiler
	HasSuperclass bool
}

// Parser drives the whole compilation: token stream, the active
// Compiler chain, the active ClassCompiler chain, and accumulated
// error messages.
type Parser struct {
	scanner *lexer.Scanner
	heap    *heap.Heap

	current  lexer.Token
	previous lexer.Token

	hadError  bool
	panicMode bool
	errors    []string

	compiler *Compiler
	class    *ClassCompiler
}

// Compile compiles source into a top-level ObjFunction (the implicit
// script), or returns a combined error if any parse errors occurred.
// On error the returned function is nil: no bytecode from a failed
// compile is ever handed to the VM.
func Compile(source string, h *heap.Heap) (*object.ObjFunction, error) {
	p := &Parser{
		scanner: lexer.New(source),
		heap:    h,
	}
	p.setCompiler(newCompiler(nil, TypeScript, h))

	p.advance()
	for !p.match(lexer.TokenEOF) {
		p.declaration()
	}

	fn := p.endCompiler()
	if p.hadError {
		return nil, fmt.Errorf("%s", strings.Join(p.errors, "\n"))
	}
	return fn, nil
}

func (p *Parser) advance() {
	p.previous = p.current
	for {
		p.current = p.scanner.NextToken()
		if p.current.Type != lexer.TokenError {
			break
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (p *Parser) check(t lexer.TokenType) bool {
	return p.current.Type == t
}

func (p *Parser) match(t lexer.TokenType) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) consume(t lexer.TokenType, message string) {
	if p.current.Type == t {
		p.advance()
		return
	}
	p.errorAtCurrent(message)
}

func (p *Parser) errorAtCurrent(message string) {
	p.errorAt(p.current, message)
}

func (p *Parser) errorAtPrevious(message string) {
	p.errorAt(p.previous, message)
}

func (p *Parser) errorAt(tok lexer.Token, message string) {
	if p.panicMode {
		return
	}
	p.panicMode = true

	var where string
	switch tok.Type {
	case lexer.TokenEOF:
		where = " at end"
	case lexer.TokenError:
		where = ""
	default:
		where = fmt.Sprintf(" at '%s'", tok.Lexeme)
	}

	p.errors = append(p.errors, fmt.Sprintf("[line %d] Error%s: %s", tok.Line, where, message))
	p.hadError = true
}

// synchronize recovers from panic mode at the next statement
// boundary: a consumed semicolon, or a keyword that unambiguously
// starts a new statement.
func (p *Parser) synchronize() {
	p.panicMode = false

	for p.current.Type != lexer.TokenEOF {
		if p.previous.Type == lexer.TokenSemicolon {
			return
		}
		switch p.current.Type {
		case lexer.TokenClass, lexer.TokenFun, lexer.TokenVar, lexer.TokenFor,
			lexer.TokenIf, lexer.TokenWhile, lexer.TokenPrint, lexer.TokenReturn:
			return
		}
		p.advance()
	}
}

// --- bytecode emission -----------------------------------------------

func (p *Parser) chunk() *chunk.Chunk {
	return p.compiler.Function.Chunk
}

func (p *Parser) emitByte(b byte) {
	p.chunk().Write(b, p.previous.Line)
}

func (p *Parser) emitOp(op chunk.OpCode) {
	p.chunk().WriteOp(op, p.previous.Line)
}

func (p *Parser) emitOps(op1, op2 chunk.OpCode) {
	p.emitOp(op1)
	p.emitOp(op2)
}

func (p *Parser) emitOpByte(op chunk.OpCode, operand byte) {
	p.emitOp(op)
	p.emitByte(operand)
}

// emitJump writes op followed by a two-byte placeholder operand and
// returns the offset of the first placeholder byte, for patchJump.
func (p *Parser) emitJump(op chunk.OpCode) int {
	p.emitOp(op)
	p.emitByte(0xff)
	p.emitByte(0xff)
	return p.chunk().Len() - 2
}

// patchJump backfills the jump at offset with the distance from just
// past its operand to the current code position.
func (p *Parser) patchJump(offset int) {
	jump := p.chunk().Len() - offset - 2
	if jump > 0xffff {
		p.errorAtPrevious("too much code to jump over")
	}
	p.chunk().Code[offset] = byte((jump >> 8) & 0xff)
	p.chunk().Code[offset+1] = byte(jump & 0xff)
}

// emitLoop writes a LOOP instruction jumping back to loopStart.
func (p *Parser) emitLoop(loopStart int) {
	p.emitOp(chunk.OpLoop)

	offset := p.chunk().Len() - loopStart + 2
	if offset > 0xffff {
		p.errorAtPrevious("loop body too large")
	}
	p.emitByte(byte((offset >> 8) & 0xff))
	p.emitByte(byte(offset & 0xff))
}

func (p *Parser) emitReturn() {
	if p.compiler.FunctionType == TypeInitializer {
		p.emitOpByte(chunk.OpGetLocal, 0)
	} else {
		p.emitOp(chunk.OpNil)
	}
	p.emitOp(chunk.OpReturn)
}

// makeConstant adds v to the current chunk's constant pool, enforcing
// I6 (256 constants per function), and returns its index.
func (p *Parser) makeConstant(v value.Value) byte {
	idx := p.chunk().AddConstant(v)
	if idx > 0xff {
		p.errorAtPrevious("too many constants in one chunk")
		return 0
	}
	return byte(idx)
}

func (p *Parser) emitConstant(v value.Value) {
	p.emitOpByte(chunk.OpConstant, p.makeConstant(v))
}

// endCompiler finalizes the current Compiler's function, returning to
// (and restoring) its enclosing Compiler, and returns the finished
// ObjFunction.
func (p *Parser) endCompiler() *object.ObjFunction {
	p.emitReturn()
	fn := p.compiler.Function
	p.setCompiler(p.compiler.Enclosing)
	return fn
}

// --- scope management --------------------------------------------------

func (p *Parser) beginScope() {
	p.compiler.ScopeDepth++
}

func (p *Parser) endScope() {
	p.compiler.ScopeDepth--

	locals := p.compiler.Locals
	for len(locals) > 0 && locals[len(locals)-1].Depth > p.compiler.ScopeDepth {
		if locals[len(locals)-1].IsCaptured {
			p.emitOp(chunk.OpCloseUpvalue)
		} else {
			p.emitOp(chunk.OpPop)
		}
		locals = locals[:len(locals)-1]
	}
	p.compiler.Locals = locals
}

// --- variable declaration & resolution -----------------------------------

func (p *Parser) identifierConstant(tok lexer.Token) byte {
	return p.makeConstant(value.FromObject(p.heap.InternString(tok.Lexeme)))
}

func identifiersEqual(a, b lexer.Token) bool {
	return a.Lexeme == b.Lexeme
}

func (p *Parser) addLocal(name lexer.Token) {
	if len(p.compiler.Locals) >= maxLocals {
		p.errorAtPrevious("too many local variables in function")
		return
	}
	p.compiler.Locals = append(p.compiler.Locals, Local{Name: name, Depth: -1})
}

// declareVariable registers the variable named by p.previous as a
// local if inside a scope (globals are resolved by name at runtime and
// need no local slot). Redeclaring a name already declared in the
// same scope is a compile error.
func (p *Parser) declareVariable() {
	if p.compiler.ScopeDepth == 0 {
		return
	}

	name := p.previous
	for i := len(p.compiler.Locals) - 1; i >= 0; i-- {
		local := p.compiler.Locals[i]
		if local.Depth != -1 && local.Depth < p.compiler.ScopeDepth {
			break
		}
		if identifiersEqual(name, local.Name) {
			p.errorAtPrevious("already a variable with this name in this scope")
		}
	}

	p.addLocal(name)
}

// parseVariable consumes an identifier, declares it, and (for globals)
// returns its name-constant index.
func (p *Parser) parseVariable(message string) byte {
	p.consume(lexer.TokenIdentifier, message)

	p.declareVariable()
	if p.compiler.ScopeDepth > 0 {
		return 0
	}
	return p.identifierConstant(p.previous)
}

func (p *Parser) markInitialized() {
	if p.compiler.ScopeDepth == 0 {
		return
	}
	p.compiler.Locals[len(p.compiler.Locals)-1].Depth = p.compiler.ScopeDepth
}

// defineVariable emits DEFINE_GLOBAL for a global, or simply marks a
// local initialized (its value is already sitting in its stack slot).
func (p *Parser) defineVariable(global byte) {
	if p.compiler.ScopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitOpByte(chunk.OpDefineGlobal, global)
}

func (p *Parser) resolveLocal(c *Compiler, name lexer.Token) int {
	for i := len(c.Locals) - 1; i >= 0; i-- {
		local := c.Locals[i]
		if identifiersEqual(name, local.Name) {
			if local.Depth == -1 {
				p.errorAtPrevious("can't read local variable in its own initializer")
			}
			return i
		}
	}
	return -1
}

func (p *Parser) addUpvalue(c *Compiler, index byte, isLocal bool) int {
	for i, up := range c.Upvalues {
		if up.Index == index && up.IsLocal == isLocal {
			return i
		}
	}

	if len(c.Upvalues) >= maxUpvalues {
		p.errorAtPrevious("too many closure variables in function")
		return 0
	}

	c.Upvalues = append(c.Upvalues, UpvalueRef{Index: index, IsLocal: isLocal})
	c.Function.UpvalueCount = len(c.Upvalues)
	return len(c.Upvalues) - 1
}

// resolveUpvalue recurses into the enclosing compiler chain, per
// spec.md's variable-resolution cascade: local, then upvalue (which
// itself may recurse), then (by elimination in namedVariable) global.
func (p *Parser) resolveUpvalue(c *Compiler, name lexer.Token) int {
	if c.Enclosing == nil {
		return -1
	}

	if local := p.resolveLocal(c.Enclosing, name); local != -1 {
		c.Enclosing.Locals[local].IsCaptured = true
		return p.addUpvalue(c, byte(local), true)
	}

	if up := p.resolveUpvalue(c.Enclosing, name); up != -1 {
		return p.addUpvalue(c, byte(up), false)
	}

	return -1
}

// --- literal parsing helpers --------------------------------------------

func parseNumber(lexeme string) (float64, error) {
	return strconv.ParseFloat(lexeme, 64)
}
