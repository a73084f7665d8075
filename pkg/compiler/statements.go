package compiler

import (
	"github.com/lumen-lang/lumen/pkg/chunk"
	"github.com/lumen-lang/lumen/pkg/lexer"
	"github.com/lumen-lang/lumen/pkg/value"
)

// declaration compiles one top-level-or-block construct and recovers
// to the next statement boundary if it contained a parse error.
func (p *Parser) declaration() {
	switch {
	case p.match(lexer.TokenClass):
		p.classDeclaration()
	case p.match(lexer.TokenFun):
		p.funDeclaration()
	case p.match(lexer.TokenVar):
		p.varDeclaration()
	default:
		p.statement()
	}

	if p.panicMode {
		p.synchronize()
	}
}

func (p *Parser) statement() {
	switch {
	case p.match(lexer.TokenPrint):
		p.printStatement()
	case p.match(lexer.TokenIf):
		p.ifStatement()
	case p.match(lexer.TokenReturn):
		p.returnStatement()
	case p.match(lexer.TokenWhile):
		p.whileStatement()
	case p.match(lexer.TokenFor):
		p.forStatement()
	case p.match(lexer.TokenLeftBrace):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

func (p *Parser) printStatement() {
	p.expression()
	p.consume(lexer.TokenSemicolon, "expect ';' after value")
	p.emitOp(chunk.OpPrint)
}

func (p *Parser) expressionStatement() {
	p.expression()
	p.consume(lexer.TokenSemicolon, "expect ';' after expression")
	p.emitOp(chunk.OpPop)
}

func (p *Parser) block() {
	for !p.check(lexer.TokenRightBrace) && !p.check(lexer.TokenEOF) {
		p.declaration()
	}
	p.consume(lexer.TokenRightBrace, "expect '}' after block")
}

func (p *Parser) varDeclaration() {
	global := p.parseVariable("expect variable name")

	if p.match(lexer.TokenEqual) {
		p.expression()
	} else {
		p.emitOp(chunk.OpNil)
	}
	p.consume(lexer.TokenSemicolon, "expect ';' after variable declaration")

	p.defineVariable(global)
}

func (p *Parser) ifStatement() {
	p.consume(lexer.TokenLeftParen, "expect '(' after 'if'")
	p.expression()
	p.consume(lexer.TokenRightParen, "expect ')' after condition")

	thenJump := p.emitJump(chunk.OpJumpIfFalse)
	p.emitOp(chunk.OpPop)
	p.statement()

	elseJump := p.emitJump(chunk.OpJump)
	p.patchJump(thenJump)
	p.emitOp(chunk.OpPop)

	if p.match(lexer.TokenElse) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *Parser) whileStatement() {
	loopStart := p.chunk().Len()

	p.consume(lexer.TokenLeftParen, "expect '(' after 'while'")
	p.expression()
	p.consume(lexer.TokenRightParen, "expect ')' after condition")

	exitJump := p.emitJump(chunk.OpJumpIfFalse)
	p.emitOp(chunk.OpPop)
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emitOp(chunk.OpPop)
}

// forStatement desugars to a while loop built from plain jumps:
// an optional initializer, a condition with an exit jump, and an
// increment clause spliced to run after the body via a second jump.
func (p *Parser) forStatement() {
	p.beginScope()
	p.consume(lexer.TokenLeftParen, "expect '(' after 'for'")

	switch {
	case p.match(lexer.TokenSemicolon):
		// no initializer
	case p.match(lexer.TokenVar):
		p.varDeclaration()
	default:
		p.expressionStatement()
	}

	loopStart := p.chunk().Len()

	exitJump := -1
	if !p.match(lexer.TokenSemicolon) {
		p.expression()
		p.consume(lexer.TokenSemicolon, "expect ';' after loop condition")

		exitJump = p.emitJump(chunk.OpJumpIfFalse)
		p.emitOp(chunk.OpPop)
	}

	if !p.match(lexer.TokenRightParen) {
		bodyJump := p.emitJump(chunk.OpJump)

		incrementStart := p.chunk().Len()
		p.expression()
		p.emitOp(chunk.OpPop)
		p.consume(lexer.TokenRightParen, "expect ')' after for clauses")

		p.emitLoop(loopStart)
		loopStart = incrementStart
		p.patchJump(bodyJump)
	}

	p.statement()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitOp(chunk.OpPop)
	}

	p.endScope()
}

func (p *Parser) returnStatement() {
	if p.compiler.FunctionType == TypeScript {
		p.errorAtPrevious("can't return from top-level code")
	}

	if p.match(lexer.TokenSemicolon) {
		p.emitReturn()
		return
	}

	if p.compiler.FunctionType == TypeInitializer {
		p.errorAtPrevious("can't return a value from an initializer")
	}

	p.expression()
	p.consume(lexer.TokenSemicolon, "expect ';' after return value")
	p.emitOp(chunk.OpReturn)
}

// function compiles one function body (the part after its name: the
// parameter list and braced block) as a fresh Compiler on top of the
// current one, then emits CLOSURE to wrap the finished ObjFunction and
// capture its upvalues.
func (p *Parser) function(fnType FunctionType) {
	enclosing := p.compiler
	p.setCompiler(newCompiler(enclosing, fnType, p.heap))
	p.compiler.Function.Name = p.heap.InternString(p.previous.Lexeme)
	p.beginScope()

	p.consume(lexer.TokenLeftParen, "expect '(' after function name")
	if !p.check(lexer.TokenRightParen) {
		for {
			p.compiler.Function.Arity++
			if p.compiler.Function.Arity > 255 {
				p.errorAtCurrent("can't have more than 255 parameters")
			}
			paramConstant := p.parseVariable("expect parameter name")
			p.defineVariable(paramConstant)
			if !p.match(lexer.TokenComma) {
				break
			}
		}
	}
	p.consume(lexer.TokenRightParen, "expect ')' after parameters")
	p.consume(lexer.TokenLeftBrace, "expect '{' before function body")
	p.block()

	upvalues := p.compiler.Upvalues
	fn := p.endCompiler() // restores p.compiler to enclosing

	p.emitOpByte(chunk.OpClosure, p.makeConstant(value.FromObject(fn)))
	for _, up := range upvalues {
		b := byte(0)
		if up.IsLocal {
			b = 1
		}
		p.emitByte(b)
		p.emitByte(up.Index)
	}
}

func (p *Parser) funDeclaration() {
	global := p.parseVariable("expect function name")
	p.markInitialized()
	p.function(TypeFunction)
	p.defineVariable(global)
}

func (p *Parser) classDeclaration() {
	p.consume(lexer.TokenIdentifier, "expect class name")
	className := p.previous
	nameConstant := p.identifierConstant(p.previous)
	p.declareVariable()

	p.emitOpByte(chunk.OpClass, nameConstant)
	p.defineVariable(nameConstant)

	classCompiler := &ClassCompiler{Enclosing: p.class}
	p.class = classCompiler

	if p.match(lexer.TokenLess) {
		p.consume(lexer.TokenIdentifier, "expect superclass name")
		p.variable(false)

		if identifiersEqual(className, p.previous) {
			p.errorAtPrevious("a class can't inherit from itself")
		}

		p.beginScope()
		p.addLocal(syntheticSuper)
		p.defineVariable(0)

		p.namedVariable(className, false)
		p.emitOp(chunk.OpInherit)
		classCompiler.HasSuperclass = true
	}

	p.namedVariable(className, false)
	p.consume(lexer.TokenLeftBrace, "expect '{' before class body")
	for !p.check(lexer.TokenRightBrace) && !p.check(lexer.TokenEOF) {
		p.method()
	}
	p.consume(lexer.TokenRightBrace, "expect '}' after class body")
	p.emitOp(chunk.OpPop)

	if classCompiler.HasSuperclass {
		p.endScope()
	}

	p.class = p.class.Enclosing
}

func (p *Parser) method() {
	p.consume(lexer.TokenIdentifier, "expect method name")
	nameConstant := p.identifierConstant(p.previous)

	fnType := TypeMethod
	if p.previous.Lexeme == "init" {
		fnType = TypeInitializer
	}
	p.function(fnType)
	p.emitOpByte(chunk.OpMethod, nameConstant)
}
