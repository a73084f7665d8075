package compiler

import (
	"github.com/lumen-lang/lumen/pkg/chunk"
	"github.com/lumen-lang/lumen/pkg/lexer"
	"github.com/lumen-lang/lumen/pkg/value"
)

// Precedence orders Lumen's binary operators from loosest to
// tightest binding, matching spec.md's Pratt table.
type Precedence int

const (
	PrecNone Precedence = iota
	PrecAssignment // =
	PrecOr         // or
	PrecAnd        // and
	PrecEquality   // == !=
	PrecComparison // < > <= >=
	PrecTerm       // + -
	PrecFactor     // * /
	PrecUnary      // ! -
	PrecCall       // . ()
	PrecPrimary
)

type parseFn func(p *Parser, canAssign bool)

// rule pairs a token type's prefix handler, infix handler, and the
// precedence of its infix use.
type rule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

// rules is the Pratt table: one entry per token type that can start or
// continue an expression.
var rules map[lexer.TokenType]rule

func init() {
	rules = map[lexer.TokenType]rule{
		lexer.TokenLeftParen:    {prefix: (*Parser).grouping, infix: (*Parser).call, precedence: PrecCall},
		lexer.TokenDot:          {infix: (*Parser).dot, precedence: PrecCall},
		lexer.TokenMinus:        {prefix: (*Parser).unary, infix: (*Parser).binary, precedence: PrecTerm},
		lexer.TokenPlus:         {infix: (*Parser).binary, precedence: PrecTerm},
		lexer.TokenSlash:        {infix: (*Parser).binary, precedence: PrecFactor},
		lexer.TokenStar:         {infix: (*Parser).binary, precedence: PrecFactor},
		lexer.TokenBang:         {prefix: (*Parser).unary},
		lexer.TokenBangEqual:    {infix: (*Parser).binary, precedence: PrecEquality},
		lexer.TokenEqualEqual:   {infix: (*Parser).binary, precedence: PrecEquality},
		lexer.TokenGreater:      {infix: (*Parser).binary, precedence: PrecComparison},
		lexer.TokenGreaterEqual: {infix: (*Parser).binary, precedence: PrecComparison},
		lexer.TokenLess:         {infix: (*Parser).binary, precedence: PrecComparison},
		lexer.TokenLessEqual:    {infix: (*Parser).binary, precedence: PrecComparison},
		lexer.TokenIdentifier:   {prefix: (*Parser).variable},
		lexer.TokenString:       {prefix: (*Parser).stringLiteral},
		lexer.TokenNumber:       {prefix: (*Parser).number},
		lexer.TokenAnd:          {infix: (*Parser).and, precedence: PrecAnd},
		lexer.TokenOr:           {infix: (*Parser).or, precedence: PrecOr},
		lexer.TokenFalse:        {prefix: (*Parser).literal},
		lexer.TokenNil:          {prefix: (*Parser).literal},
		lexer.TokenTrue:         {prefix: (*Parser).literal},
		lexer.TokenThis:         {prefix: (*Parser).this},
		lexer.TokenSuper:        {prefix: (*Parser).super},
	}
}

func getRule(t lexer.TokenType) rule {
	return rules[t]
}

func (p *Parser) expression() {
	p.parsePrecedence(PrecAssignment)
}

// parsePrecedence is the core of the Pratt climb: consume a prefix
// token, then keep consuming infix operators whose precedence is at
// least as tight as precedence.
func (p *Parser) parsePrecedence(precedence Precedence) {
	p.advance()
	prefixRule := getRule(p.previous.Type).prefix
	if prefixRule == nil {
		p.errorAtPrevious("expect expression")
		return
	}

	canAssign := precedence <= PrecAssignment
	prefixRule(p, canAssign)

	for precedence <= getRule(p.current.Type).precedence {
		p.advance()
		infixRule := getRule(p.previous.Type).infix
		infixRule(p, canAssign)
	}

	if canAssign && p.match(lexer.TokenEqual) {
		p.errorAtPrevious("invalid assignment target")
	}
}

func (p *Parser) number(canAssign bool) {
	n, err := parseNumber(p.previous.Lexeme)
	if err != nil {
		p.errorAtPrevious("invalid number literal")
		return
	}
	p.emitConstant(value.Number(n))
}

func (p *Parser) stringLiteral(canAssign bool) {
	raw := p.previous.Lexeme
	// Strip the surrounding quotes; spec.md defines no escape
	// sequences, matching clox's scanner.
	contents := raw[1 : len(raw)-1]
	p.emitConstant(value.FromObject(p.heap.InternString(contents)))
}

func (p *Parser) literal(canAssign bool) {
	switch p.previous.Type {
	case lexer.TokenFalse:
		p.emitOp(chunk.OpFalse)
	case lexer.TokenTrue:
		p.emitOp(chunk.OpTrue)
	case lexer.TokenNil:
		p.emitOp(chunk.OpNil)
	}
}

func (p *Parser) grouping(canAssign bool) {
	p.expression()
	p.consume(lexer.TokenRightParen, "expect ')' after expression")
}

func (p *Parser) unary(canAssign bool) {
	opType := p.previous.Type
	p.parsePrecedence(PrecUnary)

	switch opType {
	case lexer.TokenBang:
		p.emitOp(chunk.OpNot)
	case lexer.TokenMinus:
		p.emitOp(chunk.OpNegate)
	}
}

func (p *Parser) binary(canAssign bool) {
	opType := p.previous.Type
	r := getRule(opType)
	p.parsePrecedence(r.precedence + 1)

	switch opType {
	case lexer.TokenBangEqual:
		p.emitOps(chunk.OpEqual, chunk.OpNot)
	case lexer.TokenEqualEqual:
		p.emitOp(chunk.OpEqual)
	case lexer.TokenGreater:
		p.emitOp(chunk.OpGreater)
	case lexer.TokenGreaterEqual:
		p.emitOps(chunk.OpLess, chunk.OpNot)
	case lexer.TokenLess:
		p.emitOp(chunk.OpLess)
	case lexer.TokenLessEqual:
		p.emitOps(chunk.OpGreater, chunk.OpNot)
	case lexer.TokenPlus:
		p.emitOp(chunk.OpAdd)
	case lexer.TokenMinus:
		p.emitOp(chunk.OpSubtract)
	case lexer.TokenStar:
		p.emitOp(chunk.OpMultiply)
	case lexer.TokenSlash:
		p.emitOp(chunk.OpDivide)
	}
}

// and/or implement short-circuit evaluation with jumps rather than
// dedicated boolean opcodes. `or` keeps the teaching two-jump form
// per SPEC_FULL.md §14 rather than adding a JUMP_IF_TRUE opcode.
func (p *Parser) and(canAssign bool) {
	endJump := p.emitJump(chunk.OpJumpIfFalse)
	p.emitOp(chunk.OpPop)
	p.parsePrecedence(PrecAnd)
	p.patchJump(endJump)
}

func (p *Parser) or(canAssign bool) {
	elseJump := p.emitJump(chunk.OpJumpIfFalse)
	endJump := p.emitJump(chunk.OpJump)

	p.patchJump(elseJump)
	p.emitOp(chunk.OpPop)

	p.parsePrecedence(PrecOr)
	p.patchJump(endJump)
}

func (p *Parser) argumentList() byte {
	argCount := 0
	if !p.check(lexer.TokenRightParen) {
		for {
			p.expression()
			if argCount == 255 {
				p.errorAtPrevious("can't have more than 255 arguments")
			}
			argCount++
			if !p.match(lexer.TokenComma) {
				break
			}
		}
	}
	p.consume(lexer.TokenRightParen, "expect ')' after arguments")
	return byte(argCount)
}

func (p *Parser) call(canAssign bool) {
	argCount := p.argumentList()
	p.emitOpByte(chunk.OpCall, argCount)
}

func (p *Parser) dot(canAssign bool) {
	p.consume(lexer.TokenIdentifier, "expect property name after '.'")
	name := p.identifierConstant(p.previous)

	switch {
	case canAssign && p.match(lexer.TokenEqual):
		p.expression()
		p.emitOpByte(chunk.OpSetProperty, name)
	case p.match(lexer.TokenLeftParen):
		argCount := p.argumentList()
		p.emitOpByte(chunk.OpInvoke, name)
		p.emitByte(argCount)
	default:
		p.emitOpByte(chunk.OpGetProperty, name)
	}
}

func (p *Parser) namedVariable(name lexer.Token, canAssign bool) {
	var getOp, setOp chunk.OpCode
	arg := p.resolveLocal(p.compiler, name)
	if arg != -1 {
		getOp, setOp = chunk.OpGetLocal, chunk.OpSetLocal
	} else if arg = p.resolveUpvalue(p.compiler, name); arg != -1 {
		getOp, setOp = chunk.OpGetUpvalue, chunk.OpSetUpvalue
	} else {
		arg = int(p.identifierConstant(name))
		getOp, setOp = chunk.OpGetGlobal, chunk.OpSetGlobal
	}

	if canAssign && p.match(lexer.TokenEqual) {
		p.expression()
		p.emitOpByte(setOp, byte(arg))
	} else {
		p.emitOpByte(getOp, byte(arg))
	}
}

func (p *Parser) variable(canAssign bool) {
	p.namedVariable(p.previous, canAssign)
}

var syntheticThis = lexer.Token{Type: lexer.TokenThis, Lexeme: "this"}
var syntheticSuper = lexer.Token{Type: lexer.TokenSuper, Lexeme: "super"}

func (p *Parser) this(canAssign bool) {
	if p.class == nil {
		p.errorAtPrevious("can't use 'this' outside of a class")
		return
	}
	p.variable(false)
}

func (p *Parser) super(canAssign bool) {
	switch {
	case p.class == nil:
		p.errorAtPrevious("can't use 'super' outside of a class")
	case !p.class.HasSuperclass:
		p.errorAtPrevious("can't use 'super' in a class with no superclass")
	}

	p.consume(lexer.TokenDot, "expect '.' after 'super'")
	p.consume(lexer.TokenIdentifier, "expect superclass method name")
	name := p.identifierConstant(p.previous)

	p.namedVariable(syntheticThis, false)
	if p.match(lexer.TokenLeftParen) {
		argCount := p.argumentList()
		p.namedVariable(syntheticSuper, false)
		p.emitOpByte(chunk.OpSuperInvoke, name)
		p.emitByte(argCount)
	} else {
		p.namedVariable(syntheticSuper, false)
		p.emitOpByte(chunk.OpGetSuper, name)
	}
}
