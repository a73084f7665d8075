package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextToken_Punctuation(t *testing.T) {
	input := `( ) { } , . - + ; * /`

	tests := []struct {
		expectedType   TokenType
		expectedLexeme string
	}{
		{TokenLeftParen, "("},
		{TokenRightParen, ")"},
		{TokenLeftBrace, "{"},
		{TokenRightBrace, "}"},
		{TokenComma, ","},
		{TokenDot, "."},
		{TokenMinus, "-"},
		{TokenPlus, "+"},
		{TokenSemicolon, ";"},
		{TokenStar, "*"},
		{TokenSlash, "/"},
		{TokenEOF, ""},
	}

	s := New(input)
	for i, tt := range tests {
		tok := s.NextToken()
		require.Equalf(t, tt.expectedType, tok.Type, "tests[%d] - type", i)
		require.Equalf(t, tt.expectedLexeme, tok.Lexeme, "tests[%d] - lexeme", i)
	}
}

func TestNextToken_TwoCharOperators(t *testing.T) {
	input := `! != = == > >= < <=`

	tests := []TokenType{
		TokenBang, TokenBangEqual, TokenEqual, TokenEqualEqual,
		TokenGreater, TokenGreaterEqual, TokenLess, TokenLessEqual,
		TokenEOF,
	}

	s := New(input)
	for i, want := range tests {
		tok := s.NextToken()
		require.Equalf(t, want, tok.Type, "tests[%d]", i)
	}
}

func TestNextToken_KeywordsAndIdentifiers(t *testing.T) {
	input := `and class else false for fun if nil or print return super this true var while foobar _x2`

	tests := []TokenType{
		TokenAnd, TokenClass, TokenElse, TokenFalse, TokenFor, TokenFun,
		TokenIf, TokenNil, TokenOr, TokenPrint, TokenReturn, TokenSuper,
		TokenThis, TokenTrue, TokenVar, TokenWhile,
		TokenIdentifier, TokenIdentifier, TokenEOF,
	}

	s := New(input)
	for i, want := range tests {
		tok := s.NextToken()
		require.Equalf(t, want, tok.Type, "tests[%d] lexeme=%q", i, tok.Lexeme)
	}
}

func TestNextToken_Literals(t *testing.T) {
	input := `123 3.14 "hello world"`

	s := New(input)

	num := s.NextToken()
	require.Equal(t, TokenNumber, num.Type)
	require.Equal(t, "123", num.Lexeme)

	float := s.NextToken()
	require.Equal(t, TokenNumber, float.Type)
	require.Equal(t, "3.14", float.Lexeme)

	str := s.NextToken()
	require.Equal(t, TokenString, str.Type)
	require.Equal(t, `"hello world"`, str.Lexeme)

	eof := s.NextToken()
	require.Equal(t, TokenEOF, eof.Type)
}

func TestNextToken_MultilineStringTracksLine(t *testing.T) {
	input := "\"line one\nline two\" identifier"
	s := New(input)

	str := s.NextToken()
	require.Equal(t, TokenString, str.Type)

	ident := s.NextToken()
	require.Equal(t, TokenIdentifier, ident.Type)
	require.Equal(t, 2, ident.Line)
}

func TestNextToken_SkipsLineComments(t *testing.T) {
	input := "// a comment\nvar x; // trailing"
	s := New(input)

	tests := []TokenType{TokenVar, TokenIdentifier, TokenSemicolon, TokenEOF}
	for i, want := range tests {
		tok := s.NextToken()
		require.Equalf(t, want, tok.Type, "tests[%d]", i)
	}
}

func TestNextToken_UnterminatedStringIsError(t *testing.T) {
	s := New(`"never closes`)
	tok := s.NextToken()
	require.Equal(t, TokenError, tok.Type)
}

func TestNextToken_IllegalCharacterIsError(t *testing.T) {
	s := New(`@`)
	tok := s.NextToken()
	require.Equal(t, TokenError, tok.Type)
}
