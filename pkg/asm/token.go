package asm

import "fmt"

// Kind identifies the category of a lexed token.
type Kind int

const (
	NEWLINE Kind = iota // statement separator; lines delimit statements

	// Literals
	INT    // integer literal, decoded at lex time
	STRING // "..." including the enclosing quotes

	// Directive markers
	DIRECTIVE    // #name, preprocessor directive
	ASMDIRECTIVE // .name, assembler directive

	// Comparison
	EQ  // ==
	NEQ // !=
	LTE // <=
	GTE // >=

	// Shifts
	SHL // <<
	SHR // >>

	// Logical
	LAND // &&
	LOR  // ||

	// Single-character operators
	LT     // <
	GT     // >
	PLUS   // +
	MINUS  // -
	MUL    // *
	DIV    // /
	MOD    // %
	BITAND // &
	BITOR  // |
	XOR    // ^
	ASSIGN // =
	NOT    // !
	INVERT // ~

	// Punctuation
	LPAREN   // (
	RPAREN   // )
	COMMA    // ,
	COLON    // :
	QUESTION // ?

	IDENT // identifier
)

var kindNames = [...]string{
	NEWLINE:      "NEWLINE",
	INT:          "INT",
	STRING:       "STRING",
	DIRECTIVE:    "DIRECTIVE",
	ASMDIRECTIVE: "ASMDIRECTIVE",
	EQ:           "EQ",
	NEQ:          "NEQ",
	LTE:          "LTE",
	GTE:          "GTE",
	SHL:          "SHL",
	SHR:          "SHR",
	LAND:         "AND",
	LOR:          "OR",
	LT:           "LT",
	GT:           "GT",
	PLUS:         "PLUS",
	MINUS:        "MINUS",
	MUL:          "MUL",
	DIV:          "DIV",
	MOD:          "MOD",
	BITAND:       "BITAND",
	BITOR:        "BITOR",
	XOR:          "XOR",
	ASSIGN:       "ASSIGN",
	NOT:          "NOT",
	INVERT:       "INVERT",
	LPAREN:       "LPAREN",
	RPAREN:       "RPAREN",
	COMMA:        "COMMA",
	COLON:        "COLON",
	QUESTION:     "QUESTION",
	IDENT:        "IDENT",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Token is the smallest lexical unit: a kind, the matched source text, and
// where it came from. INT tokens additionally carry the decoded value.
// Tokens synthesized during expression reduction have an empty Text.
type Token struct {
	Kind Kind
	Text string
	Int  int64
	Line int // 1-based
	Col  int // 1-based, relative to the last newline
	File string
}

func (t Token) String() string {
	if t.Kind == INT {
		return fmt.Sprintf("Token(INT, %d, %s:%d:%d)", t.Int, t.File, t.Line, t.Col)
	}
	return fmt.Sprintf("Token(%s, %q, %s:%d:%d)", t.Kind, t.Text, t.File, t.Line, t.Col)
}

// intToken synthesizes an INT token carrying the position of the reduced
// span's anchor token.
func intToken(value int64, at Token) Token {
	return Token{Kind: INT, Int: value, Line: at.Line, Col: at.Col, File: at.File}
}

// describe returns a short name for a token in error messages.
func describe(t Token) string {
	if t.Kind == INT && t.Text == "" {
		return fmt.Sprintf("%d", t.Int)
	}
	if t.Text == "" {
		return t.Kind.String()
	}
	return t.Text
}
