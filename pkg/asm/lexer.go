package asm

import (
	"fmt"
	"strconv"
	"strings"
)

// stripBlockComments removes /*...*/ comments before scanning. Newlines
// inside a comment are kept so line numbers of later tokens stay correct.
// Block comments do not nest.
func stripBlockComments(text, filename string) (string, error) {
	var out strings.Builder
	out.Grow(len(text))

	i := 0
	for i < len(text) {
		if text[i] == '/' && i+1 < len(text) && text[i+1] == '*' {
			end := strings.Index(text[i+2:], "*/")
			if end == -1 {
				return "", fmt.Errorf("%s: unterminated /* comment", filename)
			}
			for _, c := range text[i+2 : i+2+end] {
				if c == '\n' {
					out.WriteByte('\n')
				}
			}
			i += 2 + end + 2
			continue
		}
		out.WriteByte(text[i])
		i++
	}
	return out.String(), nil
}

// lexer holds all mutable state for a single scanning pass over src.
type lexer struct {
	src       string
	file      string
	pos       int // index of the next byte to consume
	line      int // current 1-based source line
	lineStart int // index of the byte following the last newline
}

// here returns a position-only token for error reporting.
func (l *lexer) here() Token {
	return Token{Line: l.line, Col: l.pos - l.lineStart + 1, File: l.file}
}

// emit produces a token whose text spans [start, l.pos).
func (l *lexer) emit(kind Kind, start int) Token {
	return Token{
		Kind: kind,
		Text: l.src[start:l.pos],
		Line: l.line,
		Col:  start - l.lineStart + 1,
		File: l.file,
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

// Identifiers admit an apostrophe after the first character.
func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '\''
}

// Lex converts text into a flat ordered token sequence. It is a pure
// function: the only side effect is a lexical error on unmatched input.
// Whitespace and comments are discarded; newlines are kept as tokens
// because statement boundaries are newline-delimited.
func Lex(text, filename string) ([]Token, error) {
	text, err := stripBlockComments(text, filename)
	if err != nil {
		return nil, err
	}

	l := &lexer{src: text, file: filename, line: 1}
	var tokens []Token

	for l.pos < len(l.src) {
		c := l.src[l.pos]
		var next byte
		if l.pos+1 < len(l.src) {
			next = l.src[l.pos+1]
		}

		switch {
		case c == '\n':
			tok := l.emit(NEWLINE, l.pos)
			tok.Text = ""
			l.pos++
			tokens = append(tokens, tok)
			l.line++
			l.lineStart = l.pos

		case c == ' ' || c == '\t':
			l.pos++

		case c == '/' && next == '/':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}

		case isDigit(c) || (c == '-' && isDigit(next)):
			tok, err := l.lexNumber()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)

		case c == '"':
			tok, err := l.lexString()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)

		case c == '#' && isIdentStart(next):
			start := l.pos
			l.pos++
			for l.pos < len(l.src) && (isIdentStart(l.src[l.pos]) || isDigit(l.src[l.pos])) {
				l.pos++
			}
			tokens = append(tokens, l.emit(DIRECTIVE, start))

		case c == '.' && isIdentStart(next):
			start := l.pos
			l.pos++
			for l.pos < len(l.src) && (isIdentStart(l.src[l.pos]) || isDigit(l.src[l.pos])) {
				l.pos++
			}
			tokens = append(tokens, l.emit(ASMDIRECTIVE, start))

		case isIdentStart(c):
			start := l.pos
			for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
				l.pos++
			}
			tokens = append(tokens, l.emit(IDENT, start))

		default:
			tok, ok := l.lexOperator()
			if !ok {
				at := l.here()
				return nil, errorAt(at, "illegal character %q", string(c))
			}
			tokens = append(tokens, tok)
		}
	}

	return tokens, nil
}

// lexNumber scans a binary, hex, or decimal literal and decodes it. Only
// decimal admits a leading '-'. A bare "0x"/"0b" prefix with no digits
// falls back to the plain decimal zero, leaving the suffix for the next
// token, which matches longest-valid-literal scanning.
func (l *lexer) lexNumber() (Token, error) {
	start := l.pos

	if l.src[l.pos] == '0' {
		var next byte
		if l.pos+1 < len(l.src) {
			next = l.src[l.pos+1]
		}
		if next == 'x' || next == 'X' {
			digits := l.pos + 2
			end := digits
			for end < len(l.src) && isHexDigit(l.src[end]) {
				end++
			}
			if end > digits {
				l.pos = end
				return l.decode(start, l.src[digits:end], 16)
			}
		}
		if next == 'b' || next == 'B' {
			digits := l.pos + 2
			end := digits
			for end < len(l.src) && (l.src[end] == '0' || l.src[end] == '1') {
				end++
			}
			if end > digits {
				l.pos = end
				return l.decode(start, l.src[digits:end], 2)
			}
		}
	}

	if l.src[l.pos] == '-' {
		l.pos++
	}
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	return l.decode(start, l.src[start:l.pos], 10)
}

func (l *lexer) decode(start int, digits string, base int) (Token, error) {
	value, err := strconv.ParseInt(digits, base, 64)
	if err != nil {
		tok := l.emit(INT, start)
		return Token{}, errorAt(tok, "integer literal %q out of range", tok.Text)
	}
	tok := l.emit(INT, start)
	tok.Int = value
	return tok, nil
}

// lexString scans a double-quoted single-line string. The enclosing quotes
// are kept in the token text; no unescaping is performed.
func (l *lexer) lexString() (Token, error) {
	start := l.pos
	l.pos++
	for l.pos < len(l.src) && l.src[l.pos] != '"' && l.src[l.pos] != '\n' {
		l.pos++
	}
	if l.pos >= len(l.src) || l.src[l.pos] != '"' {
		at := l.here()
		at.Col = start - l.lineStart + 1
		return Token{}, errorAt(at, "unterminated string")
	}
	l.pos++
	return l.emit(STRING, start), nil
}

var twoCharOps = map[string]Kind{
	"==": EQ, "!=": NEQ, "<=": LTE, ">=": GTE,
	"<<": SHL, ">>": SHR, "&&": LAND, "||": LOR,
}

var oneCharOps = map[byte]Kind{
	'<': LT, '>': GT, '+': PLUS, '-': MINUS, '*': MUL, '/': DIV,
	'%': MOD, '&': BITAND, '|': BITOR, '^': XOR, '=': ASSIGN,
	'!': NOT, '~': INVERT, '(': LPAREN, ')': RPAREN, ',': COMMA,
	':': COLON, '?': QUESTION,
}

// lexOperator matches punctuation and operators, longest first so that
// "==" wins over "=", "<<" over "<", and so on.
func (l *lexer) lexOperator() (Token, bool) {
	start := l.pos
	if l.pos+1 < len(l.src) {
		if kind, ok := twoCharOps[l.src[l.pos:l.pos+2]]; ok {
			l.pos += 2
			return l.emit(kind, start), true
		}
	}
	if kind, ok := oneCharOps[l.src[l.pos]]; ok {
		l.pos++
		return l.emit(kind, start), true
	}
	return Token{}, false
}
