package asm

// tokenConsumer is a sequential cursor over a token slice, shared by the
// preprocessor and the statement parser.
type tokenConsumer struct {
	tokens []Token
	pos    int
}

func newConsumer(tokens []Token) *tokenConsumer {
	return &tokenConsumer{tokens: tokens}
}

// next returns the next token, or false at end of stream.
func (c *tokenConsumer) next() (Token, bool) {
	if c.pos >= len(c.tokens) {
		return Token{}, false
	}
	tok := c.tokens[c.pos]
	c.pos++
	return tok, true
}

// demand returns the next token; running out is an error naming what was
// expected, positioned at the last token seen.
func (c *tokenConsumer) demand(what string) (Token, error) {
	if c.pos >= len(c.tokens) {
		var last Token
		if len(c.tokens) > 0 {
			last = c.tokens[len(c.tokens)-1]
		}
		return Token{}, errorAt(last, "expected %s", what)
	}
	tok := c.tokens[c.pos]
	c.pos++
	return tok, nil
}

// expect is demand plus a kind check.
func (c *tokenConsumer) expect(kind Kind, what string) (Token, error) {
	tok, err := c.demand(what)
	if err != nil {
		return tok, err
	}
	if tok.Kind != kind {
		return tok, errorAt(tok, "expected %s, got %q", what, describe(tok))
	}
	return tok, nil
}

// peekKind reports whether the next token has the given kind, without
// advancing.
func (c *tokenConsumer) peekKind(kind Kind) bool {
	return c.pos < len(c.tokens) && c.tokens[c.pos].Kind == kind
}

// afterWhitespace reports whether the most recently consumed token was
// separated from the one before it by more than adjacency. Column
// arithmetic needs the previous token's source text, so this only makes
// sense for lexed tokens on one line.
func (c *tokenConsumer) afterWhitespace() bool {
	if c.pos < 2 {
		return false
	}
	cur := c.tokens[c.pos-1]
	prev := c.tokens[c.pos-2]
	return cur.Col != prev.Col+len(prev.Text)
}

// consumeList gathers a comma-separated list of token spans, starting just
// after the opener and ending at a token of kind end. Nested parentheses
// inside a field are respected.
func (c *tokenConsumer) consumeList(end Kind) ([][]Token, error) {
	var args [][]Token
	var field []Token
	nests := 0

	for {
		tok, err := c.demand("expression")
		if err != nil {
			return nil, err
		}

		if nests > 0 {
			switch tok.Kind {
			case LPAREN:
				nests++
			case RPAREN:
				nests--
			}
			field = append(field, tok)
			continue
		}

		if tok.Kind == end {
			if len(args) > 0 && len(field) == 0 {
				return nil, errorAt(tok, "expected expression after ','")
			}
			if len(field) > 0 {
				args = append(args, field)
			}
			return args, nil
		}

		if tok.Kind == COMMA {
			if len(field) == 0 {
				return nil, errorAt(tok, "expected expression before ','")
			}
			args = append(args, field)
			field = nil
			continue
		}

		if tok.Kind == LPAREN {
			nests++
		}
		field = append(field, tok)
	}
}

// consumeLine gathers tokens up to and including the next newline. The
// newline itself is not returned.
func (c *tokenConsumer) consumeLine() ([]Token, error) {
	var field []Token
	for {
		tok, err := c.demand("newline")
		if err != nil {
			return nil, err
		}
		if tok.Kind == NEWLINE {
			return field, nil
		}
		field = append(field, tok)
	}
}
