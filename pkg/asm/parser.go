package asm

// Parse consumes the preprocessed token stream into a Program. Newlines
// between statements are skipped; an identifier immediately followed by a
// colon becomes a label; assembler directives dispatch to their own
// constructors, each consuming the rest of its line.
func Parse(tokens []Token) (*Program, error) {
	prog := NewProgram()
	c := newConsumer(tokens)

	for {
		tok, ok := c.next()
		if !ok {
			break
		}

		switch {
		case tok.Kind == NEWLINE:

		case tok.Kind == ASMDIRECTIVE:
			if err := parseDirective(prog, tok, c); err != nil {
				return nil, err
			}

		case tok.Kind == IDENT && c.peekKind(COLON):
			prog.Push(&Label{name: tok.Text, tok: tok})
			if _, err := c.consumeLine(); err != nil {
				return nil, err
			}

		default:
			return nil, errorAt(tok, "was not expecting %q", describe(tok))
		}
	}
	return prog, nil
}

func parseDirective(prog *Program, tok Token, c *tokenConsumer) error {
	switch tok.Text {
	case ".byte":
		return parseData(prog, tok, c, 1)
	case ".half", ".short":
		return parseData(prog, tok, c, 2)
	case ".word", ".long":
		return parseData(prog, tok, c, 4)
	case ".quad":
		return parseData(prog, tok, c, 8)
	case ".asci":
		return parseString(prog, tok, c, false)
	case ".asciz", ".string":
		return parseString(prog, tok, c, true)
	case ".space", ".skip":
		return parseSpace(prog, tok, c)
	case ".align":
		return parseAlign(prog, tok, c)
	case ".org":
		return parseOrg(prog, tok, c)
	default:
		return errorAt(tok, "unknown directive %q", tok.Text)
	}
}

func parseData(prog *Program, tok Token, c *tokenConsumer, width int) error {
	values, err := c.consumeList(NEWLINE)
	if err != nil {
		return err
	}
	prog.Push(&DataStatement{prog: prog, tok: tok, width: width, values: values})
	return nil
}

func parseString(prog *Program, dir Token, c *tokenConsumer, nullTerminated bool) error {
	tok, err := c.expect(STRING, "a string")
	if err != nil {
		return err
	}
	body := tok.Text[1 : len(tok.Text)-1]
	for i := 0; i < len(body); i++ {
		if body[i] > 0x7F {
			return errorAt(tok, "string literal is not ASCII")
		}
	}
	prog.Push(&StringStatement{tok: dir, text: body, nullTerminated: nullTerminated})
	return nil
}

// constOperand reads the rest of the line as an expression that must
// already be a pure constant: any identifier at all is rejected, even one
// that would resolve to a constant, because these directives influence
// address assignment itself.
func constOperand(dir Token, c *tokenConsumer, what string) (int64, error) {
	expr, err := c.consumeLine()
	if err != nil {
		return 0, err
	}
	for _, t := range expr {
		if t.Kind == IDENT {
			return 0, errorAt(t, "%s requires a constant operand: found unevaluated symbol %q", what, t.Text)
		}
	}
	if len(expr) == 0 {
		return 0, errorAt(dir, "expected expression")
	}
	return Evaluate(expr, nil)
}

func parseSpace(prog *Program, tok Token, c *tokenConsumer) error {
	size, err := constOperand(tok, c, "space directive")
	if err != nil {
		return err
	}
	if size < 0 {
		return errorAt(tok, "space size must not be negative, got %d", size)
	}
	prog.Push(&SpaceStatement{prog: prog, tok: tok, size: int(size)})
	return nil
}

func parseAlign(prog *Program, tok Token, c *tokenConsumer) error {
	alignment, err := constOperand(tok, c, "alignment directive")
	if err != nil {
		return err
	}
	if alignment <= 0 {
		return errorAt(tok, "alignment must be positive, got %d", alignment)
	}
	prog.Push(&AlignStatement{prog: prog, tok: tok, alignment: int(alignment)})
	return nil
}

func parseOrg(prog *Program, tok Token, c *tokenConsumer) error {
	address, err := constOperand(tok, c, "org directive")
	if err != nil {
		return err
	}
	if address < 0 {
		return errorAt(tok, "org address must not be negative, got %d", address)
	}
	prog.Push(&OrgStatement{tok: tok, address: int(address)})
	return nil
}
