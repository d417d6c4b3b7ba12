package asm

import "errors"

// SymbolLookup resolves an identifier to its integer value. A false return
// means the name is unknown.
type SymbolLookup func(name string) (int64, bool)

// Evaluate reduces a token slice representing a numeric expression to a
// single integer. Identifiers are resolved through lookup before any
// reduction; with a nil lookup every identifier is an error. The slice is
// never mutated: each reduction pass builds a fresh output sequence.
func Evaluate(tokens []Token, lookup SymbolLookup) (int64, error) {
	work := make([]Token, len(tokens))
	copy(work, tokens)

	if lookup != nil {
		for i, t := range work {
			if t.Kind != IDENT {
				continue
			}
			value, ok := lookup(t.Text)
			if !ok {
				return 0, errorAt(t, "undefined symbol %q", t.Text)
			}
			work[i] = intToken(value, t)
		}
	}

	return evaluate(work)
}

// evaluate runs the staged reduction passes: parentheses, unary chains,
// the binary precedence tiers, then ternary selection.
func evaluate(tokens []Token) (int64, error) {
	if len(tokens) == 0 {
		return 0, errors.New("expected expression")
	}
	if len(tokens) == 1 {
		if tokens[0].Kind != INT {
			return 0, errorAt(tokens[0], "expected a number, got %q", describe(tokens[0]))
		}
		return tokens[0].Int, nil
	}

	tokens, err := reduceParens(tokens)
	if err != nil {
		return 0, err
	}

	tokens = reduceUnary(tokens)

	for i, tier := range binaryTiers {
		tokens, err = reduceBinary(tokens, tier)
		if err != nil {
			return 0, err
		}
		if i == addSubTier {
			tokens = mergeAdjacentNegatives(tokens)
		}
	}

	tokens, err = reduceTernary(tokens)
	if err != nil {
		return 0, err
	}

	if len(tokens) != 1 {
		for _, t := range tokens {
			if t.Kind != INT {
				return 0, errorAt(t, "unexpected %q in expression", describe(t))
			}
		}
		return 0, errorAt(tokens[0], "malformed expression")
	}
	if tokens[0].Kind != INT {
		return 0, errorAt(tokens[0], "expected a number, got %q", describe(tokens[0]))
	}
	return tokens[0].Int, nil
}

// reduceParens collapses every parenthesized sub-expression, innermost
// first, into a single INT token.
func reduceParens(tokens []Token) ([]Token, error) {
	out := make([]Token, 0, len(tokens))
	var inner []Token
	nesting := 0

	for _, t := range tokens {
		switch t.Kind {
		case LPAREN:
			nesting++
			if nesting == 1 {
				inner = nil
				continue
			}
		case RPAREN:
			nesting--
			if nesting < 0 {
				return nil, errorAt(t, "expected '(' before ')'")
			}
			if nesting == 0 {
				if len(inner) == 0 {
					return nil, errorAt(t, "expected expression")
				}
				value, err := evaluate(inner)
				if err != nil {
					return nil, err
				}
				out = append(out, intToken(value, t))
				continue
			}
		}

		if nesting > 0 {
			inner = append(inner, t)
		} else {
			out = append(out, t)
		}
	}

	if nesting > 0 {
		return nil, errorAt(tokens[len(tokens)-1], "expected ')'")
	}
	return out, nil
}

var unaryOps = map[Kind]func(int64) int64{
	MINUS:  func(a int64) int64 { return -a },
	INVERT: func(a int64) int64 { return ^a },
	NOT: func(a int64) int64 {
		if a == 0 {
			return 1
		}
		return 0
	},
}

// reduceUnary collapses chains of prefix operators right-to-left onto the
// following INT, so "~!~-4" reduces in one pass. An operator directly after
// an INT is binary, not unary, and is left alone; a chain whose operand is
// not yet an INT is also left for a later pass.
func reduceUnary(tokens []Token) []Token {
	out := make([]Token, 0, len(tokens))

	for i := 0; i < len(tokens); {
		t := tokens[i]
		_, isUnary := unaryOps[t.Kind]
		prevIsInt := len(out) > 0 && out[len(out)-1].Kind == INT

		if !isUnary || prevIsInt {
			out = append(out, t)
			i++
			continue
		}

		start := i
		for i < len(tokens) {
			if _, ok := unaryOps[tokens[i].Kind]; !ok {
				break
			}
			i++
		}

		if i >= len(tokens) || tokens[i].Kind != INT {
			out = append(out, tokens[start:i]...)
			continue
		}

		value := tokens[i].Int
		for j := i - 1; j >= start; j-- {
			value = unaryOps[tokens[j].Kind](value)
		}
		out = append(out, intToken(value, tokens[i]))
		i++
	}

	return out
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// floorDiv divides truncating toward negative infinity, matching the
// floor-division semantics the source language defines for negative
// operands.
func floorDiv(a, b int64) (int64, error) {
	if b == 0 {
		return 0, errors.New("division by zero")
	}
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q, nil
}

// floorMod is the modulo paired with floorDiv: the result takes the sign
// of the divisor.
func floorMod(a, b int64) (int64, error) {
	if b == 0 {
		return 0, errors.New("division by zero")
	}
	m := a % b
	if m != 0 && (a < 0) != (b < 0) {
		m += b
	}
	return m, nil
}

type binaryOp func(a, b int64) (int64, error)

func pure(f func(a, b int64) int64) binaryOp {
	return func(a, b int64) (int64, error) { return f(a, b), nil }
}

func shift(left bool) binaryOp {
	return func(a, b int64) (int64, error) {
		if b < 0 {
			return 0, errors.New("negative shift count")
		}
		if left {
			return a << uint(b), nil
		}
		return a >> uint(b), nil
	}
}

// binaryTiers lists the precedence tiers highest first. Each tier is
// reduced fully, left-associatively, before the next one runs.
var binaryTiers = []map[Kind]binaryOp{
	{
		MUL: pure(func(a, b int64) int64 { return a * b }),
		DIV: floorDiv,
		MOD: floorMod,
	},
	{
		PLUS:  pure(func(a, b int64) int64 { return a + b }),
		MINUS: pure(func(a, b int64) int64 { return a - b }),
	},
	{
		SHL: shift(true),
		SHR: shift(false),
	},
	{
		LT:  pure(func(a, b int64) int64 { return boolInt(a < b) }),
		LTE: pure(func(a, b int64) int64 { return boolInt(a <= b) }),
		GT:  pure(func(a, b int64) int64 { return boolInt(a > b) }),
		GTE: pure(func(a, b int64) int64 { return boolInt(a >= b) }),
	},
	{
		EQ:  pure(func(a, b int64) int64 { return boolInt(a == b) }),
		NEQ: pure(func(a, b int64) int64 { return boolInt(a != b) }),
	},
	{
		BITAND: pure(func(a, b int64) int64 { return a & b }),
		XOR:    pure(func(a, b int64) int64 { return a ^ b }),
		BITOR:  pure(func(a, b int64) int64 { return a | b }),
	},
	{
		LAND: pure(func(a, b int64) int64 { return boolInt(a != 0 && b != 0) }),
		LOR:  pure(func(a, b int64) int64 { return boolInt(a != 0 || b != 0) }),
	},
}

// addSubTier indexes the + / - tier; the adjacent-negative repair pass runs
// right after it.
const addSubTier = 1

// reduceBinary applies one precedence tier left to right, replacing every
// INT op INT triple with its result.
func reduceBinary(tokens []Token, ops map[Kind]binaryOp) ([]Token, error) {
	out := make([]Token, 0, len(tokens))

	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		op, ok := ops[t.Kind]
		if !ok {
			out = append(out, t)
			continue
		}

		if len(out) == 0 || out[len(out)-1].Kind != INT ||
			i+1 >= len(tokens) || tokens[i+1].Kind != INT {
			return nil, errorAt(t, "operator %q is missing an operand", describe(t))
		}

		value, err := op(out[len(out)-1].Int, tokens[i+1].Int)
		if err != nil {
			return nil, errorAt(t, "%v", err)
		}
		out[len(out)-1] = intToken(value, t)
		i++
	}

	return out, nil
}

// mergeAdjacentNegatives repairs the lexing ambiguity where "3-3-3" scans
// as three adjacent literals instead of subtraction: two INT tokens with no
// operator between them, the right one negative, merge by addition.
func mergeAdjacentNegatives(tokens []Token) []Token {
	out := make([]Token, 0, len(tokens))

	for _, t := range tokens {
		if t.Kind == INT && t.Int < 0 && len(out) > 0 && out[len(out)-1].Kind == INT {
			out[len(out)-1] = intToken(out[len(out)-1].Int+t.Int, t)
			continue
		}
		out = append(out, t)
	}

	return out
}

// reduceTernary resolves the conditional operator last. Inner ?: pairs are
// tracked by a nesting counter; only the taken branch is evaluated. The
// result is a plain INT token carrying the condition's position.
func reduceTernary(tokens []Token) ([]Token, error) {
	var cond, thenArm, elseArm []Token
	state := 0
	nests := 0

	for _, t := range tokens {
		switch {
		case state == 0 && t.Kind == QUESTION:
			state = 1
			continue
		case state == 1 && t.Kind == QUESTION:
			nests++
		case state == 1 && t.Kind == COLON:
			if nests == 0 {
				state = 2
				continue
			}
			nests--
		}

		switch state {
		case 0:
			cond = append(cond, t)
		case 1:
			thenArm = append(thenArm, t)
		case 2:
			elseArm = append(elseArm, t)
		}
	}

	if state == 0 {
		return cond, nil
	}
	last := tokens[len(tokens)-1]
	if state == 1 {
		return nil, errorAt(last, "expected ':'")
	}
	if len(cond) == 0 || len(thenArm) == 0 || len(elseArm) == 0 {
		return nil, errorAt(last, "expected expression")
	}

	c, err := evaluate(cond)
	if err != nil {
		return nil, err
	}
	branch := elseArm
	if c != 0 {
		branch = thenArm
	}
	value, err := evaluate(branch)
	if err != nil {
		return nil, err
	}
	return []Token{intToken(value, cond[0])}, nil
}
