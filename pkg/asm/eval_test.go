package asm

import (
	"strings"
	"testing"
)

// evalSrc lexes src as a one-line expression and evaluates it.
func evalSrc(t *testing.T, src string, lookup SymbolLookup) (int64, error) {
	t.Helper()
	tokens, err := Lex(src+"\n", "expr.s")
	if err != nil {
		t.Fatalf("Lex(%q) error = %v", src, err)
	}
	var expr []Token
	for _, tok := range tokens {
		if tok.Kind != NEWLINE {
			expr = append(expr, tok)
		}
	}
	return Evaluate(expr, lookup)
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		expr string
		want int64
	}{
		{"5", 5},
		{"1+2*3", 7},
		{"(1+2)*3", 9},
		{"8/2*2", 8}, // left-associative within a tier

		// "3-3-3" lexes as three adjacent negative literals; the repair
		// pass must still read it as subtraction.
		{"3-3-3", -3},
		{"3 - 3 - 3", -3},
		{"3 -3 -3", -3},

		// Unary chains collapse right-to-left.
		{"-4", -4},
		{"- 4", -4},
		{"~0", -1},
		{"!0", 1},
		{"!5", 0},
		{"~!~-4", -1},
		{"2 * - 3", -6},

		// Floor division and modulo for negative operands.
		{"7/2", 3},
		{"-7/2", -4},
		{"7/-2", -4},
		{"-7/-2", 3},
		{"7%2", 1},
		{"-7%2", 1},
		{"7%-2", -1},

		{"1<<4", 16},
		{"256>>4", 16},
		{"-8>>1", -4},
		{"1+2<<3", 24}, // shifts bind looser than addition here

		{"2<3", 1},
		{"3<=2", 0},
		{"5>4", 1},
		{"4>=5", 0},
		{"5==5", 1},
		{"5!=5", 0},

		{"12&10", 8},
		{"12|3", 15},
		{"12^10", 6},
		{"2&&0", 0},
		{"2&&3", 1},
		{"0||0", 0},
		{"0||7", 1},

		{"1 ? 2 : 3", 2},
		{"0 ? 2 : 3", 3},

		// The untaken branch is carried through the passes but never
		// evaluated, so an unresolvable identifier there is harmless.
		{"1 ? 2 : bogus", 2},
		{"0 ? bogus : 3", 3},

		{"1 ? 0 ? 5 : 6 : 7", 6},
		{"0 ? 5 : 1 ? 6 : 7", 6},
		{"1 < 2 ? 10 : 20", 10},

		{"((2))", 2},
		{"(1 ? 2 : 3) * 4", 8},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := evalSrc(t, tt.expr, nil)
			if err != nil {
				t.Fatalf("Evaluate(%q) error = %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q) = %d, want %d", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want string // substring of the error
	}{
		{"Trailing Operator", "1+", "missing an operand"},
		{"Lone Operator", "+", "expected a number"},
		{"Empty Parens", "()", "expected expression"},
		{"Unclosed Paren", "(1+2", "expected ')'"},
		{"Stray Close Paren", "1)", "expected '('"},
		{"Division By Zero", "1/0", "division by zero"},
		{"Modulo By Zero", "1%0", "division by zero"},
		{"Negative Shift", "1<<-1", "negative shift"},
		{"Incomplete Ternary", "1 ? 2", "expected ':'"},
		{"Empty Ternary Branch", "1 ? : 3", "expected expression"},
		{"Unresolved Identifier", "foo+1", "missing an operand"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := evalSrc(t, tt.expr, nil)
			if err == nil {
				t.Fatalf("Evaluate(%q) succeeded, want error", tt.expr)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Evaluate(%q) error = %q, want substring %q", tt.expr, err, tt.want)
			}
		})
	}
}

func TestEvaluateSymbolLookup(t *testing.T) {
	symbols := map[string]int64{"A": 2, "B": 3}
	lookup := func(name string) (int64, bool) {
		v, ok := symbols[name]
		return v, ok
	}

	got, err := evalSrc(t, "A*B+1", lookup)
	if err != nil {
		t.Fatalf("Evaluate error = %v", err)
	}
	if got != 7 {
		t.Errorf("Evaluate(\"A*B+1\") = %d, want 7", got)
	}

	_, err = evalSrc(t, "A+MISSING", lookup)
	if err == nil || !strings.Contains(err.Error(), "undefined symbol") {
		t.Errorf("expected undefined symbol error, got %v", err)
	}
}

// The ternary result must be a plain INT token carrying the selected
// branch's value, usable by any surrounding expression.
func TestEvaluateTernaryResultComposes(t *testing.T) {
	got, err := evalSrc(t, "(0 ? 10 : 20) + 1", nil)
	if err != nil {
		t.Fatalf("Evaluate error = %v", err)
	}
	if got != 21 {
		t.Errorf("Evaluate = %d, want 21", got)
	}
}
