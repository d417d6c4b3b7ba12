package asm

import (
	"reflect"
	"strconv"
	"strings"
	"testing"

	"dspasm/pkg/srcfs"
)

// preprocess runs the full preprocessing pipeline over an in-memory file
// set rooted at main.s.
func preprocess(t *testing.T, files map[string]string) ([]Token, error) {
	t.Helper()
	p := NewPreprocessor(srcfs.Mem(files))
	return p.Preprocess("main.s")
}

// summarize flattens a token stream to its texts and values, dropping
// newlines, for compact comparisons.
func summarize(tokens []Token) []string {
	var out []string
	for _, tok := range tokens {
		switch {
		case tok.Kind == NEWLINE:
		case tok.Kind == INT:
			out = append(out, strconv.FormatInt(tok.Int, 10))
		default:
			out = append(out, tok.Text)
		}
	}
	return out
}

func TestConditionals(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		expected []string
		wantErr  string
	}{
		{
			name:     "Ifdef Undefined Takes Else",
			source:   "#ifdef UNDEF\n1\n#else\n2\n#endif\n",
			expected: []string{"2"},
		},
		{
			name:     "Ifdef Defined Takes Then",
			source:   "#define YES\n#ifdef YES\n1\n#else\n2\n#endif\n",
			expected: []string{"1"},
		},
		{
			name:     "Ifndef Undefined Takes Then",
			source:   "#ifndef UNDEF\n1\n#else\n2\n#endif\n",
			expected: []string{"1"},
		},
		{
			name:     "If Expression",
			source:   "#if 2>1\n1\n#endif\n",
			expected: []string{"1"},
		},
		{
			name:     "If False Drops Body",
			source:   "#if 0\n1\n#endif\n2\n",
			expected: []string{"2"},
		},
		{
			name:     "Elif Chain Picks First True",
			source:   "#if 0\n1\n#elif 1\n2\n#elif 1\n3\n#else\n4\n#endif\n",
			expected: []string{"2"},
		},
		{
			name:     "Elif After Taken Branch Stays Dead",
			source:   "#if 1\n1\n#elif 1\n2\n#else\n3\n#endif\n",
			expected: []string{"1"},
		},
		{
			name:     "Else After Taken Elif Stays Dead",
			source:   "#if 0\n1\n#elif 1\n2\n#else\n3\n#endif\n",
			expected: []string{"2"},
		},
		{
			name:     "Macro In Condition",
			source:   "#define V 3\n#if V==3\nok\n#endif\n",
			expected: []string{"ok"},
		},
		{
			name: "Nested Conditional Under Dead Level Is Inert",
			// The inner #ifdef has no operand at all; under a dead outer
			// level it still only pushes a dead level.
			source:   "#ifdef U\n#ifdef\n1\n#endif\n#endif\n2\n",
			expected: []string{"2"},
		},
		{
			name:     "Nested Conditionals",
			source:   "#define A\n#ifdef A\n#ifdef B\n1\n#else\n2\n#endif\n#endif\n",
			expected: []string{"2"},
		},
		{
			name:    "Unclosed Conditional",
			source:  "#if 1\n1\n",
			wantErr: "unclosed preprocessor conditional",
		},
		{
			name:    "Endif Without Open",
			source:  "#endif\n",
			wantErr: "#endif without an open conditional",
		},
		{
			name:    "Else Without Open",
			source:  "#else\n",
			wantErr: "#else without an open conditional",
		},
		{
			name:    "If Without Expression",
			source:  "#if\n#endif\n",
			wantErr: "expected expression",
		},
		{
			name:    "If With Unresolved Identifier",
			source:  "#if FOO\n#endif\n",
			wantErr: "expected a number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := preprocess(t, map[string]string{"main.s": tt.source})
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("Preprocess() succeeded, want error containing %q", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("Preprocess() error = %q, want substring %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Preprocess() error = %v", err)
			}
			if !reflect.DeepEqual(summarize(got), tt.expected) {
				t.Errorf("Preprocess() = %v, want %v", summarize(got), tt.expected)
			}
		})
	}
}
