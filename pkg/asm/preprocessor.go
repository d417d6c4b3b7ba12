package asm

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"dspasm/pkg/srcfs"
)

const (
	// maxIncludeDepth bounds #include nesting so a pathological include
	// chain fails with a clear error instead of exhausting the stack.
	maxIncludeDepth = 64

	// maxExpandDepth bounds nested macro expansion the same way.
	maxExpandDepth = 64
)

// Macro is a named token-substitution rule. A nil Params slice means
// object-like; non-nil (possibly empty) means function-like.
type Macro struct {
	Name   Token // defining token, kept for diagnostics
	Params []string
	Body   []Token
}

func (m *Macro) functionLike() bool { return m.Params != nil }

// expand substitutes args positionally into the body: every body token
// that is an identifier matching a parameter name is replaced by the
// corresponding argument span. Object-like macros substitute verbatim.
func (m *Macro) expand(args [][]Token) ([]Token, error) {
	if !m.functionLike() {
		return m.Body, nil
	}
	if len(args) != len(m.Params) {
		return nil, errorAt(m.Name, "macro %q expects %d arguments, got %d",
			m.Name.Text, len(m.Params), len(args))
	}

	var out []Token
	for _, t := range m.Body {
		if t.Kind == IDENT {
			if idx := paramIndex(m.Params, t.Text); idx >= 0 {
				out = append(out, args[idx]...)
				continue
			}
		}
		out = append(out, t)
	}
	return out, nil
}

func paramIndex(params []string, name string) int {
	for i, p := range params {
		if p == name {
			return i
		}
	}
	return -1
}

// Preprocessor owns all state for one assembly run: the macro table, the
// active include chain, and the conditional-compilation stack. It is not
// safe to share across concurrent runs; construct one per run.
type Preprocessor struct {
	fs     srcfs.FS
	macros map[string]*Macro

	includeStack []string
	expandDepth  int
}

// NewPreprocessor returns a fresh preprocessor reading through fs. A nil
// fs means the host filesystem.
func NewPreprocessor(fs srcfs.FS) *Preprocessor {
	if fs == nil {
		fs = srcfs.OS{}
	}
	return &Preprocessor{fs: fs, macros: make(map[string]*Macro)}
}

// nested returns a child preprocessor sharing the macro table, used to
// resolve macros invoked by macros and inside #if conditions.
func (p *Preprocessor) nested() *Preprocessor {
	return &Preprocessor{fs: p.fs, macros: p.macros, expandDepth: p.expandDepth + 1}
}

// Preprocess runs the whole pipeline on the file at path: include
// resolution, macro gathering, the circular-definition check, then
// expansion and conditional evaluation.
func (p *Preprocessor) Preprocess(path string) ([]Token, error) {
	tokens, err := p.ResolveIncludes(path)
	if err != nil {
		return nil, err
	}
	tokens, err = p.Gather(tokens)
	if err != nil {
		return nil, err
	}
	if err := p.CheckCircularDefinitions(); err != nil {
		return nil, err
	}
	return p.Run(tokens)
}

// ResolveIncludes reads and lexes the file at path, splicing every
// #include "rel/path" depth-first into one flat token stream. Include
// paths are resolved relative to the including file's directory.
func (p *Preprocessor) ResolveIncludes(path string) ([]Token, error) {
	canon, err := p.fs.Canonical(path)
	if err != nil {
		return nil, err
	}

	for _, active := range p.includeStack {
		if active == canon {
			var sb strings.Builder
			sb.WriteString("circular include:")
			for _, chain := range p.includeStack {
				fmt.Fprintf(&sb, "\n\tinclude: %s", chain)
			}
			fmt.Fprintf(&sb, "\n\tinclude: %s", path)
			return nil, fmt.Errorf("%s", sb.String())
		}
	}
	if len(p.includeStack) >= maxIncludeDepth {
		return nil, fmt.Errorf("%s: includes nested deeper than %d levels", path, maxIncludeDepth)
	}

	p.includeStack = append(p.includeStack, canon)
	defer func() { p.includeStack = p.includeStack[:len(p.includeStack)-1] }()

	data, err := p.fs.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := strings.ReplaceAll(string(data), "\r", "")
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}

	tokens, err := Lex(text, filepath.Base(path))
	if err != nil {
		return nil, err
	}

	var out []Token
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if t.Kind != DIRECTIVE || t.Text != "#include" {
			out = append(out, t)
			continue
		}

		i++
		if i >= len(tokens) {
			return nil, errorAt(t, "expected file name")
		}
		name := tokens[i]
		if name.Kind != STRING {
			return nil, errorAt(t, "expected a quoted file name")
		}

		target := filepath.Join(filepath.Dir(path), strings.Trim(name.Text, `"`))
		included, err := p.ResolveIncludes(target)
		if err != nil {
			return nil, err
		}
		out = append(out, included...)
	}
	return out, nil
}

// Gather strips #define directives out of the stream, recording them in
// the macro table. Everything else passes through untouched.
func (p *Preprocessor) Gather(tokens []Token) ([]Token, error) {
	c := newConsumer(tokens)
	var out []Token

	for {
		tok, ok := c.next()
		if !ok {
			break
		}
		if tok.Kind == DIRECTIVE && tok.Text == "#define" {
			if err := p.gatherMacro(c); err != nil {
				return nil, err
			}
			continue
		}
		out = append(out, tok)
	}
	return out, nil
}

func (p *Preprocessor) gatherMacro(c *tokenConsumer) error {
	name, err := c.expect(IDENT, "definition name")
	if err != nil {
		return err
	}

	value, err := c.demand("definition value")
	if err != nil {
		return err
	}

	var params []string
	var body []Token

	// A '(' with no whitespace after the name opens a parameter list;
	// with whitespace it is part of an object-like body.
	if value.Kind == LPAREN && !c.afterWhitespace() {
		args, err := c.consumeList(RPAREN)
		if err != nil {
			return err
		}
		params = make([]string, 0, len(args))
		for _, arg := range args {
			if len(arg) != 1 || arg[0].Kind != IDENT {
				return errorAt(arg[0], "macro parameters must be identifiers")
			}
			params = append(params, arg[0].Text)
		}
		value, err = c.demand("definition value")
		if err != nil {
			return err
		}
	}

	if value.Kind != NEWLINE {
		if !c.afterWhitespace() {
			return errorAt(value, "expected whitespace before macro value")
		}
		rest, err := c.consumeLine()
		if err != nil {
			return err
		}
		body = append([]Token{value}, rest...)
	}

	if _, exists := p.macros[name.Text]; exists {
		return errorAt(name, "redefinition of macro %q", name.Text)
	}
	p.macros[name.Text] = &Macro{Name: name, Params: params, Body: body}
	return nil
}

// CheckCircularDefinitions walks every macro body for references back into
// the macro table. This must pass before any expansion: expansion
// recursion alone cannot safely detect infinite self-reference.
func (p *Preprocessor) CheckCircularDefinitions() error {
	names := make([]string, 0, len(p.macros))
	for name := range p.macros {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		visited := map[string]bool{name: true}
		if err := p.checkCircular(p.macros[name].Body, visited, []string{name}); err != nil {
			return err
		}
	}
	return nil
}

func (p *Preprocessor) checkCircular(body []Token, visited map[string]bool, chain []string) error {
	for _, t := range body {
		if t.Kind != IDENT {
			continue
		}
		ref, ok := p.macros[t.Text]
		if !ok {
			continue
		}
		if visited[t.Text] {
			return errorAt(t, "circular macro definition: %s",
				strings.Join(append(chain, t.Text), " -> "))
		}

		visited[t.Text] = true
		err := p.checkCircular(ref.Body, visited, append(chain, t.Text))
		delete(visited, t.Text)
		if err != nil {
			return err
		}
	}
	return nil
}

// evalCondition evaluates a preprocessor condition, expanding any macros
// inside it first via a nested run over the shared macro table.
func (p *Preprocessor) evalCondition(expr []Token) (bool, error) {
	expanded, err := p.nested().Run(expr)
	if err != nil {
		return false, err
	}
	value, err := Evaluate(expanded, nil)
	if err != nil {
		return false, err
	}
	return value != 0, nil
}

// Run performs macro expansion and conditional compilation over tokens in
// a single left-to-right pass, emitting the stream the assembler consumes.
func (p *Preprocessor) Run(tokens []Token) ([]Token, error) {
	c := newConsumer(tokens)
	var out []Token

	// Innermost entry says whether code is currently live. The implicit
	// base level is always live. taken tracks whether any branch at the
	// level has been satisfied, so #elif/#else cannot re-open one.
	live := []bool{true}
	taken := []bool{true}
	var owners []Token

	for {
		tok, ok := c.next()
		if !ok {
			break
		}

		dead := !live[len(live)-1]

		if tok.Kind == DIRECTIVE {
			switch tok.Text {
			case "#ifdef", "#ifndef":
				// Under a dead level the condition is pushed as false
				// without even requiring a well-formed operand.
				if dead {
					live = append(live, false)
					taken = append(taken, true)
					owners = append(owners, tok)
					continue
				}
				name, err := c.expect(IDENT, "macro name")
				if err != nil {
					return nil, err
				}
				if _, err := c.consumeLine(); err != nil {
					return nil, err
				}
				_, defined := p.macros[name.Text]
				cond := defined == (tok.Text == "#ifdef")
				live = append(live, cond)
				taken = append(taken, cond)
				owners = append(owners, tok)
				continue

			case "#if":
				if dead {
					live = append(live, false)
					taken = append(taken, true)
					owners = append(owners, tok)
					continue
				}
				expr, err := c.consumeLine()
				if err != nil {
					return nil, err
				}
				if len(expr) == 0 {
					return nil, errorAt(tok, "expected expression")
				}
				cond, err := p.evalCondition(expr)
				if err != nil {
					return nil, err
				}
				live = append(live, cond)
				taken = append(taken, cond)
				owners = append(owners, tok)
				continue

			case "#else":
				if len(live) <= 1 {
					return nil, errorAt(tok, "#else without an open conditional")
				}
				// A dead parent keeps the whole level dead.
				if !live[len(live)-2] {
					continue
				}
				owners[len(owners)-1] = tok
				cond := !taken[len(taken)-1]
				live[len(live)-1] = cond
				if cond {
					taken[len(taken)-1] = true
				}
				continue

			case "#elif":
				if len(live) <= 1 {
					return nil, errorAt(tok, "#elif without an open conditional")
				}
				if !live[len(live)-2] {
					continue
				}
				owners[len(owners)-1] = tok
				if taken[len(taken)-1] {
					// An earlier branch already ran; the expression is
					// skipped, not evaluated.
					live[len(live)-1] = false
					if _, err := c.consumeLine(); err != nil {
						return nil, err
					}
					continue
				}
				expr, err := c.consumeLine()
				if err != nil {
					return nil, err
				}
				if len(expr) == 0 {
					return nil, errorAt(tok, "expected expression")
				}
				cond, err := p.evalCondition(expr)
				if err != nil {
					return nil, err
				}
				live[len(live)-1] = cond
				if cond {
					taken[len(taken)-1] = true
				}
				continue

			case "#endif":
				if len(live) <= 1 {
					return nil, errorAt(tok, "#endif without an open conditional")
				}
				if _, err := c.consumeLine(); err != nil {
					return nil, err
				}
				live = live[:len(live)-1]
				taken = taken[:len(taken)-1]
				owners = owners[:len(owners)-1]
				continue
			}
		}

		if dead {
			continue
		}

		if tok.Kind == IDENT {
			expanded, err := p.expandMacro(tok, c)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)
			continue
		}
		out = append(out, tok)
	}

	if len(live) > 1 {
		return nil, errorAt(owners[len(owners)-1], "unclosed preprocessor conditional")
	}
	return out, nil
}

// expandMacro substitutes one identifier. Non-macro identifiers pass
// through unchanged; function-like macros consume their argument list from
// the surrounding stream. The substituted body is re-run so macros
// invoking macros resolve fully, bounded by the circular-definition check
// and the expansion depth limit.
func (p *Preprocessor) expandMacro(name Token, c *tokenConsumer) ([]Token, error) {
	macro, ok := p.macros[name.Text]
	if !ok {
		return []Token{name}, nil
	}

	var args [][]Token
	if macro.functionLike() {
		if _, err := c.expect(LPAREN, "'('"); err != nil {
			return nil, err
		}
		var err error
		args, err = c.consumeList(RPAREN)
		if err != nil {
			return nil, err
		}
	}

	flattened, err := macro.expand(args)
	if err != nil {
		return nil, err
	}

	if p.expandDepth >= maxExpandDepth {
		return nil, errorAt(name, "macro expansion nested deeper than %d levels", maxExpandDepth)
	}
	return p.nested().Run(flattened)
}
