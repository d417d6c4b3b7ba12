package asm

import (
	"bytes"
	"fmt"
)

// Statement is one assembled unit: a label or a directive. Length must be
// computable before final bytes are known so the address-assignment pass
// can run ahead of serialization.
type Statement interface {
	// Length returns the number of bytes the statement occupies when the
	// location counter is pc.
	Length(pc int) int

	// Serialize produces the statement's bytes with the location counter
	// at pc. Symbol references are resolved here, after the first pass
	// has populated the symbol table.
	Serialize(pc int) ([]byte, error)

	// Pos returns the defining source token, for diagnostics.
	Pos() Token
}

// Label marks an address. It occupies no space and records its name into
// the symbol table during address assignment.
type Label struct {
	name string
	tok  Token
}

func (*Label) Length(int) int { return 0 }

func (*Label) Serialize(int) ([]byte, error) { return nil, nil }

func (l *Label) Pos() Token { return l.tok }

// DataStatement emits a comma-separated list of fixed-width big-endian
// values. Range checking happens at serialization time, once symbols are
// known.
type DataStatement struct {
	prog   *Program
	tok    Token
	width  int
	values [][]Token
}

func (d *DataStatement) Length(int) int { return len(d.values) * d.width }

func (d *DataStatement) Pos() Token { return d.tok }

func (d *DataStatement) Serialize(int) ([]byte, error) {
	out := make([]byte, 0, d.Length(0))

	for _, expr := range d.values {
		value, err := d.prog.eval(expr)
		if err != nil {
			return nil, err
		}
		if !fitsWidth(value, d.width) {
			return nil, errorAt(expr[0], "value %d does not fit in %d bytes", value, d.width)
		}
		u := uint64(value)
		for i := d.width - 1; i >= 0; i-- {
			out = append(out, byte(u>>(8*uint(i))))
		}
	}
	return out, nil
}

// fitsWidth accepts both signed and unsigned interpretations of a
// width-byte field: [-2^(8w-1), 2^(8w)-1].
func fitsWidth(v int64, width int) bool {
	if width >= 8 {
		return true
	}
	max := int64(1)<<(8*width) - 1
	min := -(int64(1) << (8*width - 1))
	return v >= min && v <= max
}

// StringStatement emits raw ASCII bytes, optionally NUL-terminated.
type StringStatement struct {
	tok            Token
	text           string
	nullTerminated bool
}

func (s *StringStatement) Pos() Token { return s.tok }

func (s *StringStatement) Length(int) int {
	n := len(s.text)
	if s.nullTerminated {
		n++
	}
	return n
}

func (s *StringStatement) Serialize(int) ([]byte, error) {
	data := []byte(s.text)
	if s.nullTerminated {
		data = append(data, 0)
	}
	return data, nil
}

// SpaceStatement reserves size bytes of fill pattern.
type SpaceStatement struct {
	prog *Program
	tok  Token
	size int
}

func (s *SpaceStatement) Length(int) int { return s.size }

func (s *SpaceStatement) Pos() Token { return s.tok }

func (s *SpaceStatement) Serialize(int) ([]byte, error) {
	return bytes.Repeat([]byte{s.prog.fill}, s.size), nil
}

// AlignStatement pads to the next multiple of its alignment relative to
// the current location counter.
type AlignStatement struct {
	prog      *Program
	tok       Token
	alignment int
}

func (a *AlignStatement) Pos() Token { return a.tok }

func (a *AlignStatement) Length(pc int) int {
	return (a.alignment - pc%a.alignment) % a.alignment
}

func (a *AlignStatement) Serialize(pc int) ([]byte, error) {
	return bytes.Repeat([]byte{a.prog.fill}, a.Length(pc)), nil
}

// OrgStatement redirects the location counter to an absolute address. It
// contributes no bytes itself.
type OrgStatement struct {
	tok     Token
	address int
}

func (*OrgStatement) Length(int) int { return 0 }

func (*OrgStatement) Serialize(int) ([]byte, error) { return nil, nil }

func (o *OrgStatement) Pos() Token { return o.tok }

// Program owns the ordered statement list, the symbol table, and the
// output image being built. One Program per assembly run; it is not safe
// for concurrent use.
type Program struct {
	statements []Statement
	symbols    map[string]int64

	fill byte // pad byte for .space/.align and buffer gaps

	data    []byte
	written []bool
}

func NewProgram() *Program {
	return &Program{symbols: make(map[string]int64)}
}

// SetFill configures the fill pattern byte.
func (p *Program) SetFill(b byte) { p.fill = b }

// Push appends a statement in source order.
func (p *Program) Push(s Statement) { p.statements = append(p.statements, s) }

// Statements exposes the parsed statement list for diagnostics.
func (p *Program) Statements() []Statement { return p.statements }

// Symbol looks up a resolved label address.
func (p *Program) Symbol(name string) (int64, bool) {
	v, ok := p.symbols[name]
	return v, ok
}

// eval evaluates an operand expression with labels resolved through the
// symbol table.
func (p *Program) eval(expr []Token) (int64, error) {
	return Evaluate(expr, p.Symbol)
}

// assignAddresses walks the statements once, giving every label its final
// location. Labels must be unique.
func (p *Program) assignAddresses() error {
	p.symbols = make(map[string]int64)

	pc := 0
	for _, stmt := range p.statements {
		switch s := stmt.(type) {
		case *Label:
			if _, exists := p.symbols[s.name]; exists {
				return errorAt(s.tok, "duplicate label %q", s.name)
			}
			p.symbols[s.name] = int64(pc)
		case *OrgStatement:
			pc = s.address
		default:
			pc += stmt.Length(pc)
		}
	}
	return nil
}

// write copies data into the image at addr, growing the buffer and the
// written bitmap on demand. Writing into an already-written cell is a
// fatal overlap, reported with the colliding statement's position.
func (p *Program) write(at Token, addr int, data []byte) error {
	end := addr + len(data)

	if end > len(p.data) {
		grow := end - len(p.data)
		p.data = append(p.data, bytes.Repeat([]byte{p.fill}, grow)...)
		p.written = append(p.written, make([]bool, grow)...)
	}

	for i := addr; i < end; i++ {
		if p.written[i] {
			return fmt.Errorf("%w at address 0x%X (%s:%d:%d)",
				ErrOverlap, i, at.File, at.Line, at.Col)
		}
	}
	for i := addr; i < end; i++ {
		p.written[i] = true
	}
	copy(p.data[addr:end], data)
	return nil
}

// GenerateBytecode lays the statements out and serializes them into the
// output image. It is idempotent: internal byte and bitmap state is reset
// first, so a second call reproduces the same buffer.
func (p *Program) GenerateBytecode() ([]byte, error) {
	p.data = nil
	p.written = nil

	if err := p.assignAddresses(); err != nil {
		return nil, err
	}

	pc := 0
	for _, stmt := range p.statements {
		if org, ok := stmt.(*OrgStatement); ok {
			pc = org.address
		}

		data, err := stmt.Serialize(pc)
		if err != nil {
			return nil, err
		}
		if err := p.write(stmt.Pos(), pc, data); err != nil {
			return nil, err
		}
		pc += stmt.Length(pc)
	}
	return p.data, nil
}
