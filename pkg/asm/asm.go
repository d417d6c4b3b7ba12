// Package asm implements a text-to-binary assembler for DSP microcode:
// lexing, macro and conditional preprocessing with recursive includes,
// integer expression evaluation, and a two-pass statement assembler that
// serializes to a flat byte image.
//
// The pipeline is synchronous and single-threaded. Every stateful piece
// (macro table, include stack, conditional stack, symbol table, output
// buffer) belongs to one run; concurrent assemblies each need their own
// Preprocessor and Program.
package asm

import "dspasm/pkg/srcfs"

// AssembleFile runs the full pipeline on the source file at path and
// returns the output image: include resolution, preprocessing, statement
// parsing, and two-pass bytecode generation. fill is the pad byte used
// for .space/.align gaps. A nil fs reads the host filesystem.
func AssembleFile(fs srcfs.FS, path string, fill byte) ([]byte, error) {
	pre := NewPreprocessor(fs)
	tokens, err := pre.Preprocess(path)
	if err != nil {
		return nil, err
	}

	prog, err := Parse(tokens)
	if err != nil {
		return nil, err
	}
	prog.SetFill(fill)
	return prog.GenerateBytecode()
}
