package asm

import (
	"errors"
	"fmt"
)

// ErrOverlap reports two statements serializing into the same byte range.
var ErrOverlap = errors.New("memory overlap")

// Error is a positioned assembly error. Every failure in the pipeline
// points back at the token that caused it.
type Error struct {
	Msg  string
	File string
	Line int
	Col  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at %s:%d:%d", e.Msg, e.File, e.Line, e.Col)
}

// errorAt builds an Error positioned at the offending token.
func errorAt(tok Token, format string, args ...any) *Error {
	return &Error{
		Msg:  fmt.Sprintf(format, args...),
		File: tok.File,
		Line: tok.Line,
		Col:  tok.Col,
	}
}
