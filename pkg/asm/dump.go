package asm

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// DumpTokens renders tokens one line per source line, in the form
//
//	file:line\t| (KIND[=value] col=N) (KIND[=value] col=N) ...
//
// It is purely diagnostic; nothing in the pipeline consumes the output.
func DumpTokens(w io.Writer, tokens []Token) error {
	bw := bufio.NewWriter(w)

	curFile := ""
	curLine := 0
	first := true

	for _, tok := range tokens {
		if tok.File != curFile || tok.Line != curLine {
			if !first {
				bw.WriteByte('\n')
			}
			first = false
			curFile = tok.File
			curLine = tok.Line
			fmt.Fprintf(bw, "%s:%d\t| ", tok.File, tok.Line)
		}

		switch {
		case tok.Kind == INT:
			fmt.Fprintf(bw, "(%s=%d col=%d) ", tok.Kind, tok.Int, tok.Col)
		case tok.Text != "":
			fmt.Fprintf(bw, "(%s=%s col=%d) ", tok.Kind, tok.Text, tok.Col)
		default:
			fmt.Fprintf(bw, "(%s col=%d) ", tok.Kind, tok.Col)
		}
	}

	return bw.Flush()
}

// DumpTokensToFile writes the token dump to path.
func DumpTokensToFile(tokens []Token, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := DumpTokens(f, tokens); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
