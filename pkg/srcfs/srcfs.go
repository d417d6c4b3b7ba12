// Package srcfs abstracts source-file access so the assembler can read
// includes from the real filesystem or from memory in tests.
package srcfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

var ErrNotFound = errors.New("source file not found")

// FS is what the preprocessor needs from a file source.
type FS interface {
	// ReadFile returns the contents of the file at path.
	ReadFile(path string) ([]byte, error)

	// Canonical returns the identity used for include-cycle detection.
	// Two paths naming the same file must canonicalize equally.
	Canonical(path string) (string, error)
}

// OS reads from the host filesystem.
type OS struct{}

func (OS) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return data, err
}

// Canonical resolves symlinks and makes the path absolute. A path that does
// not exist yet canonicalizes textually; ReadFile will report it missing.
func (OS) Canonical(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		resolved = path
	}
	return filepath.Abs(resolved)
}

// Mem is an in-memory FS keyed by cleaned paths.
type Mem map[string]string

func (m Mem) ReadFile(path string) ([]byte, error) {
	text, ok := m[filepath.Clean(path)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return []byte(text), nil
}

func (m Mem) Canonical(path string) (string, error) {
	return filepath.Clean(path), nil
}
