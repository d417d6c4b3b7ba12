// Command fixlinks replaces symlinks under a directory tree with copies
// of their targets, for packaging toolchains onto filesystems that do not
// support links. A dangling link only produces a warning.
package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

func main() {
	root := "toolchain"
	if len(os.Args) > 1 {
		root = os.Args[1]
	}

	if err := replaceSymlinks(root); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func replaceSymlinks(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink == 0 {
			return nil
		}

		target, err := os.Readlink(path)
		if err != nil {
			return err
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(path), target)
		}

		info, err := os.Stat(target)
		if err != nil {
			fmt.Printf("warning: symlink target not found: %s -> %s\n", path, target)
			return nil
		}

		fmt.Printf("replacing symlink: %s -> %s\n", path, target)
		data, err := os.ReadFile(target)
		if err != nil {
			return err
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		return os.WriteFile(path, data, info.Mode().Perm())
	})
}
