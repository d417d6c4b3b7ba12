package asm

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"dspasm/pkg/srcfs"
)

func TestAssembleFile(t *testing.T) {
	fs := srcfs.Mem{
		"main.s": "#include \"defs.s\"\n" +
			"\n" +
			"start:\n" +
			".half start\n" +
			".byte 1, 2, 3\n" +
			"#ifdef DEBUG\n" +
			".byte 0xFF\n" +
			"#endif\n" +
			".byte COUNT+2\n" +
			".align 4\n" +
			"tail:\n" +
			".word tail\n",
		"defs.s": "#define COUNT 3\n",
	}

	got, err := AssembleFile(fs, "main.s", 0)
	if err != nil {
		t.Fatalf("AssembleFile() error = %v", err)
	}
	want := []byte{
		0x00, 0x00, // start, back reference
		0x01, 0x02, 0x03, // byte list
		0x05,       // COUNT+2
		0x00, 0x00, // alignment padding
		0x00, 0x00, 0x00, 0x08, // tail, defined at the padded boundary
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AssembleFile() = % X, want % X", got, want)
	}
}

func TestAssembleFileFill(t *testing.T) {
	fs := srcfs.Mem{
		"main.s": ".byte 1\n.align 4\n.byte 2\n",
	}
	got, err := AssembleFile(fs, "main.s", 0xEE)
	if err != nil {
		t.Fatalf("AssembleFile() error = %v", err)
	}
	want := []byte{1, 0xEE, 0xEE, 0xEE, 2}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AssembleFile() = % X, want % X", got, want)
	}
}

func TestAssembleFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		files   srcfs.Mem
		wantErr string
	}{
		{
			name:    "Missing Include",
			files:   srcfs.Mem{"main.s": "#include \"gone.s\"\n"},
			wantErr: "not found",
		},
		{
			name:    "Preprocessor Error Surfaces",
			files:   srcfs.Mem{"main.s": "#ifdef X\n"},
			wantErr: "unclosed preprocessor conditional",
		},
		{
			name:    "Parse Error Surfaces",
			files:   srcfs.Mem{"main.s": ".bogus 1\n"},
			wantErr: "unknown directive",
		},
		{
			name:    "Generation Error Surfaces",
			files:   srcfs.Mem{"main.s": ".byte 300\n"},
			wantErr: "does not fit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AssembleFile(tt.files, "main.s", 0)
			if err == nil {
				t.Fatalf("AssembleFile() succeeded, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("AssembleFile() error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestAssembleFileMissingSource(t *testing.T) {
	_, err := AssembleFile(srcfs.Mem{}, "main.s", 0)
	if !errors.Is(err, srcfs.ErrNotFound) {
		t.Errorf("AssembleFile() error = %v, want srcfs.ErrNotFound", err)
	}
}
