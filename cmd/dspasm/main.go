// Command dspasm is the command-line front end for the DSP microcode
// assembler: it runs the preprocessing and assembly pipeline over one
// entry source file and writes the resolved byte image.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"
	"github.com/xyproto/env/v2"

	"dspasm/pkg/asm"
	"dspasm/pkg/srcfs"
)

var (
	outputPath     string
	tokenPath      string
	dumpStatements bool
	backtrace      bool
	fillByte       int
)

var rootCmd = &cobra.Command{
	Use:   "dspasm input.s",
	Short: "DSP microcode assembler",
	Long: `Dspasm assembles DSP microcode source into a flat binary image.

The source may pull in further files with #include "relative/path",
define object-like and function-like macros with #define, and select
code with the #if/#ifdef conditional family. Data is emitted with the
.byte/.half/.word/.quad, .asci/.asciz/.string, .space/.skip, .align and
.org directives. The output is a headerless byte buffer written verbatim
to the output file.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(args[0])
	},
}

func init() {
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", env.Str("DSPASM_OUTPUT", "out.bin"), "output binary file")
	rootCmd.Flags().StringVarP(&tokenPath, "tokens", "t", "", "dump tokens after preprocessing to this file")
	rootCmd.Flags().BoolVarP(&dumpStatements, "dump", "d", false, "pretty-print the parsed statement list")
	rootCmd.Flags().BoolVarP(&backtrace, "backtrace", "b", false, "surface raw internal errors")
	rootCmd.Flags().IntVar(&fillByte, "fill", env.Int("DSPASM_FILL", 0), "fill pattern byte for .space/.align padding")
}

func run(input string) error {
	if fillByte < 0 || fillByte > 0xFF {
		return fmt.Errorf("fill byte out of range: %d", fillByte)
	}

	pre := asm.NewPreprocessor(srcfs.OS{})
	tokens, err := pre.Preprocess(input)
	if err != nil {
		return phaseFailure(input, "Preprocessor Failed", err)
	}

	if tokenPath != "" {
		if err := asm.DumpTokensToFile(tokens, tokenPath); err != nil {
			return err
		}
	}

	prog, err := asm.Parse(tokens)
	if err != nil {
		return phaseFailure(input, "Assembly Failed", err)
	}
	prog.SetFill(byte(fillByte))

	if dumpStatements {
		pp.Println(prog.Statements())
	}

	data, err := prog.GenerateBytecode()
	if err != nil {
		return phaseFailure(input, "Assembly Failed", err)
	}

	return os.WriteFile(outputPath, data, 0o644)
}

// phaseFailure wraps a pipeline error as a one-line diagnostic plus the
// detail, unless --backtrace asked for the raw error. The caller decides
// the exit; main is the only place that calls os.Exit.
func phaseFailure(input, phase string, err error) error {
	if backtrace {
		return err
	}
	return fmt.Errorf("%s: %s\n\t%v", filepath.Base(input), phase, err)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
