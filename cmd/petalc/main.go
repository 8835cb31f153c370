package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/xyproto/env/v2"

	"github.com/petal-lang/petal/internal/codegen"
	"github.com/petal-lang/petal/internal/ir"
	"github.com/petal-lang/petal/internal/lexer"
	"github.com/petal-lang/petal/internal/parser"
	"github.com/petal-lang/petal/internal/regalloc"
	"github.com/petal-lang/petal/internal/semantic"
	"github.com/petal-lang/petal/internal/target"
)

var (
	outputFile string
	targetName string
	debug      bool
	linearScan bool
)

func hostTarget() string {
	switch runtime.GOARCH {
	case "arm64":
		return "aarch64"
	default:
		return "x86_64"
	}
}

var rootCmd = &cobra.Command{
	Use:   "petalc <file.pt>",
	Short: "Petal language compiler",
	Long:  "Compiles a Petal source file to AT&T-syntax assembly.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return compileFile(args[0])
	},
}

func init() {
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "a.out", "output file name, - for stdout")
	rootCmd.Flags().StringVarP(&targetName, "target", "t",
		env.Str("PETAL_TARGET", hostTarget()), "target architecture (x86_64, aarch64, rp2040)")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "dump tokens, AST and IR to stderr")
	rootCmd.Flags().BoolVar(&linearScan, "linear-scan", false, "free registers after a temporary's last use")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func compileFile(path string) error {
	tgt, err := target.FromName(targetName)
	if err != nil {
		return err
	}

	inputFile, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening input file: %w", err)
	}
	defer inputFile.Close()

	tokens, err := lexer.Tokenize(inputFile)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if debug {
		fmt.Fprintln(os.Stderr, "# tokens")
		for _, tok := range tokens {
			fmt.Fprintf(os.Stderr, "%s\n", tok)
		}
	}

	p := parser.New(path, tokens)
	program := p.ParseProgram()
	// Failing top-level items were skipped; report them all before
	// deciding whether to go on.
	for _, parseErr := range p.Errors() {
		fmt.Fprintln(os.Stderr, parseErr)
	}
	if len(p.Errors()) > 0 {
		return fmt.Errorf("%s: %d syntax errors", path, len(p.Errors()))
	}
	if debug {
		fmt.Fprintln(os.Stderr, "# ast")
		fmt.Fprintln(os.Stderr, program.String())
	}

	if err := semantic.Analyze(program); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	module, err := ir.Generate(program, tgt)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if debug {
		fmt.Fprintln(os.Stderr, "# ir")
		module.Print(os.Stderr)
	}

	mode := regalloc.NoLiveness
	if linearScan {
		mode = regalloc.LinearScan
	}
	allocs, err := regalloc.New(tgt, mode).AllocateModule(module)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	var output io.Writer
	if outputFile == "-" {
		output = os.Stdout
	} else {
		outFile, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("error creating output file: %w", err)
		}
		defer func() {
			if err := outFile.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to close output file: %v\n", err)
			}
		}()
		output = outFile
	}

	return codegen.Generate(output, module, tgt, allocs)
}
