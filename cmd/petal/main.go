package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xyproto/env/v2"
)

var (
	outputFile string
	targetName string
	keepFiles  bool
)

// toolchain holds the assembler and linker invocations for one target.
type toolchain struct {
	Assembler      string
	AssemblerFlags []string
	Linker         string
	LinkerFlags    []string
}

var rootCmd = &cobra.Command{
	Use:   "petal",
	Short: "Petal programming language build system",
	Long:  "A build system for the Petal programming language.",
}

var buildCmd = &cobra.Command{
	Use:   "build <file.pt>",
	Short: "Build a Petal program",
	Long:  "Compile a Petal source file and assemble and link it into an executable.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		tc, err := toolchainFor(targetName)
		if err != nil {
			return err
		}
		return buildProgram(tc, args[0])
	},
}

func init() {
	buildCmd.Flags().BoolVarP(&keepFiles, "keep", "k", false, "Keep intermediate files (.s, .o)")
	buildCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file name")
	buildCmd.Flags().StringVarP(&targetName, "target", "t",
		env.Str("PETAL_TARGET", hostTarget()), "target architecture (x86_64, aarch64, rp2040)")
	rootCmd.AddCommand(buildCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func hostTarget() string {
	if runtime.GOARCH == "arm64" {
		return "aarch64"
	}
	return "x86_64"
}

func toolchainFor(name string) (*toolchain, error) {
	switch name {
	case "x86_64", "aarch64":
		return &toolchain{
			Assembler: "as",
			Linker:    "ld",
		}, nil
	case "rp2040":
		return &toolchain{
			Assembler:      "arm-none-eabi-as",
			AssemblerFlags: []string{"-mcpu=cortex-m0plus", "-mthumb"},
			Linker:         "arm-none-eabi-ld",
		}, nil
	}
	return nil, fmt.Errorf("unknown target: %s", name)
}

// buildProgram compiles one source file to an executable via petalc,
// the assembler and the linker.
func buildProgram(tc *toolchain, sourceFile string) error {
	petalcPath, err := findPetalc()
	if err != nil {
		return err
	}

	binFile := outputFile
	if binFile == "" {
		binFile = strings.TrimSuffix(sourceFile, filepath.Ext(sourceFile))
	}
	baseName := strings.TrimSuffix(filepath.Base(binFile), filepath.Ext(binFile))
	outputDir := filepath.Dir(binFile)
	asmFile := filepath.Join(outputDir, baseName+".s")
	objFile := filepath.Join(outputDir, baseName+".o")

	compileCmd := exec.Command(petalcPath, "-t", targetName, "-o", asmFile, sourceFile)
	if output, err := compileCmd.CombinedOutput(); err != nil {
		fmt.Fprintf(os.Stderr, "compilation failed: %v\n%s", err, output)
		return err
	}

	asArgs := append(tc.AssemblerFlags, "-o", objFile, asmFile)
	asCmd := exec.Command(tc.Assembler, asArgs...)
	if output, err := asCmd.CombinedOutput(); err != nil {
		fmt.Fprintf(os.Stderr, "assembly failed: %v\n%s", err, output)
		return err
	}

	ldArgs := append([]string{"-o", binFile, objFile}, tc.LinkerFlags...)
	ldCmd := exec.Command(tc.Linker, ldArgs...)
	if output, err := ldCmd.CombinedOutput(); err != nil {
		fmt.Fprintf(os.Stderr, "linking failed: %v\n%s", err, output)
		return err
	}

	if !keepFiles {
		os.Remove(asmFile)
		os.Remove(objFile)
	}

	fmt.Printf("Built %s\n", binFile)
	return nil
}

// findPetalc locates the compiler binary: PETALROOT if set, otherwise
// next to the petal executable, otherwise on PATH.
func findPetalc() (string, error) {
	if root := env.Str("PETALROOT"); root != "" {
		return filepath.Join(root, "petalc"), nil
	}
	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), "petalc")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return exec.LookPath("petalc")
}
