// Package codegen turns an allocated IR module into AT&T assembly text.
package codegen

import (
	"fmt"
	"io"

	"github.com/petal-lang/petal/internal/ir"
	"github.com/petal-lang/petal/internal/regalloc"
	"github.com/petal-lang/petal/internal/target"
	"github.com/petal-lang/petal/internal/util"
)

// Allocations maps function names to the temporary placements computed
// by the register allocator.
type Allocations map[string]map[string]regalloc.Allocation

// emitter is one target's instruction templates. Opcodes a target
// cannot lower are emitted as # comment lines.
type emitter interface {
	fileHeader(w io.Writer)
	prologue(w io.Writer, fc *funcContext)
	instruction(w io.Writer, fc *funcContext, instr ir.Instruction)
	epilogue(w io.Writer, fc *funcContext)
}

func Generate(output io.Writer, module *ir.Module, tgt *target.Target, allocs Allocations) error {
	var e emitter
	switch tgt.Name {
	case "x86_64":
		e = x86Emitter{}
	case "aarch64":
		e = aarch64Emitter{}
	case "rp2040":
		e = rp2040Emitter{}
	default:
		return fmt.Errorf("no code generator for target %s", tgt.Name)
	}

	e.fileHeader(output)
	fmt.Fprintf(output, ".text\n")

	for i := range module.Functions {
		fn := &module.Functions[i]
		fc := &funcContext{target: tgt, fn: fn, allocs: allocs[fn.Name]}
		e.prologue(output, fc)
		for _, instr := range fn.Instructions {
			e.instruction(output, fc, instr)
		}
		e.epilogue(output, fc)
	}

	writeGlobals(output, module.Globals)
	return nil
}

func writeGlobals(w io.Writer, globals []ir.Global) {
	if len(globals) == 0 {
		return
	}
	fmt.Fprintf(w, "\n.section .rodata\n")
	for _, g := range globals {
		fmt.Fprintf(w, "%s: .asciz \"%s\"\n", g.Label, util.EscapeString(g.Value))
	}
}

// funcContext resolves symbolic IR operands into target syntax for one
// function.
type funcContext struct {
	target *target.Target
	fn     *ir.Function
	allocs map[string]regalloc.Allocation
}

// operand maps a temporary to its allocation and a variable to its
// frame slot. Anything else, register names included, passes through.
func (fc *funcContext) operand(x string) string {
	if ir.IsTemp(x) {
		if alloc, ok := fc.allocs[x]; ok {
			return alloc.Operand(fc.target)
		}
		return x
	}
	if offset, ok := fc.fn.Offsets[x]; ok {
		return fc.target.MemoryOperand(offset)
	}
	return x
}

func (fc *funcContext) argRegister(i int) string {
	reg, err := fc.target.ArgRegister(i)
	if err != nil {
		// Lowering already rejected functions with too many arguments.
		panic(err)
	}
	return reg
}

func exitLabel(name string) string {
	return fmt.Sprintf(".L%s_exit", name)
}
