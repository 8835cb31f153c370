package codegen

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/petal-lang/petal/internal/ir"
	"github.com/petal-lang/petal/internal/util"
)

type aarch64Emitter struct{}

// Pool registers widened for address computations.
var aarch64Wide = map[string]string{
	"w0": "x0", "w1": "x1", "w2": "x2",
	"w3": "x3", "w4": "x4", "w5": "x5",
}

// 64-bit argument registers narrowed for 32-bit stores and moves.
var aarch64Narrow = map[string]string{
	"x0": "w0", "x1": "w1", "x2": "w2", "x3": "w3",
	"x4": "w4", "x5": "w5", "x6": "w6", "x7": "w7",
}

var aarch64BinaryMnemonics = map[string]string{
	"add": "add",
	"sub": "sub",
	"mul": "mul",
	"and": "and",
	"or":  "orr",
	"xor": "eor",
	"shl": "lsl",
	"shr": "lsr",
}

func (aarch64Emitter) fileHeader(io.Writer) {}

func (aarch64Emitter) prologue(w io.Writer, fc *funcContext) {
	fmt.Fprintf(w, "\n%s %s\n", fc.target.GlobalDirective(), fc.target.FunctionLabel(fc.fn.Name))
	fmt.Fprintf(w, ".p2align 2\n")
	fmt.Fprintf(w, "%s:\n", fc.target.FunctionLabel(fc.fn.Name))
	fmt.Fprintf(w, "    stp x29, x30, [sp, #-16]!\n")
	fmt.Fprintf(w, "    mov x29, sp\n")
	if fc.fn.FrameSize > 0 {
		fmt.Fprintf(w, "    sub sp, sp, #%d\n", fc.fn.FrameSize)
	}
}

func (aarch64Emitter) epilogue(w io.Writer, fc *funcContext) {
	fmt.Fprintf(w, "%s:\n", exitLabel(fc.fn.Name))
	fmt.Fprintf(w, "    mov sp, x29\n")
	fmt.Fprintf(w, "    ldp x29, x30, [sp], #16\n")
	fmt.Fprintf(w, "    ret\n")
}

func (aarch64Emitter) instruction(w io.Writer, fc *funcContext, instr ir.Instruction) {
	switch op := instr.(type) {
	case ir.BinaryOp:
		aarch64Binary(w, fc, op)
	case ir.UnaryOp:
		fmt.Fprintf(w, "    eor %s, %s, #1\n", fc.operand(op.Dest), fc.operand(op.Value))
	case ir.LoadConstant:
		aarch64Constant(w, fc, op)
	case ir.Assign:
		fmt.Fprintf(w, "    mov %s, %s\n", fc.operand(op.Dest), fc.operand(op.Src))
	case ir.Load:
		fmt.Fprintf(w, "    ldr %s, %s\n", fc.operand(op.Dest), fc.operand(op.Var))
	case ir.Store:
		src := fc.operand(op.Src)
		if narrow, ok := aarch64Narrow[src]; ok {
			src = narrow
		}
		fmt.Fprintf(w, "    str %s, %s\n", src, fc.operand(op.Var))
	case ir.AllocStack:
		fmt.Fprintf(w, "    # alloc %s: %d bytes at %s\n", op.Var, op.Size, fc.operand(op.Var))
	case ir.Call:
		for i, arg := range op.Args {
			fmt.Fprintf(w, "    mov %s, %s\n", aarch64Narrow[fc.argRegister(i)], fc.operand(arg))
		}
		fmt.Fprintf(w, "    bl %s\n", fc.target.FunctionLabel(op.Function))
		if op.Dest != "" {
			fmt.Fprintf(w, "    mov %s, w0\n", fc.operand(op.Dest))
		}
	case ir.Branch:
		fmt.Fprintf(w, "    cmp %s, #0\n", fc.operand(op.Cond))
		fmt.Fprintf(w, "    b.ne %s\n", op.TrueLabel)
		fmt.Fprintf(w, "    b %s\n", op.FalseLabel)
	case ir.Jump:
		fmt.Fprintf(w, "    b %s\n", op.Label)
	case ir.Label:
		fmt.Fprintf(w, "%s:\n", op.Name)
	case ir.Return:
		if op.Value != "" {
			fmt.Fprintf(w, "    mov w0, %s\n", fc.operand(op.Value))
		}
		fmt.Fprintf(w, "    b %s\n", exitLabel(fc.fn.Name))
	default:
		fmt.Fprintf(w, "    # unimplemented: %s\n", instr)
	}
}

func aarch64Binary(w io.Writer, fc *funcContext, op ir.BinaryOp) {
	dest := fc.operand(op.Dest)
	left := fc.operand(op.Left)
	right := fc.operand(op.Right)
	switch op.Op {
	case "div":
		fmt.Fprintf(w, "    sdiv %s, %s, %s\n", dest, left, right)
	case "mod":
		// remainder = left - (left / right) * right
		fmt.Fprintf(w, "    sdiv w9, %s, %s\n", left, right)
		fmt.Fprintf(w, "    msub %s, w9, %s, %s\n", dest, right, left)
	default:
		mnemonic, ok := aarch64BinaryMnemonics[op.Op]
		if !ok {
			fmt.Fprintf(w, "    # unimplemented: %s\n", op)
			return
		}
		fmt.Fprintf(w, "    %s %s, %s, %s\n", mnemonic, dest, left, right)
	}
}

func aarch64Constant(w io.Writer, fc *funcContext, op ir.LoadConstant) {
	dest := fc.operand(op.Dest)
	if strings.HasPrefix(op.Value, ".L") {
		// Label constants are addresses and need a 64-bit destination.
		wide, ok := aarch64Wide[dest]
		if !ok {
			wide = "x9"
		}
		fmt.Fprintf(w, "    adrp %s, %s\n", wide, op.Value)
		fmt.Fprintf(w, "    add %s, %s, :lo12:%s\n", wide, wide, op.Value)
		if !ok {
			fmt.Fprintf(w, "    str x9, %s\n", dest)
		}
		return
	}
	value, err := strconv.ParseInt(op.Value, 10, 64)
	if err != nil {
		fmt.Fprintf(w, "    # unimplemented constant: %s\n", op)
		return
	}
	if value >= 0 && value < 1<<16 {
		fmt.Fprintf(w, "    mov %s, #%d\n", dest, value)
		return
	}
	// mov only takes a 16-bit immediate; larger values build up in
	// 16-bit slices.
	fmt.Fprintf(w, "    mov %s, %s\n", dest, util.Slice16bits(value, 0))
	fmt.Fprintf(w, "    movk %s, %s, lsl #16\n", dest, util.Slice16bits(value, 16))
}
