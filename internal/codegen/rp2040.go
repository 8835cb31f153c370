package codegen

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/petal-lang/petal/internal/ir"
)

// rp2040Emitter targets the Cortex-M0+ Thumb instruction set. The core
// has no divide instruction, so Div and Mod emit comment placeholders.
type rp2040Emitter struct{}

// Two-operand Thumb forms: dest op= right after a move.
var rp2040BinaryMnemonics = map[string]string{
	"and": "ands",
	"or":  "orrs",
	"xor": "eors",
	"shl": "lsls",
	"shr": "lsrs",
}

func (rp2040Emitter) fileHeader(w io.Writer) {
	fmt.Fprintf(w, ".syntax unified\n")
	fmt.Fprintf(w, ".cpu cortex-m0plus\n")
	fmt.Fprintf(w, ".thumb\n")
}

func (rp2040Emitter) prologue(w io.Writer, fc *funcContext) {
	fmt.Fprintf(w, "\n%s %s\n", fc.target.GlobalDirective(), fc.target.FunctionLabel(fc.fn.Name))
	fmt.Fprintf(w, ".thumb_func\n")
	fmt.Fprintf(w, "%s:\n", fc.target.FunctionLabel(fc.fn.Name))
	fmt.Fprintf(w, "    push {r7, lr}\n")
	fmt.Fprintf(w, "    mov r7, sp\n")
	if fc.fn.FrameSize > 0 {
		fmt.Fprintf(w, "    sub sp, #%d\n", fc.fn.FrameSize)
	}
}

func (rp2040Emitter) epilogue(w io.Writer, fc *funcContext) {
	fmt.Fprintf(w, "%s:\n", exitLabel(fc.fn.Name))
	fmt.Fprintf(w, "    mov sp, r7\n")
	fmt.Fprintf(w, "    pop {r7, pc}\n")
}

func (rp2040Emitter) instruction(w io.Writer, fc *funcContext, instr ir.Instruction) {
	switch op := instr.(type) {
	case ir.BinaryOp:
		rp2040Binary(w, fc, op)
	case ir.UnaryOp:
		dest := fc.operand(op.Dest)
		fmt.Fprintf(w, "    movs %s, %s\n", dest, fc.operand(op.Value))
		fmt.Fprintf(w, "    movs r4, #1\n")
		fmt.Fprintf(w, "    eors %s, r4\n", dest)
	case ir.LoadConstant:
		rp2040Constant(w, fc, op)
	case ir.Assign:
		fmt.Fprintf(w, "    mov %s, %s\n", fc.operand(op.Dest), fc.operand(op.Src))
	case ir.Load:
		fmt.Fprintf(w, "    ldr %s, %s\n", fc.operand(op.Dest), fc.operand(op.Var))
	case ir.Store:
		fmt.Fprintf(w, "    str %s, %s\n", fc.operand(op.Src), fc.operand(op.Var))
	case ir.AllocStack:
		fmt.Fprintf(w, "    # alloc %s: %d bytes at %s\n", op.Var, op.Size, fc.operand(op.Var))
	case ir.Call:
		for i, arg := range op.Args {
			fmt.Fprintf(w, "    mov %s, %s\n", fc.argRegister(i), fc.operand(arg))
		}
		fmt.Fprintf(w, "    bl %s\n", fc.target.FunctionLabel(op.Function))
		if op.Dest != "" {
			fmt.Fprintf(w, "    mov %s, r0\n", fc.operand(op.Dest))
		}
	case ir.Branch:
		fmt.Fprintf(w, "    cmp %s, #0\n", fc.operand(op.Cond))
		fmt.Fprintf(w, "    bne %s\n", op.TrueLabel)
		fmt.Fprintf(w, "    b %s\n", op.FalseLabel)
	case ir.Jump:
		fmt.Fprintf(w, "    b %s\n", op.Label)
	case ir.Label:
		fmt.Fprintf(w, "%s:\n", op.Name)
	case ir.Return:
		if op.Value != "" {
			fmt.Fprintf(w, "    mov r0, %s\n", fc.operand(op.Value))
		}
		fmt.Fprintf(w, "    b %s\n", exitLabel(fc.fn.Name))
	default:
		fmt.Fprintf(w, "    # unimplemented: %s\n", instr)
	}
}

func rp2040Binary(w io.Writer, fc *funcContext, op ir.BinaryOp) {
	dest := fc.operand(op.Dest)
	left := fc.operand(op.Left)
	right := fc.operand(op.Right)
	switch op.Op {
	case "add":
		fmt.Fprintf(w, "    adds %s, %s, %s\n", dest, left, right)
	case "sub":
		fmt.Fprintf(w, "    subs %s, %s, %s\n", dest, left, right)
	case "mul":
		fmt.Fprintf(w, "    movs %s, %s\n", dest, left)
		fmt.Fprintf(w, "    muls %s, %s, %s\n", dest, right, dest)
	case "div", "mod":
		fmt.Fprintf(w, "    # no hardware divide: %s %s, %s, %s\n", op.Op, dest, left, right)
	default:
		mnemonic, ok := rp2040BinaryMnemonics[op.Op]
		if !ok {
			fmt.Fprintf(w, "    # unimplemented: %s\n", op)
			return
		}
		fmt.Fprintf(w, "    movs %s, %s\n", dest, left)
		fmt.Fprintf(w, "    %s %s, %s\n", mnemonic, dest, right)
	}
}

func rp2040Constant(w io.Writer, fc *funcContext, op ir.LoadConstant) {
	dest := fc.operand(op.Dest)
	if strings.HasPrefix(op.Value, ".L") {
		fmt.Fprintf(w, "    ldr %s, =%s\n", dest, op.Value)
		return
	}
	value, err := strconv.ParseInt(op.Value, 10, 64)
	if err != nil {
		fmt.Fprintf(w, "    # unimplemented constant: %s\n", op)
		return
	}
	// movs takes an 8-bit immediate; anything else comes from the
	// literal pool.
	if value >= 0 && value < 256 {
		fmt.Fprintf(w, "    movs %s, #%d\n", dest, value)
		return
	}
	fmt.Fprintf(w, "    ldr %s, =%d\n", dest, value)
}
