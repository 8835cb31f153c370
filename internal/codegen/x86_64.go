package codegen

import (
	"fmt"
	"io"
	"strings"

	"github.com/petal-lang/petal/internal/ir"
)

type x86Emitter struct{}

// 32-bit pool registers widened for address loads and pushes.
var x86Wide = map[string]string{
	"%eax": "%rax", "%ebx": "%rbx", "%ecx": "%rcx",
	"%edx": "%rdx", "%esi": "%rsi", "%edi": "%rdi",
}

// 64-bit argument registers narrowed for 32-bit stores.
var x86Narrow = map[string]string{
	"%rdi": "%edi", "%rsi": "%esi", "%rdx": "%edx",
	"%rcx": "%ecx", "%r8": "%r8d", "%r9": "%r9d",
}

var x86BinaryMnemonics = map[string]string{
	"add": "addl",
	"sub": "subl",
	"mul": "imull",
	"and": "andl",
	"or":  "orl",
	"xor": "xorl",
}

func (x86Emitter) fileHeader(io.Writer) {}

func (x86Emitter) prologue(w io.Writer, fc *funcContext) {
	fmt.Fprintf(w, "\n%s %s\n", fc.target.GlobalDirective(), fc.target.FunctionLabel(fc.fn.Name))
	fmt.Fprintf(w, "%s:\n", fc.target.FunctionLabel(fc.fn.Name))
	fmt.Fprintf(w, "    pushq %%rbp\n")
	fmt.Fprintf(w, "    movq %%rsp, %%rbp\n")
	if fc.fn.FrameSize > 0 {
		fmt.Fprintf(w, "    subq $%d, %%rsp\n", fc.fn.FrameSize)
	}
}

func (x86Emitter) epilogue(w io.Writer, fc *funcContext) {
	fmt.Fprintf(w, "%s:\n", exitLabel(fc.fn.Name))
	fmt.Fprintf(w, "    movq %%rbp, %%rsp\n")
	fmt.Fprintf(w, "    popq %%rbp\n")
	fmt.Fprintf(w, "    ret\n")
}

func (x86Emitter) instruction(w io.Writer, fc *funcContext, instr ir.Instruction) {
	switch op := instr.(type) {
	case ir.BinaryOp:
		x86Binary(w, fc, op)
	case ir.UnaryOp:
		dest := fc.operand(op.Dest)
		fmt.Fprintf(w, "    movl %s, %s\n", fc.operand(op.Value), dest)
		fmt.Fprintf(w, "    xorl $1, %s\n", dest)
	case ir.LoadConstant:
		x86Constant(w, fc, op)
	case ir.Assign:
		fmt.Fprintf(w, "    movl %s, %s\n", fc.operand(op.Src), fc.operand(op.Dest))
	case ir.Load:
		fmt.Fprintf(w, "    movl %s, %s\n", fc.operand(op.Var), fc.operand(op.Dest))
	case ir.Store:
		src := fc.operand(op.Src)
		if narrow, ok := x86Narrow[src]; ok {
			src = narrow
		}
		fmt.Fprintf(w, "    movl %s, %s\n", src, fc.operand(op.Var))
	case ir.AllocStack:
		fmt.Fprintf(w, "    # alloc %s: %d bytes at %s\n", op.Var, op.Size, fc.operand(op.Var))
	case ir.Call:
		x86Call(w, fc, op)
	case ir.Branch:
		fmt.Fprintf(w, "    cmpl $0, %s\n", fc.operand(op.Cond))
		fmt.Fprintf(w, "    jne %s\n", op.TrueLabel)
		fmt.Fprintf(w, "    jmp %s\n", op.FalseLabel)
	case ir.Jump:
		fmt.Fprintf(w, "    jmp %s\n", op.Label)
	case ir.Label:
		fmt.Fprintf(w, "%s:\n", op.Name)
	case ir.Return:
		if op.Value != "" {
			fmt.Fprintf(w, "    movl %s, %%eax\n", fc.operand(op.Value))
		}
		fmt.Fprintf(w, "    jmp %s\n", exitLabel(fc.fn.Name))
	default:
		fmt.Fprintf(w, "    # unimplemented: %s\n", instr)
	}
}

func x86Binary(w io.Writer, fc *funcContext, op ir.BinaryOp) {
	dest := fc.operand(op.Dest)
	left := fc.operand(op.Left)
	right := fc.operand(op.Right)
	switch op.Op {
	case "div", "mod":
		// The dividend goes through the accumulator; the quotient comes
		// back in %eax, the remainder in %edx.
		result := "%eax"
		if op.Op == "mod" {
			result = "%edx"
		}
		fmt.Fprintf(w, "    movl %s, %%eax\n", left)
		fmt.Fprintf(w, "    cltd\n")
		fmt.Fprintf(w, "    idivl %s\n", right)
		fmt.Fprintf(w, "    movl %s, %s\n", result, dest)
	case "shl", "shr":
		mnemonic := "shll"
		if op.Op == "shr" {
			mnemonic = "shrl"
		}
		fmt.Fprintf(w, "    movl %s, %s\n", left, dest)
		fmt.Fprintf(w, "    movl %s, %%ecx\n", right)
		fmt.Fprintf(w, "    %s %%cl, %s\n", mnemonic, dest)
	default:
		mnemonic, ok := x86BinaryMnemonics[op.Op]
		if !ok {
			fmt.Fprintf(w, "    # unimplemented: %s\n", op)
			return
		}
		fmt.Fprintf(w, "    movl %s, %s\n", left, dest)
		fmt.Fprintf(w, "    %s %s, %s\n", mnemonic, right, dest)
	}
}

func x86Constant(w io.Writer, fc *funcContext, op ir.LoadConstant) {
	dest := fc.operand(op.Dest)
	if !strings.HasPrefix(op.Value, ".L") {
		fmt.Fprintf(w, "    movl $%s, %s\n", op.Value, dest)
		return
	}
	// Label constants are addresses and need a 64-bit destination.
	if wide, ok := x86Wide[dest]; ok {
		fmt.Fprintf(w, "    leaq %s(%%rip), %s\n", op.Value, wide)
		return
	}
	fmt.Fprintf(w, "    leaq %s(%%rip), %%rax\n", op.Value)
	fmt.Fprintf(w, "    movq %%rax, %s\n", dest)
}

func x86Call(w io.Writer, fc *funcContext, op ir.Call) {
	for i := len(op.Args) - 1; i >= 0; i-- {
		arg := fc.operand(op.Args[i])
		if wide, ok := x86Wide[arg]; ok {
			arg = wide
		}
		fmt.Fprintf(w, "    pushq %s\n", arg)
	}
	fmt.Fprintf(w, "    call %s\n", fc.target.FunctionLabel(op.Function))
	if len(op.Args) > 0 {
		fmt.Fprintf(w, "    addq $%d, %%rsp\n", 8*len(op.Args))
	}
	if op.Dest != "" {
		fmt.Fprintf(w, "    movl %%eax, %s\n", fc.operand(op.Dest))
	}
}
