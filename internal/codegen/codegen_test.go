package codegen

import (
	"strings"
	"testing"

	"github.com/petal-lang/petal/internal/ir"
	"github.com/petal-lang/petal/internal/lexer"
	"github.com/petal-lang/petal/internal/parser"
	"github.com/petal-lang/petal/internal/regalloc"
	"github.com/petal-lang/petal/internal/target"
)

// compile runs the whole backend: lex, parse, lower, allocate, generate.
func compile(t *testing.T, input, targetName string) string {
	t.Helper()
	tokens, err := lexer.Tokenize(strings.NewReader(input))
	if err != nil {
		t.Fatalf("lexer error: %v", err)
	}
	p := parser.New("test.pt", tokens)
	program := p.ParseProgram()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse errors: %v", p.Errors())
	}
	tgt, err := target.FromName(targetName)
	if err != nil {
		t.Fatalf("target error: %v", err)
	}
	module, err := ir.Generate(program, tgt)
	if err != nil {
		t.Fatalf("lowering error: %v", err)
	}
	allocs, err := regalloc.New(tgt, regalloc.NoLiveness).AllocateModule(module)
	if err != nil {
		t.Fatalf("allocation error: %v", err)
	}
	var sb strings.Builder
	if err := Generate(&sb, module, tgt, allocs); err != nil {
		t.Fatalf("codegen error: %v", err)
	}
	return sb.String()
}

func wantLines(t *testing.T, asm string, lines []string) {
	t.Helper()
	for _, line := range lines {
		if !strings.Contains(asm, line) {
			t.Errorf("missing %q in output:\n%s", line, asm)
		}
	}
}

func TestGenerateX86(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "prologue and epilogue",
			input: "fn f() -> i32 { ret 1; }",
			want: []string{
				".globl f",
				"f:",
				"    pushq %rbp",
				"    movq %rsp, %rbp",
				"    movl $1, %eax",
				"    movl %eax, %eax",
				"    jmp .Lf_exit",
				".Lf_exit:",
				"    movq %rbp, %rsp",
				"    popq %rbp",
				"    ret",
			},
		},
		{
			name:  "frame allocation",
			input: "fn f() { x: i64 = 1; }",
			want: []string{
				"    subq $16, %rsp",
				"    movl %eax, -8(%rbp)",
			},
		},
		{
			name:  "parameters arrive in abi registers",
			input: "fn add(a: i32, b: i32) -> i32 { ret a + b; }",
			want: []string{
				"    movl %edi, -4(%rbp)",
				"    movl %esi, -8(%rbp)",
				"    movl %eax, %ecx",
				"    addl %ebx, %ecx",
			},
		},
		{
			name:  "division through the accumulator",
			input: "fn f(a: i32, b: i32) -> i32 { ret a / b; }",
			want: []string{
				"    movl %eax, %eax",
				"    cltd",
				"    idivl %ebx",
				"    movl %eax, %ecx",
			},
		},
		{
			name:  "modulus selects the remainder register",
			input: "fn f(a: i32, b: i32) -> i32 { ret a % b; }",
			want: []string{
				"    idivl %ebx",
				"    movl %edx, %ecx",
			},
		},
		{
			name:  "branch tests against zero",
			input: "fn f(c: i32) -> i32 { if c { ret 1; } ret 0; }",
			want: []string{
				"    cmpl $0, %eax",
				"    jne .Lf_1",
				"    jmp .Lf_2",
				".Lf_1:",
				".Lf_2:",
			},
		},
		{
			name:  "call pushes arguments in reverse",
			input: "fn g(a: i32, b: i32) -> i32 { ret a; }\nfn f() -> i32 { ret g(1, 2); }",
			want: []string{
				"    pushq %rbx",
				"    pushq %rax",
				"    call g",
				"    addq $16, %rsp",
				"    movl %eax, %ecx",
			},
		},
		{
			name:  "string literal lands in rodata",
			input: `fn f() -> str { ret "hi"; }`,
			want: []string{
				"    leaq .Lstr0(%rip), %rax",
				".section .rodata",
				`.Lstr0: .asciz "hi"`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantLines(t, compile(t, tt.input, "x86_64"), tt.want)
		})
	}
}

func TestGenerateAarch64(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "prologue and epilogue",
			input: "fn f() -> i32 { ret 1; }",
			want: []string{
				".global _f",
				".p2align 2",
				"_f:",
				"    stp x29, x30, [sp, #-16]!",
				"    mov x29, sp",
				"    mov w0, #1",
				"    mov w0, w0",
				"    b .Lf_exit",
				".Lf_exit:",
				"    mov sp, x29",
				"    ldp x29, x30, [sp], #16",
				"    ret",
			},
		},
		{
			name:  "three operand arithmetic",
			input: "fn add(a: i32, b: i32) -> i32 { ret a + b; }",
			want: []string{
				"    str w0, [x29, #-4]",
				"    str w1, [x29, #-8]",
				"    ldr w0, [x29, #-4]",
				"    ldr w1, [x29, #-8]",
				"    add w2, w0, w1",
			},
		},
		{
			name:  "modulus via sdiv and msub",
			input: "fn f(a: i32, b: i32) -> i32 { ret a % b; }",
			want: []string{
				"    sdiv w9, w0, w1",
				"    msub w2, w9, w1, w0",
			},
		},
		{
			name:  "wide constant in slices",
			input: "fn f() -> i32 { ret 65536; }",
			want: []string{
				"    mov w0, #0x0000",
				"    movk w0, #0x0001, lsl #16",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantLines(t, compile(t, tt.input, "aarch64"), tt.want)
		})
	}
}

func TestGenerateRP2040(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "thumb prologue",
			input: "fn f() -> i32 { ret 1; }",
			want: []string{
				".syntax unified",
				".cpu cortex-m0plus",
				".thumb",
				".global f",
				".thumb_func",
				"f:",
				"    push {r7, lr}",
				"    mov r7, sp",
				"    movs r0, #1",
				".Lf_exit:",
				"    mov sp, r7",
				"    pop {r7, pc}",
			},
		},
		{
			name:  "division is a comment placeholder",
			input: "fn f(a: i32, b: i32) -> i32 { ret a / b; }",
			want: []string{
				"    # no hardware divide: div r2, r0, r1",
			},
		},
		{
			name:  "large constant from the literal pool",
			input: "fn f() -> i32 { ret 1000; }",
			want: []string{
				"    ldr r0, =1000",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantLines(t, compile(t, tt.input, "rp2040"), tt.want)
		})
	}
}
