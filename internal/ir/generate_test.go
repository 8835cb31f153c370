package ir

import (
	"reflect"
	"strings"
	"testing"

	"github.com/petal-lang/petal/internal/lexer"
	"github.com/petal-lang/petal/internal/parser"
	"github.com/petal-lang/petal/internal/target"
)

func lowerSource(t *testing.T, input, targetName string) (*Module, error) {
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
	return Generate(program, tgt)
}

func mustLower(t *testing.T, input, targetName string) *Module {
	t.Helper()
	module, err := lowerSource(t, input, targetName)
	if err != nil {
		t.Fatalf("lowering error: %v", err)
	}
	return module
}

func TestGenerateExpressions(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Instruction
	}{
		{
			name:  "constant return",
			input: "fn f() -> i32 { ret 42; }",
			expected: []Instruction{
				LoadConstant{Dest: "t1", Value: "42"},
				Return{Value: "t1"},
			},
		},
		{
			name:  "binary operation",
			input: "fn f() -> i32 { ret 1 + 2; }",
			expected: []Instruction{
				LoadConstant{Dest: "t1", Value: "1"},
				LoadConstant{Dest: "t2", Value: "2"},
				BinaryOp{Dest: "t3", Op: "add", Left: "t1", Right: "t2"},
				Return{Value: "t3"},
			},
		},
		{
			name:  "nested expression with fresh temp per node",
			input: "fn f() -> i32 { ret 1 + 2 * 3; }",
			expected: []Instruction{
				LoadConstant{Dest: "t1", Value: "1"},
				LoadConstant{Dest: "t2", Value: "2"},
				LoadConstant{Dest: "t3", Value: "3"},
				BinaryOp{Dest: "t4", Op: "mul", Left: "t2", Right: "t3"},
				BinaryOp{Dest: "t5", Op: "add", Left: "t1", Right: "t4"},
				Return{Value: "t5"},
			},
		},
		{
			name:  "hex literal normalizes to decimal",
			input: "fn f() -> i32 { ret 0x10; }",
			expected: []Instruction{
				LoadConstant{Dest: "t1", Value: "16"},
				Return{Value: "t1"},
			},
		},
		{
			name:  "negative literal",
			input: "fn f() -> i32 { ret -42; }",
			expected: []Instruction{
				LoadConstant{Dest: "t1", Value: "-42"},
				Return{Value: "t1"},
			},
		},
		{
			name:  "division maps to div opcode",
			input: "fn f() -> i32 { ret 10 / 3; }",
			expected: []Instruction{
				LoadConstant{Dest: "t1", Value: "10"},
				LoadConstant{Dest: "t2", Value: "3"},
				BinaryOp{Dest: "t3", Op: "div", Left: "t1", Right: "t2"},
				Return{Value: "t3"},
			},
		},
		{
			name:  "logical and bitwise share opcodes",
			input: "fn f() -> i32 { ret (1 & 2) + (1 && 2); }",
			expected: []Instruction{
				LoadConstant{Dest: "t1", Value: "1"},
				LoadConstant{Dest: "t2", Value: "2"},
				BinaryOp{Dest: "t3", Op: "and", Left: "t1", Right: "t2"},
				LoadConstant{Dest: "t4", Value: "1"},
				LoadConstant{Dest: "t5", Value: "2"},
				BinaryOp{Dest: "t6", Op: "and", Left: "t4", Right: "t5"},
				BinaryOp{Dest: "t7", Op: "add", Left: "t3", Right: "t6"},
				Return{Value: "t7"},
			},
		},
		{
			name:  "shifts",
			input: "fn f() -> i32 { ret 1 << 4 >> 2; }",
			expected: []Instruction{
				LoadConstant{Dest: "t1", Value: "1"},
				LoadConstant{Dest: "t2", Value: "4"},
				BinaryOp{Dest: "t3", Op: "shl", Left: "t1", Right: "t2"},
				LoadConstant{Dest: "t4", Value: "2"},
				BinaryOp{Dest: "t5", Op: "shr", Left: "t3", Right: "t4"},
				Return{Value: "t5"},
			},
		},
		{
			name:  "unary not",
			input: "fn f() -> bool { ret !true; }",
			expected: []Instruction{
				LoadConstant{Dest: "t1", Value: "1"},
				UnaryOp{Dest: "t2", Op: "not", Value: "t1"},
				Return{Value: "t2"},
			},
		},
		{
			name:  "cast reuses the operand value",
			input: "fn f() -> i64 { ret 42 as i64; }",
			expected: []Instruction{
				LoadConstant{Dest: "t1", Value: "42"},
				Return{Value: "t1"},
			},
		},
		{
			name:  "declaration lowers to alloc and store",
			input: "fn f() { x: i32 = 7; }",
			expected: []Instruction{
				AllocStack{Var: "x", Size: 4},
				LoadConstant{Dest: "t1", Value: "7"},
				Store{Var: "x", Src: "t1"},
				Return{},
			},
		},
		{
			name:  "bare declaration has no store",
			input: "fn f() { x: i32; }",
			expected: []Instruction{
				AllocStack{Var: "x", Size: 4},
				Return{},
			},
		},
		{
			name:  "assignment stores through a temp",
			input: "fn f() { x := 1; x = x + 1; }",
			expected: []Instruction{
				AllocStack{Var: "x", Size: 4},
				LoadConstant{Dest: "t1", Value: "1"},
				Store{Var: "x", Src: "t1"},
				Load{Dest: "t2", Var: "x"},
				LoadConstant{Dest: "t3", Value: "1"},
				BinaryOp{Dest: "t4", Op: "add", Left: "t2", Right: "t3"},
				Store{Var: "x", Src: "t4"},
				Return{},
			},
		},
		{
			name:  "call arguments evaluate left to right",
			input: "fn g(a: i32, b: i32) -> i32 { ret a; }\nfn f() -> i32 { ret g(1, 2); }",
			expected: []Instruction{
				LoadConstant{Dest: "t1", Value: "1"},
				LoadConstant{Dest: "t2", Value: "2"},
				Call{Dest: "t3", Function: "g", Args: []string{"t1", "t2"}},
				Return{Value: "t3"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			module := mustLower(t, tt.input, "x86_64")
			fn := module.Functions[len(module.Functions)-1]
			if !reflect.DeepEqual(fn.Instructions, tt.expected) {
				t.Errorf("instructions mismatch\ngot:\n%s\nwant:\n%s",
					formatInstructions(fn.Instructions), formatInstructions(tt.expected))
			}
		})
	}
}

func formatInstructions(instrs []Instruction) string {
	var sb strings.Builder
	for _, instr := range instrs {
		sb.WriteString("  ")
		sb.WriteString(instr.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

func TestGenerateParams(t *testing.T) {
	module := mustLower(t, "fn add(a: i32, b: i32) -> i32 { ret a + b; }", "x86_64")
	fn := module.Functions[0]
	expected := []Instruction{
		AllocStack{Var: "a", Size: 4},
		Store{Var: "a", Src: "%rdi"},
		AllocStack{Var: "b", Size: 4},
		Store{Var: "b", Src: "%rsi"},
		Load{Dest: "t1", Var: "a"},
		Load{Dest: "t2", Var: "b"},
		BinaryOp{Dest: "t3", Op: "add", Left: "t1", Right: "t2"},
		Return{Value: "t3"},
	}
	if !reflect.DeepEqual(fn.Instructions, expected) {
		t.Errorf("instructions mismatch\ngot:\n%s\nwant:\n%s",
			formatInstructions(fn.Instructions), formatInstructions(expected))
	}
	if fn.Offsets["a"] != -4 || fn.Offsets["b"] != -8 {
		t.Errorf("unexpected offsets: %v", fn.Offsets)
	}
}

func TestGenerateParamsAarch64(t *testing.T) {
	module := mustLower(t, "fn add(a: i32, b: i32) -> i32 { ret a + b; }", "aarch64")
	fn := module.Functions[0]
	if !reflect.DeepEqual(fn.Instructions[1], Store{Var: "a", Src: "x0"}) {
		t.Errorf("expected store from x0, got %s", fn.Instructions[1])
	}
	if !reflect.DeepEqual(fn.Instructions[3], Store{Var: "b", Src: "x1"}) {
		t.Errorf("expected store from x1, got %s", fn.Instructions[3])
	}
}

func TestGenerateControlFlow(t *testing.T) {
	t.Run("if else", func(t *testing.T) {
		module := mustLower(t, "fn f(c: i32) { if c { c = 1; } else { c = 2; } }", "x86_64")
		fn := module.Functions[0]
		expected := []Instruction{
			AllocStack{Var: "c", Size: 4},
			Store{Var: "c", Src: "%rdi"},
			Load{Dest: "t1", Var: "c"},
			Branch{Cond: "t1", TrueLabel: ".Lf_1", FalseLabel: ".Lf_2"},
			Label{Name: ".Lf_1"},
			LoadConstant{Dest: "t2", Value: "1"},
			Store{Var: "c", Src: "t2"},
			Jump{Label: ".Lf_3"},
			Label{Name: ".Lf_2"},
			LoadConstant{Dest: "t3", Value: "2"},
			Store{Var: "c", Src: "t3"},
			Label{Name: ".Lf_3"},
			Return{},
		}
		if !reflect.DeepEqual(fn.Instructions, expected) {
			t.Errorf("instructions mismatch\ngot:\n%s\nwant:\n%s",
				formatInstructions(fn.Instructions), formatInstructions(expected))
		}
	})

	t.Run("while with break and continue", func(t *testing.T) {
		module := mustLower(t, "fn f(c: i32) { while c { break; continue; } }", "x86_64")
		fn := module.Functions[0]
		expected := []Instruction{
			AllocStack{Var: "c", Size: 4},
			Store{Var: "c", Src: "%rdi"},
			Label{Name: ".Lf_1"},
			Load{Dest: "t1", Var: "c"},
			Branch{Cond: "t1", TrueLabel: ".Lf_2", FalseLabel: ".Lf_3"},
			Label{Name: ".Lf_2"},
			Jump{Label: ".Lf_3"}, // break
			Jump{Label: ".Lf_1"}, // continue
			Jump{Label: ".Lf_1"},
			Label{Name: ".Lf_3"},
			Return{},
		}
		if !reflect.DeepEqual(fn.Instructions, expected) {
			t.Errorf("instructions mismatch\ngot:\n%s\nwant:\n%s",
				formatInstructions(fn.Instructions), formatInstructions(expected))
		}
	})

	t.Run("for loop", func(t *testing.T) {
		module := mustLower(t, "fn f() { for i := 3; i { i = i - 1; } }", "x86_64")
		fn := module.Functions[0]
		expected := []Instruction{
			AllocStack{Var: "i", Size: 4},
			LoadConstant{Dest: "t1", Value: "3"},
			Store{Var: "i", Src: "t1"},
			Label{Name: ".Lf_1"},
			Load{Dest: "t2", Var: "i"},
			Branch{Cond: "t2", TrueLabel: ".Lf_2", FalseLabel: ".Lf_3"},
			Label{Name: ".Lf_2"},
			Load{Dest: "t3", Var: "i"},
			LoadConstant{Dest: "t4", Value: "1"},
			BinaryOp{Dest: "t5", Op: "sub", Left: "t3", Right: "t4"},
			Store{Var: "i", Src: "t5"},
			Jump{Label: ".Lf_1"},
			Label{Name: ".Lf_3"},
			Return{},
		}
		if !reflect.DeepEqual(fn.Instructions, expected) {
			t.Errorf("instructions mismatch\ngot:\n%s\nwant:\n%s",
				formatInstructions(fn.Instructions), formatInstructions(expected))
		}
	})
}

func TestGenerateStringLiteral(t *testing.T) {
	module := mustLower(t, `fn f() -> str { ret "hello"; }`, "x86_64")
	if len(module.Globals) != 1 {
		t.Fatalf("expected 1 global, got %d", len(module.Globals))
	}
	if module.Globals[0].Label != ".Lstr0" || module.Globals[0].Value != "hello" {
		t.Errorf("unexpected global: %+v", module.Globals[0])
	}
	fn := module.Functions[0]
	if !reflect.DeepEqual(fn.Instructions[0], LoadConstant{Dest: "t1", Value: ".Lstr0"}) {
		t.Errorf("expected label load, got %s", fn.Instructions[0])
	}
}

func TestGenerateTempCountersAreFunctionLocal(t *testing.T) {
	module := mustLower(t, "fn f() -> i32 { ret 1; }\nfn g() -> i32 { ret 2; }", "x86_64")
	first := module.Functions[0].Instructions[0].(LoadConstant)
	second := module.Functions[1].Instructions[0].(LoadConstant)
	if first.Dest != "t1" || second.Dest != "t1" {
		t.Errorf("temp counters should restart per function: %s vs %s", first.Dest, second.Dest)
	}
}

func TestGenerateTempUniqueness(t *testing.T) {
	input := "fn f(a: i32, b: i32) -> i32 { x := a * b + a - b; y := x / a % b; ret x + y; }"
	module := mustLower(t, input, "x86_64")
	seen := make(map[string]bool)
	for _, instr := range module.Functions[0].Instructions {
		dest := instr.GetTarget()
		if !IsTemp(dest) {
			continue
		}
		if seen[dest] {
			t.Errorf("temporary %s assigned twice", dest)
		}
		seen[dest] = true
	}
}

func TestGenerateOffsets(t *testing.T) {
	input := "fn f() { a: i32; b: i64; c: i32; d: str; }"
	module := mustLower(t, input, "x86_64")
	offsets := module.Functions[0].Offsets

	// Slots are distinct, negative, size-aligned and strictly decreasing
	// in declaration order.
	want := map[string]int{"a": -4, "b": -16, "c": -20, "d": -32}
	if !reflect.DeepEqual(offsets, want) {
		t.Errorf("offsets = %v, want %v", offsets, want)
	}
	if module.Functions[0].FrameSize != 32 {
		t.Errorf("frame size = %d, want 32", module.Functions[0].FrameSize)
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains string
	}{
		{
			name:     "integer literal overflow",
			input:    "fn f() -> i32 { ret 99999999999999999999; }",
			contains: "invalid number literal",
		},
		{
			name:     "too many parameters for rp2040",
			input:    "fn f(a: i32, b: i32, c: i32, d: i32, e: i32) {}",
			contains: "at most 4 arguments",
		},
		{
			name:     "variable named like a temporary",
			input:    "fn f() -> i32 { t1 := 7; ret t1; }",
			contains: `name "t1" is reserved for temporaries`,
		},
		{
			name:     "parameter named like a temporary",
			input:    "fn f(t2: i32) -> i32 { ret t2; }",
			contains: `name "t2" is reserved for temporaries`,
		},
		{
			name:  "t-prefixed identifiers stay legal",
			input: "fn f() -> i32 { total := 7; t := 1; ret total + t; }",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			targetName := "x86_64"
			if strings.Contains(tt.name, "rp2040") {
				targetName = "rp2040"
			}
			_, err := lowerSource(t, tt.input, targetName)
			if tt.contains == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.contains)
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.contains)
			}
		})
	}
}
