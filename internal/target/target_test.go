package target

import "testing"

func TestFromName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "x86_64", input: "x86_64", expected: "x86_64"},
		{name: "aarch64", input: "aarch64", expected: "aarch64"},
		{name: "rp2040", input: "rp2040", expected: "rp2040"},
		{name: "case insensitive", input: "X86_64", expected: "x86_64"},
		{name: "mixed case", input: "Rp2040", expected: "rp2040"},
		{name: "unknown", input: "mips", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tgt, err := FromName(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tgt.Name != tt.expected {
				t.Errorf("got target %s, want %s", tgt.Name, tt.expected)
			}
		})
	}
}

func TestArgRegisters(t *testing.T) {
	x86, _ := FromName("x86_64")
	reg, err := x86.ArgRegister(0)
	if err != nil || reg != "%rdi" {
		t.Errorf("x86_64 arg 0 = %s, %v; want %%rdi", reg, err)
	}
	if _, err := x86.ArgRegister(6); err == nil {
		t.Error("x86_64 should only pass 6 arguments in registers")
	}

	arm, _ := FromName("aarch64")
	reg, err = arm.ArgRegister(7)
	if err != nil || reg != "x7" {
		t.Errorf("aarch64 arg 7 = %s, %v; want x7", reg, err)
	}

	pico, _ := FromName("rp2040")
	if _, err := pico.ArgRegister(4); err == nil {
		t.Error("rp2040 should only pass 4 arguments in registers")
	}
}

func TestMemoryOperand(t *testing.T) {
	x86, _ := FromName("x86_64")
	if got := x86.MemoryOperand(-12); got != "-12(%rbp)" {
		t.Errorf("x86_64 memory operand = %s, want -12(%%rbp)", got)
	}
	arm, _ := FromName("aarch64")
	if got := arm.MemoryOperand(-12); got != "[x29, #-12]" {
		t.Errorf("aarch64 memory operand = %s, want [x29, #-12]", got)
	}
	pico, _ := FromName("rp2040")
	if got := pico.MemoryOperand(-8); got != "[r7, #-8]" {
		t.Errorf("rp2040 memory operand = %s, want [r7, #-8]", got)
	}
}

func TestFunctionLabel(t *testing.T) {
	arm, _ := FromName("aarch64")
	if got := arm.FunctionLabel("main"); got != "_main" {
		t.Errorf("aarch64 function label = %s, want _main", got)
	}
	x86, _ := FromName("x86_64")
	if got := x86.FunctionLabel("main"); got != "main" {
		t.Errorf("x86_64 function label = %s, want main", got)
	}
}

func TestAvailableRegistersIsACopy(t *testing.T) {
	x86, _ := FromName("x86_64")
	regs := x86.AvailableRegisters()
	regs[0] = "clobbered"
	if x86.AvailableRegisters()[0] != "%eax" {
		t.Error("AvailableRegisters must not expose internal state")
	}
}
