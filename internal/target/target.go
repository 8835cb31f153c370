package target

import (
	"fmt"
	"strings"
)

// Target describes the machine a module is compiled for: its calling
// convention registers, the register pool available to the allocator and
// the assembler dialect details that differ between backends.
type Target struct {
	Name               string
	argRegisters       []string
	availableRegisters []string
	defaultIntSize     int
	globalDirective    string
	labelPrefix        string
	framePointer       string
}

var x86_64 = &Target{
	Name:               "x86_64",
	argRegisters:       []string{"%rdi", "%rsi", "%rdx", "%rcx", "%r8", "%r9"},
	availableRegisters: []string{"%eax", "%ebx", "%ecx", "%edx", "%esi", "%edi"},
	defaultIntSize:     4,
	globalDirective:    ".globl",
	labelPrefix:        "",
	framePointer:       "%rbp",
}

var aarch64 = &Target{
	Name:               "aarch64",
	argRegisters:       []string{"x0", "x1", "x2", "x3", "x4", "x5", "x6", "x7"},
	availableRegisters: []string{"w0", "w1", "w2", "w3", "w4", "w5"},
	defaultIntSize:     4,
	globalDirective:    ".global",
	labelPrefix:        "_",
	framePointer:       "x29",
}

var rp2040 = &Target{
	Name:               "rp2040",
	argRegisters:       []string{"r0", "r1", "r2", "r3"},
	availableRegisters: []string{"r0", "r1", "r2", "r3"},
	defaultIntSize:     4,
	globalDirective:    ".global",
	labelPrefix:        "",
	framePointer:       "r7",
}

var targetsByName = map[string]*Target{
	"x86_64":  x86_64,
	"aarch64": aarch64,
	"rp2040":  rp2040,
}

// FromName resolves a target by name, case-insensitively.
func FromName(name string) (*Target, error) {
	if t, ok := targetsByName[strings.ToLower(name)]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("unknown target: %s", name)
}

// Names returns all supported target names.
func Names() []string {
	return []string{"x86_64", "aarch64", "rp2040"}
}

// ArgRegister returns the register that carries argument i, or an error
// when the index is beyond what the calling convention passes in registers.
func (t *Target) ArgRegister(i int) (string, error) {
	if i < 0 || i >= len(t.argRegisters) {
		return "", fmt.Errorf("%s passes at most %d arguments in registers", t.Name, len(t.argRegisters))
	}
	return t.argRegisters[i], nil
}

// AvailableRegisters returns a fresh copy of the allocator register pool.
func (t *Target) AvailableRegisters() []string {
	regs := make([]string, len(t.availableRegisters))
	copy(regs, t.availableRegisters)
	return regs
}

func (t *Target) DefaultIntSize() int {
	return t.defaultIntSize
}

func (t *Target) GlobalDirective() string {
	return t.globalDirective
}

// FunctionLabel returns the assembly symbol for a function name.
func (t *Target) FunctionLabel(id string) string {
	return t.labelPrefix + id
}

// MemoryOperand formats a frame-pointer-relative stack slot.
// Offsets are negative: the frame grows down.
func (t *Target) MemoryOperand(offset int) string {
	if t == x86_64 {
		return fmt.Sprintf("%d(%s)", offset, t.framePointer)
	}
	return fmt.Sprintf("[%s, #%d]", t.framePointer, offset)
}
