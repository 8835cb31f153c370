package ir

import (
	"fmt"
	"io"
	"strings"
)

/*
Three-address intermediate representation. This sits between the AST and
assembly. All operands are strings: temporaries ("t1", "t2", ...),
variable names, decimal constants, register names, or data labels.

Supported instructions:
 * BinaryOp(Dest, Op, Left, Right) - arithmetic, bitwise and shift operations.
 * UnaryOp(Dest, Op, Value) - currently only "not".
 * LoadConstant(Dest, Value) - load a constant or a data label address.
 * Assign(Dest, Src) - copy between temporaries.
 * Load(Dest, Var) - read a stack variable into a temporary.
 * Store(Var, Src) - write a temporary or register into a stack variable.
 * AllocStack(Var, Size) - reserve a stack slot for a variable.
 * Call(Dest, Function, Args) - call with pre-evaluated argument temporaries.
 * Branch(Cond, TrueLabel, FalseLabel) - two-way branch on a nonzero value.
 * Jump(Label) - unconditional jump.
 * Label(Name) - branch anchor.
 * Return(Value) - return, with an empty Value for functions without one.
*/

// IsTemp reports whether an operand names an allocator-managed temporary.
func IsTemp(operand string) bool {
	if !strings.HasPrefix(operand, "t") || len(operand) < 2 {
		return false
	}
	for _, r := range operand[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

type Instruction interface {
	fmt.Stringer
	// GetTarget returns the operand written by the instruction, or "".
	GetTarget() string
	// GetArgs returns the operands read by the instruction.
	GetArgs() []string
}

type BinaryOp struct {
	Dest  string
	Op    string // add, sub, mul, div, mod, and, or, xor, shl, shr
	Left  string
	Right string
}

func (b BinaryOp) String() string {
	return fmt.Sprintf("%s = %s %s, %s", b.Dest, b.Op, b.Left, b.Right)
}

func (b BinaryOp) GetTarget() string { return b.Dest }
func (b BinaryOp) GetArgs() []string { return []string{b.Left, b.Right} }

type UnaryOp struct {
	Dest  string
	Op    string // not
	Value string
}

func (u UnaryOp) String() string {
	return fmt.Sprintf("%s = %s %s", u.Dest, u.Op, u.Value)
}

func (u UnaryOp) GetTarget() string { return u.Dest }
func (u UnaryOp) GetArgs() []string { return []string{u.Value} }

type LoadConstant struct {
	Dest  string
	Value string
}

func (l LoadConstant) String() string {
	return fmt.Sprintf("%s = const %s", l.Dest, l.Value)
}

func (l LoadConstant) GetTarget() string { return l.Dest }
func (l LoadConstant) GetArgs() []string { return nil }

type Assign struct {
	Dest string
	Src  string
}

func (a Assign) String() string {
	return fmt.Sprintf("%s = %s", a.Dest, a.Src)
}

func (a Assign) GetTarget() string { return a.Dest }
func (a Assign) GetArgs() []string { return []string{a.Src} }

type Load struct {
	Dest string
	Var  string
}

func (l Load) String() string {
	return fmt.Sprintf("%s = load %s", l.Dest, l.Var)
}

func (l Load) GetTarget() string { return l.Dest }
func (l Load) GetArgs() []string { return nil }

type Store struct {
	Var string
	Src string
}

func (s Store) String() string {
	return fmt.Sprintf("store %s, %s", s.Var, s.Src)
}

func (s Store) GetTarget() string { return "" }
func (s Store) GetArgs() []string { return []string{s.Src} }

type AllocStack struct {
	Var  string
	Size int
}

func (a AllocStack) String() string {
	return fmt.Sprintf("alloc %s, %d", a.Var, a.Size)
}

func (a AllocStack) GetTarget() string { return "" }
func (a AllocStack) GetArgs() []string { return nil }

type Call struct {
	Dest     string // empty when the result is unused
	Function string
	Args     []string
}

func (c Call) String() string {
	if c.Dest == "" {
		return fmt.Sprintf("call %s(%s)", c.Function, strings.Join(c.Args, ", "))
	}
	return fmt.Sprintf("%s = call %s(%s)", c.Dest, c.Function, strings.Join(c.Args, ", "))
}

func (c Call) GetTarget() string { return c.Dest }
func (c Call) GetArgs() []string { return c.Args }

type Branch struct {
	Cond       string
	TrueLabel  string
	FalseLabel string
}

func (b Branch) String() string {
	return fmt.Sprintf("branch %s ? %s : %s", b.Cond, b.TrueLabel, b.FalseLabel)
}

func (b Branch) GetTarget() string { return "" }
func (b Branch) GetArgs() []string { return []string{b.Cond} }

type Jump struct {
	Label string
}

func (j Jump) String() string {
	return fmt.Sprintf("jump %s", j.Label)
}

func (j Jump) GetTarget() string { return "" }
func (j Jump) GetArgs() []string { return nil }

type Label struct {
	Name string
}

func (l Label) String() string {
	return l.Name + ":"
}

func (l Label) GetTarget() string { return "" }
func (l Label) GetArgs() []string { return nil }

type Return struct {
	Value string // empty for functions that return nothing
}

func (r Return) String() string {
	if r.Value == "" {
		return "return"
	}
	return fmt.Sprintf("return %s", r.Value)
}

func (r Return) GetTarget() string { return "" }
func (r Return) GetArgs() []string {
	if r.Value == "" {
		return nil
	}
	return []string{r.Value}
}

// Global is a module-level data definition, e.g. a string literal.
type Global struct {
	Label string
	Value string
}

// Function is one lowered function: its instructions plus the stack frame
// layout assigned during lowering.
type Function struct {
	Name         string
	Instructions []Instruction
	// Offsets maps variable names to negative frame-pointer offsets.
	Offsets   map[string]int
	FrameSize int
}

func (f Function) Print(writer io.Writer) {
	fmt.Fprintf(writer, "Function %s:\n", f.Name)
	for i, instr := range f.Instructions {
		fmt.Fprintf(writer, "%4d  %s\n", i, instr)
	}
}

// Module is an ordered set of globals followed by functions.
type Module struct {
	Globals   []Global
	Functions []Function
}

func (m Module) Print(writer io.Writer) {
	for _, g := range m.Globals {
		fmt.Fprintf(writer, "Global %s = %q\n", g.Label, g.Value)
	}
	for _, f := range m.Functions {
		f.Print(writer)
		fmt.Fprintf(writer, "\n")
	}
}
