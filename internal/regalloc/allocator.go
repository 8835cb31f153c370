// Package regalloc assigns physical registers or spill slots to the
// temporaries of lowered functions and rewrites instruction operands.
package regalloc

import (
	"fmt"

	"github.com/petal-lang/petal/internal/ir"
	"github.com/petal-lang/petal/internal/target"
)

// Mode selects how the allocator treats temporary lifetimes.
type Mode int

const (
	// NoLiveness never returns a register to the pool once assigned, so
	// a function with more temporaries than pool registers spills.
	NoLiveness Mode = iota
	// LinearScan frees a temporary's register after its last use.
	LinearScan
)

func (m Mode) String() string {
	switch m {
	case NoLiveness:
		return "no-liveness"
	case LinearScan:
		return "linear-scan"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Allocation places one temporary in either a physical register or a
// frame-pointer-relative spill slot.
type Allocation struct {
	Register string
	Offset   int
}

func (a Allocation) Spilled() bool {
	return a.Register == ""
}

// Operand formats the allocation as an instruction operand for tgt.
func (a Allocation) Operand(tgt *target.Target) string {
	if a.Spilled() {
		return tgt.MemoryOperand(a.Offset)
	}
	return a.Register
}

type Allocator struct {
	target *target.Target
	mode   Mode
}

func New(tgt *target.Target, mode Mode) *Allocator {
	return &Allocator{target: tgt, mode: mode}
}

// AllocateModule runs the spill pass over every function in place and
// returns the allocation maps keyed by function name.
func (a *Allocator) AllocateModule(module *ir.Module) (map[string]map[string]Allocation, error) {
	result := make(map[string]map[string]Allocation)
	for i := range module.Functions {
		fn := &module.Functions[i]
		allocs, err := a.AllocateFunction(fn)
		if err != nil {
			return nil, err
		}
		result[fn.Name] = allocs
	}
	return result, nil
}

// AllocateFunction assigns every referenced temporary a register or a
// spill slot, then rewrites Add and Sub operands in place. Other opcodes
// keep their temporary names and are resolved against the returned map
// during code generation.
func (a *Allocator) AllocateFunction(fn *ir.Function) (map[string]Allocation, error) {
	allocs := make(map[string]Allocation)
	pool := a.target.AvailableRegisters()

	var lastUse map[string]int
	var live []string
	if a.mode == LinearScan {
		lastUse = lastUses(fn.Instructions)
	}

	for i, instr := range fn.Instructions {
		if a.mode == LinearScan {
			live, pool = expire(live, pool, allocs, lastUse, i)
		}
		for _, temp := range referencedTemps(instr) {
			if _, ok := allocs[temp]; ok {
				continue
			}
			if len(pool) > 0 {
				allocs[temp] = Allocation{Register: pool[0]}
				pool = pool[1:]
				live = append(live, temp)
			} else {
				// Spill slots follow the allocation order, registers
				// included, so slots stay distinct. The frame size is
				// fixed during lowering and does not reserve these
				// slots, so a spill can overlap a variable slot or land
				// below the frame extent.
				offset := -a.target.DefaultIntSize() * (len(allocs) + 1)
				allocs[temp] = Allocation{Offset: offset}
			}
		}
	}

	if err := checkDivisionOperands(fn, allocs); err != nil {
		return nil, err
	}
	a.rewrite(fn, allocs)
	return allocs, nil
}

// expire returns registers held by temporaries whose last use precedes
// instruction index i. live keeps allocation order so freed registers
// rejoin the pool deterministically.
func expire(live, pool []string, allocs map[string]Allocation, lastUse map[string]int, i int) ([]string, []string) {
	var freed []string
	remaining := live[:0]
	for _, temp := range live {
		if lastUse[temp] < i {
			freed = append(freed, allocs[temp].Register)
		} else {
			remaining = append(remaining, temp)
		}
	}
	if len(freed) == 0 {
		return remaining, pool
	}
	// Freed registers rejoin at the front so they are reused before
	// untouched pool registers.
	return remaining, append(freed, pool...)
}

// Division pins its operands to fixed hardware registers, and no
// load/store bracketing exists for spilled operands, so a spilled
// temporary reaching Div or Mod is rejected outright.
func checkDivisionOperands(fn *ir.Function, allocs map[string]Allocation) error {
	for _, instr := range fn.Instructions {
		binop, ok := instr.(ir.BinaryOp)
		if !ok || (binop.Op != "div" && binop.Op != "mod") {
			continue
		}
		for _, operand := range []string{binop.Dest, binop.Left, binop.Right} {
			if alloc, ok := allocs[operand]; ok && alloc.Spilled() {
				return fmt.Errorf("in function %s: temporary %s is spilled but %s needs register operands",
					fn.Name, operand, binop.Op)
			}
		}
	}
	return nil
}

// rewrite substitutes allocations into Add and Sub operands. The other
// opcodes pass through unchanged.
func (a *Allocator) rewrite(fn *ir.Function, allocs map[string]Allocation) {
	for i, instr := range fn.Instructions {
		binop, ok := instr.(ir.BinaryOp)
		if !ok || (binop.Op != "add" && binop.Op != "sub") {
			continue
		}
		binop.Dest = a.substitute(binop.Dest, allocs)
		binop.Left = a.substitute(binop.Left, allocs)
		binop.Right = a.substitute(binop.Right, allocs)
		fn.Instructions[i] = binop
	}
}

func (a *Allocator) substitute(operand string, allocs map[string]Allocation) string {
	if alloc, ok := allocs[operand]; ok {
		return alloc.Operand(a.target)
	}
	return operand
}

// referencedTemps lists the temporaries an instruction writes or reads,
// destination first.
func referencedTemps(instr ir.Instruction) []string {
	var temps []string
	if dest := instr.GetTarget(); ir.IsTemp(dest) {
		temps = append(temps, dest)
	}
	for _, arg := range instr.GetArgs() {
		if ir.IsTemp(arg) {
			temps = append(temps, arg)
		}
	}
	return temps
}

// lastUses maps each temporary to the index of the last instruction
// that references it.
func lastUses(instructions []ir.Instruction) map[string]int {
	last := make(map[string]int)
	for i, instr := range instructions {
		if dest := instr.GetTarget(); ir.IsTemp(dest) {
			last[dest] = i
		}
		for _, arg := range instr.GetArgs() {
			if ir.IsTemp(arg) {
				last[arg] = i
			}
		}
	}
	return last
}
