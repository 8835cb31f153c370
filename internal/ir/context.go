package ir

import (
	"fmt"

	"github.com/petal-lang/petal/internal/target"
	"github.com/petal-lang/petal/internal/types"
	"github.com/petal-lang/petal/internal/util"
)

// Context carries the per-function state used while lowering: the
// temporary and label counters, the types of lowered variables and the
// stack frame layout. A fresh Context is created for every function, so
// temporary names restart at t1 in each one.
type Context struct {
	FunctionName string
	Target       *target.Target

	nextTempIndex  int
	nextLabelIndex int
	varTypes       map[string]types.Type
	offsets        map[string]int
	cursor         int // current frame extent, always <= 0
}

func NewContext(functionName string, tgt *target.Target) *Context {
	return &Context{
		FunctionName: functionName,
		Target:       tgt,
		varTypes:     make(map[string]types.Type),
		offsets:      make(map[string]int),
	}
}

// AllocTemp returns a fresh temporary name. Names are monotonic within
// the function: t1, t2, ...
func (c *Context) AllocTemp() string {
	c.nextTempIndex++
	return fmt.Sprintf("t%d", c.nextTempIndex)
}

// AllocLabel returns a fresh branch label. Labels embed the function name
// so that labels from different functions never collide in one module.
func (c *Context) AllocLabel() string {
	c.nextLabelIndex++
	return fmt.Sprintf(".L%s_%d", c.FunctionName, c.nextLabelIndex)
}

func (c *Context) SetVarType(name string, typ types.Type) {
	c.varTypes[name] = typ
}

func (c *Context) VarType(name string) (types.Type, bool) {
	typ, ok := c.varTypes[name]
	return typ, ok
}

// AllocSlot reserves a stack slot for a variable and returns its offset.
// Offsets decrease monotonically and are aligned to the slot size.
func (c *Context) AllocSlot(name string, size int) int {
	used := util.Align(-c.cursor+size, size)
	c.cursor = -used
	c.offsets[name] = c.cursor
	return c.cursor
}

func (c *Context) Offset(name string) (int, bool) {
	offset, ok := c.offsets[name]
	return offset, ok
}

// Offsets returns the frame layout for embedding into an ir.Function.
func (c *Context) Offsets() map[string]int {
	return c.offsets
}

// FrameSize returns the frame extent rounded up to 16 bytes, as required
// by the call ABIs of all supported targets.
func (c *Context) FrameSize() int {
	return util.Align(-c.cursor, 16)
}
