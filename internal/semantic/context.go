package semantic

import (
	"fmt"

	"github.com/petal-lang/petal/internal/types"
)

type SymbolKind int

const (
	VariableSymbol SymbolKind = iota
	FunctionSymbol
	StructSymbol
)

func (k SymbolKind) String() string {
	switch k {
	case VariableSymbol:
		return "variable"
	case FunctionSymbol:
		return "function"
	case StructSymbol:
		return "struct"
	default:
		return "symbol"
	}
}

type Symbol struct {
	Name string
	Kind SymbolKind
	Type types.Type
}

// Context holds the symbol state for one compilation. Symbols live in a
// single flat table; visibility is gated by a stack of per-scope name sets.
// An entry stays in the table after its scope is popped and is only
// replaced when a later scope declares the same name again.
type Context struct {
	symbols map[string]Symbol
	scopes  []map[string]struct{}

	// Return type of the function whose body is being analyzed.
	// nil outside a function or inside one that returns nothing.
	currentReturn types.Type
}

func NewContext() *Context {
	return &Context{
		symbols: make(map[string]Symbol),
	}
}

func (c *Context) PushScope() {
	c.scopes = append(c.scopes, make(map[string]struct{}))
}

func (c *Context) PopScope() {
	c.scopes = c.scopes[:len(c.scopes)-1]
}

// Declare binds a symbol in the innermost scope. Redeclaring a name that
// is already bound in that same scope is an error.
func (c *Context) Declare(sym Symbol) error {
	scope := c.scopes[len(c.scopes)-1]
	if _, exists := scope[sym.Name]; exists {
		return fmt.Errorf("duplicate declaration of %q", sym.Name)
	}
	scope[sym.Name] = struct{}{}
	c.symbols[sym.Name] = sym
	return nil
}

// Lookup resolves a name if it is visible from any active scope.
func (c *Context) Lookup(name string) (Symbol, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if _, ok := c.scopes[i][name]; ok {
			sym, ok := c.symbols[name]
			return sym, ok
		}
	}
	return Symbol{}, false
}
