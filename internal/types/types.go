package types

import (
	"fmt"
	"strings"
)

// Type represents a Petal type.
type Type interface {
	fmt.Stringer
	isType()
	// Equals returns true if this type is equal to the other type
	Equals(other Type) bool
}

// Primitive represents built-in scalar types like i32, bool, char.
type Primitive struct {
	Name string
}

func (p *Primitive) isType() {}

func (p *Primitive) String() string {
	return p.Name
}

func (p *Primitive) Equals(other Type) bool {
	if otherPrim, ok := other.(*Primitive); ok {
		return p.Name == otherPrim.Name
	}
	return false
}

// Function represents a function signature.
type Function struct {
	Params []Type
	Return Type // nil when the function returns nothing
}

func (f *Function) isType() {}

func (f *Function) String() string {
	var sb strings.Builder
	sb.WriteString("fn(")
	for i, param := range f.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(param.String())
	}
	sb.WriteString(")")
	if f.Return != nil {
		sb.WriteString(" -> ")
		sb.WriteString(f.Return.String())
	}
	return sb.String()
}

func (f *Function) Equals(other Type) bool {
	otherFn, ok := other.(*Function)
	if !ok {
		return false
	}
	if len(f.Params) != len(otherFn.Params) {
		return false
	}
	for i := range f.Params {
		if !f.Params[i].Equals(otherFn.Params[i]) {
			return false
		}
	}
	if f.Return == nil || otherFn.Return == nil {
		return f.Return == otherFn.Return
	}
	return f.Return.Equals(otherFn.Return)
}

// Struct represents a user-declared aggregate.
type Struct struct {
	Name   string
	Fields []StructField
}

type StructField struct {
	Name string
	Type Type
}

func (s *Struct) isType() {}

func (s *Struct) String() string {
	return "struct " + s.Name
}

func (s *Struct) Equals(other Type) bool {
	if otherStruct, ok := other.(*Struct); ok {
		return s.Name == otherStruct.Name
	}
	return false
}

// Custom is a named type that is not one of the built-in scalars.
// It stays unresolved until the declaration that introduces it is seen.
type Custom struct {
	Name string
}

func (c *Custom) isType() {}

func (c *Custom) String() string {
	return c.Name
}

func (c *Custom) Equals(other Type) bool {
	if otherCustom, ok := other.(*Custom); ok {
		return c.Name == otherCustom.Name
	}
	return false
}

// Common primitives.
var (
	I32   = &Primitive{Name: "i32"}
	I64   = &Primitive{Name: "i64"}
	U32   = &Primitive{Name: "u32"}
	U64   = &Primitive{Name: "u64"}
	Usize = &Primitive{Name: "usize"}
	F32   = &Primitive{Name: "f32"}
	F64   = &Primitive{Name: "f64"}
	Bool  = &Primitive{Name: "bool"}
	Char  = &Primitive{Name: "char"}
	Str   = &Primitive{Name: "str"}
)

var primitivesByName = map[string]*Primitive{
	"i32":   I32,
	"i64":   I64,
	"u32":   U32,
	"u64":   U64,
	"usize": Usize,
	"f32":   F32,
	"f64":   F64,
	"bool":  Bool,
	"char":  Char,
	"str":   Str,
}

// IsPrimitiveName reports whether name is one of the built-in scalar types.
func IsPrimitiveName(name string) bool {
	_, ok := primitivesByName[name]
	return ok
}

// FromName resolves a type name: a known primitive, or a Custom placeholder.
func FromName(name string) Type {
	if prim, ok := primitivesByName[name]; ok {
		return prim
	}
	return &Custom{Name: name}
}
