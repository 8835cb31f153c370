package types

import "fmt"

const (
	WORD_SIZE = 8
	INT_SIZE  = 4
)

// SizeOf returns the stack footprint of a type in bytes.
func SizeOf(typ Type) int {
	switch t := typ.(type) {
	case *Primitive:
		switch t.Name {
		case "i32", "u32", "f32", "bool", "char":
			return 4
		case "i64", "u64", "usize", "f64", "str":
			return 8
		}
	case *Struct:
		size := 0
		for _, field := range t.Fields {
			size += SizeOf(field.Type)
		}
		return size
	case *Function:
		return WORD_SIZE
	case *Custom:
		return WORD_SIZE
	}
	panic(fmt.Sprintf("unknown type %s", typ))
}
