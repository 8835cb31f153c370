package util

import (
	"fmt"
	"strings"
	"unicode"
)

// EscapeString makes a string safe to embed in a double-quoted
// assembly literal. Unprintable and non-ASCII characters become \x
// escapes.
func EscapeString(s string) string {
	sb := strings.Builder{}
	for _, rune := range s {
		switch rune {
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if unicode.IsPrint(rune) && rune < unicode.MaxASCII {
				sb.WriteRune(rune)
			} else {
				sb.WriteString(fmt.Sprintf("\\x%02X", rune))
			}
		}
	}
	return sb.String()
}
