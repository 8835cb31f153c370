package parser

import (
	"fmt"

	"github.com/petal-lang/petal/internal/lexer"
)

type ErrorKind int

const (
	UnexpectedToken ErrorKind = iota
	MissingToken
	SyntaxError
	InvalidParameter
	GenericError
)

func (k ErrorKind) String() string {
	switch k {
	case UnexpectedToken:
		return "unexpected token"
	case MissingToken:
		return "missing token"
	case SyntaxError:
		return "syntax error"
	case InvalidParameter:
		return "invalid parameter"
	case GenericError:
		return "error"
	default:
		return "unknown error"
	}
}

// Error is a parse error with a source location.
type Error struct {
	Kind    ErrorKind
	File    string
	Line    int
	Col     int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", e.File, e.Line, e.Col, e.Kind, e.Message)
}

func (p *Parser) errorAt(kind ErrorKind, lexeme lexer.Lexeme, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		File:    p.file,
		Line:    lexeme.Line,
		Col:     lexeme.Col,
		Message: fmt.Sprintf(format, args...),
	}
}

func (p *Parser) unexpected(got lexer.Lexeme, expected string) *Error {
	return p.errorAt(UnexpectedToken, got, "expected %s, got %s", expected, got)
}

func (p *Parser) missing(got lexer.Lexeme, token string) *Error {
	return p.errorAt(MissingToken, got, "expected %q before %s", token, got)
}
