package lexer

import (
	"bufio"
	"fmt"
	"io"
	"unicode"
)

type TokenType int

// Token types
const (
	LEX_EOF TokenType = iota
	LEX_IDENT
	LEX_NUMBER
	LEX_STRING
	LEX_CHAR
	LEX_KEYWORD
	LEX_OPERATOR
	LEX_PUNCTUATION
	LEX_ILLEGAL
)

func (t TokenType) String() string {
	switch t {
	case LEX_EOF:
		return "EOF"
	case LEX_IDENT:
		return "IDENT"
	case LEX_NUMBER:
		return "NUMBER"
	case LEX_STRING:
		return "STRING"
	case LEX_CHAR:
		return "CHAR"
	case LEX_KEYWORD:
		return "KEYWORD"
	case LEX_OPERATOR:
		return "OPERATOR"
	case LEX_PUNCTUATION:
		return "PUNCTUATION"
	case LEX_ILLEGAL:
		return "ILLEGAL"
	default:
		return "UNKNOWN"
	}
}

// Keywords in Petal
var keywords = map[string]bool{
	"fn":       true,
	"ret":      true,
	"struct":   true,
	"pub":      true,
	"enum":     true,
	"impl":     true,
	"if":       true,
	"else":     true,
	"for":      true,
	"while":    true,
	"let":      true,
	"loop":     true,
	"break":    true,
	"continue": true,
	"as":       true,
	"true":     true,
	"false":    true,
}

// Single-character operators and punctuation
var singleCharTokens = map[rune]TokenType{
	'(': LEX_PUNCTUATION,
	')': LEX_PUNCTUATION,
	'{': LEX_PUNCTUATION,
	'}': LEX_PUNCTUATION,
	';': LEX_PUNCTUATION,
	',': LEX_PUNCTUATION,
	'+': LEX_OPERATOR,
	'*': LEX_OPERATOR,
	'%': LEX_OPERATOR,
	'^': LEX_OPERATOR,
}

// Two-character operators keyed by their first rune. When none of the
// continuations follows, the first rune alone is the token.
var twoCharTokens = map[rune]struct {
	continuations map[rune]string
	aloneTyp      TokenType
}{
	'=': {map[rune]string{'=': "=="}, LEX_OPERATOR},
	'!': {map[rune]string{'=': "!="}, LEX_OPERATOR},
	'<': {map[rune]string{'=': "<=", '<': "<<"}, LEX_OPERATOR},
	'>': {map[rune]string{'=': ">=", '>': ">>"}, LEX_OPERATOR},
	'&': {map[rune]string{'&': "&&"}, LEX_OPERATOR},
	'|': {map[rune]string{'|': "||"}, LEX_OPERATOR},
	'-': {map[rune]string{'>': "->"}, LEX_OPERATOR},
	':': {map[rune]string{'=': ":="}, LEX_PUNCTUATION},
}

type Lexeme struct {
	Type TokenType
	Str  string
	Line int
	Col  int
}

func (l Lexeme) String() string {
	if l.Str == "" {
		return fmt.Sprintf("<%s>", l.Type)
	}
	return fmt.Sprintf("<%s %q>", l.Type, l.Str)
}

func (l Lexeme) IsKeyword(kw string) bool {
	return l.Type == LEX_KEYWORD && l.Str == kw
}

func (l Lexeme) IsPunctuation(pv string) bool {
	return l.Type == LEX_PUNCTUATION && l.Str == pv
}

func (l Lexeme) IsOperator(op string) bool {
	return l.Type == LEX_OPERATOR && l.Str == op
}

type Lexer struct {
	input     *bufio.Reader
	line      int
	col       int
	prevCol   int
	lastRune  rune
	lastSize  int
	hasUnread bool
}

func New(inputReader io.Reader) *Lexer {
	return &Lexer{
		input:   bufio.NewReader(inputReader),
		line:    1,
		col:     1,
		prevCol: 1,
	}
}

// Tokenize consumes the whole input and returns all lexemes including the
// trailing EOF lexeme.
func Tokenize(inputReader io.Reader) ([]Lexeme, error) {
	lex := New(inputReader)
	var result []Lexeme
	for {
		lexeme, err := lex.Next()
		if err != nil {
			return nil, err
		}
		result = append(result, lexeme)
		if lexeme.Type == LEX_EOF {
			return result, nil
		}
	}
}

// readRune reads the next rune from the input
func (l *Lexer) readRune() (rune, int, error) {
	var r rune
	var size int
	var err error

	if l.hasUnread {
		l.hasUnread = false
		r, size, err = l.lastRune, l.lastSize, nil
	} else {
		l.prevCol = l.col
		r, size, err = l.input.ReadRune()
	}

	if err != nil {
		return 0, 0, err
	}

	l.lastRune = r
	l.lastSize = size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r, size, nil
}

// unreadRune puts back the last read rune.
// Should be called at most once per readRune.
func (l *Lexer) unreadRune() {
	l.hasUnread = true
	if l.lastRune == '\n' {
		l.line--
	}
	l.col = l.prevCol
}

// skipSpace skips whitespace characters
func (l *Lexer) skipSpace() error {
	for {
		r, _, err := l.readRune()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if !unicode.IsSpace(r) {
			l.unreadRune()
			return nil
		}
	}
}

// skipComment skips a line comment (from // to end of line)
func (l *Lexer) skipComment() error {
	for {
		r, _, err := l.readRune()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if r == '\n' {
			return nil
		}
	}
}

// Next returns the next lexeme from the input
func (l *Lexer) Next() (Lexeme, error) {
	if err := l.skipSpace(); err != nil {
		return Lexeme{Type: LEX_EOF}, err
	}

	startLine := l.line
	startCol := l.col

	r, _, err := l.readRune()
	if err != nil {
		if err == io.EOF {
			return Lexeme{Type: LEX_EOF, Line: startLine, Col: startCol}, nil
		}
		return Lexeme{Type: LEX_EOF}, err
	}

	switch {
	case unicode.IsLetter(r) || r == '_':
		l.unreadRune()
		return l.lexIdent(startLine, startCol)
	case unicode.IsDigit(r):
		l.unreadRune()
		return l.lexNumber(startLine, startCol)
	case r == '"':
		return l.lexString(startLine, startCol)
	case r == '\'':
		return l.lexChar(startLine, startCol)
	case r == '/':
		nextR, _, err := l.readRune()
		if err != nil && err != io.EOF {
			return Lexeme{Type: LEX_EOF}, err
		}
		if err == nil && nextR == '/' {
			if err := l.skipComment(); err != nil {
				return Lexeme{Type: LEX_EOF}, err
			}
			return l.Next()
		}
		if err == nil {
			l.unreadRune()
		}
		return Lexeme{Type: LEX_OPERATOR, Str: "/", Line: startLine, Col: startCol}, nil
	default:
		if two, ok := twoCharTokens[r]; ok {
			nextR, _, err := l.readRune()
			if err != nil && err != io.EOF {
				return Lexeme{Type: LEX_EOF}, err
			}
			if err == nil {
				if combined, ok := two.continuations[nextR]; ok {
					return Lexeme{Type: LEX_OPERATOR, Str: combined, Line: startLine, Col: startCol}, nil
				}
				l.unreadRune()
			}
			return Lexeme{Type: two.aloneTyp, Str: string(r), Line: startLine, Col: startCol}, nil
		}
		if tokenType, ok := singleCharTokens[r]; ok {
			return Lexeme{Type: tokenType, Str: string(r), Line: startLine, Col: startCol}, nil
		}
		// Unknown characters become placeholder lexemes so the parser can
		// report them with a position instead of the scan aborting.
		return Lexeme{Type: LEX_ILLEGAL, Str: string(r), Line: startLine, Col: startCol}, nil
	}
}

// lexIdent reads an identifier or keyword
func (l *Lexer) lexIdent(startLine, startCol int) (Lexeme, error) {
	var ident string

	for {
		r, _, err := l.readRune()
		if err != nil {
			if err == io.EOF {
				break
			}
			return Lexeme{}, err
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			l.unreadRune()
			break
		}

		ident += string(r)
	}

	if keywords[ident] {
		return Lexeme{Type: LEX_KEYWORD, Str: ident, Line: startLine, Col: startCol}, nil
	}

	return Lexeme{Type: LEX_IDENT, Str: ident, Line: startLine, Col: startCol}, nil
}

// lexString reads a string literal
func (l *Lexer) lexString(startLine, startCol int) (Lexeme, error) {
	var str string

	for {
		r, _, err := l.readRune()
		if err != nil {
			if err == io.EOF {
				return Lexeme{}, io.ErrUnexpectedEOF
			}
			return Lexeme{}, err
		}

		if r == '"' {
			return Lexeme{Type: LEX_STRING, Str: str, Line: startLine, Col: startCol}, nil
		}

		if r == '\\' {
			nextR, _, err := l.readRune()
			if err != nil {
				if err == io.EOF {
					str += string(r)
					continue
				}
				return Lexeme{}, err
			}
			str += unescape(nextR)
			continue
		}

		str += string(r)
	}
}

// lexChar reads a character literal
func (l *Lexer) lexChar(startLine, startCol int) (Lexeme, error) {
	r, _, err := l.readRune()
	if err != nil {
		if err == io.EOF {
			return Lexeme{}, io.ErrUnexpectedEOF
		}
		return Lexeme{}, err
	}

	var str string
	if r == '\\' {
		nextR, _, err := l.readRune()
		if err != nil {
			if err == io.EOF {
				return Lexeme{}, io.ErrUnexpectedEOF
			}
			return Lexeme{}, err
		}
		str = unescape(nextR)
	} else {
		str = string(r)
	}

	closing, _, err := l.readRune()
	if err != nil {
		if err == io.EOF {
			return Lexeme{}, io.ErrUnexpectedEOF
		}
		return Lexeme{}, err
	}
	if closing != '\'' {
		// Unterminated character literal; surface it as an illegal lexeme.
		l.unreadRune()
		return Lexeme{Type: LEX_ILLEGAL, Str: str, Line: startLine, Col: startCol}, nil
	}

	return Lexeme{Type: LEX_CHAR, Str: str, Line: startLine, Col: startCol}, nil
}

func unescape(r rune) string {
	switch r {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	case '0':
		return "\x00"
	case '\\':
		return "\\"
	case '"':
		return "\""
	case '\'':
		return "'"
	default:
		return string(r)
	}
}

// lexNumber reads a number literal
func (l *Lexer) lexNumber(startLine, startCol int) (Lexeme, error) {
	var num string

	r, _, err := l.readRune()
	if err != nil {
		return Lexeme{}, err
	}
	num += string(r)

	if r == '0' {
		nextR, _, err := l.readRune()
		if err != nil {
			if err == io.EOF {
				return Lexeme{Type: LEX_NUMBER, Str: num, Line: startLine, Col: startCol}, nil
			}
			return Lexeme{}, err
		}
		if nextR == 'x' || nextR == 'X' {
			num += string(nextR)
			return l.lexHexNumber(num, startLine, startCol)
		}
		l.unreadRune()
	}

	seenDot := false
	for {
		r, _, err := l.readRune()
		if err != nil {
			if err == io.EOF {
				break
			}
			return Lexeme{}, err
		}

		if r == '.' && !seenDot {
			seenDot = true
			num += string(r)
			continue
		}

		if !unicode.IsDigit(r) {
			l.unreadRune()
			break
		}

		num += string(r)
	}

	return Lexeme{Type: LEX_NUMBER, Str: num, Line: startLine, Col: startCol}, nil
}

// lexHexNumber reads a hexadecimal number literal
func (l *Lexer) lexHexNumber(prefix string, startLine, startCol int) (Lexeme, error) {
	num := prefix

	for {
		r, _, err := l.readRune()
		if err != nil {
			if err == io.EOF {
				break
			}
			return Lexeme{}, err
		}

		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')) {
			l.unreadRune()
			break
		}

		num += string(r)
	}

	return Lexeme{Type: LEX_NUMBER, Str: num, Line: startLine, Col: startCol}, nil
}
