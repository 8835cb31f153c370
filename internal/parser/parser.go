package parser

import (
	"github.com/petal-lang/petal/internal/ast"
	"github.com/petal-lang/petal/internal/lexer"
	"github.com/petal-lang/petal/internal/types"
)

// Parser turns a lexeme stream into an ast.Program. A failure inside a
// top-level item is recorded and the parser resynchronizes at the next
// top-level keyword, so one bad function does not hide the rest of the file.
type Parser struct {
	file   string
	tokens []lexer.Lexeme
	pos    int
	errors []error
}

func New(file string, tokens []lexer.Lexeme) *Parser {
	if len(tokens) == 0 {
		tokens = []lexer.Lexeme{{Type: lexer.LEX_EOF, Line: 1, Col: 1}}
	}
	return &Parser{file: file, tokens: tokens}
}

// Errors returns the errors recorded for skipped top-level items.
func (p *Parser) Errors() []error {
	return p.errors
}

func (p *Parser) peek() lexer.Lexeme {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos]
}

// peekAt looks ahead without consuming; offset 0 is the current lexeme.
func (p *Parser) peekAt(offset int) lexer.Lexeme {
	if p.pos+offset >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+offset]
}

func (p *Parser) next() lexer.Lexeme {
	lexeme := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return lexeme
}

func (p *Parser) atEOF() bool {
	return p.peek().Type == lexer.LEX_EOF
}

func (p *Parser) expectIdent() (lexer.Lexeme, *Error) {
	lexeme := p.peek()
	if lexeme.Type != lexer.LEX_IDENT {
		return lexeme, p.unexpected(lexeme, "identifier")
	}
	return p.next(), nil
}

func (p *Parser) expectPunctuation(pv string) (lexer.Lexeme, *Error) {
	lexeme := p.peek()
	if !lexeme.IsPunctuation(pv) {
		return lexeme, p.missing(lexeme, pv)
	}
	return p.next(), nil
}

func (p *Parser) expectOperator(op string) (lexer.Lexeme, *Error) {
	lexeme := p.peek()
	if !lexeme.IsOperator(op) {
		return lexeme, p.missing(lexeme, op)
	}
	return p.next(), nil
}

// expectTerminator consumes the statement terminator. Its absence is a
// syntax error at the offending lexeme, not a silent recovery.
func (p *Parser) expectTerminator() *Error {
	lexeme := p.peek()
	if !lexeme.IsPunctuation(";") {
		return p.errorAt(SyntaxError, lexeme, "missing ';' after statement, got %s", lexeme)
	}
	p.next()
	return nil
}

// ParseProgram parses all top-level items. Items that fail to parse are
// recorded in Errors() and skipped.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}
	for !p.atEOF() {
		lexeme := p.peek()
		switch {
		case lexeme.IsKeyword("fn"):
			fn, err := p.parseFunction()
			if err != nil {
				p.errors = append(p.errors, err)
				p.skipTopLevel()
				continue
			}
			program.Functions = append(program.Functions, fn)
		case lexeme.IsKeyword("struct"):
			st, err := p.parseStruct()
			if err != nil {
				p.errors = append(p.errors, err)
				p.skipTopLevel()
				continue
			}
			program.Structs = append(program.Structs, st)
		case lexeme.IsKeyword("pub") || lexeme.IsKeyword("enum") || lexeme.IsKeyword("impl"):
			p.errors = append(p.errors, p.errorAt(GenericError, lexeme, "%q items are not supported", lexeme.Str))
			p.next()
			p.skipTopLevel()
		default:
			p.errors = append(p.errors, p.unexpected(lexeme, "'fn' or 'struct'"))
			p.next()
		}
	}
	return program
}

// skipTopLevel advances to the next top-level 'fn' or 'struct' keyword,
// skipping over balanced braces.
func (p *Parser) skipTopLevel() {
	depth := 0
	for !p.atEOF() {
		lexeme := p.peek()
		if depth == 0 && (lexeme.IsKeyword("fn") || lexeme.IsKeyword("struct")) {
			return
		}
		if lexeme.IsPunctuation("{") {
			depth++
		} else if lexeme.IsPunctuation("}") {
			depth--
			if depth <= 0 {
				p.next()
				return
			}
		}
		p.next()
	}
}

func (p *Parser) parseFunction() (*ast.Function, *Error) {
	if _, err := p.expectKeyword("fn"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunctuation("("); err != nil {
		return nil, err
	}

	var params []*ast.Param
	for !p.peek().IsPunctuation(")") {
		if len(params) > 0 {
			if _, err := p.expectPunctuation(","); err != nil {
				return nil, err
			}
		}
		param, err := p.parseParam()
		if err != nil {
			return nil, err
		}
		params = append(params, param)
	}
	p.next() // consume ')'

	returnType := ""
	if p.peek().IsOperator("->") {
		p.next()
		typeName, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		returnType = typeName.Str
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	return &ast.Function{
		Name:       name.Str,
		Params:     params,
		ReturnType: returnType,
		Body:       body,
	}, nil
}

func (p *Parser) expectKeyword(kw string) (lexer.Lexeme, *Error) {
	lexeme := p.peek()
	if !lexeme.IsKeyword(kw) {
		return lexeme, p.unexpected(lexeme, "'"+kw+"'")
	}
	return p.next(), nil
}

func (p *Parser) parseParam() (*ast.Param, *Error) {
	lexeme := p.peek()
	if lexeme.Type != lexer.LEX_IDENT {
		return nil, p.errorAt(InvalidParameter, lexeme, "expected parameter name, got %s", lexeme)
	}
	name := p.next()
	if sep := p.peek(); !sep.IsPunctuation(":") {
		return nil, p.errorAt(InvalidParameter, sep, "expected ':' after parameter %q, got %s", name.Str, sep)
	}
	p.next()
	typeName := p.peek()
	if typeName.Type != lexer.LEX_IDENT {
		return nil, p.errorAt(InvalidParameter, typeName, "expected parameter type, got %s", typeName)
	}
	p.next()
	return &ast.Param{Name: name.Str, Type: typeName.Str}, nil
}

func (p *Parser) parseStruct() (*ast.StructDeclaration, *Error) {
	if _, err := p.expectKeyword("struct"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunctuation("{"); err != nil {
		return nil, err
	}

	var fields []*ast.Param
	for !p.peek().IsPunctuation("}") {
		if p.atEOF() {
			return nil, p.unexpected(p.peek(), "'}'")
		}
		field, err := p.parseParam()
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
		if p.peek().IsPunctuation(",") {
			p.next()
		} else if !p.peek().IsPunctuation("}") {
			return nil, p.missing(p.peek(), ",")
		}
	}
	p.next() // consume '}'

	return &ast.StructDeclaration{Name: name.Str, Fields: fields}, nil
}

func (p *Parser) parseBlock() (*ast.Block, *Error) {
	if _, err := p.expectPunctuation("{"); err != nil {
		return nil, err
	}
	block := &ast.Block{}
	for !p.peek().IsPunctuation("}") {
		if p.atEOF() {
			return nil, p.unexpected(p.peek(), "'}'")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Statements = append(block.Statements, *stmt)
	}
	p.next() // consume '}'
	return block, nil
}

func (p *Parser) parseStatement() (*ast.Statement, *Error) {
	lexeme := p.peek()
	switch {
	case lexeme.IsKeyword("ret"):
		return p.parseReturn()
	case lexeme.IsKeyword("if"):
		return p.parseIf()
	case lexeme.IsKeyword("loop"):
		p.next()
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &ast.Statement{LoopStatement: &ast.LoopStatement{Body: *body}}, nil
	case lexeme.IsKeyword("while"):
		return p.parseWhile()
	case lexeme.IsKeyword("for"):
		return p.parseFor()
	case lexeme.IsKeyword("break"):
		p.next()
		if err := p.expectTerminator(); err != nil {
			return nil, err
		}
		return &ast.Statement{BreakStatement: &ast.BreakStatement{}}, nil
	case lexeme.IsKeyword("continue"):
		p.next()
		if err := p.expectTerminator(); err != nil {
			return nil, err
		}
		return &ast.Statement{ContinueStatement: &ast.ContinueStatement{}}, nil
	case lexeme.IsKeyword("let"):
		return p.parseLet()
	case lexeme.Type == lexer.LEX_IDENT:
		// One lexeme of lookahead decides between a declaration, an
		// assignment and a bare expression statement.
		second := p.peekAt(1)
		switch {
		case second.IsPunctuation(":"):
			return p.parseExplicitDeclaration()
		case second.IsOperator(":="):
			return p.parseInferredDeclaration()
		case second.IsOperator("="):
			return p.parseAssignment()
		}
		return p.parseExpressionStatement()
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseReturn() (*ast.Statement, *Error) {
	p.next() // consume 'ret'
	if p.peek().IsPunctuation(";") {
		p.next()
		return &ast.Statement{ReturnStatement: &ast.ReturnStatement{}}, nil
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectTerminator(); err != nil {
		return nil, err
	}
	return &ast.Statement{ReturnStatement: &ast.ReturnStatement{Value: value}}, nil
}

func (p *Parser) parseIf() (*ast.Statement, *Error) {
	p.next() // consume 'if'
	condition, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	thenBlock, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	stmt := &ast.IfStatement{Condition: *condition, ThenBlock: *thenBlock}
	if p.peek().IsKeyword("else") {
		p.next()
		if p.peek().IsKeyword("if") {
			// An else-if chain nests as a single-statement else block.
			elseIf, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			stmt.ElseBlock = &ast.Block{Statements: []ast.Statement{*elseIf}}
		} else {
			elseBlock, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			stmt.ElseBlock = elseBlock
		}
	}
	return &ast.Statement{IfStatement: stmt}, nil
}

func (p *Parser) parseWhile() (*ast.Statement, *Error) {
	p.next() // consume 'while'
	condition, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.Statement{WhileStatement: &ast.WhileStatement{Condition: *condition, Body: *body}}, nil
}

func (p *Parser) parseFor() (*ast.Statement, *Error) {
	p.next() // consume 'for'
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectOperator(":="); err != nil {
		return nil, err
	}
	init, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunctuation(";"); err != nil {
		return nil, err
	}
	condition, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.Statement{ForStatement: &ast.ForStatement{
		VarName:   name.Str,
		Init:      *init,
		Condition: *condition,
		Body:      *body,
	}}, nil
}

func (p *Parser) parseLet() (*ast.Statement, *Error) {
	p.next() // consume 'let'
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if p.peek().IsOperator(":=") {
		p.next()
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expectTerminator(); err != nil {
			return nil, err
		}
		return &ast.Statement{InferredDeclaration: &ast.InferredDeclaration{Name: name.Str, Value: *value}}, nil
	}
	return p.parseDeclarationTail(name.Str)
}

func (p *Parser) parseExplicitDeclaration() (*ast.Statement, *Error) {
	name := p.next()
	return p.parseDeclarationTail(name.Str)
}

// parseDeclarationTail parses `: type [= expr] ;` after the declared name.
func (p *Parser) parseDeclarationTail(name string) (*ast.Statement, *Error) {
	if _, err := p.expectPunctuation(":"); err != nil {
		return nil, err
	}
	typeName, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	decl := &ast.VariableDeclaration{Name: name, Type: typeName.Str}
	if p.peek().IsOperator("=") {
		p.next()
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		decl.Value = value
	}
	if err := p.expectTerminator(); err != nil {
		return nil, err
	}
	return &ast.Statement{VariableDeclaration: decl}, nil
}

func (p *Parser) parseInferredDeclaration() (*ast.Statement, *Error) {
	name := p.next()
	p.next() // consume ':='
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectTerminator(); err != nil {
		return nil, err
	}
	return &ast.Statement{InferredDeclaration: &ast.InferredDeclaration{Name: name.Str, Value: *value}}, nil
}

func (p *Parser) parseAssignment() (*ast.Statement, *Error) {
	name := p.next()
	p.next() // consume '='
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectTerminator(); err != nil {
		return nil, err
	}
	return &ast.Statement{Assignment: &ast.Assignment{VariableName: name.Str, Value: *value}}, nil
}

func (p *Parser) parseExpressionStatement() (*ast.Statement, *Error) {
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectTerminator(); err != nil {
		return nil, err
	}
	return &ast.Statement{ExpressionStatement: &ast.ExpressionStatement{Expression: *expr}}, nil
}

// Expression precedence, loosest first: cast, logical, bitwise, shift,
// additive, multiplicative, factor.

func (p *Parser) parseExpression() (*ast.Expression, *Error) {
	return p.parseCast()
}

func (p *Parser) parseCast() (*ast.Expression, *Error) {
	expr, err := p.parseLogical()
	if err != nil {
		return nil, err
	}
	for p.peek().IsKeyword("as") {
		p.next()
		typeName, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		expr = &ast.Expression{Cast: &ast.Cast{
			Value:      *expr,
			TargetType: typeName.Str,
			Primitive:  types.IsPrimitiveName(typeName.Str),
		}}
	}
	return expr, nil
}

func (p *Parser) parseBinaryLayer(operators []string, operand func() (*ast.Expression, *Error)) (*ast.Expression, *Error) {
	left, err := operand()
	if err != nil {
		return nil, err
	}
	for {
		matched := ""
		for _, op := range operators {
			if p.peek().IsOperator(op) {
				matched = op
				break
			}
		}
		if matched == "" {
			return left, nil
		}
		p.next()
		right, err := operand()
		if err != nil {
			return nil, err
		}
		left = &ast.Expression{BinaryOperation: &ast.BinaryOperation{
			Left:     *left,
			Operator: matched,
			Right:    *right,
		}}
	}
}

func (p *Parser) parseLogical() (*ast.Expression, *Error) {
	return p.parseBinaryLayer([]string{"&&", "||"}, p.parseBitwise)
}

func (p *Parser) parseBitwise() (*ast.Expression, *Error) {
	return p.parseBinaryLayer([]string{"&", "|", "^"}, p.parseShift)
}

func (p *Parser) parseShift() (*ast.Expression, *Error) {
	return p.parseBinaryLayer([]string{"<<", ">>"}, p.parseAdditive)
}

func (p *Parser) parseAdditive() (*ast.Expression, *Error) {
	return p.parseBinaryLayer([]string{"+", "-"}, p.parseTerm)
}

func (p *Parser) parseTerm() (*ast.Expression, *Error) {
	return p.parseBinaryLayer([]string{"*", "/", "%"}, p.parseFactor)
}

func (p *Parser) parseFactor() (*ast.Expression, *Error) {
	lexeme := p.peek()
	switch {
	case lexeme.Type == lexer.LEX_NUMBER:
		p.next()
		return &ast.Expression{Literal: ast.NewNumberLiteral(lexeme.Str)}, nil
	case lexeme.Type == lexer.LEX_CHAR:
		p.next()
		return &ast.Expression{Literal: ast.NewCharLiteral(lexeme.Str)}, nil
	case lexeme.Type == lexer.LEX_STRING:
		p.next()
		return &ast.Expression{Literal: ast.NewStringLiteral(lexeme.Str)}, nil
	case lexeme.IsKeyword("true"):
		p.next()
		return &ast.Expression{Literal: ast.NewBoolLiteral(true)}, nil
	case lexeme.IsKeyword("false"):
		p.next()
		return &ast.Expression{Literal: ast.NewBoolLiteral(false)}, nil
	case lexeme.Type == lexer.LEX_IDENT:
		if p.peekAt(1).IsPunctuation("(") {
			return p.parseCall()
		}
		p.next()
		return &ast.Expression{VariableReference: &ast.VariableReference{Name: lexeme.Str}}, nil
	case lexeme.IsPunctuation("("):
		p.next()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunctuation(")"); err != nil {
			return nil, err
		}
		return expr, nil
	case lexeme.IsOperator("!"):
		p.next()
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return &ast.Expression{UnaryOperation: &ast.UnaryOperation{Operator: "!", Operand: *operand}}, nil
	case lexeme.IsOperator("-") && p.peekAt(1).Type == lexer.LEX_NUMBER:
		// A leading minus folds into the literal text and is resolved
		// when the literal is parsed during lowering.
		p.next()
		number := p.next()
		return &ast.Expression{Literal: ast.NewNumberLiteral("-" + number.Str)}, nil
	default:
		return nil, p.unexpected(lexeme, "expression")
	}
}

func (p *Parser) parseCall() (*ast.Expression, *Error) {
	name := p.next()
	p.next() // consume '('
	call := &ast.FunctionCall{FunctionName: name.Str}
	for !p.peek().IsPunctuation(")") {
		if p.atEOF() {
			return nil, p.unexpected(p.peek(), "')'")
		}
		if len(call.Args) > 0 {
			if _, err := p.expectPunctuation(","); err != nil {
				return nil, err
			}
		}
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, *arg)
	}
	p.next() // consume ')'
	return &ast.Expression{FunctionCall: call}, nil
}
