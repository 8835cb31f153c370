package ast

import (
	"fmt"
	"strings"

	"github.com/petal-lang/petal/internal/util"
)

type Program struct {
	Structs   []*StructDeclaration
	Functions []*Function
}

func (p *Program) String() string {
	var sb strings.Builder
	sb.WriteString("(program")
	for _, st := range p.Structs {
		sb.WriteString(" ")
		sb.WriteString(st.String())
	}
	for _, fn := range p.Functions {
		sb.WriteString(" ")
		sb.WriteString(fn.String())
	}
	sb.WriteString(")")
	return sb.String()
}

type Function struct {
	Name       string
	Params     []*Param
	ReturnType string // empty when the function returns nothing
	Body       *Block
}

func (f *Function) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("(fn %s (", f.Name))
	for i, param := range f.Params {
		sb.WriteString(param.String())
		if i != len(f.Params)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString(")")
	if f.ReturnType != "" {
		sb.WriteString(" -> ")
		sb.WriteString(f.ReturnType)
	}
	sb.WriteString(" ")
	sb.WriteString(f.Body.String())
	sb.WriteString(")")
	return sb.String()
}

type Param struct {
	Name string
	Type string
}

func (p Param) String() string {
	return fmt.Sprintf("(%s %s)", p.Name, p.Type)
}

type StructDeclaration struct {
	Name   string
	Fields []*Param
}

func (s *StructDeclaration) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("(struct %s", s.Name))
	for _, field := range s.Fields {
		sb.WriteString(" ")
		sb.WriteString(field.String())
	}
	sb.WriteString(")")
	return sb.String()
}

type Block struct {
	Statements []Statement
}

func (b *Block) String() string {
	var sb strings.Builder
	sb.WriteString("(block")
	for _, stmt := range b.Statements {
		sb.WriteString(" ")
		sb.WriteString(stmt.String())
	}
	sb.WriteString(")")
	return sb.String()
}

// Statement is a closed union: exactly one field is non-nil.
type Statement struct {
	VariableDeclaration *VariableDeclaration
	InferredDeclaration *InferredDeclaration
	Assignment          *Assignment
	ExpressionStatement *ExpressionStatement
	ReturnStatement     *ReturnStatement
	IfStatement         *IfStatement
	LoopStatement       *LoopStatement
	WhileStatement      *WhileStatement
	ForStatement        *ForStatement
	BreakStatement      *BreakStatement
	ContinueStatement   *ContinueStatement
}

func (s *Statement) String() string {
	if s.VariableDeclaration != nil {
		return s.VariableDeclaration.String()
	} else if s.InferredDeclaration != nil {
		return s.InferredDeclaration.String()
	} else if s.Assignment != nil {
		return s.Assignment.String()
	} else if s.ExpressionStatement != nil {
		return s.ExpressionStatement.String()
	} else if s.ReturnStatement != nil {
		return s.ReturnStatement.String()
	} else if s.IfStatement != nil {
		return s.IfStatement.String()
	} else if s.LoopStatement != nil {
		return s.LoopStatement.String()
	} else if s.WhileStatement != nil {
		return s.WhileStatement.String()
	} else if s.ForStatement != nil {
		return s.ForStatement.String()
	} else if s.BreakStatement != nil {
		return s.BreakStatement.String()
	} else if s.ContinueStatement != nil {
		return s.ContinueStatement.String()
	}
	panic(fmt.Sprintf("unsupported statement type: %v", *s))
}

// Expression is a closed union: exactly one field is non-nil.
type Expression struct {
	Literal           *Literal
	VariableReference *VariableReference
	FunctionCall      *FunctionCall
	BinaryOperation   *BinaryOperation
	UnaryOperation    *UnaryOperation
	Cast              *Cast
}

func (e *Expression) String() string {
	if e.Literal != nil {
		return e.Literal.String()
	} else if e.VariableReference != nil {
		return e.VariableReference.String()
	} else if e.FunctionCall != nil {
		return e.FunctionCall.String()
	} else if e.BinaryOperation != nil {
		return e.BinaryOperation.String()
	} else if e.UnaryOperation != nil {
		return e.UnaryOperation.String()
	} else if e.Cast != nil {
		return e.Cast.String()
	}
	panic(fmt.Sprintf("invalid expression type: %v", *e))
}

// Literal keeps the lexeme text for numbers; it is parsed into a value
// only when the expression is lowered.
type Literal struct {
	Number      *string
	CharValue   *string
	StringValue *string
	BoolValue   *bool
}

func (l *Literal) String() string {
	if l.Number != nil {
		return *l.Number
	} else if l.CharValue != nil {
		return fmt.Sprintf("'%s'", util.EscapeString(*l.CharValue))
	} else if l.StringValue != nil {
		return fmt.Sprintf("\"%s\"", util.EscapeString(*l.StringValue))
	} else if l.BoolValue != nil {
		return fmt.Sprintf("%t", *l.BoolValue)
	}
	panic(fmt.Sprintf("unknown literal type: %v", *l))
}

func NewNumberLiteral(text string) *Literal {
	return &Literal{Number: &text}
}

func NewCharLiteral(value string) *Literal {
	return &Literal{CharValue: &value}
}

func NewStringLiteral(value string) *Literal {
	return &Literal{StringValue: &value}
}

func NewBoolLiteral(value bool) *Literal {
	return &Literal{BoolValue: &value}
}

type VariableReference struct {
	Name string
}

func (v *VariableReference) String() string {
	return v.Name
}

type FunctionCall struct {
	FunctionName string
	Args         []Expression
}

func (f *FunctionCall) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("(%s", f.FunctionName))
	for _, arg := range f.Args {
		sb.WriteString(" ")
		sb.WriteString(arg.String())
	}
	sb.WriteString(")")
	return sb.String()
}

type BinaryOperation struct {
	Left     Expression
	Operator string
	Right    Expression
}

func (b *BinaryOperation) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Operator, b.Left.String(), b.Right.String())
}

type UnaryOperation struct {
	Operator string
	Operand  Expression
}

func (u *UnaryOperation) String() string {
	return fmt.Sprintf("(%s %s)", u.Operator, u.Operand.String())
}

// Cast wraps an expression with `as`. Primitive is set when the target
// names one of the built-in scalar types.
type Cast struct {
	Value      Expression
	TargetType string
	Primitive  bool
}

func (c *Cast) String() string {
	return fmt.Sprintf("(as %s %s)", c.TargetType, c.Value.String())
}

// VariableDeclaration covers both `let x: t = e;` and `x: t = e;`.
// Value may be nil for a bare declaration.
type VariableDeclaration struct {
	Name  string
	Type  string
	Value *Expression
}

func (d *VariableDeclaration) String() string {
	if d.Value == nil {
		return fmt.Sprintf("(decl %s %s)", d.Name, d.Type)
	}
	return fmt.Sprintf("(decl %s %s %s)", d.Name, d.Type, d.Value.String())
}

// InferredDeclaration is the walrus form `x := e;`.
type InferredDeclaration struct {
	Name  string
	Value Expression
}

func (d *InferredDeclaration) String() string {
	return fmt.Sprintf("(:= %s %s)", d.Name, d.Value.String())
}

type Assignment struct {
	VariableName string
	Value        Expression
}

func (a *Assignment) String() string {
	return fmt.Sprintf("(= %s %s)", a.VariableName, a.Value.String())
}

type ExpressionStatement struct {
	Expression Expression
}

func (s *ExpressionStatement) String() string {
	return s.Expression.String()
}

type ReturnStatement struct {
	Value *Expression // optional return value
}

func (r *ReturnStatement) String() string {
	if r.Value == nil {
		return "(ret)"
	}
	return fmt.Sprintf("(ret %s)", r.Value.String())
}

type IfStatement struct {
	Condition Expression
	ThenBlock Block
	ElseBlock *Block // optional
}

func (i *IfStatement) String() string {
	if i.ElseBlock == nil {
		return fmt.Sprintf("(if %s %s)", i.Condition.String(), i.ThenBlock.String())
	}
	return fmt.Sprintf("(if %s %s %s)", i.Condition.String(), i.ThenBlock.String(), i.ElseBlock.String())
}

type LoopStatement struct {
	Body Block
}

func (l *LoopStatement) String() string {
	return fmt.Sprintf("(loop %s)", l.Body.String())
}

type WhileStatement struct {
	Condition Expression
	Body      Block
}

func (w *WhileStatement) String() string {
	return fmt.Sprintf("(while %s %s)", w.Condition.String(), w.Body.String())
}

// ForStatement is the counted form `for i := start; cond { ... }`.
type ForStatement struct {
	VarName   string
	Init      Expression
	Condition Expression
	Body      Block
}

func (f *ForStatement) String() string {
	return fmt.Sprintf("(for (:= %s %s) %s %s)", f.VarName, f.Init.String(), f.Condition.String(), f.Body.String())
}

type BreakStatement struct {
}

func (b *BreakStatement) String() string {
	return "(break)"
}

type ContinueStatement struct {
}

func (c *ContinueStatement) String() string {
	return "(continue)"
}
