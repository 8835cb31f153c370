package ir

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/petal-lang/petal/internal/ast"
	"github.com/petal-lang/petal/internal/target"
	"github.com/petal-lang/petal/internal/types"
)

// astOpcodes maps source operators to IR opcodes. Logical and bitwise
// forms of and/or lower to the same instruction.
var astOpcodes = map[string]string{
	"+":  "add",
	"-":  "sub",
	"*":  "mul",
	"/":  "div",
	"%":  "mod",
	"&":  "and",
	"&&": "and",
	"|":  "or",
	"||": "or",
	"^":  "xor",
	"<<": "shl",
	">>": "shr",
}

// Generator lowers a checked program into a Module. Errors are collected
// rather than aborting, so one bad literal does not hide the next one.
type Generator struct {
	target      *target.Target
	module      *Module
	returnTypes map[string]types.Type

	ctx           *Context
	instructions  []Instruction
	breakLabel    string
	continueLabel string

	nextStringIndex int
	errors          []error
}

func NewGenerator(tgt *target.Target) *Generator {
	return &Generator{
		target:      tgt,
		module:      &Module{},
		returnTypes: make(map[string]types.Type),
	}
}

func Generate(program *ast.Program, tgt *target.Target) (*Module, error) {
	return NewGenerator(tgt).GenerateModule(program)
}

func (g *Generator) errorf(format string, args ...any) {
	g.errors = append(g.errors, fmt.Errorf(format, args...))
}

func (g *Generator) emit(instr Instruction) {
	g.instructions = append(g.instructions, instr)
}

func (g *Generator) GenerateModule(program *ast.Program) (*Module, error) {
	for _, fn := range program.Functions {
		if fn.ReturnType != "" {
			g.returnTypes[fn.Name] = types.FromName(fn.ReturnType)
		} else {
			g.returnTypes[fn.Name] = nil
		}
	}

	for _, fn := range program.Functions {
		g.generateFunction(fn)
	}

	if len(g.errors) > 0 {
		return nil, errors.Join(g.errors...)
	}
	return g.module, nil
}

func (g *Generator) generateFunction(fn *ast.Function) {
	g.ctx = NewContext(fn.Name, g.target)
	g.instructions = nil

	// Parameters get slots in declaration order and are saved from their
	// ABI registers on entry.
	for i, param := range fn.Params {
		if IsTemp(param.Name) {
			g.errorf("in function %s: name %q is reserved for temporaries", fn.Name, param.Name)
			return
		}
		paramType := types.FromName(param.Type)
		g.ctx.SetVarType(param.Name, paramType)
		size := types.SizeOf(paramType)
		g.ctx.AllocSlot(param.Name, size)
		g.emit(AllocStack{Var: param.Name, Size: size})

		reg, err := g.target.ArgRegister(i)
		if err != nil {
			g.errorf("in function %s: %v", fn.Name, err)
			return
		}
		g.emit(Store{Var: param.Name, Src: reg})
	}

	for i := range fn.Body.Statements {
		g.generateStatement(&fn.Body.Statements[i])
	}

	if n := len(g.instructions); n == 0 {
		g.emit(Return{})
	} else if _, ok := g.instructions[n-1].(Return); !ok {
		g.emit(Return{})
	}

	g.module.Functions = append(g.module.Functions, Function{
		Name:         fn.Name,
		Instructions: g.instructions,
		Offsets:      g.ctx.Offsets(),
		FrameSize:    g.ctx.FrameSize(),
	})
}

func (g *Generator) generateStatement(stmt *ast.Statement) {
	switch {
	case stmt.VariableDeclaration != nil:
		decl := stmt.VariableDeclaration
		g.generateDeclaration(decl.Name, types.FromName(decl.Type), decl.Value)
	case stmt.InferredDeclaration != nil:
		decl := stmt.InferredDeclaration
		g.generateDeclaration(decl.Name, g.expressionType(&decl.Value), &decl.Value)
	case stmt.Assignment != nil:
		assign := stmt.Assignment
		value := g.generateExpression(&assign.Value)
		g.emit(Store{Var: assign.VariableName, Src: value})
	case stmt.ExpressionStatement != nil:
		g.generateExpression(&stmt.ExpressionStatement.Expression)
	case stmt.ReturnStatement != nil:
		ret := stmt.ReturnStatement
		if ret.Value == nil {
			g.emit(Return{})
		} else {
			g.emit(Return{Value: g.generateExpression(ret.Value)})
		}
	case stmt.IfStatement != nil:
		g.generateIf(stmt.IfStatement)
	case stmt.LoopStatement != nil:
		startLabel := g.ctx.AllocLabel()
		endLabel := g.ctx.AllocLabel()
		g.emit(Label{Name: startLabel})
		g.generateLoopBody(&stmt.LoopStatement.Body, endLabel, startLabel)
		g.emit(Jump{Label: startLabel})
		g.emit(Label{Name: endLabel})
	case stmt.WhileStatement != nil:
		g.generateWhile(stmt.WhileStatement)
	case stmt.ForStatement != nil:
		g.generateFor(stmt.ForStatement)
	case stmt.BreakStatement != nil:
		g.emit(Jump{Label: g.breakLabel})
	case stmt.ContinueStatement != nil:
		g.emit(Jump{Label: g.continueLabel})
	default:
		panic(fmt.Sprintf("unsupported statement type: %v", *stmt))
	}
}

func (g *Generator) generateDeclaration(name string, typ types.Type, value *ast.Expression) {
	// Variables shaped like t<digits> would be indistinguishable from
	// generated temporaries in the allocator and in codegen operand
	// resolution, so they are rejected here.
	if IsTemp(name) {
		g.errorf("in function %s: name %q is reserved for temporaries", g.ctx.FunctionName, name)
		return
	}
	g.ctx.SetVarType(name, typ)
	size := types.SizeOf(typ)
	g.ctx.AllocSlot(name, size)
	g.emit(AllocStack{Var: name, Size: size})
	if value != nil {
		result := g.generateExpression(value)
		g.emit(Store{Var: name, Src: result})
	}
}

func (g *Generator) generateIf(stmt *ast.IfStatement) {
	cond := g.generateExpression(&stmt.Condition)
	thenLabel := g.ctx.AllocLabel()
	elseLabel := g.ctx.AllocLabel()
	g.emit(Branch{Cond: cond, TrueLabel: thenLabel, FalseLabel: elseLabel})
	g.emit(Label{Name: thenLabel})

	if stmt.ElseBlock == nil {
		g.generateBlock(&stmt.ThenBlock)
		g.emit(Label{Name: elseLabel})
		return
	}

	endLabel := g.ctx.AllocLabel()
	g.generateBlock(&stmt.ThenBlock)
	g.emit(Jump{Label: endLabel})
	g.emit(Label{Name: elseLabel})
	g.generateBlock(stmt.ElseBlock)
	g.emit(Label{Name: endLabel})
}

func (g *Generator) generateWhile(stmt *ast.WhileStatement) {
	startLabel := g.ctx.AllocLabel()
	bodyLabel := g.ctx.AllocLabel()
	endLabel := g.ctx.AllocLabel()

	g.emit(Label{Name: startLabel})
	cond := g.generateExpression(&stmt.Condition)
	g.emit(Branch{Cond: cond, TrueLabel: bodyLabel, FalseLabel: endLabel})
	g.emit(Label{Name: bodyLabel})
	g.generateLoopBody(&stmt.Body, endLabel, startLabel)
	g.emit(Jump{Label: startLabel})
	g.emit(Label{Name: endLabel})
}

func (g *Generator) generateFor(stmt *ast.ForStatement) {
	initType := g.expressionType(&stmt.Init)
	g.generateDeclaration(stmt.VarName, initType, &stmt.Init)

	startLabel := g.ctx.AllocLabel()
	bodyLabel := g.ctx.AllocLabel()
	endLabel := g.ctx.AllocLabel()

	g.emit(Label{Name: startLabel})
	cond := g.generateExpression(&stmt.Condition)
	g.emit(Branch{Cond: cond, TrueLabel: bodyLabel, FalseLabel: endLabel})
	g.emit(Label{Name: bodyLabel})
	g.generateLoopBody(&stmt.Body, endLabel, startLabel)
	g.emit(Jump{Label: startLabel})
	g.emit(Label{Name: endLabel})
}

// generateLoopBody lowers a loop body with break and continue targets set.
func (g *Generator) generateLoopBody(body *ast.Block, breakLabel, continueLabel string) {
	prevBreak, prevContinue := g.breakLabel, g.continueLabel
	g.breakLabel, g.continueLabel = breakLabel, continueLabel
	g.generateBlock(body)
	g.breakLabel, g.continueLabel = prevBreak, prevContinue
}

func (g *Generator) generateBlock(block *ast.Block) {
	for i := range block.Statements {
		g.generateStatement(&block.Statements[i])
	}
}

// generateExpression lowers an expression and returns the operand that
// holds its value.
func (g *Generator) generateExpression(expr *ast.Expression) string {
	switch {
	case expr.Literal != nil:
		return g.generateLiteral(expr.Literal)
	case expr.VariableReference != nil:
		temp := g.ctx.AllocTemp()
		g.emit(Load{Dest: temp, Var: expr.VariableReference.Name})
		return temp
	case expr.FunctionCall != nil:
		return g.generateCall(expr.FunctionCall)
	case expr.BinaryOperation != nil:
		binop := expr.BinaryOperation
		opcode, ok := astOpcodes[binop.Operator]
		if !ok {
			g.errorf("unsupported binary operator %q", binop.Operator)
			return ""
		}
		left := g.generateExpression(&binop.Left)
		right := g.generateExpression(&binop.Right)
		temp := g.ctx.AllocTemp()
		g.emit(BinaryOp{Dest: temp, Op: opcode, Left: left, Right: right})
		return temp
	case expr.UnaryOperation != nil:
		unop := expr.UnaryOperation
		if unop.Operator != "!" {
			g.errorf("unsupported unary operator %q", unop.Operator)
			return ""
		}
		value := g.generateExpression(&unop.Operand)
		temp := g.ctx.AllocTemp()
		g.emit(UnaryOp{Dest: temp, Op: "not", Value: value})
		return temp
	case expr.Cast != nil:
		// Casts change the static type only; the value is reused as is.
		return g.generateExpression(&expr.Cast.Value)
	default:
		panic(fmt.Sprintf("invalid expression type: %v", *expr))
	}
}

func (g *Generator) generateLiteral(lit *ast.Literal) string {
	temp := g.ctx.AllocTemp()
	switch {
	case lit.Number != nil:
		text := *lit.Number
		if strings.Contains(text, ".") {
			if _, err := strconv.ParseFloat(text, 64); err != nil {
				g.errorf("invalid number literal %q: %v", text, err)
				return temp
			}
			g.emit(LoadConstant{Dest: temp, Value: text})
			return temp
		}
		value, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			g.errorf("invalid number literal %q: %v", text, err)
			return temp
		}
		g.emit(LoadConstant{Dest: temp, Value: strconv.FormatInt(value, 10)})
		return temp
	case lit.CharValue != nil:
		runes := []rune(*lit.CharValue)
		var value int64
		if len(runes) > 0 {
			value = int64(runes[0])
		}
		g.emit(LoadConstant{Dest: temp, Value: strconv.FormatInt(value, 10)})
		return temp
	case lit.BoolValue != nil:
		value := "0"
		if *lit.BoolValue {
			value = "1"
		}
		g.emit(LoadConstant{Dest: temp, Value: value})
		return temp
	case lit.StringValue != nil:
		label := fmt.Sprintf(".Lstr%d", g.nextStringIndex)
		g.nextStringIndex++
		g.module.Globals = append(g.module.Globals, Global{Label: label, Value: *lit.StringValue})
		g.emit(LoadConstant{Dest: temp, Value: label})
		return temp
	default:
		panic(fmt.Sprintf("unknown literal type: %v", *lit))
	}
}

// generateCall evaluates arguments left to right into temporaries, then
// emits a single Call.
func (g *Generator) generateCall(call *ast.FunctionCall) string {
	var args []string
	for i := range call.Args {
		args = append(args, g.generateExpression(&call.Args[i]))
	}
	dest := ""
	if g.returnTypes[call.FunctionName] != nil {
		dest = g.ctx.AllocTemp()
	}
	g.emit(Call{Dest: dest, Function: call.FunctionName, Args: args})
	return dest
}

// expressionType mirrors the analyzer's typing rules for frame sizing.
func (g *Generator) expressionType(expr *ast.Expression) types.Type {
	switch {
	case expr.Literal != nil:
		lit := expr.Literal
		switch {
		case lit.Number != nil:
			if strings.Contains(*lit.Number, ".") {
				return types.F64
			}
			return types.I32
		case lit.CharValue != nil:
			return types.Char
		case lit.StringValue != nil:
			return types.Str
		default:
			return types.Bool
		}
	case expr.VariableReference != nil:
		if typ, ok := g.ctx.VarType(expr.VariableReference.Name); ok {
			return typ
		}
		return types.I32
	case expr.FunctionCall != nil:
		if typ := g.returnTypes[expr.FunctionCall.FunctionName]; typ != nil {
			return typ
		}
		return types.I32
	case expr.BinaryOperation != nil:
		return g.expressionType(&expr.BinaryOperation.Left)
	case expr.UnaryOperation != nil:
		return types.Bool
	case expr.Cast != nil:
		return types.FromName(expr.Cast.TargetType)
	default:
		panic(fmt.Sprintf("invalid expression type: %v", *expr))
	}
}
