package semantic

import (
	"fmt"
	"strings"

	"github.com/petal-lang/petal/internal/ast"
	"github.com/petal-lang/petal/internal/types"
)

// Analyzer checks one program against the declaration and typing rules.
// It stops at the first error.
type Analyzer struct {
	ctx       *Context
	loopDepth int
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{ctx: NewContext()}
}

// Context exposes the symbol table built during analysis, for lowering.
func (a *Analyzer) Context() *Context {
	return a.ctx
}

func Analyze(program *ast.Program) error {
	return NewAnalyzer().AnalyzeProgram(program)
}

func (a *Analyzer) AnalyzeProgram(program *ast.Program) error {
	a.ctx.PushScope()
	defer a.ctx.PopScope()

	for _, st := range program.Structs {
		structType, err := a.resolveStruct(st)
		if err != nil {
			return err
		}
		if err := a.ctx.Declare(Symbol{Name: st.Name, Kind: StructSymbol, Type: structType}); err != nil {
			return err
		}
	}

	// Functions are registered before any body is analyzed so that calls
	// do not depend on definition order.
	for _, fn := range program.Functions {
		fnType, err := a.signatureType(fn)
		if err != nil {
			return err
		}
		if err := a.ctx.Declare(Symbol{Name: fn.Name, Kind: FunctionSymbol, Type: fnType}); err != nil {
			return err
		}
	}

	for _, fn := range program.Functions {
		if err := a.analyzeFunction(fn); err != nil {
			return fmt.Errorf("in function %s: %w", fn.Name, err)
		}
	}
	return nil
}

func (a *Analyzer) resolveStruct(st *ast.StructDeclaration) (*types.Struct, error) {
	structType := &types.Struct{Name: st.Name}
	for _, field := range st.Fields {
		fieldType, err := a.resolveTypeName(field.Type)
		if err != nil {
			return nil, fmt.Errorf("in struct %s: %w", st.Name, err)
		}
		structType.Fields = append(structType.Fields, types.StructField{Name: field.Name, Type: fieldType})
	}
	return structType, nil
}

func (a *Analyzer) signatureType(fn *ast.Function) (*types.Function, error) {
	fnType := &types.Function{}
	for _, param := range fn.Params {
		paramType, err := a.resolveTypeName(param.Type)
		if err != nil {
			return nil, fmt.Errorf("in function %s: %w", fn.Name, err)
		}
		fnType.Params = append(fnType.Params, paramType)
	}
	if fn.ReturnType != "" {
		returnType, err := a.resolveTypeName(fn.ReturnType)
		if err != nil {
			return nil, fmt.Errorf("in function %s: %w", fn.Name, err)
		}
		fnType.Return = returnType
	}
	return fnType, nil
}

// resolveTypeName maps a type name to a known primitive or a declared struct.
func (a *Analyzer) resolveTypeName(name string) (types.Type, error) {
	if types.IsPrimitiveName(name) {
		return types.FromName(name), nil
	}
	sym, ok := a.ctx.Lookup(name)
	if !ok || sym.Kind != StructSymbol {
		return nil, fmt.Errorf("unknown type %q", name)
	}
	return sym.Type, nil
}

func (a *Analyzer) analyzeFunction(fn *ast.Function) error {
	fnSym, _ := a.ctx.Lookup(fn.Name)
	fnType := fnSym.Type.(*types.Function)

	a.ctx.PushScope()
	defer a.ctx.PopScope()

	for i, param := range fn.Params {
		err := a.ctx.Declare(Symbol{Name: param.Name, Kind: VariableSymbol, Type: fnType.Params[i]})
		if err != nil {
			return err
		}
	}

	prevReturn := a.ctx.currentReturn
	a.ctx.currentReturn = fnType.Return
	defer func() { a.ctx.currentReturn = prevReturn }()

	// Body statements share the parameter scope.
	for i := range fn.Body.Statements {
		if err := a.analyzeStatement(&fn.Body.Statements[i]); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) analyzeBlock(block *ast.Block) error {
	a.ctx.PushScope()
	defer a.ctx.PopScope()
	for i := range block.Statements {
		if err := a.analyzeStatement(&block.Statements[i]); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) analyzeStatement(stmt *ast.Statement) error {
	switch {
	case stmt.VariableDeclaration != nil:
		decl := stmt.VariableDeclaration
		declType, err := a.resolveTypeName(decl.Type)
		if err != nil {
			return err
		}
		if decl.Value != nil {
			valueType, err := a.analyzeValue(decl.Value)
			if err != nil {
				return err
			}
			if !valueType.Equals(declType) {
				return fmt.Errorf("cannot initialize %s %q with %s value", declType, decl.Name, valueType)
			}
		}
		return a.ctx.Declare(Symbol{Name: decl.Name, Kind: VariableSymbol, Type: declType})
	case stmt.InferredDeclaration != nil:
		decl := stmt.InferredDeclaration
		valueType, err := a.analyzeValue(&decl.Value)
		if err != nil {
			return err
		}
		return a.ctx.Declare(Symbol{Name: decl.Name, Kind: VariableSymbol, Type: valueType})
	case stmt.Assignment != nil:
		assign := stmt.Assignment
		sym, ok := a.ctx.Lookup(assign.VariableName)
		if !ok {
			return fmt.Errorf("assignment to undeclared variable %q", assign.VariableName)
		}
		if sym.Kind != VariableSymbol {
			return fmt.Errorf("cannot assign to %s %q", sym.Kind, assign.VariableName)
		}
		valueType, err := a.analyzeValue(&assign.Value)
		if err != nil {
			return err
		}
		if !valueType.Equals(sym.Type) {
			return fmt.Errorf("cannot assign %s value to %s %q", valueType, sym.Type, assign.VariableName)
		}
		return nil
	case stmt.ExpressionStatement != nil:
		_, err := a.analyzeExpression(&stmt.ExpressionStatement.Expression)
		return err
	case stmt.ReturnStatement != nil:
		return a.analyzeReturn(stmt.ReturnStatement)
	case stmt.IfStatement != nil:
		ifStmt := stmt.IfStatement
		if err := a.analyzeCondition(&ifStmt.Condition); err != nil {
			return err
		}
		if err := a.analyzeBlock(&ifStmt.ThenBlock); err != nil {
			return err
		}
		if ifStmt.ElseBlock != nil {
			return a.analyzeBlock(ifStmt.ElseBlock)
		}
		return nil
	case stmt.LoopStatement != nil:
		a.loopDepth++
		defer func() { a.loopDepth-- }()
		return a.analyzeBlock(&stmt.LoopStatement.Body)
	case stmt.WhileStatement != nil:
		whileStmt := stmt.WhileStatement
		if err := a.analyzeCondition(&whileStmt.Condition); err != nil {
			return err
		}
		a.loopDepth++
		defer func() { a.loopDepth-- }()
		return a.analyzeBlock(&whileStmt.Body)
	case stmt.ForStatement != nil:
		return a.analyzeFor(stmt.ForStatement)
	case stmt.BreakStatement != nil:
		if a.loopDepth == 0 {
			return fmt.Errorf("break outside of a loop")
		}
		return nil
	case stmt.ContinueStatement != nil:
		if a.loopDepth == 0 {
			return fmt.Errorf("continue outside of a loop")
		}
		return nil
	default:
		panic(fmt.Sprintf("unsupported statement type: %v", *stmt))
	}
}

func (a *Analyzer) analyzeReturn(ret *ast.ReturnStatement) error {
	expected := a.ctx.currentReturn
	if ret.Value == nil {
		if expected != nil {
			return fmt.Errorf("missing return value, expected %s", expected)
		}
		return nil
	}
	valueType, err := a.analyzeValue(ret.Value)
	if err != nil {
		return err
	}
	if expected == nil {
		return fmt.Errorf("unexpected return value in a function that returns nothing")
	}
	if !valueType.Equals(expected) {
		return fmt.Errorf("cannot return %s, expected %s", valueType, expected)
	}
	return nil
}

func (a *Analyzer) analyzeFor(forStmt *ast.ForStatement) error {
	a.ctx.PushScope()
	defer a.ctx.PopScope()

	initType, err := a.analyzeValue(&forStmt.Init)
	if err != nil {
		return err
	}
	err = a.ctx.Declare(Symbol{Name: forStmt.VarName, Kind: VariableSymbol, Type: initType})
	if err != nil {
		return err
	}
	if err := a.analyzeCondition(&forStmt.Condition); err != nil {
		return err
	}

	a.loopDepth++
	defer func() { a.loopDepth-- }()
	return a.analyzeBlock(&forStmt.Body)
}

// analyzeValue analyzes an expression that must produce a value; a call
// to a function that returns nothing is rejected here.
func (a *Analyzer) analyzeValue(expr *ast.Expression) (types.Type, error) {
	exprType, err := a.analyzeExpression(expr)
	if err != nil {
		return nil, err
	}
	if exprType == nil {
		return nil, fmt.Errorf("expression has no value")
	}
	return exprType, nil
}

// analyzeCondition accepts bool and integer conditions; nonzero means true.
func (a *Analyzer) analyzeCondition(cond *ast.Expression) error {
	condType, err := a.analyzeValue(cond)
	if err != nil {
		return err
	}
	if prim, ok := condType.(*types.Primitive); ok {
		switch prim.Name {
		case "bool", "i32", "i64", "u32", "u64", "usize", "char":
			return nil
		}
	}
	return fmt.Errorf("condition has type %s, expected bool or integer", condType)
}

func (a *Analyzer) analyzeExpression(expr *ast.Expression) (types.Type, error) {
	switch {
	case expr.Literal != nil:
		return a.literalType(expr.Literal), nil
	case expr.VariableReference != nil:
		name := expr.VariableReference.Name
		sym, ok := a.ctx.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("undeclared variable %q", name)
		}
		if sym.Kind != VariableSymbol {
			return nil, fmt.Errorf("%s %q used as a value", sym.Kind, name)
		}
		return sym.Type, nil
	case expr.FunctionCall != nil:
		return a.analyzeCall(expr.FunctionCall)
	case expr.BinaryOperation != nil:
		binop := expr.BinaryOperation
		leftType, err := a.analyzeValue(&binop.Left)
		if err != nil {
			return nil, err
		}
		rightType, err := a.analyzeValue(&binop.Right)
		if err != nil {
			return nil, err
		}
		if !leftType.Equals(rightType) {
			return nil, fmt.Errorf("operand type mismatch in %q: %s vs %s", binop.Operator, leftType, rightType)
		}
		return leftType, nil
	case expr.UnaryOperation != nil:
		unop := expr.UnaryOperation
		operandType, err := a.analyzeValue(&unop.Operand)
		if err != nil {
			return nil, err
		}
		if !operandType.Equals(types.Bool) {
			return nil, fmt.Errorf("operand of %q has type %s, expected bool", unop.Operator, operandType)
		}
		return operandType, nil
	case expr.Cast != nil:
		cast := expr.Cast
		if _, err := a.analyzeValue(&cast.Value); err != nil {
			return nil, err
		}
		return a.resolveTypeName(cast.TargetType)
	default:
		panic(fmt.Sprintf("invalid expression type: %v", *expr))
	}
}

func (a *Analyzer) literalType(lit *ast.Literal) types.Type {
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
	case lit.BoolValue != nil:
		return types.Bool
	default:
		panic(fmt.Sprintf("unknown literal type: %v", *lit))
	}
}

// analyzeCall checks that the callee exists and is a function. Argument
// counts and types are deliberately not checked here.
func (a *Analyzer) analyzeCall(call *ast.FunctionCall) (types.Type, error) {
	sym, ok := a.ctx.Lookup(call.FunctionName)
	if !ok {
		return nil, fmt.Errorf("call to undeclared function %q", call.FunctionName)
	}
	if sym.Kind != FunctionSymbol {
		return nil, fmt.Errorf("%s %q is not callable", sym.Kind, call.FunctionName)
	}
	for i := range call.Args {
		if _, err := a.analyzeExpression(&call.Args[i]); err != nil {
			return nil, err
		}
	}
	return sym.Type.(*types.Function).Return, nil
}
