// Expression type inference.

package typecheck

import "github.com/btouchard/luma/internal/compiler/ast"

// Inferred is the result of inferExpressionType: a primary type tag plus
// the flags the fixation/assignment rules need.
type Inferred struct {
	Primary    ast.Type
	IsConstant bool
	IsNullable bool
	IsFixed    bool
	ClassID    int
}

func concrete(t ast.Type) Inferred { return Inferred{Primary: t} }

// inferExpressionType walks expr's concrete kind to a type tag, and also
// performs the analysis side effects that ride along with inference:
// marking identifiers used and recursing into loop-sensitive
// subexpressions so the in-loop concat/global tips can fire.
func (a *Analyzer) inferExpressionType(expr ast.Expression) Inferred {
	switch e := expr.(type) {
	case *ast.LiteralExpr:
		switch e.Value.Kind {
		case ast.LiteralNil:
			return Inferred{Primary: ast.NilType, IsConstant: true, IsNullable: true}
		case ast.LiteralBool:
			return Inferred{Primary: ast.Bool, IsConstant: true}
		case ast.LiteralNum:
			return Inferred{Primary: ast.Num, IsConstant: true}
		case ast.LiteralStr:
			return Inferred{Primary: ast.Str, IsConstant: true}
		}
		return Inferred{Primary: ast.Any}

	case *ast.IdentifierExpr:
		return a.inferIdentifier(e)

	case *ast.VarArgExpr:
		return Inferred{Primary: ast.Any}

	case *ast.UnaryExpr:
		a.inferExpressionType(e.Operand)
		switch e.Op {
		case ast.OpNot:
			return concrete(ast.Bool)
		case ast.OpNegate, ast.OpBitNot, ast.OpLength:
			return concrete(ast.Num)
		}
		return concrete(ast.Any)

	case *ast.UpdateExpr:
		a.inferExpressionType(e.Operand)
		return concrete(ast.Num)

	case *ast.BinaryExpr:
		return a.inferBinary(e)

	case *ast.TernaryExpr:
		a.inferExpressionType(e.Condition)
		trueType := a.inferExpressionType(e.IfTrue)
		falseType := a.inferExpressionType(e.IfFalse)
		if trueType.Primary != ast.Unknown && trueType.Primary != ast.Any {
			return concrete(trueType.Primary)
		}
		return concrete(falseType.Primary)

	case *ast.PresenceExpr:
		return a.inferExpressionType(e.Value)

	case *ast.CallExpr:
		return a.inferCall(e)

	case *ast.MemberExpr:
		a.inferExpressionType(e.Table)
		return Inferred{Primary: ast.Any}

	case *ast.SafeMemberExpr:
		a.inferExpressionType(e.Table)
		return Inferred{Primary: ast.Any, IsNullable: true}

	case *ast.IndexExpr:
		a.inferExpressionType(e.Table)
		a.inferExpressionType(e.Index)
		return Inferred{Primary: ast.Any}

	case *ast.SafeIndexExpr:
		a.inferExpressionType(e.Table)
		a.inferExpressionType(e.Index)
		return Inferred{Primary: ast.Any, IsNullable: true}

	case *ast.TableExpr:
		for _, f := range e.Fields {
			if f.Key != nil {
				a.inferExpressionType(f.Key)
			}
			if f.Value != nil {
				a.inferExpressionType(f.Value)
			}
		}
		return concrete(ast.Table)

	case *ast.RangeExpr:
		a.inferExpressionType(e.Start)
		a.inferExpressionType(e.Stop)
		return Inferred{Primary: ast.Any}

	case *ast.FunctionExpr:
		a.analyseFunctionPayload(e.Function, e.SourceSpan)
		if a.loopDepth > 0 {
			a.tipf(2, categoryPerformance, e.SourceSpan, "function expression created inside a loop")
		}
		return concrete(ast.Func)

	case *ast.PipeExpr:
		a.inferExpressionType(e.LHS)
		return a.inferExpressionType(e.RHS)

	case *ast.ResultFilterExpr:
		return a.inferExpressionType(e.Call)

	case *ast.ChooseExpr:
		return a.inferChoose(e)
	}
	return Inferred{Primary: ast.Any}
}

func (a *Analyzer) inferIdentifier(e *ast.IdentifierExpr) Inferred {
	name := e.Name.Identifier.Name()
	sym, ok := a.lookup(name)
	if !ok {
		return Inferred{Primary: ast.Any}
	}
	if a.loopDepth > 0 {
		if _, isGlobal := a.globals[name]; isGlobal {
			a.tipf(2, categoryPerformance, e.SourceSpan, "global '%s' accessed inside a loop; consider caching it in a local", name)
		}
	}
	return Inferred{Primary: sym.Type, IsFixed: sym.IsFixed, ClassID: sym.ClassID}
}

func (a *Analyzer) inferBinary(e *ast.BinaryExpr) Inferred {
	left := a.inferExpressionType(e.Left)
	right := a.inferExpressionType(e.Right)

	switch e.Op {
	case ast.OpEqual, ast.OpNotEqual, ast.OpLessThan, ast.OpLessEqual, ast.OpGreaterThan, ast.OpGreaterEqual:
		return concrete(ast.Bool)
	case ast.OpConcat:
		if a.loopDepth > 0 {
			a.tipf(3, categoryPerformance, e.SourceSpan, "'..' concatenation inside a loop")
		}
		return concrete(ast.Str)
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod, ast.OpPower,
		ast.OpBitAnd, ast.OpBitOr, ast.OpBitXor, ast.OpShiftLeft, ast.OpShiftRight:
		return concrete(ast.Num)
	case ast.OpIfEmpty:
		if left.Primary != ast.Unknown && left.Primary != ast.Any {
			return concrete(left.Primary)
		}
		return concrete(right.Primary)
	case ast.OpLogicalAnd:
		if left.Primary != ast.Unknown && left.Primary != ast.Any && left.Primary == right.Primary {
			return concrete(left.Primary)
		}
		if left.Primary != ast.Unknown && left.Primary != ast.Any {
			return concrete(left.Primary)
		}
		if right.Primary != ast.Unknown && right.Primary != ast.Any {
			return concrete(right.Primary)
		}
		return Inferred{Primary: ast.Any}
	case ast.OpLogicalOr:
		if left.Primary != ast.Unknown && left.Primary != ast.Any && left.Primary == right.Primary {
			return concrete(left.Primary)
		}
		if right.Primary != ast.Unknown && right.Primary != ast.Any {
			return concrete(right.Primary)
		}
		if left.Primary != ast.Unknown && left.Primary != ast.Any {
			return concrete(left.Primary)
		}
		return Inferred{Primary: ast.Any}
	}
	return Inferred{Primary: ast.Any}
}

func (a *Analyzer) inferCall(e *ast.CallExpr) Inferred {
	switch e.Target.Kind {
	case ast.DirectCall:
		a.inferExpressionType(e.Target.Callable)
	case ast.MethodCall, ast.SafeMethodCall:
		a.inferExpressionType(e.Target.Receiver)
	}
	for _, arg := range e.Arguments {
		a.inferExpressionType(arg)
	}
	if e.ResultType != ast.Unknown {
		return Inferred{Primary: e.ResultType, ClassID: e.ObjectClassID}
	}
	return Inferred{Primary: a.inferCallReturnType(e, 0)}
}

// inferCallReturnType resolves a call's result type at a given multi-return
// position: slot `position` of the callee's explicit return-type
// declaration when one is visible, Any otherwise.
func (a *Analyzer) inferCallReturnType(e *ast.CallExpr, position int) ast.Type {
	if e.Target.Kind != ast.DirectCall {
		return ast.Any
	}
	ident, ok := e.Target.Callable.(*ast.IdentifierExpr)
	if !ok {
		return ast.Any
	}
	name := ident.Name.Identifier.Name()
	if fc := a.currentFunc(); fc.name != "" && fc.name == name {
		fc.selfCallSeen = true
	}
	sym, found := a.lookup(name)
	if !found || !sym.Returns.IsExplicit {
		return ast.Any
	}
	if position < int(sym.Returns.Count) {
		return sym.Returns.Types[position]
	}
	if sym.Returns.IsVariadic {
		return ast.Any
	}
	return ast.NilType
}

func (a *Analyzer) inferChoose(e *ast.ChooseExpr) Inferred {
	if e.Scrutinee != nil {
		a.inferExpressionType(e.Scrutinee)
	}
	for _, s := range e.ScrutineeTuple {
		a.inferExpressionType(s)
	}
	var result ast.Type
	first := true
	for _, c := range e.Cases {
		if c.Pattern != nil {
			a.inferExpressionType(c.Pattern)
		}
		for _, p := range c.TuplePatterns {
			a.inferExpressionType(p)
		}
		if c.Guard != nil {
			a.inferExpressionType(c.Guard)
		}
		var caseType ast.Type = ast.Any
		if c.Result != nil {
			caseType = a.inferExpressionType(c.Result).Primary
		} else if c.ResultStmt != nil {
			a.analyseStatement(c.ResultStmt)
		}
		if first {
			result = caseType
			first = false
		} else if result != caseType {
			result = ast.Any
		}
	}
	if first {
		return Inferred{Primary: ast.Any}
	}
	return concrete(result)
}
