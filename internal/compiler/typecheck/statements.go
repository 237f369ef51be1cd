// Statement analysis: declarations, assignment fixation, control flow, and
// the loop/global/function tips that key off statement shape.

package typecheck

import "github.com/btouchard/luma/internal/compiler/ast"

func (a *Analyzer) analyseBlock(block *ast.BlockStmt) {
	if block == nil {
		return
	}
	for _, stmt := range block.Statements {
		a.analyseStatement(stmt)
	}
}

// analyseScopedBlock runs block inside a fresh lexical scope.
func (a *Analyzer) analyseScopedBlock(block *ast.BlockStmt) {
	a.pushScope()
	a.analyseBlock(block)
	a.popScope()
}

func (a *Analyzer) analyseStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.BlockStmt:
		a.analyseScopedBlock(s)

	case *ast.LocalDeclStmt:
		a.analyseLocalDecl(s)

	case *ast.GlobalDeclStmt:
		a.analyseGlobalDecl(s)

	case *ast.LocalFunctionStmt:
		a.analyseLocalFunctionStmt(s)

	case *ast.FunctionStmt:
		a.analyseFunctionStmt(s)

	case *ast.AssignmentStmt:
		a.analyseAssignment(s)

	case *ast.IfStmt:
		for _, clause := range s.Clauses {
			if clause.Condition != nil {
				a.inferExpressionType(clause.Condition)
			}
			a.analyseScopedBlock(clause.Block)
		}

	case *ast.WhileStmt:
		a.inferExpressionType(s.Loop.Condition)
		a.loopDepth++
		a.analyseScopedBlock(s.Loop.Body)
		a.loopDepth--

	case *ast.RepeatStmt:
		// `until` sees the body's locals, so the condition is analysed
		// inside the same scope rather than after it pops.
		a.loopDepth++
		a.pushScope()
		a.analyseBlock(s.Loop.Body)
		a.inferExpressionType(s.Loop.Condition)
		a.popScope()
		a.loopDepth--

	case *ast.NumericForStmt:
		a.inferExpressionType(s.Start)
		a.inferExpressionType(s.Stop)
		if s.Step != nil {
			a.inferExpressionType(s.Step)
		}
		a.loopDepth++
		a.pushScope()
		a.declareLocal(&Symbol{Name: s.Control.Name(), Type: ast.Num, IsFixed: true, DeclSpan: s.Control.SourceSpan})
		a.analyseBlock(s.Body)
		a.popScope()
		a.loopDepth--

	case *ast.GenericForStmt:
		for _, it := range s.Iterators {
			a.inferExpressionType(it)
		}
		a.loopDepth++
		a.pushScope()
		for _, n := range s.Names {
			a.declareLocal(&Symbol{Name: n.Name(), Type: ast.Any, DeclSpan: n.SourceSpan})
		}
		a.analyseBlock(s.Body)
		a.popScope()
		a.loopDepth--

	case *ast.DoStmt:
		a.analyseScopedBlock(s.Block)

	case *ast.DeferStmt:
		for _, arg := range s.Arguments {
			a.inferExpressionType(arg)
		}
		a.analyseFunctionPayload(s.Callable, s.SourceSpan)

	case *ast.ReturnStmt:
		a.analyseReturn(s)

	case *ast.TryExceptStmt:
		a.analyseScopedBlock(s.TryBlock)
		for _, clause := range s.ExceptClauses {
			a.pushScope()
			if clause.ExceptionVar != nil {
				a.declareLocal(&Symbol{Name: clause.ExceptionVar.Name(), Type: ast.Any, DeclSpan: clause.ExceptionVar.SourceSpan})
			}
			for _, code := range clause.FilterCodes {
				a.inferExpressionType(code)
			}
			a.analyseBlock(clause.Block)
			a.popScope()
		}
		if s.SuccessBlock != nil {
			a.analyseScopedBlock(s.SuccessBlock)
		}

	case *ast.RaiseStmt:
		a.inferExpressionType(s.ErrorCode)
		if s.Message != nil {
			a.inferExpressionType(s.Message)
		}

	case *ast.CheckStmt:
		a.inferExpressionType(s.ErrorCode)

	case *ast.ImportStmt:
		if s.InlinedBody != nil {
			a.analyseScopedBlock(s.InlinedBody)
		}

	case *ast.NamespaceStmt:
		if s.Desugared != nil {
			a.analyseLocalDecl(s.Desugared)
		}

	case *ast.ConditionalShorthandStmt:
		a.inferExpressionType(s.Condition)
		a.analyseStatement(s.Body)

	case *ast.ExpressionStmt:
		a.inferExpressionType(s.ExprNode)

	case *ast.BreakStmt, *ast.ContinueStmt:
		// no analysis needed

	}
}

