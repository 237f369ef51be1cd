package typecheck

import (
	"testing"

	"github.com/btouchard/luma/internal/compiler/ast"
	"github.com/btouchard/luma/internal/compiler/diag"
	"github.com/btouchard/luma/internal/compiler/token"
)

func sp(line int) token.Span { return token.Span{Line: line, Column: 1} }

func ident(name string) ast.Identifier {
	n := name
	return ast.Identifier{Symbol: &n, SourceSpan: sp(1)}
}

func identTyped(name string, t ast.Type) ast.Identifier {
	id := ident(name)
	id.Type = t
	return id
}

func strLit(s string) *ast.LiteralExpr {
	v := s
	return &ast.LiteralExpr{SourceSpan: sp(1), Value: ast.LiteralValue{Kind: ast.LiteralStr, Str: &v}}
}

func numLit(n float64) *ast.LiteralExpr {
	return &ast.LiteralExpr{SourceSpan: sp(1), Value: ast.LiteralValue{Kind: ast.LiteralNum, Num: n}}
}

func idExpr(name string) *ast.IdentifierExpr {
	return &ast.IdentifierExpr{SourceSpan: sp(1), Name: ast.NameRef{Identifier: ident(name)}}
}

func run(t *testing.T, block *ast.BlockStmt, tipLevel int) (*diag.Sink, *diag.TipEmitter) {
	t.Helper()
	sink := diag.NewSink()
	tips := diag.NewTipEmitter(tipLevel)
	RunTypeAnalysis(block, sink, tips, Config{})
	return sink, tips
}

func hasCode(sink *diag.Sink, code diag.ErrorCode) bool {
	for _, d := range sink.Diagnostics() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestLocalDeclFixationRejectsMismatchedInitializer(t *testing.T) {
	block := &ast.BlockStmt{SourceSpan: sp(1), Statements: []ast.Statement{
		&ast.LocalDeclStmt{
			SourceSpan: sp(1),
			Names:      []ast.Identifier{identTyped("x", ast.Num)},
			Values:     []ast.Expression{strLit("hello")},
		},
	}}
	sink, _ := run(t, block, 0)
	if !hasCode(sink, diag.TypeMismatchAssignment) {
		t.Fatalf("expected TypeMismatchAssignment, got %+v", sink.Diagnostics())
	}
}

func TestUnfixedLocalFixesOnFirstConcreteInitializer(t *testing.T) {
	block := &ast.BlockStmt{SourceSpan: sp(1), Statements: []ast.Statement{
		&ast.LocalDeclStmt{
			SourceSpan: sp(1),
			Names:      []ast.Identifier{ident("x")},
			Values:     []ast.Expression{numLit(1)},
		},
		&ast.AssignmentStmt{
			SourceSpan: sp(2),
			Targets:    []ast.Expression{idExpr("x")},
			Values:     []ast.Expression{strLit("oops")},
		},
	}}
	sink, _ := run(t, block, 0)
	if !hasCode(sink, diag.TypeMismatchAssignment) {
		t.Fatalf("expected fixation from the numeric initializer to reject the later string assignment, got %+v", sink.Diagnostics())
	}
}

func TestConstReassignmentIsRejected(t *testing.T) {
	constName := ident("x")
	constName.HasConst = true
	block := &ast.BlockStmt{SourceSpan: sp(1), Statements: []ast.Statement{
		&ast.LocalDeclStmt{
			SourceSpan: sp(1),
			Names:      []ast.Identifier{constName},
			Values:     []ast.Expression{numLit(1)},
		},
		&ast.AssignmentStmt{
			SourceSpan: sp(2),
			Targets:    []ast.Expression{idExpr("x")},
			Values:     []ast.Expression{numLit(2)},
		},
	}}
	sink, _ := run(t, block, 0)
	if !hasCode(sink, diag.AssignToConstant) {
		t.Fatalf("expected AssignToConstant, got %+v", sink.Diagnostics())
	}
}

// `and`/`or` fall back to the *other* operand's concrete type when the
// preferred operand (left for `and`, right for `or`) is Any/Unknown,
// before giving up to Any.
func TestLogicalAndFallsBackToRightWhenLeftIsAny(t *testing.T) {
	fn := ast.FunctionExprPayload{
		Parameters: []ast.Param{
			{Name: ident("p1"), Type: ast.Any},
			{Name: ident("p2"), Type: ast.Num},
		},
		Body: &ast.BlockStmt{SourceSpan: sp(1), Statements: []ast.Statement{
			&ast.LocalDeclStmt{
				SourceSpan: sp(1),
				Names:      []ast.Identifier{ident("x")},
				Values: []ast.Expression{&ast.BinaryExpr{
					SourceSpan: sp(1), Op: ast.OpLogicalAnd, Left: idExpr("p1"), Right: idExpr("p2"),
				}},
			},
			&ast.AssignmentStmt{
				SourceSpan: sp(2),
				Targets:    []ast.Expression{idExpr("x")},
				Values:     []ast.Expression{strLit("oops")},
			},
		}},
	}
	block := &ast.BlockStmt{SourceSpan: sp(1), Statements: []ast.Statement{
		&ast.LocalFunctionStmt{SourceSpan: sp(1), Name: ident("f"), Function: fn},
	}}
	sink, _ := run(t, block, 0)
	if !hasCode(sink, diag.TypeMismatchAssignment) {
		t.Fatalf("expected 'p1 and p2' to fix x's type from p2 (num) via the fallback tier, got %+v", sink.Diagnostics())
	}
}

func TestLogicalOrFallsBackToLeftWhenRightIsAny(t *testing.T) {
	fn := ast.FunctionExprPayload{
		Parameters: []ast.Param{
			{Name: ident("p1"), Type: ast.Num},
			{Name: ident("p2"), Type: ast.Any},
		},
		Body: &ast.BlockStmt{SourceSpan: sp(1), Statements: []ast.Statement{
			&ast.LocalDeclStmt{
				SourceSpan: sp(1),
				Names:      []ast.Identifier{ident("x")},
				Values: []ast.Expression{&ast.BinaryExpr{
					SourceSpan: sp(1), Op: ast.OpLogicalOr, Left: idExpr("p1"), Right: idExpr("p2"),
				}},
			},
			&ast.AssignmentStmt{
				SourceSpan: sp(2),
				Targets:    []ast.Expression{idExpr("x")},
				Values:     []ast.Expression{strLit("oops")},
			},
		}},
	}
	block := &ast.BlockStmt{SourceSpan: sp(1), Statements: []ast.Statement{
		&ast.LocalFunctionStmt{SourceSpan: sp(1), Name: ident("f"), Function: fn},
	}}
	sink, _ := run(t, block, 0)
	if !hasCode(sink, diag.TypeMismatchAssignment) {
		t.Fatalf("expected 'p1 or p2' to fix x's type from p1 (num) via the fallback tier, got %+v", sink.Diagnostics())
	}
}

func TestUnusedLocalProducesTip(t *testing.T) {
	block := &ast.BlockStmt{SourceSpan: sp(1), Statements: []ast.Statement{
		&ast.LocalDeclStmt{
			SourceSpan: sp(1),
			Names:      []ast.Identifier{ident("unused")},
			Values:     []ast.Expression{numLit(1)},
		},
	}}
	_, tips := run(t, block, 3)
	if !tips.HasTips() {
		t.Fatalf("expected an unused-local tip")
	}
}

func TestShadowingProducesTip(t *testing.T) {
	block := &ast.BlockStmt{SourceSpan: sp(1), Statements: []ast.Statement{
		&ast.LocalDeclStmt{
			SourceSpan: sp(1),
			Names:      []ast.Identifier{ident("x")},
			Values:     []ast.Expression{numLit(1)},
		},
		&ast.DoStmt{
			SourceSpan: sp(2),
			Block: &ast.BlockStmt{SourceSpan: sp(2), Statements: []ast.Statement{
				&ast.LocalDeclStmt{
					SourceSpan: sp(2),
					Names:      []ast.Identifier{ident("x")},
					Values:     []ast.Expression{numLit(2)},
				},
				&ast.ExpressionStmt{SourceSpan: sp(3), ExprNode: idExpr("x")},
			}},
		},
	}}
	_, tips := run(t, block, 3)
	found := false
	for _, tip := range tips.Tips() {
		if tip.Category == diag.CodeQuality {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a shadowing tip, got %+v", tips.Tips())
	}
}

// ReturnCountMismatch only fires when the function has an explicit return
// type annotation and a return exceeds its declared slot count.
func TestReturnCountMismatch(t *testing.T) {
	returnTypes := ast.FunctionReturnTypes{IsExplicit: true}
	returnTypes.Append(ast.Num)
	fn := ast.FunctionExprPayload{
		ReturnTypes: returnTypes,
		Body: &ast.BlockStmt{SourceSpan: sp(1), Statements: []ast.Statement{
			&ast.ReturnStmt{SourceSpan: sp(1), Values: []ast.Expression{numLit(1), numLit(2)}},
		}},
	}
	block := &ast.BlockStmt{SourceSpan: sp(1), Statements: []ast.Statement{
		&ast.LocalFunctionStmt{SourceSpan: sp(1), Name: ident("f"), Function: fn},
	}}
	sink, _ := run(t, block, 0)
	if !hasCode(sink, diag.ReturnCountMismatch) {
		t.Fatalf("expected ReturnCountMismatch, got %+v", sink.Diagnostics())
	}
}

// Without an explicit return-type annotation, first-wins inference fixes
// the expected types from the first concrete return but never polices
// arity across later returns — only per-position type drift is checked.
// A later return with a different value count must not be flagged.
func TestReturnCountMismatchNotFlaggedUnderInference(t *testing.T) {
	fn := ast.FunctionExprPayload{
		Body: &ast.BlockStmt{SourceSpan: sp(1), Statements: []ast.Statement{
			&ast.ReturnStmt{SourceSpan: sp(1), Values: []ast.Expression{numLit(1), numLit(2)}},
			&ast.ReturnStmt{SourceSpan: sp(2), Values: []ast.Expression{numLit(1)}},
		}},
	}
	block := &ast.BlockStmt{SourceSpan: sp(1), Statements: []ast.Statement{
		&ast.LocalFunctionStmt{SourceSpan: sp(1), Name: ident("f"), Function: fn},
	}}
	sink, _ := run(t, block, 0)
	if hasCode(sink, diag.ReturnCountMismatch) {
		t.Fatalf("inference mode must not police return arity, got %+v", sink.Diagnostics())
	}
}

func TestRecursiveFunctionWithoutExplicitReturnTypeIsFlagged(t *testing.T) {
	selfCall := &ast.CallExpr{
		SourceSpan: sp(2),
		Target:     ast.CallTarget{Kind: ast.DirectCall, Callable: idExpr("fact")},
		Arguments:  []ast.Expression{numLit(1)},
	}
	fn := ast.FunctionExprPayload{
		Body: &ast.BlockStmt{SourceSpan: sp(1), Statements: []ast.Statement{
			&ast.ReturnStmt{SourceSpan: sp(2), Values: []ast.Expression{selfCall}},
		}},
	}
	block := &ast.BlockStmt{SourceSpan: sp(1), Statements: []ast.Statement{
		&ast.LocalFunctionStmt{SourceSpan: sp(1), Name: ident("fact"), Function: fn},
	}}
	sink, _ := run(t, block, 0)
	if !hasCode(sink, diag.RecursiveFunctionNeedsType) {
		t.Fatalf("expected RecursiveFunctionNeedsType, got %+v", sink.Diagnostics())
	}
}

func TestExplicitReturnTypeSuppressesRecursionDiagnostic(t *testing.T) {
	selfCall := &ast.CallExpr{
		SourceSpan: sp(2),
		Target:     ast.CallTarget{Kind: ast.DirectCall, Callable: idExpr("fact")},
		Arguments:  []ast.Expression{numLit(1)},
	}
	returnTypes := ast.FunctionReturnTypes{IsExplicit: true}
	returnTypes.Append(ast.Num)
	fn := ast.FunctionExprPayload{
		ReturnTypes: returnTypes,
		Body: &ast.BlockStmt{SourceSpan: sp(1), Statements: []ast.Statement{
			&ast.ReturnStmt{SourceSpan: sp(2), Values: []ast.Expression{selfCall}},
		}},
	}
	block := &ast.BlockStmt{SourceSpan: sp(1), Statements: []ast.Statement{
		&ast.LocalFunctionStmt{SourceSpan: sp(1), Name: ident("fact"), Function: fn},
	}}
	sink, _ := run(t, block, 0)
	if hasCode(sink, diag.RecursiveFunctionNeedsType) {
		t.Fatalf("explicit return type should suppress the recursion diagnostic, got %+v", sink.Diagnostics())
	}
}

// A thunk's single `: type` annotation acts as its declared return slot:
// a mismatched return value is flagged just as it would be for a
// function's explicit return-type vector.
func TestThunkReturnTypeIsValidated(t *testing.T) {
	fn := ast.FunctionExprPayload{
		IsThunk:         true,
		ThunkReturnType: ast.Num,
		Body: &ast.BlockStmt{SourceSpan: sp(1), Statements: []ast.Statement{
			&ast.ReturnStmt{SourceSpan: sp(1), Values: []ast.Expression{strLit("oops")}},
		}},
	}
	block := &ast.BlockStmt{SourceSpan: sp(1), Statements: []ast.Statement{
		&ast.LocalFunctionStmt{SourceSpan: sp(1), Name: ident("t"), Function: fn},
	}}
	sink, _ := run(t, block, 0)
	if !hasCode(sink, diag.ReturnTypeMismatch) {
		t.Fatalf("expected ReturnTypeMismatch for a str return from a num thunk, got %+v", sink.Diagnostics())
	}
}

// `local a, b = f()` picks up b's type from f's second declared return
// slot.
func TestMultiReturnPropagationFromDeclaredSlots(t *testing.T) {
	returnTypes := ast.FunctionReturnTypes{IsExplicit: true}
	returnTypes.Append(ast.Num)
	returnTypes.Append(ast.Str)
	fn := ast.FunctionExprPayload{
		ReturnTypes: returnTypes,
		Body: &ast.BlockStmt{SourceSpan: sp(1), Statements: []ast.Statement{
			&ast.ReturnStmt{SourceSpan: sp(1), Values: []ast.Expression{numLit(1), strLit("s")}},
		}},
	}
	call := &ast.CallExpr{
		SourceSpan: sp(2),
		Target:     ast.CallTarget{Kind: ast.DirectCall, Callable: idExpr("f")},
	}
	block := &ast.BlockStmt{SourceSpan: sp(1), Statements: []ast.Statement{
		&ast.LocalFunctionStmt{SourceSpan: sp(1), Name: ident("f"), Function: fn},
		&ast.LocalDeclStmt{
			SourceSpan: sp(2),
			Names:      []ast.Identifier{ident("a"), ident("b")},
			Values:     []ast.Expression{call},
		},
		&ast.AssignmentStmt{
			SourceSpan: sp(3),
			Targets:    []ast.Expression{idExpr("b")},
			Values:     []ast.Expression{numLit(1)},
		},
	}}
	sink, _ := run(t, block, 0)
	if !hasCode(sink, diag.TypeMismatchAssignment) {
		t.Fatalf("expected b to be fixed to str from f's second return slot, got %+v", sink.Diagnostics())
	}
}

func TestTypeErrorsAreFatalPromotesSeverity(t *testing.T) {
	block := &ast.BlockStmt{SourceSpan: sp(1), Statements: []ast.Statement{
		&ast.LocalDeclStmt{
			SourceSpan: sp(1),
			Names:      []ast.Identifier{identTyped("x", ast.Num)},
			Values:     []ast.Expression{strLit("hello")},
		},
	}}
	sink := diag.NewSink()
	tips := diag.NewTipEmitter(0)
	RunTypeAnalysis(block, sink, tips, Config{TypeErrorsAreFatal: true})
	found := false
	for _, d := range sink.Diagnostics() {
		if d.Code == diag.TypeMismatchAssignment {
			found = true
			if d.Severity != diag.Error {
				t.Fatalf("expected Error severity with TypeErrorsAreFatal set, got %s", d.Severity)
			}
		}
	}
	if !found {
		t.Fatalf("expected a TypeMismatchAssignment diagnostic")
	}
}

func TestTypeErrorsAreWarningsByDefault(t *testing.T) {
	block := &ast.BlockStmt{SourceSpan: sp(1), Statements: []ast.Statement{
		&ast.LocalDeclStmt{
			SourceSpan: sp(1),
			Names:      []ast.Identifier{identTyped("x", ast.Num)},
			Values:     []ast.Expression{strLit("hello")},
		},
	}}
	sink, _ := run(t, block, 0)
	for _, d := range sink.Diagnostics() {
		if d.Code == diag.TypeMismatchAssignment && d.Severity != diag.Warning {
			t.Fatalf("expected Warning severity by default, got %s", d.Severity)
		}
	}
}
