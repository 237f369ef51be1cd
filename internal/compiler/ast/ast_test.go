package ast

import (
	"testing"

	"github.com/btouchard/luma/internal/compiler/token"
)

func sp(line int) token.Span { return token.Span{Line: line, Column: 1} }

func TestNodeSpans(t *testing.T) {
	name := "x"
	tests := []struct {
		name string
		node Node
		line int
	}{
		{"BlockStmt", &BlockStmt{SourceSpan: sp(1)}, 1},
		{"LocalDeclStmt", &LocalDeclStmt{SourceSpan: sp(2)}, 2},
		{"GlobalDeclStmt", &GlobalDeclStmt{SourceSpan: sp(3)}, 3},
		{"LocalFunctionStmt", &LocalFunctionStmt{SourceSpan: sp(4)}, 4},
		{"FunctionStmt", &FunctionStmt{SourceSpan: sp(5)}, 5},
		{"AssignmentStmt", &AssignmentStmt{SourceSpan: sp(6)}, 6},
		{"IfStmt", &IfStmt{SourceSpan: sp(7)}, 7},
		{"WhileStmt", &WhileStmt{SourceSpan: sp(8)}, 8},
		{"RepeatStmt", &RepeatStmt{SourceSpan: sp(9)}, 9},
		{"NumericForStmt", &NumericForStmt{SourceSpan: sp(10)}, 10},
		{"GenericForStmt", &GenericForStmt{SourceSpan: sp(11)}, 11},
		{"DoStmt", &DoStmt{SourceSpan: sp(12)}, 12},
		{"DeferStmt", &DeferStmt{SourceSpan: sp(13)}, 13},
		{"ReturnStmt", &ReturnStmt{SourceSpan: sp(14)}, 14},
		{"TryExceptStmt", &TryExceptStmt{SourceSpan: sp(15)}, 15},
		{"RaiseStmt", &RaiseStmt{SourceSpan: sp(16)}, 16},
		{"CheckStmt", &CheckStmt{SourceSpan: sp(17)}, 17},
		{"ImportStmt", &ImportStmt{SourceSpan: sp(18)}, 18},
		{"NamespaceStmt", &NamespaceStmt{SourceSpan: sp(19)}, 19},
		{"ConditionalShorthandStmt", &ConditionalShorthandStmt{SourceSpan: sp(20)}, 20},
		{"ExpressionStmt", &ExpressionStmt{SourceSpan: sp(21)}, 21},
		{"BreakStmt", &BreakStmt{SourceSpan: sp(22)}, 22},
		{"ContinueStmt", &ContinueStmt{SourceSpan: sp(23)}, 23},
		{"LiteralExpr", &LiteralExpr{SourceSpan: sp(24)}, 24},
		{"IdentifierExpr", &IdentifierExpr{SourceSpan: sp(25), Name: NameRef{Identifier: Identifier{Symbol: &name}}}, 25},
		{"VarArgExpr", &VarArgExpr{SourceSpan: sp(26)}, 26},
		{"UnaryExpr", &UnaryExpr{SourceSpan: sp(27)}, 27},
		{"UpdateExpr", &UpdateExpr{SourceSpan: sp(28)}, 28},
		{"BinaryExpr", &BinaryExpr{SourceSpan: sp(29)}, 29},
		{"TernaryExpr", &TernaryExpr{SourceSpan: sp(30)}, 30},
		{"PresenceExpr", &PresenceExpr{SourceSpan: sp(31)}, 31},
		{"CallExpr", &CallExpr{SourceSpan: sp(32)}, 32},
		{"MemberExpr", &MemberExpr{SourceSpan: sp(33)}, 33},
		{"SafeMemberExpr", &SafeMemberExpr{SourceSpan: sp(34)}, 34},
		{"IndexExpr", &IndexExpr{SourceSpan: sp(35)}, 35},
		{"SafeIndexExpr", &SafeIndexExpr{SourceSpan: sp(36)}, 36},
		{"TableExpr", &TableExpr{SourceSpan: sp(37)}, 37},
		{"RangeExpr", &RangeExpr{SourceSpan: sp(38)}, 38},
		{"FunctionExpr", &FunctionExpr{SourceSpan: sp(39)}, 39},
		{"PipeExpr", &PipeExpr{SourceSpan: sp(40)}, 40},
		{"ResultFilterExpr", &ResultFilterExpr{SourceSpan: sp(41)}, 41},
		{"ChooseExpr", &ChooseExpr{SourceSpan: sp(42)}, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.node.Span().Line; got != tt.line {
				t.Errorf("Span().Line = %d, want %d", got, tt.line)
			}
		})
	}
}

func TestFunctionReturnTypesOverflow(t *testing.T) {
	var f FunctionReturnTypes
	for i := 0; i < 8; i++ {
		f.Append(Num)
	}
	f.Append(Str) // 9th slot: forces slot 7 to Any, silently skips extras
	if f.Count != 8 {
		t.Fatalf("Count = %d, want 8", f.Count)
	}
	if f.Types[7] != Any {
		t.Fatalf("Types[7] = %v, want Any after overflow", f.Types[7])
	}
}

func TestIdentifierBlank(t *testing.T) {
	id := Identifier{IsBlank: true}
	if id.Name() != "_" {
		t.Fatalf("blank identifier Name() = %q, want \"_\"", id.Name())
	}
}

func TestTypeName(t *testing.T) {
	tests := []struct {
		name string
		want Type
		ok   bool
	}{
		{"num", Num, true},
		{"str", Str, true},
		{"bool", Bool, true},
		{"any", Any, true},
		{"bogus", Unknown, false},
	}
	for _, tt := range tests {
		got, ok := TypeName(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("TypeName(%q) = (%v,%v), want (%v,%v)", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}
