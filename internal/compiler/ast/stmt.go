package ast

import "github.com/btouchard/luma/internal/compiler/token"

// Statement is the interface every statement node kind implements.
type Statement interface {
	Node
	statementNode()
	Kind() StmtKind
}

// StmtKind tags which concrete Statement type a node is.
type StmtKind uint8

const (
	KindBlockStmt StmtKind = iota
	KindLocalDeclStmt
	KindGlobalDeclStmt
	KindLocalFunctionStmt
	KindFunctionStmt
	KindAssignmentStmt
	KindIfStmt
	KindWhileStmt
	KindRepeatStmt
	KindNumericForStmt
	KindGenericForStmt
	KindDoStmt
	KindDeferStmt
	KindReturnStmt
	KindTryExceptStmt
	KindRaiseStmt
	KindCheckStmt
	KindImportStmt
	KindNamespaceStmt
	KindConditionalShorthandStmt
	KindExpressionStmt
	KindBreakStmt
	KindContinueStmt
)

// BlockStmt is a sequence of statements.
type BlockStmt struct {
	SourceSpan token.Span
	Statements []Statement
}

func (s *BlockStmt) Span() token.Span { return s.SourceSpan }
func (s *BlockStmt) statementNode() {}
func (s *BlockStmt) Kind() StmtKind { return KindBlockStmt }

// LocalDeclStmt is `local a, b [<attr>] [:type] [op expr, ...]`.
type LocalDeclStmt struct {
	SourceSpan token.Span
	Op         AssignOp
	Names      []Identifier
	Values     []Expression
}

func (s *LocalDeclStmt) Span() token.Span { return s.SourceSpan }
func (s *LocalDeclStmt) statementNode() {}
func (s *LocalDeclStmt) Kind() StmtKind { return KindLocalDeclStmt }

// GlobalDeclStmt mirrors LocalDeclStmt for `global`.
type GlobalDeclStmt struct {
	SourceSpan token.Span
	Op         AssignOp
	Names      []Identifier
	Values     []Expression
}

func (s *GlobalDeclStmt) Span() token.Span { return s.SourceSpan }
func (s *GlobalDeclStmt) statementNode() {}
func (s *GlobalDeclStmt) Kind() StmtKind { return KindGlobalDeclStmt }

// LocalFunctionStmt is `local function name(...) ... end`.
type LocalFunctionStmt struct {
	SourceSpan token.Span
	Name       Identifier
	Function   FunctionExprPayload
}

func (s *LocalFunctionStmt) Span() token.Span { return s.SourceSpan }
func (s *LocalFunctionStmt) statementNode() {}
func (s *LocalFunctionStmt) Kind() StmtKind { return KindLocalFunctionStmt }

// FunctionNamePath addresses a (possibly global, possibly method)
// function declaration: `a.b.c:method`.
type FunctionNamePath struct {
	Segments         []Identifier
	Method           *Identifier
	IsExplicitGlobal bool
}

// FunctionStmt is `function path(...) ... end` or `global function ...`.
type FunctionStmt struct {
	SourceSpan token.Span
	Name       FunctionNamePath
	Function   FunctionExprPayload
}

func (s *FunctionStmt) Span() token.Span { return s.SourceSpan }
func (s *FunctionStmt) statementNode() {}
func (s *FunctionStmt) Kind() StmtKind { return KindFunctionStmt }

// AssignmentStmt is `targets op= values`.
type AssignmentStmt struct {
	SourceSpan token.Span
	Op         AssignOp
	Targets    []Expression
	Values     []Expression
}

func (s *AssignmentStmt) Span() token.Span { return s.SourceSpan }
func (s *AssignmentStmt) statementNode() {}
func (s *AssignmentStmt) Kind() StmtKind { return KindAssignmentStmt }

// IfClause is one `if`/`elseif`/`else` arm; Condition is nil for the
// trailing else clause.
type IfClause struct {
	Condition Expression
	Block     *BlockStmt
}

// IfStmt is a chain of if/elseif/else clauses.
type IfStmt struct {
	SourceSpan token.Span
	Clauses    []IfClause
}

func (s *IfStmt) Span() token.Span { return s.SourceSpan }
func (s *IfStmt) statementNode() {}
func (s *IfStmt) Kind() StmtKind { return KindIfStmt }

// LoopStyle distinguishes while- from repeat-style loops sharing
// LoopStmtPayload.
type LoopStyle uint8

const (
	LoopWhile LoopStyle = iota
	LoopRepeat
)

// LoopStmtPayload is shared by WhileStmt and RepeatStmt.
type LoopStmtPayload struct {
	Style     LoopStyle
	Condition Expression
	Body      *BlockStmt
}

// WhileStmt is `while cond do ... end`.
type WhileStmt struct {
	SourceSpan token.Span
	Loop       LoopStmtPayload
}

func (s *WhileStmt) Span() token.Span { return s.SourceSpan }
func (s *WhileStmt) statementNode() {}
func (s *WhileStmt) Kind() StmtKind { return KindWhileStmt }

// RepeatStmt is `repeat ... until cond`.
type RepeatStmt struct {
	SourceSpan token.Span
	Loop       LoopStmtPayload
}

func (s *RepeatStmt) Span() token.Span { return s.SourceSpan }
func (s *RepeatStmt) statementNode() {}
func (s *RepeatStmt) Kind() StmtKind { return KindRepeatStmt }

// NumericForStmt is `for name = start, stop[, step] do ... end`, also the
// lowering target of range-based generic fors.
type NumericForStmt struct {
	SourceSpan token.Span
	Control    Identifier
	Start      Expression
	Stop       Expression
	Step       Expression // nil => literal 1
	Body       *BlockStmt
}

func (s *NumericForStmt) Span() token.Span { return s.SourceSpan }
func (s *NumericForStmt) statementNode() {}
func (s *NumericForStmt) Kind() StmtKind { return KindNumericForStmt }

// GenericForStmt is `for names in iterators do ... end`.
type GenericForStmt struct {
	SourceSpan token.Span
	Names      []Identifier
	Iterators  []Expression
	Body       *BlockStmt
}

func (s *GenericForStmt) Span() token.Span { return s.SourceSpan }
func (s *GenericForStmt) statementNode() {}
func (s *GenericForStmt) Kind() StmtKind { return KindGenericForStmt }

// DoStmt is a transparent `do ... end` scope (also used to wrap taken
// @if branches).
type DoStmt struct {
	SourceSpan token.Span
	Block      *BlockStmt
}

func (s *DoStmt) Span() token.Span { return s.SourceSpan }
func (s *DoStmt) statementNode() {}
func (s *DoStmt) Kind() StmtKind { return KindDoStmt }

// DeferStmt is `defer [params] ... end [args]`.
type DeferStmt struct {
	SourceSpan token.Span
	Callable   FunctionExprPayload
	Arguments  []Expression
}

func (s *DeferStmt) Span() token.Span { return s.SourceSpan }
func (s *DeferStmt) statementNode() {}
func (s *DeferStmt) Kind() StmtKind { return KindDeferStmt }

// ReturnStmt is `return [values...]`.
type ReturnStmt struct {
	SourceSpan   token.Span
	Values       []Expression
	ForwardsCall bool
}

func (s *ReturnStmt) Span() token.Span { return s.SourceSpan }
func (s *ReturnStmt) statementNode() {}
func (s *ReturnStmt) Kind() StmtKind { return KindReturnStmt }

// ExceptClause is one `except [var] [when codes...] ...` handler.
type ExceptClause struct {
	ExceptionVar *Identifier
	FilterCodes  []Expression
	Block        *BlockStmt
}

// TryExceptStmt is `try[<trace>] ... [except ...]* [success ...] end`.
type TryExceptStmt struct {
	SourceSpan    token.Span
	TryBlock      *BlockStmt
	ExceptClauses []ExceptClause
	SuccessBlock  *BlockStmt
	EnableTrace   bool
}

func (s *TryExceptStmt) Span() token.Span { return s.SourceSpan }
func (s *TryExceptStmt) statementNode() {}
func (s *TryExceptStmt) Kind() StmtKind { return KindTryExceptStmt }

// RaiseStmt is `raise code[, message]`.
type RaiseStmt struct {
	SourceSpan token.Span
	ErrorCode  Expression
	Message    Expression // nil if absent
}

func (s *RaiseStmt) Span() token.Span { return s.SourceSpan }
func (s *RaiseStmt) statementNode() {}
func (s *RaiseStmt) Kind() StmtKind { return KindRaiseStmt }

// CheckStmt is `check code`.
type CheckStmt struct {
	SourceSpan token.Span
	ErrorCode  Expression
}

func (s *CheckStmt) Span() token.Span { return s.SourceSpan }
func (s *CheckStmt) statementNode() {}
func (s *CheckStmt) Kind() StmtKind { return KindCheckStmt }

// ImportStmt is `import 'lib' [as alias]`, already inlined by the builder.
type ImportStmt struct {
	SourceSpan       token.Span
	LibPath          string
	InlinedBody      *BlockStmt
	NamespaceName    *Identifier
	DefaultNamespace string
	FileSourceIndex  int
}

func (s *ImportStmt) Span() token.Span { return s.SourceSpan }
func (s *ImportStmt) statementNode() {}
func (s *ImportStmt) Kind() StmtKind { return KindImportStmt }

// NamespaceStmt is `namespace 'name'`, desugared by the builder to a local
// const `_NS = 'name'` declaration plus the registry binding; retained as
// its own node so the analyzer and any re-emitter can distinguish it from
// a user-written local.
type NamespaceStmt struct {
	SourceSpan token.Span
	Name       string
	Desugared  *LocalDeclStmt
}

func (s *NamespaceStmt) Span() token.Span { return s.SourceSpan }
func (s *NamespaceStmt) statementNode() {}
func (s *NamespaceStmt) Kind() StmtKind { return KindNamespaceStmt }

// ConditionalShorthandStmt is the desugaring of `expr ?? return|break|continue`.
type ConditionalShorthandStmt struct {
	SourceSpan token.Span
	Condition  Expression
	Body       Statement
}

func (s *ConditionalShorthandStmt) Span() token.Span { return s.SourceSpan }
func (s *ConditionalShorthandStmt) statementNode() {}
func (s *ConditionalShorthandStmt) Kind() StmtKind { return KindConditionalShorthandStmt }

// ExpressionStmt wraps an expression used as a statement.
type ExpressionStmt struct {
	SourceSpan token.Span
	ExprNode   Expression
}

func (s *ExpressionStmt) Span() token.Span { return s.SourceSpan }
func (s *ExpressionStmt) statementNode() {}
func (s *ExpressionStmt) Kind() StmtKind { return KindExpressionStmt }

// BreakStmt is `break`.
type BreakStmt struct {
	SourceSpan token.Span
}

func (s *BreakStmt) Span() token.Span { return s.SourceSpan }
func (s *BreakStmt) statementNode() {}
func (s *BreakStmt) Kind() StmtKind { return KindBreakStmt }

// ContinueStmt is `continue`.
type ContinueStmt struct {
	SourceSpan token.Span
}

func (s *ContinueStmt) Span() token.Span { return s.SourceSpan }
func (s *ContinueStmt) statementNode() {}
func (s *ContinueStmt) Kind() StmtKind { return KindContinueStmt }
