// Package parser builds an AST from a token stream: precedence-climbing
// expression parsing, a single-switch statement dispatcher, desugaring of
// arrow functions/deferred expressions/typed arrays/conditional shorthand,
// range-to-numeric-for loop lowering, try/except/success control flow,
// import resolution with circular-import detection, and panic-mode error
// recovery.
package parser

import (
	"fmt"

	"github.com/btouchard/luma/internal/compiler/ast"
	"github.com/btouchard/luma/internal/compiler/diag"
	"github.com/btouchard/luma/internal/compiler/intern"
	"github.com/btouchard/luma/internal/compiler/lexer"
	"github.com/btouchard/luma/internal/compiler/source"
	"github.com/btouchard/luma/internal/compiler/token"
)

// maxRecoverySkips bounds panic-mode recovery per block so a pathological
// input can't hang the parser.
const maxRecoverySkips = 1000

// HostHooks lets the parser reach the embedding host for import resolution
// and compile-time conditionals, without hard-wiring a filesystem. String
// interning and class-name resolution are deliberately not part of this
// boundary — see DESIGN.md.
type HostHooks interface {
	ResolvePath(logicalName string) (path string, ok bool)
	OpenFile(path string) (contents string, ok bool)
	AnalysePath(path string) bool
	Platform() string
	Debug() bool
}

// Config controls a parse run.
type Config struct {
	Host               HostHooks
	DiagnoseMode       bool
	TipLevel           int
	ExceptionThreshold int
}

// Parser consumes a token Stream and produces a BlockStmt.
type Parser struct {
	stream  *lexer.Stream
	sources *source.Registry
	sink    *diag.Sink
	tips    *diag.TipEmitter
	symbols *intern.Table
	cfg     Config

	sourceIndex int
	importStack map[string]bool
	funcDepth   int
	loopDepth   int

	// suppressConcat stops continueBinary from consuming a top-level `..`
	// while the start operand of a `{a..b}` range (or a bare for-in range)
	// is being parsed; inChoose arms the relational-pattern lookahead that
	// splits a choose scrutinee from a `< 10 ->` case pattern. Both are
	// cleared inside any parenthesized or bracketed subexpression (see
	// saveExprFlags).
	suppressConcat bool
	inChoose       bool
}

// saveExprFlags clears the expression-context flags for the duration of a
// nested parenthesized/bracketed subexpression and returns the previous
// values for restoreExprFlags.
func (p *Parser) saveExprFlags() (suppressConcat, inChoose bool) {
	suppressConcat, inChoose = p.suppressConcat, p.inChoose
	p.suppressConcat, p.inChoose = false, false
	return suppressConcat, inChoose
}

func (p *Parser) restoreExprFlags(suppressConcat, inChoose bool) {
	p.suppressConcat, p.inChoose = suppressConcat, inChoose
}

// New creates a Parser over stream, sourced from sourceIndex in sources,
// reporting into sink/tips per cfg.
func New(stream *lexer.Stream, sources *source.Registry, sink *diag.Sink, tips *diag.TipEmitter, sourceIndex int, cfg Config) *Parser {
	if cfg.ExceptionThreshold == 0 {
		cfg.ExceptionThreshold = 1
	}
	stream.SetDiagnoseMode(cfg.DiagnoseMode)
	return &Parser{
		stream:      stream,
		sources:     sources,
		sink:        sink,
		tips:        tips,
		symbols:     intern.New(),
		cfg:         cfg,
		sourceIndex: sourceIndex,
		importStack: map[string]bool{},
	}
}

func (p *Parser) intern(s string) *string { return p.symbols.Intern(s) }

func (p *Parser) cur() token.Token { return p.stream.Current() }
func (p *Parser) peek(n int) token.Token { return p.stream.Peek(n) }
func (p *Parser) advance() token.Token { return p.stream.Advance() }

func (p *Parser) check(kind token.Kind) bool { return p.stream.Check(kind) }

func (p *Parser) match(kind token.Kind) (token.Token, bool) { return p.stream.Match(kind) }

// expect consumes the current token if it has the given kind, otherwise
// reports code at the current token's position and returns ok=false.
func (p *Parser) expect(kind token.Kind, code diag.ErrorCode) (token.Token, bool) {
	if tok, ok := p.match(kind); ok {
		return tok, true
	}
	p.errorf(code, "expected %s, got %s", kind, p.cur().Kind)
	return token.Token{}, false
}

func (p *Parser) errorf(code diag.ErrorCode, format string, args ...interface{}) {
	p.sink.Report(diag.Error, code, fmt.Sprintf(format, args...), p.cur())
}

func (p *Parser) tip(priority uint8, category diag.Category, format string, args ...interface{}) {
	p.tips.Emit(priority, category, fmt.Sprintf(format, args...), p.cur())
}

// ParseChunk parses a top-level source file: a block terminated by EOF.
func (p *Parser) ParseChunk() *ast.BlockStmt {
	return p.parseBlock(token.EOF)
}

// parseBlock parses statements until EOF or one of terminators is seen,
// applying panic-mode recovery in diagnose mode and marking unreachable
// statements after the first return/break/continue.
func (p *Parser) parseBlock(terminators ...token.Kind) *ast.BlockStmt {
	startSpan := p.cur().Span
	block := &ast.BlockStmt{SourceSpan: startSpan}

	terminating := false
	for !p.atBlockEnd(terminators) {
		stmt, ok := p.parseStatement()
		if !ok {
			if !p.cfg.DiagnoseMode {
				break
			}
			p.skipToSyncPoint(terminators)
			continue
		}
		if !p.cfg.DiagnoseMode && p.sink.HasErrors() {
			// Strict mode: the first reported error terminates the parse
			// rather than recovering.
			if stmt != nil {
				block.Statements = append(block.Statements, stmt)
			}
			break
		}
		if stmt == nil {
			// A lone semicolon: consumed, nothing to append.
			continue
		}
		if terminating {
			p.tip(2, diag.CodeQuality, "unreachable code")
		}
		block.Statements = append(block.Statements, stmt)
		switch stmt.Kind() {
		case ast.KindReturnStmt, ast.KindBreakStmt, ast.KindContinueStmt:
			terminating = true
		}
	}
	return block
}

func (p *Parser) atBlockEnd(terminators []token.Kind) bool {
	cur := p.cur().Kind
	if cur == token.EOF {
		return true
	}
	for _, t := range terminators {
		if cur == t {
			return true
		}
	}
	return false
}

// statementStartKinds are tokens that begin a new statement; recovery
// advances until one of these, a terminator, or EOF.
var statementStartKinds = map[token.Kind]bool{
	token.Local: true, token.Global: true, token.Function: true, token.If: true,
	token.WhileToken: true, token.Repeat: true, token.For: true, token.DoToken: true,
	token.DeferToken: true, token.ReturnToken: true, token.BreakToken: true,
	token.ContinueToken: true, token.TryToken: true, token.RaiseToken: true,
	token.CheckToken: true, token.ImportToken: true, token.NamespaceToken: true,
	token.CompileIf: true, token.Identifier: true, token.ThunkToken: true,
}

func (p *Parser) skipToSyncPoint(terminators []token.Kind) {
	skipped := 0
	for skipped < maxRecoverySkips {
		if p.atBlockEnd(terminators) {
			return
		}
		if statementStartKinds[p.cur().Kind] {
			return
		}
		p.advance()
		skipped++
	}
	p.errorf(diag.RecoverySkippedTokens, "error recovery exceeded %d skipped tokens", maxRecoverySkips)
}
