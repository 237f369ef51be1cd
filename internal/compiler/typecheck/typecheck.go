// Package typecheck implements the type analyzer: scope-tracked type
// inference, first-wins fixation, const enforcement, return validation,
// the recursive-function-needs-explicit-type rule, and the categorized
// performance/style tips. It walks the finished AST after parsing and
// writes only into the diagnostics sink and tip emitter.
package typecheck

import (
	"fmt"

	"github.com/btouchard/luma/internal/compiler/ast"
	"github.com/btouchard/luma/internal/compiler/diag"
	"github.com/btouchard/luma/internal/compiler/token"
)

// Host lets the analyzer resolve an Object's class id to a human name for
// diagnostics.
type Host interface {
	ClassIDToName(classID int) string
}

// Config controls one analysis run. TraceTypes corresponds to the host's
// trace-types JIT option: when set, every type fixation is reported as an
// Info diagnostic so the inferred types can be inspected.
type Config struct {
	Host               Host
	TypeErrorsAreFatal bool
	TipLevel           int
	TraceTypes         bool
}

const (
	categoryTypeSafety   = diag.TypeSafety
	categoryPerformance  = diag.Performance
	categoryCodeQuality  = diag.CodeQuality
	categoryBestPractice = diag.BestPractice
	categoryStyle        = diag.Style
)

// funcContext tracks per-function analysis state across nested function
// bodies: the expected return-type vector (explicit or first-wins
// inferred), the function's own name (for the recursion rule), and
// whether a return with at least one concrete value has been seen.
type funcContext struct {
	name           string
	expected       ast.FunctionReturnTypes
	expectedFixed  bool // true once either explicit or first return fixed it
	sawConcreteRet bool
	sawAnyReturn   bool
	isThunk        bool
	selfCallSeen   bool
}

// Analyzer is the type analyzer's mutable state for one run.
type Analyzer struct {
	sink      *diag.Sink
	tips      *diag.TipEmitter
	cfg       Config
	scopes    []*scope
	globals   map[string]*Symbol
	funcs     []*funcContext
	loopDepth int
}

// RunTypeAnalysis walks block, the root chunk produced by the parser,
// reporting into sink and tips per cfg. It mutates only sink and tips,
// never the AST.
func RunTypeAnalysis(block *ast.BlockStmt, sink *diag.Sink, tips *diag.TipEmitter, cfg Config) {
	a := &Analyzer{
		sink:    sink,
		tips:    tips,
		cfg:     cfg,
		globals: make(map[string]*Symbol),
	}
	a.pushScope()
	a.funcs = append(a.funcs, &funcContext{name: "<chunk>"})
	a.analyseBlock(block)
	a.popScope()
}

func (a *Analyzer) errorf(span token.Span, code diag.ErrorCode, format string, args ...interface{}) {
	severity := diag.Error
	if code != diag.ObjectClassMismatch && !a.cfg.TypeErrorsAreFatal {
		severity = diag.Warning
	}
	a.sink.Report(severity, code, fmt.Sprintf(format, args...), token.Token{Span: span})
}

func (a *Analyzer) tipf(priority uint8, category diag.Category, span token.Span, format string, args ...interface{}) {
	a.tips.Emit(priority, category, fmt.Sprintf(format, args...), token.Token{Span: span})
}

func (a *Analyzer) currentFunc() *funcContext {
	return a.funcs[len(a.funcs)-1]
}

func (a *Analyzer) classIDToName(id int) string {
	if a.cfg.Host == nil {
		return fmt.Sprintf("class#%d", id)
	}
	return a.cfg.Host.ClassIDToName(id)
}
