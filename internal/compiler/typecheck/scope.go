// Lexical scope management: push/pop per block/function, innermost-upward
// lookup, and the unused-variable/shadowing bookkeeping tied to scope exit.

package typecheck

import (
	"github.com/btouchard/luma/internal/compiler/ast"
	"github.com/btouchard/luma/internal/compiler/token"
)

// Symbol is the analyzer's record of one local, parameter, or global.
// Returns is populated only for function declarations with an explicit
// return-type annotation; call-site inference reads its slots.
type Symbol struct {
	Name     string
	Type     ast.Type
	IsFixed  bool
	IsConst  bool
	IsParam  bool
	ClassID  int
	DeclSpan token.Span
	Used     bool
	Returns  ast.FunctionReturnTypes
}

// scope is one lexical level: a function body, a block, or a loop body.
type scope struct {
	symbols map[string]*Symbol
	order   []string // declaration order, for deterministic unused-tip emission
}

func newScope() *scope {
	return &scope{symbols: make(map[string]*Symbol)}
}

func (s *scope) declare(sym *Symbol) {
	s.symbols[sym.Name] = sym
	s.order = append(s.order, sym.Name)
}

func (a *Analyzer) pushScope() {
	a.scopes = append(a.scopes, newScope())
}

// popScope emits unused-variable/parameter tips for every symbol in the
// departing scope that was never read, then discards it.
func (a *Analyzer) popScope() {
	top := a.scopes[len(a.scopes)-1]
	for _, name := range top.order {
		sym := top.symbols[name]
		if sym.Used || sym.Name == "_" {
			continue
		}
		switch {
		case sym.IsParam:
			a.tipf(2, categoryCodeQuality, sym.DeclSpan, "unused parameter '%s'", sym.Name)
		case sym.Type == ast.Func:
			a.tipf(2, categoryCodeQuality, sym.DeclSpan, "unused function '%s'", sym.Name)
		default:
			a.tipf(2, categoryCodeQuality, sym.DeclSpan, "unused local '%s'", sym.Name)
		}
	}
	a.scopes = a.scopes[:len(a.scopes)-1]
}

// declareLocal adds sym to the innermost scope, emitting a code-quality
// tip if it shadows a symbol already declared in this or an enclosing
// scope.
func (a *Analyzer) declareLocal(sym *Symbol) {
	if sym.Name != "_" {
		for i := len(a.scopes) - 1; i >= 0; i-- {
			if _, ok := a.scopes[i].symbols[sym.Name]; ok {
				a.tipf(2, categoryCodeQuality, sym.DeclSpan, "local '%s' shadows an outer declaration", sym.Name)
				break
			}
		}
	}
	a.scopes[len(a.scopes)-1].declare(sym)
}

// lookup searches innermost-to-outermost local scopes, then the global
// table, marking the symbol used on a hit.
func (a *Analyzer) lookup(name string) (*Symbol, bool) {
	for i := len(a.scopes) - 1; i >= 0; i-- {
		if sym, ok := a.scopes[i].symbols[name]; ok {
			sym.Used = true
			return sym, true
		}
	}
	if sym, ok := a.globals[name]; ok {
		sym.Used = true
		return sym, true
	}
	return nil, false
}

// declareGlobal adds or returns the existing global symbol of that name;
// globals are never scope-popped, matching a 'global' declaration's
// top-level, whole-program lifetime.
func (a *Analyzer) declareGlobal(sym *Symbol) *Symbol {
	if existing, ok := a.globals[sym.Name]; ok {
		return existing
	}
	a.globals[sym.Name] = sym
	return sym
}
