// Declaration, assignment, and function analysis: the first-wins fixation
// rule, return-type validation, and the recursive-function rule.

package typecheck

import (
	"fmt"

	"github.com/btouchard/luma/internal/compiler/ast"
	"github.com/btouchard/luma/internal/compiler/diag"
	"github.com/btouchard/luma/internal/compiler/token"
)

func (a *Analyzer) analyseLocalDecl(s *ast.LocalDeclStmt) {
	inits := a.inferDeclValues(s.Values, len(s.Names))
	for i, name := range s.Names {
		sym := a.newDeclSymbol(name, inits[i], s.SourceSpan)
		a.declareLocal(sym)
		a.traceFixation(sym)
	}
}

func (a *Analyzer) analyseGlobalDecl(s *ast.GlobalDeclStmt) {
	inits := a.inferDeclValues(s.Values, len(s.Names))
	for i, name := range s.Names {
		sym := a.newDeclSymbol(name, inits[i], s.SourceSpan)
		a.declareGlobal(sym)
		a.checkGlobalNaming(sym)
		a.traceFixation(sym)
	}
}

// inferDeclValues infers one Inferred per declared name. Names beyond the
// value list normally start at nil, but when the final value is a call its
// extra multi-return positions propagate instead.
func (a *Analyzer) inferDeclValues(values []ast.Expression, nameCount int) []Inferred {
	inits := make([]Inferred, nameCount)
	for i := range inits {
		inits[i] = Inferred{Primary: ast.NilType, IsNullable: true}
	}
	for i, v := range values {
		inferred := a.inferExpressionType(v)
		if i < nameCount {
			inits[i] = inferred
		}
	}
	if len(values) > 0 && len(values) <= nameCount {
		if call, ok := values[len(values)-1].(*ast.CallExpr); ok {
			for i := len(values); i < nameCount; i++ {
				pos := i - (len(values) - 1)
				inits[i] = Inferred{Primary: a.inferCallReturnType(call, pos)}
			}
		}
	}
	return inits
}

// newDeclSymbol applies declaration-time fixation: an
// explicit, non-any annotation fixes the symbol immediately (and is
// checked against the initializer); otherwise the symbol starts
// unfixed at nil, fixing on the first non-nil, non-any initializer.
func (a *Analyzer) newDeclSymbol(name ast.Identifier, init Inferred, span token.Span) *Symbol {
	sym := &Symbol{Name: name.Name(), DeclSpan: name.SourceSpan, IsConst: name.HasConst}
	if name.Type != ast.Unknown {
		sym.Type = name.Type
		sym.IsFixed = name.Type != ast.Any
		if sym.IsFixed {
			a.checkAssignable(sym, init, span)
		}
		return sym
	}
	if isConcrete(init.Primary) {
		sym.Type = init.Primary
		sym.IsFixed = true
		sym.ClassID = init.ClassID
		return sym
	}
	sym.Type = ast.NilType
	return sym
}

func isConcrete(t ast.Type) bool {
	return t != ast.Unknown && t != ast.NilType && t != ast.Any
}

// checkAssignable implements the reassignment rules: a const
// rejects any write; an unfixed destination fixes on its first concrete
// value; a fixed, non-any destination requires the source be nil, any,
// or the same primary type, with Object destinations additionally
// requiring a matching class id (always an error, even when type
// errors are configured as warnings).
func (a *Analyzer) checkAssignable(sym *Symbol, init Inferred, span token.Span) {
	if sym.IsConst {
		a.errorf(span, diag.AssignToConstant, "cannot assign to constant '%s'", sym.Name)
		return
	}
	if !sym.IsFixed {
		if isConcrete(init.Primary) {
			sym.Type = init.Primary
			sym.IsFixed = true
			sym.ClassID = init.ClassID
		}
		return
	}
	if sym.Type == ast.Any {
		return
	}
	if sym.Type == ast.Object {
		if init.Primary == ast.NilType || init.Primary == ast.Any {
			return
		}
		if init.Primary != ast.Object {
			a.errorf(span, diag.TypeMismatchAssignment, "cannot assign %s to '%s' typed as object", init.Primary, sym.Name)
			return
		}
		if sym.ClassID == 0 {
			sym.ClassID = init.ClassID
			return
		}
		if init.ClassID != sym.ClassID {
			a.errorf(span, diag.ObjectClassMismatch, "cannot assign %s to '%s' typed as %s",
				a.classIDToName(init.ClassID), sym.Name, a.classIDToName(sym.ClassID))
		}
		return
	}
	if init.Primary == ast.NilType || init.Primary == ast.Any || init.Primary == sym.Type {
		return
	}
	a.errorf(span, diag.TypeMismatchAssignment, "cannot assign %s to '%s' typed as %s", init.Primary, sym.Name, sym.Type)
}

func (a *Analyzer) analyseAssignment(s *ast.AssignmentStmt) {
	inits := make([]Inferred, len(s.Values))
	for i, v := range s.Values {
		inits[i] = a.inferExpressionType(v)
	}
	for i, target := range s.Targets {
		var init Inferred
		if i < len(inits) {
			init = inits[i]
		} else {
			init = Inferred{Primary: ast.NilType, IsNullable: true}
		}
		ident, ok := target.(*ast.IdentifierExpr)
		if !ok {
			a.inferExpressionType(target)
			continue
		}
		name := ident.Name.Identifier.Name()
		sym, found := a.lookup(name)
		if !found {
			continue // assigning an unknown global; nothing to fixate
		}
		a.checkAssignable(sym, init, s.SourceSpan)
	}
}

func (a *Analyzer) analyseLocalFunctionStmt(s *ast.LocalFunctionStmt) {
	sym := &Symbol{Name: s.Name.Name(), Type: ast.Func, IsFixed: true, DeclSpan: s.Name.SourceSpan, Returns: s.Function.ReturnTypes}
	a.declareLocal(sym)
	a.analyseFunctionBody(s.Name.Name(), s.Function, s.SourceSpan)
}

func (a *Analyzer) analyseFunctionStmt(s *ast.FunctionStmt) {
	name := ""
	if len(s.Name.Segments) > 0 {
		name = s.Name.Segments[len(s.Name.Segments)-1].Name()
	}
	if s.Name.Method != nil {
		name = s.Name.Method.Name()
	}
	if len(s.Name.Segments) == 1 && s.Name.Method == nil {
		// A bare single-segment `function f()` defines a global, whether or
		// not `global` was spelled out; the naming-convention tip applies
		// only to the explicit form.
		sym := a.declareGlobal(&Symbol{Name: name, Type: ast.Func, IsFixed: true, DeclSpan: s.Name.Segments[0].SourceSpan, Returns: s.Function.ReturnTypes})
		if s.Name.IsExplicitGlobal {
			a.checkGlobalNaming(sym)
		}
	}
	a.analyseFunctionBody(name, s.Function, s.SourceSpan)
}

// analyseFunctionPayload handles function literals and thunk/defer bodies,
// which have no declared name to check for recursion against.
func (a *Analyzer) analyseFunctionPayload(fn ast.FunctionExprPayload, span token.Span) {
	a.analyseFunctionBody("", fn, span)
}

func (a *Analyzer) analyseFunctionBody(selfName string, fn ast.FunctionExprPayload, span token.Span) {
	fc := &funcContext{name: selfName, isThunk: fn.IsThunk}
	if fn.ReturnTypes.IsExplicit {
		fc.expected = fn.ReturnTypes
		fc.expectedFixed = true
	} else if fc.isThunk && fn.ThunkReturnType != ast.Any && fn.ThunkReturnType != ast.Unknown {
		// A thunk's `: type` annotation is its single declared return slot.
		fc.expected.Append(fn.ThunkReturnType)
		fc.expected.IsExplicit = true
		fc.expectedFixed = true
	}
	a.funcs = append(a.funcs, fc)
	a.pushScope()
	for _, p := range fn.Parameters {
		if p.IsSelf {
			continue
		}
		sym := &Symbol{Name: p.Name.Name(), DeclSpan: p.Name.SourceSpan, IsParam: true}
		if p.Type != ast.Unknown {
			sym.Type = p.Type
			sym.IsFixed = p.Type != ast.Any
		} else {
			// Unannotated parameters behave as any; the parser already
			// emitted the type-safety tip at parse time.
			sym.Type = ast.Any
		}
		a.declareLocal(sym)
	}
	a.analyseBlock(fn.Body)
	a.popScope()
	a.funcs = a.funcs[:len(a.funcs)-1]

	annotated := fn.ReturnTypes.IsExplicit ||
		(fn.IsThunk && fn.ThunkReturnType != ast.Any && fn.ThunkReturnType != ast.Unknown)
	if !annotated && (fc.sawConcreteRet || fc.sawAnyReturn) {
		a.tipf(2, categoryBestPractice, span, "function has no explicit return type annotation")
	}
	if !annotated && (fc.sawConcreteRet || fc.sawAnyReturn) && fc.selfCallSeen {
		a.errorf(span, diag.RecursiveFunctionNeedsType, "recursive function '%s' needs an explicit return type", selfName)
	}
}

func (a *Analyzer) analyseReturn(s *ast.ReturnStmt) {
	fc := a.currentFunc()
	vals := make([]Inferred, len(s.Values))
	for i, v := range s.Values {
		vals[i] = a.inferExpressionType(v)
	}

	hasConcrete := false
	for _, v := range vals {
		if isConcrete(v.Primary) {
			hasConcrete = true
			break
		}
	}
	if hasConcrete {
		fc.sawConcreteRet = true
	} else if len(vals) > 0 {
		fc.sawAnyReturn = true
	}

	explicit := fc.expectedFixed && fc.expected.IsExplicit
	if !fc.expectedFixed {
		if hasConcrete {
			for _, v := range vals {
				fc.expected.Append(v.Primary)
			}
			fc.expectedFixed = true
		}
		return
	}

	expectedCount := int(fc.expected.Count)
	if explicit && !fc.expected.IsVariadic && len(s.Values) > expectedCount {
		a.errorf(s.SourceSpan, diag.ReturnCountMismatch, "return has %d value(s), function declares %d", len(s.Values), expectedCount)
	}
	for i, v := range vals {
		if i >= expectedCount {
			break
		}
		want := fc.expected.Types[i]
		if want == ast.Any || want == ast.Unknown {
			if !explicit && isConcrete(v.Primary) {
				fc.expected.Types[i] = v.Primary
			}
			continue
		}
		if v.Primary == ast.NilType || v.Primary == ast.Any || v.Primary == want {
			continue
		}
		a.errorf(s.SourceSpan, diag.ReturnTypeMismatch, "return value %d is %s, function declares %s", i+1, v.Primary, want)
	}
}

// traceFixation reports a declaration's settled type as an Info
// diagnostic when type tracing is enabled.
func (a *Analyzer) traceFixation(sym *Symbol) {
	if !a.cfg.TraceTypes || sym.Name == "_" {
		return
	}
	state := "unfixed"
	if sym.IsFixed {
		state = "fixed"
	}
	a.sink.Report(diag.Info, diag.TypeTrace,
		fmt.Sprintf("'%s' declared as %s (%s)", sym.Name, sym.Type, state),
		token.Token{Span: sym.DeclSpan})
}

// checkGlobalNaming applies the global naming convention
// tip: gl[A-Z]..., mX..., or ALL_CAPS_WITH_UNDERSCORES.
func (a *Analyzer) checkGlobalNaming(sym *Symbol) {
	if sym.Name == "_" || isValidGlobalName(sym.Name) {
		return
	}
	a.tipf(3, categoryStyle, sym.DeclSpan, "global '%s' does not follow the gl/m/ALL_CAPS naming convention", sym.Name)
}

func isValidGlobalName(name string) bool {
	if hasPrefixUpper(name, "gl") || hasPrefixUpper(name, "m") {
		return true
	}
	return isAllCapsWithUnderscores(name)
}

func hasPrefixUpper(name, prefix string) bool {
	if len(name) <= len(prefix) || name[:len(prefix)] != prefix {
		return false
	}
	next := name[len(prefix)]
	return next >= 'A' && next <= 'Z'
}

func isAllCapsWithUnderscores(name string) bool {
	if name == "" {
		return false
	}
	sawLetter := false
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z':
			sawLetter = true
		case r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return sawLetter
}
