package parser

import (
	"github.com/btouchard/luma/internal/compiler/ast"
	"github.com/btouchard/luma/internal/compiler/diag"
	"github.com/btouchard/luma/internal/compiler/token"
)

// parseTypeName consumes a single type-name identifier, reporting
// UnknownTypeName and falling back to Any for an unrecognized spelling so
// parsing can keep going.
func (p *Parser) parseTypeName() ast.Type {
	tok := p.cur()
	if tok.Kind != token.Identifier || tok.Ident == nil {
		p.errorf(diag.ExpectedTypeName, "expected type name, got %s", tok.Kind)
		return ast.Any
	}
	t, ok := ast.TypeName(*tok.Ident)
	if !ok {
		p.errorf(diag.UnknownTypeName, "unknown type name %q", *tok.Ident)
		p.advance()
		return ast.Any
	}
	p.advance()
	return t
}

// parseParamList parses `(name[:type], ..., [...])`.
func (p *Parser) parseParamList() ([]ast.Param, bool) {
	p.expect(token.LeftParen, diag.ExpectedToken)
	var params []ast.Param
	vararg := false
	if !p.check(token.RightParen) {
		for {
			if _, ok := p.match(token.Dots); ok {
				vararg = true
				break
			}
			name := p.parseIdentifierName()
			typ := ast.Unknown
			if _, ok := p.match(token.Colon); ok {
				typ = p.parseTypeName()
			} else {
				p.tip(1, diag.TypeSafety, "parameter %q has no type annotation", name.Name())
			}
			params = append(params, ast.Param{Name: name, Type: typ})
			if _, ok := p.match(token.Comma); !ok {
				break
			}
		}
	}
	p.expect(token.RightParen, diag.ExpectedToken)
	return params, vararg
}

// parseReturnTypes parses the optional `: type` / `: <t1, t2, ...[, ...]>`
// return-type annotation, applying the 8-slot overflow rule via
// FunctionReturnTypes.Append.
func (p *Parser) parseReturnTypes() ast.FunctionReturnTypes {
	var rt ast.FunctionReturnTypes
	if _, ok := p.match(token.Colon); !ok {
		return rt
	}
	rt.IsExplicit = true
	if _, ok := p.match(token.LessThan); ok {
		for {
			if _, ok := p.match(token.Dots); ok {
				rt.IsVariadic = true
				break
			}
			rt.Append(p.parseTypeName())
			if _, ok := p.match(token.Comma); !ok {
				break
			}
		}
		p.expect(token.GreaterThan, diag.ExpectedToken)
		return rt
	}
	rt.Append(p.parseTypeName())
	return rt
}

// parseFunctionBody parses `(params) [: returnTypes] block end`. isMethod
// prepends an implicit `self` parameter (the `:` method-declaration sugar).
func (p *Parser) parseFunctionBody(isMethod bool) ast.FunctionExprPayload {
	params, vararg := p.parseParamList()
	if isMethod {
		self := ast.Param{Name: ast.Identifier{Symbol: p.intern("self")}, Type: ast.Any, IsSelf: true}
		params = append([]ast.Param{self}, params...)
	}
	rt := p.parseReturnTypes()
	p.funcDepth++
	body := p.parseBlock(token.EndToken)
	p.funcDepth--
	p.expect(token.EndToken, diag.ExpectedFunctionBody)
	return ast.FunctionExprPayload{Parameters: params, IsVararg: vararg, ReturnTypes: rt, Body: body}
}

// parseThunkBody parses a thunk body: params, an optional single return
// type, then a block — no vararg, no 8-slot return vector.
func (p *Parser) parseThunkBody() ast.FunctionExprPayload {
	params, vararg := p.parseParamList()
	if vararg {
		p.errorf(diag.UnexpectedToken, "thunks cannot declare varargs")
	}
	thunkReturnType := ast.Any
	if _, ok := p.match(token.Colon); ok {
		thunkReturnType = p.parseTypeName()
	}
	p.funcDepth++
	body := p.parseBlock(token.EndToken)
	p.funcDepth--
	p.expect(token.EndToken, diag.ExpectedFunctionBody)
	return ast.FunctionExprPayload{Parameters: params, IsThunk: true, ThunkReturnType: thunkReturnType, Body: body}
}

// parseFunctionLiteral parses an anonymous `function(...) ... end` literal
// used in expression position.
func (p *Parser) parseFunctionLiteral(isMethod bool) ast.Expression {
	tok := p.advance() // 'function'
	payload := p.parseFunctionBody(isMethod)
	return &ast.FunctionExpr{SourceSpan: tok.Span, Function: payload}
}

// parseThunkLiteral parses an anonymous thunk literal. A parameterless
// anonymous thunk is auto-invoked at the point of use.
func (p *Parser) parseThunkLiteral() ast.Expression {
	tok := p.advance() // 'thunk'
	payload := p.parseThunkBody()
	expr := &ast.FunctionExpr{SourceSpan: tok.Span, Function: payload}
	if len(payload.Parameters) == 0 {
		return &ast.CallExpr{SourceSpan: tok.Span, Target: ast.CallTarget{Kind: ast.DirectCall, Callable: expr}}
	}
	return expr
}

// parseFunctionNamePath parses `a.b.c[:method]`.
func (p *Parser) parseFunctionNamePath() ast.FunctionNamePath {
	segs := []ast.Identifier{p.parseIdentifierName()}
	for p.check(token.Dot) {
		p.advance()
		segs = append(segs, p.parseIdentifierName())
	}
	var method *ast.Identifier
	if _, ok := p.match(token.Colon); ok {
		m := p.parseIdentifierName()
		method = &m
	}
	return ast.FunctionNamePath{Segments: segs, Method: method}
}

// parseFunctionStmt parses the bare `function path(...) ... end` form.
func (p *Parser) parseFunctionStmt() ast.Statement {
	tok := p.advance() // 'function'
	path := p.parseFunctionNamePath()
	payload := p.parseFunctionBody(path.Method != nil)
	return &ast.FunctionStmt{SourceSpan: tok.Span, Name: path, Function: payload}
}

// parseThunkStmt parses a named thunk declaration, local by default or
// explicitly global when isGlobal is set by the caller.
func (p *Parser) parseThunkStmt(isGlobal bool) ast.Statement {
	tok := p.advance() // 'thunk'
	name := p.parseIdentifierName()
	payload := p.parseThunkBody()
	if isGlobal {
		return &ast.FunctionStmt{
			SourceSpan: tok.Span,
			Name:       ast.FunctionNamePath{Segments: []ast.Identifier{name}, IsExplicitGlobal: true},
			Function:   payload,
		}
	}
	return &ast.LocalFunctionStmt{SourceSpan: tok.Span, Name: name, Function: payload}
}
