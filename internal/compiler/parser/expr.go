package parser

import (
	"github.com/btouchard/luma/internal/compiler/ast"
	"github.com/btouchard/luma/internal/compiler/diag"
	"github.com/btouchard/luma/internal/compiler/token"
)

// binOpInfo is one row of the precedence table. level is
// the operator's own binding power; rightAssoc picks which minimum level
// its right operand is parsed at (level itself for right-associative
// operators, level+1 for left-associative ones).
type binOpInfo struct {
	level      int
	rightAssoc bool
	op         ast.BinaryOp
}

var binOpTable = map[token.Kind]binOpInfo{
	token.Caret:        {10, true, ast.OpPower},
	token.Star:         {7, false, ast.OpMul},
	token.Slash:        {7, false, ast.OpDiv},
	token.Percent:      {7, false, ast.OpMod},
	token.Plus:         {6, false, ast.OpAdd},
	token.Minus:        {6, false, ast.OpSub},
	token.Cat:          {6, true, ast.OpConcat},
	token.ShiftLeft:    {5, false, ast.OpShiftLeft},
	token.ShiftRight:   {5, false, ast.OpShiftRight},
	token.Ampersand:    {4, false, ast.OpBitAnd},
	token.Tilde:        {3, false, ast.OpBitXor},
	token.BitOrTok:     {2, false, ast.OpBitOr},
	token.Equal:        {3, false, ast.OpEqual},
	token.NotEqual:     {3, false, ast.OpNotEqual},
	token.LessThan:     {3, false, ast.OpLessThan},
	token.LessEqual:    {3, false, ast.OpLessEqual},
	token.GreaterThan:  {3, false, ast.OpGreaterThan},
	token.GreaterEqual: {3, false, ast.OpGreaterEqual},
	token.IsToken:      {3, false, ast.OpEqual}, // `is` parses as `==`
	token.AndToken:     {2, false, ast.OpLogicalAnd},
	token.OrToken:      {1, false, ast.OpLogicalOr},
	token.Presence:     {1, false, ast.OpIfEmpty}, // binary `??`, as distinct from postfix presence
}

// parseExpression is the entry point: ternary, the lowest-precedence form.
func (p *Parser) parseExpression() ast.Expression {
	return p.parseTernary()
}

func (p *Parser) parseTernary() ast.Expression {
	return p.continueTernary(p.parsePipe())
}

// continueTernary lets the statement-level expression dispatcher resume
// ternary parsing from an already-parsed left operand (see
// continueExpressionFromPostfix in stmt.go).
func (p *Parser) continueTernary(cond ast.Expression) ast.Expression {
	if tok, ok := p.match(token.Question); ok {
		ifTrue := p.parseTernary()
		p.expect(token.Colon, diag.ExpectedToken)
		ifFalse := p.parseTernary()
		return &ast.TernaryExpr{SourceSpan: tok.Span, Condition: cond, IfTrue: ifTrue, IfFalse: ifFalse}
	}
	return cond
}

// parsePipe handles `lhs |> rhs` chains. rhs is parsed as
// a unary followed by a suffix chain, then either desugared into an
// `:each(rhs)` method call (when lhs is rangelike and rhs is a plain
// function value) or wrapped in a PipeExpr.
func (p *Parser) parsePipe() ast.Expression {
	return p.continuePipe(p.parseBinary(1))
}

func (p *Parser) continuePipe(left ast.Expression) ast.Expression {
	for {
		tok, ok := p.match(token.Pipe)
		if !ok {
			break
		}
		rhs := p.parseUnary()
		if isRangelike(left) && isFunctionValue(rhs) {
			left = &ast.CallExpr{
				SourceSpan: tok.Span,
				Target: ast.CallTarget{
					Kind:     ast.MethodCall,
					Receiver: left,
					Method:   ast.Identifier{Symbol: p.intern("each"), SourceSpan: tok.Span},
				},
				Arguments: []ast.Expression{rhs},
			}
			continue
		}
		left = &ast.PipeExpr{SourceSpan: tok.Span, LHS: left, RHS: rhs}
	}
	return left
}

func isRangelike(e ast.Expression) bool {
	if _, ok := e.(*ast.RangeExpr); ok {
		return true
	}
	if call, ok := e.(*ast.CallExpr); ok {
		return call.Target.Kind == ast.MethodCall && call.Target.Method.Name() == "each"
	}
	return false
}

func isFunctionValue(e ast.Expression) bool {
	switch e.(type) {
	case *ast.IdentifierExpr, *ast.MemberExpr, *ast.IndexExpr, *ast.FunctionExpr:
		return true
	default:
		return false
	}
}

// parseBinary runs precedence climbing over binOpTable starting at
// minLevel. `in` is intercepted specially: `x in r` desugars to
// `r:contains(x)` rather than producing a BinaryExpr.
func (p *Parser) parseBinary(minLevel int) ast.Expression {
	return p.continueBinary(p.parseUnary(), minLevel)
}

// continueBinary runs the precedence-climbing loop starting from an
// already-parsed left operand, letting statement-level parsing resume the
// same grammar from a pre-parsed postfix expression.
func (p *Parser) continueBinary(left ast.Expression, minLevel int) ast.Expression {
	for {
		cur := p.cur()
		if cur.Kind == token.InToken {
			if 3 < minLevel {
				break
			}
			tok := p.advance()
			right := p.parseBinary(4)
			left = &ast.CallExpr{
				SourceSpan: tok.Span,
				Target: ast.CallTarget{
					Kind:     ast.MethodCall,
					Receiver: right,
					Method:   ast.Identifier{Symbol: p.intern("contains"), SourceSpan: tok.Span},
				},
				Arguments: []ast.Expression{left},
			}
			continue
		}

		// `expr ?? return|break|continue` is the conditional-shorthand
		// statement, not a binary if-empty expression: stop here and let
		// the statement dispatcher consume the `??` itself.
		if cur.Kind == token.Presence {
			switch p.peek(1).Kind {
			case token.ReturnToken, token.BreakToken, token.ContinueToken:
				return left
			}
		}

		// Inside a `{a..b}` range operand a top-level `..` belongs to the
		// range, not to a concat expression.
		if p.suppressConcat && cur.Kind == token.Cat {
			break
		}

		// Inside a choose body, a relational operator followed (at bracket
		// depth zero, within the 100-token cap) by `->` or `when` opens the
		// next case's pattern rather than continuing this expression.
		if p.inChoose {
			if _, isRel := relationalPatternOp(cur.Kind); isRel && p.looksLikeRelationalPattern() {
				break
			}
		}

		info, ok := binOpTable[cur.Kind]
		if !ok || info.level < minLevel {
			break
		}
		tok := p.advance()
		nextMin := info.level
		if !info.rightAssoc {
			nextMin = info.level + 1
		}
		right := p.parseBinary(nextMin)
		left = &ast.BinaryExpr{SourceSpan: tok.Span, Op: info.op, Left: left, Right: right}
	}
	return left
}

// parseUnary handles the prefix operators: `not`, `-`,
// `#`, `~`, prefix `++`. Unary minus binds just below power so `-2^2`
// parses as `-(2^2)`.
func (p *Parser) parseUnary() ast.Expression {
	tok := p.cur()
	switch tok.Kind {
	case token.NotToken:
		p.advance()
		return &ast.UnaryExpr{SourceSpan: tok.Span, Op: ast.OpNot, Operand: p.parseUnary()}
	case token.Minus:
		p.advance()
		return &ast.UnaryExpr{SourceSpan: tok.Span, Op: ast.OpNegate, Operand: p.parseBinary(10)}
	case token.Hash:
		p.advance()
		return &ast.UnaryExpr{SourceSpan: tok.Span, Op: ast.OpLength, Operand: p.parseUnary()}
	case token.Tilde:
		p.advance()
		return &ast.UnaryExpr{SourceSpan: tok.Span, Op: ast.OpBitNot, Operand: p.parseUnary()}
	case token.PlusPlus:
		p.advance()
		return &ast.UpdateExpr{SourceSpan: tok.Span, Prefix: true, Operand: p.parseUnary()}
	default:
		return p.parsePostfix(p.parsePrimary())
	}
}

// parsePostfix applies the suffix chain to a primary: member/index access
// (plain and safe-navigation), method/safe-method calls, direct calls
// (including the bare-string and bare-table call shorthands), and postfix
// `++`.
func (p *Parser) parsePostfix(primary ast.Expression) ast.Expression {
	for {
		tok := p.cur()
		switch tok.Kind {
		case token.Dot:
			p.advance()
			name := p.parseIdentifierName()
			primary = &ast.MemberExpr{SourceSpan: tok.Span, Table: primary, Name: name}
		case token.SafeField:
			p.advance()
			name := p.parseIdentifierName()
			primary = &ast.SafeMemberExpr{SourceSpan: tok.Span, Table: primary, Name: name}
		case token.LeftBracket:
			p.advance()
			sc, ic := p.saveExprFlags()
			idx := p.parseExpression()
			p.restoreExprFlags(sc, ic)
			p.expect(token.RightBracket, diag.UnclosedBracket)
			primary = &ast.IndexExpr{SourceSpan: tok.Span, Table: primary, Index: idx}
		case token.SafeIndex:
			p.advance()
			sc, ic := p.saveExprFlags()
			idx := p.parseExpression()
			p.restoreExprFlags(sc, ic)
			p.expect(token.RightBracket, diag.UnclosedBracket)
			primary = &ast.SafeIndexExpr{SourceSpan: tok.Span, Table: primary, Index: idx}
		case token.Colon:
			// Only `:name(` starts a method call; any other `:` (such as the
			// ternary's `? a : b`) ends the suffix chain.
			if p.peek(1).Kind != token.Identifier || p.peek(2).Kind != token.LeftParen {
				return primary
			}
			p.advance()
			method := p.parseIdentifierName()
			args := p.parseCallArguments()
			primary = &ast.CallExpr{SourceSpan: tok.Span, Target: ast.CallTarget{Kind: ast.MethodCall, Receiver: primary, Method: method}, Arguments: args}
		case token.SafeMethod:
			p.advance()
			method := p.parseIdentifierName()
			args := p.parseCallArguments()
			primary = &ast.CallExpr{SourceSpan: tok.Span, Target: ast.CallTarget{Kind: ast.SafeMethodCall, Receiver: primary, Method: method}, Arguments: args}
		case token.LeftParen:
			args := p.parseCallArguments()
			primary = &ast.CallExpr{SourceSpan: tok.Span, Target: ast.CallTarget{Kind: ast.DirectCall, Callable: primary}, Arguments: args}
		case token.String:
			arg := p.parsePrimary()
			primary = &ast.CallExpr{SourceSpan: tok.Span, Target: ast.CallTarget{Kind: ast.DirectCall, Callable: primary}, Arguments: []ast.Expression{arg}}
		case token.LeftBrace:
			arg := p.parseTableLiteral()
			primary = &ast.CallExpr{SourceSpan: tok.Span, Target: ast.CallTarget{Kind: ast.DirectCall, Callable: primary}, Arguments: []ast.Expression{arg}}
		case token.PlusPlus:
			p.advance()
			primary = &ast.UpdateExpr{SourceSpan: tok.Span, Prefix: false, Operand: primary}
		default:
			return primary
		}
	}
}

// parseCallArguments parses `(args)` — the direct/method/safe-method call
// argument list.
func (p *Parser) parseCallArguments() []ast.Expression {
	p.expect(token.LeftParen, diag.ExpectedToken)
	sc, ic := p.saveExprFlags()
	defer p.restoreExprFlags(sc, ic)
	var args []ast.Expression
	if !p.check(token.RightParen) {
		args = append(args, p.parseExpression())
		for {
			if _, ok := p.match(token.Comma); !ok {
				break
			}
			args = append(args, p.parseExpression())
		}
	}
	p.expect(token.RightParen, diag.ExpectedToken)
	return args
}

func (p *Parser) parseIdentifierName() ast.Identifier {
	tok := p.cur()
	if tok.Kind != token.Identifier {
		p.errorf(diag.ExpectedIdentifier, "expected identifier, got %s", tok.Kind)
		return ast.Identifier{IsBlank: true, SourceSpan: tok.Span}
	}
	p.advance()
	name := ""
	if tok.Ident != nil {
		name = *tok.Ident
	}
	if name == "_" {
		return ast.Identifier{IsBlank: true, SourceSpan: tok.Span}
	}
	return ast.Identifier{Symbol: p.intern(name), SourceSpan: tok.Span}
}

// parsePrimary parses a single atom: literals, identifiers, varargs,
// parenthesized groups/arrow-function parameter tuples, table literals,
// function/thunk literals, the deferred-expression sugar, and `array<T>`
// typed-array literals.
func (p *Parser) parsePrimary() ast.Expression {
	tok := p.cur()
	switch tok.Kind {
	case token.Number:
		p.advance()
		return &ast.LiteralExpr{SourceSpan: tok.Span, Value: ast.LiteralValue{Kind: ast.LiteralNum, Num: tok.Number}}
	case token.String:
		p.advance()
		var s string
		if tok.Str != nil {
			s = *tok.Str
		}
		return &ast.LiteralExpr{SourceSpan: tok.Span, Value: ast.LiteralValue{Kind: ast.LiteralStr, Str: p.intern(s)}}
	case token.TrueToken:
		p.advance()
		return &ast.LiteralExpr{SourceSpan: tok.Span, Value: ast.LiteralValue{Kind: ast.LiteralBool, Bool: true}}
	case token.FalseToken:
		p.advance()
		return &ast.LiteralExpr{SourceSpan: tok.Span, Value: ast.LiteralValue{Kind: ast.LiteralBool, Bool: false}}
	case token.Nil:
		p.advance()
		return &ast.LiteralExpr{SourceSpan: tok.Span, Value: ast.LiteralValue{Kind: ast.LiteralNil}}
	case token.Dots:
		p.advance()
		return &ast.VarArgExpr{SourceSpan: tok.Span}
	case token.Identifier:
		if tok.Ident != nil && *tok.Ident == "array" && p.peek(1).Kind == token.LessThan {
			return p.parseTypedArrayLiteral()
		}
		name := p.parseIdentifierName()
		return &ast.IdentifierExpr{SourceSpan: tok.Span, Name: ast.NameRef{Identifier: name}}
	case token.LeftParen:
		return p.parseParenOrArrow()
	case token.LeftBrace:
		// `{a..b}` at expression position is a range, not a table, unless a
		// depth-zero comma makes it a table.
		if rangeExpr, ok := p.tryParseRangeInBraces(); ok {
			return rangeExpr
		}
		return p.parseTableLiteral()
	case token.Function:
		return p.parseFunctionLiteral(false)
	case token.ThunkToken:
		return p.parseThunkLiteral()
	case token.DeferredOpen:
		return p.parseDeferredExpr(ast.Unknown)
	case token.DeferredTyped:
		explicit := ast.Any
		if tok.Ident != nil {
			if t, ok := ast.TypeName(*tok.Ident); ok {
				explicit = t
			}
		}
		return p.parseDeferredExpr(explicit)
	case token.Choose:
		return p.parseChooseExpr()
	case token.LeftBracket:
		return p.parseResultFilterExpr()
	default:
		p.errorf(diag.ExpectedExpression, "expected expression, got %s", tok.Kind)
		p.advance()
		return &ast.LiteralExpr{SourceSpan: tok.Span, Value: ast.LiteralValue{Kind: ast.LiteralNil}}
	}
}

func (p *Parser) parseResultFilterExpr() ast.Expression {
	tok := p.cur()
	p.advance() // consume '['
	var mask uint64
	var explicit uint8
	trailingKeep := false
	for i := 0; ; i++ {
		if p.check(token.RightBracket) {
			break
		}
		if _, ok := p.match(token.Star); ok {
			if i < 64 {
				mask |= 1 << uint(i)
			}
			explicit++
			trailingKeep = true
		} else {
			// `_` lexes as an ordinary identifier token.
			if _, ok := p.expect(token.Identifier, diag.UnclosedBracket); !ok {
				break
			}
			explicit++
			trailingKeep = false
		}
	}
	p.expect(token.RightBracket, diag.UnclosedBracket)
	call := p.parsePostfix(p.parsePrimary())
	if mask == (uint64(1)<<explicit)-1 && explicit > 0 {
		return call
	}
	return &ast.ResultFilterExpr{SourceSpan: tok.Span, Call: call, KeepMask: mask, ExplicitCount: explicit, TrailingKeep: trailingKeep}
}

func (p *Parser) parseTableLiteral() ast.Expression {
	tok := p.cur()
	p.expect(token.LeftBrace, diag.ExpectedToken)
	sc, ic := p.saveExprFlags()
	defer p.restoreExprFlags(sc, ic)
	table := &ast.TableExpr{SourceSpan: tok.Span}
	for !p.check(token.RightBrace) && !p.check(token.EOF) {
		field := p.parseTableField()
		table.Fields = append(table.Fields, field)
		if field.Kind == ast.TableFieldArray {
			table.HasArrayPart = true
		}
		if _, ok := p.match(token.Comma); !ok {
			if _, ok := p.match(token.Semicolon); !ok {
				break
			}
		}
	}
	p.expect(token.RightBrace, diag.UnclosedBrace)
	return table
}

func (p *Parser) parseTableField() ast.TableField {
	fieldSpan := p.cur().Span
	if p.check(token.LeftBracket) {
		p.advance()
		key := p.parseExpression()
		p.expect(token.RightBracket, diag.UnclosedBracket)
		p.expect(token.Equals, diag.ExpectedToken)
		value := p.parseExpression()
		return ast.TableField{Kind: ast.TableFieldComputed, Key: key, Value: value, SourceSpan: fieldSpan}
	}
	if p.check(token.Identifier) && p.peek(1).Kind == token.Equals {
		name := p.parseIdentifierName()
		p.advance() // '='
		value := p.parseExpression()
		return ast.TableField{Kind: ast.TableFieldRecord, Name: &name, Value: value, SourceSpan: fieldSpan}
	}
	value := p.parseExpression()
	return ast.TableField{Kind: ast.TableFieldArray, Value: value, SourceSpan: fieldSpan}
}

// parseParenOrArrow handles `(expr)` groups and `(a, b, c) => ...` arrow
// function parameter tuples. Empty `()` that isn't
// followed by `=>` is an error.
func (p *Parser) parseParenOrArrow() ast.Expression {
	openTok := p.cur()
	p.advance() // '('
	sc, ic := p.saveExprFlags()
	defer p.restoreExprFlags(sc, ic)

	if p.check(token.RightParen) {
		p.advance()
		if p.check(token.Arrow) {
			return p.finishArrowFunction(openTok.Span, nil)
		}
		p.errorf(diag.ExpectedExpression, "empty parentheses are not a valid expression")
		return &ast.LiteralExpr{SourceSpan: openTok.Span, Value: ast.LiteralValue{Kind: ast.LiteralNil}}
	}

	// Speculatively try the arrow-parameter-tuple shape: a run of bare
	// identifiers separated by commas, followed by `)` then `=>`.
	if names, ok := p.tryParseArrowParamTuple(); ok {
		return p.finishArrowFunction(openTok.Span, names)
	}

	expr := p.parseExpression()
	p.expect(token.RightParen, diag.UnclosedGroup)
	return expr
}

// tryParseArrowParamTuple attempts to read `a, b, c)` where every entry is
// a bare identifier and the `)` is followed by `=>`, leaving the cursor
// just past `)` on success. The whole shape is checked by lookahead before
// any token is consumed, so on failure the cursor is untouched.
func (p *Parser) tryParseArrowParamTuple() (names []ast.Identifier, ok bool) {
	if !p.check(token.Identifier) {
		return nil, false
	}
	// Look ahead without consuming: identifier (`,` identifier)* `)` `=>`.
	i := 1
	for p.peek(i).Kind == token.Comma && p.peek(i+1).Kind == token.Identifier {
		i += 2
	}
	if p.peek(i).Kind != token.RightParen || p.peek(i+1).Kind != token.Arrow {
		return nil, false
	}
	for {
		if !p.check(token.Identifier) {
			return nil, false
		}
		names = append(names, p.parseIdentifierName())
		if _, ok := p.match(token.Comma); ok {
			continue
		}
		break
	}
	if _, ok := p.match(token.RightParen); !ok {
		return nil, false
	}
	return names, true
}

// finishArrowFunction desugars `(params) => expr` / `(params) => do ... end`
// into a FunctionExpr.
func (p *Parser) finishArrowFunction(span token.Span, names []ast.Identifier) ast.Expression {
	p.expect(token.Arrow, diag.ExpectedToken)

	params := make([]ast.Param, len(names))
	for i, n := range names {
		params[i] = ast.Param{Name: n, Type: ast.Unknown}
	}

	payload := ast.FunctionExprPayload{Parameters: params}
	if p.check(token.DoToken) {
		p.advance()
		p.funcDepth++
		payload.Body = p.parseBlock(token.EndToken)
		p.funcDepth--
		p.expect(token.EndToken, diag.ExpectedToken)
		return &ast.FunctionExpr{SourceSpan: span, Function: payload}
	}

	if typeName, ok := p.tryParseExplicitReturnTypeName(); ok {
		payload.ReturnTypes.Append(typeName)
		payload.ReturnTypes.IsExplicit = true
	}
	bodyExpr := p.parseExpression()
	payload.Body = &ast.BlockStmt{
		SourceSpan: bodyExpr.Span(),
		Statements: []ast.Statement{&ast.ReturnStmt{SourceSpan: bodyExpr.Span(), Values: []ast.Expression{bodyExpr}}},
	}
	return &ast.FunctionExpr{SourceSpan: span, Function: payload}
}

// tryParseExplicitReturnTypeName recognizes the `=> T: body` shape, where T
// is a known type name immediately followed by `:`.
func (p *Parser) tryParseExplicitReturnTypeName() (ast.Type, bool) {
	if p.cur().Kind != token.Identifier || p.cur().Ident == nil {
		return ast.Unknown, false
	}
	t, known := ast.TypeName(*p.cur().Ident)
	if !known || p.peek(1).Kind != token.Colon {
		return ast.Unknown, false
	}
	p.advance() // type name
	p.advance() // ':'
	return t, true
}

// parseDeferredExpr desugars `<{ e }>` / `<type{ e }>` into an
// immediately-invoked parameterless thunk. explicitType is
// Unknown for the untyped form, whose return type is left to inference.
func (p *Parser) parseDeferredExpr(explicitType ast.Type) ast.Expression {
	tok := p.cur()
	p.advance() // '<{' or '<type{'
	sc, ic := p.saveExprFlags()
	inner := p.parseExpression()
	p.restoreExprFlags(sc, ic)
	p.expect(token.DeferredClose, diag.UnclosedBrace)

	payload := ast.FunctionExprPayload{
		IsThunk:         true,
		ThunkReturnType: ast.Any,
		Body: &ast.BlockStmt{
			SourceSpan: inner.Span(),
			Statements: []ast.Statement{&ast.ReturnStmt{SourceSpan: inner.Span(), Values: []ast.Expression{inner}}},
		},
	}
	if explicitType != ast.Unknown {
		payload.ThunkReturnType = explicitType
		payload.ReturnTypes.Append(explicitType)
		payload.ReturnTypes.IsExplicit = true
	}
	thunk := &ast.FunctionExpr{SourceSpan: tok.Span, Function: payload}
	return &ast.CallExpr{SourceSpan: tok.Span, Target: ast.CallTarget{Kind: ast.DirectCall, Callable: thunk}}
}

// parseTypedArrayLiteral desugars `array<T>`, `array<T,size>`,
// `array<T>{...}`, and `array<T,size>{...}`. Built from
// ordinary tokens (no dedicated lexer payload token) since `array` is a
// plain identifier and `<...>` reuses the comparison-operator tokens.
func (p *Parser) parseTypedArrayLiteral() ast.Expression {
	start := p.advance() // 'array'
	p.expect(token.LessThan, diag.ExpectedToken)
	elemTypeTok := p.cur()
	var elemType string
	if elemTypeTok.Kind == token.Identifier && elemTypeTok.Ident != nil {
		elemType = *elemTypeTok.Ident
		p.advance()
	} else {
		p.errorf(diag.ExpectedTypeName, "expected element type name in array<T>")
	}

	var sizeExpr ast.Expression
	if _, ok := p.match(token.Comma); ok {
		// Parse above the comparison level so the closing `>` is not
		// taken as a greater-than operator.
		sizeExpr = p.parseBinary(4)
	}
	p.expect(token.GreaterThan, diag.ExpectedToken)

	typeArg := &ast.LiteralExpr{SourceSpan: start.Span, Value: ast.LiteralValue{Kind: ast.LiteralStr, Str: p.intern(elemType)}}

	var initializers []ast.Expression
	hasInitBlock := false
	if p.check(token.LeftBrace) {
		hasInitBlock = true
		p.advance()
		for !p.check(token.RightBrace) && !p.check(token.EOF) {
			initializers = append(initializers, p.parseExpression())
			if _, ok := p.match(token.Comma); !ok {
				break
			}
		}
		p.expect(token.RightBrace, diag.UnclosedBrace)
	}

	arrayNew := func(sz ast.Expression) ast.Expression {
		return &ast.CallExpr{SourceSpan: start.Span, Target: p.directIdentCall("array", "new", start.Span), Arguments: []ast.Expression{sz, typeArg}}
	}
	arrayOf := func(values []ast.Expression) ast.Expression {
		args := append([]ast.Expression{typeArg}, values...)
		return &ast.CallExpr{SourceSpan: start.Span, Target: p.directIdentCall("array", "of", start.Span), Arguments: args}
	}

	literalSize, sizeIsLiteral := literalIntValue(sizeExpr)

	switch {
	case sizeExpr == nil && hasInitBlock:
		return arrayOf(initializers)
	case sizeExpr == nil:
		return arrayNew(&ast.LiteralExpr{SourceSpan: start.Span, Value: ast.LiteralValue{Kind: ast.LiteralNum, Num: 0}})
	case !hasInitBlock:
		return arrayNew(sizeExpr)
	case sizeIsLiteral && literalSize <= len(initializers):
		return arrayOf(initializers)
	default:
		// Non-literal size, or a literal size exceeding the initializer
		// count: needs an IIFE that allocates then resizes.
		return p.buildResizingArrayIIFE(start.Span, typeArg, sizeExpr, initializers)
	}
}

func literalIntValue(e ast.Expression) (int, bool) {
	lit, ok := e.(*ast.LiteralExpr)
	if !ok || lit.Value.Kind != ast.LiteralNum {
		return 0, false
	}
	return int(lit.Value.Num), true
}

// buildResizingArrayIIFE builds `(function() local _arr = array.of(T, vs...)
// array.resize(_arr, size) return _arr end)()`.
func (p *Parser) buildResizingArrayIIFE(span token.Span, typeArg ast.Expression, sizeExpr ast.Expression, initializers []ast.Expression) ast.Expression {
	tmp := ast.Identifier{Symbol: p.intern("_arr"), SourceSpan: span}
	tmpRef := func() ast.Expression {
		return &ast.IdentifierExpr{SourceSpan: span, Name: ast.NameRef{Identifier: tmp}}
	}
	arrayOfArgs := append([]ast.Expression{typeArg}, initializers...)
	body := &ast.BlockStmt{SourceSpan: span, Statements: []ast.Statement{
		&ast.LocalDeclStmt{
			SourceSpan: span,
			Names:      []ast.Identifier{tmp},
			Values:     []ast.Expression{&ast.CallExpr{SourceSpan: span, Target: p.directIdentCall("array", "of", span), Arguments: arrayOfArgs}},
		},
		&ast.ExpressionStmt{SourceSpan: span, ExprNode: &ast.CallExpr{
			SourceSpan: span,
			Target:     p.directIdentCall("array", "resize", span),
			Arguments:  []ast.Expression{tmpRef(), sizeExpr},
		}},
		&ast.ReturnStmt{SourceSpan: span, Values: []ast.Expression{tmpRef()}},
	}}
	thunk := &ast.FunctionExpr{SourceSpan: span, Function: ast.FunctionExprPayload{Body: body}}
	return &ast.CallExpr{SourceSpan: span, Target: ast.CallTarget{Kind: ast.DirectCall, Callable: thunk}}
}

// directIdentCall builds a direct-call target whose callable is the member
// expression `pkg.fn`, used by the typed-array-literal desugarings to call
// into the `array` library.
func (p *Parser) directIdentCall(pkg, fn string, span token.Span) ast.CallTarget {
	pkgExpr := &ast.IdentifierExpr{SourceSpan: span, Name: ast.NameRef{Identifier: ast.Identifier{Symbol: p.intern(pkg), SourceSpan: span}}}
	member := &ast.MemberExpr{SourceSpan: span, Table: pkgExpr, Name: ast.Identifier{Symbol: p.intern(fn), SourceSpan: span}}
	return ast.CallTarget{Kind: ast.DirectCall, Callable: member}
}

// parseChooseExpr parses `choose scrutinee[, s2 ...] case* end`, where each
// case is `pattern[, pattern ...] [when guard] -> result` and `else ->
// result` is the catch-all spelling. While the scrutinee and case results
// are being parsed, inChoose arms continueBinary's relational-pattern
// lookahead so `choose x < 10 -> ...` splits into scrutinee `x` and
// pattern `< 10`.
func (p *Parser) parseChooseExpr() ast.Expression {
	tok := p.cur()
	p.advance() // 'choose'

	savedChoose := p.inChoose
	p.inChoose = true
	scrutinee := p.parseExpression()
	var tuple []ast.Expression
	if _, ok := p.match(token.Comma); ok {
		tuple = append(tuple, scrutinee)
		tuple = append(tuple, p.parseExpression())
		for {
			if _, ok := p.match(token.Comma); !ok {
				break
			}
			tuple = append(tuple, p.parseExpression())
		}
		scrutinee = nil
	}

	tupleArity := len(tuple)
	expr := &ast.ChooseExpr{SourceSpan: tok.Span, Scrutinee: scrutinee, ScrutineeTuple: tuple}
	for !p.check(token.EndToken) && !p.check(token.EOF) {
		expr.Cases = append(expr.Cases, p.parseChooseCase(tupleArity))
	}
	p.inChoose = savedChoose
	p.expect(token.EndToken, diag.ExpectedToken)
	return expr
}

func blankPatternExpr(span token.Span) ast.Expression {
	return &ast.IdentifierExpr{SourceSpan: span, Name: ast.NameRef{Identifier: ast.Identifier{IsBlank: true, SourceSpan: span}}}
}

func (p *Parser) parseChooseCase(tupleArity int) ast.ChooseCase {
	var c ast.ChooseCase
	if _, ok := p.match(token.Else); ok {
		span := p.cur().Span
		if tupleArity > 0 {
			c.TuplePatterns = make([]ast.Expression, tupleArity)
			for i := range c.TuplePatterns {
				c.TuplePatterns[i] = blankPatternExpr(span)
			}
		} else {
			c.Pattern = blankPatternExpr(span)
		}
	} else {
		// Patterns and guards parse with the relational lookahead disarmed:
		// a comparison inside a guard (`x when x > limit ->`) is a plain
		// expression, and a leading relational operator is already handled
		// by parseChoosePattern.
		savedChoose := p.inChoose
		p.inChoose = false
		if tupleArity > 0 {
			c.TuplePatterns = append(c.TuplePatterns, p.parseChoosePattern())
			for len(c.TuplePatterns) < tupleArity {
				p.expect(token.Comma, diag.ExpectedToken)
				c.TuplePatterns = append(c.TuplePatterns, p.parseChoosePattern())
			}
		} else {
			c.Pattern = p.parseChoosePattern()
		}
		if _, ok := p.match(token.When); ok {
			c.Guard = p.parseExpression()
		}
		p.inChoose = savedChoose
	}
	p.expect(token.CaseArrow, diag.ExpectedToken)
	c.Result = p.parseExpression()
	return c
}

func relationalPatternOp(k token.Kind) (ast.BinaryOp, bool) {
	switch k {
	case token.LessThan:
		return ast.OpLessThan, true
	case token.LessEqual:
		return ast.OpLessEqual, true
	case token.GreaterThan:
		return ast.OpGreaterThan, true
	case token.GreaterEqual:
		return ast.OpGreaterEqual, true
	case token.Equal:
		return ast.OpEqual, true
	case token.NotEqual:
		return ast.OpNotEqual, true
	}
	return 0, false
}

// parseChoosePattern parses one case pattern. A leading relational
// operator (`< 10`, `>= 5`, ...) is a relational pattern against the
// scrutinee rather than a malformed expression — the only place `<`/`>` can
// legally start a pattern — confirmed with a bounded look-ahead for the
// case's `->` before committing.
func (p *Parser) parseChoosePattern() ast.Expression {
	if op, ok := relationalPatternOp(p.cur().Kind); ok && p.looksLikeRelationalPattern() {
		tok := p.advance()
		operand := p.parseBinary(4)
		return &ast.BinaryExpr{SourceSpan: tok.Span, Op: op, Left: blankPatternExpr(tok.Span), Right: operand}
	}
	return p.parseExpression()
}

func (p *Parser) looksLikeRelationalPattern() bool {
	depth := 0
	for i := 1; i <= 100; i++ {
		tok := p.peek(i)
		switch tok.Kind {
		case token.LeftParen, token.LeftBracket, token.LeftBrace:
			depth++
		case token.RightParen, token.RightBracket, token.RightBrace:
			depth--
			if depth < 0 {
				return false
			}
		case token.CaseArrow, token.When:
			if depth == 0 {
				return true
			}
		case token.EndToken, token.EOF:
			if depth == 0 {
				return false
			}
		}
	}
	return false
}
