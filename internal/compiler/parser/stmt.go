package parser

import (
	"fmt"

	"github.com/btouchard/luma/internal/compiler/ast"
	"github.com/btouchard/luma/internal/compiler/diag"
	"github.com/btouchard/luma/internal/compiler/token"
)

// compoundAssignOps maps an arithmetic compound-assignment token to the
// BinaryOp its desugared `target = target op rhs` form uses.
var compoundAssignOps = map[token.Kind]ast.BinaryOp{
	token.PlusAssign:    ast.OpAdd,
	token.MinusAssign:   ast.OpSub,
	token.StarAssign:    ast.OpMul,
	token.SlashAssign:   ast.OpDiv,
	token.PercentAssign: ast.OpMod,
	token.ConcatAssign:  ast.OpConcat,
}

func (p *Parser) isAssignStart() bool {
	switch p.cur().Kind {
	case token.Equals, token.IfEmptyAssign, token.IfNilAssign:
		return true
	}
	_, ok := compoundAssignOps[p.cur().Kind]
	return ok
}

// parseStatement dispatches on the current token's kind to one concrete
// statement parser. Returns ok=false when the current token
// cannot start a statement at all, letting parseBlock's recovery loop take
// over.
func (p *Parser) parseStatement() (ast.Statement, bool) {
	tok := p.cur()
	switch tok.Kind {
	case token.Semicolon:
		p.advance()
		return nil, true
	case token.Local:
		return p.parseLocalStmt(), true
	case token.Global:
		return p.parseGlobalStmt(), true
	case token.Function:
		return p.parseFunctionStmt(), true
	case token.ThunkToken:
		return p.parseThunkStmt(false), true
	case token.Annotate:
		if p.peek(1).Kind != token.Identifier {
			p.errorf(diag.UnexpectedToken, "expected annotation name after '@'")
			p.advance()
			return nil, false
		}
		return p.parseAnnotatedStatement(), true
	case token.If:
		return p.parseIfStmt(), true
	case token.WhileToken:
		return p.parseWhileStmt(), true
	case token.Repeat:
		return p.parseRepeatStmt(), true
	case token.For:
		return p.parseForStmt(), true
	case token.DoToken:
		return p.parseDoStmt(), true
	case token.DeferToken:
		return p.parseDeferStmt(), true
	case token.ReturnToken:
		return p.parseReturnStmt(), true
	case token.TryToken:
		return p.parseTryStmt(), true
	case token.RaiseToken:
		return p.parseRaiseStmt(), true
	case token.CheckToken:
		return p.parseCheckStmt(), true
	case token.BreakToken:
		t := p.advance()
		return &ast.BreakStmt{SourceSpan: t.Span}, true
	case token.ContinueToken:
		t := p.advance()
		return &ast.ContinueStmt{SourceSpan: t.Span}, true
	case token.ImportToken:
		return p.parseImportStmt(), true
	case token.NamespaceToken:
		return p.parseNamespaceStmt(), true
	case token.CompileIf:
		return p.parseCompileIf(), true
	case token.Identifier:
		if p.looksLikeImplicitLocal() {
			return p.parseImplicitLocalDecl(), true
		}
		return p.parseExprOrAssignStatement(), true
	case token.LeftParen:
		return p.parseExprOrAssignStatement(), true
	default:
		p.errorf(diag.UnexpectedToken, "unexpected token %s", tok.Kind)
		p.advance()
		return nil, false
	}
}

// parseStatement's nil result (a lone semicolon) is never appended to a
// block: parseBlock in parser.go skips nil statements in its loop body.

func (p *Parser) parseLocalStmt() ast.Statement {
	tok := p.advance() // 'local'
	if _, ok := p.match(token.Function); ok {
		name := p.parseIdentifierName()
		payload := p.parseFunctionBody(false)
		return &ast.LocalFunctionStmt{SourceSpan: tok.Span, Name: name, Function: payload}
	}
	if p.check(token.ThunkToken) {
		p.advance()
		name := p.parseIdentifierName()
		payload := p.parseThunkBody()
		return &ast.LocalFunctionStmt{SourceSpan: tok.Span, Name: name, Function: payload}
	}
	return p.parseDeclTail(tok, false)
}

func (p *Parser) parseGlobalStmt() ast.Statement {
	tok := p.advance() // 'global'
	if _, ok := p.match(token.Function); ok {
		name := p.parseIdentifierName()
		payload := p.parseFunctionBody(false)
		return &ast.FunctionStmt{
			SourceSpan: tok.Span,
			Name:       ast.FunctionNamePath{Segments: []ast.Identifier{name}, IsExplicitGlobal: true},
			Function:   payload,
		}
	}
	if p.check(token.ThunkToken) {
		return p.parseThunkStmt(true)
	}
	return p.parseDeclTail(tok, true)
}

// parseDeclTail parses the shared name_list [op expr_list] tail of `local`
// and `global` declarations.
func (p *Parser) parseDeclTail(tok token.Token, isGlobal bool) ast.Statement {
	names := []ast.Identifier{p.parseDeclName()}
	for {
		if _, ok := p.match(token.Comma); !ok {
			break
		}
		names = append(names, p.parseDeclName())
	}
	op, values := p.parseOptionalDeclAssign()
	names, values = p.migrateTrailingIdentifierValues(names, values)
	if isGlobal {
		return &ast.GlobalDeclStmt{SourceSpan: tok.Span, Op: op, Names: names, Values: values}
	}
	return &ast.LocalDeclStmt{SourceSpan: tok.Span, Op: op, Names: names, Values: values}
}

// parseDeclName parses `name [: type] [<const>|<close>]`.
func (p *Parser) parseDeclName() ast.Identifier {
	name := p.parseIdentifierName()
	if _, ok := p.match(token.Colon); ok {
		name.Type = p.parseTypeName()
	}
	if _, ok := p.match(token.ConstAttr); ok {
		name.HasConst = true
	} else if _, ok := p.match(token.CloseAttr); ok {
		name.HasClose = true
	}
	return name
}

func (p *Parser) parseOptionalDeclAssign() (ast.AssignOp, []ast.Expression) {
	switch {
	case p.check(token.Equals):
		p.advance()
		return ast.AssignPlain, p.parseExpressionList()
	case p.check(token.IfEmptyAssign):
		p.advance()
		return ast.AssignIfEmpty, p.parseExpressionList()
	case p.check(token.IfNilAssign):
		p.advance()
		return ast.AssignIfNil, p.parseExpressionList()
	}
	return ast.AssignPlain, nil
}

// migrateTrailingIdentifierValues normalizes a declaration so that
// values.len <= names.len: when a `local`/`global` declaration has more
// values than names, trailing bare identifier values are migrated into the
// name list rather than left as extra values. A non-identifier trailing
// expression is a hard error.
func (p *Parser) migrateTrailingIdentifierValues(names []ast.Identifier, values []ast.Expression) ([]ast.Identifier, []ast.Expression) {
	nameCount := len(names)
	if len(values) <= nameCount {
		return names, values
	}
	for i := nameCount; i < len(values); i++ {
		idExpr, ok := values[i].(*ast.IdentifierExpr)
		if !ok {
			p.errorf(diag.ExpectedIdentifier, "expected identifier after values in local declaration")
			break
		}
		names = append(names, idExpr.Name.Identifier)
	}
	values = values[:nameCount]
	return names, values
}

func (p *Parser) parseExpressionList() []ast.Expression {
	list := []ast.Expression{p.parseExpression()}
	for {
		if _, ok := p.match(token.Comma); !ok {
			break
		}
		list = append(list, p.parseExpression())
	}
	return list
}

// looksLikeImplicitLocal detects `name [: type] (<const>|<close>)` at
// statement start — an implicit local declaration that doesn't need the
// `local` keyword.
func (p *Parser) looksLikeImplicitLocal() bool {
	switch p.peek(1).Kind {
	case token.ConstAttr, token.CloseAttr:
		return true
	case token.Colon:
		if p.peek(2).Kind == token.Identifier {
			switch p.peek(3).Kind {
			case token.ConstAttr, token.CloseAttr:
				return true
			}
		}
	}
	return false
}

func (p *Parser) parseImplicitLocalDecl() ast.Statement {
	tok := p.cur()
	name := p.parseDeclName()
	op, values := p.parseOptionalDeclAssign()
	return &ast.LocalDeclStmt{SourceSpan: tok.Span, Op: op, Names: []ast.Identifier{name}, Values: values}
}

// parseAssignTail parses the operator and right-hand side of an assignment
// statement, desugaring compound arithmetic ops (`+=`, `..=`, ...) into
// `target = target op rhs` BinaryExprs, since AssignOp only models
// Plain/IfEmpty/IfNil.
func (p *Parser) parseAssignTail(targets []ast.Expression) (ast.AssignOp, []ast.Expression) {
	switch {
	case p.check(token.Equals):
		p.advance()
		return ast.AssignPlain, p.parseExpressionList()
	case p.check(token.IfEmptyAssign):
		p.advance()
		return ast.AssignIfEmpty, p.parseExpressionList()
	case p.check(token.IfNilAssign):
		p.advance()
		return ast.AssignIfNil, p.parseExpressionList()
	}
	if binOp, ok := compoundAssignOps[p.cur().Kind]; ok {
		tok := p.advance()
		rhs := p.parseExpressionList()
		values := make([]ast.Expression, len(rhs))
		for i, r := range rhs {
			target := targets[len(targets)-1]
			if i < len(targets) {
				target = targets[i]
			}
			values[i] = &ast.BinaryExpr{SourceSpan: tok.Span, Op: binOp, Left: target, Right: r}
		}
		return ast.AssignPlain, values
	}
	p.errorf(diag.ExpectedToken, "expected assignment operator, got %s", p.cur().Kind)
	return ast.AssignPlain, nil
}

// parseExprOrAssignStatement parses an identifier/`(`-started statement:
// an assignment, the `expr ?? return|break|continue` shorthand, or a bare
// call expression statement.
func (p *Parser) parseExprOrAssignStatement() ast.Statement {
	startSpan := p.cur().Span
	first := p.continueExpressionFromPostfix()

	if p.isAssignStart() || p.check(token.Comma) {
		targets := []ast.Expression{first}
		for {
			if _, ok := p.match(token.Comma); !ok {
				break
			}
			targets = append(targets, p.parsePostfix(p.parsePrimary()))
		}
		op, values := p.parseAssignTail(targets)
		return &ast.AssignmentStmt{SourceSpan: startSpan, Op: op, Targets: targets, Values: values}
	}

	if p.check(token.Presence) {
		switch p.peek(1).Kind {
		case token.ReturnToken, token.BreakToken, token.ContinueToken:
			p.advance() // '??'
			body := p.parseShorthandBody()
			return &ast.ConditionalShorthandStmt{SourceSpan: startSpan, Condition: first, Body: body}
		}
	}

	if _, ok := first.(*ast.CallExpr); !ok {
		p.errorf(diag.UnexpectedToken, "only function calls are valid as statement expressions")
	}
	return &ast.ExpressionStmt{SourceSpan: startSpan, ExprNode: first}
}

// continueExpressionFromPostfix parses a suffixed primary and resumes the
// full ternary/pipe/binary expression grammar from it, letting statement
// dispatch tell assignment targets (simple lvalues) apart from general
// expression statements without re-parsing.
func (p *Parser) continueExpressionFromPostfix() ast.Expression {
	left := p.parsePostfix(p.parsePrimary())
	return p.continueTernary(p.continuePipe(p.continueBinary(left, 1)))
}

func (p *Parser) parseShorthandBody() ast.Statement {
	switch p.cur().Kind {
	case token.ReturnToken:
		return p.parseReturnStmt()
	case token.BreakToken:
		t := p.advance()
		return &ast.BreakStmt{SourceSpan: t.Span}
	case token.ContinueToken:
		t := p.advance()
		return &ast.ContinueStmt{SourceSpan: t.Span}
	}
	p.errorf(diag.UnexpectedToken, "expected return, break, or continue after '??'")
	return &ast.ExpressionStmt{SourceSpan: p.cur().Span}
}

func (p *Parser) parseIfStmt() ast.Statement {
	tok := p.advance() // 'if'
	cond := p.parseExpression()
	p.expect(token.ThenToken, diag.ExpectedToken)
	block := p.parseBlock(token.ElseIf, token.Else, token.EndToken)
	clauses := []ast.IfClause{{Condition: cond, Block: block}}
	for p.check(token.ElseIf) {
		p.advance()
		c := p.parseExpression()
		p.expect(token.ThenToken, diag.ExpectedToken)
		b := p.parseBlock(token.ElseIf, token.Else, token.EndToken)
		clauses = append(clauses, ast.IfClause{Condition: c, Block: b})
	}
	if _, ok := p.match(token.Else); ok {
		b := p.parseBlock(token.EndToken)
		clauses = append(clauses, ast.IfClause{Condition: nil, Block: b})
	}
	p.expect(token.EndToken, diag.ExpectedToken)
	return &ast.IfStmt{SourceSpan: tok.Span, Clauses: clauses}
}

func (p *Parser) parseWhileStmt() ast.Statement {
	tok := p.advance() // 'while'
	cond := p.parseExpression()
	p.expect(token.DoToken, diag.ExpectedToken)
	p.loopDepth++
	body := p.parseBlock(token.EndToken)
	p.loopDepth--
	p.expect(token.EndToken, diag.ExpectedToken)
	return &ast.WhileStmt{SourceSpan: tok.Span, Loop: ast.LoopStmtPayload{Style: ast.LoopWhile, Condition: cond, Body: body}}
}

func (p *Parser) parseRepeatStmt() ast.Statement {
	tok := p.advance() // 'repeat'
	p.loopDepth++
	body := p.parseBlock(token.Until)
	p.loopDepth--
	p.expect(token.Until, diag.BadRepeat)
	cond := p.parseExpression()
	return &ast.RepeatStmt{SourceSpan: tok.Span, Loop: ast.LoopStmtPayload{Style: ast.LoopRepeat, Condition: cond, Body: body}}
}

func (p *Parser) parseDoStmt() ast.Statement {
	tok := p.advance() // 'do'
	body := p.parseBlock(token.EndToken)
	p.expect(token.EndToken, diag.ExpectedToken)
	return &ast.DoStmt{SourceSpan: tok.Span, Block: body}
}

// parseDeferStmt parses `defer [(params)] block end [(args)]`.
func (p *Parser) parseDeferStmt() ast.Statement {
	tok := p.advance() // 'defer'
	var params []ast.Param
	vararg := false
	if p.check(token.LeftParen) {
		params, vararg = p.parseParamList()
	}
	p.funcDepth++
	body := p.parseBlock(token.EndToken)
	p.funcDepth--
	p.expect(token.EndToken, diag.ExpectedToken)
	var args []ast.Expression
	if p.check(token.LeftParen) {
		args = p.parseCallArguments()
	}
	payload := ast.FunctionExprPayload{Parameters: params, IsVararg: vararg, Body: body}
	return &ast.DeferStmt{SourceSpan: tok.Span, Callable: payload, Arguments: args}
}

func (p *Parser) atReturnEnd() bool {
	switch p.cur().Kind {
	case token.EOF, token.EndToken, token.ElseIf, token.Else, token.Until,
		token.ExceptToken, token.SuccessToken, token.Semicolon:
		return true
	}
	return false
}

func (p *Parser) parseReturnStmt() ast.Statement {
	tok := p.advance() // 'return'
	var values []ast.Expression
	if !p.atReturnEnd() {
		values = p.parseExpressionList()
	}
	forwards := false
	if len(values) == 1 {
		_, forwards = values[0].(*ast.CallExpr)
	}
	return &ast.ReturnStmt{SourceSpan: tok.Span, Values: values, ForwardsCall: forwards}
}

func (p *Parser) parseRaiseStmt() ast.Statement {
	tok := p.advance() // 'raise'
	code := p.parseExpression()
	var msg ast.Expression
	if _, ok := p.match(token.Comma); ok {
		msg = p.parseExpression()
	}
	return &ast.RaiseStmt{SourceSpan: tok.Span, ErrorCode: code, Message: msg}
}

func (p *Parser) parseCheckStmt() ast.Statement {
	tok := p.advance() // 'check'
	code := p.parseExpression()
	return &ast.CheckStmt{SourceSpan: tok.Span, ErrorCode: code}
}

// parseTryStmt parses `try [<trace>] block (except ...)* [success block]
// end`. `<trace>` lexes as three ordinary tokens (`<`, identifier `trace`,
// `>`) since the lexer's attribute recognizer only special-cases
// const/close; the parser disambiguates it here instead of teaching the
// lexer a third attribute name.
func (p *Parser) parseTryStmt() ast.Statement {
	tok := p.advance() // 'try'
	enableTrace := false
	if p.check(token.LessThan) && p.peek(1).Kind == token.Identifier &&
		p.peek(1).Ident != nil && *p.peek(1).Ident == "trace" && p.peek(2).Kind == token.GreaterThan {
		p.advance()
		p.advance()
		p.advance()
		enableTrace = true
	}

	tryBlock := p.parseBlock(token.ExceptToken, token.SuccessToken, token.EndToken)

	var clauses []ast.ExceptClause
	for p.check(token.ExceptToken) {
		clauses = append(clauses, p.parseExceptClause())
	}
	for i, c := range clauses {
		if len(c.FilterCodes) == 0 && i != len(clauses)-1 {
			p.errorf(diag.UnexpectedToken, "a catch-all except clause must be last")
			break
		}
	}

	var successBlock *ast.BlockStmt
	if _, ok := p.match(token.SuccessToken); ok {
		successBlock = p.parseBlock(token.EndToken)
	}
	p.expect(token.EndToken, diag.ExpectedToken)
	return &ast.TryExceptStmt{
		SourceSpan:    tok.Span,
		TryBlock:      tryBlock,
		ExceptClauses: clauses,
		SuccessBlock:  successBlock,
		EnableTrace:   enableTrace,
	}
}

func (p *Parser) parseExceptClause() ast.ExceptClause {
	exceptTok := p.advance() // 'except'
	var exVar *ast.Identifier
	if p.check(token.Identifier) {
		id := p.parseIdentifierName()
		if id.SourceSpan.Line != exceptTok.Span.Line {
			p.errorf(diag.UnexpectedToken, "exception variable must appear on the same line as 'except'")
		}
		exVar = &id
	}
	var filterCodes []ast.Expression
	if whenTok, ok := p.match(token.When); ok {
		if whenTok.Span.Line != exceptTok.Span.Line {
			p.errorf(diag.UnexpectedToken, "'when' filter codes must appear on the same line as 'except'")
		}
		filterCodes = append(filterCodes, p.parseExpression())
		for {
			if _, ok := p.match(token.Comma); !ok {
				break
			}
			filterCodes = append(filterCodes, p.parseExpression())
		}
	}
	block := p.parseBlock(token.ExceptToken, token.SuccessToken, token.EndToken)
	return ast.ExceptClause{ExceptionVar: exVar, FilterCodes: filterCodes, Block: block}
}

// parseNamespaceStmt parses `namespace 'name'`, desugaring it into a local
// const `_NS = 'name'` declaration while recording the
// binding in the source registry so importers can pick up a default alias.
func (p *Parser) parseNamespaceStmt() ast.Statement {
	tok := p.advance() // 'namespace'
	if p.funcDepth != 0 {
		p.errorf(diag.IllegalImportPosition, "namespace declarations are only permitted at the top level")
	}
	strTok, _ := p.expect(token.String, diag.ExpectedToken)
	name := ""
	if strTok.Str != nil {
		name = *strTok.Str
	}
	if prev, ok := p.sources.FindByNamespace(name); ok && prev != p.sourceIndex {
		// Conflicts across files are tolerated; the later binding wins.
		p.sink.Report(diag.Warning, diag.UnexpectedToken,
			fmt.Sprintf("namespace %q is already declared by another file", name), strTok)
	}
	p.sources.SetNamespace(p.sourceIndex, name)
	desugared := &ast.LocalDeclStmt{
		SourceSpan: tok.Span,
		Op:         ast.AssignPlain,
		Names:      []ast.Identifier{{Symbol: p.intern("_NS"), SourceSpan: tok.Span, HasConst: true}},
		Values:     []ast.Expression{&ast.LiteralExpr{SourceSpan: tok.Span, Value: ast.LiteralValue{Kind: ast.LiteralStr, Str: p.intern(name)}}},
	}
	return &ast.NamespaceStmt{SourceSpan: tok.Span, Name: name, Desugared: desugared}
}
