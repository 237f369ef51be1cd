// for-loop parsing, including the range-to-numeric-for lowering and the
// `{a..b}` brace-scanner disambiguation.

package parser

import (
	"github.com/btouchard/luma/internal/compiler/ast"
	"github.com/btouchard/luma/internal/compiler/diag"
	"github.com/btouchard/luma/internal/compiler/token"
)

// parseForStmt parses `for name = start, stop[, step] do ... end`,
// `for names in iterators do ... end`, and the anonymous `for {...} do ...
// end` shorthand.
func (p *Parser) parseForStmt() ast.Statement {
	tok := p.advance() // 'for'
	if p.check(token.LeftBrace) {
		return p.parseAnonymousFor(tok)
	}

	name := p.parseIdentifierName()
	if _, ok := p.match(token.Equals); ok {
		start := p.parseExpression()
		p.expect(token.Comma, diag.ExpectedToken)
		stop := p.parseExpression()
		var step ast.Expression
		if _, ok := p.match(token.Comma); ok {
			step = p.parseExpression()
		}
		p.expect(token.DoToken, diag.ExpectedToken)
		p.loopDepth++
		body := p.parseBlock(token.EndToken)
		p.loopDepth--
		p.expect(token.EndToken, diag.ExpectedToken)
		return &ast.NumericForStmt{SourceSpan: tok.Span, Control: name, Start: start, Stop: stop, Step: step, Body: body}
	}

	names := []ast.Identifier{name}
	for {
		if _, ok := p.match(token.Comma); !ok {
			break
		}
		names = append(names, p.parseIdentifierName())
	}
	p.expect(token.InToken, diag.ExpectedToken)

	iterators := p.parseForInIterators()

	if len(names) == 1 && len(iterators) == 1 {
		if rangeExpr, ok := iterators[0].(*ast.RangeExpr); ok {
			if numFor, ok := lowerRangeToNumericFor(tok.Span, names[0], rangeExpr); ok {
				p.expect(token.DoToken, diag.ExpectedToken)
				p.loopDepth++
				numFor.Body = p.parseBlock(token.EndToken)
				p.loopDepth--
				p.expect(token.EndToken, diag.ExpectedToken)
				return numFor
			}
		}
	}

	// A bare range that didn't lower to a numeric for (non-literal bounds)
	// still needs to become an iterator: wrap it in a zero-argument call.
	if len(iterators) == 1 {
		if rangeExpr, ok := iterators[0].(*ast.RangeExpr); ok {
			iterators[0] = &ast.CallExpr{SourceSpan: rangeExpr.SourceSpan, Target: ast.CallTarget{Kind: ast.DirectCall, Callable: rangeExpr}}
		}
	}

	p.expect(token.DoToken, diag.ExpectedToken)
	p.loopDepth++
	body := p.parseBlock(token.EndToken)
	p.loopDepth--
	p.expect(token.EndToken, diag.ExpectedToken)
	return &ast.GenericForStmt{SourceSpan: tok.Span, Names: names, Iterators: iterators, Body: body}
}

func (p *Parser) parseForInIterators() []ast.Expression {
	if p.check(token.LeftBrace) {
		if rangeExpr, ok := p.tryParseRangeInBraces(); ok {
			return []ast.Expression{rangeExpr}
		}
	}
	iterators := []ast.Expression{p.parseRangeOrExpression()}
	for {
		if _, ok := p.match(token.Comma); !ok {
			break
		}
		iterators = append(iterators, p.parseExpression())
	}
	return iterators
}

// parseRangeOrExpression parses a for-in iterator where a top-level
// `..`/`...` means a range (`for i in 1..5`), not a concat. When no range
// operator follows the first operand, the full expression grammar resumes
// from it.
func (p *Parser) parseRangeOrExpression() ast.Expression {
	startSpan := p.cur().Span
	saved := p.suppressConcat
	p.suppressConcat = true
	start := p.parseBinary(1)
	inclusive := false
	switch {
	case p.check(token.Cat):
		p.advance()
	case p.check(token.Dots):
		p.advance()
		inclusive = true
	default:
		p.suppressConcat = saved
		return p.continueTernary(p.continuePipe(p.continueBinary(start, 1)))
	}
	stop := p.parseBinary(1)
	p.suppressConcat = saved
	return &ast.RangeExpr{SourceSpan: startSpan, Start: start, Stop: stop, Inclusive: inclusive}
}

// parseAnonymousFor parses `for {iterable} do ... end`, binding the blank
// identifier as the loop control variable.
func (p *Parser) parseAnonymousFor(tok token.Token) ast.Statement {
	var iter ast.Expression
	if rangeExpr, ok := p.tryParseRangeInBraces(); ok {
		iter = rangeExpr
	} else {
		iter = p.parseExpression()
	}
	blank := ast.Identifier{IsBlank: true, SourceSpan: tok.Span}

	if rangeExpr, ok := iter.(*ast.RangeExpr); ok {
		if numFor, ok := lowerRangeToNumericFor(tok.Span, blank, rangeExpr); ok {
			p.expect(token.DoToken, diag.ExpectedToken)
			p.loopDepth++
			numFor.Body = p.parseBlock(token.EndToken)
			p.loopDepth--
			p.expect(token.EndToken, diag.ExpectedToken)
			return numFor
		}
		iter = &ast.CallExpr{SourceSpan: rangeExpr.SourceSpan, Target: ast.CallTarget{Kind: ast.DirectCall, Callable: rangeExpr}}
	}

	p.expect(token.DoToken, diag.ExpectedToken)
	p.loopDepth++
	body := p.parseBlock(token.EndToken)
	p.loopDepth--
	p.expect(token.EndToken, diag.ExpectedToken)
	return &ast.GenericForStmt{SourceSpan: tok.Span, Names: []ast.Identifier{blank}, Iterators: []ast.Expression{iter}, Body: body}
}

// lowerRangeToNumericFor lowers a single-name for-in over a range with
// numeric literal bounds to a numeric for, adjusting the stop bound by one
// step for an exclusive range depending on the direction implied by start
// vs stop.
func lowerRangeToNumericFor(span token.Span, control ast.Identifier, r *ast.RangeExpr) (*ast.NumericForStmt, bool) {
	startLit, startOK := r.Start.(*ast.LiteralExpr)
	stopLit, stopOK := r.Stop.(*ast.LiteralExpr)
	if !startOK || !stopOK || startLit.Value.Kind != ast.LiteralNum || stopLit.Value.Kind != ast.LiteralNum {
		return nil, false
	}
	startVal := startLit.Value.Num
	stopVal := stopLit.Value.Num
	stepVal := 1.0
	if startVal > stopVal {
		stepVal = -1.0
	}
	finalStop := stopVal
	if !r.Inclusive {
		if stepVal > 0 {
			finalStop = stopVal - 1
		} else {
			finalStop = stopVal + 1
		}
	}
	return &ast.NumericForStmt{
		SourceSpan: span,
		Control:    control,
		Start:      r.Start,
		Stop:       &ast.LiteralExpr{SourceSpan: r.SourceSpan, Value: ast.LiteralValue{Kind: ast.LiteralNum, Num: finalStop}},
		Step:       &ast.LiteralExpr{SourceSpan: r.SourceSpan, Value: ast.LiteralValue{Kind: ast.LiteralNum, Num: stepVal}},
	}, true
}

// tryParseRangeInBraces scans ahead at bracket/brace/paren depth zero for a
// `..`/`...` range operator before the closing `}`, so an iterable or
// expression like `{0..total-1}` is parsed as a range rather than falling
// through to table-literal parsing. A depth-zero comma anywhere in the
// braces vetoes the range reading: `{'s' .. f(), 1}` is a table whose first
// element is a concat.
func (p *Parser) tryParseRangeInBraces() (*ast.RangeExpr, bool) {
	if !p.check(token.LeftBrace) {
		return nil, false
	}
	depth := 0
	foundRange := false
	inclusive := false
scan:
	for i := 1; ; i++ {
		tok := p.peek(i)
		switch tok.Kind {
		case token.LeftParen, token.LeftBracket, token.LeftBrace:
			depth++
		case token.RightParen, token.RightBracket:
			depth--
			if depth < 0 {
				break scan
			}
		case token.RightBrace:
			if depth == 0 {
				break scan
			}
			depth--
		case token.Comma:
			if depth == 0 {
				return nil, false
			}
		case token.Dots:
			if depth == 0 && !foundRange {
				foundRange = true
				inclusive = true
			}
		case token.Cat:
			if depth == 0 && !foundRange {
				foundRange = true
			}
		case token.EOF:
			break scan
		}
	}
	if !foundRange {
		return nil, false
	}
	braceTok := p.advance() // '{'
	saved := p.suppressConcat
	p.suppressConcat = true
	start := p.parseBinary(1)
	if inclusive {
		p.expect(token.Dots, diag.ExpectedToken)
	} else {
		p.expect(token.Cat, diag.ExpectedToken)
	}
	stop := p.parseBinary(1)
	p.suppressConcat = saved
	p.expect(token.RightBrace, diag.UnclosedBrace)
	return &ast.RangeExpr{SourceSpan: braceTok.Span, Start: start, Stop: stop, Inclusive: inclusive}, true
}
