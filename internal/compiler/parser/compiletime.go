// Compile-time conditionals: `@if(cond) ... [@end]`, evaluated against the
// embedding host so unreached branches never even parse far enough to be
// type-checked.

package parser

import (
	"github.com/btouchard/luma/internal/compiler/ast"
	"github.com/btouchard/luma/internal/compiler/diag"
	"github.com/btouchard/luma/internal/compiler/token"
)

// parseCompileIf parses `@if(imported=true|debug=true|platform="x"|exists="path")
// ... [@end]`. The taken branch is parsed normally and wrapped in a
// transparent DoStmt; the untaken branch is skipped token-by-token,
// tracking nested @if/@end depth, and never parsed at all.
func (p *Parser) parseCompileIf() ast.Statement {
	tok := p.advance() // '@if'
	p.expect(token.LeftParen, diag.ExpectedToken)
	key := p.parseIdentifierName()
	p.expect(token.Equals, diag.ExpectedToken)

	var cond bool
	switch key.Name() {
	case "imported":
		want := p.parseCompileIfBool()
		cond = (p.sourceIndex != 0) == want
	case "debug":
		want := p.parseCompileIfBool()
		cond = p.hostDebug() == want
	case "platform":
		strTok, _ := p.expect(token.String, diag.ExpectedToken)
		want := ""
		if strTok.Str != nil {
			want = *strTok.Str
		}
		cond = p.hostPlatform() == want
	case "exists":
		strTok, _ := p.expect(token.String, diag.ExpectedToken)
		want := ""
		if strTok.Str != nil {
			want = *strTok.Str
		}
		cond = p.hostFileExists(want)
	default:
		p.errorf(diag.UnexpectedToken, "unknown compile-time condition %q", key.Name())
		p.skipToMatchingParen()
	}
	p.expect(token.RightParen, diag.ExpectedToken)

	if cond {
		body := p.parseBlock(token.CompileEnd, token.EOF)
		p.match(token.CompileEnd)
		return &ast.DoStmt{SourceSpan: tok.Span, Block: body}
	}

	p.skipCompileBranch()
	return &ast.DoStmt{SourceSpan: tok.Span, Block: &ast.BlockStmt{SourceSpan: tok.Span}}
}

func (p *Parser) parseCompileIfBool() bool {
	switch p.cur().Kind {
	case token.TrueToken:
		p.advance()
		return true
	case token.FalseToken:
		p.advance()
		return false
	default:
		p.errorf(diag.UnexpectedToken, "expected true or false")
		p.advance()
		return false
	}
}

func (p *Parser) skipToMatchingParen() {
	depth := 1
	for depth > 0 && !p.check(token.EOF) {
		switch p.advance().Kind {
		case token.LeftParen:
			depth++
		case token.RightParen:
			depth--
		}
	}
}

// skipCompileBranch consumes tokens until the matching @end (or EOF),
// tracking nested @if/@end depth without parsing any of it.
func (p *Parser) skipCompileBranch() {
	depth := 0
	for {
		switch p.cur().Kind {
		case token.EOF:
			return
		case token.CompileIf:
			depth++
			p.advance()
		case token.CompileEnd:
			if depth == 0 {
				p.advance()
				return
			}
			depth--
			p.advance()
		default:
			p.advance()
		}
	}
}

func (p *Parser) hostDebug() bool {
	if p.cfg.Host == nil {
		return false
	}
	return p.cfg.Host.Debug()
}

func (p *Parser) hostPlatform() string {
	if p.cfg.Host == nil {
		return ""
	}
	return p.cfg.Host.Platform()
}

func (p *Parser) hostFileExists(path string) bool {
	if p.cfg.Host == nil {
		return false
	}
	return p.cfg.Host.AnalysePath(path)
}
