// Annotation parsing: `@Name(key=value, bareIdent)` entries attached to
// function declarations.

package parser

import (
	"github.com/btouchard/luma/internal/compiler/ast"
	"github.com/btouchard/luma/internal/compiler/diag"
	"github.com/btouchard/luma/internal/compiler/token"
)

// parseAnnotations collects a run of `@Name(...)` annotations immediately
// preceding a declaration.
func (p *Parser) parseAnnotations() []ast.AnnotationEntry {
	var entries []ast.AnnotationEntry
	for p.check(token.Annotate) {
		atTok := p.advance()
		name := p.parseIdentifierName()
		entry := ast.AnnotationEntry{Name: name.Name(), SourceSpan: atTok.Span}
		if _, ok := p.match(token.LeftParen); ok {
			for !p.check(token.RightParen) && !p.check(token.EOF) {
				key := p.parseIdentifierName()
				var val ast.AnnotationArgValue
				if _, ok := p.match(token.Equals); ok {
					val = p.parseAnnotationValue()
				} else {
					val = ast.AnnotationArgValue{Kind: ast.AnnotationBool, Bool: true}
				}
				entry.Args = append(entry.Args, ast.AnnotationArg{Key: key.Name(), Value: val})
				if _, ok := p.match(token.Comma); !ok {
					break
				}
			}
			p.expect(token.RightParen, diag.UnclosedGroup)
		}
		entries = append(entries, entry)
	}
	return entries
}

// parseAnnotationValue parses one annotation argument value: a string,
// number, boolean, array (`[...]` or `{...}`), or bare identifier (taken as
// a string).
func (p *Parser) parseAnnotationValue() ast.AnnotationArgValue {
	tok := p.cur()
	switch tok.Kind {
	case token.String:
		p.advance()
		s := ""
		if tok.Str != nil {
			s = *tok.Str
		}
		return ast.AnnotationArgValue{Kind: ast.AnnotationString, Str: s}
	case token.Number:
		p.advance()
		return ast.AnnotationArgValue{Kind: ast.AnnotationNumber, Num: tok.Number}
	case token.TrueToken:
		p.advance()
		return ast.AnnotationArgValue{Kind: ast.AnnotationBool, Bool: true}
	case token.FalseToken:
		p.advance()
		return ast.AnnotationArgValue{Kind: ast.AnnotationBool, Bool: false}
	case token.LeftBracket, token.LeftBrace:
		closeKind := token.RightBracket
		if tok.Kind == token.LeftBrace {
			closeKind = token.RightBrace
		}
		p.advance()
		var arr []ast.AnnotationArgValue
		for !p.check(closeKind) && !p.check(token.EOF) {
			arr = append(arr, p.parseAnnotationValue())
			if _, ok := p.match(token.Comma); !ok {
				break
			}
		}
		if closeKind == token.RightBracket {
			p.expect(closeKind, diag.UnclosedBracket)
		} else {
			p.expect(closeKind, diag.UnclosedBrace)
		}
		return ast.AnnotationArgValue{Kind: ast.AnnotationArray, Array: arr}
	case token.Identifier:
		name := p.parseIdentifierName()
		return ast.AnnotationArgValue{Kind: ast.AnnotationString, Str: name.Name()}
	default:
		p.errorf(diag.UnexpectedToken, "expected annotation value, got %s", tok.Kind)
		p.advance()
		return ast.AnnotationArgValue{}
	}
}

// parseAnnotatedStatement parses annotations followed by the only
// statement kinds they may attach to: function/local function/global
// function/thunk declarations.
func (p *Parser) parseAnnotatedStatement() ast.Statement {
	annotations := p.parseAnnotations()
	switch {
	case p.check(token.Function):
		stmt := p.parseFunctionStmt()
		stmt.(*ast.FunctionStmt).Function.Annotations = annotations
		return stmt
	case p.check(token.Local):
		stmt := p.parseLocalStmt()
		if lf, ok := stmt.(*ast.LocalFunctionStmt); ok {
			lf.Function.Annotations = annotations
		} else {
			p.errorf(diag.UnexpectedToken, "annotations must precede a function declaration")
		}
		return stmt
	case p.check(token.Global):
		stmt := p.parseGlobalStmt()
		if fs, ok := stmt.(*ast.FunctionStmt); ok {
			fs.Function.Annotations = annotations
		} else {
			p.errorf(diag.UnexpectedToken, "annotations must precede a function declaration")
		}
		return stmt
	case p.check(token.ThunkToken):
		stmt := p.parseThunkStmt(false)
		stmt.(*ast.LocalFunctionStmt).Function.Annotations = annotations
		return stmt
	default:
		p.errorf(diag.UnexpectedToken, "annotations must precede a function declaration")
		return p.parseExprOrAssignStatement()
	}
}
