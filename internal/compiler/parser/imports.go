// Import resolution: `import 'lib' [as alias]` is resolved through
// HostHooks, parsed as a nested chunk, and inlined into the importing
// block.

package parser

import (
	"github.com/btouchard/luma/internal/compiler/ast"
	"github.com/btouchard/luma/internal/compiler/diag"
	"github.com/btouchard/luma/internal/compiler/lexer"
	"github.com/btouchard/luma/internal/compiler/token"
)

// parseImportStmt parses `import 'lib' [as alias]`, resolves the library
// path via the host, recursively parses the target as a child chunk, and
// inlines its body. Imports are only legal at the top level of a file.
func (p *Parser) parseImportStmt() ast.Statement {
	tok := p.advance() // 'import'
	if p.funcDepth != 0 {
		p.errorf(diag.IllegalImportPosition, "import declarations are only permitted at the top level")
	}

	strTok, ok := p.expect(token.String, diag.ExpectedToken)
	libName := ""
	if ok && strTok.Str != nil {
		libName = *strTok.Str
	}

	var alias *ast.Identifier
	if _, ok := p.match(token.AsToken); ok {
		name := p.parseIdentifierName()
		alias = &name
	}

	stmt := &ast.ImportStmt{SourceSpan: tok.Span, LibPath: libName, DefaultNamespace: defaultNamespaceFor(libName)}

	if p.cfg.Host == nil {
		p.errorf(diag.CannotOpenImport, "no host configured to resolve library %q", libName)
		return stmt
	}

	resolvedPath, ok := p.cfg.Host.ResolvePath(libName)
	if !ok {
		p.errorf(diag.CannotOpenImport, "cannot resolve library %q", libName)
		return stmt
	}

	if p.importStack[resolvedPath] {
		p.errorf(diag.CircularImport, "circular import of %q", libName)
		return stmt
	}

	contents, ok := p.cfg.Host.OpenFile(resolvedPath)
	if !ok {
		p.errorf(diag.CannotReadImport, "cannot read library %q", libName)
		return stmt
	}

	childIndex, err := p.sources.Register(resolvedPath, libName, p.sourceIndex, tok.Span.Line)
	if err != nil {
		p.errorf(diag.CannotOpenImport, "%v", err)
		return stmt
	}

	p.importStack[resolvedPath] = true
	defer delete(p.importStack, resolvedPath)

	childLexer := lexer.New(contents, childIndex)
	childStream := lexer.NewStream(childLexer)
	child := New(childStream, p.sources, p.sink, p.tips, childIndex, p.cfg)
	child.importStack = p.importStack

	inlined := child.ParseChunk()

	for _, s := range inlined.Statements {
		if s.Kind() == ast.KindReturnStmt {
			p.tip(2, diag.CodeQuality, "import %q returns a value at its top level; the value is discarded", libName)
			break
		}
	}

	stmt.InlinedBody = inlined
	stmt.FileSourceIndex = childIndex
	if info, ok := p.sources.Get(childIndex); ok && info.Namespace != "" {
		sym := p.intern(info.Namespace)
		stmt.NamespaceName = &ast.Identifier{Symbol: sym, SourceSpan: tok.Span}
	}
	if alias != nil {
		stmt.NamespaceName = alias
	}

	return stmt
}

// defaultNamespaceFor derives a namespace alias from a library path when
// the imported file never declares one via `namespace '...'`, e.g.
// "collections/list" -> "list".
func defaultNamespaceFor(libPath string) string {
	last := libPath
	for i := len(libPath) - 1; i >= 0; i-- {
		if libPath[i] == '/' {
			last = libPath[i+1:]
			break
		}
	}
	for i := len(last) - 1; i >= 0; i-- {
		if last[i] == '.' {
			return last[:i]
		}
	}
	return last
}
