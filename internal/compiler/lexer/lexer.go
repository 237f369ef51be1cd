// Package lexer converts UTF-8 source text into a lazy stream of typed
// tokens with source spans: rune-at-a-time scanning with single-rune
// lookahead, plus backtracking recognition of the context-sensitive
// special tokens (`<const>`, `<close>`, `<type{`, `@if`/`@end`).
package lexer

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/btouchard/luma/internal/compiler/token"
	"github.com/rivo/uniseg"
)

// Lexer scans one source's text into tokens.
type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           rune
	line         int
	column       int
	sourceIndex  int
	diagnoseMode bool

	// The lexer keeps no state for `??`: it always emits token.Presence,
	// and disambiguation between postfix and binary use is a parser-side,
	// single-token-lookahead decision.
}

// New creates a Lexer over input, tagged with sourceIndex for span
// encoding.
func New(input string, sourceIndex int) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0, sourceIndex: sourceIndex}
	l.readChar()
	return l
}

// SetDiagnoseMode toggles recovery-friendly behavior propagated from the
// parser context.
func (l *Lexer) SetDiagnoseMode(v bool) { l.diagnoseMode = v }

func (l *Lexer) DiagnoseMode() bool { return l.diagnoseMode }

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += size

	if l.ch == '\n' {
		l.line++
		l.column = 0
	} else {
		// Grapheme-cluster aware width: a combining mark or wide rune
		// still advances the column by its visual cell count, so caret
		// alignment in rendered diagnostics lines up under multi-byte
		// identifiers (grounded on bufbuild-protocompile's rivo/uniseg use
		// for diagnostic alignment).
		l.column += uniseg.StringWidth(string(l.ch))
		if l.column == 0 {
			l.column = 1
		}
	}
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

// peekCharAt returns the rune that lies offset runes past the one at
// readPosition (peekCharAt(0) is peekChar()) without consuming; used only for short fixed lookaheads (e.g. `..`
// vs `...`).
func (l *Lexer) peekCharAt(offset int) rune {
	pos := l.readPosition
	var r rune
	for i := 0; i <= offset; i++ {
		if pos >= len(l.input) {
			return 0
		}
		var size int
		r, size = utf8.DecodeRuneInString(l.input[pos:])
		pos += size
	}
	return r
}

func (l *Lexer) currentPos() token.Position {
	return token.Position{Line: l.line, Column: l.column, Offset: l.position, SourceIndex: l.sourceIndex}
}

func (l *Lexer) span(startPos token.Position) token.Span {
	return token.Span{
		Offset:      startPos.Offset,
		Length:      l.position - startPos.Offset,
		Line:        startPos.Line,
		Column:      startPos.Column,
		SourceIndex: startPos.SourceIndex,
	}
}

// NextToken scans and returns the next token.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()
	pos := l.currentPos()

	switch l.ch {
	case 0:
		return token.Token{Kind: token.EOF, Span: l.span(pos)}
	case '"', '\'':
		return l.readString(pos)
	case '`':
		return l.readBacktickString(pos)
	case '@':
		return l.readAnnotateOrCompileTime(pos)
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return l.simple(token.Equal, pos)
		}
		if l.peekChar() == '>' {
			l.readChar()
			l.readChar()
			return l.simple(token.Arrow, pos)
		}
		l.readChar()
		return l.simple(token.Equals, pos)
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return l.simple(token.NotEqual, pos)
		}
		l.readChar()
		return l.illegal(pos, "!")
	case '<':
		return l.readLessThanFamily(pos)
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return l.simple(token.GreaterEqual, pos)
		}
		if l.peekChar() == '>' {
			l.readChar()
			l.readChar()
			return l.simple(token.ShiftRight, pos)
		}
		l.readChar()
		return l.simple(token.GreaterThan, pos)
	case '+':
		if l.peekChar() == '+' {
			l.readChar()
			l.readChar()
			return l.simple(token.PlusPlus, pos)
		}
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return l.simple(token.PlusAssign, pos)
		}
		l.readChar()
		return l.simple(token.Plus, pos)
	case '-':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return l.simple(token.MinusAssign, pos)
		}
		if l.peekChar() == '>' {
			l.readChar()
			l.readChar()
			return l.simple(token.CaseArrow, pos)
		}
		l.readChar()
		return l.simple(token.Minus, pos)
	case '*':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return l.simple(token.StarAssign, pos)
		}
		l.readChar()
		return l.simple(token.Star, pos)
	case '/':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return l.simple(token.SlashAssign, pos)
		}
		l.readChar()
		return l.simple(token.Slash, pos)
	case '%':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return l.simple(token.PercentAssign, pos)
		}
		l.readChar()
		return l.simple(token.Percent, pos)
	case '^':
		l.readChar()
		return l.simple(token.Caret, pos)
	case '~':
		l.readChar()
		return l.simple(token.Tilde, pos)
	case '#':
		l.readChar()
		return l.simple(token.Hash, pos)
	case '&':
		l.readChar()
		return l.simple(token.Ampersand, pos)
	case '|':
		if l.peekChar() == '>' {
			l.readChar()
			l.readChar()
			return l.simple(token.Pipe, pos)
		}
		l.readChar()
		return l.simple(token.BitOrTok, pos)
	case '?':
		return l.readQuestionFamily(pos)
	case '.':
		return l.readDotFamily(pos)
	case ':':
		l.readChar()
		return l.simple(token.Colon, pos)
	case ';':
		l.readChar()
		return l.simple(token.Semicolon, pos)
	case ',':
		l.readChar()
		return l.simple(token.Comma, pos)
	case '(':
		l.readChar()
		return l.simple(token.LeftParen, pos)
	case ')':
		l.readChar()
		return l.simple(token.RightParen, pos)
	case '{':
		l.readChar()
		return l.simple(token.LeftBrace, pos)
	case '}':
		if l.peekChar() == '>' {
			l.readChar()
			l.readChar()
			return l.simple(token.DeferredClose, pos)
		}
		l.readChar()
		return l.simple(token.RightBrace, pos)
	case '[':
		l.readChar()
		return l.simple(token.LeftBracket, pos)
	case ']':
		l.readChar()
		return l.simple(token.RightBracket, pos)
	}

	if isIdentStart(l.ch) {
		return l.readIdentifierOrKeyword(pos)
	}
	if isDigit(l.ch) {
		return l.readNumber(pos)
	}

	ch := l.ch
	l.readChar()
	return l.illegal(pos, string(ch))
}

func (l *Lexer) simple(kind token.Kind, pos token.Position) token.Token {
	return token.Token{Kind: kind, Span: l.span(pos)}
}

func (l *Lexer) illegal(pos token.Position, lit string) token.Token {
	return token.Token{Kind: token.Illegal, Span: l.span(pos), Payload: token.PayloadString, Str: &lit}
}

// readLessThanFamily distinguishes `<`, `<=`, `<<`, the deferred-open `<{`,
// the typed-deferred `<type{`, `array<T[,size]>`-adjacent `<`, and the
// context-sensitive attribute tokens `<const>`/`<close>`. The attribute and
// typed-deferred forms are recognised with save-and-restore backtracking
// over a tentative multi-character match.
func (l *Lexer) readLessThanFamily(pos token.Position) token.Token {
	if l.peekChar() == '=' {
		l.readChar()
		l.readChar()
		return l.simple(token.LessEqual, pos)
	}
	if l.peekChar() == '<' {
		l.readChar()
		l.readChar()
		return l.simple(token.ShiftLeft, pos)
	}
	if l.peekChar() == '{' {
		l.readChar()
		l.readChar()
		return l.simple(token.DeferredOpen, pos)
	}

	if tok, ok := l.tryReadTypedDeferred(pos); ok {
		return tok
	}
	if tok, ok := l.tryReadAttribute(pos); ok {
		return tok
	}

	l.readChar()
	return l.simple(token.LessThan, pos)
}

// deferredTypeNames are the type spellings a typed deferred-open `<type{`
// may carry. Restricting the lookahead to known type names keeps
// `a < b{...}` (a comparison against a bare-table call) lexing as three
// ordinary tokens.
var deferredTypeNames = map[string]bool{
	"any": true, "nil": true, "bool": true, "num": true, "str": true,
	"table": true, "array": true, "func": true, "object": true,
}

// tryReadTypedDeferred attempts to lex `<type{` as a single DeferredTyped
// token carrying the type name, backtracking if the word after `<` isn't a
// known type name immediately followed by `{`.
func (l *Lexer) tryReadTypedDeferred(pos token.Position) (token.Token, bool) {
	savedPos, savedReadPos, savedCh, savedLine, savedCol := l.position, l.readPosition, l.ch, l.line, l.column

	l.readChar() // consume '<'
	start := l.position
	for isIdentStart(l.ch) {
		l.readChar()
	}
	name := l.input[start:l.position]
	if deferredTypeNames[name] && l.ch == '{' {
		l.readChar() // consume '{'
		return token.Token{Kind: token.DeferredTyped, Span: l.span(pos), Payload: token.PayloadIdentifier, Ident: &name}, true
	}

	l.position, l.readPosition, l.ch, l.line, l.column = savedPos, savedReadPos, savedCh, savedLine, savedCol
	return token.Token{}, false
}

// tryReadAttribute attempts to lex `<const>` or `<close>` starting at `<`,
// backtracking to a bare `<` token if the identifier that follows isn't one
// of the two recognised attribute names or isn't closed by `>`.
func (l *Lexer) tryReadAttribute(pos token.Position) (token.Token, bool) {
	savedPos, savedReadPos, savedCh, savedLine, savedCol := l.position, l.readPosition, l.ch, l.line, l.column

	l.readChar() // consume '<'
	start := l.position
	for isIdentStart(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	name := l.input[start:l.position]

	if (name == "const" || name == "close") && l.ch == '>' {
		l.readChar() // consume '>'
		kind := token.ConstAttr
		if name == "close" {
			kind = token.CloseAttr
		}
		return l.simple(kind, pos), true
	}

	l.position, l.readPosition, l.ch, l.line, l.column = savedPos, savedReadPos, savedCh, savedLine, savedCol
	return token.Token{}, false
}

// readDotFamily distinguishes `.`, `..` (concat), and `...` (varargs).
func (l *Lexer) readDotFamily(pos token.Position) token.Token {
	if l.peekChar() == '.' {
		if l.peekCharAt(1) == '.' {
			l.readChar()
			l.readChar()
			l.readChar()
			return l.simple(token.Dots, pos)
		}
		if l.peekCharAt(1) == '=' {
			l.readChar()
			l.readChar()
			l.readChar()
			return l.simple(token.ConcatAssign, pos)
		}
		l.readChar()
		l.readChar()
		return l.simple(token.Cat, pos)
	}
	l.readChar()
	return l.simple(token.Dot, pos)
}

// readQuestionFamily distinguishes `?`, `??`, `?=`, `??=`, `?.`, `?[`, `?:`.
func (l *Lexer) readQuestionFamily(pos token.Position) token.Token {
	if l.peekChar() == '?' {
		if l.peekCharAt(1) == '=' {
			l.readChar()
			l.readChar()
			l.readChar()
			return l.simple(token.IfNilAssign, pos)
		}
		l.readChar()
		l.readChar()
		return l.simple(token.Presence, pos)
	}
	if l.peekChar() == '=' {
		l.readChar()
		l.readChar()
		return l.simple(token.IfEmptyAssign, pos)
	}
	if l.peekChar() == '.' {
		l.readChar()
		l.readChar()
		return l.simple(token.SafeField, pos)
	}
	if l.peekChar() == '[' {
		l.readChar()
		l.readChar()
		return l.simple(token.SafeIndex, pos)
	}
	if l.peekChar() == ':' {
		l.readChar()
		l.readChar()
		return l.simple(token.SafeMethod, pos)
	}
	l.readChar()
	return l.simple(token.Question, pos)
}

// readAnnotateOrCompileTime distinguishes `@if`, `@end`, and a bare `@`
// (the annotation marker).
func (l *Lexer) readAnnotateOrCompileTime(pos token.Position) token.Token {
	savedPos, savedReadPos, savedCh, savedLine, savedCol := l.position, l.readPosition, l.ch, l.line, l.column

	l.readChar() // consume '@'
	start := l.position
	for isIdentStart(l.ch) {
		l.readChar()
	}
	word := l.input[start:l.position]
	switch word {
	case "if":
		return l.simple(token.CompileIf, pos)
	case "end":
		return l.simple(token.CompileEnd, pos)
	}

	// Not a compile-time directive: backtrack to just past '@' and let the
	// parser read the annotation name as an ordinary identifier token.
	l.position, l.readPosition, l.ch, l.line, l.column = savedPos, savedReadPos, savedCh, savedLine, savedCol
	l.readChar() // re-consume '@', leaving l.ch at the annotation name's first rune
	return l.simple(token.Annotate, pos)
}

func (l *Lexer) readIdentifierOrKeyword(pos token.Position) token.Token {
	start := l.position
	for isIdentStart(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	lit := l.input[start:l.position]
	kind := token.LookupIdent(lit)
	span := l.span(pos)
	if kind != token.Identifier {
		return token.Token{Kind: kind, Span: span}
	}
	return token.Token{Kind: token.Identifier, Span: span, Payload: token.PayloadIdentifier, Ident: &lit}
}

func (l *Lexer) readNumber(pos token.Position) token.Token {
	start := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		save := l.position
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		if isDigit(l.ch) {
			for isDigit(l.ch) {
				l.readChar()
			}
		} else {
			// Not an exponent after all; rewind so the 'e' lexes as the
			// start of the next identifier token.
			l.position, l.readPosition, l.ch = save, save+1, 'e'
		}
	}
	lit := l.input[start:l.position]
	span := l.span(pos)
	value, _ := strconv.ParseFloat(lit, 64)
	return token.Token{Kind: token.Number, Span: span, Payload: token.PayloadNumber, Number: value}
}

func (l *Lexer) readString(pos token.Position) token.Token {
	quote := l.ch
	l.readChar() // consume opening " or '
	var sb strings.Builder
	for l.ch != quote && l.ch != 0 {
		if l.ch == '\\' {
			l.readChar()
			sb.WriteRune(decodeEscape(l.ch))
			l.readChar()
			continue
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	if l.ch == quote {
		l.readChar()
	}
	s := sb.String()
	return token.Token{Kind: token.String, Span: l.span(pos), Payload: token.PayloadString, Str: &s}
}

func (l *Lexer) readBacktickString(pos token.Position) token.Token {
	l.readChar() // consume opening `
	start := l.position
	for l.ch != '`' && l.ch != 0 {
		l.readChar()
	}
	s := l.input[start:l.position]
	if l.ch == '`' {
		l.readChar()
	}
	return token.Token{Kind: token.String, Span: l.span(pos), Payload: token.PayloadString, Str: &s}
}

func decodeEscape(ch rune) rune {
	switch ch {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	default:
		return ch
	}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}
		if l.ch == '/' && l.peekChar() == '/' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		if l.ch == '/' && l.peekChar() == '*' {
			l.readChar()
			l.readChar()
			for l.ch != 0 && !(l.ch == '*' && l.peekChar() == '/') {
				l.readChar()
			}
			if l.ch != 0 {
				l.readChar()
				l.readChar()
			}
			continue
		}
		break
	}
}

func isIdentStart(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}

func isDigit(ch rune) bool {
	return unicode.IsDigit(ch)
}
