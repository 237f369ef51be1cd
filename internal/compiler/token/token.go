// Package token defines the lexical tokens produced by the lexer and
// consumed by the parser.
package token

import "fmt"

// Kind identifies the lexical class of a Token. It is a string so tokens
// print legibly in diagnostics and tests without a separate lookup table.
type Kind string

// Position is a single point in a source file. SourceIndex identifies which
// registered source this position belongs to (see package source).
type Position struct {
	Line        int
	Column      int
	Offset      int
	SourceIndex int
}

// Pack encodes Position into the BCLine convention: the 8-bit source index
// occupies the high byte, the line number the low 24 bits.
func (p Position) Pack() uint32 {
	return uint32(p.SourceIndex&0xFF)<<24 | uint32(p.Line&0xFFFFFF)
}

// Unpack decodes a packed BCLine value back into (sourceIndex, line).
func Unpack(line uint32) (sourceIndex, lineNumber int) {
	return int(line >> 24), int(line & 0xFFFFFF)
}

// Span is an immutable half-open byte range into a registered source, with
// the 1-based line/column of its start.
type Span struct {
	Offset      int
	Length      int
	Line        int
	Column      int
	SourceIndex int
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d", s.Line, s.Column)
}

// End returns the byte offset immediately past the span.
func (s Span) End() int { return s.Offset + s.Length }

// PayloadKind tags which field of a Token's payload is meaningful.
type PayloadKind uint8

const (
	PayloadNone PayloadKind = iota
	PayloadNumber
	PayloadString
	PayloadIdentifier
	PayloadArraySize
)

// Token is a discriminated record: a Kind, a Span, and a payload variant.
// Identifiers and strings carry a string pointer. The lexer allocates a
// fresh string for each token and does not intern it, so two tokens with
// equal text do not share a pointer; the parser interns names and string
// values (see package intern) when it builds the AST. The lexer never sets
// Raw, so it is always zero.
type Token struct {
	Kind      Kind
	Span      Span
	Payload   PayloadKind
	Number    float64
	Str       *string
	Ident     *string
	ArraySize int64
	Raw       byte
}

// Literal returns the token's textual payload, falling back to the Kind
// string for tokens without payload.
func (t Token) Literal() string {
	switch t.Payload {
	case PayloadString:
		if t.Str != nil {
			return *t.Str
		}
	case PayloadIdentifier:
		if t.Ident != nil {
			return *t.Ident
		}
	}
	return string(t.Kind)
}

const (
	Illegal Kind = "ILLEGAL"
	EOF     Kind = "EOF"
	Comment Kind = "COMMENT"

	// Literals
	Number     Kind = "NUMBER"
	String     Kind = "STRING"
	Identifier Kind = "IDENTIFIER"

	// Delimiters
	LeftParen    Kind = "("
	RightParen   Kind = ")"
	LeftBrace    Kind = "{"
	RightBrace   Kind = "}"
	LeftBracket  Kind = "["
	RightBracket Kind = "]"
	Comma        Kind = ","
	Semicolon    Kind = ";"
	Colon        Kind = ":"
	Dot          Kind = "."

	// Assignment
	Equals        Kind = "="
	PlusAssign    Kind = "+="
	MinusAssign   Kind = "-="
	StarAssign    Kind = "*="
	SlashAssign   Kind = "/="
	PercentAssign Kind = "%="
	ConcatAssign  Kind = "..="
	IfEmptyAssign Kind = "?="
	IfNilAssign   Kind = "??="

	// Arithmetic / bitwise / shift
	Plus       Kind = "+"
	Minus      Kind = "-"
	Star       Kind = "*"
	Slash      Kind = "/"
	Percent    Kind = "%"
	Caret      Kind = "^"
	Ampersand  Kind = "&"
	BitOrTok   Kind = "|"
	Tilde      Kind = "~"
	ShiftLeft  Kind = "<<"
	ShiftRight Kind = ">>"
	Hash       Kind = "#"

	// Comparisons
	Equal        Kind = "=="
	NotEqual     Kind = "!="
	LessThan     Kind = "<"
	LessEqual    Kind = "<="
	GreaterThan  Kind = ">"
	GreaterEqual Kind = ">="

	// Logical / special operators
	Cat        Kind = ".."  // concat
	Dots       Kind = "..." // varargs
	Arrow      Kind = "=>"
	CaseArrow  Kind = "->"
	Pipe       Kind = "|>"
	Question   Kind = "?"
	Presence   Kind = "??"
	SafeField  Kind = "?."
	SafeIndex  Kind = "?["
	SafeMethod Kind = "?:"
	PlusPlus   Kind = "++"

	// Keywords
	Local          Kind = "local"
	Global         Kind = "global"
	Function       Kind = "function"
	ThunkToken     Kind = "thunk"
	If             Kind = "if"
	ThenToken      Kind = "then"
	Else           Kind = "else"
	ElseIf         Kind = "elseif"
	EndToken       Kind = "end"
	WhileToken     Kind = "while"
	Repeat         Kind = "repeat"
	Until          Kind = "until"
	For            Kind = "for"
	InToken        Kind = "in"
	DoToken        Kind = "do"
	DeferToken     Kind = "defer"
	ReturnToken    Kind = "return"
	BreakToken     Kind = "break"
	ContinueToken  Kind = "continue"
	TryToken       Kind = "try"
	ExceptToken    Kind = "except"
	SuccessToken   Kind = "success"
	When           Kind = "when"
	RaiseToken     Kind = "raise"
	CheckToken     Kind = "check"
	Choose         Kind = "choose"
	AsToken        Kind = "as"
	NotToken       Kind = "not"
	AndToken       Kind = "and"
	OrToken        Kind = "or"
	IsToken        Kind = "is"
	TrueToken      Kind = "true"
	FalseToken     Kind = "false"
	Nil            Kind = "nil"
	ImportToken    Kind = "import"
	NamespaceToken Kind = "namespace"

	// Annotation / compile-time / deferred / typed-array special tokens
	Annotate      Kind = "@"
	CompileIf     Kind = "@if"
	CompileEnd    Kind = "@end"
	DeferredOpen  Kind = "<{"
	DeferredClose Kind = "}>"
	// ArrayTyped is reserved for `array<T[,size]>`; the parser currently
	// assembles typed-array literals from the ordinary `<`/`>` tokens
	// instead of a dedicated lexer payload, so the lexer never emits it.
	ArrayTyped    Kind = "ARRAY_TYPED"
	DeferredTyped Kind = "DEFERRED_TYPED"

	// Attribute tokens, context-emitted by the lexer following '<'
	ConstAttr Kind = "<const>"
	CloseAttr Kind = "<close>"
)

var keywords = map[string]Kind{
	"local":     Local,
	"global":    Global,
	"function":  Function,
	"thunk":     ThunkToken,
	"if":        If,
	"then":      ThenToken,
	"else":      Else,
	"elseif":    ElseIf,
	"end":       EndToken,
	"while":     WhileToken,
	"repeat":    Repeat,
	"until":     Until,
	"for":       For,
	"in":        InToken,
	"do":        DoToken,
	"defer":     DeferToken,
	"return":    ReturnToken,
	"break":     BreakToken,
	"continue":  ContinueToken,
	"try":       TryToken,
	"except":    ExceptToken,
	"success":   SuccessToken,
	"when":      When,
	"raise":     RaiseToken,
	"check":     CheckToken,
	"choose":    Choose,
	"as":        AsToken,
	"not":       NotToken,
	"and":       AndToken,
	"or":        OrToken,
	"is":        IsToken,
	"true":      TrueToken,
	"false":     FalseToken,
	"nil":       Nil,
	"import":    ImportToken,
	"namespace": NamespaceToken,
}

// LookupIdent classifies a raw identifier as a keyword Kind, or Identifier
// if it names no keyword.
func LookupIdent(ident string) Kind {
	if kind, ok := keywords[ident]; ok {
		return kind
	}
	return Identifier
}
