// Package ast defines the tagged AST node model produced by the parser and
// consumed by the type analyzer: Statement/Expression interfaces
// implemented by one concrete struct per node kind, each carrying its own
// source span.
package ast

import "github.com/btouchard/luma/internal/compiler/token"

// Node is the base interface every AST node implements. Every node carries
// a Span into a registered source.
type Node interface {
	Span() token.Span
}

// Type is the semantic type tag attached to identifiers, parameters, and
// return slots.
type Type uint8

const (
	Unknown Type = iota
	Any
	NilType
	Bool
	Num
	Str
	Table
	Array
	Func
	Object
)

func (t Type) String() string {
	switch t {
	case Unknown:
		return "unknown"
	case Any:
		return "any"
	case NilType:
		return "nil"
	case Bool:
		return "bool"
	case Num:
		return "num"
	case Str:
		return "str"
	case Table:
		return "table"
	case Array:
		return "array"
	case Func:
		return "func"
	case Object:
		return "object"
	default:
		return "?"
	}
}

// TypeName looks up a Type by its source spelling, used when parsing type
// annotations. ok is false for unrecognized names.
func TypeName(name string) (Type, bool) {
	switch name {
	case "any":
		return Any, true
	case "nil":
		return NilType, true
	case "bool":
		return Bool, true
	case "num":
		return Num, true
	case "str":
		return Str, true
	case "table":
		return Table, true
	case "array":
		return Array, true
	case "func":
		return Func, true
	case "object":
		return Object, true
	default:
		return Unknown, false
	}
}

// LiteralKind tags the variant held by LiteralValue.
type LiteralKind uint8

const (
	LiteralNil LiteralKind = iota
	LiteralBool
	LiteralNum
	LiteralStr
)

// LiteralValue is a tagged constant value.
type LiteralValue struct {
	Kind LiteralKind
	Bool bool
	Num  float64
	Str  *string // interned
}

// Identifier names a local, parameter, or global. Symbol is nil iff
// IsBlank (the `_` discard identifier).
type Identifier struct {
	Symbol     *string // interned; nil for blank identifier
	SourceSpan token.Span
	IsBlank    bool
	Type       Type
	HasClose   bool
	HasConst   bool
}

func (id Identifier) Name() string {
	if id.Symbol == nil {
		return "_"
	}
	return *id.Symbol
}

// AssignOp is the compound-assignment operator carried by declaration and
// assignment statements.
type AssignOp uint8

const (
	AssignPlain AssignOp = iota
	AssignIfEmpty
	AssignIfNil
)

// FunctionReturnTypes is a function's fixed 8-slot return-type vector.
// Appending a 9th slot forces slot 7 to Any and skips the rest.
type FunctionReturnTypes struct {
	Types      [8]Type
	Count      uint8
	IsExplicit bool
	IsVariadic bool
}

// Append adds a return type slot, applying the overflow rule once Count
// reaches 8.
func (f *FunctionReturnTypes) Append(t Type) {
	if f.Count >= 8 {
		f.Types[7] = Any
		return
	}
	f.Types[f.Count] = t
	f.Count++
}

// AnnotationArgKind tags an AnnotationEntry argument value's variant.
type AnnotationArgKind uint8

const (
	AnnotationString AnnotationArgKind = iota
	AnnotationNumber
	AnnotationBool
	AnnotationArray
)

// AnnotationArgValue is one value in an annotation argument list.
type AnnotationArgValue struct {
	Kind  AnnotationArgKind
	Str   string
	Num   float64
	Bool  bool
	Array []AnnotationArgValue
}

// AnnotationArg is one key=value pair inside an annotation's parentheses.
type AnnotationArg struct {
	Key   string
	Value AnnotationArgValue
}

// AnnotationEntry is a parsed `@Name(args...)` annotation attached to a
// function declaration.
type AnnotationEntry struct {
	Name       string
	Args       []AnnotationArg
	SourceSpan token.Span
}
