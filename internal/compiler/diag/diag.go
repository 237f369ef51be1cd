// Package diag implements the diagnostics sink and tip emitter shared by
// the parser and the type analyzer: ordered error/warning collection with
// an ErrorCode enum, plus the categorized, priority-gated tip system.
package diag

import (
	"fmt"

	"github.com/btouchard/luma/internal/compiler/token"
)

// Severity classifies a Diagnostic.
type Severity uint8

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// ErrorCode enumerates the parser and analyzer error kinds.
type ErrorCode string

const (
	UnexpectedToken           ErrorCode = "UnexpectedToken"
	ExpectedToken             ErrorCode = "ExpectedToken"
	ExpectedIdentifier        ErrorCode = "ExpectedIdentifier"
	ExpectedTypeName          ErrorCode = "ExpectedTypeName"
	UnknownTypeName           ErrorCode = "UnknownTypeName"
	ExpectedExpression        ErrorCode = "ExpectedExpression"
	ExpectedFunctionBody      ErrorCode = "ExpectedFunctionBody"
	BadRepeat                 ErrorCode = "BadRepeat"
	UnclosedGroup             ErrorCode = "UnclosedGroup"
	UnclosedBracket           ErrorCode = "UnclosedBracket"
	UnclosedBrace             ErrorCode = "UnclosedBrace"
	BadRange                  ErrorCode = "BadRange"
	InvalidEscape             ErrorCode = "InvalidEscape"
	UnknownAttribute          ErrorCode = "UnknownAttribute"
	UnknownModifier           ErrorCode = "UnknownModifier"
	IllegalImportPosition     ErrorCode = "IllegalImportPosition"
	CircularImport            ErrorCode = "CircularImport"
	CannotOpenImport          ErrorCode = "CannotOpenImport"
	CannotReadImport          ErrorCode = "CannotReadImport"
	TooManyBrackets           ErrorCode = "TooManyBrackets"
	TooManyCounters           ErrorCode = "TooManyCounters"
	ComplexityExceeded        ErrorCode = "ComplexityExceeded"
	TypeMismatchAssignment    ErrorCode = "TypeMismatchAssignment"
	TypeMismatchArgument      ErrorCode = "TypeMismatchArgument"
	ReturnTypeMismatch        ErrorCode = "ReturnTypeMismatch"
	ReturnCountMismatch       ErrorCode = "ReturnCountMismatch"
	ObjectClassMismatch       ErrorCode = "ObjectClassMismatch"
	RecursiveFunctionNeedsType ErrorCode = "RecursiveFunctionNeedsType"
	AssignToConstant          ErrorCode = "AssignToConstant"
	RecoverySkippedTokens     ErrorCode = "RecoverySkippedTokens"

	// TypeTrace is Info-only: emitted per declaration when the analyzer
	// runs with type tracing enabled.
	TypeTrace ErrorCode = "TypeTrace"
)

// Diagnostic is a single reported finding. The analyzer reports through
// the same Sink as the parser, so consumers see one ordered list.
type Diagnostic struct {
	Severity Severity
	Code     ErrorCode
	Message  string
	Token    token.Token
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %d:%d: %s: %s", d.Severity, d.Token.Span.Line, d.Token.Span.Column, d.Code, d.Message)
}

// Sink accumulates diagnostics in report order.
type Sink struct {
	diagnostics []Diagnostic
}

// NewSink constructs an empty diagnostics sink.
func NewSink() *Sink {
	return &Sink{}
}

// Report appends a diagnostic.
func (s *Sink) Report(severity Severity, code ErrorCode, message string, tok token.Token) {
	s.diagnostics = append(s.diagnostics, Diagnostic{
		Severity: severity,
		Code:     code,
		Message:  message,
		Token:    tok,
	})
}

// Diagnostics returns every diagnostic reported so far, in report order.
func (s *Sink) Diagnostics() []Diagnostic {
	return s.diagnostics
}

// HasErrors reports whether any reported diagnostic has Error severity.
func (s *Sink) HasErrors() bool {
	for _, d := range s.diagnostics {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

func (s *Sink) String() string {
	out := ""
	for _, d := range s.diagnostics {
		out += d.String() + "\n"
	}
	return out
}
