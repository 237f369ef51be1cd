package diag

import (
	"fmt"

	"github.com/btouchard/luma/internal/compiler/token"
)

// Category classifies a Tip.
type Category uint8

const (
	TypeSafety Category = iota
	Performance
	CodeQuality
	BestPractice
	Style
	HostSpecific
)

// CategoryName returns a Category's rendered name: "type-safety",
// "performance", "code-quality", "best-practice", "style", or
// "host-specific".
func CategoryName(c Category) string {
	switch c {
	case TypeSafety:
		return "type-safety"
	case Performance:
		return "performance"
	case CodeQuality:
		return "code-quality"
	case BestPractice:
		return "best-practice"
	case Style:
		return "style"
	case HostSpecific:
		return "host-specific"
	default:
		return "unknown"
	}
}

// Tip is a single suggestion with a priority (1 = critical, 2 = medium,
// 3 = low).
type Tip struct {
	Priority uint8
	Category Category
	Message  string
	Token    token.Token
}

// String renders a tip as "[TIP] <file>:<line>:<col>: <category>: <message>".
func (t Tip) String(filename string) string {
	return fmt.Sprintf("[TIP] %s:%d:%d: %s: %s",
		filename, t.Token.Span.Line, t.Token.Span.Column, CategoryName(t.Category), t.Message)
}

// TipEmitter collects tip messages, filtering by a configured priority
// level: a tip is recorded when level > 0 and its priority <= level.
type TipEmitter struct {
	level int
	tips  []Tip
}

// NewTipEmitter creates a TipEmitter gated at the given tip level (0..3).
func NewTipEmitter(level int) *TipEmitter {
	return &TipEmitter{level: level}
}

// ShouldEmit reports whether a tip at the given priority would currently be
// recorded, letting callers skip expensive tip-construction work.
func (e *TipEmitter) ShouldEmit(priority uint8) bool {
	return e.level > 0 && int(priority) <= e.level
}

// Emit records a tip if it passes the priority filter.
func (e *TipEmitter) Emit(priority uint8, category Category, message string, tok token.Token) {
	if !e.ShouldEmit(priority) {
		return
	}
	e.tips = append(e.tips, Tip{Priority: priority, Category: category, Message: message, Token: tok})
}

// Tips returns every recorded tip, in emission order.
func (e *TipEmitter) Tips() []Tip {
	return e.tips
}

// HasTips reports whether any tip has been recorded.
func (e *TipEmitter) HasTips() bool { return len(e.tips) > 0 }

// Count reports how many tips have been recorded.
func (e *TipEmitter) Count() int { return len(e.tips) }
