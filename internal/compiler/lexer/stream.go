package lexer

import "github.com/btouchard/luma/internal/compiler/token"

// minLookahead is the starting capacity of a Stream's ring buffer. The
// buffer doubles whenever a caller peeks past its current capacity, so
// constructs that need deep lookahead (e.g. disambiguating a typed
// deferred-open from a plain comparison chain) never hit a hard ceiling.
const minLookahead = 64

// Stream wraps a Lexer with an unbounded-growth ring buffer of
// already-scanned tokens, giving the parser current()/peek(n)/advance()
// access without re-lexing.
type Stream struct {
	lex  *Lexer
	buf  []token.Token
	head int // index of current() within buf
	size int // number of valid tokens currently buffered from head
}

// NewStream creates a Stream over lex, priming the ring buffer with its
// first token.
func NewStream(lex *Lexer) *Stream {
	s := &Stream{lex: lex, buf: make([]token.Token, minLookahead)}
	s.fill(1)
	return s
}

// fill ensures at least n tokens (including current()) are buffered ahead
// of head, growing the ring buffer if necessary.
func (s *Stream) fill(n int) {
	for s.size < n {
		if s.size == len(s.buf) {
			s.grow()
		}
		idx := (s.head + s.size) % len(s.buf)
		s.buf[idx] = s.lex.NextToken()
		s.size++
	}
}

func (s *Stream) grow() {
	newBuf := make([]token.Token, len(s.buf)*2)
	for i := 0; i < s.size; i++ {
		newBuf[i] = s.buf[(s.head+i)%len(s.buf)]
	}
	s.buf = newBuf
	s.head = 0
}

// Current returns the token at the cursor without consuming it.
func (s *Stream) Current() token.Token {
	s.fill(1)
	return s.buf[s.head]
}

// Peek returns the token n positions ahead of the cursor (Peek(0) ==
// Current()) without consuming anything.
func (s *Stream) Peek(n int) token.Token {
	s.fill(n + 1)
	return s.buf[(s.head+n)%len(s.buf)]
}

// Advance consumes and returns the current token, moving the cursor
// forward by one.
func (s *Stream) Advance() token.Token {
	tok := s.Current()
	s.head = (s.head + 1) % len(s.buf)
	s.size--
	return tok
}

// Check reports whether the current token has the given kind, without
// consuming it.
func (s *Stream) Check(kind token.Kind) bool {
	return s.Current().Kind == kind
}

// Match consumes and returns (token, true) if the current token has the
// given kind; otherwise leaves the cursor untouched and returns (zero,
// false).
func (s *Stream) Match(kind token.Kind) (token.Token, bool) {
	if s.Check(kind) {
		return s.Advance(), true
	}
	return token.Token{}, false
}

// SetDiagnoseMode propagates a diagnose-mode flag down to the underlying
// Lexer.
func (s *Stream) SetDiagnoseMode(v bool) { s.lex.SetDiagnoseMode(v) }
