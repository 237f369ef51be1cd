package parser

import (
	"testing"

	"github.com/btouchard/luma/internal/compiler/ast"
	"github.com/btouchard/luma/internal/compiler/diag"
	"github.com/btouchard/luma/internal/compiler/lexer"
	"github.com/btouchard/luma/internal/compiler/source"
)

// parseSrc runs src through the lexer/parser and returns the resulting
// chunk plus the diagnostics sink, matching the pipeline cmd/lumac wires.
func parseSrc(t *testing.T, src string, cfg Config) (*ast.BlockStmt, *diag.Sink) {
	t.Helper()
	sources := source.New()
	idx, err := sources.Register("test.luma", "test.luma", -1, 0)
	if err != nil {
		t.Fatalf("registering source: %v", err)
	}
	sink := diag.NewSink()
	tips := diag.NewTipEmitter(cfg.TipLevel)
	l := lexer.New(src, idx)
	stream := lexer.NewStream(l)
	p := New(stream, sources, sink, tips, idx, cfg)
	return p.ParseChunk(), sink
}

func hasCode(sink *diag.Sink, code diag.ErrorCode) bool {
	for _, d := range sink.Diagnostics() {
		if d.Code == code {
			return true
		}
	}
	return false
}

// A literal-bounded range in a `for .. in` position lowers to
// a NumericForStmt rather than staying a GenericForStmt over an iterator
// call, with the exclusive stop adjusted and the step sign picked from the
// bound order.
func TestNumericForLoweringFromLiteralRange(t *testing.T) {
	chunk, sink := parseSrc(t, `for i in 1..5 do end`, Config{})
	if hasCode(sink, diag.UnexpectedToken) {
		t.Fatalf("unexpected parse errors: %+v", sink.Diagnostics())
	}
	if len(chunk.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(chunk.Statements))
	}
	forStmt, ok := chunk.Statements[0].(*ast.NumericForStmt)
	if !ok {
		t.Fatalf("expected NumericForStmt, got %T", chunk.Statements[0])
	}
	stop, ok := forStmt.Stop.(*ast.LiteralExpr)
	if !ok || stop.Value.Kind != ast.LiteralNum {
		t.Fatalf("expected a numeric literal stop, got %#v", forStmt.Stop)
	}
	if stop.Value.Num != 4 {
		t.Fatalf("expected exclusive range 1..5 to lower to stop=4, got %v", stop.Value.Num)
	}
}

// The inclusive spelling keeps the stop bound untouched.
func TestNumericForLoweringFromInclusiveLiteralRange(t *testing.T) {
	chunk, _ := parseSrc(t, `for i in 1...5 do end`, Config{})
	forStmt, ok := chunk.Statements[0].(*ast.NumericForStmt)
	if !ok {
		t.Fatalf("expected NumericForStmt, got %T", chunk.Statements[0])
	}
	stop, ok := forStmt.Stop.(*ast.LiteralExpr)
	if !ok || stop.Value.Num != 5 {
		t.Fatalf("expected inclusive range 1...5 to keep stop=5, got %#v", forStmt.Stop)
	}
}

// Non-literal bounds can't be lowered at parse time; the for stays generic
// and the range is wrapped as a zero-argument iterator-factory call.
func TestForInWithNonLiteralRangeStaysGeneric(t *testing.T) {
	chunk, sink := parseSrc(t, `
local n = 5
for i in 1..n do end
`, Config{})
	if hasCode(sink, diag.UnexpectedToken) {
		t.Fatalf("unexpected parse errors: %+v", sink.Diagnostics())
	}
	if _, ok := chunk.Statements[1].(*ast.GenericForStmt); !ok {
		t.Fatalf("expected GenericForStmt when bounds aren't literal, got %T", chunk.Statements[1])
	}
}

// Anonymous `for { range }` uses the brace-scanner to disambiguate a range
// from a table literal, lowering the same way a named for would.
func TestAnonymousForRangeLowering(t *testing.T) {
	chunk, sink := parseSrc(t, `for {1..3} do end`, Config{})
	if hasCode(sink, diag.UnexpectedToken) {
		t.Fatalf("unexpected parse errors: %+v", sink.Diagnostics())
	}
	if _, ok := chunk.Statements[0].(*ast.NumericForStmt); !ok {
		t.Fatalf("expected NumericForStmt for anonymous range for, got %T", chunk.Statements[0])
	}
}

// `expr ?? return` desugars to a ConditionalShorthandStmt
// rather than a PresenceExpr used as a bare expression statement.
func TestConditionalShorthandReturn(t *testing.T) {
	chunk, sink := parseSrc(t, `
local function f(x)
	x ?? return 0
	return x
end
`, Config{})
	if hasCode(sink, diag.UnexpectedToken) {
		t.Fatalf("unexpected parse errors: %+v", sink.Diagnostics())
	}
	fn, ok := chunk.Statements[0].(*ast.LocalFunctionStmt)
	if !ok {
		t.Fatalf("expected LocalFunctionStmt, got %T", chunk.Statements[0])
	}
	if _, ok := fn.Function.Body.Statements[0].(*ast.ConditionalShorthandStmt); !ok {
		t.Fatalf("expected ConditionalShorthandStmt, got %T", fn.Function.Body.Statements[0])
	}
}

// A typed-array literal whose declared size exceeds its
// initializer count desugars to an IIFE that allocates then resizes,
// rather than a plain array.of(...) call.
func TestTypedArrayLiteralResizeIIFE(t *testing.T) {
	chunk, sink := parseSrc(t, `local nums = array<num, 6>{1, 2, 3, 4}`, Config{})
	if hasCode(sink, diag.UnexpectedToken) {
		t.Fatalf("unexpected parse errors: %+v", sink.Diagnostics())
	}
	decl, ok := chunk.Statements[0].(*ast.LocalDeclStmt)
	if !ok || len(decl.Values) != 1 {
		t.Fatalf("expected a single-value LocalDeclStmt, got %#v", chunk.Statements[0])
	}
	call, ok := decl.Values[0].(*ast.CallExpr)
	if !ok {
		t.Fatalf("expected the oversized literal to desugar to an IIFE call, got %T", decl.Values[0])
	}
	fn, ok := call.Target.Callable.(*ast.FunctionExpr)
	if !ok || call.Target.Kind != ast.DirectCall {
		t.Fatalf("expected the IIFE to directly call an inline function expression, got %#v", call.Target)
	}
	if len(fn.Function.Body.Statements) < 2 {
		t.Fatalf("expected the IIFE body to allocate then resize, got %#v", fn.Function.Body.Statements)
	}
}

// When the literal size matches (or undershoots) the initializer count, no
// resize is needed: it's a plain array.of(...) call.
func TestTypedArrayLiteralExactSize(t *testing.T) {
	chunk, sink := parseSrc(t, `local nums = array<num, 4>{1, 2, 3, 4}`, Config{})
	if hasCode(sink, diag.UnexpectedToken) {
		t.Fatalf("unexpected parse errors: %+v", sink.Diagnostics())
	}
	decl, ok := chunk.Statements[0].(*ast.LocalDeclStmt)
	if !ok || len(decl.Values) != 1 {
		t.Fatalf("expected a single-value LocalDeclStmt, got %#v", chunk.Statements[0])
	}
	call, ok := decl.Values[0].(*ast.CallExpr)
	if !ok {
		t.Fatalf("expected array<T,size>{...} to desugar to a CallExpr, got %T", decl.Values[0])
	}
	member, ok := call.Target.Callable.(*ast.MemberExpr)
	if !ok || member.Name.Name() != "of" {
		t.Fatalf("expected a call to array.of, got %#v", call.Target.Callable)
	}
}

// Trailing bare-identifier values beyond the name count are migrated into
// the name list rather than left as extra values, keeping values.len <=
// names.len.
func TestLocalDeclMigratesTrailingIdentifierValues(t *testing.T) {
	chunk, sink := parseSrc(t, `local a, b = 1, 2, c`, Config{})
	if hasCode(sink, diag.UnexpectedToken) || hasCode(sink, diag.ExpectedIdentifier) {
		t.Fatalf("unexpected parse errors: %+v", sink.Diagnostics())
	}
	decl, ok := chunk.Statements[0].(*ast.LocalDeclStmt)
	if !ok {
		t.Fatalf("expected LocalDeclStmt, got %T", chunk.Statements[0])
	}
	if len(decl.Values) > len(decl.Names) {
		t.Fatalf("expected values.len <= names.len after migration, got %d names, %d values", len(decl.Names), len(decl.Values))
	}
	if len(decl.Names) != 3 || decl.Names[2].Name() != "c" {
		t.Fatalf("expected 'c' to be migrated into the name list, got names=%#v", decl.Names)
	}
	if len(decl.Values) != 2 {
		t.Fatalf("expected the migrated identifier to be removed from the value list, got %#v", decl.Values)
	}
}

// A non-identifier trailing expression cannot be migrated into a name and
// is reported as ExpectedIdentifier instead.
func TestLocalDeclTrailingNonIdentifierIsError(t *testing.T) {
	_, sink := parseSrc(t, `local a, b = 1, 2, 3 + 4`, Config{})
	if !hasCode(sink, diag.ExpectedIdentifier) {
		t.Fatalf("expected ExpectedIdentifier for a non-identifier trailing value, got %+v", sink.Diagnostics())
	}
}

// Importing through a host that reports the library as
// already on the active import stack produces CircularImport rather than
// silently recursing.
type stubHost struct {
	resolved map[string]string
	contents map[string]string
}

func (h stubHost) ResolvePath(name string) (string, bool) {
	p, ok := h.resolved[name]
	return p, ok
}
func (h stubHost) OpenFile(path string) (string, bool) {
	c, ok := h.contents[path]
	return c, ok
}
func (h stubHost) AnalysePath(path string) bool { return true }
func (h stubHost) Platform() string { return "test" }
func (h stubHost) Debug() bool { return false }

func TestImportCircularDetection(t *testing.T) {
	sources := source.New()
	idx, err := sources.Register("main.luma", "main.luma", -1, 0)
	if err != nil {
		t.Fatalf("registering source: %v", err)
	}
	sink := diag.NewSink()
	tips := diag.NewTipEmitter(0)
	host := stubHost{
		resolved: map[string]string{"a": "/lib/a.luma"},
		contents: map[string]string{"/lib/a.luma": `import 'a'`},
	}
	l := lexer.New(`import 'a'`, idx)
	stream := lexer.NewStream(l)
	p := New(stream, sources, sink, tips, idx, Config{Host: host})
	p.ParseChunk()
	if !hasCode(sink, diag.CircularImport) {
		t.Fatalf("expected CircularImport, got %+v", sink.Diagnostics())
	}
}

func TestImportWithoutHostFails(t *testing.T) {
	_, sink := parseSrc(t, `import 'a'`, Config{})
	if !hasCode(sink, diag.CannotOpenImport) {
		t.Fatalf("expected CannotOpenImport with no host configured, got %+v", sink.Diagnostics())
	}
}

// A relational choose pattern (e.g. `> 0 ->`) parses as a case
// pattern rather than continuing the scrutinee expression — even the very
// first `< 10` directly after the scrutinee, which the bounded `->`/`when`
// lookahead must force into a pattern.
func TestChooseRelationalPattern(t *testing.T) {
	chunk, sink := parseSrc(t, `
local x = 5
local y = choose x
	> 0 -> "positive"
	< 0 -> "negative"
	else -> "zero"
end
`, Config{})
	if sink.HasErrors() {
		t.Fatalf("unexpected parse errors on relational choose patterns: %+v", sink.Diagnostics())
	}
	decl, ok := chunk.Statements[1].(*ast.LocalDeclStmt)
	if !ok || len(decl.Values) != 1 {
		t.Fatalf("expected a single-value LocalDeclStmt, got %#v", chunk.Statements[1])
	}
	choose, ok := decl.Values[0].(*ast.ChooseExpr)
	if !ok {
		t.Fatalf("expected ChooseExpr, got %T", decl.Values[0])
	}
	if _, ok := choose.Scrutinee.(*ast.IdentifierExpr); !ok {
		t.Fatalf("expected the scrutinee to stop at 'x', got %T", choose.Scrutinee)
	}
	if len(choose.Cases) != 3 {
		t.Fatalf("expected 3 cases, got %d", len(choose.Cases))
	}
	first, ok := choose.Cases[0].Pattern.(*ast.BinaryExpr)
	if !ok || first.Op != ast.OpGreaterThan {
		t.Fatalf("expected a relational pattern for the first case, got %#v", choose.Cases[0].Pattern)
	}
}

// A `when` guard after the pattern parses as a plain expression, including
// comparisons inside the guard itself.
func TestChooseGuard(t *testing.T) {
	chunk, sink := parseSrc(t, `
local x = 5
local y = choose x
	0 when x > 0 -> "guarded zero"
	else -> "other"
end
`, Config{})
	if sink.HasErrors() {
		t.Fatalf("unexpected parse errors on a guarded choose case: %+v", sink.Diagnostics())
	}
	decl := chunk.Statements[1].(*ast.LocalDeclStmt)
	choose := decl.Values[0].(*ast.ChooseExpr)
	guard, ok := choose.Cases[0].Guard.(*ast.BinaryExpr)
	if !ok || guard.Op != ast.OpGreaterThan {
		t.Fatalf("expected the guard to be the comparison x > 0, got %#v", choose.Cases[0].Guard)
	}
}

// Import is only legal at the top level; nesting it inside a function
// body is rejected rather than silently accepted.
func TestImportInsideFunctionIsIllegalPosition(t *testing.T) {
	_, sink := parseSrc(t, `
local function f()
	import 'a'
end
`, Config{})
	if !hasCode(sink, diag.IllegalImportPosition) {
		t.Fatalf("expected IllegalImportPosition, got %+v", sink.Diagnostics())
	}
}

// Panic-mode recovery: an illegal token inside a block is reported once
// and the parser resynchronizes rather than cascading errors for every
// subsequent token.
func TestErrorRecoverySynchronizes(t *testing.T) {
	chunk, sink := parseSrc(t, `
local x = 1
@@@
local y = 2
`, Config{DiagnoseMode: true})
	errCount := 0
	for _, d := range sink.Diagnostics() {
		if d.Severity == diag.Error {
			errCount++
		}
	}
	if errCount == 0 {
		t.Fatalf("expected at least one error from the malformed token")
	}
	if errCount > 3 {
		t.Fatalf("expected panic-mode recovery to avoid cascading errors, got %d", errCount)
	}
	if len(chunk.Statements) < 2 {
		t.Fatalf("expected recovery to resynchronize and keep parsing 'local y = 2', got %d statements", len(chunk.Statements))
	}
}

// repeat/until is parsed with a single shared loop body/condition payload.
func TestRepeatUntilParses(t *testing.T) {
	chunk, sink := parseSrc(t, `
local i = 0
repeat
	i = i + 1
until i > 3
`, Config{})
	if hasCode(sink, diag.UnexpectedToken) {
		t.Fatalf("unexpected parse errors: %+v", sink.Diagnostics())
	}
	if _, ok := chunk.Statements[1].(*ast.RepeatStmt); !ok {
		t.Fatalf("expected RepeatStmt, got %T", chunk.Statements[1])
	}
}

// Property 14: `{1..3}` at expression position is a RangeExpr, `{1...3}`
// is inclusive, and a depth-zero comma vetoes the range reading so
// `{'s' .. f(), 1}` stays a table whose first field is a concat.
func TestRangeDetectionInsideBraces(t *testing.T) {
	chunk, sink := parseSrc(t, `local r = {1..3}`, Config{})
	if sink.HasErrors() {
		t.Fatalf("unexpected parse errors: %+v", sink.Diagnostics())
	}
	decl := chunk.Statements[0].(*ast.LocalDeclStmt)
	r, ok := decl.Values[0].(*ast.RangeExpr)
	if !ok {
		t.Fatalf("expected RangeExpr for {1..3}, got %T", decl.Values[0])
	}
	if r.Inclusive {
		t.Fatal("expected {1..3} to be exclusive")
	}

	chunk, _ = parseSrc(t, `local r = {1...3}`, Config{})
	decl = chunk.Statements[0].(*ast.LocalDeclStmt)
	r, ok = decl.Values[0].(*ast.RangeExpr)
	if !ok || !r.Inclusive {
		t.Fatalf("expected an inclusive RangeExpr for {1...3}, got %#v", decl.Values[0])
	}

	chunk, sink = parseSrc(t, `local tbl = {"s" .. f(), 1}`, Config{})
	if sink.HasErrors() {
		t.Fatalf("unexpected parse errors: %+v", sink.Diagnostics())
	}
	decl = chunk.Statements[0].(*ast.LocalDeclStmt)
	table, ok := decl.Values[0].(*ast.TableExpr)
	if !ok {
		t.Fatalf("expected the comma to force a table, got %T", decl.Values[0])
	}
	concat, ok := table.Fields[0].Value.(*ast.BinaryExpr)
	if !ok || concat.Op != ast.OpConcat {
		t.Fatalf("expected the first field to stay a concat, got %#v", table.Fields[0].Value)
	}
}

// A top-level `..` between identifiers outside braces is a concat, never a
// range.
func TestIdentifierConcatStaysBinary(t *testing.T) {
	chunk, sink := parseSrc(t, `local s = a .. b`, Config{})
	if sink.HasErrors() {
		t.Fatalf("unexpected parse errors: %+v", sink.Diagnostics())
	}
	decl := chunk.Statements[0].(*ast.LocalDeclStmt)
	bin, ok := decl.Values[0].(*ast.BinaryExpr)
	if !ok || bin.Op != ast.OpConcat {
		t.Fatalf("expected a concat BinaryExpr, got %#v", decl.Values[0])
	}
}

// `<{ e }>` desugars to an immediately invoked parameterless thunk; the
// typed spelling `<num{ e }>` carries an explicit return type.
func TestDeferredExpressionDesugaring(t *testing.T) {
	chunk, sink := parseSrc(t, `local v = <{ 1 + 2 }>`, Config{})
	if sink.HasErrors() {
		t.Fatalf("unexpected parse errors: %+v", sink.Diagnostics())
	}
	decl := chunk.Statements[0].(*ast.LocalDeclStmt)
	call, ok := decl.Values[0].(*ast.CallExpr)
	if !ok {
		t.Fatalf("expected the deferred expression to auto-invoke, got %T", decl.Values[0])
	}
	fn, ok := call.Target.Callable.(*ast.FunctionExpr)
	if !ok || !fn.Function.IsThunk {
		t.Fatalf("expected an invoked thunk, got %#v", call.Target.Callable)
	}

	chunk, sink = parseSrc(t, `local v = <num{ 1 + 2 }>`, Config{})
	if sink.HasErrors() {
		t.Fatalf("unexpected parse errors on the typed form: %+v", sink.Diagnostics())
	}
	decl = chunk.Statements[0].(*ast.LocalDeclStmt)
	call = decl.Values[0].(*ast.CallExpr)
	fn = call.Target.Callable.(*ast.FunctionExpr)
	if fn.Function.ThunkReturnType != ast.Num || !fn.Function.ReturnTypes.IsExplicit {
		t.Fatalf("expected an explicit num return type, got %#v", fn.Function)
	}
}

// Property 15: an all-keep filter pattern is optimized away; `[_*]` wraps
// the call and keeps positions 2 and beyond.
func TestResultFilterOptimization(t *testing.T) {
	chunk, sink := parseSrc(t, `local v = [*]f()`, Config{})
	if sink.HasErrors() {
		t.Fatalf("unexpected parse errors: %+v", sink.Diagnostics())
	}
	decl := chunk.Statements[0].(*ast.LocalDeclStmt)
	if _, ok := decl.Values[0].(*ast.CallExpr); !ok {
		t.Fatalf("expected [*] to be optimized to the bare call, got %T", decl.Values[0])
	}

	chunk, _ = parseSrc(t, `local v = [_*]f()`, Config{})
	decl = chunk.Statements[0].(*ast.LocalDeclStmt)
	filter, ok := decl.Values[0].(*ast.ResultFilterExpr)
	if !ok {
		t.Fatalf("expected a ResultFilterExpr for [_*], got %T", decl.Values[0])
	}
	if filter.KeepMask != 0b10 || filter.ExplicitCount != 2 || !filter.TrailingKeep {
		t.Fatalf("expected mask=2 explicit=2 trailingKeep, got %#v", filter)
	}
}

// Pipe expressions parse left-associatively into PipeExpr nodes rather
// than being swallowed as a binary operator.
func TestPipeExprParses(t *testing.T) {
	chunk, sink := parseSrc(t, `local r = 1..10 |> sum()`, Config{})
	if hasCode(sink, diag.UnexpectedToken) {
		t.Fatalf("unexpected parse errors: %+v", sink.Diagnostics())
	}
	decl, ok := chunk.Statements[0].(*ast.LocalDeclStmt)
	if !ok || len(decl.Values) != 1 {
		t.Fatalf("expected a LocalDeclStmt with one value, got %#v", chunk.Statements[0])
	}
	if _, ok := decl.Values[0].(*ast.PipeExpr); !ok {
		t.Fatalf("expected PipeExpr, got %T", decl.Values[0])
	}
}
