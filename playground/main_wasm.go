//go:build js && wasm

package main

import (
	"fmt"
	"syscall/js"

	"github.com/btouchard/luma/internal/compiler/diag"
	"github.com/btouchard/luma/internal/compiler/lexer"
	"github.com/btouchard/luma/internal/compiler/parser"
	"github.com/btouchard/luma/internal/compiler/source"
	"github.com/btouchard/luma/internal/compiler/typecheck"
)

func main() {
	js.Global().Set("compileLuma", js.FuncOf(compileLumaWrapper))

	// Keep the program alive
	select {}
}

// compileLumaWrapper wraps the compilation logic with panic recovery.
func compileLumaWrapper(this js.Value, args []js.Value) interface{} {
	var result map[string]interface{}

	defer func() {
		if r := recover(); r != nil {
			result = map[string]interface{}{
				"diagnostics": []interface{}{fmt.Sprintf("panic: %v", r)},
				"tips":        []interface{}{},
			}
		}
	}()

	if len(args) != 1 {
		return js.ValueOf(map[string]interface{}{
			"diagnostics": []interface{}{"expected 1 argument (source code)"},
			"tips":        []interface{}{},
		})
	}

	diagnostics, tips := compileLuma(args[0].String())

	result = map[string]interface{}{
		"diagnostics": toJSArray(diagnostics),
		"tips":        toJSArray(tips),
	}
	return js.ValueOf(result)
}

// compileLuma parses and type-checks a luma source string, returning
// human-readable diagnostic and tip lines. The playground has no host
// filesystem, so `import` statements fail with CannotOpenImport rather
// than being resolved — single-file only.
func compileLuma(src string) ([]string, []string) {
	sources := source.New()
	sink := diag.NewSink()
	tipEmitter := diag.NewTipEmitter(3)

	rootIndex, err := sources.Register("playground.luma", "playground.luma", -1, 0)
	if err != nil {
		return []string{err.Error()}, nil
	}

	l := lexer.New(src, rootIndex)
	stream := lexer.NewStream(l)
	p := parser.New(stream, sources, sink, tipEmitter, rootIndex, parser.Config{TipLevel: 3})
	chunk := p.ParseChunk()

	if !sink.HasErrors() {
		typecheck.RunTypeAnalysis(chunk, sink, tipEmitter, typecheck.Config{TipLevel: 3})
	}

	diagnostics := make([]string, 0, len(sink.Diagnostics()))
	for _, d := range sink.Diagnostics() {
		diagnostics = append(diagnostics, d.String())
	}
	tips := make([]string, 0, tipEmitter.Count())
	for _, t := range tipEmitter.Tips() {
		tips = append(tips, t.String("playground.luma"))
	}
	return diagnostics, tips
}

func toJSArray(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
