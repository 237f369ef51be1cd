// Command lumac is a minimal front-end harness: it parses a file, runs
// the type analyzer over the result, and prints the accumulated
// diagnostics and tips. Bytecode emission and execution live in a
// separate toolchain; this command stops at analysis.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/btouchard/luma/internal/compiler/diag"
	"github.com/btouchard/luma/internal/compiler/host"
	"github.com/btouchard/luma/internal/compiler/lexer"
	"github.com/btouchard/luma/internal/compiler/parser"
	"github.com/btouchard/luma/internal/compiler/source"
	"github.com/btouchard/luma/internal/compiler/typecheck"
)

var (
	tipLevel   int
	diagnose   bool
	jitOptions string
	libDirs    []string
)

func main() {
	root := &cobra.Command{
		Use:   "lumac [file]",
		Short: "parse and type-check a luma source file",
		Args:  cobra.ExactArgs(1),
		RunE:  runCompile,
	}
	root.Flags().IntVar(&tipLevel, "tip-level", 1, "tip verbosity (0=off, 1..3)")
	root.Flags().BoolVar(&diagnose, "diagnose", false, "keep parsing after an error instead of stopping at the first one")
	root.Flags().StringVar(&jitOptions, "jit-options", "", "comma-separated JIT options; trace-types prints inferred declaration types")
	root.Flags().StringArrayVar(&libDirs, "lib-dir", nil, "additional library search directory (repeatable)")

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func runCompile(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolving %q: %w", args[0], err)
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %q: %w", path, err)
	}

	h := host.New(path, libDirs...)
	sources := source.New()
	sink := diag.NewSink()
	tips := diag.NewTipEmitter(tipLevel)

	rootIndex, err := sources.Register(path, filepath.Base(path), -1, 0)
	if err != nil {
		return fmt.Errorf("registering %q: %w", path, err)
	}

	cfg := parser.Config{Host: h, DiagnoseMode: diagnose, TipLevel: tipLevel}
	l := lexer.New(string(contents), rootIndex)
	stream := lexer.NewStream(l)
	p := parser.New(stream, sources, sink, tips, rootIndex, cfg)
	chunk := p.ParseChunk()

	if !sink.HasErrors() {
		typecheck.RunTypeAnalysis(chunk, sink, tips, typecheck.Config{
			TipLevel:   tipLevel,
			TraceTypes: hasJITOption("trace-types"),
		})
	}

	for _, d := range sink.Diagnostics() {
		fmt.Println(d.String())
	}
	for _, t := range tips.Tips() {
		fmt.Println(t.String(filepath.Base(path)))
	}

	if sink.HasErrors() {
		return fmt.Errorf("%s: compilation failed with errors", path)
	}
	return nil
}

// hasJITOption reports whether --jit-options contains name in its
// comma-separated list. Options other than trace-types are accepted for a
// downstream bytecode/VM toolchain and have no effect here.
func hasJITOption(name string) bool {
	for _, opt := range strings.Split(jitOptions, ",") {
		if strings.TrimSpace(opt) == name {
			return true
		}
	}
	return false
}
