package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/sanity-io/litter"
	"github.com/sirupsen/logrus"

	"github.com/robert-at-pretension-io/lucid-width/internal/ast"
	"github.com/robert-at-pretension-io/lucid-width/internal/checker"
	"github.com/robert-at-pretension-io/lucid-width/internal/decls"
	"github.com/robert-at-pretension-io/lucid-width/internal/diag"
	"github.com/robert-at-pretension-io/lucid-width/internal/width"
)

type widthEntry struct {
	Name  string
	Width string
}

type decoration struct {
	Line  int
	Col   int
	Node  string
	Width string
}

// Dumps what the checker sees and infers for the modules of one file.
// Further files only contribute declarations.
func main() {
	dumpTree := flag.Bool("tree", false, "dump the decoded tree as well")
	only := flag.String("module", "", "only check this module")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: debug [--tree] [--module name] <file.ast.json> [other.ast.json...]")
		os.Exit(1)
	}

	var files []*ast.File
	for _, path := range flag.Args() {
		f, err := ast.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			os.Exit(1)
		}
		files = append(files, f)
	}
	table, err := decls.Collect(files)
	if err != nil {
		fmt.Fprintf(os.Stderr, "declarations: %v\n", err)
		os.Exit(1)
	}

	dump := litter.Options{HidePrivateFields: true, StripPackageNames: true, HomePackage: "main"}
	if *dumpTree {
		dump.Dump(files[0])
	}

	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)
	for _, mod := range files[0].Modules {
		if *only != "" && mod.Name != *only {
			continue
		}
		sink := diag.NewCollector(mod.Name, log)
		res := checker.Check(checker.Env{Decls: table, Sink: sink}, mod)

		fmt.Printf("=== %s ===\n", mod.Name)
		var widths []widthEntry
		for _, name := range res.Widths.Names() {
			w, _ := res.Widths.Lookup(name)
			widths = append(widths, widthEntry{Name: name, Width: w.String()})
		}
		dump.Dump(widths)

		var decos []decoration
		res.Range(func(n ast.Node, w width.Descriptor) {
			decos = append(decos, decoration{
				Line:  n.Position().Line,
				Col:   n.Position().Col,
				Node:  fmt.Sprintf("%T", n),
				Width: w.String(),
			})
		})
		sort.Slice(decos, func(i, j int) bool {
			a, b := decos[i], decos[j]
			if a.Line != b.Line {
				return a.Line < b.Line
			}
			if a.Col != b.Col {
				return a.Col < b.Col
			}
			return decos[i].Node < decos[j].Node
		})
		dump.Dump(decos)

		diag.Sort(sink.Diagnostics)
		for _, d := range sink.Diagnostics {
			fmt.Println(d)
		}
	}
}
