package facts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/robert-at-pretension-io/lucid-width/internal/ast"
	"github.com/robert-at-pretension-io/lucid-width/internal/checker"
	"github.com/robert-at-pretension-io/lucid-width/internal/decls"
	"github.com/robert-at-pretension-io/lucid-width/internal/diag"
	"github.com/robert-at-pretension-io/lucid-width/internal/width"
)

// Tables is the relational view of one analysis run.
// Each slice is a relation (table) with flat rows.
type Tables struct {
	Files       []FileRow       `json:"files"`
	Modules     []ModuleRow     `json:"modules"`
	Ports       []PortRow       `json:"ports"`
	Widths      []WidthRow      `json:"widths"`
	Instances   []InstanceRow   `json:"instances"`
	Decorations []DecorationRow `json:"decorations"`
	Diagnostics []DiagnosticRow `json:"diagnostics"`
}

type FileRow struct {
	Path    string `json:"path"`
	Hash    string `json:"hash"`
	Modules int    `json:"modules"`
}

type ModuleRow struct {
	Name   string `json:"name"`
	File   string `json:"file"`
	Line   int    `json:"line"`
	Params int    `json:"params"`
	Ports  int    `json:"ports"`
}

// PortRow is a declared port. Width keeps parameter names unresolved.
type PortRow struct {
	Module    string `json:"module"`
	Name      string `json:"name"`
	Direction string `json:"direction"`
	Width     string `json:"width"`
	File      string `json:"file"`
	Line      int    `json:"line"`
}

// WidthRow is one Width Map entry after analysis.
type WidthRow struct {
	Module string `json:"module"`
	Name   string `json:"name"`
	Width  string `json:"width"`
	Depth  int    `json:"depth"`
}

type InstanceRow struct {
	Module string `json:"module"`
	Name   string `json:"name"`
	Target string `json:"target"`
	Width  string `json:"width"`
	File   string `json:"file"`
	Line   int    `json:"line"`
}

// DecorationRow is the width attached to one tree node.
type DecorationRow struct {
	Module string `json:"module"`
	Kind   string `json:"kind"`
	Text   string `json:"text"`
	Width  string `json:"width"`
	File   string `json:"file"`
	Line   int    `json:"line"`
	Col    int    `json:"col"`
}

type DiagnosticRow struct {
	Module   string `json:"module"`
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	File     string `json:"file"`
	Line     int    `json:"line"`
	Col      int    `json:"col"`
}

// ModuleFacts is everything known about one checked module.
type ModuleFacts struct {
	File        string
	Decl        *decls.ModuleDecl
	Result      *checker.Result
	Diagnostics []diag.Diagnostic
}

// BuildTables converts the results of one file into rows. hash identifies
// the file content the rows were derived from.
func BuildTables(path, hash string, mods []ModuleFacts) Tables {
	tables := emptyTables()
	tables.Files = append(tables.Files, FileRow{Path: path, Hash: hash, Modules: len(mods)})

	for _, m := range mods {
		name := m.Result.Module
		if m.Decl != nil && m.Decl.Node != nil {
			node := m.Decl.Node
			tables.Modules = append(tables.Modules, ModuleRow{
				Name:   name,
				File:   path,
				Line:   node.Line,
				Params: len(node.Params),
				Ports:  len(node.Ports),
			})
			for _, p := range node.Ports {
				port, ok := m.Decl.Port(p.Name)
				if !ok {
					continue
				}
				tables.Ports = append(tables.Ports, PortRow{
					Module:    name,
					Name:      p.Name,
					Direction: string(p.Dir),
					Width:     port.Width.String(),
					File:      path,
					Line:      p.Line,
				})
			}
		}

		for _, n := range m.Result.Widths.Names() {
			w, _ := m.Result.Widths.Lookup(n)
			tables.Widths = append(tables.Widths, WidthRow{
				Module: name,
				Name:   n,
				Width:  w.String(),
				Depth:  w.Depth(),
			})
		}

		m.Result.Range(func(n ast.Node, w width.Descriptor) {
			row := DecorationRow{
				Module: name,
				Kind:   nodeKind(n),
				Text:   nodeText(n),
				Width:  w.String(),
			}
			p := n.Position()
			row.File, row.Line, row.Col = p.File, p.Line, p.Col
			if inst, ok := n.(*ast.ModuleInst); ok {
				tables.Instances = append(tables.Instances, InstanceRow{
					Module: name,
					Name:   inst.Name,
					Target: inst.Module,
					Width:  row.Width,
					File:   p.File,
					Line:   p.Line,
				})
			}
			tables.Decorations = append(tables.Decorations, row)
		})

		for _, d := range m.Diagnostics {
			tables.Diagnostics = append(tables.Diagnostics, DiagnosticRow{
				Module:   d.Module,
				Code:     string(d.Code),
				Severity: string(d.Severity),
				Message:  d.Message,
				File:     d.File,
				Line:     d.Line,
				Col:      d.Col,
			})
		}
	}

	tables.Sort()
	return tables
}

// Merge concatenates the rows of several snapshots and sorts the result.
func Merge(parts ...Tables) Tables {
	out := emptyTables()
	for _, t := range parts {
		out.Files = append(out.Files, t.Files...)
		out.Modules = append(out.Modules, t.Modules...)
		out.Ports = append(out.Ports, t.Ports...)
		out.Widths = append(out.Widths, t.Widths...)
		out.Instances = append(out.Instances, t.Instances...)
		out.Decorations = append(out.Decorations, t.Decorations...)
		out.Diagnostics = append(out.Diagnostics, t.Diagnostics...)
	}
	out.Sort()
	return out
}

// Sort puts every relation into a stable order so snapshots can be compared
// textually.
func (t *Tables) Sort() {
	sort.Slice(t.Files, func(i, j int) bool { return t.Files[i].Path < t.Files[j].Path })
	sort.Slice(t.Modules, func(i, j int) bool { return t.Modules[i].Name < t.Modules[j].Name })
	sort.SliceStable(t.Ports, func(i, j int) bool {
		a, b := t.Ports[i], t.Ports[j]
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		return a.Line < b.Line
	})
	sort.Slice(t.Widths, func(i, j int) bool {
		a, b := t.Widths[i], t.Widths[j]
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		return a.Name < b.Name
	})
	sort.Slice(t.Instances, func(i, j int) bool {
		a, b := t.Instances[i], t.Instances[j]
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		return a.Name < b.Name
	})
	sort.Slice(t.Decorations, func(i, j int) bool {
		return decorationKey(t.Decorations[i]) < decorationKey(t.Decorations[j])
	})
	sort.SliceStable(t.Diagnostics, func(i, j int) bool {
		a, b := t.Diagnostics[i], t.Diagnostics[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Col != b.Col {
			return a.Col < b.Col
		}
		return a.Code < b.Code
	})
}

func decorationKey(r DecorationRow) string {
	return fmt.Sprintf("%s|%s|%08d|%08d|%s|%s|%s", r.Module, r.File, r.Line, r.Col, r.Kind, r.Text, r.Width)
}

// nodeKind names the node type the way the parser output does.
func nodeKind(n ast.Node) string {
	switch n.(type) {
	case *ast.Number:
		return "num"
	case *ast.SignalExpr:
		return "signal_expr"
	case *ast.Signal:
		return "signal"
	case *ast.Group:
		return "group"
	case *ast.Negate:
		return "negate"
	case *ast.Invert:
		return "invert"
	case *ast.Concat:
		return "concat"
	case *ast.Dup:
		return "dup"
	case *ast.ArrayLit:
		return "array"
	case *ast.MulDiv:
		return "muldiv"
	case *ast.AddSub:
		return "addsub"
	case *ast.Shift:
		return "shift"
	case *ast.Bitwise:
		return "bitwise"
	case *ast.Compare:
		return "compare"
	case *ast.Logical:
		return "logical"
	case *ast.Reduce:
		return "reduce"
	case *ast.Ternary:
		return "ternary"
	case *ast.Call:
		return "call"
	case *ast.ConstSelector:
		return "const_select"
	case *ast.FixedSelector:
		return "fixed_select"
	case *ast.ModuleInst:
		return "inst"
	case *ast.Name:
		return "state"
	}
	return strings.ToLower(strings.TrimPrefix(fmt.Sprintf("%T", n), "*ast."))
}

func nodeText(n ast.Node) string {
	switch n := n.(type) {
	case ast.Expr:
		return ast.Format(n)
	case *ast.Signal:
		return ast.FormatSignal(n)
	case *ast.ModuleInst:
		return n.Module + " " + n.Name
	case *ast.Name:
		return n.Text
	}
	return ""
}

func emptyTables() Tables {
	return Tables{
		Files:       []FileRow{},
		Modules:     []ModuleRow{},
		Ports:       []PortRow{},
		Widths:      []WidthRow{},
		Instances:   []InstanceRow{},
		Decorations: []DecorationRow{},
		Diagnostics: []DiagnosticRow{},
	}
}
