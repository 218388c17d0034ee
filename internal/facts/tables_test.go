package facts

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/robert-at-pretension-io/lucid-width/internal/ast"
	"github.com/robert-at-pretension-io/lucid-width/internal/checker"
	"github.com/robert-at-pretension-io/lucid-width/internal/decls"
	"github.com/robert-at-pretension-io/lucid-width/internal/diag"
)

func checkFixture(t *testing.T) Tables {
	t.Helper()
	f, err := ast.ReadFile("testdata/top.ast.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	tbl, err := decls.Collect([]*ast.File{f})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	var mods []ModuleFacts
	for _, m := range f.Modules {
		sink := diag.NewCollector(m.Name, nil)
		res := checker.Check(checker.Env{Decls: tbl, Sink: sink}, m)
		decl, _ := tbl.Module(m.Name)
		mods = append(mods, ModuleFacts{File: f.Path, Decl: decl, Result: res, Diagnostics: sink.Diagnostics})
	}
	return BuildTables(f.Path, "cafe", mods)
}

func TestBuildTablesPopulatesCoreRelations(t *testing.T) {
	tables := checkFixture(t)

	if diff := cmp.Diff([]FileRow{{Path: "top.luc", Hash: "cafe", Modules: 1}}, tables.Files); diff != "" {
		t.Errorf("files (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]ModuleRow{{Name: "top", File: "top.luc", Line: 1, Ports: 3}}, tables.Modules); diff != "" {
		t.Errorf("modules (-want +got):\n%s", diff)
	}
	wantPorts := []PortRow{
		{Module: "top", Name: "a", Direction: "input", Width: "[8]", File: "top.luc", Line: 2},
		{Module: "top", Name: "y", Direction: "output", Width: "[9]", File: "top.luc", Line: 3},
		{Module: "top", Name: "z", Direction: "output", Width: "[4]", File: "top.luc", Line: 4},
	}
	if diff := cmp.Diff(wantPorts, tables.Ports); diff != "" {
		t.Errorf("ports (-want +got):\n%s", diff)
	}
	wantWidths := []WidthRow{
		{Module: "top", Name: "a", Width: "[8]", Depth: 1},
		{Module: "top", Name: "y", Width: "[9]", Depth: 1},
		{Module: "top", Name: "z", Width: "[4]", Depth: 1},
	}
	if diff := cmp.Diff(wantWidths, tables.Widths); diff != "" {
		t.Errorf("widths (-want +got):\n%s", diff)
	}

	if len(tables.Diagnostics) != 1 {
		t.Fatalf("expected 1 diagnostic row, got %#v", tables.Diagnostics)
	}
	d := tables.Diagnostics[0]
	if d.Code != string(diag.Truncation) || d.Severity != "warning" || d.Line != 7 || d.Col != 9 {
		t.Errorf("unexpected diagnostic %#v", d)
	}

	var sum *DecorationRow
	for i, r := range tables.Decorations {
		if r.Kind == "addsub" {
			sum = &tables.Decorations[i]
		}
	}
	if sum == nil {
		t.Fatalf("no decoration for the addition in %#v", tables.Decorations)
	}
	if sum.Width != "[9]" || sum.Text != "a + 1" || sum.Line != 6 {
		t.Errorf("addition decorated as %#v", *sum)
	}
}

func TestMergeSortsRows(t *testing.T) {
	a := Tables{Modules: []ModuleRow{{Name: "b", File: "b.luc"}}, Files: []FileRow{{Path: "b.luc"}}}
	b := Tables{Modules: []ModuleRow{{Name: "a", File: "a.luc"}}, Files: []FileRow{{Path: "a.luc"}}}

	got := Merge(a, b)
	if got.Modules[0].Name != "a" || got.Files[0].Path != "a.luc" {
		t.Fatalf("merge did not sort: %#v", got)
	}
	if got.Ports == nil || got.Diagnostics == nil {
		t.Fatalf("merged relations must be non-nil")
	}
	if got.Len() != 4 {
		t.Fatalf("expected 4 rows, got %d", got.Len())
	}
}
