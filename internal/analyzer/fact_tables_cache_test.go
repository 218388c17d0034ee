package analyzer

import (
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/robert-at-pretension-io/lucid-width/internal/facts"
)

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	if _, ok, err := LoadFactTables(dir); ok || err != nil {
		t.Fatalf("empty dir: ok=%v err=%v", ok, err)
	}

	tables := facts.Merge(facts.Tables{
		Files:  []facts.FileRow{{Path: "top.luc", Hash: "cafe", Modules: 1}},
		Widths: []facts.WidthRow{{Module: "top", Name: "a", Width: "[8]", Depth: 1}},
	})
	if err := saveFactTables(dir, tables); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := LoadFactTables(dir)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(tables, got); diff != "" {
		t.Errorf("tables (-saved +loaded):\n%s", diff)
	}
}

func TestSnapshotRejectsInconsistentFiles(t *testing.T) {
	dir := t.TempDir()
	doc := `{"version": 2, "files": {"top.luc": "beef"},
	  "tables": {"files": [{"path": "top.luc", "hash": "cafe", "modules": 1}]}}`
	if err := os.WriteFile(snapshotPath(dir), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := LoadFactTables(dir); ok || err != nil {
		t.Errorf("inconsistent snapshot: ok=%v err=%v", ok, err)
	}
}
