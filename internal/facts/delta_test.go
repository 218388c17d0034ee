package facts

import "testing"

func TestComputeDeltaAddsAndRemoves(t *testing.T) {
	prev := Tables{
		Widths: []WidthRow{
			{Module: "top", Name: "a", Width: "[8]", Depth: 1},
			{Module: "top", Name: "b", Width: "[4]", Depth: 1},
		},
		Diagnostics: []DiagnosticRow{
			{Module: "top", Code: "truncation", Severity: "warning", File: "top.luc", Line: 7},
		},
	}
	next := Tables{
		Widths: []WidthRow{
			{Module: "top", Name: "a", Width: "[16]", Depth: 1},
			{Module: "top", Name: "b", Width: "[4]", Depth: 1},
		},
	}

	delta := ComputeDelta(prev, next)

	if len(delta.Added.Widths) != 1 || delta.Added.Widths[0].Width != "[16]" {
		t.Fatalf("expected a [16] added, got %+v", delta.Added.Widths)
	}
	if len(delta.Removed.Widths) != 1 || delta.Removed.Widths[0].Width != "[8]" {
		t.Fatalf("expected a [8] removed, got %+v", delta.Removed.Widths)
	}
	if len(delta.Added.Diagnostics) != 0 {
		t.Fatalf("expected no diagnostics added, got %+v", delta.Added.Diagnostics)
	}
	if len(delta.Removed.Diagnostics) != 1 {
		t.Fatalf("expected the truncation removed, got %+v", delta.Removed.Diagnostics)
	}
	if delta.Empty() {
		t.Fatalf("delta should not be empty")
	}
}

func TestComputeDeltaOfSameSnapshotIsEmpty(t *testing.T) {
	tables := checkFixture(t)
	if d := ComputeDelta(tables, tables); !d.Empty() {
		t.Fatalf("expected empty delta, got %+v", d)
	}
}
