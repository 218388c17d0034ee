package facts

import "testing"

func sampleTables() Tables {
	return Tables{
		Files: []FileRow{
			{Path: "a.luc"},
			{Path: "b.luc"},
		},
		Modules: []ModuleRow{
			{Name: "alu", File: "a.luc"},
			{Name: "bus", File: "b.luc"},
		},
		Ports: []PortRow{
			{Module: "alu", Name: "clk", File: "a.luc"},
			{Module: "bus", Name: "rst", File: "b.luc"},
		},
		Widths: []WidthRow{
			{Module: "alu", Name: "clk", Width: "[1]"},
			{Module: "bus", Name: "rst", Width: "[1]"},
		},
		Diagnostics: []DiagnosticRow{
			{Module: "alu", Code: "truncation", File: "a.luc"},
			{Module: "bus", Code: "port_dim_mismatch", File: "b.luc"},
		},
	}
}

func TestFilterTablesByFiles(t *testing.T) {
	filtered := FilterTablesByFiles(sampleTables(), map[string]bool{"a.luc": true})

	if len(filtered.Files) != 1 || filtered.Files[0].Path != "a.luc" {
		t.Fatalf("expected only a.luc file row, got %#v", filtered.Files)
	}
	if len(filtered.Ports) != 1 || filtered.Ports[0].File != "a.luc" {
		t.Fatalf("expected only a.luc port rows, got %#v", filtered.Ports)
	}
	if len(filtered.Widths) != 1 || filtered.Widths[0].Module != "alu" {
		t.Fatalf("expected only alu widths, got %#v", filtered.Widths)
	}
	if len(filtered.Diagnostics) != 1 || filtered.Diagnostics[0].Code != "truncation" {
		t.Fatalf("expected only a.luc diagnostics, got %#v", filtered.Diagnostics)
	}
}

func TestFilterTablesByModules(t *testing.T) {
	filtered := FilterTablesByModules(sampleTables(), map[string]bool{"bus": true})

	if len(filtered.Files) != 1 || filtered.Files[0].Path != "b.luc" {
		t.Fatalf("expected the file of bus, got %#v", filtered.Files)
	}
	if len(filtered.Diagnostics) != 1 || filtered.Diagnostics[0].Module != "bus" {
		t.Fatalf("expected only bus diagnostics, got %#v", filtered.Diagnostics)
	}
	if len(filtered.Instances) != 0 || filtered.Instances == nil {
		t.Fatalf("expected an empty instance relation, got %#v", filtered.Instances)
	}
}

func TestFilterDeltaByFilesEmpty(t *testing.T) {
	delta := Delta{
		Added: Tables{
			Files: []FileRow{{Path: "a.luc"}},
		},
		Removed: Tables{
			Files: []FileRow{{Path: "b.luc"}},
		},
	}

	filtered := FilterDeltaByFiles(delta, map[string]bool{})
	if len(filtered.Added.Files) != 0 || len(filtered.Removed.Files) != 0 {
		t.Fatalf("expected empty delta, got %#v", filtered)
	}
}
