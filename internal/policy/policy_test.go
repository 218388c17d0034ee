package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/robert-at-pretension-io/lucid-width/internal/facts"
)

func diagnostics() []facts.DiagnosticRow {
	return []facts.DiagnosticRow{
		{Module: "alu", Code: "port_dim_mismatch", Severity: "error", Message: "width mismatch", File: "alu.luc", Line: 9, Col: 3},
		{Module: "alu", Code: "truncation", Severity: "warning", Message: "truncates", File: "alu.luc", Line: 4, Col: 7},
		{Module: "bus", Code: "unknown_function", Severity: "internal", Message: "unknown function $x", File: "bus.luc", Line: 2, Col: 1},
	}
}

func newEngine(t *testing.T, dir string) *Engine {
	t.Helper()
	e, err := New(context.Background(), dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestEvaluateDefaultSeverities(t *testing.T) {
	e := newEngine(t, "")
	res, err := e.Evaluate(context.Background(), Input{Diagnostics: diagnostics()})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	want := []Violation{
		{Rule: "truncation", Severity: "warning", Module: "alu", File: "alu.luc", Line: 4, Col: 7, Message: "truncates"},
		{Rule: "port_dim_mismatch", Severity: "error", Module: "alu", File: "alu.luc", Line: 9, Col: 3, Message: "width mismatch"},
	}
	if diff := cmp.Diff(want, res.Violations); diff != "" {
		t.Errorf("violations (-want +got):\n%s", diff)
	}
	wantSummary := Summary{TotalViolations: 2, Errors: 1, Warnings: 1, ModulesWithErrors: 1}
	if diff := cmp.Diff(wantSummary, res.Summary); diff != "" {
		t.Errorf("summary (-want +got):\n%s", diff)
	}
}

func TestEvaluateKeepsRepeatedDiagnostics(t *testing.T) {
	e := newEngine(t, "")
	d := facts.DiagnosticRow{Module: "alu", Code: "op_eq_dim_mismatch", Severity: "error", Message: "mismatch", File: "alu.luc", Line: 5, Col: 2}
	res, err := e.Evaluate(context.Background(), Input{Diagnostics: []facts.DiagnosticRow{d, d}})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(res.Violations) != 2 {
		t.Fatalf("got %d violations, want 2", len(res.Violations))
	}
	if res.Summary.TotalViolations != 2 || res.Summary.Errors != 2 {
		t.Errorf("summary = %+v", res.Summary)
	}
}

func TestEvaluateRuleOverrides(t *testing.T) {
	e := newEngine(t, "")
	tests := []struct {
		name  string
		input Input
		want  map[string]string
	}{
		{
			name:  "truncation_off",
			input: Input{Diagnostics: diagnostics(), Rules: map[string]string{"truncation": "off"}},
			want:  map[string]string{"port_dim_mismatch": "error"},
		},
		{
			name:  "mismatch_downgraded",
			input: Input{Diagnostics: diagnostics(), Rules: map[string]string{"port_dim_mismatch": "warning"}},
			want:  map[string]string{"port_dim_mismatch": "warning", "truncation": "warning"},
		},
		{
			name:  "internal_shown_as_info",
			input: Input{Diagnostics: diagnostics(), ShowInternal: true},
			want:  map[string]string{"port_dim_mismatch": "error", "truncation": "warning", "unknown_function": "info"},
		},
		{
			name:  "truncation_promoted",
			input: Input{Diagnostics: diagnostics(), Rules: map[string]string{"truncation": "error"}},
			want:  map[string]string{"port_dim_mismatch": "error", "truncation": "error"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.Evaluate(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			got := map[string]string{}
			for _, v := range res.Violations {
				got[v.Rule] = v.Severity
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("severities (-want +got):\n%s", diff)
			}
			if res.Summary.TotalViolations != len(res.Violations) {
				t.Errorf("summary counts %d, got %d violations", res.Summary.TotalViolations, len(res.Violations))
			}
		})
	}
}

func TestEvaluateNoDiagnostics(t *testing.T) {
	e := newEngine(t, "")
	res, err := e.Evaluate(context.Background(), Input{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(res.Violations) != 0 || res.Summary.TotalViolations != 0 {
		t.Fatalf("expected a clean result, got %+v", res)
	}
}

func TestExtraPolicyDirectory(t *testing.T) {
	dir := t.TempDir()
	extra := `package lucid.widths

import rego.v1

violations contains v if {
	some d in input.diagnostics
	d.code == "truncation"
	d.module == "alu"
	v := {"rule": "alu_truncation", "severity": "error", "module": d.module, "file": d.file, "line": d.line, "col": d.col, "message": "alu must not truncate"}
}
`
	if err := os.WriteFile(filepath.Join(dir, "alu.rego"), []byte(extra), 0644); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	e := newEngine(t, dir)
	res, err := e.Evaluate(context.Background(), Input{Diagnostics: diagnostics()})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Summary.Errors != 2 {
		t.Fatalf("expected the extra rule to add an error, got %+v", res.Summary)
	}
}
