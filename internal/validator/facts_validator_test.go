package validator

import (
	"testing"

	"github.com/robert-at-pretension-io/lucid-width/internal/facts"
)

func validTables() facts.Tables {
	return facts.Tables{
		Files:   []facts.FileRow{{Path: "alu.luc", Hash: "00ff", Modules: 1}},
		Modules: []facts.ModuleRow{{Name: "alu", File: "alu.luc", Line: 1, Ports: 1}},
		Ports: []facts.PortRow{{
			Module: "alu", Name: "din", Direction: "input", Width: "[WIDTH]", File: "alu.luc", Line: 2,
		}},
		Widths: []facts.WidthRow{
			{Module: "alu", Name: "din", Width: "[8]", Depth: 1},
			{Module: "alu", Name: "px", Width: "[2]<cfg.pixel>", Depth: 2},
		},
		Instances: []facts.InstanceRow{},
		Decorations: []facts.DecorationRow{{
			Module: "alu", Kind: "addsub", Text: "din + 1", Width: "[9]", File: "alu.luc", Line: 5, Col: 9,
		}},
		Diagnostics: []facts.DiagnosticRow{{
			Module: "alu", Code: "truncation", Severity: "warning", Message: "assigning truncates", File: "alu.luc", Line: 6,
		}},
	}
}

func TestFactsValidatorAcceptsValidTables(t *testing.T) {
	v, err := NewFactsValidator()
	if err != nil {
		t.Fatalf("new facts validator: %v", err)
	}

	if err := v.Validate(validTables()); err != nil {
		t.Fatalf("expected valid tables, got error: %v", err)
	}
}

func TestFactsValidatorRejectsInvalidTables(t *testing.T) {
	v, err := NewFactsValidator()
	if err != nil {
		t.Fatalf("new facts validator: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*facts.Tables)
	}{
		{"bad_severity", func(tb *facts.Tables) { tb.Diagnostics[0].Severity = "fatal" }},
		{"bad_code", func(tb *facts.Tables) { tb.Diagnostics[0].Code = "Truncation!" }},
		{"bad_width", func(tb *facts.Tables) { tb.Widths[0].Width = "8 bits" }},
		{"bad_direction", func(tb *facts.Tables) { tb.Ports[0].Direction = "buffer" }},
		{"empty_module", func(tb *facts.Tables) { tb.Modules[0].Name = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tables := validTables()
			tt.mutate(&tables)
			if err := v.Validate(tables); err == nil {
				t.Fatalf("expected validation error")
			}
			if errs := v.ValidationErrors(tables); len(errs) == 0 {
				t.Fatalf("expected detailed errors")
			}
		})
	}
}
