package validator

import (
	"strings"
	"testing"
)

const validDesign = `{
  "file": "alu.luc",
  "globals": [
    {"name": "cfg", "constants": [{"name": "BUS", "value": {"kind": "num", "text": "16"}}]}
  ],
  "modules": [{
    "name": "alu",
    "params": [{"name": "WIDTH", "default": {"kind": "num", "text": "8"}}],
    "ports": [
      {"dir": "input", "name": "a", "sizes": [{"kind": "signal", "signal": {"parts": [{"name": "WIDTH"}]}}]},
      {"dir": "output", "name": "y", "line": 3}
    ],
    "items": [
      {"kind": "inst", "module": "adder", "name": "add", "name_line": 4, "name_col": 10,
       "connections": [{"port": "x", "value": {"kind": "num", "text": "1"}}]},
      {"kind": "always", "body": [
        {"kind": "if", "cond": {"kind": "num", "text": "1"},
         "then": [{"kind": "assign", "target": {"parts": [{"name": "y"}]},
                   "value": {"kind": "call", "func": "$clog2", "args": [{"kind": "num", "text": "4"}]}}],
         "else": []}
      ]}
    ]
  }]
}`

// TestDesignContract checks that the #Design schema accepts parser output
// and rejects documents that would decode into a broken tree.
func TestDesignContract(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}

	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"valid_design", validDesign, false},
		{"empty_design", `{"file": "empty.luc"}`, false},
		{"missing_file", `{"modules": []}`, true},
		{
			name:    "invalid_port_direction",
			data:    `{"file": "a.luc", "modules": [{"name": "m", "ports": [{"dir": "sideways", "name": "p"}]}]}`,
			wantErr: true,
		},
		{
			name:    "unknown_field",
			data:    `{"file": "a.luc", "modules": [{"name": "m", "entity": "x"}]}`,
			wantErr: true,
		},
		{
			name: "signal_without_parts",
			data: `{"file": "a.luc", "modules": [{"name": "m", "items": [{"kind": "always", "body": [
				{"kind": "assign", "target": {"parts": []}, "value": {"kind": "num", "text": "1"}}]}]}]}`,
			wantErr: true,
		},
		{
			name:    "number_without_text",
			data:    `{"file": "a.luc", "modules": [{"name": "m", "params": [{"name": "P", "default": {"kind": "num"}}]}]}`,
			wantErr: true,
		},
		{
			name:    "instance_without_module",
			data:    `{"file": "a.luc", "modules": [{"name": "m", "items": [{"kind": "inst", "name": "u"}]}]}`,
			wantErr: true,
		},
		{
			name:    "bad_identifier",
			data:    `{"file": "a.luc", "modules": [{"name": "9lives"}]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateJSON([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidationErrorsNamesTheField(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}
	errs := v.ValidationErrors([]byte(`{"file": "a.luc", "modules": [{"name": "m", "ports": [{"dir": "up", "name": "p"}]}]}`))
	if len(errs) == 0 {
		t.Fatalf("expected validation errors")
	}
	if !strings.Contains(strings.Join(errs, "\n"), "dir") {
		t.Errorf("errors do not mention dir: %v", errs)
	}
	if errs := v.ValidationErrors([]byte(validDesign)); errs != nil {
		t.Errorf("valid design reported %v", errs)
	}
}

func TestValidateMarshalsData(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}
	doc := map[string]interface{}{
		"file":    "b.luc",
		"modules": []interface{}{map[string]interface{}{"name": "b"}},
	}
	if err := v.Validate(doc); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
