package ast

import (
	"strings"
	"testing"
)

const counterJSON = `{
  "file": "counter.luc",
  "globals": [
    {"name": "cfg", "constants": [{"name": "BUS", "value": {"kind": "num", "text": "16"}}]}
  ],
  "modules": [{
    "name": "counter", "line": 1,
    "params": [{"name": "SIZE", "default": {"kind": "num", "text": "8"}}],
    "ports": [
      {"dir": "input", "name": "clk"},
      {"dir": "output", "name": "value", "sizes": [{"kind": "signal", "signal": {"parts": [{"name": "SIZE"}]}}]}
    ],
    "items": [
      {"kind": "dff", "names": [{"name": "ctr", "sizes": [{"kind": "signal", "signal": {"parts": [{"name": "SIZE"}]}}],
        "connections": [{"port": "clk", "value": {"kind": "signal", "signal": {"parts": [{"name": "clk"}]}}}]}]},
      {"kind": "always", "body": [
        {"kind": "assign", "line": 9,
         "target": {"parts": [{"name": "ctr"}, {"name": "d"}]},
         "value": {"kind": "addsub", "op": "+", "args": [
            {"kind": "signal", "signal": {"parts": [{"name": "ctr"}, {"name": "q"}]}},
            {"kind": "num", "text": "1"}]}},
        {"kind": "assign",
         "target": {"parts": [{"name": "value"}]},
         "value": {"kind": "signal", "signal": {"parts": [{"name": "ctr"}, {"name": "q"},
            {"index": [{"kind": "num", "text": "0"}], "select": {"kind": "up", "start": {"kind": "num", "text": "0"}, "width": {"kind": "num", "text": "4"}}}]}}}
      ]}
    ]
  }]
}`

func TestDecode(t *testing.T) {
	f, err := Decode([]byte(counterJSON))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if f.Path != "counter.luc" || len(f.Modules) != 1 || len(f.Globals) != 1 {
		t.Fatalf("unexpected file shape: %+v", f)
	}
	m := f.Modules[0]
	if len(m.Params) != 1 || len(m.Ports) != 2 || len(m.Items) != 2 {
		t.Fatalf("unexpected module shape: params=%d ports=%d items=%d", len(m.Params), len(m.Ports), len(m.Items))
	}
	if m.Ports[1].Dir != Output {
		t.Errorf("port dir = %q, want output", m.Ports[1].Dir)
	}
	dff, ok := m.Items[0].(*DffDecl)
	if !ok {
		t.Fatalf("item 0 is %T, want *DffDecl", m.Items[0])
	}
	if len(dff.Names) != 1 || len(dff.Names[0].Connections) != 1 {
		t.Fatalf("dff not decoded: %+v", dff)
	}
	always := m.Items[1].(*Always)
	assign := always.Body[0].(*Assign)
	if assign.Pos.Line != 9 || assign.Pos.File != "counter.luc" {
		t.Errorf("assign pos = %+v", assign.Pos)
	}
	if got := FormatSignal(assign.Target); got != "ctr.d" {
		t.Errorf("target = %q, want ctr.d", got)
	}
	if got := Format(assign.Value); got != "ctr.q + 1" {
		t.Errorf("value = %q, want \"ctr.q + 1\"", got)
	}
	sel := always.Body[1].(*Assign).Value
	if got := Format(sel); got != "ctr.q[0][0+:4]" {
		t.Errorf("selection = %q", got)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{
			name: "unknown item",
			json: `{"modules": [{"name": "m", "items": [{"kind": "wire"}]}]}`,
			want: `unknown item kind "wire"`,
		},
		{
			name: "bad arity",
			json: `{"modules": [{"name": "m", "items": [{"kind": "const", "name": "A", "value": {"kind": "addsub", "op": "+", "args": [{"kind": "num", "text": "1"}]}}]}]}`,
			want: "expects 2 operands",
		},
		{
			name: "bad operator",
			json: `{"modules": [{"name": "m", "items": [{"kind": "const", "name": "A", "value": {"kind": "compare", "op": "=<", "args": [{"kind": "num", "text": "1"}, {"kind": "num", "text": "1"}]}}]}]}`,
			want: `unknown compare operator "=<"`,
		},
		{
			name: "bad direction",
			json: `{"modules": [{"name": "m", "ports": [{"dir": "sideways", "name": "p"}]}]}`,
			want: "unknown direction",
		},
		{
			name: "nameless signal",
			json: `{"modules": [{"name": "m", "items": [{"kind": "const", "name": "A", "value": {"kind": "signal", "signal": {"parts": [{"index": [{"kind": "num", "text": "1"}]}]}}}]}]}`,
			want: "signal without a name",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.json))
			if err == nil {
				t.Fatalf("expected error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not contain %q", err, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	x := &Ternary{
		Cond: &Compare{Op: "==", L: Ref("a"), R: Num("0")},
		Then: &Concat{Elems: []Expr{Ref("b"), &Dup{Count: Num("2"), Value: Ref("c")}}},
		Else: &Call{Func: "$clog2", Args: []Expr{&Group{X: &AddSub{Op: "+", L: Ref("N"), R: Num("1")}}}},
	}
	want := "a == 0 ? c{b, 2x{c}} : $clog2((N + 1))"
	if got := Format(x); got != want {
		t.Fatalf("Format = %q, want %q", got, want)
	}
}
