package constexpr

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/robert-at-pretension-io/lucid-width/internal/ast"
	"github.com/robert-at-pretension-io/lucid-width/internal/width"
)

type globals map[string]*Value

func (g globals) Constant(ns, name string) *Value { return g[ns+"."+name] }

func TestParseLiteral(t *testing.T) {
	tests := []struct {
		text    string
		value   string
		width   width.Descriptor
		unknown bool
	}{
		{"0", "0", width.Scalar(1), false},
		{"12", "12", width.Scalar(4), false},
		{"8hFF", "255", width.Scalar(8), false},
		{"hFF", "255", width.Scalar(8), false},
		{"b1010", "10", width.Scalar(4), false},
		{"4b1x01", "x", width.Scalar(4), true},
		{"4d20", "4", width.Scalar(4), false},
		{"d9", "9", width.Scalar(4), false},
		{"1_000", "1000", width.Scalar(10), false},
		{`"a"`, "97", width.Scalar(8), false},
		{`"ab"`, "{97, 98}", width.Dims(2, 8), false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			v, err := ParseLiteral(tt.text)
			if err != nil {
				t.Fatalf("ParseLiteral(%q): %v", tt.text, err)
			}
			if v.String() != tt.value {
				t.Errorf("value = %s, want %s", v, tt.value)
			}
			if diff := cmp.Diff(tt.width, v.Width); diff != "" {
				t.Errorf("width (-want +got):\n%s", diff)
			}
			if v.Unknown != tt.unknown {
				t.Errorf("unknown = %v, want %v", v.Unknown, tt.unknown)
			}
		})
	}

	for _, bad := range []string{"8q12", "d1x", "0b"} {
		if _, err := ParseLiteral(bad); err == nil {
			t.Errorf("ParseLiteral(%q) should fail", bad)
		}
	}
}

func mustParse(t *testing.T, text string) ast.Expr {
	t.Helper()
	x, err := ParseExpr(text)
	if err != nil {
		t.Fatalf("ParseExpr(%q): %v", text, err)
	}
	return x
}

func TestFold(t *testing.T) {
	mask, err := ParseLiteral("8hF0")
	if err != nil {
		t.Fatal(err)
	}
	params := Values{"WIDTH": Int(8), "DEPTH": Int(5), "MASK": mask}
	g := globals{"cfg.BUS": Int(16)}

	tests := []struct {
		text string
		want string
	}{
		{"WIDTH + 1", "9"},
		{"WIDTH * 2 - 1", "15"},
		{"(WIDTH + 8) / 4", "4"},
		{"$clog2(DEPTH)", "3"},
		{"$clog2(1)", "0"},
		{"$pow(2, WIDTH)", "256"},
		{"$cdiv(WIDTH, 3)", "3"},
		{"cfg.BUS >> 2", "4"},
		{"1 << 4", "16"},
		{"WIDTH > 4 ? 1 : 0", "1"},
		{"WIDTH == 8 && DEPTH != 0", "1"},
		{"-WIDTH", "-8"},
		{"~4b0101", "10"},
		{"!0", "1"},
		{"|4b0100", "1"},
		{"&4b0111", "0"},
		{"^4b0111", "1"},
		{"MASK[7:4]", "15"},
		{"MASK[4+:2]", "3"},
		{"$reverse(4b0001)", "8"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			e := NewEvaluator(params, g)
			v := e.Fold(mustParse(t, tt.text))
			if v == nil {
				t.Fatalf("Fold(%q) = nil", tt.text)
			}
			if v.String() != tt.want {
				t.Errorf("Fold(%q) = %s, want %s", tt.text, v, tt.want)
			}
		})
	}
}

func TestFoldNotConstant(t *testing.T) {
	e := NewEvaluator(Values{"N": Int(4)}, nil)
	for _, text := range []string{"x + 1", "N / 0", "cfg.BUS", "$unknown(1)"} {
		if v := e.Fold(mustParse(t, text)); v != nil {
			t.Errorf("Fold(%q) = %s, want nil", text, v)
		}
	}
}

func TestIsConstant(t *testing.T) {
	e := NewEvaluator(Values{"N": Int(4)}, globals{"cfg.BUS": Int(16)})
	e.DefineConst("LOCAL", &ast.Number{Text: "3"})
	tests := []struct {
		text string
		want bool
	}{
		{"N + 1", true},
		{"LOCAL * cfg.BUS", true},
		{"N / 0", true},
		{"x + 1", false},
		{"$clog2(N)", true},
		{"$mystery(N)", false},
		{"cfg.MISSING", false},
	}
	for _, tt := range tests {
		if got := e.IsConstant(mustParse(t, tt.text)); got != tt.want {
			t.Errorf("IsConstant(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestLocalConstCycle(t *testing.T) {
	e := NewEvaluator(nil, nil)
	e.DefineConst("A", ast.Ref("B"))
	e.DefineConst("B", ast.Ref("A"))
	if v := e.Fold(ast.Ref("A")); v != nil {
		t.Fatalf("cyclic constant folded to %s", v)
	}
}

func TestChainOrder(t *testing.T) {
	p := Chain(Values{"W": Int(8)}, Values{"W": Int(4), "D": Int(2)})
	if got := p.ValueOf("W").String(); got != "8" {
		t.Errorf("W = %s, want the first provider's value", got)
	}
	if got := p.ValueOf("D").String(); got != "2" {
		t.Errorf("D = %s, want fallback value", got)
	}
	if p.ValueOf("missing") != nil {
		t.Errorf("missing name resolved")
	}
}

func TestParseWidth(t *testing.T) {
	v, err := ParseWidth("WIDTH*2", Values{"WIDTH": Int(8)}, nil)
	if err != nil {
		t.Fatalf("ParseWidth: %v", err)
	}
	if n, _ := v.IntValue(); n != 16 {
		t.Fatalf("ParseWidth = %s, want 16", v)
	}
	if _, err := ParseWidth("WIDTH*", nil, nil); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := ParseWidth("UNBOUND", nil, nil); err == nil {
		t.Fatalf("expected not-constant error")
	}
}

func TestBounds(t *testing.T) {
	e := NewEvaluator(Values{"N": Int(3)}, nil)
	tests := []struct {
		node ast.Node
		want Bounds
	}{
		{&ast.ConstSelector{Hi: ast.Num("7"), Lo: ast.Num("4")}, Bounds{Lo: 4, Hi: 7}},
		{&ast.FixedSelector{Start: ast.Ref("N"), Width: ast.Num("2")}, Bounds{Lo: 3, Hi: 4}},
		{&ast.FixedSelector{Start: ast.Num("7"), Width: ast.Num("4"), Down: true}, Bounds{Lo: 4, Hi: 7}},
		{ast.Ref("N"), Bounds{Lo: 3, Hi: 3}},
	}
	for _, tt := range tests {
		got, ok := e.Bounds(tt.node)
		if !ok {
			t.Fatalf("Bounds(%T) failed", tt.node)
		}
		if got != tt.want {
			t.Errorf("Bounds(%T) = %+v, want %+v", tt.node, got, tt.want)
		}
	}
	if _, ok := e.Bounds(ast.Ref("sig")); ok {
		t.Errorf("bounds of a signal should not resolve")
	}
	if !(Bounds{Lo: 0, Hi: 7}).FitsIn(8) || (Bounds{Lo: 4, Hi: 8}).FitsIn(8) {
		t.Errorf("FitsIn boundary wrong")
	}
	if w := (Bounds{Lo: 4, Hi: 7}).Width(); w != 4 {
		t.Errorf("Width = %d, want 4", w)
	}
}
