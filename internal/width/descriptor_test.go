package width

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestChainNormalises(t *testing.T) {
	pixel := NewStruct("", "pixel", Member{Name: "r", Width: Scalar(8)})
	tests := []struct {
		name string
		got  Descriptor
		want string
		dep  int
	}{
		{"merge arrays", Chain(Dims(3), Dims(4, 8)), "[3][4][8]", 3},
		{"empty skipped", Chain(Dims(), Scalar(8)), "[8]", 1},
		{"array of struct", Chain(Dims(2), OfStruct(pixel)), "[2]<pixel>", 2},
		{"text then array", Chain(OfText("WIDTH"), Dims(4)), "[WIDTH][4]", 2},
		{"zero", Descriptor{}, "[]", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got.String() != tt.want {
				t.Errorf("String() = %q, want %q", tt.got.String(), tt.want)
			}
			if tt.got.Depth() != tt.dep {
				t.Errorf("Depth() = %d, want %d", tt.got.Depth(), tt.dep)
			}
		})
	}
}

func TestPredicates(t *testing.T) {
	pixel := NewStruct("", "pixel", Member{Name: "r", Width: Scalar(8)})
	d := Chain(Dims(2), OfStruct(pixel))
	if !d.IsArray() || d.IsStruct() || d.IsSimpleArray() || !d.IsFixed() {
		t.Fatalf("unexpected predicates for %s", d)
	}
	if !d.Next().IsStruct() {
		t.Fatalf("Next() of %s should be the struct frame", d)
	}
	if Chain(OfText("N")).IsFixed() {
		t.Fatalf("text descriptor reported fixed")
	}
	if !Dims(3, 4).IsSimpleArray() {
		t.Fatalf("[3][4] should be a simple array")
	}
}

func TestEqual(t *testing.T) {
	a := NewStruct("", "pixel", Member{Name: "r", Width: Scalar(8)})
	b := NewStruct("", "pixel", Member{Name: "r", Width: Scalar(8)})
	c := NewStruct("", "pixel", Member{Name: "r", Width: Scalar(4)})

	if !Dims(3, 4).Equal(Chain(Dims(3), Dims(4))) {
		t.Errorf("[3][4] should equal chained [3][4]")
	}
	if Dims(3, 4).Equal(Dims(4, 3)) {
		t.Errorf("[3][4] should not equal [4][3]")
	}
	if !OfStruct(a).Equal(OfStruct(b)) {
		t.Errorf("structurally identical structs should be equal")
	}
	if OfStruct(a).Equal(OfStruct(c)) {
		t.Errorf("structs with different member widths should differ")
	}
	if Scalar(1).Equal(OfStruct(a)) {
		t.Errorf("array and struct should differ")
	}
}

func TestNarrowingReturnsCopies(t *testing.T) {
	orig := Dims(3, 4, 8)
	dropped := orig.DropOuter()
	replaced := orig.WithOuter(2)

	if diff := cmp.Diff(Dims(3, 4, 8), orig); diff != "" {
		t.Fatalf("original changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Dims(4, 8), dropped); diff != "" {
		t.Errorf("DropOuter (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Dims(2, 4, 8), replaced); diff != "" {
		t.Errorf("WithOuter (-want +got):\n%s", diff)
	}
	if got := Scalar(8).DropOuter(); !got.IsZero() {
		t.Errorf("dropping the last extent = %s, want empty", got)
	}
}

func TestFlatten(t *testing.T) {
	pixel := NewStruct("", "pixel",
		Member{Name: "r", Width: Scalar(8)},
		Member{Name: "g", Width: Scalar(8)},
		Member{Name: "b", Width: Dims(2, 4)},
	)
	tests := []struct {
		in   Descriptor
		want Descriptor
	}{
		{Dims(3, 4), Scalar(12)},
		{Scalar(7), Scalar(7)},
		{OfStruct(pixel), Scalar(24)},
		{Chain(Dims(2), OfStruct(pixel)), Scalar(48)},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, tt.in.Flatten()); diff != "" {
			t.Errorf("Flatten(%s) (-want +got):\n%s", tt.in, diff)
		}
	}
	text := OfText("N")
	if !text.Flatten().Equal(text) {
		t.Errorf("flattening unresolved text should be a no-op")
	}
}

func TestAssertSimpleArray(t *testing.T) {
	if err := Dims(2, 2).AssertSimpleArray(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := OfStruct(NewStruct("", "s")).AssertSimpleArray()
	if !errors.Is(err, ErrNotSimpleArray) {
		t.Fatalf("err = %v, want ErrNotSimpleArray", err)
	}
}

func TestMinBits(t *testing.T) {
	for _, tt := range []struct{ n, want int }{
		{0, 1}, {1, 1}, {2, 2}, {4, 3}, {7, 3}, {8, 4}, {255, 8},
	} {
		if got := MinBits(tt.n); got != tt.want {
			t.Errorf("MinBits(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestMulBits(t *testing.T) {
	for _, tt := range []struct{ a, b, want int }{
		{8, 8, 16}, {4, 3, 7}, {1, 8, 8}, {1, 1, 1}, {16, 2, 18}, {2, 2, 4},
		{1, 1 << 30, 1 << 30}, {1 << 30, 1 << 30, 1 << 31}, {0, 8, 1},
	} {
		if got := MulBits(tt.a, tt.b); got != tt.want {
			t.Errorf("MulBits(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
		if got := MulBits(tt.b, tt.a); got != tt.want {
			t.Errorf("MulBits(%d, %d) = %d, want %d", tt.b, tt.a, got, tt.want)
		}
	}
}
