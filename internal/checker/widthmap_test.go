package checker

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/robert-at-pretension-io/lucid-width/internal/decls"
	"github.com/robert-at-pretension-io/lucid-width/internal/width"
)

type kinds map[string]decls.Kind

func (k kinds) KindOf(name string) decls.Kind { return k[name] }

func TestWidthMapRoundTrip(t *testing.T) {
	pixel := width.NewStruct("cfg", "pixel",
		width.Member{Name: "r", Width: width.Scalar(8)},
		width.Member{Name: "g", Width: width.Scalar(8)})
	stored := map[string]width.Descriptor{
		"a":        width.Scalar(8),
		"m":        width.Dims(4, 2, 8),
		"px":       width.Chain(width.Scalar(3), width.OfStruct(pixel)),
		"u.din":    width.OfText("WIDTH"),
		"ctr.d":    width.Scalar(16),
		"io.write": width.Scalar(1),
	}
	m := NewWidthMap(nil)
	for name, w := range stored {
		m.Put(name, w)
	}
	for name, want := range stored {
		got, ok := m.Resolve(name)
		if !ok || !got.Equal(want) {
			t.Errorf("Resolve(%s) = %s, %v; want %s", name, got, ok, want)
		}
	}
	want := []string{"a", "ctr.d", "io.write", "m", "px", "u.din"}
	if diff := cmp.Diff(want, m.Names()); diff != "" {
		t.Errorf("Names (-want +got):\n%s", diff)
	}
	m.PutIfAbsent("a", width.Scalar(1))
	if got, _ := m.Lookup("a"); !got.Equal(width.Scalar(8)) {
		t.Errorf("PutIfAbsent replaced a with %s", got)
	}
}

func TestWidthMapRetarget(t *testing.T) {
	m := NewWidthMap(kinds{
		"bus":   decls.KindInout,
		"ctr":   decls.KindDff,
		"state": decls.KindFsm,
		"u":     decls.KindInstance,
	})
	m.Put("bus.enable", width.Scalar(4))
	m.Put("ctr.d", width.Scalar(8))
	m.Put("state.d", width.Scalar(3))
	m.Put("u.out", width.Dims(2, 8))
	m.PutInstance("u", width.Scalar(2))

	tests := []struct {
		name string
		want width.Descriptor
	}{
		{"bus", width.Scalar(4)},
		{"ctr", width.Scalar(8)},
		{"state", width.Scalar(3)},
		{"u", width.Scalar(2)},
	}
	for _, tt := range tests {
		if got, ok := m.Resolve(tt.name); !ok || !got.Equal(tt.want) {
			t.Errorf("Resolve(%s) = %s, want %s", tt.name, got, tt.want)
		}
	}
	if _, ok := m.Resolve("nothing"); ok {
		t.Errorf("Resolve(nothing) should fail")
	}
}

func TestWidthMapPrefix(t *testing.T) {
	m := NewWidthMap(kinds{"ctr": decls.KindDff})
	m.Put("p", width.Scalar(8))
	m.Put("u.out", width.Scalar(4))
	m.Put("u.out.deep", width.Scalar(2))
	m.Put("ctr.d", width.Scalar(6))

	tests := []struct {
		names   []string
		matched int
		want    width.Descriptor
	}{
		{[]string{"p", "r", "g"}, 1, width.Scalar(8)},
		{[]string{"u", "out", "deep"}, 2, width.Scalar(4)},
		{[]string{"ctr", "x"}, 1, width.Scalar(6)},
	}
	for _, tt := range tests {
		n, got, ok := m.Prefix(tt.names)
		if !ok || n != tt.matched || !got.Equal(tt.want) {
			t.Errorf("Prefix(%v) = %d, %s, %v; want %d, %s", tt.names, n, got, ok, tt.matched, tt.want)
		}
	}
	if _, _, ok := m.Prefix([]string{"zz", "top"}); ok {
		t.Errorf("Prefix of unknown names should fail")
	}
}
