// Package constexpr folds constant Lucid expressions: literals, local
// constants, module parameters and namespaced globals.
package constexpr

import (
	"math/big"
	"strings"

	"github.com/robert-at-pretension-io/lucid-width/internal/width"
)

// Value is a folded constant. Exactly one of Int and Elems is set.
type Value struct {
	Int     *big.Int
	Elems   []*Value
	Signed  bool
	Unknown bool
	Width   width.Descriptor
}

// IsArray reports whether v is an array of values.
func (v *Value) IsArray() bool { return v != nil && v.Int == nil }

// IsNumber reports whether v is a single value with no x or z bits.
func (v *Value) IsNumber() bool { return v != nil && v.Int != nil && !v.Unknown }

// IsNegative reports whether v is a negative number.
func (v *Value) IsNegative() bool { return v.IsNumber() && v.Int.Sign() < 0 }

// IntValue returns v as an int when it is a number that fits.
func (v *Value) IntValue() (int, bool) {
	if !v.IsNumber() || !v.Int.IsInt64() {
		return 0, false
	}
	n := v.Int.Int64()
	if int64(int(n)) != n {
		return 0, false
	}
	return int(n), true
}

// IsZero reports whether v is the number zero.
func (v *Value) IsZero() bool { return v.IsNumber() && v.Int.Sign() == 0 }

func (v *Value) String() string {
	if v == nil {
		return "<nil>"
	}
	if v.IsArray() {
		parts := make([]string, len(v.Elems))
		for i, e := range v.Elems {
			parts[i] = e.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	if v.Unknown {
		return "x"
	}
	return v.Int.String()
}

// bitsFor is the minimal width of x, using two's complement for negatives.
func bitsFor(x *big.Int) int {
	if x.Sign() >= 0 {
		if x.BitLen() == 0 {
			return 1
		}
		return x.BitLen()
	}
	m := new(big.Int).Neg(x)
	m.Sub(m, big.NewInt(1))
	return m.BitLen() + 1
}

// Number returns a constant of minimal width.
func Number(x *big.Int) *Value {
	return &Value{Int: x, Signed: x.Sign() < 0, Width: width.Scalar(bitsFor(x))}
}

// Int returns a constant of minimal width for n.
func Int(n int64) *Value {
	return Number(big.NewInt(n))
}

func sized(x *big.Int, w int, signed, unknown bool) *Value {
	return &Value{Int: x, Signed: signed, Unknown: unknown, Width: width.Scalar(w)}
}

func boolValue(b bool) *Value {
	if b {
		return sized(big.NewInt(1), 1, false, false)
	}
	return sized(big.NewInt(0), 1, false, false)
}

func mask(w int) *big.Int {
	one := big.NewInt(1)
	return new(big.Int).Sub(new(big.Int).Lsh(one, uint(w)), one)
}

// bits returns how many bits v occupies.
func (v *Value) bits() int {
	n, ok := v.Width.Bits()
	if !ok || n == 0 {
		return 1
	}
	return n
}

// arrayValue builds an array constant. Its width is only known when every
// element has the same shape.
func arrayValue(elems []*Value) *Value {
	v := &Value{Elems: elems}
	shape := elems[0].Width
	for _, e := range elems[1:] {
		if !e.Width.Equal(shape) {
			return v
		}
	}
	v.Width = shape.Prepend(len(elems))
	return v
}
