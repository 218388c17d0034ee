package width

import "math/bits"

// MinBits returns the number of bits needed to hold the unsigned value n.
// Zero still needs one bit.
func MinBits(n int) int {
	if n <= 0 {
		return 1
	}
	return bits.Len(uint(n))
}

// MulBits returns the width of the largest product of an a-bit and a b-bit
// unsigned value. This is a+b except when either operand is a single bit.
func MulBits(a, b int) int {
	switch {
	case a <= 0 || b <= 0:
		return 1
	case a == 1:
		return b
	case b == 1:
		return a
	}
	return a + b
}
