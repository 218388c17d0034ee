package constexpr

import "github.com/robert-at-pretension-io/lucid-width/internal/ast"

// Bounds is the inclusive range of positions an index or selector touches.
type Bounds struct {
	Lo, Hi int
}

// Width is the number of positions covered.
func (b Bounds) Width() int { return b.Hi - b.Lo + 1 }

// FitsIn reports whether every position lies inside an extent.
func (b Bounds) FitsIn(extent int) bool {
	return b.Lo >= 0 && b.Hi < extent
}

// Bounds resolves the range of an index expression or a bit selector. It
// fails when any part of it is not a constant number.
func (e *Evaluator) Bounds(n ast.Node) (Bounds, bool) {
	switch n := n.(type) {
	case *ast.ConstSelector:
		hi, ok1 := e.Fold(n.Hi).IntValue()
		lo, ok2 := e.Fold(n.Lo).IntValue()
		if !ok1 || !ok2 {
			return Bounds{}, false
		}
		if hi < lo {
			hi, lo = lo, hi
		}
		return Bounds{Lo: lo, Hi: hi}, true
	case *ast.FixedSelector:
		start, ok1 := e.Fold(n.Start).IntValue()
		w, ok2 := e.Fold(n.Width).IntValue()
		if !ok1 || !ok2 || w <= 0 {
			return Bounds{}, false
		}
		if n.Down {
			return Bounds{Lo: start - w + 1, Hi: start}, true
		}
		return Bounds{Lo: start, Hi: start + w - 1}, true
	case ast.Expr:
		i, ok := e.Fold(n).IntValue()
		if !ok {
			return Bounds{}, false
		}
		return Bounds{Lo: i, Hi: i}, true
	}
	return Bounds{}, false
}
