package checker

import (
	"github.com/robert-at-pretension-io/lucid-width/internal/ast"
	"github.com/robert-at-pretension-io/lucid-width/internal/constexpr"
	"github.com/robert-at-pretension-io/lucid-width/internal/diag"
	"github.com/robert-at-pretension-io/lucid-width/internal/width"
)

// exprRules holds one width rule per expression kind. Operands are always
// inferred before the rule for their parent runs.
type exprRules struct {
	c *checker
}

var _ ast.ExprVisitor = (*exprRules)(nil)

// constant decorates x with the width of its folded value.
func (r *exprRules) constant(x ast.Expr) bool {
	v := r.c.res.Fold(x)
	if v == nil || v.Width.IsZero() {
		return false
	}
	r.c.decorate(x, v.Width)
	return true
}

// operands infers each expression and reports whether all of them got a
// width.
func (r *exprRules) operands(xs ...ast.Expr) ([]width.Descriptor, bool) {
	ws := make([]width.Descriptor, len(xs))
	ok := true
	for i, x := range xs {
		w, found := r.c.infer(x)
		ws[i] = w
		ok = ok && found
	}
	return ws, ok
}

// single reports whether w is a one-dimensional array of bits.
func single(w width.Descriptor) bool {
	return w.IsSimpleArray() && len(w.Dims()) == 1
}

func (r *exprRules) VisitNumber(x *ast.Number) {
	if !r.constant(x) {
		r.c.sink.Internal(x, diag.ConstUnresolved, x.Text)
	}
}

func (r *exprRules) VisitSignal(x *ast.SignalExpr) {
	w, ok := r.c.signalWidth(x.Signal)
	if !ok {
		return
	}
	r.c.decorate(x.Signal, w)
	r.c.decorate(x, w)
}

func (r *exprRules) VisitGroup(x *ast.Group) {
	if w, ok := r.c.infer(x.X); ok {
		r.c.decorate(x, w)
	}
}

func (r *exprRules) VisitNegate(x *ast.Negate) {
	w, ok := r.c.infer(x.X)
	if r.constant(x) || !ok {
		return
	}
	r.c.decorate(x, w)
}

func (r *exprRules) VisitInvert(x *ast.Invert) {
	w, ok := r.c.infer(x.X)
	if r.constant(x) {
		return
	}
	if x.Op == "!" {
		r.c.decorate(x, width.Scalar(1))
		return
	}
	if ok {
		r.c.decorate(x, w)
	}
}

func (r *exprRules) VisitConcat(x *ast.Concat) {
	ws, ok := r.operands(x.Elems...)
	if r.constant(x) || !ok || len(ws) == 0 {
		return
	}
	bad := false
	for i, w := range ws {
		if !w.IsSimpleArray() {
			r.c.sink.Error(x.Elems[i], diag.ConcatStruct, ast.Format(x.Elems[i]), w)
			bad = true
		}
	}
	if bad {
		return
	}
	first := ws[0].Dims()
	sum := 0
	for i, w := range ws {
		dims := w.Dims()
		if !sameInner(first, dims) {
			r.c.sink.Error(x.Elems[i], diag.ConcatDimMismatch, ast.Format(x.Elems[i]), w, ws[0])
			bad = true
			continue
		}
		sum += dims[0]
	}
	if bad {
		return
	}
	r.c.decorate(x, width.Dims(append([]int{sum}, first[1:]...)...))
}

// sameInner compares every extent but the outermost.
func sameInner(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 1; i < len(a); i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (r *exprRules) VisitDup(x *ast.Dup) {
	ws, ok := r.operands(x.Count, x.Value)
	if r.constant(x) {
		return
	}
	n, counted := r.c.count(x.Count)
	if !counted || !ok {
		return
	}
	vw := ws[1]
	if !vw.IsSimpleArray() {
		r.c.sink.Error(x.Value, diag.DupStruct, ast.Format(x.Value), vw)
		return
	}
	dims := vw.Dims()
	dims[0] *= n
	r.c.decorate(x, width.Dims(dims...))
}

// count resolves a duplication count.
func (c *checker) count(x ast.Expr) (int, bool) {
	v := c.res.Fold(x)
	text := ast.Format(x)
	switch {
	case v == nil:
		if !c.res.IsConstant(x) {
			c.sink.Error(x, diag.DupCountNotConstant, text)
		} else {
			c.sink.Internal(x, diag.ConstUnresolved, text)
		}
	case v.IsArray():
		c.sink.Error(x, diag.DupCountMultiDim, text)
	case !v.IsNumber():
		c.sink.Error(x, diag.DupCountNaN, text)
	case v.IsNegative():
		c.sink.Error(x, diag.DupCountNeg, text)
	default:
		n, ok := v.IntValue()
		if ok && n <= maxArraySize {
			return n, true
		}
		c.sink.Warning(x, diag.ArraySizeTooBig, text)
	}
	return 0, false
}

func (r *exprRules) VisitArrayLit(x *ast.ArrayLit) {
	ws, ok := r.operands(x.Elems...)
	if r.constant(x) || !ok || len(ws) == 0 {
		return
	}
	first := ws[0]
	bad := false
	for i := 1; i < len(ws); i++ {
		if !ws[i].Equal(first) {
			r.c.sink.Error(x.Elems[i], diag.ArrayLitDimMismatch, ast.Format(x.Elems[i]), ws[i], first)
			bad = true
		}
	}
	if bad {
		return
	}
	r.c.decorate(x, first.Prepend(len(ws)))
}

func (r *exprRules) VisitMulDiv(x *ast.MulDiv) {
	ws, ok := r.operands(x.L, x.R)
	if r.constant(x) || !ok {
		return
	}
	multi := diag.MulMultiDim
	if x.Op == "/" {
		multi = diag.DivMultiDim
	}
	bad := false
	for i, op := range []ast.Expr{x.L, x.R} {
		switch {
		case !ws[i].IsSimpleArray():
			r.c.sink.Error(op, diag.MulDivStruct, ast.Format(op), x.Op)
			bad = true
		case !single(ws[i]):
			r.c.sink.Error(op, multi, ast.Format(op))
			bad = true
		}
	}
	if bad {
		return
	}
	if x.Op == "/" {
		r.c.decorate(x, width.Scalar(ws[0].Outer()))
		return
	}
	r.c.decorate(x, width.Scalar(width.MulBits(ws[0].Outer(), ws[1].Outer())))
}

func (r *exprRules) VisitAddSub(x *ast.AddSub) {
	ws, ok := r.operands(x.L, x.R)
	if r.constant(x) || !ok {
		return
	}
	multi := diag.AddMultiDim
	if x.Op == "-" {
		multi = diag.SubMultiDim
	}
	bad := false
	for i, op := range []ast.Expr{x.L, x.R} {
		switch {
		case !ws[i].IsSimpleArray():
			r.c.sink.Error(op, diag.AddSubNotArray, ast.Format(op), x.Op)
			bad = true
		case !single(ws[i]):
			r.c.sink.Error(op, multi, ast.Format(op))
			bad = true
		}
	}
	if bad {
		return
	}
	r.c.decorate(x, width.Scalar(max(ws[0].Outer(), ws[1].Outer())+1))
}

func (r *exprRules) VisitShift(x *ast.Shift) {
	lw, ok := r.c.infer(x.L)
	r.c.infer(x.R)
	if r.constant(x) || !ok {
		return
	}
	switch {
	case !lw.IsSimpleArray():
		r.c.sink.Error(x.L, diag.ShiftNotArray, ast.Format(x.L))
		return
	case !single(lw):
		r.c.sink.Error(x.L, diag.ShiftMultiDim, ast.Format(x.L))
		return
	}
	n, folded := r.c.res.Fold(x.R).IntValue()
	if !folded || n < 0 || x.Op == ">>" || x.Op == ">>>" {
		r.c.decorate(x, lw)
		return
	}
	if n > maxArraySize-lw.Outer() {
		r.c.sink.Warning(x, diag.ArraySizeTooBig, ast.Format(x))
		return
	}
	r.c.decorate(x, width.Scalar(lw.Outer()+n))
}

var bitwiseMismatch = map[string]diag.Code{
	"&": diag.AndDimMismatch,
	"|": diag.OrDimMismatch,
	"^": diag.XorDimMismatch,
}

func (r *exprRules) VisitBitwise(x *ast.Bitwise) {
	ws, ok := r.operands(x.L, x.R)
	if r.constant(x) || !ok {
		return
	}
	lw, rw := ws[0], ws[1]
	switch {
	case single(lw) && single(rw):
		r.c.decorate(x, width.Scalar(max(lw.Outer(), rw.Outer())))
	case lw.Equal(rw):
		r.c.decorate(x, lw)
	default:
		r.c.sink.Error(x, bitwiseMismatch[x.Op], x.Op, lw, rw)
	}
}

var orderingNotArray = map[string]diag.Code{
	"<":  diag.LtNotArray,
	">":  diag.GtNotArray,
	"<=": diag.LteNotArray,
	">=": diag.GteNotArray,
}

func (r *exprRules) VisitCompare(x *ast.Compare) {
	lw, lok := r.c.infer(x.L)
	rw, rok := r.c.infer(x.R)
	r.c.decorate(x, width.Scalar(1))
	switch x.Op {
	case "==", "!=":
		if !lok || !rok || (single(lw) && single(rw)) || lw.Equal(rw) {
			return
		}
		code := diag.EqDimMismatch
		if x.Op == "!=" {
			code = diag.NeqDimMismatch
		}
		r.c.sink.Error(x, code, x.Op, lw, rw)
	default:
		code := orderingNotArray[x.Op]
		if lok && !single(lw) {
			r.c.sink.Error(x.L, code, ast.Format(x.L), x.Op)
		}
		if rok && !single(rw) {
			r.c.sink.Error(x.R, code, ast.Format(x.R), x.Op)
		}
	}
}

func (r *exprRules) VisitLogical(x *ast.Logical) {
	r.operands(x.L, x.R)
	r.c.decorate(x, width.Scalar(1))
}

func (r *exprRules) VisitReduce(x *ast.Reduce) {
	r.c.infer(x.X)
	r.c.decorate(x, width.Scalar(1))
}

func (r *exprRules) VisitTernary(x *ast.Ternary) {
	r.c.infer(x.Cond)
	ws, ok := r.operands(x.Then, x.Else)
	if r.constant(x) || !ok {
		return
	}
	tw, ew := ws[0], ws[1]
	switch {
	case single(tw) && single(ew):
		if ew.Outer() > tw.Outer() {
			r.c.decorate(x, ew)
		} else {
			r.c.decorate(x, tw)
		}
	case tw.Equal(ew):
		r.c.decorate(x, tw)
	default:
		r.c.sink.Error(x, diag.TernDimMismatch, ast.Format(x), tw, ew)
	}
}

func (r *exprRules) VisitCall(x *ast.Call) {
	ws, ok := r.operands(x.Args...)
	if arity, known := constexpr.Builtins[x.Func]; !known || arity != len(x.Args) {
		r.c.sink.Internal(x, diag.UnknownFunction, x.Func)
		return
	}
	switch x.Func {
	case "$clog2", "$pow", "$cdiv":
		if r.constant(x) {
			return
		}
		if !r.c.res.IsConstant(x) {
			r.c.sink.Error(x, diag.ExprNotConstant, ast.Format(x))
		} else {
			r.c.sink.Internal(x, diag.ConstUnresolved, ast.Format(x))
		}
	case "$flatten":
		if r.constant(x) || !ok {
			return
		}
		r.c.decorate(x, ws[0].Flatten())
	default:
		if ok {
			r.c.decorate(x, ws[0])
		}
	}
}
