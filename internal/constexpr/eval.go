package constexpr

import (
	"math/big"

	"github.com/robert-at-pretension-io/lucid-width/internal/ast"
)

// Provider supplies parameter values by name. It returns nil for names it
// does not know.
type Provider interface {
	ValueOf(name string) *Value
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(name string) *Value

func (f ProviderFunc) ValueOf(name string) *Value { return f(name) }

// Values is a fixed set of parameter values.
type Values map[string]*Value

func (v Values) ValueOf(name string) *Value { return v[name] }

type chain []Provider

func (c chain) ValueOf(name string) *Value {
	for _, p := range c {
		if p == nil {
			continue
		}
		if v := p.ValueOf(name); v != nil {
			return v
		}
	}
	return nil
}

// Chain asks each provider in turn and returns the first hit.
func Chain(providers ...Provider) Provider { return chain(providers) }

// Globals supplies constants declared in global namespaces.
type Globals interface {
	Constant(namespace, name string) *Value
}

// Evaluator folds expressions of one module. It memoises results per node
// and is not safe for concurrent use.
type Evaluator struct {
	params  Provider
	globals Globals
	consts  map[string]ast.Expr
	memo    map[ast.Expr]*Value
	active  map[string]bool
}

// NewEvaluator returns an evaluator that resolves bare names against
// local constants first and params second. Either argument may be nil.
func NewEvaluator(params Provider, globals Globals) *Evaluator {
	return &Evaluator{
		params:  params,
		globals: globals,
		consts:  make(map[string]ast.Expr),
		memo:    make(map[ast.Expr]*Value),
		active:  make(map[string]bool),
	}
}

// DefineConst makes a local constant visible to later folds.
func (e *Evaluator) DefineConst(name string, x ast.Expr) {
	e.consts[name] = x
}

// Fold returns the value of x, or nil when x is not constant or cannot be
// evaluated.
func (e *Evaluator) Fold(x ast.Expr) *Value {
	if x == nil {
		return nil
	}
	if v, ok := e.memo[x]; ok {
		return v
	}
	f := folder{e: e}
	x.Accept(&f)
	e.memo[x] = f.v
	return f.v
}

// IsConstant reports whether x only depends on literals, constants and
// parameters. A constant expression may still fail to fold.
func (e *Evaluator) IsConstant(x ast.Expr) bool {
	if x == nil {
		return false
	}
	c := constChecker{e: e, ok: true}
	x.Accept(&c)
	return c.ok
}

func (e *Evaluator) lookup(name string) *Value {
	if x, ok := e.consts[name]; ok {
		if e.active[name] {
			return nil
		}
		e.active[name] = true
		defer delete(e.active, name)
		return e.Fold(x)
	}
	if e.params != nil {
		return e.params.ValueOf(name)
	}
	return nil
}

func (e *Evaluator) knows(ns, name string) bool {
	if ns != "" {
		return e.globals != nil && e.globals.Constant(ns, name) != nil
	}
	if _, ok := e.consts[name]; ok {
		return true
	}
	return e.params != nil && e.params.ValueOf(name) != nil
}

type folder struct {
	e *Evaluator
	v *Value
}

func (f *folder) fold(x ast.Expr) *Value { return f.e.Fold(x) }

func (f *folder) number2(l, r ast.Expr) (*Value, *Value, bool) {
	a, b := f.fold(l), f.fold(r)
	if !a.IsNumber() || !b.IsNumber() {
		return nil, nil, false
	}
	return a, b, true
}

func (f *folder) VisitNumber(x *ast.Number) {
	v, err := ParseLiteral(x.Text)
	if err == nil {
		f.v = v
	}
}

func (f *folder) VisitSignal(x *ast.SignalExpr) {
	s := x.Signal
	names := s.Names()
	if len(names) != 1 {
		return
	}
	var v *Value
	if s.Namespace != "" {
		if f.e.globals != nil {
			v = f.e.globals.Constant(s.Namespace, names[0])
		}
	} else {
		v = f.e.lookup(names[0])
	}
	for _, p := range s.Parts {
		bs, ok := p.(*ast.BitSelection)
		if !ok || v == nil {
			continue
		}
		v = f.selectBits(v, bs)
	}
	f.v = v
}

func (f *folder) selectBits(v *Value, bs *ast.BitSelection) *Value {
	for _, idx := range bs.Indices {
		i, ok := f.fold(idx).IntValue()
		if !ok {
			return nil
		}
		if v.IsArray() {
			if i < 0 || i >= len(v.Elems) {
				return nil
			}
			v = v.Elems[i]
			continue
		}
		if i < 0 || i >= v.bits() {
			return nil
		}
		v = sized(new(big.Int).SetUint64(uint64(v.Int.Bit(i))), 1, false, v.Unknown)
	}
	if bs.Selector == nil {
		return v
	}
	b, ok := f.e.Bounds(bs.Selector)
	if !ok || v.IsArray() || b.Lo < 0 || b.Hi >= v.bits() {
		return nil
	}
	x := new(big.Int).Rsh(v.Int, uint(b.Lo))
	x.And(x, mask(b.Width()))
	return sized(x, b.Width(), false, v.Unknown)
}

func (f *folder) VisitGroup(x *ast.Group) { f.v = f.fold(x.X) }

func (f *folder) VisitNegate(x *ast.Negate) {
	v := f.fold(x.X)
	if !v.IsNumber() {
		return
	}
	r := Number(new(big.Int).Neg(v.Int))
	r.Signed = true
	f.v = r
}

func (f *folder) VisitInvert(x *ast.Invert) {
	v := f.fold(x.X)
	if !v.IsNumber() {
		return
	}
	if x.Op == "!" {
		f.v = boolValue(v.Int.Sign() == 0)
		return
	}
	w := v.bits()
	n := new(big.Int).Not(v.Int)
	n.And(n, mask(w))
	f.v = sized(n, w, v.Signed, false)
}

func (f *folder) VisitConcat(x *ast.Concat) {
	out := new(big.Int)
	total := 0
	unknown := false
	for _, el := range x.Elems {
		v := f.fold(el)
		if v == nil || v.IsArray() {
			return
		}
		w := v.bits()
		out.Lsh(out, uint(w))
		out.Or(out, new(big.Int).And(v.Int, mask(w)))
		total += w
		unknown = unknown || v.Unknown
	}
	f.v = sized(out, total, false, unknown)
}

func (f *folder) VisitDup(x *ast.Dup) {
	n, ok := f.fold(x.Count).IntValue()
	v := f.fold(x.Value)
	if !ok || n <= 0 || v == nil || v.IsArray() {
		return
	}
	w := v.bits()
	part := new(big.Int).And(v.Int, mask(w))
	out := new(big.Int)
	for i := 0; i < n; i++ {
		out.Lsh(out, uint(w))
		out.Or(out, part)
	}
	f.v = sized(out, n*w, false, v.Unknown)
}

func (f *folder) VisitArrayLit(x *ast.ArrayLit) {
	elems := make([]*Value, 0, len(x.Elems))
	for _, el := range x.Elems {
		v := f.fold(el)
		if v == nil {
			return
		}
		elems = append(elems, v)
	}
	f.v = arrayValue(elems)
}

func (f *folder) arith(a, b *Value, r *big.Int) {
	v := Number(r)
	v.Signed = a.Signed || b.Signed || r.Sign() < 0
	f.v = v
}

func (f *folder) VisitMulDiv(x *ast.MulDiv) {
	a, b, ok := f.number2(x.L, x.R)
	if !ok {
		return
	}
	if x.Op == "*" {
		f.arith(a, b, new(big.Int).Mul(a.Int, b.Int))
		return
	}
	if b.Int.Sign() == 0 {
		return
	}
	f.arith(a, b, new(big.Int).Quo(a.Int, b.Int))
}

func (f *folder) VisitAddSub(x *ast.AddSub) {
	a, b, ok := f.number2(x.L, x.R)
	if !ok {
		return
	}
	if x.Op == "+" {
		f.arith(a, b, new(big.Int).Add(a.Int, b.Int))
	} else {
		f.arith(a, b, new(big.Int).Sub(a.Int, b.Int))
	}
}

func (f *folder) VisitShift(x *ast.Shift) {
	a, b, ok := f.number2(x.L, x.R)
	if !ok || b.Int.Sign() < 0 || !b.Int.IsInt64() {
		return
	}
	n := uint(b.Int.Int64())
	switch x.Op {
	case "<<", "<<<":
		f.arith(a, b, new(big.Int).Lsh(a.Int, n))
	default:
		f.arith(a, b, new(big.Int).Rsh(a.Int, n))
	}
}

func (f *folder) VisitBitwise(x *ast.Bitwise) {
	a, b, ok := f.number2(x.L, x.R)
	if !ok {
		return
	}
	r := new(big.Int)
	switch x.Op {
	case "&":
		r.And(a.Int, b.Int)
	case "|":
		r.Or(a.Int, b.Int)
	default:
		r.Xor(a.Int, b.Int)
	}
	f.v = sized(r, max(a.bits(), b.bits()), a.Signed && b.Signed, false)
}

func (f *folder) VisitCompare(x *ast.Compare) {
	a, b, ok := f.number2(x.L, x.R)
	if !ok {
		return
	}
	c := a.Int.Cmp(b.Int)
	switch x.Op {
	case "<":
		f.v = boolValue(c < 0)
	case ">":
		f.v = boolValue(c > 0)
	case "<=":
		f.v = boolValue(c <= 0)
	case ">=":
		f.v = boolValue(c >= 0)
	case "==":
		f.v = boolValue(c == 0)
	case "!=":
		f.v = boolValue(c != 0)
	}
}

func (f *folder) VisitLogical(x *ast.Logical) {
	a, b, ok := f.number2(x.L, x.R)
	if !ok {
		return
	}
	if x.Op == "&&" {
		f.v = boolValue(a.Int.Sign() != 0 && b.Int.Sign() != 0)
	} else {
		f.v = boolValue(a.Int.Sign() != 0 || b.Int.Sign() != 0)
	}
}

func (f *folder) VisitReduce(x *ast.Reduce) {
	v := f.fold(x.X)
	if !v.IsNumber() {
		return
	}
	w := v.bits()
	u := new(big.Int).And(v.Int, mask(w))
	switch x.Op {
	case "|":
		f.v = boolValue(u.Sign() != 0)
	case "&":
		f.v = boolValue(u.Cmp(mask(w)) == 0)
	default:
		ones := 0
		for i := 0; i < w; i++ {
			ones += int(u.Bit(i))
		}
		f.v = boolValue(ones%2 == 1)
	}
}

func (f *folder) VisitTernary(x *ast.Ternary) {
	c := f.fold(x.Cond)
	if !c.IsNumber() {
		return
	}
	if c.Int.Sign() != 0 {
		f.v = f.fold(x.Then)
	} else {
		f.v = f.fold(x.Else)
	}
}

func (f *folder) VisitCall(x *ast.Call) {
	args := make([]*Value, len(x.Args))
	for i, a := range x.Args {
		args[i] = f.fold(a)
		if args[i] == nil {
			return
		}
	}
	f.v = callBuiltin(x.Func, args)
}

// Builtins lists the functions Fold understands.
var Builtins = map[string]int{
	"$clog2":    1,
	"$pow":      2,
	"$cdiv":     2,
	"$flatten":  1,
	"$reverse":  1,
	"$unsigned": 1,
	"$signed":   1,
}

func callBuiltin(name string, args []*Value) *Value {
	if n, ok := Builtins[name]; !ok || n != len(args) {
		return nil
	}
	a := args[0]
	switch name {
	case "$clog2":
		if !a.IsNumber() || a.Int.Sign() <= 0 {
			return nil
		}
		m := new(big.Int).Sub(a.Int, big.NewInt(1))
		return Int(int64(m.BitLen()))
	case "$pow":
		b := args[1]
		if !a.IsNumber() || !b.IsNumber() || b.Int.Sign() < 0 {
			return nil
		}
		return Number(new(big.Int).Exp(a.Int, b.Int, nil))
	case "$cdiv":
		b := args[1]
		if !a.IsNumber() || !b.IsNumber() || b.Int.Sign() == 0 {
			return nil
		}
		q, r := new(big.Int).QuoRem(a.Int, b.Int, new(big.Int))
		if r.Sign() != 0 && (r.Sign() > 0) == (b.Int.Sign() > 0) {
			q.Add(q, big.NewInt(1))
		}
		return Number(q)
	case "$flatten":
		bits, ok := flattenBits(a)
		if !ok {
			return nil
		}
		return sized(bits, a.bitsTotal(), false, a.anyUnknown())
	case "$reverse":
		if a.IsArray() {
			rev := make([]*Value, len(a.Elems))
			for i, e := range a.Elems {
				rev[len(rev)-1-i] = e
			}
			v := arrayValue(rev)
			return v
		}
		w := a.bits()
		r := new(big.Int)
		for i := 0; i < w; i++ {
			r.SetBit(r, w-1-i, a.Int.Bit(i))
		}
		return sized(r, w, a.Signed, a.Unknown)
	case "$unsigned", "$signed":
		c := *a
		c.Signed = name == "$signed"
		return &c
	}
	return nil
}

func (v *Value) bitsTotal() int {
	if !v.IsArray() {
		return v.bits()
	}
	n := 0
	for _, e := range v.Elems {
		n += e.bitsTotal()
	}
	return n
}

func (v *Value) anyUnknown() bool {
	if !v.IsArray() {
		return v.Unknown
	}
	for _, e := range v.Elems {
		if e.anyUnknown() {
			return true
		}
	}
	return false
}

// flattenBits packs an array with its last element in the low bits.
func flattenBits(v *Value) (*big.Int, bool) {
	if !v.IsArray() {
		return new(big.Int).And(v.Int, mask(v.bits())), true
	}
	out := new(big.Int)
	for _, e := range v.Elems {
		b, ok := flattenBits(e)
		if !ok {
			return nil, false
		}
		out.Lsh(out, uint(e.bitsTotal()))
		out.Or(out, b)
	}
	return out, true
}

type constChecker struct {
	e  *Evaluator
	ok bool
}

func (c *constChecker) all(xs ...ast.Expr) {
	for _, x := range xs {
		if !c.ok {
			return
		}
		if x == nil {
			c.ok = false
			return
		}
		x.Accept(c)
	}
}

func (c *constChecker) VisitNumber(*ast.Number) {}

func (c *constChecker) VisitSignal(x *ast.SignalExpr) {
	names := x.Signal.Names()
	if len(names) != 1 || !c.e.knows(x.Signal.Namespace, names[0]) {
		c.ok = false
		return
	}
	for _, p := range x.Signal.Parts {
		bs, ok := p.(*ast.BitSelection)
		if !ok {
			continue
		}
		c.all(bs.Indices...)
		switch sel := bs.Selector.(type) {
		case *ast.ConstSelector:
			c.all(sel.Hi, sel.Lo)
		case *ast.FixedSelector:
			c.all(sel.Start, sel.Width)
		}
	}
}

func (c *constChecker) VisitGroup(x *ast.Group)       { c.all(x.X) }
func (c *constChecker) VisitNegate(x *ast.Negate)     { c.all(x.X) }
func (c *constChecker) VisitInvert(x *ast.Invert)     { c.all(x.X) }
func (c *constChecker) VisitConcat(x *ast.Concat)     { c.all(x.Elems...) }
func (c *constChecker) VisitDup(x *ast.Dup)           { c.all(x.Count, x.Value) }
func (c *constChecker) VisitArrayLit(x *ast.ArrayLit) { c.all(x.Elems...) }
func (c *constChecker) VisitMulDiv(x *ast.MulDiv)     { c.all(x.L, x.R) }
func (c *constChecker) VisitAddSub(x *ast.AddSub)     { c.all(x.L, x.R) }
func (c *constChecker) VisitShift(x *ast.Shift)       { c.all(x.L, x.R) }
func (c *constChecker) VisitBitwise(x *ast.Bitwise)   { c.all(x.L, x.R) }
func (c *constChecker) VisitCompare(x *ast.Compare)   { c.all(x.L, x.R) }
func (c *constChecker) VisitLogical(x *ast.Logical)   { c.all(x.L, x.R) }
func (c *constChecker) VisitReduce(x *ast.Reduce)     { c.all(x.X) }
func (c *constChecker) VisitTernary(x *ast.Ternary)   { c.all(x.Cond, x.Then, x.Else) }

func (c *constChecker) VisitCall(x *ast.Call) {
	if _, ok := Builtins[x.Func]; !ok {
		c.ok = false
		return
	}
	c.all(x.Args...)
}
