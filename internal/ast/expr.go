package ast

// Expr is an expression. The set of expression kinds is closed: every kind
// has a method on ExprVisitor, so a new kind cannot be added without every
// visitor handling it.
type Expr interface {
	Node
	Accept(v ExprVisitor)
}

// ExprVisitor has one method per expression kind.
type ExprVisitor interface {
	VisitNumber(*Number)
	VisitSignal(*SignalExpr)
	VisitGroup(*Group)
	VisitNegate(*Negate)
	VisitInvert(*Invert)
	VisitConcat(*Concat)
	VisitDup(*Dup)
	VisitArrayLit(*ArrayLit)
	VisitMulDiv(*MulDiv)
	VisitAddSub(*AddSub)
	VisitShift(*Shift)
	VisitBitwise(*Bitwise)
	VisitCompare(*Compare)
	VisitLogical(*Logical)
	VisitReduce(*Reduce)
	VisitTernary(*Ternary)
	VisitCall(*Call)
}

// Number is a literal such as 12, 8hFF, b10x1 or "abc".
type Number struct {
	Pos
	Text string
}

// SignalExpr reads a signal.
type SignalExpr struct {
	Pos
	Signal *Signal
}

// Group is a parenthesised expression.
type Group struct {
	Pos
	X Expr
}

// Negate is unary minus.
type Negate struct {
	Pos
	X Expr
}

// Invert is bitwise "~" or logical "!".
type Invert struct {
	Pos
	Op string
	X  Expr
}

// Concat is c{a, b, ...}.
type Concat struct {
	Pos
	Elems []Expr
}

// Dup is Count x{Value}.
type Dup struct {
	Pos
	Count Expr
	Value Expr
}

// ArrayLit is {a, b, ...}.
type ArrayLit struct {
	Pos
	Elems []Expr
}

// MulDiv is "*" or "/".
type MulDiv struct {
	Pos
	Op   string
	L, R Expr
}

// AddSub is "+" or "-".
type AddSub struct {
	Pos
	Op   string
	L, R Expr
}

// Shift is one of ">>", "<<", ">>>", "<<<".
type Shift struct {
	Pos
	Op   string
	L, R Expr
}

// Bitwise is "&", "|" or "^".
type Bitwise struct {
	Pos
	Op   string
	L, R Expr
}

// Compare is one of "<", ">", "<=", ">=", "==", "!=".
type Compare struct {
	Pos
	Op   string
	L, R Expr
}

// Logical is "&&" or "||".
type Logical struct {
	Pos
	Op   string
	L, R Expr
}

// Reduce is a unary reduction: "|", "&", "^".
type Reduce struct {
	Pos
	Op string
	X  Expr
}

// Ternary is Cond ? Then : Else.
type Ternary struct {
	Pos
	Cond, Then, Else Expr
}

// Call is a builtin function call such as $clog2(x).
type Call struct {
	Pos
	Func string
	Args []Expr
}

func (x *Number) Accept(v ExprVisitor)     { v.VisitNumber(x) }
func (x *SignalExpr) Accept(v ExprVisitor) { v.VisitSignal(x) }
func (x *Group) Accept(v ExprVisitor)      { v.VisitGroup(x) }
func (x *Negate) Accept(v ExprVisitor)     { v.VisitNegate(x) }
func (x *Invert) Accept(v ExprVisitor)     { v.VisitInvert(x) }
func (x *Concat) Accept(v ExprVisitor)     { v.VisitConcat(x) }
func (x *Dup) Accept(v ExprVisitor)        { v.VisitDup(x) }
func (x *ArrayLit) Accept(v ExprVisitor)   { v.VisitArrayLit(x) }
func (x *MulDiv) Accept(v ExprVisitor)     { v.VisitMulDiv(x) }
func (x *AddSub) Accept(v ExprVisitor)     { v.VisitAddSub(x) }
func (x *Shift) Accept(v ExprVisitor)      { v.VisitShift(x) }
func (x *Bitwise) Accept(v ExprVisitor)    { v.VisitBitwise(x) }
func (x *Compare) Accept(v ExprVisitor)    { v.VisitCompare(x) }
func (x *Logical) Accept(v ExprVisitor)    { v.VisitLogical(x) }
func (x *Reduce) Accept(v ExprVisitor)     { v.VisitReduce(x) }
func (x *Ternary) Accept(v ExprVisitor)    { v.VisitTernary(x) }
func (x *Call) Accept(v ExprVisitor)       { v.VisitCall(x) }

// Ref builds a signal read from dotted names. It is a convenience for code
// that synthesises trees.
func Ref(names ...string) *SignalExpr {
	s := &Signal{}
	for _, n := range names {
		s.Parts = append(s.Parts, &Name{Text: n})
	}
	return &SignalExpr{Signal: s}
}

// Num builds a literal.
func Num(text string) *Number { return &Number{Text: text} }
