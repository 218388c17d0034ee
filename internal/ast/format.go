package ast

import (
	"strings"
)

// Format renders an expression as Lucid source.
func Format(x Expr) string {
	var p printer
	if x != nil {
		x.Accept(&p)
	}
	return p.sb.String()
}

// FormatSignal renders a signal reference as Lucid source.
func FormatSignal(s *Signal) string {
	var p printer
	p.signal(s)
	return p.sb.String()
}

type printer struct {
	sb strings.Builder
}

func (p *printer) expr(x Expr) {
	if x == nil {
		p.sb.WriteString("?")
		return
	}
	x.Accept(p)
}

func (p *printer) list(xs []Expr) {
	for i, x := range xs {
		if i > 0 {
			p.sb.WriteString(", ")
		}
		p.expr(x)
	}
}

func (p *printer) binary(l Expr, op string, r Expr) {
	p.expr(l)
	p.sb.WriteString(" " + op + " ")
	p.expr(r)
}

func (p *printer) signal(s *Signal) {
	if s == nil {
		return
	}
	if s.Namespace != "" {
		p.sb.WriteString(s.Namespace)
	}
	for i, part := range s.Parts {
		switch part := part.(type) {
		case *Name:
			if i > 0 || s.Namespace != "" {
				p.sb.WriteByte('.')
			}
			p.sb.WriteString(part.Text)
		case *BitSelection:
			for _, idx := range part.Indices {
				p.sb.WriteByte('[')
				p.expr(idx)
				p.sb.WriteByte(']')
			}
			switch sel := part.Selector.(type) {
			case *ConstSelector:
				p.sb.WriteByte('[')
				p.expr(sel.Hi)
				p.sb.WriteByte(':')
				p.expr(sel.Lo)
				p.sb.WriteByte(']')
			case *FixedSelector:
				p.sb.WriteByte('[')
				p.expr(sel.Start)
				if sel.Down {
					p.sb.WriteString("-:")
				} else {
					p.sb.WriteString("+:")
				}
				p.expr(sel.Width)
				p.sb.WriteByte(']')
			}
		}
	}
}

func (p *printer) VisitNumber(x *Number)     { p.sb.WriteString(x.Text) }
func (p *printer) VisitSignal(x *SignalExpr) { p.signal(x.Signal) }

func (p *printer) VisitGroup(x *Group) {
	p.sb.WriteByte('(')
	p.expr(x.X)
	p.sb.WriteByte(')')
}

func (p *printer) VisitNegate(x *Negate) {
	p.sb.WriteByte('-')
	p.expr(x.X)
}

func (p *printer) VisitInvert(x *Invert) {
	p.sb.WriteString(x.Op)
	p.expr(x.X)
}

func (p *printer) VisitConcat(x *Concat) {
	p.sb.WriteString("c{")
	p.list(x.Elems)
	p.sb.WriteByte('}')
}

func (p *printer) VisitDup(x *Dup) {
	p.expr(x.Count)
	p.sb.WriteString("x{")
	p.expr(x.Value)
	p.sb.WriteByte('}')
}

func (p *printer) VisitArrayLit(x *ArrayLit) {
	p.sb.WriteByte('{')
	p.list(x.Elems)
	p.sb.WriteByte('}')
}

func (p *printer) VisitMulDiv(x *MulDiv)   { p.binary(x.L, x.Op, x.R) }
func (p *printer) VisitAddSub(x *AddSub)   { p.binary(x.L, x.Op, x.R) }
func (p *printer) VisitShift(x *Shift)     { p.binary(x.L, x.Op, x.R) }
func (p *printer) VisitBitwise(x *Bitwise) { p.binary(x.L, x.Op, x.R) }
func (p *printer) VisitCompare(x *Compare) { p.binary(x.L, x.Op, x.R) }
func (p *printer) VisitLogical(x *Logical) { p.binary(x.L, x.Op, x.R) }

func (p *printer) VisitReduce(x *Reduce) {
	p.sb.WriteString(x.Op)
	p.expr(x.X)
}

func (p *printer) VisitTernary(x *Ternary) {
	p.expr(x.Cond)
	p.sb.WriteString(" ? ")
	p.expr(x.Then)
	p.sb.WriteString(" : ")
	p.expr(x.Else)
}

func (p *printer) VisitCall(x *Call) {
	p.sb.WriteString(x.Func)
	p.sb.WriteByte('(')
	p.list(x.Args)
	p.sb.WriteByte(')')
}
