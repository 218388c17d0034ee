package checker

import (
	"strings"

	"github.com/robert-at-pretension-io/lucid-width/internal/ast"
	"github.com/robert-at-pretension-io/lucid-width/internal/decls"
	"github.com/robert-at-pretension-io/lucid-width/internal/diag"
	"github.com/robert-at-pretension-io/lucid-width/internal/width"
)

// signalWidth resolves a signal reference and narrows the stored width by
// the indices, selectors and member names that follow the matched name.
// Stored widths are never modified.
func (c *checker) signalWidth(s *ast.Signal) (width.Descriptor, bool) {
	c.selectors(s)
	if s.Namespace != "" {
		return c.globalConstant(s)
	}

	names := s.Names()
	isWidth := len(names) > 1 && names[len(names)-1] == "WIDTH"
	if isWidth {
		names = names[:len(names)-1]
	}
	matched, base, ok := c.widths.Prefix(names)
	if !ok {
		return width.Descriptor{}, false
	}

	at := namePart(s, matched)
	for _, p := range s.Parts[:at] {
		if bs, ok := p.(*ast.BitSelection); ok {
			c.sink.Error(bs, diag.BitSelectorInName, ast.FormatSignal(s), strings.Join(names[:matched], "."))
			return width.Descriptor{}, false
		}
	}
	if base.Depth() == 0 {
		return width.Descriptor{}, false
	}
	rest := s.Parts[at+1:]

	if isWidth {
		return c.widthAttr(s, base, rest)
	}
	if c.decl != nil && c.decl.KindOf(names[0]) == decls.KindFsm {
		var sels []*ast.BitSelection
		for _, p := range rest {
			if bs, ok := p.(*ast.BitSelection); ok {
				sels = append(sels, bs)
			}
		}
		switch len(sels) {
		case 0:
			return base, true
		case 1:
			return c.narrowFsm(s, base, sels[0])
		default:
			c.sink.Error(sels[1], diag.ExtraBitSelectors, ast.FormatSignal(s))
			return width.Descriptor{}, false
		}
	}
	return c.narrow(s, base, rest)
}

// namePart returns the index in s.Parts of the n-th name.
func namePart(s *ast.Signal, n int) int {
	seen := 0
	for i, p := range s.Parts {
		if _, ok := p.(*ast.Name); ok {
			seen++
			if seen == n {
				return i
			}
		}
	}
	return len(s.Parts) - 1
}

func (c *checker) globalConstant(s *ast.Signal) (width.Descriptor, bool) {
	names := s.Names()
	if len(names) == 0 {
		return width.Descriptor{}, false
	}
	v := c.env.Decls.Constant(s.Namespace, names[0])
	if v == nil {
		if !c.env.Decls.HasNamespace(s.Namespace) {
			c.sink.Error(s, diag.UnknownNamespace, s.Namespace)
		} else {
			c.sink.Error(s, diag.UnknownConstant, names[0], s.Namespace)
		}
		return width.Descriptor{}, false
	}
	return c.narrow(s, v.Width, s.Parts[namePart(s, 1)+1:])
}

// widthAttr gives the width of the NAME.WIDTH constant: the bits needed
// to hold extent-1 for a one-dimensional array, or one entry per dimension
// sized for the largest extent.
func (c *checker) widthAttr(s *ast.Signal, base width.Descriptor, rest []ast.SignalPart) (width.Descriptor, bool) {
	attr := len(rest) - 1
	for i := len(rest) - 1; i >= 0; i-- {
		if _, ok := rest[i].(*ast.Name); ok {
			attr = i
			break
		}
	}
	w, ok := c.narrow(s, base, rest[:attr])
	if !ok || !w.IsSimpleArray() {
		return width.Descriptor{}, false
	}
	dims := w.Dims()
	var res width.Descriptor
	if len(dims) > 1 {
		largest := 0
		for _, d := range dims {
			largest = max(largest, d)
		}
		res = width.Dims(len(dims), width.MinBits(largest-1))
	} else {
		res = width.Scalar(width.MinBits(dims[0] - 1))
	}
	if after := rest[attr+1:]; len(after) > 0 {
		return c.narrow(s, res, after)
	}
	return res, true
}

// narrow applies accessors left to right. Bounds violations are reported
// and narrowing continues; shape violations stop it.
func (c *checker) narrow(s *ast.Signal, w width.Descriptor, parts []ast.SignalPart) (width.Descriptor, bool) {
	for _, p := range parts {
		switch p := p.(type) {
		case *ast.BitSelection:
			var ok bool
			if w, ok = c.narrowBits(s, w, p); !ok {
				return width.Descriptor{}, false
			}
			if dims := w.Dims(); len(dims) == 1 && dims[0] == 1 && w.HasNext() {
				w = w.Next()
			}
		case *ast.Name:
			if dims := w.Dims(); len(dims) == 1 && dims[0] == 1 && w.HasNext() {
				w = w.Next()
			}
			if !w.IsStruct() {
				c.sink.Error(p, diag.NotAMember, ast.FormatSignal(s), p.Text)
				return width.Descriptor{}, false
			}
			st := w.Struct()
			m, ok := st.Member(p.Text)
			if !ok {
				c.sink.Error(p, diag.UnknownMember, p.Text, st.QualifiedName())
				return width.Descriptor{}, false
			}
			w = m
		}
	}
	return w, true
}

func selectorCount(bs *ast.BitSelection) int {
	n := len(bs.Indices)
	if bs.Selector != nil {
		n++
	}
	return n
}

// narrowBits removes one dimension per index and resizes the next one to
// the selector width.
func (c *checker) narrowBits(s *ast.Signal, w width.Descriptor, bs *ast.BitSelection) (width.Descriptor, bool) {
	name := ast.FormatSignal(s)
	if depth := w.Depth(); selectorCount(bs) > depth {
		var at ast.Node = bs.Selector
		if len(bs.Indices) > depth {
			at = bs.Indices[depth]
		}
		c.sink.Error(at, diag.IndexDimMismatch, name, w)
		return width.Descriptor{}, false
	}
	for _, idx := range bs.Indices {
		if !w.IsArray() {
			c.sink.Error(idx, diag.StructNotArray, name)
			return width.Descriptor{}, false
		}
		c.checkBounds(idx, name, w.Outer())
		w = w.DropOuter()
	}
	if bs.Selector != nil {
		if !w.IsArray() {
			c.sink.Error(bs.Selector, diag.StructNotArray, name)
			return width.Descriptor{}, false
		}
		c.checkBounds(bs.Selector, name, w.Outer())
		w = w.WithOuter(c.selectorWidth(bs.Selector))
	}
	if w.IsZero() {
		w = oneBit
	}
	return w, true
}

// narrowFsm narrows a state register. At least the encoding dimension must
// remain, so a state register can never be sliced into its bits.
func (c *checker) narrowFsm(s *ast.Signal, w width.Descriptor, bs *ast.BitSelection) (width.Descriptor, bool) {
	name := ast.FormatSignal(s)
	if err := w.AssertSimpleArray(); err != nil {
		c.sink.Internal(bs, diag.NotSimpleArray, name, w)
		return width.Descriptor{}, false
	}
	dims := len(w.Dims())
	if selectorCount(bs) >= dims {
		var at ast.Node = bs.Selector
		if len(bs.Indices) >= dims {
			at = bs.Indices[dims-1]
		}
		c.sink.Error(at, diag.IndexDimMismatch, name, w)
		return width.Descriptor{}, false
	}
	for _, idx := range bs.Indices {
		c.checkBounds(idx, name, w.Outer())
		w = w.DropOuter()
	}
	if bs.Selector != nil {
		c.checkBounds(bs.Selector, name, w.Outer())
		w = w.WithOuter(c.selectorWidth(bs.Selector))
	}
	return w, true
}

func (c *checker) checkBounds(n ast.Node, name string, extent int) {
	b, ok := c.res.Bounds(n)
	if !ok || b.FitsIn(extent) {
		return
	}
	c.sink.Error(n, diag.IndexOutOfBounds, selectorText(n), name, extent)
}

func selectorText(n ast.Node) string {
	switch n := n.(type) {
	case ast.Expr:
		return "[" + ast.Format(n) + "]"
	case ast.Selector:
		return ast.FormatSignal(&ast.Signal{Parts: []ast.SignalPart{&ast.BitSelection{Selector: n}}})
	}
	return ""
}

// selectorWidth is the number of bits a selector keeps, or 1 when it could
// not be resolved.
func (c *checker) selectorWidth(sel ast.Selector) int {
	if w, ok := c.widthOf(sel); ok {
		return w.Outer()
	}
	return 1
}

// selectors infers every index and selector of s once and records the
// width of each resolvable selector.
func (c *checker) selectors(s *ast.Signal) {
	for _, p := range s.Parts {
		bs, ok := p.(*ast.BitSelection)
		if !ok {
			continue
		}
		for _, idx := range bs.Indices {
			c.infer(idx)
		}
		switch sel := bs.Selector.(type) {
		case *ast.ConstSelector:
			c.infer(sel.Hi)
			c.infer(sel.Lo)
			c.requireConstant(sel.Hi, sel.Lo)
			if b, ok := c.res.Bounds(sel); ok {
				c.decorate(sel, width.Scalar(b.Width()))
			}
		case *ast.FixedSelector:
			c.infer(sel.Start)
			c.infer(sel.Width)
			c.requireConstant(sel.Width)
			if n, ok := c.res.Fold(sel.Width).IntValue(); ok && n > 0 {
				c.decorate(sel, width.Scalar(n))
			}
		}
	}
}

func (c *checker) requireConstant(xs ...ast.Expr) {
	for _, x := range xs {
		if !c.res.IsConstant(x) {
			c.sink.Error(x, diag.ExprNotConstant, ast.Format(x))
		}
	}
}
