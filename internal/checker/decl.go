package checker

import (
	"github.com/robert-at-pretension-io/lucid-width/internal/ast"
	"github.com/robert-at-pretension-io/lucid-width/internal/diag"
	"github.com/robert-at-pretension-io/lucid-width/internal/width"
)

const maxArraySize = 1<<31 - 1

var oneBit = width.Scalar(1)

func (c *checker) port(p *ast.Port) {
	w := c.declWidth(p.Sizes, p.Struct)
	c.decorate(p, w)
	if p.Dir == ast.Inout {
		c.widths.Put(p.Name+".enable", w)
		c.widths.Put(p.Name+".read", w)
		c.widths.Put(p.Name+".write", w)
		return
	}
	c.widths.Put(p.Name, w)
}

func (c *checker) dff(d *ast.DffDecl) {
	for _, r := range d.Names {
		for _, con := range r.Connections {
			c.infer(con.Value)
		}
		w := c.declWidth(r.Sizes, d.Struct)
		c.widths.Put(r.Name+".d", w)
		c.widths.Put(r.Name+".q", w)
		c.decorate(r, w)
		c.clockReset(r.Name, r.Connections, r)
	}
}

// fsm installs the state register and one entry per state. The encoding
// uses the fewest bits that can count up to the last state index.
func (c *checker) fsm(f *ast.FsmDecl) {
	for _, con := range f.Connections {
		c.infer(con.Value)
	}
	var dims []int
	for _, size := range f.Sizes {
		c.infer(size)
		if n, ok := c.arraySize(size); ok {
			dims = append(dims, n)
		}
	}
	bits := width.MinBits(len(f.States) - 1)
	w := width.Dims(append(dims, bits)...)
	c.widths.Put(f.Name+".d", w)
	c.widths.Put(f.Name+".q", w)
	c.decorate(f, w)
	for _, s := range f.States {
		c.widths.Put(f.Name+"."+s.Text, width.Scalar(bits))
		c.decorate(s, width.Scalar(bits))
	}
	c.clockReset(f.Name, f.Connections, f)
}

// clockReset checks that clock and reset connections are single bits.
// Connections inherited from enclosing blocks are reported at site.
func (c *checker) clockReset(name string, own []*ast.Connection, site ast.Node) {
	check := func(con *ast.Connection, at ast.Node) {
		if con.Param || (con.Port != "clk" && con.Port != "rst") {
			return
		}
		w, ok := c.widthOf(con.Value)
		if !ok || w.Equal(oneBit) {
			return
		}
		c.sink.Error(at, diag.PortDimMismatch, w, ast.Format(con.Value), oneBit, name+"."+con.Port)
	}
	for _, con := range own {
		check(con, con.Value)
	}
	for _, con := range c.blockConnections() {
		check(con, site)
	}
}

// declWidth builds the width of a declaration from its array sizes and
// optional struct type. Sizes that fail to resolve are reported and left
// out.
func (c *checker) declWidth(sizes []ast.Expr, ref *ast.StructRef) width.Descriptor {
	var dims []int
	for _, size := range sizes {
		c.infer(size)
		if n, ok := c.arraySize(size); ok {
			dims = append(dims, n)
		}
	}
	if ref != nil {
		if s, ok := c.structOf(ref); ok {
			if len(dims) == 0 {
				return width.OfStruct(s)
			}
			return width.Chain(width.Dims(dims...), width.OfStruct(s))
		}
	}
	if len(dims) == 0 {
		return oneBit
	}
	return width.Dims(dims...)
}

func (c *checker) arraySize(size ast.Expr) (int, bool) {
	v := c.res.Fold(size)
	text := ast.Format(size)
	switch {
	case v == nil:
		if !c.res.IsConstant(size) {
			c.sink.Error(size, diag.ExprNotConstant, text)
		} else {
			c.sink.Internal(size, diag.ConstUnresolved, text)
		}
	case v.IsArray():
		c.sink.Error(size, diag.ArraySizeMultiDim, text)
	case !v.IsNumber():
		c.sink.Error(size, diag.ArraySizeNaN, text)
	case v.Int.Sign() < 0:
		c.sink.Error(size, diag.ArraySizeNeg, text)
	default:
		n, ok := v.IntValue()
		if ok && n <= maxArraySize {
			return n, true
		}
		c.sink.Warning(size, diag.ArraySizeTooBig, text)
	}
	return 0, false
}

func (c *checker) structOf(ref *ast.StructRef) (*width.Struct, bool) {
	if ref.Namespace != "" {
		if !c.env.Decls.HasNamespace(ref.Namespace) {
			c.sink.Error(ref, diag.UnknownNamespace, ref.Namespace)
			return nil, false
		}
		s, ok := c.env.Decls.GlobalStruct(ref.Namespace, ref.Name)
		if !ok {
			c.sink.Error(ref, diag.UnknownStruct, ref.Namespace+"."+ref.Name)
		}
		return s, ok
	}
	if c.decl == nil {
		return nil, false
	}
	s, ok := c.decl.Struct(ref.Name)
	if !ok {
		c.sink.Error(ref, diag.UnknownStruct, ref.Name)
	}
	return s, ok
}
