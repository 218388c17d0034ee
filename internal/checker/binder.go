package checker

import (
	"github.com/robert-at-pretension-io/lucid-width/internal/ast"
	"github.com/robert-at-pretension-io/lucid-width/internal/constexpr"
	"github.com/robert-at-pretension-io/lucid-width/internal/decls"
	"github.com/robert-at-pretension-io/lucid-width/internal/diag"
	"github.com/robert-at-pretension-io/lucid-width/internal/width"
)

// instance binds the ports of an instantiated module. Port widths are
// evaluated with the parameters given at this site and prefixed with the
// instance array dimensions.
func (c *checker) instance(inst *ast.ModuleInst) {
	for _, con := range inst.Connections {
		c.infer(con.Value)
	}
	var arr []int
	for _, size := range inst.Sizes {
		c.infer(size)
		if n, ok := c.arraySize(size); ok {
			arr = append(arr, n)
		}
	}
	multiplicity := oneBit
	if len(arr) > 0 {
		multiplicity = width.Dims(arr...)
	}
	c.widths.PutInstance(inst.Name, multiplicity)
	c.decorate(inst, multiplicity)

	md, ok := c.env.Decls.Module(inst.Module)
	if !ok {
		return
	}
	params := c.instanceParams(inst, md)
	natural := make(map[string]width.Descriptor)
	for _, dir := range []ast.Direction{ast.Input, ast.Output, ast.Inout} {
		for _, p := range md.Ports(dir) {
			pw, ok := c.portWidth(inst, md, p, params)
			if !ok {
				continue
			}
			natural[p.Name] = pw
			c.widths.Put(inst.Name+"."+p.Name, arrayed(arr, pw))
		}
	}
	c.connections(inst, md, arr, natural)
}

// instanceParams gives the parameter values for one instantiation:
// connections on the instance, then those of enclosing blocks from the
// innermost out, then the module defaults.
func (c *checker) instanceParams(inst *ast.ModuleInst, md *decls.ModuleDecl) constexpr.Provider {
	bound := constexpr.Values{}
	cons := append(append([]*ast.Connection(nil), inst.Connections...), c.blockConnections()...)
	for _, con := range cons {
		if !con.Param {
			continue
		}
		if _, done := bound[con.Port]; done {
			continue
		}
		if _, declared := md.Param(con.Port); !declared {
			continue
		}
		if v := c.res.Fold(con.Value); v != nil {
			bound[con.Port] = v
		}
	}
	return constexpr.Chain(bound, md)
}

// portWidth resolves every text frame of a declared port width.
func (c *checker) portWidth(inst *ast.ModuleInst, md *decls.ModuleDecl, p decls.Port, params constexpr.Provider) (width.Descriptor, bool) {
	var parts []width.Descriptor
	for _, f := range p.Width.Frames() {
		switch f.Kind {
		case width.FrameArray:
			parts = append(parts, width.Dims(f.Dims...))
		case width.FrameStruct:
			parts = append(parts, width.OfStruct(f.Struct))
		case width.FrameText:
			v, err := c.text.ParseWidth(f.Text, params, c.env.Decls)
			if err != nil || v == nil {
				c.sink.Error(inst.NamePos, diag.ModuleDimParseFailed, f.Text, p.Name, md.Name)
				return width.Descriptor{}, false
			}
			n, ok := v.IntValue()
			if !ok {
				c.sink.Error(inst.NamePos, diag.ModuleSizeNaN, f.Text, p.Name, md.Name)
				return width.Descriptor{}, false
			}
			if n < 0 {
				c.sink.Error(inst.NamePos, diag.ArraySizeNeg, f.Text)
				return width.Descriptor{}, false
			}
			parts = append(parts, width.Scalar(n))
		}
	}
	return width.Chain(parts...), true
}

// arrayed places the instance dimensions outside a port width. A single
// bit port of an instance array is one bit per instance.
func arrayed(arr []int, pw width.Descriptor) width.Descriptor {
	if len(arr) == 0 {
		return pw
	}
	if pw.IsArray() {
		dims := pw.Dims()
		if len(dims) > 1 || dims[0] > 1 {
			return pw.Prepend(arr...)
		}
		return width.Chain(width.Dims(arr...), pw.Next())
	}
	return pw.Prepend(arr...)
}

// connections checks the widths connected to the inputs and inouts of an
// instance. A connection may match the port of a single instance or, for
// an instance array, the full arrayed width.
func (c *checker) connections(inst *ast.ModuleInst, md *decls.ModuleDecl, arr []int, natural map[string]width.Descriptor) {
	check := func(con *ast.Connection, at ast.Node) {
		if con.Param {
			return
		}
		p, ok := md.Port(con.Port)
		if !ok || p.Dir == ast.Output {
			return
		}
		pw, ok := natural[con.Port]
		if !ok {
			return
		}
		w, ok := c.widthOf(con.Value)
		if !ok || w.Equal(pw) || (len(arr) > 0 && w.Equal(arrayed(arr, pw))) {
			return
		}
		c.sink.Error(at, diag.PortDimMismatch, w, ast.Format(con.Value), pw, inst.Name+"."+con.Port)
	}
	for _, con := range inst.Connections {
		check(con, con.Value)
	}
	for _, con := range c.blockConnections() {
		check(con, inst.NamePos)
	}
}
