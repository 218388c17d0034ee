// Package checker infers the width of every signal, port, register, state
// machine and expression of a Lucid module and reports shape mismatches.
//
// Check walks one module bottom-up. Each call builds its own context, so
// different modules can be checked concurrently as long as they share only
// read-only declarations.
package checker

import (
	"github.com/robert-at-pretension-io/lucid-width/internal/ast"
	"github.com/robert-at-pretension-io/lucid-width/internal/constexpr"
	"github.com/robert-at-pretension-io/lucid-width/internal/decls"
	"github.com/robert-at-pretension-io/lucid-width/internal/diag"
	"github.com/robert-at-pretension-io/lucid-width/internal/width"
)

// Declarations is the read-only view of the declaration tables a check
// needs.
type Declarations interface {
	Module(name string) (*decls.ModuleDecl, bool)
	GlobalStruct(ns, name string) (*width.Struct, bool)
	HasNamespace(ns string) bool
	Constant(ns, name string) *constexpr.Value
}

// Resolver folds constant expressions of one module and resolves the bounds
// of indices and selectors.
type Resolver interface {
	Fold(x ast.Expr) *constexpr.Value
	IsConstant(x ast.Expr) bool
	DefineConst(name string, x ast.Expr)
	Bounds(n ast.Node) (constexpr.Bounds, bool)
}

// TextResolver evaluates width text deferred by a parameterised port.
type TextResolver interface {
	ParseWidth(text string, params constexpr.Provider, globals constexpr.Globals) (*constexpr.Value, error)
}

type textFunc func(string, constexpr.Provider, constexpr.Globals) (*constexpr.Value, error)

func (f textFunc) ParseWidth(text string, p constexpr.Provider, g constexpr.Globals) (*constexpr.Value, error) {
	return f(text, p, g)
}

// Env holds the collaborators of a check. NewResolver and Text default to
// the constexpr package.
type Env struct {
	Decls       Declarations
	Sink        diag.Sink
	NewResolver func(params constexpr.Provider, globals constexpr.Globals) Resolver
	Text        TextResolver
}

// Result is what a check leaves behind for later stages. It must not be
// modified once Check returns.
type Result struct {
	Module      string
	Widths      *WidthMap
	decorations map[ast.Node]width.Descriptor
}

// WidthOf returns the width recorded for a node. Nodes whose rule failed
// have no width.
func (r *Result) WidthOf(n ast.Node) (width.Descriptor, bool) {
	w, ok := r.decorations[n]
	return w, ok
}

// Range calls fn for every decorated node.
func (r *Result) Range(fn func(n ast.Node, w width.Descriptor)) {
	for n, w := range r.decorations {
		fn(n, w)
	}
}

// Len is the number of decorated nodes.
func (r *Result) Len() int { return len(r.decorations) }

type checker struct {
	env    Env
	mod    *ast.Module
	decl   *decls.ModuleDecl
	res    Resolver
	text   TextResolver
	sink   diag.Sink
	widths *WidthMap
	deco   map[ast.Node]width.Descriptor
	blocks [][]*ast.Connection
	rules  *exprRules
}

// Check analyses one module. Diagnostics go to env.Sink.
func Check(env Env, mod *ast.Module) *Result {
	c := &checker{
		env:  env,
		mod:  mod,
		sink: env.Sink,
		deco: make(map[ast.Node]width.Descriptor),
		text: env.Text,
	}
	if c.text == nil {
		c.text = textFunc(constexpr.ParseWidth)
	}

	var params constexpr.Provider
	var kinds KindLookup
	if d, ok := env.Decls.Module(mod.Name); ok {
		c.decl = d
		params = d
		kinds = d
	} else {
		c.sink.Internal(mod, diag.MissingWidth, "declarations of module "+mod.Name)
	}
	c.widths = NewWidthMap(kinds)

	if env.NewResolver != nil {
		c.res = env.NewResolver(params, env.Decls)
	} else {
		c.res = constexpr.NewEvaluator(params, env.Decls)
	}
	c.rules = &exprRules{c: c}

	defineConsts(c.res, mod.Items)
	c.module()
	return &Result{Module: mod.Name, Widths: c.widths, decorations: c.deco}
}

func defineConsts(r Resolver, items []ast.Item) {
	for _, it := range items {
		switch it := it.(type) {
		case *ast.ConstDecl:
			r.DefineConst(it.Name, it.Value)
		case *ast.AssignBlock:
			defineConsts(r, it.Items)
		}
	}
}

func (c *checker) decorate(n ast.Node, w width.Descriptor) {
	if _, done := c.deco[n]; done {
		return
	}
	c.deco[n] = w
}

func (c *checker) widthOf(n ast.Node) (width.Descriptor, bool) {
	w, ok := c.deco[n]
	return w, ok
}

// infer computes the width of x and everything below it.
func (c *checker) infer(x ast.Expr) (width.Descriptor, bool) {
	if x == nil {
		return width.Descriptor{}, false
	}
	if w, ok := c.deco[x]; ok {
		return w, true
	}
	x.Accept(c.rules)
	return c.widthOf(x)
}

func (c *checker) module() {
	for _, p := range c.mod.Params {
		if p.Default != nil {
			if w, ok := c.infer(p.Default); ok {
				c.widths.PutIfAbsent(p.Name, w)
			}
		}
		if p.Constraint != nil {
			c.infer(p.Constraint)
		}
	}
	for _, p := range c.mod.Ports {
		c.port(p)
	}
	c.items(c.mod.Items)
}

func (c *checker) items(items []ast.Item) {
	for _, it := range items {
		switch it := it.(type) {
		case *ast.ConstDecl:
			if w, ok := c.infer(it.Value); ok {
				c.widths.Put(it.Name, w)
				c.decorate(it, w)
			}
		case *ast.SigDecl:
			for _, td := range it.Names {
				w := c.declWidth(td.Sizes, it.Struct)
				c.widths.Put(td.Name, w)
				c.decorate(td, w)
			}
		case *ast.VarDecl:
			for _, td := range it.Names {
				w := c.declWidth(td.Sizes, nil)
				c.widths.Put(td.Name, w)
				c.decorate(td, w)
			}
		case *ast.DffDecl:
			c.dff(it)
		case *ast.FsmDecl:
			c.fsm(it)
		case *ast.ModuleInst:
			c.instance(it)
		case *ast.AssignBlock:
			for _, con := range it.Connections {
				c.infer(con.Value)
			}
			c.blocks = append(c.blocks, it.Connections)
			c.items(it.Items)
			c.blocks = c.blocks[:len(c.blocks)-1]
		case *ast.Always:
			c.stmts(it.Body)
		}
	}
}

func (c *checker) stmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		switch s := s.(type) {
		case *ast.Assign:
			c.infer(s.Value)
			c.target(s.Target)
			c.assign(s)
		case *ast.If:
			c.infer(s.Cond)
			c.stmts(s.Then)
			c.stmts(s.Else)
		case *ast.Case:
			c.infer(s.Expr)
			for _, el := range s.Cases {
				for _, v := range el.Values {
					c.infer(v)
				}
				c.stmts(el.Body)
			}
		}
	}
}

func (c *checker) target(s *ast.Signal) {
	if w, ok := c.signalWidth(s); ok {
		c.decorate(s, w)
	}
}

// assign checks that the value fits the shape of the assigned signal.
func (c *checker) assign(s *ast.Assign) {
	sw, ok1 := c.widthOf(s.Target)
	ew, ok2 := c.widthOf(s.Value)
	if !ok1 || !ok2 {
		return
	}
	target := ast.FormatSignal(s.Target)
	if sw.Depth() == 0 {
		c.sink.Internal(s.Target, diag.ZeroDepth, target)
		return
	}
	if ew.Depth() == 0 {
		c.sink.Internal(s.Value, diag.ZeroDepth, ast.Format(s.Value))
		return
	}
	switch {
	case sw.Depth() > 1 || sw.IsStruct():
		if !sw.Equal(ew) {
			c.sink.Error(s.Value, diag.AssignDimMismatch, target, sw, ew)
		}
	case ew.Depth() > 1 || ew.IsStruct():
		c.sink.Error(s.Value, diag.AssignNotArray, target, ew)
	default:
		if _, isRef := s.Value.(*ast.SignalExpr); isRef && sw.IsSimpleArray() && ew.IsSimpleArray() && sw.Outer() < ew.Outer() {
			c.sink.Warning(s.Value, diag.Truncation, ast.Format(s.Value), ew.Outer(), target, sw.Outer())
		}
	}
}

// blockConnections returns the connections of every enclosing assign
// block, innermost first.
func (c *checker) blockConnections() []*ast.Connection {
	var out []*ast.Connection
	for i := len(c.blocks) - 1; i >= 0; i-- {
		out = append(out, c.blocks[i]...)
	}
	return out
}
