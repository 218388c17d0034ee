// Package decls builds the declaration tables every module check reads:
// modules with their ports and parameters, struct types, global constants
// and the kind of each special name inside a module.
//
// A Table is fully computed by Collect and never written afterwards, so any
// number of module checks may read it at the same time.
package decls

import (
	"fmt"
	"sort"

	"github.com/robert-at-pretension-io/lucid-width/internal/ast"
	"github.com/robert-at-pretension-io/lucid-width/internal/constexpr"
	"github.com/robert-at-pretension-io/lucid-width/internal/width"
)

// Kind classifies a name declared inside a module.
type Kind int

const (
	KindPlain Kind = iota
	KindInout
	KindDff
	KindFsm
	KindInstance
)

func (k Kind) String() string {
	switch k {
	case KindInout:
		return "inout"
	case KindDff:
		return "dff"
	case KindFsm:
		return "fsm"
	case KindInstance:
		return "instance"
	}
	return "plain"
}

// Port is a declared module port. Dimensions that depend on a module
// parameter are kept as text frames until an instantiation binds them.
type Port struct {
	Name  string
	Dir   ast.Direction
	Node  *ast.Port
	Width width.Descriptor
}

// ModuleDecl is the declaration summary of one module.
type ModuleDecl struct {
	Name    string
	File    string
	Node    *ast.Module
	ports   []Port
	params  map[string]*ast.Param
	values  constexpr.Values
	kinds   map[string]Kind
	structs map[string]*width.Struct
}

// Ports returns the ports declared with dir, in declaration order.
func (m *ModuleDecl) Ports(dir ast.Direction) []Port {
	var out []Port
	for _, p := range m.ports {
		if p.Dir == dir {
			out = append(out, p)
		}
	}
	return out
}

// Port looks up a port by name.
func (m *ModuleDecl) Port(name string) (Port, bool) {
	for _, p := range m.ports {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// Param looks up a parameter declaration.
func (m *ModuleDecl) Param(name string) (*ast.Param, bool) {
	p, ok := m.params[name]
	return p, ok
}

// ValueOf returns the default value of a parameter, making a ModuleDecl a
// constexpr.Provider.
func (m *ModuleDecl) ValueOf(name string) *constexpr.Value {
	return m.values[name]
}

// KindOf classifies a name declared in the module body or port list.
func (m *ModuleDecl) KindOf(name string) Kind {
	return m.kinds[name]
}

// Struct looks up a struct declared inside the module.
func (m *ModuleDecl) Struct(name string) (*width.Struct, bool) {
	s, ok := m.structs[name]
	return s, ok
}

type namespace struct {
	consts  map[string]ast.Expr
	decls   map[string]*ast.StructDecl
	structs map[string]*width.Struct
}

// Table holds every declaration of a design.
type Table struct {
	modules map[string]*ModuleDecl
	spaces  map[string]*namespace
	values  map[string]*constexpr.Value
	sealed  bool
	active  map[string]bool
}

// Collect builds the tables for a set of parser output files.
func Collect(files []*ast.File) (*Table, error) {
	t := &Table{
		modules: make(map[string]*ModuleDecl),
		spaces:  make(map[string]*namespace),
		values:  make(map[string]*constexpr.Value),
		active:  make(map[string]bool),
	}

	for _, f := range files {
		for _, g := range f.Globals {
			ns := t.spaces[g.Name]
			if ns == nil {
				ns = &namespace{
					consts:  map[string]ast.Expr{},
					decls:   map[string]*ast.StructDecl{},
					structs: map[string]*width.Struct{},
				}
				t.spaces[g.Name] = ns
			}
			for _, c := range g.Constants {
				if _, dup := ns.consts[c.Name]; dup {
					return nil, fmt.Errorf("%s: constant %s.%s declared twice", f.Path, g.Name, c.Name)
				}
				ns.consts[c.Name] = c.Value
			}
			for _, sd := range g.Structs {
				if _, dup := ns.decls[sd.Name]; dup {
					return nil, fmt.Errorf("%s: struct %s.%s declared twice", f.Path, g.Name, sd.Name)
				}
				ns.decls[sd.Name] = sd
			}
		}
	}

	// Global constants are folded before structs so that member sizes can
	// use them.
	for name, ns := range t.spaces {
		for c := range ns.consts {
			t.Constant(name, c)
		}
	}

	spaces := make([]string, 0, len(t.spaces))
	for name := range t.spaces {
		spaces = append(spaces, name)
	}
	sort.Strings(spaces)
	for _, name := range spaces {
		if err := t.globalBuilder(name).buildAll(); err != nil {
			return nil, fmt.Errorf("global %s: %w", name, err)
		}
	}

	for _, f := range files {
		for _, m := range f.Modules {
			if prev, dup := t.modules[m.Name]; dup {
				return nil, fmt.Errorf("module %s declared in both %s and %s", m.Name, prev.File, f.Path)
			}
			md, err := t.collectModule(f.Path, m)
			if err != nil {
				return nil, fmt.Errorf("module %s: %w", m.Name, err)
			}
			t.modules[m.Name] = md
		}
	}
	t.sealed = true
	t.active = nil
	return t, nil
}

func (t *Table) collectModule(file string, m *ast.Module) (*ModuleDecl, error) {
	md := &ModuleDecl{
		Name:    m.Name,
		File:    file,
		Node:    m,
		params:  make(map[string]*ast.Param),
		values:  make(constexpr.Values),
		kinds:   make(map[string]Kind),
		structs: make(map[string]*width.Struct),
	}

	for _, p := range m.Params {
		md.params[p.Name] = p
		if p.Default == nil {
			continue
		}
		// Defaults may refer to parameters declared before them.
		if v := constexpr.NewEvaluator(md.values, t).Fold(p.Default); v != nil {
			md.values[p.Name] = v
		}
	}

	b := structBuilder{
		decls: indexStructs(m.Structs),
		out:   md.structs,
		table: t,
		eval:  constexpr.NewEvaluator(md.values, t),
	}
	if err := b.buildAll(); err != nil {
		return nil, err
	}

	fixed := constexpr.NewEvaluator(nil, t)
	for _, p := range m.Ports {
		var frames []width.Descriptor
		for _, size := range p.Sizes {
			if n, ok := fixed.Fold(size).IntValue(); ok && n > 0 {
				frames = append(frames, width.Scalar(n))
			} else {
				frames = append(frames, width.OfText(ast.Format(size)))
			}
		}
		if p.Struct != nil {
			if s, ok := t.lookupStruct(md, p.Struct); ok {
				frames = append(frames, width.OfStruct(s))
			}
		}
		w := width.Chain(frames...)
		if w.IsZero() {
			w = width.Scalar(1)
		}
		md.ports = append(md.ports, Port{Name: p.Name, Dir: p.Dir, Node: p, Width: w})
		if p.Dir == ast.Inout {
			md.kinds[p.Name] = KindInout
		}
	}

	collectKinds(md.kinds, m.Items)
	return md, nil
}

func collectKinds(kinds map[string]Kind, items []ast.Item) {
	for _, it := range items {
		switch it := it.(type) {
		case *ast.DffDecl:
			for _, n := range it.Names {
				kinds[n.Name] = KindDff
			}
		case *ast.FsmDecl:
			kinds[it.Name] = KindFsm
		case *ast.ModuleInst:
			kinds[it.Name] = KindInstance
		case *ast.AssignBlock:
			collectKinds(kinds, it.Items)
		}
	}
}

func (t *Table) lookupStruct(md *ModuleDecl, ref *ast.StructRef) (*width.Struct, bool) {
	if ref.Namespace != "" {
		return t.GlobalStruct(ref.Namespace, ref.Name)
	}
	return md.Struct(ref.Name)
}

// Module looks up a module by name.
func (t *Table) Module(name string) (*ModuleDecl, bool) {
	m, ok := t.modules[name]
	return m, ok
}

// Modules returns every module ordered by name.
func (t *Table) Modules() []*ModuleDecl {
	out := make([]*ModuleDecl, 0, len(t.modules))
	for _, m := range t.modules {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// HasNamespace reports whether a global namespace was declared.
func (t *Table) HasNamespace(ns string) bool {
	_, ok := t.spaces[ns]
	return ok
}

// GlobalStruct looks up a struct declared in a global namespace.
func (t *Table) GlobalStruct(ns, name string) (*width.Struct, bool) {
	space, ok := t.spaces[ns]
	if !ok {
		return nil, false
	}
	s, ok := space.structs[name]
	return s, ok
}

// Constant returns the value of a global constant, or nil when it is not
// declared or cannot be folded.
func (t *Table) Constant(ns, name string) *constexpr.Value {
	key := ns + "." + name
	if v, ok := t.values[key]; ok || t.sealed {
		return v
	}
	space, ok := t.spaces[ns]
	if !ok {
		return nil
	}
	x, ok := space.consts[name]
	if !ok || t.active[key] {
		return nil
	}
	t.active[key] = true
	e := constexpr.NewEvaluator(nil, t)
	for n, c := range space.consts {
		e.DefineConst(n, c)
	}
	v := e.Fold(x)
	delete(t.active, key)
	t.values[key] = v
	return v
}

type structBuilder struct {
	namespace string
	decls     map[string]*ast.StructDecl
	out       map[string]*width.Struct
	table     *Table
	eval      *constexpr.Evaluator
}

func (t *Table) globalBuilder(ns string) *structBuilder {
	space := t.spaces[ns]
	return &structBuilder{
		namespace: ns,
		decls:     space.decls,
		out:       space.structs,
		table:     t,
		eval:      constexpr.NewEvaluator(nil, t),
	}
}

func indexStructs(ds []*ast.StructDecl) map[string]*ast.StructDecl {
	out := make(map[string]*ast.StructDecl, len(ds))
	for _, d := range ds {
		out[d.Name] = d
	}
	return out
}

func (b *structBuilder) buildAll() error {
	names := make([]string, 0, len(b.decls))
	for n := range b.decls {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if _, err := b.build(n); err != nil {
			return err
		}
	}
	return nil
}

func (b *structBuilder) build(name string) (*width.Struct, error) {
	if s, ok := b.out[name]; ok {
		return s, nil
	}
	d, ok := b.decls[name]
	if !ok {
		return nil, fmt.Errorf("struct %s is not declared", name)
	}
	key := "struct:" + b.namespace + "." + name
	if b.table.active[key] {
		return nil, fmt.Errorf("struct %s contains itself", name)
	}
	b.table.active[key] = true
	defer delete(b.table.active, key)

	var members []width.Member
	for _, m := range d.Members {
		var frames []width.Descriptor
		for _, size := range m.Sizes {
			if n, ok := b.eval.Fold(size).IntValue(); ok && n > 0 {
				frames = append(frames, width.Scalar(n))
			} else {
				frames = append(frames, width.OfText(ast.Format(size)))
			}
		}
		if m.Struct != nil {
			s, err := b.ref(m.Struct)
			if err != nil {
				return nil, fmt.Errorf("member %s.%s: %w", name, m.Name, err)
			}
			frames = append(frames, width.OfStruct(s))
		}
		w := width.Chain(frames...)
		if w.IsZero() {
			w = width.Scalar(1)
		}
		members = append(members, width.Member{Name: m.Name, Width: w})
	}
	s := width.NewStruct(b.namespace, name, members...)
	b.out[name] = s
	return s, nil
}

func (b *structBuilder) ref(r *ast.StructRef) (*width.Struct, error) {
	if r.Namespace == "" || r.Namespace == b.namespace {
		return b.build(r.Name)
	}
	if !b.table.HasNamespace(r.Namespace) {
		return nil, fmt.Errorf("namespace %s is not declared", r.Namespace)
	}
	return b.table.globalBuilder(r.Namespace).build(r.Name)
}
