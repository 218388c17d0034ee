package ast

import (
	"encoding/json"
	"fmt"
	"os"
)

// The parser writes one JSON document per source file. The wire types
// below mirror that document; Decode turns it into the typed tree.

type wirePos struct {
	Line int `json:"line,omitempty"`
	Col  int `json:"col,omitempty"`
}

type wireFile struct {
	File    string       `json:"file"`
	Globals []wireGlobal `json:"globals,omitempty"`
	Modules []wireModule `json:"modules,omitempty"`
}

type wireGlobal struct {
	wirePos
	Name      string       `json:"name"`
	Constants []wireConst  `json:"constants,omitempty"`
	Structs   []wireStruct `json:"structs,omitempty"`
}

type wireConst struct {
	wirePos
	Name  string    `json:"name"`
	Value *wireExpr `json:"value"`
}

type wireStruct struct {
	wirePos
	Name    string       `json:"name"`
	Members []wireMember `json:"members"`
}

type wireMember struct {
	wirePos
	Name   string         `json:"name"`
	Struct *wireStructRef `json:"struct,omitempty"`
	Sizes  []*wireExpr    `json:"sizes,omitempty"`
}

type wireStructRef struct {
	wirePos
	Namespace string `json:"namespace,omitempty"`
	Name      string `json:"name"`
}

type wireModule struct {
	wirePos
	Name    string       `json:"name"`
	Params  []wireParam  `json:"params,omitempty"`
	Ports   []wirePort   `json:"ports,omitempty"`
	Structs []wireStruct `json:"structs,omitempty"`
	Items   []wireItem   `json:"items,omitempty"`
}

type wireParam struct {
	wirePos
	Name       string    `json:"name"`
	Default    *wireExpr `json:"default,omitempty"`
	Constraint *wireExpr `json:"constraint,omitempty"`
}

type wirePort struct {
	wirePos
	Dir    string         `json:"dir"`
	Name   string         `json:"name"`
	Signed bool           `json:"signed,omitempty"`
	Struct *wireStructRef `json:"struct,omitempty"`
	Sizes  []*wireExpr    `json:"sizes,omitempty"`
}

type wireItem struct {
	wirePos
	Kind        string           `json:"kind"`
	Name        string           `json:"name,omitempty"`
	NameLine    int              `json:"name_line,omitempty"`
	NameCol     int              `json:"name_col,omitempty"`
	Module      string           `json:"module,omitempty"`
	Value       *wireExpr        `json:"value,omitempty"`
	Signed      bool             `json:"signed,omitempty"`
	Struct      *wireStructRef   `json:"struct,omitempty"`
	Names       []wireTypeDecl   `json:"names,omitempty"`
	Sizes       []*wireExpr      `json:"sizes,omitempty"`
	States      []wireName       `json:"states,omitempty"`
	Connections []wireConnection `json:"connections,omitempty"`
	Items       []wireItem       `json:"items,omitempty"`
	Body        []wireStmt       `json:"body,omitempty"`
}

type wireTypeDecl struct {
	wirePos
	Name        string           `json:"name"`
	Sizes       []*wireExpr      `json:"sizes,omitempty"`
	Connections []wireConnection `json:"connections,omitempty"`
}

type wireName struct {
	wirePos
	Name string `json:"name"`
}

type wireConnection struct {
	wirePos
	Port  string    `json:"port"`
	Param bool      `json:"param,omitempty"`
	Value *wireExpr `json:"value"`
}

type wireStmt struct {
	wirePos
	Kind   string      `json:"kind"`
	Target *wireSignal `json:"target,omitempty"`
	Value  *wireExpr   `json:"value,omitempty"`
	Cond   *wireExpr   `json:"cond,omitempty"`
	Then   []wireStmt  `json:"then,omitempty"`
	Else   []wireStmt  `json:"else,omitempty"`
	Expr   *wireExpr   `json:"expr,omitempty"`
	Cases  []wireCase  `json:"cases,omitempty"`
}

type wireCase struct {
	wirePos
	Values []*wireExpr `json:"values,omitempty"`
	Body   []wireStmt  `json:"body,omitempty"`
}

type wireSignal struct {
	wirePos
	Namespace string     `json:"namespace,omitempty"`
	Parts     []wirePart `json:"parts"`
}

type wirePart struct {
	wirePos
	Name   string      `json:"name,omitempty"`
	Index  []*wireExpr `json:"index,omitempty"`
	Select *wireSelect `json:"select,omitempty"`
}

type wireSelect struct {
	wirePos
	Kind  string    `json:"kind"`
	Hi    *wireExpr `json:"hi,omitempty"`
	Lo    *wireExpr `json:"lo,omitempty"`
	Start *wireExpr `json:"start,omitempty"`
	Width *wireExpr `json:"width,omitempty"`
}

type wireExpr struct {
	wirePos
	Kind   string      `json:"kind"`
	Op     string      `json:"op,omitempty"`
	Text   string      `json:"text,omitempty"`
	Func   string      `json:"func,omitempty"`
	Signal *wireSignal `json:"signal,omitempty"`
	Args   []*wireExpr `json:"args,omitempty"`
}

// ReadFile decodes the parser output stored at path.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if f.Path == "" {
		f.Path = path
	}
	return f, nil
}

// Decode builds a File from parser output.
func Decode(data []byte) (*File, error) {
	var w wireFile
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decoding design: %w", err)
	}
	d := decoder{file: w.File}
	f := &File{Path: w.File}
	for _, g := range w.Globals {
		gl, err := d.global(g)
		if err != nil {
			return nil, err
		}
		f.Globals = append(f.Globals, gl)
	}
	for _, m := range w.Modules {
		mod, err := d.module(m)
		if err != nil {
			return nil, fmt.Errorf("module %s: %w", m.Name, err)
		}
		f.Modules = append(f.Modules, mod)
	}
	return f, nil
}

type decoder struct {
	file string
}

func (d *decoder) pos(p wirePos) Pos {
	return Pos{File: d.file, Line: p.Line, Col: p.Col}
}

func (d *decoder) global(w wireGlobal) (*Global, error) {
	g := &Global{Pos: d.pos(w.wirePos), Name: w.Name}
	for _, c := range w.Constants {
		v, err := d.expr(c.Value)
		if err != nil {
			return nil, fmt.Errorf("global %s.%s: %w", w.Name, c.Name, err)
		}
		g.Constants = append(g.Constants, &ConstDecl{Pos: d.pos(c.wirePos), Name: c.Name, Value: v})
	}
	for _, s := range w.Structs {
		sd, err := d.structDecl(s)
		if err != nil {
			return nil, fmt.Errorf("global %s: %w", w.Name, err)
		}
		g.Structs = append(g.Structs, sd)
	}
	return g, nil
}

func (d *decoder) structRef(w *wireStructRef) *StructRef {
	if w == nil {
		return nil
	}
	return &StructRef{Pos: d.pos(w.wirePos), Namespace: w.Namespace, Name: w.Name}
}

func (d *decoder) structDecl(w wireStruct) (*StructDecl, error) {
	s := &StructDecl{Pos: d.pos(w.wirePos), Name: w.Name}
	for _, m := range w.Members {
		sizes, err := d.exprs(m.Sizes)
		if err != nil {
			return nil, fmt.Errorf("struct %s.%s: %w", w.Name, m.Name, err)
		}
		s.Members = append(s.Members, &Member{
			Pos:    d.pos(m.wirePos),
			Name:   m.Name,
			Struct: d.structRef(m.Struct),
			Sizes:  sizes,
		})
	}
	return s, nil
}

func (d *decoder) module(w wireModule) (*Module, error) {
	m := &Module{Pos: d.pos(w.wirePos), Name: w.Name}
	for _, p := range w.Params {
		def, err := d.optExpr(p.Default)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", p.Name, err)
		}
		con, err := d.optExpr(p.Constraint)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", p.Name, err)
		}
		m.Params = append(m.Params, &Param{Pos: d.pos(p.wirePos), Name: p.Name, Default: def, Constraint: con})
	}
	for _, p := range w.Ports {
		dir := Direction(p.Dir)
		switch dir {
		case Input, Output, Inout:
		default:
			return nil, fmt.Errorf("port %s: unknown direction %q", p.Name, p.Dir)
		}
		sizes, err := d.exprs(p.Sizes)
		if err != nil {
			return nil, fmt.Errorf("port %s: %w", p.Name, err)
		}
		m.Ports = append(m.Ports, &Port{
			Pos:    d.pos(p.wirePos),
			Dir:    dir,
			Name:   p.Name,
			Signed: p.Signed,
			Struct: d.structRef(p.Struct),
			Sizes:  sizes,
		})
	}
	for _, s := range w.Structs {
		sd, err := d.structDecl(s)
		if err != nil {
			return nil, err
		}
		m.Structs = append(m.Structs, sd)
	}
	items, err := d.items(w.Items)
	if err != nil {
		return nil, err
	}
	m.Items = items
	return m, nil
}

func (d *decoder) items(ws []wireItem) ([]Item, error) {
	var out []Item
	for _, w := range ws {
		it, err := d.item(w)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, nil
}

func (d *decoder) connections(ws []wireConnection) ([]*Connection, error) {
	var out []*Connection
	for _, w := range ws {
		v, err := d.expr(w.Value)
		if err != nil {
			return nil, fmt.Errorf("connection %s: %w", w.Port, err)
		}
		out = append(out, &Connection{Pos: d.pos(w.wirePos), Port: w.Port, Param: w.Param, Value: v})
	}
	return out, nil
}

func (d *decoder) typeDecls(ws []wireTypeDecl) ([]*TypeDecl, error) {
	var out []*TypeDecl
	for _, w := range ws {
		sizes, err := d.exprs(w.Sizes)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", w.Name, err)
		}
		out = append(out, &TypeDecl{Pos: d.pos(w.wirePos), Name: w.Name, Sizes: sizes})
	}
	return out, nil
}

func (d *decoder) item(w wireItem) (Item, error) {
	pos := d.pos(w.wirePos)
	switch w.Kind {
	case "const":
		v, err := d.expr(w.Value)
		if err != nil {
			return nil, fmt.Errorf("const %s: %w", w.Name, err)
		}
		return &ConstDecl{Pos: pos, Name: w.Name, Value: v}, nil
	case "sig":
		names, err := d.typeDecls(w.Names)
		if err != nil {
			return nil, fmt.Errorf("sig %w", err)
		}
		return &SigDecl{Pos: pos, Signed: w.Signed, Struct: d.structRef(w.Struct), Names: names}, nil
	case "var":
		names, err := d.typeDecls(w.Names)
		if err != nil {
			return nil, fmt.Errorf("var %w", err)
		}
		return &VarDecl{Pos: pos, Names: names}, nil
	case "dff":
		dff := &DffDecl{Pos: pos, Signed: w.Signed, Struct: d.structRef(w.Struct)}
		for _, n := range w.Names {
			sizes, err := d.exprs(n.Sizes)
			if err != nil {
				return nil, fmt.Errorf("dff %s: %w", n.Name, err)
			}
			cons, err := d.connections(n.Connections)
			if err != nil {
				return nil, fmt.Errorf("dff %s: %w", n.Name, err)
			}
			dff.Names = append(dff.Names, &DffSingle{Pos: d.pos(n.wirePos), Name: n.Name, Sizes: sizes, Connections: cons})
		}
		return dff, nil
	case "fsm":
		sizes, err := d.exprs(w.Sizes)
		if err != nil {
			return nil, fmt.Errorf("fsm %s: %w", w.Name, err)
		}
		cons, err := d.connections(w.Connections)
		if err != nil {
			return nil, fmt.Errorf("fsm %s: %w", w.Name, err)
		}
		fsm := &FsmDecl{Pos: pos, Name: w.Name, Sizes: sizes, Connections: cons}
		for _, s := range w.States {
			fsm.States = append(fsm.States, &Name{Pos: d.pos(s.wirePos), Text: s.Name})
		}
		return fsm, nil
	case "inst":
		sizes, err := d.exprs(w.Sizes)
		if err != nil {
			return nil, fmt.Errorf("instance %s: %w", w.Name, err)
		}
		cons, err := d.connections(w.Connections)
		if err != nil {
			return nil, fmt.Errorf("instance %s: %w", w.Name, err)
		}
		namePos := pos
		if w.NameLine != 0 {
			namePos = Pos{File: d.file, Line: w.NameLine, Col: w.NameCol}
		}
		return &ModuleInst{Pos: pos, Module: w.Module, Name: w.Name, NamePos: namePos, Sizes: sizes, Connections: cons}, nil
	case "block":
		cons, err := d.connections(w.Connections)
		if err != nil {
			return nil, err
		}
		items, err := d.items(w.Items)
		if err != nil {
			return nil, err
		}
		return &AssignBlock{Pos: pos, Connections: cons, Items: items}, nil
	case "always":
		body, err := d.stmts(w.Body)
		if err != nil {
			return nil, fmt.Errorf("always: %w", err)
		}
		return &Always{Pos: pos, Body: body}, nil
	}
	return nil, fmt.Errorf("unknown item kind %q", w.Kind)
}

func (d *decoder) stmts(ws []wireStmt) ([]Stmt, error) {
	var out []Stmt
	for _, w := range ws {
		s, err := d.stmt(w)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (d *decoder) stmt(w wireStmt) (Stmt, error) {
	pos := d.pos(w.wirePos)
	switch w.Kind {
	case "assign":
		if w.Target == nil {
			return nil, fmt.Errorf("line %d: assignment without target", w.Line)
		}
		target, err := d.signal(w.Target)
		if err != nil {
			return nil, err
		}
		v, err := d.expr(w.Value)
		if err != nil {
			return nil, err
		}
		return &Assign{Pos: pos, Target: target, Value: v}, nil
	case "if":
		cond, err := d.expr(w.Cond)
		if err != nil {
			return nil, err
		}
		then, err := d.stmts(w.Then)
		if err != nil {
			return nil, err
		}
		els, err := d.stmts(w.Else)
		if err != nil {
			return nil, err
		}
		return &If{Pos: pos, Cond: cond, Then: then, Else: els}, nil
	case "case":
		x, err := d.expr(w.Expr)
		if err != nil {
			return nil, err
		}
		c := &Case{Pos: pos, Expr: x}
		for _, wc := range w.Cases {
			vals, err := d.exprs(wc.Values)
			if err != nil {
				return nil, err
			}
			body, err := d.stmts(wc.Body)
			if err != nil {
				return nil, err
			}
			c.Cases = append(c.Cases, &CaseElem{Pos: d.pos(wc.wirePos), Values: vals, Body: body})
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown statement kind %q", w.Kind)
}

func (d *decoder) signal(w *wireSignal) (*Signal, error) {
	s := &Signal{Pos: d.pos(w.wirePos), Namespace: w.Namespace}
	for _, p := range w.Parts {
		if p.Name != "" {
			s.Parts = append(s.Parts, &Name{Pos: d.pos(p.wirePos), Text: p.Name})
			continue
		}
		idx, err := d.exprs(p.Index)
		if err != nil {
			return nil, err
		}
		bs := &BitSelection{Pos: d.pos(p.wirePos), Indices: idx}
		if p.Select != nil {
			sel, err := d.selector(p.Select)
			if err != nil {
				return nil, err
			}
			bs.Selector = sel
		}
		if len(bs.Indices) == 0 && bs.Selector == nil {
			return nil, fmt.Errorf("line %d: empty bit selection", p.Line)
		}
		s.Parts = append(s.Parts, bs)
	}
	if len(s.Names()) == 0 {
		return nil, fmt.Errorf("line %d: signal without a name", w.Line)
	}
	return s, nil
}

func (d *decoder) selector(w *wireSelect) (Selector, error) {
	pos := d.pos(w.wirePos)
	switch w.Kind {
	case "const":
		hi, err := d.expr(w.Hi)
		if err != nil {
			return nil, err
		}
		lo, err := d.expr(w.Lo)
		if err != nil {
			return nil, err
		}
		return &ConstSelector{Pos: pos, Hi: hi, Lo: lo}, nil
	case "up", "down":
		start, err := d.expr(w.Start)
		if err != nil {
			return nil, err
		}
		wd, err := d.expr(w.Width)
		if err != nil {
			return nil, err
		}
		return &FixedSelector{Pos: pos, Start: start, Width: wd, Down: w.Kind == "down"}, nil
	}
	return nil, fmt.Errorf("unknown selector kind %q", w.Kind)
}

func (d *decoder) optExpr(w *wireExpr) (Expr, error) {
	if w == nil {
		return nil, nil
	}
	return d.expr(w)
}

func (d *decoder) exprs(ws []*wireExpr) ([]Expr, error) {
	var out []Expr
	for _, w := range ws {
		x, err := d.expr(w)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, nil
}

var binaryOps = map[string][]string{
	"muldiv":  {"*", "/"},
	"addsub":  {"+", "-"},
	"shift":   {">>", "<<", ">>>", "<<<"},
	"bitwise": {"&", "|", "^"},
	"compare": {"<", ">", "<=", ">=", "==", "!="},
	"logical": {"&&", "||"},
}

func validOp(kind, op string) bool {
	for _, o := range binaryOps[kind] {
		if o == op {
			return true
		}
	}
	return false
}

func (d *decoder) expr(w *wireExpr) (Expr, error) {
	if w == nil {
		return nil, fmt.Errorf("missing expression")
	}
	pos := d.pos(w.wirePos)
	args, err := d.exprs(w.Args)
	if err != nil {
		return nil, err
	}
	arity := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("line %d: %s expects %d operands, got %d", w.Line, w.Kind, n, len(args))
		}
		return nil
	}
	switch w.Kind {
	case "num":
		if w.Text == "" {
			return nil, fmt.Errorf("line %d: empty number", w.Line)
		}
		return &Number{Pos: pos, Text: w.Text}, nil
	case "signal":
		if w.Signal == nil {
			return nil, fmt.Errorf("line %d: signal expression without signal", w.Line)
		}
		s, err := d.signal(w.Signal)
		if err != nil {
			return nil, err
		}
		return &SignalExpr{Pos: pos, Signal: s}, nil
	case "group", "negate", "invert", "reduce":
		if err := arity(1); err != nil {
			return nil, err
		}
		switch w.Kind {
		case "group":
			return &Group{Pos: pos, X: args[0]}, nil
		case "negate":
			return &Negate{Pos: pos, X: args[0]}, nil
		case "invert":
			if w.Op != "~" && w.Op != "!" {
				return nil, fmt.Errorf("line %d: unknown invert operator %q", w.Line, w.Op)
			}
			return &Invert{Pos: pos, Op: w.Op, X: args[0]}, nil
		default:
			if w.Op != "|" && w.Op != "&" && w.Op != "^" {
				return nil, fmt.Errorf("line %d: unknown reduction operator %q", w.Line, w.Op)
			}
			return &Reduce{Pos: pos, Op: w.Op, X: args[0]}, nil
		}
	case "concat", "array":
		if len(args) == 0 {
			return nil, fmt.Errorf("line %d: empty %s", w.Line, w.Kind)
		}
		if w.Kind == "concat" {
			return &Concat{Pos: pos, Elems: args}, nil
		}
		return &ArrayLit{Pos: pos, Elems: args}, nil
	case "dup":
		if err := arity(2); err != nil {
			return nil, err
		}
		return &Dup{Pos: pos, Count: args[0], Value: args[1]}, nil
	case "muldiv", "addsub", "shift", "bitwise", "compare", "logical":
		if err := arity(2); err != nil {
			return nil, err
		}
		if !validOp(w.Kind, w.Op) {
			return nil, fmt.Errorf("line %d: unknown %s operator %q", w.Line, w.Kind, w.Op)
		}
		l, r := args[0], args[1]
		switch w.Kind {
		case "muldiv":
			return &MulDiv{Pos: pos, Op: w.Op, L: l, R: r}, nil
		case "addsub":
			return &AddSub{Pos: pos, Op: w.Op, L: l, R: r}, nil
		case "shift":
			return &Shift{Pos: pos, Op: w.Op, L: l, R: r}, nil
		case "bitwise":
			return &Bitwise{Pos: pos, Op: w.Op, L: l, R: r}, nil
		case "compare":
			return &Compare{Pos: pos, Op: w.Op, L: l, R: r}, nil
		default:
			return &Logical{Pos: pos, Op: w.Op, L: l, R: r}, nil
		}
	case "ternary":
		if err := arity(3); err != nil {
			return nil, err
		}
		return &Ternary{Pos: pos, Cond: args[0], Then: args[1], Else: args[2]}, nil
	case "call":
		if w.Func == "" {
			return nil, fmt.Errorf("line %d: call without function name", w.Line)
		}
		return &Call{Pos: pos, Func: w.Func, Args: args}, nil
	}
	return nil, fmt.Errorf("line %d: unknown expression kind %q", w.Line, w.Kind)
}
