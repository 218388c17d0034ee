// Package ast holds the Lucid module tree handed over by the parser.
//
// Nodes are plain structs compared by pointer identity. Analysis results are
// never stored on the nodes; passes keep their own side tables keyed by
// node.
package ast

// Pos is a source position. Line and Col are 1-based; zero means unknown.
type Pos struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
	Col  int    `json:"col,omitempty"`
}

// Position returns p. Every node embeds Pos.
func (p Pos) Position() Pos { return p }

// Node is any element of the tree.
type Node interface {
	Position() Pos
}

// File is one parser output file.
type File struct {
	Path    string
	Globals []*Global
	Modules []*Module
}

// Global is a namespace of constants and structs shared by all modules.
type Global struct {
	Pos
	Name      string
	Constants []*ConstDecl
	Structs   []*StructDecl
}

// Direction of a module port.
type Direction string

const (
	Input  Direction = "input"
	Output Direction = "output"
	Inout  Direction = "inout"
)

// Module is one module declaration.
type Module struct {
	Pos
	Name    string
	Params  []*Param
	Ports   []*Port
	Structs []*StructDecl
	Items   []Item
}

// Param is a module parameter with its default value.
type Param struct {
	Pos
	Name       string
	Default    Expr
	Constraint Expr
}

// Port is an input, output or inout declaration.
type Port struct {
	Pos
	Dir    Direction
	Name   string
	Signed bool
	Struct *StructRef
	Sizes  []Expr
}

// StructRef names a struct type, optionally in a global namespace.
type StructRef struct {
	Pos
	Namespace string
	Name      string
}

// StructDecl declares a struct type.
type StructDecl struct {
	Pos
	Name    string
	Members []*Member
}

// Member is one field of a struct declaration.
type Member struct {
	Pos
	Name   string
	Struct *StructRef
	Sizes  []Expr
}

// Item is a module body element.
type Item interface {
	Node
	item()
}

// ConstDecl declares a named constant.
type ConstDecl struct {
	Pos
	Name  string
	Value Expr
}

// SigDecl declares one or more combinational signals.
type SigDecl struct {
	Pos
	Signed bool
	Struct *StructRef
	Names  []*TypeDecl
}

// VarDecl declares one or more variables.
type VarDecl struct {
	Pos
	Names []*TypeDecl
}

// TypeDecl is one name with its array sizes.
type TypeDecl struct {
	Pos
	Name  string
	Sizes []Expr
}

// DffDecl declares one or more registers.
type DffDecl struct {
	Pos
	Signed bool
	Struct *StructRef
	Names  []*DffSingle
}

// DffSingle is one register of a DffDecl.
type DffSingle struct {
	Pos
	Name        string
	Sizes       []Expr
	Connections []*Connection
}

// FsmDecl declares a state machine.
type FsmDecl struct {
	Pos
	Name        string
	Sizes       []Expr
	States      []*Name
	Connections []*Connection
}

// ModuleInst instantiates another module.
type ModuleInst struct {
	Pos
	Module      string
	Name        string
	NamePos     Pos
	Sizes       []Expr
	Connections []*Connection
}

// Connection binds a port or parameter by name.
type Connection struct {
	Pos
	Port  string
	Param bool
	Value Expr
}

// AssignBlock applies connections to every item it encloses.
type AssignBlock struct {
	Pos
	Connections []*Connection
	Items       []Item
}

// Always is a combinational block.
type Always struct {
	Pos
	Body []Stmt
}

func (*ConstDecl) item()   {}
func (*SigDecl) item()     {}
func (*VarDecl) item()     {}
func (*DffDecl) item()     {}
func (*FsmDecl) item()     {}
func (*ModuleInst) item()  {}
func (*AssignBlock) item() {}
func (*Always) item()      {}

// Stmt is a statement inside an always block.
type Stmt interface {
	Node
	stmt()
}

// Assign writes Value to Target.
type Assign struct {
	Pos
	Target *Signal
	Value  Expr
}

// If is a conditional statement.
type If struct {
	Pos
	Cond Expr
	Then []Stmt
	Else []Stmt
}

// Case is a case statement.
type Case struct {
	Pos
	Expr  Expr
	Cases []*CaseElem
}

// CaseElem is one arm. An arm with no values is the default arm.
type CaseElem struct {
	Pos
	Values []Expr
	Body   []Stmt
}

func (*Assign) stmt() {}
func (*If) stmt()     {}
func (*Case) stmt()   {}

// Signal is a reference such as ns.NAME, a.b[2][3:0] or fsm.d.
type Signal struct {
	Pos
	Namespace string
	Parts     []SignalPart
}

// SignalPart is either a Name or a BitSelection.
type SignalPart interface {
	Node
	signalPart()
}

// Name is one dotted component.
type Name struct {
	Pos
	Text string
}

// BitSelection is a run of [i] indices with an optional trailing selector.
type BitSelection struct {
	Pos
	Indices  []Expr
	Selector Selector
}

func (*Name) signalPart()         {}
func (*BitSelection) signalPart() {}

// Names returns the dotted name components in order.
func (s *Signal) Names() []string {
	var out []string
	for _, p := range s.Parts {
		if n, ok := p.(*Name); ok {
			out = append(out, n.Text)
		}
	}
	return out
}

// Selector is the trailing [hi:lo], [start+:width] or [start-:width].
type Selector interface {
	Node
	selector()
}

// ConstSelector is [hi:lo].
type ConstSelector struct {
	Pos
	Hi, Lo Expr
}

// FixedSelector is [start+:width] or, with Down set, [start-:width].
type FixedSelector struct {
	Pos
	Start, Width Expr
	Down         bool
}

func (*ConstSelector) selector() {}
func (*FixedSelector) selector() {}
