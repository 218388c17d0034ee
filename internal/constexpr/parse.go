package constexpr

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/robert-at-pretension-io/lucid-width/internal/ast"
)

// ParseWidth evaluates width text left pending by a parameterised port
// declaration, using the parameter values bound at an instantiation site.
func ParseWidth(text string, params Provider, globals Globals) (*Value, error) {
	x, err := ParseExpr(text)
	if err != nil {
		return nil, err
	}
	e := NewEvaluator(params, globals)
	v := e.Fold(x)
	if v == nil {
		return nil, fmt.Errorf("%q is not constant", text)
	}
	return v, nil
}

// ParseExpr parses the subset of Lucid expressions that can appear in a
// size: literals, names, namespaced names, indices, builtin calls and the
// unary, binary and ternary operators.
func ParseExpr(text string) (ast.Expr, error) {
	toks, err := lex(text)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	x, err := p.ternary()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("unexpected %q in %q", p.peek().text, text)
	}
	return x, nil
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokNum
	tokIdent
	tokFunc
	tokOp
)

type token struct {
	kind tokKind
	text string
}

var multiOps = []string{"<<<", ">>>", "<<", ">>", "<=", ">=", "==", "!=", "&&", "||", "+:", "-:"}

func lex(s string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(s) {
		c := rune(s[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '"':
			j := i + 1
			for j < len(s) && s[j] != '"' {
				if s[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(s) {
				return nil, fmt.Errorf("unterminated string in %q", s)
			}
			toks = append(toks, token{tokNum, s[i : j+1]})
			i = j + 1
		case unicode.IsDigit(c):
			j := i
			for j < len(s) && isWordByte(s[j]) {
				j++
			}
			toks = append(toks, token{tokNum, s[i:j]})
			i = j
		case c == '$' || c == '_' || unicode.IsLetter(c):
			j := i + 1
			for j < len(s) && isWordByte(s[j]) {
				j++
			}
			kind := tokIdent
			if c == '$' {
				kind = tokFunc
			}
			toks = append(toks, token{kind, s[i:j]})
			i = j
		default:
			op := ""
			for _, m := range multiOps {
				if strings.HasPrefix(s[i:], m) {
					op = m
					break
				}
			}
			if op == "" {
				if !strings.ContainsRune("+-*/()[]?:,.~!&|^<>", c) {
					return nil, fmt.Errorf("unexpected character %q in %q", c, s)
				}
				op = string(c)
			}
			toks = append(toks, token{tokOp, op})
			i += len(op)
		}
	}
	return append(toks, token{kind: tokEOF}), nil
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) accept(op string) bool {
	if t := p.peek(); t.kind == tokOp && t.text == op {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(op string) error {
	if !p.accept(op) {
		return fmt.Errorf("expected %q, found %q", op, p.peek().text)
	}
	return nil
}

func (p *parser) ternary() (ast.Expr, error) {
	cond, err := p.binary(0)
	if err != nil {
		return nil, err
	}
	if !p.accept("?") {
		return cond, nil
	}
	then, err := p.ternary()
	if err != nil {
		return nil, err
	}
	if err := p.expect(":"); err != nil {
		return nil, err
	}
	els, err := p.ternary()
	if err != nil {
		return nil, err
	}
	return &ast.Ternary{Cond: cond, Then: then, Else: els}, nil
}

// levels lists binary operators from loosest to tightest binding.
var levels = [][]string{
	{"||"},
	{"&&"},
	{"|"},
	{"^"},
	{"&"},
	{"==", "!="},
	{"<", ">", "<=", ">="},
	{"<<", ">>", "<<<", ">>>"},
	{"+", "-"},
	{"*", "/"},
}

func makeBinary(op string, l, r ast.Expr) ast.Expr {
	switch op {
	case "||", "&&":
		return &ast.Logical{Op: op, L: l, R: r}
	case "|", "^", "&":
		return &ast.Bitwise{Op: op, L: l, R: r}
	case "==", "!=", "<", ">", "<=", ">=":
		return &ast.Compare{Op: op, L: l, R: r}
	case "<<", ">>", "<<<", ">>>":
		return &ast.Shift{Op: op, L: l, R: r}
	case "+", "-":
		return &ast.AddSub{Op: op, L: l, R: r}
	}
	return &ast.MulDiv{Op: op, L: l, R: r}
}

func (p *parser) binary(level int) (ast.Expr, error) {
	if level == len(levels) {
		return p.unary()
	}
	l, err := p.binary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		matched := ""
		if t.kind == tokOp {
			for _, op := range levels[level] {
				if t.text == op {
					matched = op
				}
			}
		}
		if matched == "" {
			return l, nil
		}
		p.next()
		r, err := p.binary(level + 1)
		if err != nil {
			return nil, err
		}
		l = makeBinary(matched, l, r)
	}
}

func (p *parser) unary() (ast.Expr, error) {
	t := p.peek()
	if t.kind == tokOp {
		switch t.text {
		case "-":
			p.next()
			x, err := p.unary()
			if err != nil {
				return nil, err
			}
			return &ast.Negate{X: x}, nil
		case "~", "!":
			p.next()
			x, err := p.unary()
			if err != nil {
				return nil, err
			}
			return &ast.Invert{Op: t.text, X: x}, nil
		case "|", "&", "^":
			p.next()
			x, err := p.unary()
			if err != nil {
				return nil, err
			}
			return &ast.Reduce{Op: t.text, X: x}, nil
		}
	}
	return p.primary()
}

func (p *parser) args() ([]ast.Expr, error) {
	var out []ast.Expr
	if p.accept(")") {
		return out, nil
	}
	for {
		x, err := p.ternary()
		if err != nil {
			return nil, err
		}
		out = append(out, x)
		if p.accept(")") {
			return out, nil
		}
		if err := p.expect(","); err != nil {
			return nil, err
		}
	}
}

func (p *parser) primary() (ast.Expr, error) {
	t := p.next()
	switch t.kind {
	case tokNum:
		return &ast.Number{Text: t.text}, nil
	case tokFunc:
		if err := p.expect("("); err != nil {
			return nil, err
		}
		args, err := p.args()
		if err != nil {
			return nil, err
		}
		return &ast.Call{Func: t.text, Args: args}, nil
	case tokIdent:
		return p.signal(t.text)
	case tokOp:
		if t.text == "(" {
			x, err := p.ternary()
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return &ast.Group{X: x}, nil
		}
	}
	if t.kind == tokEOF {
		return nil, fmt.Errorf("unexpected end of expression")
	}
	return nil, fmt.Errorf("unexpected %q", t.text)
}

// signal parses name, ns.name and trailing [index] accessors. A dotted
// pair names a global constant.
func (p *parser) signal(first string) (ast.Expr, error) {
	s := &ast.Signal{}
	name := first
	if p.accept(".") {
		t := p.next()
		if t.kind != tokIdent {
			return nil, fmt.Errorf("expected name after %q.", first)
		}
		s.Namespace, name = first, t.text
	}
	s.Parts = append(s.Parts, &ast.Name{Text: name})
	var bs *ast.BitSelection
	for p.accept("[") {
		x, err := p.ternary()
		if err != nil {
			return nil, err
		}
		if bs == nil {
			bs = &ast.BitSelection{}
		}
		switch {
		case p.accept(":"):
			lo, err := p.ternary()
			if err != nil {
				return nil, err
			}
			bs.Selector = &ast.ConstSelector{Hi: x, Lo: lo}
		case p.accept("+:"), p.accept("-:"):
			down := p.toks[p.pos-1].text == "-:"
			w, err := p.ternary()
			if err != nil {
				return nil, err
			}
			bs.Selector = &ast.FixedSelector{Start: x, Width: w, Down: down}
		default:
			bs.Indices = append(bs.Indices, x)
		}
		if err := p.expect("]"); err != nil {
			return nil, err
		}
		if bs.Selector != nil {
			break
		}
	}
	if bs != nil {
		s.Parts = append(s.Parts, bs)
	}
	return &ast.SignalExpr{Signal: s}, nil
}
