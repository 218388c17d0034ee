// Package diag collects the diagnostics produced while checking widths.
package diag

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/robert-at-pretension-io/lucid-width/internal/ast"
)

// Severity of a diagnostic.
type Severity string

const (
	SeverityError    Severity = "error"
	SeverityWarning  Severity = "warning"
	SeverityInternal Severity = "internal"
)

// Code identifies a diagnostic. Codes are the keys users configure rule
// severities with.
type Code string

const (
	UnknownNamespace  Code = "unknown_namespace"
	UnknownConstant   Code = "unknown_constant"
	UnknownStruct     Code = "unknown_struct"
	UnknownMember     Code = "unknown_struct_member"
	NotAMember        Code = "not_a_struct"
	StructNotArray    Code = "struct_not_array"
	IndexOutOfBounds  Code = "array_index_out_of_bounds"
	IndexDimMismatch  Code = "array_index_dim_mismatch"
	ExtraBitSelectors Code = "extra_bit_selectors"
	BitSelectorInName Code = "bit_selector_in_name"

	ExprNotConstant   Code = "expr_not_constant"
	ArraySizeMultiDim Code = "array_size_multi_dim"
	ArraySizeNaN      Code = "array_size_nan"
	ArraySizeNeg      Code = "array_size_neg"
	ArraySizeTooBig   Code = "array_size_too_big"

	ModuleDimParseFailed Code = "module_dim_parse_failed"
	ModuleSizeNaN        Code = "module_io_size_nan"
	PortDimMismatch      Code = "port_dim_mismatch"

	AssignDimMismatch Code = "assign_array_dim_mismatch"
	AssignNotArray    Code = "assign_sig_not_array"
	Truncation        Code = "truncation"

	NotSimpleArray      Code = "not_simple_array"
	ConcatStruct        Code = "array_concat_struct"
	ConcatDimMismatch   Code = "array_concat_dim_mismatch"
	DupCountMultiDim    Code = "array_dup_count_multi_dim"
	DupCountNaN         Code = "array_dup_count_nan"
	DupCountNeg         Code = "array_dup_count_neg"
	DupCountNotConstant Code = "array_dup_count_not_constant"
	DupStruct           Code = "array_dup_struct"
	ArrayLitDimMismatch Code = "array_building_dim_mismatch"
	MulDivStruct        Code = "mul_div_struct"
	MulMultiDim         Code = "mul_multi_dim"
	DivMultiDim         Code = "div_multi_dim"
	AddSubNotArray      Code = "add_sub_not_array"
	AddMultiDim         Code = "add_multi_dim"
	SubMultiDim         Code = "sub_multi_dim"
	ShiftNotArray       Code = "shift_not_array"
	ShiftMultiDim       Code = "shift_multi_dim"
	AndDimMismatch      Code = "and_multi_dim_mismatch"
	OrDimMismatch       Code = "or_multi_dim_mismatch"
	XorDimMismatch      Code = "xor_multi_dim_mismatch"
	EqDimMismatch       Code = "op_eq_dim_mismatch"
	NeqDimMismatch      Code = "op_neq_dim_mismatch"
	LtNotArray          Code = "op_lt_array"
	GtNotArray          Code = "op_gt_array"
	LteNotArray         Code = "op_lte_array"
	GteNotArray         Code = "op_gte_array"
	TernDimMismatch     Code = "op_tern_dim_mismatch"

	UnknownFunction Code = "unknown_function"
	ConstUnresolved Code = "const_unresolved"
	ZeroDepth       Code = "zero_depth"
	MissingWidth    Code = "missing_width"
)

var templates = map[Code]string{
	UnknownNamespace:  "the namespace %q has not been declared",
	UnknownConstant:   "the constant %q is not declared in namespace %q",
	UnknownStruct:     "the struct type %q has not been declared",
	UnknownMember:     "%q is not a member of the struct %s",
	NotAMember:        "%q is not a struct so it has no member %q",
	StructNotArray:    "%q is a struct and cannot be indexed",
	IndexOutOfBounds:  "the index %s is out of bounds for %q (size %d)",
	IndexDimMismatch:  "%q has more indices than its width %s has dimensions",
	ExtraBitSelectors: "%q accepts at most one bit selection",
	BitSelectorInName: "bit selections in %q must follow the complete name %q",

	ExprNotConstant:   "the expression %s must be constant",
	ArraySizeMultiDim: "the array size %s must be a single value",
	ArraySizeNaN:      "the array size %s is not a number",
	ArraySizeNeg:      "the array size %s must not be negative",
	ArraySizeTooBig:   "the array size %s is too large to be used",

	ModuleDimParseFailed: "failed to resolve the width %q of port %q of module %q",
	ModuleSizeNaN:        "the width %q of port %q of module %q is not a number",
	PortDimMismatch:      "the width %s of %q does not match the width %s of port %q",

	AssignDimMismatch: "%q with width %s cannot be assigned the width %s",
	AssignNotArray:    "%q is a single-dimension signal and cannot be assigned the width %s",
	Truncation:        "assigning %q (%d bits) to %q (%d bits) truncates the value",

	NotSimpleArray:      "%s must be a simple array, found width %s",
	ConcatStruct:        "the concatenated value %s must be a simple array, found width %s",
	ConcatDimMismatch:   "the concatenated value %s has width %s that does not match %s",
	DupCountMultiDim:    "the duplication count %s must be a single value",
	DupCountNaN:         "the duplication count %s is not a number",
	DupCountNeg:         "the duplication count %s must not be negative",
	DupCountNotConstant: "the duplication count %s must be constant",
	DupStruct:           "the duplicated value %s must be a simple array, found width %s",
	ArrayLitDimMismatch: "the array element %s has width %s that does not match the first element's width %s",
	MulDivStruct:        "the operand %s of %q must be a simple array",
	MulMultiDim:         "the operand %s of a multiplication must be a single-dimension array",
	DivMultiDim:         "the operand %s of a division must be a single-dimension array",
	AddSubNotArray:      "the operand %s of %q must be a simple array",
	AddMultiDim:         "the operand %s of an addition must be a single-dimension array",
	SubMultiDim:         "the operand %s of a subtraction must be a single-dimension array",
	ShiftNotArray:       "the shifted value %s must be a simple array",
	ShiftMultiDim:       "the shifted value %s must be a single-dimension array",
	AndDimMismatch:      "the operands of %q have mismatched widths %s and %s",
	OrDimMismatch:       "the operands of %q have mismatched widths %s and %s",
	XorDimMismatch:      "the operands of %q have mismatched widths %s and %s",
	EqDimMismatch:       "the operands of %q have mismatched widths %s and %s",
	NeqDimMismatch:      "the operands of %q have mismatched widths %s and %s",
	LtNotArray:          "the operand %s of %q must be a single-dimension array",
	GtNotArray:          "the operand %s of %q must be a single-dimension array",
	LteNotArray:         "the operand %s of %q must be a single-dimension array",
	GteNotArray:         "the operand %s of %q must be a single-dimension array",
	TernDimMismatch:     "the branches of %q have mismatched widths %s and %s",

	UnknownFunction: "unknown function %s",
	ConstUnresolved: "constant expression %s resolved to nothing",
	ZeroDepth:       "%s has a width with no dimensions",
	MissingWidth:    "no width was recorded for %s",
}

// Codes returns every known code in sorted order.
func Codes() []Code {
	out := make([]Code, 0, len(templates))
	for c := range templates {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DefaultSeverity is the severity code is reported with.
func DefaultSeverity(code Code) Severity {
	switch code {
	case Truncation, ArraySizeTooBig:
		return SeverityWarning
	case ConstUnresolved, MissingWidth, NotSimpleArray, UnknownFunction, ZeroDepth:
		return SeverityInternal
	}
	return SeverityError
}

// Message renders the template of code with args.
func Message(code Code, args ...any) string {
	t, ok := templates[code]
	if !ok {
		return fmt.Sprint(append([]any{string(code) + ":"}, args...)...)
	}
	return fmt.Sprintf(t, args...)
}

// Diagnostic is one reported problem.
type Diagnostic struct {
	Code     Code     `json:"code"`
	Severity Severity `json:"severity"`
	Module   string   `json:"module"`
	File     string   `json:"file"`
	Line     int      `json:"line"`
	Col      int      `json:"col"`
	Message  string   `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s [%s]", d.File, d.Line, d.Col, d.Severity, d.Message, d.Code)
}

// Sink receives diagnostics. Reporting never fails and never stops the
// caller.
type Sink interface {
	Error(n ast.Node, code Code, args ...any)
	Warning(n ast.Node, code Code, args ...any)
	Internal(n ast.Node, code Code, args ...any)
}

// Collector is a Sink that keeps diagnostics for one module.
type Collector struct {
	Module      string
	Log         logrus.FieldLogger
	Diagnostics []Diagnostic
}

// NewCollector returns a collector for module. Internal diagnostics are
// also logged to log when it is non-nil.
func NewCollector(module string, log logrus.FieldLogger) *Collector {
	return &Collector{Module: module, Log: log}
}

func (c *Collector) add(n ast.Node, sev Severity, code Code, args []any) {
	d := Diagnostic{
		Code:     code,
		Severity: sev,
		Module:   c.Module,
		Message:  Message(code, args...),
	}
	if n != nil {
		p := n.Position()
		d.File, d.Line, d.Col = p.File, p.Line, p.Col
	}
	c.Diagnostics = append(c.Diagnostics, d)
	if sev == SeverityInternal && c.Log != nil {
		c.Log.WithFields(logrus.Fields{
			"module": c.Module,
			"code":   code,
			"line":   d.Line,
		}).Warn(d.Message)
	}
}

func (c *Collector) Error(n ast.Node, code Code, args ...any) {
	c.add(n, SeverityError, code, args)
}

func (c *Collector) Warning(n ast.Node, code Code, args ...any) {
	c.add(n, SeverityWarning, code, args)
}

func (c *Collector) Internal(n ast.Node, code Code, args ...any) {
	c.add(n, SeverityInternal, code, args)
}

// Count returns how many diagnostics of sev were collected.
func (c *Collector) Count(sev Severity) int {
	n := 0
	for _, d := range c.Diagnostics {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

// Has reports whether a diagnostic with code was collected.
func (c *Collector) Has(code Code) bool {
	for _, d := range c.Diagnostics {
		if d.Code == code {
			return true
		}
	}
	return false
}

// Sort orders diagnostics by file, line and column.
func Sort(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool {
		a, b := ds[i], ds[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Col < b.Col
	})
}
