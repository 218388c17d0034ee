package policy

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/open-policy-agent/opa/rego"

	"github.com/robert-at-pretension-io/lucid-width/internal/facts"
)

//go:embed widths.rego
var widthsPolicy string

// Engine evaluates the width policy against analysis diagnostics
type Engine struct {
	violations rego.PreparedEvalQuery
	summary    rego.PreparedEvalQuery
}

// Violation is a diagnostic after severity mapping
type Violation struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Module   string `json:"module"`
	File     string `json:"file"`
	Line     int    `json:"line"`
	Col      int    `json:"col"`
	Message  string `json:"message"`
}

// Result contains the evaluation results
type Result struct {
	Violations []Violation `json:"violations"`
	Summary    Summary     `json:"summary"`
}

// Summary provides aggregate counts
type Summary struct {
	TotalViolations   int `json:"total_violations"`
	Errors            int `json:"errors"`
	Warnings          int `json:"warnings"`
	Info              int `json:"info"`
	ModulesWithErrors int `json:"modules_with_errors"`
}

// Input is the data structure passed to OPA
type Input struct {
	Diagnostics  []facts.DiagnosticRow `json:"diagnostics"`
	Rules        map[string]string     `json:"rules"`
	ShowInternal bool                  `json:"show_internal"`
}

// New prepares the embedded width policy. When policyDir is not empty,
// every .rego file in it is loaded as well; such files extend the
// lucid.widths package.
func New(ctx context.Context, policyDir string) (*Engine, error) {
	modules := []func(*rego.Rego){rego.Module("widths.rego", widthsPolicy)}

	if policyDir != "" {
		files, err := filepath.Glob(filepath.Join(policyDir, "*.rego"))
		if err != nil {
			return nil, fmt.Errorf("finding policy files: %w", err)
		}
		for _, f := range files {
			content, err := os.ReadFile(f)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", f, err)
			}
			modules = append(modules, rego.Module(f, string(content)))
		}
	}

	prepare := func(query string) (rego.PreparedEvalQuery, error) {
		opts := append(append([]func(*rego.Rego){}, modules...), rego.Query(query))
		return rego.New(opts...).PrepareForEval(ctx)
	}

	engine := &Engine{}
	var err error
	if engine.violations, err = prepare("data.lucid.widths.violations"); err != nil {
		return nil, fmt.Errorf("preparing violations query: %w", err)
	}
	if engine.summary, err = prepare("data.lucid.widths.summary"); err != nil {
		return nil, fmt.Errorf("preparing summary query: %w", err)
	}
	return engine, nil
}

// Evaluate runs the policy against the input data
func (e *Engine) Evaluate(ctx context.Context, input Input) (*Result, error) {
	if input.Diagnostics == nil {
		input.Diagnostics = []facts.DiagnosticRow{}
	}
	if input.Rules == nil {
		input.Rules = map[string]string{}
	}
	inputMap, err := structToMap(input)
	if err != nil {
		return nil, fmt.Errorf("converting input: %w", err)
	}

	result := &Result{Violations: []Violation{}}

	rs, err := e.violations.Eval(ctx, rego.EvalInput(inputMap))
	if err != nil {
		return nil, fmt.Errorf("evaluating violations: %w", err)
	}
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		if violations, ok := rs[0].Expressions[0].Value.([]interface{}); ok {
			for _, v := range violations {
				vmap, ok := v.(map[string]interface{})
				if !ok {
					continue
				}
				result.Violations = append(result.Violations, Violation{
					Rule:     getString(vmap, "rule"),
					Severity: getString(vmap, "severity"),
					Module:   getString(vmap, "module"),
					File:     getString(vmap, "file"),
					Line:     getInt(vmap, "line"),
					Col:      getInt(vmap, "col"),
					Message:  getString(vmap, "message"),
				})
			}
		}
	}
	sortViolations(result.Violations)

	rs, err = e.summary.Eval(ctx, rego.EvalInput(inputMap))
	if err != nil {
		return nil, fmt.Errorf("evaluating summary: %w", err)
	}
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		if smap, ok := rs[0].Expressions[0].Value.(map[string]interface{}); ok {
			result.Summary = Summary{
				TotalViolations:   getInt(smap, "total_violations"),
				Errors:            getInt(smap, "errors"),
				Warnings:          getInt(smap, "warnings"),
				Info:              getInt(smap, "info"),
				ModulesWithErrors: getInt(smap, "modules_with_errors"),
			}
		}
	}

	return result, nil
}

// sortViolations orders violations by location; the policy returns a set.
func sortViolations(vs []Violation) {
	sort.Slice(vs, func(i, j int) bool {
		a, b := vs[i], vs[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Col != b.Col {
			return a.Col < b.Col
		}
		return a.Rule < b.Rule
	})
}

// Helper functions
func structToMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	err = json.Unmarshal(data, &result)
	return result, err
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getInt(m map[string]interface{}, key string) int {
	if v, ok := m[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		case json.Number:
			i, _ := n.Int64()
			return int(i)
		}
	}
	return 0
}
