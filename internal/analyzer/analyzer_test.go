package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"

	"github.com/robert-at-pretension-io/lucid-width/internal/config"
)

const childDesign = `{
  "file": "child.luc",
  "modules": [{
    "name": "child",
    "line": 1,
    "ports": [
      {"dir": "input", "name": "x", "line": 2, "sizes": [{"kind": "num", "text": "%s"}]},
      {"dir": "output", "name": "q", "line": 3, "sizes": [{"kind": "num", "text": "4"}]}
    ]
  }]
}`

const topDesign = `{
  "file": "top.luc",
  "modules": [{
    "name": "top",
    "line": 1,
    "ports": [
      {"dir": "input", "name": "a", "line": 2, "sizes": [{"kind": "num", "text": "8"}]}
    ],
    "items": [
      {"kind": "inst", "module": "child", "name": "u", "line": 4, "name_line": 4, "name_col": 9,
       "connections": [{"port": "x", "value": {"kind": "signal", "line": 4, "col": 15,
         "signal": {"line": 4, "col": 15, "parts": [{"name": "a", "line": 4, "col": 15}]}}}]}
    ]
  }]
}`

func writeDesign(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

// writeProject lays out top instantiating child with an x port of childWidth
// bits. top connects an 8 bit signal to x.
func writeProject(t *testing.T, dir, childWidth string) {
	t.Helper()
	writeDesign(t, dir, "child.ast.json", strings.Replace(childDesign, "%s", childWidth, 1))
	writeDesign(t, dir, "top.ast.json", topDesign)
}

func testConfig(cacheDir string, cacheEnabled bool) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Analysis.Cache.Dir = cacheDir
	enabled := cacheEnabled
	cfg.Analysis.Cache.Enabled = &enabled
	return cfg
}

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestAnalyzer(cfg *config.Config) *Analyzer {
	a := NewWithConfig(cfg)
	a.Log = quietLogger()
	a.JSONOutput = true
	return a
}

func runForTest(t *testing.T, a *Analyzer, rootPath string) LintResult {
	t.Helper()
	var out bytes.Buffer
	a.Out = &out
	if _, err := a.Run(context.Background(), rootPath); err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	var result LintResult
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("parse lint result: %v\n%s", err, out.String())
	}
	return result
}

func rules(r LintResult) []string {
	var out []string
	for _, v := range r.Violations {
		out = append(out, v.Rule+"@"+v.File)
	}
	return out
}

func TestRunReportsPortMismatch(t *testing.T) {
	dir := t.TempDir()
	writeProject(t, dir, "4")

	result := runForTest(t, newTestAnalyzer(testConfig(filepath.Join(dir, ".cache"), false)), dir)

	if diff := cmp.Diff([]string{"port_dim_mismatch@top.luc"}, rules(result)); diff != "" {
		t.Errorf("violations (-want +got):\n%s", diff)
	}
	if result.Summary.Errors != 1 || result.Summary.ModulesWithErrors != 1 {
		t.Errorf("summary = %+v", result.Summary)
	}
	if result.Stats.Files != 2 || result.Stats.Modules != 2 {
		t.Errorf("stats = %+v", result.Stats)
	}
	want := []FileResult{{Path: "top.luc", Errors: 1}}
	if diff := cmp.Diff(want, result.Files); diff != "" {
		t.Errorf("files (-want +got):\n%s", diff)
	}
}

func TestRunRuleOverride(t *testing.T) {
	dir := t.TempDir()
	writeProject(t, dir, "4")
	cfg := testConfig(filepath.Join(dir, ".cache"), false)
	cfg.Lint.Rules["port_dim_mismatch"] = "off"

	result := runForTest(t, newTestAnalyzer(cfg), dir)
	if len(result.Violations) != 0 {
		t.Errorf("expected no violations, got %v", rules(result))
	}
}

func TestRunSkipsInvalidDesign(t *testing.T) {
	dir := t.TempDir()
	writeProject(t, dir, "8")
	writeDesign(t, dir, "broken.ast.json", `{"modules": [{"name": "m", "ports": [{"dir": "sideways", "name": "p"}]}]}`)

	result := runForTest(t, newTestAnalyzer(testConfig(filepath.Join(dir, ".cache"), false)), dir)

	if len(result.ParseErrors) != 1 || filepath.Base(result.ParseErrors[0].File) != "broken.ast.json" {
		t.Fatalf("parse errors = %+v", result.ParseErrors)
	}
	if !strings.Contains(result.ParseErrors[0].Message, "design contract violation") {
		t.Errorf("message = %q", result.ParseErrors[0].Message)
	}
	if result.Stats.Files != 2 {
		t.Errorf("expected the valid files to be analysed, stats = %+v", result.Stats)
	}
}

func TestRunSingleFile(t *testing.T) {
	dir := t.TempDir()
	writeProject(t, dir, "8")

	result := runForTest(t, newTestAnalyzer(testConfig(filepath.Join(dir, ".cache"), false)), filepath.Join(dir, "child.ast.json"))
	if result.Stats.Files != 1 || result.Stats.Modules != 1 {
		t.Errorf("stats = %+v", result.Stats)
	}
}

func TestCacheReusesUnchangedFiles(t *testing.T) {
	dir := t.TempDir()
	writeProject(t, dir, "4")
	cfg := testConfig(filepath.Join(dir, ".cache"), true)

	first := runForTest(t, newTestAnalyzer(cfg), dir)
	if first.Stats.CachedFiles != 0 {
		t.Fatalf("first run used the cache: %+v", first.Stats)
	}
	second := runForTest(t, newTestAnalyzer(cfg), dir)
	if second.Stats.CachedFiles != 2 {
		t.Fatalf("second run cached %d files, want 2", second.Stats.CachedFiles)
	}
	if diff := cmp.Diff(first.Violations, second.Violations); diff != "" {
		t.Errorf("cached violations differ (-first +second):\n%s", diff)
	}

	tables, ok, err := LoadFactTables(filepath.Join(dir, ".cache"))
	if err != nil || !ok {
		t.Fatalf("LoadFactTables = %v, %v", ok, err)
	}
	if len(tables.Files) != 2 {
		t.Errorf("saved tables have %d files", len(tables.Files))
	}
}

func TestCacheInvalidatesDependents(t *testing.T) {
	dir := t.TempDir()
	writeProject(t, dir, "4")
	cfg := testConfig(filepath.Join(dir, ".cache"), true)

	first := runForTest(t, newTestAnalyzer(cfg), dir)
	if len(first.Violations) != 1 {
		t.Fatalf("expected one violation, got %v", rules(first))
	}

	// Widening child.x fixes top without touching top.ast.json.
	writeDesign(t, dir, "child.ast.json", strings.Replace(childDesign, "%s", "8", 1))
	second := runForTest(t, newTestAnalyzer(cfg), dir)
	if second.Stats.CachedFiles != 0 {
		t.Errorf("cached %d files after a dependency changed", second.Stats.CachedFiles)
	}
	if len(second.Violations) != 0 {
		t.Errorf("stale violations: %v", rules(second))
	}
}

func TestTextReport(t *testing.T) {
	dir := t.TempDir()
	writeProject(t, dir, "4")

	a := NewWithConfig(testConfig(filepath.Join(dir, ".cache"), false))
	a.Log = quietLogger()
	var out bytes.Buffer
	a.Out = &out
	result, err := a.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	if result.Summary.Errors != 1 {
		t.Fatalf("summary = %+v", result.Summary)
	}
	text := out.String()
	for _, want := range []string{
		"Found 2 design files",
		"=== Width Diagnostics ===",
		"✗ [port_dim_mismatch] top.luc:",
		"=== Analysis Summary ===",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report lacks %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "\033[") {
		t.Errorf("report to a buffer must not be coloured")
	}
}
