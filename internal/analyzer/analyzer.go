package analyzer

// The analyzer runs the width pipeline over parser output:
// scan, load (CUE contract + decode), declaration tables, per-module
// analysis, fact tables (CUE contract), Rego policy, output.
//
// A file that breaks the design contract is reported and skipped. A broken
// fact table or policy is fatal: both mean a bug in this program, not in
// the design.

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/robert-at-pretension-io/lucid-width/internal/ast"
	"github.com/robert-at-pretension-io/lucid-width/internal/checker"
	"github.com/robert-at-pretension-io/lucid-width/internal/config"
	"github.com/robert-at-pretension-io/lucid-width/internal/decls"
	"github.com/robert-at-pretension-io/lucid-width/internal/diag"
	"github.com/robert-at-pretension-io/lucid-width/internal/facts"
	"github.com/robert-at-pretension-io/lucid-width/internal/policy"
	"github.com/robert-at-pretension-io/lucid-width/internal/validator"
)

// Analyzer checks every module of a design and reports width problems.
type Analyzer struct {
	// Configuration loaded from lucid_width.json or .yaml
	Config *config.Config

	// Log receives pipeline progress and internal diagnostics
	Log logrus.FieldLogger

	// Out receives the report; defaults to stdout
	Out io.Writer

	// Verbose output (timing summary, cache impact)
	Verbose bool

	// Progress output (one line per file)
	Progress bool

	// JSON output mode
	JSONOutput bool

	// Quiet suppresses the report entirely
	Quiet bool

	// Timing output (JSONL)
	Timing     bool
	TimingPath string

	// PolicyDir holds extra .rego files extending lucid.widths
	PolicyDir string
}

// LintResult is the structured result of a run.
// This can be serialized to JSON for programmatic consumption
type LintResult struct {
	Violations  []policy.Violation `json:"violations"`
	Summary     policy.Summary     `json:"summary"`
	Stats       Stats              `json:"stats"`
	Files       []FileResult       `json:"files"`
	ParseErrors []ParseError       `json:"parse_errors,omitempty"`

	// Tables holds every fact row of the run
	Tables facts.Tables `json:"-"`
}

// Stats counts what the run looked at
type Stats struct {
	Files       int `json:"files"`
	Modules     int `json:"modules"`
	Widths      int `json:"widths"`
	Decorations int `json:"decorations"`
	Diagnostics int `json:"diagnostics"`
	CachedFiles int `json:"cached_files"`
}

// FileResult provides per-file violation counts
type FileResult struct {
	Path     string `json:"path"`
	Errors   int    `json:"errors"`
	Warnings int    `json:"warnings"`
	Info     int    `json:"info"`
}

// ParseError is a file that could not be loaded
type ParseError struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// loadedFile is one decoded parser output file.
type loadedFile struct {
	Path   string // parser output on disk
	Source string // source file the output describes
	Hash   string
	AST    *ast.File
}

// New creates an analyzer that loads its configuration on Run.
func New() *Analyzer {
	return NewWithConfig(nil)
}

// NewWithConfig creates an analyzer with a preloaded configuration.
func NewWithConfig(cfg *config.Config) *Analyzer {
	return &Analyzer{
		Config: cfg,
		Log:    logrus.StandardLogger(),
		Out:    os.Stdout,
	}
}

func (a *Analyzer) out() io.Writer {
	if a.Quiet || a.Out == nil {
		return io.Discard
	}
	return a.Out
}

func (a *Analyzer) logger() logrus.FieldLogger {
	if a.Log == nil {
		return logrus.StandardLogger()
	}
	return a.Log
}

func (a *Analyzer) parallelism() int {
	if n := a.Config.Analysis.MaxParallelModules; n > 0 {
		return n
	}
	return runtime.GOMAXPROCS(0)
}

func (a *Analyzer) text() bool {
	return !a.JSONOutput && !a.Quiet
}

// Run analyses every design file below rootPath, or the single file
// rootPath names.
func (a *Analyzer) Run(ctx context.Context, rootPath string) (*LintResult, error) {
	runStart := time.Now()
	pipelineErrs := make([]error, 0)
	recordPipelineErr := func(err error) {
		pipelineErrs = append(pipelineErrs, err)
	}
	timing := newTimingRecorder(runStart, a.resolveTimingPath(rootPath))
	if err := timing.Err(); err != nil {
		recordPipelineErr(fmt.Errorf("timing output disabled: %w", err))
	}
	defer timing.Close()
	log := a.logger()
	out := a.out()

	if a.Config == nil {
		cfg, err := config.Load(rootPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		a.Config = cfg
	}

	// 1. Find parser output files
	stepStart := time.Now()
	files, err := a.findDesignFiles(rootPath)
	if err != nil {
		return nil, fmt.Errorf("scanning files: %w", err)
	}
	if a.text() {
		fmt.Fprintf(out, "Found %d design files\n", len(files))
	}
	log.WithField("files", len(files)).Debug("scan done")
	timing.Stage("scan", stepStart, "")

	var cache *resultCache
	var cacheDir string
	if a.Config.CacheEnabled() {
		cacheDir = ResolveCacheDir(rootPath, a.Config)
		cache = newResultCache(cacheDir)
		if err := cache.Load(); err != nil {
			recordPipelineErr(fmt.Errorf("cache disabled: %w", err))
			cache = nil
		}
	}

	// 2. Validate against the design contract and decode
	stepStart = time.Now()
	design, err := validator.New()
	if err != nil {
		return nil, fmt.Errorf("CRITICAL: failed to initialize design validator: %w", err)
	}
	if a.Progress && a.text() {
		fmt.Fprintf(out, "\n=== Load Progress ===\n")
	}
	loaded, parseErrs, err := a.loadFiles(ctx, files, design, cache, timing)
	if err != nil {
		return nil, err
	}
	timing.Stage("load", stepStart, "")

	// 3. Declaration tables across all files
	stepStart = time.Now()
	asts := make([]*ast.File, 0, len(loaded))
	for _, lf := range loaded {
		asts = append(asts, lf.AST)
	}
	table, err := decls.Collect(asts)
	if err != nil {
		return nil, fmt.Errorf("collect declarations: %w", err)
	}
	timing.Stage("declarations", stepStart, "")

	// 4. Per-module analysis, reusing cached rows of unchanged files
	stepStart = time.Now()
	run := &analysis{
		loaded: loaded,
		table:  table,
		cache:  cache,
		timing: timing,
		log:    log,
	}
	if err := run.execute(ctx, a.parallelism()); err != nil {
		return nil, err
	}
	for _, err := range run.errs {
		recordPipelineErr(err)
	}
	timing.Stage("analyze", stepStart, fmt.Sprintf("%d cached", run.hits))

	if cache != nil && len(run.changed) > 0 && (a.Verbose || a.Progress) && a.text() {
		fmt.Fprintf(out, "\n=== Cache Impact ===\n")
		dependents := buildDependentsGraph(loaded, table)
		changedList := make([]string, 0, len(run.changed))
		for f := range run.changed {
			changedList = append(changedList, f)
		}
		sort.Strings(changedList)
		for _, f := range changedList {
			fmt.Fprint(out, formatImpactReport(computeImpact(f, dependents)))
		}
	}

	// 5. Fact tables and their contract
	stepStart = time.Now()
	tables := facts.Merge(run.tables...)
	factsValidator, err := validator.NewFactsValidator()
	if err != nil {
		return nil, fmt.Errorf("CRITICAL: failed to initialize facts validator: %w", err)
	}
	if err := factsValidator.Validate(tables); err != nil {
		return nil, fmt.Errorf("CRITICAL: fact table contract violation: %w", err)
	}
	timing.Stage("facts_validate", stepStart, "")

	// 6. Policy
	stepStart = time.Now()
	engine, err := policy.New(ctx, a.PolicyDir)
	if err != nil {
		return nil, fmt.Errorf("initialize policy engine: %w", err)
	}
	policyResult, err := engine.Evaluate(ctx, policy.Input{
		Diagnostics:  tables.Diagnostics,
		Rules:        a.Config.Lint.Rules,
		ShowInternal: a.Config.Lint.ShowInternal,
	})
	if err != nil {
		return nil, fmt.Errorf("policy evaluation failed: %w", err)
	}
	timing.Stage("policy", stepStart, "")

	lintResult := &LintResult{
		ParseErrors: parseErrs,
		Stats: Stats{
			Files:       len(tables.Files),
			Modules:     len(tables.Modules),
			Widths:      len(tables.Widths),
			Decorations: len(tables.Decorations),
			Diagnostics: len(tables.Diagnostics),
			CachedFiles: run.hits,
		},
		Tables: tables,
	}
	applyPolicyResult(lintResult, policyResult)

	if cache != nil {
		keep := make(map[string]bool, len(loaded))
		for _, lf := range loaded {
			keep[lf.Path] = true
		}
		cache.Prune(keep)
		if err := cache.Save(); err != nil {
			recordPipelineErr(fmt.Errorf("cache save failed: %w", err))
		}
		if err := saveFactTables(cacheDir, tables); err != nil {
			recordPipelineErr(fmt.Errorf("fact tables cache save failed: %w", err))
		}
	}

	// Output results
	if a.JSONOutput && !a.Quiet {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(lintResult); err != nil {
			return nil, fmt.Errorf("failed to encode JSON output: %w", err)
		}
	} else if a.text() {
		printReport(out, lintResult, useColor(out))
	}

	timing.Stage("total", runStart, "")
	if a.Verbose && a.text() {
		fmt.Fprintf(out, "\n=== Timing Summary ===\n")
		fmt.Fprint(out, timing.Summary())
	}

	if len(pipelineErrs) > 0 {
		return lintResult, fmt.Errorf("pipeline errors:\n%s", formatPipelineErrors(pipelineErrs))
	}
	return lintResult, nil
}

func (a *Analyzer) findDesignFiles(rootPath string) ([]string, error) {
	info, err := os.Stat(rootPath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{rootPath}, nil
	}
	return a.Config.ResolveSources(rootPath)
}

func (a *Analyzer) loadFiles(ctx context.Context, paths []string, v *validator.Validator, cache *resultCache, timing *timingRecorder) ([]*loadedFile, []ParseError, error) {
	slots := make([]*loadedFile, len(paths))
	errs := make([]error, len(paths))
	var progressMu sync.Mutex
	progress := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.parallelism())
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			lf, status, err := loadFile(p, v, cache)
			if err != nil {
				errs[i] = err
				status = "error"
			} else {
				slots[i] = lf
			}
			timing.File("load", p, status, start)
			if a.Progress && a.text() {
				progressMu.Lock()
				progress++
				fmt.Fprintf(a.out(), "  [%d/%d] %s (%s, %s)\n", progress, len(paths), p, status, formatDuration(time.Since(start)))
				progressMu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var loaded []*loadedFile
	var parseErrs []ParseError
	for i, p := range paths {
		if errs[i] != nil {
			a.logger().WithField("file", p).WithError(errs[i]).Warn("skipping design file")
			parseErrs = append(parseErrs, ParseError{File: p, Message: errs[i].Error()})
			continue
		}
		loaded = append(loaded, slots[i])
	}
	return loaded, parseErrs, nil
}

// loadFile reads, validates and decodes one parser output file. Content the
// cache has seen before skips the contract check.
func loadFile(path string, v *validator.Validator, cache *resultCache) (*loadedFile, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	hash := hashBytes(data)
	status := "validated"
	if cache != nil && cache.Validated(path, hash) {
		status = "cache_hit"
	} else if errs := v.ValidationErrors(data); len(errs) > 0 {
		return nil, "", fmt.Errorf("design contract violation:\n  %s", strings.Join(errs, "\n  "))
	}
	f, err := ast.Decode(data)
	if err != nil {
		return nil, "", err
	}
	return &loadedFile{Path: path, Source: f.Path, Hash: hash, AST: f}, status, nil
}

// analysis is the state of step 4 of one run.
type analysis struct {
	loaded []*loadedFile
	table  *decls.Table
	cache  *resultCache
	timing *timingRecorder
	log    logrus.FieldLogger

	tables  []facts.Tables
	changed map[string]bool
	hits    int
	errs    []error
}

func (r *analysis) execute(ctx context.Context, limit int) error {
	hashes := make(map[string]string, len(r.loaded))
	for _, lf := range r.loaded {
		hashes[lf.Source] = lf.Hash
	}

	type job struct{ file, mod int }
	var jobs []job
	r.tables = make([]facts.Tables, len(r.loaded))
	r.changed = make(map[string]bool)
	results := make([][]facts.ModuleFacts, len(r.loaded))
	depsHashes := make([]string, len(r.loaded))
	cached := make([]bool, len(r.loaded))

	for i, lf := range r.loaded {
		depsHashes[i] = dependencyHash(lf.AST, r.loaded, r.table, hashes)
		if r.cache != nil {
			tables, ok, err := r.cache.Get(lf.Path, lf.Hash, depsHashes[i])
			if err != nil {
				r.errs = append(r.errs, fmt.Errorf("cache read failed for %s: %w", lf.Path, err))
			} else if ok {
				r.log.WithField("file", lf.Path).Debug("reusing cached results")
				r.tables[i] = tables
				cached[i] = true
				r.hits++
				continue
			}
		}
		results[i] = make([]facts.ModuleFacts, len(lf.AST.Modules))
		for j := range lf.AST.Modules {
			jobs = append(jobs, job{i, j})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, jb := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			lf := r.loaded[jb.file]
			mod := lf.AST.Modules[jb.mod]
			sink := diag.NewCollector(mod.Name, r.log)
			res := checker.Check(checker.Env{Decls: r.table, Sink: sink}, mod)
			diag.Sort(sink.Diagnostics)
			decl, _ := r.table.Module(mod.Name)
			results[jb.file][jb.mod] = facts.ModuleFacts{
				File:        lf.Source,
				Decl:        decl,
				Result:      res,
				Diagnostics: sink.Diagnostics,
			}
			r.timing.File("analyze", mod.Name, "", start)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, lf := range r.loaded {
		if cached[i] {
			continue
		}
		r.tables[i] = facts.BuildTables(lf.Source, lf.Hash, results[i])
		r.changed[lf.Source] = true
		if r.cache != nil {
			if err := r.cache.Put(lf.Path, lf.Hash, depsHashes[i], r.tables[i]); err != nil {
				r.errs = append(r.errs, fmt.Errorf("cache write failed for %s: %w", lf.Path, err))
			}
		}
	}
	return nil
}

func formatPipelineErrors(errs []error) string {
	var b strings.Builder
	for i, err := range errs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func applyPolicyResult(lintResult *LintResult, result *policy.Result) {
	if lintResult == nil || result == nil {
		return
	}
	lintResult.Violations = result.Violations
	lintResult.Summary = result.Summary

	fileViolations := make(map[string]*FileResult)
	for _, v := range result.Violations {
		fr, ok := fileViolations[v.File]
		if !ok {
			fr = &FileResult{Path: v.File}
			fileViolations[v.File] = fr
		}
		switch v.Severity {
		case "error":
			fr.Errors++
		case "warning":
			fr.Warnings++
		case "info":
			fr.Info++
		}
	}
	lintResult.Files = make([]FileResult, 0, len(fileViolations))
	for _, fr := range fileViolations {
		lintResult.Files = append(lintResult.Files, *fr)
	}
	sort.Slice(lintResult.Files, func(i, j int) bool { return lintResult.Files[i].Path < lintResult.Files[j].Path })
}
