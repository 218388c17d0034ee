package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/robert-at-pretension-io/lucid-width/internal/ast"
	"github.com/robert-at-pretension-io/lucid-width/internal/decls"
)

// dependentsGraph maps a source file to the files whose results change
// when it changes.
type dependentsGraph map[string]map[string]bool

func buildDependentsGraph(files []*loadedFile, table *decls.Table) dependentsGraph {
	graph := make(dependentsGraph)
	for _, lf := range files {
		for _, dep := range resolveDependencies(lf.AST, files, table) {
			if strings.HasPrefix(dep, "?") || dep == lf.Source {
				continue
			}
			if graph[dep] == nil {
				graph[dep] = make(map[string]bool)
			}
			graph[dep][lf.Source] = true
		}
	}
	return graph
}

// resolveDependencies lists the files f reads declarations from: the files
// declaring the modules it instantiates and every file declaring globals.
// An instance of an unknown module is listed as "?name" so that declaring
// the module later invalidates f.
func resolveDependencies(f *ast.File, files []*loadedFile, table *decls.Table) []string {
	set := make(map[string]bool)
	for _, m := range f.Modules {
		forEachInstance(m.Items, func(inst *ast.ModuleInst) {
			if md, ok := table.Module(inst.Module); ok {
				set[md.File] = true
			} else {
				set["?"+inst.Module] = true
			}
		})
	}
	for _, other := range files {
		if len(other.AST.Globals) > 0 {
			set[other.Source] = true
		}
	}
	delete(set, f.Path)

	deps := make([]string, 0, len(set))
	for d := range set {
		deps = append(deps, d)
	}
	sort.Strings(deps)
	return deps
}

func forEachInstance(items []ast.Item, fn func(*ast.ModuleInst)) {
	for _, it := range items {
		switch it := it.(type) {
		case *ast.ModuleInst:
			fn(it)
		case *ast.AssignBlock:
			forEachInstance(it.Items, fn)
		}
	}
}

// dependencyHash fingerprints the content of every dependency of f.
func dependencyHash(f *ast.File, files []*loadedFile, table *decls.Table, hashes map[string]string) string {
	d := xxhash.New()
	fmt.Fprintf(d, "v%d\n", resultCacheVersion)
	for _, dep := range resolveDependencies(f, files, table) {
		fmt.Fprintf(d, "%s=%s\n", dep, hashes[dep])
	}
	return fmt.Sprintf("%016x", d.Sum64())
}

type impactReport struct {
	Root   string
	Levels [][]string
}

func computeImpact(root string, dependents dependentsGraph) impactReport {
	visited := map[string]bool{root: true}
	frontier := []string{root}
	var levels [][]string

	for len(frontier) > 0 {
		var next []string
		for _, f := range frontier {
			for dep := range dependents[f] {
				if visited[dep] {
					continue
				}
				visited[dep] = true
				next = append(next, dep)
			}
		}
		if len(next) == 0 {
			break
		}
		sort.Strings(next)
		levels = append(levels, next)
		frontier = next
	}

	return impactReport{Root: root, Levels: levels}
}

func formatImpactReport(report impactReport) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("  %s\n", report.Root))
	for i, level := range report.Levels {
		b.WriteString(fmt.Sprintf("    level %d (%d): %s\n", i+1, len(level), strings.Join(level, ", ")))
	}
	return b.String()
}
