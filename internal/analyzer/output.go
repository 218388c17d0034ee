package analyzer

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/robert-at-pretension-io/lucid-width/internal/policy"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// useColor reports whether out is an interactive terminal. NO_COLOR wins.
func useColor(out io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func severityMark(sev string, color bool) string {
	mark, code := "ℹ", colorCyan
	switch sev {
	case "error":
		mark, code = "✗", colorRed
	case "warning":
		mark, code = "⚠", colorYellow
	}
	if !color {
		return mark
	}
	return code + mark + colorReset
}

func formatViolation(v policy.Violation, color bool) string {
	loc := v.File
	if v.Line > 0 {
		loc = fmt.Sprintf("%s:%d:%d", v.File, v.Line, v.Col)
	}
	if v.Module != "" {
		loc += " (" + v.Module + ")"
	}
	return fmt.Sprintf("%s [%s] %s - %s", severityMark(v.Severity, color), v.Rule, loc, v.Message)
}

func printReport(out io.Writer, r *LintResult, color bool) {
	if len(r.ParseErrors) > 0 {
		fmt.Fprintf(out, "\n=== Load Errors ===\n")
		for _, pe := range r.ParseErrors {
			fmt.Fprintf(out, "%s %s: %s\n", severityMark("error", color), pe.File, pe.Message)
		}
	}

	if len(r.Violations) > 0 {
		fmt.Fprintf(out, "\n=== Width Diagnostics ===\n")
		for _, v := range r.Violations {
			fmt.Fprintln(out, formatViolation(v, color))
		}
		fmt.Fprintf(out, "\n=== Summary ===\n")
		fmt.Fprintf(out, "  Errors:   %d\n", r.Summary.Errors)
		fmt.Fprintf(out, "  Warnings: %d\n", r.Summary.Warnings)
		fmt.Fprintf(out, "  Info:     %d\n", r.Summary.Info)
		if r.Summary.ModulesWithErrors > 0 {
			fmt.Fprintf(out, "  Modules with errors: %d\n", r.Summary.ModulesWithErrors)
		}
	} else {
		fmt.Fprintf(out, "\nNo width problems found.\n")
	}

	fmt.Fprintf(out, "\n=== Analysis Summary ===\n")
	fmt.Fprintf(out, "  Files:       %d", r.Stats.Files)
	if r.Stats.CachedFiles > 0 {
		fmt.Fprintf(out, " (%d cached)", r.Stats.CachedFiles)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Modules:     %d\n", r.Stats.Modules)
	fmt.Fprintf(out, "  Widths:      %d\n", r.Stats.Widths)
	fmt.Fprintf(out, "  Decorations: %d\n", r.Stats.Decorations)
}
