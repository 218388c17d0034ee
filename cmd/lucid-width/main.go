// =============================================================================
// Lucid Width Checker - Main Entry Point
// =============================================================================
//
// lucid-width reads the parser output of a Lucid design (one .ast.json file
// per source file) and reports width and shape problems.
//
// THE PIPELINE:
//   1. CUE validates every parser output file against the design contract
//   2. Declarations of all files are collected (modules, ports, globals)
//   3. Each module is checked: widths are inferred for every expression,
//      signal, instance and assignment
//   4. Results become relational fact tables, validated by CUE again
//   5. OPA maps diagnostics to configured severities
//   6. Violations are reported with file/line locations
//
// WHEN INVESTIGATING FALSE POSITIVES:
//   Start at the parser output (lucid-debug dumps what the checker saw),
//   then the widths in the fact tables (lucid-facts), then the policy.
// =============================================================================

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/robert-at-pretension-io/lucid-width/internal/analyzer"
	"github.com/robert-at-pretension-io/lucid-width/internal/config"
	"github.com/robert-at-pretension-io/lucid-width/internal/diag"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "init":
			runInit(os.Args[2:])
			return
		case "rules":
			runRules(os.Args[2:])
			return
		case "help":
			printUsage()
			return
		}
	}
	os.Exit(runCheck(os.Args[1:]))
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: lucid-width [command] [options] <path>

Commands:
  init [file]       Create a lucid_width.json (or .yaml) configuration file
  rules             List diagnostic codes and their configured severities
  <path>            Check the parser output files below path, or one file

Options:
  -v, --verbose     Enable verbose output
  -c, --config      Specify config file: lucid-width -c config.json <path>
  --json            Print the result as JSON
  --progress        Print one line per loaded file
  --timing          Write timing events to timing.jsonl
  --timing-out      Write timing events to the given file
  --policy-dir      Load additional .rego files from a directory
  --no-cache        Ignore and do not update the result cache
  -h, --help        Show this help message

Configuration:
  lucid-width looks for configuration in:
    1. ./lucid_width.json, ./.lucid_width.json, ./lucid_width.yaml
    2. the same names in <path>
    3. ~/.config/lucid_width/config.json

  Run 'lucid-width init' to create a default configuration file.

Exit status is 1 when width errors were found and 2 when the check failed.`)
}

func runCheck(args []string) int {
	fs := flag.NewFlagSet("lucid-width", flag.ExitOnError)
	fs.Usage = printUsage
	verbose := fs.Bool("verbose", false, "")
	fs.BoolVar(verbose, "v", false, "")
	configPath := fs.String("config", "", "")
	fs.StringVar(configPath, "c", "", "")
	jsonOut := fs.Bool("json", false, "")
	progress := fs.Bool("progress", false, "")
	timing := fs.Bool("timing", false, "")
	timingOut := fs.String("timing-out", "", "")
	policyDir := fs.String("policy-dir", "", "")
	noCache := fs.Bool("no-cache", false, "")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		printUsage()
		return 2
	}
	path := fs.Arg(0)

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.WarnLevel)
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg, err := loadConfig(*configPath, path, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config %s: %v\n", *configPath, err)
		return 2
	}
	if *noCache {
		disabled := false
		cfg.Analysis.Cache.Enabled = &disabled
	}

	a := analyzer.NewWithConfig(cfg)
	a.Log = log
	a.Verbose = *verbose
	a.Progress = *progress
	a.JSONOutput = *jsonOut
	a.Timing = *timing || *timingOut != ""
	a.TimingPath = *timingOut
	a.PolicyDir = *policyDir

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := a.Run(ctx, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	if result.Summary.Errors > 0 || len(result.ParseErrors) > 0 {
		return 1
	}
	return 0
}

func loadConfig(configPath, path string, log logrus.FieldLogger) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.WithError(err).Warn("could not load config, using defaults")
		return config.DefaultConfig(), nil
	}
	return cfg, nil
}

func runInit(args []string) {
	configPath := "lucid_width.json"
	if len(args) > 0 {
		configPath = args[0]
	}

	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config file %s already exists. Overwrite? [y/N]: ", configPath)
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return
		}
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating config: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("Created %s\n", configPath)
	fmt.Println("\nEdit this file to configure:")
	fmt.Println("  - Parser output patterns (sources, exclude)")
	fmt.Println("  - Diagnostic severities (lint.rules)")
	fmt.Println("  - Result cache location (analysis.cache)")
}

// policySeverity is the severity the default policy assigns to diag severities.
var policySeverity = map[diag.Severity]string{
	diag.SeverityError:    "error",
	diag.SeverityWarning:  "warning",
	diag.SeverityInternal: "info",
}

func runRules(args []string) {
	fs := flag.NewFlagSet("rules", flag.ExitOnError)
	configPath := fs.String("config", "", "config file")
	fs.StringVar(configPath, "c", "", "config file (shorthand)")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath, ".", logrus.StandardLogger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config %s: %v\n", *configPath, err)
		os.Exit(2)
	}

	for _, code := range diag.Codes() {
		rule := string(code)
		sev := cfg.GetRuleSeverity(rule, policySeverity[diag.DefaultSeverity(code)])
		if !cfg.IsRuleEnabled(rule) {
			sev = "off"
		}
		note := ""
		if diag.DefaultSeverity(code) == diag.SeverityInternal && !cfg.Lint.ShowInternal {
			note = " (hidden, set lint.showInternal)"
		}
		fmt.Printf("  %-30s %s%s\n", rule, strings.ToUpper(sev), note)
	}
}
