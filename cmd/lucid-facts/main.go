package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/robert-at-pretension-io/lucid-width/internal/analyzer"
	"github.com/robert-at-pretension-io/lucid-width/internal/config"
	"github.com/robert-at-pretension-io/lucid-width/internal/facts"
)

func main() {
	output := flag.String("output", "", "write facts JSON to file (default: stdout)")
	flag.StringVar(output, "o", "", "write facts JSON to file (shorthand)")
	deltaFrom := flag.String("delta-from", "", "previous facts JSON to compute delta from")
	deltaCache := flag.Bool("delta-cache", false, "compute the delta from the tables of the previous cached run")
	deltaOut := flag.String("delta-out", "", "write delta JSON to file")
	files := flag.String("files", "", "comma separated source files to keep")
	modules := flag.String("modules", "", "comma separated modules to keep")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: lucid-facts [--output file] [--delta-from prev.json | --delta-cache] [--delta-out delta.json] [--files a.luc,b.luc] [--modules top] <path>")
		os.Exit(1)
	}
	if *deltaOut != "" && *deltaFrom == "" && !*deltaCache {
		fmt.Fprintln(os.Stderr, "Error: --delta-out needs --delta-from or --delta-cache")
		os.Exit(1)
	}

	path := args[0]
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// The run below overwrites the cached tables.
	var prev facts.Tables
	havePrev := false
	switch {
	case *deltaFrom != "":
		prev, err = readTables(*deltaFrom)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading delta-from: %v\n", err)
			os.Exit(1)
		}
		havePrev = true
	case *deltaCache:
		prev, havePrev, err = analyzer.LoadFactTables(analyzer.ResolveCacheDir(path, cfg))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading cached tables: %v\n", err)
			os.Exit(1)
		}
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.WarnLevel)

	a := analyzer.NewWithConfig(cfg)
	a.Log = log
	a.Quiet = true
	result, err := a.Run(context.Background(), path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	for _, pe := range result.ParseErrors {
		log.WithField("file", pe.File).Warn(pe.Message)
	}

	tables := result.Tables
	fileSet := splitSet(*files)
	if fileSet != nil {
		tables = facts.FilterTablesByFiles(tables, fileSet)
	}
	if moduleSet := splitSet(*modules); moduleSet != nil {
		tables = facts.FilterTablesByModules(tables, moduleSet)
	}

	if *output != "" {
		if err := writeJSON(*output, tables); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing facts: %v\n", err)
			os.Exit(1)
		}
	} else {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(tables); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding facts: %v\n", err)
			os.Exit(1)
		}
	}

	if *deltaFrom == "" && !*deltaCache {
		return
	}
	if !havePrev {
		log.Warn("no cached tables from a previous run, delta contains every row")
	}
	delta := facts.ComputeDelta(prev, result.Tables)
	if fileSet != nil {
		delta = facts.FilterDeltaByFiles(delta, fileSet)
	}
	if *deltaOut == "" {
		fmt.Fprintf(os.Stderr, "delta: %d rows added, %d removed\n", delta.Added.Len(), delta.Removed.Len())
		return
	}
	if err := writeJSON(*deltaOut, delta); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing delta: %v\n", err)
		os.Exit(1)
	}
}

func splitSet(list string) map[string]bool {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	set := make(map[string]bool)
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			set[item] = true
		}
	}
	return set
}

func readTables(path string) (facts.Tables, error) {
	f, err := os.Open(path)
	if err != nil {
		return facts.Tables{}, err
	}
	defer func() { _ = f.Close() }()

	var tables facts.Tables
	if err := json.NewDecoder(f).Decode(&tables); err != nil {
		return facts.Tables{}, err
	}
	return tables, nil
}

func writeJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
