package config

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// ResolveSources expands the source patterns relative to rootPath, removes
// excluded and ignored files and returns the result sorted.
func (c *Config) ResolveSources(rootPath string) ([]string, error) {
	fileSet := make(map[string]bool)
	for _, pattern := range c.Sources {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(rootPath, pattern)
		}

		matches, err := expandGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("source pattern %q: %w", pattern, err)
		}

		for _, match := range matches {
			// Only parser output
			if strings.HasSuffix(strings.ToLower(match), ".json") {
				fileSet[filepath.Clean(match)] = true
			}
		}
	}

	for _, pattern := range c.Exclude {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(rootPath, pattern)
		}

		matches, err := expandGlob(pattern)
		if err != nil {
			continue
		}

		for _, match := range matches {
			delete(fileSet, filepath.Clean(match))
		}
	}

	result := make([]string, 0, len(fileSet))
	for f := range fileSet {
		if c.ShouldIgnoreFile(f) {
			continue
		}
		result = append(result, f)
	}
	sort.Strings(result)
	return result, nil
}

// expandGlob expands pattern. A "**" segment stands for any number of
// directories, including none.
func expandGlob(pattern string) ([]string, error) {
	if !strings.Contains(pattern, "**") {
		return filepath.Glob(pattern)
	}

	base, rest := splitGlobBase(pattern)
	want := strings.Split(rest, "/")
	var results []string
	err := filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			// Unreadable entries are skipped
			return nil
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return nil
		}
		if matchSegments(want, strings.Split(filepath.ToSlash(rel), "/")) {
			results = append(results, p)
		}
		return nil
	})
	return results, err
}

// splitGlobBase separates the literal directory prefix of pattern from the
// part that needs matching. The rest is slash separated.
func splitGlobBase(pattern string) (string, string) {
	segs := strings.Split(filepath.ToSlash(pattern), "/")
	i := 0
	for i < len(segs)-1 && !strings.ContainsAny(segs[i], "*?[") {
		i++
	}
	base := strings.Join(segs[:i], "/")
	switch {
	case base == "" && strings.HasPrefix(pattern, "/"):
		base = "/"
	case base == "":
		base = "."
	}
	return filepath.FromSlash(base), strings.Join(segs[i:], "/")
}

func matchSegments(pat, name []string) bool {
	for len(pat) > 0 {
		if pat[0] == "**" {
			for i := 0; i <= len(name); i++ {
				if matchSegments(pat[1:], name[i:]) {
					return true
				}
			}
			return false
		}
		if len(name) == 0 {
			return false
		}
		if ok, _ := path.Match(pat[0], name[0]); !ok {
			return false
		}
		pat, name = pat[1:], name[1:]
	}
	return len(name) == 0
}
