package analyzer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/robert-at-pretension-io/lucid-width/internal/config"
	"github.com/robert-at-pretension-io/lucid-width/internal/facts"
)

// resultCacheVersion changes whenever the rows produced for a file change
// meaning.
const resultCacheVersion = 1

type cacheEntry struct {
	ContentHash string `json:"content_hash"`
	DepsHash    string `json:"deps_hash"`
	TablesPath  string `json:"tables_path"`
}

type cacheIndex struct {
	Version int                   `json:"version"`
	Entries map[string]cacheEntry `json:"entries"`
}

// resultCache keeps the fact rows of every analysed file. An entry is
// reused only when the file and all of its dependencies are unchanged.
type resultCache struct {
	dir   string
	mu    sync.Mutex
	index cacheIndex
}

func newResultCache(dir string) *resultCache {
	return &resultCache{
		dir: dir,
		index: cacheIndex{
			Version: resultCacheVersion,
			Entries: make(map[string]cacheEntry),
		},
	}
}

func (c *resultCache) indexPath() string {
	return filepath.Join(c.dir, "index.json")
}

func (c *resultCache) tablesPathForFile(filePath string) string {
	return filepath.Join(c.dir, "results", hashBytes([]byte(filePath))+".json")
}

func (c *resultCache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("cache mkdir: %w", err)
	}
	data, err := os.ReadFile(c.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read cache index: %w", err)
	}
	var idx cacheIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return fmt.Errorf("parse cache index: %w", err)
	}
	if idx.Version != resultCacheVersion {
		// Reset on version mismatch
		return nil
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string]cacheEntry)
	}
	c.index = idx
	return nil
}

func (c *resultCache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return writeJSONAtomic(c.indexPath(), c.index)
}

// Validated reports whether the content of filePath was accepted before.
func (c *resultCache) Validated(filePath, contentHash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.index.Entries[filePath]
	return ok && entry.ContentHash == contentHash
}

func (c *resultCache) Get(filePath, contentHash, depsHash string) (facts.Tables, bool, error) {
	c.mu.Lock()
	entry, ok := c.index.Entries[filePath]
	c.mu.Unlock()
	if !ok || entry.ContentHash != contentHash || entry.DepsHash != depsHash {
		return facts.Tables{}, false, nil
	}

	data, err := os.ReadFile(entry.TablesPath)
	if err != nil {
		return facts.Tables{}, false, fmt.Errorf("read cached results: %w", err)
	}
	var tables facts.Tables
	if err := json.Unmarshal(data, &tables); err != nil {
		return facts.Tables{}, false, fmt.Errorf("parse cached results: %w", err)
	}
	return tables, true, nil
}

func (c *resultCache) Put(filePath, contentHash, depsHash string, tables facts.Tables) error {
	tablesPath := c.tablesPathForFile(filePath)
	if err := writeJSONAtomic(tablesPath, tables); err != nil {
		return err
	}

	c.mu.Lock()
	c.index.Entries[filePath] = cacheEntry{
		ContentHash: contentHash,
		DepsHash:    depsHash,
		TablesPath:  tablesPath,
	}
	c.mu.Unlock()
	return nil
}

// Prune drops entries of files that are no longer part of the run.
func (c *resultCache) Prune(keep map[string]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for path, entry := range c.index.Entries {
		if !keep[path] {
			_ = os.Remove(entry.TablesPath)
			delete(c.index.Entries, path)
		}
	}
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache json: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.json")
	if err != nil {
		return fmt.Errorf("temp cache file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

func hashBytes(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// ResolveCacheDir returns the cache directory for a run rooted at rootPath.
func ResolveCacheDir(rootPath string, cfg *config.Config) string {
	baseDir := rootPath
	if info, err := os.Stat(rootPath); err == nil && !info.IsDir() {
		baseDir = filepath.Dir(rootPath)
	}
	cacheDir := cfg.Analysis.Cache.Dir
	if cacheDir == "" {
		cacheDir = config.DefaultConfig().Analysis.Cache.Dir
	}
	if !filepath.IsAbs(cacheDir) {
		cacheDir = filepath.Join(baseDir, cacheDir)
	}
	return cacheDir
}
