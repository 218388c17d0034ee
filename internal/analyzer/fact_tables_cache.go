package analyzer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/robert-at-pretension-io/lucid-width/internal/facts"
)

const snapshotVersion = 2

// snapshot holds the merged tables of the last complete run. Files repeats
// the file relation so a truncated or hand-edited snapshot is detected.
type snapshot struct {
	Version int               `json:"version"`
	Files   map[string]string `json:"files"`
	Tables  facts.Tables      `json:"tables"`
}

func snapshotPath(dir string) string {
	return filepath.Join(dir, "snapshot.json")
}

// LoadFactTables returns the tables saved by the previous run in dir. A
// missing, outdated or inconsistent snapshot is reported as absent.
func LoadFactTables(dir string) (facts.Tables, bool, error) {
	data, err := os.ReadFile(snapshotPath(dir))
	if errors.Is(err, fs.ErrNotExist) {
		return facts.Tables{}, false, nil
	}
	if err != nil {
		return facts.Tables{}, false, fmt.Errorf("read snapshot: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return facts.Tables{}, false, fmt.Errorf("parse snapshot: %w", err)
	}
	if snap.Version != snapshotVersion || len(snap.Files) != len(snap.Tables.Files) {
		return facts.Tables{}, false, nil
	}
	for _, f := range snap.Tables.Files {
		if snap.Files[f.Path] != f.Hash {
			return facts.Tables{}, false, nil
		}
	}
	return snap.Tables, true, nil
}

func saveFactTables(dir string, tables facts.Tables) error {
	snap := snapshot{
		Version: snapshotVersion,
		Files:   make(map[string]string, len(tables.Files)),
		Tables:  tables,
	}
	for _, f := range tables.Files {
		snap.Files[f.Path] = f.Hash
	}
	if err := writeJSONAtomic(snapshotPath(dir), snap); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
