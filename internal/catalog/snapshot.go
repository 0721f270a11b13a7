package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LoadSnapshot reads a pre-built catalog from a JSON file holding an array of
// entries. Discovery of entries is an upstream concern; the engine only ever
// consumes a finished snapshot.
func LoadSnapshot(path string) (*Catalog, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read catalog snapshot %s: %w", path, err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse catalog snapshot %s: %w", path, err)
	}

	cat, err := New(entries)
	if err != nil {
		return nil, fmt.Errorf("build catalog from %s: %w", path, err)
	}
	return cat, nil
}
