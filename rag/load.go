package rag

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultCorpusFiles is the fixed list of corpus partitions, one per
// subject plus the partition that dynamically uploaded documents land in.
var DefaultCorpusFiles = []string{
	"health.json",
	"math.json",
	"physics.json",
	"chemistry.json",
	"logic.json",
	"uploaded_documents.json",
}

// Loader reads JSON corpus partitions from a directory and normalizes
// them into theorems. Partial corpora are acceptable: a missing file is a
// warning, a malformed file is an error log, and neither stops the other
// partitions from loading. The loader never fails its caller.
type Loader struct {
	dir    string
	logger Logger
}

// NewLoader creates a loader rooted at dir.
func NewLoader(dir string, logger Logger) *Loader {
	if logger == nil {
		logger = GlobalLogger
	}
	return &Loader{dir: dir, logger: logger}
}

// LoadFile parses one corpus partition and returns its theorems in file
// order, fully normalized. Returns nil for missing or malformed files.
// There is no partial recovery inside a file: one bad item skips the
// whole partition.
func (l *Loader) LoadFile(name string) []Theorem {
	path := filepath.Join(l.dir, name)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("corpus file not found", "file", name)
		} else {
			l.logger.Error("failed to read corpus file", "file", name, "error", err)
		}
		return nil
	}

	var raw []rawTheorem
	if err := json.Unmarshal(data, &raw); err != nil {
		l.logger.Error("failed to parse corpus file", "file", name, "error", err)
		return nil
	}

	theorems := make([]Theorem, 0, len(raw))
	for _, r := range raw {
		theorems = append(theorems, r.normalize())
	}

	l.logger.Info("loaded corpus file", "file", name, "theorems", len(theorems))
	return theorems
}

// LoadAll loads every named partition in order.
func (l *Loader) LoadAll(files []string) []Theorem {
	var theorems []Theorem
	for _, name := range files {
		theorems = append(theorems, l.LoadFile(name)...)
	}
	return theorems
}
