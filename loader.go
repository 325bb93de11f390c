package raglet

import (
	"github.com/corvid-labs/raglet/rag"
)

// DefaultCorpusFiles is the partition list an index loads when none is
// configured.
var DefaultCorpusFiles = rag.DefaultCorpusFiles

// Loader reads JSON corpus partitions and normalizes them into
// theorems. Most callers never touch it directly; the KnowledgeIndex
// loads through it.
type Loader = rag.Loader

// NewLoader creates a loader rooted at dir, logging through the global
// logger.
func NewLoader(dir string) *Loader {
	return rag.NewLoader(dir, nil)
}
