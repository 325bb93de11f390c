package raglet

import (
	"github.com/corvid-labs/raglet/rag"
)

// Theorem is one knowledge entity: a theorem, principle, or health
// guideline loaded from the JSON corpus.
type Theorem = rag.Theorem

// ScoredTheorem pairs a theorem with its retrieval relevance score.
type ScoredTheorem = rag.ScoredTheorem

// Structured theorem content.
type (
	ProofStep     = rag.ProofStep
	Example       = rag.Example
	CommonMistake = rag.CommonMistake
)

// Category partitions the corpus by subject.
type Category = rag.Category

// Known categories. Unknown labels pass through untouched; these are
// the ones the bundled corpus uses.
const (
	CategoryMath      = rag.CategoryMath
	CategoryPhysics   = rag.CategoryPhysics
	CategoryChemistry = rag.CategoryChemistry
	CategoryBiology   = rag.CategoryBiology
	CategoryLogic     = rag.CategoryLogic
	CategoryHealth    = rag.CategoryHealth

	DefaultCategory = rag.DefaultCategory
)

// KnownCategories returns the category labels the bundled corpus uses.
func KnownCategories() []Category {
	return rag.KnownCategories()
}
