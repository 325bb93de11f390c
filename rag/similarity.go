package rag

import (
	"fmt"
	"math"
)

// DimensionMismatchError reports an attempt to compare vectors of different
// lengths. This is a data error, not a retrieval miss: it usually means the
// embedding model changed mid-corpus, and it must surface loudly instead of
// being skipped.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: want %d, got %d", e.Want, e.Got)
}

// CosineSimilarity returns dot(a,b) / (‖a‖·‖b‖), in [-1, 1]. A zero vector
// on either side yields 0 rather than NaN.
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, &DimensionMismatchError{Want: len(a), Got: len(b)}
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
