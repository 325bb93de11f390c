package rag

import (
	"math"
	"sort"
	"strings"
	"sync"
)

// BM25Parameters tunes sparse keyword ranking.
type BM25Parameters struct {
	K1 float64 // term saturation, typically 1.2-2.0
	B  float64 // length normalization, typically 0.75
}

// DefaultBM25Parameters returns the conventional defaults.
func DefaultBM25Parameters() BM25Parameters {
	return BM25Parameters{K1: 1.5, B: 0.75}
}

// KeywordIndex ranks theorems against a query with BM25 over their
// combined text and topic. It backs the structured knowledge-query API
// and needs no embedding credential; the Index rebuilds it alongside the
// entity table.
type KeywordIndex struct {
	mu           sync.RWMutex
	params       BM25Parameters
	order        []string
	termFreq     map[string]map[string]int
	docFreq      map[string]int
	docLength    map[string]int
	avgDocLength float64
}

// NewKeywordIndex creates an empty keyword index with default parameters.
func NewKeywordIndex() *KeywordIndex {
	return &KeywordIndex{
		params:    DefaultBM25Parameters(),
		termFreq:  make(map[string]map[string]int),
		docFreq:   make(map[string]int),
		docLength: make(map[string]int),
	}
}

// SetParameters replaces the BM25 parameters.
func (k *KeywordIndex) SetParameters(params BM25Parameters) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.params = params
}

// Rebuild replaces the whole index with the given theorems.
func (k *KeywordIndex) Rebuild(theorems []Theorem) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.order = k.order[:0]
	k.termFreq = make(map[string]map[string]int, len(theorems))
	k.docFreq = make(map[string]int)
	k.docLength = make(map[string]int, len(theorems))

	totalLength := 0
	for _, t := range theorems {
		terms := tokenize(t.CombinedText() + " " + t.Topic)
		freq := make(map[string]int, len(terms))
		for _, term := range terms {
			freq[term]++
		}

		k.order = append(k.order, t.ID)
		k.termFreq[t.ID] = freq
		k.docLength[t.ID] = len(terms)
		for term := range freq {
			k.docFreq[term]++
		}
		totalLength += len(terms)
	}

	if len(theorems) > 0 {
		k.avgDocLength = float64(totalLength) / float64(len(theorems))
	} else {
		k.avgDocLength = 0
	}
}

// Search scores every indexed theorem against query and returns the topK
// best, descending. Theorems sharing no term with the query score zero
// and are omitted.
func (k *KeywordIndex) Search(query string, topK int) []Match {
	k.mu.RLock()
	defer k.mu.RUnlock()

	scores := make(map[string]float64)
	totalDocs := float64(len(k.order))

	for _, term := range tokenize(query) {
		df, ok := k.docFreq[term]
		if !ok {
			continue
		}
		idf := math.Log(1 + (totalDocs-float64(df)+0.5)/(float64(df)+0.5))

		for _, id := range k.order {
			tf, ok := k.termFreq[id][term]
			if !ok {
				continue
			}
			docLen := float64(k.docLength[id])
			numerator := float64(tf) * (k.params.K1 + 1)
			denominator := float64(tf) + k.params.K1*(1-k.params.B+k.params.B*docLen/k.avgDocLength)
			scores[id] += idf * numerator / denominator
		}
	}

	matches := make([]Match, 0, len(scores))
	for _, id := range k.order {
		if score, ok := scores[id]; ok {
			matches = append(matches, Match{ID: id, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}
