package raglet

import (
	"context"
	"sort"
	"strings"
)

// KnowledgeQuery is a structured filter over the loaded corpus. All
// fields are optional and combine with AND; Search ranks the filtered
// set by keyword relevance instead of preserving corpus order.
type KnowledgeQuery struct {
	Category   Category
	Topic      string
	Difficulty string
	Search     string
	Limit      int
}

// Query runs a structured lookup against the loaded corpus. It needs
// no embedding credential; the keyword index is rebuilt alongside the
// entity table. Triggers a lazy index build on first use.
func (k *KnowledgeIndex) Query(ctx context.Context, q KnowledgeQuery) ([]Theorem, error) {
	if err := k.Initialize(ctx); err != nil {
		return nil, err
	}

	var candidates []Theorem
	if q.Search != "" {
		for _, m := range k.index.KeywordSearch(q.Search, 0) {
			if t, ok := k.index.TheoremByID(m.ID); ok {
				candidates = append(candidates, t)
			}
		}
	} else {
		candidates = k.index.Theorems()
	}

	var out []Theorem
	for _, t := range candidates {
		if q.Category != "" && t.Category != q.Category {
			continue
		}
		if q.Topic != "" && !strings.EqualFold(t.Topic, q.Topic) {
			continue
		}
		if q.Difficulty != "" && !strings.EqualFold(t.Difficulty, q.Difficulty) {
			continue
		}
		out = append(out, t)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

// TopicsByCategory returns the distinct topics within a category,
// sorted alphabetically. An empty category covers the whole corpus.
func (k *KnowledgeIndex) TopicsByCategory(ctx context.Context, category Category) ([]string, error) {
	if err := k.Initialize(ctx); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var topics []string
	for _, t := range k.index.Theorems() {
		if category != "" && t.Category != category {
			continue
		}
		if _, ok := seen[t.Topic]; ok {
			continue
		}
		seen[t.Topic] = struct{}{}
		topics = append(topics, t.Topic)
	}
	sort.Strings(topics)
	return topics, nil
}
