package raglet

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/corvid-labs/raglet/rag"
)

// DefaultContextTopK is how many theorems a context block folds in.
const DefaultContextTopK = 3

// DefaultMaxContextTokens bounds the assembled block so it never
// crowds the consultation prompt.
const DefaultMaxContextTokens = 1024

// TokenCounter counts tokens in text for context budgeting.
type TokenCounter interface {
	Count(text string) int
}

// TikTokenCounter counts tokens with the tiktoken library using a
// specific model encoding.
type TikTokenCounter struct {
	tke *tiktoken.Tiktoken
}

// NewTikTokenCounter creates a TikTokenCounter for the given encoding,
// e.g. "cl100k_base".
func NewTikTokenCounter(encoding string) (*TikTokenCounter, error) {
	tke, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get encoding: %w", err)
	}
	return &TikTokenCounter{tke: tke}, nil
}

// Count returns the number of tokens in text.
func (ttc *TikTokenCounter) Count(text string) int {
	return len(ttc.tke.Encode(text, nil, nil))
}

// approxTokenCounter estimates roughly four characters per token. Used
// when the tiktoken encoding cannot be loaded, e.g. offline.
type approxTokenCounter struct{}

func (approxTokenCounter) Count(text string) int {
	return (len(text) + 3) / 4
}

// ContextBuilder assembles retrieval results into a numbered reference
// block for a consultation prompt. It is the safe retrieval path:
// every failure inside it, including query embedding errors, collapses
// to an empty block so prompt assembly never breaks.
type ContextBuilder struct {
	retriever *Retriever
	topK      int
	maxTokens int
	counter   TokenCounter
	logger    Logger
}

// ContextOption configures a ContextBuilder.
type ContextOption func(*ContextBuilder)

// WithContextTopK sets how many theorems to fold into the block.
func WithContextTopK(topK int) ContextOption {
	return func(b *ContextBuilder) {
		b.topK = topK
	}
}

// WithMaxContextTokens caps the token size of the assembled block.
// Theorems that would push past the cap are dropped whole. Zero
// disables the cap.
func WithMaxContextTokens(maxTokens int) ContextOption {
	return func(b *ContextBuilder) {
		b.maxTokens = maxTokens
	}
}

// WithTokenCounter replaces the default tiktoken counter.
func WithTokenCounter(counter TokenCounter) ContextOption {
	return func(b *ContextBuilder) {
		b.counter = counter
	}
}

// WithContextLogger replaces the global logger for this builder.
func WithContextLogger(logger Logger) ContextOption {
	return func(b *ContextBuilder) {
		b.logger = logger
	}
}

// NewContextBuilder creates a builder over retriever.
func NewContextBuilder(retriever *Retriever, opts ...ContextOption) *ContextBuilder {
	b := &ContextBuilder{
		retriever: retriever,
		topK:      DefaultContextTopK,
		maxTokens: DefaultMaxContextTokens,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = rag.GlobalLogger
	}
	if b.counter == nil {
		counter, err := NewTikTokenCounter("cl100k_base")
		if err != nil {
			b.logger.Warn("tiktoken encoding unavailable, falling back to approximate counting", "error", err)
			b.counter = approxTokenCounter{}
		} else {
			b.counter = counter
		}
	}
	return b
}

// BuildContext retrieves the theorems most relevant to query and
// formats them as a numbered reference block. Returns the empty string
// when nothing relevant is found or when retrieval fails; errors are
// logged, never returned.
func (b *ContextBuilder) BuildContext(ctx context.Context, query string, category Category) string {
	results, err := b.retriever.Retrieve(ctx, query,
		WithRetrieveTopK(b.topK),
		WithRetrieveCategory(category),
	)
	if err != nil {
		b.logger.Error("context retrieval failed, continuing without references", "error", err)
		return ""
	}
	if len(results) == 0 {
		return ""
	}
	return b.Format(results)
}

// Format renders already-retrieved results into the reference block.
// Results are taken in order; a theorem that would exceed the token
// budget is dropped whole along with everything after it.
func (b *ContextBuilder) Format(results []ScoredTheorem) string {
	if len(results) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Relevant knowledge for reference:\n")
	used := b.counter.Count(sb.String())

	written := 0
	for _, r := range results {
		entry := formatTheorem(written+1, r.Theorem)
		if b.maxTokens > 0 {
			cost := b.counter.Count(entry)
			if used+cost > b.maxTokens {
				break
			}
			used += cost
		}
		sb.WriteString(entry)
		written++
	}

	if written == 0 {
		return ""
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatTheorem(n int, t Theorem) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n[%d] %s\n", n, t.Title)
	if t.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", t.Description)
	}
	if t.Formula != "" {
		fmt.Fprintf(&sb, "Formula: %s\n", t.Formula)
	}
	if len(t.CommonMistakes) > 0 {
		notes := make([]string, 0, len(t.CommonMistakes))
		for _, m := range t.CommonMistakes {
			if m.Mistake != "" {
				notes = append(notes, m.Mistake)
			}
		}
		if len(notes) > 0 {
			fmt.Fprintf(&sb, "Common mistakes: %s\n", strings.Join(notes, "; "))
		}
	}
	return sb.String()
}
