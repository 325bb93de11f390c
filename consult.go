package raglet

import (
	"context"
	"fmt"
	"strings"

	"github.com/teilomillet/gollm"
)

// Consultant answers questions with an LLM, grounding each answer in
// theorems retrieved from the knowledge index. The retrieval half
// degrades gracefully: with no embedding credential or a failing
// provider the model simply answers without references.
type Consultant struct {
	builder *ContextBuilder
	llm     gollm.LLM
}

// ConsultantConfig holds the LLM half of a Consultant. The retrieval
// half comes from the ContextBuilder.
type ConsultantConfig struct {
	Provider string // LLM provider (e.g., "openai")
	Model    string // Chat model identifier
	APIKey   string
}

// NewConsultant wires a ContextBuilder to an LLM.
func NewConsultant(builder *ContextBuilder, cfg ConsultantConfig) (*Consultant, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("LLM API key is required")
	}
	if cfg.Provider == "" {
		cfg.Provider = "openai"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	llm, err := gollm.NewLLM(
		gollm.SetProvider(cfg.Provider),
		gollm.SetModel(cfg.Model),
		gollm.SetAPIKey(cfg.APIKey),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &Consultant{builder: builder, llm: llm}, nil
}

// Consult retrieves knowledge relevant to question, folds it into the
// prompt, and returns the model's answer. An empty category searches
// the whole corpus.
func (c *Consultant) Consult(ctx context.Context, question string, category Category) (string, error) {
	references := c.builder.BuildContext(ctx, question, category)

	var prompt strings.Builder
	if references != "" {
		prompt.WriteString(references)
		prompt.WriteString("\n\n")
	}
	prompt.WriteString("Question: ")
	prompt.WriteString(question)
	prompt.WriteString("\n\nAnswer the question accurately. When the reference material above is relevant, ground your answer in it.")

	response, err := c.llm.Generate(ctx, gollm.NewPrompt(prompt.String()))
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}
	return response, nil
}
