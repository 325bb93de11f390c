// Package rag implements the retrieval core behind the raglet facade:
// corpus loading, embedding index lifecycle, vector stores and similarity
// search over a knowledge base of theorems.
package rag

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category is a subject tag drawn from a closed set. Items whose category
// falls outside the set are re-tagged with DefaultCategory at load time.
type Category string

const (
	CategoryMath      Category = "math"
	CategoryPhysics   Category = "physics"
	CategoryChemistry Category = "chemistry"
	CategoryBiology   Category = "biology"
	CategoryLogic     Category = "logic"
	CategoryHealth    Category = "health"
)

// DefaultCategory is the baseline category assigned to items that arrive
// without one, or with one outside the known set.
const DefaultCategory = CategoryMath

// DefaultDifficulty is the baseline difficulty tier.
const DefaultDifficulty = "basic"

var knownCategories = map[Category]bool{
	CategoryMath:      true,
	CategoryPhysics:   true,
	CategoryChemistry: true,
	CategoryBiology:   true,
	CategoryLogic:     true,
	CategoryHealth:    true,
}

// KnownCategories returns the closed category set in a stable order.
func KnownCategories() []Category {
	return []Category{
		CategoryMath,
		CategoryPhysics,
		CategoryChemistry,
		CategoryBiology,
		CategoryLogic,
		CategoryHealth,
	}
}

// ProofStep is one step of a worked proof or derivation. Carried through
// the index as opaque payload; never part of the retrieval computation.
type ProofStep struct {
	Step    int    `json:"step"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Visual  string `json:"visual,omitempty"`
}

// Example is a worked problem attached to a theorem.
type Example struct {
	Problem  string   `json:"problem"`
	Solution string   `json:"solution"`
	Steps    []string `json:"steps,omitempty"`
}

// CommonMistake is a misconception students hold about a theorem, with an
// optional correction. Corpus files carry these either as bare strings or
// as {mistake, correction} objects; both decode into this type.
type CommonMistake struct {
	Mistake    string `json:"mistake"`
	Correction string `json:"correction,omitempty"`
}

// UnmarshalJSON accepts both the object form and the legacy bare-string form.
func (m *CommonMistake) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		m.Mistake = s
		m.Correction = ""
		return nil
	}

	type plain CommonMistake
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("common mistake must be a string or an object: %w", err)
	}
	*m = CommonMistake(p)
	return nil
}

// Theorem is one retrievable knowledge item. The fields that feed the
// semantic representation are Title, Description, EmbeddingText and
// Keywords; everything else is payload returned verbatim with results.
type Theorem struct {
	ID         string   `json:"id"`
	Category   Category `json:"category"`
	Subject    string   `json:"subject,omitempty"`
	Topic      string   `json:"topic,omitempty"`
	Title      string   `json:"theorem"`
	Difficulty string   `json:"difficulty"`

	Description   string `json:"description"`
	Formula       string `json:"formula,omitempty"`
	FormulaLatex  string `json:"formulaLatex,omitempty"`
	EmbeddingText string `json:"embeddingText,omitempty"`

	Keywords          []string        `json:"keywords"`
	ProofSteps        []ProofStep     `json:"proofSteps,omitempty"`
	Examples          []Example       `json:"examples,omitempty"`
	CommonMistakes    []CommonMistake `json:"commonMistakes,omitempty"`
	SocraticQuestions []string        `json:"socraticQuestions,omitempty"`
	Prerequisites     []string        `json:"prerequisites,omitempty"`
	RelatedTheorems   []string        `json:"relatedTheorems,omitempty"`
	TeachingTips      []string        `json:"teachingTips,omitempty"`
}

// CombinedText is the composite sent to the embedding provider for this
// theorem: title, description, derived embedding text and keywords.
func (t Theorem) CombinedText() string {
	parts := []string{
		t.Title,
		t.Description,
		t.EmbeddingText,
		strings.Join(t.Keywords, " "),
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// ScoredTheorem is a retrieval result: the theorem plus the similarity of
// its embedding to the query. The score exists only on results and is
// never persisted with the entity.
type ScoredTheorem struct {
	Theorem
	Score float64 `json:"relevanceScore"`
}

// rawTheorem mirrors the loose shape corpus files actually have. Two
// naming conventions coexist in the wild (camelCase and snake_case); the
// normalize step resolves each concept with priority canonical name →
// legacy name → computed default.
type rawTheorem struct {
	ID         string `json:"id"`
	Category   string `json:"category"`
	Subject    string `json:"subject"`
	Topic      string `json:"topic"`
	Theorem    string `json:"theorem"`
	Title      string `json:"title"`
	Difficulty string `json:"difficulty"`

	Description   string `json:"description"`
	Formula       string `json:"formula"`
	FormulaLatex  string `json:"formulaLatex"`
	FormulaSnake  string `json:"formula_latex"`
	EmbeddingText string `json:"embeddingText"`

	Keywords []string `json:"keywords"`

	ProofSteps      []ProofStep `json:"proofSteps"`
	ProofStepsSnake []ProofStep `json:"proof_steps"`

	Examples []Example `json:"examples"`

	CommonMistakes      []CommonMistake `json:"commonMistakes"`
	CommonMistakesSnake []CommonMistake `json:"common_mistakes"`

	SocraticQuestions      []string `json:"socraticQuestions"`
	SocraticQuestionsSnake []string `json:"socratic_questions"`

	Prerequisites   []string `json:"prerequisites"`
	RelatedTheorems []string `json:"relatedTheorems"`
	TeachingTips    []string `json:"teachingTips"`
}

// normalize produces a fully-defaulted Theorem from a loosely-shaped
// corpus item. Runs exactly once, at load time.
func (r rawTheorem) normalize() Theorem {
	t := Theorem{
		ID:                r.ID,
		Category:          Category(r.Category),
		Subject:           r.Subject,
		Topic:             r.Topic,
		Title:             firstNonEmpty(r.Theorem, r.Title, "Untitled"),
		Difficulty:        firstNonEmpty(r.Difficulty, DefaultDifficulty),
		Description:       r.Description,
		Formula:           r.Formula,
		FormulaLatex:      firstNonEmpty(r.FormulaLatex, r.FormulaSnake),
		EmbeddingText:     r.EmbeddingText,
		Keywords:          r.Keywords,
		ProofSteps:        r.ProofSteps,
		Examples:          r.Examples,
		CommonMistakes:    r.CommonMistakes,
		SocraticQuestions: r.SocraticQuestions,
		Prerequisites:     r.Prerequisites,
		RelatedTheorems:   r.RelatedTheorems,
		TeachingTips:      r.TeachingTips,
	}

	if t.ID == "" {
		t.ID = newDocumentID()
	}
	if !knownCategories[t.Category] {
		t.Category = DefaultCategory
	}
	if t.Topic == "" {
		t.Topic = "general"
	}
	if len(t.ProofSteps) == 0 {
		t.ProofSteps = r.ProofStepsSnake
	}
	if len(t.CommonMistakes) == 0 {
		t.CommonMistakes = r.CommonMistakesSnake
	}
	if len(t.SocraticQuestions) == 0 {
		t.SocraticQuestions = r.SocraticQuestionsSnake
	}
	if t.Keywords == nil {
		t.Keywords = []string{}
	}
	if t.EmbeddingText == "" {
		t.EmbeddingText = firstNonEmpty(strings.Join(t.Keywords, " "), t.Description)
	}

	return t
}

// newDocumentID synthesizes an id for items that arrive without one.
// Best-effort uniqueness: a millisecond timestamp plus a random fragment.
func newDocumentID() string {
	frag := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("doc_%d_%s", time.Now().UnixMilli(), frag)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
