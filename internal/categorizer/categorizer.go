// Package categorizer suggests a category for a new transaction description,
// first from the user's own history and then from a Gemini model.
package categorizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dvloznov/lifeledger/internal/domain"
	"github.com/dvloznov/lifeledger/internal/logger"
)

// Where a suggestion came from.
const (
	SourceHistory  = "history"
	SourceModel    = "model"
	SourceFallback = "fallback"
)

// Suggestion is a proposed category name.
type Suggestion struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// Model generates text for a prompt.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Categorizer picks categories. A nil model disables the model step.
type Categorizer struct {
	model Model
}

// New creates a Categorizer.
func New(model Model) *Categorizer {
	return &Categorizer{model: model}
}

// Request is the input of Suggest.
type Request struct {
	Description string
	Type        domain.TransactionType
	// Categories are the user's categories; only those of Type are offered.
	Categories []domain.Category
	// History holds recent transactions, newest first.
	History []domain.Transaction
}

// Suggest returns the category of the newest transaction of the same type
// with the same description, otherwise asks the model to choose among the
// allowed categories, otherwise falls back to "Outros". Model failures are
// logged and never returned.
func (c *Categorizer) Suggest(ctx context.Context, req Request) (Suggestion, error) {
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		return Suggestion{}, domain.Invalid("description", "is required")
	}
	if !req.Type.Valid() {
		return Suggestion{}, domain.Invalid("type", "must be income or expense")
	}

	allowed := allowedCategories(req.Categories, req.Type)

	key := domain.Fold(desc)
	for _, tx := range req.History {
		if tx.Type == req.Type && domain.Fold(strings.TrimSpace(tx.Description)) == key && tx.Category != "" {
			return Suggestion{Category: tx.Category, Confidence: 1, Source: SourceHistory}, nil
		}
	}

	if c.model != nil && len(allowed) > 0 {
		s, err := c.ask(ctx, desc, req.Type, allowed)
		if err == nil {
			return s, nil
		}
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("description", desc).Msg("Model category suggestion failed")
	}

	return Suggestion{Category: domain.CategoryOther, Source: SourceFallback}, nil
}

func allowedCategories(cats []domain.Category, t domain.TransactionType) []string {
	seen := make(map[string]bool)
	var names []string
	for _, c := range cats {
		if c.Type != t || seen[domain.Fold(c.Name)] {
			continue
		}
		seen[domain.Fold(c.Name)] = true
		names = append(names, c.Name)
	}
	return names
}

type modelAnswer struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

func (c *Categorizer) ask(ctx context.Context, desc string, t domain.TransactionType, allowed []string) (Suggestion, error) {
	raw, err := c.model.Generate(ctx, buildPrompt(desc, t, allowed))
	if err != nil {
		return Suggestion{}, fmt.Errorf("suggestCategory: generate: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return Suggestion{}, fmt.Errorf("suggestCategory: empty response from model")
	}

	var ans modelAnswer
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &ans); err != nil {
		return Suggestion{}, fmt.Errorf("suggestCategory: unmarshal JSON: %w\nraw response: %s", err, raw)
	}

	folded := domain.Fold(strings.TrimSpace(ans.Category))
	for _, name := range allowed {
		if domain.Fold(name) == folded {
			return Suggestion{Category: name, Confidence: clamp(ans.Confidence), Source: SourceModel}, nil
		}
	}
	return Suggestion{}, fmt.Errorf("suggestCategory: model chose unknown category %q", ans.Category)
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func buildPrompt(desc string, t domain.TransactionType, allowed []string) string {
	kind := "expense"
	if t == domain.Income {
		kind = "income"
	}

	var b strings.Builder
	b.WriteString("You categorise personal finance transactions written in Brazilian Portuguese.\n\n")
	fmt.Fprintf(&b, "Transaction (%s): %q\n\n", kind, desc)
	b.WriteString("Use ONLY one of the following categories:\n")
	for _, name := range allowed {
		b.WriteString("  - " + name + "\n")
	}
	b.WriteString("\nReturn ONLY valid raw JSON with exactly these fields:\n" +
		"- \"category\": string (copied exactly from the list)\n" +
		"- \"confidence\": number between 0 and 1\n" +
		"Do NOT wrap the response in code fences.\n" +
		"Output must begin with \"{\" and end with \"}\".\n")
	return b.String()
}

// cleanModelJSON strips Markdown fences and any text around the JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
