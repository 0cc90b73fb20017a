package categorizer

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModelName is used when no model name is configured.
const DefaultModelName = "gemini-2.5-flash"

// GeminiModel implements Model with the Gemini API. Credentials come from
// the environment (GOOGLE_API_KEY, or Vertex AI settings).
type GeminiModel struct {
	client *genai.Client
	name   string
}

// NewGeminiModel creates a Gemini client.
func NewGeminiModel(ctx context.Context, name string) (*GeminiModel, error) {
	if name == "" {
		name = DefaultModelName
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiModel: create genai client: %w", err)
	}
	return &GeminiModel{client: client, name: name}, nil
}

// Generate sends prompt as a single user turn and returns the response text.
func (m *GeminiModel) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := m.client.Models.GenerateContent(ctx, m.name, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("Generate: generate content: %w", err)
	}
	return resp.Text(), nil
}
