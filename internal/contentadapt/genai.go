package contentadapt

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"google.golang.org/genai"
)

const defaultModel = "gemini-2.5-flash"

const systemPrompt = "You adapt short advertising copy for a specific brand. " +
	"Keep the meaning, keep the ' | ' separator if present, stay under 200 characters, " +
	"and answer with the adapted text only."

type generateFunc func(ctx context.Context, prompt string) (string, error)

// GenAIAdapter adapts text with a Gemini model
type GenAIAdapter struct {
	generate generateFunc
}

// NewGenAIAdapter creates an adapter backed by the Gemini API
func NewGenAIAdapter(ctx context.Context, apiKey, model string) (*GenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("genai api key is required")
	}
	if model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.4),
		MaxOutputTokens:   256,
	}

	return &GenAIAdapter{
		generate: func(ctx context.Context, prompt string) (string, error) {
			resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
			if err != nil {
				return "", err
			}
			return resp.Text(), nil
		},
	}, nil
}

func (a *GenAIAdapter) Adapt(ctx context.Context, template string, vars map[string]string) (string, error) {
	out, err := a.generate(ctx, buildPrompt(template, vars))
	if err != nil {
		return "", fmt.Errorf("genai generate failed: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// buildPrompt lists vars in key order so identical inputs give identical prompts
func buildPrompt(template string, vars map[string]string) string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("Context:\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %s\n", k, vars[k])
	}
	b.WriteString("\nText:\n")
	b.WriteString(template)

	return b.String()
}
