package llm

import (
	"context"
)

// LLMProvider is the text-generation collaborator: prompt in, text out.
// Implementations enforce their own configured timeout.
type LLMProvider interface {
	Generate(ctx context.Context, request *LLMRequest) (*LLMResponse, error)
}

// LLMRequest represents the structured request to LLM
type LLMRequest struct {
	Prompt       string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
}

// LLMResponse represents the raw response from LLM
type LLMResponse struct {
	Content string
	Usage   *Usage
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}

// GenerateText is a convenience wrapper returning only the generated text.
func GenerateText(ctx context.Context, provider LLMProvider, systemPrompt, prompt string, maxTokens int, temperature float64) (string, error) {
	resp, err := provider.Generate(ctx, &LLMRequest{
		Prompt:       prompt,
		SystemPrompt: systemPrompt,
		MaxTokens:    maxTokens,
		Temperature:  temperature,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
