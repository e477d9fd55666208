package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
)

// LangChainProvider adapts any langchaingo model to LLMProvider.
type LangChainProvider struct {
	model   llms.Model
	name    string
	timeout time.Duration
}

func NewLangChainProvider(name string, model llms.Model, timeout time.Duration) *LangChainProvider {
	return &LangChainProvider{
		model:   model,
		name:    name,
		timeout: timeout,
	}
}

// NewAnthropicProvider builds a provider backed by langchaingo's Anthropic client.
func NewAnthropicProvider(apiKey, model string, timeout time.Duration) (*LangChainProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	client, err := anthropic.New(
		anthropic.WithToken(apiKey),
		anthropic.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Anthropic client: %w", err)
	}

	return NewLangChainProvider("anthropic", client, timeout), nil
}

func (p *LangChainProvider) Generate(ctx context.Context, request *LLMRequest) (*LLMResponse, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	messages := make([]llms.MessageContent, 0, 2)
	if request.SystemPrompt != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, request.SystemPrompt))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, request.Prompt))

	options := []llms.CallOption{llms.WithTemperature(request.Temperature)}
	if request.MaxTokens > 0 {
		options = append(options, llms.WithMaxTokens(request.MaxTokens))
	}

	resp, err := p.model.GenerateContent(ctx, messages, options...)
	if err != nil {
		return nil, fmt.Errorf("%s generation failed: %w", p.name, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s returned no choices", p.name)
	}

	choice := resp.Choices[0]
	return &LLMResponse{
		Content: choice.Content,
		Usage:   usageFromInfo(choice.GenerationInfo),
	}, nil
}

func usageFromInfo(info map[string]any) *Usage {
	if info == nil {
		return nil
	}
	return &Usage{
		InputTokens:  intFromAny(info["InputTokens"]),
		OutputTokens: intFromAny(info["OutputTokens"]),
	}
}

func intFromAny(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
