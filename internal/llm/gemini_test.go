package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeGemini struct {
	resp     *genai.GenerateContentResponse
	err      error
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeGemini) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	return f.resp, f.err
}

func textCandidate(parts ...string) []*genai.Candidate {
	content := &genai.Content{Role: genai.RoleModel}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return []*genai.Candidate{{Content: content}}
}

func TestGeminiProviderGenerate(t *testing.T) {
	fake := &fakeGemini{resp: &genai.GenerateContentResponse{
		Candidates: textCandidate("Try the ", "ramen place."),
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     42,
			CandidatesTokenCount: 9,
		},
	}}
	provider := &GeminiProvider{models: fake, model: "gemini-2.0-flash"}

	resp, err := provider.Generate(context.Background(), &LLMRequest{
		Prompt:       "User: noodles nearby?",
		SystemPrompt: "You are FoodBuddy.",
		MaxTokens:    300,
		Temperature:  0.7,
	})
	require.NoError(t, err)

	assert.Equal(t, "Try the ramen place.", resp.Content)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 42, resp.Usage.InputTokens)
	assert.Equal(t, 9, resp.Usage.OutputTokens)

	assert.Equal(t, "gemini-2.0-flash", fake.model)
	require.Len(t, fake.contents, 1)
	require.Len(t, fake.contents[0].Parts, 1)
	assert.Equal(t, "You are FoodBuddy.\n\nUser: noodles nearby?", fake.contents[0].Parts[0].Text)

	require.NotNil(t, fake.config.Temperature)
	assert.InDelta(t, 0.7, *fake.config.Temperature, 1e-6)
	assert.Equal(t, int32(300), fake.config.MaxOutputTokens)
}

func TestGeminiProviderWithoutUsage(t *testing.T) {
	fake := &fakeGemini{resp: &genai.GenerateContentResponse{Candidates: textCandidate("unknown")}}
	provider := &GeminiProvider{models: fake, model: "gemini-2.0-flash"}

	resp, err := provider.Generate(context.Background(), &LLMRequest{Prompt: "hi"})
	require.NoError(t, err)

	assert.Equal(t, "unknown", resp.Content)
	assert.Nil(t, resp.Usage)
	assert.Zero(t, fake.config.MaxOutputTokens)
	assert.Equal(t, "hi", fake.contents[0].Parts[0].Text)
}

func TestGeminiProviderEmptyResponse(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
	}{
		{"nil response", nil},
		{"no candidates", &genai.GenerateContentResponse{}},
		{"nil content", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &GeminiProvider{models: &fakeGemini{resp: tt.resp}, model: "gemini-2.0-flash"}

			resp, err := provider.Generate(context.Background(), &LLMRequest{Prompt: "hi"})
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.Contains(t, err.Error(), "empty response from gemini")
		})
	}
}

func TestGeminiProviderWrapsAPIError(t *testing.T) {
	boom := errors.New("quota exceeded")
	provider := &GeminiProvider{models: &fakeGemini{err: boom}, model: "gemini-2.0-flash"}

	_, err := provider.Generate(context.Background(), &LLMRequest{Prompt: "hi"})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "gemini API error")
}
