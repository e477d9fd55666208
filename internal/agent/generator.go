package agent

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/avvvet/foodbuddy-agent/internal/llm"
	"github.com/avvvet/foodbuddy-agent/internal/models"
	"github.com/avvvet/foodbuddy-agent/internal/prompts"
)

// contextSections is the fixed order in which turn-context data is shown to
// the model.
var contextSections = []struct {
	key   string
	label string
}{
	{KeyRestaurants, "Restaurants"},
	{KeyRestaurantSearchError, "Restaurant search error"},
	{KeyRestaurantDetails, "Restaurant details"},
	{KeyRestaurantDetailsError, "Restaurant details error"},
	{KeyRecipes, "Recipes"},
	{KeySearchCriteria, "Search criteria"},
	{KeyRecipeSearchError, "Recipe search error"},
	{KeyRecipeDetails, "Recipe details"},
	{KeyRecipeDetailsError, "Recipe details error"},
}

var errorKeys = []string{
	KeyRestaurantSearchError,
	KeyRestaurantDetailsError,
	KeyRecipeSearchError,
	KeyRecipeDetailsError,
}

// ResponseGenerator writes the assistant reply into the turn context.
type ResponseGenerator struct {
	provider llm.LLMProvider
}

func NewResponseGenerator(provider llm.LLMProvider) *ResponseGenerator {
	return &ResponseGenerator{provider: provider}
}

func (g *ResponseGenerator) Run(ctx context.Context, state *SessionState) {
	intent := state.Intent()

	if intent == models.IntentUnknown && len(state.History()) == 0 {
		state.TurnContext[KeyResponse] = prompts.GreetingMessage
		return
	}

	systemPrompt := prompts.ResponseSystemPrompt
	if intent == models.IntentUnknown {
		systemPrompt = prompts.UnknownSystemPrompt
	}

	text, err := llm.GenerateText(ctx, g.provider, systemPrompt, BuildResponseContext(state), 1024, 0.7)
	if err != nil {
		log.Printf("❌ Session %s: response generation failed: %v", state.SessionID, err)
		state.TurnContext[KeyResponse] = prompts.ApologyMessage
		state.TurnContext[KeyToolsUsed] = []string{}
		return
	}

	reply := strings.TrimSpace(text)
	for _, key := range errorKeys {
		msg := state.TurnContext.String(key)
		if msg != "" && !strings.Contains(reply, msg) {
			reply = msg + "\n\n" + reply
		}
	}
	state.TurnContext[KeyResponse] = reply
}

// BuildResponseContext concatenates the rendered conversation with every
// populated turn-context section.
func BuildResponseContext(state *SessionState) string {
	var builder strings.Builder

	builder.WriteString("Conversation:\n")
	builder.WriteString(prompts.BuildConversationContext(state.Messages))

	var data strings.Builder
	for _, section := range contextSections {
		value, ok := state.TurnContext[section.key]
		if !ok {
			continue
		}
		data.WriteString(section.label)
		data.WriteString(": ")
		if s, isString := value.(string); isString {
			data.WriteString(s)
		} else if encoded, err := json.Marshal(value); err == nil {
			data.Write(encoded)
		}
		data.WriteString("\n")
	}

	if data.Len() > 0 {
		builder.WriteString("\n\nContext:\n")
		builder.WriteString(data.String())
	}

	return builder.String()
}

// FormatReply appends the tool-usage trailer. An empty list adds nothing.
func FormatReply(response string, toolsUsed []string) string {
	if len(toolsUsed) == 0 {
		return response
	}

	var builder strings.Builder
	builder.WriteString(response)
	builder.WriteString("\n\nTools used:")
	for _, tool := range toolsUsed {
		builder.WriteString("\n- ")
		builder.WriteString(tool)
	}
	return builder.String()
}
