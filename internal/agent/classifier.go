package agent

import (
	"context"
	"log"
	"strings"

	"github.com/avvvet/foodbuddy-agent/internal/llm"
	"github.com/avvvet/foodbuddy-agent/internal/models"
	"github.com/avvvet/foodbuddy-agent/internal/prompts"
)

var intentTable = map[string]models.IntentType{
	"restaurant_search":  models.IntentRestaurantSearch,
	"restaurant_details": models.IntentRestaurantDetails,
	"recipe_search":      models.IntentRecipeSearch,
	"recipe_details":     models.IntentRecipeDetails,
	"unknown":            models.IntentUnknown,
}

// ParseIntent maps raw model text onto IntentType. Anything unrecognized is
// unknown.
func ParseIntent(raw string) models.IntentType {
	if intent, ok := intentTable[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return intent
	}
	return models.IntentUnknown
}

// IntentClassifier labels the latest turn. It never fails: transport errors
// and unrecognized output both classify as unknown.
type IntentClassifier struct {
	provider llm.LLMProvider
}

func NewIntentClassifier(provider llm.LLMProvider) *IntentClassifier {
	return &IntentClassifier{provider: provider}
}

func (c *IntentClassifier) Classify(ctx context.Context, conversation string, hasRestaurants, hasRecipes bool) models.IntentType {
	text, err := llm.GenerateText(ctx, c.provider,
		prompts.IntentSystemPrompt,
		prompts.BuildIntentPrompt(conversation, hasRestaurants, hasRecipes),
		20, 0)
	if err != nil {
		log.Printf("⚠️ Intent classification failed, using unknown: %v", err)
		return models.IntentUnknown
	}
	return ParseIntent(text)
}

type classifyStage struct {
	classifier *IntentClassifier
	memory     *searchMemory
}

func (s *classifyStage) Run(ctx context.Context, state *SessionState) {
	conversation := prompts.BuildConversationContext(state.Messages)
	intent := s.classifier.Classify(ctx, conversation, len(s.memory.restaurants) > 0, len(s.memory.recipes) > 0)
	if err := state.SetIntent(intent); err != nil {
		log.Printf("⚠️ Session %s: %v", state.SessionID, err)
	}
}
