package agent

import (
	"fmt"

	"github.com/avvvet/foodbuddy-agent/internal/models"
)

// Turn-context keys.
const (
	KeyRestaurants            = "restaurants"
	KeyRestaurantSearchError  = "restaurant_search_error"
	KeyRestaurantDetails      = "restaurant_details"
	KeyRestaurantDetailsError = "restaurant_details_error"
	KeyRecipes                = "recipes"
	KeySearchCriteria         = "search_criteria"
	KeyRecipeSearchError      = "recipe_search_error"
	KeyRecipeDetails          = "recipe_details"
	KeyRecipeDetailsError     = "recipe_details_error"
	KeyToolsUsed              = "tools_used"
	KeyResponse               = "response"
)

// Tool identifiers recorded in tools_used, one entry per retrieval call.
const (
	ToolRestaurantSearch  = "restaurants.search"
	ToolRestaurantDetails = "restaurants.details"
	ToolRecipeSearch      = "recipes.search"
	ToolRecipeDetails     = "recipes.details"
)

// TurnContext is the scratch space one turn's stages write into.
type TurnContext map[string]any

// ToolsUsed returns the recorded retrieval calls in call order.
func (tc TurnContext) ToolsUsed() []string {
	tools, _ := tc[KeyToolsUsed].([]string)
	return tools
}

func (tc TurnContext) recordTool(id string) {
	tc[KeyToolsUsed] = append(tc.ToolsUsed(), id)
}

// String returns the string stored under key, or "".
func (tc TurnContext) String(key string) string {
	s, _ := tc[key].(string)
	return s
}

// SessionState is built fresh for each turn from the persisted history plus
// the new user message. Stages mutate it in place; it is never persisted.
type SessionState struct {
	UserID        string
	SessionID     string
	Messages      []models.ConversationMessage
	CurrentIntent *models.IntentType
	TurnContext   TurnContext

	// Path records the stages visited during the turn.
	Path []Stage
}

func NewSessionState(userID, sessionID string, messages []models.ConversationMessage) *SessionState {
	return &SessionState{
		UserID:      userID,
		SessionID:   sessionID,
		Messages:    messages,
		TurnContext: TurnContext{KeyToolsUsed: []string{}},
	}
}

// SetIntent fixes the turn's intent. It can only be set once.
func (s *SessionState) SetIntent(intent models.IntentType) error {
	if s.CurrentIntent != nil {
		return fmt.Errorf("intent already set to %s", *s.CurrentIntent)
	}
	s.CurrentIntent = &intent
	return nil
}

// Intent returns the classified intent, or unknown before classification.
func (s *SessionState) Intent() models.IntentType {
	if s.CurrentIntent == nil {
		return models.IntentUnknown
	}
	return *s.CurrentIntent
}

// History returns the messages that precede the current turn.
func (s *SessionState) History() []models.ConversationMessage {
	if len(s.Messages) == 0 {
		return nil
	}
	return s.Messages[:len(s.Messages)-1]
}

// LatestMessage returns the content of the newest message.
func (s *SessionState) LatestMessage() string {
	if len(s.Messages) == 0 {
		return ""
	}
	return s.Messages[len(s.Messages)-1].Content
}
