package prompts

import (
	"fmt"
	"strings"

	"github.com/avvvet/foodbuddy-agent/internal/models"
)

const NoConversation = "No previous conversation."

const IntentSystemPrompt = `You are FoodBuddy, a food recommendation assistant. Your job is to classify the latest user message in the conversation.

Respond with exactly one of these labels and nothing else:
- restaurant_search: the user wants to find restaurants, cafes or places to eat
- restaurant_details: the user asks about a specific restaurant that was already shown (hours, prices, phone, "the first one")
- recipe_search: the user wants recipe ideas, or mentions ingredients or dishes to cook
- recipe_details: the user asks about a specific recipe that was already shown (steps, ingredients, "that recipe")
- unknown: greetings, small talk, or anything unrelated to food

RULES:
1. When the message is a follow-up referring to previously shown results ("the second one", "that recipe"),
   choose the *_details label ONLY if results of that category were already shown in this session.
2. Otherwise choose the matching *_search label.
3. Never explain your answer.`

const ResponseSystemPrompt = `You are FoodBuddy, a friendly food recommendation assistant.
Be conversational and helpful. Use the context data to provide relevant recommendations.
Only state facts that appear in the context data. If the context contains an error, apologise briefly
and ask the user to clarify instead of inventing details.`

const UnknownSystemPrompt = `You are FoodBuddy, a friendly food recommendation assistant.
The user's latest message is not a restaurant or recipe request. Reply briefly and naturally,
and remind the user that you can suggest recipes from ingredients they have or find restaurants nearby.`

const CriteriaSystemPrompt = `Extract recipe search criteria from the conversation. Focus on the latest user message.
Respond with a single JSON object using only these optional fields:
{
  "recipe_title": "string",
  "ingredients": ["string" or {"name": "string", "quantity": number, "unit": "string"}],
  "excluded_ingredients": ["string"],
  "max_total_time": minutes as integer,
  "difficulty": "easy" | "medium" | "hard",
  "tags": ["string"],
  "servings": integer
}
Omit fields the user did not constrain. Do not add any text outside the JSON.`

const RestaurantReferenceSystemPrompt = `The user is asking about one of the restaurants listed below.
Reply with the restaurant name exactly as listed, or with its position number (1 for the first) if the user
referred to it by position. If you cannot tell which restaurant is meant, reply with "none".`

const RecipeReferenceSystemPrompt = `The user is asking about a specific recipe.
Reply with the recipe id if one is known, otherwise the recipe title, or its position number (1 for the first)
among the recipes listed below if the user referred to it by position. If you cannot tell, reply with "none".`

const GreetingMessage = "Hi! I'm FoodBuddy, your food assistant. I can help you find recipes based on the ingredients you have, or discover restaurants near you. What are you in the mood for?"

const ApologyMessage = "I'm sorry, I encountered an error processing your request. Please try again."

// BuildConversationContext renders history one message per line. The output is
// stable for a given input.
func BuildConversationContext(messages []models.ConversationMessage) string {
	if len(messages) == 0 {
		return NoConversation
	}

	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		lines = append(lines, fmt.Sprintf("%s: %s", roleLabel(msg.Role), msg.Content))
	}

	return strings.Join(lines, "\n")
}

func roleLabel(role models.Role) string {
	if role == models.RoleAssistant {
		return "Assistant"
	}
	return "User"
}

// BuildIntentPrompt tells the classifier which result categories this session
// has already populated.
func BuildIntentPrompt(conversation string, hasRestaurants, hasRecipes bool) string {
	var builder strings.Builder

	builder.WriteString("Session state:\n")
	builder.WriteString(fmt.Sprintf("- restaurant results shown: %s\n", yesNo(hasRestaurants)))
	builder.WriteString(fmt.Sprintf("- recipe results shown: %s\n\n", yesNo(hasRecipes)))
	builder.WriteString("Current Conversation:\n")
	builder.WriteString(conversation)
	builder.WriteString("\n\nLabel:")

	return builder.String()
}

// BuildReferencePrompt lists candidate names so the model can point at one.
func BuildReferencePrompt(conversation string, candidates []string) string {
	var builder strings.Builder

	if len(candidates) > 0 {
		builder.WriteString("Listed:\n")
		for i, name := range candidates {
			builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, name))
		}
		builder.WriteString("\n")
	}
	builder.WriteString("Current Conversation:\n")
	builder.WriteString(conversation)

	return builder.String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// ExtractJSON returns the outermost {...} span of content, or "".
func ExtractJSON(content string) string {
	start := strings.Index(content, "{")
	if start == -1 {
		return ""
	}

	end := strings.LastIndex(content, "}")
	if end == -1 || end <= start {
		return ""
	}

	return content[start : end+1]
}
