package agent

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/avvvet/foodbuddy-agent/internal/llm"
	"github.com/avvvet/foodbuddy-agent/internal/models"
	"github.com/avvvet/foodbuddy-agent/internal/prompts"
)

const maxResults = 5

// PlaceSearcher is the place-search collaborator.
type PlaceSearcher interface {
	Search(ctx context.Context, query string) ([]models.Restaurant, error)
	// Details returns nil, nil when the place does not exist.
	Details(ctx context.Context, placeID string) (*models.PlaceDetails, error)
}

// RecipeRetriever is the recipe-retrieval collaborator.
type RecipeRetriever interface {
	Find(ctx context.Context, ingredients []string, difficulty *string, maxPrepTime *int) ([]models.Recipe, error)
	Search(ctx context.Context, criteria models.SearchCriteria) ([]models.Recipe, error)
	// ByID returns nil, nil when no recipe has the id.
	ByID(ctx context.Context, id string) (*models.Recipe, error)
	ByTitle(ctx context.Context, title string) ([]models.Recipe, error)
}

// StageHandler runs one pipeline stage. Collaborator failures are written into
// the turn context rather than returned.
type StageHandler interface {
	Run(ctx context.Context, state *SessionState)
}

// searchMemory holds the last results shown in a session. It lives as long as
// the Agent that owns it.
type searchMemory struct {
	restaurants []models.Restaurant
	recipes     []models.Recipe
}

type restaurantSearchStage struct {
	places PlaceSearcher
	memory *searchMemory
}

func (s *restaurantSearchStage) Run(ctx context.Context, state *SessionState) {
	query := prompts.BuildConversationContext(state.Messages)

	state.TurnContext.recordTool(ToolRestaurantSearch)
	results, err := s.places.Search(ctx, query)
	if err != nil {
		log.Printf("❌ Session %s: restaurant search failed: %v", state.SessionID, err)
		state.TurnContext[KeyRestaurantSearchError] = "I couldn't search for restaurants right now. Please try again in a moment."
		return
	}

	if len(results) > maxResults {
		results = results[:maxResults]
	}
	if results == nil {
		results = []models.Restaurant{}
	}

	s.memory.restaurants = results
	state.TurnContext[KeyRestaurants] = results
}

type restaurantDetailsStage struct {
	provider llm.LLMProvider
	places   PlaceSearcher
	memory   *searchMemory
}

func (s *restaurantDetailsStage) Run(ctx context.Context, state *SessionState) {
	last := s.memory.restaurants
	if len(last) == 0 {
		state.TurnContext[KeyRestaurantDetailsError] = "I haven't shown you any restaurants in this conversation yet, so I'm not sure which one you mean. Could you tell me what kind of food and which area you're interested in?"
		return
	}

	names := make([]string, len(last))
	for i, r := range last {
		names[i] = r.Name
	}

	conversation := prompts.BuildConversationContext(state.Messages)
	ref, err := llm.GenerateText(ctx, s.provider,
		prompts.RestaurantReferenceSystemPrompt,
		prompts.BuildReferencePrompt(conversation, names),
		50, 0)
	if err != nil {
		log.Printf("⚠️ Session %s: restaurant reference extraction failed: %v", state.SessionID, err)
		state.TurnContext[KeyRestaurantDetailsError] = "Sorry, I couldn't work out which restaurant you meant. Could you give me its name?"
		return
	}

	idx, ok := resolveReference(names, ref)
	if !ok {
		state.TurnContext[KeyRestaurantDetailsError] = fmt.Sprintf("Sorry, I couldn't tell which restaurant you meant. Could you give me its name or its number in the list (1-%d)?", len(last))
		return
	}
	restaurant := last[idx]

	state.TurnContext.recordTool(ToolRestaurantDetails)
	details, err := s.places.Details(ctx, restaurant.ID)
	if err != nil {
		log.Printf("❌ Session %s: place details failed for %s: %v", state.SessionID, restaurant.ID, err)
		state.TurnContext[KeyRestaurantDetailsError] = fmt.Sprintf("Sorry, I couldn't load the details for %s right now.", restaurant.Name)
		return
	}
	if details == nil {
		state.TurnContext[KeyRestaurantDetailsError] = fmt.Sprintf("Sorry, I couldn't find any more details for %s.", restaurant.Name)
		return
	}

	state.TurnContext[KeyRestaurantDetails] = details
}

type recipeSearchStage struct {
	provider llm.LLMProvider
	recipes  RecipeRetriever
	memory   *searchMemory
}

func (s *recipeSearchStage) Run(ctx context.Context, state *SessionState) {
	conversation := prompts.BuildConversationContext(state.Messages)

	raw, err := llm.GenerateText(ctx, s.provider, prompts.CriteriaSystemPrompt, conversation, 300, 0)
	if err != nil {
		log.Printf("⚠️ Session %s: criteria extraction failed, using message text: %v", state.SessionID, err)
		raw = state.LatestMessage()
	}

	var results []models.Recipe
	state.TurnContext.recordTool(ToolRecipeSearch)

	criteria, parseErr := ParseSearchCriteria(raw)
	if parseErr == nil {
		results, err = s.recipes.Search(ctx, criteria)
	} else {
		ingredients := SplitIngredients(raw)
		criteria = models.SearchCriteria{}
		for _, name := range ingredients {
			criteria.Ingredients = append(criteria.Ingredients, models.Ingredient{Name: name})
		}
		results, err = s.recipes.Find(ctx, ingredients, nil, nil)
	}
	state.TurnContext[KeySearchCriteria] = criteria

	if err != nil {
		log.Printf("❌ Session %s: recipe search failed: %v", state.SessionID, err)
		state.TurnContext[KeyRecipeSearchError] = "I couldn't search the recipe collection right now. Please try again in a moment."
		return
	}

	if len(results) > maxResults {
		results = results[:maxResults]
	}
	if results == nil {
		results = []models.Recipe{}
	}

	s.memory.recipes = results
	state.TurnContext[KeyRecipes] = results
}

type recipeDetailsStage struct {
	provider llm.LLMProvider
	recipes  RecipeRetriever
	memory   *searchMemory
}

func (s *recipeDetailsStage) Run(ctx context.Context, state *SessionState) {
	last := s.memory.recipes
	titles := make([]string, len(last))
	for i, r := range last {
		titles[i] = r.Title
	}

	conversation := prompts.BuildConversationContext(state.Messages)
	raw, err := llm.GenerateText(ctx, s.provider,
		prompts.RecipeReferenceSystemPrompt,
		prompts.BuildReferencePrompt(conversation, titles),
		50, 0)
	if err != nil {
		log.Printf("⚠️ Session %s: recipe reference extraction failed: %v", state.SessionID, err)
		state.TurnContext[KeyRecipeDetailsError] = "Sorry, I couldn't work out which recipe you meant. Could you give me its name?"
		return
	}

	ref := trimReference(raw)
	if ref == "" || strings.EqualFold(ref, "none") {
		state.TurnContext[KeyRecipeDetailsError] = "Which recipe would you like the details for?"
		return
	}

	id := ref
	idx, resolved := resolveReference(titles, ref)
	switch {
	case resolved:
		id = last[idx].ID
	case isNumeric(cleanReference(ref)):
		// A list position only means something against results shown in this session.
		state.TurnContext[KeyRecipeDetailsError] = positionError(len(last))
		return
	}

	state.TurnContext.recordTool(ToolRecipeDetails)
	recipe, err := s.recipes.ByID(ctx, id)
	if err != nil {
		log.Printf("❌ Session %s: recipe lookup failed for %q: %v", state.SessionID, id, err)
		state.TurnContext[KeyRecipeDetailsError] = "Sorry, I couldn't load that recipe right now."
		return
	}

	if recipe == nil {
		state.TurnContext.recordTool(ToolRecipeDetails)
		matches, err := s.recipes.ByTitle(ctx, ref)
		if err != nil {
			log.Printf("❌ Session %s: recipe title lookup failed for %q: %v", state.SessionID, ref, err)
		} else if len(matches) > 0 {
			recipe = &matches[0]
		}
	}

	if recipe == nil {
		state.TurnContext[KeyRecipeDetailsError] = fmt.Sprintf("Sorry, I couldn't find a recipe matching %q.", ref)
		return
	}

	state.TurnContext[KeyRecipeDetails] = recipe
}

func positionError(shown int) string {
	if shown == 0 {
		return "I haven't shown you any recipes in this conversation yet, so I'm not sure which one you mean. Could you tell me the recipe name or what you'd like to cook?"
	}
	return fmt.Sprintf("Sorry, I couldn't tell which recipe you meant. Could you give me its name or its number in the list (1-%d)?", shown)
}

func trimReference(raw string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), "\"'`."))
}

func cleanReference(raw string) string {
	return strings.ToLower(trimReference(raw))
}

// resolveReference picks a candidate by case-insensitive substring match on
// the name, then by 1-based position when ref is purely numeric.
func resolveReference(names []string, raw string) (int, bool) {
	ref := cleanReference(raw)
	if ref == "" || ref == "none" {
		return -1, false
	}

	for i, name := range names {
		n := strings.ToLower(strings.TrimSpace(name))
		if n == "" {
			continue
		}
		if strings.Contains(n, ref) || strings.Contains(ref, n) {
			return i, true
		}
	}

	if isNumeric(ref) {
		pos, err := strconv.Atoi(ref)
		if err == nil && pos >= 1 && pos <= len(names) {
			return pos - 1, true
		}
	}

	return -1, false
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
