package agent

import (
	"context"
	"fmt"
	"log"

	"github.com/avvvet/foodbuddy-agent/internal/llm"
	"github.com/avvvet/foodbuddy-agent/internal/models"
)

// Dependencies are the collaborators an Agent calls.
type Dependencies struct {
	Provider llm.LLMProvider
	Places   PlaceSearcher
	Recipes  RecipeRetriever
}

// Agent is the orchestration instance of one live session. It keeps the last
// search results for reference resolution and is not safe for concurrent use;
// callers serialize turns per session.
type Agent struct {
	router   *Router
	handlers map[Stage]StageHandler
	memory   *searchMemory
}

func NewAgent(deps Dependencies) *Agent {
	memory := &searchMemory{}

	return &Agent{
		router: NewRouter(),
		memory: memory,
		handlers: map[Stage]StageHandler{
			StageClassifying: &classifyStage{
				classifier: NewIntentClassifier(deps.Provider),
				memory:     memory,
			},
			StageRestaurantSearch: &restaurantSearchStage{
				places: deps.Places,
				memory: memory,
			},
			StageRestaurantDetails: &restaurantDetailsStage{
				provider: deps.Provider,
				places:   deps.Places,
				memory:   memory,
			},
			StageRecipeSearch: &recipeSearchStage{
				provider: deps.Provider,
				recipes:  deps.Recipes,
				memory:   memory,
			},
			StageRecipeDetails: &recipeDetailsStage{
				provider: deps.Provider,
				recipes:  deps.Recipes,
				memory:   memory,
			},
			StageGeneratingResponse: NewResponseGenerator(deps.Provider),
		},
	}
}

// Process runs one turn through classify, route, tool stage and generate,
// strictly in sequence, and returns the final reply with its tool trailer.
func (a *Agent) Process(ctx context.Context, state *SessionState) (string, error) {
	visited := make(map[Stage]bool)

	for stage := StageClassifying; stage != StageDone; stage = a.router.Next(stage, state.Intent()) {
		if visited[stage] {
			return "", fmt.Errorf("stage %s visited twice in one turn", stage)
		}
		visited[stage] = true

		handler, ok := a.handlers[stage]
		if !ok {
			return "", fmt.Errorf("no handler for stage %s", stage)
		}

		state.Path = append(state.Path, stage)
		handler.Run(ctx, state)
	}

	reply := FormatReply(state.TurnContext.String(KeyResponse), state.TurnContext.ToolsUsed())

	log.Printf("🍽️ Session %s: intent=%s tools=%d", state.SessionID, state.Intent(), len(state.TurnContext.ToolsUsed()))

	return reply, nil
}

// LastRestaurants returns the restaurants from the latest search in this session.
func (a *Agent) LastRestaurants() []models.Restaurant {
	return a.memory.restaurants
}

// LastRecipes returns the recipes from the latest search in this session.
func (a *Agent) LastRecipes() []models.Recipe {
	return a.memory.recipes
}
