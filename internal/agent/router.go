package agent

import "github.com/avvvet/foodbuddy-agent/internal/models"

// Stage names one node of the per-turn pipeline.
type Stage string

const (
	StageClassifying        Stage = "classifying"
	StageRestaurantSearch   Stage = "restaurant_search"
	StageRestaurantDetails  Stage = "restaurant_details"
	StageRecipeSearch       Stage = "recipe_search"
	StageRecipeDetails      Stage = "recipe_details"
	StageGeneratingResponse Stage = "generating_response"
	StageDone               Stage = "done"
)

// Router is the transition table of the turn state machine:
// classifying -> (tool stage)? -> generating_response -> done.
type Router struct {
	routes map[models.IntentType]Stage
}

func NewRouter() *Router {
	return &Router{
		routes: map[models.IntentType]Stage{
			models.IntentRestaurantSearch:  StageRestaurantSearch,
			models.IntentRestaurantDetails: StageRestaurantDetails,
			models.IntentRecipeSearch:      StageRecipeSearch,
			models.IntentRecipeDetails:     StageRecipeDetails,
			models.IntentUnknown:           StageGeneratingResponse,
		},
	}
}

// Route maps an intent to the stage that follows classification. Values
// outside the table go straight to response generation.
func (r *Router) Route(intent models.IntentType) Stage {
	if stage, ok := r.routes[intent]; ok {
		return stage
	}
	return StageGeneratingResponse
}

// Next returns the stage after current.
func (r *Router) Next(current Stage, intent models.IntentType) Stage {
	switch current {
	case StageClassifying:
		return r.Route(intent)
	case StageGeneratingResponse, StageDone:
		return StageDone
	default:
		return StageGeneratingResponse
	}
}
