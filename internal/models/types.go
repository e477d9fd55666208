package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Role is the author of a stored conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationMessage is one immutable entry of a session log.
// Timestamp is an ISO-8601 string and is stored verbatim.
type ConversationMessage struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// IntentType is the closed set of labels the classifier can produce.
type IntentType string

const (
	IntentRestaurantSearch  IntentType = "restaurant_search"
	IntentRestaurantDetails IntentType = "restaurant_details"
	IntentRecipeSearch      IntentType = "recipe_search"
	IntentRecipeDetails     IntentType = "recipe_details"
	IntentUnknown           IntentType = "unknown"
)

// AllIntents lists every IntentType value.
var AllIntents = []IntentType{
	IntentRestaurantSearch,
	IntentRestaurantDetails,
	IntentRecipeSearch,
	IntentRecipeDetails,
	IntentUnknown,
}

// Restaurant is a place search result.
type Restaurant struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Location    string  `json:"location"`
	PriceLevel  *string `json:"price_level,omitempty"`
	Description string  `json:"description,omitempty"`
}

// PlaceDetails is the detail record for a single place.
type PlaceDetails struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Phone       string   `json:"phone,omitempty"`
	Website     string   `json:"website,omitempty"`
	Rating      float64  `json:"rating,omitempty"`
	PriceLevel  string   `json:"price_level,omitempty"`
	Hours       []string `json:"hours,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Ingredient is either a structured ingredient or a bare name. Both JSON
// shapes ("garlic" and {"name": "garlic", "quantity": 2}) decode into it.
type Ingredient struct {
	Name     string   `json:"name"`
	Quantity *float64 `json:"quantity,omitempty"`
	Unit     *string  `json:"unit,omitempty"`
}

// UnmarshalJSON accepts a bare string or an object.
func (i *Ingredient) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*i = Ingredient{Name: name}
		return nil
	}

	type structured Ingredient
	var s structured
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("ingredient must be a string or an object: %w", err)
	}
	*i = Ingredient(s)
	return nil
}

// Recipe is a recipe record from the retrieval collaborator.
type Recipe struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Ingredients  []Ingredient `json:"ingredients"`
	Instructions []string     `json:"instructions"`
	PrepTime     int          `json:"prep_time"`
	CookTime     int          `json:"cook_time"`
	Difficulty   string       `json:"difficulty"`
	Servings     int          `json:"servings"`
	Tags         []string     `json:"tags"`
}

// SearchCriteria is the structured extraction of a recipe request.
// A nil or empty field means unconstrained.
type SearchCriteria struct {
	RecipeTitle         *string      `json:"recipe_title,omitempty"`
	Ingredients         []Ingredient `json:"ingredients,omitempty"`
	ExcludedIngredients []string     `json:"excluded_ingredients,omitempty"`
	MaxTotalTime        *int         `json:"max_total_time,omitempty"`
	Difficulty          *string      `json:"difficulty,omitempty"`
	Tags                []string     `json:"tags,omitempty"`
	Servings            *int         `json:"servings,omitempty"`
}

// IngredientNames returns the names of the requested ingredients.
func (c SearchCriteria) IngredientNames() []string {
	names := make([]string, 0, len(c.Ingredients))
	for _, ing := range c.Ingredients {
		if ing.Name != "" {
			names = append(names, ing.Name)
		}
	}
	return names
}

// ChatRequest is the inbound envelope for process(user_id, message, session_id?).
type ChatRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// ChatResponse is the outbound envelope.
type ChatResponse struct {
	Response     string  `json:"response"`
	UserID       string  `json:"user_id"`
	SessionID    string  `json:"session_id"`
	ErrorCode    *string `json:"error_code,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
}

// Error codes
const (
	ErrorInvalidRequest   = "INVALID_REQUEST"
	ErrorProcessingFailed = "PROCESSING_FAILED"
	ErrorParseError       = "PARSE_ERROR"
)
