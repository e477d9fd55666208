package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/avvvet/foodbuddy-agent/internal/models"
	"github.com/avvvet/foodbuddy-agent/internal/prompts"
)

const criteriaSchemaJSON = `{
  "type": "object",
  "properties": {
    "recipe_title": {"type": ["string", "null"]},
    "ingredients": {
      "type": ["array", "null"],
      "items": {
        "oneOf": [
          {"type": "string"},
          {
            "type": "object",
            "required": ["name"],
            "properties": {
              "name": {"type": "string"},
              "quantity": {"type": ["number", "null"]},
              "unit": {"type": ["string", "null"]}
            }
          }
        ]
      }
    },
    "excluded_ingredients": {"type": ["array", "null"], "items": {"type": "string"}},
    "max_total_time": {"type": ["integer", "null"], "minimum": 0},
    "difficulty": {"type": ["string", "null"]},
    "tags": {"type": ["array", "null"], "items": {"type": "string"}},
    "servings": {"type": ["integer", "null"], "minimum": 1}
  }
}`

var criteriaSchema = mustSchema(criteriaSchemaJSON)

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("invalid criteria schema: %v", err))
	}
	return schema
}

// ParseSearchCriteria decodes the model's extraction into SearchCriteria. The
// payload must be a JSON object matching the criteria schema.
func ParseSearchCriteria(raw string) (models.SearchCriteria, error) {
	var criteria models.SearchCriteria

	payload := prompts.ExtractJSON(raw)
	if payload == "" {
		return criteria, fmt.Errorf("no JSON object in extraction")
	}

	result, err := criteriaSchema.Validate(gojsonschema.NewStringLoader(payload))
	if err != nil {
		return criteria, fmt.Errorf("invalid criteria JSON: %w", err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return criteria, fmt.Errorf("criteria failed validation: %s", strings.Join(problems, "; "))
	}

	if err := json.Unmarshal([]byte(payload), &criteria); err != nil {
		return criteria, fmt.Errorf("failed to decode criteria: %w", err)
	}
	if criteria.Difficulty != nil {
		d := strings.ToLower(strings.TrimSpace(*criteria.Difficulty))
		if d == "" {
			criteria.Difficulty = nil
		} else {
			criteria.Difficulty = &d
		}
	}
	return criteria, nil
}

// SplitIngredients treats text as a comma-separated ingredient list.
func SplitIngredients(text string) []string {
	var out []string
	for _, part := range strings.Split(text, ",") {
		name := strings.TrimSpace(strings.Trim(strings.TrimSpace(part), `"'[]{}.`))
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}
