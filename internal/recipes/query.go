package recipes

import (
	"fmt"
	"strings"

	"github.com/avvvet/foodbuddy-agent/internal/models"
)

// query accumulates AND-ed conditions for a recipe list statement.
type query struct {
	conds []string
	args  []any
}

func newQuery() *query {
	return &query{}
}

func (q *query) where(cond string, args ...any) {
	q.conds = append(q.conds, cond)
	q.args = append(q.args, args...)
}

// anyIngredient matches recipes listing at least one of names exactly.
func (q *query) anyIngredient(names []string) {
	var ors []string
	var args []any
	for _, name := range names {
		if name = normalize(name); name != "" {
			ors = append(ors, `(',' || ingredients_text || ',') LIKE ? ESCAPE '\'`)
			args = append(args, listPattern(name))
		}
	}
	if len(ors) > 0 {
		q.where("("+strings.Join(ors, " OR ")+")", args...)
	}
}

func (q *query) build() (string, []any) {
	var b strings.Builder
	b.WriteString(selectColumns)
	if len(q.conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(q.conds, " AND "))
	}
	b.WriteString(fmt.Sprintf(" ORDER BY rowid LIMIT %d", MaxResults))
	return b.String(), q.args
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// listPattern matches one element of a comma-joined list wrapped in commas.
func listPattern(item string) string {
	return "%," + escapeLike(item) + ",%"
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func ingredientText(ingredients []models.Ingredient) string {
	names := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		names = append(names, normalize(ing.Name))
	}
	return strings.Join(names, ",")
}

func joinLower(items []string) string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = normalize(item); item != "" {
			out = append(out, item)
		}
	}
	return strings.Join(out, ",")
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func nonEmpty(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
