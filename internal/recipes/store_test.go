package recipes

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/foodbuddy-agent/internal/models"
)

func newSeededStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "recipes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	n, err := store.Seed(context.Background(), filepath.Join("testdata", "recipes.json"))
	require.NoError(t, err)
	require.Equal(t, 5, n)

	return store
}

func ids(list []models.Recipe) []string {
	out := make([]string, 0, len(list))
	for _, r := range list {
		out = append(out, r.ID)
	}
	return out
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestSeedIsIdempotent(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()

	_, err := store.Seed(ctx, filepath.Join("testdata", "recipes.json"))
	require.NoError(t, err)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestByID(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()

	r, err := store.ByID(ctx, "carbonara")
	require.NoError(t, err)
	require.NotNil(t, r)

	assert.Equal(t, "Spaghetti Carbonara", r.Title)
	require.Len(t, r.Ingredients, 4)
	assert.Equal(t, "guanciale", r.Ingredients[2].Name)
	require.NotNil(t, r.Ingredients[0].Quantity)
	assert.Equal(t, 200.0, *r.Ingredients[0].Quantity)
	assert.Equal(t, []string{"Boil pasta", "Fry guanciale", "Mix with eggs and cheese"}, r.Instructions)
	assert.Equal(t, []string{"italian", "pasta"}, r.Tags)

	missing, err := store.ByID(ctx, "does-not-exist")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestByTitle(t *testing.T) {
	store := newSeededStore(t)

	got, err := store.ByTitle(context.Background(), "PASTA")
	require.NoError(t, err)
	assert.Equal(t, []string{"tomato-pasta"}, ids(got))

	none, err := store.ByTitle(context.Background(), "stew")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFind(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()

	got, err := store.Find(ctx, []string{"Eggs"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"carbonara", "omelette", "beef-wellington"}, ids(got))

	got, err = store.Find(ctx, []string{"eggs", "basil"}, strPtr("easy"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"caprese", "tomato-pasta", "omelette"}, ids(got))

	got, err = store.Find(ctx, []string{"eggs"}, nil, intPtr(10))
	require.NoError(t, err)
	assert.Equal(t, []string{"carbonara", "omelette"}, ids(got))

	got, err = store.Find(ctx, []string{"egg"}, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, got, "ingredient names match whole entries only")
}

func TestSearch(t *testing.T) {
	store := newSeededStore(t)

	tests := []struct {
		name     string
		criteria models.SearchCriteria
		want     []string
	}{
		{
			name:     "title substring",
			criteria: models.SearchCriteria{RecipeTitle: strPtr("pasta")},
			want:     []string{"tomato-pasta"},
		},
		{
			name: "any ingredient minus excluded",
			criteria: models.SearchCriteria{
				Ingredients:         []models.Ingredient{{Name: "spaghetti"}, {Name: "tomato"}},
				ExcludedIngredients: []string{"garlic"},
			},
			want: []string{"carbonara", "caprese"},
		},
		{
			name:     "total time",
			criteria: models.SearchCriteria{MaxTotalTime: intPtr(25)},
			want:     []string{"carbonara", "caprese", "omelette"},
		},
		{
			name:     "all tags",
			criteria: models.SearchCriteria{Tags: []string{"Vegetarian", "pasta"}},
			want:     []string{"tomato-pasta"},
		},
		{
			name:     "difficulty and servings",
			criteria: models.SearchCriteria{Difficulty: strPtr("EASY"), Servings: intPtr(2)},
			want:     []string{"caprese", "tomato-pasta"},
		},
		{
			name:     "no match",
			criteria: models.SearchCriteria{Difficulty: strPtr("hard"), Tags: []string{"vegetarian"}},
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Search(context.Background(), tt.criteria)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestResultsAreCapped(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "recipes.db"))
	require.NoError(t, err)
	defer store.Close()

	var list []models.Recipe
	for i := 0; i < 8; i++ {
		list = append(list, models.Recipe{
			ID:          fmt.Sprintf("r%d", i),
			Title:       fmt.Sprintf("Rice Bowl %d", i),
			Ingredients: []models.Ingredient{{Name: "rice"}},
			Difficulty:  "easy",
			Servings:    1,
		})
	}
	require.NoError(t, store.Insert(context.Background(), list...))

	got, err := store.Find(context.Background(), []string{"rice"}, nil, nil)
	require.NoError(t, err)
	assert.Len(t, got, MaxResults)

	got, err = store.Search(context.Background(), models.SearchCriteria{})
	require.NoError(t, err)
	assert.Len(t, got, MaxResults)
}

func TestInsertRequiresID(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "recipes.db"))
	require.NoError(t, err)
	defer store.Close()

	err = store.Insert(context.Background(), models.Recipe{Title: "Nameless"})
	assert.ErrorContains(t, err, "has no id")
}
