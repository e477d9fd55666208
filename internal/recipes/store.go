package recipes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/avvvet/foodbuddy-agent/internal/models"
)

// MaxResults caps every list query.
const MaxResults = 5

const schema = `
CREATE TABLE IF NOT EXISTS recipes (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	ingredients_json TEXT NOT NULL,
	ingredients_text TEXT NOT NULL,
	instructions_json TEXT NOT NULL,
	prep_time INTEGER NOT NULL,
	cook_time INTEGER NOT NULL,
	difficulty TEXT NOT NULL,
	servings INTEGER NOT NULL,
	tags TEXT,
	search_text TEXT
);
CREATE INDEX IF NOT EXISTS idx_ingredients_text ON recipes(ingredients_text);
CREATE INDEX IF NOT EXISTS idx_difficulty ON recipes(difficulty);
CREATE INDEX IF NOT EXISTS idx_prep_time ON recipes(prep_time);
CREATE INDEX IF NOT EXISTS idx_tags ON recipes(tags);
CREATE INDEX IF NOT EXISTS idx_search_text ON recipes(search_text);
`

const selectColumns = `SELECT id, title, ingredients_json, instructions_json, prep_time, cook_time, difficulty, servings, tags FROM recipes`

// SQLiteStore is the recipe retrieval collaborator backed by a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the recipe database at path.
func Open(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps :memory: databases shared across queries.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Count returns the number of stored recipes.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count recipes: %w", err)
	}
	return n, nil
}

// Seed loads a JSON array of recipes from path. Existing ids are replaced.
func (s *SQLiteStore) Seed(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}

	var list []models.Recipe
	if err := json.Unmarshal(data, &list); err != nil {
		return 0, fmt.Errorf("decode seed file: %w", err)
	}

	if err := s.Insert(ctx, list...); err != nil {
		return 0, err
	}

	log.Printf("📚 Seeded %d recipes from %s", len(list), path)
	return len(list), nil
}

// Insert stores recipes in a single transaction.
func (s *SQLiteStore) Insert(ctx context.Context, list ...models.Recipe) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO recipes (
			id, title, ingredients_json, ingredients_text,
			instructions_json, prep_time, cook_time,
			difficulty, servings, tags, search_text
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range list {
		if r.ID == "" {
			return fmt.Errorf("recipe %q has no id", r.Title)
		}

		ingredientsJSON, err := json.Marshal(r.Ingredients)
		if err != nil {
			return fmt.Errorf("encode ingredients for %s: %w", r.ID, err)
		}
		instructions := r.Instructions
		if instructions == nil {
			instructions = []string{}
		}
		instructionsJSON, err := json.Marshal(instructions)
		if err != nil {
			return fmt.Errorf("encode instructions for %s: %w", r.ID, err)
		}

		ingredientsText := ingredientText(r.Ingredients)
		tags := joinLower(r.Tags)
		searchText := strings.Join(nonEmpty(
			strings.ToLower(r.Title),
			ingredientsText,
			strings.ToLower(r.Difficulty),
			tags,
		), " ")

		if _, err := stmt.ExecContext(ctx,
			r.ID, r.Title, string(ingredientsJSON), ingredientsText,
			string(instructionsJSON), r.PrepTime, r.CookTime,
			r.Difficulty, r.Servings, tags, searchText,
		); err != nil {
			return fmt.Errorf("insert recipe %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit recipes: %w", err)
	}
	return nil
}

// Find returns recipes containing any of the ingredients, optionally filtered
// by difficulty and maximum prep time.
func (s *SQLiteStore) Find(ctx context.Context, ingredients []string, difficulty *string, maxPrepTime *int) ([]models.Recipe, error) {
	q := newQuery()
	q.anyIngredient(ingredients)
	if difficulty != nil && *difficulty != "" {
		q.where("LOWER(difficulty) = ?", strings.ToLower(*difficulty))
	}
	if maxPrepTime != nil && *maxPrepTime > 0 {
		q.where("prep_time <= ?", *maxPrepTime)
	}
	return s.list(ctx, q)
}

// Search applies every populated criteria field: title substring, any of the
// ingredients, none of the excluded ingredients, total time, difficulty, all
// tags and minimum servings.
func (s *SQLiteStore) Search(ctx context.Context, criteria models.SearchCriteria) ([]models.Recipe, error) {
	q := newQuery()

	if criteria.RecipeTitle != nil && strings.TrimSpace(*criteria.RecipeTitle) != "" {
		q.where(`LOWER(title) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(strings.TrimSpace(*criteria.RecipeTitle)))+"%")
	}
	q.anyIngredient(criteria.IngredientNames())
	for _, name := range criteria.ExcludedIngredients {
		if name = normalize(name); name != "" {
			q.where(`(',' || ingredients_text || ',') NOT LIKE ? ESCAPE '\'`, listPattern(name))
		}
	}
	if criteria.MaxTotalTime != nil && *criteria.MaxTotalTime > 0 {
		q.where("prep_time + cook_time <= ?", *criteria.MaxTotalTime)
	}
	if criteria.Difficulty != nil && *criteria.Difficulty != "" {
		q.where("LOWER(difficulty) = ?", strings.ToLower(*criteria.Difficulty))
	}
	for _, tag := range criteria.Tags {
		if tag = normalize(tag); tag != "" {
			q.where(`(',' || COALESCE(tags, '') || ',') LIKE ? ESCAPE '\'`, listPattern(tag))
		}
	}
	if criteria.Servings != nil && *criteria.Servings > 0 {
		q.where("servings >= ?", *criteria.Servings)
	}

	return s.list(ctx, q)
}

// ByID returns nil, nil when no recipe has the id.
func (s *SQLiteStore) ByID(ctx context.Context, id string) (*models.Recipe, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	r, err := scanRecipe(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recipe %s: %w", id, err)
	}
	return r, nil
}

// ByTitle returns recipes whose title contains title, case-insensitively.
func (s *SQLiteStore) ByTitle(ctx context.Context, title string) ([]models.Recipe, error) {
	q := newQuery()
	q.where(`LOWER(title) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(strings.TrimSpace(title)))+"%")
	return s.list(ctx, q)
}

func (s *SQLiteStore) list(ctx context.Context, q *query) ([]models.Recipe, error) {
	stmt, args := q.build()

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query recipes: %w", err)
	}
	defer rows.Close()

	out := []models.Recipe{}
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recipe: %w", err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipes: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecipe(row scanner) (*models.Recipe, error) {
	var (
		r                models.Recipe
		ingredientsJSON  string
		instructionsJSON string
		tags             sql.NullString
	)
	if err := row.Scan(&r.ID, &r.Title, &ingredientsJSON, &instructionsJSON,
		&r.PrepTime, &r.CookTime, &r.Difficulty, &r.Servings, &tags); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(ingredientsJSON), &r.Ingredients); err != nil {
		return nil, fmt.Errorf("decode ingredients for %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(instructionsJSON), &r.Instructions); err != nil {
		return nil, fmt.Errorf("decode instructions for %s: %w", r.ID, err)
	}
	r.Tags = splitList(tags.String)

	return &r, nil
}
